package config

import (
	"fmt"
	"time"

	"github.com/rohmanhakim/render-fetch/internal/build"
	"github.com/rohmanhakim/render-fetch/pkg/timeutil"
	"github.com/rs/zerolog"
)

const DefaultZyteEndpoint = "https://api.zyte.com/v1/extract"

type Config struct {
	//===============
	// Rendering service
	//===============
	// Zyte API key, sent as the basic-auth username. Empty is allowed;
	// the service then rejects rendering requests with 401.
	zyteAPIKey string
	// Extraction endpoint, overridable for tests and proxies
	zyteEndpoint string

	//===============
	// Fetch
	//===============
	// Maximum time of a single attempt
	timeout time.Duration
	// Default User-Agent of direct requests
	userAgent string
	// Present a Chrome TLS fingerprint on direct HTTPS requests
	browserFingerprint bool
	// Verify TLS certificates of direct requests
	verifyTLS bool
	// Redirects followed before giving up
	maxRedirects int
	// Largest response body accepted, before and after decoding
	maxBodyBytes int64

	//===============
	// Retry
	//===============
	// Total attempts per fetch, first one included
	maxAttempt int
	// Seed of the backoff jitter. Zero seeds from the clock
	randomSeed int64
	// Unit of the exponential backoff curve
	backoffMultiplier time.Duration
	// Backoff floor of direct fetches
	backoffDirectMin time.Duration
	// Backoff floor of rendering fetches
	backoffRenderingMin time.Duration
	// Cap of every backoff wait
	backoffMax time.Duration

	//===============
	// Politeness
	//===============
	// Maximum number of fetches in flight for one batch
	concurrency int
	// Outgoing request rate across all fetches. Zero disables the cap
	requestsPerSecond float64
	// Requests allowed in a burst above the rate
	burst int

	//===============
	// Logging
	//===============
	// zerolog level name
	logLevel string
	// "console" or "json"
	logFormat string
	// Rotated log file. Empty logs to stderr only
	logFile string
}

// WithDefault creates a new Config with default values for all fields.
func WithDefault() *Config {
	defaultConfig := Config{
		zyteEndpoint:        DefaultZyteEndpoint,
		timeout:             60 * time.Second,
		userAgent:           build.UserAgent(),
		browserFingerprint:  false,
		verifyTLS:           true,
		maxRedirects:        10,
		maxBodyBytes:        128 << 20,
		maxAttempt:          3,
		randomSeed:          0,
		backoffMultiplier:   time.Second,
		backoffDirectMin:    3 * time.Second,
		backoffRenderingMin: 4 * time.Second,
		backoffMax:          10 * time.Second,
		concurrency:         10,
		requestsPerSecond:   0,
		burst:               1,
		logLevel:            "info",
		logFormat:           "console",
		logFile:             "",
	}
	return &defaultConfig
}

func (c *Config) WithZyteAPIKey(key string) *Config {
	c.zyteAPIKey = key
	return c
}

func (c *Config) WithZyteEndpoint(endpoint string) *Config {
	c.zyteEndpoint = endpoint
	return c
}

func (c *Config) WithTimeout(timeout time.Duration) *Config {
	c.timeout = timeout
	return c
}

func (c *Config) WithUserAgent(agent string) *Config {
	c.userAgent = agent
	return c
}

func (c *Config) WithBrowserFingerprint(enabled bool) *Config {
	c.browserFingerprint = enabled
	return c
}

func (c *Config) WithVerifyTLS(verify bool) *Config {
	c.verifyTLS = verify
	return c
}

func (c *Config) WithMaxRedirects(n int) *Config {
	c.maxRedirects = n
	return c
}

func (c *Config) WithMaxBodyBytes(n int64) *Config {
	c.maxBodyBytes = n
	return c
}

func (c *Config) WithMaxAttempt(attempts int) *Config {
	c.maxAttempt = attempts
	return c
}

func (c *Config) WithRandomSeed(seed int64) *Config {
	c.randomSeed = seed
	return c
}

func (c *Config) WithBackoffMultiplier(multiplier time.Duration) *Config {
	c.backoffMultiplier = multiplier
	return c
}

func (c *Config) WithBackoffDirectMin(duration time.Duration) *Config {
	c.backoffDirectMin = duration
	return c
}

func (c *Config) WithBackoffRenderingMin(duration time.Duration) *Config {
	c.backoffRenderingMin = duration
	return c
}

func (c *Config) WithBackoffMax(duration time.Duration) *Config {
	c.backoffMax = duration
	return c
}

func (c *Config) WithConcurrency(concurrency int) *Config {
	c.concurrency = concurrency
	return c
}

func (c *Config) WithRateLimit(requestsPerSecond float64, burst int) *Config {
	c.requestsPerSecond = requestsPerSecond
	c.burst = burst
	return c
}

func (c *Config) WithLogLevel(level string) *Config {
	c.logLevel = level
	return c
}

func (c *Config) WithLogFormat(format string) *Config {
	c.logFormat = format
	return c
}

func (c *Config) WithLogFile(path string) *Config {
	c.logFile = path
	return c
}

// Build validates the configuration and returns a copy of it.
func (c *Config) Build() (Config, error) {
	if c.zyteEndpoint == "" {
		return Config{}, fmt.Errorf("%w: zyteEndpoint cannot be empty", ErrInvalidConfig)
	}
	if c.timeout <= 0 {
		return Config{}, fmt.Errorf("%w: timeout must be positive, got %s", ErrInvalidConfig, c.timeout)
	}
	if c.maxRedirects < 1 {
		return Config{}, fmt.Errorf("%w: maxRedirects must be at least 1, got %d", ErrInvalidConfig, c.maxRedirects)
	}
	if c.maxBodyBytes < 1 {
		return Config{}, fmt.Errorf("%w: maxBodyBytes must be positive, got %d", ErrInvalidConfig, c.maxBodyBytes)
	}
	if c.maxAttempt < 1 {
		return Config{}, fmt.Errorf("%w: maxAttempt must be at least 1, got %d", ErrInvalidConfig, c.maxAttempt)
	}
	if c.backoffDirectMin < 0 || c.backoffRenderingMin < 0 || c.backoffMultiplier < 0 {
		return Config{}, fmt.Errorf("%w: backoff durations cannot be negative", ErrInvalidConfig)
	}
	if c.backoffDirectMin > c.backoffMax || c.backoffRenderingMin > c.backoffMax {
		return Config{}, fmt.Errorf("%w: backoff floors cannot exceed backoffMax %s", ErrInvalidConfig, c.backoffMax)
	}
	if c.concurrency < 1 {
		return Config{}, fmt.Errorf("%w: concurrency must be at least 1, got %d", ErrInvalidConfig, c.concurrency)
	}
	if c.requestsPerSecond < 0 {
		return Config{}, fmt.Errorf("%w: requestsPerSecond cannot be negative", ErrInvalidConfig)
	}
	if c.burst < 1 {
		c.burst = 1
	}
	if _, err := zerolog.ParseLevel(c.logLevel); err != nil {
		return Config{}, fmt.Errorf("%w: logLevel %q: %v", ErrInvalidConfig, c.logLevel, err)
	}
	if c.logFormat != "console" && c.logFormat != "json" {
		return Config{}, fmt.Errorf("%w: logFormat must be console or json, got %q", ErrInvalidConfig, c.logFormat)
	}

	return *c, nil
}

func (c Config) ZyteAPIKey() string {
	return c.zyteAPIKey
}

func (c Config) ZyteEndpoint() string {
	return c.zyteEndpoint
}

func (c Config) Timeout() time.Duration {
	return c.timeout
}

func (c Config) UserAgent() string {
	return c.userAgent
}

func (c Config) BrowserFingerprint() bool {
	return c.browserFingerprint
}

func (c Config) VerifyTLS() bool {
	return c.verifyTLS
}

func (c Config) MaxRedirects() int {
	return c.maxRedirects
}

func (c Config) MaxBodyBytes() int64 {
	return c.maxBodyBytes
}

func (c Config) MaxAttempt() int {
	return c.maxAttempt
}

func (c Config) RandomSeed() int64 {
	return c.randomSeed
}

func (c Config) BackoffMultiplier() time.Duration {
	return c.backoffMultiplier
}

func (c Config) BackoffDirectMin() time.Duration {
	return c.backoffDirectMin
}

func (c Config) BackoffRenderingMin() time.Duration {
	return c.backoffRenderingMin
}

func (c Config) BackoffMax() time.Duration {
	return c.backoffMax
}

// DirectBackoff is the backoff curve of direct fetches.
func (c Config) DirectBackoff() timeutil.BackoffParam {
	return timeutil.NewBackoffParam(c.backoffMultiplier, c.backoffDirectMin, c.backoffMax)
}

// RenderingBackoff is the backoff curve of rendering fetches.
func (c Config) RenderingBackoff() timeutil.BackoffParam {
	return timeutil.NewBackoffParam(c.backoffMultiplier, c.backoffRenderingMin, c.backoffMax)
}

func (c Config) Concurrency() int {
	return c.concurrency
}

func (c Config) RequestsPerSecond() float64 {
	return c.requestsPerSecond
}

func (c Config) Burst() int {
	return c.burst
}

func (c Config) LogLevel() string {
	return c.logLevel
}

func (c Config) LogFormat() string {
	return c.logFormat
}

func (c Config) LogFile() string {
	return c.logFile
}
