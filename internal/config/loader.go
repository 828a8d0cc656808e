package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

/*
Sources, lowest priority first:

 1. defaults (WithDefault)
 2. config file (JSON, YAML or TOML)
 3. .env file in the working directory
 4. environment: ZYTE_API_KEY and RENDER_FETCH_<KEY>

Every source is read once, here. Nothing else in the module reads the
environment.
*/

const (
	envPrefix  = "RENDER_FETCH"
	dotEnvFile = ".env"
)

// keys are flat so RENDER_FETCH_<UPPER_KEY> maps without a replacer
const (
	keyZyteAPIKey          = "zyte_api_key"
	keyZyteEndpoint        = "zyte_endpoint"
	keyTimeout             = "timeout"
	keyUserAgent           = "user_agent"
	keyBrowserFingerprint  = "browser_fingerprint"
	keyVerifyTLS           = "verify_tls"
	keyMaxRedirects        = "max_redirects"
	keyMaxBodyBytes        = "max_body_bytes"
	keyMaxAttempt          = "max_attempt"
	keyRandomSeed          = "random_seed"
	keyBackoffMultiplier   = "backoff_multiplier"
	keyBackoffDirectMin    = "backoff_direct_min"
	keyBackoffRenderingMin = "backoff_rendering_min"
	keyBackoffMax          = "backoff_max"
	keyConcurrency         = "concurrency"
	keyRequestsPerSecond   = "requests_per_second"
	keyBurst               = "burst"
	keyLogLevel            = "log_level"
	keyLogFormat           = "log_format"
	keyLogFile             = "log_file"
)

// Load reads the config file at path, the .env file and the environment.
// An empty path searches for render-fetch.{json,yaml,toml} in the working
// directory and in $HOME/.config/render-fetch; finding none is not an error.
func Load(path string) (Config, error) {
	return load(path, true)
}

// FromEnv is Load without any config file.
func FromEnv() (Config, error) {
	return load("", false)
}

func load(path string, searchFiles bool) (Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return Config{}, fmt.Errorf("%w: %s", ErrFileDoesNotExist, err.Error())
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("%w: %s", ErrConfigParsingFail, err.Error())
		}
	} else if searchFiles {
		v.SetConfigName("render-fetch")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "render-fetch"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("%w: %s", ErrConfigParsingFail, err.Error())
			}
		}
	}

	if err := mergeDotEnv(v, dotEnvFile); err != nil {
		return Config{}, err
	}

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	// the rendering service documents the unprefixed name
	if err := v.BindEnv(keyZyteAPIKey, "ZYTE_API_KEY", envPrefix+"_ZYTE_API_KEY"); err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrReadConfigFail, err.Error())
	}

	return fromViper(v)
}

// mergeDotEnv layers a dotenv file over the config file. Process
// environment variables still win, since viper checks them first.
func mergeDotEnv(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	dv := viper.New()
	dv.SetConfigFile(path)
	dv.SetConfigType("env")
	if err := dv.ReadInConfig(); err != nil {
		return fmt.Errorf("%w: %s: %s", ErrReadConfigFail, path, err.Error())
	}

	prefix := strings.ToLower(envPrefix) + "_"
	values := map[string]any{}
	for _, key := range dv.AllKeys() {
		name := strings.TrimPrefix(key, prefix)
		if name == key && key != keyZyteAPIKey {
			continue
		}
		values[name] = dv.Get(key)
	}
	if len(values) == 0 {
		return nil
	}
	if err := v.MergeConfigMap(values); err != nil {
		return fmt.Errorf("%w: %s: %s", ErrConfigParsingFail, path, err.Error())
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	d := WithDefault()
	v.SetDefault(keyZyteAPIKey, d.zyteAPIKey)
	v.SetDefault(keyZyteEndpoint, d.zyteEndpoint)
	v.SetDefault(keyTimeout, d.timeout)
	v.SetDefault(keyUserAgent, d.userAgent)
	v.SetDefault(keyBrowserFingerprint, d.browserFingerprint)
	v.SetDefault(keyVerifyTLS, d.verifyTLS)
	v.SetDefault(keyMaxRedirects, d.maxRedirects)
	v.SetDefault(keyMaxBodyBytes, d.maxBodyBytes)
	v.SetDefault(keyMaxAttempt, d.maxAttempt)
	v.SetDefault(keyRandomSeed, d.randomSeed)
	v.SetDefault(keyBackoffMultiplier, d.backoffMultiplier)
	v.SetDefault(keyBackoffDirectMin, d.backoffDirectMin)
	v.SetDefault(keyBackoffRenderingMin, d.backoffRenderingMin)
	v.SetDefault(keyBackoffMax, d.backoffMax)
	v.SetDefault(keyConcurrency, d.concurrency)
	v.SetDefault(keyRequestsPerSecond, d.requestsPerSecond)
	v.SetDefault(keyBurst, d.burst)
	v.SetDefault(keyLogLevel, d.logLevel)
	v.SetDefault(keyLogFormat, d.logFormat)
	v.SetDefault(keyLogFile, d.logFile)
}

func fromViper(v *viper.Viper) (Config, error) {
	return WithDefault().
		WithZyteAPIKey(v.GetString(keyZyteAPIKey)).
		WithZyteEndpoint(v.GetString(keyZyteEndpoint)).
		WithTimeout(v.GetDuration(keyTimeout)).
		WithUserAgent(v.GetString(keyUserAgent)).
		WithBrowserFingerprint(v.GetBool(keyBrowserFingerprint)).
		WithVerifyTLS(v.GetBool(keyVerifyTLS)).
		WithMaxRedirects(v.GetInt(keyMaxRedirects)).
		WithMaxBodyBytes(v.GetInt64(keyMaxBodyBytes)).
		WithMaxAttempt(v.GetInt(keyMaxAttempt)).
		WithRandomSeed(v.GetInt64(keyRandomSeed)).
		WithBackoffMultiplier(v.GetDuration(keyBackoffMultiplier)).
		WithBackoffDirectMin(v.GetDuration(keyBackoffDirectMin)).
		WithBackoffRenderingMin(v.GetDuration(keyBackoffRenderingMin)).
		WithBackoffMax(v.GetDuration(keyBackoffMax)).
		WithConcurrency(v.GetInt(keyConcurrency)).
		WithRateLimit(v.GetFloat64(keyRequestsPerSecond), v.GetInt(keyBurst)).
		WithLogLevel(v.GetString(keyLogLevel)).
		WithLogFormat(v.GetString(keyLogFormat)).
		WithLogFile(v.GetString(keyLogFile)).
		Build()
}
