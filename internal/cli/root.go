package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rohmanhakim/render-fetch/internal/config"
	"github.com/spf13/cobra"
)

var (
	cfgFile     string
	direct      bool
	browser     bool
	cssSelector string
	xpathExpr   string
	jsonPath    string
	markdown    bool
	concurrency int
	timeout     time.Duration
	maxAttempt  int
	userAgent   string
	logLevel    string
	logFormat   string
	logFile     string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "render-fetch",
	Short: "Fetch web pages directly or through a rendering service.",
	Long: `render-fetch downloads pages either straight from the origin or through
the Zyte extraction API, which can render them in a headless browser first.

Every fetch is retried with exponential backoff. Failed pages are reported
without stopping the others, and results are printed in the order given.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// Run executes the command line in args, writing to stdout and stderr.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config-file", "", "config file path (e.g., /home/myuser/render-fetch.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: trace, debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: console or json")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write JSON logs to this rotated file")

	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(versionCmd)
}

// InitConfigWithError loads the config file, .env and environment, then
// applies the flags that were set.
func InitConfigWithError() (config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, fmt.Errorf("error initializing config: %w", err)
	}

	configBuilder := &cfg

	if concurrency > 0 {
		configBuilder = configBuilder.WithConcurrency(concurrency)
	}

	if timeout > 0 {
		configBuilder = configBuilder.WithTimeout(timeout)
	}

	if maxAttempt > 0 {
		configBuilder = configBuilder.WithMaxAttempt(maxAttempt)
	}

	if userAgent != "" {
		configBuilder = configBuilder.WithUserAgent(userAgent)
	}

	if logLevel != "" {
		configBuilder = configBuilder.WithLogLevel(logLevel)
	}

	if logFormat != "" {
		configBuilder = configBuilder.WithLogFormat(logFormat)
	}

	if logFile != "" {
		configBuilder = configBuilder.WithLogFile(logFile)
	}

	return configBuilder.Build()
}

func ResetFlags() {
	cfgFile = ""
	direct = false
	browser = false
	cssSelector = ""
	xpathExpr = ""
	jsonPath = ""
	markdown = false
	concurrency = 0
	timeout = 0
	maxAttempt = 0
	userAgent = ""
	logLevel = ""
	logFormat = ""
	logFile = ""
}

// Test helper functions to set flag values from tests
func SetConfigFileForTest(path string) {
	cfgFile = path
}

func SetConcurrencyForTest(conc int) {
	concurrency = conc
}

func SetTimeoutForTest(t time.Duration) {
	timeout = t
}

func SetMaxAttemptForTest(attempts int) {
	maxAttempt = attempts
}

func SetUserAgentForTest(agent string) {
	userAgent = agent
}

func SetLogLevelForTest(level string) {
	logLevel = level
}
