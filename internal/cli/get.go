package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rohmanhakim/render-fetch/internal/envelope"
	"github.com/rohmanhakim/render-fetch/internal/logging"
	"github.com/rohmanhakim/render-fetch/internal/metadata"
	"github.com/rohmanhakim/render-fetch/internal/spider"
	"github.com/rohmanhakim/render-fetch/internal/transport"
	"github.com/spf13/cobra"
)

var ErrMissingAPIKey = errors.New("ZYTE_API_KEY is not set; export it or pass --direct")

var getCmd = &cobra.Command{
	Use:   "get URL...",
	Short: "Fetch one or more pages and print them",
	Long: `get fetches every URL concurrently and prints each result in the order
given. By default the body text is printed; --css, --xpath, --json-path and
--markdown print a view of it instead.

The command exits non-zero when any fetch failed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGet,
}

func init() {
	getCmd.Flags().BoolVar(&direct, "direct", false, "fetch from the origin instead of the rendering service")
	getCmd.Flags().BoolVar(&browser, "browser", false, "ask the rendering service for browser-rendered HTML")
	getCmd.Flags().StringVar(&cssSelector, "css", "", "print the text of elements matching this CSS selector")
	getCmd.Flags().StringVar(&xpathExpr, "xpath", "", "print the text of nodes matching this XPath expression")
	getCmd.Flags().StringVar(&jsonPath, "json-path", "", "print the value at this gjson path of a JSON body")
	getCmd.Flags().BoolVar(&markdown, "markdown", false, "print the page converted to Markdown")
	getCmd.Flags().IntVar(&concurrency, "concurrency", 0, "maximum number of fetches in flight")
	getCmd.Flags().DurationVar(&timeout, "timeout", 0, "timeout of a single attempt")
	getCmd.Flags().IntVar(&maxAttempt, "max-attempt", 0, "total attempts per fetch")
	getCmd.Flags().StringVar(&userAgent, "user-agent", "", "user agent of direct requests")
}

func runGet(cmd *cobra.Command, args []string) error {
	cfg, err := InitConfigWithError()
	if err != nil {
		return err
	}
	if !direct && cfg.ZyteAPIKey() == "" {
		return ErrMissingAPIKey
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.LogLevel()
	logCfg.Format = cfg.LogFormat()
	logCfg.File = cfg.LogFile()
	logCfg.Out = cmd.ErrOrStderr()
	logger, closer, err := logging.New(logCfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	client := transport.NewClient(
		transport.WithUserAgent(cfg.UserAgent()),
		transport.WithRateLimit(cfg.RequestsPerSecond(), cfg.Burst()),
		transport.WithBrowserFingerprint(cfg.BrowserFingerprint()),
		transport.WithMaxRedirects(cfg.MaxRedirects()),
		transport.WithMaxBodyBytes(cfg.MaxBodyBytes()),
	)
	defer client.Close()

	opts := []spider.Option{
		spider.WithLogger(logger),
		spider.WithMetadataSink(metadata.NewRecorder(logger, "cli")),
	}
	if direct {
		opts = append(opts, spider.WithDirect())
	}
	if browser {
		opts = append(opts, spider.WithBrowser())
	}

	s := spider.New(client, cfg, opts...)
	results := s.FetchAll(cmd.Context(), args)

	failed := 0
	for i, env := range results {
		if !env.IsSuccess() {
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s error: %v\n", args[i], env.Kind(), env.Err())
			continue
		}
		if len(results) > 1 {
			fmt.Fprintf(cmd.OutOrStdout(), "==> %s <==\n", args[i])
		}
		writeView(cmd.OutOrStdout(), env)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d fetches failed", failed, len(results))
	}
	return nil
}

// writeView prints the part of env selected by the flags.
func writeView(w io.Writer, env envelope.Envelope) {
	switch {
	case cssSelector != "":
		env.Select(cssSelector).Each(func(_ int, s *goquery.Selection) {
			fmt.Fprintln(w, strings.TrimSpace(s.Text()))
		})
	case xpathExpr != "":
		for _, text := range env.XPathText(xpathExpr) {
			fmt.Fprintln(w, strings.TrimSpace(text))
		}
	case jsonPath != "":
		fmt.Fprintln(w, env.Get(jsonPath).String())
	case markdown:
		fmt.Fprintln(w, env.Markdown())
	default:
		fmt.Fprintln(w, env.Text())
	}
}
