package cmd_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	cmd "github.com/rohmanhakim/render-fetch/internal/cli"
	"github.com/rohmanhakim/render-fetch/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setup isolates the loader from the host and writes a config with
// millisecond backoff, returning its path.
func setup(t *testing.T) string {
	t.Helper()
	cmd.ResetFlags()
	t.Cleanup(cmd.ResetFlags)

	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	t.Setenv("ZYTE_API_KEY", "")
	t.Setenv("RENDER_FETCH_ZYTE_API_KEY", "")

	path := filepath.Join(dir, "test.yaml")
	content := `
backoff_multiplier: 1ms
backoff_direct_min: 1ms
backoff_rendering_min: 1ms
backoff_max: 2ms
log_level: warn
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func newOrigin(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/fail":
			w.WriteHeader(http.StatusBadGateway)
		case "/data.json":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"name": "render-fetch", "tags": ["a", "b"]}`))
		default:
			_, _ = w.Write([]byte(`<html><body><h1>Title</h1><ul><li>one</li><li>two</li></ul></body></html>`))
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestInitConfigWithError_Defaults(t *testing.T) {
	setup(t)

	cfg, err := cmd.InitConfigWithError()
	require.NoError(t, err)

	defaultCfg, err := config.WithDefault().Build()
	require.NoError(t, err)
	assert.Equal(t, defaultCfg.Concurrency(), cfg.Concurrency())
	assert.Equal(t, defaultCfg.Timeout(), cfg.Timeout())
	assert.Equal(t, defaultCfg.MaxAttempt(), cfg.MaxAttempt())
}

func TestInitConfigWithError_FlagsOverrideFile(t *testing.T) {
	path := setup(t)
	cmd.SetConfigFileForTest(path)
	cmd.SetConcurrencyForTest(4)
	cmd.SetTimeoutForTest(7 * time.Second)
	cmd.SetMaxAttemptForTest(5)
	cmd.SetUserAgentForTest("tester/1.0")
	cmd.SetLogLevelForTest("debug")

	cfg, err := cmd.InitConfigWithError()
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Concurrency())
	assert.Equal(t, 7*time.Second, cfg.Timeout())
	assert.Equal(t, 5, cfg.MaxAttempt())
	assert.Equal(t, "tester/1.0", cfg.UserAgent())
	assert.Equal(t, "debug", cfg.LogLevel())
	assert.Equal(t, 2*time.Millisecond, cfg.BackoffMax())
}

func TestInitConfigWithError_MissingFile(t *testing.T) {
	setup(t)
	cmd.SetConfigFileForTest("/nonexistent/render-fetch.yaml")

	_, err := cmd.InitConfigWithError()
	assert.ErrorIs(t, err, config.ErrFileDoesNotExist)
}

func TestInitConfigWithError_InvalidFlag(t *testing.T) {
	setup(t)
	cmd.SetLogLevelForTest("shouting")

	_, err := cmd.InitConfigWithError()
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestGet_DirectText(t *testing.T) {
	path := setup(t)
	origin := newOrigin(t)
	var stdout, stderr bytes.Buffer

	err := cmd.Run(context.Background(), []string{"get", "--config-file", path, "--direct", origin.URL + "/page"}, &stdout, &stderr)

	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "<h1>Title</h1>")
}

func TestGet_Views(t *testing.T) {
	tests := []struct {
		name string
		path string
		args []string
		want string
	}{
		{name: "css", path: "/page", args: []string{"--css", "li"}, want: "one\ntwo\n"},
		{name: "xpath", path: "/page", args: []string{"--xpath", "//h1"}, want: "Title\n"},
		{name: "json path", path: "/data.json", args: []string{"--json-path", "tags.1"}, want: "b\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := setup(t)
			origin := newOrigin(t)
			var stdout, stderr bytes.Buffer

			args := append([]string{"get", "--config-file", path, "--direct"}, tt.args...)
			args = append(args, origin.URL+tt.path)
			err := cmd.Run(context.Background(), args, &stdout, &stderr)

			require.NoError(t, err)
			assert.Equal(t, tt.want, stdout.String())
		})
	}
}

func TestGet_Markdown(t *testing.T) {
	path := setup(t)
	origin := newOrigin(t)
	var stdout, stderr bytes.Buffer

	err := cmd.Run(context.Background(), []string{"get", "--config-file", path, "--direct", "--markdown", origin.URL + "/page"}, &stdout, &stderr)

	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "# Title")
}

func TestGet_PartialFailure(t *testing.T) {
	path := setup(t)
	origin := newOrigin(t)
	var stdout, stderr bytes.Buffer

	err := cmd.Run(context.Background(), []string{
		"get", "--config-file", path, "--direct", "--css", "h1",
		origin.URL + "/first", origin.URL + "/fail", origin.URL + "/third",
	}, &stdout, &stderr)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 3 fetches failed")

	out := stdout.String()
	first := strings.Index(out, "==> "+origin.URL+"/first <==")
	third := strings.Index(out, "==> "+origin.URL+"/third <==")
	assert.GreaterOrEqual(t, first, 0)
	assert.Greater(t, third, first)
	assert.NotContains(t, out, "/fail")
	assert.Contains(t, stderr.String(), origin.URL+"/fail: transport error")
}

func TestGet_BodyLimitFromConfig(t *testing.T) {
	path := setup(t)
	limited := filepath.Join(filepath.Dir(path), "limited.yaml")
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(limited, append(content, []byte("max_body_bytes: 16\n")...), 0o600))

	origin := newOrigin(t)
	var stdout, stderr bytes.Buffer

	err = cmd.Run(context.Background(), []string{"get", "--config-file", limited, "--direct", origin.URL + "/page"}, &stdout, &stderr)

	require.Error(t, err)
	assert.Empty(t, stdout.String())
	assert.Contains(t, stderr.String(), origin.URL+"/page: content error")
	assert.Contains(t, stderr.String(), "response body too large")
}

func TestGet_RenderingNeedsAPIKey(t *testing.T) {
	path := setup(t)
	var stdout, stderr bytes.Buffer

	err := cmd.Run(context.Background(), []string{"get", "--config-file", path, "https://example.com/"}, &stdout, &stderr)

	assert.ErrorIs(t, err, cmd.ErrMissingAPIKey)
}

func TestGet_RequiresURL(t *testing.T) {
	setup(t)
	var stdout, stderr bytes.Buffer

	err := cmd.Run(context.Background(), []string{"get"}, &stdout, &stderr)
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	setup(t)
	var stdout, stderr bytes.Buffer

	err := cmd.Run(context.Background(), []string{"version"}, &stdout, &stderr)

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout.String(), "render-fetch "))
}
