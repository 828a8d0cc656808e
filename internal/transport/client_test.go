package transport_test

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/rohmanhakim/render-fetch/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Do_MergesParamsAndHeaders(t *testing.T) {
	var got *http.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := transport.NewClient(transport.WithUserAgent("render-fetch-test"))
	defer client.Close()

	resp, err := client.Do(context.Background(), transport.Call{
		URL:     server.URL + "/path?a=1",
		Params:  url.Values{"b": {"2"}},
		Header:  http.Header{"X-Trace": {"abc"}},
		Cookies: map[string]string{"session": "s1"},
		Auth:    &transport.BasicAuth{Username: "key"},
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, "ok", resp.Text())
	assert.Equal(t, http.MethodGet, resp.Method())

	require.NotNil(t, got)
	assert.Equal(t, "1", got.URL.Query().Get("a"))
	assert.Equal(t, "2", got.URL.Query().Get("b"))
	assert.Equal(t, "abc", got.Header.Get("X-Trace"))
	assert.Equal(t, "render-fetch-test", got.Header.Get("User-Agent"))

	cookie, err := got.Cookie("session")
	require.NoError(t, err)
	assert.Equal(t, "s1", cookie.Value)

	user, pass, ok := got.BasicAuth()
	require.True(t, ok)
	assert.Equal(t, "key", user)
	assert.Equal(t, "", pass)
}

func TestClient_Do_CallHeaderOverridesDefaults(t *testing.T) {
	var userAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.Header.Get("User-Agent")
	}))
	defer server.Close()

	client := transport.NewClient()
	defer client.Close()

	_, err := client.Do(context.Background(), transport.Call{
		URL:    server.URL,
		Header: http.Header{"User-Agent": {"custom"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "custom", userAgent)
}

func TestClient_Do_JSONBody(t *testing.T) {
	var contentType string
	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&payload)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"echo":true}`))
	}))
	defer server.Close()

	client := transport.NewClient()
	defer client.Close()

	resp, err := client.Do(context.Background(), transport.Call{
		Method: "post",
		URL:    server.URL,
		JSON:   map[string]any{"url": "https://example.com", "browserHtml": true},
	})
	require.NoError(t, err)

	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, "https://example.com", payload["url"])
	assert.Equal(t, true, payload["browserHtml"])
	assert.Equal(t, http.MethodPost, resp.Method())

	var decoded struct {
		Echo bool `json:"echo"`
	}
	require.NoError(t, resp.DecodeJSON(&decoded))
	assert.True(t, decoded.Echo)
}

func TestClient_Do_FormBody(t *testing.T) {
	var form url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		form = r.PostForm
	}))
	defer server.Close()

	client := transport.NewClient()
	defer client.Close()

	_, err := client.Do(context.Background(), transport.Call{
		Method: http.MethodPost,
		URL:    server.URL,
		Form:   url.Values{"q": {"go"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "go", form.Get("q"))
}

func TestClient_Do_Redirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/end", http.StatusFound)
	})
	mux.HandleFunc("/end", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("landed"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := transport.NewClient()
	defer client.Close()

	t.Run("follow", func(t *testing.T) {
		resp, err := client.Do(context.Background(), transport.Call{
			URL:             server.URL + "/start",
			FollowRedirects: true,
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode())
		assert.Equal(t, "landed", resp.Text())
		assert.Equal(t, "/end", resp.URL().Path)
	})

	t.Run("no follow", func(t *testing.T) {
		resp, err := client.Do(context.Background(), transport.Call{
			URL: server.URL + "/start",
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusFound, resp.StatusCode())
		assert.Equal(t, "/start", resp.URL().Path)
	})
}

func TestClient_Do_DecodesContentEncoding(t *testing.T) {
	const page = "<html><body>compressed</body></html>"

	var gz bytes.Buffer
	gw := gzip.NewWriter(&gz)
	_, _ = gw.Write([]byte(page))
	require.NoError(t, gw.Close())

	var br bytes.Buffer
	bw := brotli.NewWriter(&br)
	_, _ = bw.Write([]byte(page))
	require.NoError(t, bw.Close())

	tests := []struct {
		name     string
		encoding string
		body     []byte
	}{
		{name: "gzip", encoding: "gzip", body: gz.Bytes()},
		{name: "brotli", encoding: "br", body: br.Bytes()},
		{name: "identity", encoding: "", body: []byte(page)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.encoding != "" {
					w.Header().Set("Content-Encoding", tt.encoding)
				}
				_, _ = w.Write(tt.body)
			}))
			defer server.Close()

			client := transport.NewClient()
			defer client.Close()

			resp, err := client.Do(context.Background(), transport.Call{URL: server.URL})
			require.NoError(t, err)
			assert.Equal(t, page, resp.Text())
			assert.Empty(t, resp.Header().Get("Content-Encoding"))
		})
	}
}

func TestClient_Do_BodyLimit(t *testing.T) {
	const limit = 1024

	var gz bytes.Buffer
	gw := gzip.NewWriter(&gz)
	_, _ = gw.Write(bytes.Repeat([]byte("a"), 4*limit))
	require.NoError(t, gw.Close())
	require.Less(t, gz.Len(), limit)

	tests := []struct {
		name     string
		encoding string
		body     []byte
		wantErr  bool
	}{
		{name: "at limit", body: bytes.Repeat([]byte("a"), limit)},
		{name: "raw over limit", body: bytes.Repeat([]byte("a"), limit+1), wantErr: true},
		{name: "decoded over limit", encoding: "gzip", body: gz.Bytes(), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.encoding != "" {
					w.Header().Set("Content-Encoding", tt.encoding)
				}
				_, _ = w.Write(tt.body)
			}))
			defer server.Close()

			client := transport.NewClient(transport.WithMaxBodyBytes(limit))
			defer client.Close()

			resp, err := client.Do(context.Background(), transport.Call{URL: server.URL})
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, transport.ErrBodyTooLarge)
				assert.Nil(t, resp)
				return
			}
			require.NoError(t, err)
			assert.Len(t, resp.Body(), limit)
		})
	}
}

func TestClient_Do_DefaultBodyLimitFitsLargePages(t *testing.T) {
	page := bytes.Repeat([]byte("b"), 11<<20)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(page)
	}))
	defer server.Close()

	client := transport.NewClient()
	defer client.Close()

	resp, err := client.Do(context.Background(), transport.Call{URL: server.URL})
	require.NoError(t, err)
	assert.Len(t, resp.Body(), len(page))
}

func TestClient_Do_InvalidCall(t *testing.T) {
	client := transport.NewClient()
	defer client.Close()

	tests := []struct {
		name string
		call transport.Call
	}{
		{name: "unparseable url", call: transport.Call{URL: "http://[::1"}},
		{name: "unsupported scheme", call: transport.Call{URL: "ftp://example.com"}},
		{name: "unencodable json", call: transport.Call{URL: "http://example.com", JSON: map[string]any{"f": func() {}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.Do(context.Background(), tt.call)
			require.Error(t, err)
			assert.ErrorIs(t, err, transport.ErrInvalidCall)
		})
	}
}

func TestClient_Do_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := transport.NewClient()
	defer client.Close()

	_, err := client.Do(context.Background(), transport.Call{
		URL:     server.URL,
		Timeout: 50 * time.Millisecond,
	})
	require.Error(t, err)
	assert.True(t, transport.IsTimeout(err))
	assert.False(t, errors.Is(err, transport.ErrInvalidCall))
}

func TestClient_Do_RateLimitHonorsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	client := transport.NewClient(transport.WithRateLimit(0.001, 1))
	defer client.Close()

	_, err := client.Do(context.Background(), transport.Call{URL: server.URL})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = client.Do(ctx, transport.Call{URL: server.URL})
	require.Error(t, err)
}

func TestResponse_RaiseForStatus(t *testing.T) {
	target, _ := url.Parse("https://example.com/page")

	tests := []struct {
		status  int
		wantErr bool
	}{
		{status: http.StatusOK},
		{status: http.StatusFound},
		{status: http.StatusForbidden, wantErr: true},
		{status: http.StatusInternalServerError, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			resp := transport.NewResponse(tt.status, http.MethodGet, target, nil, nil)
			err := resp.RaiseForStatus()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var statusErr *transport.StatusError
			require.ErrorAs(t, err, &statusErr)
			assert.Equal(t, tt.status, statusErr.StatusCode)
			assert.Equal(t, "https://example.com/page", statusErr.URL)
		})
	}
}

func TestNewResponse_CopiesURL(t *testing.T) {
	target, _ := url.Parse("https://example.com/a")
	resp := transport.NewResponse(http.StatusOK, http.MethodGet, target, nil, []byte("x"))

	target.Path = "/mutated"
	assert.Equal(t, "/a", resp.URL().Path)

	resp.URL().Path = "/again"
	assert.Equal(t, "/a", resp.URL().Path)
	assert.Equal(t, "200 OK", resp.Status())

	body, err := io.ReadAll(bytes.NewReader(resp.Body()))
	require.NoError(t, err)
	assert.Equal(t, "x", string(body))
}
