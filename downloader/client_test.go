package downloader

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"gazo/challenge"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, opts ClientOptions) *HTTPClient {
	t.Helper()
	if opts.RetryBackoff == 0 {
		opts.RetryBackoff = time.Millisecond
	}
	if opts.Timeout == 0 {
		opts.Timeout = 2 * time.Second
	}
	c, err := NewHTTPClient(opts)
	require.NoError(t, err)
	return c
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestFetchHTMLSendsBrowserHeaders(t *testing.T) {
	var gotUA, gotLang string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotLang = r.Header.Get("Accept-Language")
		w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer srv.Close()

	c := testClient(t, ClientOptions{UserAgent: "gazo-test/1.0"})
	html, err := c.FetchHTML(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Contains(t, html, "ok")
	assert.Equal(t, "gazo-test/1.0", gotUA)
	assert.Equal(t, "en-US,en;q=0.9", gotLang)
}

func TestFetchHTMLRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("<html>third time lucky</html>"))
	}))
	defer srv.Close()

	c := testClient(t, ClientOptions{MaxRetries: 3})
	html, err := c.FetchHTML(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Contains(t, html, "third time lucky")
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestFetchHTMLGivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := testClient(t, ClientOptions{MaxRetries: 2})
	_, err := c.FetchHTML(context.Background(), srv.URL)
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestFetchHTMLDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := testClient(t, ClientOptions{MaxRetries: 3})
	_, err := c.FetchHTML(context.Background(), srv.URL)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetchHTMLReturnsChallengeWithoutRetry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte("slow down"))
	}))
	defer srv.Close()

	c := testClient(t, ClientOptions{MaxRetries: 3})
	_, err := c.FetchHTML(context.Background(), srv.URL)

	chErr, ok := challenge.IsChallenge(err)
	require.True(t, ok)
	assert.Equal(t, challenge.KindRateLimit, chErr.Kind)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetchHTMLDecompressesGzip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		gw := gzip.NewWriter(w)
		gw.Write([]byte("<html>compressed page</html>"))
		gw.Close()
	}))
	defer srv.Close()

	c := testClient(t, ClientOptions{})
	html, err := c.FetchHTML(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "<html>compressed page</html>", html)
}

func TestFetchJSON(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-Subscription-Token")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[{"url":"https://example.com/a.jpg"}]}`))
	}))
	defer srv.Close()

	var out struct {
		Results []struct {
			URL string `json:"url"`
		} `json:"results"`
	}

	c := testClient(t, ClientOptions{})
	err := c.FetchJSON(context.Background(), srv.URL, map[string]string{"X-Subscription-Token": "secret"}, &out)
	require.NoError(t, err)
	require.Len(t, out.Results, 1)
	assert.Equal(t, "https://example.com/a.jpg", out.Results[0].URL)
	assert.Equal(t, "secret", gotKey)
}

func TestFetchJSONBadBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	var out map[string]interface{}
	err := testClient(t, ClientOptions{}).FetchJSON(context.Background(), srv.URL, nil, &out)
	assert.ErrorContains(t, err, "failed to unmarshal JSON")
}

func TestFetchBytesBodyLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(bytes.Repeat([]byte("a"), 100))
	}))
	defer srv.Close()

	c := testClient(t, ClientOptions{MaxBodyBytes: 10})
	_, err := c.FetchBytes(context.Background(), srv.URL, nil)
	assert.ErrorIs(t, err, ErrBodyTooLarge)
}

func TestFetchImage(t *testing.T) {
	pngData := testPNG(t, 8, 8)

	mux := http.NewServeMux()
	mux.HandleFunc("/ok.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write(pngData)
	})
	mux.HandleFunc("/page.html", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><body>this is not an image at all</body></html>"))
	})
	mux.HandleFunc("/empty", func(w http.ResponseWriter, r *http.Request) {})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := testClient(t, ClientOptions{})

	data, err := c.FetchImage(context.Background(), srv.URL+"/ok.png")
	require.NoError(t, err)
	assert.Equal(t, pngData, data)

	_, err = c.FetchImage(context.Background(), srv.URL+"/page.html")
	assert.ErrorIs(t, err, ErrNotAnImage)

	_, err = c.FetchImage(context.Background(), srv.URL+"/empty")
	assert.ErrorIs(t, err, ErrNotAnImage)

	_, err = c.FetchImage(context.Background(), srv.URL+"/missing.png")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}

func TestFetchImageTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	c := testClient(t, ClientOptions{ImageTimeout: 50 * time.Millisecond})
	_, err := c.FetchImage(context.Background(), srv.URL)
	require.Error(t, err)
	assert.True(t, isRetryable(err))
}

func TestNewHTTPClientDefaults(t *testing.T) {
	c, err := NewHTTPClient(ClientOptions{})
	require.NoError(t, err)
	assert.Equal(t, DefaultUserAgent, c.UserAgent())
	assert.Equal(t, DefaultMaxRetries, c.maxRetries)
	assert.Equal(t, int64(DefaultMaxBodyBytes), c.maxBodyBytes)
	assert.Equal(t, ImageFetchTimeout, c.imageTimeout)
}
