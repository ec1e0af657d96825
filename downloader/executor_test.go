package downloader

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"gazo/challenge"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRenderer struct {
	calls int
	html  string
	err   error
}

func (f *fakeRenderer) render(ctx context.Context, url, userAgent, waitSelector string, scrolls int) (string, error) {
	f.calls++
	return f.html, f.err
}

func TestExecutorPrefersHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>static</html>"))
	}))
	defer srv.Close()

	renderer := &fakeRenderer{html: "<html>rendered</html>"}
	e := NewRequestExecutor(testClient(t, ClientOptions{}), true, 2)
	e.SetRenderer(renderer.render)

	html, err := e.FetchHTML(context.Background(), srv.URL, "")
	require.NoError(t, err)
	assert.Equal(t, "<html>static</html>", html)
	assert.Equal(t, 0, renderer.calls)
}

func TestExecutorFallsBackToBrowser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	renderer := &fakeRenderer{html: "<html>rendered</html>"}
	e := NewRequestExecutor(testClient(t, ClientOptions{MaxRetries: 1}), true, 0)
	e.SetRenderer(renderer.render)

	html, err := e.FetchHTML(context.Background(), srv.URL, "img")
	require.NoError(t, err)
	assert.Equal(t, "<html>rendered</html>", html)
	assert.Equal(t, 1, renderer.calls)
}

func TestExecutorDoesNotRenderBlockPages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	renderer := &fakeRenderer{html: "<html>rendered</html>"}
	e := NewRequestExecutor(testClient(t, ClientOptions{}), true, 0)
	e.SetRenderer(renderer.render)

	_, err := e.FetchHTML(context.Background(), srv.URL, "")
	_, ok := challenge.IsChallenge(err)
	assert.True(t, ok)
	assert.Equal(t, 0, renderer.calls)
}

func TestExecutorBrowserDisabled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	renderer := &fakeRenderer{}
	e := NewRequestExecutor(testClient(t, ClientOptions{MaxRetries: 1}), false, 0)
	e.SetRenderer(renderer.render)

	_, err := e.FetchHTML(context.Background(), srv.URL, "")
	var statusErr *StatusError
	assert.True(t, errors.As(err, &statusErr))
	assert.Equal(t, 0, renderer.calls)
	assert.False(t, e.BrowserEnabled())

	_, err = e.FetchRendered(context.Background(), srv.URL, "")
	assert.Error(t, err)
}

func TestExecutorRenderError(t *testing.T) {
	renderer := &fakeRenderer{err: errors.New("chrome not found")}
	e := NewRequestExecutor(testClient(t, ClientOptions{}), true, 0)
	e.SetRenderer(renderer.render)

	_, err := e.FetchRendered(context.Background(), "https://example.com", "")
	assert.ErrorContains(t, err, "chrome not found")
}
