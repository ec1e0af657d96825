package downloader

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gazo/challenge"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIClientFetchJSON(t *testing.T) {
	var gotReferer string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReferer = r.Header.Get("Referer")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[{"image":"https://example.com/a.jpg","width":640,"height":480}],"next":"i.js?s=100"}`))
	}))
	defer srv.Close()

	c := NewAPIClient(testClient(t, ClientOptions{}), 5*time.Second)

	var out struct {
		Results []struct {
			Image  string `json:"image"`
			Width  int    `json:"width"`
			Height int    `json:"height"`
		} `json:"results"`
		Next string `json:"next"`
	}
	err := c.FetchJSON(context.Background(), srv.URL+"/i.js?q=cats", map[string]string{"Referer": "https://duckduckgo.com/"}, &out)
	require.NoError(t, err)
	require.Len(t, out.Results, 1)
	assert.Equal(t, "https://example.com/a.jpg", out.Results[0].Image)
	assert.Equal(t, 640, out.Results[0].Width)
	assert.Equal(t, "i.js?s=100", out.Next)
	assert.Equal(t, "https://duckduckgo.com/", gotReferer)
}

func TestAPIClientRepeatedCallsDoNotLeakCallbacks(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(`{"n":` + r.URL.Query().Get("n") + `}`))
	}))
	defer srv.Close()

	c := NewAPIClient(nil, 5*time.Second)
	for _, n := range []string{"1", "2", "3"} {
		body, err := c.FetchRaw(context.Background(), srv.URL+"/?n="+n, nil)
		require.NoError(t, err)
		assert.Equal(t, `{"n":`+n+`}`, string(body))
	}
	assert.Equal(t, 3, hits)
}

func TestAPIClientStatusErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/limited":
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewAPIClient(nil, 5*time.Second)

	_, err := c.FetchRaw(context.Background(), srv.URL+"/limited", nil)
	chErr, ok := challenge.IsChallenge(err)
	require.True(t, ok)
	assert.Equal(t, challenge.KindRateLimit, chErr.Kind)

	_, err = c.FetchRaw(context.Background(), srv.URL+"/missing", nil)
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}

func TestAPIClientCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewAPIClient(nil, time.Second).FetchRaw(ctx, "http://127.0.0.1:1/", nil)
	assert.ErrorIs(t, err, context.Canceled)
}
