package sites

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"gazo/downloader"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const googlePage = `<html><body>
<script>AF_initDataCallback({data:[null,["https://images.example.com/photos/cat-one.jpg",1080,1920],["https://images.example.com/photos/cat-two.png",600,800]]});</script>
<img src="https://encrypted-tbn0.gstatic.com/images?q=tbn:abc">
<img data-src="/photos/cat-three.jpg">
</body></html>`

func TestGoogleEngineParsesPayload(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(googlePage))
	}))
	defer srv.Close()

	g := NewGoogleEngine(downloader.NewRequestExecutor(testClient(t), false, 0))
	g.baseURL = srv.URL

	results, err := g.Search(context.Background(), downloader.Query{Term: "cats", Count: 10, SafeSearch: true})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "https://images.example.com/photos/cat-one.jpg", results[0].URL)
	assert.Equal(t, 1920, results[0].Width)
	assert.Equal(t, 1080, results[0].Height)
	assert.Equal(t, "https://images.example.com/photos/cat-two.png", results[1].URL)
	assert.Equal(t, srv.URL+"/photos/cat-three.jpg", results[2].URL)

	assert.Contains(t, gotQuery, "tbm=isch")
	assert.Contains(t, gotQuery, "safe=active")
}

func TestGoogleEngineRendersWhenStaticPageIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>enable javascript</body></html>"))
	}))
	defer srv.Close()

	rendered := 0
	executor := downloader.NewRequestExecutor(testClient(t), true, 0)
	executor.SetRenderer(func(ctx context.Context, url, userAgent, waitSelector string, scrolls int) (string, error) {
		rendered++
		return googlePage, nil
	})

	g := NewGoogleEngine(executor)
	g.baseURL = srv.URL

	results, err := g.Search(context.Background(), downloader.Query{Term: "cats", Count: 1})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "https://images.example.com/photos/cat-one.jpg", results[0].URL)
	assert.Equal(t, 1, rendered)
}

func TestGoogleEngineBlockPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte("<html>Our systems have detected unusual traffic from your computer network.</html>"))
	}))
	defer srv.Close()

	g := NewGoogleEngine(downloader.NewRequestExecutor(testClient(t), false, 0))
	g.baseURL = srv.URL

	_, err := g.Search(context.Background(), downloader.Query{Term: "cats", Count: 5})
	require.Error(t, err)
	assert.Equal(t, ErrorTypeBlocked, ClassifyError(err))

	var typed *TypedError
	require.True(t, errors.As(err, &typed))
	assert.True(t, typed.NonRetryable())
}

func TestBingEngineReadsAnchorMetadata(t *testing.T) {
	page := `<html><body>
<a class="iusc" m='{"murl":"https://cdn.example.com/dog.jpg","turl":"https://tse1.mm.bing.net/th?id=OIP.1","t":"A dog","purl":"https://example.com/dogs"}'></a>
<a class="iusc" m='not json'></a>
<a class="iusc" m='{"murl":"https://cdn.example.com/puppy.webp","turl":"","t":" Puppy ","purl":""}'></a>
</body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/images/search", r.URL.Path)
		w.Write([]byte(page))
	}))
	defer srv.Close()

	b := NewBingEngine(downloader.NewRequestExecutor(testClient(t), false, 0))
	b.baseURL = srv.URL

	results, err := b.Search(context.Background(), downloader.Query{Term: "dogs", Count: 10})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "https://cdn.example.com/dog.jpg", results[0].URL)
	assert.Equal(t, "https://tse1.mm.bing.net/th?id=OIP.1", results[0].ThumbnailURL)
	assert.Equal(t, "A dog", results[0].Title)
	assert.Equal(t, "https://example.com/dogs", results[0].SourcePage)
	assert.Equal(t, "Puppy", results[1].Title)
}

func TestBingEngineFallsBackToGenericScrape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><img src="https://cdn.example.com/bird.jpg"></body></html>`))
	}))
	defer srv.Close()

	b := NewBingEngine(downloader.NewRequestExecutor(testClient(t), false, 0))
	b.baseURL = srv.URL

	results, err := b.Search(context.Background(), downloader.Query{Term: "birds", Count: 10})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "https://cdn.example.com/bird.jpg", results[0].URL)
}

func TestDuckDuckGoEnginePages(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			w.Write([]byte(`<html><script>vqd="4-123456789";</script></html>`))
		case "/i.js":
			assert.Equal(t, "4-123456789", r.URL.Query().Get("vqd"))
			assert.Equal(t, srv.URL+"/", r.Header.Get("Referer"))
			if r.URL.Query().Get("s") == "" {
				w.Write([]byte(`{"results":[
					{"image":"https://cdn.example.com/1.jpg","thumbnail":"https://tse.example.com/1","title":"one","url":"https://example.com/1","width":640,"height":480},
					{"image":"https://cdn.example.com/2.jpg","title":"two","width":800,"height":600}
				],"next":"i.js?q=owls&o=json&s=2"}`))
				return
			}
			w.Write([]byte(`{"results":[
				{"image":"https://cdn.example.com/3.jpg","title":"three"},
				{"image":"https://cdn.example.com/4.jpg","title":"four"}
			],"next":"i.js?q=owls&o=json&s=4"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := testClient(t)
	d := NewDuckDuckGoEngine(client, downloader.NewAPIClient(client, 0))
	d.baseURL = srv.URL

	results, err := d.Search(context.Background(), downloader.Query{Term: "owls", Count: 3})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "https://cdn.example.com/1.jpg", results[0].URL)
	assert.Equal(t, "https://tse.example.com/1", results[0].ThumbnailURL)
	assert.Equal(t, 640, results[0].Width)
	assert.Equal(t, "https://cdn.example.com/3.jpg", results[2].URL)
}

func TestDuckDuckGoEngineMissingToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>no token here</html>`))
	}))
	defer srv.Close()

	client := testClient(t)
	d := NewDuckDuckGoEngine(client, downloader.NewAPIClient(client, 0))
	d.baseURL = srv.URL

	_, err := d.Search(context.Background(), downloader.Query{Term: "owls", Count: 3})
	assert.ErrorContains(t, err, "token not found")
}

func TestSearxngEngine(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "json", q.Get("format"))
		assert.Equal(t, "images", q.Get("categories"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[
			{"img_src":"https://cdn.example.com/a.jpg","thumbnail_src":"https://cdn.example.com/a_t.jpg","title":" A ","url":"https://example.com/a","resolution":"1920x1080"},
			{"img_src":"","title":"no image"},
			{"img_src":"//cdn.example.com/b.png","resolution":"800 x 600"}
		]}`))
	}))
	defer srv.Close()

	s := NewSearxngEngine(testClient(t), srv.URL, "secret")
	results, err := s.Search(context.Background(), downloader.Query{Term: "lakes", Count: 10})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "https://cdn.example.com/a.jpg", results[0].URL)
	assert.Equal(t, "A", results[0].Title)
	assert.Equal(t, 1920, results[0].Width)
	assert.Equal(t, 1080, results[0].Height)
	assert.Equal(t, "http://cdn.example.com/b.png", results[1].URL)
	assert.Equal(t, 800, results[1].Width)
}

func TestSearxngEngineRequiresEndpoint(t *testing.T) {
	_, err := NewSearxngEngine(testClient(t), "  ", "").Search(context.Background(), downloader.Query{Term: "x", Count: 1})
	assert.Equal(t, ErrorTypeConfig, ClassifyError(err))

	_, err = NewSearxngEngine(testClient(t), "not a url", "").Search(context.Background(), downloader.Query{Term: "x", Count: 1})
	assert.Equal(t, ErrorTypeConfig, ClassifyError(err))
}

func TestSearxngEngineUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewSearxngEngine(testClient(t), srv.URL, "").Search(context.Background(), downloader.Query{Term: "x", Count: 1})
	assert.Equal(t, ErrorTypeUpstream5xx, ClassifyError(err))
}

func TestBraveEngine(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "brave-key", r.Header.Get("X-Subscription-Token"))
		assert.Equal(t, "2", r.URL.Query().Get("count"))
		w.Write([]byte(`{"results":[
			{"title":"Fox","url":"https://example.com/fox","thumbnail":{"src":"https://imgs.search.brave.com/fox"},"properties":{"url":"https://cdn.example.com/fox.jpg","width":1200,"height":900}},
			{"title":"broken","properties":{"url":"javascript:alert(1)"}}
		]}`))
	}))
	defer srv.Close()

	b := NewBraveEngine(testClient(t), "brave-key")
	b.endpoint = srv.URL

	results, err := b.Search(context.Background(), downloader.Query{Term: "fox", Count: 2})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "https://cdn.example.com/fox.jpg", results[0].URL)
	assert.Equal(t, "https://imgs.search.brave.com/fox", results[0].ThumbnailURL)
	assert.Equal(t, "https://example.com/fox", results[0].SourcePage)
	assert.Equal(t, 1200, results[0].Width)

	_, err = NewBraveEngine(testClient(t), "").Search(context.Background(), downloader.Query{Term: "fox", Count: 2})
	assert.Equal(t, ErrorTypeConfig, ClassifyError(err))
}

func TestSerpAPIEngine(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "google_images", q.Get("engine"))
		switch q.Get("api_key") {
		case "good":
			w.Write([]byte(`{"images_results":[
				{"original":"https://cdn.example.com/sun.jpg","thumbnail":"https://serpapi.com/thumb/1","title":"Sun","link":"https://example.com/sun","original_width":2000,"original_height":1000}
			]}`))
		default:
			w.Write([]byte(`{"error":"Invalid API key. Your API key should be here: https://serpapi.com/manage-api-key"}`))
		}
	}))
	defer srv.Close()

	s := NewSerpAPIEngine(testClient(t), "good")
	s.endpoint = srv.URL
	results, err := s.Search(context.Background(), downloader.Query{Term: "sun", Count: 5})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "https://cdn.example.com/sun.jpg", results[0].URL)
	assert.Equal(t, 2000, results[0].Width)
	assert.Equal(t, 1000, results[0].Height)

	bad := NewSerpAPIEngine(testClient(t), "bad")
	bad.endpoint = srv.URL
	_, err = bad.Search(context.Background(), downloader.Query{Term: "sun", Count: 5})
	assert.Equal(t, ErrorTypeConfig, ClassifyError(err))
	assert.ErrorContains(t, err, "Invalid API key")
}

func TestSearchImagesStopsOnConfigError(t *testing.T) {
	_, err := downloader.SearchImages(context.Background(), NewBraveEngine(testClient(t), ""), downloader.Query{Term: "x", Count: 1})
	require.Error(t, err)
	assert.Equal(t, ErrorTypeConfig, ClassifyError(err))
}
