package googlebooks

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"readtrac/internal/platform/cache"
	"readtrac/internal/platform/sanitize"
)

const searchBody = `{
  "totalItems": 2,
  "items": [
    {
      "id": "zyTCAlFPjgYC",
      "volumeInfo": {
        "title": "The Google Story",
        "authors": ["David A. Vise", "Mark Malseed"],
        "publishedDate": "2005-11-15",
        "description": "<p>Here is the <b>story</b> behind one of the most remarkable companies.</p>",
        "pageCount": 207,
        "categories": ["Browsers (Computer programs)", "Business"],
        "averageRating": 3.5,
        "imageLinks": {"thumbnail": "http://books.google.com/books/content?id=zyTCAlFPjgYC"}
      }
    },
    {
      "id": "anon",
      "volumeInfo": {"title": "Anonymous Pamphlet"}
    }
  ]
}`

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := NewClient(Config{BaseURL: srv.URL, RPS: 1000, MaxRetries: 2}, opts...)
	c.backoff = func(int) time.Duration { return time.Millisecond }
	return c
}

func TestClient_Search(t *testing.T) {
	var gotQuery, gotKey, gotMax, gotUA string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/volumes", r.URL.Path)
		gotQuery = r.URL.Query().Get("q")
		gotKey = r.URL.Query().Get("key")
		gotMax = r.URL.Query().Get("maxResults")
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte(searchBody))
	}, WithSanitizer(sanitize.New()))
	c.cfg.APIKey = "secret"

	books, err := c.Search(context.Background(), "google", 100)
	require.NoError(t, err)
	assert.Equal(t, "google", gotQuery)
	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, "40", gotMax, "maxResults is capped")
	assert.Equal(t, "readtrac/1.0", gotUA)

	require.Len(t, books, 2)
	b := books[0]
	assert.Equal(t, "zyTCAlFPjgYC", b.ExternalID)
	assert.Equal(t, "The Google Story", b.Title)
	assert.Equal(t, "David A. Vise, Mark Malseed", b.Author)
	assert.Equal(t, "Browsers (Computer programs)", b.Genre)
	require.NotNil(t, b.Rating)
	assert.Equal(t, 3.5, *b.Rating)
	require.NotNil(t, b.PageCount)
	assert.Equal(t, 207, *b.PageCount)
	assert.Equal(t, "https://books.google.com/books/content?id=zyTCAlFPjgYC", b.CoverURL)
	assert.Equal(t, "Here is the story behind one of the most remarkable companies.", b.Description)
	assert.True(t, b.IsExternal)
	assert.Zero(t, b.ID)

	anon := books[1]
	assert.Equal(t, "Unknown Author", anon.Author)
	assert.Empty(t, anon.Genre)
	assert.Nil(t, anon.Rating)
	assert.Equal(t, "ext:anon", anon.Identity())
}

func TestClient_SearchBySubject(t *testing.T) {
	var gotQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		w.Write([]byte(`{"totalItems":0}`))
	})

	books, err := c.SearchBySubject(context.Background(), "Fantasy", 5)
	require.NoError(t, err)
	assert.Equal(t, "subject:Fantasy", gotQuery)
	assert.NotNil(t, books)
	assert.Empty(t, books)

	books, err = c.SearchBySubject(context.Background(), "  ", 5)
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestClient_Volume(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/volumes/abc":
			w.Write([]byte(`{"id":"abc","volumeInfo":{"title":"Found","authors":["X"],"categories":["Poetry"]}}`))
		default:
			http.NotFound(w, r)
		}
	})

	b, err := c.Volume(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "Found", b.Title)
	assert.Equal(t, "Poetry", b.Genre)

	_, err = c.Volume(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.Volume(context.Background(), "../etc")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClient_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(searchBody))
	})

	books, err := c.Search(context.Background(), "google", 10)
	require.NoError(t, err)
	assert.Len(t, books, 2)
	assert.EqualValues(t, 3, calls.Load())
}

func TestClient_NoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	})

	_, err := c.Search(context.Background(), "google", 10)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.Code)
	assert.EqualValues(t, 1, calls.Load())
}

func TestClient_BreakerOpens(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)
	c := NewClient(Config{
		BaseURL:    srv.URL,
		RPS:        1000,
		MaxRetries: 0,
		Breaker:    BreakerConfig{FailureThreshold: 2, Timeout: time.Minute},
	})

	for range 2 {
		_, err := c.Search(context.Background(), "x", 1)
		require.Error(t, err)
	}
	assert.Equal(t, "open", c.BreakerState())

	_, err := c.Search(context.Background(), "x", 1)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.EqualValues(t, 2, calls.Load(), "open breaker fails fast")
}

func TestClient_CachesResponses(t *testing.T) {
	store, err := cache.Open(cache.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(searchBody))
	}, WithCache(store))
	c.cfg.CacheTTL = time.Hour

	for range 3 {
		books, err := c.Search(context.Background(), "google", 10)
		require.NoError(t, err)
		assert.Len(t, books, 2)
	}
	assert.EqualValues(t, 1, calls.Load())

	_, err = c.Search(context.Background(), "other", 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, calls.Load())
}

func TestCacheKeyIgnoresAPIKey(t *testing.T) {
	c := NewClient(Config{APIKey: "k1"})
	params := map[string][]string{"q": {"dune"}}
	u := c.endpoint("/volumes", params)
	assert.Contains(t, u, "key=k1")
	assert.NotContains(t, cacheKey("/volumes", params), "k1")
}
