package server_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"readtrac/internal/app"
	"readtrac/internal/auth"
	"readtrac/internal/book"
	"readtrac/internal/config"
	"readtrac/internal/database"
	"readtrac/internal/platform/crypto"
	"readtrac/internal/platform/googlebooks"
	"readtrac/internal/recommend"
	"readtrac/internal/review"
	"readtrac/internal/server"
	"readtrac/internal/testutil"
)

const (
	testSecret   = "0123456789abcdef0123456789abcdef"
	testPassword = "correct horse battery"
)

type options struct {
	auth       bool
	catalogURL string
}

func newTestApp(t *testing.T, opts options) http.Handler {
	t.Helper()
	cfg := &config.Config{
		Server: config.ServerConfig{Addr: ":0", MaxBodyBytes: 1 << 20},
		Database: database.Config{
			Driver: "sqlite",
			Path:   filepath.Join(t.TempDir(), "readtrac.db"),
		},
	}
	if opts.auth {
		hash, err := crypto.HashPassword(testPassword)
		require.NoError(t, err)
		cfg.Auth = auth.Config{OwnerPasswordHash: hash, JWTSecret: testSecret}
	}
	if opts.catalogURL != "" {
		cfg.Catalog.Enabled = true
		cfg.Catalog.GoogleBooks = googlebooks.Config{BaseURL: opts.catalogURL, RPS: 1000}
	}

	ctx := context.Background()
	a, err := app.New(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	require.NoError(t, a.Migrate(ctx, "up"))
	return a.Handler()
}

func do(t *testing.T, h http.Handler, r *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func createBook(t *testing.T, h http.Handler, token string, body map[string]any) book.BookView {
	t.Helper()
	w := do(t, h, testutil.NewRequestWithAuth(http.MethodPost, "/books", body, token))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var b book.BookView
	testutil.DecodeEnvelope(t, w, &b)
	return b
}

func TestRouter_Probes(t *testing.T) {
	h := newTestApp(t, options{})

	assert.Equal(t, http.StatusOK, do(t, h, httptest.NewRequest(http.MethodGet, "/healthz", nil)).Code)
	assert.Equal(t, http.StatusOK, do(t, h, httptest.NewRequest(http.MethodGet, "/readyz", nil)).Code)

	w := do(t, h, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body, _ := io.ReadAll(w.Body)
	assert.Contains(t, string(body), `readtrac_http_requests_total{method="GET",route="/healthz",status="200"} 1`)
}

func TestRouter_UnknownRoute(t *testing.T) {
	h := newTestApp(t, options{})

	w := do(t, h, httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
	env := testutil.DecodeEnvelope(t, w, nil)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)

	w = do(t, h, httptest.NewRequest(http.MethodPatch, "/healthz", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestRouter_BookLifecycle(t *testing.T) {
	h := newTestApp(t, options{})

	b := createBook(t, h, "", map[string]any{
		"title":  "Dune",
		"author": "Frank Herbert",
		"genre":  "Science Fiction",
		"notes":  "<b>re-read</b>",
	})
	assert.Equal(t, book.StatusWishlist, b.Status)
	assert.Equal(t, "re-read", b.Notes)
	id := b.ID

	path := func(suffix string) string { return "/books/" + itoa(id) + suffix }

	w := do(t, h, testutil.NewRequest(http.MethodPatch, path("/progress"), map[string]any{"progress": 1.7}))
	require.Equal(t, http.StatusOK, w.Code)
	testutil.DecodeEnvelope(t, w, &b)
	assert.Equal(t, 1.0, b.Progress)
	assert.Equal(t, book.StatusFinished, b.Status)

	w = do(t, h, testutil.NewRequest(http.MethodPatch, path("/rating"), map[string]any{"rating": 4.5}))
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, testutil.NewRequest(http.MethodPost, path("/reviews"), map[string]any{"text": "Spice!", "is_public": true}))
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(t, h, httptest.NewRequest(http.MethodGet, "/reviews?public=true", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var reviews []review.Review
	testutil.DecodeEnvelope(t, w, &reviews)
	require.Len(t, reviews, 1)
	assert.Equal(t, id, reviews[0].BookID)

	w = do(t, h, httptest.NewRequest(http.MethodGet, "/books?status=FINISHED&q=dune", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var list []book.BookView
	env := testutil.DecodeEnvelope(t, w, &list)
	assert.EqualValues(t, 1, env.Meta["total"])

	w = do(t, h, httptest.NewRequest(http.MethodDelete, path(""), nil))
	require.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, h, httptest.NewRequest(http.MethodGet, path(""), nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = do(t, h, httptest.NewRequest(http.MethodGet, "/reviews", nil))
	testutil.DecodeEnvelope(t, w, &reviews)
	assert.Empty(t, reviews, "reviews cascade with the book")
}

func TestRouter_OwnerAuth(t *testing.T) {
	h := newTestApp(t, options{auth: true})
	body := map[string]any{"title": "Emma", "author": "Jane Austen"}

	w := do(t, h, testutil.NewRequest(http.MethodPost, "/books", body))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, h, testutil.NewRequest(http.MethodPost, "/auth/login", map[string]any{"password": "wrong password"}))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, h, testutil.NewRequest(http.MethodPost, "/auth/login", map[string]any{"password": testPassword}))
	require.Equal(t, http.StatusOK, w.Code)
	var tok auth.Token
	testutil.DecodeEnvelope(t, w, &tok)
	require.NotEmpty(t, tok.AccessToken)

	b := createBook(t, h, tok.AccessToken, body)

	// Reads stay public.
	w = do(t, h, httptest.NewRequest(http.MethodGet, "/books/"+itoa(b.ID), nil))
	assert.Equal(t, http.StatusOK, w.Code)
	w = do(t, h, httptest.NewRequest(http.MethodDelete, "/books/"+itoa(b.ID), nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_LoginDisabled(t *testing.T) {
	h := newTestApp(t, options{})
	w := do(t, h, testutil.NewRequest(http.MethodPost, "/auth/login", map[string]any{"password": testPassword}))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_RecommendationsFallBackToLibrary(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(upstream.Close)
	h := newTestApp(t, options{catalogURL: upstream.URL})

	createBook(t, h, "", map[string]any{"title": "Emma", "author": "Jane Austen", "genre": "Romance", "rating": 5})
	createBook(t, h, "", map[string]any{"title": "Persuasion", "author": "Jane Austen", "genre": "Romance"})

	w := do(t, h, httptest.NewRequest(http.MethodGet, "/recommendations?limit=3", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var picks []recommend.Pick
	env := testutil.DecodeEnvelope(t, w, &picks)
	assert.Equal(t, recommend.SourceLibrary, env.Meta["source"])
	assert.Empty(t, picks, "every library book is already read")

	w = do(t, h, httptest.NewRequest(http.MethodGet, "/recommendations?limit=0", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_CatalogSearchAndImport(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/volumes/v1":
			w.Write([]byte(`{"id":"v1","volumeInfo":{"title":"Dune","authors":["Frank Herbert"],"categories":["Fiction"],"averageRating":4.2}}`))
		case r.URL.Path == "/volumes" && strings.HasPrefix(r.URL.Query().Get("q"), "subject:"):
			w.Write([]byte(`{"items":[{"id":"v2","volumeInfo":{"title":"Hyperion","authors":["Dan Simmons"],"categories":["Fiction"]}}]}`))
		case r.URL.Path == "/volumes":
			w.Write([]byte(`{"items":[{"id":"v1","volumeInfo":{"title":"Dune","authors":["Frank Herbert"]}}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(upstream.Close)
	h := newTestApp(t, options{catalogURL: upstream.URL})

	w := do(t, h, httptest.NewRequest(http.MethodGet, "/catalog/search?q=dune", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var found []book.Book
	testutil.DecodeEnvelope(t, w, &found)
	require.Len(t, found, 1)
	assert.True(t, found[0].IsExternal)

	var imported book.Book
	for range 2 {
		w = do(t, h, testutil.NewRequest(http.MethodPost, "/catalog/import", map[string]any{"external_id": "v1"}))
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var got book.Book
		testutil.DecodeEnvelope(t, w, &got)
		if imported.ID != 0 {
			assert.Equal(t, imported.ID, got.ID, "import is idempotent")
		}
		imported = got
	}
	assert.Nil(t, imported.Rating, "catalog average is not the reader's rating")

	w = do(t, h, testutil.NewRequest(http.MethodPost, "/catalog/import", map[string]any{"external_id": "missing"}))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, httptest.NewRequest(http.MethodGet, "/recommendations", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var picks []recommend.Pick
	env := testutil.DecodeEnvelope(t, w, &picks)
	assert.Equal(t, recommend.SourceCatalog, env.Meta["source"])
	require.Len(t, picks, 1)
	assert.Equal(t, "v2", picks[0].ExternalID)
	assert.Equal(t, recommend.StageReadGenre, picks[0].Reason)
}

func TestSupervise_StopsOnCancel(t *testing.T) {
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}
	ticks := make(chan struct{}, 1)
	loop := server.Loop{Name: "ticker", Run: func(ctx context.Context) error {
		ticks <- struct{}{}
		<-ctx.Done()
		return ctx.Err()
	}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- server.Supervise(ctx, time.Second, server.NewHTTPService(srv, time.Second), loop)
	}()

	select {
	case <-ticks:
	case <-time.After(5 * time.Second):
		t.Fatal("loop never started")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("supervisor did not stop")
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
