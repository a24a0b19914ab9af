package review

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"readtrac/internal/testutil"
)

func TestHTTPHandler(t *testing.T) {
	f := newFixture(t)
	h := NewHTTPHandler(f.svc)

	t.Run("list public", func(t *testing.T) {
		f.repo.EXPECT().List(gomock.Any(), Filter{PublicOnly: true}).Return([]Review{{ID: 1, IsPublic: true}}, nil)

		w := httptest.NewRecorder()
		h.List(w, httptest.NewRequest(http.MethodGet, "/reviews?public=true", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var got []Review
		env := testutil.DecodeEnvelope(t, w, &got)
		assert.EqualValues(t, 1, env.Meta["total"])
		assert.Len(t, got, 1)
	})

	t.Run("create for missing book", func(t *testing.T) {
		f.books.EXPECT().Exists(gomock.Any(), int64(9)).Return(false, nil)

		w := httptest.NewRecorder()
		r := testutil.NewRequest(http.MethodPost, "/books/9/reviews", map[string]any{"text": "hi"})
		r.SetPathValue("id", "9")
		h.Create(w, r)

		require.Equal(t, http.StatusNotFound, w.Code)
		env := testutil.DecodeEnvelope(t, w, nil)
		assert.Equal(t, "BOOK_NOT_FOUND", env.Error.Code)
	})

	t.Run("create without text", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := testutil.NewRequest(http.MethodPost, "/books/1/reviews", map[string]any{"is_public": true})
		r.SetPathValue("id", "1")
		h.Create(w, r)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("create", func(t *testing.T) {
		f.books.EXPECT().Exists(gomock.Any(), int64(1)).Return(true, nil)
		f.repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)

		w := httptest.NewRecorder()
		r := testutil.NewRequest(http.MethodPost, "/books/1/reviews", map[string]any{"text": "great"})
		r.SetPathValue("id", "1")
		h.Create(w, r)
		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("delete for book", func(t *testing.T) {
		f.repo.EXPECT().DeleteByBook(gomock.Any(), int64(1)).Return(2, nil)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodDelete, "/books/1/reviews", nil)
		r.SetPathValue("id", "1")
		h.DeleteForBook(w, r)

		require.Equal(t, http.StatusOK, w.Code)
		var got map[string]int
		testutil.DecodeEnvelope(t, w, &got)
		assert.Equal(t, 2, got["deleted"])
	})

	t.Run("get missing", func(t *testing.T) {
		f.repo.EXPECT().Get(gomock.Any(), int64(8)).Return(Review{}, ErrNotFound)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/reviews/8", nil)
		r.SetPathValue("id", "8")
		h.Get(w, r)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("delete", func(t *testing.T) {
		f.repo.EXPECT().Delete(gomock.Any(), int64(3)).Return(nil)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodDelete, "/reviews/3", nil)
		r.SetPathValue("id", "3")
		h.Delete(w, r)
		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}
