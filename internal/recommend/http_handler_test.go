package recommend

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"readtrac/internal/book"
	"readtrac/internal/testutil"
)

func TestHTTPHandler_Recommend(t *testing.T) {
	t.Run("library source", func(t *testing.T) {
		history := new(mockHistory)
		history.On("ListAll", mock.Anything).Return([]book.Book{
			{ID: 1, Title: "Liked", Genre: "Horror", Rating: rated(5)},
			{ID: 2, Title: "Other", Genre: "Horror"},
		}, nil)
		h := NewHTTPHandler(NewService(history, nil, nil))

		w := httptest.NewRecorder()
		h.Recommend(w, httptest.NewRequest(http.MethodGet, "/recommendations?limit=3", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var picks []Pick
		env := testutil.DecodeEnvelope(t, w, &picks)
		assert.Equal(t, SourceLibrary, env.Meta["source"])
		assert.EqualValues(t, 3, env.Meta["limit"])
		assert.Empty(t, picks)
	})

	t.Run("invalid limit", func(t *testing.T) {
		h := NewHTTPHandler(NewService(new(mockHistory), nil, nil))
		for _, q := range []string{"limit=0", "limit=abc", "limit=51"} {
			w := httptest.NewRecorder()
			h.Recommend(w, httptest.NewRequest(http.MethodGet, "/recommendations?"+q, nil))
			assert.Equal(t, http.StatusBadRequest, w.Code, q)
		}
	})

	t.Run("history failure", func(t *testing.T) {
		history := new(mockHistory)
		history.On("ListAll", mock.Anything).Return(nil, errors.New("db"))
		h := NewHTTPHandler(NewService(history, nil, nil))

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/recommendations", nil).WithContext(context.Background())
		h.Recommend(w, r)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
