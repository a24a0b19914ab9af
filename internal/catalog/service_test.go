package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"readtrac/internal/book"
	"readtrac/internal/platform/googlebooks"
)

type fixture struct {
	catalog *MockSearcher
	books   *MockImporter
	svc     *Service
}

func newFixture(t *testing.T) fixture {
	ctrl := gomock.NewController(t)
	f := fixture{
		catalog: NewMockSearcher(ctrl),
		books:   NewMockImporter(ctrl),
	}
	f.svc = NewService(f.catalog, f.books)
	return f
}

func TestService_Search(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults and caps the limit", func(t *testing.T) {
		f := newFixture(t)
		f.catalog.EXPECT().Search(gomock.Any(), "dune", DefaultLimit).Return([]book.Book{{Title: "Dune"}}, nil)
		f.catalog.EXPECT().Search(gomock.Any(), "dune", MaxLimit).Return([]book.Book{}, nil)

		got, err := f.svc.Search(ctx, " dune ", 0)
		require.NoError(t, err)
		assert.Len(t, got, 1)

		_, err = f.svc.Search(ctx, "dune", 500)
		require.NoError(t, err)
	})

	t.Run("empty query", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Search(ctx, "   ", 5)
		assert.ErrorIs(t, err, ErrEmptyQuery)
	})

	t.Run("upstream failure is unavailable", func(t *testing.T) {
		f := newFixture(t)
		f.catalog.EXPECT().Search(gomock.Any(), "dune", 5).Return(nil, googlebooks.ErrUnavailable)

		_, err := f.svc.Search(ctx, "dune", 5)
		assert.ErrorIs(t, err, ErrUnavailable)

		f.catalog.EXPECT().Search(gomock.Any(), "dune", 5).Return(nil, &googlebooks.StatusError{Code: 502})
		_, err = f.svc.Search(ctx, "dune", 5)
		assert.ErrorIs(t, err, ErrUnavailable)
	})

	t.Run("cancellation passes through", func(t *testing.T) {
		f := newFixture(t)
		f.catalog.EXPECT().Search(gomock.Any(), "dune", 5).Return(nil, context.Canceled)

		_, err := f.svc.Search(ctx, "dune", 5)
		assert.ErrorIs(t, err, context.Canceled)
		assert.NotErrorIs(t, err, ErrUnavailable)
	})
}

func TestService_Import(t *testing.T) {
	ctx := context.Background()
	volume := book.Book{ExternalID: "vol1", Title: "Dune", Author: "Frank Herbert", IsExternal: true}

	t.Run("imports volume", func(t *testing.T) {
		f := newFixture(t)
		f.catalog.EXPECT().Volume(gomock.Any(), "vol1").Return(volume, nil)
		stored := volume
		stored.ID = 7
		f.books.EXPECT().ImportFromCatalog(gomock.Any(), volume).Return(stored, nil)

		got, err := f.svc.Import(ctx, "vol1")
		require.NoError(t, err)
		assert.EqualValues(t, 7, got.ID)
	})

	t.Run("unknown volume", func(t *testing.T) {
		f := newFixture(t)
		f.catalog.EXPECT().Volume(gomock.Any(), "nope").Return(book.Book{}, googlebooks.ErrNotFound)

		_, err := f.svc.Import(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("store failure", func(t *testing.T) {
		f := newFixture(t)
		f.catalog.EXPECT().Volume(gomock.Any(), "vol1").Return(volume, nil)
		f.books.EXPECT().ImportFromCatalog(gomock.Any(), volume).Return(book.Book{}, errors.New("disk full"))

		_, err := f.svc.Import(ctx, "vol1")
		assert.EqualError(t, err, "disk full")
	})
}

func TestService_Disabled(t *testing.T) {
	svc := NewService(nil, nil)
	assert.False(t, svc.Enabled())

	_, err := svc.Search(context.Background(), "dune", 5)
	assert.ErrorIs(t, err, ErrDisabled)
	_, err = svc.Import(context.Background(), "vol1")
	assert.ErrorIs(t, err, ErrDisabled)
}
