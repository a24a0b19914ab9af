// Package testutil holds helpers shared by package tests.
package testutil

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"readtrac/internal/database"
	"readtrac/internal/platform/crypto"
)

// OpenSQLite returns a migrated SQLite database in a temp dir.
func OpenSQLite(t *testing.T) *database.DB {
	t.Helper()
	ctx := context.Background()
	db, err := database.Open(ctx, database.Config{
		Driver: string(database.BackendSQLite),
		Path:   filepath.Join(t.TempDir(), "readtrac.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(ctx, "up"))
	return db
}

// OpenPostgres connects to TEST_DB_DSN and migrates it, skipping the test
// when the variable is unset or the server is unreachable.
func OpenPostgres(t *testing.T) *database.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	ctx := context.Background()
	db, err := database.Open(ctx, database.Config{Driver: string(database.BackendPostgres), DSN: dsn})
	if err != nil {
		t.Skipf("postgres not reachable: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(ctx, "up"))
	_, err = db.Pool.Exec(ctx, "TRUNCATE reviews, books RESTART IDENTITY CASCADE")
	require.NoError(t, err)
	return db
}

// GenerateTestToken generates an owner token for testing.
func GenerateTestToken(t *testing.T, secret string) string {
	t.Helper()
	token, _, err := crypto.GenerateToken(secret, "owner", crypto.RoleOwner, time.Hour)
	require.NoError(t, err)
	return token
}

// NewRequest creates a new HTTP request with a JSON body when body is not nil.
func NewRequest(method, path string, body any) *http.Request {
	if body == nil {
		return httptest.NewRequest(method, path, nil)
	}
	b, _ := json.Marshal(body)
	r := httptest.NewRequest(method, path, bytes.NewReader(b))
	r.Header.Set("Content-Type", "application/json")
	return r
}

// NewRequestWithAuth creates a new HTTP request with a bearer token.
func NewRequestWithAuth(method, path string, body any, token string) *http.Request {
	r := NewRequest(method, path, body)
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	return r
}

// Envelope is the decoded response body.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Meta    map[string]any  `json:"meta"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// DecodeEnvelope decodes the recorder body, optionally unmarshalling data into dst.
func DecodeEnvelope(t *testing.T, w *httptest.ResponseRecorder, dst any) Envelope {
	t.Helper()
	res := w.Result()
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(body, &env), "body: %s", body)
	if dst != nil && len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, dst))
	}
	return env
}
