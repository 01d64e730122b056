package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pawsen/library-org/internal/db"
)

// NewTestDB opens a migrated in-memory sqlite database closed at test end.
func NewTestDB(t testing.TB) *db.DB {
	t.Helper()
	database, err := db.Connect(context.Background(), db.DriverSQLite, ":memory:", zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations(database))
	t.Cleanup(func() { _ = database.Close() })
	return database
}

// NewRequest creates a new HTTP request for testing
func NewRequest(method, path string, body interface{}) *http.Request {
	var bodyBytes []byte
	if body != nil {
		bodyBytes, _ = json.Marshal(body)
	}
	var r *http.Request
	if bodyBytes != nil {
		r = httptest.NewRequest(method, path, bytes.NewReader(bodyBytes))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	return r
}

// NewRequestWithAuth creates a new HTTP request with a bearer token
func NewRequestWithAuth(method, path string, body interface{}, token string) *http.Request {
	r := NewRequest(method, path, body)
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	return r
}

type RecordResponse struct {
	Code   int
	Header http.Header
	Body   map[string]interface{}
}

// RecordHTTPResponse decodes a recorded JSON response.
func RecordHTTPResponse(w *httptest.ResponseRecorder) RecordResponse {
	result := w.Result()
	defer result.Body.Close()

	bodyBytes, _ := io.ReadAll(result.Body)

	var bodyMap map[string]interface{}
	if len(bodyBytes) > 0 {
		_ = json.NewDecoder(bytes.NewReader(bodyBytes)).Decode(&bodyMap)
	}

	return RecordResponse{
		Code:   result.StatusCode,
		Header: result.Header,
		Body:   bodyMap,
	}
}

// Data returns the "data" object of a success envelope.
func (r RecordResponse) Data() map[string]interface{} {
	d, _ := r.Body["data"].(map[string]interface{})
	return d
}

// ErrorCode returns error.code of an error envelope.
func (r RecordResponse) ErrorCode() string {
	e, _ := r.Body["error"].(map[string]interface{})
	code, _ := e["code"].(string)
	return code
}
