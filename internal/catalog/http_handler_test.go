package catalog

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pawsen/library-org/internal/db"
	"github.com/pawsen/library-org/internal/metadata"
	"github.com/pawsen/library-org/internal/testutil"
)

func newTestMux(f *fixture) *http.ServeMux {
	h := NewHTTPHandler(f.svc, zap.NewNop())
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/books", h.ListBooks)
	mux.HandleFunc("POST /v1/books", h.AddBook)
	mux.HandleFunc("GET /v1/books/{id}", h.GetBook)
	mux.HandleFunc("PUT /v1/books/{id}", h.EditBook)
	mux.HandleFunc("DELETE /v1/books/{id}", h.DeleteBook)
	mux.HandleFunc("POST /v1/books/{id}/refresh", h.RefreshBook)
	mux.HandleFunc("GET /v1/lookup/{isbn}", h.Lookup)
	mux.HandleFunc("GET /v1/logs", h.ListLogs)
	mux.HandleFunc("POST /v1/logs/{id}/restore", h.RestoreBook)
	mux.HandleFunc("GET /v1/locations", h.ListLocations)
	mux.HandleFunc("POST /v1/locations", h.CreateLocation)
	mux.HandleFunc("GET /v1/locations/{id}", h.GetLocation)
	mux.HandleFunc("PUT /v1/locations/{id}", h.UpdateLocation)
	mux.HandleFunc("DELETE /v1/locations/{id}", h.DeleteLocation)
	return mux
}

func serve(mux http.Handler, r *http.Request) testutil.RecordResponse {
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)
	return testutil.RecordHTTPResponse(w)
}

func TestHTTPHandler_BookLifecycle(t *testing.T) {
	f := newFixture(t)
	mux := newTestMux(f)
	loc := f.location(t, "A1", "Shelf A")

	resp := serve(mux, testutil.NewRequest(http.MethodPost, "/v1/books", dune(loc.ID)))
	require.Equal(t, http.StatusCreated, resp.Code)
	id := uint(resp.Data()["id"].(float64))
	assert.Equal(t, "A1, Shelf A", resp.Data()["location_label"])

	t.Run("duplicate returns existing id", func(t *testing.T) {
		resp := serve(mux, testutil.NewRequest(http.MethodPost, "/v1/books", dune(loc.ID)))
		assert.Equal(t, http.StatusConflict, resp.Code)
		assert.Equal(t, "DUPLICATE_ISBN", resp.ErrorCode())
		meta := resp.Body["meta"].(map[string]interface{})
		assert.EqualValues(t, id, meta["existing_id"])
	})

	t.Run("get", func(t *testing.T) {
		resp := serve(mux, testutil.NewRequest(http.MethodGet, fmt.Sprintf("/v1/books/%d", id), nil))
		assert.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, "Dune", resp.Data()["title"])
	})

	t.Run("edit", func(t *testing.T) {
		in := dune(loc.ID)
		in.PublishDate = "1966"
		resp := serve(mux, testutil.NewRequest(http.MethodPut, fmt.Sprintf("/v1/books/%d", id), in))
		assert.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, "1966", resp.Data()["publish_date"])
	})

	t.Run("list", func(t *testing.T) {
		resp := serve(mux, testutil.NewRequest(http.MethodGet, "/v1/books?s=dune&per_page=10", nil))
		require.Equal(t, http.StatusOK, resp.Code)
		items := resp.Body["data"].([]interface{})
		assert.Len(t, items, 1)
		meta := resp.Body["meta"].(map[string]interface{})
		assert.EqualValues(t, 1, meta["total"])
		assert.EqualValues(t, 10, meta["per_page"])
	})

	var deleteLogID uint
	t.Run("delete then logs", func(t *testing.T) {
		resp := serve(mux, testutil.NewRequest(http.MethodDelete, fmt.Sprintf("/v1/books/%d", id), nil))
		assert.Equal(t, http.StatusNoContent, resp.Code)

		resp = serve(mux, testutil.NewRequest(http.MethodGet, "/v1/logs", nil))
		require.Equal(t, http.StatusOK, resp.Code)
		entries := resp.Body["data"].([]interface{})
		require.Len(t, entries, 3)
		latest := entries[0].(map[string]interface{})
		assert.Equal(t, db.ActionDelete, latest["action"])
		deleteLogID = uint(latest["id"].(float64))
	})

	t.Run("restore", func(t *testing.T) {
		resp := serve(mux, testutil.NewRequest(http.MethodPost, fmt.Sprintf("/v1/logs/%d/restore", deleteLogID), nil))
		require.Equal(t, http.StatusCreated, resp.Code)
		assert.Equal(t, "Dune", resp.Data()["title"])
		assert.NotEqualValues(t, id, resp.Data()["id"])
	})
}

func TestHTTPHandler_Errors(t *testing.T) {
	f := newFixture(t)
	mux := newTestMux(f)

	tests := []struct {
		name   string
		req    *http.Request
		status int
		code   string
	}{
		{"bad id", testutil.NewRequest(http.MethodGet, "/v1/books/abc", nil), http.StatusBadRequest, "BAD_REQUEST"},
		{"missing book", testutil.NewRequest(http.MethodGet, "/v1/books/42", nil), http.StatusNotFound, "NOT_FOUND"},
		{"missing location", testutil.NewRequest(http.MethodGet, "/v1/locations/42", nil), http.StatusNotFound, "NOT_FOUND"},
		{"invalid lookup isbn", testutil.NewRequest(http.MethodGet, "/v1/lookup/123", nil), http.StatusBadRequest, "INVALID_ISBN"},
		{"validation", testutil.NewRequest(http.MethodPost, "/v1/books", map[string]string{"title": "x"}), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown field", testutil.NewRequest(http.MethodPost, "/v1/books", map[string]string{"title": "x", "colour": "red"}), http.StatusBadRequest, "BAD_REQUEST"},
		{"missing location id", testutil.NewRequest(http.MethodPost, "/v1/books", map[string]string{"title": "x", "authors": "y"}), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"bad sort", testutil.NewRequest(http.MethodGet, "/v1/books?sort_by=password", nil), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"restore missing log", testutil.NewRequest(http.MethodPost, "/v1/logs/99/restore", nil), http.StatusBadRequest, "NOT_RESTORABLE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := serve(mux, tt.req)
			assert.Equal(t, tt.status, resp.Code)
			assert.Equal(t, tt.code, resp.ErrorCode())
		})
	}
}

func TestHTTPHandler_RestoreCorruptSnapshot(t *testing.T) {
	f := newFixture(t)
	mux := newTestMux(f)

	entry := &db.TransactionLog{Action: db.ActionDelete, BookTitle: "a - b", Details: "not json"}
	require.NoError(t, f.store.Logs.Append(t.Context(), entry))

	resp := serve(mux, testutil.NewRequest(http.MethodPost, fmt.Sprintf("/v1/logs/%d/restore", entry.ID), nil))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Equal(t, "SNAPSHOT_DECODE_ERROR", resp.ErrorCode())
}

func TestHTTPHandler_Lookup(t *testing.T) {
	f := newFixture(t)
	mux := newTestMux(f)

	f.fetcher.EXPECT().Fetch(gomock.Any(), "9780306406157").Return(metadata.Record{
		Title:   "Found Title",
		Authors: []string{"Someone"},
		Source:  "openlibrary",
	})
	resp := serve(mux, testutil.NewRequest(http.MethodGet, "/v1/lookup/978-0-306-40615-7", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "Found Title", resp.Data()["title"])

	f.fetcher.EXPECT().Fetch(gomock.Any(), "0306406152").Return(metadata.Record{})
	resp = serve(mux, testutil.NewRequest(http.MethodGet, "/v1/lookup/0306406152", nil))
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "METADATA_NOT_FOUND", resp.ErrorCode())
}

func TestHTTPHandler_Locations(t *testing.T) {
	f := newFixture(t)
	mux := newTestMux(f)

	resp := serve(mux, testutil.NewRequest(http.MethodPost, "/v1/locations", LocationInput{LabelName: "A1", FullName: "Shelf"}))
	require.Equal(t, http.StatusCreated, resp.Code)
	id := uint(resp.Data()["id"].(float64))

	resp = serve(mux, testutil.NewRequest(http.MethodPost, "/v1/locations", LocationInput{LabelName: "A1"}))
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, "DUPLICATE_LABEL", resp.ErrorCode())

	resp = serve(mux, testutil.NewRequest(http.MethodPost, "/v1/locations", LocationInput{LabelName: "much-too-long-label-name"}))
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = serve(mux, testutil.NewRequest(http.MethodPut, fmt.Sprintf("/v1/locations/%d", id), LocationInput{LabelName: "A1", FullName: "Hall"}))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "Hall", resp.Data()["full_name"])

	resp = serve(mux, testutil.NewRequest(http.MethodGet, "/v1/locations", nil))
	assert.Len(t, resp.Body["data"].([]interface{}), 1)

	resp = serve(mux, testutil.NewRequest(http.MethodDelete, fmt.Sprintf("/v1/locations/%d", id), nil))
	assert.Equal(t, http.StatusNoContent, resp.Code)
}
