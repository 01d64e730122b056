package openlibrary

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dataResponse = `{
  "ISBN:0306406152": {
    "key": "/books/OL7353617M",
    "title": "Fantastic Mr. Fox",
    "subtitle": "A Story",
    "authors": [{"url": "https://openlibrary.org/authors/OL34184A", "name": "Roald Dahl"}],
    "publish_date": "October 1, 1988",
    "description": {"type": "/type/text", "value": "A fox outwits three farmers."},
    "subjects": [{"name": "Animals", "url": "x"}, {"name": "Foxes", "url": "y"}],
    "number_of_pages": 96,
    "cover": {"medium": "https://covers.openlibrary.org/b/id/6498519-M.jpg"}
  }
}`

func newTestClient(srv *httptest.Server, retries int) *Client {
	return NewClient(Options{
		BaseURL:    srv.URL,
		UserAgent:  "library-test",
		Timeout:    2 * time.Second,
		RPS:        1000,
		MaxRetries: retries,
	})
}

func TestGetBookByISBN(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/books", r.URL.Path)
		assert.Equal(t, "ISBN:0306406152", r.URL.Query().Get("bibkeys"))
		assert.Equal(t, "data", r.URL.Query().Get("jscmd"))
		assert.Equal(t, "library-test", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(dataResponse))
	}))
	defer srv.Close()

	details, err := newTestClient(srv, 0).GetBookByISBN(context.Background(), "0306406152")
	require.NoError(t, err)

	assert.Equal(t, "Fantastic Mr. Fox", details.Title)
	assert.Equal(t, "A Story", details.Subtitle)
	assert.Equal(t, "/books/OL7353617M", details.Key)
	assert.Equal(t, Text("A fox outwits three farmers."), details.Description)
	assert.Equal(t, 96, details.NumberOfPages)
	require.Len(t, details.Authors, 1)
	assert.Equal(t, "Roald Dahl", details.Authors[0].Name)
	assert.Len(t, details.Subjects, 2)
	assert.Equal(t, "https://covers.openlibrary.org/b/id/6498519-M.jpg", details.Cover.Medium)
}

func TestGetBookByISBN_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv, 0).GetBookByISBN(context.Background(), "0306406152")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetBookByISBN_ClientErrorIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newTestClient(srv, 2).GetBookByISBN(context.Background(), "0306406152")
	assert.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGetBookByISBN_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(dataResponse))
	}))
	defer srv.Close()

	details, err := newTestClient(srv, 1).GetBookByISBN(context.Background(), "0306406152")
	require.NoError(t, err)
	assert.Equal(t, "Fantastic Mr. Fox", details.Title)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestTextUnmarshal(t *testing.T) {
	var b BookDetails
	require.NoError(t, json.Unmarshal([]byte(`{"notes": "plain"}`), &b))
	assert.Equal(t, Text("plain"), b.Notes)
}
