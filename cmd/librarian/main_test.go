package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// setupWorkspace points the CLI at a fresh sqlite file and fake providers.
func setupWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	ol := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.RawQuery, "0306406152") {
			_, _ = w.Write([]byte(`{"ISBN:0306406152": {"key": "/books/OL1M", "title": "Found Book",
				"authors": [{"name": "Ann Author"}], "number_of_pages": 99}}`))
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(ol.Close)
	gb := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"totalItems": 0}`))
	}))
	t.Cleanup(gb.Close)

	cfgPath := filepath.Join(dir, "library.toml")
	cfg := fmt.Sprintf(`
[database]
driver = "sqlite"
dsn = %q

[providers]
timeout_seconds = 2
requests_per_second = 100
openlibrary_url = %q
googlebooks_url = %q
`, filepath.Join(dir, "books.sqlite"), ol.URL, gb.URL)
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))

	for _, key := range []string{"LIBRARY_DB_DRIVER", "LIBRARY_DB_DSN", "LIBRARY_CONFIG"} {
		t.Setenv(key, "")
	}
	return cfgPath
}

func TestISBNCommand(t *testing.T) {
	out, err := runCLI(t, "isbn", "0-306-40615-2", "978-0-306-40615-7")
	require.NoError(t, err)
	assert.Contains(t, out, "0-306-40615-2\tvalid\t0306406152")
	assert.Contains(t, out, "978-0-306-40615-7\tvalid\t9780306406157")

	out, err = runCLI(t, "isbn", "0306406153")
	assert.ErrorIs(t, err, errInvalidISBNs)
	assert.Contains(t, out, "0306406153\tinvalid")
}

func TestConfigInit(t *testing.T) {
	out, err := runCLI(t, "config", "init", "--stdout")
	require.NoError(t, err)
	assert.Contains(t, out, "[database]")

	path := filepath.Join(t.TempDir(), "library.toml")
	_, err = runCLI(t, "config", "init", "--path", path)
	require.NoError(t, err)
	_, err = runCLI(t, "config", "init", "--path", path)
	assert.ErrorContains(t, err, "already exists")
}

func TestHashPasswordCommand(t *testing.T) {
	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader("weak\n"))
	cmd.SetArgs([]string{"hash-password"})
	require.NoError(t, cmd.Execute())

	assert.True(t, strings.HasPrefix(out.String(), "$2a$"))
	assert.Contains(t, errOut.String(), "warning")
}

func TestCatalogCommands(t *testing.T) {
	cfgPath := setupWorkspace(t)

	out, err := runCLI(t, "-c", cfgPath, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "Schema up to date (sqlite)")

	out, err = runCLI(t, "-c", cfgPath, "locations", "add", "A1", "Living", "room")
	require.NoError(t, err)
	assert.Contains(t, out, "Created location 1 (A1)")

	out, err = runCLI(t, "-c", cfgPath, "lookup", "0-306-40615-2")
	require.NoError(t, err)
	assert.Contains(t, out, "Found Book")

	_, err = runCLI(t, "-c", cfgPath, "lookup", "9780306406157")
	assert.Error(t, err, "no provider has this ISBN")

	out, err = runCLI(t, "-c", cfgPath, "import", "--location", "1", "0306406152", "9780306406157")
	require.NoError(t, err)
	assert.Contains(t, out, "0306406152\tadded as book 1 (Found Book)")
	assert.Contains(t, out, "9780306406157\tskipped:")

	out, err = runCLI(t, "-c", cfgPath, "import", "--location", "1", "0306406152")
	require.NoError(t, err)
	assert.Contains(t, out, "already catalogued as book 1")

	out, err = runCLI(t, "-c", cfgPath, "books", "list", "--search", "found")
	require.NoError(t, err)
	assert.Contains(t, out, "Found Book\tAnn Author\t0306406152")
	assert.Contains(t, out, "A1, Living room")

	out, err = runCLI(t, "-c", cfgPath, "books", "show", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Pages\t99")

	_, err = runCLI(t, "-c", cfgPath, "books", "delete", "1")
	require.NoError(t, err)

	out, err = runCLI(t, "-c", cfgPath, "logs")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "\tDELETE\t")
	deleteID := strings.SplitN(lines[1], "\t", 2)[0]

	out, err = runCLI(t, "-c", cfgPath, "logs", "restore", deleteID)
	require.NoError(t, err)
	assert.Contains(t, out, `Restored "Found Book" as book`)

	_, err = runCLI(t, "-c", cfgPath, "books", "show", "abc")
	assert.Error(t, err)
}

func TestServeRequiresAuth(t *testing.T) {
	cfgPath := setupWorkspace(t)
	for _, key := range []string{"LIBRARY_SECRET_KEY", "LIBRARY_USERNAME", "LIBRARY_PASSWORD", "LIBRARY_PASSWORD_HASH"} {
		t.Setenv(key, "")
	}
	_, err := runCLI(t, "-c", cfgPath, "serve")
	assert.ErrorContains(t, err, "auth.secret_key")
}

func TestRenderTable(t *testing.T) {
	out := renderTable([]string{"ID", "Title"}, [][]string{{"1", "Dune"}, {"22"}}, []columnAlignment{alignRight})
	assert.Contains(t, out, "Dune")
	assert.Contains(t, out, "ID")
	assert.Equal(t, "", renderTable(nil, nil, nil))

	assert.Equal(t, "a\tb\n1\t2", renderTSV([]string{"a", "b"}, [][]string{{"1", "2"}}))
	assert.False(t, isTerminal(&bytes.Buffer{}))
}
