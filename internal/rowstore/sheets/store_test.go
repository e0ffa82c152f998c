package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	"github.com/mikequentel/sheetposter/internal/rowstore"
)

func TestParseRows(t *testing.T) {
	values := [][]any{
		{"caption", "image_url", "notes"},
		{"first", "a.jpg, b.jpg"},
		{},
		{"", " c.jpg ", "x"},
		{"only caption"},
	}
	rows, err := parseRows(values)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	require.Equal(t, 2, rows[0].Row)
	require.Equal(t, "first", rows[0].Caption)
	require.Equal(t, []string{"a.jpg", "b.jpg"}, rows[0].ImageURLs)

	require.Equal(t, 4, rows[1].Row)
	require.Equal(t, []string{"c.jpg"}, rows[1].ImageURLs)
	require.Empty(t, rows[1].Caption)

	require.Equal(t, 5, rows[2].Row)
	require.Empty(t, rows[2].ImageURLs)
}

func TestParseRows_NoData(t *testing.T) {
	_, err := parseRows(nil)
	require.ErrorIs(t, err, rowstore.ErrNoRows)

	_, err = parseRows([][]any{{"image_url", "caption"}})
	require.ErrorIs(t, err, rowstore.ErrNoRows)
}

func TestParseRows_MissingHeader(t *testing.T) {
	_, err := parseRows([][]any{{"url", "caption"}, {"a.jpg", "x"}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "image_url")
}

func TestOrderForHeader(t *testing.T) {
	require.Equal(t, []any{"imgs", "cap"}, orderForHeader(nil, "imgs", "cap"))
	require.Equal(t, []any{"cap", "imgs"}, orderForHeader([]any{"caption", "image_url"}, "imgs", "cap"))
	require.Equal(t, []any{"", "imgs", "", "cap"},
		orderForHeader([]any{"id", "image_url", "x", "caption"}, "imgs", "cap"))
}

func TestTitleQuery_EscapesQuotes(t *testing.T) {
	q := titleQuery(`Bob's \ Sheet`)
	require.Contains(t, q, `name = 'Bob\'s \\ Sheet'`)
	require.Contains(t, q, "mimeType = 'application/vnd.google-apps.spreadsheet'")
	require.Contains(t, q, "trashed = false")
}

func TestQuoteSheet(t *testing.T) {
	require.Equal(t, "'Sheet1'", quoteSheet("Sheet1"))
	require.Equal(t, "'Bob''s'", quoteSheet("Bob's"))
}

func TestClassify(t *testing.T) {
	var cfgErr *rowstore.ConfigError
	require.True(t, errors.As(classify("list", &oauth2.RetrieveError{}), &cfgErr))

	var storeErr *rowstore.StoreError
	err := classify("list", errors.New("boom"))
	require.True(t, errors.As(err, &storeErr))
	require.Equal(t, "list", storeErr.Op)
}

func TestListRows_MissingCredentials(t *testing.T) {
	s := New(Config{SpreadsheetID: "sid"})
	_, err := s.ListRows(context.Background())
	var cfgErr *rowstore.ConfigError
	require.True(t, errors.As(err, &cfgErr))
}

func TestListRows_MalformedCredentials(t *testing.T) {
	s := New(Config{CredentialsJSON: "{not json", SpreadsheetID: "sid"})
	err := s.AppendRow(context.Background(), "a.jpg", "x")
	var cfgErr *rowstore.ConfigError
	require.True(t, errors.As(err, &cfgErr))
}

// fakeSheets serves the three Sheets endpoints the store uses.
type fakeSheets struct {
	values   [][]any
	appended [][]any
	query    map[string]string
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, ":append"):
		var body struct {
			Values [][]any `json:"values"`
		}
		b, _ := io.ReadAll(r.Body)
		json.Unmarshal(b, &body)
		f.appended = append(f.appended, body.Values...)
		f.query = map[string]string{
			"valueInputOption": r.URL.Query().Get("valueInputOption"),
			"insertDataOption": r.URL.Query().Get("insertDataOption"),
		}
		w.Write([]byte(`{}`))
	case strings.HasSuffix(r.URL.Path, "!1:1"):
		var head [][]any
		if len(f.values) > 0 {
			head = f.values[:1]
		}
		json.NewEncoder(w).Encode(map[string]any{"values": head})
	case strings.Contains(r.URL.Path, "/values/"):
		json.NewEncoder(w).Encode(map[string]any{"values": f.values})
	case strings.HasPrefix(r.URL.Path, "/v4/spreadsheets/"):
		w.Write([]byte(`{"sheets":[{"properties":{"title":"Content"}},{"properties":{"title":"Archive"}}]}`))
	default:
		http.NotFound(w, r)
	}
}

func newFakeStore(t *testing.T, fake *fakeSheets) *Store {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	s := New(Config{SpreadsheetID: "sid"}, option.WithEndpoint(srv.URL+"/"))
	s.httpClient = func(context.Context) (*http.Client, error) { return srv.Client(), nil }
	return s
}

func TestListRows_FirstWorksheet(t *testing.T) {
	fake := &fakeSheets{values: [][]any{
		{"image_url", "caption"},
		{"https://img/1.jpg", "one"},
		{"https://img/2.jpg,https://img/3.jpg", "two"},
	}}
	rows, err := newFakeStore(t, fake).ListRows(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "two", rows[1].Caption)
	assert.Equal(t, []string{"https://img/2.jpg", "https://img/3.jpg"}, rows[1].ImageURLs)
}

func TestListRows_HeaderOnlyIsStoreError(t *testing.T) {
	fake := &fakeSheets{values: [][]any{{"image_url", "caption"}}}
	_, err := newFakeStore(t, fake).ListRows(context.Background())
	var storeErr *rowstore.StoreError
	require.True(t, errors.As(err, &storeErr))
	require.ErrorIs(t, err, rowstore.ErrNoRows)
}

func TestAppendRow_HeaderOrder(t *testing.T) {
	fake := &fakeSheets{values: [][]any{{"caption", "image_url"}}}
	err := newFakeStore(t, fake).AppendRow(context.Background(), "a.jpg, b.jpg", "hello")
	require.NoError(t, err)
	require.Equal(t, [][]any{{"hello", "a.jpg, b.jpg"}}, fake.appended)
	require.Equal(t, "RAW", fake.query["valueInputOption"])
	require.Equal(t, "INSERT_ROWS", fake.query["insertDataOption"])
}

func TestAppendRow_NoHeaderDefaultsOrder(t *testing.T) {
	fake := &fakeSheets{}
	err := newFakeStore(t, fake).AppendRow(context.Background(), "a.jpg", "hello")
	require.NoError(t, err)
	require.Equal(t, [][]any{{"a.jpg", "hello"}}, fake.appended)
}
