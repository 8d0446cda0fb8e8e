package libsql

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captured struct {
	header http.Header
	path   string
	body   map[string]any
}

func newTestServer(t *testing.T, status int, response string) (*Client, *captured) {
	t.Helper()

	got := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.header = r.Header.Clone()
		got.path = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &got.body)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)

	c, err := New(srv.URL, "secret-token")
	require.NoError(t, err)
	return c, got
}

const okEmpty = `{"baton":null,"results":[{"type":"ok","response":{"type":"execute","result":{"cols":[],"rows":[],"affected_row_count":0,"last_insert_rowid":null}}},{"type":"ok","response":{"type":"close"}}]}`

func TestExecute_PayloadShape(t *testing.T) {
	c, got := newTestServer(t, http.StatusOK, okEmpty)

	_, err := c.Execute(context.Background(), "SELECT * FROM products WHERE id = ? AND name = ? AND price > ?", 7, "apple", 1.5)
	require.NoError(t, err)

	assert.Equal(t, "/v2/pipeline", got.path)
	assert.Equal(t, "Bearer secret-token", got.header.Get("Authorization"))
	assert.Equal(t, "application/json", got.header.Get("Content-Type"))

	want := map[string]any{
		"requests": []any{
			map[string]any{
				"type": "execute",
				"stmt": map[string]any{
					"sql": "SELECT * FROM products WHERE id = ? AND name = ? AND price > ?",
					"args": []any{
						map[string]any{"type": "integer", "value": "7"},
						map[string]any{"type": "text", "value": "apple"},
						map[string]any{"type": "float", "value": 1.5},
					},
				},
			},
			map[string]any{"type": "close"},
		},
	}
	if diff := cmp.Diff(want, got.body); diff != "" {
		t.Fatalf("pipeline body mismatch (-want +got):\n%s", diff)
	}
}

func TestExecute_NoArgsOmitsArgs(t *testing.T) {
	c, got := newTestServer(t, http.StatusOK, okEmpty)

	_, err := c.Execute(context.Background(), "SELECT 1")
	require.NoError(t, err)

	stmt := got.body["requests"].([]any)[0].(map[string]any)["stmt"].(map[string]any)
	_, hasArgs := stmt["args"]
	assert.False(t, hasArgs)
}

func TestExecute_ArgsKeepOrderAndTypes(t *testing.T) {
	c, got := newTestServer(t, http.StatusOK, okEmpty)

	ts := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
	_, err := c.Execute(context.Background(), "INSERT INTO t VALUES (?, ?, ?, ?, ?)", nil, true, []byte("hi"), ts, int64(-3))
	require.NoError(t, err)

	args := got.body["requests"].([]any)[0].(map[string]any)["stmt"].(map[string]any)["args"].([]any)
	require.Len(t, args, 5)
	assert.Equal(t, map[string]any{"type": "null"}, args[0])
	assert.Equal(t, map[string]any{"type": "integer", "value": "1"}, args[1])
	assert.Equal(t, map[string]any{"type": "blob", "base64": "aGk"}, args[2])
	assert.Equal(t, map[string]any{"type": "text", "value": "2024-03-01 10:30:00"}, args[3])
	assert.Equal(t, map[string]any{"type": "integer", "value": "-3"}, args[4])
}

func TestExecute_DecodesRows(t *testing.T) {
	body := `{"results":[{"type":"ok","response":{"type":"execute","result":{
		"cols":[{"name":"id","decltype":"INTEGER"},{"name":"name","decltype":"TEXT"},{"name":"price","decltype":"REAL"},{"name":"image_url","decltype":"TEXT"}],
		"rows":[[{"type":"integer","value":"1"},{"type":"text","value":"Apple"},{"type":"float","value":2.5},{"type":"null"}]],
		"affected_row_count":0,"last_insert_rowid":null}}},{"type":"ok","response":{"type":"close"}}]}`
	c, _ := newTestServer(t, http.StatusOK, body)

	res, err := c.Execute(context.Background(), "SELECT id, name, price, image_url FROM products")
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "INTEGER", res.Columns[0].Decltype)

	var (
		id    int64
		name  string
		price float64
		image *string
	)
	require.NoError(t, res.Rows[0].Scan(&id, &name, &price, &image))
	assert.Equal(t, int64(1), id)
	assert.Equal(t, "Apple", name)
	assert.Equal(t, 2.5, price)
	assert.Nil(t, image)

	v, ok := res.Rows[0].ByName("NAME")
	require.True(t, ok)
	assert.Equal(t, TypeText, v.Type)
	assert.True(t, res.Rows[0].Column(9).IsNull())
}

func TestExecute_EmptyRowsIsNonNil(t *testing.T) {
	body := `{"results":[{"type":"ok","response":{"type":"execute","result":{"cols":[{"name":"id","decltype":"INTEGER"}],"affected_row_count":0}}}]}`
	c, _ := newTestServer(t, http.StatusOK, body)

	res, err := c.Execute(context.Background(), "SELECT id FROM users WHERE email = ?", "nobody@example.com")
	require.NoError(t, err)
	require.NotNil(t, res.Rows)
	assert.Empty(t, res.Rows)
	_, ok := res.First()
	assert.False(t, ok)
}

func TestExecute_AffectedAndLastInsertID(t *testing.T) {
	body := `{"results":[{"type":"ok","response":{"type":"execute","result":{"cols":[],"rows":[],"affected_row_count":1,"last_insert_rowid":"42"}}}]}`
	c, _ := newTestServer(t, http.StatusOK, body)

	res, err := c.Execute(context.Background(), "DELETE FROM products WHERE id = ?", 42)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.AffectedRowCount)
	require.NotNil(t, res.LastInsertRowID)
	assert.Equal(t, int64(42), *res.LastInsertRowID)
}

func TestExecute_StatementError(t *testing.T) {
	body := `{"results":[{"type":"error","error":{"message":"SQLite error: UNIQUE constraint failed: users.email","code":"SQLITE_CONSTRAINT_UNIQUE"}},{"type":"ok","response":{"type":"close"}}]}`
	c, _ := newTestServer(t, http.StatusOK, body)

	_, err := c.Execute(context.Background(), "INSERT INTO users (email) VALUES (?)", "a@b.com")
	require.Error(t, err)

	var gwErr *Error
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, CodeConstraintUnique, gwErr.Code)
	assert.Contains(t, gwErr.Message, "UNIQUE constraint failed")
	assert.True(t, IsUniqueViolation(err))
}

func TestExecute_TopLevelError(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantMsg  string
		wantCode string
	}{
		{name: "string", body: `{"error":"Unauthorized: invalid token"}`, wantMsg: "Unauthorized: invalid token"},
		{name: "object", body: `{"error":{"message":"no such table: products","code":"SQLITE_ERROR"}}`, wantMsg: "no such table: products", wantCode: "SQLITE_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestServer(t, http.StatusOK, tt.body)

			_, err := c.Execute(context.Background(), "SELECT 1")
			var gwErr *Error
			require.True(t, errors.As(err, &gwErr))
			assert.Equal(t, tt.wantMsg, gwErr.Message)
			assert.Equal(t, tt.wantCode, gwErr.Code)
			assert.False(t, IsUniqueViolation(err))
		})
	}
}

func TestExecute_NonSuccessStatus(t *testing.T) {
	c, _ := newTestServer(t, http.StatusUnauthorized, `{"error":"Unauthorized"}`)

	_, err := c.Execute(context.Background(), "SELECT 1")
	var gwErr *Error
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, http.StatusUnauthorized, gwErr.StatusCode)
	assert.Equal(t, "Unauthorized", gwErr.Message)
	assert.Contains(t, gwErr.Error(), "401")
}

func TestExecute_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	c, err := New(srv.URL, "secret-token")
	require.NoError(t, err)
	srv.Close()

	_, err = c.Execute(context.Background(), "SELECT 1")
	var gwErr *Error
	require.True(t, errors.As(err, &gwErr))
	assert.Zero(t, gwErr.StatusCode)
	assert.NotNil(t, gwErr.Err)
}

func TestExecute_MissingResultIsEmpty(t *testing.T) {
	c, _ := newTestServer(t, http.StatusOK, `{"results":[{"type":"ok","response":{"type":"execute"}}]}`)

	res, err := c.Execute(context.Background(), "SELECT 1")
	require.NoError(t, err)
	assert.Empty(t, res.Rows)
	assert.NotNil(t, res.Rows)
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "libsql://freshly-db.turso.io", want: "https://freshly-db.turso.io"},
		{in: "https://freshly-db.turso.io/", want: "https://freshly-db.turso.io"},
		{in: "http://127.0.0.1:8080", want: "http://127.0.0.1:8080"},
		{in: "LIBSQL://freshly-db.turso.io", want: "https://freshly-db.turso.io"},
		{in: "ftp://freshly-db.turso.io", wantErr: true},
		{in: "", wantErr: true},
		{in: "libsql://", wantErr: true},
	}

	for _, tt := range tests {
		got, err := NormalizeURL(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestNew_Validation(t *testing.T) {
	_, err := New("libsql://db.turso.io", "")
	assert.ErrorIs(t, err, ErrEmptyToken)

	_, err = New("", "token")
	assert.ErrorIs(t, err, ErrEmptyURL)

	c, err := New("libsql://db.turso.io", "token", WithTimeout(5*time.Second))
	require.NoError(t, err)
	assert.Equal(t, "https://db.turso.io/v2/pipeline", c.Endpoint())
	assert.Equal(t, 5*time.Second, c.timeout)
}

func TestValueJSON(t *testing.T) {
	var v Value
	require.NoError(t, json.Unmarshal([]byte(`{"type":"integer","value":"9007199254740993"}`), &v))
	assert.Equal(t, int64(9007199254740993), v.Int)

	require.NoError(t, json.Unmarshal([]byte(`{"type":"float","value":"3.25"}`), &v))
	assert.Equal(t, 3.25, v.Float)

	require.NoError(t, json.Unmarshal([]byte(`{"type":"blob","base64":"aGk="}`), &v))
	assert.Equal(t, []byte("hi"), v.Blob)

	assert.Error(t, json.Unmarshal([]byte(`{"type":"bogus"}`), &v))
}

func TestRowScan_NullIntoString(t *testing.T) {
	row := NewRow([]Column{{Name: "name"}}, []Value{Null()})
	var s string
	assert.ErrorIs(t, row.Scan(&s), ErrNull)
	assert.Error(t, row.Scan(&s, &s))
}
