// Package libsqltest serves the libSQL pipeline protocol from a local sqlite
// file so packages built on libsql can be tested without a remote database.
package libsqltest

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/mattn/go-sqlite3"

	"freshly/internal/libsql"
)

// Token is the bearer token the server accepts.
const Token = "test-token"

var returnsRows = regexp.MustCompile(`(?is)^\s*(select|with|pragma|values|explain)\b|\breturning\b`)

// Server is a running fake endpoint. Use URL and Token to build a client.
type Server struct {
	*httptest.Server

	db          *sql.DB
	unavailable atomic.Bool

	mu         sync.Mutex
	statements []Statement
}

// Statement is one execute request as the server received it.
type Statement struct {
	SQL  string
	Args []libsql.Value
}

type pipelineRequest struct {
	Requests []struct {
		Type string `json:"type"`
		Stmt *struct {
			SQL  string         `json:"sql"`
			Args []libsql.Value `json:"args"`
		} `json:"stmt"`
	} `json:"requests"`
}

type streamResult struct {
	Type     string          `json:"type"`
	Response *streamResponse `json:"response,omitempty"`
	Error    *wireError      `json:"error,omitempty"`
}

type streamResponse struct {
	Type   string         `json:"type"`
	Result *executeResult `json:"result,omitempty"`
}

type executeResult struct {
	Cols             []libsql.Column  `json:"cols"`
	Rows             [][]libsql.Value `json:"rows"`
	AffectedRowCount int64            `json:"affected_row_count"`
	LastInsertRowID  *string          `json:"last_insert_rowid"`
}

type wireError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// NewServer starts a server backed by a fresh database in t.TempDir.
// Both are torn down with the test.
func NewServer(t testing.TB) *Server {
	t.Helper()

	path := filepath.Join(t.TempDir(), "libsql.db")
	db, err := sql.Open("sqlite3", "file:"+path+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		t.Fatalf("libsqltest: open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		t.Fatalf("libsqltest: ping db: %v", err)
	}

	s := &Server{db: db}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(func() {
		s.Server.Close()
		_ = db.Close()
	})
	return s
}

// NewClient returns a gateway client pointed at s.
func (s *Server) NewClient(t testing.TB, opts ...libsql.Option) *libsql.Client {
	t.Helper()
	c, err := libsql.New(s.URL, Token, opts...)
	if err != nil {
		t.Fatalf("libsqltest: new client: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

// DB exposes the backing database for direct assertions.
func (s *Server) DB() *sql.DB { return s.db }

// SetUnavailable makes every request fail with 503 until reset.
func (s *Server) SetUnavailable(v bool) { s.unavailable.Store(v) }

// Statements returns every statement executed so far, in order.
func (s *Server) Statements() []Statement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Statement(nil), s.statements...)
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost || r.URL.Path != "/v2/pipeline" {
		http.NotFound(w, r)
		return
	}
	if s.unavailable.Load() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "service unavailable"})
		return
	}
	if r.Header.Get("Authorization") != "Bearer "+Token {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized: invalid token"})
		return
	}

	var req pipelineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed request: " + err.Error()})
		return
	}

	results := make([]streamResult, 0, len(req.Requests))
	for _, item := range req.Requests {
		switch item.Type {
		case "execute":
			if item.Stmt == nil {
				results = append(results, streamResult{Type: "error", Error: &wireError{Message: "missing stmt"}})
				continue
			}
			s.record(item.Stmt.SQL, item.Stmt.Args)
			res, err := s.execute(r.Context(), item.Stmt.SQL, item.Stmt.Args)
			if err != nil {
				results = append(results, streamResult{Type: "error", Error: toWireError(err)})
				continue
			}
			results = append(results, streamResult{Type: "ok", Response: &streamResponse{Type: "execute", Result: res}})
		case "close":
			results = append(results, streamResult{Type: "ok", Response: &streamResponse{Type: "close"}})
		default:
			results = append(results, streamResult{Type: "error", Error: &wireError{Message: "unknown request type " + item.Type}})
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"baton": nil, "base_url": nil, "results": results})
}

func (s *Server) record(query string, args []libsql.Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statements = append(s.statements, Statement{SQL: query, Args: append([]libsql.Value(nil), args...)})
}

func (s *Server) execute(ctx context.Context, query string, args []libsql.Value) (*executeResult, error) {
	params := make([]any, len(args))
	for i, a := range args {
		params[i] = a.Any()
	}

	if !returnsRows.MatchString(query) {
		res, err := s.db.ExecContext(ctx, query, params...)
		if err != nil {
			return nil, err
		}
		out := &executeResult{Cols: []libsql.Column{}, Rows: [][]libsql.Value{}}
		out.AffectedRowCount, _ = res.RowsAffected()
		if id, err := res.LastInsertId(); err == nil {
			v := libsql.Integer(id).String()
			out.LastInsertRowID = &v
		}
		return out, nil
	}

	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	out := &executeResult{Cols: make([]libsql.Column, len(types)), Rows: [][]libsql.Value{}}
	for i, ct := range types {
		out.Cols[i] = libsql.Column{Name: ct.Name(), Decltype: ct.DatabaseTypeName()}
	}

	for rows.Next() {
		cells := make([]any, len(types))
		ptrs := make([]any, len(types))
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make([]libsql.Value, len(cells))
		for i, c := range cells {
			row[i] = toValue(c)
		}
		out.Rows = append(out.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func toValue(c any) libsql.Value {
	switch x := c.(type) {
	case nil:
		return libsql.Null()
	case int64:
		return libsql.Integer(x)
	case float64:
		return libsql.Float(x)
	case string:
		return libsql.Text(x)
	case []byte:
		return libsql.Blob(x)
	case bool:
		return libsql.ValueOf(x)
	case time.Time:
		return libsql.Text(x.UTC().Format(libsql.TimeFormat))
	default:
		return libsql.ValueOf(x)
	}
}

func toWireError(err error) *wireError {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return &wireError{Message: "SQLite error: " + err.Error(), Code: "SQLITE_ERROR"}
	}

	code := "SQLITE_ERROR"
	switch {
	case se.ExtendedCode == sqlite3.ErrConstraintUnique:
		code = libsql.CodeConstraintUnique
	case se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey:
		code = libsql.CodeConstraintPrimaryKey
	case se.Code == sqlite3.ErrConstraint:
		code = libsql.CodeConstraint
	}
	return &wireError{Message: "SQLite error: " + strings.TrimSpace(se.Error()), Code: code}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
