package libsql

import (
	"errors"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

const (
	requestExecute = "execute"
	requestClose   = "close"
	resultOK       = "ok"
	resultError    = "error"
)

type pipelineRequest struct {
	Requests []streamRequest `json:"requests"`
}

type streamRequest struct {
	Type string     `json:"type"`
	Stmt *statement `json:"stmt,omitempty"`
}

type statement struct {
	SQL  string  `json:"sql"`
	Args []Value `json:"args,omitempty"`
}

type pipelineResponse struct {
	Baton   *string        `json:"baton"`
	Results []streamResult `json:"results"`
	Error   *wireError     `json:"error"`
}

type streamResult struct {
	Type     string          `json:"type"`
	Response *streamResponse `json:"response"`
	Error    *wireError      `json:"error"`
}

type streamResponse struct {
	Type   string         `json:"type"`
	Result *executeResult `json:"result"`
}

type executeResult struct {
	Cols             []Column  `json:"cols"`
	Rows             [][]Value `json:"rows"`
	AffectedRowCount flexInt   `json:"affected_row_count"`
	LastInsertRowID  *flexInt  `json:"last_insert_rowid"`
}

// wireError is either a bare string or a {message, code} object.
type wireError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (w *wireError) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		return json.Unmarshal(data, &w.Message)
	}
	var obj struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	w.Message, w.Code = obj.Message, obj.Code
	return nil
}

// flexInt decodes integers sent either as JSON numbers or decimal strings.
type flexInt int64

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return errors.New("libsql: bad integer " + strconv.Quote(s))
	}
	*f = flexInt(n)
	return nil
}

func newPipeline(sql string, args []any) pipelineRequest {
	stmt := &statement{SQL: sql}
	if len(args) > 0 {
		stmt.Args = make([]Value, len(args))
		for i, a := range args {
			stmt.Args[i] = ValueOf(a)
		}
	}
	return pipelineRequest{Requests: []streamRequest{
		{Type: requestExecute, Stmt: stmt},
		{Type: requestClose},
	}}
}

func (r *executeResult) normalize() *Result {
	res := &Result{
		Columns:          r.Cols,
		Rows:             make([]Row, 0, len(r.Rows)),
		AffectedRowCount: int64(r.AffectedRowCount),
	}
	if res.Columns == nil {
		res.Columns = []Column{}
	}
	for _, cells := range r.Rows {
		res.Rows = append(res.Rows, Row{cols: res.Columns, values: cells})
	}
	if r.LastInsertRowID != nil {
		id := int64(*r.LastInsertRowID)
		res.LastInsertRowID = &id
	}
	return res
}
