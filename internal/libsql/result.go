package libsql

import (
	"fmt"
	"strings"
	"time"
)

// Column describes one column of a statement result.
type Column struct {
	Name     string `json:"name"`
	Decltype string `json:"decltype"`
}

// Result is the normalized outcome of one statement.
type Result struct {
	Columns          []Column
	Rows             []Row
	AffectedRowCount int64
	LastInsertRowID  *int64
}

// First returns the first row, if any. INSERT ... RETURNING results are read
// through it the same way as a SELECT.
func (r *Result) First() (Row, bool) {
	if r == nil || len(r.Rows) == 0 {
		return Row{}, false
	}
	return r.Rows[0], true
}

// Row is a cursor over the typed cells of one result row.
type Row struct {
	cols   []Column
	values []Value
}

// NewRow builds a row from columns and values. Mostly useful in tests.
func NewRow(cols []Column, values []Value) Row {
	return Row{cols: cols, values: values}
}

func (r Row) Len() int { return len(r.values) }

func (r Row) Values() []Value { return r.values }

// Column returns the i-th cell. Out of range reads as NULL.
func (r Row) Column(i int) Value {
	if i < 0 || i >= len(r.values) {
		return Null()
	}
	return r.values[i]
}

// ByName looks a cell up by column name, case-insensitively.
func (r Row) ByName(name string) (Value, bool) {
	for i, c := range r.cols {
		if strings.EqualFold(c.Name, name) && i < len(r.values) {
			return r.values[i], true
		}
	}
	return Null(), false
}

// Scan copies the row cells into dest in column order, converting each
// value to the destination type.
func (r Row) Scan(dest ...any) error {
	if len(dest) != len(r.values) {
		return fmt.Errorf("libsql: expected %d destination arguments in Scan, not %d", len(r.values), len(dest))
	}
	for i, d := range dest {
		if err := assign(d, r.values[i]); err != nil {
			return fmt.Errorf("libsql: scan column %d (%s): %w", i, r.columnName(i), err)
		}
	}
	return nil
}

func (r Row) columnName(i int) string {
	if i < len(r.cols) {
		return r.cols[i].Name
	}
	return "?"
}

func assign(dest any, v Value) error {
	var err error
	switch d := dest.(type) {
	case *Value:
		*d = v
	case *any:
		*d = v.Any()
	case *string:
		if v.IsNull() {
			return ErrNull
		}
		*d = v.String()
	case **string:
		if v.IsNull() {
			*d = nil
			return nil
		}
		s := v.String()
		*d = &s
	case *int64:
		*d, err = v.Int64()
	case *int:
		var n int64
		n, err = v.Int64()
		*d = int(n)
	case **int64:
		if v.IsNull() {
			*d = nil
			return nil
		}
		var n int64
		if n, err = v.Int64(); err == nil {
			*d = &n
		}
	case *float64:
		*d, err = v.Float64()
	case **float64:
		if v.IsNull() {
			*d = nil
			return nil
		}
		var f float64
		if f, err = v.Float64(); err == nil {
			*d = &f
		}
	case *bool:
		*d, err = v.Bool()
	case *[]byte:
		switch v.Type {
		case TypeBlob:
			*d = append([]byte(nil), v.Blob...)
		case TypeNull, "":
			*d = nil
		default:
			*d = []byte(v.String())
		}
	case *time.Time:
		*d, err = v.Time()
	case **time.Time:
		if v.IsNull() {
			*d = nil
			return nil
		}
		var t time.Time
		if t, err = v.Time(); err == nil {
			*d = &t
		}
	default:
		return fmt.Errorf("unsupported destination type %T", dest)
	}
	return err
}
