package libsql

import (
	"errors"
	"fmt"
	"strings"
)

// Database error codes the gateway classifies.
const (
	CodeConstraint           = "SQLITE_CONSTRAINT"
	CodeConstraintUnique     = "SQLITE_CONSTRAINT_UNIQUE"
	CodeConstraintPrimaryKey = "SQLITE_CONSTRAINT_PRIMARYKEY"
)

// Error is returned for every failed Execute: transport failures, non-2xx
// responses and errors reported by the database itself.
type Error struct {
	// StatusCode is the HTTP status, zero when no response was received.
	StatusCode int
	Status     string
	// Code is the database error code, e.g. SQLITE_CONSTRAINT_UNIQUE.
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("libsql: ")

	switch {
	case e.Message != "" && e.Err != nil:
		fmt.Fprintf(&b, "%s: %v", e.Message, e.Err)
	case e.Message != "":
		b.WriteString(e.Message)
	case e.Err != nil:
		b.WriteString(e.Err.Error())
	default:
		b.WriteString("request failed")
	}

	if e.Code != "" {
		fmt.Fprintf(&b, " (%s)", e.Code)
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " [http %s]", e.statusText())
	}
	return b.String()
}

func (e *Error) statusText() string {
	if e.Status != "" {
		return e.Status
	}
	return fmt.Sprint(e.StatusCode)
}

func (e *Error) Unwrap() error { return e.Err }

// IsUniqueViolation reports whether err is a uniqueness constraint failure.
// The structured code wins; the message is only consulted when the server
// reported the generic constraint code.
func IsUniqueViolation(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	switch e.Code {
	case CodeConstraintUnique, CodeConstraintPrimaryKey:
		return true
	case CodeConstraint, "":
		return strings.Contains(e.Message, "UNIQUE constraint failed")
	default:
		return false
	}
}
