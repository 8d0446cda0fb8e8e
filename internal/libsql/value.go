package libsql

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// ValueType is the wire type tag carried by every argument and cell.
type ValueType string

const (
	TypeNull    ValueType = "null"
	TypeInteger ValueType = "integer"
	TypeFloat   ValueType = "float"
	TypeText    ValueType = "text"
	TypeBlob    ValueType = "blob"
)

// TimeFormat is the layout SQLite uses for CURRENT_TIMESTAMP.
const TimeFormat = "2006-01-02 15:04:05"

var timeLayouts = []string{
	TimeFormat,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ErrNull is returned when a NULL cell is read into a non-nullable destination.
var ErrNull = errors.New("libsql: value is NULL")

// Value is a single typed cell or statement argument.
type Value struct {
	Type  ValueType
	Int   int64
	Float float64
	Text  string
	Blob  []byte
}

func Null() Value           { return Value{Type: TypeNull} }
func Integer(v int64) Value { return Value{Type: TypeInteger, Int: v} }
func Float(v float64) Value { return Value{Type: TypeFloat, Float: v} }
func Text(v string) Value   { return Value{Type: TypeText, Text: v} }
func Blob(v []byte) Value   { return Value{Type: TypeBlob, Blob: v} }

// IsNull reports whether the value is SQL NULL.
func (v Value) IsNull() bool { return v.Type == TypeNull || v.Type == "" }

// ValueOf maps a Go value onto its wire type. Values with no natural SQLite
// counterpart are sent as text.
func ValueOf(arg any) Value {
	switch x := arg.(type) {
	case nil:
		return Null()
	case Value:
		return x
	case int:
		return Integer(int64(x))
	case int8:
		return Integer(int64(x))
	case int16:
		return Integer(int64(x))
	case int32:
		return Integer(int64(x))
	case int64:
		return Integer(x)
	case uint:
		return Integer(int64(x))
	case uint8:
		return Integer(int64(x))
	case uint16:
		return Integer(int64(x))
	case uint32:
		return Integer(int64(x))
	case uint64:
		return Integer(int64(x))
	case float32:
		return Float(float64(x))
	case float64:
		return Float(x)
	case bool:
		if x {
			return Integer(1)
		}
		return Integer(0)
	case string:
		return Text(x)
	case []byte:
		if x == nil {
			return Null()
		}
		return Blob(x)
	case time.Time:
		return Text(x.UTC().Format(TimeFormat))
	case *string:
		if x == nil {
			return Null()
		}
		return Text(*x)
	case *int64:
		if x == nil {
			return Null()
		}
		return Integer(*x)
	case *float64:
		if x == nil {
			return Null()
		}
		return Float(*x)
	case *time.Time:
		if x == nil {
			return Null()
		}
		return Text(x.UTC().Format(TimeFormat))
	case fmt.Stringer:
		return Text(x.String())
	default:
		return Text(fmt.Sprint(x))
	}
}

// Any returns the value as nil, int64, float64, string or []byte.
func (v Value) Any() any {
	switch v.Type {
	case TypeInteger:
		return v.Int
	case TypeFloat:
		return v.Float
	case TypeText:
		return v.Text
	case TypeBlob:
		return v.Blob
	default:
		return nil
	}
}

func (v Value) Int64() (int64, error) {
	switch v.Type {
	case TypeInteger:
		return v.Int, nil
	case TypeFloat:
		return int64(v.Float), nil
	case TypeText:
		n, err := strconv.ParseInt(strings.TrimSpace(v.Text), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("libsql: text %q is not an integer", v.Text)
		}
		return n, nil
	case TypeBlob:
		return 0, errors.New("libsql: blob is not an integer")
	default:
		return 0, ErrNull
	}
}

func (v Value) Float64() (float64, error) {
	switch v.Type {
	case TypeFloat:
		return v.Float, nil
	case TypeInteger:
		return float64(v.Int), nil
	case TypeText:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Text), 64)
		if err != nil {
			return 0, fmt.Errorf("libsql: text %q is not a number", v.Text)
		}
		return f, nil
	case TypeBlob:
		return 0, errors.New("libsql: blob is not a number")
	default:
		return 0, ErrNull
	}
}

func (v Value) Bool() (bool, error) {
	switch v.Type {
	case TypeText:
		return strconv.ParseBool(v.Text)
	default:
		n, err := v.Int64()
		if err != nil {
			return false, err
		}
		return n != 0, nil
	}
}

// String renders the value as text. NULL renders as the empty string.
func (v Value) String() string {
	switch v.Type {
	case TypeInteger:
		return strconv.FormatInt(v.Int, 10)
	case TypeFloat:
		return strconv.FormatFloat(v.Float, 'f', -1, 64)
	case TypeText:
		return v.Text
	case TypeBlob:
		return string(v.Blob)
	default:
		return ""
	}
}

// Time parses text cells in the formats SQLite produces. Integers are read
// as unix seconds.
func (v Value) Time() (time.Time, error) {
	switch v.Type {
	case TypeText:
		s := strings.TrimSpace(v.Text)
		for _, layout := range timeLayouts {
			if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("libsql: text %q is not a timestamp", v.Text)
	case TypeInteger:
		return time.Unix(v.Int, 0).UTC(), nil
	case TypeNull, "":
		return time.Time{}, ErrNull
	default:
		return time.Time{}, fmt.Errorf("libsql: %s is not a timestamp", v.Type)
	}
}

type typedValue struct {
	Type  ValueType `json:"type"`
	Value any       `json:"value"`
}

type blobValue struct {
	Type   ValueType `json:"type"`
	Base64 string    `json:"base64"`
}

// MarshalJSON encodes the value the way the pipeline protocol expects:
// integers as decimal strings, blobs as base64.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Type {
	case TypeInteger:
		return json.Marshal(typedValue{Type: TypeInteger, Value: strconv.FormatInt(v.Int, 10)})
	case TypeFloat:
		return json.Marshal(typedValue{Type: TypeFloat, Value: v.Float})
	case TypeText:
		return json.Marshal(typedValue{Type: TypeText, Value: v.Text})
	case TypeBlob:
		return json.Marshal(blobValue{Type: TypeBlob, Base64: base64.RawStdEncoding.EncodeToString(v.Blob)})
	default:
		return []byte(`{"type":"null"}`), nil
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type   ValueType       `json:"type"`
		Value  json.RawMessage `json:"value"`
		Base64 string          `json:"base64"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch raw.Type {
	case TypeNull, "":
		*v = Null()
	case TypeInteger:
		s, err := numberText(raw.Value)
		if err != nil {
			return err
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("libsql: bad integer %q: %w", s, err)
		}
		*v = Integer(n)
	case TypeFloat:
		s, err := numberText(raw.Value)
		if err != nil {
			return err
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("libsql: bad float %q: %w", s, err)
		}
		*v = Float(f)
	case TypeText:
		var s string
		if err := json.Unmarshal(raw.Value, &s); err != nil {
			return fmt.Errorf("libsql: bad text value: %w", err)
		}
		*v = Text(s)
	case TypeBlob:
		b, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(raw.Base64, "="))
		if err != nil {
			return fmt.Errorf("libsql: bad blob value: %w", err)
		}
		*v = Blob(b)
	default:
		return fmt.Errorf("libsql: unknown value type %q", raw.Type)
	}
	return nil
}

// numberText accepts both a JSON number and a JSON string holding a number.
func numberText(raw json.RawMessage) (string, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return "", errors.New("libsql: missing numeric value")
	}
	if s[0] == '"' {
		var out string
		if err := json.Unmarshal(raw, &out); err != nil {
			return "", err
		}
		return out, nil
	}
	return s, nil
}
