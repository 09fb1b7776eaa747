package schema

import (
	"fmt"
	"strings"

	"github.com/koustreak/datri-datasets/internal/errs"
)

// FieldType is the semantic type of a field.
type FieldType int

const (
	Integer FieldType = iota + 1 // stored as int64
	Float                        // stored as float64
	Text                         // stored as UTF-8 string
)

func (t FieldType) String() string {
	switch t {
	case Integer:
		return "integer"
	case Float:
		return "float"
	case Text:
		return "text"
	default:
		return fmt.Sprintf("FieldType(%d)", int(t))
	}
}

// Valid reports whether t is one of the declared types.
func (t FieldType) Valid() bool {
	return t == Integer || t == Float || t == Text
}

// ParseFieldType accepts the names used in config files.
func ParseFieldType(s string) (FieldType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "integer", "int", "int64":
		return Integer, nil
	case "float", "float64", "double":
		return Float, nil
	case "text", "string":
		return Text, nil
	}
	return 0, errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("unknown field type %q", s))
}

// Field describes a single declared column
type Field struct {
	Name     string
	Type     FieldType
	Nullable bool
	Source   string // key in the encoded source; "" means Name
}

// SourceName is the key the decoder looks up for this field.
func (f Field) SourceName() string {
	if f.Source != "" {
		return f.Source
	}
	return f.Name
}

// From returns a copy of f read from the given source key.
func (f Field) From(source string) Field {
	f.Source = source
	return f
}

// Required declares a non-nullable field.
func Required(name string, t FieldType) Field {
	return Field{Name: name, Type: t}
}

// Optional declares a nullable field.
func Optional(name string, t FieldType) Field {
	return Field{Name: name, Type: t, Nullable: true}
}
