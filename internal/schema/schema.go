// Package schema declares the shape of a dataset: an ordered list of named,
// typed fields with per-field nullability.
//
// A Schema is immutable once built. Field order is the output column order.
package schema

import (
	"fmt"

	"github.com/koustreak/datri-datasets/internal/errs"
)

// Schema is an ordered, immutable field declaration.
type Schema struct {
	fields []Field
	index  map[string]int
}

// New validates fields and returns a Schema. Names must be non-empty and
// unique; types must be valid.
func New(fields ...Field) (*Schema, error) {
	s := &Schema{
		fields: make([]Field, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for i, f := range fields {
		if f.Name == "" {
			return nil, errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("field %d has no name", i+1))
		}
		if !f.Type.Valid() {
			return nil, errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("field %q has invalid type %s", f.Name, f.Type))
		}
		if _, dup := s.index[f.Name]; dup {
			return nil, errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("duplicate field %q", f.Name))
		}
		s.fields[i] = f
		s.index[f.Name] = i
	}
	return s, nil
}

// MustNew is New for statically declared schemas; it panics on error.
func MustNew(fields ...Field) *Schema {
	s, err := New(fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// Len returns the number of fields.
func (s *Schema) Len() int { return len(s.fields) }

// Field returns the i-th field.
func (s *Schema) Field(i int) Field { return s.fields[i] }

// Fields returns a copy of the field list.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Index returns the position of the named field.
func (s *Schema) Index(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// Names returns field names in order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.Name
	}
	return names
}

// SourceNames returns the source keys in field order.
func (s *Schema) SourceNames() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.SourceName()
	}
	return names
}
