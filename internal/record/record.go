// Package record decodes raw payloads into typed rows that conform to a
// schema.Schema.
//
// Decoding is schema-driven: every declared field is looked up by its source
// name and coerced to its declared type. Nothing is inferred from the payload.
// A decode either returns every row or fails on the first bad one; a partial
// result is never returned.
package record

import (
	"fmt"
	"math/big"
	"slices"
	"strconv"

	"github.com/koustreak/datri-datasets/internal/errs"
	"github.com/koustreak/datri-datasets/internal/fetch"
	"github.com/koustreak/datri-datasets/internal/schema"
)

// Value is one typed cell. Only the member matching the field type is set.
// Valid is false for a missing cell.
type Value struct {
	Int   int64
	Float float64
	Text  string
	Valid bool
}

// Int returns a present integer value.
func Int(v int64) Value { return Value{Int: v, Valid: true} }

// Float returns a present float value.
func Float(v float64) Value { return Value{Float: v, Valid: true} }

// Text returns a present text value.
func Text(v string) Value { return Value{Text: v, Valid: true} }

// Missing is the missing cell.
var Missing = Value{}

// Record is one decoded row, positional in schema order.
type Record []Value

// Decoder turns a payload into records conforming to s.
type Decoder interface {
	// Encoding is the payload encoding tag this decoder reads.
	Encoding() string

	Decode(p *fetch.Payload, s *schema.Schema) ([]Record, error)
}

// Nulls lists the encoded tokens a source uses for "no value".
//
// JSON null and an absent key are always missing; Tokens adds string values
// (e.g. "NA") that mean the same. For CSV, a cell equal to a token is missing.
type Nulls struct {
	Tokens []string
}

// DefaultCSVNulls treats an empty cell as missing.
var DefaultCSVNulls = Nulls{Tokens: []string{""}}

// IsNull reports whether s is one of the null tokens.
func (n Nulls) IsNull(s string) bool {
	return slices.Contains(n.Tokens, s)
}

// ForEncoding returns the decoder for an encoding tag.
func ForEncoding(encoding string, nulls Nulls) (Decoder, error) {
	switch encoding {
	case fetch.EncodingJSON:
		return NewJSONDecoder(nulls), nil
	case fetch.EncodingCSV:
		return NewCSVDecoder(nulls), nil
	}
	return nil, errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("no decoder for encoding %q", encoding))
}

func checkEncoding(p *fetch.Payload, want string) error {
	if p == nil {
		return errs.Malformed("nil payload", nil)
	}
	if p.Encoding != "" && p.Encoding != want {
		return errs.Malformed(fmt.Sprintf("%s: payload is %q, decoder reads %q", p.Source, p.Encoding, want), nil)
	}
	return nil
}

// missing resolves an absent value for f at row.
func missing(f schema.Field, row int) (Value, error) {
	if !f.Nullable {
		return Missing, errs.MissingRequiredField(f.Name, row)
	}
	return Missing, nil
}

// parseText coerces the textual form of a scalar into f's type.
// repr is what the error reports as the received value.
func parseText(f schema.Field, row int, s, repr string) (Value, error) {
	switch f.Type {
	case schema.Integer:
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Missing, errs.SchemaViolation(f.Name, row, repr, f.Type.String())
		}
		return Int(v), nil
	case schema.Float:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || !exactInteger(s, v) {
			return Missing, errs.SchemaViolation(f.Name, row, repr, f.Type.String())
		}
		return Float(v), nil
	default:
		return Text(s), nil
	}
}

// exactInteger reports false when s is an integer literal that v does not
// hold exactly, e.g. 2^53+1. Non-integer literals always pass.
func exactInteger(s string, v float64) bool {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return true
	}
	f, acc := new(big.Float).SetInt(n).Float64()
	return acc == big.Exact && f == v
}
