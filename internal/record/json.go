package record

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/buger/jsonparser"
	"github.com/koustreak/datri-datasets/internal/errs"
	"github.com/koustreak/datri-datasets/internal/fetch"
	"github.com/koustreak/datri-datasets/internal/schema"
)

// JSONDecoder reads a JSON array of objects, one object per row.
//
// Integer fields accept integer literals only; Float fields accept any
// number; Text fields accept strings only. Keys not in the schema are ignored.
type JSONDecoder struct {
	nulls Nulls
}

// NewJSONDecoder returns a JSON decoder with the given null tokens.
func NewJSONDecoder(nulls Nulls) *JSONDecoder {
	return &JSONDecoder{nulls: nulls}
}

func (d *JSONDecoder) Encoding() string { return fetch.EncodingJSON }

// Decode implements Decoder.
func (d *JSONDecoder) Decode(p *fetch.Payload, s *schema.Schema) ([]Record, error) {
	if err := checkEncoding(p, fetch.EncodingJSON); err != nil {
		return nil, err
	}

	// jsonparser scans without validating; reject broken syntax up front so a
	// garbled key never reads as an absent one.
	if !json.Valid(p.Data) {
		return nil, errs.Malformed(fmt.Sprintf("%s: invalid JSON", p.Source), nil)
	}

	_, typ, _, err := jsonparser.Get(p.Data)
	if err != nil {
		return nil, errs.Malformed(fmt.Sprintf("%s: invalid JSON", p.Source), err)
	}
	if typ != jsonparser.Array {
		return nil, errs.Malformed(fmt.Sprintf("%s: expected a JSON array, got %s", p.Source, typ), nil)
	}

	fields := s.Fields()
	records := make([]Record, 0)
	var firstErr error
	row := 0

	_, err = jsonparser.ArrayEach(p.Data, func(value []byte, dataType jsonparser.ValueType, _ int, err error) {
		if firstErr != nil {
			return
		}
		row++
		if err != nil {
			firstErr = errs.Malformed(fmt.Sprintf("%s: row %d", p.Source, row), err)
			return
		}
		if dataType != jsonparser.Object {
			firstErr = errs.Malformed(fmt.Sprintf("%s: row %d is a JSON %s, not an object", p.Source, row, dataType), nil)
			return
		}

		rec := make(Record, len(fields))
		for i, f := range fields {
			v, err := d.field(value, f, row)
			if err != nil {
				firstErr = err
				return
			}
			rec[i] = v
		}
		records = append(records, rec)
	})
	if firstErr != nil {
		return nil, firstErr
	}
	if err != nil {
		return nil, errs.Malformed(fmt.Sprintf("%s: invalid JSON array", p.Source), err)
	}
	return records, nil
}

func (d *JSONDecoder) field(obj []byte, f schema.Field, row int) (Value, error) {
	raw, typ, _, err := jsonparser.Get(obj, f.SourceName())
	if errors.Is(err, jsonparser.KeyPathNotFoundError) {
		return missing(f, row)
	}
	if err != nil {
		return Missing, errs.Malformed(fmt.Sprintf("row %d: field %q", row, f.Name), err)
	}

	switch typ {
	case jsonparser.Null:
		return missing(f, row)

	case jsonparser.String:
		str, err := jsonparser.ParseString(raw)
		if err != nil {
			return Missing, errs.Malformed(fmt.Sprintf("row %d: field %q", row, f.Name), err)
		}
		if d.nulls.IsNull(str) {
			return missing(f, row)
		}
		if f.Type != schema.Text {
			return Missing, errs.SchemaViolation(f.Name, row, strconv.Quote(str), f.Type.String())
		}
		return Text(str), nil

	case jsonparser.Number:
		if f.Type == schema.Text {
			return Missing, errs.SchemaViolation(f.Name, row, string(raw), f.Type.String())
		}
		return parseText(f, row, string(raw), string(raw))
	}

	return Missing, errs.SchemaViolation(f.Name, row, string(raw), f.Type.String())
}
