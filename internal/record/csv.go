package record

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/koustreak/datri-datasets/internal/errs"
	"github.com/koustreak/datri-datasets/internal/fetch"
	"github.com/koustreak/datri-datasets/internal/schema"
)

// CSVDecoder reads comma-separated text whose first row names the columns.
//
// Every declared source name must appear in the header; extra columns are
// ignored. Cells are trimmed of surrounding spaces before coercion, except for
// Text fields.
type CSVDecoder struct {
	nulls Nulls
}

// NewCSVDecoder returns a CSV decoder. A zero Nulls uses DefaultCSVNulls.
func NewCSVDecoder(nulls Nulls) *CSVDecoder {
	if nulls.Tokens == nil {
		nulls = DefaultCSVNulls
	}
	return &CSVDecoder{nulls: nulls}
}

func (d *CSVDecoder) Encoding() string { return fetch.EncodingCSV }

// Decode implements Decoder.
func (d *CSVDecoder) Decode(p *fetch.Payload, s *schema.Schema) ([]Record, error) {
	if err := checkEncoding(p, fetch.EncodingCSV); err != nil {
		return nil, err
	}

	r := csv.NewReader(bytes.NewReader(p.Data))
	r.ReuseRecord = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, errs.Malformed(fmt.Sprintf("%s: missing header row", p.Source), nil)
	}
	if err != nil {
		return nil, errs.Malformed(fmt.Sprintf("%s: header", p.Source), err)
	}

	fields := s.Fields()
	cols, err := columnIndex(p.Source, header, fields)
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0)
	for row := 1; ; row++ {
		cells, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errs.Malformed(fmt.Sprintf("%s: row %d", p.Source, row), err)
		}

		rec := make(Record, len(fields))
		for i, f := range fields {
			if rec[i], err = d.cell(cells[cols[i]], f, row); err != nil {
				return nil, err
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

func (d *CSVDecoder) cell(s string, f schema.Field, row int) (Value, error) {
	if d.nulls.IsNull(s) {
		return missing(f, row)
	}
	if f.Type == schema.Text {
		return Text(s), nil
	}
	return parseText(f, row, strings.TrimSpace(s), strconv.Quote(s))
}

// columnIndex maps each field to its header position.
func columnIndex(source string, header []string, fields []schema.Field) ([]int, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if _, dup := pos[h]; !dup {
			pos[h] = i
		}
	}
	cols := make([]int, len(fields))
	for i, f := range fields {
		j, ok := pos[f.SourceName()]
		if !ok {
			return nil, errs.Malformed(fmt.Sprintf("%s: header has no column %q", source, f.SourceName()), nil)
		}
		cols[i] = j
	}
	return cols, nil
}
