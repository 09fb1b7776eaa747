// Package generate produces synthetic tables from parametric column models.
//
// Generation never touches the network or the decoders; it draws typed
// records and hands them to table.Materialize. Output is a pure function of
// (Spec, Seed): draws happen in row-major order from a PCG source seeded by
// Spec.Seed, so the same spec always yields an identical table.
package generate

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/koustreak/datri-datasets/internal/errs"
	"github.com/koustreak/datri-datasets/internal/record"
	"github.com/koustreak/datri-datasets/internal/schema"
	"github.com/koustreak/datri-datasets/internal/table"
)

// pcgStream is the fixed second PCG word; Seed alone selects the sequence.
const pcgStream = 0x9e3779b97f4a7c15

// Column is one generated field.
type Column struct {
	Name string
	Dist Distribution

	// MissingRate is the probability a cell is missing. A column with a
	// positive rate is nullable.
	MissingRate float64
}

// Spec describes a synthetic table.
type Spec struct {
	Rows    int
	Seed    uint64
	Columns []Column
}

// Schema returns the schema of the generated table.
func (s Spec) Schema() (*schema.Schema, error) {
	fields := make([]schema.Field, len(s.Columns))
	for i, c := range s.Columns {
		if c.Dist == nil {
			return nil, errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("column %q has no distribution", c.Name))
		}
		fields[i] = schema.Field{Name: c.Name, Type: c.Dist.Type(), Nullable: c.MissingRate > 0}
	}
	return schema.New(fields...)
}

// Clone returns a copy of s that shares no slices with it.
func (s Spec) Clone() Spec {
	s.Columns = slices.Clone(s.Columns)
	for i, c := range s.Columns {
		if d, ok := c.Dist.(Categorical); ok {
			d.Levels = slices.Clone(d.Levels)
			d.Weights = slices.Clone(d.Weights)
			s.Columns[i].Dist = d
		}
	}
	return s
}

// Validate checks row count, column names, parameters and missing rates.
func (s Spec) Validate() error {
	if s.Rows < 0 {
		return errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("negative row count %d", s.Rows))
	}
	if len(s.Columns) == 0 {
		return errs.New(errs.ErrKindInvalidInput, "spec has no columns")
	}
	if _, err := s.Schema(); err != nil {
		return err
	}
	for _, c := range s.Columns {
		if err := c.Dist.Validate(); err != nil {
			return errs.Wrap(errs.ErrKindInvalidInput, fmt.Sprintf("column %q", c.Name), err)
		}
		if !(c.MissingRate >= 0 && c.MissingRate < 1) {
			return errs.New(errs.ErrKindInvalidInput,
				fmt.Sprintf("column %q: missing rate %v outside [0, 1)", c.Name, c.MissingRate))
		}
	}
	return nil
}

// Generate draws spec.Rows records and materializes them.
func Generate(spec Spec) (*table.Table, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	s, err := spec.Schema()
	if err != nil {
		return nil, err
	}

	r := rand.New(rand.NewPCG(spec.Seed, pcgStream))

	records := make([]record.Record, spec.Rows)
	for row := range records {
		rec := make(record.Record, len(spec.Columns))
		for i, c := range spec.Columns {
			if c.MissingRate > 0 && r.Float64() < c.MissingRate {
				rec[i] = record.Missing
				continue
			}
			rec[i] = c.Dist.Draw(r, row)
		}
		records[row] = rec
	}

	return table.Materialize(records, s)
}
