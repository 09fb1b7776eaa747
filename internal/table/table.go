// Package table materializes decoded records into a column-oriented Table.
//
// A Table is backed by an Apache Arrow record: one typed array per schema
// field, in schema order, with Arrow's validity bitmap marking missing cells.
// Tables are immutable once returned.
package table

import (
	"fmt"
	"iter"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/koustreak/datri-datasets/internal/errs"
	"github.com/koustreak/datri-datasets/internal/record"
	"github.com/koustreak/datri-datasets/internal/schema"
)

// Table is a row-count-consistent set of typed columns in schema order.
// It is safe for concurrent reads.
type Table struct {
	schema *schema.Schema
	rec    arrow.Record
}

// Materialize transposes records into one column per field of s.
// Records are expected to be decoded already; values are not re-validated.
// An empty records slice yields a zero-row table with every column present.
func Materialize(records []record.Record, s *schema.Schema) (*Table, error) {
	if s == nil {
		return nil, errs.New(errs.ErrKindInvalidInput, "materialize: nil schema")
	}

	b := array.NewRecordBuilder(memory.DefaultAllocator, ArrowSchema(s))
	defer b.Release()

	n := s.Len()
	for i := range n {
		b.Field(i).Reserve(len(records))
	}

	for row, rec := range records {
		if len(rec) != n {
			return nil, errs.New(errs.ErrKindInvalidInput,
				fmt.Sprintf("materialize: row %d has %d values, schema has %d fields", row+1, len(rec), n))
		}
		for i, v := range rec {
			appendValue(b.Field(i), v)
		}
	}

	return &Table{schema: s, rec: b.NewRecord()}, nil
}

func appendValue(fb array.Builder, v record.Value) {
	if !v.Valid {
		fb.AppendNull()
		return
	}
	switch fb := fb.(type) {
	case *array.Int64Builder:
		fb.Append(v.Int)
	case *array.Float64Builder:
		fb.Append(v.Float)
	case *array.StringBuilder:
		fb.Append(v.Text)
	}
}

// ArrowSchema converts s to the equivalent Arrow schema.
func ArrowSchema(s *schema.Schema) *arrow.Schema {
	fields := make([]arrow.Field, s.Len())
	for i, f := range s.Fields() {
		fields[i] = arrow.Field{Name: f.Name, Type: arrowType(f.Type), Nullable: f.Nullable}
	}
	return arrow.NewSchema(fields, nil)
}

func arrowType(t schema.FieldType) arrow.DataType {
	switch t {
	case schema.Integer:
		return arrow.PrimitiveTypes.Int64
	case schema.Float:
		return arrow.PrimitiveTypes.Float64
	default:
		return arrow.BinaryTypes.String
	}
}

// NumRows returns the row count shared by every column.
func (t *Table) NumRows() int { return int(t.rec.NumRows()) }

// NumCols returns the number of columns.
func (t *Table) NumCols() int { return int(t.rec.NumCols()) }

// Schema returns the schema the table was materialized with.
func (t *Table) Schema() *schema.Schema { return t.schema }

// ColumnNames returns column names in order.
func (t *Table) ColumnNames() []string { return t.schema.Names() }

// Record exposes the underlying Arrow record. The table keeps ownership;
// call Retain on it to use it past Release.
func (t *Table) Record() arrow.Record { return t.rec }

// Column returns the Arrow array for name.
func (t *Table) Column(name string) (arrow.Array, error) {
	i, ok := t.schema.Index(name)
	if !ok {
		return nil, errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("no column %q", name))
	}
	return t.rec.Column(i), nil
}

// Int64 returns the Integer column name.
func (t *Table) Int64(name string) (*array.Int64, error) {
	return typed[*array.Int64](t, name, schema.Integer)
}

// Float64 returns the Float column name.
func (t *Table) Float64(name string) (*array.Float64, error) {
	return typed[*array.Float64](t, name, schema.Float)
}

// Text returns the Text column name.
func (t *Table) Text(name string) (*array.String, error) {
	return typed[*array.String](t, name, schema.Text)
}

func typed[A arrow.Array](t *Table, name string, want schema.FieldType) (A, error) {
	var zero A
	col, err := t.Column(name)
	if err != nil {
		return zero, err
	}
	a, ok := col.(A)
	if !ok {
		i, _ := t.schema.Index(name)
		return zero, errs.New(errs.ErrKindInvalidInput,
			fmt.Sprintf("column %q is %s, not %s", name, t.schema.Field(i).Type, want))
	}
	return a, nil
}

// Value returns the cell at row (0-based) of column name.
func (t *Table) Value(row int, name string) (record.Value, error) {
	i, ok := t.schema.Index(name)
	if !ok {
		return record.Missing, errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("no column %q", name))
	}
	if row < 0 || row >= t.NumRows() {
		return record.Missing, errs.New(errs.ErrKindInvalidInput,
			fmt.Sprintf("row %d out of range [0, %d)", row, t.NumRows()))
	}
	return cell(t.rec.Column(i), row), nil
}

// Row returns row i (0-based) in schema order.
func (t *Table) Row(i int) record.Record {
	out := make(record.Record, t.NumCols())
	for c := range out {
		out[c] = cell(t.rec.Column(c), i)
	}
	return out
}

// Rows iterates rows in order.
func (t *Table) Rows() iter.Seq2[int, record.Record] {
	return func(yield func(int, record.Record) bool) {
		for i := range t.NumRows() {
			if !yield(i, t.Row(i)) {
				return
			}
		}
	}
}

func cell(col arrow.Array, i int) record.Value {
	if col.IsNull(i) {
		return record.Missing
	}
	switch a := col.(type) {
	case *array.Int64:
		return record.Int(a.Value(i))
	case *array.Float64:
		return record.Float(a.Value(i))
	case *array.String:
		return record.Text(a.Value(i))
	}
	return record.Missing
}

// Equal reports whether both tables have the same schema and identical cells.
func (t *Table) Equal(o *Table) bool {
	if t == nil || o == nil {
		return t == o
	}
	return t.rec.Schema().Equal(o.rec.Schema()) && array.RecordEqual(t.rec, o.rec)
}

// Release frees the column buffers. The table must not be used afterwards.
func (t *Table) Release() {
	if t.rec != nil {
		t.rec.Release()
	}
}
