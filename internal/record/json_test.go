package record

import (
	"testing"

	"github.com/koustreak/datri-datasets/internal/errs"
	"github.com/koustreak/datri-datasets/internal/fetch"
	"github.com/koustreak/datri-datasets/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var idAge = schema.MustNew(
	schema.Required("id", schema.Integer),
	schema.Optional("age", schema.Integer),
)

func jsonPayload(s string) *fetch.Payload {
	return &fetch.Payload{Encoding: fetch.EncodingJSON, Data: []byte(s), Source: "test.json"}
}

func TestJSONDecoder_NullAndPresent(t *testing.T) {
	recs, err := NewJSONDecoder(Nulls{}).Decode(jsonPayload(`[{"id":1,"age":30},{"id":2,"age":null}]`), idAge)
	require.NoError(t, err)

	assert.Equal(t, []Record{
		{Int(1), Int(30)},
		{Int(2), Missing},
	}, recs)
}

func TestJSONDecoder_AbsentNullableKey(t *testing.T) {
	recs, err := NewJSONDecoder(Nulls{}).Decode(jsonPayload(`[{"id":1}]`), idAge)
	require.NoError(t, err)

	require.Len(t, recs, 1)
	assert.False(t, recs[0][1].Valid)
}

func TestJSONDecoder_MissingRequiredField(t *testing.T) {
	_, err := NewJSONDecoder(Nulls{}).Decode(jsonPayload(`[{"age":5}]`), idAge)
	require.Error(t, err)
	assert.True(t, errs.IsMissingRequiredField(err))

	var e *errs.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "id", e.Field)
	assert.Equal(t, 1, e.Row)
}

func TestJSONDecoder_NullRequiredField(t *testing.T) {
	_, err := NewJSONDecoder(Nulls{}).Decode(jsonPayload(`[{"id":1},{"id":null}]`), idAge)
	var e *errs.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, errs.ErrKindMissingRequiredField, e.Kind)
	assert.Equal(t, 2, e.Row)
}

func TestJSONDecoder_SchemaViolation(t *testing.T) {
	s := schema.MustNew(
		schema.Required("id", schema.Integer),
		schema.Optional("mass", schema.Float),
		schema.Optional("class", schema.Text),
	)

	tests := []struct {
		name    string
		payload string
		field   string
		row     int
		value   string
	}{
		{"fraction for integer", `[{"id":1.5}]`, "id", 1, "1.5"},
		{"exponent for integer", `[{"id":1},{"id":1e3}]`, "id", 2, "1e3"},
		{"overflow", `[{"id":99999999999999999999}]`, "id", 1, "99999999999999999999"},
		{"string for integer", `[{"id":"7"}]`, "id", 1, `"7"`},
		{"string for float", `[{"id":1,"mass":"33.6"}]`, "mass", 1, `"33.6"`},
		{"number for text", `[{"id":1,"class":1}]`, "class", 1, "1"},
		{"bool for integer", `[{"id":true}]`, "id", 1, "true"},
		{"object for text", `[{"id":1,"class":{"a":1}}]`, "class", 1, `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, err := NewJSONDecoder(Nulls{}).Decode(jsonPayload(tt.payload), s)
			assert.Nil(t, recs)

			var e *errs.Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, errs.ErrKindSchemaViolation, e.Kind)
			assert.Equal(t, tt.field, e.Field)
			assert.Equal(t, tt.row, e.Row)
			assert.Equal(t, tt.value, e.Value)
		})
	}
}

func TestJSONDecoder_Coercion(t *testing.T) {
	s := schema.MustNew(
		schema.Required("id", schema.Integer),
		schema.Required("mass", schema.Float),
		schema.Required("class", schema.Text),
	)
	recs, err := NewJSONDecoder(Nulls{}).Decode(
		jsonPayload(`[{"id":-3,"mass":33,"class":"tested_positive","extra":[1,2]}]`), s)
	require.NoError(t, err)

	assert.Equal(t, Record{Int(-3), Float(33), Text("tested_positive")}, recs[0])
}

func TestJSONDecoder_SourceNameMapping(t *testing.T) {
	s := schema.MustNew(schema.Required("class", schema.Text).From("Outcome"))
	recs, err := NewJSONDecoder(Nulls{}).Decode(jsonPayload(`[{"Outcome":"yes","class":"ignored"}]`), s)
	require.NoError(t, err)
	assert.Equal(t, "yes", recs[0][0].Text)
}

func TestJSONDecoder_NullTokens(t *testing.T) {
	recs, err := NewJSONDecoder(Nulls{Tokens: []string{"NA"}}).Decode(jsonPayload(`[{"id":1,"age":"NA"}]`), idAge)
	require.NoError(t, err)
	assert.Equal(t, Missing, recs[0][1])

	_, err = NewJSONDecoder(Nulls{}).Decode(jsonPayload(`[{"id":1,"age":"NA"}]`), idAge)
	assert.True(t, errs.IsSchemaViolation(err))
}

func TestJSONDecoder_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		payload *fetch.Payload
	}{
		{"not json", jsonPayload(`<html>`)},
		{"object not array", jsonPayload(`{"id":1}`)},
		{"row not object", jsonPayload(`[{"id":1},2]`)},
		{"truncated", jsonPayload(`[{"id":1},{"id":`)},
		{"empty", jsonPayload(``)},
		{"missing colon", jsonPayload(`[{"id":1,"age" 30}]`)},
		{"missing comma", jsonPayload(`[{"id":1,"age":30 "x"}]`)},
		{"trailing garbage", jsonPayload(`[{"id":1}] trailing garbage`)},
		{"leading zero", jsonPayload(`[{"id":01}]`)},
		{"trailing comma", jsonPayload(`[{"id":1,"age":30,}]`)},
		{"wrong encoding", &fetch.Payload{Encoding: fetch.EncodingCSV, Data: []byte(`[]`)}},
		{"nil", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, err := NewJSONDecoder(Nulls{}).Decode(tt.payload, idAge)
			assert.Nil(t, recs)
			assert.True(t, errs.IsMalformedPayload(err), "got %v", err)
		})
	}
}

func TestJSONDecoder_FloatPrecision(t *testing.T) {
	s := schema.MustNew(
		schema.Required("id", schema.Integer),
		schema.Optional("mass", schema.Float),
	)

	recs, err := NewJSONDecoder(Nulls{}).Decode(jsonPayload(`[{"id":1,"mass":9007199254740992}]`), s)
	require.NoError(t, err)
	assert.Equal(t, Float(9007199254740992), recs[0][1])

	_, err = NewJSONDecoder(Nulls{}).Decode(jsonPayload(`[{"id":1,"mass":9007199254740993}]`), s)
	var e *errs.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, errs.ErrKindSchemaViolation, e.Kind)
	assert.Equal(t, "mass", e.Field)
	assert.Equal(t, "9007199254740993", e.Value)
}

func TestJSONDecoder_EmptyArray(t *testing.T) {
	recs, err := NewJSONDecoder(Nulls{}).Decode(jsonPayload(` [ ] `), idAge)
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)
}

func TestJSONDecoder_UntaggedPayload(t *testing.T) {
	p := &fetch.Payload{Data: []byte(`[{"id":4}]`)}
	recs, err := NewJSONDecoder(Nulls{}).Decode(p, idAge)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestForEncoding(t *testing.T) {
	d, err := ForEncoding(fetch.EncodingJSON, Nulls{})
	require.NoError(t, err)
	assert.Equal(t, fetch.EncodingJSON, d.Encoding())

	d, err = ForEncoding(fetch.EncodingCSV, Nulls{})
	require.NoError(t, err)
	assert.Equal(t, fetch.EncodingCSV, d.Encoding())

	_, err = ForEncoding("parquet", Nulls{})
	assert.True(t, errs.IsInvalidInput(err))
}
