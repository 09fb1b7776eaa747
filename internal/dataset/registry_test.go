package dataset

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/koustreak/datri-datasets/internal/errs"
	"github.com/koustreak/datri-datasets/internal/fetch"
	"github.com/koustreak/datri-datasets/internal/generate"
	"github.com/koustreak/datri-datasets/internal/logger"
	"github.com/koustreak/datri-datasets/internal/record"
	"github.com/koustreak/datri-datasets/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var idAge = schema.MustNew(
	schema.Required("id", schema.Integer),
	schema.Optional("age", schema.Integer),
)

// countingFetcher serves fixed payloads by locator and counts calls.
type countingFetcher struct {
	calls    atomic.Int64
	payloads map[fetch.Locator]string
}

func (f *countingFetcher) Fetch(_ context.Context, loc fetch.Locator) (*fetch.Payload, error) {
	f.calls.Add(1)
	body, ok := f.payloads[loc]
	if !ok {
		return nil, errs.HTTPStatus(http.StatusNotFound, loc.String())
	}
	return &fetch.Payload{Encoding: fetch.EncodingFromPath(loc.String()), Data: []byte(body), Source: loc.String()}, nil
}

func jsonProvider(name string, loc fetch.Locator) Provider {
	return Provider{Name: name, Locator: loc, Schema: idAge, Decoder: record.NewJSONDecoder(record.Nulls{})}
}

func TestRegistry_Load(t *testing.T) {
	f := &countingFetcher{payloads: map[fetch.Locator]string{
		"https://data.test/people.json": `[{"id":1,"age":30},{"id":2,"age":null}]`,
	}}
	reg, err := NewRegistry(f, nil, jsonProvider("people", "https://data.test/people.json"))
	require.NoError(t, err)

	tbl, err := reg.Load(context.Background(), "people")
	require.NoError(t, err)
	defer tbl.Release()

	assert.Equal(t, 2, tbl.NumRows())
	assert.Equal(t, []string{"id", "age"}, tbl.ColumnNames())

	ids, err := tbl.Int64("id")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids.Int64Values())

	ages, err := tbl.Int64("age")
	require.NoError(t, err)
	assert.Equal(t, int64(30), ages.Value(0))
	assert.True(t, ages.IsNull(1))
}

func TestRegistry_UnknownDatasetDoesNotFetch(t *testing.T) {
	f := &countingFetcher{}
	reg, err := NewRegistry(f, nil, jsonProvider("people", "https://data.test/people.json"))
	require.NoError(t, err)

	tbl, err := reg.Load(context.Background(), "unknown-name")
	assert.Nil(t, tbl)
	assert.True(t, errs.IsUnknownDataset(err))
	assert.Equal(t, int64(0), f.calls.Load())
}

func TestRegistry_HTTPStatusBecomesFetchFailed(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	reg, err := NewRegistry(fetch.NewHTTPFetcher(srv.Client(), nil), nil,
		jsonProvider("people", fetch.Locator(srv.URL+"/people.json")))
	require.NoError(t, err)

	_, err = reg.Load(context.Background(), "people")
	require.Error(t, err)

	var e *errs.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, errs.ErrKindFetchFailed, e.Kind)
	assert.Equal(t, "people", e.Dataset)

	assert.True(t, errs.IsHTTPStatus(err))
	code, ok := errs.StatusCode(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestRegistry_DecodeFailed(t *testing.T) {
	f := &countingFetcher{payloads: map[fetch.Locator]string{
		"https://data.test/people.json": `[{"id":1},{"age":5}]`,
	}}
	reg, err := NewRegistry(f, nil, jsonProvider("people", "https://data.test/people.json"))
	require.NoError(t, err)

	_, err = reg.Load(context.Background(), "people")

	var e *errs.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, errs.ErrKindDecodeFailed, e.Kind)
	assert.True(t, errs.IsMissingRequiredField(err))
	assert.False(t, errs.IsFetchFailed(err))
	assert.Contains(t, err.Error(), `row 2: required field "id" is missing`)
}

func TestRegistry_ConcurrentLoads(t *testing.T) {
	payloads := make(map[fetch.Locator]string)
	var providers []Provider
	for i := range 8 {
		loc := fetch.Locator(fmt.Sprintf("https://data.test/set%d.json", i))
		var buf bytes.Buffer
		buf.WriteString("[")
		for r := range i + 1 {
			if r > 0 {
				buf.WriteString(",")
			}
			fmt.Fprintf(&buf, `{"id":%d,"age":%d}`, r, i)
		}
		buf.WriteString("]")
		payloads[loc] = buf.String()
		providers = append(providers, jsonProvider(fmt.Sprintf("set%d", i), loc))
	}
	reg, err := NewRegistry(&countingFetcher{payloads: payloads}, nil, providers...)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for round := range 4 {
		for i := range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				tbl, err := reg.Load(context.Background(), fmt.Sprintf("set%d", i))
				if !assert.NoError(t, err, "round %d", round) {
					return
				}
				defer tbl.Release()
				assert.Equal(t, i+1, tbl.NumRows())
				ages, _ := tbl.Int64("age")
				for _, v := range ages.Int64Values() {
					assert.Equal(t, int64(i), v)
				}
			}()
		}
	}
	wg.Wait()
}

func TestRegistry_Synthetic(t *testing.T) {
	spec := &generate.Spec{
		Rows: 10,
		Seed: 1,
		Columns: []generate.Column{
			{Name: "id", Dist: generate.Sequence{}},
			{Name: "x", Dist: generate.Normal{StdDev: 1}},
		},
	}
	reg, err := NewRegistry(nil, nil, Provider{Name: "noise", Generator: spec})
	require.NoError(t, err)

	p, ok := reg.Provider("noise")
	require.True(t, ok)
	assert.Equal(t, []string{"id", "x"}, p.Schema.Names())

	a, err := reg.Load(context.Background(), "noise")
	require.NoError(t, err)
	defer a.Release()
	b, err := reg.Load(context.Background(), "noise")
	require.NoError(t, err)
	defer b.Release()

	assert.Equal(t, 10, a.NumRows())
	assert.True(t, a.Equal(b))
}

func TestRegistry_SyntheticSpecIsolated(t *testing.T) {
	spec := &generate.Spec{
		Rows: 4,
		Seed: 7,
		Columns: []generate.Column{
			{Name: "id", Dist: generate.Sequence{}},
			{Name: "class", Dist: generate.Categorical{Levels: []string{"a", "b"}}},
		},
	}
	reg, err := NewRegistry(nil, nil, Provider{Name: "cats", Generator: spec})
	require.NoError(t, err)

	spec.Rows = 99
	spec.Columns[0].Dist = generate.Normal{StdDev: 1}

	p, ok := reg.Provider("cats")
	require.True(t, ok)
	p.Generator.Rows = 50
	p.Generator.Columns[1].Dist.(generate.Categorical).Levels[0] = "z"

	tbl, err := reg.Load(context.Background(), "cats")
	require.NoError(t, err)
	defer tbl.Release()

	assert.Equal(t, 4, tbl.NumRows())
	ids, err := tbl.Int64("id")
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 1, 2, 3}, ids.Int64Values())
	for row := 0; row < tbl.NumRows(); row++ {
		v, err := tbl.Value(row, "class")
		require.NoError(t, err)
		assert.Contains(t, []string{"a", "b"}, v.Text)
	}
}

func TestNewRegistry_Rejects(t *testing.T) {
	f := &countingFetcher{}
	good := jsonProvider("a", "https://data.test/a.json")

	tests := []struct {
		name      string
		fetcher   fetch.Fetcher
		providers []Provider
	}{
		{"duplicate", f, []Provider{good, good}},
		{"no name", f, []Provider{{Locator: "https://x/a.json", Schema: idAge, Decoder: record.NewJSONDecoder(record.Nulls{})}}},
		{"no locator", f, []Provider{{Name: "a", Schema: idAge, Decoder: record.NewJSONDecoder(record.Nulls{})}}},
		{"no schema", f, []Provider{{Name: "a", Locator: "https://x/a.json", Decoder: record.NewJSONDecoder(record.Nulls{})}}},
		{"no decoder", f, []Provider{{Name: "a", Locator: "https://x/a.json", Schema: idAge}}},
		{"bad locator", f, []Provider{jsonProvider("a", "no-scheme/a.json")}},
		{"no fetcher", nil, []Provider{good}},
		{"bad generator", nil, []Provider{{Name: "g", Generator: &generate.Spec{Rows: -1}}}},
		{"generator with locator", nil, []Provider{{
			Name: "g", Locator: "https://x/a.json",
			Generator: &generate.Spec{Rows: 1, Columns: []generate.Column{{Name: "id", Dist: generate.Sequence{}}}},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, err := NewRegistry(tt.fetcher, nil, tt.providers...)
			assert.Nil(t, reg)
			assert.True(t, errs.IsInvalidInput(err), "got %v", err)
		})
	}
}

func TestRegistry_Names(t *testing.T) {
	reg, err := NewRegistry(&countingFetcher{}, logger.Nop(), Builtin("")...)
	require.NoError(t, err)

	names := reg.Names()
	assert.Equal(t, []string{"diabetes", "diabetes-csv"}, names)

	names[0] = "mutated"
	assert.Equal(t, "diabetes", reg.Names()[0])
}

func TestBuiltin(t *testing.T) {
	ps := Builtin("https://mirror.test/datasets/")
	require.Len(t, ps, 2)

	assert.Equal(t, fetch.Locator("https://mirror.test/datasets/diabetes/diabetes.json"), ps[0].Locator)
	assert.Equal(t, fetch.EncodingJSON, ps[0].Decoder.Encoding())
	assert.Equal(t, fetch.Locator("https://mirror.test/datasets/diabetes/diabetes.csv"), ps[1].Locator)
	assert.Equal(t, fetch.EncodingCSV, ps[1].Decoder.Encoding())

	s := DiabetesSchema()
	assert.Equal(t, []string{"id", "preg", "plas", "pres", "skin", "insu", "mass", "pedi", "age", "class"}, s.Names())
	assert.False(t, s.Field(0).Nullable)
	for _, f := range s.Fields()[1:] {
		assert.True(t, f.Nullable, f.Name)
	}
}

func TestBuiltin_LoadsBothEncodings(t *testing.T) {
	f := &countingFetcher{payloads: map[fetch.Locator]string{
		DefaultBaseURL + "/diabetes/diabetes.json": `[
			{"id":1,"preg":6,"plas":148,"pres":72,"skin":35,"insu":null,"mass":33.6,"pedi":0.627,"age":50,"class":"tested_positive"},
			{"id":2,"preg":1,"plas":85,"pres":66,"skin":29,"mass":26.6,"pedi":0.351,"age":31,"class":"tested_negative"}
		]`,
		DefaultBaseURL + "/diabetes/diabetes.csv": "id,preg,plas,pres,skin,insu,mass,pedi,age,class\n" +
			"1,6,148,72,35,,33.6,0.627,50,tested_positive\n" +
			"2,1,85,66,29,,26.6,0.351,31,tested_negative\n",
	}}
	reg, err := NewRegistry(f, nil, Builtin("")...)
	require.NoError(t, err)

	fromJSON, err := reg.Load(context.Background(), "diabetes")
	require.NoError(t, err)
	defer fromJSON.Release()
	fromCSV, err := reg.Load(context.Background(), "diabetes-csv")
	require.NoError(t, err)
	defer fromCSV.Release()

	assert.True(t, fromJSON.Equal(fromCSV))
	v, err := fromJSON.Value(0, "insu")
	require.NoError(t, err)
	assert.False(t, v.Valid)
}
