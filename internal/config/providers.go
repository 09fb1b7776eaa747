package config

import (
	"fmt"

	"github.com/koustreak/datri-datasets/internal/dataset"
	"github.com/koustreak/datri-datasets/internal/errs"
	"github.com/koustreak/datri-datasets/internal/fetch"
	"github.com/koustreak/datri-datasets/internal/generate"
	"github.com/koustreak/datri-datasets/internal/record"
	"github.com/koustreak/datri-datasets/internal/schema"
)

// Providers returns the built-in catalog (if enabled) followed by the
// declared and synthetic datasets, ready for dataset.NewRegistry.
func (c *Config) Providers() ([]dataset.Provider, error) {
	var out []dataset.Provider
	if c.HTTP.Builtin {
		out = append(out, dataset.Builtin(c.HTTP.BaseURL)...)
	}
	for _, d := range c.Datasets {
		p, err := d.provider()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	for _, g := range c.Synthetic {
		p, err := g.provider()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (d DatasetConfig) provider() (dataset.Provider, error) {
	fields := make([]schema.Field, len(d.Fields))
	for i, f := range d.Fields {
		t, err := schema.ParseFieldType(f.Type)
		if err != nil {
			return dataset.Provider{}, errs.Wrap(errs.ErrKindInvalidInput,
				fmt.Sprintf("dataset %q field %q", d.Name, f.Name), err)
		}
		fields[i] = schema.Field{Name: f.Name, Type: t, Nullable: f.Nullable, Source: f.Source}
	}
	s, err := schema.New(fields...)
	if err != nil {
		return dataset.Provider{}, errs.Wrap(errs.ErrKindInvalidInput, fmt.Sprintf("dataset %q", d.Name), err)
	}

	loc := fetch.Locator(d.Locator)
	enc := d.Encoding
	if enc == "" {
		if u, err := loc.URL(); err == nil {
			enc = fetch.EncodingFromPath(u.Path)
		}
	}
	if enc == "" {
		return dataset.Provider{}, errs.New(errs.ErrKindInvalidInput,
			fmt.Sprintf("dataset %q: encoding not set and not inferable from %q", d.Name, d.Locator))
	}
	dec, err := record.ForEncoding(enc, record.Nulls{Tokens: d.Nulls})
	if err != nil {
		return dataset.Provider{}, errs.Wrap(errs.ErrKindInvalidInput, fmt.Sprintf("dataset %q", d.Name), err)
	}

	return dataset.Provider{
		Name:        d.Name,
		Description: d.Description,
		Locator:     loc,
		Schema:      s,
		Decoder:     dec,
	}, nil
}

func (g SyntheticConfig) provider() (dataset.Provider, error) {
	spec := &generate.Spec{Rows: g.Rows, Seed: g.Seed, Columns: make([]generate.Column, len(g.Columns))}
	for i, c := range g.Columns {
		dist, err := generate.NewDistribution(c.Dist, generate.Params{
			Start:   c.Start,
			Low:     c.Low,
			High:    c.High,
			Mean:    c.Mean,
			StdDev:  c.StdDev,
			Lambda:  c.Lambda,
			P:       c.P,
			Levels:  c.Levels,
			Weights: c.Weights,
		})
		if err != nil {
			return dataset.Provider{}, errs.Wrap(errs.ErrKindInvalidInput,
				fmt.Sprintf("synthetic %q column %q", g.Name, c.Name), err)
		}
		spec.Columns[i] = generate.Column{Name: c.Name, Dist: dist, MissingRate: c.MissingRate}
	}
	return dataset.Provider{Name: g.Name, Description: g.Description, Generator: spec}, nil
}
