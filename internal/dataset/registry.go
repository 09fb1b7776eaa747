// Package dataset is the entry point of the acquisition pipeline.
//
// A Registry maps dataset names to Providers and runs
// fetch → decode → materialize for one name per Load call:
//
//	reg, err := dataset.NewRegistry(fetcher, log, dataset.Builtin(dataset.DefaultBaseURL)...)
//	if err != nil { ... }
//	tbl, err := reg.Load(ctx, "diabetes")
//	if err != nil { ... }
//	defer tbl.Release()
//
// The Registry is built once at startup and never mutated afterwards, so it is
// shared between goroutines without locking. Every Load allocates its own
// payload, records and table.
package dataset

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/koustreak/datri-datasets/internal/errs"
	"github.com/koustreak/datri-datasets/internal/fetch"
	"github.com/koustreak/datri-datasets/internal/generate"
	"github.com/koustreak/datri-datasets/internal/logger"
	"github.com/koustreak/datri-datasets/internal/table"
)

// Registry is a read-only name → Provider lookup.
type Registry struct {
	fetcher   fetch.Fetcher
	log       *logger.Logger
	providers map[string]Provider
	names     []string
}

// NewRegistry validates and registers providers. Names must be unique.
// fetcher may be nil only when every provider is synthetic.
func NewRegistry(fetcher fetch.Fetcher, log *logger.Logger, providers ...Provider) (*Registry, error) {
	r := &Registry{
		fetcher:   fetcher,
		log:       logger.OrNop(log),
		providers: make(map[string]Provider, len(providers)),
	}

	for _, p := range providers {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.providers[p.Name]; dup {
			return nil, errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("dataset %q registered twice", p.Name))
		}
		if p.Synthetic() {
			spec := p.Generator.Clone()
			p.Generator = &spec
			s, err := spec.Schema()
			if err != nil {
				return nil, err
			}
			p.Schema = s
		} else if fetcher == nil {
			return nil, errs.New(errs.ErrKindInvalidInput,
				fmt.Sprintf("dataset %q needs a fetcher but none was given", p.Name))
		}
		r.providers[p.Name] = p
		r.names = append(r.names, p.Name)
	}
	slices.Sort(r.names)

	return r, nil
}

// Names returns the registered dataset names in lexical order.
func (r *Registry) Names() []string {
	return slices.Clone(r.names)
}

// Provider returns the provider registered under name. A synthetic
// provider's generator spec is a copy; changing it does not affect the registry.
func (r *Registry) Provider(name string) (Provider, bool) {
	p, ok := r.providers[name]
	if ok && p.Synthetic() {
		spec := p.Generator.Clone()
		p.Generator = &spec
	}
	return p, ok
}

// Load produces the table for name. An unknown name fails with
// UnknownDataset before any I/O. Fetch and decode failures are wrapped in
// FetchFailed and DecodeFailed with the original error as cause.
//
// Load makes exactly one fetch attempt; bound its latency through ctx or the
// fetcher's transport.
func (r *Registry) Load(ctx context.Context, name string) (*table.Table, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, errs.UnknownDataset(name)
	}

	log := r.log.With().Str("dataset", name).Str("load_id", uuid.NewString()).Logger()
	start := time.Now()

	if p.Synthetic() {
		log.Debug("generating dataset")
		tbl, err := generate.Generate(*p.Generator)
		if err != nil {
			err = errs.Load(errs.ErrKindInvalidInput, name, err)
			log.ErrorWith("generate failed", err, nil)
			return nil, err
		}
		log.InfoWith("dataset generated", map[string]any{
			"rows":     tbl.NumRows(),
			"cols":     tbl.NumCols(),
			"duration": time.Since(start).String(),
		})
		return tbl, nil
	}

	log.DebugWith("loading dataset", map[string]any{"locator": p.Locator.String()})

	payload, err := r.fetcher.Fetch(ctx, p.Locator)
	if err != nil {
		err = errs.Load(errs.ErrKindFetchFailed, name, err)
		log.ErrorWith("fetch failed", err, map[string]any{"locator": p.Locator.String()})
		return nil, err
	}

	records, err := p.Decoder.Decode(payload, p.Schema)
	if err != nil {
		err = errs.Load(errs.ErrKindDecodeFailed, name, err)
		log.ErrorWith("decode failed", err, map[string]any{"bytes": len(payload.Data)})
		return nil, err
	}

	tbl, err := table.Materialize(records, p.Schema)
	if err != nil {
		err = errs.Load(errs.ErrKindDecodeFailed, name, err)
		log.ErrorWith("materialize failed", err, nil)
		return nil, err
	}

	log.InfoWith("dataset loaded", map[string]any{
		"rows":     tbl.NumRows(),
		"cols":     tbl.NumCols(),
		"bytes":    len(payload.Data),
		"duration": time.Since(start).String(),
	})
	return tbl, nil
}
