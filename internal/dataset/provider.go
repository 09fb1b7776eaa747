package dataset

import (
	"fmt"

	"github.com/koustreak/datri-datasets/internal/errs"
	"github.com/koustreak/datri-datasets/internal/fetch"
	"github.com/koustreak/datri-datasets/internal/generate"
	"github.com/koustreak/datri-datasets/internal/record"
	"github.com/koustreak/datri-datasets/internal/schema"
)

// Provider binds a dataset name to where and how its table is produced.
//
// A fetched provider sets Locator, Schema and Decoder. A synthetic provider
// sets Generator only; its Schema is derived from the generator spec when it
// is registered.
type Provider struct {
	Name        string
	Description string

	Locator fetch.Locator
	Schema  *schema.Schema
	Decoder record.Decoder

	Generator *generate.Spec
}

// Synthetic reports whether the provider generates instead of fetching.
func (p Provider) Synthetic() bool { return p.Generator != nil }

// Validate checks that exactly one production path is fully declared.
func (p Provider) Validate() error {
	if p.Name == "" {
		return errs.New(errs.ErrKindInvalidInput, "provider has no name")
	}
	if p.Synthetic() {
		if p.Locator != "" || p.Decoder != nil {
			return errs.New(errs.ErrKindInvalidInput,
				fmt.Sprintf("provider %q: a synthetic provider takes no locator or decoder", p.Name))
		}
		if err := p.Generator.Validate(); err != nil {
			return errs.Wrap(errs.ErrKindInvalidInput, fmt.Sprintf("provider %q", p.Name), err)
		}
		return nil
	}

	switch {
	case p.Locator == "":
		return errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("provider %q has no locator", p.Name))
	case p.Schema == nil:
		return errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("provider %q has no schema", p.Name))
	case p.Decoder == nil:
		return errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("provider %q has no decoder", p.Name))
	}
	if _, err := p.Locator.URL(); err != nil {
		return errs.Wrap(errs.ErrKindInvalidInput, fmt.Sprintf("provider %q", p.Name), err)
	}
	return nil
}
