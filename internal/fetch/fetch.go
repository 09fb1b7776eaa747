// Package fetch retrieves raw dataset payloads from remote sources.
//
// A Fetcher performs exactly one attempt per call and never retries; retry
// policy belongs to the caller. All failures are *errs.Error of kind
// Unreachable, HTTPStatus, Timeout or (for SQL sources) QueryFailed; a
// locator that cannot be parsed or routed is InvalidInput.
//
// Sources are addressed by a Locator URL and dispatched by scheme:
//
//	https://host/path/data.json   HTTPFetcher or ChunkedFetcher
//	s3://bucket/key/data.csv      ObjectFetcher
//	sql://table?order=id          SQLFetcher
package fetch

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/koustreak/datri-datasets/internal/errs"
)

// Encodings recognised by EncodingFromPath.
const (
	EncodingJSON = "json"
	EncodingCSV  = "csv"
)

// Locator is the stable address of a dataset payload.
type Locator string

func (l Locator) String() string { return string(l) }

// URL parses the locator.
func (l Locator) URL() (*url.URL, error) {
	u, err := url.Parse(string(l))
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, fmt.Sprintf("invalid locator %q", l), err)
	}
	if u.Scheme == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("locator %q has no scheme", l))
	}
	return u, nil
}

// Payload is an opaque encoded blob plus an encoding tag.
type Payload struct {
	Encoding string // EncodingJSON, EncodingCSV, or "" when the source does not say
	Data     []byte
	Source   string
}

// Fetcher retrieves the payload at a locator.
type Fetcher interface {
	Fetch(ctx context.Context, loc Locator) (*Payload, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, loc Locator) (*Payload, error)

func (f FetcherFunc) Fetch(ctx context.Context, loc Locator) (*Payload, error) {
	return f(ctx, loc)
}

// Router dispatches a locator to the Fetcher registered for its scheme.
// Routes are added at startup; Fetch is safe for concurrent use afterwards.
type Router struct {
	routes map[string]Fetcher
}

// NewRouter returns an empty Router.
func NewRouter() *Router {
	return &Router{routes: make(map[string]Fetcher)}
}

// Handle registers f for scheme and returns r for chaining.
func (r *Router) Handle(scheme string, f Fetcher) *Router {
	r.routes[strings.ToLower(scheme)] = f
	return r
}

// Schemes returns the registered schemes.
func (r *Router) Schemes() []string {
	out := make([]string, 0, len(r.routes))
	for s := range r.routes {
		out = append(out, s)
	}
	return out
}

// Fetch implements Fetcher.
func (r *Router) Fetch(ctx context.Context, loc Locator) (*Payload, error) {
	u, err := loc.URL()
	if err != nil {
		return nil, err
	}
	f, ok := r.routes[strings.ToLower(u.Scheme)]
	if !ok {
		return nil, errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("no fetcher for scheme %q", u.Scheme))
	}
	return f.Fetch(ctx, loc)
}

// EncodingFromPath guesses the encoding from a file extension.
func EncodingFromPath(p string) string {
	switch strings.ToLower(path.Ext(p)) {
	case ".json":
		return EncodingJSON
	case ".csv":
		return EncodingCSV
	}
	return ""
}
