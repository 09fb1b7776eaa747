package fetch

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/koustreak/datri-datasets/internal/errs"
	"github.com/koustreak/datri-datasets/internal/filestore"
	"github.com/koustreak/datri-datasets/internal/logger"
)

// ObjectFetcher reads payloads from an object store.
// Locators have the form s3://bucket/path/to/object.json.
type ObjectFetcher struct {
	store filestore.Store
	log   *logger.Logger
}

// NewObjectFetcher returns a fetcher backed by store.
func NewObjectFetcher(store filestore.Store, log *logger.Logger) *ObjectFetcher {
	return &ObjectFetcher{store: store, log: logger.OrNop(log)}
}

// Fetch implements Fetcher.
func (f *ObjectFetcher) Fetch(ctx context.Context, loc Locator) (*Payload, error) {
	u, err := loc.URL()
	if err != nil {
		return nil, err
	}
	bucket, key := u.Host, strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("locator %q needs a bucket and a key", loc))
	}

	obj, err := f.store.GetObject(ctx, bucket, key)
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("get %s", loc))
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("read %s", loc))
	}

	enc := EncodingFromPath(key)
	if enc == "" {
		enc = encodingFromContentType(obj.Info().ContentType)
	}

	f.log.DebugWith("fetched", map[string]any{"locator": loc.String(), "bytes": len(data)})

	return &Payload{Encoding: enc, Data: data, Source: loc.String()}, nil
}

func encodingFromContentType(ct string) string {
	switch {
	case strings.HasPrefix(ct, "application/json"):
		return EncodingJSON
	case strings.HasPrefix(ct, "text/csv"):
		return EncodingCSV
	}
	return ""
}
