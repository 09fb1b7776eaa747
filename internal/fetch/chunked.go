package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/koustreak/datri-datasets/internal/errs"
	"github.com/koustreak/datri-datasets/internal/logger"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultChunkSize        = 4 << 20
	DefaultChunkConcurrency = 4
)

// ChunkedFetcher splits a large HTTP payload into byte-range requests and
// reassembles them in offset order. Sources that do not advertise
// "Accept-Ranges: bytes", or fit in one chunk, are fetched with one GET.
//
// Each range is requested once; any failed range fails the whole fetch.
type ChunkedFetcher struct {
	client      *http.Client
	whole       *HTTPFetcher
	chunkSize   int64
	concurrency int
	log         *logger.Logger
}

// NewChunkedFetcher returns a ChunkedFetcher. Non-positive sizes use the defaults.
func NewChunkedFetcher(client *http.Client, chunkSize int64, concurrency int, log *logger.Logger) *ChunkedFetcher {
	if client == nil {
		client = &http.Client{}
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if concurrency <= 0 {
		concurrency = DefaultChunkConcurrency
	}
	log = logger.OrNop(log)
	return &ChunkedFetcher{
		client:      client,
		whole:       NewHTTPFetcher(client, log),
		chunkSize:   chunkSize,
		concurrency: concurrency,
		log:         log,
	}
}

// Fetch implements Fetcher.
func (f *ChunkedFetcher) Fetch(ctx context.Context, loc Locator) (*Payload, error) {
	u, err := loc.URL()
	if err != nil {
		return nil, err
	}

	size, ranged, err := f.probe(ctx, u.String())
	if err != nil {
		return nil, err
	}
	if !ranged || size <= f.chunkSize {
		return f.whole.Fetch(ctx, loc)
	}

	n := int((size + f.chunkSize - 1) / f.chunkSize)
	parts := make([][]byte, n)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)
	for i := 0; i < n; i++ {
		start := int64(i) * f.chunkSize
		end := min(start+f.chunkSize, size) - 1
		g.Go(func() error {
			b, err := f.getRange(gctx, u.String(), start, end)
			if err != nil {
				return err
			}
			parts[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	data := make([]byte, 0, size)
	for _, p := range parts {
		data = append(data, p...)
	}

	f.log.DebugWith("fetched in chunks", map[string]any{
		"locator": loc.String(),
		"bytes":   len(data),
		"chunks":  n,
	})

	return &Payload{
		Encoding: EncodingFromPath(u.Path),
		Data:     data,
		Source:   loc.String(),
	}, nil
}

// probe issues a HEAD and reports the payload size and whether byte ranges
// are served. A failed HEAD is not an error: the whole GET reports it.
func (f *ChunkedFetcher) probe(ctx context.Context, url string) (int64, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return 0, false, errs.Wrap(errs.ErrKindInvalidInput, "create request", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return 0, false, mapError(err, fmt.Sprintf("HEAD %s", url))
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, false, nil
	}

	size := resp.ContentLength
	if size < 0 {
		size, err = strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64)
		if err != nil {
			return 0, false, nil
		}
	}
	ranged := strings.EqualFold(resp.Header.Get("Accept-Ranges"), "bytes")
	return size, ranged, nil
}

// getRange fetches the inclusive byte range [start, end].
func (f *ChunkedFetcher) getRange(ctx context.Context, url string, start, end int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "create request", err)
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", start, end))

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("GET %s range %d-%d", url, start, end))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusPartialContent {
		return nil, errs.HTTPStatus(resp.StatusCode, url)
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("read range %d-%d of %s", start, end, url))
	}
	if want := end - start + 1; int64(len(b)) != want {
		return nil, errs.New(errs.ErrKindUnreachable,
			fmt.Sprintf("range %d-%d of %s: got %d bytes, want %d", start, end, url, len(b), want))
	}
	return b, nil
}
