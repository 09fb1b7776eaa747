package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/koustreak/datri-datasets/internal/errs"
	"github.com/koustreak/datri-datasets/internal/logger"
)

// HTTPFetcher retrieves a whole payload with a single GET.
// It is safe for concurrent use by multiple goroutines.
type HTTPFetcher struct {
	client *http.Client
	log    *logger.Logger
}

// NewHTTPFetcher returns a fetcher using client. A nil client gets a plain
// http.Client with no timeout; bound latency through the client or ctx.
func NewHTTPFetcher(client *http.Client, log *logger.Logger) *HTTPFetcher {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPFetcher{client: client, log: logger.OrNop(log)}
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, loc Locator) (*Payload, error) {
	u, err := loc.URL()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "create request", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("GET %s", u))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errs.HTTPStatus(resp.StatusCode, u.String())
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("read body of %s", u))
	}

	f.log.DebugWith("fetched", map[string]any{"locator": loc.String(), "bytes": len(data)})

	return &Payload{
		Encoding: EncodingFromPath(u.Path),
		Data:     data,
		Source:   loc.String(),
	}, nil
}
