package fetch

import (
	"context"
	"errors"
	"net"

	"github.com/koustreak/datri-datasets/internal/errs"
)

// mapError translates a transport error into a *errs.Error.
// It mirrors the mapError pattern of the storage drivers.
func mapError(err error, msg string) *errs.Error {
	if err == nil {
		return nil
	}

	// Already classified by a lower layer
	var e *errs.Error
	if errors.As(err, &e) {
		return e
	}

	// Context cancellation / deadline
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	// Transport-level timeouts (http.Client.Timeout, dial deadline)
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	// DNS failure, refused connection, reset stream
	return errs.Wrap(errs.ErrKindUnreachable, msg, err)
}
