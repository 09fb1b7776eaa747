package minio

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/koustreak/datri-datasets/internal/errs"
	miniogo "github.com/minio/minio-go/v7"
)

// mapError translates a MinIO SDK error into a *errs.Error.
// S3 speaks HTTP, so server-side rejections keep their status code.
func mapError(err error, msg string) *errs.Error {
	if err == nil {
		return nil
	}

	// Context cancellation / deadline
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	var resp miniogo.ErrorResponse
	if errors.As(err, &resp) {
		code := resp.StatusCode
		if code == 0 {
			code = statusForCode(resp.Code)
		}
		switch {
		case resp.Code == "RequestTimeout":
			return errs.Wrap(errs.ErrKindTimeout, msg, err)
		case code != 0:
			e := errs.HTTPStatus(code, fmt.Sprintf("s3://%s/%s", resp.BucketName, resp.Key))
			e.Message = fmt.Sprintf("%s: %s", msg, e.Message)
			e.Cause = err
			return e
		}
	}

	// Anything else: the endpoint could not be reached
	return errs.Wrap(errs.ErrKindUnreachable, msg, err)
}

// statusForCode covers S3 error codes that arrive without a status.
func statusForCode(code string) int {
	switch code {
	case "NoSuchBucket", "NoSuchKey":
		return http.StatusNotFound
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return http.StatusForbidden
	case "InvalidBucketName", "InvalidObjectName", "KeyTooLongError":
		return http.StatusBadRequest
	}
	return 0
}
