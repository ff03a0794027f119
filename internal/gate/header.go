package gate

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidInput indicates a nil response or an empty header name.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound indicates the response carries no change token header.
	ErrNotFound = errors.New("not found")
)

const (
	// HeaderLastModified carries the change token of a whole feed.
	HeaderLastModified = "Last-Modified"

	// HeaderETag carries the change token of a single datastream.
	HeaderETag = "ETag"
)

// HeaderName returns the header holding the change token for a request
// that targets a single datastream (single) or a whole feed.
func HeaderName(single bool) string {
	if single {
		return HeaderETag
	}
	return HeaderLastModified
}

// headerValue returns the first value of headerName. Matching is
// case-insensitive.
func headerValue(resp *http.Response, headerName string) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("%w: response is nil", ErrInvalidInput)
	}

	if headerName == "" {
		return "", fmt.Errorf("%w: header name cannot be empty", ErrInvalidInput)
	}

	value := resp.Header.Get(headerName)
	if value == "" {
		return "", fmt.Errorf("%w: %s header", ErrNotFound, headerName)
	}

	return value, nil
}

// IsNotFound reports whether err means the token header was missing.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
