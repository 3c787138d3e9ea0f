package gh

import (
	"errors"
	"fmt"
)

// ErrMalformedBody is returned when a 200 JSON response cannot be decoded.
var ErrMalformedBody = errors.New("malformed response body")

// NetworkError wraps transport-level failures (DNS, connection reset, timeout).
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// HTTPStatusError is returned when the tracker answers with a status other than 200.
type HTTPStatusError struct {
	URL  string
	Code int
	Body string
}

func (e *HTTPStatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("request failed: status code %d - %s", e.Code, e.Body)
	}
	return fmt.Sprintf("request failed: status code %d", e.Code)
}

// ContentTypeError is returned when a 200 response does not declare a JSON media type.
type ContentTypeError struct {
	URL  string
	Type string
}

func (e *ContentTypeError) Error() string {
	return fmt.Sprintf("invalid content-type %q", e.Type)
}
