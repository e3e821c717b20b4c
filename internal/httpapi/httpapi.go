// Package httpapi holds the pieces shared by the outbound API clients: the
// transport abstraction and the typed errors mapped from non-2xx responses.
package httpapi

import (
	"fmt"
	"net/http"
)

// Doer issues a single HTTP request. *http.Client satisfies it; tests inject
// doubles. Timeouts, TLS and pooling are the transport's responsibility.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RequestError is a non-2xx response from a remote API. It keeps the raw
// response body for diagnostics.
type RequestError struct {
	Method string
	URL    string
	Status int
	Body   string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("error during %s to %s: got response (%d): %s", e.Method, e.URL, e.Status, e.Body)
}

// BadRequestError is a remote 400.
type BadRequestError struct {
	*RequestError
}

func (e *BadRequestError) Unwrap() error { return e.RequestError }

// ForbiddenError is a remote 403.
type ForbiddenError struct {
	*RequestError
}

func (e *ForbiddenError) Unwrap() error { return e.RequestError }

// StatusError maps a non-2xx response to its typed error: 400 and 403 get
// dedicated types, everything else the generic RequestError.
func StatusError(method, url string, status int, body []byte) error {
	re := &RequestError{Method: method, URL: url, Status: status, Body: string(body)}
	switch status {
	case http.StatusBadRequest:
		return &BadRequestError{re}
	case http.StatusForbidden:
		return &ForbiddenError{re}
	default:
		return re
	}
}
