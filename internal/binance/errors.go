package binance

import (
	"errors"
	"fmt"
)

// MissingIdentifierError means QueryOrder was called with neither a prepay id
// nor a merchant trade number. Raised before any network call.
type MissingIdentifierError struct{}

func (*MissingIdentifierError) Error() string {
	return "either a prepayId or a merchantTradeNo is required"
}

// CertificateFetchError means the certificate endpoint answered without a
// usable certificate record.
type CertificateFetchError struct {
	Reason string
}

func (e *CertificateFetchError) Error() string {
	return fmt.Sprintf("fetching certificate: %s", e.Reason)
}

// APIError is a FAIL envelope returned with a 2xx status, carrying the
// processor's business error code.
type APIError struct {
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("processor error [%s]: %s", e.Code, e.Message)
}

// duplicate or invalid merchantTradeNo
const codeDuplicateTradeNo = "400201"

// IsDuplicateTradeNo reports whether err is the processor rejecting a reused
// merchant trade number. Recoverable: retry the creation, which signs a fresh
// trade number.
func IsDuplicateTradeNo(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == codeDuplicateTradeNo
}
