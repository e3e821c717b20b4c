package binance

import (
	"context"

	"github.com/finbridge/binancepay-gateway/internal/domain"
)

type certificateRecord struct {
	CertSerial string `json:"certSerial"`
	CertPublic string `json:"certPublic"`
}

// FetchCertificate issues a signed POST with an empty JSON body to the
// certificate endpoint and returns the first certificate record. It performs
// no caching; the caller persists the result.
func (c *Client) FetchCertificate(ctx context.Context) (*domain.Certificate, error) {
	var records []certificateRecord
	if err := c.post(ctx, "certificates", struct{}{}, &records); err != nil {
		return nil, err
	}
	if len(records) == 0 || records[0].CertSerial == "" || records[0].CertPublic == "" {
		return nil, &CertificateFetchError{Reason: "response contained no usable certificate"}
	}
	return &domain.Certificate{
		Serial:    records[0].CertSerial,
		PublicKey: records[0].CertPublic,
	}, nil
}
