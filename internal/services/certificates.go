package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/finbridge/binancepay-gateway/internal/domain"
)

const certificateKey = "binancepay_certificate"

// CertificateManager fetches and persists the processor's webhook-signing
// certificate. Serial and public key are stored as one settings value, so a
// refresh replaces both atomically and verification never sees a half-updated
// certificate.
type CertificateManager struct {
	settings domain.SettingsStore
	client   CertificateClient
	logger   *slog.Logger
}

func NewCertificateManager(settings domain.SettingsStore, client CertificateClient, logger *slog.Logger) *CertificateManager {
	return &CertificateManager{settings: settings, client: client, logger: logger}
}

// Refresh fetches the current certificate and replaces the stored one
// wholesale. Typically invoked on settings save or after a serial mismatch,
// not per request.
func (m *CertificateManager) Refresh(ctx context.Context) (*domain.Certificate, error) {
	cert, err := m.client.FetchCertificate(ctx)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(cert)
	if err != nil {
		return nil, fmt.Errorf("encoding certificate: %w", err)
	}
	if err := m.settings.Set(ctx, certificateKey, string(raw), 0); err != nil {
		return nil, fmt.Errorf("storing certificate: %w", err)
	}

	m.logger.Info("refreshed processor certificate", "serial", cert.Serial)
	return cert, nil
}

// Current returns the stored certificate, or nil when none has been fetched
// yet.
func (m *CertificateManager) Current(ctx context.Context) (*domain.Certificate, error) {
	raw, ok, err := m.settings.Get(ctx, certificateKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	var cert domain.Certificate
	if err := json.Unmarshal([]byte(raw), &cert); err != nil {
		return nil, fmt.Errorf("decoding stored certificate: %w", err)
	}
	return &cert, nil
}
