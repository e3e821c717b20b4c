package services

import (
	"context"

	"github.com/finbridge/binancepay-gateway/internal/binance"
	"github.com/finbridge/binancepay-gateway/internal/domain"
)

// PaymentClient is the port to the processor's order API.
type PaymentClient interface {
	CreateOrder(ctx context.Context, p binance.CreateOrderParams) (*binance.RemoteOrder, error)
	QueryOrder(ctx context.Context, prepayID, tradeNo string) (*binance.QueryResult, error)
}

// RateSource yields coin/fiat conversion rates.
type RateSource interface {
	Rate(ctx context.Context, coin, currency string) (float64, error)
}

// CertificateClient fetches the processor's webhook-signing certificate.
type CertificateClient interface {
	FetchCertificate(ctx context.Context) (*domain.Certificate, error)
}
