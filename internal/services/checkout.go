// Package services wires the gateway's use cases: creating processor orders
// at checkout, reconciling order state from polls and webhooks, and managing
// the webhook-signing certificate.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/finbridge/binancepay-gateway/internal/binance"
	"github.com/finbridge/binancepay-gateway/internal/domain"
	"github.com/finbridge/binancepay-gateway/internal/money"
)

// DefaultSettlementCoin is the coin orders are settled in when none is
// configured.
const DefaultSettlementCoin = "USDT"

// CheckoutCommand carries the inputs for creating a processor order.
type CheckoutCommand struct {
	OrderID   string
	OrderRef  string
	Amount    float64
	Currency  string
	ReturnURL string
	CancelURL string
}

// CheckoutResult is what the caller needs to redirect the customer.
type CheckoutResult struct {
	PrepayID    string
	CheckoutURL string
	Coin        string
	CoinAmount  string
	Rate        float64
}

type CheckoutService struct {
	orders domain.OrderStore
	rates  RateSource
	pay    PaymentClient
	coin   string
	logger *slog.Logger
}

func NewCheckoutService(
	orders domain.OrderStore,
	rates RateSource,
	pay PaymentClient,
	coin string,
	logger *slog.Logger,
) *CheckoutService {
	if coin == "" {
		coin = DefaultSettlementCoin
	}
	return &CheckoutService{
		orders: orders,
		rates:  rates,
		pay:    pay,
		coin:   coin,
		logger: logger,
	}
}

// CreateOrder converts the order total into the settlement coin, creates the
// order on the processor and stores the returned handles on the order record.
//
// A missing exchange rate aborts the attempt: an unconverted amount is never
// submitted. Every call creates a fresh processor order under a fresh trade
// number; deduplicating against an earlier non-terminal attempt is left to
// the caller.
func (s *CheckoutService) CreateOrder(ctx context.Context, cmd CheckoutCommand) (*CheckoutResult, error) {
	rate, err := s.rates.Rate(ctx, s.coin, cmd.Currency)
	if err != nil {
		return nil, fmt.Errorf("aborting checkout: %w", err)
	}

	total, err := money.ParseFloat(cmd.Amount)
	if err != nil {
		return nil, err
	}
	rateNum, err := money.ParseFloat(rate)
	if err != nil {
		return nil, err
	}
	coinAmount, err := total.Div(rateNum)
	if err != nil {
		return nil, err
	}
	if coinAmount.IsZero() {
		return nil, fmt.Errorf("%w: %v %s converts to zero %s", money.ErrInvalidNumber, cmd.Amount, cmd.Currency, s.coin)
	}

	remote, err := s.pay.CreateOrder(ctx, binance.CreateOrderParams{
		ReturnURL: cmd.ReturnURL,
		CancelURL: cmd.CancelURL,
		Amount:    coinAmount,
		Currency:  s.coin,
		OrderRef:  cmd.OrderRef,
	})
	if err != nil {
		return nil, err
	}

	meta := map[string]string{
		domain.MetaPrepayID:    remote.PrepayID,
		domain.MetaCheckoutURL: remote.CheckoutURL,
		domain.MetaTradeNo:     remote.TradeNo,
		domain.MetaCoin:        s.coin,
		domain.MetaRate:        strconv.FormatFloat(rate, 'f', -1, 64),
		domain.MetaCoinAmount:  coinAmount.String(),
	}
	if err := s.orders.SetMetadata(ctx, cmd.OrderID, meta); err != nil {
		return nil, fmt.Errorf("storing processor handles: %w", err)
	}

	s.logger.Info("created processor order",
		"order_id", cmd.OrderID,
		"prepay_id", remote.PrepayID,
		"coin", s.coin,
		"coin_amount", coinAmount.String(),
	)

	return &CheckoutResult{
		PrepayID:    remote.PrepayID,
		CheckoutURL: remote.CheckoutURL,
		Coin:        s.coin,
		CoinAmount:  coinAmount.String(),
		Rate:        rate,
	}, nil
}
