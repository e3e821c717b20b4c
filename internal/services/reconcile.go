package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/finbridge/binancepay-gateway/internal/binance"
	"github.com/finbridge/binancepay-gateway/internal/domain"
	"github.com/finbridge/binancepay-gateway/internal/money"
)

// Webhook event type and business statuses acted on.
const (
	bizTypePay       = "PAY"
	bizStatusSuccess = "PAY_SUCCESS"
	bizStatusClosed  = "PAY_CLOSED"
)

// Compare-and-set predicates for the two reconciliation outcomes, derived
// from the domain transition rules.
var (
	completionSources = domain.TransitionSources(domain.StatusCompleted)
	failureSources    = domain.TransitionSources(domain.StatusFailed)
)

// BizID is the prepay id a webhook event refers to. The processor encodes it
// as a JSON number; some senders quote it. Both forms are accepted.
type BizID string

func (b *BizID) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*b = BizID(n.String())
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*b = BizID(s)
	return nil
}

// WebhookEvent is the decoded webhook body. Data arrives either as an inline
// object or as a string containing JSON, depending on the sender.
type WebhookEvent struct {
	BizType   string          `json:"bizType"`
	BizID     BizID           `json:"bizId"`
	BizStatus string          `json:"bizStatus"`
	Data      json.RawMessage `json:"data"`
}

// PrepayID returns the prepay id the event refers to.
func (e *WebhookEvent) PrepayID() string {
	return string(e.BizID)
}

// paymentData is the PAY_SUCCESS transaction payload.
type paymentData struct {
	TotalFee      json.Number     `json:"totalFee"`
	Commission    json.Number     `json:"commission"`
	OpenUserID    string          `json:"openUserId"`
	TransactionID string          `json:"transactionId"`
	TransactTime  json.Number     `json:"transactTime"`
	PaymentInfo   json.RawMessage `json:"paymentInfo"`
}

// ReconcileService translates processor order and webhook statuses into order
// lifecycle transitions. All transitions go through the store's
// compare-and-set, so both triggers are safe to invoke repeatedly for the
// same order.
type ReconcileService struct {
	orders domain.OrderStore
	pay    PaymentClient
	logger *slog.Logger
}

func NewReconcileService(orders domain.OrderStore, pay PaymentClient, logger *slog.Logger) *ReconcileService {
	return &ReconcileService{orders: orders, pay: pay, logger: logger}
}

// Poll queries the processor for the order's current status and applies the
// resulting transition. Orders already terminal or processing are skipped
// without a remote call, as are orders that were never submitted to the
// processor.
func (s *ReconcileService) Poll(ctx context.Context, orderID string) error {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if o.Status.Terminal() || o.Status == domain.StatusProcessing {
		return nil
	}
	prepayID := o.PrepayID()
	if prepayID == "" {
		return nil
	}

	res, err := s.pay.QueryOrder(ctx, prepayID, "")
	if err != nil {
		return fmt.Errorf("querying order %s: %w", orderID, err)
	}

	switch res.Status {
	case binance.OrderStatusPaid:
		meta := map[string]string{
			domain.MetaTransactionID: res.TransactionID,
			domain.MetaPaidAmount:    canonicalAmount(res.OrderAmount),
			domain.MetaTradeNo:       res.MerchantTradeNo,
			domain.MetaOpenUserID:    res.OpenUserID,
		}
		note := "Payment confirmed by order query. TransactionId: " + res.TransactionID
		applied, err := s.orders.Transition(ctx, orderID, completionSources, domain.StatusCompleted, meta, note)
		if err != nil {
			return err
		}
		if !applied {
			s.logger.Debug("poll transition lost the race, order already advanced", "order_id", orderID)
		}

	case binance.OrderStatusCanceled, binance.OrderStatusExpired, binance.OrderStatusError:
		note := "Payment " + strings.ToLower(res.Status) + " on processor side."
		if _, err := s.orders.Transition(ctx, orderID, failureSources, domain.StatusFailed, nil, note); err != nil {
			return err
		}

	default:
		// INITIAL, PENDING and anything unrecognized: no transition.
	}
	return nil
}

// HandleWebhook applies a verified webhook notification to the matching
// order. Events of the wrong type are ignored; replays of the same event are
// no-ops because the transition is guarded by the order's current status.
func (s *ReconcileService) HandleWebhook(ctx context.Context, event *WebhookEvent) error {
	if event.BizType != bizTypePay {
		s.logger.Debug("ignoring webhook event of wrong type", "biz_type", event.BizType)
		return nil
	}

	o, err := s.orders.FindByPrepayID(ctx, event.PrepayID())
	if err != nil {
		return err
	}

	switch event.BizStatus {
	case bizStatusClosed:
		_, err := s.orders.Transition(ctx, o.ID, failureSources, domain.StatusFailed, nil, "Payment failed/rejected.")
		return err

	case bizStatusSuccess:
		var data paymentData
		if err := decodePaymentData(event.Data, &data); err != nil {
			return fmt.Errorf("decoding webhook payment data: %w", err)
		}
		meta := map[string]string{
			domain.MetaTotalFee:      data.TotalFee.String(),
			domain.MetaCommission:    data.Commission.String(),
			domain.MetaOpenUserID:    data.OpenUserID,
			domain.MetaTransactionID: data.TransactionID,
			domain.MetaTransactTime:  data.TransactTime.String(),
			domain.MetaPaymentInfo:   string(data.PaymentInfo),
		}
		note := "Payment successful. TransactionId: " + data.TransactionID
		applied, err := s.orders.Transition(ctx, o.ID, completionSources, domain.StatusCompleted, meta, note)
		if err != nil {
			return err
		}
		if !applied {
			s.logger.Debug("webhook transition was a no-op, order already advanced", "order_id", o.ID)
		}
		return nil

	default:
		return nil
	}
}

// canonicalAmount normalizes a processor amount string to the gateway's
// fixed-point form, dropping trailing zeros. Unparseable values are stored
// as received rather than lost.
func canonicalAmount(s string) string {
	n, err := money.Parse(s)
	if err != nil {
		return s
	}
	return n.String()
}

// decodePaymentData handles both the inline-object and the string-wrapped
// forms the processor uses for the data field.
func decodePaymentData(raw json.RawMessage, out *paymentData) error {
	if len(raw) == 0 {
		return errors.New("empty data field")
	}
	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return err
		}
		raw = json.RawMessage(inner)
	}
	return json.Unmarshal(raw, out)
}
