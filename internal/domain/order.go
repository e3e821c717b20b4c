// Package domain defines the order model shared by the gateway's services
// and the ports to the caller's persistence.
package domain

import "time"

// OrderStatus represents the current state of an order in its payment lifecycle.
type OrderStatus string

const (
	StatusPending    OrderStatus = "PENDING"
	StatusProcessing OrderStatus = "PROCESSING"
	StatusCompleted  OrderStatus = "COMPLETED"
	StatusFailed     OrderStatus = "FAILED"
)

// Terminal reports whether no further transitions are allowed from s.
func (s OrderStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Metadata keys written by the gateway onto order records.
const (
	MetaPrepayID    = "binancepay_prepay_id"
	MetaCheckoutURL = "binancepay_checkout_url"
	MetaTradeNo     = "binancepay_trade_no"
	MetaCoin        = "binancepay_coin"
	MetaRate        = "binancepay_rate"
	MetaCoinAmount  = "binancepay_coin_amount"

	MetaTransactionID = "binancepay_trx_transaction_id"
	MetaPaidAmount    = "binancepay_trx_paid_amount"
	MetaTotalFee      = "binancepay_trx_total_fee"
	MetaCommission    = "binancepay_trx_commission"
	MetaOpenUserID    = "binancepay_trx_open_user_id"
	MetaTransactTime  = "binancepay_trx_transact_time"
	MetaPaymentInfo   = "binancepay_trx_payment_info"
)

// Order is the external order record the gateway reconciles. The gateway
// references it but does not own it: persistence and the status write rules
// live behind OrderStore.
type Order struct {
	ID       string
	Ref      string // merchant-facing order number
	Amount   float64
	Currency string

	Status   OrderStatus
	Metadata map[string]string
	Notes    []string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PrepayID returns the processor-assigned order handle, or "" when the order
// was never submitted to the processor.
func (o *Order) PrepayID() string {
	return o.Metadata[MetaPrepayID]
}

// CanTransitionTo validates whether the order can move from its current
// status to the target status.
//
// Valid transitions are:
//   - Pending → Processing, Completed, Failed
//   - Processing → Completed, Failed
//
// Completed and Failed are terminal and allow no further transitions.
func (o *Order) CanTransitionTo(target OrderStatus) error {
	switch o.Status {
	case StatusCompleted, StatusFailed:
		return NewInvalidTransitionError(o.Status, target)

	case StatusPending:
		if target == StatusProcessing || target == StatusCompleted || target == StatusFailed {
			return nil
		}

	case StatusProcessing:
		if target == StatusCompleted || target == StatusFailed {
			return nil
		}
	}
	return NewInvalidTransitionError(o.Status, target)
}

var orderStatuses = []OrderStatus{StatusPending, StatusProcessing, StatusCompleted, StatusFailed}

// TransitionSources returns every status an order may move to target from.
// Status writers pass this as the compare-and-set predicate, so the write
// rules and CanTransitionTo cannot diverge.
func TransitionSources(target OrderStatus) []OrderStatus {
	var from []OrderStatus
	for _, s := range orderStatuses {
		o := Order{Status: s}
		if o.CanTransitionTo(target) == nil {
			from = append(from, s)
		}
	}
	return from
}
