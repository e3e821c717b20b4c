package binance

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/finbridge/binancepay-gateway/internal/money"
)

// Remote order statuses reported by the query endpoint.
const (
	OrderStatusInitial  = "INITIAL"
	OrderStatusPending  = "PENDING"
	OrderStatusPaid     = "PAID"
	OrderStatusCanceled = "CANCELED"
	OrderStatusExpired  = "EXPIRED"
	OrderStatusError    = "ERROR"
)

type terminalEnv struct {
	TerminalType string `json:"terminalType"`
}

type goods struct {
	GoodsType        string `json:"goodsType"`
	GoodsCategory    string `json:"goodsCategory"`
	ReferenceGoodsID string `json:"referenceGoodsId"`
	GoodsName        string `json:"goodsName"`
}

type createOrderRequest struct {
	Env             terminalEnv `json:"env"`
	OrderAmount     string      `json:"orderAmount"`
	MerchantTradeNo string      `json:"merchantTradeNo"`
	Currency        string      `json:"currency"`
	Goods           goods       `json:"goods"`
	ReturnURL       string      `json:"returnUrl"`
	CancelURL       string      `json:"cancelUrl"`
}

// CreateOrderParams are the inputs for creating a processor order.
type CreateOrderParams struct {
	ReturnURL string
	CancelURL string
	Amount    money.PreciseNumber
	Currency  string
	OrderRef  string
}

// RemoteOrder is the processor's answer to a successful order creation.
type RemoteOrder struct {
	PrepayID     string `json:"prepayId"`
	TerminalType string `json:"terminalType"`
	ExpireTime   int64  `json:"expireTime"`
	QRCodeLink   string `json:"qrcodeLink"`
	QRContent    string `json:"qrContent"`
	CheckoutURL  string `json:"checkoutUrl"`
	Deeplink     string `json:"deeplink"`
	UniversalURL string `json:"universalUrl"`

	// TradeNo is the merchant trade number this order was created under.
	TradeNo string `json:"-"`
}

// CreateOrder creates a payment order on the processor. The merchant trade
// number gets a fresh random suffix on every attempt, so a retry after a
// duplicate rejection never resubmits the previous number.
func (c *Client) CreateOrder(ctx context.Context, p CreateOrderParams) (*RemoteOrder, error) {
	tradeNo := newTradeNo(p.OrderRef)
	req := createOrderRequest{
		Env:             terminalEnv{TerminalType: "WEB"},
		OrderAmount:     p.Amount.String(),
		MerchantTradeNo: tradeNo,
		Currency:        p.Currency,
		Goods: goods{
			GoodsType:        "01",
			GoodsCategory:    "0000",
			ReferenceGoodsID: p.OrderRef,
			GoodsName:        "Order " + p.OrderRef,
		},
		ReturnURL: p.ReturnURL,
		CancelURL: p.CancelURL,
	}

	var out RemoteOrder
	if err := c.post(ctx, "v2/order", req, &out); err != nil {
		return nil, err
	}
	out.TradeNo = tradeNo
	return &out, nil
}

// newTradeNo derives a merchant trade number from the order ref plus a random
// suffix. Collision-avoiding, not guaranteed unique: the processor rejecting
// a duplicate is handled by retrying with a fresh number.
func newTradeNo(orderRef string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return "wc" + orderRef + "r" + suffix
}

type queryOrderRequest struct {
	PrepayID        string `json:"prepayId,omitempty"`
	MerchantTradeNo string `json:"merchantTradeNo,omitempty"`
}

// QueryResult is the processor's order status payload, returned as-is for the
// reconciler to interpret.
type QueryResult struct {
	MerchantTradeNo string `json:"merchantTradeNo"`
	PrepayID        string `json:"prepayId"`
	TransactionID   string `json:"transactionId"`
	Status          string `json:"status"`
	Currency        string `json:"currency"`
	OrderAmount     string `json:"orderAmount"`
	OpenUserID      string `json:"openUserId"`
	CreateTime      int64  `json:"createTime"`
	TransactTime    int64  `json:"transactTime"`
}

// QueryOrder fetches the current status of an order by prepay id or merchant
// trade number. The prepay id wins when both are set; with neither, it fails
// before any network call.
func (c *Client) QueryOrder(ctx context.Context, prepayID, tradeNo string) (*QueryResult, error) {
	if prepayID == "" && tradeNo == "" {
		return nil, &MissingIdentifierError{}
	}

	req := queryOrderRequest{}
	if prepayID != "" {
		req.PrepayID = prepayID
	} else {
		req.MerchantTradeNo = tradeNo
	}

	var out QueryResult
	if err := c.post(ctx, "v2/order/query", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
