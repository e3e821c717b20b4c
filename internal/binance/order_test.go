package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finbridge/binancepay-gateway/internal/money"
)

func TestCreateOrder(t *testing.T) {
	var got createOrderRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/binancepay/openapi/v2/order", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"status":"SUCCESS","code":"000000","data":{"prepayId":"9825382937292","checkoutUrl":"https://pay.example/checkout/9825382937292","expireTime":1660000600000}}`)
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, APIKey: "k", APISecret: "s"}, nil)

	amount, err := money.ParseFloat(105.26315789)
	require.NoError(t, err)

	order, err := client.CreateOrder(context.Background(), CreateOrderParams{
		ReturnURL: "https://shop.example/return",
		CancelURL: "https://shop.example/cancel",
		Amount:    amount,
		Currency:  "USDT",
		OrderRef:  "1042",
	})
	require.NoError(t, err)

	assert.Equal(t, "WEB", got.Env.TerminalType)
	assert.Equal(t, "105.26315789", got.OrderAmount)
	assert.Equal(t, "USDT", got.Currency)
	assert.Equal(t, "01", got.Goods.GoodsType)
	assert.Equal(t, "0000", got.Goods.GoodsCategory)
	assert.Equal(t, "1042", got.Goods.ReferenceGoodsID)
	assert.Equal(t, "https://shop.example/return", got.ReturnURL)
	assert.Equal(t, "https://shop.example/cancel", got.CancelURL)

	assert.True(t, strings.HasPrefix(got.MerchantTradeNo, "wc1042r"))
	assert.Len(t, got.MerchantTradeNo, len("wc1042r")+8)

	assert.Equal(t, "9825382937292", order.PrepayID)
	assert.Equal(t, "https://pay.example/checkout/9825382937292", order.CheckoutURL)
	assert.Equal(t, got.MerchantTradeNo, order.TradeNo)
}

func TestCreateOrder_FreshTradeNoPerAttempt(t *testing.T) {
	var tradeNos []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req createOrderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		tradeNos = append(tradeNos, req.MerchantTradeNo)
		fmt.Fprint(w, `{"status":"SUCCESS","code":"000000","data":{"prepayId":"1"}}`)
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, APIKey: "k", APISecret: "s"}, nil)
	amount, err := money.ParseFloat(10)
	require.NoError(t, err)

	params := CreateOrderParams{Amount: amount, Currency: "USDT", OrderRef: "1042"}
	_, err = client.CreateOrder(context.Background(), params)
	require.NoError(t, err)
	_, err = client.CreateOrder(context.Background(), params)
	require.NoError(t, err)

	require.Len(t, tradeNos, 2)
	assert.NotEqual(t, tradeNos[0], tradeNos[1], "a retry must never resubmit the previous trade number")
}

func TestQueryOrder(t *testing.T) {
	var got queryOrderRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/binancepay/openapi/v2/order/query", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"status":"SUCCESS","code":"000000","data":{"prepayId":"9825382937292","merchantTradeNo":"wc1042rdeadbeef","status":"PAID","transactionId":"M_R_282737362","orderAmount":"105.26315789","currency":"USDT"}}`)
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, APIKey: "k", APISecret: "s"}, nil)

	res, err := client.QueryOrder(context.Background(), "9825382937292", "wc1042rdeadbeef")
	require.NoError(t, err)

	// The prepay id wins when both identifiers are set.
	assert.Equal(t, "9825382937292", got.PrepayID)
	assert.Empty(t, got.MerchantTradeNo)

	assert.Equal(t, OrderStatusPaid, res.Status)
	assert.Equal(t, "M_R_282737362", res.TransactionID)
	assert.Equal(t, "105.26315789", res.OrderAmount)
}

func TestQueryOrder_ByTradeNo(t *testing.T) {
	var got queryOrderRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"status":"SUCCESS","code":"000000","data":{"status":"INITIAL"}}`)
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, APIKey: "k", APISecret: "s"}, nil)

	_, err := client.QueryOrder(context.Background(), "", "wc1042rdeadbeef")
	require.NoError(t, err)
	assert.Equal(t, "wc1042rdeadbeef", got.MerchantTradeNo)
	assert.Empty(t, got.PrepayID)
}

func TestQueryOrder_RequiresAnIdentifier(t *testing.T) {
	client := NewClient(Config{BaseURL: "https://pay.example", APIKey: "k", APISecret: "s"}, doerFunc(func(req *http.Request) (*http.Response, error) {
		t.Fatal("no request may be sent without an identifier")
		return nil, nil
	}))

	_, err := client.QueryOrder(context.Background(), "", "")
	var missing *MissingIdentifierError
	require.ErrorAs(t, err, &missing)
}

func TestFetchCertificate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/binancepay/openapi/certificates", r.URL.Path)
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.JSONEq(t, `{}`, string(body))
		fmt.Fprint(w, `{"status":"SUCCESS","code":"000000","data":[{"certSerial":"ABC123","certPublic":"-----BEGIN PUBLIC KEY-----\nMFw=\n-----END PUBLIC KEY-----"}]}`)
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, APIKey: "k", APISecret: "s"}, nil)
	cert, err := client.FetchCertificate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ABC123", cert.Serial)
	assert.Contains(t, cert.PublicKey, "BEGIN PUBLIC KEY")
}

func TestFetchCertificate_EmptyResponse(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"no records", `[]`},
		{"missing serial", `[{"certPublic":"key"}]`},
		{"missing key", `[{"certSerial":"ABC123"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprintf(w, `{"status":"SUCCESS","code":"000000","data":%s}`, tt.data)
			}))
			defer srv.Close()

			client := NewClient(Config{BaseURL: srv.URL, APIKey: "k", APISecret: "s"}, nil)
			_, err := client.FetchCertificate(context.Background())
			var fetchErr *CertificateFetchError
			require.ErrorAs(t, err, &fetchErr)
		})
	}
}
