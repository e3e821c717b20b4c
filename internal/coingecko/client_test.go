package coingecko

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finbridge/binancepay-gateway/internal/httpapi"
)

func TestSimplePrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/simple/price", r.URL.Path)
		assert.Equal(t, "tether,binance-usd", r.URL.Query().Get("ids"))
		assert.Equal(t, "eur,usd", r.URL.Query().Get("vs_currencies"))
		fmt.Fprint(w, `{"tether":{"eur":0.95,"usd":0.99},"binance-usd":{"eur":0.94,"usd":0.98}}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	rates, err := client.SimplePrice(context.Background(), []string{"tether", "binance-usd"}, []string{"eur", "usd"})
	require.NoError(t, err)

	assert.Equal(t, 0.95, rates["tether"]["eur"])
	assert.Equal(t, 0.98, rates["binance-usd"]["usd"])
}

func TestSimplePrice_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"status":{"error_code":429}}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	_, err := client.SimplePrice(context.Background(), []string{"tether"}, []string{"eur"})

	var reqErr *httpapi.RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, http.StatusTooManyRequests, reqErr.Status)
}

func TestSimplePrice_UnknownCoin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The provider answers an unknown id with an empty object, not an error.
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	rates, err := client.SimplePrice(context.Background(), []string{"nope"}, []string{"eur"})
	require.NoError(t, err)
	assert.Empty(t, rates)
}
