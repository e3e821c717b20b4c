// Package coingecko is a minimal client for the Coingecko simple-price API,
// the gateway's exchange-rate provider.
package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/finbridge/binancepay-gateway/internal/httpapi"
)

const (
	defaultBaseURL = "https://api.coingecko.com"
	apiPath        = "/api/v3/"
)

// Rates is keyed by source coin id, then by quote currency,
// e.g. {"tether": {"eur": 0.95, "usd": 0.99}}.
type Rates map[string]map[string]float64

// Client fetches exchange rates. Rate lookups are idempotent reads, so
// concurrent calls need no coordination.
type Client struct {
	baseURL string
	http    httpapi.Doer
}

// NewClient builds a client. Empty baseURL uses the public API; a nil doer
// falls back to a default http.Client with a 30s timeout.
func NewClient(baseURL string, doer httpapi.Doer) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if doer == nil {
		doer = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: doer}
}

// SimplePrice fetches the rates for the given coin ids against the given
// quote currencies in one call.
func (c *Client) SimplePrice(ctx context.Context, coins, currencies []string) (Rates, error) {
	q := url.Values{}
	q.Set("ids", strings.Join(coins, ","))
	q.Set("vs_currencies", strings.Join(currencies, ","))
	reqURL := c.baseURL + apiPath + "simple/price?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, httpapi.StatusError(http.MethodGet, reqURL, resp.StatusCode, body)
	}

	var rates Rates
	if err := json.Unmarshal(body, &rates); err != nil {
		return nil, fmt.Errorf("decoding rates: %w", err)
	}
	return rates, nil
}
