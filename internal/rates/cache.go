// Package rates caches coin/fiat exchange rates fetched from a rate provider.
package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/finbridge/binancepay-gateway/internal/coingecko"
	"github.com/finbridge/binancepay-gateway/internal/domain"
)

// DefaultTTL is how long a fetched rate set may be served from cache before a
// refetch is mandatory.
const DefaultTTL = 5 * time.Minute

const cacheKey = "binancepay_exchange_rates"

// coingeckoIDs remaps exchange tickers to the provider's coin ids.
var coingeckoIDs = map[string]string{
	"usdt": "tether",
	"busd": "binance-usd",
}

// RateUnavailableError means the provider's response did not include the
// requested pair. Hard failure: an unconverted amount must never be submitted.
type RateUnavailableError struct {
	Coin     string
	Currency string
}

func (e *RateUnavailableError) Error() string {
	return fmt.Sprintf("no exchange rate available for %s/%s", e.Coin, e.Currency)
}

// Provider fetches the current rates for coin/currency pairs.
type Provider interface {
	SimplePrice(ctx context.Context, coins, currencies []string) (coingecko.Rates, error)
}

// Cache serves exchange rates, refetching from the provider once the cached
// set expires. Concurrent refetches for the same pair are tolerated
// (last-writer-wins on the cache entry); provider calls are idempotent reads.
type Cache struct {
	store    domain.SettingsStore
	provider Provider
	ttl      time.Duration
	logger   *slog.Logger
}

func NewCache(store domain.SettingsStore, provider Provider, ttl time.Duration, logger *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{store: store, provider: provider, ttl: ttl, logger: logger}
}

// Rate returns the coin→currency conversion rate, serving from cache while
// fresh. Identifiers are normalized to lowercase and tickers remapped to
// provider ids before lookup.
func (c *Cache) Rate(ctx context.Context, coin, currency string) (float64, error) {
	coin = strings.ToLower(coin)
	currency = strings.ToLower(currency)
	if id, ok := coingeckoIDs[coin]; ok {
		coin = id
	}

	if raw, ok, err := c.store.Get(ctx, cacheKey); err != nil {
		c.logger.Warn("rate cache read failed", "error", err)
	} else if ok {
		var cached coingecko.Rates
		if err := json.Unmarshal([]byte(raw), &cached); err != nil {
			c.logger.Warn("discarding unreadable rate cache entry", "error", err)
		} else if v, ok := cached[coin][currency]; ok {
			return v, nil
		}
	}

	fetched, err := c.provider.SimplePrice(ctx, []string{coin}, []string{currency})
	if err != nil {
		return 0, fmt.Errorf("fetching exchange rates: %w", err)
	}

	v, ok := fetched[coin][currency]
	if !ok {
		return 0, &RateUnavailableError{Coin: coin, Currency: currency}
	}

	// Cache the full response; it may cover more pairs than the one asked for.
	if raw, err := json.Marshal(fetched); err == nil {
		if err := c.store.Set(ctx, cacheKey, string(raw), c.ttl); err != nil {
			c.logger.Warn("rate cache write failed", "error", err)
		}
	}
	return v, nil
}
