package rates

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finbridge/binancepay-gateway/internal/coingecko"
	"github.com/finbridge/binancepay-gateway/internal/services"
)

type mockProvider struct {
	calls int
	fn    func(ctx context.Context, coins, currencies []string) (coingecko.Rates, error)
}

func (m *mockProvider) SimplePrice(ctx context.Context, coins, currencies []string) (coingecko.Rates, error) {
	m.calls++
	return m.fn(ctx, coins, currencies)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRate_RemapsTickerAndCaches(t *testing.T) {
	provider := &mockProvider{fn: func(ctx context.Context, coins, currencies []string) (coingecko.Rates, error) {
		assert.Equal(t, []string{"tether"}, coins)
		assert.Equal(t, []string{"eur"}, currencies)
		return coingecko.Rates{"tether": {"eur": 0.95}}, nil
	}}

	cache := NewCache(services.NewMockSettingsStore(), provider, time.Minute, testLogger())

	rate, err := cache.Rate(context.Background(), "USDT", "EUR")
	require.NoError(t, err)
	assert.Equal(t, 0.95, rate)
	assert.Equal(t, 1, provider.calls)

	// Second lookup inside the TTL is served from cache.
	rate, err = cache.Rate(context.Background(), "usdt", "eur")
	require.NoError(t, err)
	assert.Equal(t, 0.95, rate)
	assert.Equal(t, 1, provider.calls)
}

func TestRate_RefetchesAfterExpiry(t *testing.T) {
	provider := &mockProvider{fn: func(ctx context.Context, coins, currencies []string) (coingecko.Rates, error) {
		return coingecko.Rates{"tether": {"eur": 0.95}}, nil
	}}

	store := services.NewMockSettingsStore()
	cache := NewCache(store, provider, time.Minute, testLogger())

	_, err := cache.Rate(context.Background(), "usdt", "eur")
	require.NoError(t, err)
	require.Equal(t, 1, provider.calls)

	store.Now = func() time.Time { return time.Now().Add(2 * time.Minute) }

	_, err = cache.Rate(context.Background(), "usdt", "eur")
	require.NoError(t, err)
	assert.Equal(t, 2, provider.calls)
}

func TestRate_CachedSetMissingPairTriggersFetch(t *testing.T) {
	provider := &mockProvider{fn: func(ctx context.Context, coins, currencies []string) (coingecko.Rates, error) {
		return coingecko.Rates{"tether": {"usd": 0.99}}, nil
	}}

	store := services.NewMockSettingsStore()
	require.NoError(t, store.Set(context.Background(), "binancepay_exchange_rates", `{"tether":{"eur":0.95}}`, time.Minute))

	cache := NewCache(store, provider, time.Minute, testLogger())

	// eur is cached, usd is not.
	rate, err := cache.Rate(context.Background(), "usdt", "usd")
	require.NoError(t, err)
	assert.Equal(t, 0.99, rate)
	assert.Equal(t, 1, provider.calls)
}

func TestRate_PairMissingFromProvider(t *testing.T) {
	provider := &mockProvider{fn: func(ctx context.Context, coins, currencies []string) (coingecko.Rates, error) {
		return coingecko.Rates{}, nil
	}}

	cache := NewCache(services.NewMockSettingsStore(), provider, time.Minute, testLogger())

	_, err := cache.Rate(context.Background(), "usdt", "xyz")
	var unavailable *RateUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, "tether", unavailable.Coin)
	assert.Equal(t, "xyz", unavailable.Currency)
}

func TestRate_ProviderFailure(t *testing.T) {
	provider := &mockProvider{fn: func(ctx context.Context, coins, currencies []string) (coingecko.Rates, error) {
		return nil, errors.New("rate limited")
	}}

	cache := NewCache(services.NewMockSettingsStore(), provider, time.Minute, testLogger())

	_, err := cache.Rate(context.Background(), "usdt", "eur")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetching exchange rates")
}

func TestRate_CorruptCacheEntryIsDiscarded(t *testing.T) {
	provider := &mockProvider{fn: func(ctx context.Context, coins, currencies []string) (coingecko.Rates, error) {
		return coingecko.Rates{"tether": {"eur": 0.95}}, nil
	}}

	store := services.NewMockSettingsStore()
	require.NoError(t, store.Set(context.Background(), "binancepay_exchange_rates", "not json", time.Minute))

	cache := NewCache(store, provider, time.Minute, testLogger())

	rate, err := cache.Rate(context.Background(), "usdt", "eur")
	require.NoError(t, err)
	assert.Equal(t, 0.95, rate)
	assert.Equal(t, 1, provider.calls)
}
