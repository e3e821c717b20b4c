package services

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/finbridge/binancepay-gateway/internal/binance"
	"github.com/finbridge/binancepay-gateway/internal/domain"
)

// MockOrderStore is an in-memory OrderStore for tests. Default behavior can
// be overridden per method via the Fn fields.
type MockOrderStore struct {
	mu     sync.RWMutex
	orders map[string]*domain.Order

	CreateFn         func(ctx context.Context, o *domain.Order) error
	GetFn            func(ctx context.Context, id string) (*domain.Order, error)
	FindByPrepayIDFn func(ctx context.Context, prepayID string) (*domain.Order, error)
	SetMetadataFn    func(ctx context.Context, id string, meta map[string]string) error
	TransitionFn     func(ctx context.Context, id string, from []domain.OrderStatus, to domain.OrderStatus, meta map[string]string, note string) (bool, error)
	FindActiveFn     func(ctx context.Context, olderThan time.Duration, limit int) ([]*domain.Order, error)
}

func NewMockOrderStore() *MockOrderStore {
	return &MockOrderStore{orders: make(map[string]*domain.Order)}
}

// Put seeds an order into the store.
func (m *MockOrderStore) Put(o *domain.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o.Metadata == nil {
		o.Metadata = make(map[string]string)
	}
	m.orders[o.ID] = o
}

func (m *MockOrderStore) Create(ctx context.Context, o *domain.Order) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, o)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[o.ID]; ok {
		return domain.NewOrderExistsError(o.ID)
	}
	if o.Status == "" {
		o.Status = domain.StatusPending
	}
	if o.Metadata == nil {
		o.Metadata = make(map[string]string)
	}
	now := time.Now()
	o.CreatedAt = now
	o.UpdatedAt = now
	m.orders[o.ID] = o
	return nil
}

func (m *MockOrderStore) Get(ctx context.Context, id string) (*domain.Order, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if o, ok := m.orders[id]; ok {
		return o, nil
	}
	return nil, domain.NewOrderNotFoundError(id)
}

func (m *MockOrderStore) FindByPrepayID(ctx context.Context, prepayID string) (*domain.Order, error) {
	if m.FindByPrepayIDFn != nil {
		return m.FindByPrepayIDFn(ctx, prepayID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, o := range m.orders {
		if o.Metadata[domain.MetaPrepayID] == prepayID {
			return o, nil
		}
	}
	return nil, domain.NewOrderNotFoundError("prepayId " + prepayID)
}

func (m *MockOrderStore) SetMetadata(ctx context.Context, id string, meta map[string]string) error {
	if m.SetMetadataFn != nil {
		return m.SetMetadataFn(ctx, id, meta)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return domain.NewOrderNotFoundError(id)
	}
	for k, v := range meta {
		o.Metadata[k] = v
	}
	o.UpdatedAt = time.Now()
	return nil
}

func (m *MockOrderStore) Transition(ctx context.Context, id string, from []domain.OrderStatus, to domain.OrderStatus, meta map[string]string, note string) (bool, error) {
	if m.TransitionFn != nil {
		return m.TransitionFn(ctx, id, from, to, meta, note)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return false, domain.NewOrderNotFoundError(id)
	}
	if !slices.Contains(from, o.Status) {
		return false, nil
	}
	o.Status = to
	for k, v := range meta {
		o.Metadata[k] = v
	}
	if note != "" {
		o.Notes = append(o.Notes, note)
	}
	o.UpdatedAt = time.Now()
	return true, nil
}

func (m *MockOrderStore) FindActive(ctx context.Context, olderThan time.Duration, limit int) ([]*domain.Order, error) {
	if m.FindActiveFn != nil {
		return m.FindActiveFn(ctx, olderThan, limit)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	cutoff := time.Now().Add(-olderThan)
	var out []*domain.Order
	for _, o := range m.orders {
		if o.Status.Terminal() || o.Metadata[domain.MetaPrepayID] == "" {
			continue
		}
		if o.UpdatedAt.After(cutoff) {
			continue
		}
		out = append(out, o)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// MockSettingsStore is an in-memory SettingsStore with TTL support. Now can
// be overridden to test expiry without sleeping.
type MockSettingsStore struct {
	mu      sync.RWMutex
	entries map[string]settingsEntry

	Now func() time.Time
}

type settingsEntry struct {
	value     string
	expiresAt time.Time
}

func NewMockSettingsStore() *MockSettingsStore {
	return &MockSettingsStore{entries: make(map[string]settingsEntry), Now: time.Now}
}

func (m *MockSettingsStore) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	if !ok {
		return "", false, nil
	}
	if !e.expiresAt.IsZero() && !m.Now().Before(e.expiresAt) {
		return "", false, nil
	}
	return e.value, true, nil
}

func (m *MockSettingsStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := settingsEntry{value: value}
	if ttl > 0 {
		e.expiresAt = m.Now().Add(ttl)
	}
	m.entries[key] = e
	return nil
}

// MockPaymentClient implements PaymentClient via function fields.
type MockPaymentClient struct {
	CreateOrderFn func(ctx context.Context, p binance.CreateOrderParams) (*binance.RemoteOrder, error)
	QueryOrderFn  func(ctx context.Context, prepayID, tradeNo string) (*binance.QueryResult, error)
}

func (m *MockPaymentClient) CreateOrder(ctx context.Context, p binance.CreateOrderParams) (*binance.RemoteOrder, error) {
	if m.CreateOrderFn != nil {
		return m.CreateOrderFn(ctx, p)
	}
	return &binance.RemoteOrder{PrepayID: "prepay-1", CheckoutURL: "https://pay.example/checkout/1", TradeNo: "wc" + p.OrderRef + "r0000"}, nil
}

func (m *MockPaymentClient) QueryOrder(ctx context.Context, prepayID, tradeNo string) (*binance.QueryResult, error) {
	if m.QueryOrderFn != nil {
		return m.QueryOrderFn(ctx, prepayID, tradeNo)
	}
	return &binance.QueryResult{PrepayID: prepayID, Status: binance.OrderStatusInitial}, nil
}

// MockCertificateClient implements CertificateClient via a function field.
type MockCertificateClient struct {
	FetchCertificateFn func(ctx context.Context) (*domain.Certificate, error)
}

func (m *MockCertificateClient) FetchCertificate(ctx context.Context) (*domain.Certificate, error) {
	if m.FetchCertificateFn != nil {
		return m.FetchCertificateFn(ctx)
	}
	return &domain.Certificate{Serial: "serial-1", PublicKey: "key-1"}, nil
}

// MockRateSource implements RateSource via a function field.
type MockRateSource struct {
	RateFn func(ctx context.Context, coin, currency string) (float64, error)
}

func (m *MockRateSource) Rate(ctx context.Context, coin, currency string) (float64, error) {
	if m.RateFn != nil {
		return m.RateFn(ctx, coin, currency)
	}
	return 1, nil
}
