package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finbridge/binancepay-gateway/internal/binance"
	"github.com/finbridge/binancepay-gateway/internal/domain"
	"github.com/finbridge/binancepay-gateway/internal/services"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func staleOrder(id, prepayID string) *domain.Order {
	return &domain.Order{
		ID:        id,
		Ref:       "1042",
		Amount:    100,
		Currency:  "EUR",
		Status:    domain.StatusPending,
		Metadata:  map[string]string{domain.MetaPrepayID: prepayID},
		UpdatedAt: time.Now().Add(-10 * time.Minute),
	}
}

func TestRunOnce_ReconcilesStaleOrders(t *testing.T) {
	orders := services.NewMockOrderStore()
	orders.Put(staleOrder("o1", "P1"))
	orders.Put(staleOrder("o2", "P2"))

	pay := &services.MockPaymentClient{QueryOrderFn: func(ctx context.Context, prepayID, tradeNo string) (*binance.QueryResult, error) {
		if prepayID == "P1" {
			return &binance.QueryResult{PrepayID: prepayID, Status: binance.OrderStatusPaid, TransactionID: "M_R_1"}, nil
		}
		return &binance.QueryResult{PrepayID: prepayID, Status: binance.OrderStatusExpired}, nil
	}}

	reconcile := services.NewReconcileService(orders, pay, testLogger())
	p := NewPoller(orders, reconcile, time.Minute, 5*time.Minute, 50, testLogger())

	p.RunOnce(context.Background())

	o1, err := orders.Get(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, o1.Status)

	o2, err := orders.Get(context.Background(), "o2")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, o2.Status)
}

func TestRunOnce_SkipsFreshAndTerminalOrders(t *testing.T) {
	orders := services.NewMockOrderStore()

	fresh := staleOrder("fresh", "P1")
	fresh.UpdatedAt = time.Now()
	orders.Put(fresh)

	done := staleOrder("done", "P2")
	done.Status = domain.StatusCompleted
	orders.Put(done)

	pay := &services.MockPaymentClient{QueryOrderFn: func(ctx context.Context, prepayID, tradeNo string) (*binance.QueryResult, error) {
		t.Fatal("no order in this batch may be queried")
		return nil, nil
	}}

	reconcile := services.NewReconcileService(orders, pay, testLogger())
	p := NewPoller(orders, reconcile, time.Minute, 5*time.Minute, 50, testLogger())

	p.RunOnce(context.Background())
}

func TestRunOnce_KeepsGoingAfterPollFailure(t *testing.T) {
	orders := services.NewMockOrderStore()
	orders.Put(staleOrder("o1", "P1"))
	orders.Put(staleOrder("o2", "P2"))

	var queried []string
	pay := &services.MockPaymentClient{QueryOrderFn: func(ctx context.Context, prepayID, tradeNo string) (*binance.QueryResult, error) {
		queried = append(queried, prepayID)
		return nil, errors.New("processor unavailable")
	}}

	reconcile := services.NewReconcileService(orders, pay, testLogger())
	p := NewPoller(orders, reconcile, time.Minute, 5*time.Minute, 50, testLogger())

	p.RunOnce(context.Background())

	// One order failing must not stop the sweep.
	assert.Len(t, queried, 2)
}

func TestStart_StopsOnContextCancel(t *testing.T) {
	orders := services.NewMockOrderStore()
	reconcile := services.NewReconcileService(orders, &services.MockPaymentClient{}, testLogger())
	p := NewPoller(orders, reconcile, 10*time.Millisecond, time.Minute, 50, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		p.Start(ctx)
		close(stopped)
	}()

	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after context cancellation")
	}
}
