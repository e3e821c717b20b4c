// Package worker runs the background poll loop that sweeps stale
// non-terminal orders and reconciles them against the processor.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/finbridge/binancepay-gateway/internal/domain"
	"github.com/finbridge/binancepay-gateway/internal/services"
)

type Poller struct {
	orders    domain.OrderStore
	reconcile *services.ReconcileService
	interval  time.Duration
	olderThan time.Duration
	batchSize int
	logger    *slog.Logger
}

func NewPoller(
	orders domain.OrderStore,
	reconcile *services.ReconcileService,
	interval time.Duration,
	olderThan time.Duration,
	batchSize int,
	logger *slog.Logger,
) *Poller {
	return &Poller{
		orders:    orders,
		reconcile: reconcile,
		interval:  interval,
		olderThan: olderThan,
		batchSize: batchSize,
		logger:    logger,
	}
}

func (p *Poller) Start(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("starting order poller", "interval", p.interval, "batch_size", p.batchSize)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("stopping order poller")
			return
		case <-ticker.C:
			p.run(ctx)
		}
	}
}

// RunOnce executes a single poll cycle.
func (p *Poller) RunOnce(ctx context.Context) {
	p.run(ctx)
}

func (p *Poller) run(ctx context.Context) {
	orders, err := p.orders.FindActive(ctx, p.olderThan, p.batchSize)
	if err != nil {
		p.logger.Error("failed to fetch active orders", "error", err)
		return
	}
	if len(orders) == 0 {
		return
	}

	p.logger.Info("polling pending orders", "count", len(orders))

	for _, o := range orders {
		// Polling is best-effort; webhooks remain the authoritative path.
		if err := p.reconcile.Poll(ctx, o.ID); err != nil {
			p.logger.Error("poll failed for order", "order_id", o.ID, "error", err)
			continue
		}
	}
}
