package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/finbridge/binancepay-gateway/internal/domain"
)

var _ domain.OrderStore = (*OrderStore)(nil)

type OrderStore struct {
	db *pgxpool.Pool
}

func NewOrderStore(db *pgxpool.Pool) *OrderStore {
	return &OrderStore{db: db}
}

const orderColumns = `id, ref, amount, currency, status, metadata, notes, created_at, updated_at`

func (s *OrderStore) Get(ctx context.Context, id string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	return scanOrder(s.db.QueryRow(ctx, query, id), id)
}

func (s *OrderStore) FindByPrepayID(ctx context.Context, prepayID string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE metadata->>$1 = $2`
	return scanOrder(s.db.QueryRow(ctx, query, domain.MetaPrepayID, prepayID), "prepayId "+prepayID)
}

// Create inserts a new order record in Pending state.
func (s *OrderStore) Create(ctx context.Context, o *domain.Order) error {
	meta, err := marshalMeta(o.Metadata)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO orders (id, ref, amount, currency, status, metadata, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	status := o.Status
	if status == "" {
		status = domain.StatusPending
	}
	notes := o.Notes
	if notes == nil {
		notes = []string{}
	}
	_, err = s.db.Exec(ctx, query, o.ID, o.Ref, o.Amount, o.Currency, status, meta, notes)
	if err != nil {
		if IsUniqueViolation(err) {
			return domain.NewOrderExistsError(o.ID)
		}
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (s *OrderStore) SetMetadata(ctx context.Context, id string, meta map[string]string) error {
	raw, err := marshalMeta(meta)
	if err != nil {
		return err
	}
	query := `
		UPDATE orders
		SET metadata = metadata || $2::jsonb, updated_at = now()
		WHERE id = $1
	`
	tag, err := s.db.Exec(ctx, query, id, raw)
	if err != nil {
		return fmt.Errorf("failed to update order metadata: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewOrderNotFoundError(id)
	}
	return nil
}

// Transition performs the compare-and-set status update: the WHERE clause
// checks the prior status in the same statement that writes the new one, so
// concurrent callers cannot both apply.
func (s *OrderStore) Transition(ctx context.Context, id string, from []domain.OrderStatus, to domain.OrderStatus, meta map[string]string, note string) (bool, error) {
	raw, err := marshalMeta(meta)
	if err != nil {
		return false, err
	}
	fromStatuses := make([]string, len(from))
	for i, st := range from {
		fromStatuses[i] = string(st)
	}

	query := `
		UPDATE orders
		SET status = $2,
		    metadata = metadata || $3::jsonb,
		    notes = CASE WHEN $4 <> '' THEN array_append(notes, $4) ELSE notes END,
		    updated_at = now()
		WHERE id = $1 AND status = ANY($5)
	`
	tag, err := s.db.Exec(ctx, query, id, string(to), raw, note, fromStatuses)
	if err != nil {
		return false, fmt.Errorf("failed to transition order: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	// Nothing matched: either the order is gone or it already advanced.
	// A lost race is a no-op, not an error.
	if _, err := s.Get(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (s *OrderStore) FindActive(ctx context.Context, olderThan time.Duration, limit int) ([]*domain.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE status = ANY($1) AND metadata->>$2 IS NOT NULL AND updated_at < $3
		ORDER BY updated_at ASC
		LIMIT $4
	`
	active := []string{string(domain.StatusPending), string(domain.StatusProcessing)}
	cutoff := time.Now().Add(-olderThan)

	rows, err := s.db.Query(ctx, query, active, domain.MetaPrepayID, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list active orders: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		o, err := scanOrderRow(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row pgx.Row, ref string) (*domain.Order, error) {
	o, err := scanOrderRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NewOrderNotFoundError(ref)
	}
	return o, err
}

func scanOrderRow(row rowScanner) (*domain.Order, error) {
	var o domain.Order
	var meta []byte
	err := row.Scan(&o.ID, &o.Ref, &o.Amount, &o.Currency, &o.Status, &meta, &o.Notes, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	o.Metadata = make(map[string]string)
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &o.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode order metadata: %w", err)
		}
	}
	return &o, nil
}

func marshalMeta(meta map[string]string) ([]byte, error) {
	if meta == nil {
		meta = map[string]string{}
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("failed to encode order metadata: %w", err)
	}
	return raw, nil
}
