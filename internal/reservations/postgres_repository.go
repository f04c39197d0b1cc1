package reservations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation is the Postgres error code raised when an insert hits the
// (table_number, slot_at) unique index.
const uniqueViolation = "23505"

// PgxPool is the subset of pgxpool.Pool the repository needs; pgxmock
// implements it for tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores reservations in the relational database.
type PostgresRepository struct {
	pool PgxPool
}

// NewPostgresRepository initializes a repo backed by pgx.
func NewPostgresRepository(pool PgxPool) *PostgresRepository {
	if pool == nil {
		panic("reservations: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

var _ Repository = (*PostgresRepository)(nil)

// EnsureSchema creates the reservations table and the unique index that
// backs the slot invariant. Safe to run on every startup.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS reservations (
			id UUID PRIMARY KEY,
			user_id TEXT,
			user_email TEXT,
			name TEXT NOT NULL,
			email TEXT NOT NULL,
			phone TEXT NOT NULL,
			slot_at TIMESTAMPTZ NOT NULL,
			guests INTEGER NOT NULL,
			table_number INTEGER NOT NULL,
			whatsapp_opt_in BOOLEAN DEFAULT FALSE,
			whatsapp_delivery JSONB DEFAULT '{}'::jsonb,
			status TEXT NOT NULL DEFAULT 'booked',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS reservations_table_slot_idx
			ON reservations (table_number, slot_at)`,
	}
	for _, stmt := range statements {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("reservations: ensure schema: %w", err)
		}
	}
	return nil
}

// Create inserts a new reservation row. A unique-index violation on the
// (table_number, slot_at) pair maps to ErrSlotTaken.
func (r *PostgresRepository) Create(ctx context.Context, res *Reservation) error {
	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	if res.Status == "" {
		res.Status = StatusBooked
	}
	delivery, err := json.Marshal(res.Delivery)
	if err != nil {
		return fmt.Errorf("reservations: marshal delivery record: %w", err)
	}

	query := `
		INSERT INTO reservations (
			id, user_id, user_email, name, email, phone,
			slot_at, guests, table_number, whatsapp_opt_in, whatsapp_delivery, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at
	`
	err = r.pool.QueryRow(ctx, query,
		res.ID,
		nullable(res.UserID),
		nullable(res.UserEmail),
		res.Name,
		res.Email,
		res.Phone,
		res.SlotAt,
		res.Guests,
		res.TableNumber,
		res.WhatsAppOptIn,
		delivery,
		res.Status,
	).Scan(&res.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrSlotTaken
		}
		return fmt.Errorf("reservations: insert failed: %w", err)
	}
	return nil
}

// FindBySlot returns the reservation holding the (table, slot) pair, or
// ErrNotFound. Used as the conflict fast path.
func (r *PostgresRepository) FindBySlot(ctx context.Context, tableNumber int, slotAt time.Time) (*Reservation, error) {
	query := selectColumns + ` WHERE table_number = $1 AND slot_at = $2 LIMIT 1`
	res, err := scanReservation(r.pool.QueryRow(ctx, query, tableNumber, slotAt))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reservations: select by slot failed: %w", err)
	}
	return res, nil
}

// List returns reservations matching the filter, ordered by slot then table.
func (r *PostgresRepository) List(ctx context.Context, filter Filter) ([]*Reservation, error) {
	var clauses []string
	var args []any
	if filter.SlotAt != nil {
		args = append(args, *filter.SlotAt)
		clauses = append(clauses, fmt.Sprintf("slot_at = $%d", len(args)))
	}
	if filter.TableNumber > 0 {
		args = append(args, filter.TableNumber)
		clauses = append(clauses, fmt.Sprintf("table_number = $%d", len(args)))
	}

	query := selectColumns
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY slot_at ASC, table_number ASC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("reservations: list failed: %w", err)
	}
	defer rows.Close()

	var out []*Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("reservations: scan failed: %w", err)
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reservations: list rows: %w", err)
	}
	return out, nil
}

// UpdateDelivery writes the per-channel notification outcome after the sends
// run. The record is written once; later calls would overwrite but none are
// made.
func (r *PostgresRepository) UpdateDelivery(ctx context.Context, id string, delivery DeliveryRecord) error {
	data, err := json.Marshal(delivery)
	if err != nil {
		return fmt.Errorf("reservations: marshal delivery record: %w", err)
	}
	tag, err := r.pool.Exec(ctx, `UPDATE reservations SET whatsapp_delivery = $1 WHERE id = $2`, data, id)
	if err != nil {
		return fmt.Errorf("reservations: update delivery failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const selectColumns = `
	SELECT id, user_id, user_email, name, email, phone,
		slot_at, guests, table_number, whatsapp_opt_in, whatsapp_delivery, status, created_at
	FROM reservations`

func scanReservation(row pgx.Row) (*Reservation, error) {
	var res Reservation
	var userID, userEmail *string
	var delivery []byte
	if err := row.Scan(
		&res.ID,
		&userID,
		&userEmail,
		&res.Name,
		&res.Email,
		&res.Phone,
		&res.SlotAt,
		&res.Guests,
		&res.TableNumber,
		&res.WhatsAppOptIn,
		&delivery,
		&res.Status,
		&res.CreatedAt,
	); err != nil {
		return nil, err
	}
	if userID != nil {
		res.UserID = *userID
	}
	if userEmail != nil {
		res.UserEmail = *userEmail
	}
	if len(delivery) > 0 {
		if err := json.Unmarshal(delivery, &res.Delivery); err != nil {
			return nil, fmt.Errorf("decode delivery record: %w", err)
		}
	}
	return &res, nil
}

func nullable(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
