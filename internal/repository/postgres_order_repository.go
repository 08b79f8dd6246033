package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/WheelyWonka/toaste/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE unique_violation
const pgUniqueViolation = "23505"

const postgresSchema = `
CREATE TABLE IF NOT EXISTS orders (
	id                  UUID PRIMARY KEY,
	code                VARCHAR(8) NOT NULL UNIQUE,
	customer_name       TEXT NOT NULL,
	customer_email      TEXT NOT NULL,
	street              TEXT NOT NULL,
	city                TEXT NOT NULL,
	region              TEXT NOT NULL DEFAULT '',
	postal_code         TEXT NOT NULL,
	country             CHAR(2) NOT NULL,
	base_unit_price     NUMERIC NOT NULL,
	pair_discount_rate  NUMERIC NOT NULL,
	tax_rate            NUMERIC NOT NULL,
	total_quantity      INTEGER NOT NULL,
	pairs_count         INTEGER NOT NULL,
	discounted_units    INTEGER NOT NULL,
	full_price_units    INTEGER NOT NULL,
	discount_amount     NUMERIC NOT NULL,
	discounted_subtotal NUMERIC NOT NULL,
	tax_amount          NUMERIC NOT NULL,
	shipping_fee        NUMERIC NOT NULL,
	total               NUMERIC NOT NULL,
	shipping_reference  TEXT NOT NULL DEFAULT '',
	status              VARCHAR(32) NOT NULL,
	locale              VARCHAR(8) NOT NULL,
	notes               TEXT NOT NULL DEFAULT '',
	created_at          TIMESTAMPTZ NOT NULL,
	updated_at          TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_orders_status_created ON orders (status, created_at DESC);
CREATE TABLE IF NOT EXISTS order_items (
	order_id    UUID NOT NULL REFERENCES orders (id),
	position    INTEGER NOT NULL,
	spoke_count INTEGER NOT NULL,
	wheel_size  VARCHAR(8) NOT NULL,
	quantity    INTEGER NOT NULL,
	PRIMARY KEY (order_id, position)
);`

const orderColumns = `id, code, customer_name, customer_email, street, city, region, postal_code, country,
	base_unit_price, pair_discount_rate, tax_rate, total_quantity, pairs_count, discounted_units, full_price_units,
	discount_amount, discounted_subtotal, tax_amount, shipping_fee, total,
	shipping_reference, status, locale, notes, created_at, updated_at`

// PostgresOrderRepository implements OrderRepository on PostgreSQL through
// database/sql and the pgx driver
type PostgresOrderRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewPostgresOrderRepository wraps an open database handle
func NewPostgresOrderRepository(db *sql.DB) *PostgresOrderRepository {
	return &PostgresOrderRepository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// EnsureSchema creates the tables when they do not exist yet
func (r *PostgresOrderRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, postgresSchema); err != nil {
		return fmt.Errorf("creating order schema: %w", err)
	}
	return nil
}

func (r *PostgresOrderRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE code = $1)`, code).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking order code: %w", err)
	}
	return exists, nil
}

// Create writes the order and its items in one transaction
func (r *PostgresOrderRepository) Create(ctx context.Context, draft models.OrderDraft) (*models.Order, error) {
	order := models.NewOrder(uuid.NewString(), draft, r.now())

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	addr := order.Customer.ShippingAddress
	p := order.Pricing
	_, err = tx.ExecContext(ctx, `INSERT INTO orders (`+orderColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27)`,
		order.ID, order.Code, order.Customer.Name, order.Customer.Email,
		addr.Street, addr.City, addr.Region, addr.PostalCode, addr.Country,
		p.BaseUnitPrice, p.PairDiscountRate, p.TaxRate,
		p.TotalQuantity, p.PairsCount, p.DiscountedUnits, p.FullPriceUnits,
		p.DiscountAmount, p.DiscountedSubtotal, p.TaxAmount, p.ShippingFee, p.Total,
		order.ShippingReference, string(order.Status), order.Locale, order.Notes,
		order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateCode
		}
		return nil, fmt.Errorf("inserting order: %w", err)
	}

	for i, item := range order.LineItems {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO order_items (order_id, position, spoke_count, wheel_size, quantity) VALUES ($1,$2,$3,$4,$5)`,
			order.ID, i, int(item.SpokeCount), string(item.WheelSize), item.Quantity)
		if err != nil {
			return nil, fmt.Errorf("inserting order item %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateCode
		}
		return nil, fmt.Errorf("committing order: %w", err)
	}

	return order, nil
}

func (r *PostgresOrderRepository) GetByCode(ctx context.Context, code string) (*models.Order, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE code = $1`, code)
	order, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading order: %w", err)
	}

	if err := r.loadItems(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *PostgresOrderRepository) UpdateStatus(ctx context.Context, code string, status models.OrderStatus) (*models.Order, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET status = $1, updated_at = $2 WHERE code = $3`,
		string(status), r.now(), code)
	if err != nil {
		return nil, fmt.Errorf("updating order status: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("updating order status: %w", err)
	}
	if n == 0 {
		return nil, ErrOrderNotFound
	}

	return r.GetByCode(ctx, code)
}

// List returns orders newest first
func (r *PostgresOrderRepository) List(ctx context.Context, filter ListFilter) ([]models.Order, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, code`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	rows.Close()

	result := make([]models.Order, 0, len(orders))
	for _, order := range orders {
		if err := r.loadItems(ctx, order); err != nil {
			return nil, err
		}
		result = append(result, *order)
	}
	return result, nil
}

func (r *PostgresOrderRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *PostgresOrderRepository) loadItems(ctx context.Context, order *models.Order) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT spoke_count, wheel_size, quantity FROM order_items WHERE order_id = $1 ORDER BY position`,
		order.ID)
	if err != nil {
		return fmt.Errorf("loading order items: %w", err)
	}
	defer rows.Close()

	order.LineItems = order.LineItems[:0]
	for rows.Next() {
		var (
			item      models.LineItem
			spokes    int
			wheelSize string
		)
		if err := rows.Scan(&spokes, &wheelSize, &item.Quantity); err != nil {
			return fmt.Errorf("scanning order item: %w", err)
		}
		item.SpokeCount = models.SpokeCount(spokes)
		item.WheelSize = models.WheelSize(wheelSize)
		order.LineItems = append(order.LineItems, item)
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var (
		o      models.Order
		status string
	)
	addr := &o.Customer.ShippingAddress
	p := &o.Pricing

	err := row.Scan(
		&o.ID, &o.Code, &o.Customer.Name, &o.Customer.Email,
		&addr.Street, &addr.City, &addr.Region, &addr.PostalCode, &addr.Country,
		&p.BaseUnitPrice, &p.PairDiscountRate, &p.TaxRate,
		&p.TotalQuantity, &p.PairsCount, &p.DiscountedUnits, &p.FullPriceUnits,
		&p.DiscountAmount, &p.DiscountedSubtotal, &p.TaxAmount, &p.ShippingFee, &p.Total,
		&o.ShippingReference, &status, &o.Locale, &o.Notes, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.Status = models.OrderStatus(status)
	return &o, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
