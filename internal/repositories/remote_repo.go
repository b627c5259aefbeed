package repositories

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prudhvinik1/possync/internal/models"
)

// ErrForeignRecord is returned when an upsert targets an id owned by another shop.
var ErrForeignRecord = errors.New("record belongs to another shop")

// RemoteSchema creates the tables the agent reads and writes.
const RemoteSchema = `
CREATE TABLE IF NOT EXISTS shops (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL DEFAULT '',
	owner_name  TEXT NOT NULL DEFAULT '',
	phone       TEXT NOT NULL DEFAULT '',
	address     TEXT NOT NULL DEFAULT '',
	currency    TEXT NOT NULL DEFAULT '',
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS products (
	id                  TEXT PRIMARY KEY,
	shop_id             TEXT NOT NULL,
	name                TEXT NOT NULL,
	price               BIGINT NOT NULL DEFAULT 0,
	cost_price          BIGINT NOT NULL DEFAULT 0,
	quantity            BIGINT NOT NULL DEFAULT 0,
	category            TEXT NOT NULL DEFAULT '',
	barcode             TEXT NOT NULL DEFAULT '',
	unit                TEXT NOT NULL DEFAULT '',
	low_stock_threshold BIGINT NOT NULL DEFAULT 0,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS sales (
	id             TEXT PRIMARY KEY,
	shop_id        TEXT NOT NULL,
	items          JSONB NOT NULL DEFAULT '[]',
	total          BIGINT NOT NULL DEFAULT 0,
	payment_method TEXT NOT NULL DEFAULT '',
	customer_name  TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS orders (
	id             TEXT PRIMARY KEY,
	shop_id        TEXT NOT NULL,
	customer_name  TEXT NOT NULL DEFAULT '',
	customer_phone TEXT NOT NULL DEFAULT '',
	items          JSONB NOT NULL DEFAULT '[]',
	total          BIGINT NOT NULL DEFAULT 0,
	amount_paid    BIGINT NOT NULL DEFAULT 0,
	status         TEXT NOT NULL DEFAULT 'pending',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS payments (
	id         TEXT PRIMARY KEY,
	shop_id    TEXT NOT NULL,
	order_id   TEXT NOT NULL DEFAULT '',
	amount     BIGINT NOT NULL DEFAULT 0,
	method     TEXT NOT NULL DEFAULT '',
	reference  TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS products_shop_id_idx ON products (shop_id);
CREATE INDEX IF NOT EXISTS sales_shop_id_idx ON sales (shop_id);
CREATE INDEX IF NOT EXISTS orders_shop_id_idx ON orders (shop_id);
CREATE INDEX IF NOT EXISTS payments_shop_id_idx ON payments (shop_id);
`

type PostgresRemoteRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRemoteRepository(pool *pgxpool.Pool) *PostgresRemoteRepository {
	return &PostgresRemoteRepository{pool: pool}
}

func (r *PostgresRemoteRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, RemoteSchema); err != nil {
		return fmt.Errorf("failed to create remote schema: %w", err)
	}
	return nil
}

func (r *PostgresRemoteRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Upsert inserts the row or overwrites every supplied column of the row with
// the same id. Replaying the same row is a no-op in effect.
func (r *PostgresRemoteRepository) Upsert(ctx context.Context, table string, row models.RemoteRow) error {
	if row.ID() == "" {
		return models.ErrMissingRecordID
	}

	cols := make([]string, 0, len(row))
	for col := range row {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	tableIdent := pgx.Identifier{table}.Sanitize()
	names := make([]string, 0, len(cols))
	placeholders := make([]string, 0, len(cols))
	updates := make([]string, 0, len(cols))
	args := make([]any, 0, len(cols))
	for i, col := range cols {
		ident := pgx.Identifier{col}.Sanitize()
		names = append(names, ident)
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+1))
		args = append(args, row[col])
		if col != "id" {
			updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", ident, ident))
		}
	}

	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) ON CONFLICT ("id") `,
		tableIdent, strings.Join(names, ", "), strings.Join(placeholders, ", "))
	if len(updates) == 0 {
		query += "DO NOTHING"
	} else {
		query += "DO UPDATE SET " + strings.Join(updates, ", ")
		if _, scoped := row["shop_id"]; scoped {
			// An id owned by another shop is never overwritten
			query += fmt.Sprintf(` WHERE %s."shop_id" = EXCLUDED."shop_id"`, tableIdent)
		}
	}

	result, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to upsert %s %s: %w", table, row.ID(), err)
	}
	if len(updates) > 0 && result.RowsAffected() == 0 {
		return ErrForeignRecord
	}
	return nil
}

// Delete removes the row only when it belongs to shopID. Deleting a missing
// row succeeds so replays stay idempotent.
func (r *PostgresRemoteRepository) Delete(ctx context.Context, table, id, shopID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE "id" = $1 AND "shop_id" = $2`, pgx.Identifier{table}.Sanitize())

	if _, err := r.pool.Exec(ctx, query, id, shopID); err != nil {
		return fmt.Errorf("failed to delete %s %s: %w", table, id, err)
	}
	return nil
}

func (r *PostgresRemoteRepository) List(ctx context.Context, table, shopID string, order OrderBy) ([]models.RemoteRow, error) {
	query := fmt.Sprintf(`SELECT * FROM %s WHERE "shop_id" = $1`, pgx.Identifier{table}.Sanitize())
	if order.Column != "" {
		dir := "ASC"
		if order.Descending {
			dir = "DESC"
		}
		query += fmt.Sprintf(" ORDER BY %s %s", pgx.Identifier{order.Column}.Sanitize(), dir)
	}

	rows, err := r.pool.Query(ctx, query, shopID)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}

	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", table, err)
	}

	result := make([]models.RemoteRow, 0, len(maps))
	for _, m := range maps {
		result = append(result, normalizeRow(m))
	}
	return result, nil
}

func (r *PostgresRemoteRepository) GetShop(ctx context.Context, shopID string) (models.RemoteRow, error) {
	query := fmt.Sprintf(`SELECT * FROM %s WHERE "id" = $1`, pgx.Identifier{models.ShopsTable}.Sanitize())

	rows, err := r.pool.Query(ctx, query, shopID)
	if err != nil {
		return nil, fmt.Errorf("failed to query shop: %w", err)
	}

	m, err := pgx.CollectOneRow(rows, pgx.RowToMap)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get shop by ID: %w", err)
	}
	return normalizeRow(m), nil
}

// normalizeRow converts driver-specific values into the plain types the
// row mappers understand.
func normalizeRow(m map[string]any) models.RemoteRow {
	row := make(models.RemoteRow, len(m))
	for col, v := range m {
		switch val := v.(type) {
		case pgtype.Numeric:
			f, err := val.Float64Value()
			if err == nil && f.Valid {
				row[col] = f.Float64
			} else {
				row[col] = nil
			}
		case [16]byte:
			row[col] = uuid.UUID(val).String()
		default:
			row[col] = v
		}
	}
	return row
}
