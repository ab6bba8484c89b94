package customer

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

type Repository interface {
	// Upsert inserts c or, when its email exists, loads the stored row into c.
	// A stored customer keeps its name; its phone is only filled when empty.
	Upsert(ctx context.Context, c *Customer) error
}

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pgxRepository struct {
	db DBTX
}

func NewPgxRepository(db DBTX) Repository {
	return &pgxRepository{db: db}
}

func (r *pgxRepository) Upsert(ctx context.Context, c *Customer) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.customers").
		Columns("name", "email", "phone").
		Values(c.Name, c.Email, c.Phone).
		Suffix(`ON CONFLICT (email) DO UPDATE
			SET phone = CASE WHEN customers.phone = '' THEN EXCLUDED.phone ELSE customers.phone END,
				updated_at = now()
			RETURNING id, name, phone, created_at, updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert customer query failed: %w", err)
	}

	if err := r.db.QueryRow(ctx, query, args...).
		Scan(&c.ID, &c.Name, &c.Phone, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return fmt.Errorf("upsert customer failed: %w", err)
	}
	return nil
}
