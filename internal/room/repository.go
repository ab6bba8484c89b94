package room

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nekogravitycat/escape-room-booking/internal/pricing"
)

type Repository interface {
	Create(ctx context.Context, r *Room) error
	GetByID(ctx context.Context, id string) (*Room, error)
	GetByName(ctx context.Context, name string) (*Room, error)
	List(ctx context.Context, filter Filter) ([]*Room, int, error)
	Update(ctx context.Context, r *Room) error

	// Delete removes the room and every link pointing at it in one transaction.
	Delete(ctx context.Context, id string) error

	// ListLinking returns the ids of rooms whose linked_room_ids contain id.
	ListLinking(ctx context.Context, id string) ([]string, error)
}

var roomColumns = []string{
	"id", "name", "description", "active", "duration_minutes",
	"capacity_min", "capacity_max", "prices", "schedule",
	"linked_room_ids::text[]", "created_at", "updated_at",
}

type pgxRepository struct {
	pool *pgxpool.Pool
	psql squirrel.StatementBuilderType
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{
		pool: pool,
		psql: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *pgxRepository) Create(ctx context.Context, rm *Room) error {
	prices, sched, err := encodeDocuments(rm)
	if err != nil {
		return err
	}

	query, args, err := r.psql.Insert("public.rooms").
		Columns("name", "description", "active", "duration_minutes", "capacity_min", "capacity_max",
			"prices", "schedule", "linked_room_ids").
		Values(rm.Name, rm.Description, rm.Active, rm.DurationMinutes, rm.CapacityMin, rm.CapacityMax,
			prices, sched, squirrel.Expr("?::uuid[]", linkedOrEmpty(rm.LinkedRoomIDs))).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create room query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&rm.ID, &rm.CreatedAt, &rm.UpdatedAt); err != nil {
		return mapWriteError("create room", err)
	}
	return nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Room, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

func (r *pgxRepository) GetByName(ctx context.Context, name string) (*Room, error) {
	return r.getOne(ctx, squirrel.Eq{"name": name})
}

func (r *pgxRepository) getOne(ctx context.Context, where squirrel.Sqlizer) (*Room, error) {
	query, args, err := r.psql.Select(roomColumns...).
		From("public.rooms").
		Where(where).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get room query failed: %w", err)
	}

	rm, err := scanRoom(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get room failed: %w", err)
	}
	return rm, nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Room, int, error) {
	query := r.psql.Select(append(roomColumns, "count(*) OVER() AS total_count")...).
		From("public.rooms")

	if filter.Name != "" {
		query = query.Where(squirrel.ILike{"name": "%" + filter.Name + "%"})
	}
	if filter.Active != nil {
		query = query.Where(squirrel.Eq{"active": *filter.Active})
	}

	orderBy := "name"
	switch filter.SortBy {
	case "name", "created_at", "duration_minutes":
		orderBy = filter.SortBy
	}
	orderDir := "ASC"
	if filter.SortOrder == "DESC" || filter.SortOrder == "desc" {
		orderDir = "DESC"
	}
	query = query.OrderBy(orderBy + " " + orderDir)

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	offset := (filter.Page - 1) * filter.PageSize
	query = query.Limit(uint64(filter.PageSize)).Offset(uint64(offset))

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list rooms query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list rooms failed: %w", err)
	}
	defer rows.Close()

	var (
		result []*Room
		total  int
	)
	for rows.Next() {
		rm, err := scanRoom(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan room failed: %w", err)
		}
		result = append(result, rm)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list rooms failed: %w", err)
	}

	return result, total, nil
}

func (r *pgxRepository) Update(ctx context.Context, rm *Room) error {
	prices, sched, err := encodeDocuments(rm)
	if err != nil {
		return err
	}

	query, args, err := r.psql.Update("public.rooms").
		Set("name", rm.Name).
		Set("description", rm.Description).
		Set("active", rm.Active).
		Set("duration_minutes", rm.DurationMinutes).
		Set("capacity_min", rm.CapacityMin).
		Set("capacity_max", rm.CapacityMax).
		Set("prices", prices).
		Set("schedule", sched).
		Set("linked_room_ids", squirrel.Expr("?::uuid[]", linkedOrEmpty(rm.LinkedRoomIDs))).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": rm.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update room query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&rm.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return mapWriteError("update room", err)
	}
	return nil
}

func (r *pgxRepository) Delete(ctx context.Context, id string) error {
	unlink, unlinkArgs, err := r.psql.Update("public.rooms").
		Set("linked_room_ids", squirrel.Expr("array_remove(linked_room_ids, ?::uuid)", id)).
		Set("updated_at", squirrel.Expr("now()")).
		Where("?::uuid = ANY(linked_room_ids)", id).
		ToSql()
	if err != nil {
		return fmt.Errorf("build unlink room query failed: %w", err)
	}
	query, args, err := r.psql.Delete("public.rooms").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete room query failed: %w", err)
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, unlink, unlinkArgs...); err != nil {
			return fmt.Errorf("unlink room failed: %w", err)
		}

		ct, err := tx.Exec(ctx, query, args...)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
				return ErrHasBookings
			}
			return fmt.Errorf("delete room failed: %w", err)
		}
		if ct.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *pgxRepository) ListLinking(ctx context.Context, id string) ([]string, error) {
	query, args, err := r.psql.Select("id::text").
		From("public.rooms").
		Where("?::uuid = ANY(linked_room_ids)", id).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list linking rooms query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list linking rooms failed: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan linking rooms failed: %w", err)
	}
	return ids, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanRoom reads roomColumns, followed by any extra destinations.
func scanRoom(row rowScanner, extra ...any) (*Room, error) {
	var (
		rm          Room
		pricesJSON  []byte
		scheduleRaw []byte
	)
	dest := []any{
		&rm.ID, &rm.Name, &rm.Description, &rm.Active, &rm.DurationMinutes,
		&rm.CapacityMin, &rm.CapacityMax, &pricesJSON, &scheduleRaw,
		&rm.LinkedRoomIDs, &rm.CreatedAt, &rm.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	if len(pricesJSON) > 0 {
		if err := json.Unmarshal(pricesJSON, &rm.Prices); err != nil {
			return nil, fmt.Errorf("decode prices of room %s: %w", rm.ID, err)
		}
	}
	if len(scheduleRaw) > 0 {
		if err := json.Unmarshal(scheduleRaw, &rm.Schedule); err != nil {
			return nil, fmt.Errorf("decode schedule of room %s: %w", rm.ID, err)
		}
	}
	if rm.LinkedRoomIDs == nil {
		rm.LinkedRoomIDs = []string{}
	}
	return &rm, nil
}

func encodeDocuments(rm *Room) (prices, sched []byte, err error) {
	table := rm.Prices
	if table == nil {
		table = pricing.Table{}
	}
	prices, err = json.Marshal(table)
	if err != nil {
		return nil, nil, fmt.Errorf("encode prices: %w", err)
	}
	sched, err = json.Marshal(rm.Schedule)
	if err != nil {
		return nil, nil, fmt.Errorf("encode schedule: %w", err)
	}
	return prices, sched, nil
}

func linkedOrEmpty(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

func mapWriteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == pgerrcode.UniqueViolation {
			return ErrNameAlreadyUsed
		}
	}
	return fmt.Errorf("%s failed: %w", op, err)
}
