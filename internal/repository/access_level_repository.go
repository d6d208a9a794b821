package repository

import (
	"context"
	"time"

	"skill-registry/internal/database"
	"skill-registry/internal/domain/permission"

	"github.com/google/uuid"
)

type AccessLevelRepository interface {
	List(ctx context.Context) ([]permission.AccessLevel, error)
	GetByID(ctx context.Context, id uuid.UUID) (permission.AccessLevel, error)
	// Create returns ErrDuplicate when the id or the name is already taken.
	Create(ctx context.Context, a permission.AccessLevel) (permission.AccessLevel, error)
	// Update replaces name and menu options of an existing level.
	Update(ctx context.Context, a permission.AccessLevel) (permission.AccessLevel, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	ReplaceMenuOptions(ctx context.Context, id uuid.UUID, menuOptionIDs []uuid.UUID) (permission.AccessLevel, error)
	CountByMenuOption(ctx context.Context, menuOptionID uuid.UUID) (int64, error)
}

type PostgresAccessLevelRepository struct {
	db database.DB
}

func NewPostgresAccessLevelRepository(db database.DB) *PostgresAccessLevelRepository {
	return &PostgresAccessLevelRepository{db: db}
}

const accessLevelColumns = `id, name, menu_option_ids, created_at, updated_at`

func (r *PostgresAccessLevelRepository) List(ctx context.Context) ([]permission.AccessLevel, error) {
	rows, err := r.db.Query(ctx, `SELECT `+accessLevelColumns+` FROM access_levels ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]permission.AccessLevel, 0)
	for rows.Next() {
		a, err := scanAccessLevel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresAccessLevelRepository) GetByID(ctx context.Context, id uuid.UUID) (permission.AccessLevel, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accessLevelColumns+` FROM access_levels WHERE id = $1`, id)
	return scanAccessLevel(row)
}

func (r *PostgresAccessLevelRepository) Create(ctx context.Context, a permission.AccessLevel) (permission.AccessLevel, error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	ids, err := toJSONB(a.MenuOptionIDs)
	if err != nil {
		return permission.AccessLevel{}, err
	}
	now := time.Now().UTC()
	row := r.db.QueryRow(ctx,
		`INSERT INTO access_levels (id, name, menu_option_ids, created_at, updated_at)
		 VALUES ($1, $2, $3::jsonb, $4, $4)
		 RETURNING `+accessLevelColumns,
		a.ID, a.Name, ids, now,
	)
	created, err := scanAccessLevel(row)
	if err != nil {
		if isUniqueViolation(err) {
			return permission.AccessLevel{}, ErrDuplicate
		}
		return permission.AccessLevel{}, err
	}
	return created, nil
}

func (r *PostgresAccessLevelRepository) Update(ctx context.Context, a permission.AccessLevel) (permission.AccessLevel, error) {
	ids, err := toJSONB(a.MenuOptionIDs)
	if err != nil {
		return permission.AccessLevel{}, err
	}
	row := r.db.QueryRow(ctx,
		`UPDATE access_levels SET name = $2, menu_option_ids = $3::jsonb, updated_at = now()
		 WHERE id = $1
		 RETURNING `+accessLevelColumns,
		a.ID, a.Name, ids,
	)
	updated, err := scanAccessLevel(row)
	if err != nil {
		if isUniqueViolation(err) {
			return permission.AccessLevel{}, ErrDuplicate
		}
		return permission.AccessLevel{}, err
	}
	return updated, nil
}

func (r *PostgresAccessLevelRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	n, err := r.db.Exec(ctx, `DELETE FROM access_levels WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *PostgresAccessLevelRepository) ReplaceMenuOptions(ctx context.Context, id uuid.UUID, menuOptionIDs []uuid.UUID) (permission.AccessLevel, error) {
	ids, err := toJSONB(menuOptionIDs)
	if err != nil {
		return permission.AccessLevel{}, err
	}
	row := r.db.QueryRow(ctx,
		`UPDATE access_levels SET menu_option_ids = $2::jsonb, updated_at = now()
		 WHERE id = $1
		 RETURNING `+accessLevelColumns,
		id, ids,
	)
	return scanAccessLevel(row)
}

func (r *PostgresAccessLevelRepository) CountByMenuOption(ctx context.Context, menuOptionID uuid.UUID) (int64, error) {
	var n int64
	row := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM access_levels WHERE menu_option_ids @> jsonb_build_array($1::text)`,
		menuOptionID.String(),
	)
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func scanAccessLevel(row database.Row) (permission.AccessLevel, error) {
	var (
		a   permission.AccessLevel
		raw []byte
	)
	if err := row.Scan(&a.ID, &a.Name, &raw, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if isNoRows(err) {
			return permission.AccessLevel{}, ErrNotFound
		}
		return permission.AccessLevel{}, err
	}
	ids, err := fromJSONB[uuid.UUID](raw)
	if err != nil {
		return permission.AccessLevel{}, err
	}
	a.MenuOptionIDs = ids
	return a, nil
}
