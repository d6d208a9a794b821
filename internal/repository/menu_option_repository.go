package repository

import (
	"context"
	"time"

	"skill-registry/internal/database"
	"skill-registry/internal/domain/permission"

	"github.com/google/uuid"
)

type MenuOptionRepository interface {
	Create(ctx context.Context, m permission.MenuOption) (permission.MenuOption, error)
	GetByID(ctx context.Context, id uuid.UUID) (permission.MenuOption, error)
	List(ctx context.Context) ([]permission.MenuOption, error)
	Update(ctx context.Context, m permission.MenuOption) (permission.MenuOption, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	CountChildren(ctx context.Context, id uuid.UUID) (int64, error)
	// MissingIDs returns the subset of ids with no stored menu option.
	MissingIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)
}

type PostgresMenuOptionRepository struct {
	db database.DB
}

func NewPostgresMenuOptionRepository(db database.DB) *PostgresMenuOptionRepository {
	return &PostgresMenuOptionRepository{db: db}
}

const menuOptionColumns = `id, name, parent_id, created_at, updated_at`

func (r *PostgresMenuOptionRepository) Create(ctx context.Context, m permission.MenuOption) (permission.MenuOption, error) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	now := time.Now().UTC()
	row := r.db.QueryRow(ctx,
		`INSERT INTO menu_options (id, name, parent_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $4)
		 RETURNING `+menuOptionColumns,
		m.ID, m.Name, m.ParentID, now,
	)
	created, err := scanMenuOption(row)
	if err != nil {
		if isUniqueViolation(err) {
			return permission.MenuOption{}, ErrDuplicate
		}
		return permission.MenuOption{}, err
	}
	return created, nil
}

func (r *PostgresMenuOptionRepository) GetByID(ctx context.Context, id uuid.UUID) (permission.MenuOption, error) {
	row := r.db.QueryRow(ctx, `SELECT `+menuOptionColumns+` FROM menu_options WHERE id = $1`, id)
	return scanMenuOption(row)
}

func (r *PostgresMenuOptionRepository) List(ctx context.Context) ([]permission.MenuOption, error) {
	rows, err := r.db.Query(ctx, `SELECT `+menuOptionColumns+` FROM menu_options ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]permission.MenuOption, 0)
	for rows.Next() {
		m, err := scanMenuOption(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresMenuOptionRepository) Update(ctx context.Context, m permission.MenuOption) (permission.MenuOption, error) {
	row := r.db.QueryRow(ctx,
		`UPDATE menu_options SET name = $2, parent_id = $3, updated_at = now()
		 WHERE id = $1
		 RETURNING `+menuOptionColumns,
		m.ID, m.Name, m.ParentID,
	)
	return scanMenuOption(row)
}

func (r *PostgresMenuOptionRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	n, err := r.db.Exec(ctx, `DELETE FROM menu_options WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *PostgresMenuOptionRepository) CountChildren(ctx context.Context, id uuid.UUID) (int64, error) {
	var n int64
	row := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM menu_options WHERE parent_id = $1`, id)
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *PostgresMenuOptionRepository) MissingIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, `SELECT id FROM menu_options WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	found := make(map[uuid.UUID]struct{}, len(ids))
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		found[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return missingFrom(ids, found), nil
}

func scanMenuOption(row database.Row) (permission.MenuOption, error) {
	var (
		m      permission.MenuOption
		parent uuid.NullUUID
	)
	if err := row.Scan(&m.ID, &m.Name, &parent, &m.CreatedAt, &m.UpdatedAt); err != nil {
		if isNoRows(err) {
			return permission.MenuOption{}, ErrNotFound
		}
		return permission.MenuOption{}, err
	}
	if parent.Valid {
		p := parent.UUID
		m.ParentID = &p
	}
	return m, nil
}

func missingFrom(ids []uuid.UUID, found map[uuid.UUID]struct{}) []uuid.UUID {
	var missing []uuid.UUID
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}
