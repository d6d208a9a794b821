package repository

import (
	"context"
	"time"

	"skill-registry/internal/database"
	"skill-registry/internal/domain/user"

	"github.com/google/uuid"
)

type PostgresUserRepository struct {
	db database.DB
}

func NewPostgresUserRepository(db database.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

const userColumns = `id, email, password_hash, access_level_id, external_people_id, created_at, updated_at`

func (r *PostgresUserRepository) CreateUser(ctx context.Context, u user.User) error {
	now := time.Now().UTC()
	_, err := r.db.Exec(ctx,
		`INSERT INTO users (id, email, password_hash, access_level_id, external_people_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $6)`,
		u.ID, u.Email, u.PasswordHash, u.AccessLevelID, u.ExternalPeopleID, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return user.ErrEmailDuplicate
		}
		return err
	}
	return nil
}

func (r *PostgresUserRepository) GetUserByID(ctx context.Context, id uuid.UUID) (user.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (r *PostgresUserRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

func (r *PostgresUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	row := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, email)
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *PostgresUserRepository) SetAccessLevel(ctx context.Context, id uuid.UUID, accessLevelID *uuid.UUID) error {
	n, err := r.db.Exec(ctx,
		`UPDATE users SET access_level_id = $2, updated_at = now() WHERE id = $1`,
		id, accessLevelID,
	)
	if err != nil {
		return err
	}
	if n == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (r *PostgresUserRepository) ClearAccessLevel(ctx context.Context, accessLevelID uuid.UUID) (int64, error) {
	return r.db.Exec(ctx,
		`UPDATE users SET access_level_id = NULL, updated_at = now() WHERE access_level_id = $1`,
		accessLevelID,
	)
}

func scanUser(row database.Row) (user.User, error) {
	var (
		u           user.User
		accessLevel uuid.NullUUID
		externalID  *int64
	)
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &accessLevel, &externalID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if isNoRows(err) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	if accessLevel.Valid {
		id := accessLevel.UUID
		u.AccessLevelID = &id
	}
	u.ExternalPeopleID = externalID
	return u, nil
}
