package repository

import (
	"database/sql"
	"encoding/json"
	"errors"

	"skill-registry/internal/domain/user"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

var (
	_ user.Repository       = (*PostgresUserRepository)(nil)
	_ MenuOptionRepository  = (*PostgresMenuOptionRepository)(nil)
	_ AccessLevelRepository = (*PostgresAccessLevelRepository)(nil)
	_ SkillRepository       = (*PostgresSkillRepository)(nil)
	_ EvaluationRepository  = (*PostgresEvaluationRepository)(nil)
	_ ProfileRepository     = (*PostgresProfileRepository)(nil)
)

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return false
}

// toJSONB renders v for a jsonb parameter. Nil slices become an empty array.
func toJSONB[T any](v []T) (string, error) {
	if v == nil {
		v = []T{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func fromJSONB[T any](raw []byte) ([]T, error) {
	out := make([]T, 0)
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// filterArrayExpr keeps the elements of a jsonb array column that do not match
// cond, preserving order. cond sees each element as e.
func filterArrayExpr(column, cond string) string {
	return `COALESCE((SELECT jsonb_agg(e ORDER BY ord) FROM jsonb_array_elements(` + column +
		`) WITH ORDINALITY AS t(e, ord) WHERE NOT (` + cond + `)), '[]'::jsonb)`
}
