// Package mongostore implements the repositories on MongoDB.
//
// Documents carry ids as strings. Every uniqueness rule the domain relies on
// is a unique index created in ensureIndexes, so index creation failures are
// fatal rather than logged.
package mongostore

import (
	"context"
	"fmt"
	"time"

	"skill-registry/internal/domain/user"
	"skill-registry/internal/repository"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	ColUsers        = "users"
	ColMenuOptions  = "menu_options"
	ColAccessLevels = "access_levels"
	ColSkills       = "skills"
	ColEvaluations  = "evaluations"
	ColProfiles     = "profiles"
)

var (
	_ user.Repository                  = (*UserRepository)(nil)
	_ repository.MenuOptionRepository  = (*MenuOptionRepository)(nil)
	_ repository.AccessLevelRepository = (*AccessLevelRepository)(nil)
	_ repository.SkillRepository       = (*SkillRepository)(nil)
	_ repository.EvaluationRepository  = (*EvaluationRepository)(nil)
	_ repository.ProfileRepository     = (*ProfileRepository)(nil)
)

type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewStore connects to uri and prepares dbName.
func NewStore(ctx context.Context, uri, dbName string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongostore: connect failed: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongostore: ping failed: %w", err)
	}

	s := &Store{client: client, db: client.Database(dbName)}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongostore: ensure indexes failed: %w", err)
	}

	return s, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Drop removes the whole database. Used by tests only.
func (s *Store) Drop(ctx context.Context) error {
	return s.db.Drop(ctx)
}

func (s *Store) col(name string) *mongo.Collection {
	return s.db.Collection(name)
}

func (s *Store) Users() *UserRepository {
	return &UserRepository{col: s.col(ColUsers)}
}

func (s *Store) MenuOptions() *MenuOptionRepository {
	return &MenuOptionRepository{col: s.col(ColMenuOptions)}
}

func (s *Store) AccessLevels() *AccessLevelRepository {
	return &AccessLevelRepository{col: s.col(ColAccessLevels)}
}

func (s *Store) Skills() *SkillRepository {
	return &SkillRepository{col: s.col(ColSkills)}
}

func (s *Store) Evaluations() *EvaluationRepository {
	return &EvaluationRepository{col: s.col(ColEvaluations)}
}

func (s *Store) Profiles() *ProfileRepository {
	return &ProfileRepository{col: s.col(ColProfiles)}
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	type idx struct {
		col    string
		keys   bson.D
		unique bool
	}

	indexes := []idx{
		{ColUsers, bson.D{{Key: "email", Value: 1}}, true},
		{ColUsers, bson.D{{Key: "access_level_id", Value: 1}}, false},

		{ColMenuOptions, bson.D{{Key: "parent_id", Value: 1}}, false},

		{ColAccessLevels, bson.D{{Key: "name", Value: 1}}, true},
		{ColAccessLevels, bson.D{{Key: "menu_option_ids", Value: 1}}, false},

		{ColSkills, bson.D{{Key: "name", Value: 1}}, true},
		{ColSkills, bson.D{{Key: "log.profile_id", Value: 1}}, false},

		{ColEvaluations, bson.D{{Key: "profile_id", Value: 1}, {Key: "skill_id", Value: 1}, {Key: "evaluator_id", Value: 1}}, true},
		{ColEvaluations, bson.D{{Key: "skill_id", Value: 1}}, false},

		{ColProfiles, bson.D{{Key: "user_id", Value: 1}}, true},
		{ColProfiles, bson.D{{Key: "skills.skill_id", Value: 1}}, false},
		{ColProfiles, bson.D{{Key: "deleting_at", Value: 1}}, false},
	}

	for _, i := range indexes {
		model := mongo.IndexModel{Keys: i.keys}
		if i.unique {
			model.Options = options.Index().SetUnique(true)
		}
		if _, err := s.col(i.col).Indexes().CreateOne(ctx, model); err != nil {
			return fmt.Errorf("create index on %s: %w", i.col, err)
		}
	}

	return nil
}
