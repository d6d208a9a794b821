package mongostore

import (
	"context"
	"errors"
	"time"

	"skill-registry/internal/domain/skill"
	"skill-registry/internal/repository"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type linkReferenceDocument struct {
	Name string `bson:"name"`
	URL  string `bson:"url"`
}

type logEntryDocument struct {
	ProfileID   string    `bson:"profile_id"`
	EvaluatorID string    `bson:"evaluator_id"`
	Level       int       `bson:"level"`
	Version     int64     `bson:"version"`
	RecordedAt  time.Time `bson:"recorded_at"`
}

type skillDocument struct {
	ID             string                  `bson:"_id"`
	Name           string                  `bson:"name"`
	Description    string                  `bson:"description"`
	LinkReferences []linkReferenceDocument `bson:"link_references"`
	Log            []logEntryDocument      `bson:"log"`
	CreatedAt      time.Time               `bson:"created_at"`
	UpdatedAt      time.Time               `bson:"updated_at"`
}

func (d skillDocument) toDomain() skill.Skill {
	s := skill.Skill{
		ID:             parseID(d.ID),
		Name:           d.Name,
		Description:    d.Description,
		LinkReferences: make([]skill.LinkReference, 0, len(d.LinkReferences)),
		Log:            make([]skill.LogEntry, 0, len(d.Log)),
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
	for _, l := range d.LinkReferences {
		s.LinkReferences = append(s.LinkReferences, skill.LinkReference{Name: l.Name, URL: l.URL})
	}
	for _, e := range d.Log {
		s.Log = append(s.Log, skill.LogEntry{
			ProfileID:   parseID(e.ProfileID),
			EvaluatorID: parseID(e.EvaluatorID),
			Level:       e.Level,
			Version:     e.Version,
			RecordedAt:  e.RecordedAt,
		})
	}
	return s
}

func logEntryToDocument(e skill.LogEntry) logEntryDocument {
	return logEntryDocument{
		ProfileID:   e.ProfileID.String(),
		EvaluatorID: e.EvaluatorID.String(),
		Level:       e.Level,
		Version:     e.Version,
		RecordedAt:  e.RecordedAt.UTC(),
	}
}

type SkillRepository struct {
	col *mongo.Collection
}

func (r *SkillRepository) UpsertByName(ctx context.Context, s skill.Skill) (skill.Skill, bool, error) {
	refs := make([]linkReferenceDocument, 0, len(s.LinkReferences))
	for _, l := range s.LinkReferences {
		refs = append(refs, linkReferenceDocument{Name: l.Name, URL: l.URL})
	}

	// Two concurrent inserts of a new name race on the unique index; the
	// loser retries once and lands on the update path.
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		newID := uuid.New()
		ts := now()
		doc, err := findOneAndUpdate[skillDocument](ctx, r.col,
			bson.D{{Key: "name", Value: s.Name}},
			bson.D{
				{Key: "$set", Value: bson.D{
					{Key: "description", Value: s.Description},
					{Key: "link_references", Value: refs},
					{Key: "updated_at", Value: ts},
				}},
				{Key: "$setOnInsert", Value: bson.D{
					{Key: "_id", Value: newID.String()},
					{Key: "log", Value: bson.A{}},
					{Key: "created_at", Value: ts},
				}},
			},
			true,
		)
		if err == nil {
			return doc.toDomain(), doc.ID == newID.String(), nil
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return skill.Skill{}, false, err
		}
		lastErr = err
	}
	return skill.Skill{}, false, lastErr
}

func (r *SkillRepository) GetByID(ctx context.Context, id uuid.UUID) (skill.Skill, error) {
	doc, err := findOne[skillDocument](ctx, r.col, bson.D{{Key: "_id", Value: id.String()}})
	if err != nil {
		return skill.Skill{}, err
	}
	return doc.toDomain(), nil
}

func (r *SkillRepository) List(ctx context.Context) ([]skill.Skill, error) {
	return r.find(ctx, bson.D{})
}

func (r *SkillRepository) ListWithProfileLog(ctx context.Context, profileID uuid.UUID) ([]skill.Skill, error) {
	return r.find(ctx, bson.D{{Key: "log.profile_id", Value: profileID.String()}})
}

func (r *SkillRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	return deleteByID(ctx, r.col, id.String())
}

func (r *SkillRepository) MissingIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	return missingIDs(ctx, r.col, ids)
}

// ProjectEvaluation rewrites the log in one pipeline update: the entry for
// the (profile, evaluator) pair is filtered out and the new one prepended.
// The filter skips documents already holding that pair at version >= entry's.
func (r *SkillRepository) ProjectEvaluation(ctx context.Context, skillID uuid.UUID, entry skill.LogEntry) (bool, error) {
	doc := logEntryToDocument(entry)

	filter := bson.D{
		{Key: "_id", Value: skillID.String()},
		{Key: "log", Value: bson.D{{Key: "$not", Value: bson.D{{Key: "$elemMatch", Value: bson.D{
			{Key: "profile_id", Value: doc.ProfileID},
			{Key: "evaluator_id", Value: doc.EvaluatorID},
			{Key: "version", Value: bson.D{{Key: "$gte", Value: doc.Version}}},
		}}}}}},
	}

	keep := bson.D{{Key: "$not", Value: bson.A{
		bson.D{{Key: "$and", Value: bson.A{
			bson.D{{Key: "$eq", Value: bson.A{"$$e.profile_id", doc.ProfileID}}},
			bson.D{{Key: "$eq", Value: bson.A{"$$e.evaluator_id", doc.EvaluatorID}}},
		}}},
	}}}

	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "log", Value: bson.D{{Key: "$concatArrays", Value: bson.A{
				bson.D{{Key: "$literal", Value: bson.A{doc}}},
				bson.D{{Key: "$filter", Value: bson.D{
					{Key: "input", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$log", bson.A{}}}}},
					{Key: "as", Value: "e"},
					{Key: "cond", Value: keep},
				}}},
			}}}},
			{Key: "updated_at", Value: now()},
		}}},
	}

	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, wrapError(err)
	}
	if res.MatchedCount > 0 {
		return true, nil
	}

	found, err := exists(ctx, r.col, bson.D{{Key: "_id", Value: skillID.String()}})
	if err != nil {
		return false, err
	}
	if !found {
		return false, repository.ErrNotFound
	}
	return false, nil
}

func (r *SkillRepository) RemoveLogEntry(ctx context.Context, skillID, profileID, evaluatorID uuid.UUID) (bool, error) {
	match := bson.D{
		{Key: "profile_id", Value: profileID.String()},
		{Key: "evaluator_id", Value: evaluatorID.String()},
	}
	res, err := r.col.UpdateOne(ctx,
		bson.D{
			{Key: "_id", Value: skillID.String()},
			{Key: "log", Value: bson.D{{Key: "$elemMatch", Value: match}}},
		},
		bson.D{
			{Key: "$pull", Value: bson.D{{Key: "log", Value: match}}},
			{Key: "$set", Value: bson.D{{Key: "updated_at", Value: now()}}},
		},
	)
	if err != nil {
		return false, wrapError(err)
	}
	return res.ModifiedCount > 0, nil
}

func (r *SkillRepository) PullProfile(ctx context.Context, profileID uuid.UUID) (int64, error) {
	id := profileID.String()
	res, err := r.col.UpdateMany(ctx,
		bson.D{{Key: "log.profile_id", Value: id}},
		bson.D{
			{Key: "$pull", Value: bson.D{{Key: "log", Value: bson.D{{Key: "profile_id", Value: id}}}}},
			{Key: "$set", Value: bson.D{{Key: "updated_at", Value: now()}}},
		},
	)
	if err != nil {
		return 0, wrapError(err)
	}
	return res.ModifiedCount, nil
}

func (r *SkillRepository) find(ctx context.Context, filter bson.D) ([]skill.Skill, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	docs, err := findMany[skillDocument](ctx, r.col, filter, opts)
	if err != nil {
		return nil, err
	}
	out := make([]skill.Skill, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

type evaluationDocument struct {
	ID          string    `bson:"_id"`
	EvaluatorID string    `bson:"evaluator_id"`
	ProfileID   string    `bson:"profile_id"`
	SkillID     string    `bson:"skill_id"`
	Level       int       `bson:"level"`
	Version     int64     `bson:"version"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func (d evaluationDocument) toDomain() skill.Evaluation {
	return skill.Evaluation{
		ID:          parseID(d.ID),
		EvaluatorID: parseID(d.EvaluatorID),
		ProfileID:   parseID(d.ProfileID),
		SkillID:     parseID(d.SkillID),
		Level:       d.Level,
		Version:     d.Version,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

type EvaluationRepository struct {
	col *mongo.Collection
}

func (r *EvaluationRepository) Upsert(ctx context.Context, e skill.Evaluation) (skill.Evaluation, error) {
	filter := bson.D{
		{Key: "profile_id", Value: e.ProfileID.String()},
		{Key: "skill_id", Value: e.SkillID.String()},
		{Key: "evaluator_id", Value: e.EvaluatorID.String()},
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		id := e.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		ts := now()
		doc, err := findOneAndUpdate[evaluationDocument](ctx, r.col, filter,
			bson.D{
				{Key: "$set", Value: bson.D{
					{Key: "level", Value: e.Level},
					{Key: "updated_at", Value: ts},
				}},
				{Key: "$inc", Value: bson.D{{Key: "version", Value: int64(1)}}},
				{Key: "$setOnInsert", Value: bson.D{
					{Key: "_id", Value: id.String()},
					{Key: "created_at", Value: ts},
				}},
			},
			true,
		)
		if err == nil {
			return doc.toDomain(), nil
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return skill.Evaluation{}, err
		}
		lastErr = err
	}
	return skill.Evaluation{}, lastErr
}

func (r *EvaluationRepository) GetByID(ctx context.Context, id uuid.UUID) (skill.Evaluation, error) {
	doc, err := findOne[evaluationDocument](ctx, r.col, bson.D{{Key: "_id", Value: id.String()}})
	if err != nil {
		return skill.Evaluation{}, err
	}
	return doc.toDomain(), nil
}

func (r *EvaluationRepository) List(ctx context.Context) ([]skill.Evaluation, error) {
	return r.find(ctx, bson.D{})
}

func (r *EvaluationRepository) ListByProfile(ctx context.Context, profileID uuid.UUID) ([]skill.Evaluation, error) {
	return r.find(ctx, bson.D{{Key: "profile_id", Value: profileID.String()}})
}

func (r *EvaluationRepository) ListBySkill(ctx context.Context, skillID uuid.UUID) ([]skill.Evaluation, error) {
	return r.find(ctx, bson.D{{Key: "skill_id", Value: skillID.String()}})
}

func (r *EvaluationRepository) DeleteByProfile(ctx context.Context, profileID uuid.UUID) (int64, error) {
	res, err := r.col.DeleteMany(ctx, bson.D{{Key: "profile_id", Value: profileID.String()}})
	if err != nil {
		return 0, wrapError(err)
	}
	return res.DeletedCount, nil
}

func (r *EvaluationRepository) DeleteBySkill(ctx context.Context, skillID uuid.UUID) (int64, error) {
	res, err := r.col.DeleteMany(ctx, bson.D{{Key: "skill_id", Value: skillID.String()}})
	if err != nil {
		return 0, wrapError(err)
	}
	return res.DeletedCount, nil
}

func (r *EvaluationRepository) DeleteByKey(ctx context.Context, profileID, skillID, evaluatorID uuid.UUID) (bool, error) {
	res, err := r.col.DeleteOne(ctx, bson.D{
		{Key: "profile_id", Value: profileID.String()},
		{Key: "skill_id", Value: skillID.String()},
		{Key: "evaluator_id", Value: evaluatorID.String()},
	})
	if err != nil {
		return false, wrapError(err)
	}
	return res.DeletedCount > 0, nil
}

func (r *EvaluationRepository) ProfileIDs(ctx context.Context) ([]uuid.UUID, error) {
	return r.distinct(ctx, "profile_id")
}

func (r *EvaluationRepository) SkillIDs(ctx context.Context) ([]uuid.UUID, error) {
	return r.distinct(ctx, "skill_id")
}

func (r *EvaluationRepository) distinct(ctx context.Context, field string) ([]uuid.UUID, error) {
	var ids []string
	if err := r.col.Distinct(ctx, field, bson.D{}).Decode(&ids); err != nil {
		return nil, wrapError(err)
	}
	return parseIDs(ids), nil
}

func (r *EvaluationRepository) find(ctx context.Context, filter bson.D) ([]skill.Evaluation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	docs, err := findMany[evaluationDocument](ctx, r.col, filter, opts)
	if err != nil {
		return nil, err
	}
	out := make([]skill.Evaluation, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}
