package mongostore

import (
	"context"
	"errors"
	"time"

	"skill-registry/internal/domain/profile"
	"skill-registry/internal/repository"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type experienceDocument struct {
	ID          string     `bson:"id"`
	Title       string     `bson:"title"`
	Company     string     `bson:"company"`
	Location    string     `bson:"location"`
	From        time.Time  `bson:"from"`
	To          *time.Time `bson:"to,omitempty"`
	Current     bool       `bson:"current"`
	Description string     `bson:"description"`
}

type educationDocument struct {
	ID           string     `bson:"id"`
	Title        string     `bson:"title"`
	School       string     `bson:"school"`
	Degree       string     `bson:"degree"`
	FieldOfStudy string     `bson:"field_of_study"`
	From         time.Time  `bson:"from"`
	To           *time.Time `bson:"to,omitempty"`
	Current      bool       `bson:"current"`
	Description  string     `bson:"description"`
}

type socialDocument struct {
	Title string `bson:"title"`
	URL   string `bson:"url"`
}

type skillDeclarationDocument struct {
	SkillID string `bson:"skill_id"`
	URL     string `bson:"url"`
}

type profileDocument struct {
	ID             string                     `bson:"_id"`
	UserID         string                     `bson:"user_id"`
	FirstName      string                     `bson:"first_name"`
	LastName       string                     `bson:"last_name"`
	Occupation     string                     `bson:"occupation"`
	Picture        string                     `bson:"picture"`
	Company        string                     `bson:"company"`
	Location       string                     `bson:"location"`
	Active         bool                       `bson:"active"`
	GithubUsername string                     `bson:"github_username"`
	Experience     []experienceDocument       `bson:"experience"`
	Education      []educationDocument        `bson:"education"`
	Social         []socialDocument           `bson:"social"`
	Skills         []skillDeclarationDocument `bson:"skills"`
	DeletingAt     *time.Time                 `bson:"deleting_at"`
	CreatedAt      time.Time                  `bson:"created_at"`
	UpdatedAt      time.Time                  `bson:"updated_at"`
}

func (d profileDocument) toDomain() profile.Profile {
	p := profile.Profile{
		ID:             parseID(d.ID),
		UserID:         parseID(d.UserID),
		FirstName:      d.FirstName,
		LastName:       d.LastName,
		Occupation:     d.Occupation,
		Picture:        d.Picture,
		Company:        d.Company,
		Location:       d.Location,
		Active:         d.Active,
		GithubUsername: d.GithubUsername,
		Experience:     make([]profile.Experience, 0, len(d.Experience)),
		Education:      make([]profile.Education, 0, len(d.Education)),
		Social:         make([]profile.Social, 0, len(d.Social)),
		Skills:         make([]profile.SkillDeclaration, 0, len(d.Skills)),
		DeletingAt:     d.DeletingAt,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
	for _, e := range d.Experience {
		p.Experience = append(p.Experience, profile.Experience{
			ID: parseID(e.ID), Title: e.Title, Company: e.Company, Location: e.Location,
			From: e.From, To: e.To, Current: e.Current, Description: e.Description,
		})
	}
	for _, e := range d.Education {
		p.Education = append(p.Education, profile.Education{
			ID: parseID(e.ID), Title: e.Title, School: e.School, Degree: e.Degree, FieldOfStudy: e.FieldOfStudy,
			From: e.From, To: e.To, Current: e.Current, Description: e.Description,
		})
	}
	for _, s := range d.Social {
		p.Social = append(p.Social, profile.Social{Title: s.Title, URL: s.URL})
	}
	for _, s := range d.Skills {
		p.Skills = append(p.Skills, profile.SkillDeclaration{SkillID: parseID(s.SkillID), URL: s.URL})
	}
	return p
}

func experienceToDocument(e profile.Experience) experienceDocument {
	return experienceDocument{
		ID: e.ID.String(), Title: e.Title, Company: e.Company, Location: e.Location,
		From: e.From.UTC(), To: e.To, Current: e.Current, Description: e.Description,
	}
}

func educationToDocument(e profile.Education) educationDocument {
	return educationDocument{
		ID: e.ID.String(), Title: e.Title, School: e.School, Degree: e.Degree, FieldOfStudy: e.FieldOfStudy,
		From: e.From.UTC(), To: e.To, Current: e.Current, Description: e.Description,
	}
}

type ProfileRepository struct {
	col *mongo.Collection
}

func liveFilter(key string, value any) bson.D {
	return bson.D{{Key: key, Value: value}, {Key: "deleting_at", Value: nil}}
}

// Upsert matches only a live profile of the user. When the user's profile is
// tombstoned the upsert tries to insert, hits the unique user_id index twice,
// and reports ErrConflict.
func (r *ProfileRepository) Upsert(ctx context.Context, p profile.Profile) (profile.Profile, bool, error) {
	exp := make([]experienceDocument, 0, len(p.Experience))
	for _, e := range p.Experience {
		exp = append(exp, experienceToDocument(e))
	}
	edu := make([]educationDocument, 0, len(p.Education))
	for _, e := range p.Education {
		edu = append(edu, educationToDocument(e))
	}
	soc := make([]socialDocument, 0, len(p.Social))
	for _, s := range p.Social {
		soc = append(soc, socialDocument{Title: s.Title, URL: s.URL})
	}
	decl := make([]skillDeclarationDocument, 0, len(p.Skills))
	for _, s := range p.Skills {
		decl = append(decl, skillDeclarationDocument{SkillID: s.SkillID.String(), URL: s.URL})
	}

	for attempt := 0; attempt < 2; attempt++ {
		newID := uuid.New()
		ts := now()
		doc, err := findOneAndUpdate[profileDocument](ctx, r.col,
			liveFilter("user_id", p.UserID.String()),
			bson.D{
				{Key: "$set", Value: bson.D{
					{Key: "first_name", Value: p.FirstName},
					{Key: "last_name", Value: p.LastName},
					{Key: "occupation", Value: p.Occupation},
					{Key: "picture", Value: p.Picture},
					{Key: "company", Value: p.Company},
					{Key: "location", Value: p.Location},
					{Key: "active", Value: p.Active},
					{Key: "github_username", Value: p.GithubUsername},
					{Key: "experience", Value: exp},
					{Key: "education", Value: edu},
					{Key: "social", Value: soc},
					{Key: "skills", Value: decl},
					{Key: "updated_at", Value: ts},
				}},
				{Key: "$setOnInsert", Value: bson.D{
					{Key: "_id", Value: newID.String()},
					{Key: "created_at", Value: ts},
				}},
			},
			true,
		)
		if err == nil {
			return doc.toDomain(), doc.ID == newID.String(), nil
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return profile.Profile{}, false, err
		}
	}
	return profile.Profile{}, false, repository.ErrConflict
}

func (r *ProfileRepository) GetByID(ctx context.Context, id uuid.UUID) (profile.Profile, error) {
	return r.getOne(ctx, bson.D{{Key: "_id", Value: id.String()}})
}

func (r *ProfileRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (profile.Profile, error) {
	return r.getOne(ctx, bson.D{{Key: "user_id", Value: userID.String()}})
}

func (r *ProfileRepository) List(ctx context.Context) ([]profile.Profile, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	return r.find(ctx, bson.D{{Key: "deleting_at", Value: nil}}, opts)
}

func (r *ProfileRepository) ListDeleting(ctx context.Context) ([]profile.Profile, error) {
	opts := options.Find().SetSort(bson.D{{Key: "deleting_at", Value: 1}})
	return r.find(ctx, bson.D{{Key: "deleting_at", Value: bson.D{{Key: "$ne", Value: nil}}}}, opts)
}

func (r *ProfileRepository) MarkDeleting(ctx context.Context, id uuid.UUID, at time.Time) (profile.Profile, error) {
	doc, err := findOneAndUpdate[profileDocument](ctx, r.col,
		liveFilter("_id", id.String()),
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "deleting_at", Value: at.UTC().Truncate(time.Millisecond)},
			{Key: "updated_at", Value: now()},
		}}},
		false,
	)
	if err == nil {
		return doc.toDomain(), nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return profile.Profile{}, err
	}
	// Either missing or already tombstoned.
	return r.GetByID(ctx, id)
}

func (r *ProfileRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	return deleteByID(ctx, r.col, id.String())
}

func (r *ProfileRepository) AddExperience(ctx context.Context, userID uuid.UUID, e profile.Experience) (profile.Profile, error) {
	return r.prepend(ctx, "experience", userID, experienceToDocument(e))
}

func (r *ProfileRepository) RemoveExperience(ctx context.Context, userID, entryID uuid.UUID) (profile.Profile, error) {
	return r.pullEntry(ctx, "experience", userID, entryID)
}

func (r *ProfileRepository) AddEducation(ctx context.Context, userID uuid.UUID, e profile.Education) (profile.Profile, error) {
	return r.prepend(ctx, "education", userID, educationToDocument(e))
}

func (r *ProfileRepository) RemoveEducation(ctx context.Context, userID, entryID uuid.UUID) (profile.Profile, error) {
	return r.pullEntry(ctx, "education", userID, entryID)
}

func (r *ProfileRepository) PullSkillDeclarations(ctx context.Context, skillID uuid.UUID) (int64, error) {
	id := skillID.String()
	res, err := r.col.UpdateMany(ctx,
		bson.D{{Key: "skills.skill_id", Value: id}},
		bson.D{
			{Key: "$pull", Value: bson.D{{Key: "skills", Value: bson.D{{Key: "skill_id", Value: id}}}}},
			{Key: "$set", Value: bson.D{{Key: "updated_at", Value: now()}}},
		},
	)
	if err != nil {
		return 0, wrapError(err)
	}
	return res.ModifiedCount, nil
}

func (r *ProfileRepository) prepend(ctx context.Context, field string, userID uuid.UUID, entry any) (profile.Profile, error) {
	doc, err := findOneAndUpdate[profileDocument](ctx, r.col,
		liveFilter("user_id", userID.String()),
		bson.D{
			{Key: "$push", Value: bson.D{{Key: field, Value: bson.D{
				{Key: "$each", Value: bson.A{entry}},
				{Key: "$position", Value: 0},
			}}}},
			{Key: "$set", Value: bson.D{{Key: "updated_at", Value: now()}}},
		},
		false,
	)
	if err != nil {
		return profile.Profile{}, err
	}
	return doc.toDomain(), nil
}

func (r *ProfileRepository) pullEntry(ctx context.Context, field string, userID, entryID uuid.UUID) (profile.Profile, error) {
	filter := liveFilter("user_id", userID.String())
	filter = append(filter, bson.E{Key: field + ".id", Value: entryID.String()})

	doc, err := findOneAndUpdate[profileDocument](ctx, r.col, filter,
		bson.D{
			{Key: "$pull", Value: bson.D{{Key: field, Value: bson.D{{Key: "id", Value: entryID.String()}}}}},
			{Key: "$set", Value: bson.D{{Key: "updated_at", Value: now()}}},
		},
		false,
	)
	if err == nil {
		return doc.toDomain(), nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return profile.Profile{}, err
	}

	live, err := exists(ctx, r.col, liveFilter("user_id", userID.String()))
	if err != nil {
		return profile.Profile{}, err
	}
	if live {
		return profile.Profile{}, repository.ErrEntryNotFound
	}
	return profile.Profile{}, repository.ErrNotFound
}

func (r *ProfileRepository) getOne(ctx context.Context, filter bson.D) (profile.Profile, error) {
	doc, err := findOne[profileDocument](ctx, r.col, filter)
	if err != nil {
		return profile.Profile{}, err
	}
	return doc.toDomain(), nil
}

func (r *ProfileRepository) find(ctx context.Context, filter bson.D, opts ...options.Lister[options.FindOptions]) ([]profile.Profile, error) {
	docs, err := findMany[profileDocument](ctx, r.col, filter, opts...)
	if err != nil {
		return nil, err
	}
	out := make([]profile.Profile, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}
