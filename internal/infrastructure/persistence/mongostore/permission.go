package mongostore

import (
	"context"
	"time"

	"skill-registry/internal/domain/permission"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type menuOptionDocument struct {
	ID        string    `bson:"_id"`
	Name      string    `bson:"name"`
	ParentID  *string   `bson:"parent_id"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func (d menuOptionDocument) toDomain() permission.MenuOption {
	return permission.MenuOption{
		ID:        parseID(d.ID),
		Name:      d.Name,
		ParentID:  parseOptionalID(d.ParentID),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

type MenuOptionRepository struct {
	col *mongo.Collection
}

func (r *MenuOptionRepository) Create(ctx context.Context, m permission.MenuOption) (permission.MenuOption, error) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	ts := now()
	doc := menuOptionDocument{
		ID:        m.ID.String(),
		Name:      m.Name,
		ParentID:  optionalIDString(m.ParentID),
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return permission.MenuOption{}, wrapError(err)
	}
	return doc.toDomain(), nil
}

func (r *MenuOptionRepository) GetByID(ctx context.Context, id uuid.UUID) (permission.MenuOption, error) {
	doc, err := findOne[menuOptionDocument](ctx, r.col, bson.D{{Key: "_id", Value: id.String()}})
	if err != nil {
		return permission.MenuOption{}, err
	}
	return doc.toDomain(), nil
}

func (r *MenuOptionRepository) List(ctx context.Context) ([]permission.MenuOption, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}})
	docs, err := findMany[menuOptionDocument](ctx, r.col, bson.D{}, opts)
	if err != nil {
		return nil, err
	}
	out := make([]permission.MenuOption, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (r *MenuOptionRepository) Update(ctx context.Context, m permission.MenuOption) (permission.MenuOption, error) {
	doc, err := findOneAndUpdate[menuOptionDocument](ctx, r.col,
		bson.D{{Key: "_id", Value: m.ID.String()}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "name", Value: m.Name},
			{Key: "parent_id", Value: optionalIDString(m.ParentID)},
			{Key: "updated_at", Value: now()},
		}}},
		false,
	)
	if err != nil {
		return permission.MenuOption{}, err
	}
	return doc.toDomain(), nil
}

func (r *MenuOptionRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	return deleteByID(ctx, r.col, id.String())
}

func (r *MenuOptionRepository) CountChildren(ctx context.Context, id uuid.UUID) (int64, error) {
	n, err := r.col.CountDocuments(ctx, bson.D{{Key: "parent_id", Value: id.String()}})
	return n, wrapError(err)
}

func (r *MenuOptionRepository) MissingIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	return missingIDs(ctx, r.col, ids)
}

type accessLevelDocument struct {
	ID            string    `bson:"_id"`
	Name          string    `bson:"name"`
	MenuOptionIDs []string  `bson:"menu_option_ids"`
	CreatedAt     time.Time `bson:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at"`
}

func (d accessLevelDocument) toDomain() permission.AccessLevel {
	return permission.AccessLevel{
		ID:            parseID(d.ID),
		Name:          d.Name,
		MenuOptionIDs: parseIDs(d.MenuOptionIDs),
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

type AccessLevelRepository struct {
	col *mongo.Collection
}

func (r *AccessLevelRepository) List(ctx context.Context) ([]permission.AccessLevel, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	docs, err := findMany[accessLevelDocument](ctx, r.col, bson.D{}, opts)
	if err != nil {
		return nil, err
	}
	out := make([]permission.AccessLevel, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (r *AccessLevelRepository) GetByID(ctx context.Context, id uuid.UUID) (permission.AccessLevel, error) {
	doc, err := findOne[accessLevelDocument](ctx, r.col, bson.D{{Key: "_id", Value: id.String()}})
	if err != nil {
		return permission.AccessLevel{}, err
	}
	return doc.toDomain(), nil
}

func (r *AccessLevelRepository) Create(ctx context.Context, a permission.AccessLevel) (permission.AccessLevel, error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	ts := now()
	doc := accessLevelDocument{
		ID:            a.ID.String(),
		Name:          a.Name,
		MenuOptionIDs: idStrings(a.MenuOptionIDs),
		CreatedAt:     ts,
		UpdatedAt:     ts,
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return permission.AccessLevel{}, wrapError(err)
	}
	return doc.toDomain(), nil
}

func (r *AccessLevelRepository) Update(ctx context.Context, a permission.AccessLevel) (permission.AccessLevel, error) {
	doc, err := findOneAndUpdate[accessLevelDocument](ctx, r.col,
		bson.D{{Key: "_id", Value: a.ID.String()}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "name", Value: a.Name},
			{Key: "menu_option_ids", Value: idStrings(a.MenuOptionIDs)},
			{Key: "updated_at", Value: now()},
		}}},
		false,
	)
	if err != nil {
		return permission.AccessLevel{}, err
	}
	return doc.toDomain(), nil
}

func (r *AccessLevelRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	return deleteByID(ctx, r.col, id.String())
}

func (r *AccessLevelRepository) ReplaceMenuOptions(ctx context.Context, id uuid.UUID, menuOptionIDs []uuid.UUID) (permission.AccessLevel, error) {
	doc, err := findOneAndUpdate[accessLevelDocument](ctx, r.col,
		bson.D{{Key: "_id", Value: id.String()}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "menu_option_ids", Value: idStrings(menuOptionIDs)},
			{Key: "updated_at", Value: now()},
		}}},
		false,
	)
	if err != nil {
		return permission.AccessLevel{}, err
	}
	return doc.toDomain(), nil
}

func (r *AccessLevelRepository) CountByMenuOption(ctx context.Context, menuOptionID uuid.UUID) (int64, error) {
	n, err := r.col.CountDocuments(ctx, bson.D{{Key: "menu_option_ids", Value: menuOptionID.String()}})
	return n, wrapError(err)
}
