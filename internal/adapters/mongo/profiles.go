package mongo

import (
	"context"

	"github.com/google/uuid"
	"github.com/stallworks/marketplace/internal/domain"
	"github.com/stallworks/marketplace/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ProfileRepository holds participant display profiles. Profiles are written
// by the profile form (outside the core) and read here for list enrichment.
type ProfileRepository struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewProfileRepository(db *mongo.Database, logger observability.Logger) *ProfileRepository {
	return &ProfileRepository{
		coll:   db.Collection("profiles"),
		logger: logger,
	}
}

type ProfileDoc struct {
	ID           uuid.UUID `bson:"_id"`
	Role         string    `bson:"role"`
	StallName    string    `bson:"stall_name,omitempty"`
	FoodCategory string    `bson:"food_category,omitempty"`
	Phone        string    `bson:"phone,omitempty"`
}

func (d ProfileDoc) toDomain() domain.Profile {
	return domain.Profile{
		ID:           d.ID,
		Role:         domain.Role(d.Role),
		StallName:    d.StallName,
		FoodCategory: d.FoodCategory,
		Phone:        d.Phone,
	}
}

func (p *ProfileRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	var doc ProfileDoc
	err := p.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		p.logger.Error("failed to get profile", err)
		return nil, err
	}
	profile := doc.toDomain()
	return &profile, nil
}

// GetMany fetches profiles for enrichment, keyed by participant id. Missing
// profiles are simply absent from the map.
func (p *ProfileRepository) GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.Profile, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]domain.Profile{}, nil
	}
	cursor, err := p.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		p.logger.Error("failed to list profiles", err)
		return nil, err
	}
	defer cursor.Close(ctx)

	profiles := make(map[uuid.UUID]domain.Profile)
	for cursor.Next(ctx) {
		var doc ProfileDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		profiles[doc.ID] = doc.toDomain()
	}
	return profiles, cursor.Err()
}

func (p *ProfileRepository) Upsert(ctx context.Context, profile domain.Profile) error {
	doc := ProfileDoc{
		ID:           profile.ID,
		Role:         string(profile.Role),
		StallName:    profile.StallName,
		FoodCategory: profile.FoodCategory,
		Phone:        profile.Phone,
	}
	_, err := p.coll.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		p.logger.Error("failed to upsert profile", err)
	}
	return err
}
