package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stallworks/marketplace/internal/domain"
	"github.com/stallworks/marketplace/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// AuditLogger records negotiation lifecycle events for back-office review.
// Writes are best-effort; callers log failures and move on.
type AuditLogger struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewAuditLogger(db *mongo.Database, logger observability.Logger) *AuditLogger {
	return &AuditLogger{
		coll:   db.Collection("audit_logs"),
		logger: logger,
	}
}

type AuditLog struct {
	ID        uuid.UUID `bson:"_id"`
	Action    string    `bson:"action"`
	ActorID   uuid.UUID `bson:"actor_id"`
	Timestamp time.Time `bson:"timestamp"`
	Data      bson.M    `bson:"data"`
}

func (a *AuditLogger) LogEvent(ctx context.Context, action string, actorID uuid.UUID, data map[string]interface{}) error {
	log := AuditLog{
		ID:        uuid.New(),
		Action:    action,
		ActorID:   actorID,
		Timestamp: time.Now(),
		Data:      bson.M(data),
	}
	_, err := a.coll.InsertOne(ctx, log)
	if err != nil {
		a.logger.Error("failed to insert audit log", err)
		return err
	}
	return nil
}

func (a *AuditLogger) LogOffer(ctx context.Context, n domain.Negotiation) error {
	data := map[string]interface{}{
		"negotiation_id": n.ID,
		"listing_id":     n.ListingID,
		"proposed_price": n.ProposedPrice,
		"commission":     n.Commission,
	}
	return a.LogEvent(ctx, "negotiation.created", n.VendorID, data)
}

func (a *AuditLogger) LogDecision(ctx context.Context, actorID uuid.UUID, n domain.Negotiation) error {
	data := map[string]interface{}{
		"negotiation_id": n.ID,
		"listing_id":     n.ListingID,
		"status":         string(n.Status),
	}
	return a.LogEvent(ctx, "negotiation."+string(n.Status), actorID, data)
}
