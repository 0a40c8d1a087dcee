// Package outbox decouples notification fan-out from the mutations that
// trigger it. A mutation appends a domain event; the dispatcher turns pending
// events into notification documents and live publications. A fan-out failure
// therefore can never be confused with a primary-write failure.
package outbox

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/atelierhq/atelier/internal/database"
	"github.com/atelierhq/atelier/internal/models"
)

// Event statuses.
const (
	StatusPending    = "pending"
	StatusDispatched = "dispatched"
	StatusFailed     = "failed"
)

// Event is one recorded side-effect intent: a notification to fan out to a
// set of recipients.
type Event struct {
	ID           primitive.ObjectID      `bson:"_id,omitempty"`
	Type         models.NotificationType `bson:"type"`
	Recipients   []primitive.ObjectID    `bson:"recipients"`
	SenderID     *primitive.ObjectID     `bson:"senderId,omitempty"`
	Title        string                  `bson:"title"`
	Message      string                  `bson:"message"`
	Data         bson.M                  `bson:"data,omitempty"`
	Status       string                  `bson:"status"`
	Attempts     int                     `bson:"attempts"`
	CreatedAt    time.Time               `bson:"createdAt"`
	DispatchedAt *time.Time              `bson:"dispatchedAt,omitempty"`
}

// Outbox appends domain events for later dispatch.
type Outbox struct {
	db     *database.DB
	logger *zap.Logger
}

// New creates an Outbox.
func New(db *database.DB, logger *zap.Logger) *Outbox {
	return &Outbox{db: db, logger: logger}
}

// Append records an event for dispatch. Best-effort: a failed append is
// logged and swallowed so it cannot roll back the mutation that produced it.
func (o *Outbox) Append(ctx context.Context, ev Event) {
	if len(ev.Recipients) == 0 {
		return
	}
	ev.Status = StatusPending
	ev.CreatedAt = time.Now()
	if _, err := o.db.Collection(database.ColOutbox).InsertOne(ctx, ev); err != nil {
		o.logger.Error("append outbox event",
			zap.String("type", string(ev.Type)),
			zap.Error(err))
	}
}
