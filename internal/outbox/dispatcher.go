package outbox

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/atelierhq/atelier/internal/database"
	"github.com/atelierhq/atelier/internal/models"
	"github.com/atelierhq/atelier/internal/realtime"
)

const (
	dispatchBatchSize = 100
	maxAttempts       = 5
)

// Dispatcher consumes pending outbox events: it inserts one notification
// document per recipient and publishes a live event for connected sessions.
// Delivery is at-least-once: when an insert fails partway through the
// recipient list, the retry re-serves recipients that already got theirs.
type Dispatcher struct {
	db        *database.DB
	publisher *realtime.Publisher
	logger    *zap.Logger
	interval  time.Duration
}

// NewDispatcher creates a dispatcher that polls at the given interval.
func NewDispatcher(db *database.DB, publisher *realtime.Publisher, logger *zap.Logger, interval time.Duration) *Dispatcher {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Dispatcher{db: db, publisher: publisher, logger: logger, interval: interval}
}

// Run polls the outbox until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := d.DispatchPending(ctx); err != nil {
				d.logger.Error("dispatch outbox", zap.Error(err))
			}
		}
	}
}

// DispatchPending processes one batch of pending events, oldest first.
// Returns the number of events dispatched.
func (d *Dispatcher) DispatchPending(ctx context.Context) (int, error) {
	cursor, err := d.db.Collection(database.ColOutbox).Find(ctx,
		bson.M{"status": StatusPending},
		options.Find().
			SetSort(bson.D{{Key: "createdAt", Value: 1}}).
			SetLimit(dispatchBatchSize),
	)
	if err != nil {
		return 0, fmt.Errorf("find pending events: %w", err)
	}
	var events []Event
	if err := cursor.All(ctx, &events); err != nil {
		return 0, fmt.Errorf("decode pending events: %w", err)
	}

	dispatched := 0
	for _, ev := range events {
		if err := d.dispatchOne(ctx, ev); err != nil {
			d.logger.Error("dispatch outbox event",
				zap.String("event_id", ev.ID.Hex()),
				zap.String("type", string(ev.Type)),
				zap.Error(err))
			d.recordFailure(ctx, ev)
			continue
		}
		dispatched++
	}
	return dispatched, nil
}

func (d *Dispatcher) dispatchOne(ctx context.Context, ev Event) error {
	now := time.Now()
	for _, recipient := range ev.Recipients {
		notif := models.Notification{
			RecipientID: recipient,
			SenderID:    ev.SenderID,
			Type:        ev.Type,
			Title:       ev.Title,
			Message:     ev.Message,
			Data:        ev.Data,
			CreatedAt:   now,
		}
		res, err := d.db.Collection(database.ColNotifications).InsertOne(ctx, notif)
		if err != nil {
			return fmt.Errorf("insert notification: %w", err)
		}
		notif.ID, _ = res.InsertedID.(primitive.ObjectID)

		// Live publication is strictly fire-and-forget.
		d.publisher.Publish(ctx, recipient.Hex(), realtime.Event{
			Type:    string(ev.Type),
			Payload: notif,
		})
	}

	_, err := d.db.Collection(database.ColOutbox).UpdateOne(ctx,
		bson.M{"_id": ev.ID},
		bson.M{"$set": bson.M{"status": StatusDispatched, "dispatchedAt": now}},
	)
	if err != nil {
		return fmt.Errorf("mark dispatched: %w", err)
	}
	return nil
}

// recordFailure bumps the attempt counter; events past maxAttempts are parked
// as failed so the poller stops retrying them.
func (d *Dispatcher) recordFailure(ctx context.Context, ev Event) {
	update := bson.M{"$inc": bson.M{"attempts": 1}}
	if ev.Attempts+1 >= maxAttempts {
		update["$set"] = bson.M{"status": StatusFailed}
	}
	if _, err := d.db.Collection(database.ColOutbox).UpdateOne(ctx, bson.M{"_id": ev.ID}, update); err != nil {
		d.logger.Error("record outbox failure", zap.String("event_id", ev.ID.Hex()), zap.Error(err))
	}
}
