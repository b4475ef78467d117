package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mcdev12/courtline/go/internal/models"
)

// DefaultCollection is the collection the document backend writes to.
const DefaultCollection = "notification_outbox"

// outboxDocument is the stored shape of a record. Payload and rendered content
// are kept as JSON text so the snapshot reads back byte for byte.
type outboxDocument struct {
	ID        string     `bson:"_id"`
	EventType string     `bson:"eventType"`
	Channels  []string   `bson:"channels"`
	Payload   string     `bson:"payload,omitempty"`
	Rendered  string     `bson:"rendered"`
	Status    string     `bson:"status"`
	Retries   int        `bson:"retries"`
	Error     *string    `bson:"error,omitempty"`
	DedupeKey *string    `bson:"dedupeKey,omitempty"`
	CreatedAt time.Time  `bson:"createdAt"`
	SentAt    *time.Time `bson:"sentAt,omitempty"`
}

// MongoRepository is the MongoDB outbox backend.
type MongoRepository struct {
	coll *mongo.Collection
}

func NewMongoRepository(coll *mongo.Collection) *MongoRepository {
	return &MongoRepository{coll: coll}
}

// EnsureIndexes creates the unique dedupe key index. Documents without a key are
// excluded so any number of them can exist.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "dedupeKey", Value: 1}},
		Options: options.Index().
			SetName("uniq_dedupe_key").
			SetUnique(true).
			SetPartialFilterExpression(bson.M{"dedupeKey": bson.M{"$type": "string"}}),
	})
	if err != nil {
		return fmt.Errorf("create dedupe key index: %w", err)
	}
	return nil
}

func (r *MongoRepository) InsertOrGet(ctx context.Context, rec models.OutboxRecord) (*models.OutboxRecord, error) {
	doc := recordToDocument(rec)
	if _, err := r.coll.InsertOne(ctx, doc); err != nil && !mongo.IsDuplicateKeyError(err) {
		return nil, fmt.Errorf("failed to insert outbox document: %w", err)
	}

	filter := bson.M{"_id": doc.ID}
	if rec.DedupeKey != nil {
		filter = bson.M{"dedupeKey": *rec.DedupeKey}
	}
	stored, err := r.findOne(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("re-read outbox document %s: %w", rec.ID, err)
	}
	return stored, nil
}

func (r *MongoRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.OutboxRecord, error) {
	return r.findOne(ctx, bson.M{"_id": id.String()})
}

func (r *MongoRepository) GetByDedupeKey(ctx context.Context, key string) (*models.OutboxRecord, error) {
	return r.findOne(ctx, bson.M{"dedupeKey": key})
}

func (r *MongoRepository) MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time) (bool, error) {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id.String(), "status": bson.M{"$ne": string(models.OutboxStatusSent)}},
		bson.M{
			"$set":   bson.M{"status": string(models.OutboxStatusSent), "sentAt": sentAt},
			"$unset": bson.M{"error": ""},
		},
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark outbox document sent: %w", err)
	}
	return res.MatchedCount > 0, nil
}

func (r *MongoRepository) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) (bool, error) {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id.String(), "status": bson.M{"$ne": string(models.OutboxStatusSent)}},
		bson.M{"$set": bson.M{"status": string(models.OutboxStatusFailed), "error": errMsg}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark outbox document failed: %w", err)
	}
	return res.MatchedCount > 0, nil
}

func (r *MongoRepository) CountByStatus(ctx context.Context, status models.OutboxStatus) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"status": string(status)})
	if err != nil {
		return 0, fmt.Errorf("failed to count outbox documents: %w", err)
	}
	return n, nil
}

func (r *MongoRepository) Ping(ctx context.Context) error {
	return r.coll.Database().Client().Ping(ctx, nil)
}

func (r *MongoRepository) findOne(ctx context.Context, filter bson.M) (*models.OutboxRecord, error) {
	var doc outboxDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to find outbox document: %w", err)
	}
	return documentToRecord(doc)
}

func recordToDocument(rec models.OutboxRecord) outboxDocument {
	return outboxDocument{
		ID:        rec.ID.String(),
		EventType: rec.EventType,
		Channels:  channelsToStrings(rec.Channels),
		Payload:   string(rec.Payload),
		Rendered:  string(rec.Rendered),
		Status:    string(rec.Status),
		Retries:   rec.Retries,
		Error:     rec.Error,
		DedupeKey: rec.DedupeKey,
		CreatedAt: rec.CreatedAt,
		SentAt:    rec.SentAt,
	}
}

func documentToRecord(doc outboxDocument) (*models.OutboxRecord, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("parse outbox document id %q: %w", doc.ID, err)
	}
	rec := &models.OutboxRecord{
		ID:        id,
		EventType: doc.EventType,
		Channels:  stringsToChannels(doc.Channels),
		Rendered:  []byte(doc.Rendered),
		Status:    models.OutboxStatus(doc.Status),
		Retries:   doc.Retries,
		Error:     doc.Error,
		DedupeKey: doc.DedupeKey,
		CreatedAt: doc.CreatedAt,
		SentAt:    doc.SentAt,
	}
	if doc.Payload != "" {
		rec.Payload = []byte(doc.Payload)
	}
	return rec, nil
}
