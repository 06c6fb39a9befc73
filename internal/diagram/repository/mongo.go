package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/drawhub/drawhub/backend/go-services/internal/diagram"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// diagramRecord is the Mongo shape of a diagram. Payload is stored as a raw
// JSON string so opaque editor payloads never pass through a bson decode.
type diagramRecord struct {
	ID             string    `bson:"id"`
	OwnerID        string    `bson:"ownerId"`
	Name           string    `bson:"name"`
	Payload        string    `bson:"payload"`
	Version        int64     `bson:"version"`
	LastModifiedBy string    `bson:"lastModifiedBy"`
	LastModifiedAt time.Time `bson:"lastModifiedAt"`
	CreatedAt      time.Time `bson:"createdAt"`
}

func (r *diagramRecord) toDomain() *diagram.Diagram {
	return &diagram.Diagram{
		ID:             r.ID,
		OwnerID:        r.OwnerID,
		Name:           r.Name,
		Payload:        json.RawMessage(r.Payload),
		Version:        r.Version,
		LastModifiedBy: r.LastModifiedBy,
		LastModifiedAt: r.LastModifiedAt,
		CreatedAt:      r.CreatedAt,
	}
}

// MongoRepo implements a MongoDB-backed diagram store. The version check in
// CompareAndSwap rides on a single FindOneAndUpdate whose filter includes the
// expected version, so the compare and the write are one atomic document
// operation on the server.
type MongoRepo struct {
	col *mongo.Collection
}

func NewMongoRepo(col *mongo.Collection) *MongoRepo {
	// unique index on "id"; ownerId indexed for listing
	col.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true),
	})
	col.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys: bson.D{{Key: "ownerId", Value: 1}},
	})
	return &MongoRepo{col: col}
}

func (m *MongoRepo) Create(ctx context.Context, d *diagram.Diagram) (string, error) {
	if d.ID == "" {
		d.ID = newDiagramID()
	}
	now := time.Now().UTC()
	d.CreatedAt = now
	d.Version = 1
	d.LastModifiedBy = d.OwnerID
	d.LastModifiedAt = now
	rec := &diagramRecord{
		ID:             d.ID,
		OwnerID:        d.OwnerID,
		Name:           d.Name,
		Payload:        string(d.Payload),
		Version:        d.Version,
		LastModifiedBy: d.LastModifiedBy,
		LastModifiedAt: d.LastModifiedAt,
		CreatedAt:      d.CreatedAt,
	}
	if _, err := m.col.InsertOne(ctx, rec); err != nil {
		return "", err
	}
	return d.ID, nil
}

func (m *MongoRepo) Get(ctx context.Context, id string) (*diagram.Diagram, error) {
	var rec diagramRecord
	err := m.col.FindOne(ctx, bson.M{"id": id}).Decode(&rec)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rec.toDomain(), nil
}

func (m *MongoRepo) ListOwnedBy(ctx context.Context, ownerID string) ([]*diagram.Diagram, error) {
	cur, err := m.col.Find(ctx, bson.M{"ownerId": ownerID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*diagram.Diagram{}
	for cur.Next(ctx) {
		var rec diagramRecord
		if err := cur.Decode(&rec); err != nil {
			return nil, err
		}
		out = append(out, rec.toDomain())
	}
	return out, cur.Err()
}

func (m *MongoRepo) CompareAndSwap(ctx context.Context, id string, expectedVersion int64, payload json.RawMessage, name *string, mutatorID string) (*diagram.Diagram, error) {
	set := bson.M{
		"payload":        string(payload),
		"lastModifiedBy": mutatorID,
		"lastModifiedAt": time.Now().UTC(),
	}
	if name != nil {
		set["name"] = *name
	}
	filter := bson.M{"id": id, "version": expectedVersion}
	update := bson.M{"$set": set, "$inc": bson.M{"version": 1}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var rec diagramRecord
	err := m.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&rec)
	if err == nil {
		return rec.toDomain(), nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, err
	}
	// no match: either the diagram is gone or the version moved under us
	cur, getErr := m.Get(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	return cur, ErrVersionConflict
}

func (m *MongoRepo) Delete(ctx context.Context, id string) error {
	res, err := m.col.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
