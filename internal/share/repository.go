package share

import (
	"context"
	"errors"
	"time"

	"github.com/drawhub/drawhub/backend/go-services/internal/diagram"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound      = errors.New("share entry not found")
	ErrAlreadyShared = errors.New("diagram already shared with this grantee")
)

// Repository provides share-entry persistence. Lookups return (nil, nil)
// when no entry exists; only Create/UpdateLevel/Delete report the sentinel
// errors above.
type Repository interface {
	Create(ctx context.Context, e *Entry) error
	Get(ctx context.Context, diagramID, granteeID string) (*Entry, error)
	UpdateLevel(ctx context.Context, diagramID, granteeID string, level diagram.Permission, grantorID string) error
	Delete(ctx context.Context, diagramID, granteeID string) error
	ListByDiagram(ctx context.Context, diagramID string) ([]*Entry, error)
	ListByGrantee(ctx context.Context, granteeID string) ([]*Entry, error)
	CountByDiagram(ctx context.Context, diagramID string) (int64, error)
	DeleteByDiagram(ctx context.Context, diagramID string) error
	// LevelFor is the permission-evaluation read: the granted level for an
	// actor on a diagram, with ok=false when no entry exists.
	LevelFor(ctx context.Context, diagramID, actorID string) (diagram.Permission, bool, error)
}

// shareRecord is the Mongo shape of an Entry; the level is stored as its
// wire string so the collection stays readable and index-friendly.
type shareRecord struct {
	DiagramID string    `bson:"diagramId"`
	GranteeID string    `bson:"granteeId"`
	GrantorID string    `bson:"grantorId"`
	Level     string    `bson:"level"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

func (r *shareRecord) toDomain() (*Entry, error) {
	lvl, err := diagram.ParsePermission(r.Level)
	if err != nil {
		return nil, err
	}
	return &Entry{
		DiagramID: r.DiagramID,
		GranteeID: r.GranteeID,
		GrantorID: r.GrantorID,
		Level:     lvl,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}, nil
}

// MongoRepository implements Repository using a Mongo collection with a
// unique compound index on (diagramId, granteeId).
type MongoRepository struct {
	col *mongo.Collection
}

func NewMongoRepository(col *mongo.Collection) *MongoRepository {
	col.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys:    bson.D{{Key: "diagramId", Value: 1}, {Key: "granteeId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	col.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys: bson.D{{Key: "granteeId", Value: 1}},
	})
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Create(ctx context.Context, e *Entry) error {
	now := time.Now().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now
	rec := &shareRecord{
		DiagramID: e.DiagramID,
		GranteeID: e.GranteeID,
		GrantorID: e.GrantorID,
		Level:     e.Level.String(),
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
	if _, err := r.col.InsertOne(ctx, rec); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrAlreadyShared
		}
		return err
	}
	return nil
}

func (r *MongoRepository) Get(ctx context.Context, diagramID, granteeID string) (*Entry, error) {
	var rec shareRecord
	err := r.col.FindOne(ctx, bson.M{"diagramId": diagramID, "granteeId": granteeID}).Decode(&rec)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return rec.toDomain()
}

func (r *MongoRepository) UpdateLevel(ctx context.Context, diagramID, granteeID string, level diagram.Permission, grantorID string) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"diagramId": diagramID, "granteeId": granteeID},
		bson.M{"$set": bson.M{"level": level.String(), "grantorId": grantorID, "updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoRepository) Delete(ctx context.Context, diagramID, granteeID string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"diagramId": diagramID, "granteeId": granteeID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoRepository) ListByDiagram(ctx context.Context, diagramID string) ([]*Entry, error) {
	return r.list(ctx, bson.M{"diagramId": diagramID})
}

func (r *MongoRepository) ListByGrantee(ctx context.Context, granteeID string) ([]*Entry, error) {
	return r.list(ctx, bson.M{"granteeId": granteeID})
}

func (r *MongoRepository) list(ctx context.Context, filter bson.M) ([]*Entry, error) {
	cur, err := r.col.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*Entry{}
	for cur.Next(ctx) {
		var rec shareRecord
		if err := cur.Decode(&rec); err != nil {
			return nil, err
		}
		e, err := rec.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, cur.Err()
}

func (r *MongoRepository) CountByDiagram(ctx context.Context, diagramID string) (int64, error) {
	return r.col.CountDocuments(ctx, bson.M{"diagramId": diagramID})
}

func (r *MongoRepository) DeleteByDiagram(ctx context.Context, diagramID string) error {
	_, err := r.col.DeleteMany(ctx, bson.M{"diagramId": diagramID})
	return err
}

// LevelFor reports the granted level for (diagramID, actorID), satisfying
// the access-evaluator lookup without an extra adapter.
func (r *MongoRepository) LevelFor(ctx context.Context, diagramID, actorID string) (diagram.Permission, bool, error) {
	e, err := r.Get(ctx, diagramID, actorID)
	if err != nil {
		return diagram.PermissionNone, false, err
	}
	if e == nil {
		return diagram.PermissionNone, false, nil
	}
	return e.Level, true, nil
}
