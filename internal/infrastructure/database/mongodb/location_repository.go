package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/icancar/fleet-management-sub000/internal/domain/location"
)

// fixDocument is the stored shape of a fix. UUIDs are kept as strings so the
// collection stays readable from the mongo shell.
type fixDocument struct {
	ID         string    `bson:"_id"`
	DeviceID   string    `bson:"device_id"`
	UserID     *string   `bson:"user_id"`
	CompanyID  *string   `bson:"company_id,omitempty"`
	Latitude   float64   `bson:"latitude"`
	Longitude  float64   `bson:"longitude"`
	Accuracy   float64   `bson:"accuracy"`
	RecordedAt time.Time `bson:"recorded_at"`
	Speed      *float64  `bson:"speed,omitempty"`
	Bearing    *float64  `bson:"bearing,omitempty"`
	Altitude   *float64  `bson:"altitude,omitempty"`
	CreatedAt  time.Time `bson:"created_at"`
}

// LocationRepository stores fixes in a mongo collection.
type LocationRepository struct {
	collection *mongo.Collection
}

func NewLocationRepository(collection *mongo.Collection) *LocationRepository {
	return &LocationRepository{collection: collection}
}

// EnsureIndexes creates the compound indexes used by Find and DeviceIDsForUser.
func (r *LocationRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "device_id", Value: 1}, {Key: "recorded_at", Value: 1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "recorded_at", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create fix indexes: %w", err)
	}
	return nil
}

func (r *LocationRepository) Create(ctx context.Context, fix *location.Fix) error {
	if fix.ID == uuid.Nil {
		fix.ID = uuid.New()
	}
	if fix.CreatedAt.IsZero() {
		fix.CreatedAt = time.Now().UTC()
	}

	if _, err := r.collection.InsertOne(ctx, toFixDocument(fix)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return location.ErrFixAlreadyExists
		}
		return fmt.Errorf("failed to insert fix: %w", err)
	}

	return nil
}

func (r *LocationRepository) Find(ctx context.Context, q location.Query) ([]location.Fix, error) {
	filter := bson.M{"device_id": q.DeviceID}

	if q.UserID != nil {
		if q.IncludeUnattributed {
			filter["user_id"] = bson.M{"$in": bson.A{q.UserID.String(), nil}}
		} else {
			filter["user_id"] = q.UserID.String()
		}
	}

	window := bson.M{}
	if !q.From.IsZero() {
		window["$gte"] = q.From.UTC()
	}
	if !q.To.IsZero() {
		window["$lt"] = q.To.UTC()
	}
	if len(window) > 0 {
		filter["recorded_at"] = window
	}

	opts := options.Find().SetSort(bson.D{{Key: "recorded_at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find fixes: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []fixDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode fixes: %w", err)
	}

	fixes := make([]location.Fix, 0, len(docs))
	for i := range docs {
		fix, err := toFixEntity(&docs[i])
		if err != nil {
			return nil, err
		}
		fixes = append(fixes, fix)
	}

	return fixes, nil
}

func (r *LocationRepository) GetPrevious(ctx context.Context, deviceID string, userID uuid.UUID, excludeID uuid.UUID) (*location.Fix, error) {
	filter := bson.M{
		"device_id": deviceID,
		"user_id":   userID.String(),
		"_id":       bson.M{"$ne": excludeID.String()},
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "recorded_at", Value: -1}, {Key: "_id", Value: -1}})

	var doc fixDocument
	err := r.collection.FindOne(ctx, filter, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, location.ErrFixNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get previous fix: %w", err)
	}

	fix, err := toFixEntity(&doc)
	if err != nil {
		return nil, err
	}
	return &fix, nil
}

func (r *LocationRepository) DeviceIDsForUser(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]string, error) {
	filter := bson.M{
		"user_id":     userID.String(),
		"recorded_at": bson.M{"$gte": from.UTC(), "$lt": to.UTC()},
	}

	values, err := r.collection.Distinct(ctx, "device_id", filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices for user: %w", err)
	}

	ids := make([]string, 0, len(values))
	for _, v := range values {
		if id, ok := v.(string); ok {
			ids = append(ids, id)
		}
	}

	return ids, nil
}

func toFixDocument(f *location.Fix) *fixDocument {
	return &fixDocument{
		ID:         f.ID.String(),
		DeviceID:   f.DeviceID,
		UserID:     uuidString(f.UserID),
		CompanyID:  uuidString(f.CompanyID),
		Latitude:   f.Latitude,
		Longitude:  f.Longitude,
		Accuracy:   f.Accuracy,
		RecordedAt: f.Timestamp.UTC(),
		Speed:      f.Speed,
		Bearing:    f.Bearing,
		Altitude:   f.Altitude,
		CreatedAt:  f.CreatedAt.UTC(),
	}
}

func toFixEntity(d *fixDocument) (location.Fix, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return location.Fix{}, fmt.Errorf("invalid fix id %q: %w", d.ID, err)
	}
	userID, err := parseUUID(d.UserID)
	if err != nil {
		return location.Fix{}, err
	}
	companyID, err := parseUUID(d.CompanyID)
	if err != nil {
		return location.Fix{}, err
	}

	return location.Fix{
		ID:        id,
		DeviceID:  d.DeviceID,
		UserID:    userID,
		CompanyID: companyID,
		Latitude:  d.Latitude,
		Longitude: d.Longitude,
		Accuracy:  d.Accuracy,
		Timestamp: d.RecordedAt.UTC(),
		Speed:     d.Speed,
		Bearing:   d.Bearing,
		Altitude:  d.Altitude,
		CreatedAt: d.CreatedAt.UTC(),
	}, nil
}

func uuidString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func parseUUID(s *string) (*uuid.UUID, error) {
	if s == nil {
		return nil, nil
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil, fmt.Errorf("invalid uuid %q: %w", *s, err)
	}
	return &id, nil
}
