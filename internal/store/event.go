package store

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/eventhub/apiserver/internal/db"
	"github.com/eventhub/apiserver/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EventListFilter narrows and pages an event listing. Mode and EventType are
// case-insensitive equality filters; Search is a case-insensitive substring
// match over eventName and description.
type EventListFilter struct {
	Mode      string
	EventType string
	Search    string
	Skip      int64
	Limit     int64
}

// EventRepository handles persistence for events.
type EventRepository struct {
	collection *mongo.Collection
}

func NewEventRepository(database *mongo.Database) *EventRepository {
	return &EventRepository{collection: database.Collection(db.EventsCollection)}
}

func (r *EventRepository) List(ctx context.Context, filter EventListFilter) ([]types.Event, int64, error) {
	query := bson.M{}
	if filter.Mode != "" {
		query["mode"] = strings.ToLower(filter.Mode)
	}
	if filter.EventType != "" {
		query["eventType"] = strings.ToLower(filter.EventType)
	}
	if filter.Search != "" {
		pattern := regexp.QuoteMeta(filter.Search)
		query["$or"] = bson.A{
			bson.M{"eventName": bson.M{"$regex": pattern, "$options": "i"}},
			bson.M{"description": bson.M{"$regex": pattern, "$options": "i"}},
		}
	}

	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "dateTime", Value: 1}}).
		SetSkip(filter.Skip).
		SetLimit(filter.Limit).
		SetProjection(bson.M{"image": 0})
	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	events := make([]types.Event, 0, filter.Limit)
	if err := cursor.All(ctx, &events); err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

func (r *EventRepository) Get(ctx context.Context, id string) (types.Event, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return types.Event{}, ErrNotFound
	}

	var event types.Event
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&event)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return types.Event{}, ErrNotFound
		}
		return types.Event{}, err
	}
	return event, nil
}

func (r *EventRepository) Create(ctx context.Context, event types.Event) (types.Event, error) {
	now := time.Now()
	event.CreatedAt = now
	event.UpdatedAt = now
	if event.Attendees == nil {
		event.Attendees = []primitive.ObjectID{}
	}

	result, err := r.collection.InsertOne(ctx, event)
	if err != nil {
		return types.Event{}, err
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		event.ID = oid
	}
	return event, nil
}

// Update applies a field-level partial update and returns the updated event.
func (r *EventRepository) Update(ctx context.Context, id string, patch types.EventPatch) (types.Event, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return types.Event{}, ErrNotFound
	}

	set := bson.M{"updatedAt": time.Now()}
	if patch.EventName != nil {
		set["eventName"] = *patch.EventName
	}
	if patch.Location != nil {
		set["location"] = *patch.Location
	}
	if patch.Mode != nil {
		set["mode"] = *patch.Mode
	}
	if patch.DateTime != nil {
		set["dateTime"] = *patch.DateTime
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.EventType != nil {
		set["eventType"] = *patch.EventType
	}
	if patch.Price != nil {
		set["price"] = *patch.Price
	}
	if patch.MaxAttendees != nil {
		set["maxAttendees"] = *patch.MaxAttendees
	}
	if patch.Status != nil {
		set["status"] = *patch.Status
	}
	if patch.Image != nil {
		set["image"] = patch.Image
	}
	if patch.ImageContentType != nil {
		set["imageContentType"] = *patch.ImageContentType
	}
	if patch.ImageKey != nil {
		set["imageKey"] = *patch.ImageKey
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated types.Event
	err = r.collection.FindOneAndUpdate(ctx, bson.M{"_id": objectID}, bson.M{"$set": set}, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return types.Event{}, ErrNotFound
		}
		return types.Event{}, err
	}
	return updated, nil
}

func (r *EventRepository) Delete(ctx context.Context, id string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
