package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/eventhub/apiserver/internal/logging"
	"github.com/eventhub/apiserver/internal/storage"
	"github.com/eventhub/apiserver/internal/store"
	"github.com/eventhub/apiserver/types"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	defaultListLimit = 10
	maxListLimit     = 100
)

// ErrNotOwner is returned when a caller tries to mutate an event they did
// not create.
var ErrNotOwner = errors.New("not the event creator")

// ValidationError reports invalid event input. Its message is safe to show
// to the caller.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationErrorf(format string, args ...any) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// EventRepository defines persistence operations for events.
type EventRepository interface {
	List(ctx context.Context, filter store.EventListFilter) ([]types.Event, int64, error)
	Get(ctx context.Context, id string) (types.Event, error)
	Create(ctx context.Context, event types.Event) (types.Event, error)
	Update(ctx context.Context, id string, patch types.EventPatch) (types.Event, error)
	Delete(ctx context.Context, id string) error
}

// EventService encapsulates event use-cases. When objects is non-nil,
// image bytes are kept in object storage instead of the event document.
type EventService struct {
	repo    EventRepository
	objects storage.ObjectStorage
	now     func() time.Time
}

func NewEventService(repo EventRepository, objects storage.ObjectStorage) *EventService {
	return &EventService{
		repo:    repo,
		objects: objects,
		now:     time.Now,
	}
}

// ListInput carries listing parameters before clamping.
type ListInput struct {
	Page      int
	Limit     int
	Mode      string
	EventType string
	Search    string
}

// ListResult is a single page of events plus pagination totals.
type ListResult struct {
	Events      []types.Event
	CurrentPage int
	TotalPages  int
	TotalEvents int64
}

// List returns a page of events sorted ascending by dateTime. Page and
// limit are clamped to sane positive values.
func (s *EventService) List(ctx context.Context, in ListInput) (ListResult, error) {
	page := in.Page
	if page < 1 {
		page = 1
	}
	limit := in.Limit
	if limit < 1 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	events, total, err := s.repo.List(ctx, store.EventListFilter{
		Mode:      strings.ToLower(strings.TrimSpace(in.Mode)),
		EventType: strings.ToLower(strings.TrimSpace(in.EventType)),
		Search:    strings.TrimSpace(in.Search),
		Skip:      int64(page-1) * int64(limit),
		Limit:     int64(limit),
	})
	if err != nil {
		return ListResult{}, err
	}

	return ListResult{
		Events:      events,
		CurrentPage: page,
		TotalPages:  int(math.Ceil(float64(total) / float64(limit))),
		TotalEvents: total,
	}, nil
}

func (s *EventService) Get(ctx context.Context, id string) (types.Event, error) {
	return s.repo.Get(ctx, id)
}

// CreateInput carries a validated-format event submission. Image bytes are
// required; size and content-type gating happens at the upload layer.
type CreateInput struct {
	EventName        string
	Location         string
	Mode             string
	DateTime         time.Time
	Description      string
	EventType        string
	Price            float64
	MaxAttendees     *int64
	Image            []byte
	ImageContentType string
	CreatedBy        primitive.ObjectID
}

// Create validates and persists a new event. Mode and event type are
// normalized to lowercase and the price is forced to zero for free events.
func (s *EventService) Create(ctx context.Context, in CreateInput) (types.Event, error) {
	mode := strings.ToLower(strings.TrimSpace(in.Mode))
	eventType := strings.ToLower(strings.TrimSpace(in.EventType))

	if !types.ValidMode(mode) {
		return types.Event{}, validationErrorf("mode must be online or offline")
	}
	if !types.ValidEventType(eventType) {
		return types.Event{}, validationErrorf("eventType must be free or paid")
	}
	if !in.DateTime.After(s.now()) {
		return types.Event{}, validationErrorf("Event date must be in the future")
	}
	if len(in.Image) == 0 {
		return types.Event{}, validationErrorf("Event image is required")
	}
	if in.Price < 0 {
		return types.Event{}, validationErrorf("price must not be negative")
	}

	price := in.Price
	if eventType == types.EventTypeFree {
		price = 0
	}

	event := types.Event{
		EventName:        strings.TrimSpace(in.EventName),
		Location:         strings.TrimSpace(in.Location),
		Mode:             mode,
		DateTime:         in.DateTime,
		Description:      strings.TrimSpace(in.Description),
		EventType:        eventType,
		Price:            price,
		ImageContentType: in.ImageContentType,
		MaxAttendees:     in.MaxAttendees,
		Status:           types.StatusUpcoming,
		CreatedBy:        in.CreatedBy,
	}

	if s.objects != nil {
		key := imageObjectKey()
		size := int64(len(in.Image))
		if err := s.objects.Put(ctx, key, bytes.NewReader(in.Image), size, in.ImageContentType); err != nil {
			return types.Event{}, fmt.Errorf("store image: %w", err)
		}
		event.ImageKey = key
	} else {
		event.Image = in.Image
	}

	return s.repo.Create(ctx, event)
}

// UpdateInput carries a partial event update. Nil fields are untouched.
type UpdateInput struct {
	EventName        *string
	Location         *string
	Mode             *string
	DateTime         *time.Time
	Description      *string
	EventType        *string
	Price            *float64
	MaxAttendees     *int64
	Status           *string
	Image            []byte
	ImageContentType string
}

// Update applies a partial update on behalf of userID. Only the creator may
// update; a changed dateTime must still be in the future; a changed
// eventType recomputes the price.
func (s *EventService) Update(ctx context.Context, id string, userID primitive.ObjectID, in UpdateInput) (types.Event, error) {
	event, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Event{}, err
	}
	if event.CreatedBy != userID {
		return types.Event{}, ErrNotOwner
	}

	patch := types.EventPatch{
		EventName:    in.EventName,
		Location:     in.Location,
		Description:  in.Description,
		MaxAttendees: in.MaxAttendees,
	}

	if in.Mode != nil {
		mode := strings.ToLower(strings.TrimSpace(*in.Mode))
		if !types.ValidMode(mode) {
			return types.Event{}, validationErrorf("mode must be online or offline")
		}
		patch.Mode = &mode
	}
	if in.DateTime != nil {
		if !in.DateTime.After(s.now()) {
			return types.Event{}, validationErrorf("Event date must be in the future")
		}
		patch.DateTime = in.DateTime
	}
	if in.EventType != nil {
		eventType := strings.ToLower(strings.TrimSpace(*in.EventType))
		if !types.ValidEventType(eventType) {
			return types.Event{}, validationErrorf("eventType must be free or paid")
		}
		patch.EventType = &eventType

		price := float64(0)
		if eventType == types.EventTypePaid && in.Price != nil {
			if *in.Price < 0 {
				return types.Event{}, validationErrorf("price must not be negative")
			}
			price = *in.Price
		}
		patch.Price = &price
	}
	if in.Status != nil {
		status := strings.ToLower(strings.TrimSpace(*in.Status))
		if !types.ValidStatus(status) {
			return types.Event{}, validationErrorf("invalid status")
		}
		patch.Status = &status
	}

	if len(in.Image) > 0 {
		if s.objects != nil {
			key := imageObjectKey()
			size := int64(len(in.Image))
			if err := s.objects.Put(ctx, key, bytes.NewReader(in.Image), size, in.ImageContentType); err != nil {
				return types.Event{}, fmt.Errorf("store image: %w", err)
			}
			patch.ImageKey = &key
			if event.ImageKey != "" && event.ImageKey != key {
				if err := s.objects.Delete(ctx, event.ImageKey); err != nil {
					logging.Warn().Err(err).Str("key", event.ImageKey).Msg("failed to delete replaced image object")
				}
			}
		} else {
			patch.Image = in.Image
		}
		contentType := in.ImageContentType
		patch.ImageContentType = &contentType
	}

	return s.repo.Update(ctx, id, patch)
}

// Delete removes an event on behalf of userID. Only the creator may delete.
func (s *EventService) Delete(ctx context.Context, id string, userID primitive.ObjectID) error {
	event, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if event.CreatedBy != userID {
		return ErrNotOwner
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	if event.ImageKey != "" && s.objects != nil {
		if err := s.objects.Delete(ctx, event.ImageKey); err != nil {
			logging.Warn().Err(err).Str("key", event.ImageKey).Msg("failed to delete image object")
		}
	}
	return nil
}

// GetImage returns the stored image bytes and content type for an event,
// reading from object storage when the event's image lives there.
func (s *EventService) GetImage(ctx context.Context, id string) ([]byte, string, error) {
	event, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}

	if event.ImageKey != "" && s.objects != nil {
		reader, err := s.objects.Get(ctx, event.ImageKey)
		if err != nil {
			return nil, "", fmt.Errorf("read image object: %w", err)
		}
		defer reader.Close()
		data, err := io.ReadAll(reader)
		if err != nil {
			return nil, "", fmt.Errorf("read image object: %w", err)
		}
		return data, event.ImageContentType, nil
	}

	if len(event.Image) == 0 {
		return nil, "", store.ErrNotFound
	}
	return event.Image, event.ImageContentType, nil
}

func imageObjectKey() string {
	return "events/" + uuid.NewString()
}
