package types

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Event delivery modes.
const (
	ModeOnline  = "online"
	ModeOffline = "offline"
)

// Event pricing classifications.
const (
	EventTypeFree = "free"
	EventTypePaid = "paid"
)

// Event lifecycle statuses.
const (
	StatusUpcoming  = "upcoming"
	StatusOngoing   = "ongoing"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Event represents a listed event in the eventhub system.
//
// Image bytes are deliberately excluded from JSON output; clients fetch
// them through the dedicated image endpoint. When an object storage
// backend is configured the bytes live under ImageKey instead of inline.
type Event struct {
	// ID is the unique identifier of the event.
	ID primitive.ObjectID `json:"id" bson:"_id,omitempty"`

	// EventName is the human-readable name of the event.
	EventName string `json:"eventName" bson:"eventName"`

	// Location is the venue or host city of the event.
	Location string `json:"location" bson:"location"`

	// Mode is the delivery channel, "online" or "offline". Stored lowercase.
	Mode string `json:"mode" bson:"mode"`

	// DateTime is when the event takes place. Strictly in the future at
	// creation and at any date-changing update.
	DateTime time.Time `json:"dateTime" bson:"dateTime"`

	// Description is the free-text description of the event.
	Description string `json:"description" bson:"description"`

	// EventType is the pricing classification, "free" or "paid". Stored lowercase.
	EventType string `json:"eventType" bson:"eventType"`

	// Price is the ticket price. Always zero for free events.
	Price float64 `json:"price" bson:"price"`

	// Image holds the raw image bytes when stored inline in the document.
	Image []byte `json:"-" bson:"image,omitempty"`

	// ImageContentType is the declared content type of the uploaded image.
	ImageContentType string `json:"imageContentType,omitempty" bson:"imageContentType"`

	// ImageKey is the object storage key holding the image bytes when an
	// external storage backend is configured. Empty for inline storage.
	ImageKey string `json:"-" bson:"imageKey,omitempty"`

	// Attendees references the users registered for the event.
	Attendees []primitive.ObjectID `json:"attendees" bson:"attendees"`

	// MaxAttendees optionally caps the attendee count. Nil means unlimited.
	MaxAttendees *int64 `json:"maxAttendees" bson:"maxAttendees"`

	// Status is the lifecycle status of the event.
	Status string `json:"status" bson:"status"`

	// CreatedBy is the user who created the event. Only the creator may
	// update or delete it.
	CreatedBy primitive.ObjectID `json:"createdBy" bson:"createdBy"`

	// CreatedAt is the timestamp at which the event was created.
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`

	// UpdatedAt is the timestamp of the most recent update to the event.
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// EventPatch carries a partial update to an event. Nil fields are left
// untouched, so concurrent updates apply last-write-wins per field.
type EventPatch struct {
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
	ImageContentType *string
	ImageKey         *string
}

// ValidMode reports whether mode is a recognized delivery channel.
func ValidMode(mode string) bool {
	return mode == ModeOnline || mode == ModeOffline
}

// ValidEventType reports whether eventType is a recognized pricing classification.
func ValidEventType(eventType string) bool {
	return eventType == EventTypeFree || eventType == EventTypePaid
}

// ValidStatus reports whether status is a recognized lifecycle status.
func ValidStatus(status string) bool {
	switch status {
	case StatusUpcoming, StatusOngoing, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}
