package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/eventhub/apiserver/internal/services"
	"github.com/eventhub/apiserver/internal/store"
	"github.com/eventhub/apiserver/internal/validation"
	"github.com/eventhub/apiserver/types"
	"github.com/go-chi/chi/v5"
)

const (
	defaultPage  = 1
	defaultLimit = 10

	// DefaultMaxImageBytes caps event image uploads at 5 MiB.
	DefaultMaxImageBytes = 5 << 20

	formFieldImage        = "image"
	formFieldEventName    = "eventName"
	formFieldLocation     = "location"
	formFieldMode         = "mode"
	formFieldDateTime     = "dateTime"
	formFieldDescription  = "description"
	formFieldEventType    = "eventType"
	formFieldPrice        = "price"
	formFieldMaxAttendees = "maxAttendees"
	formFieldStatus       = "status"
)

// ImageFile represents an uploaded event image.
type ImageFile struct {
	Data        []byte
	ContentType string
}

// EventHandler provides HTTP handlers for events.
type EventHandler struct {
	eventService  *services.EventService
	maxImageBytes int64
}

// NewEventHandler constructs a handler with the provided service.
func NewEventHandler(eventService *services.EventService, maxImageBytes int64) *EventHandler {
	if maxImageBytes <= 0 {
		maxImageBytes = DefaultMaxImageBytes
	}
	return &EventHandler{
		eventService:  eventService,
		maxImageBytes: maxImageBytes,
	}
}

// EventRouter registers event routes on the given router. Listing, detail,
// and image routes are public; create requires the admin role and
// update/delete require authentication (ownership is checked per event).
func EventRouter(r chi.Router, handler *EventHandler, authMiddleware func(http.Handler) http.Handler) {
	r.Get("/", handler.ListEvents)
	r.With(authMiddleware, RequireRole(types.RoleAdmin)).Post("/create", handler.CreateEvent)
	r.Route("/{eventID}", func(r chi.Router) {
		r.Get("/", handler.GetEvent)
		r.Get("/image", handler.GetEventImage)
		r.With(authMiddleware).Put("/", handler.UpdateEvent)
		r.With(authMiddleware).Delete("/", handler.DeleteEvent)
	})
}

// EventListResponse is the paginated list response payload.
type EventListResponse struct {
	Events      []types.Event `json:"events"`
	CurrentPage int           `json:"currentPage"`
	TotalPages  int           `json:"totalPages"`
	TotalEvents int64         `json:"totalEvents"`
}

// EventResponse wraps a single event with a status message.
type EventResponse struct {
	Message string      `json:"message,omitempty"`
	Event   types.Event `json:"event"`
}

func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	result, err := h.eventService.List(r.Context(), services.ListInput{
		Page:      parsePositiveInt(query.Get("page"), defaultPage),
		Limit:     parsePositiveInt(query.Get("limit"), defaultLimit),
		Mode:      query.Get("mode"),
		EventType: query.Get("eventType"),
		Search:    query.Get("search"),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	writeJSON(w, http.StatusOK, EventListResponse{
		Events:      result.Events,
		CurrentPage: result.CurrentPage,
		TotalPages:  result.TotalPages,
		TotalEvents: result.TotalEvents,
	})
}

func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.eventService.Get(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Event not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	writeJSON(w, http.StatusOK, EventResponse{Event: event})
}

func (h *EventHandler) GetEventImage(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := h.eventService.GetImage(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Image not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// eventForm is the validated shape of a create submission.
type eventForm struct {
	EventName   string `validate:"required"`
	Location    string `validate:"required"`
	Mode        string `validate:"required,oneof=online offline"`
	DateTime    string `validate:"required"`
	Description string `validate:"required"`
	EventType   string `validate:"required,oneof=free paid"`
}

func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	if err := r.ParseMultipartForm(h.maxImageBytes + 1<<20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	form := eventForm{
		EventName:   strings.TrimSpace(r.FormValue(formFieldEventName)),
		Location:    strings.TrimSpace(r.FormValue(formFieldLocation)),
		Mode:        strings.ToLower(strings.TrimSpace(r.FormValue(formFieldMode))),
		DateTime:    strings.TrimSpace(r.FormValue(formFieldDateTime)),
		Description: strings.TrimSpace(r.FormValue(formFieldDescription)),
		EventType:   strings.ToLower(strings.TrimSpace(r.FormValue(formFieldEventType))),
	}
	if err := validation.ValidateStruct(&form); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	dateTime, err := parseEventDateTime(form.DateTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid dateTime")
		return
	}

	price, err := parseOptionalFloat(r.FormValue(formFieldPrice))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid price")
		return
	}

	maxAttendees, err := parseOptionalInt64(r.FormValue(formFieldMaxAttendees))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid maxAttendees")
		return
	}

	image, err := h.parseImageFile(r.MultipartForm, true)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	event, err := h.eventService.Create(r.Context(), services.CreateInput{
		EventName:        form.EventName,
		Location:         form.Location,
		Mode:             form.Mode,
		DateTime:         dateTime,
		Description:      form.Description,
		EventType:        form.EventType,
		Price:            price,
		MaxAttendees:     maxAttendees,
		Image:            image.Data,
		ImageContentType: image.ContentType,
		CreatedBy:        identity.UserID,
	})
	if err != nil {
		var ve *services.ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, ve.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	writeJSON(w, http.StatusCreated, EventResponse{
		Message: "Event created successfully",
		Event:   event,
	})
}

func (h *EventHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	if err := r.ParseMultipartForm(h.maxImageBytes + 1<<20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	input := services.UpdateInput{
		EventName:   formStringPtr(r.MultipartForm, formFieldEventName),
		Location:    formStringPtr(r.MultipartForm, formFieldLocation),
		Mode:        formStringPtr(r.MultipartForm, formFieldMode),
		Description: formStringPtr(r.MultipartForm, formFieldDescription),
		EventType:   formStringPtr(r.MultipartForm, formFieldEventType),
		Status:      formStringPtr(r.MultipartForm, formFieldStatus),
	}

	if raw := formStringPtr(r.MultipartForm, formFieldDateTime); raw != nil {
		dateTime, err := parseEventDateTime(*raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid dateTime")
			return
		}
		input.DateTime = &dateTime
	}
	if raw := formStringPtr(r.MultipartForm, formFieldPrice); raw != nil {
		price, err := parseOptionalFloat(*raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid price")
			return
		}
		input.Price = &price
	}
	if raw := formStringPtr(r.MultipartForm, formFieldMaxAttendees); raw != nil {
		maxAttendees, err := parseOptionalInt64(*raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid maxAttendees")
			return
		}
		input.MaxAttendees = maxAttendees
	}

	image, err := h.parseImageFile(r.MultipartForm, false)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if image != nil {
		input.Image = image.Data
		input.ImageContentType = image.ContentType
	}

	event, err := h.eventService.Update(r.Context(), chi.URLParam(r, "eventID"), identity.UserID, input)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "Event not found")
		case errors.Is(err, services.ErrNotOwner):
			writeError(w, http.StatusForbidden, "Not authorized to update this event")
		default:
			var ve *services.ValidationError
			if errors.As(err, &ve) {
				writeError(w, http.StatusBadRequest, ve.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "Server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, EventResponse{
		Message: "Event updated successfully",
		Event:   event,
	})
}

func (h *EventHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	if err := h.eventService.Delete(r.Context(), chi.URLParam(r, "eventID"), identity.UserID); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "Event not found")
		case errors.Is(err, services.ErrNotOwner):
			writeError(w, http.StatusForbidden, "Not authorized to delete this event")
		default:
			writeError(w, http.StatusInternalServerError, "Server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Event deleted successfully"})
}

// parseImageFile extracts and validates the uploaded image. Returns nil
// without error when no file is attached and required is false.
func (h *EventHandler) parseImageFile(form *multipart.Form, required bool) (*ImageFile, error) {
	var files []*multipart.FileHeader
	if form != nil {
		files = form.File[formFieldImage]
	}
	if len(files) == 0 {
		if required {
			return nil, errors.New("Event image is required")
		}
		return nil, nil
	}
	if len(files) > 1 {
		return nil, errors.New("only one image file is allowed")
	}

	fileHeader := files[0]
	contentType := fileHeader.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return nil, errors.New("Only image files are allowed")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, errors.New("failed to read image file")
	}

	data, err := readFileLimited(file, h.maxImageBytes)
	_ = file.Close()
	if err != nil {
		return nil, err
	}

	return &ImageFile{Data: data, ContentType: contentType}, nil
}

func readFileLimited(reader io.Reader, limit int64) ([]byte, error) {
	limited := io.LimitReader(reader, limit+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, errors.New("failed to read upload")
	}
	if int64(len(data)) > limit {
		return nil, errors.New("image file exceeds the size limit")
	}
	return data, nil
}

// parseEventDateTime accepts RFC3339 and the HTML datetime-local formats
// the browser form submits.
func parseEventDateTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02T15:04"} {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("unrecognized dateTime format")
}

func parsePositiveInt(value string, defaultValue int) int {
	value = strings.TrimSpace(value)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 1 {
		return defaultValue
	}
	return parsed
}

func parseOptionalFloat(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	return strconv.ParseFloat(value, 64)
}

func parseOptionalInt64(value string) (*int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func formStringPtr(form *multipart.Form, field string) *string {
	if form == nil {
		return nil
	}
	values, ok := form.Value[field]
	if !ok || len(values) == 0 {
		return nil
	}
	value := strings.TrimSpace(values[0])
	return &value
}
