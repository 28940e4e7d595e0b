package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/eventhub/apiserver/internal/services"
	"github.com/eventhub/apiserver/internal/store"
	"github.com/eventhub/apiserver/types"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeEventRepo struct {
	mu     sync.Mutex
	events map[string]types.Event
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{events: make(map[string]types.Event)}
}

func (r *fakeEventRepo) List(_ context.Context, filter store.EventListFilter) ([]types.Event, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	matched := make([]types.Event, 0, len(r.events))
	for _, event := range r.events {
		if filter.Mode != "" && event.Mode != strings.ToLower(filter.Mode) {
			continue
		}
		if filter.EventType != "" && event.EventType != strings.ToLower(filter.EventType) {
			continue
		}
		if filter.Search != "" {
			search := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(event.EventName), search) &&
				!strings.Contains(strings.ToLower(event.Description), search) {
				continue
			}
		}
		matched = append(matched, event)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].DateTime.Before(matched[j].DateTime)
	})

	total := int64(len(matched))
	start := filter.Skip
	if start > total {
		start = total
	}
	end := start + filter.Limit
	if filter.Limit <= 0 || end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (r *fakeEventRepo) Get(_ context.Context, id string) (types.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	event, ok := r.events[id]
	if !ok {
		return types.Event{}, store.ErrNotFound
	}
	return event, nil
}

func (r *fakeEventRepo) Create(_ context.Context, event types.Event) (types.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	event.ID = primitive.NewObjectID()
	event.CreatedAt = time.Now()
	event.UpdatedAt = event.CreatedAt
	if event.Attendees == nil {
		event.Attendees = []primitive.ObjectID{}
	}
	r.events[event.ID.Hex()] = event
	return event, nil
}

func (r *fakeEventRepo) Update(_ context.Context, id string, patch types.EventPatch) (types.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	event, ok := r.events[id]
	if !ok {
		return types.Event{}, store.ErrNotFound
	}

	if patch.EventName != nil {
		event.EventName = *patch.EventName
	}
	if patch.Location != nil {
		event.Location = *patch.Location
	}
	if patch.Mode != nil {
		event.Mode = *patch.Mode
	}
	if patch.DateTime != nil {
		event.DateTime = *patch.DateTime
	}
	if patch.Description != nil {
		event.Description = *patch.Description
	}
	if patch.EventType != nil {
		event.EventType = *patch.EventType
	}
	if patch.Price != nil {
		event.Price = *patch.Price
	}
	if patch.MaxAttendees != nil {
		event.MaxAttendees = patch.MaxAttendees
	}
	if patch.Status != nil {
		event.Status = *patch.Status
	}
	if len(patch.Image) > 0 {
		event.Image = patch.Image
	}
	if patch.ImageContentType != nil {
		event.ImageContentType = *patch.ImageContentType
	}
	if patch.ImageKey != nil {
		event.ImageKey = *patch.ImageKey
	}
	event.UpdatedAt = time.Now()
	r.events[id] = event
	return event, nil
}

func (r *fakeEventRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.events, id)
	return nil
}

type eventTestEnv struct {
	router    *chi.Mux
	userRepo  *fakeUserRepo
	eventRepo *fakeEventRepo
	auth      *AuthHandler
}

func newEventTestEnv(t *testing.T) *eventTestEnv {
	t.Helper()

	userRepo := newFakeUserRepo()
	eventRepo := newFakeEventRepo()
	auth := NewAuthHandler(services.NewUserService(userRepo), testSecret, time.Hour)
	events := NewEventHandler(services.NewEventService(eventRepo, nil), DefaultMaxImageBytes)

	router := chi.NewRouter()
	router.Route("/api/auth", func(r chi.Router) {
		AuthRouter(r, auth)
	})
	router.Route("/api/events", func(r chi.Router) {
		EventRouter(r, events, auth.RequireAuth)
	})

	return &eventTestEnv{
		router:    router,
		userRepo:  userRepo,
		eventRepo: eventRepo,
		auth:      auth,
	}
}

// tokenFor creates a user with the given role and returns a valid token.
func (env *eventTestEnv) tokenFor(t *testing.T, username, role string) (string, types.User) {
	t.Helper()

	user, err := env.userRepo.Create(context.Background(), types.User{
		Username:     username,
		Email:        username + "@example.com",
		Role:         role,
		PasswordHash: "irrelevant",
	})
	require.NoError(t, err)

	token, err := env.auth.issueToken(user)
	require.NoError(t, err)
	return token, user
}

type eventFormFields map[string]string

func multipartBody(t *testing.T, fields eventFormFields, imageName, imageContentType string, image []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for field, value := range fields {
		require.NoError(t, writer.WriteField(field, value))
	}
	if image != nil {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, imageName))
		header.Set("Content-Type", imageContentType)
		part, err := writer.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func doMultipart(t *testing.T, router http.Handler, method, path, token string, fields eventFormFields, image []byte, imageContentType string) *httptest.ResponseRecorder {
	t.Helper()

	body, contentType := multipartBody(t, fields, "event.jpg", imageContentType, image)
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", contentType)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func validEventFields(dateTime time.Time) eventFormFields {
	return eventFormFields{
		"eventName":   "Demo",
		"location":    "Online",
		"mode":        "online",
		"dateTime":    dateTime.Format(time.RFC3339),
		"description": "A sufficiently long description text",
		"eventType":   "free",
	}
}

var jpegBytes = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'}

func TestCreateEvent(t *testing.T) {
	env := newEventTestEnv(t)
	adminToken, _ := env.tokenFor(t, "admin", types.RoleAdmin)
	tomorrow := time.Now().Add(24 * time.Hour)

	t.Run("success free event forces zero price", func(t *testing.T) {
		fields := validEventFields(tomorrow)
		fields["price"] = "49.99"

		rec := doMultipart(t, env.router, http.MethodPost, "/api/events/create", adminToken, fields, jpegBytes, "image/jpeg")
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var resp EventResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "Event created successfully", resp.Message)
		assert.Equal(t, float64(0), resp.Event.Price)
		assert.Equal(t, "online", resp.Event.Mode)
		assert.Equal(t, types.StatusUpcoming, resp.Event.Status)
	})

	t.Run("missing image", func(t *testing.T) {
		rec := doMultipart(t, env.router, http.MethodPost, "/api/events/create", adminToken, validEventFields(tomorrow), nil, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Event image is required")
	})

	t.Run("past date", func(t *testing.T) {
		fields := validEventFields(time.Now().Add(-time.Hour))
		rec := doMultipart(t, env.router, http.MethodPost, "/api/events/create", adminToken, fields, jpegBytes, "image/jpeg")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Event date must be in the future")
	})

	t.Run("non-image content type", func(t *testing.T) {
		rec := doMultipart(t, env.router, http.MethodPost, "/api/events/create", adminToken, validEventFields(tomorrow), []byte("plain text"), "text/plain")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Only image files are allowed")
	})

	t.Run("missing required field", func(t *testing.T) {
		fields := validEventFields(tomorrow)
		delete(fields, "eventName")
		rec := doMultipart(t, env.router, http.MethodPost, "/api/events/create", adminToken, fields, jpegBytes, "image/jpeg")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("non-admin forbidden", func(t *testing.T) {
		userToken, _ := env.tokenFor(t, "regular", types.RoleUser)
		rec := doMultipart(t, env.router, http.MethodPost, "/api/events/create", userToken, validEventFields(tomorrow), jpegBytes, "image/jpeg")
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Contains(t, rec.Body.String(), "admin role required")
	})

	t.Run("unauthenticated", func(t *testing.T) {
		rec := doMultipart(t, env.router, http.MethodPost, "/api/events/create", "", validEventFields(tomorrow), jpegBytes, "image/jpeg")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestCreateEventImageTooLarge(t *testing.T) {
	env := newEventTestEnv(t)

	userRepo := env.userRepo
	eventRepo := env.eventRepo
	auth := env.auth
	events := NewEventHandler(services.NewEventService(eventRepo, nil), 64)

	router := chi.NewRouter()
	router.Route("/api/events", func(r chi.Router) {
		EventRouter(r, events, auth.RequireAuth)
	})

	user, err := userRepo.Create(context.Background(), types.User{Username: "admin2", Email: "admin2@example.com", Role: types.RoleAdmin})
	require.NoError(t, err)
	token, err := auth.issueToken(user)
	require.NoError(t, err)

	big := bytes.Repeat([]byte{0xAB}, 65)
	rec := doMultipart(t, router, http.MethodPost, "/api/events/create", token, validEventFields(time.Now().Add(24*time.Hour)), big, "image/png")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "size limit")
}

func seedEvent(t *testing.T, env *eventTestEnv, name, mode, eventType, description string, dateTime time.Time, createdBy primitive.ObjectID) types.Event {
	t.Helper()

	event, err := env.eventRepo.Create(context.Background(), types.Event{
		EventName:        name,
		Location:         "Online",
		Mode:             mode,
		DateTime:         dateTime,
		Description:      description,
		EventType:        eventType,
		Image:            jpegBytes,
		ImageContentType: "image/jpeg",
		Status:           types.StatusUpcoming,
		CreatedBy:        createdBy,
	})
	require.NoError(t, err)
	return event
}

func TestListEvents(t *testing.T) {
	env := newEventTestEnv(t)
	_, admin := env.tokenFor(t, "admin", types.RoleAdmin)
	base := time.Now().Add(24 * time.Hour)

	seedEvent(t, env, "Demo Day", "online", "free", "A demo of things", base, admin.ID)
	seedEvent(t, env, "Offline Meetup", "offline", "free", "In person gathering", base.Add(time.Hour), admin.ID)
	seedEvent(t, env, "Paid Workshop", "online", "paid", "Hands-on training", base.Add(2*time.Hour), admin.ID)

	t.Run("filtered search counts one match", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/events?mode=online&search=demo", nil)
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp EventListResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, int64(1), resp.TotalEvents)
		require.Len(t, resp.Events, 1)
		assert.Equal(t, "Demo Day", resp.Events[0].EventName)
	})

	t.Run("pagination totals", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/events?page=1&limit=2", nil)
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp EventListResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, int64(3), resp.TotalEvents)
		assert.Equal(t, 2, resp.TotalPages)
		assert.Equal(t, 1, resp.CurrentPage)
		assert.Len(t, resp.Events, 2)
	})

	t.Run("no matches is an empty page", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/events?search=nonexistent", nil)
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp EventListResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, int64(0), resp.TotalEvents)
		assert.Empty(t, resp.Events)
	})

	t.Run("sorted ascending by dateTime", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp EventListResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Events, 3)
		for i := 1; i < len(resp.Events); i++ {
			assert.False(t, resp.Events[i].DateTime.Before(resp.Events[i-1].DateTime))
		}
	})
}

func TestGetEvent(t *testing.T) {
	env := newEventTestEnv(t)
	_, admin := env.tokenFor(t, "admin", types.RoleAdmin)
	event := seedEvent(t, env, "Demo", "online", "free", "desc", time.Now().Add(24*time.Hour), admin.ID)

	t.Run("found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/events/"+event.ID.Hex(), nil)
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp EventResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, event.ID, resp.Event.ID)
	})

	t.Run("not found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/events/"+primitive.NewObjectID().Hex(), nil)
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "Event not found")
	})
}

func TestGetEventImage(t *testing.T) {
	env := newEventTestEnv(t)
	_, admin := env.tokenFor(t, "admin", types.RoleAdmin)
	event := seedEvent(t, env, "Demo", "online", "free", "desc", time.Now().Add(24*time.Hour), admin.ID)

	req := httptest.NewRequest(http.MethodGet, "/api/events/"+event.ID.Hex()+"/image", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, jpegBytes, rec.Body.Bytes())
}

func TestUpdateEvent(t *testing.T) {
	env := newEventTestEnv(t)
	creatorToken, creator := env.tokenFor(t, "creator", types.RoleAdmin)
	event := seedEvent(t, env, "Demo", "online", "free", "desc", time.Now().Add(24*time.Hour), creator.ID)

	t.Run("partial update leaves other fields intact", func(t *testing.T) {
		rec := doMultipart(t, env.router, http.MethodPut, "/api/events/"+event.ID.Hex(), creatorToken, eventFormFields{
			"eventName": "Renamed Demo",
		}, nil, "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp EventResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "Event updated successfully", resp.Message)
		assert.Equal(t, "Renamed Demo", resp.Event.EventName)
		assert.Equal(t, "desc", resp.Event.Description)
		assert.Equal(t, "online", resp.Event.Mode)
	})

	t.Run("non-creator forbidden and record unchanged", func(t *testing.T) {
		otherToken, _ := env.tokenFor(t, "other", types.RoleAdmin)

		rec := doMultipart(t, env.router, http.MethodPut, "/api/events/"+event.ID.Hex(), otherToken, eventFormFields{
			"eventName": "Hijacked",
		}, nil, "")
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Contains(t, rec.Body.String(), "Not authorized to update this event")

		stored, err := env.eventRepo.Get(context.Background(), event.ID.Hex())
		require.NoError(t, err)
		assert.Equal(t, "Renamed Demo", stored.EventName)
	})

	t.Run("past date rejected", func(t *testing.T) {
		rec := doMultipart(t, env.router, http.MethodPut, "/api/events/"+event.ID.Hex(), creatorToken, eventFormFields{
			"dateTime": time.Now().Add(-time.Hour).Format(time.RFC3339),
		}, nil, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Event date must be in the future")
	})

	t.Run("switch to paid uses submitted price", func(t *testing.T) {
		rec := doMultipart(t, env.router, http.MethodPut, "/api/events/"+event.ID.Hex(), creatorToken, eventFormFields{
			"eventType": "paid",
			"price":     "25",
		}, nil, "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp EventResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "paid", resp.Event.EventType)
		assert.Equal(t, float64(25), resp.Event.Price)
	})

	t.Run("not found", func(t *testing.T) {
		rec := doMultipart(t, env.router, http.MethodPut, "/api/events/"+primitive.NewObjectID().Hex(), creatorToken, eventFormFields{
			"eventName": "Ghost",
		}, nil, "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestDeleteEvent(t *testing.T) {
	env := newEventTestEnv(t)
	creatorToken, creator := env.tokenFor(t, "creator", types.RoleAdmin)
	event := seedEvent(t, env, "Demo", "online", "free", "desc", time.Now().Add(24*time.Hour), creator.ID)

	t.Run("non-creator forbidden", func(t *testing.T) {
		otherToken, _ := env.tokenFor(t, "other", types.RoleAdmin)

		req := httptest.NewRequest(http.MethodDelete, "/api/events/"+event.ID.Hex(), nil)
		req.Header.Set("Authorization", "Bearer "+otherToken)
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Contains(t, rec.Body.String(), "Not authorized to delete this event")
	})

	t.Run("creator deletes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/api/events/"+event.ID.Hex(), nil)
		req.Header.Set("Authorization", "Bearer "+creatorToken)
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Event deleted successfully")

		_, err := env.eventRepo.Get(context.Background(), event.ID.Hex())
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("already deleted", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/api/events/"+event.ID.Hex(), nil)
		req.Header.Set("Authorization", "Bearer "+creatorToken)
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
