// Package client is the API client core: HTTP access with automatic bearer
// token attachment, durable token storage, the compound filter/pagination
// engine used by the browse views, explicit session state, and the route
// guard.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/eventhub/apiserver/types"
)

const defaultTimeout = 30 * time.Second

// APIError is a non-2xx response decoded from the server's error payload.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// Client calls the events API. A token present in the TokenStore is attached
// as a bearer credential to every request.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenStore
}

// New constructs a Client against baseURL (e.g. "http://localhost:8080/api").
func New(baseURL string, tokens TokenStore) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		tokens:     tokens,
	}
}

// AuthResult is the server's response to signup and login.
type AuthResult struct {
	Message string           `json:"message"`
	User    types.PublicUser `json:"user"`
	Token   string           `json:"token"`
}

// EventsPage is one page of the server-side event listing.
type EventsPage struct {
	Events      []types.Event `json:"events"`
	CurrentPage int           `json:"currentPage"`
	TotalPages  int           `json:"totalPages"`
	TotalEvents int64         `json:"totalEvents"`
}

// EventResult wraps a single event response.
type EventResult struct {
	Message string      `json:"message"`
	Event   types.Event `json:"event"`
}

// SignupParams are the fields submitted at signup.
type SignupParams struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

// Signup registers a new account. The returned token is not stored; use
// Session to manage credentials.
func (c *Client) Signup(ctx context.Context, params SignupParams) (AuthResult, error) {
	var result AuthResult
	err := c.doJSON(ctx, http.MethodPost, "/auth/signup", params, &result)
	return result, err
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, email, password string) (AuthResult, error) {
	payload := map[string]string{"email": email, "password": password}
	var result AuthResult
	err := c.doJSON(ctx, http.MethodPost, "/auth/login", payload, &result)
	return result, err
}

// VerifyToken resolves the stored token to a live identity.
func (c *Client) VerifyToken(ctx context.Context) (types.PublicUser, error) {
	var user types.PublicUser
	err := c.doJSON(ctx, http.MethodGet, "/auth/verify-token", nil, &user)
	return user, err
}

// ListParams are the server-side listing parameters.
type ListParams struct {
	Page      int
	Limit     int
	Mode      string
	EventType string
	Search    string
}

// ListEvents fetches one page of events.
func (c *Client) ListEvents(ctx context.Context, params ListParams) (EventsPage, error) {
	query := url.Values{}
	if params.Page > 0 {
		query.Set("page", strconv.Itoa(params.Page))
	}
	if params.Limit > 0 {
		query.Set("limit", strconv.Itoa(params.Limit))
	}
	if params.Mode != "" {
		query.Set("mode", params.Mode)
	}
	if params.EventType != "" {
		query.Set("eventType", params.EventType)
	}
	if params.Search != "" {
		query.Set("search", params.Search)
	}

	path := "/events"
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var page EventsPage
	err := c.doJSON(ctx, http.MethodGet, path, nil, &page)
	return page, err
}

// ListAllEvents walks the server-side pages and returns the full event set,
// which the compound filter then works over in memory.
func (c *Client) ListAllEvents(ctx context.Context) ([]types.Event, error) {
	const pageSize = 100

	var events []types.Event
	for page := 1; ; page++ {
		result, err := c.ListEvents(ctx, ListParams{Page: page, Limit: pageSize})
		if err != nil {
			return nil, err
		}
		events = append(events, result.Events...)
		if page >= result.TotalPages || len(result.Events) == 0 {
			break
		}
	}
	return events, nil
}

// GetEvent fetches a single event by id.
func (c *Client) GetEvent(ctx context.Context, id string) (types.Event, error) {
	var result EventResult
	err := c.doJSON(ctx, http.MethodGet, "/events/"+url.PathEscape(id), nil, &result)
	return result.Event, err
}

// EventForm is a multipart event submission. Empty fields are omitted, so
// the same type serves both create (all fields set) and partial update.
type EventForm struct {
	EventName    string
	Location     string
	Mode         string
	DateTime     string
	Description  string
	EventType    string
	Price        string
	MaxAttendees string
	Status       string

	ImageName        string
	ImageContentType string
	Image            []byte
}

// CreateEvent submits a new event as a multipart form.
func (c *Client) CreateEvent(ctx context.Context, form EventForm) (EventResult, error) {
	var result EventResult
	err := c.doMultipart(ctx, http.MethodPost, "/events/create", form, &result)
	return result, err
}

// UpdateEvent submits a partial event update as a multipart form.
func (c *Client) UpdateEvent(ctx context.Context, id string, form EventForm) (EventResult, error) {
	var result EventResult
	err := c.doMultipart(ctx, http.MethodPut, "/events/"+url.PathEscape(id), form, &result)
	return result, err
}

// DeleteEvent removes an event by id.
func (c *Client) DeleteEvent(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/events/"+url.PathEscape(id), nil, nil)
}

// GetEventImage fetches the raw image bytes and content type for an event.
func (c *Client) GetEventImage(ctx context.Context, id string) ([]byte, string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/events/"+url.PathEscape(id)+"/image", nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", decodeAPIError(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if c.tokens != nil {
		if token, err := c.tokens.Token(); err == nil && token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	return req, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(encoded)
	}

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.do(req, out)
}

func (c *Client) doMultipart(ctx context.Context, method, path string, form EventForm, out any) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fields := map[string]string{
		"eventName":    form.EventName,
		"location":     form.Location,
		"mode":         form.Mode,
		"dateTime":     form.DateTime,
		"description":  form.Description,
		"eventType":    form.EventType,
		"price":        form.Price,
		"maxAttendees": form.MaxAttendees,
		"status":       form.Status,
	}
	for field, value := range fields {
		if value == "" {
			continue
		}
		if err := writer.WriteField(field, value); err != nil {
			return err
		}
	}

	if len(form.Image) > 0 {
		name := form.ImageName
		if name == "" {
			name = "image"
		}
		contentType := form.ImageContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, name))
		header.Set("Content-Type", contentType)
		part, err := writer.CreatePart(header)
		if err != nil {
			return err
		}
		if _, err := part.Write(form.Image); err != nil {
			return err
		}
	}

	if err := writer.Close(); err != nil {
		return err
	}

	req, err := c.newRequest(ctx, method, path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}

	var payload struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil && payload.Message != "" {
		apiErr.Message = payload.Message
	}
	return apiErr
}
