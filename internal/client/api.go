// Package client is the terminal client of the journal API: an HTTP client
// for the REST surface, a durable session store, the session state object
// the views read from, and the form checks run before anything is sent.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/andymattgee/swe-blog/internal/model"
)

var (
	// ErrUnauthorized is returned for any 401 response. The client never
	// retries it; the user has to log in again.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound is returned for 404 responses.
	ErrNotFound = errors.New("not found")
)

// APIError is a non-2xx response. Message is the server's error text and
// Code its machine-readable code, one of the model.ErrCode values, when sent.
type APIError struct {
	Status  int
	Message string
	Code    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Is lets callers match 401 and 404 with errors.Is.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	User  model.PublicUser `json:"user"`
	Token string           `json:"token"`
}

// RegisterRequest is the body of POST /register.
type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// ChatMessage is one turn sent to POST /ai/chat.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// API calls the server. Every authenticated method takes the bearer token
// explicitly so background requests use the token they were started with.
type API struct {
	BaseURL string
	HTTP    *http.Client
}

// NewAPI returns an API for baseURL with a default request timeout.
func NewAPI(baseURL string) *API {
	return &API{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 60 * time.Second},
	}
}

func (a *API) Register(ctx context.Context, req RegisterRequest) (AuthResponse, error) {
	var out AuthResponse
	err := a.doJSON(ctx, http.MethodPost, "/register", "", req, &out)
	return out, err
}

func (a *API) Login(ctx context.Context, email, password string) (AuthResponse, error) {
	var out AuthResponse
	err := a.doJSON(ctx, http.MethodPost, "/login", "", map[string]string{"email": email, "password": password}, &out)
	return out, err
}

func (a *API) Logout(ctx context.Context, token string) error {
	return a.doJSON(ctx, http.MethodPost, "/logout", token, nil, nil)
}

func (a *API) Me(ctx context.Context, token string) (model.PublicUser, error) {
	var out struct {
		User model.PublicUser `json:"user"`
	}
	err := a.doJSON(ctx, http.MethodGet, "/users/me", token, nil, &out)
	return out.User, err
}

func (a *API) ChangePassword(ctx context.Context, token, current, next string) error {
	body := map[string]string{"currentPassword": current, "newPassword": next}
	return a.doJSON(ctx, http.MethodPost, "/users/change-password", token, body, nil)
}

// UploadAvatar stores a new profile picture and returns its URL.
func (a *API) UploadAvatar(ctx context.Context, token, filename string, data []byte) (string, error) {
	var out struct {
		ImageURL string `json:"imageUrl"`
	}
	err := a.doMultipart(ctx, http.MethodPost, "/users/profile-picture", token, nil, filename, data, &out)
	return out.ImageURL, err
}

func (a *API) ListEntries(ctx context.Context, token string) ([]model.Entry, error) {
	var out struct {
		Data []model.Entry `json:"data"`
	}
	err := a.doJSON(ctx, http.MethodGet, "/entries", token, nil, &out)
	return out.Data, err
}

// GetEntry unwraps the one-element array GET /entries/:id responds with.
func (a *API) GetEntry(ctx context.Context, token string, id uint64) (*model.Entry, error) {
	var out []model.Entry
	if err := a.doJSON(ctx, http.MethodGet, "/entries/"+strconv.FormatUint(id, 10), token, nil, &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return &out[0], nil
}

// CreateEntry sends f as JSON, or as a multipart form when it carries an
// image.
func (a *API) CreateEntry(ctx context.Context, token string, f EntryForm) (*model.Entry, error) {
	return a.sendEntry(ctx, http.MethodPost, "/entries", token, f)
}

func (a *API) UpdateEntry(ctx context.Context, token string, id uint64, f EntryForm) (*model.Entry, error) {
	return a.sendEntry(ctx, http.MethodPut, "/entries/"+strconv.FormatUint(id, 10), token, f)
}

func (a *API) sendEntry(ctx context.Context, method, path, token string, f EntryForm) (*model.Entry, error) {
	var out struct {
		Entry model.Entry `json:"entry"`
	}
	var err error
	if len(f.Image) > 0 {
		fields := map[string]string{
			"title":               f.Title,
			"professionalContent": f.ProfessionalContent,
			"personalContent":     f.PersonalContent,
		}
		err = a.doMultipart(ctx, method, path, token, fields, f.ImageName, f.Image, &out)
	} else {
		body := map[string]any{
			"title":               f.Title,
			"professionalContent": f.ProfessionalContent,
			"personalContent":     f.PersonalContent,
			"removeImage":         f.RemoveImage,
		}
		err = a.doJSON(ctx, method, path, token, body, &out)
	}
	if err != nil {
		return nil, err
	}
	return &out.Entry, nil
}

func (a *API) DeleteEntry(ctx context.Context, token string, id uint64) error {
	return a.doJSON(ctx, http.MethodDelete, "/entries/"+strconv.FormatUint(id, 10), token, nil, nil)
}

// QueueEntrySummary asks the server to summarize an entry in the
// background; the result shows up on the entry later.
func (a *API) QueueEntrySummary(ctx context.Context, token string, id uint64) error {
	return a.doJSON(ctx, http.MethodPost, "/entries/"+strconv.FormatUint(id, 10)+"/summary", token, nil, nil)
}

// TodoListing is GET /todos flattened. TimeZone names the zone the server
// buckets in, so views can bucket again locally on the same calendar.
type TodoListing struct {
	Todos    []model.Todo
	TimeZone string
}

// ListTodos flattens the server's bucketed listing. Views bucket again
// locally on every render.
func (a *API) ListTodos(ctx context.Context, token string) (TodoListing, error) {
	var out struct {
		Data     model.Categorized `json:"data"`
		TimeZone string            `json:"timezone"`
	}
	if err := a.doJSON(ctx, http.MethodGet, "/todos", token, nil, &out); err != nil {
		return TodoListing{}, err
	}
	d := out.Data
	all := make([]model.Todo, 0, d.Count())
	for _, b := range [][]model.Todo{d.Today, d.Pending, d.Overdue, d.Completed} {
		all = append(all, b...)
	}
	return TodoListing{Todos: all, TimeZone: out.TimeZone}, nil
}

// GetTodo unwraps the one-element array GET /todos/:id responds with.
func (a *API) GetTodo(ctx context.Context, token string, id uint64) (*model.Todo, error) {
	var out []model.Todo
	if err := a.doJSON(ctx, http.MethodGet, "/todos/"+strconv.FormatUint(id, 10), token, nil, &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return &out[0], nil
}

func (a *API) CreateTodo(ctx context.Context, token string, f TodoForm) (*model.Todo, error) {
	body := map[string]any{"task": f.Task}
	if f.Notes != "" {
		body["notes"] = f.Notes
	}
	if f.Priority != "" {
		body["priority"] = f.Priority
	}
	if f.Deadline != "" {
		body["deadline"] = f.Deadline
	}
	return a.sendTodo(ctx, http.MethodPost, "/todos", token, body)
}

// UpdateTodo replaces the editable fields of a todo with f. An empty
// Deadline clears it; completion is left alone.
func (a *API) UpdateTodo(ctx context.Context, token string, id uint64, f TodoForm) (*model.Todo, error) {
	body := map[string]any{"task": f.Task, "notes": f.Notes}
	if f.Priority != "" {
		body["priority"] = f.Priority
	}
	if f.Deadline != "" {
		body["deadline"] = f.Deadline
	} else {
		body["deadline"] = nil
	}
	return a.sendTodo(ctx, http.MethodPut, "/todos/"+strconv.FormatUint(id, 10), token, body)
}

func (a *API) sendTodo(ctx context.Context, method, path, token string, body map[string]any) (*model.Todo, error) {
	var out struct {
		Todo model.Todo `json:"todo"`
	}
	if err := a.doJSON(ctx, method, path, token, body, &out); err != nil {
		return nil, err
	}
	return &out.Todo, nil
}

func (a *API) ToggleTodo(ctx context.Context, token string, id uint64) (*model.Todo, error) {
	var out struct {
		Todo model.Todo `json:"todo"`
	}
	if err := a.doJSON(ctx, http.MethodPatch, "/todos/"+strconv.FormatUint(id, 10)+"/toggle", token, nil, &out); err != nil {
		return nil, err
	}
	return &out.Todo, nil
}

func (a *API) DeleteTodo(ctx context.Context, token string, id uint64) error {
	return a.doJSON(ctx, http.MethodDelete, "/todos/"+strconv.FormatUint(id, 10), token, nil, nil)
}

func (a *API) Summarize(ctx context.Context, token, content string) (string, error) {
	var out struct {
		Summary string `json:"summary"`
	}
	err := a.doJSON(ctx, http.MethodPost, "/ai/summarize", token, map[string]string{"content": content}, &out)
	return out.Summary, err
}

func (a *API) Chat(ctx context.Context, token string, msgs []ChatMessage) (string, error) {
	var out struct {
		Reply string `json:"reply"`
	}
	err := a.doJSON(ctx, http.MethodPost, "/ai/chat", token, map[string]any{"messages": msgs}, &out)
	return out.Reply, err
}

func (a *API) doJSON(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, a.BaseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return a.send(req, token, out)
}

func (a *API) doMultipart(ctx context.Context, method, path, token string, fields map[string]string, filename string, data []byte, out any) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return err
		}
	}
	fw, err := w.CreateFormFile("image", filename)
	if err != nil {
		return err
	}
	if _, err := fw.Write(data); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, a.BaseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return a.send(req, token, out)
}

func (a *API) send(req *http.Request, token string, out any) error {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := a.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, code := errorBody(raw)
		return &APIError{Status: resp.StatusCode, Message: msg, Code: code}
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", req.Method, req.URL.Path, err)
	}
	return nil
}

// errorBody pulls the text out of {"error": ...} or {"message": ...}
// (register uses the latter) along with the optional "code".
func errorBody(raw []byte) (msg, code string) {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Code    string `json:"code"`
	}
	if json.Unmarshal(raw, &body) == nil {
		if body.Error != "" {
			return body.Error, body.Code
		}
		if body.Message != "" {
			return body.Message, body.Code
		}
	}
	return strings.TrimSpace(string(raw)), ""
}
