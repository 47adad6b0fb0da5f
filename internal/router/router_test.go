package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/andymattgee/swe-blog/internal/config"
	"github.com/andymattgee/swe-blog/internal/handler"
	"github.com/andymattgee/swe-blog/internal/logging"
	"github.com/andymattgee/swe-blog/internal/middleware"
	"github.com/andymattgee/swe-blog/internal/model"
	"github.com/andymattgee/swe-blog/internal/repository/memstore"
	"github.com/andymattgee/swe-blog/internal/service"
	"github.com/andymattgee/swe-blog/internal/storage"
)

func newServer(t *testing.T, now time.Time) *echo.Echo {
	t.Helper()
	st := memstore.New()
	log := logging.Discard()
	images, err := storage.NewLocalStore(t.TempDir(), "/uploads")
	require.NoError(t, err)
	san := service.NewSanitizer()
	tokens := service.NewTokenService(st.Users, st.Tokens, "secret", 0)

	todoHandler := handler.NewTodoHandler(service.NewTodoService(st.Todos, san, time.UTC), log)
	todoHandler.Now = func() time.Time { return now }

	g := Guards{
		Auth:      middleware.Auth(tokens, log),
		APILimit:  middleware.RateLimit(config.RateLimitConfig{}, nil, log),
		AuthLimit: middleware.RateLimit(config.RateLimitConfig{}, nil, log),
	}
	e := echo.New()
	RegisterRoutes(e)
	RegisterAuth(e, handler.NewAuthHandler(service.NewAuthService(st.Users, tokens, images, bcrypt.MinCost, 5<<20, log), 5<<20, log), g)
	RegisterEntries(e, handler.NewEntryHandler(service.NewEntryService(st.Entries, images, 5<<20, san, log), 5<<20, log), g)
	RegisterTodos(e, todoHandler, g)
	return e
}

func do(t *testing.T, e *echo.Echo, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type authBody struct {
	User  model.PublicUser `json:"user"`
	Token string           `json:"token"`
}

func register(t *testing.T, e *echo.Echo, email, pw string) authBody {
	t.Helper()
	rec := do(t, e, http.MethodPost, "/register", "", map[string]string{"email": email, "password": pw})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[authBody](t, rec)
}

func TestHealth(t *testing.T) {
	rec := do(t, newServer(t, time.Now()), http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestScenario_EntriesAreOwnerScoped(t *testing.T) {
	e := newServer(t, time.Now())
	register(t, e, "a@x.com", "pw1")

	rec := do(t, e, http.MethodPost, "/login", "", map[string]string{"email": "a@x.com", "password": "pw1"})
	require.Equal(t, http.StatusOK, rec.Code)
	alice := decode[authBody](t, rec)

	rec = do(t, e, http.MethodPost, "/entries", alice.Token, map[string]string{"title": "T", "professionalContent": "<p>hi</p>"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[struct {
		Entry model.Entry `json:"entry"`
	}](t, rec).Entry

	rec = do(t, e, http.MethodGet, "/entries", alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		Success bool          `json:"success"`
		Count   int           `json:"count"`
		Data    []model.Entry `json:"data"`
	}](t, rec)
	assert.True(t, list.Success)
	require.Equal(t, 1, list.Count)
	assert.Equal(t, "T", list.Data[0].Title)

	rec = do(t, e, http.MethodGet, "/entries/"+itoa(created.ID), alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	one := decode[[]model.Entry](t, rec)
	require.Len(t, one, 1)

	bob := register(t, e, "b@x.com", "pw2")
	foreign := do(t, e, http.MethodGet, "/entries/"+itoa(created.ID), bob.Token, nil)
	missing := do(t, e, http.MethodGet, "/entries/999999", bob.Token, nil)
	assert.Equal(t, http.StatusNotFound, foreign.Code)
	assert.Equal(t, missing.Body.String(), foreign.Body.String())
	assert.Equal(t, http.StatusNotFound, do(t, e, http.MethodDelete, "/entries/"+itoa(created.ID), bob.Token, nil).Code)
}

func TestScenario_TodoMovesFromOverdueToCompleted(t *testing.T) {
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	e := newServer(t, now)
	a := register(t, e, "a@x.com", "pw1")

	rec := do(t, e, http.MethodPost, "/todos", a.Token, map[string]any{"task": "file report", "deadline": "2026-10-13", "completed": false})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	td := decode[struct {
		Todo model.Todo `json:"todo"`
	}](t, rec).Todo

	type listing struct {
		Count int               `json:"count"`
		Data  model.Categorized `json:"data"`
	}
	l := decode[listing](t, do(t, e, http.MethodGet, "/todos", a.Token, nil))
	assert.Equal(t, 1, l.Count)
	require.Len(t, l.Data.Overdue, 1)
	assert.Empty(t, l.Data.Completed)

	rec = do(t, e, http.MethodPatch, "/todos/"+itoa(td.ID)+"/toggle", a.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	l = decode[listing](t, do(t, e, http.MethodGet, "/todos", a.Token, nil))
	assert.Empty(t, l.Data.Overdue)
	require.Len(t, l.Data.Completed, 1)
	assert.Equal(t, td.ID, l.Data.Completed[0].ID)
}

func TestLogoutRevokesToken(t *testing.T) {
	e := newServer(t, time.Now())
	a := register(t, e, "a@x.com", "pw1")

	assert.Equal(t, http.StatusOK, do(t, e, http.MethodGet, "/users/me", a.Token, nil).Code)
	assert.Equal(t, http.StatusOK, do(t, e, http.MethodPost, "/logout", a.Token, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, e, http.MethodGet, "/users/me", a.Token, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, e, http.MethodGet, "/entries", "", nil).Code)
}

func itoa(id uint64) string { return strconv.FormatUint(id, 10) }
