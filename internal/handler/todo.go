package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/andymattgee/swe-blog/internal/logging"
	"github.com/andymattgee/swe-blog/internal/model"
	"github.com/andymattgee/swe-blog/internal/service"
)

// TodoHandler serves /todos, scoped to the authenticated user.
type TodoHandler struct {
	Todos *service.TodoService
	Log   logging.Logger
	Now   func() time.Time
}

func NewTodoHandler(todos *service.TodoService, log logging.Logger) *TodoHandler {
	return &TodoHandler{Todos: todos, Log: log, Now: time.Now}
}

// todoReq keeps the deadline raw so that an explicit null (or "") clears it
// while an absent key leaves it alone.
type todoReq struct {
	Task      *string         `json:"task"`
	Notes     *string         `json:"notes"`
	Priority  *model.Priority `json:"priority"`
	Completed *bool           `json:"completed"`
	Deadline  json.RawMessage `json:"deadline"`
}

func (r todoReq) input() (model.TodoInput, error) {
	in := model.TodoInput{Task: r.Task, Notes: r.Notes, Priority: r.Priority, Completed: r.Completed}
	raw := bytes.TrimSpace(r.Deadline)
	switch {
	case len(raw) == 0:
	case bytes.Equal(raw, []byte("null")), bytes.Equal(raw, []byte(`""`)):
		in.ClearDeadline = true
	default:
		var d model.Date
		if err := json.Unmarshal(raw, &d); err != nil {
			return in, &service.ValidationError{Field: "deadline", Msg: "deadline must be a date like 2006-01-02"}
		}
		in.Deadline = &d
	}
	return in, nil
}

func (h *TodoHandler) bind(c echo.Context) (model.TodoInput, error) {
	var req todoReq
	if err := c.Bind(&req); err != nil {
		return model.TodoInput{}, &service.ValidationError{Field: "body", Msg: "invalid body"}
	}
	return req.input()
}

// List returns the user's todos split into today, pending, overdue and
// completed.
func (h *TodoHandler) List(c echo.Context) error {
	u, err := currentUser(c)
	if u == nil {
		return err
	}
	ctx, cancel := requestCtx(c, dbTimeout)
	defer cancel()

	cat, err := h.Todos.Categorized(ctx, u.ID, h.Now())
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":  true,
		"count":    cat.Count(),
		"timezone": h.Todos.Location().String(),
		"data":     cat,
	})
}

func (h *TodoHandler) Get(c echo.Context) error {
	u, err := currentUser(c)
	if u == nil {
		return err
	}
	id, ok := parseID(c)
	if !ok {
		return notFound(c)
	}
	ctx, cancel := requestCtx(c, dbTimeout)
	defer cancel()

	t, err := h.Todos.Get(ctx, u.ID, id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, []model.Todo{*t})
}

func (h *TodoHandler) Create(c echo.Context) error {
	u, err := currentUser(c)
	if u == nil {
		return err
	}
	in, err := h.bind(c)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	ctx, cancel := requestCtx(c, dbTimeout)
	defer cancel()

	t, err := h.Todos.Create(ctx, u.ID, in)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"todo": t})
}

func (h *TodoHandler) Update(c echo.Context) error {
	u, err := currentUser(c)
	if u == nil {
		return err
	}
	id, ok := parseID(c)
	if !ok {
		return notFound(c)
	}
	in, err := h.bind(c)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	ctx, cancel := requestCtx(c, dbTimeout)
	defer cancel()

	t, err := h.Todos.Update(ctx, u.ID, id, in)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"todo": t})
}

func (h *TodoHandler) Delete(c echo.Context) error {
	u, err := currentUser(c)
	if u == nil {
		return err
	}
	id, ok := parseID(c)
	if !ok {
		return notFound(c)
	}
	ctx, cancel := requestCtx(c, dbTimeout)
	defer cancel()

	if err := h.Todos.Delete(ctx, u.ID, id); err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// Toggle flips completion.
func (h *TodoHandler) Toggle(c echo.Context) error {
	u, err := currentUser(c)
	if u == nil {
		return err
	}
	id, ok := parseID(c)
	if !ok {
		return notFound(c)
	}
	ctx, cancel := requestCtx(c, dbTimeout)
	defer cancel()

	t, err := h.Todos.ToggleComplete(ctx, u.ID, id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"todo": t})
}
