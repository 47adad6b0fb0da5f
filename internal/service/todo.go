package service

import (
	"context"
	"strings"
	"time"

	"github.com/andymattgee/swe-blog/internal/model"
)

// TodoService implements owner-scoped CRUD for todos.
type TodoService struct {
	todos TodoStore
	san   *Sanitizer
	loc   *time.Location
	now   func() time.Time
}

// NewTodoService builds a TodoService that buckets by calendar day in loc.
func NewTodoService(todos TodoStore, san *Sanitizer, loc *time.Location) *TodoService {
	if loc == nil {
		loc = time.UTC
	}
	return &TodoService{todos: todos, san: san, loc: loc, now: time.Now}
}

func (s *TodoService) List(ctx context.Context, userID uint64) ([]model.Todo, error) {
	list, err := s.todos.ListByOwner(ctx, userID)
	if err != nil {
		return nil, storeErr("list todos", err)
	}
	return list, nil
}

// Categorized lists the user's todos split into today, pending, overdue and
// completed relative to the calendar day of now.
func (s *TodoService) Categorized(ctx context.Context, userID uint64, now time.Time) (model.Categorized, error) {
	list, err := s.List(ctx, userID)
	if err != nil {
		return model.Categorized{}, err
	}
	return model.Categorize(list, now, s.loc), nil
}

// Location is the zone used for calendar-day comparisons.
func (s *TodoService) Location() *time.Location { return s.loc }

func (s *TodoService) Get(ctx context.Context, userID, id uint64) (*model.Todo, error) {
	t, err := s.todos.GetByIDAndOwner(ctx, id, userID)
	if err != nil {
		return nil, storeErr("get todo", err)
	}
	return t, nil
}

func (s *TodoService) Create(ctx context.Context, userID uint64, in model.TodoInput) (*model.Todo, error) {
	t := &model.Todo{UserID: userID, Priority: model.PriorityLow}
	if err := s.apply(t, in); err != nil {
		return nil, err
	}
	if err := s.todos.Create(ctx, t); err != nil {
		return nil, storeErr("create todo", err)
	}
	return t, nil
}

// Update applies the supplied fields; absent ones keep their stored value.
func (s *TodoService) Update(ctx context.Context, userID, id uint64, in model.TodoInput) (*model.Todo, error) {
	t, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(t, in); err != nil {
		return nil, err
	}
	if err := s.todos.Update(ctx, t); err != nil {
		return nil, storeErr("update todo", err)
	}
	return t, nil
}

func (s *TodoService) Delete(ctx context.Context, userID, id uint64) error {
	return storeErr("delete todo", s.todos.Delete(ctx, id, userID))
}

// ToggleComplete flips the completion flag and returns the updated todo.
// Toggling twice restores the original state.
func (s *TodoService) ToggleComplete(ctx context.Context, userID, id uint64) (*model.Todo, error) {
	if err := s.todos.Toggle(ctx, id, userID, s.now()); err != nil {
		return nil, storeErr("toggle todo", err)
	}
	return s.Get(ctx, userID, id)
}

func (s *TodoService) apply(t *model.Todo, in model.TodoInput) error {
	if in.Task != nil {
		t.Task = strings.TrimSpace(*in.Task)
	}
	if in.Notes != nil {
		t.Notes = s.san.RichText(*in.Notes)
	}
	if in.Priority != nil {
		if !in.Priority.Valid() {
			return invalid("priority", "priority must be low or high")
		}
		t.Priority = *in.Priority
	}
	switch {
	case in.Deadline != nil:
		d := *in.Deadline
		t.Deadline = &d
	case in.ClearDeadline:
		t.Deadline = nil
	}
	if in.Completed != nil && *in.Completed != t.Completed {
		t.Completed = *in.Completed
		if t.Completed {
			at := s.now().UTC().Truncate(time.Second)
			t.CompletedAt = &at
		} else {
			t.CompletedAt = nil
		}
	}
	if t.Task == "" {
		return invalid("task", "task is required")
	}
	return nil
}
