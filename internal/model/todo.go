package model

import (
	"sort"
	"time"
)

// Priority of a todo.
type Priority string

const (
	PriorityLow  Priority = "low"
	PriorityHigh Priority = "high"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityHigh
}

// Todo is a task owned by a user. Deadline is a calendar date: only its
// year, month and day are meaningful.
type Todo struct {
	ID          uint64     `json:"id"`
	UserID      uint64     `json:"userId"`
	Task        string     `json:"task"`
	Notes       string     `json:"notes,omitempty"`
	Priority    Priority   `json:"priority"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Deadline    *Date      `json:"deadline,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// TodoInput carries the fields of a create or update request; nil means
// "not supplied".
type TodoInput struct {
	Task          *string
	Notes         *string
	Priority      *Priority
	Completed     *bool
	Deadline      *Date
	ClearDeadline bool
}

// Bucket is the derived category of a todo.
type Bucket string

const (
	BucketToday     Bucket = "today"
	BucketPending   Bucket = "pending"
	BucketOverdue   Bucket = "overdue"
	BucketCompleted Bucket = "completed"
)

// BucketOf classifies t relative to today. Completed wins over any date;
// otherwise the deadline is compared with today at calendar-day granularity,
// so a deadline equal to today is "today" whatever the time of day. A todo
// without a deadline is pending.
func BucketOf(t Todo, today Date) Bucket {
	switch {
	case t.Completed:
		return BucketCompleted
	case t.Deadline == nil:
		return BucketPending
	case t.Deadline.Before(today):
		return BucketOverdue
	case t.Deadline.Equal(today):
		return BucketToday
	default:
		return BucketPending
	}
}

// Categorized is the four-bucket listing served by GET /todos.
type Categorized struct {
	Today     []Todo `json:"today"`
	Pending   []Todo `json:"pending"`
	Overdue   []Todo `json:"overdue"`
	Completed []Todo `json:"completed"`
}

// Count returns the number of todos across all buckets.
func (c Categorized) Count() int {
	return len(c.Today) + len(c.Pending) + len(c.Overdue) + len(c.Completed)
}

// Categorize partitions todos by BucketOf for the calendar day of now in loc.
// Buckets are never nil so they encode as JSON arrays. Pending and overdue
// are ordered by deadline, soonest first; the input order breaks ties.
func Categorize(todos []Todo, now time.Time, loc *time.Location) Categorized {
	today := DateOf(now, loc)
	out := Categorized{
		Today:     []Todo{},
		Pending:   []Todo{},
		Overdue:   []Todo{},
		Completed: []Todo{},
	}
	for _, t := range todos {
		switch BucketOf(t, today) {
		case BucketCompleted:
			out.Completed = append(out.Completed, t)
		case BucketOverdue:
			out.Overdue = append(out.Overdue, t)
		case BucketToday:
			out.Today = append(out.Today, t)
		default:
			out.Pending = append(out.Pending, t)
		}
	}
	byDeadline(out.Pending)
	byDeadline(out.Overdue)
	return out
}

func byDeadline(ts []Todo) {
	sort.SliceStable(ts, func(i, j int) bool {
		a, b := ts[i].Deadline, ts[j].Deadline
		if a == nil || b == nil {
			return a != nil && b == nil
		}
		return a.Before(*b)
	})
}
