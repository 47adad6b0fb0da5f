package service

import (
	"context"
	"time"

	"github.com/andymattgee/swe-blog/internal/model"
	"github.com/andymattgee/swe-blog/internal/queue"
)

// UserStore is implemented by repository.UserRepo and memstore.Users.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id uint64) (*model.User, error)
	UpdatePassword(ctx context.Context, id uint64, hash string) error
	UpdateProfileImage(ctx context.Context, id uint64, url string) error
}

// TokenStore is implemented by repository.TokenRepo and memstore.Tokens.
type TokenStore interface {
	Store(ctx context.Context, userID uint64, tokenHash string) error
	Exists(ctx context.Context, userID uint64, tokenHash string) (bool, error)
	Delete(ctx context.Context, userID uint64, tokenHash string) error
	DeleteAllForUser(ctx context.Context, userID uint64) error
}

// EntryStore is implemented by repository.EntryRepo and memstore.Entries.
type EntryStore interface {
	Create(ctx context.Context, e *model.Entry) error
	ListByOwner(ctx context.Context, ownerID uint64) ([]model.Entry, error)
	GetByIDAndOwner(ctx context.Context, id, ownerID uint64) (*model.Entry, error)
	Update(ctx context.Context, e *model.Entry) error
	SetSummary(ctx context.Context, id, ownerID uint64, summary string) error
	Delete(ctx context.Context, id, ownerID uint64) error
}

// TodoStore is implemented by repository.TodoRepo and memstore.Todos.
type TodoStore interface {
	Create(ctx context.Context, t *model.Todo) error
	ListByOwner(ctx context.Context, ownerID uint64) ([]model.Todo, error)
	GetByIDAndOwner(ctx context.Context, id, ownerID uint64) (*model.Todo, error)
	Update(ctx context.Context, t *model.Todo) error
	Toggle(ctx context.Context, id, ownerID uint64, at time.Time) error
	Delete(ctx context.Context, id, ownerID uint64) error
}

// SummaryPublisher enqueues summary jobs; queue.Publisher implements it.
type SummaryPublisher interface {
	PublishSummaryRequested(ctx context.Context, ev queue.SummaryRequestedEvent) error
}

// Summarizer turns plain text into a short summary.
type Summarizer interface {
	Summarize(ctx context.Context, content string) (string, error)
}

// ImageUpload is an uploaded file as received from a multipart form.
type ImageUpload struct {
	Filename string
	Data     []byte
}
