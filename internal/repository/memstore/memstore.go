// Package memstore keeps users, tokens, entries and todos in process memory.
// It mirrors the method sets of the MySQL repositories and is used for
// STORAGE=memory and in tests.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/andymattgee/swe-blog/internal/model"
	"github.com/andymattgee/swe-blog/internal/repository"
)

// Store owns the shared lock of all in-memory tables. Ids are assigned per
// table, like AUTO_INCREMENT.
type Store struct {
	mu     sync.RWMutex
	seq    map[string]uint64
	users  map[uint64]model.User
	tokens map[uint64]map[string]struct{}
	entry  map[uint64]model.Entry
	todo   map[uint64]model.Todo

	Users   *Users
	Tokens  *Tokens
	Entries *Entries
	Todos   *Todos
}

func New() *Store {
	s := &Store{
		seq:    map[string]uint64{},
		users:  map[uint64]model.User{},
		tokens: map[uint64]map[string]struct{}{},
		entry:  map[uint64]model.Entry{},
		todo:   map[uint64]model.Todo{},
	}
	s.Users = &Users{s}
	s.Tokens = &Tokens{s}
	s.Entries = &Entries{s}
	s.Todos = &Todos{s}
	return s
}

func (s *Store) next(table string) uint64 {
	s.seq[table]++
	return s.seq[table]
}

func now() time.Time { return time.Now().UTC().Truncate(time.Second) }

// Users is the in-memory counterpart of repository.UserRepo.
type Users struct{ s *Store }

func (r *Users) Create(_ context.Context, u *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u.Email = repository.NormalizeEmail(u.Email)
	for _, existing := range r.s.users {
		if existing.Email == u.Email {
			return repository.ErrEmailExists
		}
	}
	u.ID = r.s.next("users")
	u.CreatedAt = now()
	u.UpdatedAt = u.CreatedAt
	r.s.users[u.ID] = *u
	return nil
}

func (r *Users) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	email = repository.NormalizeEmail(email)
	for _, u := range r.s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *Users) GetByID(_ context.Context, id uint64) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *Users) UpdatePassword(_ context.Context, id uint64, hash string) error {
	return r.update(id, func(u *model.User) { u.PasswordHash = hash })
}

func (r *Users) UpdateProfileImage(_ context.Context, id uint64, url string) error {
	return r.update(id, func(u *model.User) { u.ProfileImageURL = url })
}

func (r *Users) update(id uint64, fn func(*model.User)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(&u)
	u.UpdatedAt = now()
	r.s.users[id] = u
	return nil
}

// Delete removes a user and cascades to its tokens and content, like the
// foreign keys of the SQL schema.
func (r *Users) Delete(_ context.Context, id uint64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.users, id)
	delete(r.s.tokens, id)
	for k, e := range r.s.entry {
		if e.UserID == id {
			delete(r.s.entry, k)
		}
	}
	for k, t := range r.s.todo {
		if t.UserID == id {
			delete(r.s.todo, k)
		}
	}
	return nil
}

// Tokens is the in-memory counterpart of repository.TokenRepo.
type Tokens struct{ s *Store }

func (r *Tokens) Store(_ context.Context, userID uint64, tokenHash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	set := r.s.tokens[userID]
	if set == nil {
		set = map[string]struct{}{}
		r.s.tokens[userID] = set
	}
	if _, dup := set[tokenHash]; dup {
		return repository.ErrDuplicateToken
	}
	set[tokenHash] = struct{}{}
	return nil
}

func (r *Tokens) Exists(_ context.Context, userID uint64, tokenHash string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	_, ok := r.s.tokens[userID][tokenHash]
	return ok, nil
}

func (r *Tokens) Delete(_ context.Context, userID uint64, tokenHash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.tokens[userID], tokenHash)
	return nil
}

func (r *Tokens) DeleteAllForUser(_ context.Context, userID uint64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.tokens, userID)
	return nil
}

// Count returns the number of active tokens of a user.
func (r *Tokens) Count(userID uint64) int {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.tokens[userID])
}

// Entries is the in-memory counterpart of repository.EntryRepo.
type Entries struct{ s *Store }

func (r *Entries) Create(_ context.Context, e *model.Entry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e.ID = r.s.next("entries")
	e.CreatedAt = now()
	e.UpdatedAt = e.CreatedAt
	r.s.entry[e.ID] = *e
	return nil
}

func (r *Entries) ListByOwner(_ context.Context, ownerID uint64) ([]model.Entry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []model.Entry{}
	for _, e := range r.s.entry {
		if e.UserID == ownerID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *Entries) GetByIDAndOwner(_ context.Context, id, ownerID uint64) (*model.Entry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	e, ok := r.s.entry[id]
	if !ok || e.UserID != ownerID {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

func (r *Entries) Update(_ context.Context, e *model.Entry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.entry[e.ID]
	if !ok || cur.UserID != e.UserID {
		return repository.ErrNotFound
	}
	cur.Title = e.Title
	cur.ProfessionalContent = e.ProfessionalContent
	cur.PersonalContent = e.PersonalContent
	cur.ImageURL = e.ImageURL
	cur.UpdatedAt = now()
	e.UpdatedAt = cur.UpdatedAt
	r.s.entry[e.ID] = cur
	return nil
}

func (r *Entries) SetSummary(_ context.Context, id, ownerID uint64, summary string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.entry[id]
	if !ok || cur.UserID != ownerID {
		return repository.ErrNotFound
	}
	cur.AISummary = summary
	r.s.entry[id] = cur
	return nil
}

func (r *Entries) Delete(_ context.Context, id, ownerID uint64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.entry[id]
	if !ok || cur.UserID != ownerID {
		return repository.ErrNotFound
	}
	delete(r.s.entry, id)
	return nil
}

// Todos is the in-memory counterpart of repository.TodoRepo.
type Todos struct{ s *Store }

func (r *Todos) Create(_ context.Context, t *model.Todo) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t.ID = r.s.next("todos")
	t.CreatedAt = now()
	t.UpdatedAt = t.CreatedAt
	r.s.todo[t.ID] = cloneTodo(*t)
	return nil
}

func (r *Todos) ListByOwner(_ context.Context, ownerID uint64) ([]model.Todo, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []model.Todo{}
	for _, t := range r.s.todo {
		if t.UserID == ownerID {
			out = append(out, cloneTodo(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *Todos) GetByIDAndOwner(_ context.Context, id, ownerID uint64) (*model.Todo, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.todo[id]
	if !ok || t.UserID != ownerID {
		return nil, repository.ErrNotFound
	}
	t = cloneTodo(t)
	return &t, nil
}

func (r *Todos) Update(_ context.Context, t *model.Todo) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.todo[t.ID]
	if !ok || cur.UserID != t.UserID {
		return repository.ErrNotFound
	}
	t.CreatedAt = cur.CreatedAt
	t.UpdatedAt = now()
	r.s.todo[t.ID] = cloneTodo(*t)
	return nil
}

func (r *Todos) Toggle(_ context.Context, id, ownerID uint64, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.todo[id]
	if !ok || cur.UserID != ownerID {
		return repository.ErrNotFound
	}
	cur.Completed = !cur.Completed
	if cur.Completed {
		ts := at.UTC().Truncate(time.Second)
		cur.CompletedAt = &ts
	} else {
		cur.CompletedAt = nil
	}
	cur.UpdatedAt = at.UTC().Truncate(time.Second)
	r.s.todo[id] = cur
	return nil
}

func (r *Todos) Delete(_ context.Context, id, ownerID uint64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.todo[id]
	if !ok || cur.UserID != ownerID {
		return repository.ErrNotFound
	}
	delete(r.s.todo, id)
	return nil
}

// cloneTodo copies the pointer fields so callers cannot mutate stored rows.
func cloneTodo(t model.Todo) model.Todo {
	if t.CompletedAt != nil {
		ts := *t.CompletedAt
		t.CompletedAt = &ts
	}
	if t.Deadline != nil {
		d := *t.Deadline
		t.Deadline = &d
	}
	return t
}
