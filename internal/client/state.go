package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andymattgee/swe-blog/internal/model"
)

// ErrLoggedOut tells the caller the session is gone and the user is back at
// the unauthenticated prompt.
var ErrLoggedOut = errors.New("logged out")

// ErrNotLoggedIn is returned by calls that need a session when there is none.
var ErrNotLoggedIn = errors.New("not logged in")

// State is the client's session: the bearer token, the cached profile and
// the last fetched collections. Every change to token or profile is mirrored
// into the SessionStore.
type State struct {
	api   *API
	store SessionStore

	Token   string
	Profile Profile
	Entries []model.Entry
	Todos   []model.Todo
	// Zone is the server's bucketing zone, learned on Refresh. Nil until
	// then.
	Zone *time.Location

	// SummaryTimeout bounds Summarize; zero means 30 seconds.
	SummaryTimeout time.Duration
}

func NewState(api *API, store SessionStore) *State {
	return &State{api: api, store: store}
}

// API exposes the underlying client for calls that do not touch session
// state.
func (s *State) API() *API { return s.api }

// LoggedIn reports whether a token is held.
func (s *State) LoggedIn() bool { return s.Token != "" }

// Load restores a saved session, if any.
func (s *State) Load(ctx context.Context) error {
	sess, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if sess == nil {
		return nil
	}
	s.Token = sess.Token
	s.Profile = sess.Profile
	return nil
}

func (s *State) Register(ctx context.Context, req RegisterRequest) error {
	resp, err := s.api.Register(ctx, req)
	if err != nil {
		return err
	}
	return s.begin(ctx, resp)
}

func (s *State) Login(ctx context.Context, email, password string) error {
	resp, err := s.api.Login(ctx, email, password)
	if err != nil {
		return err
	}
	return s.begin(ctx, resp)
}

func (s *State) begin(ctx context.Context, resp AuthResponse) error {
	s.Token = resp.Token
	s.Profile = Profile{User: resp.User}
	s.Entries, s.Todos = nil, nil
	return s.save(ctx)
}

// Logout revokes the token on the server and drops the local session. The
// local session is cleared even when the server call fails. The returned
// error always matches ErrLoggedOut; a server failure is joined to it.
func (s *State) Logout(ctx context.Context) error {
	var serverErr error
	if s.Token != "" {
		serverErr = s.api.Logout(ctx, s.Token)
	}
	s.reset()
	clearErr := s.store.Clear(ctx)
	return errors.Join(ErrLoggedOut, serverErr, clearErr)
}

// Expire handles a 401 from any call: the session is dropped locally without
// contacting the server.
func (s *State) Expire(ctx context.Context) error {
	s.reset()
	return errors.Join(ErrLoggedOut, s.store.Clear(ctx))
}

func (s *State) reset() {
	s.Token = ""
	s.Profile = Profile{}
	s.Entries, s.Todos = nil, nil
}

// Refresh re-fetches the profile, entries and todos. Profile fields the
// server left empty keep their cached value. A failed entries or todos fetch
// zeroes only its own count; those failures are returned joined, after the
// state has been updated. A 401 on any call ends the session.
func (s *State) Refresh(ctx context.Context) error {
	if !s.LoggedIn() {
		return ErrNotLoggedIn
	}
	var errs []error

	if u, err := s.api.Me(ctx, s.Token); err != nil {
		errs = append(errs, fmt.Errorf("profile: %w", err))
	} else {
		s.Profile.User = mergeUser(s.Profile.User, u)
	}

	if entries, err := s.api.ListEntries(ctx, s.Token); err != nil {
		s.Entries, s.Profile.EntryCount = nil, 0
		errs = append(errs, fmt.Errorf("entries: %w", err))
	} else {
		s.Entries, s.Profile.EntryCount = entries, len(entries)
	}

	if listing, err := s.api.ListTodos(ctx, s.Token); err != nil {
		s.Todos, s.Profile.TodoCount = nil, 0
		errs = append(errs, fmt.Errorf("todos: %w", err))
	} else {
		s.Todos, s.Profile.TodoCount = listing.Todos, len(listing.Todos)
		if loc, err := time.LoadLocation(listing.TimeZone); err == nil && listing.TimeZone != "" {
			s.Zone = loc
		}
	}

	err := errors.Join(errs...)
	if errors.Is(err, ErrUnauthorized) {
		return s.Expire(ctx)
	}
	if saveErr := s.save(ctx); saveErr != nil {
		return errors.Join(err, saveErr)
	}
	return err
}

// Categorized buckets the cached todos for today in loc. A nil loc means
// the server's zone, or UTC before the first Refresh.
func (s *State) Categorized(now time.Time, loc *time.Location) model.Categorized {
	if loc == nil {
		loc = s.Zone
	}
	return model.Categorize(s.Todos, now, loc)
}

// SetAvatar records a new profile picture URL in the cached profile.
func (s *State) SetAvatar(ctx context.Context, url string) error {
	s.Profile.User.ProfileImageURL = url
	return s.save(ctx)
}

func (s *State) save(ctx context.Context) error {
	if err := s.store.Save(ctx, Session{Token: s.Token, Profile: s.Profile}); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func mergeUser(cached, fresh model.PublicUser) model.PublicUser {
	out := cached
	if fresh.ID != 0 {
		out.ID = fresh.ID
	}
	if fresh.Email != "" {
		out.Email = fresh.Email
	}
	if fresh.FirstName != "" {
		out.FirstName = fresh.FirstName
	}
	if fresh.LastName != "" {
		out.LastName = fresh.LastName
	}
	if fresh.ProfileImageURL != "" {
		out.ProfileImageURL = fresh.ProfileImageURL
	}
	if !fresh.CreatedAt.IsZero() {
		out.CreatedAt = fresh.CreatedAt
	}
	return out
}
