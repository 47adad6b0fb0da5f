package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/andymattgee/swe-blog/internal/logging"
	"github.com/andymattgee/swe-blog/internal/model"
	"github.com/andymattgee/swe-blog/internal/queue"
	"github.com/andymattgee/swe-blog/internal/repository/memstore"
	"github.com/andymattgee/swe-blog/internal/storage"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type env struct {
	store   *memstore.Store
	tokens  *TokenService
	auth    *AuthService
	entries *EntryService
	todos   *TodoService
	images  *storage.LocalStore
}

func newEnv(t *testing.T) *env {
	t.Helper()
	st := memstore.New()
	images, err := storage.NewLocalStore(t.TempDir(), "/uploads")
	require.NoError(t, err)
	log := logging.Discard()
	san := NewSanitizer()
	tokens := NewTokenService(st.Users, st.Tokens, "test-secret", 0)
	return &env{
		store:   st,
		tokens:  tokens,
		auth:    NewAuthService(st.Users, tokens, images, bcrypt.MinCost, 5<<20, log),
		entries: NewEntryService(st.Entries, images, 5<<20, san, log),
		todos:   NewTodoService(st.Todos, san, time.UTC),
		images:  images,
	}
}

func (e *env) register(t *testing.T, email string) (*model.User, string) {
	t.Helper()
	u, tok, err := e.auth.Register(context.Background(), RegisterInput{Email: email, Password: "pw123", FirstName: "A", LastName: "B"})
	require.NoError(t, err)
	return u, tok
}

func ptr[T any](v T) *T { return &v }

func TestRegisterLoginVerify(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	u, tok := e.register(t, "Ann@Example.com")
	assert.Equal(t, "ann@example.com", u.Email)
	assert.NotEqual(t, "pw123", u.PasswordHash)

	got, err := e.tokens.Verify(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	u2, tok2, err := e.auth.Login(ctx, "ann@example.com", "pw123")
	require.NoError(t, err)
	assert.Equal(t, u.ID, u2.ID)
	assert.NotEqual(t, tok, tok2, "each login mints a fresh token")
	assert.Equal(t, 2, e.store.Tokens.Count(u.ID))
}

func TestRegister_Errors(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.register(t, "a@x.com")

	_, _, err := e.auth.Register(ctx, RegisterInput{Email: "A@x.com", Password: "x"})
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	_, _, err = e.auth.Register(ctx, RegisterInput{Email: "", Password: "x"})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "email", ve.Field)
	assert.ErrorIs(t, err, ErrValidation)

	_, _, err = e.auth.Register(ctx, RegisterInput{Email: "b@x.com"})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "password", ve.Field)
}

func TestLogin_FailuresLookAlike(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.register(t, "a@x.com")

	_, _, errWrong := e.auth.Login(ctx, "a@x.com", "nope")
	_, _, errUnknown := e.auth.Login(ctx, "ghost@x.com", "pw123")
	assert.ErrorIs(t, errWrong, ErrInvalidCredentials)
	assert.ErrorIs(t, errUnknown, ErrInvalidCredentials)
	assert.Equal(t, errWrong.Error(), errUnknown.Error())

	_, _, err := e.auth.Login(ctx, "", "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestLogout_RevokesOnlyPresentedToken(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u, tok1 := e.register(t, "a@x.com")
	_, tok2, err := e.auth.Login(ctx, "a@x.com", "pw123")
	require.NoError(t, err)

	require.NoError(t, e.auth.Logout(ctx, u.ID, tok1))
	_, err = e.tokens.Verify(ctx, tok1)
	assert.ErrorIs(t, err, ErrRevokedToken)

	_, err = e.tokens.Verify(ctx, tok2)
	assert.NoError(t, err)

	require.NoError(t, e.auth.Logout(ctx, u.ID, tok1), "revoking twice is fine")

	require.NoError(t, e.auth.LogoutAll(ctx, u.ID))
	_, err = e.tokens.Verify(ctx, tok2)
	assert.ErrorIs(t, err, ErrRevokedToken)
}

func TestVerify_Rejections(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u, tok := e.register(t, "a@x.com")

	_, err := e.tokens.Verify(ctx, "garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewTokenService(e.store.Users, e.store.Tokens, "other-secret", 0)
	_, err = other.Verify(ctx, tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	require.NoError(t, e.store.Users.Delete(ctx, u.ID))
	_, err = e.tokens.Verify(ctx, tok)
	assert.ErrorIs(t, err, ErrRevokedToken)
}

func TestChangePassword(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u, tok := e.register(t, "a@x.com")

	assert.ErrorIs(t, e.auth.ChangePassword(ctx, u.ID, "wrong", "new"), ErrInvalidCredentials)
	assert.ErrorIs(t, e.auth.ChangePassword(ctx, u.ID, "pw123", ""), ErrValidation)

	require.NoError(t, e.auth.ChangePassword(ctx, u.ID, "pw123", "new-pass"))
	_, _, err := e.auth.Login(ctx, "a@x.com", "pw123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = e.auth.Login(ctx, "a@x.com", "new-pass")
	assert.NoError(t, err)

	_, err = e.tokens.Verify(ctx, tok)
	assert.NoError(t, err, "existing sessions survive a password change")
}

func TestUpdateProfilePicture(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u, _ := e.register(t, "a@x.com")

	_, err := e.auth.UpdateProfilePicture(ctx, u.ID, ImageUpload{Filename: "a.txt", Data: []byte("plain text")})
	assert.ErrorIs(t, err, ErrValidation)

	ref, err := e.auth.UpdateProfilePicture(ctx, u.ID, ImageUpload{Filename: "a.png", Data: pngBytes})
	require.NoError(t, err)
	assert.Contains(t, ref, "/uploads/profiles/")

	prof, err := e.auth.Profile(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, ref, prof.ProfileImageURL)
}

func TestEntries_CRUDAndOwnership(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice, _ := e.register(t, "alice@x.com")
	bob, _ := e.register(t, "bob@x.com")

	_, err := e.entries.Create(ctx, alice.ID, model.EntryInput{ProfessionalContent: ptr("<p>x</p>")}, nil)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = e.entries.Create(ctx, alice.ID, model.EntryInput{Title: ptr("T"), ProfessionalContent: ptr("<p><br></p>")}, nil)
	assert.ErrorIs(t, err, ErrValidation)

	ent, err := e.entries.Create(ctx, alice.ID, model.EntryInput{
		Title:               ptr("  Day one "),
		ProfessionalContent: ptr(`<p class="ql-align-center">Shipped <strong>it</strong><script>alert(1)</script></p>`),
	}, &ImageUpload{Filename: "a.png", Data: pngBytes})
	require.NoError(t, err)
	assert.Equal(t, "Day one", ent.Title)
	assert.Equal(t, `<p class="ql-align-center">Shipped <strong>it</strong></p>`, ent.ProfessionalContent)
	assert.NotEmpty(t, ent.ImageURL)

	_, errForeign := e.entries.Get(ctx, bob.ID, ent.ID)
	_, errMissing := e.entries.Get(ctx, bob.ID, 9999)
	assert.ErrorIs(t, errForeign, ErrNotFound)
	assert.Equal(t, errMissing, errForeign)
	assert.ErrorIs(t, e.entries.Delete(ctx, bob.ID, ent.ID), ErrNotFound)
	_, err = e.entries.Update(ctx, bob.ID, ent.ID, model.EntryInput{Title: ptr("mine")}, nil)
	assert.ErrorIs(t, err, ErrNotFound)

	upd, err := e.entries.Update(ctx, alice.ID, ent.ID, model.EntryInput{PersonalContent: ptr(`<p onclick="x()">me</p>`)}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Day one", upd.Title, "absent fields keep their value")
	assert.Equal(t, "<p>me</p>", upd.PersonalContent)
	assert.Equal(t, ent.ImageURL, upd.ImageURL, "image kept unless replaced")

	upd, err = e.entries.Update(ctx, alice.ID, ent.ID, model.EntryInput{RemoveImage: true}, nil)
	require.NoError(t, err)
	assert.Empty(t, upd.ImageURL)

	list, err := e.entries.List(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, e.entries.Delete(ctx, alice.ID, ent.ID))
	_, err = e.entries.Get(ctx, alice.ID, ent.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

type fakeSummarizer struct {
	mu   sync.Mutex
	seen []string
	err  error
}

func (f *fakeSummarizer) Summarize(_ context.Context, content string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, content)
	if f.err != nil {
		return "", f.err
	}
	return " short ", nil
}

type fakePublisher struct {
	events []queue.SummaryRequestedEvent
	err    error
}

func (f *fakePublisher) PublishSummaryRequested(_ context.Context, ev queue.SummaryRequestedEvent) error {
	f.events = append(f.events, ev)
	return f.err
}

func TestEntrySummaries(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u, _ := e.register(t, "a@x.com")
	ent, err := e.entries.Create(ctx, u.ID, model.EntryInput{Title: ptr("T"), ProfessionalContent: ptr("<p>Built &amp; shipped</p><p>the API</p>")}, nil)
	require.NoError(t, err)

	assert.ErrorIs(t, e.entries.RequestSummary(ctx, u.ID, ent.ID), ErrUpstream, "not configured")

	sum := &fakeSummarizer{}
	pub := &fakePublisher{}
	e.entries.WithSummaries(pub, sum)

	require.NoError(t, e.entries.RequestSummary(ctx, u.ID, ent.ID))
	require.Len(t, pub.events, 1)
	assert.Equal(t, ent.ID, pub.events[0].EntryID)
	assert.ErrorIs(t, e.entries.RequestSummary(ctx, u.ID+100, ent.ID), ErrNotFound)

	require.NoError(t, e.entries.ApplySummary(ctx, pub.events[0]))
	assert.Equal(t, []string{"Built & shipped the API"}, sum.seen)
	got, err := e.entries.Get(ctx, u.ID, ent.ID)
	require.NoError(t, err)
	assert.Equal(t, "short", got.AISummary)

	pub.err = errors.New("broker down")
	assert.ErrorIs(t, e.entries.RequestSummary(ctx, u.ID, ent.ID), ErrUpstream)
}

func TestEntrySummaries_InlineWithoutBroker(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u, _ := e.register(t, "a@x.com")
	ent, err := e.entries.Create(ctx, u.ID, model.EntryInput{Title: ptr("T"), ProfessionalContent: ptr("<p>text</p>")}, nil)
	require.NoError(t, err)

	e.entries.WithSummaries(nil, &fakeSummarizer{})
	require.NoError(t, e.entries.RequestSummary(ctx, u.ID, ent.ID))
	assert.Eventually(t, func() bool {
		got, err := e.entries.Get(ctx, u.ID, ent.ID)
		return err == nil && got.AISummary == "short"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestTodos(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u, _ := e.register(t, "a@x.com")
	fixed := time.Date(2026, 10, 14, 23, 30, 0, 0, time.UTC)
	e.todos.now = func() time.Time { return fixed }

	_, err := e.todos.Create(ctx, u.ID, model.TodoInput{Task: ptr("  ")})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = e.todos.Create(ctx, u.ID, model.TodoInput{Task: ptr("x"), Priority: ptr(model.Priority("urgent"))})
	assert.ErrorIs(t, err, ErrValidation)

	today := model.DateOf(fixed, time.UTC)
	td, err := e.todos.Create(ctx, u.ID, model.TodoInput{Task: ptr("Ship"), Notes: ptr("<p>a<script>x</script></p>"), Deadline: &today})
	require.NoError(t, err)
	assert.Equal(t, model.PriorityLow, td.Priority)
	assert.Equal(t, "<p>a</p>", td.Notes)

	cat, err := e.todos.Categorized(ctx, u.ID, fixed)
	require.NoError(t, err)
	require.Len(t, cat.Today, 1, "deadline today is today regardless of time of day")

	toggled, err := e.todos.ToggleComplete(ctx, u.ID, td.ID)
	require.NoError(t, err)
	assert.True(t, toggled.Completed)
	require.NotNil(t, toggled.CompletedAt)
	assert.Equal(t, fixed, *toggled.CompletedAt)

	back, err := e.todos.ToggleComplete(ctx, u.ID, td.ID)
	require.NoError(t, err)
	assert.False(t, back.Completed)
	assert.Nil(t, back.CompletedAt)
	assert.Equal(t, td.Task, back.Task)
	assert.Equal(t, td.Notes, back.Notes)

	yesterday := today.AddDays(-1)
	upd, err := e.todos.Update(ctx, u.ID, td.ID, model.TodoInput{Deadline: &yesterday, Priority: ptr(model.PriorityHigh)})
	require.NoError(t, err)
	assert.Equal(t, "Ship", upd.Task)
	cat, err = e.todos.Categorized(ctx, u.ID, fixed)
	require.NoError(t, err)
	assert.Len(t, cat.Overdue, 1)

	upd, err = e.todos.Update(ctx, u.ID, td.ID, model.TodoInput{ClearDeadline: true, Completed: ptr(true)})
	require.NoError(t, err)
	assert.Nil(t, upd.Deadline)
	assert.NotNil(t, upd.CompletedAt)

	_, err = e.todos.ToggleComplete(ctx, u.ID+1, td.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, e.todos.Delete(ctx, u.ID+1, td.ID), ErrNotFound)
	require.NoError(t, e.todos.Delete(ctx, u.ID, td.ID))
}

func TestTodos_ForeignIDsLookMissing(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice, _ := e.register(t, "alice@x.com")
	bob, _ := e.register(t, "bob@x.com")

	td, err := e.todos.Create(ctx, alice.ID, model.TodoInput{Task: ptr("Ship")})
	require.NoError(t, err)

	_, errForeign := e.todos.Get(ctx, bob.ID, td.ID)
	_, errMissing := e.todos.Get(ctx, bob.ID, 9999)
	assert.ErrorIs(t, errForeign, ErrNotFound)
	assert.Equal(t, errMissing, errForeign)

	_, errForeign = e.todos.Update(ctx, bob.ID, td.ID, model.TodoInput{Task: ptr("mine")})
	_, errMissing = e.todos.Update(ctx, bob.ID, 9999, model.TodoInput{Task: ptr("mine")})
	assert.ErrorIs(t, errForeign, ErrNotFound)
	assert.Equal(t, errMissing, errForeign)

	got, err := e.todos.Get(ctx, alice.ID, td.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ship", got.Task, "a rejected update leaves the todo alone")

	list, err := e.todos.List(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}
