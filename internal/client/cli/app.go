// Package cli is the interactive terminal front end over client.State.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/andymattgee/swe-blog/internal/client"
	"github.com/andymattgee/swe-blog/internal/model"
)

// callTimeout bounds every non-AI request.
var callTimeout = 15 * time.Second

// App holds the REPL state: the session, the input source and the two
// pending delete confirmations.
type App struct {
	state *client.State
	in    lineReader
	out   io.Writer
	loc   *time.Location
	now   func() time.Time

	entryDelete *client.DeleteConfirmation
	todoDelete  *client.DeleteConfirmation
	chat        []client.ChatMessage
}

// NewApp wires an App. loc is the zone todos are bucketed in; nil follows
// the server's zone.
func NewApp(state *client.State, in lineReader, out io.Writer, loc *time.Location) *App {
	a := &App{state: state, in: in, out: out, loc: loc, now: time.Now}
	api := state.API()
	a.entryDelete = client.NewDeleteConfirmation(func(ctx context.Context, id uint64) error {
		return api.DeleteEntry(ctx, a.state.Token, id)
	})
	a.todoDelete = client.NewDeleteConfirmation(func(ctx context.Context, id uint64) error {
		return api.DeleteTodo(ctx, a.state.Token, id)
	})
	return a
}

func (a *App) printf(format string, args ...any) { fmt.Fprintf(a.out, format, args...) }

func (a *App) zone() *time.Location {
	switch {
	case a.loc != nil:
		return a.loc
	case a.state.Zone != nil:
		return a.state.Zone
	}
	return time.UTC
}

func (a *App) prompt() string {
	if !a.state.LoggedIn() {
		return "journal> "
	}
	p := a.state.Profile
	return fmt.Sprintf("journal (%s, %d entries, %d todos)> ", p.User.Email, p.EntryCount, p.TodoCount)
}

func (a *App) register(ctx context.Context) error {
	var req client.RegisterRequest
	var err error
	if req.Email, err = a.ask("email"); err != nil {
		return err
	}
	if req.FirstName, err = a.ask("first name"); err != nil {
		return err
	}
	if req.LastName, err = a.ask("last name"); err != nil {
		return err
	}
	if req.Password, err = a.askPassword("password"); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	if err := a.state.Register(ctx, req); err != nil {
		return err
	}
	a.printf("welcome, %s\n", a.state.Profile.User.Email)
	return nil
}

func (a *App) login(ctx context.Context) error {
	email, err := a.ask("email")
	if err != nil {
		return err
	}
	pw, err := a.askPassword("password")
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	if err := a.state.Login(ctx, email, pw); err != nil {
		return err
	}
	a.printf("logged in as %s\n", a.state.Profile.User.Email)
	return a.refresh(ctx)
}

func (a *App) logout(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	a.chat = nil
	return a.state.Logout(ctx)
}

func (a *App) whoami() error {
	p := a.state.Profile
	name := strings.TrimSpace(p.User.FirstName + " " + p.User.LastName)
	if name == "" {
		name = "(no name)"
	}
	a.printf("%s <%s>\n", name, p.User.Email)
	a.printf("entries: %d  todos: %d\n", p.EntryCount, p.TodoCount)
	if p.User.ProfileImageURL != "" {
		a.printf("avatar: %s\n", p.User.ProfileImageURL)
	}
	return nil
}

// refresh reports sub-fetch failures as warnings; only a lost session is an
// error.
func (a *App) refresh(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	err := a.state.Refresh(ctx)
	if errors.Is(err, client.ErrLoggedOut) {
		return err
	}
	if err != nil {
		a.printf("warning: %v\n", err)
	}
	return nil
}

func (a *App) listEntries(ctx context.Context) error {
	if err := a.refresh(ctx); err != nil {
		return err
	}
	if len(a.state.Entries) == 0 {
		a.printf("no entries yet, use entry-new\n")
		return nil
	}
	for _, e := range a.state.Entries {
		marks := ""
		if e.ImageURL != "" {
			marks += " [img]"
		}
		if e.AISummary != "" {
			marks += " [summary]"
		}
		a.printf("%4d  %s  %s%s\n", e.ID, e.CreatedAt.In(a.zone()).Format("2006-01-02"), e.Title, marks)
	}
	return nil
}

func (a *App) showEntry(ctx context.Context, id uint64) error {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	e, err := a.state.API().GetEntry(ctx, a.state.Token, id)
	if err != nil {
		return err
	}
	a.printf("# %s\n%s\n\n", e.Title, e.CreatedAt.In(a.zone()).Format(time.RFC1123))
	a.printf("Professional:\n%s\n", client.PlainText(e.ProfessionalContent))
	if e.PersonalContent != "" {
		a.printf("\nPersonal:\n%s\n", client.PlainText(e.PersonalContent))
	}
	if e.ImageURL != "" {
		a.printf("\nImage: %s\n", e.ImageURL)
	}
	if e.AISummary != "" {
		a.printf("\nSummary: %s\n", e.AISummary)
	}
	return nil
}

func (a *App) newEntry(ctx context.Context) error {
	f, err := a.entryForm(model.Entry{})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	e, err := a.state.API().CreateEntry(ctx, a.state.Token, f)
	if err != nil {
		return err
	}
	a.printf("created entry %d\n", e.ID)
	return a.refresh(ctx)
}

// editEntry bounds each request on its own; the form in between waits on
// the user without a deadline.
func (a *App) editEntry(ctx context.Context, id uint64) error {
	cur, err := a.fetchEntry(ctx, id)
	if err != nil {
		return err
	}
	f, err := a.entryForm(*cur)
	if err != nil {
		return err
	}
	cctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	e, err := a.state.API().UpdateEntry(cctx, a.state.Token, id, f)
	if err != nil {
		return err
	}
	a.printf("updated entry %d\n", e.ID)
	return nil
}

func (a *App) fetchEntry(ctx context.Context, id uint64) (*model.Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	return a.state.API().GetEntry(ctx, a.state.Token, id)
}

// entryForm collects and validates an entry. Fields of cur are offered as
// defaults, so an empty answer keeps them.
func (a *App) entryForm(cur model.Entry) (client.EntryForm, error) {
	f := client.EntryForm{
		ProfessionalContent: cur.ProfessionalContent,
		PersonalContent:     cur.PersonalContent,
	}
	var err error
	if f.Title, err = a.askDefault("title", cur.Title); err != nil {
		return f, err
	}
	if cur.ID != 0 {
		a.printf("leave a content field empty to keep it\n")
	}
	prof, err := a.askMultiline("professional content")
	if err != nil {
		return f, err
	}
	if prof != "" {
		f.ProfessionalContent = prof
	}
	pers, err := a.askMultiline("personal content (optional)")
	if err != nil {
		return f, err
	}
	if pers != "" {
		f.PersonalContent = pers
	}

	hint := "image path (optional)"
	if cur.ImageURL != "" {
		hint = "image path (enter keeps the current one, - removes it)"
	}
	path, err := a.ask(hint)
	if err != nil {
		return f, err
	}
	switch {
	case path == "-":
		f.RemoveImage = true
	case path != "":
		data, err := os.ReadFile(path)
		if err != nil {
			return f, fmt.Errorf("read image: %w", err)
		}
		f.ImageName, f.Image = filepath.Base(path), data
	}
	return f, client.ValidateEntryForm(f)
}

func (a *App) removeEntry(ctx context.Context, id uint64) error {
	return a.confirmDelete(ctx, a.entryDelete, "entry", id)
}

func (a *App) removeTodo(ctx context.Context, id uint64) error {
	return a.confirmDelete(ctx, a.todoDelete, "todo", id)
}

// confirmDelete asks the user to type the id again before deleting.
func (a *App) confirmDelete(ctx context.Context, d *client.DeleteConfirmation, what string, id uint64) error {
	d.Request(id)
	answer, err := a.ask(fmt.Sprintf("delete %s %d? type the id again to confirm", what, id))
	if err != nil {
		d.Cancel()
		return err
	}
	typed, err := strconv.ParseUint(answer, 10, 64)
	if err != nil {
		d.Cancel()
		a.printf("cancelled\n")
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	if err := d.Confirm(ctx, typed); err != nil {
		if errors.Is(err, client.ErrNotConfirmed) {
			a.printf("cancelled\n")
			return nil
		}
		return err
	}
	a.printf("deleted %s %d\n", what, id)
	return a.refresh(ctx)
}

// summarize shows a summary of an entry. With save the server summarizes
// in the background and stores the result on the entry.
func (a *App) summarize(ctx context.Context, id uint64, save bool) error {
	cctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	if save {
		if err := a.state.API().QueueEntrySummary(cctx, a.state.Token, id); err != nil {
			return err
		}
		a.printf("summary queued; it will show on entry %d shortly\n", id)
		return nil
	}
	e, err := a.state.API().GetEntry(cctx, a.state.Token, id)
	if err != nil {
		return err
	}
	a.printf("summarizing...\n")
	summary, err := a.state.Summarize(ctx, e.ProfessionalContent+" "+e.PersonalContent).Wait()
	if err != nil {
		return err
	}
	a.printf("%s\n", summary)
	return nil
}

func (a *App) listTodos(ctx context.Context) error {
	if err := a.refresh(ctx); err != nil {
		return err
	}
	cat := a.state.Categorized(a.now(), a.zone())
	for _, b := range []struct {
		name  string
		todos []model.Todo
	}{
		{"Today", cat.Today},
		{"Overdue", cat.Overdue},
		{"Pending", cat.Pending},
		{"Completed", cat.Completed},
	} {
		a.printf("%s (%d)\n", b.name, len(b.todos))
		for _, t := range b.todos {
			line := fmt.Sprintf("  %4d  %s", t.ID, t.Task)
			if t.Priority == model.PriorityHigh {
				line += " !"
			}
			if t.Deadline != nil {
				line += "  due " + t.Deadline.String()
			}
			a.printf("%s\n", line)
		}
	}
	return nil
}

func (a *App) showTodo(ctx context.Context, id uint64) error {
	t, err := a.fetchTodo(ctx, id)
	if err != nil {
		return err
	}
	state := "open"
	if t.Completed {
		state = "completed"
	}
	a.printf("# %s\n", t.Task)
	a.printf("status: %s  priority: %s\n", state, t.Priority)
	if t.Deadline != nil {
		a.printf("deadline: %s (%s)\n", t.Deadline.String(), model.BucketOf(*t, model.DateOf(a.now(), a.zone())))
	}
	if notes := client.PlainText(t.Notes); notes != "" {
		a.printf("\n%s\n", notes)
	}
	return nil
}

func (a *App) newTodo(ctx context.Context) error {
	f, err := a.todoForm(model.Todo{})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	t, err := a.state.API().CreateTodo(ctx, a.state.Token, f)
	if err != nil {
		return err
	}
	a.printf("created todo %d\n", t.ID)
	return a.refresh(ctx)
}

func (a *App) editTodo(ctx context.Context, id uint64) error {
	cur, err := a.fetchTodo(ctx, id)
	if err != nil {
		return err
	}
	f, err := a.todoForm(*cur)
	if err != nil {
		return err
	}
	cctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	t, err := a.state.API().UpdateTodo(cctx, a.state.Token, id, f)
	if err != nil {
		return err
	}
	a.printf("updated todo %d\n", t.ID)
	return nil
}

func (a *App) fetchTodo(ctx context.Context, id uint64) (*model.Todo, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	return a.state.API().GetTodo(ctx, a.state.Token, id)
}

// todoForm collects and validates a todo, offering the fields of cur as
// defaults. On edit "-" clears the notes or the deadline.
func (a *App) todoForm(cur model.Todo) (client.TodoForm, error) {
	var f client.TodoForm
	var err error
	editing := cur.ID != 0
	if f.Task, err = a.askDefault("task", cur.Task); err != nil {
		return f, err
	}

	notesHint := "notes (optional)"
	if editing && cur.Notes != "" {
		notesHint = "notes (enter keeps them, - clears them)"
	}
	notes, err := a.ask(notesHint)
	if err != nil {
		return f, err
	}
	switch {
	case notes == "-":
	case notes != "":
		f.Notes = "<p>" + escape(notes) + "</p>"
	default:
		f.Notes = cur.Notes
	}

	def := string(model.PriorityLow)
	if cur.Priority != "" {
		def = string(cur.Priority)
	}
	prio, err := a.askDefault("priority (low/high)", def)
	if err != nil {
		return f, err
	}
	f.Priority = model.Priority(strings.ToLower(prio))

	deadlineHint, curDeadline := "deadline YYYY-MM-DD (optional)", ""
	if cur.Deadline != nil {
		curDeadline = cur.Deadline.String()
		deadlineHint = "deadline YYYY-MM-DD (- clears it)"
	}
	deadline, err := a.askDefault(deadlineHint, curDeadline)
	if err != nil {
		return f, err
	}
	if deadline != "-" {
		f.Deadline = deadline
	}
	return f, client.ValidateTodoForm(f)
}

func (a *App) toggleTodo(ctx context.Context, id uint64) error {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	t, err := a.state.API().ToggleTodo(ctx, a.state.Token, id)
	if err != nil {
		return err
	}
	state := "open"
	if t.Completed {
		state = "completed"
	}
	a.printf("todo %d is %s\n", t.ID, state)
	return nil
}

func (a *App) changePassword(ctx context.Context) error {
	cur, err := a.askPassword("current password")
	if err != nil {
		return err
	}
	next, err := a.askPassword("new password")
	if err != nil {
		return err
	}
	again, err := a.askPassword("repeat new password")
	if err != nil {
		return err
	}
	if next != again {
		return errors.New("passwords do not match")
	}
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	if err := a.state.API().ChangePassword(ctx, a.state.Token, cur, next); err != nil {
		// A wrong current password is also a 401; it must not end the session.
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeInvalidCredentials {
			return errors.New("current password is incorrect")
		}
		return err
	}
	a.printf("password changed\n")
	return nil
}

func (a *App) avatar(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}
	name := filepath.Base(path)
	if err := client.ValidateImage(name, data); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	url, err := a.state.API().UploadAvatar(ctx, a.state.Token, name, data)
	if err != nil {
		return err
	}
	a.printf("avatar updated: %s\n", url)
	return a.state.SetAvatar(ctx, url)
}

// sendChat keeps the conversation for the session so follow-ups have
// context. A failed turn is dropped so the user can retry it.
func (a *App) sendChat(ctx context.Context, text string) error {
	ctx, cancel := context.WithTimeout(ctx, client.DefaultSummaryTimeout)
	defer cancel()
	msgs := append(a.chat, client.ChatMessage{Role: "user", Content: text})
	reply, err := a.state.API().Chat(ctx, a.state.Token, msgs)
	if err != nil {
		return err
	}
	a.chat = append(msgs, client.ChatMessage{Role: "assistant", Content: reply})
	a.printf("%s\n", reply)
	return nil
}
