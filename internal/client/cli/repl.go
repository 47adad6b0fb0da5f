package cli

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/andymattgee/swe-blog/internal/client"
)

const helpLoggedOut = `commands:
  register            create an account
  login               sign in
  help                show this text
  exit                quit
`

const helpLoggedIn = `commands:
  whoami              show the signed-in user
  refresh             re-fetch profile, entries and todos
  entries             list journal entries
  entry <id>          show one entry
  entry-new           write an entry
  entry-edit <id>     edit an entry
  entry-rm <id>       delete an entry
  summarize <id>      summarize an entry (add --save to store it on the entry)
  todos               list todos by bucket
  todo <id>           show one todo
  todo-new            add a todo
  todo-edit <id>      edit a todo
  todo-done <id>      toggle a todo's completion
  todo-rm <id>        delete a todo
  passwd              change your password
  avatar <path>       upload a profile picture
  chat <text>         talk to the assistant
  logout              sign out
  exit                quit
`

// Completer lists the command names for readline tab completion.
var Completer = readline.NewPrefixCompleter(
	readline.PcItem("register"), readline.PcItem("login"), readline.PcItem("logout"),
	readline.PcItem("whoami"), readline.PcItem("refresh"),
	readline.PcItem("entries"), readline.PcItem("entry"), readline.PcItem("entry-new"),
	readline.PcItem("entry-edit"), readline.PcItem("entry-rm"), readline.PcItem("summarize"),
	readline.PcItem("todos"), readline.PcItem("todo"), readline.PcItem("todo-new"),
	readline.PcItem("todo-edit"), readline.PcItem("todo-done"),
	readline.PcItem("todo-rm"), readline.PcItem("passwd"), readline.PcItem("avatar"),
	readline.PcItem("chat"), readline.PcItem("help"), readline.PcItem("exit"),
)

// Run reads commands until exit, EOF or ctx is done. Command errors are
// printed and the loop goes on; Ctrl-C only clears the line.
func (a *App) Run(ctx context.Context) error {
	a.in.SetPrompt(a.prompt())
	for ctx.Err() == nil {
		line, err := a.in.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			a.printf("type exit to quit\n")
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if quit := a.Exec(ctx, line); quit {
			return nil
		}
		a.in.SetPrompt(a.prompt())
	}
	return ctx.Err()
}

// Exec runs one command line and reports whether the user asked to quit.
func (a *App) Exec(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}
	cmd, args := parts[0], parts[1:]
	if cmd == "exit" || cmd == "quit" {
		a.printf("bye\n")
		return true
	}
	a.report(ctx, a.dispatch(ctx, cmd, args, strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), cmd))))
	return false
}

func (a *App) dispatch(ctx context.Context, cmd string, args []string, rest string) error {
	switch cmd {
	case "help":
		if a.state.LoggedIn() {
			a.printf("%s", helpLoggedIn)
		} else {
			a.printf("%s", helpLoggedOut)
		}
		return nil
	case "register":
		return a.register(ctx)
	case "login":
		return a.login(ctx)
	}

	if !a.state.LoggedIn() {
		return errNeedLogin
	}
	switch cmd {
	case "logout":
		return a.logout(ctx)
	case "whoami":
		return a.whoami()
	case "refresh":
		if err := a.refresh(ctx); err != nil {
			return err
		}
		return a.whoami()
	case "entries":
		return a.listEntries(ctx)
	case "entry":
		return withID(args, func(id uint64) error { return a.showEntry(ctx, id) })
	case "entry-new":
		return a.newEntry(ctx)
	case "entry-edit":
		return withID(args, func(id uint64) error { return a.editEntry(ctx, id) })
	case "entry-rm":
		return withID(args, func(id uint64) error { return a.removeEntry(ctx, id) })
	case "summarize":
		save := len(args) > 1 && args[1] == "--save"
		return withID(args, func(id uint64) error { return a.summarize(ctx, id, save) })
	case "todos":
		return a.listTodos(ctx)
	case "todo":
		return withID(args, func(id uint64) error { return a.showTodo(ctx, id) })
	case "todo-new":
		return a.newTodo(ctx)
	case "todo-edit":
		return withID(args, func(id uint64) error { return a.editTodo(ctx, id) })
	case "todo-done":
		return withID(args, func(id uint64) error { return a.toggleTodo(ctx, id) })
	case "todo-rm":
		return withID(args, func(id uint64) error { return a.removeTodo(ctx, id) })
	case "passwd":
		return a.changePassword(ctx)
	case "avatar":
		if len(args) != 1 {
			return errors.New("usage: avatar <path>")
		}
		return a.avatar(ctx, args[0])
	case "chat":
		if rest == "" {
			return errors.New("usage: chat <text>")
		}
		return a.sendChat(ctx, rest)
	}
	return errUnknown(cmd)
}

var errNeedLogin = errors.New("please register or login first")

type errUnknown string

func (e errUnknown) Error() string { return "unknown command " + strconv.Quote(string(e)) + ", try help" }

func withID(args []string, fn func(uint64) error) error {
	if len(args) == 0 {
		return errors.New("an id is required")
	}
	id, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil || id == 0 {
		return errors.New("id must be a positive number")
	}
	return fn(id)
}

// report prints err for the user. A rejected token ends the session so
// the next prompt is the logged-out one.
func (a *App) report(ctx context.Context, err error) {
	switch {
	case err == nil:
	case errors.Is(err, client.ErrLoggedOut):
		a.printf("logged out\n")
	case errors.Is(err, client.ErrUnauthorized) && a.state.LoggedIn():
		_ = a.state.Expire(ctx)
		a.printf("session is no longer valid, please login again\n")
	case errors.Is(err, client.ErrNotFound):
		a.printf("not found\n")
	default:
		a.printf("error: %v\n", err)
	}
}
