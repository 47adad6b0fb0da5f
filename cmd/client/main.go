package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"time"
	_ "time/tzdata"

	"github.com/chzyer/readline"

	"github.com/andymattgee/swe-blog/internal/client"
	"github.com/andymattgee/swe-blog/internal/client/cli"
)

func main() {
	server := flag.String("server", envOr("JOURNAL_SERVER", "http://localhost:8080"), "base URL of the journal API")
	session := flag.String("session", defaultSessionPath(), "session database file, empty keeps the session in memory")
	tz := flag.String("tz", "", "time zone used to bucket todos, empty follows the server")
	flag.Parse()

	var loc *time.Location
	if *tz != "" {
		var err error
		if loc, err = time.LoadLocation(*tz); err != nil {
			log.Fatalf("invalid -tz %q: %v", *tz, err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var store client.SessionStore = &client.MemorySessionStore{}
	if *session != "" {
		sqlStore, err := client.OpenSQLiteSessionStore(ctx, *session)
		if err != nil {
			log.Fatalf("session store: %v", err)
		}
		defer sqlStore.Close()
		store = sqlStore
	}

	state := client.NewState(client.NewAPI(*server), store)
	if err := state.Load(ctx); err != nil {
		log.Printf("ignoring saved session: %v", err)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "journal> ",
		HistoryFile:     filepath.Join(os.TempDir(), "journal-client.history"),
		AutoComplete:    cli.Completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		log.Fatalf("readline: %v", err)
	}
	defer rl.Close()

	app := cli.NewApp(state, rl, rl.Stdout(), loc)
	if state.LoggedIn() {
		fmt.Fprintf(rl.Stdout(), "resuming session for %s\n", state.Profile.User.Email)
		app.Exec(ctx, "refresh")
	} else {
		fmt.Fprintln(rl.Stdout(), "not logged in; type help")
	}
	// At the prompt readline turns Ctrl-C into ErrInterrupt; during a request
	// the signal cancels ctx and ends the session loop.
	if err := app.Run(ctx); err != nil {
		log.Printf("%v", err)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	dir = filepath.Join(dir, "journal-client")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return ""
	}
	return filepath.Join(dir, "session.db")
}
