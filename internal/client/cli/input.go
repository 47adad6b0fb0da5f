package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// readPassword and isTerminal are test seams for the terminal calls.
var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
)

// lineReader is the part of *readline.Instance the app uses.
type lineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
}

// ask shows prompt and returns one trimmed line.
func (a *App) ask(prompt string) (string, error) {
	a.in.SetPrompt(prompt + ": ")
	defer a.in.SetPrompt(a.prompt())
	line, err := a.in.Readline()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// askDefault is like ask but returns def when the user just presses Enter.
func (a *App) askDefault(prompt, def string) (string, error) {
	if def != "" {
		prompt = fmt.Sprintf("%s [%s]", prompt, def)
	}
	v, err := a.ask(prompt)
	if err != nil || v != "" {
		return v, err
	}
	return def, nil
}

// askMultiline collects lines until one holding a single "." and returns
// them as HTML paragraphs, the shape the web editor produces.
func (a *App) askMultiline(prompt string) (string, error) {
	fmt.Fprintf(a.out, "%s (end with a line containing only \".\")\n", prompt)
	a.in.SetPrompt("| ")
	defer a.in.SetPrompt(a.prompt())
	var paras []string
	for {
		line, err := a.in.Readline()
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(line) == "." {
			break
		}
		if line = strings.TrimSpace(line); line != "" {
			paras = append(paras, "<p>"+escape(line)+"</p>")
		}
	}
	return strings.Join(paras, ""), nil
}

// askPassword reads without echo on a terminal and falls back to a plain
// line when input is piped.
func (a *App) askPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !isTerminal(fd) {
		return a.ask(prompt)
	}
	fmt.Fprint(a.out, prompt+": ")
	pw, err := readPassword(fd)
	fmt.Fprintln(a.out)
	if err != nil {
		return "", err
	}
	if len(pw) == 0 {
		return "", errors.New("password is required")
	}
	return string(pw), nil
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escape(s string) string { return htmlEscaper.Replace(s) }
