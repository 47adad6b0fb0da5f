package client

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/andymattgee/swe-blog/internal/model"
)

// MaxImageBytes is the largest image the client will upload.
const MaxImageBytes = 5 << 20

// ErrInvalidForm is matched by every FormError.
var ErrInvalidForm = errors.New("invalid form")

// FormError is a user-visible problem with one form field.
type FormError struct {
	Field string
	Msg   string
}

func (e *FormError) Error() string { return e.Msg }
func (e *FormError) Unwrap() error { return ErrInvalidForm }

// EntryForm is what the create and edit flows collect.
type EntryForm struct {
	Title               string
	ProfessionalContent string // rich text (HTML)
	PersonalContent     string // rich text (HTML), optional
	ImageName           string
	Image               []byte
	RemoveImage         bool
}

// TodoForm is what the todo flows collect. Deadline is "YYYY-MM-DD" or empty.
type TodoForm struct {
	Task     string
	Notes    string
	Priority model.Priority
	Deadline string
}

var textOnly = bluemonday.StrictPolicy()

// hasText reports whether rich text contains anything besides markup and
// whitespace, so "<p><br></p>" from an empty editor does not count.
func hasText(rich string) bool {
	return strings.TrimSpace(textOnly.Sanitize(rich)) != ""
}

// ValidateEntryForm checks required fields and the attached image before
// anything is sent.
func ValidateEntryForm(f EntryForm) error {
	if strings.TrimSpace(f.Title) == "" {
		return &FormError{Field: "title", Msg: "title is required"}
	}
	if !hasText(f.ProfessionalContent) {
		return &FormError{Field: "professionalContent", Msg: "professional content is required"}
	}
	if len(f.Image) > 0 {
		return ValidateImage(f.ImageName, f.Image)
	}
	return nil
}

func ValidateTodoForm(f TodoForm) error {
	if strings.TrimSpace(f.Task) == "" {
		return &FormError{Field: "task", Msg: "task is required"}
	}
	if f.Priority != "" && !f.Priority.Valid() {
		return &FormError{Field: "priority", Msg: "priority must be low or high"}
	}
	if f.Deadline != "" {
		if _, err := model.ParseDate(f.Deadline); err != nil {
			return &FormError{Field: "deadline", Msg: "deadline must look like 2006-01-02"}
		}
	}
	return nil
}

var imageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// ValidateImage accepts JPEG, PNG, GIF and WebP files up to MaxImageBytes.
// The type is sniffed from the bytes, not taken from the file name.
func ValidateImage(name string, data []byte) error {
	if len(data) == 0 {
		return &FormError{Field: "image", Msg: fmt.Sprintf("%s is empty", name)}
	}
	if len(data) > MaxImageBytes {
		return &FormError{Field: "image", Msg: fmt.Sprintf("%s is larger than %d MiB", name, MaxImageBytes>>20)}
	}
	if ct := http.DetectContentType(data); !imageTypes[ct] {
		return &FormError{Field: "image", Msg: fmt.Sprintf("%s is not a jpeg, png, gif or webp image (%s)", name, ct)}
	}
	return nil
}

// ErrNotConfirmed is returned by Confirm without a matching Request.
var ErrNotConfirmed = errors.New("delete not confirmed")

// DeleteConfirmation guards a destructive call behind a two-step
// request/confirm exchange. The delete runs only when Confirm names the id
// that was requested; any Confirm consumes the pending request.
type DeleteConfirmation struct {
	del     func(ctx context.Context, id uint64) error
	pending uint64
	armed   bool
}

func NewDeleteConfirmation(del func(ctx context.Context, id uint64) error) *DeleteConfirmation {
	return &DeleteConfirmation{del: del}
}

// Request records the intent to delete id.
func (d *DeleteConfirmation) Request(id uint64) {
	d.pending, d.armed = id, true
}

// Pending returns the id awaiting confirmation.
func (d *DeleteConfirmation) Pending() (uint64, bool) {
	return d.pending, d.armed
}

// Cancel drops the pending request.
func (d *DeleteConfirmation) Cancel() {
	d.pending, d.armed = 0, false
}

func (d *DeleteConfirmation) Confirm(ctx context.Context, id uint64) error {
	ok := d.armed && d.pending == id
	d.Cancel()
	if !ok {
		return ErrNotConfirmed
	}
	return d.del(ctx, id)
}

// PlainText renders rich text for the terminal.
func PlainText(rich string) string {
	rich = strings.NewReplacer("</p>", "</p>\n", "<br>", "\n", "</li>", "</li>\n").Replace(rich)
	return strings.TrimSpace(html.UnescapeString(textOnly.Sanitize(rich)))
}
