package client

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andymattgee/swe-blog/internal/model"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestValidateEntryForm(t *testing.T) {
	tests := []struct {
		name  string
		form  EntryForm
		field string
	}{
		{"ok", EntryForm{Title: "T", ProfessionalContent: "<p>hi</p>"}, ""},
		{"blank title", EntryForm{Title: "  ", ProfessionalContent: "<p>hi</p>"}, "title"},
		{"empty editor", EntryForm{Title: "T", ProfessionalContent: "<p><br></p>"}, "professionalContent"},
		{"personal optional", EntryForm{Title: "T", ProfessionalContent: "x", PersonalContent: ""}, ""},
		{"bad image", EntryForm{Title: "T", ProfessionalContent: "x", ImageName: "a.txt", Image: []byte("hello")}, "image"},
		{"good image", EntryForm{Title: "T", ProfessionalContent: "x", ImageName: "a.png", Image: pngHeader}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEntryForm(tt.form)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var fe *FormError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.field, fe.Field)
			assert.ErrorIs(t, err, ErrInvalidForm)
		})
	}
}

func TestValidateTodoForm(t *testing.T) {
	assert.NoError(t, ValidateTodoForm(TodoForm{Task: "x"}))
	assert.NoError(t, ValidateTodoForm(TodoForm{Task: "x", Priority: model.PriorityHigh, Deadline: "2026-10-13"}))

	var fe *FormError
	require.ErrorAs(t, ValidateTodoForm(TodoForm{}), &fe)
	assert.Equal(t, "task", fe.Field)
	require.ErrorAs(t, ValidateTodoForm(TodoForm{Task: "x", Priority: "urgent"}), &fe)
	assert.Equal(t, "priority", fe.Field)
	require.ErrorAs(t, ValidateTodoForm(TodoForm{Task: "x", Deadline: "next week"}), &fe)
	assert.Equal(t, "deadline", fe.Field)
}

func TestValidateImage(t *testing.T) {
	assert.NoError(t, ValidateImage("a.png", pngHeader))
	assert.NoError(t, ValidateImage("a.gif", []byte("GIF89a\x01\x00\x01\x00")))
	assert.NoError(t, ValidateImage("a.jpg", []byte("\xff\xd8\xff\xe0\x00\x10JFIF")))

	assert.EqualError(t, ValidateImage("a.png", nil), "a.png is empty")
	big := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, MaxImageBytes)...)
	assert.EqualError(t, ValidateImage("big.png", big), "big.png is larger than 5 MiB")
	// the name is not trusted
	assert.ErrorContains(t, ValidateImage("fake.png", []byte("plain text")), "is not a jpeg, png, gif or webp image")
}

func TestDeleteConfirmation(t *testing.T) {
	var deleted []uint64
	d := NewDeleteConfirmation(func(_ context.Context, id uint64) error {
		deleted = append(deleted, id)
		return nil
	})
	ctx := context.Background()

	assert.ErrorIs(t, d.Confirm(ctx, 1), ErrNotConfirmed)

	d.Request(1)
	id, ok := d.Pending()
	assert.True(t, ok)
	assert.Equal(t, uint64(1), id)

	// a mismatched confirm consumes the request
	assert.ErrorIs(t, d.Confirm(ctx, 2), ErrNotConfirmed)
	assert.ErrorIs(t, d.Confirm(ctx, 1), ErrNotConfirmed)

	d.Request(3)
	d.Cancel()
	_, ok = d.Pending()
	assert.False(t, ok)
	assert.ErrorIs(t, d.Confirm(ctx, 3), ErrNotConfirmed)

	d.Request(4)
	require.NoError(t, d.Confirm(ctx, 4))
	assert.Equal(t, []uint64{4}, deleted)
}

func TestDeleteConfirmation_PassesDeleteError(t *testing.T) {
	boom := errors.New("boom")
	d := NewDeleteConfirmation(func(context.Context, uint64) error { return boom })
	d.Request(7)
	assert.ErrorIs(t, d.Confirm(context.Background(), 7), boom)
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "one\ntwo & three", PlainText("<p>one</p><p>two &amp; <b>three</b></p>"))
	assert.Equal(t, "", PlainText("<p><br></p>"))
}
