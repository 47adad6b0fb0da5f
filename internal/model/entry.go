package model

import "time"

// Entry is a journal post. ProfessionalContent and PersonalContent hold
// sanitized HTML produced by the rich-text editor.
type Entry struct {
	ID                  uint64    `json:"id"`
	UserID              uint64    `json:"userId"`
	Title               string    `json:"title"`
	ProfessionalContent string    `json:"professionalContent"`
	PersonalContent     string    `json:"personalContent,omitempty"`
	ImageURL            string    `json:"imageUrl,omitempty"`
	AISummary           string    `json:"aiSummary,omitempty"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// EntryInput carries the fields of a create or update request. Nil pointers
// mean "not supplied": create treats them as empty, update keeps the stored
// value.
type EntryInput struct {
	Title               *string
	ProfessionalContent *string
	PersonalContent     *string
	RemoveImage         bool // clears the stored image when no new one is uploaded
}
