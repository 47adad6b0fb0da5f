package model

import "time"

// User represents an account as stored in the `users` table. The password
// hash never leaves the server; handlers render users through PublicUser.
//
// Fields:
//
//	ID              – primary key identifier of the user.
//	Email           – unique, lower-cased email address.
//	PasswordHash    – bcrypt hash of the password.
//	FirstName       – given name.
//	LastName        – family name.
//	ProfileImageURL – local path or object-storage URL, empty when unset.
//	CreatedAt       – timestamp of creation.
//	UpdatedAt       – timestamp of last update.
type User struct {
	ID              uint64
	Email           string
	PasswordHash    string
	FirstName       string
	LastName        string
	ProfileImageURL string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// PublicUser is the JSON view of a User.
type PublicUser struct {
	ID              uint64    `json:"id"`
	Email           string    `json:"email"`
	FirstName       string    `json:"firstName"`
	LastName        string    `json:"lastName"`
	ProfileImageURL string    `json:"profileImageUrl,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Public strips private fields.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:              u.ID,
		Email:           u.Email,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		ProfileImageURL: u.ProfileImageURL,
		CreatedAt:       u.CreatedAt,
	}
}

// SessionToken models a row in the `user_tokens` table: one active bearer
// token of a user. Only the SHA-256 digest of the token string is stored, so
// a leaked table cannot be replayed. Revocation deletes the row.
type SessionToken struct {
	ID        uint64
	UserID    uint64
	TokenHash string
	CreatedAt time.Time
}
