package model

// Error codes sent as "code" next to the error text, so clients can tell
// apart failures that share a status.
const (
	// ErrCodeInvalidCredentials marks a wrong email or password, including
	// a wrong current password on a password change. The session is fine.
	ErrCodeInvalidCredentials = "invalid_credentials"
	// ErrCodeInvalidToken marks a bearer token that is malformed, forged or
	// revoked. The session is over.
	ErrCodeInvalidToken = "invalid_token"
)
