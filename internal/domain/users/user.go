package users

import "time"

// User is an operator account held by the auth service. Password is stored
// as a bcrypt hash, never in clear.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}
