// Package models defines server-side data models persisted in the database.
package models

import "time"

// Role is the single authority granted to a user.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// User is the persisted credential record. It is plain data: the
// authenticated identity of a request is derived from it, not stored on it.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	DisplayName  string
	Role         Role
	Verified     bool
	Locked       bool
	Enabled      bool
	CreatedAt    time.Time
}

// CanLogin reports whether email confirmation has completed.
func (u *User) CanLogin() bool {
	return u.Enabled && u.Verified
}
