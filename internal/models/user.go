package models

import "time"

// User represents an application user with credentials.
type User struct {
	// ID is the unique identifier for the user.
	ID int64 `json:"id"`
	// Username is the display name chosen by the user.
	Username string `json:"username"`
	// Email is the login identity.
	Email string `json:"email"`
	// PasswordHash is the bcrypt hash of the password. Never serialised.
	PasswordHash []byte `json:"-"`
	// AvatarPath references an uploaded avatar, if any.
	AvatarPath string `json:"avatar_path,omitempty"`
	// CreatedAt is the registration time.
	CreatedAt time.Time `json:"created_at"`
}

// UserPatch carries a profile update. Nil fields keep their stored value.
type UserPatch struct {
	Username     *string
	Email        *string
	PasswordHash []byte
}
