package domain

import "time"

// UserRegisteredEvent is published when a visitor completes self-registration.
type UserRegisteredEvent struct {
	EventID      string
	UserID       string
	ExtID        string
	Name         string
	Email        string
	Title        *string
	RegisteredAt time.Time
}

// UserUpdatedEvent is published when a registered user re-confirms or
// changes their basic data.
type UserUpdatedEvent struct {
	EventID   string
	UserID    string
	Name      string
	Email     string
	Title     *string
	UpdatedAt time.Time
}

// SecondFactorRecreatedEvent is published when a registered user replaces
// an existing TOTP secret, so that other services can notify the user.
type SecondFactorRecreatedEvent struct {
	EventID     string
	UserID      string
	ExtID       string
	RecreatedAt time.Time
}
