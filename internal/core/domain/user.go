package domain

import "time"

// UserStatus is the registration status of a user in the registry.
type UserStatus string

const (
	// UserStatusActive marks a regular, usable registry record.
	UserStatusActive UserStatus = "active"
	// UserStatusInactive marks a deactivated registry record.
	UserStatusInactive UserStatus = "inactive"
	// UserStatusInvalid is a sentinel emitted in minted tokens when the
	// identity reported by the IdP no longer matches the stored record.
	// It is never written to the registry.
	UserStatusInvalid UserStatus = "invalid"
)

// User is a registered user as stored in the registry.
type User struct {
	ID           string
	ExtID        string
	Name         string
	Email        string
	Title        *string
	Status       UserStatus
	RegisteredAt time.Time
}

// RoleDataSteward is the elevated role granted through claim records.
const RoleDataSteward = "data_steward"

// Identity is the snapshot returned by the IdP userinfo endpoint for a
// bearer token. It is compared against the registry but never persisted.
type Identity struct {
	Subject string
	Name    string
	Email   string
}

// Matches reports whether the IdP-reported name and email agree with the
// stored registry record.
func (i Identity) Matches(user User) bool {
	return i.Name == user.Name && i.Email == user.Email
}
