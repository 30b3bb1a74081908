package domain

import "time"

// SessionState is the authentication state of a browser session.
type SessionState string

const (
	// SessionStateRegistered means the identity was resolved from the
	// identity provider but the second factor has not been satisfied yet.
	SessionStateRegistered SessionState = "Registered"
	// SessionStateAuthenticated means the second factor was verified and
	// internal tokens may be minted for this session's requests.
	SessionStateAuthenticated SessionState = "Authenticated"
)

// TOTPToken holds an encrypted TOTP secret together with usage counters
// used for replay and brute-force protection. The secret is encrypted at
// rest and is never part of any client-visible representation.
type TOTPToken struct {
	Secret   string `json:"secret"`
	Counter  int64  `json:"counter"`
	Attempts int    `json:"attempts"`
}

// Session represents one browser-side login, in progress or complete.
// It is created by the login operation in state Registered and only a
// successful second-factor verification moves it to Authenticated.
type Session struct {
	ID        string       `json:"id"`
	ExtID     string       `json:"ext_id"`
	UserID    *string      `json:"user_id,omitempty"`
	UserName  string       `json:"user_name"`
	UserEmail string       `json:"user_email"`
	UserTitle *string      `json:"user_title,omitempty"`
	Role      *string      `json:"role,omitempty"`
	State     SessionState `json:"state"`
	CSRFToken string       `json:"csrf_token"`
	TOTPToken *TOTPToken   `json:"totp_token,omitempty"`
	Created   time.Time    `json:"created"`
	LastUsed  time.Time    `json:"last_used"`
}

// Expired reports whether the session has outlived its idle timeout or its
// absolute maximum age at the supplied moment.
func (s Session) Expired(at time.Time, idleTimeout, maxLifetime time.Duration) bool {
	if idleTimeout > 0 && at.Sub(s.LastUsed) > idleTimeout {
		return true
	}
	if maxLifetime > 0 && at.Sub(s.Created) > maxLifetime {
		return true
	}
	return false
}

// Touch refreshes the last-used timestamp, sliding the idle timeout.
// The creation time is immutable.
func (s *Session) Touch(at time.Time) {
	s.LastUsed = at
}

// Authenticate transitions the session to Authenticated. It returns false
// when the transition is illegal: only a Registered session with an
// enrolled second factor can become Authenticated.
func (s *Session) Authenticate() bool {
	if s.State != SessionStateRegistered || s.TOTPToken == nil {
		return false
	}
	s.State = SessionStateAuthenticated
	return true
}

// SessionInfo is the client-visible projection of a session, rendered into
// the X-Session response header. The TOTP token does not exist in this
// shape, so it can never be serialized to a client.
type SessionInfo struct {
	UserID  string `json:"userId,omitempty"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	State   string `json:"state"`
	CSRF    string `json:"csrf"`
	Title   string `json:"title,omitempty"`
	Expires int64  `json:"expires"`
}

// Info builds the client-visible projection. expiresIn is the number of
// seconds until the session expires, clamped at zero; zero is reported,
// not omitted, so the client can tell an expiring session apart.
func (s Session) Info(expiresIn int64) SessionInfo {
	info := SessionInfo{
		Name:    s.UserName,
		Email:   s.UserEmail,
		State:   string(s.State),
		CSRF:    s.CSRFToken,
		Expires: expiresIn,
	}
	if s.UserID != nil {
		info.UserID = *s.UserID
	}
	if s.UserTitle != nil {
		info.Title = *s.UserTitle
	}
	return info
}
