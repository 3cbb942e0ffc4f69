// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// MaxFailedAttempts is the number of consecutive failed logins after which
// an account is locked. A locked account cannot unlock itself by any
// sequence of login attempts; only an explicit reset clears the lock.
const MaxFailedAttempts = 3

// Account is the core entity in the system, representing a single user and
// the full authentication state attached to it.
type Account struct {
	ID             uuid.UUID  // Unique identifier, assigned by the store on creation.
	Username       string     // Unique login name. Immutable after creation; matched case-sensitively.
	Email          string     // Unique contact email. Mutable through the update flow.
	PasswordHash   string     // Salted bcrypt hash of the password. Never stored or logged in plaintext.
	Active         bool       // False means logically deleted; the record still occupies the unique namespace.
	FailedAttempts int        // Consecutive failed logins. Reset to zero on success or explicit reset.
	Locked         bool       // True once FailedAttempts reaches MaxFailedAttempts.
	LastLoginAt    *time.Time // Timestamp of the last successful authentication, nil until the first one.
	CreatedAt      time.Time  // Set by the store write path on insert.
	UpdatedAt      time.Time  // Set by the store write path on every write.
}

// NewAccount builds an account in its initial state: active, unlocked, with
// a zeroed attempt counter. The ID and timestamps are filled in by the store.
func NewAccount(username, email, passwordHash string) *Account {
	return &Account{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Active:       true,
	}
}

// CanAuthenticate reports whether a login attempt may even be evaluated.
// Inactive and locked accounts are rejected before any password check.
func (a *Account) CanAuthenticate() bool {
	return a.Active && !a.Locked
}

// RegisterFailure records one failed password check and locks the account
// once the counter reaches MaxFailedAttempts. It must not be called on an
// already locked account; the lock state is terminal until reset, and the
// counter never grows past the threshold.
func (a *Account) RegisterFailure() {
	a.FailedAttempts++
	if a.FailedAttempts >= MaxFailedAttempts {
		a.Locked = true
	}
}

// ResetLockout clears the failed-attempt counter and the lock flag. This is
// the only transition out of the locked state.
func (a *Account) ResetLockout() {
	a.FailedAttempts = 0
	a.Locked = false
}

// RecordLogin marks a successful authentication: stamps the login time and
// resets the lockout state.
func (a *Account) RecordLogin(now time.Time) {
	a.LastLoginAt = &now
	a.ResetLockout()
}

// Deactivate logically deletes the account. Idempotent.
func (a *Account) Deactivate() {
	a.Active = false
}

// Activate restores a logically deleted account.
func (a *Account) Activate() {
	a.Active = true
}
