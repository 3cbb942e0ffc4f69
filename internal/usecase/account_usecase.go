// Package usecase contains the application-specific business rules.
// It orchestrates the domain layer to perform tasks.
package usecase

import (
	"context"

	"passport/internal/domain/entity"

	"github.com/google/uuid"
)

// --- Input DTOs ---

// CreateAccountInput defines the data required to create a new account.
type CreateAccountInput struct {
	Username string
	Email    string
	Password string
}

// UpdateAccountInput carries the mutable account fields. An empty NewEmail
// leaves the email untouched; an empty NewPassword leaves the hash untouched.
type UpdateAccountInput struct {
	NewEmail    string
	NewPassword string
}

// CredentialsInput defines the data required to authenticate.
type CredentialsInput struct {
	Username string
	Password string
}

// ChangePasswordInput defines the data required to change a password.
// The current password must verify against the stored hash.
type ChangePasswordInput struct {
	CurrentPassword string
	NewPassword     string
}

// --- Output DTOs ---

// AccountPage is one page of accounts plus pagination totals.
type AccountPage struct {
	Items         []*entity.Account
	TotalElements int64
	TotalPages    int
}

// AccountUsecase defines the interface for account-related business operations.
// This is the contract that the delivery layer (e.g., API handlers) depends on.
//
// Login is the operation interactive flows must use: it drives the lockout
// state machine and mutates failedAttempts/locked/lastLoginAt.
// VerifyCredentials is a lighter-weight check for one-off verification; it
// never participates in the failed-attempt counter.
type AccountUsecase interface {
	Create(ctx context.Context, input CreateAccountInput) (*entity.Account, error)

	// GetByID, GetByUsername and GetByEmail are pure lookups including
	// inactive accounts; an absent record yields (nil, nil), not an error.
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Account, error)
	GetByUsername(ctx context.Context, username string) (*entity.Account, error)
	GetByEmail(ctx context.Context, email string) (*entity.Account, error)

	ListActive(ctx context.Context) ([]*entity.Account, error)
	ListActiveByNewest(ctx context.Context) ([]*entity.Account, error)

	// ListPaginated uses a zero-based page index; pageSize must be >= 1.
	ListPaginated(ctx context.Context, pageIndex, pageSize int) (*AccountPage, error)

	Update(ctx context.Context, id uuid.UUID, input UpdateAccountInput) (*entity.Account, error)

	// Deactivate logically deletes the account; idempotent.
	Deactivate(ctx context.Context, id uuid.UUID) (*entity.Account, error)
	Activate(ctx context.Context, id uuid.UUID) (*entity.Account, error)

	// Delete permanently removes the record. Irreversible; callers must
	// obtain explicit confirmation before invoking.
	Delete(ctx context.Context, id uuid.UUID) error

	Login(ctx context.Context, input CredentialsInput) (*entity.Account, error)
	VerifyCredentials(ctx context.Context, input CredentialsInput) (*entity.Account, error)
	ChangePassword(ctx context.Context, id uuid.UUID, input ChangePasswordInput) (*entity.Account, error)

	// Unlock is the operator reset of the lockout state; it is the only
	// transition out of Active&Locked.
	Unlock(ctx context.Context, id uuid.UUID) (*entity.Account, error)
}
