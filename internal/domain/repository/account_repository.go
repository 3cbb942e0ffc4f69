// Package repository defines the interfaces for the persistence layer.
// These interfaces act as a contract between the domain/application layers and the infrastructure layer.
package repository

import (
	"context"
	"errors"

	"passport/internal/domain/entity"

	"github.com/google/uuid"
)

// ErrAccountNotFound is a domain-specific error returned when an account is not found.
var ErrAccountNotFound = errors.New("account not found")

// AccountRepository defines the standard operations for account persistence.
// The application layer depends on this interface, not the concrete implementation.
//
// The store is the authority for username/email uniqueness: the unique
// constraints at the storage layer are the final guard, and Create/Update
// surface violations as domain errors. Service-level existence checks are a
// best-effort pre-check only.
type AccountRepository interface {
	// Create persists a new account and fills in the store-assigned ID and timestamps.
	Create(ctx context.Context, account *entity.Account) error

	// FindByID retrieves a single account by its unique ID, including inactive ones.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Account, error)

	// FindByIDForUpdate behaves like FindByID but locks the row for the
	// duration of the enclosing transaction, serializing concurrent mutation.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Account, error)

	// FindByUsername retrieves a single account by exact username match.
	FindByUsername(ctx context.Context, username string) (*entity.Account, error)

	// FindByUsernameForUpdate behaves like FindByUsername but locks the row
	// for the duration of the enclosing transaction.
	FindByUsernameForUpdate(ctx context.Context, username string) (*entity.Account, error)

	// FindByEmail retrieves a single account by exact email match.
	FindByEmail(ctx context.Context, email string) (*entity.Account, error)

	// ExistsByUsername reports whether any account, active or not, holds the username.
	ExistsByUsername(ctx context.Context, username string) (bool, error)

	// ExistsByEmail reports whether any account, active or not, holds the email.
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// ListActive returns all active accounts in unspecified order.
	ListActive(ctx context.Context) ([]*entity.Account, error)

	// ListActiveByNewest returns all active accounts ordered by creation time, newest first.
	ListActiveByNewest(ctx context.Context) ([]*entity.Account, error)

	// ListPage returns one page of accounts plus the total number of records.
	ListPage(ctx context.Context, offset, limit int) ([]*entity.Account, int64, error)

	// Update modifies an existing account in the storage.
	Update(ctx context.Context, account *entity.Account) error

	// DeleteByID permanently removes an account. Returns ErrAccountNotFound
	// when no record matches.
	DeleteByID(ctx context.Context, id uuid.UUID) error
}
