// Package impl contains the implementation of the application's business logic.
package impl

import (
	"context"
	"log/slog"
	"time"

	deliverycontext "passport/internal/delivery/context"
	"passport/internal/domain/entity"
	domainerrors "passport/internal/domain/errors"
	"passport/internal/domain/repository"
	"passport/internal/domain/service"
	"passport/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// accountService implements the AccountUsecase interface.
type accountService struct {
	txManager   repository.TransactionManager
	accountRepo repository.AccountRepository
	hasher      service.PasswordHasher
	logger      *slog.Logger
}

// AccountServiceParams holds dependencies for accountService, injected by Fx.
type AccountServiceParams struct {
	fx.In

	TxManager   repository.TransactionManager
	AccountRepo repository.AccountRepository
	Hasher      service.PasswordHasher
	Logger      *slog.Logger
}

// NewAccountService is the constructor for accountService. It receives all dependencies as interfaces.
func NewAccountService(params AccountServiceParams) usecase.AccountUsecase {
	return &accountService{
		txManager:   params.TxManager,
		accountRepo: params.AccountRepo,
		hasher:      params.Hasher,
		logger:      params.Logger,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *accountService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Create provisions a new account with a hashed password and default auth
// state. The existence checks are a best-effort pre-check; the store's unique
// constraints remain the authoritative guard and surface the same domain
// errors when a concurrent create races past the pre-check.
func (srv *accountService) Create(ctx context.Context, input usecase.CreateAccountInput) (*entity.Account, error) {
	srv.log(ctx).Info("Creating account", slog.String("username", input.Username))

	if input.Username == "" || input.Email == "" {
		return nil, domainerrors.ErrValidationFailed.WrapMessage("username and email are required")
	}

	taken, err := srv.accountRepo.ExistsByUsername(ctx, input.Username)
	if err != nil {
		return nil, errors.Wrap(err, "failed to check username existence")
	}
	if taken {
		return nil, domainerrors.ErrDuplicateUsername.WrapMessage("username already exists")
	}

	taken, err = srv.accountRepo.ExistsByEmail(ctx, input.Email)
	if err != nil {
		return nil, errors.Wrap(err, "failed to check email existence")
	}
	if taken {
		return nil, domainerrors.ErrDuplicateEmail.WrapMessage("email already registered")
	}

	// Hashing is deliberately expensive; keep it outside the transaction.
	hashedPassword, err := srv.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	account := entity.NewAccount(input.Username, input.Email, hashedPassword)
	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		return repoFactory.NewAccountRepository().Create(ctx, account)
	})
	if err != nil {
		srv.log(ctx).Error("Failed to create account", slog.String("username", input.Username), slog.Any("error", err))

		return nil, err
	}

	srv.log(ctx).Info("Account created", slog.Any("accountID", account.ID))

	return account, nil
}

// GetByID is a pure lookup including inactive accounts. An absent record
// yields (nil, nil).
func (srv *accountService) GetByID(ctx context.Context, id uuid.UUID) (*entity.Account, error) {
	account, err := srv.accountRepo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrAccountNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find account by id")
	}

	return account, nil
}

// GetByUsername is a pure lookup by exact, case-sensitive username match.
func (srv *accountService) GetByUsername(ctx context.Context, username string) (*entity.Account, error) {
	account, err := srv.accountRepo.FindByUsername(ctx, username)
	if errors.Is(err, repository.ErrAccountNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find account by username")
	}

	return account, nil
}

// GetByEmail is a pure lookup by exact email match.
func (srv *accountService) GetByEmail(ctx context.Context, email string) (*entity.Account, error) {
	account, err := srv.accountRepo.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrAccountNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find account by email")
	}

	return account, nil
}

// ListActive returns all active accounts in unspecified order.
func (srv *accountService) ListActive(ctx context.Context) ([]*entity.Account, error) {
	accounts, err := srv.accountRepo.ListActive(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list active accounts")
	}

	return accounts, nil
}

// ListActiveByNewest returns all active accounts ordered by creation time, newest first.
func (srv *accountService) ListActiveByNewest(ctx context.Context) ([]*entity.Account, error) {
	accounts, err := srv.accountRepo.ListActiveByNewest(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list active accounts by creation time")
	}

	return accounts, nil
}

// ListPaginated returns one zero-indexed page of accounts plus totals.
func (srv *accountService) ListPaginated(ctx context.Context, pageIndex, pageSize int) (*usecase.AccountPage, error) {
	if pageIndex < 0 || pageSize < 1 {
		return nil, domainerrors.ErrValidationFailed.WrapMessage("pageIndex must be >= 0 and pageSize >= 1")
	}

	items, total, err := srv.accountRepo.ListPage(ctx, pageIndex*pageSize, pageSize)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list account page")
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))

	return &usecase.AccountPage{
		Items:         items,
		TotalElements: total,
		TotalPages:    totalPages,
	}, nil
}

// Update changes email and/or password. The email field is a no-op when the
// new value is empty or unchanged; the password is rehashed only when a
// non-empty new password is supplied. Auth state is never touched here.
func (srv *accountService) Update(ctx context.Context, id uuid.UUID, input usecase.UpdateAccountInput) (*entity.Account, error) {
	srv.log(ctx).Info("Updating account", slog.Any("accountID", id))

	var hashedPassword string
	if input.NewPassword != "" {
		var err error
		if hashedPassword, err = srv.hasher.Hash(input.NewPassword); err != nil {
			return nil, err
		}
	}

	var updated *entity.Account
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		repo := repoFactory.NewAccountRepository()

		account, err := repo.FindByIDForUpdate(ctx, id)
		if errors.Is(err, repository.ErrAccountNotFound) {
			return domainerrors.ErrAccountNotFound.WrapMessage("cannot update missing account")
		}
		if err != nil {
			return errors.Wrap(err, "failed to load account for update")
		}

		if input.NewEmail != "" && input.NewEmail != account.Email {
			taken, err := repo.ExistsByEmail(ctx, input.NewEmail)
			if err != nil {
				return errors.Wrap(err, "failed to check email existence")
			}
			if taken {
				return domainerrors.ErrDuplicateEmail.WrapMessage("email already in use")
			}
			account.Email = input.NewEmail
		}

		if hashedPassword != "" {
			account.PasswordHash = hashedPassword
		}

		if err := repo.Update(ctx, account); err != nil {
			return err
		}
		updated = account

		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// Deactivate logically deletes the account. Idempotent: deactivating an
// already-inactive account succeeds silently.
func (srv *accountService) Deactivate(ctx context.Context, id uuid.UUID) (*entity.Account, error) {
	srv.log(ctx).Info("Deactivating account", slog.Any("accountID", id))

	return srv.mutateAccount(ctx, id, func(account *entity.Account) {
		account.Deactivate()
	})
}

// Activate restores a logically deleted account.
func (srv *accountService) Activate(ctx context.Context, id uuid.UUID) (*entity.Account, error) {
	srv.log(ctx).Info("Activating account", slog.Any("accountID", id))

	return srv.mutateAccount(ctx, id, func(account *entity.Account) {
		account.Activate()
	})
}

// Unlock is the operator reset of the lockout state: it zeroes the
// failed-attempt counter and clears the lock flag. This is the only
// transition out of Active&Locked.
func (srv *accountService) Unlock(ctx context.Context, id uuid.UUID) (*entity.Account, error) {
	srv.log(ctx).Info("Unlocking account", slog.Any("accountID", id))

	return srv.mutateAccount(ctx, id, func(account *entity.Account) {
		account.ResetLockout()
	})
}

// mutateAccount applies a state change under a row lock so that concurrent
// mutations of the same record are serialized.
func (srv *accountService) mutateAccount(ctx context.Context, id uuid.UUID, mutate func(*entity.Account)) (*entity.Account, error) {
	var mutated *entity.Account
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		repo := repoFactory.NewAccountRepository()

		account, err := repo.FindByIDForUpdate(ctx, id)
		if errors.Is(err, repository.ErrAccountNotFound) {
			return domainerrors.ErrAccountNotFound.WrapMessage("cannot mutate missing account")
		}
		if err != nil {
			return errors.Wrap(err, "failed to load account for mutation")
		}

		mutate(account)

		if err := repo.Update(ctx, account); err != nil {
			return err
		}
		mutated = account

		return nil
	})
	if err != nil {
		return nil, err
	}

	return mutated, nil
}

// Delete permanently removes the record. Irreversible; confirmation is a
// presentation-layer concern.
func (srv *accountService) Delete(ctx context.Context, id uuid.UUID) error {
	srv.log(ctx).Warn("Deleting account permanently", slog.Any("accountID", id))

	err := srv.accountRepo.DeleteByID(ctx, id)
	if errors.Is(err, repository.ErrAccountNotFound) {
		return domainerrors.ErrAccountNotFound.WrapMessage("cannot delete missing account")
	}
	if err != nil {
		return err
	}

	return nil
}

// Login implements the lockout state machine. All rejections surface as the
// undifferentiated ErrInvalidCredentials so callers cannot probe whether an
// account exists, is locked, or is inactive.
//
// The bcrypt check runs against a lock-free read so the expensive hash never
// holds the row lock; the state transition is then applied on a fresh re-read
// under SELECT ... FOR UPDATE, which serializes concurrent attempts and keeps
// the attempt counter exact.
func (srv *accountService) Login(ctx context.Context, input usecase.CredentialsInput) (*entity.Account, error) {
	account, err := srv.accountRepo.FindByUsername(ctx, input.Username)
	if errors.Is(err, repository.ErrAccountNotFound) {
		srv.log(ctx).Warn("Login attempt for unknown username", slog.String("username", input.Username))

		return nil, domainerrors.ErrInvalidCredentials.WrapMessage("unknown username")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find account for login")
	}

	if !account.CanAuthenticate() {
		srv.log(ctx).Warn("Login attempt for locked or inactive account", slog.String("username", input.Username))

		return nil, domainerrors.ErrInvalidCredentials.WrapMessage("account cannot authenticate")
	}

	passwordOK := srv.hasher.Check(input.Password, account.PasswordHash)

	var (
		loggedIn *entity.Account
		authErr  error
	)
	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		repo := repoFactory.NewAccountRepository()

		current, err := repo.FindByUsernameForUpdate(ctx, input.Username)
		if errors.Is(err, repository.ErrAccountNotFound) {
			// Deleted between the pre-read and the locked re-read.
			authErr = domainerrors.ErrInvalidCredentials.WrapMessage("unknown username")

			return nil
		}
		if err != nil {
			return errors.Wrap(err, "failed to reload account for login")
		}

		// Re-check under the lock: the account may have been locked or
		// deactivated since the pre-read. Locked and inactive accounts are
		// rejected without any further mutation.
		if !current.CanAuthenticate() {
			authErr = domainerrors.ErrInvalidCredentials.WrapMessage("account cannot authenticate")

			return nil
		}

		if !passwordOK {
			current.RegisterFailure()
			if err := repo.Update(ctx, current); err != nil {
				return err
			}
			if current.Locked {
				srv.log(ctx).Warn("Account locked after repeated failed logins",
					slog.String("username", input.Username),
					slog.Int("failedAttempts", current.FailedAttempts),
				)
			}
			authErr = domainerrors.ErrInvalidCredentials.WrapMessage("password mismatch")

			// The failure increment must commit, so this is not an error
			// path from the transaction's point of view.
			return nil
		}

		current.RecordLogin(time.Now())
		if err := repo.Update(ctx, current); err != nil {
			return err
		}
		loggedIn = current

		return nil
	})
	if err != nil {
		srv.log(ctx).Error("Login transaction failed", slog.String("username", input.Username), slog.Any("error", err))

		return nil, err
	}
	if authErr != nil {
		return nil, authErr
	}

	srv.log(ctx).Info("Login successful", slog.String("username", input.Username))

	return loggedIn, nil
}

// VerifyCredentials checks active status and password validity and stamps
// lastLoginAt on success. It never touches failedAttempts or locked, which
// makes it suitable for one-off verification where lockout side effects are
// unwanted; interactive login flows must use Login instead.
func (srv *accountService) VerifyCredentials(ctx context.Context, input usecase.CredentialsInput) (*entity.Account, error) {
	account, err := srv.accountRepo.FindByUsername(ctx, input.Username)
	if errors.Is(err, repository.ErrAccountNotFound) {
		srv.log(ctx).Warn("Verification attempt for unknown username", slog.String("username", input.Username))

		return nil, domainerrors.ErrInvalidCredentials.WrapMessage("unknown username")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find account for verification")
	}

	if !account.Active {
		srv.log(ctx).Warn("Verification attempt for inactive account", slog.String("username", input.Username))

		return nil, domainerrors.ErrInvalidCredentials.WrapMessage("account is inactive")
	}

	if !srv.hasher.Check(input.Password, account.PasswordHash) {
		return nil, domainerrors.ErrInvalidCredentials.WrapMessage("password mismatch")
	}

	now := time.Now()
	var verified *entity.Account
	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		repo := repoFactory.NewAccountRepository()

		current, err := repo.FindByUsernameForUpdate(ctx, input.Username)
		if errors.Is(err, repository.ErrAccountNotFound) {
			return domainerrors.ErrInvalidCredentials.WrapMessage("unknown username")
		}
		if err != nil {
			return errors.Wrap(err, "failed to reload account for verification")
		}

		// Only the login timestamp moves; the attempt counter and lock flag
		// stay exactly as they were.
		current.LastLoginAt = &now
		if err := repo.Update(ctx, current); err != nil {
			return err
		}
		verified = current

		return nil
	})
	if err != nil {
		return nil, err
	}

	return verified, nil
}

// ChangePassword replaces the stored hash after verifying the current
// password. Verifying the current password is itself proof of identity, so
// the operation is allowed on locked accounts; it intentionally does NOT
// clear the lockout state (only Unlock or a successful login does).
func (srv *accountService) ChangePassword(ctx context.Context, id uuid.UUID, input usecase.ChangePasswordInput) (*entity.Account, error) {
	account, err := srv.accountRepo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrAccountNotFound) {
		return nil, domainerrors.ErrAccountNotFound.WrapMessage("cannot change password of missing account")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find account for password change")
	}

	if !srv.hasher.Check(input.CurrentPassword, account.PasswordHash) {
		srv.log(ctx).Warn("Password change rejected, current password mismatch", slog.Any("accountID", id))

		return nil, domainerrors.ErrInvalidCredentials.WrapMessage("current password is incorrect")
	}

	hashedPassword, err := srv.hasher.Hash(input.NewPassword)
	if err != nil {
		return nil, err
	}

	updated, err := srv.mutateAccount(ctx, id, func(account *entity.Account) {
		account.PasswordHash = hashedPassword
	})
	if err != nil {
		return nil, err
	}

	srv.log(ctx).Info("Password changed", slog.Any("accountID", id))

	return updated, nil
}
