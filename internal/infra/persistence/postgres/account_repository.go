// Package postgres contains the concrete implementation of the persistence layer using GORM and PostgreSQL.
package postgres

import (
	"context"

	"passport/internal/domain/entity"
	domainerrors "passport/internal/domain/errors"
	"passport/internal/domain/repository"
	"passport/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// accountRepository implements the domain.AccountRepository interface using GORM.
type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository is the constructor for accountRepository.
// It returns the repository as a domain.AccountRepository interface, adhering to dependency inversion.
func NewAccountRepository(db *gorm.DB) repository.AccountRepository {
	return &accountRepository{db: db}
}

// Create persists a new account. The store assigns the ID and stamps the
// timestamps; they are copied back onto the entity on success.
func (repo *accountRepository) Create(ctx context.Context, account *entity.Account) error {
	accountM := fromAccountDomain(account)

	if err := repo.db.WithContext(ctx).Create(accountM).Error; err != nil {
		// Convert PostgreSQL errors to domain errors. The unique indexes are
		// the authoritative guard behind the service's pre-checks.
		if isUniqueConstraintViolation(err) {
			return duplicateKeyError(err, "failed to create account")
		}
		if isNotNullConstraintViolation(err) {
			return domainerrors.ErrAccountCreationFailed.WrapMessage("missing required account information")
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create account")
	}

	account.ID = accountM.ID
	account.CreatedAt = accountM.CreatedAt
	account.UpdatedAt = accountM.UpdatedAt

	return nil
}

// FindByID retrieves a single account by its unique ID, including inactive ones.
func (repo *accountRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Account, error) {
	return repo.findOne(ctx, repo.db, "id = ?", id)
}

// FindByIDForUpdate locks the matching row for the duration of the enclosing
// transaction. Callers must run inside TransactionManager.Execute.
func (repo *accountRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Account, error) {
	return repo.findOne(ctx, repo.db.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}), "id = ?", id)
}

// FindByUsername retrieves a single account by exact, case-sensitive username match.
func (repo *accountRepository) FindByUsername(ctx context.Context, username string) (*entity.Account, error) {
	return repo.findOne(ctx, repo.db, "username = ?", username)
}

// FindByUsernameForUpdate behaves like FindByUsername with a row lock.
func (repo *accountRepository) FindByUsernameForUpdate(ctx context.Context, username string) (*entity.Account, error) {
	return repo.findOne(ctx, repo.db.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}), "username = ?", username)
}

// FindByEmail retrieves a single account by exact email match.
func (repo *accountRepository) FindByEmail(ctx context.Context, email string) (*entity.Account, error) {
	return repo.findOne(ctx, repo.db, "email = ?", email)
}

func (repo *accountRepository) findOne(ctx context.Context, db *gorm.DB, query string, arg any) (*entity.Account, error) {
	var accountM model.AccountModel
	if err := db.WithContext(ctx).Where(query, arg).First(&accountM).Error; err != nil {
		// If the error is 'record not found', return a domain-specific error.
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrAccountNotFound
		}

		return nil, errors.Wrap(err, "failed to find account")
	}

	return toAccountDomain(&accountM), nil
}

// ExistsByUsername reports whether any account, active or not, holds the username.
func (repo *accountRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return repo.exists(ctx, "username = ?", username)
}

// ExistsByEmail reports whether any account, active or not, holds the email.
func (repo *accountRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return repo.exists(ctx, "email = ?", email)
}

func (repo *accountRepository) exists(ctx context.Context, query string, arg any) (bool, error) {
	var count int64
	if err := repo.db.WithContext(ctx).
		Model(&model.AccountModel{}).
		Where(query, arg).
		Count(&count).Error; err != nil {
		return false, errors.Wrap(err, "failed to check account existence")
	}

	return count > 0, nil
}

// ListActive returns all active accounts in unspecified order.
func (repo *accountRepository) ListActive(ctx context.Context) ([]*entity.Account, error) {
	return repo.list(ctx, repo.db.Where("active = ?", true))
}

// ListActiveByNewest returns all active accounts ordered by creation time, newest first.
func (repo *accountRepository) ListActiveByNewest(ctx context.Context) ([]*entity.Account, error) {
	return repo.list(ctx, repo.db.Where("active = ?", true).Order("created_at DESC"))
}

func (repo *accountRepository) list(ctx context.Context, db *gorm.DB) ([]*entity.Account, error) {
	var accountMs []*model.AccountModel
	if err := db.WithContext(ctx).Find(&accountMs).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list accounts")
	}

	accounts := make([]*entity.Account, 0, len(accountMs))
	for _, accountM := range accountMs {
		accounts = append(accounts, toAccountDomain(accountM))
	}

	return accounts, nil
}

// ListPage returns one page of accounts ordered by creation time plus the
// total number of records.
func (repo *accountRepository) ListPage(ctx context.Context, offset, limit int) ([]*entity.Account, int64, error) {
	var total int64
	if err := repo.db.WithContext(ctx).Model(&model.AccountModel{}).Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "failed to count accounts")
	}

	var accountMs []*model.AccountModel
	if err := repo.db.WithContext(ctx).
		Order("created_at").
		Offset(offset).
		Limit(limit).
		Find(&accountMs).Error; err != nil {
		return nil, 0, errors.Wrap(err, "failed to list account page")
	}

	accounts := make([]*entity.Account, 0, len(accountMs))
	for _, accountM := range accountMs {
		accounts = append(accounts, toAccountDomain(accountM))
	}

	return accounts, total, nil
}

// Update modifies an existing account in the database.
func (repo *accountRepository) Update(ctx context.Context, account *entity.Account) error {
	accountM := fromAccountDomain(account)

	if err := repo.db.WithContext(ctx).Save(accountM).Error; err != nil {
		if isUniqueConstraintViolation(err) {
			return duplicateKeyError(err, "failed to update account")
		}
		if isNotNullConstraintViolation(err) {
			return domainerrors.ErrAccountUpdateFailed.WrapMessage("missing required account information")
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to update account")
	}

	account.UpdatedAt = accountM.UpdatedAt

	return nil
}

// DeleteByID permanently removes an account record.
func (repo *accountRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	result := repo.db.WithContext(ctx).Delete(&model.AccountModel{}, "id = ?", id)
	if result.Error != nil {
		return domainerrors.NewDatabaseExecuteError(result.Error, "failed to delete account")
	}
	if result.RowsAffected == 0 {
		return repository.ErrAccountNotFound
	}

	return nil
}

// duplicateKeyError maps a unique-constraint violation onto the domain error
// matching the index that fired.
func duplicateKeyError(err error, context string) error {
	switch uniqueConstraintColumn(err) {
	case "username":
		return domainerrors.ErrDuplicateUsername.WrapMessage(context)
	case "email":
		return domainerrors.ErrDuplicateEmail.WrapMessage(context)
	default:
		return domainerrors.ErrConflict.WrapMessage(context)
	}
}

// --- Mapper Functions ---
// These helpers convert between domain entities and persistence models.

// toAccountDomain converts a GORM AccountModel to a domain Account entity.
func toAccountDomain(data *model.AccountModel) *entity.Account {
	if data == nil {
		return nil
	}

	return &entity.Account{
		ID:             data.ID,
		Username:       data.Username,
		Email:          data.Email,
		PasswordHash:   data.PasswordHash,
		Active:         data.Active,
		FailedAttempts: data.FailedAttempts,
		Locked:         data.Locked,
		LastLoginAt:    data.LastLoginAt,
		CreatedAt:      data.CreatedAt,
		UpdatedAt:      data.UpdatedAt,
	}
}

// fromAccountDomain converts a domain Account entity to a GORM AccountModel for persistence.
func fromAccountDomain(data *entity.Account) *model.AccountModel {
	if data == nil {
		return nil
	}

	return &model.AccountModel{
		ID:             data.ID,
		Username:       data.Username,
		Email:          data.Email,
		PasswordHash:   data.PasswordHash,
		Active:         data.Active,
		FailedAttempts: data.FailedAttempts,
		Locked:         data.Locked,
		LastLoginAt:    data.LastLoginAt,
		CreatedAt:      data.CreatedAt,
		UpdatedAt:      data.UpdatedAt,
	}
}
