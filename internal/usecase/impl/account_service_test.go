package impl

import (
	"context"
	"testing"

	"passport/internal/domain/entity"
	domainerrors "passport/internal/domain/errors"
	"passport/internal/domain/repository"
	"passport/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAccountService_Create_Success(t *testing.T) {
	fx := createTestAccountService(t)
	ctx := context.Background()

	fx.accountRepo.EXPECT().ExistsByUsername(ctx, "alice").Return(false, nil)
	fx.accountRepo.EXPECT().ExistsByEmail(ctx, "a@x.com").Return(false, nil)
	fx.hasher.EXPECT().Hash("pw1").Return("hashed_password", nil)

	expectTransaction(t, fx.txManager, fx.accountRepo)
	fx.accountRepo.EXPECT().
		Create(ctx, mock.AnythingOfType("*entity.Account")).
		Run(func(_ context.Context, account *entity.Account) {
			account.ID = uuid.New()
		}).
		Return(nil)

	account, err := fx.service.Create(ctx, usecase.CreateAccountInput{
		Username: "alice",
		Email:    "a@x.com",
		Password: "pw1",
	})

	require.NoError(t, err)
	require.NotNil(t, account)
	assert.Equal(t, "alice", account.Username)
	assert.Equal(t, "a@x.com", account.Email)
	assert.Equal(t, "hashed_password", account.PasswordHash)
	assert.True(t, account.Active)
	assert.Zero(t, account.FailedAttempts)
	assert.False(t, account.Locked)
	assert.Nil(t, account.LastLoginAt)
}

func TestAccountService_Create_DuplicateUsername(t *testing.T) {
	fx := createTestAccountService(t)
	ctx := context.Background()

	// The pre-check does not care whether the holder is active or inactive;
	// an inactive account still occupies the unique namespace.
	fx.accountRepo.EXPECT().ExistsByUsername(ctx, "alice").Return(true, nil)

	account, err := fx.service.Create(ctx, usecase.CreateAccountInput{
		Username: "alice",
		Email:    "other@x.com",
		Password: "pw1",
	})

	assert.Nil(t, account)
	assert.True(t, errors.Is(err, domainerrors.ErrDuplicateUsername))
}

func TestAccountService_Create_DuplicateEmail(t *testing.T) {
	fx := createTestAccountService(t)
	ctx := context.Background()

	fx.accountRepo.EXPECT().ExistsByUsername(ctx, "bob").Return(false, nil)
	fx.accountRepo.EXPECT().ExistsByEmail(ctx, "a@x.com").Return(true, nil)

	account, err := fx.service.Create(ctx, usecase.CreateAccountInput{
		Username: "bob",
		Email:    "a@x.com",
		Password: "pw1",
	})

	assert.Nil(t, account)
	assert.True(t, errors.Is(err, domainerrors.ErrDuplicateEmail))
}

func TestAccountService_Create_UsernamesAreCaseSensitive(t *testing.T) {
	fx := createTestAccountService(t)
	ctx := context.Background()

	// Policy: exact, case-sensitive matching. "Alice" and "alice" are
	// distinct usernames, so the existence check is performed verbatim.
	fx.accountRepo.EXPECT().ExistsByUsername(ctx, "Alice").Return(false, nil)
	fx.accountRepo.EXPECT().ExistsByEmail(ctx, "upper@x.com").Return(false, nil)
	fx.hasher.EXPECT().Hash("pw1").Return("hashed", nil)

	expectTransaction(t, fx.txManager, fx.accountRepo)
	fx.accountRepo.EXPECT().
		Create(ctx, mock.AnythingOfType("*entity.Account")).
		Return(nil)

	account, err := fx.service.Create(ctx, usecase.CreateAccountInput{
		Username: "Alice",
		Email:    "upper@x.com",
		Password: "pw1",
	})

	require.NoError(t, err)
	assert.Equal(t, "Alice", account.Username)
}

func TestAccountService_Create_MissingFields(t *testing.T) {
	fx := createTestAccountService(t)

	account, err := fx.service.Create(context.Background(), usecase.CreateAccountInput{
		Username: "",
		Email:    "a@x.com",
		Password: "pw1",
	})

	assert.Nil(t, account)
	assert.True(t, errors.Is(err, domainerrors.ErrValidationFailed))
}

func TestAccountService_GetByID_AbsentYieldsNoError(t *testing.T) {
	fx := createTestAccountService(t)
	ctx := context.Background()
	id := uuid.New()

	fx.accountRepo.EXPECT().FindByID(ctx, id).Return(nil, repository.ErrAccountNotFound)

	account, err := fx.service.GetByID(ctx, id)

	assert.NoError(t, err)
	assert.Nil(t, account)
}

func TestAccountService_GetByUsername_IncludesInactive(t *testing.T) {
	fx := createTestAccountService(t)
	ctx := context.Background()

	retired := newTestAccount("alice", "a@x.com", "hashed")
	retired.Deactivate()
	fx.accountRepo.EXPECT().FindByUsername(ctx, "alice").Return(retired, nil)

	account, err := fx.service.GetByUsername(ctx, "alice")

	require.NoError(t, err)
	require.NotNil(t, account)
	assert.False(t, account.Active)
}

func TestAccountService_GetByEmail_AbsentYieldsNoError(t *testing.T) {
	fx := createTestAccountService(t)
	ctx := context.Background()

	fx.accountRepo.EXPECT().FindByEmail(ctx, "nobody@x.com").Return(nil, repository.ErrAccountNotFound)

	account, err := fx.service.GetByEmail(ctx, "nobody@x.com")

	assert.NoError(t, err)
	assert.Nil(t, account)
}

func TestAccountService_ListActive(t *testing.T) {
	fx := createTestAccountService(t)
	ctx := context.Background()

	active := []*entity.Account{newTestAccount("alice", "a@x.com", "h")}
	fx.accountRepo.EXPECT().ListActive(ctx).Return(active, nil)

	accounts, err := fx.service.ListActive(ctx)

	require.NoError(t, err)
	assert.Len(t, accounts, 1)
}

func TestAccountService_ListPaginated(t *testing.T) {
	fx := createTestAccountService(t)
	ctx := context.Background()

	items := []*entity.Account{newTestAccount("u21", "u21@x.com", "h")}
	fx.accountRepo.EXPECT().ListPage(ctx, 20, 10).Return(items, int64(25), nil)

	page, err := fx.service.ListPaginated(ctx, 2, 10)

	require.NoError(t, err)
	assert.Equal(t, items, page.Items)
	assert.Equal(t, int64(25), page.TotalElements)
	assert.Equal(t, 3, page.TotalPages)
}

func TestAccountService_ListPaginated_InvalidArguments(t *testing.T) {
	fx := createTestAccountService(t)
	ctx := context.Background()

	_, err := fx.service.ListPaginated(ctx, 0, 0)
	assert.True(t, errors.Is(err, domainerrors.ErrValidationFailed))

	_, err = fx.service.ListPaginated(ctx, -1, 10)
	assert.True(t, errors.Is(err, domainerrors.ErrValidationFailed))
}

func TestAccountService_Update_EmailOnlyLeavesAuthStateUntouched(t *testing.T) {
	fx := createTestAccountService(t)
	ctx := context.Background()

	account := newTestAccount("alice", "a@x.com", "original_hash")
	account.FailedAttempts = 2

	expectTransaction(t, fx.txManager, fx.accountRepo)
	fx.accountRepo.EXPECT().FindByIDForUpdate(ctx, account.ID).Return(account, nil)
	fx.accountRepo.EXPECT().ExistsByEmail(ctx, "new@x.com").Return(false, nil)
	fx.accountRepo.EXPECT().Update(ctx, account).Return(nil)

	updated, err := fx.service.Update(ctx, account.ID, usecase.UpdateAccountInput{NewEmail: "new@x.com"})

	require.NoError(t, err)
	assert.Equal(t, "new@x.com", updated.Email)
	assert.Equal(t, "original_hash", updated.PasswordHash)
	assert.Equal(t, 2, updated.FailedAttempts)
	assert.False(t, updated.Locked)
}

func TestAccountService_Update_UnchangedEmailSkipsUniquenessCheck(t *testing.T) {
	fx := createTestAccountService(t)
	ctx := context.Background()

	account := newTestAccount("alice", "a@x.com", "hash")

	expectTransaction(t, fx.txManager, fx.accountRepo)
	fx.accountRepo.EXPECT().FindByIDForUpdate(ctx, account.ID).Return(account, nil)
	fx.accountRepo.EXPECT().Update(ctx, account).Return(nil)

	updated, err := fx.service.Update(ctx, account.ID, usecase.UpdateAccountInput{NewEmail: "a@x.com"})

	require.NoError(t, err)
	assert.Equal(t, "a@x.com", updated.Email)
}

func TestAccountService_Update_DuplicateEmail(t *testing.T) {
	fx := createTestAccountService(t)
	ctx := context.Background()

	account := newTestAccount("alice", "a@x.com", "hash")

	expectTransaction(t, fx.txManager, fx.accountRepo)
	fx.accountRepo.EXPECT().FindByIDForUpdate(ctx, account.ID).Return(account, nil)
	fx.accountRepo.EXPECT().ExistsByEmail(ctx, "taken@x.com").Return(true, nil)

	_, err := fx.service.Update(ctx, account.ID, usecase.UpdateAccountInput{NewEmail: "taken@x.com"})

	assert.True(t, errors.Is(err, domainerrors.ErrDuplicateEmail))
}

func TestAccountService_Update_PasswordOnly(t *testing.T) {
	fx := createTestAccountService(t)
	ctx := context.Background()

	account := newTestAccount("alice", "a@x.com", "old_hash")

	fx.hasher.EXPECT().Hash("new-secret").Return("new_hash", nil)
	expectTransaction(t, fx.txManager, fx.accountRepo)
	fx.accountRepo.EXPECT().FindByIDForUpdate(ctx, account.ID).Return(account, nil)
	fx.accountRepo.EXPECT().Update(ctx, account).Return(nil)

	updated, err := fx.service.Update(ctx, account.ID, usecase.UpdateAccountInput{NewPassword: "new-secret"})

	require.NoError(t, err)
	assert.Equal(t, "new_hash", updated.PasswordHash)
	assert.Equal(t, "a@x.com", updated.Email)
}

func TestAccountService_Update_NotFound(t *testing.T) {
	fx := createTestAccountService(t)
	ctx := context.Background()
	id := uuid.New()

	expectTransaction(t, fx.txManager, fx.accountRepo)
	fx.accountRepo.EXPECT().FindByIDForUpdate(ctx, id).Return(nil, repository.ErrAccountNotFound)

	_, err := fx.service.Update(ctx, id, usecase.UpdateAccountInput{NewEmail: "new@x.com"})

	assert.True(t, errors.Is(err, domainerrors.ErrAccountNotFound))
}

func TestAccountService_Deactivate_IsIdempotent(t *testing.T) {
	fx := createTestAccountService(t)
	ctx := context.Background()

	account := newTestAccount("alice", "a@x.com", "hash")
	account.Deactivate()

	expectTransaction(t, fx.txManager, fx.accountRepo)
	fx.accountRepo.EXPECT().FindByIDForUpdate(ctx, account.ID).Return(account, nil)
	fx.accountRepo.EXPECT().Update(ctx, account).Return(nil)

	deactivated, err := fx.service.Deactivate(ctx, account.ID)

	require.NoError(t, err)
	assert.False(t, deactivated.Active)
}

func TestAccountService_Activate(t *testing.T) {
	fx := createTestAccountService(t)
	ctx := context.Background()

	account := newTestAccount("alice", "a@x.com", "hash")
	account.Deactivate()

	expectTransaction(t, fx.txManager, fx.accountRepo)
	fx.accountRepo.EXPECT().FindByIDForUpdate(ctx, account.ID).Return(account, nil)
	fx.accountRepo.EXPECT().Update(ctx, account).Return(nil)

	activated, err := fx.service.Activate(ctx, account.ID)

	require.NoError(t, err)
	assert.True(t, activated.Active)
}

func TestAccountService_Unlock_ResetsAttemptCounter(t *testing.T) {
	fx := createTestAccountService(t)
	ctx := context.Background()

	account := newTestAccount("alice", "a@x.com", "hash")
	for range entity.MaxFailedAttempts {
		account.RegisterFailure()
	}
	require.True(t, account.Locked)

	expectTransaction(t, fx.txManager, fx.accountRepo)
	fx.accountRepo.EXPECT().FindByIDForUpdate(ctx, account.ID).Return(account, nil)
	fx.accountRepo.EXPECT().Update(ctx, account).Return(nil)

	unlocked, err := fx.service.Unlock(ctx, account.ID)

	require.NoError(t, err)
	assert.False(t, unlocked.Locked)
	assert.Zero(t, unlocked.FailedAttempts)
}

func TestAccountService_Delete_Success(t *testing.T) {
	fx := createTestAccountService(t)
	ctx := context.Background()
	id := uuid.New()

	fx.accountRepo.EXPECT().DeleteByID(ctx, id).Return(nil)

	assert.NoError(t, fx.service.Delete(ctx, id))
}

func TestAccountService_Delete_NotFound(t *testing.T) {
	fx := createTestAccountService(t)
	ctx := context.Background()
	id := uuid.New()

	fx.accountRepo.EXPECT().DeleteByID(ctx, id).Return(repository.ErrAccountNotFound)

	err := fx.service.Delete(ctx, id)

	assert.True(t, errors.Is(err, domainerrors.ErrAccountNotFound))
}

func TestAccountService_ChangePassword_Success(t *testing.T) {
	fx := createTestAccountService(t)
	ctx := context.Background()

	account := newTestAccount("alice", "a@x.com", "old_hash")

	fx.accountRepo.EXPECT().FindByID(ctx, account.ID).Return(account, nil)
	fx.hasher.EXPECT().Check("current-secret", "old_hash").Return(true)
	fx.hasher.EXPECT().Hash("new-secret").Return("new_hash", nil)

	expectTransaction(t, fx.txManager, fx.accountRepo)
	fx.accountRepo.EXPECT().FindByIDForUpdate(ctx, account.ID).Return(account, nil)
	fx.accountRepo.EXPECT().Update(ctx, account).Return(nil)

	updated, err := fx.service.ChangePassword(ctx, account.ID, usecase.ChangePasswordInput{
		CurrentPassword: "current-secret",
		NewPassword:     "new-secret",
	})

	require.NoError(t, err)
	assert.Equal(t, "new_hash", updated.PasswordHash)
}

func TestAccountService_ChangePassword_WrongCurrentPassword(t *testing.T) {
	fx := createTestAccountService(t)
	ctx := context.Background()

	account := newTestAccount("alice", "a@x.com", "old_hash")

	fx.accountRepo.EXPECT().FindByID(ctx, account.ID).Return(account, nil)
	fx.hasher.EXPECT().Check("wrong", "old_hash").Return(false)

	_, err := fx.service.ChangePassword(ctx, account.ID, usecase.ChangePasswordInput{
		CurrentPassword: "wrong",
		NewPassword:     "new-secret",
	})

	assert.True(t, errors.Is(err, domainerrors.ErrInvalidCredentials))
	assert.Equal(t, "old_hash", account.PasswordHash)
}

func TestAccountService_ChangePassword_DoesNotClearLockout(t *testing.T) {
	fx := createTestAccountService(t)
	ctx := context.Background()

	// Knowing the current password proves identity, so the change is
	// allowed on a locked account; the lock itself stays until an
	// operator resets it.
	account := newTestAccount("alice", "a@x.com", "old_hash")
	for range entity.MaxFailedAttempts {
		account.RegisterFailure()
	}

	fx.accountRepo.EXPECT().FindByID(ctx, account.ID).Return(account, nil)
	fx.hasher.EXPECT().Check("current-secret", "old_hash").Return(true)
	fx.hasher.EXPECT().Hash("new-secret").Return("new_hash", nil)

	expectTransaction(t, fx.txManager, fx.accountRepo)
	fx.accountRepo.EXPECT().FindByIDForUpdate(ctx, account.ID).Return(account, nil)
	fx.accountRepo.EXPECT().Update(ctx, account).Return(nil)

	updated, err := fx.service.ChangePassword(ctx, account.ID, usecase.ChangePasswordInput{
		CurrentPassword: "current-secret",
		NewPassword:     "new-secret",
	})

	require.NoError(t, err)
	assert.Equal(t, "new_hash", updated.PasswordHash)
	assert.True(t, updated.Locked)
	assert.Equal(t, entity.MaxFailedAttempts, updated.FailedAttempts)
}

func TestAccountService_ChangePassword_NotFound(t *testing.T) {
	fx := createTestAccountService(t)
	ctx := context.Background()
	id := uuid.New()

	fx.accountRepo.EXPECT().FindByID(ctx, id).Return(nil, repository.ErrAccountNotFound)

	_, err := fx.service.ChangePassword(ctx, id, usecase.ChangePasswordInput{
		CurrentPassword: "current",
		NewPassword:     "new",
	})

	assert.True(t, errors.Is(err, domainerrors.ErrAccountNotFound))
}
