package impl

import (
	"context"
	"testing"
	"time"

	"passport/internal/domain/entity"
	domainerrors "passport/internal/domain/errors"
	"passport/internal/domain/repository"
	"passport/internal/usecase"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountService_Login_Success(t *testing.T) {
	fx := createTestAccountService(t)
	ctx := context.Background()

	account := newTestAccount("alice", "a@x.com", "hashed")
	account.FailedAttempts = 2

	fx.accountRepo.EXPECT().FindByUsername(ctx, "alice").Return(account, nil)
	fx.hasher.EXPECT().Check("secret", "hashed").Return(true)

	expectTransaction(t, fx.txManager, fx.accountRepo)
	fx.accountRepo.EXPECT().FindByUsernameForUpdate(ctx, "alice").Return(account, nil)
	fx.accountRepo.EXPECT().Update(ctx, account).Return(nil)

	loggedIn, err := fx.service.Login(ctx, usecase.CredentialsInput{Username: "alice", Password: "secret"})

	require.NoError(t, err)
	require.NotNil(t, loggedIn)
	assert.Zero(t, loggedIn.FailedAttempts)
	assert.False(t, loggedIn.Locked)
	require.NotNil(t, loggedIn.LastLoginAt)
	assert.WithinDuration(t, time.Now(), *loggedIn.LastLoginAt, time.Minute)
}

func TestAccountService_Login_WrongPasswordIncrementsCounter(t *testing.T) {
	fx := createTestAccountService(t)
	ctx := context.Background()

	account := newTestAccount("alice", "a@x.com", "hashed")

	fx.accountRepo.EXPECT().FindByUsername(ctx, "alice").Return(account, nil)
	fx.hasher.EXPECT().Check("wrong", "hashed").Return(false)

	expectTransaction(t, fx.txManager, fx.accountRepo)
	fx.accountRepo.EXPECT().FindByUsernameForUpdate(ctx, "alice").Return(account, nil)
	fx.accountRepo.EXPECT().Update(ctx, account).Return(nil)

	loggedIn, err := fx.service.Login(ctx, usecase.CredentialsInput{Username: "alice", Password: "wrong"})

	assert.Nil(t, loggedIn)
	assert.True(t, errors.Is(err, domainerrors.ErrInvalidCredentials))
	assert.Equal(t, 1, account.FailedAttempts)
	assert.False(t, account.Locked)
	assert.Nil(t, account.LastLoginAt)
}

func TestAccountService_Login_ThreeFailuresLockThenCorrectPasswordStillRejected(t *testing.T) {
	fx := createTestAccountService(t)
	ctx := context.Background()

	// The same entity pointer is returned on every read so the counter
	// accumulates across attempts, as it would against a real store.
	account := newTestAccount("alice", "a@x.com", "hashed")

	fx.accountRepo.EXPECT().FindByUsername(ctx, "alice").Return(account, nil)
	fx.hasher.EXPECT().Check("wrong", "hashed").Return(false)

	expectTransaction(t, fx.txManager, fx.accountRepo)
	fx.accountRepo.EXPECT().FindByUsernameForUpdate(ctx, "alice").Return(account, nil)
	fx.accountRepo.EXPECT().Update(ctx, account).Return(nil)

	for attempt := 1; attempt <= entity.MaxFailedAttempts; attempt++ {
		_, err := fx.service.Login(ctx, usecase.CredentialsInput{Username: "alice", Password: "wrong"})
		assert.True(t, errors.Is(err, domainerrors.ErrInvalidCredentials))
		assert.Equal(t, attempt, account.FailedAttempts)
	}

	require.True(t, account.Locked)
	require.Equal(t, entity.MaxFailedAttempts, account.FailedAttempts)

	// Once locked, even the correct password is rejected before the hash
	// is ever checked, and the counter stops moving. No transaction runs:
	// the pre-read rejection leaves nothing to persist.
	loggedIn, err := fx.service.Login(ctx, usecase.CredentialsInput{Username: "alice", Password: "secret"})

	assert.Nil(t, loggedIn)
	assert.True(t, errors.Is(err, domainerrors.ErrInvalidCredentials))
	assert.Equal(t, entity.MaxFailedAttempts, account.FailedAttempts)
	fx.hasher.AssertNotCalled(t, "Check", "secret", "hashed")
}

func TestAccountService_Login_UnknownUsername(t *testing.T) {
	fx := createTestAccountService(t)
	ctx := context.Background()

	fx.accountRepo.EXPECT().FindByUsername(ctx, "ghost").Return(nil, repository.ErrAccountNotFound)

	loggedIn, err := fx.service.Login(ctx, usecase.CredentialsInput{Username: "ghost", Password: "secret"})

	assert.Nil(t, loggedIn)
	assert.True(t, errors.Is(err, domainerrors.ErrInvalidCredentials))
}

func TestAccountService_Login_InactiveAccountRejectedWithoutHashCheck(t *testing.T) {
	fx := createTestAccountService(t)
	ctx := context.Background()

	account := newTestAccount("alice", "a@x.com", "hashed")
	account.Deactivate()

	fx.accountRepo.EXPECT().FindByUsername(ctx, "alice").Return(account, nil)

	loggedIn, err := fx.service.Login(ctx, usecase.CredentialsInput{Username: "alice", Password: "secret"})

	assert.Nil(t, loggedIn)
	assert.True(t, errors.Is(err, domainerrors.ErrInvalidCredentials))
	assert.Zero(t, account.FailedAttempts)
	fx.hasher.AssertNotCalled(t, "Check", "secret", "hashed")
}

func TestAccountService_Login_LockedDuringHashCheckIsRejectedUnderLock(t *testing.T) {
	fx := createTestAccountService(t)
	ctx := context.Background()

	// The pre-read sees an unlocked account, but by the time the row lock is
	// taken a concurrent attempt has locked it. The re-check under the lock
	// must reject without resetting or incrementing anything.
	preRead := newTestAccount("alice", "a@x.com", "hashed")
	locked := newTestAccount("alice", "a@x.com", "hashed")
	locked.ID = preRead.ID
	for range entity.MaxFailedAttempts {
		locked.RegisterFailure()
	}

	fx.accountRepo.EXPECT().FindByUsername(ctx, "alice").Return(preRead, nil)
	fx.hasher.EXPECT().Check("secret", "hashed").Return(true)

	expectTransaction(t, fx.txManager, fx.accountRepo)
	fx.accountRepo.EXPECT().FindByUsernameForUpdate(ctx, "alice").Return(locked, nil)

	loggedIn, err := fx.service.Login(ctx, usecase.CredentialsInput{Username: "alice", Password: "secret"})

	assert.Nil(t, loggedIn)
	assert.True(t, errors.Is(err, domainerrors.ErrInvalidCredentials))
	assert.True(t, locked.Locked)
	assert.Equal(t, entity.MaxFailedAttempts, locked.FailedAttempts)
}

func TestAccountService_Login_SuccessAfterPriorFailuresResetsCounter(t *testing.T) {
	fx := createTestAccountService(t)
	ctx := context.Background()

	account := newTestAccount("alice", "a@x.com", "hashed")

	fx.accountRepo.EXPECT().FindByUsername(ctx, "alice").Return(account, nil)
	fx.hasher.EXPECT().Check("wrong", "hashed").Return(false)
	fx.hasher.EXPECT().Check("secret", "hashed").Return(true)

	expectTransaction(t, fx.txManager, fx.accountRepo)
	fx.accountRepo.EXPECT().FindByUsernameForUpdate(ctx, "alice").Return(account, nil)
	fx.accountRepo.EXPECT().Update(ctx, account).Return(nil)

	for range 2 {
		_, err := fx.service.Login(ctx, usecase.CredentialsInput{Username: "alice", Password: "wrong"})
		assert.True(t, errors.Is(err, domainerrors.ErrInvalidCredentials))
	}
	require.Equal(t, 2, account.FailedAttempts)

	loggedIn, err := fx.service.Login(ctx, usecase.CredentialsInput{Username: "alice", Password: "secret"})

	require.NoError(t, err)
	assert.Zero(t, loggedIn.FailedAttempts)
	assert.False(t, loggedIn.Locked)
	assert.NotNil(t, loggedIn.LastLoginAt)
}

func TestAccountService_Login_TimestampAdvancesAcrossLogins(t *testing.T) {
	fx := createTestAccountService(t)
	ctx := context.Background()

	account := newTestAccount("alice", "a@x.com", "hashed")

	fx.accountRepo.EXPECT().FindByUsername(ctx, "alice").Return(account, nil)
	fx.hasher.EXPECT().Check("secret", "hashed").Return(true)

	expectTransaction(t, fx.txManager, fx.accountRepo)
	fx.accountRepo.EXPECT().FindByUsernameForUpdate(ctx, "alice").Return(account, nil)
	fx.accountRepo.EXPECT().Update(ctx, account).Return(nil)

	_, err := fx.service.Login(ctx, usecase.CredentialsInput{Username: "alice", Password: "secret"})
	require.NoError(t, err)
	first := *account.LastLoginAt

	time.Sleep(2 * time.Millisecond)

	_, err = fx.service.Login(ctx, usecase.CredentialsInput{Username: "alice", Password: "secret"})
	require.NoError(t, err)

	assert.True(t, account.LastLoginAt.After(first))
}

func TestAccountService_VerifyCredentials_Success(t *testing.T) {
	fx := createTestAccountService(t)
	ctx := context.Background()

	account := newTestAccount("alice", "a@x.com", "hashed")

	fx.accountRepo.EXPECT().FindByUsername(ctx, "alice").Return(account, nil)
	fx.hasher.EXPECT().Check("secret", "hashed").Return(true)

	expectTransaction(t, fx.txManager, fx.accountRepo)
	fx.accountRepo.EXPECT().FindByUsernameForUpdate(ctx, "alice").Return(account, nil)
	fx.accountRepo.EXPECT().Update(ctx, account).Return(nil)

	verified, err := fx.service.VerifyCredentials(ctx, usecase.CredentialsInput{Username: "alice", Password: "secret"})

	require.NoError(t, err)
	require.NotNil(t, verified.LastLoginAt)
	assert.Zero(t, verified.FailedAttempts)
}

func TestAccountService_VerifyCredentials_FailuresNeverAccumulate(t *testing.T) {
	fx := createTestAccountService(t)
	ctx := context.Background()

	account := newTestAccount("alice", "a@x.com", "hashed")

	fx.accountRepo.EXPECT().FindByUsername(ctx, "alice").Return(account, nil)
	fx.hasher.EXPECT().Check("wrong", "hashed").Return(false)

	// Well past the lockout threshold: verification failures carry no
	// side effects, so nothing is ever written.
	for range entity.MaxFailedAttempts * 2 {
		_, err := fx.service.VerifyCredentials(ctx, usecase.CredentialsInput{Username: "alice", Password: "wrong"})
		assert.True(t, errors.Is(err, domainerrors.ErrInvalidCredentials))
	}

	assert.Zero(t, account.FailedAttempts)
	assert.False(t, account.Locked)
}

func TestAccountService_VerifyCredentials_InactiveAccount(t *testing.T) {
	fx := createTestAccountService(t)
	ctx := context.Background()

	account := newTestAccount("alice", "a@x.com", "hashed")
	account.Deactivate()

	fx.accountRepo.EXPECT().FindByUsername(ctx, "alice").Return(account, nil)

	verified, err := fx.service.VerifyCredentials(ctx, usecase.CredentialsInput{Username: "alice", Password: "secret"})

	assert.Nil(t, verified)
	assert.True(t, errors.Is(err, domainerrors.ErrInvalidCredentials))
	fx.hasher.AssertNotCalled(t, "Check", "secret", "hashed")
}

func TestAccountService_DeactivateThenLoginFails(t *testing.T) {
	fx := createTestAccountService(t)
	ctx := context.Background()

	account := newTestAccount("alice", "a@x.com", "hashed")
	account.FailedAttempts = 1

	expectTransaction(t, fx.txManager, fx.accountRepo)
	fx.accountRepo.EXPECT().FindByIDForUpdate(ctx, account.ID).Return(account, nil)
	fx.accountRepo.EXPECT().Update(ctx, account).Return(nil)

	_, err := fx.service.Deactivate(ctx, account.ID)
	require.NoError(t, err)

	fx.accountRepo.EXPECT().FindByUsername(ctx, "alice").Return(account, nil)

	loggedIn, err := fx.service.Login(ctx, usecase.CredentialsInput{Username: "alice", Password: "secret"})

	assert.Nil(t, loggedIn)
	assert.True(t, errors.Is(err, domainerrors.ErrInvalidCredentials))
	assert.Equal(t, 1, account.FailedAttempts)
}
