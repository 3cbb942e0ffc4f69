package auth

import (
	"strings"
	"testing"

	domainerrors "passport/internal/domain/errors"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"
)

// testCost keeps hashing fast in tests; production stays at DefaultBcryptCost.
const testCost = bcrypt.MinCost

func TestBcryptHasher_RoundTrip(t *testing.T) {
	hasher := NewBcryptHasherWithCost(testCost)

	password := "correct horse battery staple"
	hash, err := hasher.Hash(password)
	assert.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.NotEqual(t, password, hash)

	assert.True(t, hasher.Check(password, hash))
}

func TestBcryptHasher_Hash_Salted(t *testing.T) {
	hasher := NewBcryptHasherWithCost(testCost)

	first, err := hasher.Hash("pw1")
	assert.NoError(t, err)
	second, err := hasher.Hash("pw1")
	assert.NoError(t, err)

	// Same input, different salt, different encoding; both still verify.
	assert.NotEqual(t, first, second)
	assert.True(t, hasher.Check("pw1", first))
	assert.True(t, hasher.Check("pw1", second))
}

func TestBcryptHasher_Hash_EmptyInput(t *testing.T) {
	hasher := NewBcryptHasherWithCost(testCost)

	_, err := hasher.Hash("")
	assert.Error(t, err)
	assert.True(t, errors.Is(err, domainerrors.ErrValidationFailed))
}

func TestBcryptHasher_Hash_OversizedInput(t *testing.T) {
	hasher := NewBcryptHasherWithCost(testCost)

	_, err := hasher.Hash(strings.Repeat("x", maxPasswordLength+1))
	assert.Error(t, err)
	assert.True(t, errors.Is(err, domainerrors.ErrValidationFailed))
}

func TestBcryptHasher_Check(t *testing.T) {
	hasher := NewBcryptHasherWithCost(testCost)

	hash, err := hasher.Hash("pw1")
	assert.NoError(t, err)

	assert.True(t, hasher.Check("pw1", hash))
	assert.False(t, hasher.Check("wrong", hash))
	assert.False(t, hasher.Check("", hash))

	// A malformed stored hash reads as a mismatch, never an error.
	assert.False(t, hasher.Check("pw1", "not-a-bcrypt-hash"))
	assert.False(t, hasher.Check("pw1", ""))
}

func TestBcryptHasher_WithCustomCost(t *testing.T) {
	customCost := 6
	hasher := NewBcryptHasherWithCost(customCost)

	hash, err := hasher.Hash("pw1")
	assert.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	assert.NoError(t, err)
	assert.Equal(t, customCost, cost)
}

func TestBcryptHasher_OutOfRangeCostFallsBack(t *testing.T) {
	hasher := NewBcryptHasherWithCost(99)

	impl, ok := hasher.(*bcryptHasher)
	assert.True(t, ok)
	assert.Equal(t, DefaultBcryptCost, impl.cost)
}
