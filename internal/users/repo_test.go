package users

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/groupcart-backend/pkg/db"
	"github.com/angelmondragon/groupcart-backend/pkg/db/dbtest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestRepositoryCreateAndFind(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()
	phone := "  "

	user, err := repo.Create(ctx, CreateUserDTO{
		Email:        "  Alice@Example.COM ",
		PasswordHash: "hash",
		FirstName:    " Alice ",
		LastName:     "Liddell",
		Phone:        &phone,
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, "Alice", user.FirstName)
	assert.Nil(t, user.Phone)
	assert.True(t, user.IsActive)

	byEmail, err := repo.FindByEmail(ctx, "ALICE@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	byID, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Liddell", byID.LastName)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryDuplicateEmail(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()

	_, err := repo.Create(ctx, CreateUserDTO{Email: "bob@example.com", PasswordHash: "h", FirstName: "Bob", LastName: "B"})
	require.NoError(t, err)
	_, err = repo.Create(ctx, CreateUserDTO{Email: "BOB@example.com", PasswordHash: "h", FirstName: "Bob", LastName: "B"})
	require.Error(t, err)
	assert.True(t, db.IsUniqueViolation(err, EmailIndex))
}

func TestRepositoryUpdates(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()

	user, err := repo.Create(ctx, CreateUserDTO{Email: "carol@example.com", PasswordHash: "old", FirstName: "Carol", LastName: "C"})
	require.NoError(t, err)

	at := time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)
	require.NoError(t, repo.UpdateLastLogin(ctx, user.ID, at))
	require.NoError(t, repo.UpdatePasswordHash(ctx, user.ID, "new"))

	reloaded, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.LastLoginAt)
	assert.True(t, reloaded.LastLoginAt.Equal(at))
	assert.Equal(t, "new", reloaded.PasswordHash)
}

func TestFromModelNil(t *testing.T) {
	assert.Nil(t, FromModel(nil))
}
