package repository

import (
	"context"
	"errors"
	"testing"

	"snapgram/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepositoryCreate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := &models.User{Username: "alice", Email: "alice@example.com", Password: "hashed"}
	require.NoError(t, repo.Create(ctx, user))
	assert.NotZero(t, user.ID)

	t.Run("Duplicate username maps to already-exists", func(t *testing.T) {
		dupe := &models.User{Username: "alice", Email: "other@example.com", Password: "hashed"}
		err := repo.Create(ctx, dupe)
		require.Error(t, err)

		var appErr *models.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, "ALREADY_EXISTS", appErr.Code)
	})

	t.Run("Duplicate email maps to already-exists", func(t *testing.T) {
		dupe := &models.User{Username: "alice2", Email: "alice@example.com", Password: "hashed"}
		err := repo.Create(ctx, dupe)
		require.Error(t, err)

		var appErr *models.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, "ALREADY_EXISTS", appErr.Code)
	})
}

func TestUserRepositoryLookups(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	created := createTestUser(t, db, "alice")

	t.Run("GetByID", func(t *testing.T) {
		user, err := repo.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice", user.Username)
	})

	t.Run("GetByID unknown is not found", func(t *testing.T) {
		_, err := repo.GetByID(ctx, 9999)
		require.Error(t, err)

		var appErr *models.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, "NOT_FOUND", appErr.Code)
	})

	t.Run("GetByEmail unknown returns nil without error", func(t *testing.T) {
		user, err := repo.GetByEmail(ctx, "nobody@example.com")
		require.NoError(t, err)
		assert.Nil(t, user)
	})

	t.Run("GetByUsername unknown returns nil without error", func(t *testing.T) {
		user, err := repo.GetByUsername(ctx, "nobody")
		require.NoError(t, err)
		assert.Nil(t, user)
	})
}

func TestUserRepositoryUpdate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := createTestUser(t, db, "alice")
	user.Bio = "updated bio"
	require.NoError(t, repo.Update(ctx, user))

	fetched, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "updated bio", fetched.Bio)
}
