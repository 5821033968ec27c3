package repository

import (
	"context"
	"errors"
	"testing"

	"snapgram/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestImageRepositoryProfileRecords(t *testing.T) {
	db := setupTestDB(t)
	repo := NewImageRepository(db)
	ctx := context.Background()

	user := createTestUser(t, db, "alice")

	image := &models.Image{
		Name:        "avatar.webp",
		Key:         "profile-images/1/avatar.webp",
		ContentType: "image/webp",
		Size:        1024,
		UserID:      &user.ID,
	}
	require.NoError(t, repo.Create(ctx, image))
	assert.NotZero(t, image.ID)

	fetched, err := repo.GetByUserID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, image.Key, fetched.Key)
	assert.Equal(t, "image/webp", fetched.ContentType)

	t.Run("Second record for the same user conflicts", func(t *testing.T) {
		dupe := &models.Image{
			Name:        "other.webp",
			Key:         "profile-images/1/other.webp",
			ContentType: "image/webp",
			UserID:      &user.ID,
		}
		err := repo.Create(ctx, dupe)
		require.Error(t, err)

		var appErr *models.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, "ALREADY_EXISTS", appErr.Code)
	})

	t.Run("Delete frees the owner slot", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, image.ID))

		_, err := repo.GetByUserID(ctx, user.ID)
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

		replacement := &models.Image{
			Name:        "new.webp",
			Key:         "profile-images/1/new.webp",
			ContentType: "image/webp",
			UserID:      &user.ID,
		}
		assert.NoError(t, repo.Create(ctx, replacement))
	})
}

func TestImageRepositoryPostRecords(t *testing.T) {
	db := setupTestDB(t)
	repo := NewImageRepository(db)
	ctx := context.Background()

	user := createTestUser(t, db, "alice")
	post := createTestPost(t, db, user.ID, "first post")

	image := &models.Image{
		Name:        "cat.webp",
		Key:         "post-images/1/cat.webp",
		ContentType: "image/webp",
		Size:        2048,
		PostID:      &post.ID,
	}
	require.NoError(t, repo.Create(ctx, image))

	fetched, err := repo.GetByPostID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "cat.webp", fetched.Name)
	assert.Nil(t, fetched.UserID)

	_, err = repo.GetByPostID(ctx, 9999)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
