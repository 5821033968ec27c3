package seed

import (
	"testing"

	"snapgram/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Post{},
		&models.Like{},
		&models.Comment{},
		&models.Image{},
		&models.Conversation{},
		&models.Message{},
	))
	return db
}

func TestFactoryCreateUser(t *testing.T) {
	db := setupTestDB(t)
	f := NewFactory(db, Options{SkipBcrypt: true})

	user, err := f.CreateUser()
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.NotEmpty(t, user.Username)
	assert.NotEmpty(t, user.Email)

	overridden, err := f.CreateUser(func(u *models.User) {
		u.Username = "fixed_name"
	})
	require.NoError(t, err)
	assert.Equal(t, "fixed_name", overridden.Username)
}

func TestFactoryCreateLikeIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	f := NewFactory(db, Options{SkipBcrypt: true})

	user, err := f.CreateUser()
	require.NoError(t, err)
	post, err := f.CreatePost(user)
	require.NoError(t, err)

	require.NoError(t, f.CreateLike(user, post))
	require.NoError(t, f.CreateLike(user, post))

	var count int64
	require.NoError(t, db.Model(&models.Like{}).
		Where("user_id = ? AND post_id = ?", user.ID, post.ID).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSeederRun(t *testing.T) {
	db := setupTestDB(t)
	opts := Options{NumUsers: 5, NumPosts: 12, SkipBcrypt: true}
	s := NewSeeder(db, opts)

	require.NoError(t, s.Run(opts))

	var userCount, postCount, convCount int64
	require.NoError(t, db.Model(&models.User{}).Count(&userCount).Error)
	require.NoError(t, db.Model(&models.Post{}).Count(&postCount).Error)
	require.NoError(t, db.Model(&models.Conversation{}).Count(&convCount).Error)

	assert.Equal(t, int64(5), userCount)
	assert.Equal(t, int64(12), postCount)
	assert.Equal(t, int64(len(conversationNames)), convCount)
}

func TestConversationsIsIdempotent(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, Conversations(db))
	require.NoError(t, Conversations(db))

	var count int64
	require.NoError(t, db.Model(&models.Conversation{}).Count(&count).Error)
	assert.Equal(t, int64(len(conversationNames)), count)
}

func TestClearAll(t *testing.T) {
	db := setupTestDB(t)
	opts := Options{NumUsers: 3, NumPosts: 4, SkipBcrypt: true}
	s := NewSeeder(db, opts)
	require.NoError(t, s.Run(opts))

	require.NoError(t, s.ClearAll())

	var userCount int64
	require.NoError(t, db.Model(&models.User{}).Count(&userCount).Error)
	assert.Zero(t, userCount)
}
