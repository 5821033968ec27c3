package service

import (
	"bytes"
	"context"
	"image"
	"testing"

	"snapgram/internal/config"
	"snapgram/internal/models"
	"snapgram/internal/storage"
	"snapgram/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newImageService(imageRepo *testutil.ImageRepoStub, postRepo *postRepoStub, blobs *testutil.BlobStoreStub) *ImageService {
	return NewImageService(imageRepo, postRepo, blobs, nil)
}

func TestImageService_UploadProfileImage(t *testing.T) {
	t.Parallel()

	t.Run("stores webp blob and record", func(t *testing.T) {
		t.Parallel()
		imageRepo := testutil.NewImageRepoStub()
		blobs := testutil.NewBlobStoreStub()
		svc := newImageService(imageRepo, noopPostRepo(), blobs)

		img, err := svc.UploadProfileImage(context.Background(), UploadImageInput{
			UserID:      1,
			Filename:    "avatar.png",
			ContentType: "image/png",
			Content:     testutil.TinyPNG(t, 4, 4),
		})
		require.NoError(t, err)
		assert.Equal(t, "avatar.webp", img.Name, "stored name follows the re-encoding")
		assert.Equal(t, "image/webp", img.ContentType)
		require.NotNil(t, img.UserID)
		assert.Equal(t, uint(1), *img.UserID)

		key := storage.ProfileImageKey(1, "avatar.webp")
		assert.Equal(t, key, img.Key)

		data, err := blobs.Get(context.Background(), key)
		require.NoError(t, err)
		require.Greater(t, len(data), 12)
		assert.Equal(t, "RIFF", string(data[:4]))
		assert.Equal(t, "WEBP", string(data[8:12]))
		assert.EqualValues(t, len(data), img.Size)
	})

	t.Run("replacement removes the old blob before writing the new one", func(t *testing.T) {
		t.Parallel()
		imageRepo := testutil.NewImageRepoStub()
		blobs := testutil.NewBlobStoreStub()
		ctx := context.Background()

		userID := uint(1)
		oldKey := storage.ProfileImageKey(userID, "old.webp")
		require.NoError(t, blobs.Put(ctx, oldKey, []byte("old blob")))
		require.NoError(t, imageRepo.Create(ctx, &models.Image{
			Name: "old.webp", Key: oldKey, ContentType: "image/webp", UserID: &userID,
		}))

		svc := newImageService(imageRepo, noopPostRepo(), blobs)
		img, err := svc.UploadProfileImage(ctx, UploadImageInput{
			UserID:   userID,
			Filename: "new.png",
			Content:  testutil.TinyPNG(t, 4, 4),
		})
		require.NoError(t, err)

		newKey := storage.ProfileImageKey(userID, "new.webp")
		assert.Equal(t, newKey, img.Key)
		assert.Equal(t, []string{"put " + oldKey, "delete " + oldKey, "put " + newKey}, blobs.Ops,
			"old blob goes away before the new one lands")

		exists, err := blobs.Exists(ctx, oldKey)
		require.NoError(t, err)
		assert.False(t, exists)

		current, err := imageRepo.GetByUserID(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, newKey, current.Key)
	})

	t.Run("rejects non-image content", func(t *testing.T) {
		t.Parallel()
		svc := newImageService(testutil.NewImageRepoStub(), noopPostRepo(), testutil.NewBlobStoreStub())
		_, err := svc.UploadProfileImage(context.Background(), UploadImageInput{
			UserID:   1,
			Filename: "notes.txt",
			Content:  []byte("plain text, not an image"),
		})
		assertValidationError(t, err)
	})

	t.Run("rejects content type mismatch", func(t *testing.T) {
		t.Parallel()
		svc := newImageService(testutil.NewImageRepoStub(), noopPostRepo(), testutil.NewBlobStoreStub())
		_, err := svc.UploadProfileImage(context.Background(), UploadImageInput{
			UserID:      1,
			Filename:    "avatar.jpg",
			ContentType: "image/jpeg",
			Content:     testutil.TinyPNG(t, 4, 4),
		})
		assertValidationError(t, err)
	})

	t.Run("rejects oversized uploads", func(t *testing.T) {
		t.Parallel()
		cfg := &config.Config{ImageMaxUploadSizeMB: 1}
		svc := NewImageService(testutil.NewImageRepoStub(), noopPostRepo(), testutil.NewBlobStoreStub(), cfg)
		_, err := svc.UploadProfileImage(context.Background(), UploadImageInput{
			UserID:   1,
			Filename: "huge.png",
			Content:  bytes.Repeat([]byte{0xff}, 2*1024*1024),
		})
		assertValidationError(t, err)
	})

	t.Run("rejects empty upload", func(t *testing.T) {
		t.Parallel()
		svc := newImageService(testutil.NewImageRepoStub(), noopPostRepo(), testutil.NewBlobStoreStub())
		_, err := svc.UploadProfileImage(context.Background(), UploadImageInput{UserID: 1, Filename: "a.png"})
		assertValidationError(t, err)
	})
}

func TestImageService_UploadPostImage(t *testing.T) {
	t.Parallel()

	t.Run("stores image for an owned post", func(t *testing.T) {
		t.Parallel()
		posts := noopPostRepo()
		posts.getOwnedFn = func(_ context.Context, id, userID uint) (*models.Post, error) {
			assert.Equal(t, uint(5), id)
			assert.Equal(t, uint(1), userID)
			return &models.Post{ID: id, UserID: userID}, nil
		}

		imageRepo := testutil.NewImageRepoStub()
		blobs := testutil.NewBlobStoreStub()
		svc := newImageService(imageRepo, posts, blobs)

		img, err := svc.UploadPostImage(context.Background(), UploadPostImageInput{
			UploadImageInput: UploadImageInput{
				UserID:   1,
				Filename: "cat.png",
				Content:  testutil.TinyPNG(t, 4, 4),
			},
			PostID: 5,
		})
		require.NoError(t, err)
		require.NotNil(t, img.PostID)
		assert.Equal(t, uint(5), *img.PostID)
		assert.Nil(t, img.UserID)
		assert.Equal(t, storage.PostImageKey(5, "cat.webp"), img.Key)
	})

	t.Run("post not owned by caller is an illegal state", func(t *testing.T) {
		t.Parallel()
		posts := noopPostRepo()
		posts.getOwnedFn = func(_ context.Context, _, _ uint) (*models.Post, error) {
			return nil, errRecordNotFound
		}

		svc := newImageService(testutil.NewImageRepoStub(), posts, testutil.NewBlobStoreStub())
		_, err := svc.UploadPostImage(context.Background(), UploadPostImageInput{
			UploadImageInput: UploadImageInput{
				UserID:   2,
				Filename: "cat.png",
				Content:  testutil.TinyPNG(t, 4, 4),
			},
			PostID: 5,
		})
		assertAppErrorCode(t, err, "ILLEGAL_STATE")
	})
}

func TestImageService_GetAndDelete(t *testing.T) {
	t.Parallel()

	t.Run("GetProfileImage returns record and blob", func(t *testing.T) {
		t.Parallel()
		imageRepo := testutil.NewImageRepoStub()
		blobs := testutil.NewBlobStoreStub()
		ctx := context.Background()

		userID := uint(1)
		key := storage.ProfileImageKey(userID, "avatar.webp")
		require.NoError(t, blobs.Put(ctx, key, []byte("blob bytes")))
		require.NoError(t, imageRepo.Create(ctx, &models.Image{
			Name: "avatar.webp", Key: key, ContentType: "image/webp", UserID: &userID,
		}))

		svc := newImageService(imageRepo, noopPostRepo(), blobs)
		img, data, err := svc.GetProfileImage(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, key, img.Key)
		assert.Equal(t, []byte("blob bytes"), data)
	})

	t.Run("GetProfileImage unknown user is not found", func(t *testing.T) {
		t.Parallel()
		svc := newImageService(testutil.NewImageRepoStub(), noopPostRepo(), testutil.NewBlobStoreStub())
		_, _, err := svc.GetProfileImage(context.Background(), 99)
		assertAppErrorCode(t, err, "NOT_FOUND")
	})

	t.Run("DeleteProfileImage without an image is a no-op", func(t *testing.T) {
		t.Parallel()
		svc := newImageService(testutil.NewImageRepoStub(), noopPostRepo(), testutil.NewBlobStoreStub())
		assert.NoError(t, svc.DeleteProfileImage(context.Background(), 99))
	})

	t.Run("DeleteProfileImage removes blob and record", func(t *testing.T) {
		t.Parallel()
		imageRepo := testutil.NewImageRepoStub()
		blobs := testutil.NewBlobStoreStub()
		ctx := context.Background()

		userID := uint(1)
		key := storage.ProfileImageKey(userID, "avatar.webp")
		require.NoError(t, blobs.Put(ctx, key, []byte("blob")))
		require.NoError(t, imageRepo.Create(ctx, &models.Image{
			Name: "avatar.webp", Key: key, UserID: &userID,
		}))

		svc := newImageService(imageRepo, noopPostRepo(), blobs)
		require.NoError(t, svc.DeleteProfileImage(ctx, userID))

		exists, err := blobs.Exists(ctx, key)
		require.NoError(t, err)
		assert.False(t, exists)
		_, err = imageRepo.GetByUserID(ctx, userID)
		assert.Error(t, err)
	})
}

func TestSanitizeFilename(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"avatar.png", "avatar.webp"},
		{"../../etc/passwd", "passwd.webp"},
		{"dir\\sub\\photo.jpeg", "photo.webp"},
		{"noext", "noext.webp"},
		{"", "image.webp"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, sanitizeFilename(tc.in), "input %q", tc.in)
	}
}

func decodePNG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, _, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

func TestResizeToFit(t *testing.T) {
	t.Parallel()

	t.Run("small images pass through", func(t *testing.T) {
		t.Parallel()
		src := decodePNG(t, testutil.TinyPNG(t, 100, 50))
		got := resizeToFit(src, 2048, 2048)
		assert.Equal(t, 100, got.Bounds().Dx())
		assert.Equal(t, 50, got.Bounds().Dy())
	})

	t.Run("large images scale preserving aspect ratio", func(t *testing.T) {
		t.Parallel()
		src := decodePNG(t, testutil.TinyPNG(t, 4096, 1024))
		got := resizeToFit(src, 2048, 2048)
		assert.Equal(t, 2048, got.Bounds().Dx())
		assert.Equal(t, 512, got.Bounds().Dy())
	})
}
