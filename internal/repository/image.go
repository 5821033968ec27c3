package repository

import (
	"context"

	"snapgram/internal/models"

	"gorm.io/gorm"
)

// ImageRepository defines storage operations for image metadata records.
// Blob bytes live in storage.BlobStore; this repository only tracks the
// record pointing at a blob key.
type ImageRepository interface {
	Create(ctx context.Context, image *models.Image) error
	GetByUserID(ctx context.Context, userID uint) (*models.Image, error)
	GetByPostID(ctx context.Context, postID uint) (*models.Image, error)
	Delete(ctx context.Context, id uint) error
}

type imageRepository struct {
	db *gorm.DB
}

// NewImageRepository returns a repository implementation for image metadata.
func NewImageRepository(db *gorm.DB) ImageRepository {
	return &imageRepository{db: db}
}

func (r *imageRepository) Create(ctx context.Context, image *models.Image) error {
	if err := r.db.WithContext(ctx).Create(image).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewAlreadyExistsError("Image already exists for this owner")
		}
		return err
	}
	return nil
}

func (r *imageRepository) GetByUserID(ctx context.Context, userID uint) (*models.Image, error) {
	var image models.Image
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&image).Error; err != nil {
		return nil, err
	}
	return &image, nil
}

func (r *imageRepository) GetByPostID(ctx context.Context, postID uint) (*models.Image, error) {
	var image models.Image
	if err := r.db.WithContext(ctx).Where("post_id = ?", postID).First(&image).Error; err != nil {
		return nil, err
	}
	return &image, nil
}

func (r *imageRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Image{}, id).Error
}
