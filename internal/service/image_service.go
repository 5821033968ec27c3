package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"mime"
	"net/http"
	"path"
	"strings"

	"snapgram/internal/config"
	"snapgram/internal/models"
	"snapgram/internal/repository"
	"snapgram/internal/storage"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
	"gorm.io/gorm"

	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
)

const (
	DefaultImageMaxUploadSizeMB = 10
	MasterMaxSize               = 2048
	WebPQuality                 = 70
)

type UploadImageInput struct {
	UserID      uint
	Filename    string
	ContentType string
	Content     []byte
}

// UploadPostImageInput attaches an image to a post the caller owns.
type UploadPostImageInput struct {
	UploadImageInput
	PostID uint
}

// ImageService stores image blobs in a BlobStore and tracks one metadata
// record per owner. Uploads re-encode to webp before the blob write.
//
// Replacement is ordered: old blob, old record, new blob, new record.
// The steps are not one transaction; a crash in between can orphan a
// blob or drop an image, which is preferred over serving a stale blob
// under a fresh record.
type ImageService struct {
	imageRepo          repository.ImageRepository
	postRepo           repository.PostRepository
	blobs              storage.BlobStore
	maxUploadSizeBytes int64
}

func NewImageService(
	imageRepo repository.ImageRepository,
	postRepo repository.PostRepository,
	blobs storage.BlobStore,
	cfg *config.Config,
) *ImageService {
	maxUploadSizeMB := DefaultImageMaxUploadSizeMB
	if cfg != nil && cfg.ImageMaxUploadSizeMB > 0 {
		maxUploadSizeMB = cfg.ImageMaxUploadSizeMB
	}

	return &ImageService{
		imageRepo:          imageRepo,
		postRepo:           postRepo,
		blobs:              blobs,
		maxUploadSizeBytes: int64(maxUploadSizeMB) * 1024 * 1024,
	}
}

// UploadProfileImage stores the image as the user's profile image,
// replacing any previous one.
func (s *ImageService) UploadProfileImage(ctx context.Context, in UploadImageInput) (*models.Image, error) {
	encoded, filename, err := s.validateAndEncode(in)
	if err != nil {
		return nil, err
	}

	if err := s.removeExisting(ctx, func() (*models.Image, error) {
		return s.imageRepo.GetByUserID(ctx, in.UserID)
	}); err != nil {
		return nil, err
	}

	key := storage.ProfileImageKey(in.UserID, filename)
	if err := s.blobs.Put(ctx, key, encoded); err != nil {
		return nil, models.NewIOError("Failed to store profile image", err)
	}

	userID := in.UserID
	img := &models.Image{
		Name:        filename,
		Key:         key,
		ContentType: "image/webp",
		Size:        int64(len(encoded)),
		UserID:      &userID,
	}
	if err := s.imageRepo.Create(ctx, img); err != nil {
		return nil, err
	}
	return img, nil
}

// UploadPostImage stores the image for a post. The post must exist and
// belong to the caller; anything else is an illegal state.
func (s *ImageService) UploadPostImage(ctx context.Context, in UploadPostImageInput) (*models.Image, error) {
	encoded, filename, err := s.validateAndEncode(in.UploadImageInput)
	if err != nil {
		return nil, err
	}

	if _, err := s.postRepo.GetOwned(ctx, in.PostID, in.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewIllegalStateError("Post must exist and belong to the uploading user")
		}
		return nil, models.NewInternalError(err)
	}

	if err := s.removeExisting(ctx, func() (*models.Image, error) {
		return s.imageRepo.GetByPostID(ctx, in.PostID)
	}); err != nil {
		return nil, err
	}

	key := storage.PostImageKey(in.PostID, filename)
	if err := s.blobs.Put(ctx, key, encoded); err != nil {
		return nil, models.NewIOError("Failed to store post image", err)
	}

	postID := in.PostID
	img := &models.Image{
		Name:        filename,
		Key:         key,
		ContentType: "image/webp",
		Size:        int64(len(encoded)),
		PostID:      &postID,
	}
	if err := s.imageRepo.Create(ctx, img); err != nil {
		return nil, err
	}
	return img, nil
}

// GetProfileImage returns the user's profile image record and blob.
func (s *ImageService) GetProfileImage(ctx context.Context, userID uint) (*models.Image, []byte, error) {
	img, err := s.imageRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, models.NewNotFoundError("Profile image for user", userID)
		}
		return nil, nil, models.NewInternalError(err)
	}
	data, err := s.blobs.Get(ctx, img.Key)
	if err != nil {
		return nil, nil, models.NewIOError("Failed to read profile image", err)
	}
	return img, data, nil
}

// GetPostImage returns the post's image record and blob.
func (s *ImageService) GetPostImage(ctx context.Context, postID uint) (*models.Image, []byte, error) {
	img, err := s.imageRepo.GetByPostID(ctx, postID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, models.NewNotFoundError("Image for post", postID)
		}
		return nil, nil, models.NewInternalError(err)
	}
	data, err := s.blobs.Get(ctx, img.Key)
	if err != nil {
		return nil, nil, models.NewIOError("Failed to read post image", err)
	}
	return img, data, nil
}

// DeleteProfileImage removes the user's profile image blob and record.
// Deleting when no image exists is a no-op, so the call is idempotent.
func (s *ImageService) DeleteProfileImage(ctx context.Context, userID uint) error {
	img, err := s.imageRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return models.NewInternalError(err)
	}
	if err := s.blobs.Delete(ctx, img.Key); err != nil {
		return models.NewIOError("Failed to delete profile image blob", err)
	}
	return s.imageRepo.Delete(ctx, img.ID)
}

// removeExisting deletes the current image blob and record if one exists.
func (s *ImageService) removeExisting(ctx context.Context, lookup func() (*models.Image, error)) error {
	existing, err := lookup()
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return models.NewInternalError(err)
	}
	if err := s.blobs.Delete(ctx, existing.Key); err != nil {
		return models.NewIOError("Failed to delete previous image blob", err)
	}
	return s.imageRepo.Delete(ctx, existing.ID)
}

// validateAndEncode checks the upload and re-encodes it as webp. The
// returned filename keeps the upload's base name with a .webp extension.
func (s *ImageService) validateAndEncode(in UploadImageInput) ([]byte, string, error) {
	if in.UserID == 0 {
		return nil, "", models.NewValidationError("Invalid user")
	}
	if len(in.Content) == 0 {
		return nil, "", models.NewValidationError("No file uploaded")
	}
	if int64(len(in.Content)) > s.maxUploadSizeBytes {
		return nil, "", models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxUploadSizeBytes/(1024*1024)))
	}

	detectedType := http.DetectContentType(in.Content)
	if !isAllowedImageMIME(detectedType) {
		return nil, "", models.NewValidationError("Invalid image type")
	}
	if provided := normalizeContentType(in.ContentType); strings.HasPrefix(provided, "image/") && !isMatchingContentType(provided, detectedType) {
		return nil, "", models.NewValidationError("Image content type mismatch")
	}

	decoded, _, err := image.Decode(bytes.NewReader(in.Content))
	if err != nil {
		return nil, "", models.NewValidationError("Invalid image file")
	}

	resized := resizeToFit(decoded, MasterMaxSize, MasterMaxSize)
	encoded, err := encodeWebP(resized, WebPQuality)
	if err != nil {
		return nil, "", models.NewInternalError(err)
	}

	return encoded, sanitizeFilename(in.Filename), nil
}

// sanitizeFilename strips any path components and forces a .webp
// extension to match the stored encoding.
func sanitizeFilename(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "image"
	}
	if ext := path.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	return base + ".webp"
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scaleW := float64(maxWidth) / float64(w)
	scaleH := float64(maxHeight) / float64(h)
	scale := scaleW
	if scaleH < scale {
		scale = scaleH
	}
	newW := int(float64(w) * scale)
	newH := int(float64(h) * scale)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isAllowedImageMIME(contentType string) bool {
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func isMatchingContentType(provided, detected string) bool {
	p := normalizeContentType(provided)
	d := normalizeContentType(detected)
	if p == d {
		return true
	}
	return (p == "image/jpg" && d == "image/jpeg") || (p == "image/jpeg" && d == "image/jpg")
}
