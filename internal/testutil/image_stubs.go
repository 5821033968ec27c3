// Package testutil provides shared test doubles and fixtures for backend tests.
package testutil

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"sync"
	"time"

	"snapgram/internal/models"

	"gorm.io/gorm"
)

// ImageRepoStub is an in-memory image repository implementation for tests.
type ImageRepoStub struct {
	items  map[uint]*models.Image
	nextID uint
}

// NewImageRepoStub creates an in-memory image repository stub for tests.
func NewImageRepoStub() *ImageRepoStub {
	return &ImageRepoStub{items: make(map[uint]*models.Image), nextID: 1}
}

// Create stores image metadata in-memory.
func (s *ImageRepoStub) Create(_ context.Context, img *models.Image) error {
	if img.ID == 0 {
		img.ID = s.nextID
		s.nextID++
	}
	img.CreatedAt = time.Now().UTC()
	s.items[img.ID] = img
	return nil
}

// GetByUserID fetches the profile image record for a user.
func (s *ImageRepoStub) GetByUserID(_ context.Context, userID uint) (*models.Image, error) {
	for _, item := range s.items {
		if item.UserID != nil && *item.UserID == userID {
			return item, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// GetByPostID fetches the image record for a post.
func (s *ImageRepoStub) GetByPostID(_ context.Context, postID uint) (*models.Image, error) {
	for _, item := range s.items {
		if item.PostID != nil && *item.PostID == postID {
			return item, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// Delete removes an image record by ID.
func (s *ImageRepoStub) Delete(_ context.Context, id uint) error {
	if _, ok := s.items[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(s.items, id)
	return nil
}

// BlobStoreStub is an in-memory blob store for tests. It records the
// order of Put and Delete calls so tests can assert replacement order.
type BlobStoreStub struct {
	mu    sync.Mutex
	blobs map[string][]byte
	// Ops holds "put <key>" and "delete <key>" entries in call order.
	Ops []string
}

// NewBlobStoreStub creates an empty in-memory blob store.
func NewBlobStoreStub() *BlobStoreStub {
	return &BlobStoreStub{blobs: make(map[string][]byte)}
}

func (s *BlobStoreStub) Put(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	s.blobs[key] = buf
	s.Ops = append(s.Ops, "put "+key)
	return nil
}

func (s *BlobStoreStub) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.blobs[key]
	if !ok {
		return nil, fmt.Errorf("blob %q not found", key)
	}
	return data, nil
}

func (s *BlobStoreStub) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[key]; !ok {
		return fmt.Errorf("blob %q not found", key)
	}
	delete(s.blobs, key)
	s.Ops = append(s.Ops, "delete "+key)
	return nil
}

func (s *BlobStoreStub) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.blobs[key]
	return ok, nil
}

// TinyPNG returns an in-memory PNG byte slice with the requested dimensions.
func TinyPNG(t interface {
	Helper()
	Fatalf(string, ...any)
}, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	buf := bytes.NewBuffer(nil)
	if err := png.Encode(buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}
