// Package storage provides key-addressed blob storage for uploaded files.
package storage

import (
	"context"
	"fmt"
)

// BlobStore reads and writes opaque blobs under string keys. Keys use
// forward slashes regardless of platform, e.g. "profile-images/42/cat.png".
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// ProfileImageKey builds the deterministic key for a user's profile image.
func ProfileImageKey(userID uint, filename string) string {
	return fmt.Sprintf("profile-images/%d/%s", userID, filename)
}

// PostImageKey builds the deterministic key for a post's image.
func PostImageKey(postID uint, filename string) string {
	return fmt.Sprintf("post-images/%d/%s", postID, filename)
}
