package service

import (
	"context"

	"snapgram/internal/cache"
	"snapgram/internal/models"
	"snapgram/internal/observability"
	"snapgram/internal/repository"
	"snapgram/internal/storage"

	"go.opentelemetry.io/otel/attribute"
)

type PostService struct {
	postRepo  repository.PostRepository
	imageRepo repository.ImageRepository
	blobs     storage.BlobStore
	isAdmin   func(ctx context.Context, userID uint) (bool, error)
}

type CreatePostInput struct {
	UserID   uint
	Title    string
	Caption  string
	Location string
}

type ListPostsInput struct {
	Limit         int
	Offset        int
	CurrentUserID uint
}

type DeletePostInput struct {
	UserID uint
	PostID uint
}

func NewPostService(
	postRepo repository.PostRepository,
	imageRepo repository.ImageRepository,
	blobs storage.BlobStore,
	isAdmin func(ctx context.Context, userID uint) (bool, error),
) *PostService {
	return &PostService{
		postRepo:  postRepo,
		imageRepo: imageRepo,
		blobs:     blobs,
		isAdmin:   isAdmin,
	}
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	const maxTitleLen = 300
	const maxCaptionLen = 5000
	const maxLocationLen = 200

	if in.Title == "" {
		return nil, models.NewValidationError("Title is required")
	}
	if len(in.Title) > maxTitleLen {
		return nil, models.NewValidationError("Title too long (max 300 characters)")
	}
	if len(in.Caption) > maxCaptionLen {
		return nil, models.NewValidationError("Caption too long (max 5000 characters)")
	}
	if len(in.Location) > maxLocationLen {
		return nil, models.NewValidationError("Location too long (max 200 characters)")
	}

	post := &models.Post{
		Title:    in.Title,
		Caption:  in.Caption,
		Location: in.Location,
		UserID:   in.UserID,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}

	return s.postRepo.GetByID(ctx, post.ID, in.UserID)
}

func (s *PostService) ListPosts(ctx context.Context, in ListPostsInput) ([]*models.Post, error) {
	var posts []*models.Post
	var err error

	if in.Offset == 0 && in.Limit <= 20 {
		key := cache.PostsListKey(ctx)
		err = cache.Aside(ctx, key, &posts, cache.ListTTL, func() error {
			var fetchErr error
			posts, fetchErr = s.postRepo.List(ctx, in.Limit, in.Offset, 0)
			return fetchErr
		})
		if err != nil {
			return nil, err
		}

		// Re-enrich with current user's liked status if they are logged in
		if in.CurrentUserID != 0 && len(posts) > 0 {
			postIDs := make([]uint, len(posts))
			for i, p := range posts {
				postIDs[i] = p.ID
			}

			likedIDs, err := s.postRepo.GetLikedPostIDs(ctx, in.CurrentUserID, postIDs)
			if err == nil {
				likedMap := make(map[uint]bool, len(likedIDs))
				for _, id := range likedIDs {
					likedMap[id] = true
				}
				for _, p := range posts {
					p.Liked = likedMap[p.ID]
				}
			}
		}
		return posts, nil
	}

	posts, err = s.postRepo.List(ctx, in.Limit, in.Offset, in.CurrentUserID)
	if err != nil {
		return nil, err
	}
	return posts, nil
}

func (s *PostService) GetPost(ctx context.Context, id uint, currentUserID uint) (*models.Post, error) {
	return s.postRepo.GetByID(ctx, id, currentUserID)
}

func (s *PostService) GetUserPosts(ctx context.Context, userID uint, limit, offset int, currentUserID uint) ([]*models.Post, error) {
	return s.postRepo.GetByUserID(ctx, userID, limit, offset, currentUserID)
}

// DeletePost removes the post, its likes and comments, and its image
// blob and record. The blob delete runs outside the DB transaction; a
// crash in between can orphan the record's absence, never the listing.
// A post owned by someone else reads as absent, so non-owners cannot
// probe which post IDs exist.
func (s *PostService) DeletePost(ctx context.Context, in DeletePostInput) error {
	post, err := s.postRepo.GetByID(ctx, in.PostID, in.UserID)
	if err != nil {
		return err
	}

	if post.UserID != in.UserID {
		if s.isAdmin == nil {
			return models.NewNotFoundError("Post", in.PostID)
		}
		admin, err := s.isAdmin(ctx, in.UserID)
		if err != nil {
			return err
		}
		if !admin {
			return models.NewNotFoundError("Post", in.PostID)
		}
	}

	if img, imgErr := s.imageRepo.GetByPostID(ctx, in.PostID); imgErr == nil && img != nil {
		if s.blobs != nil {
			if err := s.blobs.Delete(ctx, img.Key); err != nil {
				return models.NewIOError("Failed to delete post image blob", err)
			}
		}
		if err := s.imageRepo.Delete(ctx, img.ID); err != nil {
			return err
		}
	}

	return s.postRepo.Delete(ctx, in.PostID)
}

// ToggleLike flips the caller's like on the post and returns the fresh
// post view. A repeated call restores the previous state.
func (s *PostService) ToggleLike(ctx context.Context, userID, postID uint) (*models.Post, error) {
	span, ctx := observability.NewSpan(ctx, "PostService.ToggleLike")
	defer span.End()
	span.AddAttributes(
		attribute.Int("post.id", int(postID)),
		attribute.Int("user.id", int(userID)),
	)

	if _, err := s.postRepo.GetByID(ctx, postID, userID); err != nil {
		span.SetError(err)
		return nil, err
	}

	liked, err := s.postRepo.ToggleLike(ctx, userID, postID)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	observability.LikesToggled.WithLabelValues(likeAction(liked)).Inc()

	return s.postRepo.GetByID(ctx, postID, userID)
}

func likeAction(liked bool) string {
	if liked {
		return "like"
	}
	return "unlike"
}
