package service

import (
	"context"
	"errors"
	"testing"

	"snapgram/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// Function-field repository stubs shared across the service tests in
// this package. noop* constructors return stubs whose every method
// fails loudly unless a test installs a behavior.

type userRepoStub struct {
	getByIDFn       func(ctx context.Context, id uint) (*models.User, error)
	getByEmailFn    func(ctx context.Context, email string) (*models.User, error)
	getByUsernameFn func(ctx context.Context, username string) (*models.User, error)
	createFn        func(ctx context.Context, user *models.User) error
	updateFn        func(ctx context.Context, user *models.User) error
	deleteFn        func(ctx context.Context, id uint) error
	listFn          func(ctx context.Context, limit, offset int) ([]models.User, error)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn:       func(context.Context, uint) (*models.User, error) { return nil, errors.New("getByID not stubbed") },
		getByEmailFn:    func(context.Context, string) (*models.User, error) { return nil, errors.New("getByEmail not stubbed") },
		getByUsernameFn: func(context.Context, string) (*models.User, error) { return nil, errors.New("getByUsername not stubbed") },
		createFn:        func(context.Context, *models.User) error { return errors.New("create not stubbed") },
		updateFn:        func(context.Context, *models.User) error { return errors.New("update not stubbed") },
		deleteFn:        func(context.Context, uint) error { return errors.New("delete not stubbed") },
		listFn:          func(context.Context, int, int) ([]models.User, error) { return nil, errors.New("list not stubbed") },
	}
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}

func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}

func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}

func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}

func (s *userRepoStub) Update(ctx context.Context, user *models.User) error {
	return s.updateFn(ctx, user)
}

func (s *userRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}

func (s *userRepoStub) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	return s.listFn(ctx, limit, offset)
}

type postRepoStub struct {
	createFn          func(ctx context.Context, post *models.Post) error
	getByIDFn         func(ctx context.Context, id, currentUserID uint) (*models.Post, error)
	getByUserIDFn     func(ctx context.Context, userID uint, limit, offset int, currentUserID uint) ([]*models.Post, error)
	getOwnedFn        func(ctx context.Context, id, userID uint) (*models.Post, error)
	listFn            func(ctx context.Context, limit, offset int, currentUserID uint) ([]*models.Post, error)
	deleteFn          func(ctx context.Context, id uint) error
	isLikedFn         func(ctx context.Context, userID, postID uint) (bool, error)
	getLikedPostIDsFn func(ctx context.Context, userID uint, postIDs []uint) ([]uint, error)
	toggleLikeFn      func(ctx context.Context, userID, postID uint) (bool, error)
	likedUsernamesFn  func(ctx context.Context, postID uint) ([]string, error)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn:          func(context.Context, *models.Post) error { return errors.New("create not stubbed") },
		getByIDFn:         func(context.Context, uint, uint) (*models.Post, error) { return nil, errors.New("getByID not stubbed") },
		getByUserIDFn:     func(context.Context, uint, int, int, uint) ([]*models.Post, error) { return nil, errors.New("getByUserID not stubbed") },
		getOwnedFn:        func(context.Context, uint, uint) (*models.Post, error) { return nil, errors.New("getOwned not stubbed") },
		listFn:            func(context.Context, int, int, uint) ([]*models.Post, error) { return nil, errors.New("list not stubbed") },
		deleteFn:          func(context.Context, uint) error { return errors.New("delete not stubbed") },
		isLikedFn:         func(context.Context, uint, uint) (bool, error) { return false, errors.New("isLiked not stubbed") },
		getLikedPostIDsFn: func(context.Context, uint, []uint) ([]uint, error) { return nil, errors.New("getLikedPostIDs not stubbed") },
		toggleLikeFn:      func(context.Context, uint, uint) (bool, error) { return false, errors.New("toggleLike not stubbed") },
		likedUsernamesFn:  func(context.Context, uint) ([]string, error) { return nil, errors.New("likedUsernames not stubbed") },
	}
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}

func (s *postRepoStub) GetByID(ctx context.Context, id, currentUserID uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id, currentUserID)
}

func (s *postRepoStub) GetByUserID(ctx context.Context, userID uint, limit, offset int, currentUserID uint) ([]*models.Post, error) {
	return s.getByUserIDFn(ctx, userID, limit, offset, currentUserID)
}

func (s *postRepoStub) GetOwned(ctx context.Context, id, userID uint) (*models.Post, error) {
	return s.getOwnedFn(ctx, id, userID)
}

func (s *postRepoStub) List(ctx context.Context, limit, offset int, currentUserID uint) ([]*models.Post, error) {
	return s.listFn(ctx, limit, offset, currentUserID)
}

func (s *postRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}

func (s *postRepoStub) IsLiked(ctx context.Context, userID, postID uint) (bool, error) {
	return s.isLikedFn(ctx, userID, postID)
}

func (s *postRepoStub) GetLikedPostIDs(ctx context.Context, userID uint, postIDs []uint) ([]uint, error) {
	return s.getLikedPostIDsFn(ctx, userID, postIDs)
}

func (s *postRepoStub) ToggleLike(ctx context.Context, userID, postID uint) (bool, error) {
	return s.toggleLikeFn(ctx, userID, postID)
}

func (s *postRepoStub) LikedUsernames(ctx context.Context, postID uint) ([]string, error) {
	return s.likedUsernamesFn(ctx, postID)
}

type commentRepoStub struct {
	createFn     func(ctx context.Context, comment *models.Comment) error
	getByIDFn    func(ctx context.Context, id uint) (*models.Comment, error)
	listByPostFn func(ctx context.Context, postID uint, newestFirst bool) ([]*models.Comment, error)
	updateFn     func(ctx context.Context, comment *models.Comment) error
	deleteFn     func(ctx context.Context, id uint) error
}

func noopCommentRepo() *commentRepoStub {
	return &commentRepoStub{
		createFn:     func(context.Context, *models.Comment) error { return errors.New("create not stubbed") },
		getByIDFn:    func(context.Context, uint) (*models.Comment, error) { return nil, errors.New("getByID not stubbed") },
		listByPostFn: func(context.Context, uint, bool) ([]*models.Comment, error) { return nil, errors.New("listByPost not stubbed") },
		updateFn:     func(context.Context, *models.Comment) error { return errors.New("update not stubbed") },
		deleteFn:     func(context.Context, uint) error { return errors.New("delete not stubbed") },
	}
}

func (s *commentRepoStub) Create(ctx context.Context, comment *models.Comment) error {
	return s.createFn(ctx, comment)
}

func (s *commentRepoStub) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	return s.getByIDFn(ctx, id)
}

func (s *commentRepoStub) ListByPost(ctx context.Context, postID uint, newestFirst bool) ([]*models.Comment, error) {
	return s.listByPostFn(ctx, postID, newestFirst)
}

func (s *commentRepoStub) Update(ctx context.Context, comment *models.Comment) error {
	return s.updateFn(ctx, comment)
}

func (s *commentRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}

type chatRepoStub struct {
	findOrCreateFn      func(ctx context.Context, name string) (*models.Conversation, error)
	getByNameFn         func(ctx context.Context, name string) (*models.Conversation, error)
	searchFn            func(ctx context.Context, participant string) ([]*models.Conversation, error)
	updateParticipantFn func(ctx context.Context, convID uint, participant string) error
	createMessageFn     func(ctx context.Context, msg *models.Message) error
	getMessagesFn       func(ctx context.Context, convID uint, limit, offset int) ([]*models.Message, error)
}

func noopChatRepo() *chatRepoStub {
	return &chatRepoStub{
		findOrCreateFn:      func(context.Context, string) (*models.Conversation, error) { return nil, errors.New("findOrCreate not stubbed") },
		getByNameFn:         func(context.Context, string) (*models.Conversation, error) { return nil, errors.New("getByName not stubbed") },
		searchFn:            func(context.Context, string) ([]*models.Conversation, error) { return nil, errors.New("search not stubbed") },
		updateParticipantFn: func(context.Context, uint, string) error { return errors.New("updateParticipant not stubbed") },
		createMessageFn:     func(context.Context, *models.Message) error { return errors.New("createMessage not stubbed") },
		getMessagesFn:       func(context.Context, uint, int, int) ([]*models.Message, error) { return nil, errors.New("getMessages not stubbed") },
	}
}

func (s *chatRepoStub) FindOrCreateConversation(ctx context.Context, name string) (*models.Conversation, error) {
	return s.findOrCreateFn(ctx, name)
}

func (s *chatRepoStub) GetConversationByName(ctx context.Context, name string) (*models.Conversation, error) {
	return s.getByNameFn(ctx, name)
}

func (s *chatRepoStub) SearchByParticipant(ctx context.Context, participant string) ([]*models.Conversation, error) {
	return s.searchFn(ctx, participant)
}

func (s *chatRepoStub) UpdateParticipant(ctx context.Context, convID uint, participant string) error {
	return s.updateParticipantFn(ctx, convID, participant)
}

func (s *chatRepoStub) CreateMessage(ctx context.Context, msg *models.Message) error {
	return s.createMessageFn(ctx, msg)
}

func (s *chatRepoStub) GetMessages(ctx context.Context, convID uint, limit, offset int) ([]*models.Message, error) {
	return s.getMessagesFn(ctx, convID, limit, offset)
}

// publisherStub records published payloads per conversation.
type publisherStub struct {
	published []publishedMessage
	err       error
}

type publishedMessage struct {
	conversationID uint
	payload        string
}

func (s *publisherStub) PublishChatMessage(_ context.Context, conversationID uint, payload string) error {
	if s.err != nil {
		return s.err
	}
	s.published = append(s.published, publishedMessage{conversationID: conversationID, payload: payload})
	return nil
}

func assertAppErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertAppErrorCode(t, err, "VALIDATION_ERROR")
}

func assertUnauthorizedError(t *testing.T, err error) {
	t.Helper()
	assertAppErrorCode(t, err, "UNAUTHORIZED")
}

var errRecordNotFound = gorm.ErrRecordNotFound
