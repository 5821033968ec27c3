package repository

import (
	"context"
	"errors"

	"snapgram/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChatRepository defines the interface for chat data operations
type ChatRepository interface {
	FindOrCreateConversation(ctx context.Context, name string) (*models.Conversation, error)
	GetConversationByName(ctx context.Context, name string) (*models.Conversation, error)
	SearchByParticipant(ctx context.Context, participant string) ([]*models.Conversation, error)
	UpdateParticipant(ctx context.Context, convID uint, participant string) error
	CreateMessage(ctx context.Context, msg *models.Message) error
	GetMessages(ctx context.Context, convID uint, limit, offset int) ([]*models.Message, error)
}

// chatRepository implements ChatRepository
type chatRepository struct {
	db *gorm.DB
}

// NewChatRepository creates a new chat repository
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

// FindOrCreateConversation returns the conversation with the given name,
// creating it if absent. The insert runs with ON CONFLICT DO NOTHING
// against the unique name index, so concurrent callers converge on the
// same row.
func (r *chatRepository) FindOrCreateConversation(ctx context.Context, name string) (*models.Conversation, error) {
	conv := models.Conversation{Name: name}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(&conv).Error
	if err != nil {
		return nil, err
	}

	// On conflict the insert assigns no ID; re-read either way so the
	// caller always sees the persisted row.
	return r.GetConversationByName(ctx, name)
}

func (r *chatRepository) GetConversationByName(ctx context.Context, name string) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&conv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &conv, nil
}

// SearchByParticipant matches the free-text participant field by substring.
func (r *chatRepository) SearchByParticipant(ctx context.Context, participant string) ([]*models.Conversation, error) {
	var conversations []*models.Conversation
	err := r.db.WithContext(ctx).
		Where("participant LIKE ?", "%"+participant+"%").
		Order("updated_at DESC").
		Find(&conversations).Error
	return conversations, err
}

func (r *chatRepository) UpdateParticipant(ctx context.Context, convID uint, participant string) error {
	return r.db.WithContext(ctx).Model(&models.Conversation{}).
		Where("id = ?", convID).
		Update("participant", participant).Error
}

func (r *chatRepository) CreateMessage(ctx context.Context, msg *models.Message) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

func (r *chatRepository) GetMessages(ctx context.Context, convID uint, limit, offset int) ([]*models.Message, error) {
	var messages []*models.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", convID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	// Reverse messages to return them in chronological order (oldest -> newest)
	// We fetched DESC to get the *latest* messages, but client expects ASC
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}
