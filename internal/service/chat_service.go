// Package service provides application business logic (chat, posts, users, etc.).
package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"snapgram/internal/middleware"
	"snapgram/internal/models"
	"snapgram/internal/observability"
	"snapgram/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// MessageTimestampLayout is the display format written onto every
// message at send time.
const MessageTimestampLayout = "2006/01/02-15:04"

const maxMessageContentLen = 10000 // 10K characters

// MessagePublisher fans a persisted message out to a conversation
// channel. notifications.Notifier satisfies this.
type MessagePublisher interface {
	PublishChatMessage(ctx context.Context, conversationID uint, payload string) error
}

// ChatService provides conversation and messaging business logic.
// Conversations are created lazily by name; messages are persisted
// first and published after.
type ChatService struct {
	chatRepo  repository.ChatRepository
	publisher MessagePublisher
	now       func() time.Time
}

// SendMessageInput is the input for sending a message.
type SendMessageInput struct {
	Sender   string
	ChatName string
	Content  string
}

// NewChatService returns a new ChatService.
func NewChatService(chatRepo repository.ChatRepository, publisher MessagePublisher) *ChatService {
	return &ChatService{
		chatRepo:  chatRepo,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// FindOrCreateConversation returns the conversation with the given
// name, creating it when it does not exist yet.
func (s *ChatService) FindOrCreateConversation(ctx context.Context, name string) (*models.Conversation, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, models.NewValidationError("Conversation name is required")
	}
	return s.chatRepo.FindOrCreateConversation(ctx, name)
}

// GetMessages returns the conversation's messages oldest first. An
// unknown conversation name yields an empty list, not an error.
func (s *ChatService) GetMessages(ctx context.Context, chatName string, limit, offset int) ([]*models.Message, error) {
	conv, err := s.chatRepo.GetConversationByName(ctx, chatName)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return []*models.Message{}, nil
	}
	return s.chatRepo.GetMessages(ctx, conv.ID, limit, offset)
}

// SearchConversations matches conversations whose participant field
// contains the given substring.
func (s *ChatService) SearchConversations(ctx context.Context, participant string) ([]*models.Conversation, error) {
	if strings.TrimSpace(participant) == "" {
		return nil, models.NewValidationError("Participant query is required")
	}
	return s.chatRepo.SearchByParticipant(ctx, participant)
}

// SendMessage persists the message on the named conversation (created
// lazily) and then publishes it to the conversation channel. Publish
// failures do not roll back the persisted message; they are logged
// and counted instead.
func (s *ChatService) SendMessage(ctx context.Context, in SendMessageInput) (*models.Message, error) {
	span, ctx := observability.NewSpan(ctx, "ChatService.SendMessage")
	defer span.End()
	span.AddAttributes(
		attribute.String("chat.name", in.ChatName),
		attribute.String("chat.sender", in.Sender),
	)

	if strings.TrimSpace(in.Sender) == "" {
		return nil, models.NewValidationError("Sender is required")
	}
	if in.Content == "" {
		return nil, models.NewValidationError("Message content is required")
	}
	if len(in.Content) > maxMessageContentLen {
		return nil, models.NewValidationError("Message content too long (max 10000 characters)")
	}

	conv, err := s.FindOrCreateConversation(ctx, in.ChatName)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	if updated, changed := appendParticipant(conv.Participant, in.Sender); changed {
		if err := s.chatRepo.UpdateParticipant(ctx, conv.ID, updated); err != nil {
			return nil, err
		}
	}

	message := &models.Message{
		ConversationID: conv.ID,
		Sender:         in.Sender,
		Timestamp:      s.now().Format(MessageTimestampLayout),
		Content:        in.Content,
	}
	if err := s.chatRepo.CreateMessage(ctx, message); err != nil {
		span.SetError(err)
		return nil, err
	}

	if s.publisher != nil {
		envelope := struct {
			Type           string          `json:"type"`
			ConversationID uint            `json:"conversation_id"`
			Username       string          `json:"username"`
			Payload        *models.Message `json:"payload"`
		}{
			Type:           "message",
			ConversationID: conv.ID,
			Username:       in.Sender,
			Payload:        message,
		}
		if payload, merr := json.Marshal(envelope); merr != nil {
			observability.MessagePublishFailures.Inc()
			middleware.Logger.ErrorContext(ctx, "Chat message fan-out marshal failed",
				slog.Uint64("conversation_id", uint64(conv.ID)), slog.Any("error", merr))
		} else if perr := s.publisher.PublishChatMessage(ctx, conv.ID, string(payload)); perr != nil {
			observability.MessagePublishFailures.Inc()
			middleware.Logger.ErrorContext(ctx, "Chat message fan-out publish failed",
				slog.Uint64("conversation_id", uint64(conv.ID)), slog.Any("error", perr))
		} else {
			observability.MessagesPublished.Inc()
		}
	}

	return message, nil
}

// appendParticipant adds name to the comma separated participant list
// unless it is already present.
func appendParticipant(participants, name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return participants, false
	}
	for _, existing := range strings.Split(participants, ",") {
		if strings.TrimSpace(existing) == name {
			return participants, false
		}
	}
	if participants == "" {
		return name, true
	}
	return participants + "," + name, true
}
