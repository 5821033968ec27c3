package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"runtime/debug"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// Notifier publishes chat events into Redis channels. A nil Redis client
// degrades every publish to a no-op so single-instance deployments still work.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishChatMessage publishes a chat message to a conversation channel
func (n *Notifier) PublishChatMessage(
	ctx context.Context, conversationID uint, payload string,
) error {
	if n.rdb == nil {
		return nil
	}
	return n.rdb.Publish(ctx, ConversationChannel(conversationID), payload).Err()
}

// PublishTypingIndicator publishes a typing indicator to a conversation
func (n *Notifier) PublishTypingIndicator(
	ctx context.Context, conversationID, userID uint, username string, isTyping bool,
) error {
	if n.rdb == nil {
		return nil
	}
	channel := fmt.Sprintf("typing:conv:%d", conversationID)
	payload := map[string]interface{}{
		"user_id":       userID,
		"username":      username,
		"is_typing":     isTyping,
		"expires_in_ms": 5000,
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return n.rdb.Publish(ctx, channel, string(payloadJSON)).Err()
}

// PublishPresence publishes a user's presence status to a conversation
func (n *Notifier) PublishPresence(
	ctx context.Context, conversationID, userID uint, username, status string,
) error {
	if n.rdb == nil {
		return nil
	}
	channel := fmt.Sprintf("presence:conv:%d", conversationID)
	payload := map[string]interface{}{
		"user_id":  userID,
		"username": username,
		"status":   status, // "online", "offline", "away"
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return n.rdb.Publish(ctx, channel, string(payloadJSON)).Err()
}

// StartChatSubscriber subscribes to chat-related patterns and calls onMessage
// for each incoming message. Subscribes to: chat:conv:*, typing:conv:*, presence:conv:*
func (n *Notifier) StartChatSubscriber(
	ctx context.Context, onMessage func(channel string, payload string),
) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, "chat:conv:*", "typing:conv:*", "presence:conv:*")
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							log.Printf("PANIC in ChatSubscriber: %v\n%s", r, debug.Stack())
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}

// ConversationChannel derives the Redis channel name for a conversation.
func ConversationChannel(conversationID uint) string {
	return "chat:conv:" + strconv.FormatUint(uint64(conversationID), 10)
}
