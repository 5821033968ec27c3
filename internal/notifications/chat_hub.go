// Package notifications provides real-time chat delivery over websockets
// with Redis pub/sub fan-out between instances.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"sync"

	"snapgram/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const maxConnsPerUser = 12

// ChatHub tracks websocket connections per user and per conversation.
// Conversation membership is presence only; delivery always goes through
// the user's full client set so every device receives the message.
type ChatHub struct {
	mu sync.RWMutex

	// conversationID -> set of userIDs currently viewing it
	conversations map[uint]map[uint]struct{}

	// userID -> set of conversationIDs they're actively viewing
	userActiveConvs map[uint]map[uint]struct{}

	// userID -> active clients (multi-device)
	userConns map[uint]map[*Client]struct{}

	presence *ConnectionManager
}

// Name returns a human-readable identifier for this hub.
func (h *ChatHub) Name() string { return "chat hub" }

// ChatEvent is the wire format broadcast to conversation subscribers.
type ChatEvent struct {
	Type           string      `json:"type"` // "message", "typing", "presence", "user_status", "connected_users"
	ConversationID uint        `json:"conversation_id,omitempty"`
	UserID         uint        `json:"user_id,omitempty"`
	Username       string      `json:"username,omitempty"`
	Payload        interface{} `json:"payload"`
}

// NewChatHub creates a ChatHub. presence may be nil when Redis is unavailable.
func NewChatHub(presence *ConnectionManager) *ChatHub {
	return &ChatHub{
		conversations:   make(map[uint]map[uint]struct{}),
		userActiveConvs: make(map[uint]map[uint]struct{}),
		userConns:       make(map[uint]map[*Client]struct{}),
		presence:        presence,
	}
}

// Register registers a user's websocket connection. Returns Client or error if limits exceeded.
func (h *ChatHub) Register(userID uint, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()

	if h.userConns[userID] == nil {
		h.userConns[userID] = make(map[*Client]struct{})
	}
	if len(h.userConns[userID]) >= maxConnsPerUser {
		h.mu.Unlock()
		return nil, fmt.Errorf("user connection limit reached")
	}

	client := NewClient(h, conn, userID)
	client.OnActivity = func(uid uint) {
		if h.presence != nil {
			h.presence.Touch(context.Background(), uid)
		}
	}
	h.userConns[userID][client] = struct{}{}
	activeClients := len(h.userConns[userID])

	onlineIDs := make([]uint, 0, len(h.userConns))
	for id := range h.userConns {
		if id != userID {
			onlineIDs = append(onlineIDs, id)
		}
	}
	h.mu.Unlock()

	observability.WebSocketConnectionsTotal.Inc()
	if h.presence != nil {
		h.presence.Register(context.Background(), userID)
	}

	log.Printf("ChatHub: Registered user %d (Active clients: %d)", userID, activeClients)

	// Initial snapshot so the new client knows who is already online.
	if len(onlineIDs) > 0 {
		snapshot := ChatEvent{
			Type:    "connected_users",
			Payload: map[string]interface{}{"user_ids": onlineIDs},
		}
		if jsonMsg, err := json.Marshal(snapshot); err == nil {
			client.TrySend(jsonMsg)
		}
	}

	h.BroadcastGlobalStatus(userID, "online")
	return client, nil
}

// UnregisterClient removes a websocket connection. When the user's last
// connection closes, their conversation subscriptions are cleaned up and
// an offline status is broadcast.
func (h *ChatHub) UnregisterClient(client *Client) {
	h.mu.Lock()

	clients, ok := h.userConns[client.UserID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, exists := clients[client]; !exists {
		h.mu.Unlock()
		return
	}
	delete(clients, client)

	if len(clients) > 0 {
		remaining := len(clients)
		h.mu.Unlock()
		observability.WebSocketConnectionsTotal.Dec()
		log.Printf("ChatHub: Unregistered client for user %d (Remaining clients: %d)", client.UserID, remaining)
		return
	}
	delete(h.userConns, client.UserID)

	if convs, ok := h.userActiveConvs[client.UserID]; ok {
		for convID := range convs {
			if users, ok := h.conversations[convID]; ok {
				delete(users, client.UserID)
				observability.WebSocketConversationConnections.WithLabelValues(formatConvID(convID)).Dec()
				if len(users) == 0 {
					delete(h.conversations, convID)
				}
			}
		}
		delete(h.userActiveConvs, client.UserID)
	}

	h.mu.Unlock()

	observability.WebSocketConnectionsTotal.Dec()
	if h.presence != nil {
		h.presence.Unregister(context.Background(), client.UserID)
	}

	log.Printf("ChatHub: Unregistered user %d (All connections closed)", client.UserID)

	h.BroadcastGlobalStatus(client.UserID, "offline")
}

// IsUserOnline returns true when the user has at least one active chat websocket client.
func (h *ChatHub) IsUserOnline(userID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.userConns[userID]
	return ok && len(clients) > 0
}

// JoinConversation subscribes a user to a conversation's events.
func (h *ChatHub) JoinConversation(userID, conversationID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.userConns[userID]; !ok {
		log.Printf("ChatHub: User %d not connected, cannot join conversation %d", userID, conversationID)
		return
	}

	if h.conversations[conversationID] == nil {
		h.conversations[conversationID] = make(map[uint]struct{})
	}
	if _, already := h.conversations[conversationID][userID]; already {
		return
	}
	h.conversations[conversationID][userID] = struct{}{}
	observability.WebSocketConversationConnections.WithLabelValues(formatConvID(conversationID)).Inc()

	if h.userActiveConvs[userID] == nil {
		h.userActiveConvs[userID] = make(map[uint]struct{})
	}
	h.userActiveConvs[userID][conversationID] = struct{}{}

	log.Printf("ChatHub: User %d joined conversation %d", userID, conversationID)
}

// LeaveConversation unsubscribes a user from a conversation.
func (h *ChatHub) LeaveConversation(userID, conversationID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if users, ok := h.conversations[conversationID]; ok {
		if _, member := users[userID]; member {
			delete(users, userID)
			observability.WebSocketConversationConnections.WithLabelValues(formatConvID(conversationID)).Dec()
		}
		if len(users) == 0 {
			delete(h.conversations, conversationID)
		}
	}

	if convs, ok := h.userActiveConvs[userID]; ok {
		delete(convs, conversationID)
	}

	log.Printf("ChatHub: User %d left conversation %d", userID, conversationID)
}

// BroadcastToConversation delivers an event to every client of every user
// viewing the conversation.
func (h *ChatHub) BroadcastToConversation(conversationID uint, event ChatEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	users, ok := h.conversations[conversationID]
	if !ok {
		return
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		log.Printf("ChatHub: Failed to marshal event: %v", err)
		return
	}

	for userID := range users {
		for client := range h.userConns[userID] {
			client.TrySend(eventJSON)
		}
	}
}

// GetActiveUsers returns the userIDs currently viewing a conversation.
func (h *ChatHub) GetActiveUsers(conversationID uint) []uint {
	h.mu.RLock()
	defer h.mu.RUnlock()

	users, ok := h.conversations[conversationID]
	if !ok {
		return []uint{}
	}

	result := make([]uint, 0, len(users))
	for userID := range users {
		result = append(result, userID)
	}
	return result
}

// IsUserActive checks if a user is currently viewing a conversation.
func (h *ChatHub) IsUserActive(userID, conversationID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if convs, ok := h.userActiveConvs[userID]; ok {
		_, active := convs[conversationID]
		return active
	}
	return false
}

// StartWiring connects the hub to Redis pub/sub so events published on any
// instance reach local subscribers.
func (h *ChatHub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartChatSubscriber(ctx, func(channel, payload string) {
		var conversationID uint
		var eventType string

		if _, err := fmt.Sscanf(channel, "chat:conv:%d", &conversationID); err == nil {
			eventType = "message"
		} else if _, err := fmt.Sscanf(channel, "typing:conv:%d", &conversationID); err == nil {
			eventType = "typing"
		} else if _, err := fmt.Sscanf(channel, "presence:conv:%d", &conversationID); err == nil {
			eventType = "presence"
		} else {
			log.Printf("ChatHub: Invalid channel format: %s", channel)
			return
		}

		var event ChatEvent
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			log.Printf("ChatHub: Failed to parse event from channel %s: %v", channel, err)
			return
		}

		if event.Type == "" {
			event.Type = eventType
		}
		event.ConversationID = conversationID

		observability.WebSocketEventsTotal.WithLabelValues(event.Type).Inc()
		h.BroadcastToConversation(conversationID, event)
	})
}

// BroadcastGlobalStatus sends a "user_status" event (online/offline) to all other users.
func (h *ChatHub) BroadcastGlobalStatus(userID uint, status string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	event := ChatEvent{
		Type:    "user_status",
		UserID:  userID,
		Payload: map[string]interface{}{"status": status, "user_id": userID},
	}

	jsonMsg, err := json.Marshal(event)
	if err != nil {
		log.Printf("ChatHub: Failed to marshal status event: %v", err)
		return
	}

	for id, clients := range h.userConns {
		if id == userID {
			continue
		}
		for client := range clients {
			client.TrySend(jsonMsg)
		}
	}
}

// Shutdown gracefully closes all websocket connections.
func (h *ChatHub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, clients := range h.userConns {
		for client := range clients {
			if err := client.Conn.WriteMessage(websocket.TextMessage,
				[]byte(`{"type":"server_shutdown","message":"Server is shutting down"}`)); err != nil {
				log.Printf("failed to write shutdown message for user %d: %v", userID, err)
			}
			if err := client.Conn.Close(); err != nil {
				log.Printf("failed to close websocket for user %d: %v", userID, err)
			}
		}
	}

	h.conversations = make(map[uint]map[uint]struct{})
	h.userActiveConvs = make(map[uint]map[uint]struct{})
	h.userConns = make(map[uint]map[*Client]struct{})

	return nil
}

func formatConvID(conversationID uint) string {
	return strconv.FormatUint(uint64(conversationID), 10)
}
