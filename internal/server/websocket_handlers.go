package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"snapgram/internal/middleware"
	"snapgram/internal/notifications"
	"snapgram/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// chatSocketEvent is the inbound websocket message format.
type chatSocketEvent struct {
	Type     string `json:"type"`
	ChatName string `json:"chat_name"`
	Content  string `json:"content"`
	IsTyping bool   `json:"is_typing"`
}

// WebSocketChatHandler handles WebSocket connections for real-time chat
func (s *Server) WebSocketChatHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		ctx := context.Background()

		// Get userID from locals (set by AuthRequired middleware)
		userIDVal := conn.Locals("userID")
		if userIDVal == nil {
			log.Printf("WebSocket Chat: Unauthenticated connection attempt")
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
			_ = conn.Close()
			return
		}
		userID := userIDVal.(uint)

		// Tickets carry only the user ID; resolve the username here.
		user, err := s.userRepo.GetByID(ctx, userID)
		if err != nil || user == nil {
			log.Printf("WebSocket Chat: Failed to get user %d: %v", userID, err)
			_ = conn.Close()
			return
		}
		username := user.Username

		log.Printf("WebSocket: User %d (%s) connected to chat", userID, username)

		client, err := s.chatHub.Register(userID, conn)
		if err != nil {
			log.Printf("WebSocket Chat: Failed to register user %d: %v", userID, err)
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}
		client.Username = username

		client.IncomingHandler = func(c *notifications.Client, raw []byte) {
			var event chatSocketEvent
			if err := json.Unmarshal(raw, &event); err != nil {
				log.Printf("WebSocket: Invalid message format from user %d", userID)
				return
			}

			chatName := strings.TrimSpace(event.ChatName)
			if chatName == "" {
				return
			}

			switch event.Type {
			case "join":
				conv, err := s.chatService.FindOrCreateConversation(ctx, chatName)
				if err != nil {
					return
				}
				s.chatHub.JoinConversation(userID, conv.ID)

				response := notifications.ChatEvent{
					Type:           "joined",
					ConversationID: conv.ID,
					Payload:        map[string]interface{}{"chat_name": conv.Name},
				}
				if responseJSON, err := json.Marshal(response); err == nil {
					c.TrySend(responseJSON)
				}

				if s.notifier != nil {
					if perr := s.notifier.PublishPresence(ctx, conv.ID, userID, username, "online"); perr != nil {
						log.Printf("publish presence error: %v", perr)
					}
				}

			case "leave":
				conv, err := s.chatRepo.GetConversationByName(ctx, chatName)
				if err != nil || conv == nil {
					return
				}
				s.chatHub.LeaveConversation(userID, conv.ID)

				if s.notifier != nil {
					if perr := s.notifier.PublishPresence(ctx, conv.ID, userID, username, "offline"); perr != nil {
						log.Printf("publish presence error: %v", perr)
					}
				}

			case "typing":
				conv, err := s.chatRepo.GetConversationByName(ctx, chatName)
				if err != nil || conv == nil {
					return
				}

				// Rate limit typing indicators to keep spam off the channel.
				id := fmt.Sprintf("user:%d", userID)
				allowed, _ := middleware.CheckRateLimit(ctx, s.redis, "typing", id, 10, 10*time.Second)
				if !allowed {
					return
				}

				if s.notifier != nil {
					if perr := s.notifier.PublishTypingIndicator(ctx, conv.ID, userID, username, event.IsTyping); perr != nil {
						log.Printf("publish typing indicator error: %v", perr)
					}
				}

			case "message":
				if event.Content == "" {
					return
				}

				// Same budget as the HTTP comment/post endpoints.
				id := fmt.Sprintf("user:%d", userID)
				allowed, _ := middleware.CheckRateLimit(ctx, s.redis, "send_chat", id, 15, time.Minute)
				if !allowed {
					response := notifications.ChatEvent{
						Type: "error",
						Payload: map[string]string{
							"message": "Rate limit exceeded. Please wait a moment.",
						},
					}
					if respJSON, err := json.Marshal(response); err == nil {
						c.TrySend(respJSON)
					}
					return
				}

				// Persist first; the service publishes to Redis after the
				// write and the hub wiring delivers to subscribers.
				if _, err := s.chatService.SendMessage(ctx, service.SendMessageInput{
					Sender:   username,
					ChatName: chatName,
					Content:  event.Content,
				}); err != nil {
					log.Printf("WebSocket: Failed to send message for user %d: %v", userID, err)
					response := notifications.ChatEvent{
						Type:    "error",
						Payload: map[string]string{"message": err.Error()},
					}
					if respJSON, merr := json.Marshal(response); merr == nil {
						c.TrySend(respJSON)
					}
				}
			}
		}

		// Send welcome message
		welcome := notifications.ChatEvent{
			Type:    "connected",
			Payload: map[string]interface{}{"user_id": userID, "username": username},
		}
		if welcomeJSON, err := json.Marshal(welcome); err == nil {
			client.TrySend(welcomeJSON)
		}

		// Start write pump in a goroutine
		go client.WritePump()

		// Read pump runs in the main handler goroutine (blocking)
		client.ReadPump()
	})
}
