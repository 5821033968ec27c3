package server

import (
	"strings"

	"snapgram/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetOrCreateConversation handles GET /api/chat/conversations?name=
// @Summary Find or create a conversation by name
// @Tags chat
// @Produce json
// @Param name query string true "Conversation name"
// @Success 200 {object} models.Conversation
// @Failure 400 {object} models.ErrorResponse
// @Router /chat/conversations [get]
func (s *Server) GetOrCreateConversation(c *fiber.Ctx) error {
	name := c.Query("name")

	conv, err := s.chatService.FindOrCreateConversation(c.UserContext(), name)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.JSON(conv)
}

// GetMessages handles GET /api/chat/messages?chatName=
// @Summary List messages for a conversation, oldest first
// @Description Unknown conversation names yield an empty list
// @Tags chat
// @Produce json
// @Param chatName query string true "Conversation name"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {array} models.Message
// @Router /chat/messages [get]
func (s *Server) GetMessages(c *fiber.Ctx) error {
	chatName := c.Query("chatName")
	page := parsePagination(c, 50)

	messages, err := s.chatService.GetMessages(c.UserContext(), chatName, page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.JSON(messages)
}

// SearchConversations handles GET /api/chat/search?participant=
// @Summary Search conversations by participant substring
// @Tags chat
// @Produce json
// @Param participant query string true "Participant substring"
// @Success 200 {array} models.Conversation
// @Failure 400 {object} models.ErrorResponse
// @Router /chat/search [get]
func (s *Server) SearchConversations(c *fiber.Ctx) error {
	participant := strings.TrimSpace(c.Query("participant"))
	if participant == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Participant query is required"))
	}

	conversations, err := s.chatService.SearchConversations(c.UserContext(), participant)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.JSON(conversations)
}
