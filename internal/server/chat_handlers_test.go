package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"snapgram/internal/models"
	"snapgram/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newChatTestServer(chatRepo *MockChatRepository) *Server {
	s := &Server{chatRepo: chatRepo}
	s.chatService = service.NewChatService(chatRepo, nil)
	return s
}

func TestGetOrCreateConversation(t *testing.T) {
	chatRepo := new(MockChatRepository)
	s := newChatTestServer(chatRepo)

	app := authApp(1, "alice")
	app.Get("/chat/conversations", s.GetOrCreateConversation)

	t.Run("Missing name", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/chat/conversations", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("Creates on first use", func(t *testing.T) {
		chatRepo.On("FindOrCreateConversation", mock.Anything, "general").
			Return(&models.Conversation{ID: 1, Name: "general"}, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/chat/conversations?name=general", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var conv models.Conversation
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&conv))
		assert.Equal(t, "general", conv.Name)
	})

	chatRepo.AssertExpectations(t)
}

func TestGetMessages(t *testing.T) {
	chatRepo := new(MockChatRepository)
	s := newChatTestServer(chatRepo)

	app := authApp(1, "alice")
	app.Get("/chat/messages", s.GetMessages)

	t.Run("Unknown conversation yields empty list", func(t *testing.T) {
		chatRepo.On("GetConversationByName", mock.Anything, "nowhere").
			Return(nil, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/chat/messages?chatName=nowhere", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.JSONEq(t, "[]", string(body))
	})

	t.Run("Returns messages oldest first", func(t *testing.T) {
		chatRepo.On("GetConversationByName", mock.Anything, "general").
			Return(&models.Conversation{ID: 3, Name: "general"}, nil).Once()
		chatRepo.On("GetMessages", mock.Anything, uint(3), 50, 0).
			Return([]*models.Message{
				{ID: 1, ConversationID: 3, Sender: "alice", Content: "hi"},
				{ID: 2, ConversationID: 3, Sender: "bob", Content: "hey"},
			}, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/chat/messages?chatName=general", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var messages []models.Message
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&messages))
		require.Len(t, messages, 2)
		assert.Equal(t, "hi", messages[0].Content)
	})

	chatRepo.AssertExpectations(t)
}

func TestSearchConversations(t *testing.T) {
	chatRepo := new(MockChatRepository)
	s := newChatTestServer(chatRepo)

	app := authApp(1, "alice")
	app.Get("/chat/search", s.SearchConversations)

	t.Run("Missing participant", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/chat/search", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("Matches by substring", func(t *testing.T) {
		chatRepo.On("SearchByParticipant", mock.Anything, "ali").
			Return([]*models.Conversation{
				{ID: 1, Name: "general", Participant: "alice,bob"},
			}, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/chat/search?participant=ali", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var conversations []models.Conversation
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&conversations))
		require.Len(t, conversations, 1)
		assert.Equal(t, "general", conversations[0].Name)
	})

	chatRepo.AssertExpectations(t)
}
