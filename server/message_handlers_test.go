package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/chisomudeze/marketa/config"
	apiError "github.com/chisomudeze/marketa/errors"
	"github.com/chisomudeze/marketa/models"
	"github.com/chisomudeze/marketa/services/jwt"
)

const testSecret = "handler-test-secret"

type stubAuthRepo struct {
	users map[uint]*models.User
}

func (r *stubAuthRepo) CreateUser(user *models.User) (*models.User, error) { return user, nil }
func (r *stubAuthRepo) FindUserByID(id uint) (*models.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}
func (r *stubAuthRepo) FindUserByEmail(email string) (*models.User, error) {
	return nil, gorm.ErrRecordNotFound
}
func (r *stubAuthRepo) IsEmailExist(email string) error { return nil }

type stubMessageService struct {
	sentBy        uint
	sentRequest   *models.SendMessageRequest
	markedBy      uint
	markedIDs     []uint
	initiatedWith *uint
	previews      []models.ConversationPreview
}

func (s *stubMessageService) SendMessage(senderID uint, request *models.SendMessageRequest) (*models.MessageResponse, *apiError.Error) {
	s.sentBy = senderID
	s.sentRequest = request
	resp := &models.MessageResponse{ID: 10, Content: request.MessageContent, SentAt: time.Now().UTC()}
	resp.Sender.ID = senderID
	resp.Receiver.ID = request.Receiver.ID
	return resp, nil
}

func (s *stubMessageService) FindOrCreateConversation(currentUserID, itemID uint, counterpartID *uint) (*models.ConversationRef, *apiError.Error) {
	s.initiatedWith = counterpartID
	if counterpartID == nil && itemID == 42 {
		return nil, apiError.New("ambiguous counterpart: specify the buyer to converse with", http.StatusBadRequest)
	}
	return &models.ConversationRef{Exists: true, AnchorID: 1}, nil
}

func (s *stubMessageService) ListConversations(viewerID uint) ([]models.ConversationPreview, *apiError.Error) {
	return s.previews, nil
}

func (s *stubMessageService) ListConversationMessages(viewerID, counterpartID, itemID uint) ([]models.MessageResponse, *apiError.Error) {
	return []models.MessageResponse{{ID: 1, Content: "Is this available?"}}, nil
}

func (s *stubMessageService) ListItemMessages(itemID uint, page, pageSize int) (*models.ItemMessagesPage, *apiError.Error) {
	return &models.ItemMessagesPage{Page: page, PageSize: pageSize}, nil
}

func (s *stubMessageService) MarkMessagesRead(viewerID uint, messageIDs []uint) (int64, *apiError.Error) {
	s.markedBy = viewerID
	s.markedIDs = messageIDs
	return int64(len(messageIDs)), nil
}

func newTestServer(t *testing.T) (*Server, *stubMessageService, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	os.Setenv("GIN_MODE", "test")

	svc := &stubMessageService{}
	s := &Server{
		Config: &config.Config{JWTSecret: testSecret},
		AuthRepository: &stubAuthRepo{users: map[uint]*models.User{
			1: {Model: models.Model{ID: 1}, Fullname: "Ada", Email: "ada@example.com"},
		}},
		MessageService: svc,
	}
	return s, svc, s.setupRouter()
}

func authHeader(t *testing.T, userID uint) string {
	t.Helper()
	token, err := jwt.GenerateToken(userID, "ada@example.com", testSecret)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestRoutesRejectMissingToken(t *testing.T) {
	_, _, router := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/conversations", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRoutesRejectNonBearerScheme(t *testing.T) {
	_, _, router := newTestServer(t)
	token, err := jwt.GenerateToken(1, "ada@example.com", testSecret)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/conversations", nil)
	req.Header.Set("Authorization", "Token "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListConversationsAuthorized(t *testing.T) {
	_, svc, router := newTestServer(t)
	svc.previews = []models.ConversationPreview{{ConversationID: 3, UnreadMessagesCount: 2}}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/conversations", nil)
	req.Header.Set("Authorization", authHeader(t, 1))
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data []models.ConversationPreview `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, int64(2), body.Data[0].UnreadMessagesCount)
}

func TestSendMessageUsesTokenIdentity(t *testing.T) {
	_, svc, router := newTestServer(t)

	payload := []byte(`{"receiver":{"id":2},"item":{"id":42},"messageContent":"Is this available?"}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages", bytes.NewReader(payload))
	req.Header.Set("Authorization", authHeader(t, 1))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	// The sender is always the bound identity, never part of the payload.
	assert.Equal(t, uint(1), svc.sentBy)
	require.NotNil(t, svc.sentRequest)
	assert.Equal(t, uint(2), svc.sentRequest.Receiver.ID)
}

func TestInitiateConversationAmbiguous(t *testing.T) {
	_, _, router := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/conversations/initiate?item_id=42", nil)
	req.Header.Set("Authorization", authHeader(t, 1))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInitiateConversationWithCounterpart(t *testing.T) {
	_, svc, router := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/conversations/initiate?item_id=42&counterpart_id=3", nil)
	req.Header.Set("Authorization", authHeader(t, 1))
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.initiatedWith)
	assert.Equal(t, uint(3), *svc.initiatedWith)
}

func TestGetConversationMessages(t *testing.T) {
	_, _, router := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/conversations/messages?item_id=42&counterpart_id=2", nil)
	req.Header.Set("Authorization", authHeader(t, 1))
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data []models.MessageResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "Is this available?", body.Data[0].Content)
}

func TestMarkMessagesRead(t *testing.T) {
	_, svc, router := newTestServer(t)

	payload := []byte(`{"message_ids":[4,5]}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/v1/messages/read", bytes.NewReader(payload))
	req.Header.Set("Authorization", authHeader(t, 1))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, uint(1), svc.markedBy)
	assert.Equal(t, []uint{4, 5}, svc.markedIDs)
}

func TestUnknownUserRejected(t *testing.T) {
	_, _, router := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/conversations", nil)
	req.Header.Set("Authorization", authHeader(t, 99))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
