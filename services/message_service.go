package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/chisomudeze/marketa/config"
	"github.com/chisomudeze/marketa/db"
	apiError "github.com/chisomudeze/marketa/errors"
	"github.com/chisomudeze/marketa/models"
	"gorm.io/gorm"
)

// Dispatcher pushes a committed message payload to a live topic. Delivery is
// at-most-once and best-effort; implementations must never block the caller.
type Dispatcher interface {
	Publish(topic string, payload []byte)
}

// UserTopic names the per-user broadcast topic.
func UserTopic(userID uint) string {
	return fmt.Sprintf("messages/%d", userID)
}

// MessageService interface
type MessageService interface {
	SendMessage(senderID uint, request *models.SendMessageRequest) (*models.MessageResponse, *apiError.Error)
	FindOrCreateConversation(currentUserID, itemID uint, counterpartID *uint) (*models.ConversationRef, *apiError.Error)
	ListConversations(viewerID uint) ([]models.ConversationPreview, *apiError.Error)
	ListConversationMessages(viewerID, counterpartID, itemID uint) ([]models.MessageResponse, *apiError.Error)
	ListItemMessages(itemID uint, page, pageSize int) (*models.ItemMessagesPage, *apiError.Error)
	MarkMessagesRead(viewerID uint, messageIDs []uint) (int64, *apiError.Error)
}

// messageService struct
type messageService struct {
	Config     *config.Config
	msgRepo    db.MessageRepository
	authRepo   db.AuthRepository
	itemRepo   db.ItemRepository
	dispatcher Dispatcher
}

// NewMessageService instantiate a messageService
func NewMessageService(msgRepo db.MessageRepository, authRepo db.AuthRepository, itemRepo db.ItemRepository, dispatcher Dispatcher, conf *config.Config) MessageService {
	return &messageService{
		Config:     conf,
		msgRepo:    msgRepo,
		authRepo:   authRepo,
		itemRepo:   itemRepo,
		dispatcher: dispatcher,
	}
}

// SendMessage validates, persists and then dispatches a message. Dispatch is
// strictly downstream of the committed write; a dispatch problem never
// surfaces as a send failure.
func (s *messageService) SendMessage(senderID uint, request *models.SendMessageRequest) (*models.MessageResponse, *apiError.Error) {
	if strings.TrimSpace(request.MessageContent) == "" {
		return nil, apiError.New("message content must not be blank", http.StatusBadRequest)
	}
	if senderID == request.Receiver.ID {
		return nil, apiError.New("cannot send a message to yourself", http.StatusBadRequest)
	}

	sender, err := s.authRepo.FindUserByID(senderID)
	if err != nil {
		return nil, notFoundOrInternal(err, "sender not found")
	}
	receiver, err := s.authRepo.FindUserByID(request.Receiver.ID)
	if err != nil {
		return nil, notFoundOrInternal(err, "receiver not found")
	}
	item, err := s.itemRepo.FindItemByID(request.Item.ID)
	if err != nil {
		return nil, notFoundOrInternal(err, "item not found")
	}

	msg := &models.Message{
		SenderID:   sender.ID,
		ReceiverID: receiver.ID,
		ItemID:     &item.ID,
		Content:    request.MessageContent,
		SentAt:     time.Now().UTC(),
		Read:       false,
	}
	msg, err = s.msgRepo.CreateMessage(msg)
	if err != nil {
		log.Printf("SendMessage error persisting message: %v", err)
		return nil, apiError.ErrInternalServerError
	}

	itemSummary := item.Summary()
	resp := &models.MessageResponse{
		ID:       msg.ID,
		Sender:   sender.Summary(),
		Receiver: receiver.Summary(),
		Item:     &itemSummary,
		Content:  msg.Content,
		SentAt:   msg.SentAt,
		Read:     msg.Read,
	}

	s.dispatch(resp)
	return resp, nil
}

// dispatch pushes the committed message to the receiver's and the sender's
// topics, so other sessions of the sender see the echo.
func (s *messageService) dispatch(resp *models.MessageResponse) {
	payload, err := json.Marshal(resp)
	if err != nil {
		log.Printf("dispatch: could not marshal message %d: %v", resp.ID, err)
		return
	}
	s.dispatcher.Publish(UserTopic(resp.Receiver.ID), payload)
	s.dispatcher.Publish(UserTopic(resp.Sender.ID), payload)
}

// FindOrCreateConversation resolves the conversation identity for the current
// user and item. A conversation only gains an identity with its first
// message, so Exists reports whether an anchor id is available yet.
func (s *messageService) FindOrCreateConversation(currentUserID, itemID uint, counterpartID *uint) (*models.ConversationRef, *apiError.Error) {
	item, err := s.itemRepo.FindItemByID(itemID)
	if err != nil {
		return nil, notFoundOrInternal(err, "item not found")
	}

	var counterpart *models.User
	if currentUserID == item.SellerID {
		// The seller can talk to many buyers; the caller has to say which one.
		if counterpartID == nil {
			return nil, apiError.New("ambiguous counterpart: specify the buyer to converse with", http.StatusBadRequest)
		}
		counterpart, err = s.authRepo.FindUserByID(*counterpartID)
		if err != nil {
			return nil, notFoundOrInternal(err, "counterpart not found")
		}
	} else {
		counterpart, err = s.authRepo.FindUserByID(item.SellerID)
		if err != nil {
			return nil, notFoundOrInternal(err, "seller not found")
		}
	}

	if counterpart.ID == currentUserID {
		return nil, apiError.New("cannot start a conversation with yourself", http.StatusBadRequest)
	}

	itemSummary := item.Summary()
	ref := &models.ConversationRef{
		Counterpart: counterpart.Summary(),
		Item:        &itemSummary,
	}

	key := models.NewConversationKey(currentUserID, counterpart.ID, item.ID)
	anchor, err := s.msgRepo.EarliestConversationMessage(key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// No messages yet: the conversation has no identity until the
			// first sendMessage call creates one.
			return ref, nil
		}
		log.Printf("FindOrCreateConversation error querying anchor: %v", err)
		return nil, apiError.ErrInternalServerError
	}

	ref.Exists = true
	ref.AnchorID = anchor.ID
	return ref, nil
}

// ListConversations groups the viewer's messages into one preview per
// (counterpart, item) pair, newest conversation first.
func (s *messageService) ListConversations(viewerID uint) ([]models.ConversationPreview, *apiError.Error) {
	messages, err := s.msgRepo.FindMessagesByUser(viewerID)
	if err != nil {
		log.Printf("ListConversations error fetching messages: %v", err)
		return nil, apiError.ErrInternalServerError
	}

	type group struct {
		last   models.Message
		anchor uint
	}
	var order []models.ConversationKey
	groups := make(map[models.ConversationKey]*group)

	// Messages arrive newest first, so the first message seen for a key is
	// the conversation's last message and the final one its anchor.
	for _, msg := range messages {
		counterpartID := msg.SenderID
		if counterpartID == viewerID {
			counterpartID = msg.ReceiverID
		}
		var itemID uint
		if msg.ItemID != nil {
			itemID = *msg.ItemID
		}
		key := models.NewConversationKey(viewerID, counterpartID, itemID)
		g, ok := groups[key]
		if !ok {
			g = &group{last: msg}
			groups[key] = g
			order = append(order, key)
		}
		g.anchor = msg.ID
	}

	previews := make([]models.ConversationPreview, 0, len(order))
	for _, key := range order {
		g := groups[key]
		counterpart := g.last.Sender
		if counterpart.ID == viewerID {
			counterpart = g.last.Receiver
		}

		unread, err := s.msgRepo.CountUnreadInConversation(key, viewerID)
		if err != nil {
			log.Printf("ListConversations error counting unread: %v", err)
			return nil, apiError.ErrInternalServerError
		}

		previews = append(previews, models.ConversationPreview{
			ConversationID:      g.anchor,
			Counterpart:         counterpart.Summary(),
			Item:                itemSummaryOf(&g.last),
			LastMessage:         messageResponseOf(&g.last),
			UnreadMessagesCount: unread,
		})
	}
	return previews, nil
}

// ListConversationMessages returns the full thread between the viewer and a
// counterpart about one item, oldest first.
func (s *messageService) ListConversationMessages(viewerID, counterpartID, itemID uint) ([]models.MessageResponse, *apiError.Error) {
	if viewerID == counterpartID {
		return nil, apiError.New("counterpart must be another user", http.StatusBadRequest)
	}
	key := models.NewConversationKey(viewerID, counterpartID, itemID)
	messages, err := s.msgRepo.FindConversationMessages(key)
	if err != nil {
		log.Printf("ListConversationMessages error fetching thread: %v", err)
		return nil, apiError.ErrInternalServerError
	}

	responses := make([]models.MessageResponse, 0, len(messages))
	for i := range messages {
		responses = append(responses, messageResponseOf(&messages[i]))
	}
	return responses, nil
}

func (s *messageService) ListItemMessages(itemID uint, page, pageSize int) (*models.ItemMessagesPage, *apiError.Error) {
	if _, err := s.itemRepo.FindItemByID(itemID); err != nil {
		return nil, notFoundOrInternal(err, "item not found")
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	messages, total, err := s.msgRepo.FindMessagesByItem(itemID, page, pageSize)
	if err != nil {
		log.Printf("ListItemMessages error fetching messages: %v", err)
		return nil, apiError.ErrInternalServerError
	}

	responses := make([]models.MessageResponse, 0, len(messages))
	for i := range messages {
		responses = append(responses, messageResponseOf(&messages[i]))
	}
	return &models.ItemMessagesPage{
		Messages: responses,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// MarkMessagesRead flips read on the given messages where the viewer is the
// receiver. Ids received by someone else are skipped, never flipped.
func (s *messageService) MarkMessagesRead(viewerID uint, messageIDs []uint) (int64, *apiError.Error) {
	if len(messageIDs) == 0 {
		return 0, apiError.New("message_ids must not be empty", http.StatusBadRequest)
	}
	updated, err := s.msgRepo.MarkMessagesRead(viewerID, messageIDs)
	if err != nil {
		log.Printf("MarkMessagesRead error: %v", err)
		return 0, apiError.ErrInternalServerError
	}
	return updated, nil
}

func messageResponseOf(msg *models.Message) models.MessageResponse {
	return models.MessageResponse{
		ID:       msg.ID,
		Sender:   msg.Sender.Summary(),
		Receiver: msg.Receiver.Summary(),
		Item:     itemSummaryOf(msg),
		Content:  msg.Content,
		SentAt:   msg.SentAt,
		Read:     msg.Read,
	}
}

func itemSummaryOf(msg *models.Message) *models.ItemSummary {
	if msg.Item == nil {
		return nil
	}
	summary := msg.Item.Summary()
	return &summary
}

func notFoundOrInternal(err error, message string) *apiError.Error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apiError.New(message, http.StatusNotFound)
	}
	log.Printf("unexpected repository error: %v", err)
	return apiError.ErrInternalServerError
}
