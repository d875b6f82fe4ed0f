package models

import (
	"time"
)

// Message is the durable record of one chat message between two users about
// an item. Only the Read flag is ever updated after creation. Deleting a user
// cascades their messages; deleting an item nulls ItemID so the conversation
// history outlives the listing.
type Message struct {
	Model
	SenderID   uint      `gorm:"not null;index" json:"sender_id"`
	Sender     User      `gorm:"foreignKey:SenderID;constraint:OnDelete:CASCADE" json:"-"`
	ReceiverID uint      `gorm:"not null;index" json:"receiver_id"`
	Receiver   User      `gorm:"foreignKey:ReceiverID;constraint:OnDelete:CASCADE" json:"-"`
	ItemID     *uint     `gorm:"index" json:"item_id"`
	Item       *Item     `gorm:"foreignKey:ItemID;constraint:OnDelete:SET NULL" json:"-"`
	Content    string    `gorm:"not null" json:"content"`
	SentAt     time.Time `gorm:"not null;index" json:"sent_at"`
	Read       bool      `gorm:"not null;default:false" json:"read"`
}

// ConversationKey identifies a conversation: the unordered user pair plus the
// item. Conversations are never stored as rows; two messages belong to the
// same conversation iff their keys match.
type ConversationKey struct {
	UserLow  uint
	UserHigh uint
	ItemID   uint
}

func NewConversationKey(userA, userB, itemID uint) ConversationKey {
	if userA > userB {
		userA, userB = userB, userA
	}
	return ConversationKey{UserLow: userA, UserHigh: userB, ItemID: itemID}
}

// SendMessageRequest is the payload accepted on both the REST and the
// websocket send paths. The sender always comes from the bound identity.
type SendMessageRequest struct {
	Receiver struct {
		ID uint `json:"id" binding:"required"`
	} `json:"receiver" binding:"required"`
	Item struct {
		ID uint `json:"id" binding:"required"`
	} `json:"item" binding:"required"`
	MessageContent string `json:"messageContent" binding:"required"`
}

// MessageResponse is the denormalized message shape returned to clients and
// pushed to live topics.
type MessageResponse struct {
	ID       uint         `json:"id"`
	Sender   UserSummary  `json:"sender"`
	Receiver UserSummary  `json:"receiver"`
	Item     *ItemSummary `json:"item,omitempty"`
	Content  string       `json:"content"`
	SentAt   time.Time    `json:"sent_at"`
	Read     bool         `json:"read"`
}

// ConversationRef is the resolver result. A conversation has no identity
// until its first message exists; AnchorID is the id of the earliest message
// and is a representative anchor, not a stable primary key.
type ConversationRef struct {
	Exists      bool         `json:"exists"`
	AnchorID    uint         `json:"anchor_id,omitempty"`
	Counterpart UserSummary  `json:"counterpart"`
	Item        *ItemSummary `json:"item,omitempty"`
}

// ConversationPreview is one row of the viewer's conversation list. It is
// recomputed on every request and never persisted.
type ConversationPreview struct {
	ConversationID      uint            `json:"conversation_id"`
	Counterpart         UserSummary     `json:"counterpart"`
	Item                *ItemSummary    `json:"item,omitempty"`
	LastMessage         MessageResponse `json:"last_message"`
	UnreadMessagesCount int64           `json:"unread_messages_count"`
}

// MarkReadRequest lists message ids the viewer wants flagged as read.
type MarkReadRequest struct {
	MessageIDs []uint `json:"message_ids" binding:"required,min=1"`
}

// ItemMessagesPage is a page of an item's message history.
type ItemMessagesPage struct {
	Messages []MessageResponse `json:"messages"`
	Total    int64             `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
}
