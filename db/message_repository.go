package db

import (
	"github.com/chisomudeze/marketa/models"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// MessageRepository is the durable message store. Messages are append-mostly:
// nothing here ever updates a row except the read flag, and that update is
// always scoped to the receiver.
type MessageRepository interface {
	CreateMessage(msg *models.Message) (*models.Message, error)
	EarliestConversationMessage(key models.ConversationKey) (*models.Message, error)
	FindConversationMessages(key models.ConversationKey) ([]models.Message, error)
	FindMessagesByUser(userID uint) ([]models.Message, error)
	FindMessagesByItem(itemID uint, page, pageSize int) ([]models.Message, int64, error)
	CountUnreadInConversation(key models.ConversationKey, viewerID uint) (int64, error)
	MarkMessagesRead(viewerID uint, ids []uint) (int64, error)
}

type messageRepo struct {
	DB *gorm.DB
}

func NewMessageRepo(db *GormDB) MessageRepository {
	return &messageRepo{db.DB}
}

// conversationScope narrows a query to the unordered user pair plus item that
// identifies a conversation. A zero ItemID stands for messages whose item
// reference was nulled by the listing's deletion, so it must match NULL rather
// than item_id = 0.
func conversationScope(key models.ConversationKey) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Where(
			"(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			key.UserLow, key.UserHigh, key.UserHigh, key.UserLow,
		)
		if key.ItemID == 0 {
			return db.Where("item_id IS NULL")
		}
		return db.Where("item_id = ?", key.ItemID)
	}
}

func (r *messageRepo) CreateMessage(msg *models.Message) (*models.Message, error) {
	if err := r.DB.Create(msg).Error; err != nil {
		return nil, errors.Wrap(err, "could not create message")
	}
	return msg, nil
}

func (r *messageRepo) EarliestConversationMessage(key models.ConversationKey) (*models.Message, error) {
	var msg models.Message
	err := r.DB.Scopes(conversationScope(key)).
		Order("sent_at ASC, id ASC").
		First(&msg).Error
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *messageRepo) FindConversationMessages(key models.ConversationKey) ([]models.Message, error) {
	var messages []models.Message
	err := r.DB.Scopes(conversationScope(key)).
		Preload("Sender").Preload("Receiver").Preload("Item").
		Order("sent_at ASC, id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *messageRepo) FindMessagesByUser(userID uint) ([]models.Message, error) {
	var messages []models.Message
	err := r.DB.Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Preload("Sender").Preload("Receiver").Preload("Item").
		Order("sent_at DESC, id DESC").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *messageRepo) FindMessagesByItem(itemID uint, page, pageSize int) ([]models.Message, int64, error) {
	var total int64
	if err := r.DB.Model(&models.Message{}).Where("item_id = ?", itemID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var messages []models.Message
	err := r.DB.Where("item_id = ?", itemID).
		Preload("Sender").Preload("Receiver").Preload("Item").
		Order("sent_at DESC, id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&messages).Error
	if err != nil {
		return nil, 0, err
	}
	return messages, total, nil
}

func (r *messageRepo) CountUnreadInConversation(key models.ConversationKey, viewerID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&models.Message{}).
		Scopes(conversationScope(key)).
		Where("receiver_id = ? AND read = ?", viewerID, false).
		Count(&count).Error
	return count, err
}

// MarkMessagesRead flips read to true for the given ids, but only where the
// viewer is the receiver. Ids belonging to someone else are silently skipped;
// the flag never transitions back to false.
func (r *messageRepo) MarkMessagesRead(viewerID uint, ids []uint) (int64, error) {
	result := r.DB.Model(&models.Message{}).
		Where("id IN ? AND receiver_id = ? AND read = ?", ids, viewerID, false).
		Update("read", true)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
