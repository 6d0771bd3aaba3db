package mysql

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/malakchat/chatapp/internal/domain/entity"
	"github.com/malakchat/chatapp/internal/ports/out"
)

// MessageModel GORM模型
type MessageModel struct {
	ID          uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	SenderID    uint64    `gorm:"column:sender_id;not null;index:idx_msg_pair,priority:1"`
	RecipientID uint64    `gorm:"column:recipient_id;not null;index:idx_msg_pair,priority:2"`
	Content     string    `gorm:"column:content;type:text;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;not null;autoCreateTime"`
}

func (MessageModel) TableName() string {
	return "messages"
}

func (m *MessageModel) toEntity() *entity.Message {
	return &entity.Message{
		ID:          m.ID,
		SenderID:    m.SenderID,
		RecipientID: m.RecipientID,
		Content:     m.Content,
		CreatedAt:   m.CreatedAt,
	}
}

// MessageRepositoryMySQL MySQL消息仓储实现，按插入顺序即先进先出
type MessageRepositoryMySQL struct {
	db *gorm.DB
}

var _ out.MessageRepository = (*MessageRepositoryMySQL)(nil)

func NewMessageRepositoryMySQL(db *gorm.DB) *MessageRepositoryMySQL {
	return &MessageRepositoryMySQL{db: db}
}

func (r *MessageRepositoryMySQL) Create(ctx context.Context, message *entity.Message) error {
	model := &MessageModel{
		SenderID:    message.SenderID,
		RecipientID: message.RecipientID,
		Content:     message.Content,
		CreatedAt:   message.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	message.ID = model.ID
	message.CreatedAt = model.CreatedAt
	return nil
}

// ListBetween 返回最近的 limit 条，倒序取再反转，结果仍按时间升序
func (r *MessageRepositoryMySQL) ListBetween(ctx context.Context, userA, userB uint64, limit int) ([]*entity.Message, error) {
	var models []MessageModel
	err := r.db.WithContext(ctx).
		Where("(sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)",
			userA, userB, userB, userA).
		Order("id DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	messages := make([]*entity.Message, len(models))
	for i, m := range models {
		messages[len(models)-1-i] = m.toEntity()
	}
	return messages, nil
}
