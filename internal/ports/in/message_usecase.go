package in

import (
	"context"

	"github.com/malakchat/chatapp/internal/domain/entity"
)

// MessageUseCase 私聊消息发送与历史读取，薄层
type MessageUseCase interface {
	// Send 持久化消息后投递给接收者，并回显给发送者本人
	// 回显带服务端 id 和时间戳，让发送端确认落库
	Send(ctx context.Context, senderID, recipientID uint64, content string) (*entity.Message, error)

	// History 两个用户之间的消息，按插入顺序
	History(ctx context.Context, userID, otherID uint64, limit int) ([]*entity.Message, error)
}
