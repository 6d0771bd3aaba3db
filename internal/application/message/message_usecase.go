package message

import (
	"context"
	"strings"
	"time"

	"github.com/malakchat/chatapp/internal/application/notify"
	"github.com/malakchat/chatapp/internal/domain/entity"
	"github.com/malakchat/chatapp/internal/ports/in"
	"github.com/malakchat/chatapp/internal/ports/out"
	"github.com/malakchat/chatapp/pkg/apperr"
	"github.com/malakchat/chatapp/pkg/zlog"
)

const defaultHistoryLimit = 50

// UseCaseImpl 私聊消息薄层：落库后扇出，投递失败不影响发送结果
type UseCaseImpl struct {
	messageRepo out.MessageRepository
	userRepo    out.UserRepository
	fanout      *notify.Fanout
}

var _ in.MessageUseCase = (*UseCaseImpl)(nil)

func NewUseCase(messageRepo out.MessageRepository, userRepo out.UserRepository, fanout *notify.Fanout) *UseCaseImpl {
	return &UseCaseImpl{
		messageRepo: messageRepo,
		userRepo:    userRepo,
		fanout:      fanout,
	}
}

// Send 持久化并投递，接收者与发送者各收一份
func (uc *UseCaseImpl) Send(ctx context.Context, senderID, recipientID uint64, content string) (*entity.Message, error) {
	if senderID == recipientID {
		return nil, apperr.InvalidOperation("cannot send message to yourself")
	}
	if strings.TrimSpace(content) == "" {
		return nil, apperr.InvalidOperation("message content is empty")
	}

	ok, err := uc.userRepo.Exists(ctx, recipientID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "check recipient", err)
	}
	if !ok {
		return nil, apperr.Newf(apperr.KindNotFound, "user not found: %d", recipientID)
	}

	msg := &entity.Message{
		SenderID:    senderID,
		RecipientID: recipientID,
		Content:     content,
		CreatedAt:   time.Now(),
	}
	if err := uc.messageRepo.Create(ctx, msg); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "create message", err)
	}

	zlog.C(ctx).Info("message sent",
		zlog.Any("message_id", msg.ID),
		zlog.Any("sender_id", senderID),
		zlog.Any("recipient_id", recipientID))

	uc.fanout.NotifyMessage(ctx, msg)
	return msg, nil
}

// History 最近 limit 条消息，按插入顺序返回
func (uc *UseCaseImpl) History(ctx context.Context, userID, otherID uint64, limit int) ([]*entity.Message, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return uc.messageRepo.ListBetween(ctx, userID, otherID, limit)
}
