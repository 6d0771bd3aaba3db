package mysql

import (
	"context"
	"errors"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/malakchat/chatapp/internal/domain/entity"
	"github.com/malakchat/chatapp/internal/ports/out"
)

// FriendRequestModel GORM模型
// pending_pair 是生成列：PENDING 时为规范序的 "小_大"，终态时为 NULL，
// 由它上的唯一键保证每个无序对至多一条待处理申请，
// 并发重复发送最终在这里撞唯一键
type FriendRequestModel struct {
	ID          uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	SenderID    uint64    `gorm:"column:sender_id;not null;index"`
	ReceiverID  uint64    `gorm:"column:receiver_id;not null;index"`
	Status      string    `gorm:"column:status;type:varchar(16);not null;index"`
	PendingPair *string   `gorm:"column:pending_pair;type:varchar(64);uniqueIndex:uk_pending_pair"`
	CreatedAt   time.Time `gorm:"column:created_at;not null;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;not null;autoUpdateTime"`
}

func (FriendRequestModel) TableName() string {
	return "friend_requests"
}

func (m *FriendRequestModel) toEntity() *entity.FriendRequest {
	return &entity.FriendRequest{
		ID:         m.ID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Status:     entity.RequestStatus(m.Status),
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

func pendingPairKey(a, b uint64) *string {
	u1, u2 := entity.CanonicalPair(a, b)
	s := formatPair(u1, u2)
	return &s
}

func formatPair(u1, u2 uint64) string {
	return strconv.FormatUint(u1, 10) + "_" + strconv.FormatUint(u2, 10)
}

// FriendRequestRepositoryMySQL MySQL好友申请仓储实现
type FriendRequestRepositoryMySQL struct {
	db *gorm.DB
}

var _ out.FriendRequestRepository = (*FriendRequestRepositoryMySQL)(nil)

func NewFriendRequestRepositoryMySQL(db *gorm.DB) *FriendRequestRepositoryMySQL {
	return &FriendRequestRepositoryMySQL{db: db}
}

func (r *FriendRequestRepositoryMySQL) Create(ctx context.Context, request *entity.FriendRequest) error {
	model := &FriendRequestModel{
		SenderID:    request.SenderID,
		ReceiverID:  request.ReceiverID,
		Status:      string(request.Status),
		PendingPair: pendingPairKey(request.SenderID, request.ReceiverID),
		CreatedAt:   request.CreatedAt,
		UpdatedAt:   request.UpdatedAt,
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	request.ID = model.ID
	request.CreatedAt = model.CreatedAt
	request.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *FriendRequestRepositoryMySQL) GetByID(ctx context.Context, id uint64) (*entity.FriendRequest, error) {
	var model FriendRequestModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.toEntity(), nil
}

// GetPendingBetween 任一方向的待处理申请，借 pending_pair 一次命中
func (r *FriendRequestRepositoryMySQL) GetPendingBetween(ctx context.Context, userA, userB uint64) (*entity.FriendRequest, error) {
	var model FriendRequestModel
	err := r.db.WithContext(ctx).
		Where("pending_pair = ?", *pendingPairKey(userA, userB)).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.toEntity(), nil
}

func (r *FriendRequestRepositoryMySQL) ListByReceiver(ctx context.Context, userID uint64, status entity.RequestStatus) ([]*entity.FriendRequest, error) {
	var models []FriendRequestModel
	err := r.db.WithContext(ctx).
		Where("receiver_id = ? AND status = ?", userID, string(status)).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return toEntities(models), nil
}

func (r *FriendRequestRepositoryMySQL) ListBySender(ctx context.Context, userID uint64, status entity.RequestStatus) ([]*entity.FriendRequest, error) {
	var models []FriendRequestModel
	err := r.db.WithContext(ctx).
		Where("sender_id = ? AND status = ?", userID, string(status)).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return toEntities(models), nil
}

func (r *FriendRequestRepositoryMySQL) CountByReceiver(ctx context.Context, userID uint64, status entity.RequestStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&FriendRequestModel{}).
		Where("receiver_id = ? AND status = ?", userID, string(status)).
		Count(&count).Error
	return count, err
}

// UpdateStatusIfPending 条件更新，RowsAffected 判定谁赢了并发竞争
// 状态离开 PENDING 的同时清掉 pending_pair，释放该无序对的唯一槽位
func (r *FriendRequestRepositoryMySQL) UpdateStatusIfPending(ctx context.Context, id uint64, status entity.RequestStatus) (bool, error) {
	res := r.db.WithContext(ctx).Model(&FriendRequestModel{}).
		Where("id = ? AND status = ?", id, string(entity.RequestStatusPending)).
		Updates(map[string]any{
			"status":       string(status),
			"pending_pair": nil,
			"updated_at":   time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *FriendRequestRepositoryMySQL) DeleteIfPending(ctx context.Context, id uint64) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, string(entity.RequestStatusPending)).
		Delete(&FriendRequestModel{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *FriendRequestRepositoryMySQL) DeleteRejectedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", string(entity.RequestStatusRejected), cutoff).
		Delete(&FriendRequestModel{})
	return res.RowsAffected, res.Error
}

func toEntities(models []FriendRequestModel) []*entity.FriendRequest {
	requests := make([]*entity.FriendRequest, len(models))
	for i, m := range models {
		requests[i] = m.toEntity()
	}
	return requests
}
