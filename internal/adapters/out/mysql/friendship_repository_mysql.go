package mysql

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/malakchat/chatapp/internal/domain/entity"
	"github.com/malakchat/chatapp/internal/ports/out"
)

// FriendshipModel GORM模型
// (user1_id, user2_id) 唯一键是"每无序对至多一行"不变量的权威，
// 行内始终 user1_id < user2_id
type FriendshipModel struct {
	ID        uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	User1ID   uint64    `gorm:"column:user1_id;not null;uniqueIndex:uk_friendship_pair,priority:1;index"`
	User2ID   uint64    `gorm:"column:user2_id;not null;uniqueIndex:uk_friendship_pair,priority:2;index"`
	CreatedAt time.Time `gorm:"column:created_at;not null;autoCreateTime"`
}

func (FriendshipModel) TableName() string {
	return "friendships"
}

func (m *FriendshipModel) toEntity() *entity.Friendship {
	return &entity.Friendship{
		ID:        m.ID,
		User1ID:   m.User1ID,
		User2ID:   m.User2ID,
		CreatedAt: m.CreatedAt,
	}
}

// FriendshipRepositoryMySQL MySQL好友关系仓储实现
type FriendshipRepositoryMySQL struct {
	db *gorm.DB
}

var _ out.FriendshipRepository = (*FriendshipRepositoryMySQL)(nil)

func NewFriendshipRepositoryMySQL(db *gorm.DB) *FriendshipRepositoryMySQL {
	return &FriendshipRepositoryMySQL{db: db}
}

// Create 插入前再做一次规范序兜底，调用方传入的实体已应是规范序
func (r *FriendshipRepositoryMySQL) Create(ctx context.Context, friendship *entity.Friendship) error {
	u1, u2 := entity.CanonicalPair(friendship.User1ID, friendship.User2ID)
	model := &FriendshipModel{
		User1ID:   u1,
		User2ID:   u2,
		CreatedAt: friendship.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	friendship.ID = model.ID
	friendship.User1ID = model.User1ID
	friendship.User2ID = model.User2ID
	friendship.CreatedAt = model.CreatedAt
	return nil
}

// GetByPair 行是规范序的，点查只需一种顺序
func (r *FriendshipRepositoryMySQL) GetByPair(ctx context.Context, userA, userB uint64) (*entity.Friendship, error) {
	u1, u2 := entity.CanonicalPair(userA, userB)
	var model FriendshipModel
	err := r.db.WithContext(ctx).
		Where("user1_id = ? AND user2_id = ?", u1, u2).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.toEntity(), nil
}

func (r *FriendshipRepositoryMySQL) AreFriends(ctx context.Context, userA, userB uint64) (bool, error) {
	u1, u2 := entity.CanonicalPair(userA, userB)
	var count int64
	err := r.db.WithContext(ctx).Model(&FriendshipModel{}).
		Where("user1_id = ? AND user2_id = ?", u1, u2).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// DeleteByPair 不存在时静默无操作
func (r *FriendshipRepositoryMySQL) DeleteByPair(ctx context.Context, userA, userB uint64) error {
	u1, u2 := entity.CanonicalPair(userA, userB)
	return r.db.WithContext(ctx).
		Where("user1_id = ? AND user2_id = ?", u1, u2).
		Delete(&FriendshipModel{}).Error
}

// ListFriendIDs 调用方的 id 可能在任一列
func (r *FriendshipRepositoryMySQL) ListFriendIDs(ctx context.Context, userID uint64) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).Model(&FriendshipModel{}).
		Select("CASE WHEN user1_id = ? THEN user2_id ELSE user1_id END", userID).
		Where("user1_id = ? OR user2_id = ?", userID, userID).
		Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *FriendshipRepositoryMySQL) ListFriends(ctx context.Context, userID uint64) ([]*entity.User, error) {
	var models []UserModel
	err := r.db.WithContext(ctx).Model(&UserModel{}).
		Joins("JOIN friendships f ON (f.user1_id = ? AND f.user2_id = users.id) OR (f.user2_id = ? AND f.user1_id = users.id)", userID, userID).
		Order("f.created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	users := make([]*entity.User, len(models))
	for i, m := range models {
		users[i] = m.toEntity()
	}
	return users, nil
}

func (r *FriendshipRepositoryMySQL) CountFriends(ctx context.Context, userID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&FriendshipModel{}).
		Where("user1_id = ? OR user2_id = ?", userID, userID).
		Count(&count).Error
	return count, err
}

// MutualFriends 两侧好友集合的交集，排除双方自身
func (r *FriendshipRepositoryMySQL) MutualFriends(ctx context.Context, userA, userB uint64) ([]*entity.User, error) {
	idsA, err := r.ListFriendIDs(ctx, userA)
	if err != nil {
		return nil, err
	}
	idsB, err := r.ListFriendIDs(ctx, userB)
	if err != nil {
		return nil, err
	}

	inA := make(map[uint64]struct{}, len(idsA))
	for _, id := range idsA {
		inA[id] = struct{}{}
	}
	var mutual []uint64
	for _, id := range idsB {
		if id == userA || id == userB {
			continue
		}
		if _, ok := inA[id]; ok {
			mutual = append(mutual, id)
		}
	}
	if len(mutual) == 0 {
		return []*entity.User{}, nil
	}

	var models []UserModel
	if err := r.db.WithContext(ctx).Where("id IN ?", mutual).Find(&models).Error; err != nil {
		return nil, err
	}
	users := make([]*entity.User, len(models))
	for i, m := range models {
		users[i] = m.toEntity()
	}
	return users, nil
}

// escapeLike 把 LIKE 元字符转成字面量，搜索词按纯子串处理
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// SearchFriends 用户名子串过滤，LOWER 两侧统一大小写
func (r *FriendshipRepositoryMySQL) SearchFriends(ctx context.Context, userID uint64, term string) ([]*entity.User, error) {
	var models []UserModel
	err := r.db.WithContext(ctx).Model(&UserModel{}).
		Joins("JOIN friendships f ON (f.user1_id = ? AND f.user2_id = users.id) OR (f.user2_id = ? AND f.user1_id = users.id)", userID, userID).
		Where("LOWER(users.username) LIKE LOWER(?)", "%"+escapeLike(term)+"%").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	users := make([]*entity.User, len(models))
	for i, m := range models {
		users[i] = m.toEntity()
	}
	return users, nil
}
