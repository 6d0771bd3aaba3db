package mysql

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/malakchat/chatapp/internal/domain/entity"
	"github.com/malakchat/chatapp/internal/ports/out"
)

// UserModel GORM模型
type UserModel struct {
	ID           uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	Username     string    `gorm:"column:username;type:varchar(64);not null;uniqueIndex"`
	PasswordHash string    `gorm:"column:password_hash;type:varchar(128);not null"`
	CreatedAt    time.Time `gorm:"column:created_at;not null;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;not null;autoUpdateTime"`
}

func (UserModel) TableName() string {
	return "users"
}

func (m *UserModel) toEntity() *entity.User {
	return &entity.User{
		ID:           m.ID,
		Username:     m.Username,
		PasswordHash: m.PasswordHash,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func userModelFromEntity(e *entity.User) *UserModel {
	return &UserModel{
		ID:           e.ID,
		Username:     e.Username,
		PasswordHash: e.PasswordHash,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
}

// UserRepositoryMySQL MySQL用户仓储实现
type UserRepositoryMySQL struct {
	db *gorm.DB
}

var _ out.UserRepository = (*UserRepositoryMySQL)(nil)

func NewUserRepositoryMySQL(db *gorm.DB) *UserRepositoryMySQL {
	return &UserRepositoryMySQL{db: db}
}

func (r *UserRepositoryMySQL) Create(ctx context.Context, user *entity.User) error {
	model := userModelFromEntity(user)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	user.ID = model.ID
	user.CreatedAt = model.CreatedAt
	user.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *UserRepositoryMySQL) GetByID(ctx context.Context, id uint64) (*entity.User, error) {
	var model UserModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.toEntity(), nil
}

func (r *UserRepositoryMySQL) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	var model UserModel
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.toEntity(), nil
}

func (r *UserRepositoryMySQL) Exists(ctx context.Context, id uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&UserModel{}).Where("id = ?", id).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
