package entity

import "time"

// User 用户，归身份目录所有，核心只读
type User struct {
	ID           uint64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
