package entity

import "time"

// Friendship 已建立的无向好友关系
// 不变量：User1ID < User2ID，无序对在表里只对应一行
type Friendship struct {
	ID        uint64
	User1ID   uint64
	User2ID   uint64
	CreatedAt time.Time
}

// NewFriendship 按规范序构造好友关系，小的 id 放在前面
func NewFriendship(userA, userB uint64) *Friendship {
	u1, u2 := CanonicalPair(userA, userB)
	return &Friendship{
		User1ID:   u1,
		User2ID:   u2,
		CreatedAt: time.Now(),
	}
}

// CanonicalPair 把无序对规范化为 (小, 大)
func CanonicalPair(a, b uint64) (uint64, uint64) {
	if a > b {
		return b, a
	}
	return a, b
}

// OtherSide 返回关系中对方的用户 id
func (f *Friendship) OtherSide(userID uint64) uint64 {
	if f.User1ID == userID {
		return f.User2ID
	}
	return f.User1ID
}

// Involves 检查用户是否是这段关系的一方
func (f *Friendship) Involves(userID uint64) bool {
	return f.User1ID == userID || f.User2ID == userID
}
