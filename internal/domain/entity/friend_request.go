package entity

import "time"

// RequestStatus 好友申请状态，字符串取值对外稳定
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "PENDING"
	RequestStatusAccepted RequestStatus = "ACCEPTED"
	RequestStatusRejected RequestStatus = "REJECTED"
)

// FriendRequest 好友申请，从 sender 指向 receiver
type FriendRequest struct {
	ID         uint64
	SenderID   uint64
	ReceiverID uint64
	Status     RequestStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IsPending 检查是否待处理
func (r *FriendRequest) IsPending() bool {
	return r.Status == RequestStatusPending
}

// Accept 接受申请
func (r *FriendRequest) Accept() {
	r.Status = RequestStatusAccepted
	r.UpdatedAt = time.Now()
}

// Reject 拒绝申请
func (r *FriendRequest) Reject() {
	r.Status = RequestStatusRejected
	r.UpdatedAt = time.Now()
}

// FriendshipStatus 两个用户之间的关系状态，字符串取值对外稳定
type FriendshipStatus string

const (
	FriendshipStatusFriends         FriendshipStatus = "FRIENDS"
	FriendshipStatusRequestSent     FriendshipStatus = "REQUEST_SENT"
	FriendshipStatusRequestReceived FriendshipStatus = "REQUEST_RECEIVED"
	FriendshipStatusNotFriends      FriendshipStatus = "NOT_FRIENDS"
)
