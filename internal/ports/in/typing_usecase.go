package in

import "context"

// TypingUseCase 正在输入状态的时限登记
type TypingUseCase interface {
	// StartTyping 登记/续期 (userID, recipientID)，并向接收者扇出 typing=true
	// 不去重，重复调用重复扇出，用于维持对端 UI 计时器
	StartTyping(ctx context.Context, userID, recipientID uint64)

	// StopTyping 移除登记并向接收者扇出 typing=false，幂等
	StopTyping(ctx context.Context, userID, recipientID uint64)

	// IsTyping 登记存在且未过期时为 true，惰性检查，不做清除
	IsTyping(userID, recipientID uint64) bool
}
