package out

// 投递通道名，对端按通道区分事件类型
const (
	ChannelStatus   = "status"
	ChannelTyping   = "typing"
	ChannelMessages = "messages"
	ChannelFriend   = "friend"
)

// Notifier 抽象的"投递给用户"原语
// fire-and-forget，调用方不得假定同步送达；失败只代表本次投递失败
type Notifier interface {
	Deliver(targetUserID uint64, channel string, payload any) error
}
