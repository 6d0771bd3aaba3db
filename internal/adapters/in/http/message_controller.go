package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/malakchat/chatapp/internal/ports/in"
)

// MessageController 私聊消息控制器，薄层
type MessageController struct {
	messageUC in.MessageUseCase
}

// NewMessageController 创建消息控制器
func NewMessageController(messageUC in.MessageUseCase) *MessageController {
	return &MessageController{messageUC: messageUC}
}

// RegisterRoutes 注册路由
func (ctl *MessageController) RegisterRoutes(r *gin.RouterGroup) {
	messages := r.Group("/messages")
	{
		messages.POST("", ctl.Send)
		messages.GET("/history/:userId", ctl.History)
	}
}

// SendMessageBody 发送消息请求体
type SendMessageBody struct {
	RecipientID uint64 `json:"recipient_id" binding:"required"`
	Content     string `json:"content" binding:"required"`
}

// Send 发送消息
func (ctl *MessageController) Send(c *gin.Context) {
	var body SendMessageBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	msg, err := ctl.messageUC.Send(c.Request.Context(), currentUserID(c), body.RecipientID, body.Content)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": toMessageView(msg)})
}

// History 与某用户的消息历史
func (ctl *MessageController) History(c *gin.Context) {
	otherID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	messages, err := ctl.messageUC.History(c.Request.Context(), currentUserID(c), otherID, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toMessageViews(messages)})
}
