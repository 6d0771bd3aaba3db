package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/malakchat/chatapp/internal/ports/in"
)

// StatusController 在线状态读接口
type StatusController struct {
	presenceUC in.PresenceUseCase
	typingUC   in.TypingUseCase
}

// NewStatusController 创建状态控制器
func NewStatusController(presenceUC in.PresenceUseCase, typingUC in.TypingUseCase) *StatusController {
	return &StatusController{presenceUC: presenceUC, typingUC: typingUC}
}

// RegisterRoutes 注册路由
func (ctl *StatusController) RegisterRoutes(r *gin.RouterGroup) {
	status := r.Group("/status")
	{
		status.GET("/online", ctl.ListOnline)
		status.GET("/:userId", ctl.GetStatus)
		status.GET("/:userId/typing", ctl.IsTyping)
	}
}

// ListOnline 当前在线用户，调试用
func (ctl *StatusController) ListOnline(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": ctl.presenceUC.ListOnline()})
}

// GetStatus 用户在线状态，离线时带 lastSeen
func (ctl *StatusController) GetStatus(c *gin.Context) {
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	presence, err := ctl.presenceUC.GetStatus(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": presence})
}

// IsTyping 某用户是否正在给当前用户输入
func (ctl *StatusController) IsTyping(c *gin.Context) {
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"typing": ctl.typingUC.IsTyping(userID, currentUserID(c)),
	}})
}
