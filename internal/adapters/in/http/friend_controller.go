package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/malakchat/chatapp/internal/ports/in"
)

// FriendController 好友申请与好友关系控制器
type FriendController struct {
	friendUC in.FriendUseCase
}

// NewFriendController 创建好友控制器
func NewFriendController(friendUC in.FriendUseCase) *FriendController {
	return &FriendController{friendUC: friendUC}
}

// RegisterRoutes 注册路由
func (ctl *FriendController) RegisterRoutes(r *gin.RouterGroup) {
	requests := r.Group("/friend-requests")
	{
		requests.POST("", ctl.SendRequest)
		requests.POST("/:id/accept", ctl.AcceptRequest)
		requests.POST("/:id/reject", ctl.RejectRequest)
		requests.DELETE("/:id", ctl.CancelRequest)
		requests.GET("/received", ctl.PendingReceived)
		requests.GET("/sent", ctl.PendingSent)
		requests.GET("/received/count", ctl.CountPendingReceived)
	}

	friends := r.Group("/friends")
	{
		friends.GET("", ctl.ListFriends)
		friends.GET("/count", ctl.CountFriends)
		friends.GET("/search", ctl.SearchFriends)
		friends.GET("/mutual/:userId", ctl.MutualFriends)
		friends.GET("/status/:userId", ctl.GetStatus)
		friends.DELETE("/:userId", ctl.RemoveFriend)
	}
}

// SendFriendRequestBody 发送好友申请请求体
type SendFriendRequestBody struct {
	ReceiverID uint64 `json:"receiver_id" binding:"required"`
}

// SendRequest 发送好友申请
func (ctl *FriendController) SendRequest(c *gin.Context) {
	var body SendFriendRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	request, err := ctl.friendUC.SendRequest(c.Request.Context(), currentUserID(c), body.ReceiverID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": request})
}

// AcceptRequest 接受好友申请
func (ctl *FriendController) AcceptRequest(c *gin.Context) {
	requestID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := ctl.friendUC.AcceptRequest(c.Request.Context(), requestID, currentUserID(c)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "request accepted"})
}

// RejectRequest 拒绝好友申请
func (ctl *FriendController) RejectRequest(c *gin.Context) {
	requestID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := ctl.friendUC.RejectRequest(c.Request.Context(), requestID, currentUserID(c)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "request rejected"})
}

// CancelRequest 取消好友申请
func (ctl *FriendController) CancelRequest(c *gin.Context) {
	requestID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := ctl.friendUC.CancelRequest(c.Request.Context(), requestID, currentUserID(c)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "request cancelled"})
}

// PendingReceived 收到的待处理申请
func (ctl *FriendController) PendingReceived(c *gin.Context) {
	requests, err := ctl.friendUC.PendingReceived(c.Request.Context(), currentUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": requests})
}

// PendingSent 发出的待处理申请
func (ctl *FriendController) PendingSent(c *gin.Context) {
	requests, err := ctl.friendUC.PendingSent(c.Request.Context(), currentUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": requests})
}

// CountPendingReceived 收到的待处理申请数
func (ctl *FriendController) CountPendingReceived(c *gin.Context) {
	count, err := ctl.friendUC.CountPendingReceived(c.Request.Context(), currentUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"count": count}})
}

// ListFriends 好友列表
func (ctl *FriendController) ListFriends(c *gin.Context) {
	friends, err := ctl.friendUC.ListFriends(c.Request.Context(), currentUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toUserViews(friends)})
}

// CountFriends 好友数量
func (ctl *FriendController) CountFriends(c *gin.Context) {
	count, err := ctl.friendUC.CountFriends(c.Request.Context(), currentUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"count": count}})
}

// SearchFriends 按用户名搜索好友
func (ctl *FriendController) SearchFriends(c *gin.Context) {
	friends, err := ctl.friendUC.SearchFriends(c.Request.Context(), currentUserID(c), c.Query("q"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toUserViews(friends)})
}

// MutualFriends 共同好友
func (ctl *FriendController) MutualFriends(c *gin.Context) {
	otherID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	friends, err := ctl.friendUC.MutualFriends(c.Request.Context(), currentUserID(c), otherID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toUserViews(friends)})
}

// GetStatus 与某用户的关系状态
func (ctl *FriendController) GetStatus(c *gin.Context) {
	otherID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	status, err := ctl.friendUC.GetStatus(c.Request.Context(), currentUserID(c), otherID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"status": status}})
}

// RemoveFriend 解除好友关系
func (ctl *FriendController) RemoveFriend(c *gin.Context) {
	friendID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	if err := ctl.friendUC.RemoveFriend(c.Request.Context(), currentUserID(c), friendID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "friend removed"})
}

func pathID(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}
