package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/malakchat/chatapp/internal/ports/in"
)

// AuthController 注册/登录控制器
type AuthController struct {
	authUC in.AuthUseCase
}

// NewAuthController 创建认证控制器
func NewAuthController(authUC in.AuthUseCase) *AuthController {
	return &AuthController{authUC: authUC}
}

// RegisterRoutes 注册公开路由，不经过认证中间件
func (ctl *AuthController) RegisterRoutes(r *gin.RouterGroup) {
	auth := r.Group("/auth")
	{
		auth.POST("/register", ctl.Register)
		auth.POST("/login", ctl.Login)
	}
}

// CredentialsBody 注册与登录共用的请求体
type CredentialsBody struct {
	Username string `json:"username" binding:"required,min=3,max=32"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

// Register 用户注册
func (ctl *AuthController) Register(c *gin.Context) {
	var body CredentialsBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	user, err := ctl.authUC.Register(c.Request.Context(), body.Username, body.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": toUserView(user)})
}

// Login 用户登录，返回访问令牌
func (ctl *AuthController) Login(c *gin.Context) {
	var body CredentialsBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result, err := ctl.authUC.Login(c.Request.Context(), body.Username, body.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"user_id":      result.UserID,
		"username":     result.Username,
		"access_token": result.AccessToken,
	}})
}
