package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/malakchat/chatapp/pkg/apperr"
	"github.com/malakchat/chatapp/pkg/zlog"
)

// writeError 按错误类别映射状态码，五类可恢复错误对外保持稳定
func writeError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)

	var status int
	switch kind {
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindForbidden:
		status = http.StatusForbidden
	case apperr.KindConflict:
		status = http.StatusConflict
	case apperr.KindInvalidState, apperr.KindInvalidOperation:
		status = http.StatusBadRequest
	default:
		status = http.StatusInternalServerError
		zlog.C(c.Request.Context()).Error("internal error", zlog.Any("error", err))
	}

	body := gin.H{"kind": string(kind)}
	if status != http.StatusInternalServerError {
		body["error"] = err.Error()
	} else {
		body["error"] = "internal error"
	}
	c.JSON(status, body)
}

func currentUserID(c *gin.Context) uint64 {
	return c.GetUint64("user_id")
}
