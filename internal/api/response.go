package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/wfunc/tycoon-game/internal/errors"
)

// Response 统一响应信封
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ok 成功响应
func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// fail 失败响应：AppError带错误码与HTTP状态映射，其余按500处理
func fail(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if e, okCast := err.(*apperrors.AppError); okCast {
		appErr = e
	} else {
		appErr = apperrors.Wrap(err, apperrors.ErrUnknown)
	}

	// 不变量破坏等内部缺陷不对外暴露细节
	message := appErr.Message
	if !apperrors.IsUserSafe(appErr) {
		message = "服务内部错误"
	}

	c.JSON(appErr.HTTPStatus(), Response{
		Code:    int(appErr.Code),
		Message: message,
	})
}

// badRequest 参数绑定失败
func badRequest(c *gin.Context, err error) {
	message := "请求参数错误"
	if err != nil {
		message += ": " + err.Error()
	}
	c.JSON(http.StatusBadRequest, Response{
		Code:    int(apperrors.ErrInvalidParam),
		Message: message,
	})
}
