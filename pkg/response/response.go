package response

import (
	"errors"
	"log/slog"
	"net/http"

	"tfms/internal/apperr"

	"github.com/gin-gonic/gin"
)

const (
	CodeSuccess      = 0
	CodeParamError   = 400
	CodeUnauthorized = 401
	CodeForbidden    = 403
	CodeNotFound     = 404
	CodeConflict     = 409
	CodeServerError  = 500
)

// 业务错误码，和 HTTP 状态码一起返回，便于前端区分同为 409 的两种情况
const (
	CodeInvalidState     = 1001
	CodeConcurrentUpdate = 1002
)

type Response struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Data    interface{}       `json:"data,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

// Error 直接指定 HTTP 状态码和业务码
func Error(c *gin.Context, status, code int, message string) {
	c.AbortWithStatusJSON(status, Response{
		Code:    code,
		Message: message,
	})
}

func ParamError(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, CodeParamError, message)
}

func Unauthenticated(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, CodeUnauthorized, message)
}

// Fail 把领域错误映射为 HTTP 响应，未知错误记录日志后返回通用信息
func Fail(c *gin.Context, log *slog.Logger, err error) {
	var (
		notFound     *apperr.NotFoundError
		invalidState *apperr.InvalidStateError
		unauthorized *apperr.UnauthorizedError
		validation   *apperr.ValidationError
	)

	switch {
	case errors.As(err, &validation):
		c.AbortWithStatusJSON(http.StatusBadRequest, Response{
			Code:    CodeParamError,
			Message: validation.Message,
			Errors:  validation.Fields,
		})
	case errors.As(err, &notFound):
		Error(c, http.StatusNotFound, CodeNotFound, notFound.Error())
	case errors.As(err, &unauthorized):
		Error(c, http.StatusForbidden, CodeForbidden, unauthorized.Error())
	case errors.As(err, &invalidState):
		Error(c, http.StatusConflict, CodeInvalidState, invalidState.Error())
	case errors.Is(err, apperr.ErrConcurrentUpdate):
		Error(c, http.StatusConflict, CodeConcurrentUpdate, apperr.ErrConcurrentUpdate.Error())
	default:
		if log == nil {
			log = slog.Default()
		}
		log.ErrorContext(c.Request.Context(), "【HTTP】未处理的错误",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err,
		)
		Error(c, http.StatusInternalServerError, CodeServerError, "internal server error")
	}
}
