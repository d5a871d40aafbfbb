package util

import (
	"errors"
	"net/http"
	"prova_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response is the envelope returned by every endpoint.
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type PageResponse struct {
	List  interface{} `json:"list"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    http.StatusCreated,
		Message: "created",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
	})
}

func Unauthorized(c *gin.Context) {
	Error(c, http.StatusUnauthorized, "Unauthorized")
}

func Forbidden(c *gin.Context) {
	Error(c, http.StatusForbidden, "Forbidden")
}

func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

func NotFound(c *gin.Context) {
	Error(c, http.StatusNotFound, "Resource not found")
}

func InternalServerError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, "Internal server error")
}

func LogInternalError(c *gin.Context, err error) {
	logger.Log.Error("Internal server error", zap.Error(err))
	InternalServerError(c)
}

// FailFromError maps the service error taxonomy to an HTTP rejection.
func FailFromError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		NotFound(c)
	case errors.Is(err, ErrInvalidTransition):
		Error(c, http.StatusConflict, err.Error())
	case errors.Is(err, ErrCodeSpaceExhausted):
		Error(c, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, ErrDeliveryCodeMismatch):
		Error(c, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrInvalidScheduleConfig), errors.Is(err, ErrApplicationNotJoinable):
		BadRequest(c, err.Error())
	default:
		LogInternalError(c, err)
	}
}
