package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/account-service/internal/domain"
	"github.com/prperemyshlev/account-service/internal/dto"
	"go.uber.org/zap"
)

const internalErrorMessage = "Internal server error"

var kindStatus = map[domain.Kind]int{
	domain.KindInvalidInput: http.StatusBadRequest,
	domain.KindUnauthorized: http.StatusUnauthorized,
	domain.KindConflict:     http.StatusConflict,
	domain.KindNotFound:     http.StatusNotFound,
	domain.KindInternal:     http.StatusInternalServerError,
}

func respond(c *gin.Context, status int, data any, message string) {
	c.JSON(status, dto.Envelope{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    status < http.StatusBadRequest,
	})
}

func abortWithStatus(c *gin.Context, status int, message string, details ...string) {
	if details == nil {
		details = []string{}
	}
	c.AbortWithStatusJSON(status, dto.ErrorEnvelope{
		StatusCode: status,
		Message:    message,
		Success:    false,
		Errors:     details,
	})
}

// abortWithError writes err as an error envelope. Internal causes are logged
// and replaced by a generic message.
func abortWithError(c *gin.Context, logger *zap.Logger, err error) {
	var derr *domain.Error
	if !errors.As(err, &derr) {
		derr = domain.Internal(internalErrorMessage, err)
	}

	status, ok := kindStatus[derr.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}

	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.Error(err),
		)
		abortWithStatus(c, status, derr.Message)
		return
	}

	abortWithStatus(c, status, derr.Message, derr.Details...)
}
