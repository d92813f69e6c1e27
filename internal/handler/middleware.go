package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/account-service/internal/domain"
	"github.com/prperemyshlev/account-service/internal/service"
	"go.uber.org/zap"
)

// AuthenticatedHandler is a gin handler that receives the caller explicitly
type AuthenticatedHandler func(c *gin.Context, user *domain.User)

// Gate authenticates requests by access token before handing them to
// protected handlers
type Gate struct {
	authService service.AuthService
	logger      *zap.Logger
}

func NewGate(authService service.AuthService, logger *zap.Logger) *Gate {
	return &Gate{authService: authService, logger: logger}
}

// Protected resolves the access token from the accessToken cookie or the
// Authorization header and calls h with the current user
func (g *Gate) Protected(h AuthenticatedHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := accessTokenFrom(c)
		if token == "" {
			abortWithStatus(c, http.StatusUnauthorized, "Unauthorized request")
			return
		}

		user, err := g.authService.Authenticate(c.Request.Context(), token)
		if err != nil {
			abortWithError(c, g.logger, err)
			return
		}

		h(c, user)
	}
}

func accessTokenFrom(c *gin.Context) string {
	if token, err := c.Cookie(accessTokenCookie); err == nil && token != "" {
		return token
	}

	// Extract token from "Bearer <token>"
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
