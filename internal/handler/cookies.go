package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/account-service/internal/domain"
)

const (
	accessTokenCookie  = "accessToken"
	refreshTokenCookie = "refreshToken"
)

// CookieOptions controls the attributes of the token cookies
type CookieOptions struct {
	Secure bool
	Domain string
}

func (o CookieOptions) setTokens(c *gin.Context, pair domain.TokenPair) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(accessTokenCookie, pair.AccessToken, maxAge(pair.AccessExpiresAt), "/", o.Domain, o.Secure, true)
	c.SetCookie(refreshTokenCookie, pair.RefreshToken, maxAge(pair.RefreshExpiresAt), "/", o.Domain, o.Secure, true)
}

func (o CookieOptions) clearTokens(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(accessTokenCookie, "", -1, "/", o.Domain, o.Secure, true)
	c.SetCookie(refreshTokenCookie, "", -1, "/", o.Domain, o.Secure, true)
}

func maxAge(expiresAt time.Time) int {
	seconds := int(time.Until(expiresAt).Seconds())
	if seconds <= 0 {
		return -1
	}
	return seconds
}
