package handler

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/prperemyshlev/account-service/internal/domain"
	"github.com/prperemyshlev/account-service/internal/dto"
	"github.com/prperemyshlev/account-service/internal/service"
	"go.uber.org/zap"
)

// multipartOverhead leaves room for the text fields next to the avatar
const multipartOverhead = 1 << 20

// AuthHandler handles registration and the session lifecycle
type AuthHandler struct {
	authService    service.AuthService
	cookies        CookieOptions
	maxAvatarBytes int64
	logger         *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService service.AuthService, cookies CookieOptions, maxAvatarBytes int64, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		cookies:        cookies,
		maxAvatarBytes: maxAvatarBytes,
		logger:         logger,
	}
}

// Register handles user registration
// @Summary Register a new user
// @Tags users
// @Accept multipart/form-data
// @Produce json
// @Success 201 {object} dto.Envelope
// @Failure 400 {object} dto.ErrorEnvelope
// @Failure 409 {object} dto.ErrorEnvelope
// @Router /users/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxAvatarBytes+multipartOverhead)

	var req dto.RegisterRequest
	if err := c.ShouldBindWith(&req, binding.FormMultipart); err != nil {
		abortWithStatus(c, http.StatusBadRequest, "Invalid multipart form", bindError(err))
		return
	}

	avatar, closeAvatar, err := formFile(c, "avatar")
	if err != nil {
		abortWithStatus(c, http.StatusBadRequest, "Invalid multipart form", bindError(err))
		return
	}
	defer closeAvatar()

	user, err := h.authService.Register(c.Request.Context(), &req, avatar)
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}

	respond(c, http.StatusCreated, dto.NewUserResponse(user), "User registered successfully")
}

// Login handles user login
// @Summary Login by username or email
// @Tags users
// @Accept json
// @Produce json
// @Success 200 {object} dto.Envelope
// @Failure 401 {object} dto.ErrorEnvelope
// @Failure 404 {object} dto.ErrorEnvelope
// @Router /users/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithStatus(c, http.StatusBadRequest, "Invalid request body", bindError(err))
		return
	}

	session, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}

	h.cookies.setTokens(c, session.Tokens)

	respond(c, http.StatusOK, dto.LoginResponse{
		User:         dto.NewUserResponse(session.User),
		AccessToken:  session.Tokens.AccessToken,
		RefreshToken: session.Tokens.RefreshToken,
	}, "User logged in successfully")
}

// Logout handles user logout
// @Summary Logout user and revoke the refresh token
// @Tags users
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.Envelope
// @Failure 401 {object} dto.ErrorEnvelope
// @Router /users/logout [post]
func (h *AuthHandler) Logout(c *gin.Context, user *domain.User) {
	if err := h.authService.Logout(c.Request.Context(), user); err != nil {
		abortWithError(c, h.logger, err)
		return
	}

	h.cookies.clearTokens(c)

	respond(c, http.StatusOK, gin.H{}, "User logged out")
}

// RefreshToken rotates the refresh token. The token is read from the
// refreshToken cookie, falling back to the JSON body.
// @Summary Refresh tokens
// @Tags users
// @Produce json
// @Success 200 {object} dto.Envelope
// @Failure 401 {object} dto.ErrorEnvelope
// @Router /users/refresh-token [post]
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	token, err := c.Cookie(refreshTokenCookie)
	if err != nil || token == "" {
		var req dto.RefreshTokenRequest
		// an empty body, chunked or not, means no token was sent
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			abortWithStatus(c, http.StatusBadRequest, "Invalid request body", bindError(err))
			return
		}
		token = req.RefreshToken
	}

	session, err := h.authService.RefreshToken(c.Request.Context(), token)
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}

	h.cookies.setTokens(c, session.Tokens)

	respond(c, http.StatusOK, dto.TokenResponse{
		AccessToken:  session.Tokens.AccessToken,
		RefreshToken: session.Tokens.RefreshToken,
	}, "Access token refreshed")
}

// formFile opens an optional uploaded file. A missing file yields a nil upload
// so the service can report it alongside the other fields.
func formFile(c *gin.Context, field string) (*dto.FileUpload, func(), error) {
	header, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, func() {}, nil
		}
		return nil, func() {}, err
	}

	file, err := header.Open()
	if err != nil {
		return nil, func() {}, err
	}

	return uploadFrom(header, file), func() { _ = file.Close() }, nil
}

func uploadFrom(header *multipart.FileHeader, content io.Reader) *dto.FileUpload {
	return &dto.FileUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Content:     content,
	}
}

func bindError(err error) string {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return "request body is too large"
	}
	if errors.Is(err, io.EOF) {
		return "request body is empty"
	}
	return err.Error()
}
