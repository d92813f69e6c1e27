package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/account-service/internal/domain"
	"github.com/prperemyshlev/account-service/internal/dto"
	"github.com/prperemyshlev/account-service/internal/service"
	"go.uber.org/zap"
)

// AccountHandler serves the authenticated account and channel endpoints
type AccountHandler struct {
	accountService service.AccountService
	maxAvatarBytes int64
	logger         *zap.Logger
}

func NewAccountHandler(accountService service.AccountService, maxAvatarBytes int64, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		maxAvatarBytes: maxAvatarBytes,
		logger:         logger,
	}
}

func (h *AccountHandler) CurrentUser(c *gin.Context, user *domain.User) {
	respond(c, http.StatusOK, dto.NewUserResponse(user), "Current user fetched successfully")
}

func (h *AccountHandler) ChangePassword(c *gin.Context, user *domain.User) {
	var req dto.ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.accountService.ChangePassword(c.Request.Context(), user, &req); err != nil {
		abortWithError(c, h.logger, err)
		return
	}

	respond(c, http.StatusOK, gin.H{}, "Password changed successfully")
}

func (h *AccountHandler) UpdateUsername(c *gin.Context, user *domain.User) {
	var req dto.UpdateUsernameRequest
	if !bindJSON(c, &req) {
		return
	}

	updated, err := h.accountService.UpdateUsername(c.Request.Context(), user, &req)
	h.respondUser(c, updated, err, "Username updated successfully")
}

func (h *AccountHandler) UpdateProfile(c *gin.Context, user *domain.User) {
	var req dto.UpdateProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	updated, err := h.accountService.UpdateProfile(c.Request.Context(), user, &req)
	h.respondUser(c, updated, err, "Profile updated successfully")
}

func (h *AccountHandler) UpdateContact(c *gin.Context, user *domain.User) {
	var req dto.UpdateContactRequest
	if !bindJSON(c, &req) {
		return
	}

	updated, err := h.accountService.UpdateContact(c.Request.Context(), user, &req)
	h.respondUser(c, updated, err, "Contact updated successfully")
}

func (h *AccountHandler) UpdateAddress(c *gin.Context, user *domain.User) {
	var req dto.UpdateAddressRequest
	if !bindJSON(c, &req) {
		return
	}

	updated, err := h.accountService.UpdateAddress(c.Request.Context(), user, &req)
	h.respondUser(c, updated, err, "Address updated successfully")
}

func (h *AccountHandler) UpdateAvatar(c *gin.Context, user *domain.User) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxAvatarBytes+multipartOverhead)

	avatar, closeAvatar, err := formFile(c, "avatar")
	if err != nil {
		abortWithStatus(c, http.StatusBadRequest, "Invalid multipart form", bindError(err))
		return
	}
	defer closeAvatar()

	updated, err := h.accountService.UpdateAvatar(c.Request.Context(), user, avatar)
	h.respondUser(c, updated, err, "Avatar updated successfully")
}

func (h *AccountHandler) ChannelProfile(c *gin.Context, user *domain.User) {
	profile, err := h.accountService.ChannelProfile(c.Request.Context(), user, c.Param("username"))
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}

	respond(c, http.StatusOK, profile, "Channel fetched successfully")
}

func (h *AccountHandler) WatchHistory(c *gin.Context, user *domain.User) {
	history, err := h.accountService.WatchHistory(c.Request.Context(), user)
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}
	if history == nil {
		history = []domain.HistoryEntry{}
	}

	respond(c, http.StatusOK, history, "Watch history fetched successfully")
}

func (h *AccountHandler) respondUser(c *gin.Context, user *domain.User, err error, message string) {
	if err != nil {
		abortWithError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, dto.NewUserResponse(user), message)
}

func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		abortWithStatus(c, http.StatusBadRequest, "Invalid request body", bindError(err))
		return false
	}
	return true
}
