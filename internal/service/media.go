package service

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/prperemyshlev/account-service/internal/dto"
	"go.uber.org/zap"
)

const (
	defaultContentType = "application/octet-stream"
	maxExtLen          = 5
)

// avatarStore uploads avatars under a fixed prefix and enforces the size limit
type avatarStore struct {
	media    MediaStore
	prefix   string
	maxBytes int64
	logger   *zap.Logger
}

// check reports why an avatar cannot be accepted, or "" when it can.
func (a *avatarStore) check(avatar *dto.FileUpload) string {
	switch {
	case avatar == nil || avatar.Content == nil:
		return "avatar file is required"
	case avatar.Size <= 0:
		return "avatar file is empty"
	case avatar.Size > a.maxBytes:
		return fmt.Sprintf("avatar must be at most %d bytes", a.maxBytes)
	}
	return ""
}

// upload stores the avatar under owner and returns its URL. Callers must run check first.
func (a *avatarStore) upload(ctx context.Context, owner string, avatar *dto.FileUpload) (string, error) {
	contentType := avatar.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}

	objectPath := path.Join(a.prefix, owner, uuid.NewString()+avatarExt(avatar.Filename))
	return a.media.Upload(ctx, objectPath, contentType, io.LimitReader(avatar.Content, a.maxBytes))
}

// avatarExt keeps the client's file extension only when it is short and alphanumeric
func avatarExt(filename string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(filename), "."))
	if ext == "" || len(ext) > maxExtLen {
		return ""
	}
	for _, r := range ext {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return "." + ext
}

// discard deletes a stored avatar. Failures are logged and otherwise ignored.
func (a *avatarStore) discard(ctx context.Context, url string) {
	if url == "" {
		return
	}
	if err := a.media.Delete(ctx, url); err != nil {
		a.logger.Warn("failed to delete avatar", zap.String("url", url), zap.Error(err))
	}
}
