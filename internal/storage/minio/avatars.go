package minio

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"
	mclient "github.com/minio/minio-go/v7"

	"github.com/pribylovaa/news-portal/internal/storage"
)

var extByContentType = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// avatarKey — "avatars/<userID>/<uuid><ext>".
func avatarKey(userID int64, contentType string) string {
	return path.Join("avatars", strconv.FormatInt(userID, 10), uuid.NewString()+extByContentType[contentType])
}

func avatarPrefix(userID int64) string {
	return "avatars/" + strconv.FormatInt(userID, 10) + "/"
}

// AvatarUploadURL выдаёт presigned PUT URL после проверки типа и размера.
func (s *AvatarsStorage) AvatarUploadURL(ctx context.Context, userID int64, contentType string, contentLength int64) (*storage.UploadInfo, error) {
	const op = "storage.minio.AvatarUploadURL"

	if contentLength <= 0 || contentLength > s.avatar.MaxSizeBytes {
		return nil, fmt.Errorf("%s: size %d: %w", op, contentLength, storage.ErrInvalidArgument)
	}

	if !slices.Contains(s.avatar.AllowedContentTypes, contentType) {
		return nil, fmt.Errorf("%s: content type %q: %w", op, contentType, storage.ErrInvalidArgument)
	}

	key := avatarKey(userID, contentType)

	u, err := s.client.PresignedPutObject(ctx, s.s3.Bucket, key, s.s3.PresignTTL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &storage.UploadInfo{
		UploadURL: u.String(),
		AvatarKey: key,
		Expires:   s.s3.PresignTTL,
		RequiredHeader: map[string]string{
			"Content-Type":   contentType,
			"Content-Length": strconv.FormatInt(contentLength, 10),
		},
	}, nil
}

// CheckAvatarUpload проверяет, что объект загружен в «свой» префикс
// и удовлетворяет ограничениям. Возвращает публичный URL
// (или сам ключ, если PublicBaseURL не задан).
func (s *AvatarsStorage) CheckAvatarUpload(ctx context.Context, userID int64, key string) (string, error) {
	const op = "storage.minio.CheckAvatarUpload"

	if !strings.HasPrefix(key, avatarPrefix(userID)) {
		return "", fmt.Errorf("%s: foreign key: %w", op, storage.ErrInvalidArgument)
	}

	info, err := s.client.StatObject(ctx, s.s3.Bucket, key, mclient.StatObjectOptions{})
	if err != nil {
		resp := mclient.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
			return "", fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return "", fmt.Errorf("%s: %w", op, err)
	}

	if info.Size <= 0 || info.Size > s.avatar.MaxSizeBytes {
		return "", fmt.Errorf("%s: size %d: %w", op, info.Size, storage.ErrInvalidArgument)
	}

	if ct := info.ContentType; ct != "" && !slices.Contains(s.avatar.AllowedContentTypes, ct) {
		return "", fmt.Errorf("%s: content type %q: %w", op, ct, storage.ErrInvalidArgument)
	}

	if s.s3.PublicBaseURL == "" {
		return key, nil
	}

	return strings.TrimRight(s.s3.PublicBaseURL, "/") + "/" + key, nil
}
