// minio реализует storage.Avatars поверх MinIO/S3:
//   - presigned PUT URL для загрузки аватара напрямую в бакет;
//   - подтверждение загрузки (наличие объекта, размер, тип).
package minio

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	mclient "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/pribylovaa/news-portal/internal/config"
	"github.com/pribylovaa/news-portal/internal/storage"
)

// AvatarsStorage — адаптер MinIO для операций с аватарами.
type AvatarsStorage struct {
	s3     config.S3Config
	avatar config.AvatarConfig
	client *mclient.Client
}

// New создает клиент MinIO и проверяет наличие бакета.
// Endpoint может быть задан со схемой: по ней выбирается Secure.
func New(ctx context.Context, s3 config.S3Config, avatar config.AvatarConfig) (*AvatarsStorage, error) {
	const op = "storage.minio.New"

	endpoint := s3.Endpoint
	secure := strings.HasPrefix(endpoint, "https://")

	if u, err := url.Parse(endpoint); err == nil && u.Scheme != "" {
		endpoint = u.Host
		secure = u.Scheme == "https"
	}

	client, err := mclient.New(endpoint, &mclient.Options{
		Creds:  credentials.NewStaticV4(s3.RootUser, s3.RootPassword, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	exists, err := client.BucketExists(ctx, s3.Bucket)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !exists {
		return nil, fmt.Errorf("%s: bucket %q does not exist", op, s3.Bucket)
	}

	return &AvatarsStorage{s3: s3, avatar: avatar, client: client}, nil
}

var _ storage.Avatars = (*AvatarsStorage)(nil)
