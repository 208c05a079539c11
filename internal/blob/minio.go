package blob

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStore implements Store over a MinIO bucket.
type MinioStore struct {
	client *minio.Client
	bucket string
}

// NewMinio connects to MinIO and creates the bucket if it doesn't
// exist.
func NewMinio(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*MinioStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	exists, err := client.BucketExists(context.Background(), bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(context.Background(), bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
		log.Printf("[MinIO] created bucket: %s", bucket)
	}

	log.Println("Connected to MinIO successfully")
	return &MinioStore{client: client, bucket: bucket}, nil
}

// UploadURL presigns a PUT for key. Metadata entries are signed as
// x-amz-meta headers, so the uploader must send them verbatim or the
// signature fails; that is what lets confirm trust them later.
func (s *MinioStore) UploadURL(ctx context.Context, key, contentType string, metadata map[string]string, expiry time.Duration) (string, error) {
	headers := http.Header{}
	if contentType != "" {
		headers.Set("Content-Type", contentType)
	}
	for k, v := range metadata {
		headers.Set("x-amz-meta-"+k, v)
	}

	u, err := s.client.PresignHeader(ctx, http.MethodPut, s.bucket, key, expiry, url.Values{}, headers)
	if err != nil {
		return "", fmt.Errorf("failed to presign upload for %s: %w", key, err)
	}
	return u.String(), nil
}

func (s *MinioStore) Head(ctx context.Context, key string) (*ObjectInfo, error) {
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to stat %s: %w", key, err)
	}

	meta := make(map[string]string, len(info.UserMetadata))
	for k, v := range info.UserMetadata {
		meta[strings.ToLower(k)] = v
	}
	return &ObjectInfo{
		Key:         key,
		Size:        info.Size,
		ContentType: info.ContentType,
		Metadata:    meta,
	}, nil
}

func (s *MinioStore) DownloadURL(ctx context.Context, key, filename string, expiry time.Duration) (string, error) {
	params := url.Values{}
	if filename != "" {
		params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", filename))
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, expiry, params)
	if err != nil {
		return "", fmt.Errorf("failed to presign download for %s: %w", key, err)
	}
	return u.String(), nil
}

func (s *MinioStore) Download(ctx context.Context, key, localPath string) error {
	return s.client.FGetObject(ctx, s.bucket, key, localPath, minio.GetObjectOptions{})
}

func (s *MinioStore) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

func (s *MinioStore) Remove(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}

// RemovePrefix deletes every object under prefix. Used by the
// users.deleted consumer to purge an owner's key space.
func (s *MinioStore) RemovePrefix(ctx context.Context, prefix string) error {
	objects := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})

	errCh := s.client.RemoveObjects(ctx, s.bucket, objects, minio.RemoveObjectsOptions{})
	for removeErr := range errCh {
		if removeErr.Err != nil {
			log.Printf("[MinIO] failed to delete object %s: %v", removeErr.ObjectName, removeErr.Err)
			return removeErr.Err
		}
	}
	return nil
}
