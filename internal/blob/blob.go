// Package blob wraps the object store. The service never reads or
// writes object bytes on the request path; it hands out presigned
// URLs and probes metadata. The async workers (preview, scan) are the
// only callers that move bytes, and they do it off-request.
package blob

import (
	"context"
	"io"
	"time"
)

// ObjectInfo is the metadata a HEAD probe returns. Metadata keys are
// lower-cased.
type ObjectInfo struct {
	Key         string
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// Store is the blob-store boundary. Head returns (nil, nil) for a
// missing object.
type Store interface {
	UploadURL(ctx context.Context, key, contentType string, metadata map[string]string, expiry time.Duration) (string, error)
	Head(ctx context.Context, key string) (*ObjectInfo, error)
	DownloadURL(ctx context.Context, key, filename string, expiry time.Duration) (string, error)

	Download(ctx context.Context, key, localPath string) error
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Remove(ctx context.Context, key string) error
	RemovePrefix(ctx context.Context, prefix string) error
}
