// Package events is the NATS edge: outbound notifications about file
// state changes and the inbound, unauthenticated channels the preview
// worker, scanner and account subsystem drive.
package events

import (
	"encoding/json"
	"log"
	"time"

	"github.com/nats-io/nats.go"
)

// Subjects used by this service.
const (
	SubjectFileConfirmed = "files.confirmed"
	SubjectFileDeleted   = "files.deleted"
	SubjectPreviewReady  = "previews.ready"
	SubjectPreviewFailed = "previews.failed"
	SubjectUserCreated   = "users.created"
	SubjectUserDeleted   = "users.deleted"
)

// Publisher is the outbound half, kept narrow so services can take a
// no-op fake in tests.
type Publisher interface {
	Publish(subject string, payload interface{}) error
}

// FileConfirmedEvent announces an upload that passed confirmation.
type FileConfirmedEvent struct {
	FileID   string `json:"file_id"`
	OwnerID  string `json:"owner_id"`
	S3Key    string `json:"s3_key"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size"`
}

// FileDeletedEvent announces a soft-deleted file.
type FileDeletedEvent struct {
	FileID  string `json:"file_id"`
	OwnerID string `json:"owner_id"`
	S3Key   string `json:"s3_key"`
}

// PreviewReadyEvent arrives from the preview worker on success.
type PreviewReadyEvent struct {
	FileID     string `json:"file_id"`
	PreviewKey string `json:"preview_key"`
}

// PreviewFailedEvent arrives from the preview worker on failure.
type PreviewFailedEvent struct {
	FileID string `json:"file_id"`
	Error  string `json:"error"`
}

// UserCreatedEvent arrives from the account subsystem when a user is
// provisioned.
type UserCreatedEvent struct {
	UserID       string `json:"user_id"`
	StorageLimit int64  `json:"storage_limit,omitempty"`
}

// UserDeletedEvent arrives from the account subsystem when a user is
// removed.
type UserDeletedEvent struct {
	UserID string `json:"user_id"`
}

// Client wraps a NATS connection.
type Client struct {
	Conn *nats.Conn
}

// Connect dials NATS with infinite reconnects so the service rides
// out broker restarts.
func Connect(url string) (*Client, error) {
	opts := []nats.Option{
		nats.Name("drive-service"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Printf("[NATS] disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("[NATS] reconnected to %s", nc.ConnectedUrl())
		}),
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{Conn: conn}, nil
}

// Publish marshals payload as JSON and publishes it.
func (c *Client) Publish(subject string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if err := c.Conn.Publish(subject, data); err != nil {
		log.Printf("[NATS] publish failed subject=%s err=%v", subject, err)
		return err
	}
	return nil
}

// SubscribeAll registers all routes once during startup.
func (c *Client) SubscribeAll(routes map[string]nats.MsgHandler) error {
	for subject, handler := range routes {
		if _, err := c.Conn.Subscribe(subject, handler); err != nil {
			return err
		}
		log.Printf("[NATS] Subscribed to: %s", subject)
	}
	return nil
}

// Close drains the connection.
func (c *Client) Close() {
	if c.Conn != nil && c.Conn.IsConnected() {
		c.Conn.Close()
	}
}
