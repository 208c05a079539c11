package events

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

// HandlerTimeout bounds the work done for a single message.
const HandlerTimeout = 30 * time.Second

// Consumers is what the inbound routes need from the rest of the
// service. The concrete types live in services/preview/scan; this
// package only sees the operations the channels drive.
type Consumers struct {
	// UpdatePreview records a finished preview for a file.
	UpdatePreview func(ctx context.Context, fileID, previewKey, status string) error
	// MarkPreviewFailed records a failed preview attempt.
	MarkPreviewFailed func(ctx context.Context, fileID, reason string) error
	// ProvisionAccount creates the quota account for a new user.
	ProvisionAccount func(ctx context.Context, userID string, storageLimit int64) error
	// PurgeOwner removes a deleted user's files and objects.
	PurgeOwner func(ctx context.Context, userID string) (int64, error)
	// ProcessConfirmed runs preview generation for a confirmed upload.
	ProcessConfirmed func(ctx context.Context, ev FileConfirmedEvent)
	// ScanConfirmed runs the virus scan for a confirmed upload.
	ScanConfirmed func(ctx context.Context, fileID, s3Key string)
}

// Routes maps each inbound subject to its handler. Loaded once during
// startup.
func Routes(c Consumers) map[string]nats.MsgHandler {
	return map[string]nats.MsgHandler{

		// Preview worker outcomes. No ordering guarantee; last write
		// wins.
		SubjectPreviewReady: func(msg *nats.Msg) {
			var ev PreviewReadyEvent
			if err := json.Unmarshal(msg.Data, &ev); err != nil {
				log.Printf("[NATS] bad %s payload: %v", msg.Subject, err)
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), HandlerTimeout)
			defer cancel()
			if err := c.UpdatePreview(ctx, ev.FileID, ev.PreviewKey, "ready"); err != nil {
				log.Printf("[NATS] failed to record preview for %s: %v", ev.FileID, err)
			}
		},
		SubjectPreviewFailed: func(msg *nats.Msg) {
			var ev PreviewFailedEvent
			if err := json.Unmarshal(msg.Data, &ev); err != nil {
				log.Printf("[NATS] bad %s payload: %v", msg.Subject, err)
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), HandlerTimeout)
			defer cancel()
			if err := c.MarkPreviewFailed(ctx, ev.FileID, ev.Error); err != nil {
				log.Printf("[NATS] failed to record preview failure for %s: %v", ev.FileID, err)
			}
		},

		// User events from the account subsystem.
		SubjectUserCreated: func(msg *nats.Msg) {
			var ev UserCreatedEvent
			if err := json.Unmarshal(msg.Data, &ev); err != nil {
				log.Printf("[NATS] bad %s payload: %v", msg.Subject, err)
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), HandlerTimeout)
			defer cancel()
			if err := c.ProvisionAccount(ctx, ev.UserID, ev.StorageLimit); err != nil {
				log.Printf("[NATS] failed to provision account %s: %v", ev.UserID, err)
			}
		},
		SubjectUserDeleted: func(msg *nats.Msg) {
			var ev UserDeletedEvent
			if err := json.Unmarshal(msg.Data, &ev); err != nil {
				log.Printf("[NATS] bad %s payload: %v", msg.Subject, err)
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), HandlerTimeout)
			defer cancel()
			n, err := c.PurgeOwner(ctx, ev.UserID)
			if err != nil {
				log.Printf("[NATS] failed to purge user %s: %v", ev.UserID, err)
				return
			}
			log.Printf("[NATS] purged %d files for deleted user %s", n, ev.UserID)
		},

		// Post-confirmation fan-out: preview generation and virus
		// scan, each in its own goroutine.
		SubjectFileConfirmed: func(msg *nats.Msg) {
			var ev FileConfirmedEvent
			if err := json.Unmarshal(msg.Data, &ev); err != nil {
				log.Printf("[NATS] bad %s payload: %v", msg.Subject, err)
				return
			}
			if strings.HasPrefix(ev.MimeType, "image/") {
				ctx, cancel := context.WithTimeout(context.Background(), HandlerTimeout)
				if err := c.UpdatePreview(ctx, ev.FileID, "", "processing"); err != nil {
					log.Printf("[NATS] failed to mark preview processing for %s: %v", ev.FileID, err)
				}
				cancel()
			}
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), HandlerTimeout)
				defer cancel()
				c.ProcessConfirmed(ctx, ev)
			}()
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), HandlerTimeout)
				defer cancel()
				c.ScanConfirmed(ctx, ev.FileID, ev.S3Key)
			}()
		},
	}
}
