// Package preview generates image thumbnails for confirmed uploads
// and reports the outcome over the preview channel.
package preview

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/File-Sharing-BondBridg/Drive-Service/internal/blob"
	"github.com/File-Sharing-BondBridg/Drive-Service/internal/events"
	"github.com/disintegration/imaging"
)

// Width is the preview width in pixels; height follows the aspect
// ratio.
const Width = 200

// Worker turns confirmed image uploads into stored previews.
type Worker struct {
	blobs  blob.Store
	events events.Publisher
}

func NewWorker(blobs blob.Store, pub events.Publisher) *Worker {
	return &Worker{blobs: blobs, events: pub}
}

// Supports reports whether a preview can be generated for mimeType.
func Supports(mimeType string) bool {
	return strings.HasPrefix(strings.ToLower(mimeType), "image/")
}

// Process generates a preview for one confirmed upload and publishes
// previews.ready or previews.failed. It never returns an error to the
// caller; the outcome travels on the channel.
func (w *Worker) Process(ctx context.Context, ev events.FileConfirmedEvent) {
	if !Supports(ev.MimeType) {
		return
	}

	key, err := w.generate(ctx, ev)
	if err != nil {
		log.Printf("[PREVIEW] generation failed for %s: %v", ev.FileID, err)
		if pubErr := w.events.Publish(events.SubjectPreviewFailed, events.PreviewFailedEvent{
			FileID: ev.FileID,
			Error:  err.Error(),
		}); pubErr != nil {
			log.Printf("[PREVIEW] failed to publish %s: %v", events.SubjectPreviewFailed, pubErr)
		}
		return
	}

	if err := w.events.Publish(events.SubjectPreviewReady, events.PreviewReadyEvent{
		FileID:     ev.FileID,
		PreviewKey: key,
	}); err != nil {
		log.Printf("[PREVIEW] failed to publish %s: %v", events.SubjectPreviewReady, err)
	}
}

func (w *Worker) generate(ctx context.Context, ev events.FileConfirmedEvent) (string, error) {
	srcPath := filepath.Join(os.TempDir(), "preview-src-"+ev.FileID)
	if err := w.blobs.Download(ctx, ev.S3Key, srcPath); err != nil {
		return "", fmt.Errorf("failed to download source: %w", err)
	}
	defer os.Remove(srcPath)

	img, err := imaging.Open(srcPath)
	if err != nil {
		return "", fmt.Errorf("failed to open image: %w", err)
	}

	// Resize while preserving aspect ratio.
	thumb := imaging.Resize(img, Width, 0, imaging.Lanczos)

	outPath := filepath.Join(os.TempDir(), "preview-out-"+ev.FileID+".jpg")
	if err := imaging.Save(thumb, outPath, imaging.JPEGQuality(85)); err != nil {
		return "", fmt.Errorf("failed to save preview: %w", err)
	}
	defer os.Remove(outPath)

	out, err := os.Open(outPath)
	if err != nil {
		return "", err
	}
	defer out.Close()
	stat, err := out.Stat()
	if err != nil {
		return "", err
	}

	key := "previews/" + ev.FileID + ".jpg"
	if err := w.blobs.Upload(ctx, key, out, stat.Size(), "image/jpeg"); err != nil {
		return "", fmt.Errorf("failed to upload preview: %w", err)
	}
	return key, nil
}
