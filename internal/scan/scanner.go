// Package scan runs confirmed uploads through ClamAV. Infected
// objects are removed from the blob store before the verdict is
// recorded.
package scan

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/File-Sharing-BondBridg/Drive-Service/internal/blob"
	"github.com/File-Sharing-BondBridg/Drive-Service/internal/models"
	"github.com/File-Sharing-BondBridg/Drive-Service/internal/storage"
	clamd "github.com/dutchcoders/go-clamd"
)

// Scanner checks confirmed uploads against a clamd daemon.
type Scanner struct {
	blobs blob.Store
	files storage.FileStore
	addr  string
}

func NewScanner(blobs blob.Store, files storage.FileStore, clamAvURL string) *Scanner {
	return &Scanner{blobs: blobs, files: files, addr: clamAvURL}
}

// Scan downloads the object, scans it, removes it if infected and
// records the verdict. Errors are logged, not returned; a failed scan
// leaves the status pending for a later retry.
func (s *Scanner) Scan(ctx context.Context, fileID, key string) {
	tempPath := filepath.Join(os.TempDir(), "scan-"+fileID)
	if err := s.blobs.Download(ctx, key, tempPath); err != nil {
		log.Println("Failed to download for scanning:", err)
		return
	}
	defer os.Remove(tempPath)

	c := clamd.NewClamd(s.addr)
	response, err := c.ScanFile(tempPath)
	if err != nil {
		log.Println("Scan failed:", err)
		return
	}

	status := models.ScanStatusClean
	for res := range response {
		if res.Status == clamd.RES_FOUND {
			log.Printf("Virus detected in %s: %s", fileID, res.Description)
			status = models.ScanStatusInfected

			if err := s.blobs.Remove(ctx, key); err != nil {
				log.Println("Failed to delete infected file:", err)
				return
			}
		}
	}

	if err := s.files.UpdateScanStatus(ctx, fileID, status, time.Now().UTC()); err != nil {
		log.Println("Failed to update scan status:", err)
		return
	}
	log.Printf("Scan finished for %s: %s", fileID, status)
}

// Ping verifies the daemon is reachable; used by the health endpoint.
func (s *Scanner) Ping() error {
	if err := clamd.NewClamd(s.addr).Ping(); err != nil {
		return fmt.Errorf("clamd unreachable: %w", err)
	}
	return nil
}
