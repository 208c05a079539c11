package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/File-Sharing-BondBridg/Drive-Service/cmd/middleware"
	"github.com/File-Sharing-BondBridg/Drive-Service/internal/api"
	"github.com/File-Sharing-BondBridg/Drive-Service/internal/blob"
	"github.com/File-Sharing-BondBridg/Drive-Service/internal/configuration"
	"github.com/File-Sharing-BondBridg/Drive-Service/internal/events"
	"github.com/File-Sharing-BondBridg/Drive-Service/internal/preview"
	"github.com/File-Sharing-BondBridg/Drive-Service/internal/scan"
	"github.com/File-Sharing-BondBridg/Drive-Service/internal/services"
	"github.com/File-Sharing-BondBridg/Drive-Service/internal/storage"
	"github.com/gin-gonic/gin"
	gintrace "gopkg.in/DataDog/dd-trace-go.v1/contrib/gin-gonic/gin"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

func main() {
	cfg := configuration.Load()

	tracer.Start(tracer.WithService("drive-service"))
	defer tracer.Stop()

	db, err := storage.Connect(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer db.Close()

	folderStore := storage.NewPostgresFolderStore(db)
	fileStore := storage.NewPostgresFileStore(db)
	accountStore := storage.NewPostgresAccountStore(db)

	blobs, err := blob.NewMinio(cfg.MinIO.Endpoint, cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, cfg.MinIO.BucketName, cfg.MinIO.UseSSL)
	if err != nil {
		log.Fatalf("Failed to connect to MinIO: %v", err)
	}

	nc, err := events.Connect(cfg.NATSURL)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer nc.Close()

	ledger := services.NewQuotaLedger(accountStore)
	tree := services.NewFolderTree(folderStore, fileStore, ledger)
	lifecycle := services.NewFileLifecycle(fileStore, tree, ledger, blobs, nc)
	previewWorker := preview.NewWorker(blobs, nc)
	scanner := scan.NewScanner(blobs, fileStore, cfg.CLAMAVURL)

	routes := events.Routes(events.Consumers{
		UpdatePreview:     lifecycle.UpdatePreview,
		MarkPreviewFailed: lifecycle.MarkPreviewFailed,
		ProvisionAccount: func(ctx context.Context, userID string, limit int64) error {
			if limit <= 0 {
				limit = cfg.DefaultStorageLimit
			}
			return accountStore.Create(ctx, userID, limit)
		},
		PurgeOwner:       lifecycle.PurgeOwner,
		ProcessConfirmed: previewWorker.Process,
		ScanConfirmed:    scanner.Scan,
	})
	if err := nc.SubscribeAll(routes); err != nil {
		log.Fatalf("Failed to subscribe to NATS subjects: %v", err)
	}

	verifier, err := middleware.NewVerifier(cfg.KeycloakUrl)
	if err != nil {
		log.Fatalf("Failed to initialize OIDC verifier: %v", err)
	}

	r := gin.Default()
	r.Use(gintrace.Middleware("drive-service"))

	api.RegisterRoutes(r, middleware.RequireAuth(verifier), db,
		api.NewFolderHandler(tree),
		api.NewFileHandler(lifecycle, ledger))

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		log.Printf("Server starting on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	waitForShutdown(srv)
}

func waitForShutdown(srv *http.Server) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	log.Println("Shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Forced shutdown: %v", err)
	}
}
