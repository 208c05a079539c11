package api

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, PATCH, PUT, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(200)
			return
		}
		c.Next()
	}
}

// Health reports liveness and database reachability.
func Health(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// RegisterRoutes wires every endpoint. Everything under /api except
// /api/health requires authentication.
func RegisterRoutes(r *gin.Engine, auth gin.HandlerFunc, db *sql.DB, folders *FolderHandler, files *FileHandler) {
	// Enable CORS for preflight requests
	r.Use(corsMiddleware())

	api := r.Group("/api")
	api.GET("/health", Health(db))

	authed := api.Group("")
	authed.Use(auth)
	{
		// Folder endpoints
		authed.POST("/folders", folders.Create)
		authed.GET("/folders", folders.List)
		authed.GET("/folders/search", folders.Search)
		authed.GET("/folders/:id/path", folders.Path)
		authed.GET("/folders/:id/stats", folders.Stats)
		authed.PATCH("/folders/:id/rename", folders.Rename)
		authed.PATCH("/folders/:id/move", folders.Move)
		authed.DELETE("/folders/:id", folders.Delete)
		authed.POST("/folders/:id/restore", folders.Restore)

		// File endpoints
		authed.POST("/files/intent", files.CreateIntent) // open an upload
		authed.POST("/files/:id/confirm", files.Confirm) // activate after PUT
		authed.GET("/files", files.List)                 // page a folder's files
		authed.GET("/files/search", files.Search)
		authed.GET("/files/tags", files.ByTags)
		authed.GET("/files/stats", files.Stats)
		authed.GET("/files/:id", files.Get)
		authed.GET("/files/:id/download", files.Download)
		authed.DELETE("/files/:id", files.Delete)
		authed.POST("/files/batch-delete", files.BatchDelete)
		authed.POST("/files/previews", files.BatchPreviews)
		authed.PATCH("/files/:id/move", files.Move)
		authed.PATCH("/files/:id/rename", files.Rename)
		authed.PUT("/files/:id/tags", files.UpdateTags)
		authed.PUT("/files/:id/description", files.UpdateDescription)

		// Quota
		authed.GET("/quota", files.Quota)
	}
}
