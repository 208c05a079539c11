package api

import (
	"net/http"
	"strconv"

	"github.com/File-Sharing-BondBridg/Drive-Service/internal/services"
	"github.com/gin-gonic/gin"
)

// FileHandler serves the file lifecycle endpoints.
type FileHandler struct {
	files  *services.FileLifecycle
	ledger *services.QuotaLedger
}

func NewFileHandler(files *services.FileLifecycle, ledger *services.QuotaLedger) *FileHandler {
	return &FileHandler{files: files, ledger: ledger}
}

// CreateIntent opens an upload: validates the declaration, checks the
// quota and returns a presigned PUT.
func (h *FileHandler) CreateIntent(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req services.UploadIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	intent, err := h.files.CreateUploadIntent(c.Request.Context(), userID, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, intent)
}

// Confirm verifies the uploaded object and activates the file.
func (h *FileHandler) Confirm(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	file, err := h.files.ConfirmUpload(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, file)
}

// List returns one page of a folder's files.
func (h *FileHandler) List(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "50"))

	result, err := h.files.ListFiles(c.Request.Context(), userID, c.Query("folderId"), page, pageSize)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Get returns one file with a download URL.
func (h *FileHandler) Get(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	file, err := h.files.GetFile(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, file)
}

// Download redirects to a presigned GET for the file's content.
func (h *FileHandler) Download(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	url, err := h.files.DownloadURL(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, url)
}

// Delete soft-deletes one file and reclaims its quota share.
func (h *FileHandler) Delete(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	result, err := h.files.DeleteFile(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":           "File deleted successfully",
		"file_id":           c.Param("id"),
		"storage_reclaimed": result.StorageReclaimed,
	})
}

type batchDeleteRequest struct {
	FileIDs []string `json:"file_ids" binding:"required"`
}

// BatchDelete deletes many files best-effort and reports per-batch
// counts.
func (h *FileHandler) BatchDelete(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req batchDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	result, err := h.files.BatchDeleteFiles(c.Request.Context(), userID, req.FileIDs)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Search matches live files by case-insensitive substring.
func (h *FileHandler) Search(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	files, err := h.files.SearchFiles(c.Request.Context(), userID, c.Query("q"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": files, "count": len(files)})
}

// ByTags returns live files carrying all of the given tags.
func (h *FileHandler) ByTags(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	files, err := h.files.GetFilesByTags(c.Request.Context(), userID, c.QueryArray("tag"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": files, "count": len(files)})
}

type moveFileRequest struct {
	NewParentID string `json:"new_parent_id" binding:"required"`
}

// Move relocates a file to another folder.
func (h *FileHandler) Move(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req moveFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	file, err := h.files.MoveFile(c.Request.Context(), userID, c.Param("id"), req.NewParentID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, file)
}

type renameFileRequest struct {
	Name string `json:"name" binding:"required"`
}

// Rename renames a file.
func (h *FileHandler) Rename(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req renameFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	file, err := h.files.RenameFile(c.Request.Context(), userID, c.Param("id"), req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, file)
}

type updateTagsRequest struct {
	Tags []string `json:"tags"`
}

// UpdateTags replaces a file's tags.
func (h *FileHandler) UpdateTags(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req updateTagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	file, err := h.files.UpdateTags(c.Request.Context(), userID, c.Param("id"), req.Tags)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, file)
}

type updateDescriptionRequest struct {
	Description string `json:"description"`
}

// UpdateDescription replaces a file's description.
func (h *FileHandler) UpdateDescription(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req updateDescriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	file, err := h.files.UpdateDescription(c.Request.Context(), userID, c.Param("id"), req.Description)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, file)
}

// Stats aggregates the caller's active files by coarse type.
func (h *FileHandler) Stats(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	stats, err := h.files.GetFileStats(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

type batchPreviewsRequest struct {
	FileIDs []string `json:"file_ids" binding:"required"`
}

// BatchPreviews returns preview URLs keyed by file id for the files
// that have one.
func (h *FileHandler) BatchPreviews(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req batchPreviewsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	previews, err := h.files.GetBatchPreviews(c.Request.Context(), userID, req.FileIDs)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"previews": previews})
}

// Quota returns the caller's storage counters.
func (h *FileHandler) Quota(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	u, err := h.ledger.Usage(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"storage_used":  u.StorageUsed,
		"storage_limit": u.StorageLimit,
	})
}
