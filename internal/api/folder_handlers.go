package api

import (
	"net/http"

	"github.com/File-Sharing-BondBridg/Drive-Service/internal/services"
	"github.com/gin-gonic/gin"
)

// FolderHandler serves the folder tree endpoints.
type FolderHandler struct {
	tree *services.FolderTree
}

func NewFolderHandler(tree *services.FolderTree) *FolderHandler {
	return &FolderHandler{tree: tree}
}

type createFolderRequest struct {
	Name           string `json:"name" binding:"required"`
	ParentFolderID string `json:"parent_folder_id"`
}

// Create makes a folder. An empty parent_folder_id targets the
// caller's root, which is created on first touch.
func (h *FolderHandler) Create(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req createFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	folder, err := h.tree.CreateFolder(c.Request.Context(), userID, req.ParentFolderID, req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, folder)
}

// List returns the live children of a folder. No parentId means the
// root.
func (h *FolderHandler) List(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	folders, err := h.tree.ListFolders(c.Request.Context(), userID, c.Query("parentId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"folders": folders, "count": len(folders)})
}

// Path returns the breadcrumb from the root down to the folder.
func (h *FolderHandler) Path(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	trail, err := h.tree.GetFolderPath(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": trail})
}

// Stats returns live counts and active size for one folder.
func (h *FolderHandler) Stats(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	stats, err := h.tree.GetFolderStats(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Search matches live folders by case-insensitive substring.
func (h *FolderHandler) Search(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	folders, err := h.tree.SearchFolders(c.Request.Context(), userID, c.Query("q"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"folders": folders, "count": len(folders)})
}

type renameFolderRequest struct {
	Name string `json:"name" binding:"required"`
}

// Rename renames a folder; descendant paths follow in the same
// transaction.
func (h *FolderHandler) Rename(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req renameFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	folder, err := h.tree.RenameFolder(c.Request.Context(), userID, c.Param("id"), req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, folder)
}

type moveFolderRequest struct {
	NewParentID string `json:"new_parent_id"`
}

// Move reparents a folder. An empty new_parent_id targets the root.
func (h *FolderHandler) Move(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req moveFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	folder, err := h.tree.MoveFolder(c.Request.Context(), userID, c.Param("id"), req.NewParentID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, folder)
}

// Delete soft-deletes a folder. ?cascade=true takes the subtree and
// its files along; ?force=true skips the emptiness check.
func (h *FolderHandler) Delete(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	opts := services.DeleteFolderOptions{
		Cascade: c.Query("cascade") == "true",
		Force:   c.Query("force") == "true",
	}
	result, err := h.tree.DeleteFolder(c.Request.Context(), userID, c.Param("id"), opts)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":           "Folder deleted successfully",
		"deleted_folders":   result.DeletedFolders,
		"storage_reclaimed": result.StorageReclaimed,
	})
}

// Restore brings back a soft-deleted folder, alone.
func (h *FolderHandler) Restore(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	folder, err := h.tree.RestoreFolder(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, folder)
}
