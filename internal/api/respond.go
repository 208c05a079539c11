package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/File-Sharing-BondBridg/Drive-Service/internal/apperr"
	"github.com/gin-gonic/gin"
)

// userIDFromContext reads the authenticated subject set by the auth
// middleware.
func userIDFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get("user_id")
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

// statusFor maps an error kind to its HTTP status.
func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindInvalidArgument, apperr.KindInvalidName,
		apperr.KindPathTooLong, apperr.KindDepthExceeded,
		apperr.KindEmptyUpload, apperr.KindMimeMismatch:
		return http.StatusBadRequest
	case apperr.KindNotFound, apperr.KindNotFoundInStorage:
		return http.StatusNotFound
	case apperr.KindForbidden, apperr.KindOwnershipMismatch:
		return http.StatusForbidden
	case apperr.KindDuplicate, apperr.KindNotEmpty,
		apperr.KindInvalidDest, apperr.KindParentGone,
		apperr.KindInvalidOrAlreadyConfirmed:
		return http.StatusConflict
	case apperr.KindTooLarge:
		return http.StatusRequestEntityTooLarge
	case apperr.KindQuotaExceeded:
		return http.StatusInsufficientStorage
	case apperr.KindNoValidFiles:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as JSON. Typed errors keep their message;
// anything else becomes an opaque 500 with the detail kept to the
// logs.
func writeError(c *gin.Context, err error) {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		c.JSON(statusFor(ae.Kind), gin.H{"error": ae.Message, "code": string(ae.Kind)})
		return
	}
	log.Printf("[API] %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
