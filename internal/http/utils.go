package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sitedeck/sitedeck/backend/internal/shared/errs"
)

// statusFor maps typed error kinds to HTTP status codes. Anything
// unmapped is a server fault.
func statusFor(kind errs.Kind) int {
	switch kind {
	case errs.KindNotFound, errs.KindPathNotExist:
		return http.StatusNotFound
	case errs.KindAlreadyExists:
		return http.StatusConflict
	case errs.KindInvalidState, errs.KindKindMismatch:
		return http.StatusUnprocessableEntity
	case errs.KindTruncated, errs.KindMagicMismatch, errs.KindHeaderSizeExceedsFile,
		errs.KindArchiveNotFound, errs.KindInvalidPayload, errs.KindCorruptArchive,
		errs.KindEntryNotFound, errs.KindManifestNotFound, errs.KindManifestParseError,
		errs.KindNameRequired, errs.KindVersionRequired, errs.KindManifestVersionRequired:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the typed error payload {error: {kind, message}}.
func respondError(c *gin.Context, err error) {
	kind := errs.KindOf(err)
	c.JSON(statusFor(kind), gin.H{
		"error": gin.H{
			"kind":    kind,
			"message": errs.MessageFor(err),
		},
	})
}

// respondBadRequest reports malformed input without a typed kind lookup.
func respondBadRequest(c *gin.Context, err error) {
	kind := errs.KindOf(err)
	c.JSON(http.StatusBadRequest, gin.H{
		"error": gin.H{
			"kind":    kind,
			"message": errs.MessageFor(err),
		},
	})
}
