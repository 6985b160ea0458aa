package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sitedeck/sitedeck/backend/internal/extension"
	"github.com/sitedeck/sitedeck/backend/internal/infrastructure/monitoring"
	"github.com/sitedeck/sitedeck/backend/internal/isolation"
	"github.com/sitedeck/sitedeck/backend/internal/shared/errs"
	"github.com/sitedeck/sitedeck/backend/internal/shared/types"
	"github.com/sitedeck/sitedeck/backend/internal/shared/utils"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	registry *extension.Registry
	deriver  *isolation.Deriver
	metrics  *monitoring.Metrics
}

// NewHandlers creates a new handler set
func NewHandlers(registry *extension.Registry, deriver *isolation.Deriver, metrics *monitoring.Metrics) *Handlers {
	return &Handlers{
		registry: registry,
		deriver:  deriver,
		metrics:  metrics,
	}
}

// Root handles health check
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "SiteDeck Extension Service (Go)",
		"version": "0.3.0",
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	resp := gin.H{
		"status":           "healthy",
		"registry":         h.registry.Stats(),
		"isolation_policy": h.deriver.Policy(),
		"policy_revision":  h.deriver.Revision(),
	}

	if h.metrics != nil {
		snap := h.metrics.GetSnapshot()
		avgSeconds := 0.0
		if snap.RequestCount > 0 {
			avgSeconds = snap.TotalDuration / float64(snap.RequestCount)
		}
		resp["metrics"] = gin.H{
			"total_requests":      snap.TotalRequests,
			"total_errors":        snap.TotalErrors,
			"avg_request_seconds": avgSeconds,
			"installed_count":     snap.InstalledCount,
			"ws_connections":      snap.ActiveConnections,
			"uptime_seconds":      h.metrics.UptimeDuration().Seconds(),
		}
	}

	c.JSON(http.StatusOK, resp)
}

// ValidatePackage runs pre-install validation without touching the registry
func (h *Handlers) ValidatePackage(c *gin.Context) {
	var req types.ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	if err := utils.ValidatePath(req.Path); err != nil {
		respondBadRequest(c, err)
		return
	}

	var timer *monitoring.Timer
	if h.metrics != nil {
		timer = monitoring.NewTimer(h.metrics, kindLabel(req.Kind))
	}

	result := h.registry.Validate(c.Request.Context(), req.Path, req.Kind)

	if timer != nil {
		outcome := "valid"
		if !result.Valid {
			outcome = string(result.ErrorKind)
		}
		timer.Stop(outcome)
	}

	// Validation outcomes are data, not transport failures.
	c.JSON(http.StatusOK, result)
}

// InstallExtension validates and commits a package into managed storage
func (h *Handlers) InstallExtension(c *gin.Context) {
	var req types.InstallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	if err := utils.ValidatePath(req.Path); err != nil {
		respondBadRequest(c, err)
		return
	}

	record, err := h.registry.Install(c.Request.Context(), req.Path, req.Kind, req.Enable)
	if err != nil {
		respondError(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.IncInstalls()
		stats := h.registry.Stats()
		h.metrics.SetExtensionCounts(stats.TotalExtensions, stats.Enabled)
	}

	c.JSON(http.StatusCreated, gin.H{"extension": record})
}

// ListExtensions lists all installed extensions
func (h *Handlers) ListExtensions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"extensions": h.registry.List(),
		"stats":      h.registry.Stats(),
	})
}

// GetExtension returns one extension with its effective permissions
func (h *Handlers) GetExtension(c *gin.Context) {
	id := c.Param("id")
	if err := utils.ValidateID(id, "extension_id", true); err != nil {
		respondBadRequest(c, err)
		return
	}

	record, permissions, err := h.registry.GetWithPermissions(id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"extension":   record,
		"permissions": permissions,
	})
}

// SetExtensionEnabled toggles an installed extension
func (h *Handlers) SetExtensionEnabled(c *gin.Context) {
	id := c.Param("id")
	if err := utils.ValidateID(id, "extension_id", true); err != nil {
		respondBadRequest(c, err)
		return
	}

	var req types.SetEnabledRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	record, err := h.registry.SetEnabled(id, req.Enabled)
	if err != nil {
		respondError(c, err)
		return
	}
	if h.metrics != nil {
		stats := h.registry.Stats()
		h.metrics.SetExtensionCounts(stats.TotalExtensions, stats.Enabled)
	}

	c.JSON(http.StatusOK, gin.H{"extension": record})
}

// UpdatePermissions records user decisions for a set of permissions
func (h *Handlers) UpdatePermissions(c *gin.Context) {
	id := c.Param("id")
	if err := utils.ValidateID(id, "extension_id", true); err != nil {
		respondBadRequest(c, err)
		return
	}

	var req types.PermissionUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	if err := utils.ValidatePermissions(req.Permissions); err != nil {
		respondBadRequest(c, err)
		return
	}

	record, permissions, err := h.registry.UpdatePermissions(id, req.Permissions, req.Allowed)
	if err != nil {
		respondError(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.RecordGrantUpdate(req.Allowed)
	}

	c.JSON(http.StatusOK, gin.H{
		"extension":   record,
		"permissions": permissions,
	})
}

// RemoveExtension uninstalls an extension
func (h *Handlers) RemoveExtension(c *gin.Context) {
	id := c.Param("id")
	if err := utils.ValidateID(id, "extension_id", true); err != nil {
		respondBadRequest(c, err)
		return
	}

	if err := h.registry.Remove(id); err != nil {
		respondError(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.IncRemovals()
		stats := h.registry.Stats()
		h.metrics.SetExtensionCounts(stats.TotalExtensions, stats.Enabled)
	}

	c.JSON(http.StatusOK, gin.H{"removed": id})
}

// DerivePartition derives the isolation context for a scope. The display
// process calls this before creating a browsing context.
func (h *Handlers) DerivePartition(c *gin.Context) {
	kindStr := c.Query("kind")
	scopeID := c.Query("scope")

	var kind types.ScopeKind
	switch kindStr {
	case "extension", "":
		kind = types.ScopeExtension
	case "site":
		kind = types.ScopeSite
	default:
		respondBadRequest(c, errs.New(errs.KindInvalidState, "unknown scope kind %q", kindStr))
		return
	}
	if err := utils.ValidateScope(scopeID); err != nil {
		respondBadRequest(c, err)
		return
	}

	isoCtx := h.deriver.Derive(kind, scopeID)
	if h.metrics != nil {
		h.metrics.RecordPartitionDerivation(string(kind))
		h.metrics.SetPolicyRevision(isoCtx.PolicyRevision)
	}

	c.JSON(http.StatusOK, isoCtx)
}

func kindLabel(kind *types.PackageKind) string {
	if kind == nil {
		return "inferred"
	}
	return string(*kind)
}
