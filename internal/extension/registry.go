package extension

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sitedeck/sitedeck/backend/internal/isolation"
	"github.com/sitedeck/sitedeck/backend/internal/logging"
	"github.com/sitedeck/sitedeck/backend/internal/permissions"
	"github.com/sitedeck/sitedeck/backend/internal/shared/errs"
	"github.com/sitedeck/sitedeck/backend/internal/shared/paths"
	"github.com/sitedeck/sitedeck/backend/internal/shared/types"
	"github.com/sitedeck/sitedeck/backend/internal/validator"
)

// Events receives registry notifications for the display process.
type Events interface {
	Publish(eventType string, record *types.ExtensionRecord)
}

// Registry orchestrates extension lifecycle state transitions.
type Registry struct {
	mu      sync.RWMutex
	records map[string]*types.ExtensionRecord // Protected by mu
	idLocks map[string]*sync.Mutex            // Per-id mutation serialization

	layout    paths.Layout
	validator *validator.Validator
	deriver   *isolation.Deriver
	perms     *permissions.Store
	events    Events
	logger    *logging.Logger
}

// NewRegistry creates a registry over the managed storage layout and loads
// persisted records.
func NewRegistry(
	layout paths.Layout,
	deriver *isolation.Deriver,
	perms *permissions.Store,
	logger *logging.Logger,
) (*Registry, error) {
	if logger == nil {
		logger = logging.NewDefault()
	}

	r := &Registry{
		records: make(map[string]*types.ExtensionRecord),
		idLocks: make(map[string]*sync.Mutex),
		layout:  layout,
		deriver: deriver,
		perms:   perms,
		logger:  logger.Named("registry"),
	}
	r.validator = validator.New(r, logger)

	for _, dir := range layout.StandardDirectories() {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	if err := r.loadRecords(); err != nil {
		return nil, err
	}
	return r, nil
}

// WithEvents attaches an event sink.
func (r *Registry) WithEvents(events Events) *Registry {
	r.events = events
	return r
}

// Validator exposes the registry-bound validator for the bridge layer.
func (r *Registry) Validator() *validator.Validator {
	return r.validator
}

// ExistsID implements validator.Index.
func (r *Registry) ExistsID(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.records[id]
	return ok
}

// Validate runs pre-install validation for a user-selected path.
func (r *Registry) Validate(ctx context.Context, path string, kind *types.PackageKind) *types.ValidationResult {
	return r.validator.Validate(ctx, path, kind)
}

// Install validates a package and commits it into managed storage.
// No registry or filesystem writes happen until validation has fully
// succeeded, so a failed install never leaves a partial extension behind.
func (r *Registry) Install(ctx context.Context, path string, kind *types.PackageKind, enable bool) (*types.ExtensionRecord, error) {
	insp, err := r.validator.Inspect(ctx, path, kind)
	if err != nil {
		return nil, err
	}

	extID := insp.ID
	if extID == "" {
		extID = uuid.New().String()
	}
	if err := paths.ValidateExtensionID(extID); err != nil {
		return nil, fmt.Errorf("refusing unsafe extension id: %w", err)
	}

	unlock := r.lockID(extID)
	defer unlock()

	if r.ExistsID(extID) {
		return nil, errs.Of(errs.KindAlreadyExists)
	}

	installPath := r.layout.ExtensionDir(extID)
	if insp.Kind == types.KindDirectory {
		err = copyDirectory(ctx, path, installPath)
	} else {
		err = extractPayload(ctx, insp.Payload, installPath)
	}
	if err != nil {
		// Roll the managed copy back; the record was never created.
		os.RemoveAll(installPath)
		return nil, fmt.Errorf("failed to stage extension: %w", err)
	}

	isoCtx := r.deriver.Derive(types.ScopeExtension, extID)

	now := time.Now()
	record := &types.ExtensionRecord{
		ID:             extID,
		SourcePath:     path,
		InstallPath:    installPath,
		Manifest:       *insp.Manifest,
		State:          types.StateInstalled,
		IsolationLevel: levelForPolicy(r.deriver.Policy()),
		PartitionKey:   isoCtx.Key,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if enable {
		record.State = types.StateEnabled
		record.Enabled = true
	}

	if err := r.persistRecord(record); err != nil {
		os.RemoveAll(installPath)
		return nil, err
	}

	r.mu.Lock()
	r.records[extID] = record
	r.mu.Unlock()

	r.logger.Info("Extension installed",
		zap.String("id", extID),
		zap.String("name", record.Manifest.Name),
		zap.String("partition", record.PartitionKey))
	r.publish("extension.installed", record)

	return r.snapshot(record), nil
}

// Get retrieves a record by id.
func (r *Registry) Get(id string) (*types.ExtensionRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.records[id]
	if !ok {
		return nil, false
	}
	return r.snapshot(record), true
}

// GetWithPermissions returns a record together with its effective
// permission map.
func (r *Registry) GetWithPermissions(id string) (*types.ExtensionRecord, map[string]bool, error) {
	record, ok := r.Get(id)
	if !ok {
		return nil, nil, errs.Of(errs.KindNotFound)
	}
	effective := r.perms.GetEffectivePermissions(id, record.Manifest.Permissions)
	return record, effective, nil
}

// List returns all records.
func (r *Registry) List() []*types.ExtensionRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := make([]*types.ExtensionRecord, 0, len(r.records))
	for _, record := range r.records {
		records = append(records, r.snapshot(record))
	}
	return records
}

// SetEnabled toggles an installed extension. Disabling tears down nothing
// persistent; it only signals collaborators to unload any live instance.
func (r *Registry) SetEnabled(id string, enabled bool) (*types.ExtensionRecord, error) {
	unlock := r.lockID(id)
	defer unlock()

	r.mu.Lock()
	record, ok := r.records[id]
	if !ok {
		r.mu.Unlock()
		return nil, errs.Of(errs.KindNotFound)
	}

	record.Enabled = enabled
	if enabled {
		record.State = types.StateEnabled
	} else {
		record.State = types.StateDisabled
	}
	record.UpdatedAt = time.Now()
	snap := r.snapshot(record)
	r.mu.Unlock()

	if err := r.persistRecord(snap); err != nil {
		return nil, err
	}

	r.publish("extension.state", snap)
	return snap, nil
}

// UpdatePermissions records user allow/deny decisions for a batch of
// permissions.
func (r *Registry) UpdatePermissions(id string, perms []string, allowed bool) (*types.ExtensionRecord, map[string]bool, error) {
	unlock := r.lockID(id)
	defer unlock()

	record, ok := r.Get(id)
	if !ok {
		return nil, nil, errs.Of(errs.KindNotFound)
	}

	for _, p := range perms {
		if err := r.perms.SetGrant(id, p, allowed); err != nil {
			return nil, nil, err
		}
	}

	effective := r.perms.GetEffectivePermissions(id, record.Manifest.Permissions)
	r.publish("extension.permissions", record)
	return record, effective, nil
}

// Remove uninstalls an extension: the managed copy, the persisted record,
// the permission overrides, and the partition's persisted data all go.
// Destructive and irreversible; must be explicit, never implied by disable.
func (r *Registry) Remove(id string) error {
	unlock := r.lockID(id)
	defer unlock()

	r.mu.Lock()
	record, ok := r.records[id]
	if !ok {
		r.mu.Unlock()
		return errs.Of(errs.KindNotFound)
	}
	snap := r.snapshot(record)
	delete(r.records, id)
	r.mu.Unlock()

	if err := os.RemoveAll(snap.InstallPath); err != nil {
		r.logger.Error("Failed to delete managed copy", zap.String("id", id), zap.Error(err))
	}
	if err := os.Remove(r.layout.RecordPath(id)); err != nil && !os.IsNotExist(err) {
		r.logger.Error("Failed to delete record", zap.String("id", id), zap.Error(err))
	}
	if err := r.perms.RemoveExtension(id); err != nil {
		r.logger.Error("Failed to clear permission overrides", zap.String("id", id), zap.Error(err))
	}

	// A shared partition is a well-known key serving every scope of the
	// kind; its data outlives any single extension.
	if snap.IsolationLevel != types.IsolationShared {
		if err := os.RemoveAll(r.layout.PartitionDir(snap.PartitionKey)); err != nil {
			r.logger.Error("Failed to clear partition data", zap.String("id", id), zap.Error(err))
		}
	}

	snap.State = types.StateRemoved
	r.logger.Info("Extension removed", zap.String("id", id))
	r.publish("extension.removed", snap)
	return nil
}

// Stats returns registry statistics.
func (r *Registry) Stats() types.RegistryStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var stats types.RegistryStats
	var lastUpdated *time.Time
	for _, record := range r.records {
		stats.TotalExtensions++
		if record.Enabled {
			stats.Enabled++
		} else {
			stats.Disabled++
		}
		if lastUpdated == nil || record.UpdatedAt.After(*lastUpdated) {
			t := record.UpdatedAt
			lastUpdated = &t
		}
	}
	stats.LastUpdated = lastUpdated
	return stats
}

// lockID acquires the per-id mutation lock.
func (r *Registry) lockID(id string) func() {
	r.mu.Lock()
	lock, ok := r.idLocks[id]
	if !ok {
		lock = &sync.Mutex{}
		r.idLocks[id] = lock
	}
	r.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// snapshot copies a record so callers can never mutate registry state.
func (r *Registry) snapshot(record *types.ExtensionRecord) *types.ExtensionRecord {
	snap := *record
	return &snap
}

func (r *Registry) publish(eventType string, record *types.ExtensionRecord) {
	if r.events != nil {
		r.events.Publish(eventType, record)
	}
}

// persistRecord writes one record file atomically.
func (r *Registry) persistRecord(record *types.ExtensionRecord) error {
	data, err := sonic.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record %s: %w", record.ID, err)
	}

	path := r.layout.RecordPath(record.ID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write record %s: %w", record.ID, err)
	}
	return os.Rename(tmp, path)
}

// loadRecords rebuilds the index from the state directory.
func (r *Registry) loadRecords() error {
	entries, err := os.ReadDir(r.layout.StateDir())
	if err != nil {
		return fmt.Errorf("failed to scan state directory: %w", err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || len(name) < 6 || name[len(name)-5:] != ".json" || name == "permissions.json" {
			continue
		}

		data, err := os.ReadFile(r.layout.RecordPath(name[:len(name)-5]))
		if err != nil {
			r.logger.Warn("Skipping unreadable record", zap.String("file", name), zap.Error(err))
			continue
		}

		var record types.ExtensionRecord
		if err := sonic.Unmarshal(data, &record); err != nil || record.ID == "" {
			r.logger.Warn("Skipping malformed record", zap.String("file", name))
			continue
		}
		r.records[record.ID] = &record
	}

	r.logger.Info("Registry loaded", zap.Int("extensions", len(r.records)))
	return nil
}

// levelForPolicy maps the active isolation policy to a record level.
func levelForPolicy(policy types.IsolationPolicy) types.IsolationLevel {
	switch policy {
	case types.PolicyShared:
		return types.IsolationShared
	case types.PolicyPerOriginHighIsolation:
		return types.IsolationHigh
	default:
		return types.IsolationStandard
	}
}
