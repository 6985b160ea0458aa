package extension

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/sitedeck/sitedeck/backend/internal/logging"
	"github.com/sitedeck/sitedeck/backend/internal/shared/errs"
)

// Seeder installs bundled extensions shipped with the application.
type Seeder struct {
	registry   *Registry
	bundledDir string
	logger     *logging.Logger
}

// NewSeeder creates a seeder over the bundled extensions directory.
func NewSeeder(registry *Registry, bundledDir string, logger *logging.Logger) *Seeder {
	if logger == nil {
		logger = logging.NewDefault()
	}
	return &Seeder{
		registry:   registry,
		bundledDir: bundledDir,
		logger:     logger.Named("seeder"),
	}
}

// Seed installs every bundled package not yet present in the registry.
// Bundles install disabled; enabling stays a user decision. Individual
// failures are logged and skipped, never fatal to startup.
func (s *Seeder) Seed(ctx context.Context) error {
	if s.bundledDir == "" {
		return nil
	}
	if _, err := os.Stat(s.bundledDir); os.IsNotExist(err) {
		s.logger.Warn("Bundled extensions directory not found", zap.String("dir", s.bundledDir))
		return nil
	}

	entries, err := os.ReadDir(s.bundledDir)
	if err != nil {
		return err
	}

	var loaded, skipped, failed int
	for _, entry := range entries {
		path := filepath.Join(s.bundledDir, entry.Name())
		if !entry.IsDir() && !seedableFile(entry.Name()) {
			continue
		}

		_, err := s.registry.Install(ctx, path, nil, false)
		switch {
		case err == nil:
			loaded++
		case errs.Is(err, errs.KindAlreadyExists):
			skipped++
		default:
			failed++
			s.logger.Warn("Failed to seed bundled extension",
				zap.String("path", path), zap.Error(err))
		}
	}

	s.logger.Info("Seeding complete",
		zap.Int("loaded", loaded), zap.Int("skipped", skipped), zap.Int("failed", failed))
	return nil
}

// seedableFile recognizes installable bundle files by extension.
func seedableFile(name string) bool {
	return strings.HasSuffix(name, ".zip") || strings.HasSuffix(name, ".crx")
}
