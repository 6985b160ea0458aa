package extension

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"

	"github.com/sitedeck/sitedeck/backend/internal/archive"
)

// ignorePatterns are never copied into a managed extension directory.
var ignorePatterns = []string{
	"**/.git",
	"**/.git/**",
	"**/.DS_Store",
	"**/Thumbs.db",
	"**/__MACOSX",
	"**/__MACOSX/**",
}

func ignored(relPath string) bool {
	slashed := strings.TrimSuffix(filepath.ToSlash(relPath), "/")
	for _, pattern := range ignorePatterns {
		if ok, _ := doublestar.Match(pattern, slashed); ok {
			return true
		}
	}
	return false
}

// extractPayload extracts an archive payload into the managed directory.
func extractPayload(ctx context.Context, payload []byte, dest string) error {
	reader, err := archive.Open(payload)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}

	cleanDest := filepath.Clean(dest)
	for _, file := range reader.Files() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if ignored(file.Name) {
			continue
		}

		// Prevent zip-slip attacks
		destPath := filepath.Join(cleanDest, file.Name)
		if !strings.HasPrefix(destPath, cleanDest+string(os.PathSeparator)) {
			continue
		}

		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(destPath, 0o755); err != nil {
				return err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
			return err
		}

		src, err := file.Open()
		if err != nil {
			return err
		}

		dst, err := os.Create(destPath)
		if err != nil {
			src.Close()
			return err
		}

		_, err = io.Copy(dst, src)
		src.Close()
		dst.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

// copyDirectory copies a loose directory package into the managed
// directory, skipping ignored entries.
func copyDirectory(ctx context.Context, source, dest string) error {
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}

	conf := fastwalk.Config{Follow: false}
	return fastwalk.Walk(&conf, source, func(path string, d os.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil || path == source {
			return nil
		}

		relPath, err := filepath.Rel(source, path)
		if err != nil {
			return nil
		}
		if ignored(relPath) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		destPath := filepath.Join(dest, relPath)
		if d.IsDir() {
			return os.MkdirAll(destPath, 0o755)
		}

		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer src.Close()

		if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
			return err
		}

		dst, err := os.Create(destPath)
		if err != nil {
			return err
		}
		defer dst.Close()

		_, err = io.Copy(dst, src)
		return err
	})
}
