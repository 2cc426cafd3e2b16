package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	appledger "github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/application/ledger"
	"go.uber.org/zap"
)

// ErrInvalidKey is returned for keys that would escape the archive root
var ErrInvalidKey = errors.New("invalid archive key")

// FileSystemArchive stores rendered documents below a local directory.
// Keys map to relative paths, e.g. {tenant_id}/invoices/INV-2026-001.pdf.
type FileSystemArchive struct {
	basePath string
	logger   *zap.Logger
}

// Ensure FileSystemArchive implements DocumentArchive
var _ appledger.DocumentArchive = (*FileSystemArchive)(nil)

// NewFileSystemArchive creates the base directory if needed
func NewFileSystemArchive(basePath string, logger *zap.Logger) (*FileSystemArchive, error) {
	if basePath == "" {
		return nil, errors.New("archive base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create archive directory %s: %w", basePath, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileSystemArchive{basePath: basePath, logger: logger}, nil
}

// Put writes content to the file named by key, replacing any previous version.
// contentType is not persisted; the file extension carries it.
func (a *FileSystemArchive) Put(ctx context.Context, key string, content []byte, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fullPath, err := a.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("create archive directory: %w", err)
	}

	// Write then rename so readers never see a partial file
	tmp := fullPath + ".tmp"
	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		return fmt.Errorf("write archive file: %w", err)
	}
	if err := os.Rename(tmp, fullPath); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("move archive file into place: %w", err)
	}

	a.logger.Debug("Document archived",
		zap.String("path", fullPath),
		zap.Int("size", len(content)))
	return nil
}

// Get reads the document stored under key
func (a *FileSystemArchive) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fullPath, err := a.resolve(key)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(fullPath)
}

// resolve maps key to an absolute path and rejects traversal outside basePath
func (a *FileSystemArchive) resolve(key string) (string, error) {
	if key == "" || filepath.IsAbs(key) || containsDotDot(key) {
		a.logger.Warn("Blocked archive key", zap.String("key", key))
		return "", ErrInvalidKey
	}

	absBase, err := filepath.Abs(a.basePath)
	if err != nil {
		return "", fmt.Errorf("resolve archive base path: %w", err)
	}
	absPath, err := filepath.Abs(filepath.Join(a.basePath, filepath.Clean(key)))
	if err != nil {
		return "", fmt.Errorf("resolve archive path: %w", err)
	}
	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		a.logger.Warn("Archive path escape blocked",
			zap.String("key", key),
			zap.String("path", absPath))
		return "", ErrInvalidKey
	}
	return absPath, nil
}

// containsDotDot reports whether any component of path is ".."
func containsDotDot(path string) bool {
	parts := strings.FieldsFunc(path, func(r rune) bool {
		return r == '/' || r == filepath.Separator
	})
	return slices.Contains(parts, "..")
}
