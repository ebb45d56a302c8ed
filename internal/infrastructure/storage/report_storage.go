package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/aeci-mmu/fieldforms/internal/application/port"
	"go.uber.org/zap"
)

// ErrPathEscapesBase is returned for paths that resolve outside the base directory
var ErrPathEscapesBase = errors.New("path escapes base directory")

// ReportStorage implements port.FileStorage on the local filesystem.
// Writes go through a temp file and a rename so readers never see a
// half-written report.
type ReportStorage struct {
	baseDir string
	logger  *zap.Logger
}

// NewReportStorage creates a ReportStorage rooted at baseDir
func NewReportStorage(baseDir string, logger *zap.Logger) *ReportStorage {
	return &ReportStorage{
		baseDir: baseDir,
		logger:  logger,
	}
}

// Save writes content to the relative path, creating parent directories
func (s *ReportStorage) Save(ctx context.Context, path string, content []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fullPath, err := s.resolve(path)
	if err != nil {
		return err
	}

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		s.logger.Error("Failed to create report directory", zap.String("path", dir), zap.Error(err))
		return fmt.Errorf("failed to create directories: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".report-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close report: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("failed to set report permissions: %w", err)
	}
	if err := os.Rename(tmpName, fullPath); err != nil {
		s.logger.Error("Failed to move report into place", zap.String("path", fullPath), zap.Error(err))
		return fmt.Errorf("failed to write report: %w", err)
	}

	s.logger.Debug("Report saved",
		zap.String("path", fullPath),
		zap.Int("size", len(content)))
	return nil
}

// Read returns the content stored at the relative path
func (s *ReportStorage) Read(ctx context.Context, path string) ([]byte, error) {
	fullPath, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	return content, nil
}

// Exists reports whether a file is stored at the relative path
func (s *ReportStorage) Exists(ctx context.Context, path string) bool {
	fullPath, err := s.resolve(path)
	if err != nil {
		return false
	}
	info, err := os.Stat(fullPath)
	return err == nil && !info.IsDir()
}

// GetFullPath joins a relative path onto the base directory
func (s *ReportStorage) GetFullPath(relativePath string) string {
	return filepath.Join(s.baseDir, relativePath)
}

func (s *ReportStorage) resolve(relativePath string) (string, error) {
	fullPath := s.GetFullPath(relativePath)

	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	absBase, err := filepath.Abs(s.baseDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base path: %w", err)
	}
	if absPath == absBase || !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrPathEscapesBase, relativePath)
	}
	return fullPath, nil
}

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9\-_]`)

// SafeName strips everything but letters, digits, hyphens and underscores
// so a site ID can be used as a single path segment.
func SafeName(name string) string {
	name = strings.ReplaceAll(name, "..", "")
	return unsafeNameChars.ReplaceAllString(name, "")
}

var _ port.FileStorage = (*ReportStorage)(nil)
