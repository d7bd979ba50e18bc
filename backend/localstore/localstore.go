package localstore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Store owns the staging directories for uploaded sources and converted
// artifacts. Files under a task belong to that task until reclaimed.
type Store struct {
	uploadDir    string
	convertedDir string
	log          *logrus.Logger
}

// New creates the staging directories if needed
func New(uploadDir, convertedDir string, log *logrus.Logger) (*Store, error) {
	for _, dir := range []string{uploadDir, convertedDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return &Store{
		uploadDir:    uploadDir,
		convertedDir: convertedDir,
		log:          log,
	}, nil
}

// SaveUpload streams an uploaded source file to <uploadDir>/<taskID><ext>
// and returns its path.
func (s *Store) SaveUpload(taskID, ext string, src io.Reader) (string, error) {
	path := filepath.Join(s.uploadDir, taskID+ext)

	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write upload file: %w", err)
	}

	return path, nil
}

// OutputDir returns the per-task directory converted artifacts are written to
func (s *Store) OutputDir(taskID string) string {
	return filepath.Join(s.convertedDir, taskID)
}

// Reclaim deletes a task's uploaded source file and its output directory.
// Missing files are not an error, so reclaiming twice is harmless.
func (s *Store) Reclaim(taskID, inputPath string) error {
	if inputPath != "" {
		if err := os.Remove(inputPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove input file: %w", err)
		}
	}

	if err := os.RemoveAll(s.OutputDir(taskID)); err != nil {
		return fmt.Errorf("failed to remove output directory: %w", err)
	}

	s.log.Infof("Reclaimed local files for task %s", taskID)
	return nil
}
