// Package snapshot stores raw roster dumps between passes, either on the
// local filesystem or in a NATS key-value bucket.
package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jschlyter/scoutnet2airkey/internal/domain/port"
	"github.com/jschlyter/scoutnet2airkey/pkg/errors"
)

type fileStore struct {
	directory string
}

func (f *fileStore) path(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, "/\\") {
		return "", errors.NewValidation(fmt.Sprintf("invalid snapshot name %q", name))
	}
	return filepath.Join(f.directory, name+".json"), nil
}

func (f *fileStore) SaveSnapshot(ctx context.Context, name string, data []byte) error {
	path, err := f.path(name)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(f.directory, 0o755); err != nil {
		return errors.NewUnexpected("failed to create snapshot directory", err)
	}

	// Snapshots may contain personal data, keep them owner-readable only.
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.NewUnexpected("failed to write snapshot", err)
	}

	slog.DebugContext(ctx, "saved snapshot", "name", name, "path", path, "bytes", len(data))
	return nil
}

func (f *fileStore) LoadSnapshot(ctx context.Context, name string) ([]byte, error) {
	path, err := f.path(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFound(fmt.Sprintf("snapshot %q not found", name))
		}
		return nil, errors.NewUnexpected("failed to read snapshot", err)
	}

	slog.DebugContext(ctx, "loaded snapshot", "name", name, "path", path, "bytes", len(data))
	return data, nil
}

// NewFileStore creates a snapshot store backed by JSON files in directory.
func NewFileStore(directory string) port.SnapshotReaderWriter {
	return &fileStore{directory: directory}
}
