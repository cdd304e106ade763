package port

import "context"

// SnapshotReaderWriter stores raw roster dumps so a pass can be replayed
// offline without hitting the membership registry.
type SnapshotReaderWriter interface {
	SaveSnapshot(ctx context.Context, name string, data []byte) error
	LoadSnapshot(ctx context.Context, name string) ([]byte, error)
}
