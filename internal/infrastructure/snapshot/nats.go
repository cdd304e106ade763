package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/jschlyter/scoutnet2airkey/internal/domain/port"
	"github.com/jschlyter/scoutnet2airkey/pkg/constants"
	"github.com/jschlyter/scoutnet2airkey/pkg/errors"
)

// NATSConfig holds the connection settings for the NATS snapshot backend.
type NATSConfig struct {
	URL           string
	Timeout       time.Duration
	MaxReconnect  int
	ReconnectWait time.Duration
}

type natsStore struct {
	conn    *nats.Conn
	kvStore jetstream.KeyValue
}

func (n *natsStore) SaveSnapshot(ctx context.Context, name string, data []byte) error {
	if _, err := n.kvStore.Put(ctx, name, data); err != nil {
		return errors.NewUnexpected("failed to store snapshot in NATS KV", err)
	}

	slog.DebugContext(ctx, "saved snapshot to NATS KV", "name", name, "bytes", len(data))
	return nil
}

func (n *natsStore) LoadSnapshot(ctx context.Context, name string) ([]byte, error) {
	entry, err := n.kvStore.Get(ctx, name)
	if err != nil {
		if err == jetstream.ErrKeyNotFound {
			return nil, errors.NewNotFound(fmt.Sprintf("snapshot %q not found", name))
		}
		return nil, errors.NewUnexpected("failed to get snapshot from NATS KV", err)
	}

	return entry.Value(), nil
}

// Close closes the underlying NATS connection.
func (n *natsStore) Close() error {
	if n.conn != nil {
		n.conn.Close()
	}
	return nil
}

// NewNATSStore connects to NATS and returns a snapshot store backed by a
// JetStream key-value bucket, plus a close function for the connection.
func NewNATSStore(ctx context.Context, config NATSConfig) (port.SnapshotReaderWriter, func() error, error) {
	if config.URL == "" {
		return nil, nil, errors.NewValidation("NATS URL is required")
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if config.ReconnectWait <= 0 {
		config.ReconnectWait = 2 * time.Second
	}

	slog.InfoContext(ctx, "connecting to NATS for snapshot storage",
		"url", config.URL,
		"timeout", config.Timeout,
	)

	opts := []nats.Option{
		nats.Name(constants.ServiceName),
		nats.Timeout(config.Timeout),
		nats.MaxReconnects(config.MaxReconnect),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			slog.WarnContext(ctx, "NATS disconnected", "error", err)
		}),
	}

	conn, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, nil, errors.NewServiceUnavailable("failed to connect to NATS", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, nil, errors.NewUnexpected("failed to create JetStream context", err)
	}

	kvStore, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket: constants.KVBucketNameSnapshots,
	})
	if err != nil {
		conn.Close()
		return nil, nil, errors.NewUnexpected("failed to open snapshot KV bucket", err)
	}

	store := &natsStore{
		conn:    conn,
		kvStore: kvStore,
	}
	return store, store.Close, nil
}
