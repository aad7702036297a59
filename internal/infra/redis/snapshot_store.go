package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/kursadbilgin/batch-trace/internal/domain"
	"github.com/kursadbilgin/batch-trace/internal/snapshot"
	goredis "github.com/redis/go-redis/v9"
)

const (
	defaultKeyPrefix = "batchtrace:"

	// Change messages are "S<value>" for writes and "D" for deletes so an
	// empty value is distinguishable from a deletion.
	setMarker    = "S"
	deleteMarker = "D"
)

var _ snapshot.Store = (*SnapshotStore)(nil)

// SnapshotStore keeps snapshots as plain Redis strings and announces every
// change on a per-key pub/sub channel.
type SnapshotStore struct {
	client *goredis.Client
	prefix string
}

func NewSnapshotStore(client *goredis.Client, keyPrefix string) (*SnapshotStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}

	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	if !strings.HasSuffix(prefix, ":") {
		prefix += ":"
	}

	return &SnapshotStore{client: client, prefix: prefix}, nil
}

func (s *SnapshotStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, s.dataKey(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("%w: snapshot %q", domain.ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %q: %w", key, err)
	}
	return value, nil
}

func (s *SnapshotStore) Set(ctx context.Context, key string, value []byte) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("snapshot key is required")
	}

	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, s.dataKey(key), value, 0)
		pipe.Publish(ctx, s.channel(key), setMarker+string(value))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write snapshot %q: %w", key, err)
	}
	return nil
}

func (s *SnapshotStore) Delete(ctx context.Context, key string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, s.dataKey(key))
		pipe.Publish(ctx, s.channel(key), deleteMarker)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete snapshot %q: %w", key, err)
	}
	return nil
}

// Subscribe listens on the key's change channel until cancel is called. fn
// runs on a background goroutine.
func (s *SnapshotStore) Subscribe(ctx context.Context, key string, fn snapshot.Listener) (func(), error) {
	if fn == nil {
		return nil, fmt.Errorf("listener is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	pubsub := s.client.Subscribe(ctx, s.channel(key))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to snapshot %q: %w", key, err)
	}

	messages := pubsub.Channel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range messages {
			switch {
			case msg.Payload == deleteMarker:
				fn(nil)
			case strings.HasPrefix(msg.Payload, setMarker):
				fn([]byte(strings.TrimPrefix(msg.Payload, setMarker)))
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			_ = pubsub.Close()
			<-done
		})
	}, nil
}

func (s *SnapshotStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *SnapshotStore) dataKey(key string) string {
	return s.prefix + "snapshot:" + key
}

func (s *SnapshotStore) channel(key string) string {
	return s.prefix + "changes:" + key
}
