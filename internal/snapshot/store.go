package snapshot

import "context"

// Well-known snapshot keys.
const (
	KeyBatches          = "batches"
	KeyLots             = "lots"
	KeyCompletedBatches = "completedBatches"
	KeyOperator         = "operator"
)

// Listener receives the new value of a key. A nil value means the key was deleted.
type Listener func(value []byte)

// Store is a key-value store holding whole-collection JSON snapshots.
// Get returns domain.ErrNotFound when the key is absent.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Subscribe(ctx context.Context, key string, fn Listener) (cancel func(), err error)
	Ping(ctx context.Context) error
}
