package snapshot

import "sync"

// Notifier fans out key changes to in-process listeners.
type Notifier struct {
	mu        sync.RWMutex
	nextID    uint64
	listeners map[string]map[uint64]Listener
}

func NewNotifier() *Notifier {
	return &Notifier{listeners: make(map[string]map[uint64]Listener)}
}

// Add registers fn for key and returns a function that removes it.
func (n *Notifier) Add(key string, fn Listener) func() {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.nextID++
	id := n.nextID
	if n.listeners[key] == nil {
		n.listeners[key] = make(map[uint64]Listener)
	}
	n.listeners[key][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			delete(n.listeners[key], id)
			if len(n.listeners[key]) == 0 {
				delete(n.listeners, key)
			}
		})
	}
}

// Notify calls every listener of key outside the lock, each with its own copy of value.
func (n *Notifier) Notify(key string, value []byte) {
	n.mu.RLock()
	fns := make([]Listener, 0, len(n.listeners[key]))
	for _, fn := range n.listeners[key] {
		fns = append(fns, fn)
	}
	n.mu.RUnlock()

	for _, fn := range fns {
		fn(cloneBytes(value))
	}
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
