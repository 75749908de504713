package ingest

import (
	"context"
	"fmt"
	"sync"
)

// keyedMutex provides one mutex per key with automatic cleanup of idle
// entries. Waiters acquire in blocking order, which gives commits for the
// same project+branch their arrival ordering.
type keyedMutex struct {
	mu   sync.Mutex
	keys map[string]*lockEntry
}

type lockEntry struct {
	sem  chan struct{}
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{keys: make(map[string]*lockEntry)}
}

// lock acquires the mutex for key, or gives up when ctx expires. On success
// the returned function releases the mutex.
func (k *keyedMutex) lock(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	e, ok := k.keys[key]
	if !ok {
		e = &lockEntry{sem: make(chan struct{}, 1)}
		k.keys[key] = e
	}
	e.refs++
	k.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
		return func() {
			<-e.sem
			k.release(key, e)
		}, nil
	case <-ctx.Done():
		k.release(key, e)
		return nil, fmt.Errorf("%w: %v", ErrLockTimeout, ctx.Err())
	}
}

func (k *keyedMutex) release(key string, e *lockEntry) {
	k.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(k.keys, key)
	}
	k.mu.Unlock()
}
