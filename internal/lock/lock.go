// Package lock serializes read-modify-write sequences on a single user record.
package lock

import (
	"context"
	"sync"
)

// Locker grants exclusive access to a key until the returned unlock func is called.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// UserKey is the lock key guarding a user's entitlement fields.
func UserKey(userID string) string {
	return "lock:user:" + userID
}

type keyEntry struct {
	slot chan struct{}
	refs int
}

// KeyedMutex is an in-process Locker. Entries are dropped once no caller holds or waits on them.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[string]*keyEntry
}

// NewKeyedMutex creates an empty keyed mutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{entries: make(map[string]*keyEntry)}
}

// Lock blocks until key is free or ctx is done.
func (k *KeyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	entry, ok := k.entries[key]
	if !ok {
		entry = &keyEntry{slot: make(chan struct{}, 1)}
		k.entries[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	select {
	case entry.slot <- struct{}{}:
	case <-ctx.Done():
		k.release(key, entry)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-entry.slot
			k.release(key, entry)
		})
	}, nil
}

func (k *KeyedMutex) release(key string, entry *keyEntry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	entry.refs--
	if entry.refs == 0 {
		delete(k.entries, key)
	}
}

// Len returns the number of keys currently held or awaited.
func (k *KeyedMutex) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}
