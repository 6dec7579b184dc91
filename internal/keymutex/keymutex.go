// Package keymutex provides a keyed, non-reentrant mutex used to serialize
// read-modify-write sequences against persistent ledger state. Locks are
// created lazily per key, so unrelated keys never contend.
package keymutex

import "sync"

// KeyMutex hands out one mutex per string key.
// The zero value is not usable; call New.
type KeyMutex struct {
	mapMu sync.Mutex // protects locks itself
	locks map[string]*sync.Mutex
}

func New() *KeyMutex {
	return &KeyMutex{
		locks: make(map[string]*sync.Mutex),
	}
}

func (k *KeyMutex) get(key string) *sync.Mutex {
	k.mapMu.Lock()
	defer k.mapMu.Unlock()

	mu, exists := k.locks[key]
	if !exists {
		mu = &sync.Mutex{}
		k.locks[key] = mu
	}
	return mu
}

// Lock acquires the mutex for key and returns the matching unlock func.
// The lock is not reentrant: locking the same key twice from one
// goroutine deadlocks.
func (k *KeyMutex) Lock(key string) (unlock func()) {
	mu := k.get(key)
	mu.Lock()
	return mu.Unlock
}
