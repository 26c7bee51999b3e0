package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/c360/semlink/natsclient"
)

// MockKVStore is an in-memory key-value store with the natsclient.KVStore
// method set. Thread-safe for concurrent use from multiple goroutines.
type MockKVStore struct {
	mu       sync.RWMutex
	data     map[string][]byte
	revision uint64
	// Err, when set, is returned by every operation.
	Err error
}

// NewMockKVStore creates a new mock KV store.
func NewMockKVStore() *MockKVStore {
	return &MockKVStore{
		data: make(map[string][]byte),
	}
}

// Get retrieves a copy of a value.
func (kv *MockKVStore) Get(_ context.Context, key string) (*natsclient.KVEntry, error) {
	kv.mu.RLock()
	defer kv.mu.RUnlock()

	if kv.Err != nil {
		return nil, kv.Err
	}
	val, ok := kv.data[key]
	if !ok {
		return nil, natsclient.ErrKVKeyNotFound
	}
	result := make([]byte, len(val))
	copy(result, val)
	return &natsclient.KVEntry{Key: key, Value: result, Revision: kv.revision}, nil
}

// Put stores a value.
func (kv *MockKVStore) Put(_ context.Context, key string, value []byte) (uint64, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	if kv.Err != nil {
		return 0, kv.Err
	}
	kv.revision++
	kv.data[key] = append([]byte(nil), value...)
	return kv.revision, nil
}

// Delete removes a key.
func (kv *MockKVStore) Delete(_ context.Context, key string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	if kv.Err != nil {
		return kv.Err
	}
	delete(kv.data, key)
	return nil
}

// Keys returns all keys, sorted.
func (kv *MockKVStore) Keys(_ context.Context) ([]string, error) {
	kv.mu.RLock()
	defer kv.mu.RUnlock()

	if kv.Err != nil {
		return nil, kv.Err
	}
	keys := make([]string, 0, len(kv.data))
	for k := range kv.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
