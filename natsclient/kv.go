package natsclient

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360/semlink/errors"
	"github.com/c360/semlink/pkg/retry"
)

// KVEntry is a bucket value with its revision
type KVEntry struct {
	Key      string
	Value    []byte
	Revision uint64
}

// KVOptions configures KV operations behavior
type KVOptions struct {
	Timeout      time.Duration // per operation, 0 disables
	MaxValueSize int           // 0 disables the check
	Retry        retry.Config  // applied to transient failures
}

// DefaultKVOptions returns the options used by NewKVStore
func DefaultKVOptions() KVOptions {
	return KVOptions{
		Timeout:      5 * time.Second,
		MaxValueSize: 1024 * 1024,
		Retry:        retry.Quick(),
	}
}

// KVStore provides KV operations with timeouts, retries and error mapping
type KVStore struct {
	bucket  jetstream.KeyValue
	options KVOptions
	logger  *slog.Logger
}

// NewKVStore wraps bucket
func (m *Client) NewKVStore(bucket jetstream.KeyValue, opts ...func(*KVOptions)) *KVStore {
	options := DefaultKVOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return &KVStore{
		bucket:  bucket,
		options: options,
		logger:  m.logger,
	}
}

// Bucket returns the bucket name
func (kv *KVStore) Bucket() string {
	return kv.bucket.Bucket()
}

func (kv *KVStore) applyTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if kv.options.Timeout > 0 {
		return context.WithTimeout(ctx, kv.options.Timeout)
	}
	return ctx, func() {}
}

// do runs op with retries. Missing keys and invalid input end the loop.
func (kv *KVStore) do(ctx context.Context, op func(ctx context.Context) error) error {
	return retry.Do(ctx, kv.options.Retry, func() error {
		opCtx, cancel := kv.applyTimeout(ctx)
		defer cancel()
		err := op(opCtx)
		if IsKVNotFoundError(err) {
			return retry.NonRetryable(err)
		}
		return err
	})
}

// Get retrieves a value with its revision. A missing key returns ErrKVKeyNotFound.
func (kv *KVStore) Get(ctx context.Context, key string) (*KVEntry, error) {
	var entry jetstream.KeyValueEntry
	err := kv.do(ctx, func(ctx context.Context) error {
		var err error
		entry, err = kv.bucket.Get(ctx, key)
		return err
	})
	if err != nil {
		if IsKVNotFoundError(err) {
			return nil, ErrKVKeyNotFound
		}
		return nil, errors.WrapTransient(err, "KVStore", "Get", fmt.Sprintf("get %s", key))
	}
	return &KVEntry{
		Key:      key,
		Value:    entry.Value(),
		Revision: entry.Revision(),
	}, nil
}

// Put creates or updates a key without revision check (last writer wins)
func (kv *KVStore) Put(ctx context.Context, key string, value []byte) (uint64, error) {
	if kv.options.MaxValueSize > 0 && len(value) > kv.options.MaxValueSize {
		return 0, errors.WrapInvalid(
			fmt.Errorf("%w: size %d exceeds maximum %d", errors.ErrInvalidData, len(value), kv.options.MaxValueSize),
			"KVStore", "Put", "value size validation")
	}

	var rev uint64
	err := kv.do(ctx, func(ctx context.Context) error {
		var err error
		rev, err = kv.bucket.Put(ctx, key, value)
		return err
	})
	if err != nil {
		return 0, errors.WrapTransient(err, "KVStore", "Put", fmt.Sprintf("put %s", key))
	}
	kv.logger.Debug("KV put", "bucket", kv.Bucket(), "key", key, "revision", rev)
	return rev, nil
}

// Delete removes a key. Deleting a missing key is not an error.
func (kv *KVStore) Delete(ctx context.Context, key string) error {
	err := kv.do(ctx, func(ctx context.Context) error {
		return kv.bucket.Delete(ctx, key)
	})
	if err != nil && !IsKVNotFoundError(err) {
		return errors.WrapTransient(err, "KVStore", "Delete", fmt.Sprintf("delete %s", key))
	}
	return nil
}

// Keys lists the keys in the bucket. An empty bucket returns no keys.
func (kv *KVStore) Keys(ctx context.Context) ([]string, error) {
	ctx, cancel := kv.applyTimeout(ctx)
	defer cancel()

	keys, err := kv.bucket.Keys(ctx)
	if err != nil {
		if stderrors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}
		return nil, errors.WrapTransient(err, "KVStore", "Keys", "list keys")
	}
	return keys, nil
}

// IsKVNotFoundError checks if error indicates key not found
func IsKVNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, ErrKVKeyNotFound) || stderrors.Is(err, jetstream.ErrKeyNotFound) ||
		stderrors.Is(err, jetstream.ErrKeyDeleted) {
		return true
	}
	errMsg := err.Error()
	return strings.Contains(errMsg, "key not found") ||
		strings.Contains(errMsg, "10037")
}

// ErrKVKeyNotFound is returned for missing keys
var ErrKVKeyNotFound = stderrors.New("kv: key not found")
