// Package natsclient manages a NATS connection and the JetStream key-value
// buckets used by the kv document store.
//
// The client keeps a small circuit breaker: after a threshold of consecutive
// failures it fails fast with ErrCircuitOpen until a connect attempt
// succeeds again.
//
//	client, err := natsclient.NewClient("nats://localhost:4222",
//	    natsclient.WithName("semlink"),
//	    natsclient.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	if err := client.Connect(ctx); err != nil {
//	    return err
//	}
//	defer client.Close(ctx)
//
//	bucket, err := client.CreateKeyValueBucket(ctx, jetstream.KeyValueConfig{Bucket: "documents"})
//	kv := client.NewKVStore(bucket)
//
// Backend option maps translate through OptionsFromMap, which also reads the
// tlsutil keys.
//
// KVStore maps bucket errors to ErrKVKeyNotFound and wraps the rest with the
// errors package classification, so callers can tell a missing key from an
// unreachable server.
//
// # Testing
//
// NewTestClient starts a NATS server in a container through testcontainers
// and returns a connected client; SEMLINK_TEST_NATS_IMAGE selects another
// server image. Tests using it belong behind the integration build tag.
package natsclient
