// Retries stop early on errors marked with NonRetryable and on errors the
// semlink errors package classifies as invalid or fatal; everything else is
// retried with exponential backoff.
//
//	rows, err := retry.DoWithResult(ctx, retry.DefaultConfig(), func() ([]row, error) {
//		return client.query(ctx, q)
//	})
//	if errors.Is(err, errors.ErrMaxRetriesExceeded) {
//		// every attempt failed with a transient error
//	}
//
// The SPARQL and NATS KV backends wrap their network calls with Do.
package retry
