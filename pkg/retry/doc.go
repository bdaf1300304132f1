// Package retry re-runs note service calls that failed with a transient
// service error (HTTP 429 or 5xx), waiting between attempts with
// exponential backoff and jitter.
//
//	data, err := retry.DoWithResult(ctx, func(ctx context.Context) ([]byte, error) {
//		return client.GetResourceData(ctx, session, guid)
//	}, retry.FromConfig(cfg.Retry, log))
//
// Authentication, not-found, protocol and local write errors are returned
// after the first attempt. Cancelling ctx stops the wait and returns the
// last operation error.
package retry
