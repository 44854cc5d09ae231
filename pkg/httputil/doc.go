// Package httputil provides HTTP helpers shared by the backend client.
//
// # Retry
//
// [Retry] re-runs an operation with exponential backoff while it fails with
// a [RetryableError]:
//
//	err := httputil.Retry(ctx, 3, 100*time.Millisecond, func() error {
//	    resp, err := http.DefaultClient.Do(req)
//	    if err != nil {
//	        return &httputil.RetryableError{Err: err}
//	    }
//	    defer resp.Body.Close()
//	    return httputil.CheckStatus(resp)
//	})
//
// [CheckStatus] classifies a response: 5xx and 429 are retryable, other
// non-2xx statuses are returned as a plain [StatusError].
package httputil
