// Package retry runs an operation again with exponential backoff until it
// succeeds, runs out of attempts or its context ends.
//
// Errors wrapped with Permanent stop the loop at once, as do errors that
// package errors classifies as invalid or fatal:
//
//	err := retry.Do(ctx, retry.Startup(), func() error {
//		err := client.Connect(ctx)
//		if stderrors.Is(err, natsclient.ErrCircuitOpen) {
//			return retry.Permanent(err)
//		}
//		return err
//	})
package retry
