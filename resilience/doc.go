// Package resilience re-runs failed commands with exponential backoff.
//
// process.Unit uses it for stages configured with retries:
//
//	p := resilience.Retries(2)
//	res, err := resilience.Retry(ctx, p, func(attempt int) (*process.Result, error) {
//		return process.Run(ctx, cmd)
//	})
package resilience
