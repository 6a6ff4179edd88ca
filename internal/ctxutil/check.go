// Package ctxutil holds small context helpers shared across the engine.
package ctxutil

import "context"

// Canceled reports whether ctx is already done, returning its error
// (Canceled or DeadlineExceeded) so blocking operations can bail out at
// entry before doing any work. ctx.Err() is nil until Done closes, so no
// select is needed.
func Canceled(ctx context.Context) error {
	return ctx.Err()
}
