package lock

import (
	"context"
)

// Guard wraps op so that it runs while holding the lock named by key(req).
//
// If acquisition fails op is not invoked and the acquisition error is returned.
// Otherwise the lock is released exactly once on every exit path, including panics,
// and op's result and error are returned unchanged. Release failures are reported
// by the Manager and never replace op's outcome.
//
// The lock is released with a context detached from ctx's cancellation so that a
// client disconnect cannot leave the lock held until it expires.
func Guard[Req, Res any](m Manager, key func(Req) string, op func(context.Context, Req) (Res, error)) func(context.Context, Req) (Res, error) {
	return func(ctx context.Context, req Req) (Res, error) {
		handle, err := m.Acquire(ctx, key(req))
		if err != nil {
			var zero Res
			return zero, err
		}
		defer func() {
			_ = m.Release(context.WithoutCancel(ctx), handle)
		}()

		return op(ctx, req)
	}
}
