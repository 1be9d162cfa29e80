package goble

import (
	"context"

	"github.com/srg/blelink/internal/groutine"
)

// callContext runs a blocking go-ble call and gives up when ctx ends. go-ble
// calls take no context; an abandoned call finishes in the background.
func callContext[T any](ctx context.Context, name string, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}

	ch := make(chan result, 1)
	groutine.Go(ctx, name, func(context.Context) {
		v, err := fn()
		ch <- result{v, err}
	})

	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
