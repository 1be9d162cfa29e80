package groutine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGo(t *testing.T) {
	var name string
	done := Go(context.Background(), "worker-42", func(ctx context.Context) {
		name = GetName(ctx)
	})
	<-done

	assert.Equal(t, "worker-42", name)
	assert.Empty(t, GetName(context.Background()))
}

func TestSafe(t *testing.T) {
	assert.NoError(t, Safe(nil, "ok", func() error { return nil }))

	boom := errors.New("boom")
	assert.ErrorIs(t, Safe(nil, "fails", func() error { return boom }), boom)

	err := Safe(nil, "panics", func() error { panic("bad adapter") })
	assert.EqualError(t, err, "panics panicked: bad adapter")
}
