package task

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPool(t *testing.T) {
	r := require.New(t)
	pool := RunWorkers(4, time.Second)

	var done atomic.Int64
	for i := 0; i < 100; i++ {
		r.NoError(pool.Submit(context.Background(), Func(func(ctx context.Context) error {
			done.Add(1)
			return nil
		})))
	}
	pool.Close()
	r.Equal(int64(100), done.Load())

	err := pool.Submit(context.Background(), Func(func(context.Context) error { return nil }))
	r.True(errors.Is(err, ErrClosed))
	// Second close is no-op.
	pool.Close()
}

func TestPoolTaskTimeout(t *testing.T) {
	r := require.New(t)
	pool := RunWorkers(1, 10*time.Millisecond)

	errC := make(chan error, 1)
	r.NoError(pool.Submit(context.Background(), Func(func(ctx context.Context) error {
		<-ctx.Done()
		errC <- ctx.Err()
		return ctx.Err()
	})))
	pool.Close()
	r.True(errors.Is(<-errC, context.DeadlineExceeded))
}

func TestPoolSubmitBlocks(t *testing.T) {
	r := require.New(t)
	pool := RunWorkers(1, time.Second)
	defer pool.Close()

	releaseC := make(chan struct{})
	r.NoError(pool.Submit(context.Background(), Func(func(context.Context) error {
		<-releaseC
		return nil
	})))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := pool.Submit(ctx, Func(func(context.Context) error { return nil }))
	r.True(errors.Is(err, context.DeadlineExceeded))
	close(releaseC)
}

func TestPoolRecovers(t *testing.T) {
	r := require.New(t)
	pool := RunWorkers(1, time.Second)

	var done atomic.Bool
	r.NoError(pool.Submit(context.Background(), Func(func(context.Context) error {
		panic("boom")
	})))
	r.NoError(pool.Submit(context.Background(), Func(func(context.Context) error {
		done.Store(true)
		return nil
	})))
	pool.Close()
	r.True(done.Load())
}
