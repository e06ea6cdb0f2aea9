package datastore

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsyncDataStore(t *testing.T) {
	async := NewAsyncDataStore(NewMemoryDataStore(), NewPool(4))

	_, err := async.CreateNamespace("token", "goblin1").Get()
	require.NoError(t, err)

	v, err := async.SetLongProperty("token", "goblin1", "hp", 10).Get()
	require.NoError(t, err)
	assert.Equal(t, Long, v.DataType())

	_, err = async.SetStringProperty("token", "goblin1", "hp", "abc").Get()
	assert.ErrorIs(t, err, ErrInvalidConversion)

	_, err = async.SetLongProperty("token", "nobody", "hp", 1).Get()
	assert.ErrorIs(t, err, ErrNamespaceNotFound)

	got, err := async.GetProperty("token", "goblin1", "hp").Await(context.Background())
	require.NoError(t, err)
	n, _ := got.AsLong()
	assert.Equal(t, int64(10), n)

	snap, err := async.Snapshot().Get()
	require.NoError(t, err)
	assert.Len(t, snap.Data, 1)
}

func TestPoolBoundsConcurrency(t *testing.T) {
	pool := NewPool(2)
	var running, peak int32
	futures := make([]*Future[int], 0, 10)
	for i := 0; i < 10; i++ {
		i := i
		futures = append(futures, Submit(pool, func(context.Context) (int, error) {
			now := atomic.AddInt32(&running, 1)
			for {
				old := atomic.LoadInt32(&peak)
				if now <= old || atomic.CompareAndSwapInt32(&peak, old, now) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&running, -1)
			return i, nil
		}))
	}
	for i, f := range futures {
		v, err := f.Get()
		require.NoError(t, err)
		assert.Equal(t, i, v)
	}
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestFuturePanicBecomesError(t *testing.T) {
	f := Submit(NewPool(1), func(context.Context) (string, error) {
		panic("boom")
	})
	_, err := f.Get()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestFutureAwaitHonoursContext(t *testing.T) {
	release := make(chan struct{})
	f := Submit(NewPool(1), func(context.Context) (int, error) {
		<-release
		return 1, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := f.Await(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// The task still completes
	close(release)
	v, err := f.Get()
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	select {
	case <-f.Done():
	default:
		t.Fatal("future should be done")
	}
}
