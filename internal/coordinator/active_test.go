package coordinator

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestActiveSetAcquireRelease(t *testing.T) {
	t.Parallel()

	set := NewActiveSet()
	require.True(t, set.TryAcquire("CA", nil))
	require.False(t, set.TryAcquire("CA", nil))
	require.True(t, set.TryAcquire("TX", nil))
	require.Equal(t, []string{"CA", "TX"}, set.List())

	set.Release("CA")
	require.False(t, set.IsActive("CA"))
	require.True(t, set.TryAcquire("CA", nil))
	set.Release("missing")
}

func TestActiveSetCancel(t *testing.T) {
	t.Parallel()

	set := NewActiveSet()
	var canceled atomic.Int32
	require.True(t, set.TryAcquire("FL", func() { canceled.Add(1) }))
	require.True(t, set.Cancel("FL"))
	require.False(t, set.Cancel("NY"))
	require.True(t, set.IsActive("FL"))
	set.CancelAll()
	require.EqualValues(t, 2, canceled.Load())
}

func TestActiveSetConcurrentAcquire(t *testing.T) {
	t.Parallel()

	set := NewActiveSet()
	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if set.TryAcquire("CA", nil) {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	require.EqualValues(t, 1, wins.Load())
}
