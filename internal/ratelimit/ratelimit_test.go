package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"rocket-tracker/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWait_FirstSlotImmediate(t *testing.T) {
	l := New(&config.Config{RequestsPerMinute: 60})

	start := time.Now()
	require.NoError(t, l.Wait(context.Background()))
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestWait_SecondCallerQueues(t *testing.T) {
	// 60 rpm = one slot per second; the second acquisition must wait.
	l := New(&config.Config{RequestsPerMinute: 60})

	require.NoError(t, l.Wait(context.Background()))

	start := time.Now()
	require.NoError(t, l.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 500*time.Millisecond)
}

func TestWait_RespectsContextCancellation(t *testing.T) {
	l := New(&config.Config{RequestsPerMinute: 1})

	require.NoError(t, l.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.Error(t, l.Wait(ctx))
}

func TestWait_ConcurrentAcquisition(t *testing.T) {
	l := New(&config.Config{RequestsPerMinute: 6000})

	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = l.Wait(context.Background())
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
}
