package throttle

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDoEnforcesDelay tests that every call is followed by the
// configured pause, whether it succeeded or failed.
func TestDoEnforcesDelay(t *testing.T) {
	l := New(500 * time.Millisecond)

	var slept []time.Duration
	l.sleep = func(d time.Duration) { slept = append(slept, d) }

	err := l.Do(func() error { return nil })
	require.NoError(t, err)

	err = l.Do(func() error { return errors.New("boom") })
	assert.Error(t, err)

	require.Len(t, slept, 2)
	assert.Equal(t, 500*time.Millisecond, slept[0])
	assert.Equal(t, 500*time.Millisecond, slept[1])
}

// TestDoSerializes tests that concurrent callers never overlap.
func TestDoSerializes(t *testing.T) {
	l := New(0)
	l.sleep = func(time.Duration) {}

	var active, maxActive int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = l.Do(func() error {
				mu.Lock()
				active++
				if active > maxActive {
					maxActive = active
				}
				mu.Unlock()

				time.Sleep(time.Millisecond)

				mu.Lock()
				active--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxActive)
}

// TestDoPropagatesError tests that the callee's error comes back.
func TestDoPropagatesError(t *testing.T) {
	l := New(0)
	l.sleep = func(time.Duration) {}

	wantErr := errors.New("provider down")
	err := l.Do(func() error { return wantErr })
	assert.ErrorIs(t, err, wantErr)
}
