package debounce_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldplanner/planner/internal/debounce"
)

func TestArmCoalesces(t *testing.T) {
	var calls atomic.Int32
	d := debounce.New(30*time.Millisecond, func() { calls.Add(1) })

	for range 10 {
		d.Arm()
		time.Sleep(2 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
	assert.False(t, d.Pending())
}

func TestFlushRunsPendingNow(t *testing.T) {
	var calls atomic.Int32
	d := debounce.New(time.Hour, func() { calls.Add(1) })

	assert.False(t, d.Flush(), "nothing pending yet")

	d.Arm()
	assert.True(t, d.Pending())
	assert.True(t, d.Flush())
	assert.Equal(t, int32(1), calls.Load())
	assert.False(t, d.Flush())
}

func TestCancelDropsPending(t *testing.T) {
	var calls atomic.Int32
	d := debounce.New(10*time.Millisecond, func() { calls.Add(1) })

	d.Arm()
	assert.True(t, d.Cancel())
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
	assert.False(t, d.Cancel())
}
