package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/gestaoconhecimento/gc-auth/internal/auth"
	"github.com/stretchr/testify/assert"
)

func TestTimingDelay_WaitFrom_OnFailure(t *testing.T) {
	timing := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelay:   100 * time.Millisecond,
		RandomDelay: 50 * time.Millisecond,
	})
	startTime := time.Now()

	timing.WaitFrom(context.Background(), startTime, false)

	elapsed := time.Since(startTime)
	assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
	assert.Less(t, elapsed, 500*time.Millisecond)
}

func TestTimingDelay_WaitFrom_OnSuccess_NoDelay(t *testing.T) {
	timing := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelay:   100 * time.Millisecond,
		RandomDelay: 50 * time.Millisecond,
	})
	startTime := time.Now()

	timing.WaitFrom(context.Background(), startTime, true)

	assert.Less(t, time.Since(startTime), 50*time.Millisecond)
}

func TestTimingDelay_WaitFrom_OnSuccess_WithDelay(t *testing.T) {
	timing := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelay:      100 * time.Millisecond,
		DelayOnSuccess: true,
	})
	startTime := time.Now()

	timing.WaitFrom(context.Background(), startTime, true)

	assert.GreaterOrEqual(t, time.Since(startTime), 100*time.Millisecond)
}

func TestTimingDelay_WaitFrom_AccountsForElapsed(t *testing.T) {
	timing := auth.NewTimingDelay(auth.TimingConfig{BaseDelay: 100 * time.Millisecond})

	// Work already took longer than the target
	startTime := time.Now().Add(-200 * time.Millisecond)
	before := time.Now()

	timing.WaitFrom(context.Background(), startTime, false)

	assert.Less(t, time.Since(before), 50*time.Millisecond)
}

func TestTimingDelay_WaitFrom_ContextCancelled(t *testing.T) {
	timing := auth.NewTimingDelay(auth.TimingConfig{BaseDelay: 2 * time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	startTime := time.Now()
	timing.WaitFrom(ctx, startTime, false)

	assert.Less(t, time.Since(startTime), 500*time.Millisecond)
}

func TestTimingDelay_Nil_NoDelay(t *testing.T) {
	var timing *auth.TimingDelay
	startTime := time.Now()

	timing.WaitFrom(context.Background(), startTime, false)

	assert.Less(t, time.Since(startTime), 50*time.Millisecond)
}
