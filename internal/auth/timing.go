package auth

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"time"
)

// TimingConfig holds configuration for timing attack prevention
type TimingConfig struct {
	BaseDelay      time.Duration // Minimum duration of a failed credential check
	RandomDelay    time.Duration // Upper bound of the random jitter added to BaseDelay
	DelayOnSuccess bool          // If true, delay even on successful login
}

// TimingDelay pads failed credential checks so that "no such user" and
// "wrong password" take indistinguishable time.
type TimingDelay struct {
	config TimingConfig
}

// NewTimingDelay creates a new TimingDelay instance
func NewTimingDelay(config TimingConfig) *TimingDelay {
	return &TimingDelay{
		config: config,
	}
}

// cryptoRandIntn returns a secure random number between 0 and max (exclusive)
func cryptoRandIntn(max int64) (int64, error) {
	if max <= 0 {
		return 0, nil
	}

	randomBytes := make([]byte, 8)
	if _, err := rand.Read(randomBytes); err != nil {
		return 0, err
	}

	randomValue := binary.BigEndian.Uint64(randomBytes)
	return int64(randomValue % uint64(max)), nil
}

func (td *TimingDelay) target() time.Duration {
	delay := td.config.BaseDelay
	if td.config.RandomDelay > 0 {
		if jitter, err := cryptoRandIntn(int64(td.config.RandomDelay)); err == nil {
			delay += time.Duration(jitter)
		}
	}
	return delay
}

// WaitFrom blocks until at least baseDelay+jitter has elapsed since startTime.
// Returns early if ctx is done.
func (td *TimingDelay) WaitFrom(ctx context.Context, startTime time.Time, success bool) {
	if td == nil || (success && !td.config.DelayOnSuccess) {
		return
	}

	remaining := td.target() - time.Since(startTime)
	if remaining <= 0 {
		return
	}

	timer := time.NewTimer(remaining)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
