package anim

import (
	"math/rand"
	"time"
)

// blinker schedules blinks on the elapsed-time axis. nextBlinkAt is when the
// next blink starts; blinkUntil is when the current one ends.
type blinker struct {
	nextBlinkAt time.Duration
	blinkUntil  time.Duration
}

func (b *blinker) schedule(elapsed time.Duration, cfg *Config, rng *rand.Rand) {
	b.nextBlinkAt = elapsed + randomDuration(rng, cfg.BlinkMinInterval, cfg.BlinkMaxInterval)
}

func (b *blinker) step(elapsed time.Duration, cfg *Config, rng *rand.Rand) float64 {
	if elapsed >= b.nextBlinkAt {
		b.blinkUntil = elapsed + cfg.BlinkDuration
		b.schedule(elapsed, cfg, rng)
	}
	return BlinkAmount(elapsed, b.blinkUntil, cfg.BlinkDuration)
}

// BlinkAmount maps the remaining blink window to lid closure: 1 at the
// instant the blink starts, falling linearly to 0 at blinkUntil. The eye
// snaps shut and reopens linearly; the asymmetry reads as natural at 30fps
// and is kept on purpose.
func BlinkAmount(elapsed, blinkUntil, duration time.Duration) float64 {
	remaining := blinkUntil - elapsed
	if remaining <= 0 {
		return 0
	}
	amount := float64(remaining) / float64(duration)
	if amount > 1 {
		amount = 1
	}
	return amount
}

func randomDuration(rng *rand.Rand, min, max time.Duration) time.Duration {
	return min + time.Duration(rng.Float64()*float64(max-min))
}
