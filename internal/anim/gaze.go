package anim

import (
	"math/rand"
	"time"
)

// gazeRange bounds the wander targets so the iris never pins to the eye edge.
const gazeRange = 0.35

// gazer drifts the iris toward a periodically re-rolled random target.
type gazer struct {
	targetX, targetY   float64
	currentX, currentY float64
	nextRetargetAt     time.Duration
}

func (g *gazer) retarget(elapsed time.Duration, cfg *Config, rng *rand.Rand) {
	g.targetX = (rng.Float64()*2 - 1) * gazeRange
	g.targetY = (rng.Float64()*2 - 1) * gazeRange * 0.6
	g.nextRetargetAt = elapsed + randomDuration(rng, cfg.GazeMinInterval, cfg.GazeMaxInterval)
}

// step eases a fixed fraction of the remaining distance per tick. The ease
// factor is below 1, so the gaze approaches the target monotonically and
// never overshoots.
func (g *gazer) step(elapsed time.Duration, cfg *Config, rng *rand.Rand) (float64, float64) {
	if elapsed >= g.nextRetargetAt {
		g.retarget(elapsed, cfg, rng)
	}
	g.currentX += (g.targetX - g.currentX) * cfg.GazeEase
	g.currentY += (g.targetY - g.currentY) * cfg.GazeEase
	return g.currentX, g.currentY
}
