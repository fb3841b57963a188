package anim

import (
	"math"
	"time"
)

// idlePose derives the breathing, head-bob and tilt oscillations from
// elapsed time alone. Summed sinusoids at non-harmonic rates read as organic
// without any stored state; replaying the same elapsed values replays the
// same motion.
func idlePose(elapsed time.Duration) (breath, bob, tilt float64) {
	t := elapsed.Seconds()

	breath = math.Sin(2 * math.Pi * 0.22 * t)
	bob = idleNoise(t * 0.5)
	tilt = idleNoise(t*0.31 + 42)
	return
}

func idleNoise(t float64) float64 {
	n1 := math.Sin(t)
	n2 := math.Sin(t*2.3+1.7) * 0.5
	n3 := math.Sin(t*4.1+3.2) * 0.25
	return (n1 + n2 + n3) / 1.75
}
