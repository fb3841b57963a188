// Package anim advances the avatar's procedural animation state. Everything
// here is driven by two inputs only: elapsed time since the loop started and
// the smoothed loudness level, so identical inputs replay identical motion.
package anim

import (
	"math/rand"
	"sync"
	"time"
)

// State is one animation frame's worth of pose parameters. All values the
// renderer needs are here; the renderer holds no animation state of its own.
type State struct {
	Level    float64 // smoothed mouth openness, 0..1
	Blink    float64 // 0 = open, 1 = fully closed
	GazeX    float64 // iris offset, -1..1
	GazeY    float64
	Breath   float64 // idle sinusoids, -1..1
	Bob      float64
	Tilt     float64
	Speaking bool
}

// Config tunes blink and gaze timing. Zero values fall back to defaults.
type Config struct {
	BlinkMinInterval  time.Duration
	BlinkMaxInterval  time.Duration
	BlinkDuration     time.Duration
	GazeMinInterval   time.Duration
	GazeMaxInterval   time.Duration
	GazeEase          float64
	SpeakingThreshold float64
}

// DefaultConfig returns the production timing
func DefaultConfig() *Config {
	return &Config{
		BlinkMinInterval:  3000 * time.Millisecond,
		BlinkMaxInterval:  5500 * time.Millisecond,
		BlinkDuration:     140 * time.Millisecond,
		GazeMinInterval:   1500 * time.Millisecond,
		GazeMaxInterval:   4000 * time.Millisecond,
		GazeEase:          0.05,
		SpeakingThreshold: 0.08,
	}
}

// Animator owns the blink scheduler, gaze wander and idle oscillators.
// Randomness comes from the injected source only.
type Animator struct {
	mu     sync.Mutex
	config *Config
	rng    *rand.Rand
	blink  blinker
	gaze   gazer
}

// New creates an Animator. rng may be nil, in which case a time-seeded
// source is used.
func New(config *Config, rng *rand.Rand) *Animator {
	if config == nil {
		config = DefaultConfig()
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	a := &Animator{config: config, rng: rng}
	a.blink.schedule(0, config, rng)
	a.gaze.retarget(0, config, rng)
	return a
}

// SetConfig swaps the timing configuration at runtime. In-flight blink and
// gaze schedules finish on the old timing; the next reschedule uses the new
// one.
func (a *Animator) SetConfig(config *Config) {
	if config == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.config = config
}

// Step advances the state machine to the given elapsed time and returns the
// pose for that instant. Callers tick it once per rendered frame.
func (a *Animator) Step(elapsed time.Duration, level float64) State {
	a.mu.Lock()
	defer a.mu.Unlock()

	blinkAmount := a.blink.step(elapsed, a.config, a.rng)
	gx, gy := a.gaze.step(elapsed, a.config, a.rng)
	breath, bob, tilt := idlePose(elapsed)

	return State{
		Level:    level,
		Blink:    blinkAmount,
		GazeX:    gx,
		GazeY:    gy,
		Breath:   breath,
		Bob:      bob,
		Tilt:     tilt,
		Speaking: level >= a.config.SpeakingThreshold,
	}
}
