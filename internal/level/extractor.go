// Package level turns raw audio windows into a smoothed mouth-openness
// signal in [0,1].
package level

import (
	"fmt"
	"math"
	"sync"
)

// ExtractorConfig holds the loudness mapping parameters
type ExtractorConfig struct {
	WindowSize   int     // samples per analysis window, power of two
	NoiseFloor   float64 // RMS below this maps to 0
	DynamicRange float64 // RMS span mapped onto the full [0,1] range
	Smoothing    float64 // weight kept from the previous level per tick
}

// DefaultExtractorConfig returns the tuning used in production
func DefaultExtractorConfig() *ExtractorConfig {
	return &ExtractorConfig{
		WindowSize:   1024,
		NoiseFloor:   0.015,
		DynamicRange: 0.12,
		Smoothing:    0.8,
	}
}

// Extractor computes RMS loudness over fixed unsigned 8-bit windows and
// exponentially smooths the result. Samples are biased at 128; a byte of
// 128 is silence.
type Extractor struct {
	config *ExtractorConfig
	mu     sync.RWMutex
	level  float64
}

// NewExtractor creates an Extractor, validating the window size
func NewExtractor(config *ExtractorConfig) (*Extractor, error) {
	if config == nil {
		config = DefaultExtractorConfig()
	}
	if config.WindowSize <= 0 || config.WindowSize&(config.WindowSize-1) != 0 {
		return nil, fmt.Errorf("window size must be a power of two, got %d", config.WindowSize)
	}
	if config.DynamicRange <= 0 {
		return nil, fmt.Errorf("dynamic range must be positive, got %g", config.DynamicRange)
	}
	if config.Smoothing < 0 || config.Smoothing >= 1 {
		return nil, fmt.Errorf("smoothing must be in [0,1), got %g", config.Smoothing)
	}
	return &Extractor{config: config}, nil
}

// Process analyzes one window and returns the new smoothed level.
// A malformed window (wrong length) skips the tick: the previous level is
// returned alongside the error so the mouth holds its pose instead of
// snapping shut.
func (e *Extractor) Process(buf []byte) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(buf) != e.config.WindowSize {
		return e.level, fmt.Errorf("bad window: want %d samples, got %d", e.config.WindowSize, len(buf))
	}

	var sum float64
	for _, b := range buf {
		normalized := (float64(b) - 128.0) / 128.0
		sum += normalized * normalized
	}
	rms := math.Sqrt(sum / float64(len(buf)))

	openness := (rms - e.config.NoiseFloor) / e.config.DynamicRange
	if openness < 0 {
		openness = 0
	} else if openness > 1 {
		openness = 1
	}

	e.level = e.config.Smoothing*e.level + (1-e.config.Smoothing)*openness
	return e.level, nil
}

// SetTuning swaps the mapping parameters at runtime without resetting the
// smoothed level. The window size is fixed for the extractor's lifetime.
func (e *Extractor) SetTuning(noiseFloor, dynamicRange, smoothing float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if dynamicRange > 0 {
		e.config.DynamicRange = dynamicRange
	}
	if smoothing >= 0 && smoothing < 1 {
		e.config.Smoothing = smoothing
	}
	e.config.NoiseFloor = noiseFloor
}

// Level returns the current smoothed level
func (e *Extractor) Level() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.level
}

// Reset drops the smoothed level back to silence
func (e *Extractor) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.level = 0
}
