package level

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func silenceWindow(n int) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = 128
	}
	return buf
}

func fullScaleWindow(n int) []byte {
	buf := make([]byte, n)
	for i := range buf {
		if i%2 == 0 {
			buf[i] = 0
		} else {
			buf[i] = 255
		}
	}
	return buf
}

func TestNewExtractor_RejectsBadWindowSize(t *testing.T) {
	for _, size := range []int{0, -1, 1000, 1023} {
		cfg := DefaultExtractorConfig()
		cfg.WindowSize = size
		_, err := NewExtractor(cfg)
		assert.Error(t, err, "size %d", size)
	}
}

func TestProcess_SilenceMapsToZero(t *testing.T) {
	e, err := NewExtractor(nil)
	require.NoError(t, err)

	lvl, err := e.Process(silenceWindow(1024))
	require.NoError(t, err)
	assert.Zero(t, lvl)
}

func TestProcess_FullScaleSaturates(t *testing.T) {
	e, err := NewExtractor(nil)
	require.NoError(t, err)

	// alternating 0/255 gives RMS ~1, far above floor+range
	var lvl float64
	for i := 0; i < 100; i++ {
		lvl, err = e.Process(fullScaleWindow(1024))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, lvl, 0.0)
		assert.LessOrEqual(t, lvl, 1.0)
	}
	assert.InDelta(t, 1.0, lvl, 1e-6)
}

func TestProcess_StepResponseClosedForm(t *testing.T) {
	e, err := NewExtractor(nil)
	require.NoError(t, err)

	// openness jumps 0 -> 1; after n ticks level = 1 - 0.8^n
	win := fullScaleWindow(1024)
	for n := 1; n <= 20; n++ {
		lvl, err := e.Process(win)
		require.NoError(t, err)
		want := 1 - math.Pow(0.8, float64(n))
		assert.InDelta(t, want, lvl, 1e-9, "tick %d", n)
	}
}

func TestProcess_DecaysToSilence(t *testing.T) {
	e, err := NewExtractor(nil)
	require.NoError(t, err)

	_, err = e.Process(fullScaleWindow(1024))
	require.NoError(t, err)

	// ~2s of silence windows at 30 ticks/s
	var lvl float64
	for i := 0; i < 60; i++ {
		lvl, err = e.Process(silenceWindow(1024))
		require.NoError(t, err)
	}
	assert.Less(t, lvl, 1e-5)
}

func TestProcess_MalformedWindowHoldsLevel(t *testing.T) {
	e, err := NewExtractor(nil)
	require.NoError(t, err)

	before, err := e.Process(fullScaleWindow(1024))
	require.NoError(t, err)

	held, err := e.Process(make([]byte, 100))
	assert.Error(t, err)
	assert.Equal(t, before, held)
	assert.Equal(t, before, e.Level())

	held, err = e.Process(nil)
	assert.Error(t, err)
	assert.Equal(t, before, held)
}

func TestRing_WindowAfterFill(t *testing.T) {
	r := NewRing(8)
	dst := make([]byte, 8)

	assert.False(t, r.Window(dst), "empty ring should not serve a window")

	r.WriteInt16([]int16{0, 0, 0, 0})
	assert.False(t, r.Window(dst), "half-full ring should not serve a window")

	r.WriteInt16([]int16{0, 0, 0, 0})
	require.True(t, r.Window(dst))
	for _, b := range dst {
		assert.Equal(t, byte(128), b)
	}
}

func TestRing_BiasConversion(t *testing.T) {
	r := NewRing(4)
	dst := make([]byte, 4)

	r.WriteInt16([]int16{0, 32767, -32768, 256})
	require.True(t, r.Window(dst))

	assert.Equal(t, byte(128), dst[0])
	assert.Equal(t, byte(255), dst[1])
	assert.Equal(t, byte(0), dst[2])
	assert.Equal(t, byte(129), dst[3])
}

func TestRing_KeepsNewestSamples(t *testing.T) {
	r := NewRing(4)
	dst := make([]byte, 4)

	r.WriteInt16([]int16{256, 512, 768, 1024, 1280, 1536})
	require.True(t, r.Window(dst))

	// oldest two overwritten; window is samples 3..6 in order
	assert.Equal(t, []byte{131, 132, 133, 134}, dst)
}
