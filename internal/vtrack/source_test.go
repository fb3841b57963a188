package vtrack

import (
	"image"
	"image/color"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frameWithMark(mark uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.SetRGBA(0, 0, color.RGBA{R: mark, A: 0xff})
	return img
}

func TestSource_ReadReturnsPushedFrame(t *testing.T) {
	s := NewSource()
	s.Push(frameWithMark(7))

	img, release, err := s.Read()
	require.NoError(t, err)
	release()

	rgba, ok := img.(*image.RGBA)
	require.True(t, ok)
	assert.Equal(t, uint8(7), rgba.RGBAAt(0, 0).R)
}

func TestSource_LatestFrameWins(t *testing.T) {
	s := NewSource()
	s.Push(frameWithMark(1))
	s.Push(frameWithMark(2))
	s.Push(frameWithMark(3))

	img, _, err := s.Read()
	require.NoError(t, err)
	assert.Equal(t, uint8(3), img.(*image.RGBA).RGBAAt(0, 0).R)
}

func TestSource_PushCopiesBuffer(t *testing.T) {
	s := NewSource()
	original := frameWithMark(9)
	s.Push(original)

	// mutate the renderer-owned buffer after pushing
	original.SetRGBA(0, 0, color.RGBA{R: 0xff, A: 0xff})

	img, _, err := s.Read()
	require.NoError(t, err)
	assert.Equal(t, uint8(9), img.(*image.RGBA).RGBAAt(0, 0).R)
}

func TestSource_CloseUnblocksRead(t *testing.T) {
	s := NewSource()

	errCh := make(chan error, 1)
	go func() {
		_, _, err := s.Read()
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	s.Close()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, io.EOF)
	case <-time.After(time.Second):
		t.Fatal("Read did not unblock after Close")
	}
}

func TestSource_PushAfterCloseIsNoop(t *testing.T) {
	s := NewSource()
	s.Close()
	s.Push(frameWithMark(1))

	_, _, err := s.Read()
	assert.ErrorIs(t, err, io.EOF)
}
