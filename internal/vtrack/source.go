// Package vtrack publishes rendered frames as a WebRTC video track: a
// latest-frame source feeding a VP8 encoder behind a track sample provider.
package vtrack

import (
	"image"
	"io"
	"sync"
)

// Source hands rendered frames to the encoder. Only the newest frame is
// kept; if the encoder falls behind, older frames are dropped rather than
// queued so the avatar never lags the audio.
type Source struct {
	mu     sync.Mutex
	frames chan *image.RGBA
	done   chan struct{}
	closed bool
}

// NewSource creates an empty Source
func NewSource() *Source {
	return &Source{
		frames: make(chan *image.RGBA, 1),
		done:   make(chan struct{}),
	}
}

// Push submits a frame. The image is copied because the renderer reuses
// its buffer.
func (s *Source) Push(img *image.RGBA) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	frame := image.NewRGBA(img.Bounds())
	copy(frame.Pix, img.Pix)

	// latest wins: drop the queued frame if the encoder hasn't taken it
	select {
	case s.frames <- frame:
	default:
		select {
		case <-s.frames:
		default:
		}
		select {
		case s.frames <- frame:
		default:
		}
	}
}

// Read blocks until a frame is available or the source is closed. It
// satisfies the mediadevices video.Reader contract.
func (s *Source) Read() (image.Image, func(), error) {
	select {
	case frame := <-s.frames:
		return frame, func() {}, nil
	case <-s.done:
		return nil, nil, io.EOF
	}
}

// Close stops the source. Blocked and future Reads return io.EOF, which
// drains through the encoder so the track ends on a frame boundary.
func (s *Source) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
}
