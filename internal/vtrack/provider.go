package vtrack

import (
	"context"
	"fmt"
	"time"

	"github.com/pion/mediadevices/pkg/codec"
	"github.com/pion/mediadevices/pkg/codec/vpx"
	"github.com/pion/mediadevices/pkg/io/video"
	"github.com/pion/mediadevices/pkg/prop"
	webrtcmedia "github.com/pion/webrtc/v4/pkg/media"
)

// Config sizes the encoded stream
type Config struct {
	Width       int
	Height      int
	FPS         int
	BitrateKbps int
}

// Provider encodes frames from a Source into VP8 and serves them through
// the track sample-provider contract.
type Provider struct {
	source   *Source
	encoder  codec.ReadCloser
	duration time.Duration
}

// NewProvider builds the VP8 encoder over the source
func NewProvider(source *Source, cfg *Config) (*Provider, error) {
	params, err := vpx.NewVP8Params()
	if err != nil {
		return nil, fmt.Errorf("create vp8 params: %w", err)
	}
	params.BitRate = cfg.BitrateKbps * 1000

	reader := video.ToI420(video.ReaderFunc(source.Read))
	encoder, err := params.BuildVideoEncoder(reader, prop.Media{
		Video: prop.Video{
			Width:     cfg.Width,
			Height:    cfg.Height,
			FrameRate: float32(cfg.FPS),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("build vp8 encoder: %w", err)
	}

	return &Provider{
		source:   source,
		encoder:  encoder,
		duration: time.Second / time.Duration(cfg.FPS),
	}, nil
}

// NextSample returns the next encoded frame. Cancelling the context ends
// the stream cleanly before another frame is emitted.
func (p *Provider) NextSample(ctx context.Context) (webrtcmedia.Sample, error) {
	if err := ctx.Err(); err != nil {
		return webrtcmedia.Sample{}, err
	}

	buf, release, err := p.encoder.Read()
	if err != nil {
		return webrtcmedia.Sample{}, err
	}
	defer release()

	data := make([]byte, len(buf))
	copy(data, buf)
	return webrtcmedia.Sample{Data: data, Duration: p.duration}, nil
}

// OnBind is called when the provider is attached to a track
func (p *Provider) OnBind() error { return nil }

// OnUnbind is called when the provider is detached
func (p *Provider) OnUnbind() error { return nil }

// Close stops the source first so the encoder drains on a frame boundary,
// then releases the encoder.
func (p *Provider) Close() error {
	p.source.Close()
	return p.encoder.Close()
}
