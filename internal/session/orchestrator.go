package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	media "github.com/livekit/media-sdk"
	"github.com/livekit/protocol/livekit"
	lksdk "github.com/livekit/server-sdk-go/v2"
	lkmedia "github.com/livekit/server-sdk-go/v2/pkg/media"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"gopkg.in/hraban/opus.v2"

	"github.com/normanking/avatarcast/internal/anim"
	"github.com/normanking/avatarcast/internal/config"
	"github.com/normanking/avatarcast/internal/level"
	"github.com/normanking/avatarcast/internal/mic"
	"github.com/normanking/avatarcast/internal/render"
	"github.com/normanking/avatarcast/internal/vtrack"
)

const opusMaxFrameSamples = 5760 // 120ms at 48kHz

// Snapshot is the observable state served to the monitor feed
type Snapshot struct {
	State    string  `json:"state"`
	Status   string  `json:"status"`
	Level    float64 `json:"level"`
	Speaking bool    `json:"speaking"`
}

// Orchestrator runs the paired room connections. The user session carries
// the microphone out and the agent's voice in; the avatar session carries
// the rendered video out. The two sessions never share media.
type Orchestrator struct {
	config    *config.Config
	log       zerolog.Logger
	tokens    TokenClient
	Lifecycle *Lifecycle

	extractor *level.Extractor
	ring      *level.Ring
	animator  *anim.Animator
	renderer  *render.Renderer

	// dial brings up the session pair; swapped out in tests
	dial func(ctx context.Context, grant *Grant) error

	mu         sync.Mutex
	selector   *TrackSelector
	userRoom   *lksdk.Room
	avatarRoom *lksdk.Room
	micTrack   *lkmedia.PCMLocalTrack
	capture    *mic.Capture
	provider   *vtrack.Provider
	cancel     context.CancelFunc
	closing    bool

	snapMu   sync.RWMutex
	level    float64
	speaking bool
}

// NewOrchestrator wires the analysis and render pipeline to a token source.
// onChange receives every lifecycle transition.
func NewOrchestrator(cfg *config.Config, log zerolog.Logger, tokens TokenClient, onChange func(State, string)) (*Orchestrator, error) {
	extractor, err := level.NewExtractor(&level.ExtractorConfig{
		WindowSize:   cfg.Audio.WindowSize,
		NoiseFloor:   cfg.Anim.NoiseFloor,
		DynamicRange: cfg.Anim.DynamicRange,
		Smoothing:    cfg.Anim.Smoothing,
	})
	if err != nil {
		return nil, fmt.Errorf("create level extractor: %w", err)
	}

	animator := anim.New(&anim.Config{
		BlinkMinInterval:  cfg.Anim.BlinkMinInterval,
		BlinkMaxInterval:  cfg.Anim.BlinkMaxInterval,
		BlinkDuration:     cfg.Anim.BlinkDuration,
		GazeMinInterval:   cfg.Anim.GazeMinInterval,
		GazeMaxInterval:   cfg.Anim.GazeMaxInterval,
		GazeEase:          cfg.Anim.GazeEase,
		SpeakingThreshold: cfg.Anim.SpeakingThreshold,
	}, nil)

	o := &Orchestrator{
		config:    cfg,
		log:       log,
		tokens:    tokens,
		Lifecycle: NewLifecycle(onChange),
		extractor: extractor,
		ring:      level.NewRing(cfg.Audio.WindowSize),
		animator:  animator,
		renderer:  render.New(&render.Config{Width: cfg.Render.Width, Height: cfg.Render.Height}),
	}
	o.dial = o.connectSessions
	return o, nil
}

// Connect brings up both sessions. It is a no-op while a connect is in
// flight or a session is live; from the error state it acts as the manual
// retry. Any failure tears down whatever was brought up and lands in error.
func (o *Orchestrator) Connect(ctx context.Context, roomHint string) error {
	if !o.Lifecycle.Begin("fetching credentials") {
		return nil
	}

	grant, err := o.tokens.Fetch(ctx, roomHint)
	if err != nil {
		o.Lifecycle.Fail(err.Error())
		return err
	}
	o.log.Info().Str("room", grant.RoomName).Msg("credentials granted")

	if err := o.dial(ctx, grant); err != nil {
		o.teardown()
		o.Lifecycle.Fail(err.Error())
		return err
	}

	// the session can fail behind our back while still connecting (room
	// disconnect callback); if so, everything just brought up must go
	if !o.Lifecycle.Live(fmt.Sprintf("live in %s", grant.RoomName)) {
		o.teardown()
		return fmt.Errorf("session failed while connecting: %s", o.Lifecycle.Status())
	}
	return nil
}

func (o *Orchestrator) connectSessions(ctx context.Context, grant *Grant) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.closing = false
	o.selector = NewTrackSelector(o.config.Identity.UserPrefix, o.config.Identity.AvatarIdentity)

	runCtx, cancel := context.WithCancel(context.Background())
	o.cancel = cancel

	userRoom, err := lksdk.ConnectToRoomWithToken(
		grant.ServerURL,
		grant.UserToken,
		o.userCallback(runCtx),
		lksdk.WithAutoSubscribe(true),
	)
	if err != nil {
		return fmt.Errorf("connect user session: %w", err)
	}
	o.userRoom = userRoom
	o.log.Info().Str("identity", userRoom.LocalParticipant.Identity()).Msg("user session connected")

	if err := o.publishMicrophone(); err != nil {
		return err
	}

	avatarRoom, err := lksdk.ConnectToRoomWithToken(
		grant.ServerURL,
		grant.AvatarToken,
		&lksdk.RoomCallback{},
		lksdk.WithAutoSubscribe(false),
	)
	if err != nil {
		return fmt.Errorf("connect avatar session: %w", err)
	}
	o.avatarRoom = avatarRoom
	o.log.Info().Str("identity", avatarRoom.LocalParticipant.Identity()).Msg("avatar session connected")

	if err := o.publishVideo(runCtx); err != nil {
		return err
	}

	return nil
}

// publishMicrophone puts the local mic on the user session
func (o *Orchestrator) publishMicrophone() error {
	micTrack, err := lkmedia.NewPCMLocalTrack(o.config.Audio.SampleRate, o.config.Audio.Channels, nil)
	if err != nil {
		return fmt.Errorf("create mic track: %w", err)
	}
	o.micTrack = micTrack

	if _, err := o.userRoom.LocalParticipant.PublishTrack(micTrack, &lksdk.TrackPublicationOptions{
		Name:   "presenter-mic",
		Source: livekit.TrackSource_MICROPHONE,
	}); err != nil {
		return fmt.Errorf("publish mic track: %w", err)
	}

	o.capture = mic.NewCapture(&mic.Config{
		DeviceName:      o.config.Audio.InputDevice,
		SampleRate:      o.config.Audio.SampleRate,
		Channels:        o.config.Audio.Channels,
		FramesPerBuffer: o.config.Audio.FramesPerBuffer,
	}, func(frame []int16) {
		sample := make(media.PCM16Sample, len(frame))
		copy(sample, frame)
		if err := micTrack.WriteSample(sample); err != nil {
			o.log.Debug().Err(err).Msg("dropped mic frame")
		}
	})
	if err := o.capture.Start(); err != nil {
		return fmt.Errorf("start mic capture: %w", err)
	}
	return nil
}

// publishVideo starts the render loop and puts the encoded stream on the
// avatar session.
func (o *Orchestrator) publishVideo(ctx context.Context) error {
	source := vtrack.NewSource()
	provider, err := vtrack.NewProvider(source, &vtrack.Config{
		Width:       o.config.Render.Width,
		Height:      o.config.Render.Height,
		FPS:         o.config.Render.FPS,
		BitrateKbps: o.config.Render.BitrateKbps,
	})
	if err != nil {
		return fmt.Errorf("create video provider: %w", err)
	}
	o.provider = provider

	track, err := lksdk.NewLocalSampleTrack(webrtc.RTPCodecCapability{
		MimeType: webrtc.MimeTypeVP8,
	})
	if err != nil {
		return fmt.Errorf("create video track: %w", err)
	}
	if err := track.StartWrite(provider, func() {
		o.log.Info().Msg("video track write completed")
	}); err != nil {
		return fmt.Errorf("start video provider: %w", err)
	}

	if _, err := o.avatarRoom.LocalParticipant.PublishTrack(track, &lksdk.TrackPublicationOptions{
		Name:   "avatar-video",
		Source: livekit.TrackSource_CAMERA,
	}); err != nil {
		return fmt.Errorf("publish video track: %w", err)
	}

	go o.renderLoop(ctx, source)
	return nil
}

// renderLoop ticks the analysis and animation at the frame rate and pushes
// frames to the encoder source.
func (o *Orchestrator) renderLoop(ctx context.Context, source *vtrack.Source) {
	ticker := time.NewTicker(time.Second / time.Duration(o.config.Render.FPS))
	defer ticker.Stop()

	window := make([]byte, o.ring.Size())
	start := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if o.ring.Window(window) {
			if _, err := o.extractor.Process(window); err != nil {
				o.log.Debug().Err(err).Msg("skipped analysis tick")
			}
		}
		lvl := o.extractor.Level()

		elapsed := time.Since(start)
		st := o.animator.Step(elapsed, lvl)
		source.Push(o.renderer.Render(st, elapsed))

		o.snapMu.Lock()
		o.level = lvl
		o.speaking = st.Speaking
		o.snapMu.Unlock()
	}
}

// userCallback routes inbound audio from the user session into the
// analysis pipeline.
func (o *Orchestrator) userCallback(ctx context.Context) *lksdk.RoomCallback {
	return &lksdk.RoomCallback{
		ParticipantCallback: lksdk.ParticipantCallback{
			OnTrackSubscribed: func(track *webrtc.TrackRemote, pub *lksdk.RemoteTrackPublication, rp *lksdk.RemoteParticipant) {
				o.handleTrackSubscribed(ctx, track, rp)
			},
			OnTrackUnsubscribed: func(track *webrtc.TrackRemote, pub *lksdk.RemoteTrackPublication, rp *lksdk.RemoteParticipant) {
				if o.selector.Release(track.ID()) {
					o.log.Info().Str("participant", rp.Identity()).Msg("analysis track released")
				}
			},
		},
		OnDisconnected: func() {
			o.mu.Lock()
			closing := o.closing
			o.mu.Unlock()
			if !closing && o.Lifecycle.Fail("user session disconnected") {
				o.log.Warn().Msg("user session dropped")
			}
		},
	}
}

func (o *Orchestrator) handleTrackSubscribed(ctx context.Context, track *webrtc.TrackRemote, rp *lksdk.RemoteParticipant) {
	if track.Kind() != webrtc.RTPCodecTypeAudio {
		return
	}
	if !o.selector.Offer(rp.Identity(), track.ID()) {
		o.log.Debug().Str("participant", rp.Identity()).Msg("ignoring audio track")
		return
	}

	o.log.Info().
		Str("participant", rp.Identity()).
		Str("track", track.ID()).
		Msg("analyzing audio track")
	go o.readTrack(ctx, track)
}

// readTrack decodes the selected opus track into the analysis ring
func (o *Orchestrator) readTrack(ctx context.Context, track *webrtc.TrackRemote) {
	defer o.selector.Release(track.ID())

	decoder, err := opus.NewDecoder(o.config.Audio.SampleRate, o.config.Audio.Channels)
	if err != nil {
		o.log.Error().Err(err).Msg("create opus decoder")
		return
	}
	pcm := make([]int16, opusMaxFrameSamples)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_ = track.SetReadDeadline(time.Now().Add(5 * time.Second))
		pkt, _, err := track.ReadRTP()
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if errors.Is(err, io.EOF) {
				return
			}
			o.log.Debug().Err(err).Msg("track read error")
			continue
		}
		if pkt == nil || len(pkt.Payload) == 0 {
			continue
		}

		n, err := decoder.Decode(pkt.Payload, pcm)
		if err != nil || n == 0 {
			continue
		}
		o.ring.WriteInt16(pcm[:n])
	}
}

// Disconnect tears both sessions down and returns to idle. The render loop
// stops before the video track is taken down, so the stream ends on a
// complete frame.
func (o *Orchestrator) Disconnect() {
	o.teardown()
	o.extractor.Reset()
	o.Lifecycle.Reset("idle")
}

func (o *Orchestrator) teardown() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closing = true

	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	if o.capture != nil {
		if err := o.capture.Stop(); err != nil {
			o.log.Warn().Err(err).Msg("stop mic capture")
		}
		o.capture = nil
	}
	if o.provider != nil {
		if err := o.provider.Close(); err != nil {
			o.log.Debug().Err(err).Msg("close video provider")
		}
		o.provider = nil
	}
	if o.micTrack != nil {
		o.micTrack.Close()
		o.micTrack = nil
	}
	if o.avatarRoom != nil {
		o.avatarRoom.Disconnect()
		o.avatarRoom = nil
	}
	if o.userRoom != nil {
		o.userRoom.Disconnect()
		o.userRoom = nil
	}
}

// ApplyTuning picks up hot-reloaded animation tuning. Transport and render
// geometry changes still require a reconnect.
func (o *Orchestrator) ApplyTuning(a config.AnimConfig) {
	o.extractor.SetTuning(a.NoiseFloor, a.DynamicRange, a.Smoothing)
	o.animator.SetConfig(&anim.Config{
		BlinkMinInterval:  a.BlinkMinInterval,
		BlinkMaxInterval:  a.BlinkMaxInterval,
		BlinkDuration:     a.BlinkDuration,
		GazeMinInterval:   a.GazeMinInterval,
		GazeMaxInterval:   a.GazeMaxInterval,
		GazeEase:          a.GazeEase,
		SpeakingThreshold: a.SpeakingThreshold,
	})
	o.log.Info().Msg("animation tuning reloaded")
}

// Snapshot reports the current observable state for the monitor feed
func (o *Orchestrator) Snapshot() Snapshot {
	o.snapMu.RLock()
	defer o.snapMu.RUnlock()
	return Snapshot{
		State:    o.Lifecycle.State().String(),
		Status:   o.Lifecycle.Status(),
		Level:    o.level,
		Speaking: o.speaking,
	}
}
