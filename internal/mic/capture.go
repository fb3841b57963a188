// Package mic captures microphone audio for the published user track.
package mic

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// Config configures the capture stream
type Config struct {
	DeviceName      string // substring match against device names; "" = default
	SampleRate      int
	Channels        int
	FramesPerBuffer int
}

// Capture reads int16 PCM frames from a portaudio input stream and hands
// them to the frame callback on the audio thread.
type Capture struct {
	mu      sync.Mutex
	config  *Config
	stream  *portaudio.Stream
	buffer  []int16
	onFrame func([]int16)
	running bool
}

// Initialize sets up the PortAudio subsystem. Pair with Terminate.
func Initialize() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return nil
}

// Terminate shuts down the PortAudio subsystem
func Terminate() error {
	if err := portaudio.Terminate(); err != nil {
		return fmt.Errorf("failed to terminate PortAudio: %w", err)
	}
	return nil
}

// ListInputDevices returns the names of all input-capable devices
func ListInputDevices() ([]string, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list audio devices: %w", err)
	}
	var names []string
	for _, d := range devices {
		if d.MaxInputChannels > 0 {
			names = append(names, d.Name)
		}
	}
	return names, nil
}

// NewCapture creates a Capture. onFrame receives each PCM frame; it must
// not block, the callback runs on the audio thread.
func NewCapture(config *Config, onFrame func([]int16)) *Capture {
	return &Capture{
		config:  config,
		buffer:  make([]int16, config.FramesPerBuffer*config.Channels),
		onFrame: onFrame,
	}
}

// Start opens and starts the input stream
func (c *Capture) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return nil
	}

	device, err := c.findDevice()
	if err != nil {
		return err
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: c.config.Channels,
			Device:   device,
			Latency:  device.DefaultLowInputLatency,
		},
		FramesPerBuffer: c.config.FramesPerBuffer,
		SampleRate:      float64(c.config.SampleRate),
	}

	stream, err := portaudio.OpenStream(params, c.processInput)
	if err != nil {
		return fmt.Errorf("open input stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("start input stream: %w", err)
	}

	c.stream = stream
	c.running = true
	return nil
}

// Stop stops and closes the stream
func (c *Capture) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return nil
	}
	c.running = false

	if err := c.stream.Stop(); err != nil {
		c.stream.Close()
		return fmt.Errorf("stop input stream: %w", err)
	}
	if err := c.stream.Close(); err != nil {
		return fmt.Errorf("close input stream: %w", err)
	}
	c.stream = nil
	return nil
}

func (c *Capture) findDevice() (*portaudio.DeviceInfo, error) {
	if c.config.DeviceName == "" {
		device, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("default input device: %w", err)
		}
		return device, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list audio devices: %w", err)
	}
	for _, d := range devices {
		if d.MaxInputChannels > 0 && strings.Contains(d.Name, c.config.DeviceName) {
			return d, nil
		}
	}
	return nil, fmt.Errorf("no input device matching %q", c.config.DeviceName)
}

func (c *Capture) processInput(in []int16) {
	copy(c.buffer, in)
	c.onFrame(c.buffer[:len(in)])
}
