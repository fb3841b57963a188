// Package render paints procedural avatar frames. A frame is a pure
// function of the animation state and elapsed time; rendering twice with
// the same inputs produces identical pixels.
package render

import (
	"image"
	"image/color"
	"math"
	"time"

	"github.com/normanking/avatarcast/internal/anim"
)

// Config sizes the output frame
type Config struct {
	Width  int
	Height int
}

// DefaultConfig returns the production frame size
func DefaultConfig() *Config {
	return &Config{Width: 960, Height: 540}
}

const (
	particleCount = 24
	waveformBars  = 48

	mouthWidth      = 150.0
	mouthBaseHeight = 10.0
	mouthRange      = 70.0

	upperTeethOpen = 0.12
	lowerTeethOpen = 0.5
	tongueOpen     = 0.25
)

var (
	bgTop       = color.RGBA{R: 0x12, G: 0x16, B: 0x24, A: 0xff}
	bgBottom    = color.RGBA{R: 0x1d, G: 0x25, B: 0x3a, A: 0xff}
	particleCol = color.RGBA{R: 0x3c, G: 0x4a, B: 0x6e, A: 0xff}
	bodyCol     = color.RGBA{R: 0x2e, G: 0x6d, B: 0xd8, A: 0xff}
	headCol     = color.RGBA{R: 0x3b, G: 0x7d, B: 0xe8, A: 0xff}
	earCol      = color.RGBA{R: 0x2f, G: 0x66, B: 0xc4, A: 0xff}
	hairCol     = color.RGBA{R: 0x16, G: 0x22, B: 0x40, A: 0xff}
	cheekCol    = color.RGBA{R: 0xe8, G: 0x6a, B: 0x8a, A: 0x50}
	browCol     = color.RGBA{R: 0x10, G: 0x1a, B: 0x2e, A: 0xff}
	noseCol     = color.RGBA{R: 0x2a, G: 0x5c, B: 0xb8, A: 0xff}
	eyeWhite    = color.RGBA{R: 0xf4, G: 0xf6, B: 0xfa, A: 0xff}
	irisCol     = color.RGBA{R: 0x14, G: 0x20, B: 0x38, A: 0xff}
	mouthCol    = color.RGBA{R: 0x30, G: 0x10, B: 0x1c, A: 0xff}
	teethCol    = color.RGBA{R: 0xf0, G: 0xf0, B: 0xec, A: 0xff}
	tongueCol   = color.RGBA{R: 0xc8, G: 0x4a, B: 0x58, A: 0xff}
	ringCol     = color.RGBA{R: 0x4a, G: 0x9e, B: 0xff, A: 0xff}
	barCol      = color.RGBA{R: 0x4a, G: 0x9e, B: 0xff, A: 0xc8}
	chipLive    = color.RGBA{R: 0x2e, G: 0xc8, B: 0x6e, A: 0xff}
	chipIdle    = color.RGBA{R: 0x55, G: 0x5f, B: 0x72, A: 0xff}
	chipText    = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
)

// Renderer draws avatar frames into an owned RGBA buffer. Not safe for
// concurrent use; the frame loop is the only caller.
type Renderer struct {
	config *Config
	canvas *Canvas
}

// New creates a Renderer with its backing frame buffer
func New(config *Config) *Renderer {
	if config == nil {
		config = DefaultConfig()
	}
	img := image.NewRGBA(image.Rect(0, 0, config.Width, config.Height))
	return &Renderer{config: config, canvas: NewCanvas(img)}
}

// Image returns the frame buffer the Renderer draws into. The buffer is
// reused across frames; copy it before handing it to an encoder that keeps
// references.
func (r *Renderer) Image() *image.RGBA {
	return r.canvas.Image()
}

// Render paints one frame back to front and returns the frame buffer
func (r *Renderer) Render(st anim.State, elapsed time.Duration) *image.RGBA {
	t := elapsed.Seconds()
	w := float64(r.config.Width)
	h := float64(r.config.Height)
	cx := w / 2
	cy := h * 0.46

	r.drawBackground()
	r.drawParticles(t, w, h)
	r.drawEnergy(st.Level, cx, cy)
	r.drawCharacter(st, cx, cy)
	r.drawWaveform(st.Level, t, w, h)
	r.drawStatusChip(st.Speaking)

	return r.canvas.Image()
}

func (r *Renderer) drawBackground() {
	img := r.canvas.Image()
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		f := float64(y-b.Min.Y) / float64(b.Dy())
		row := color.RGBA{
			R: lerpByte(bgTop.R, bgBottom.R, f),
			G: lerpByte(bgTop.G, bgBottom.G, f),
			B: lerpByte(bgTop.B, bgBottom.B, f),
			A: 0xff,
		}
		for x := b.Min.X; x < b.Max.X; x++ {
			img.SetRGBA(x, y, row)
		}
	}
}

// drawParticles scatters slow-drifting dots. Positions are seeded by index
// alone, so the field is identical for identical elapsed times.
func (r *Renderer) drawParticles(t, w, h float64) {
	for i := 0; i < particleCount; i++ {
		fi := float64(i)
		px := math.Mod(fi*127.31+t*8+w*math.Abs(math.Sin(fi*2.7)), w)
		py := math.Mod(fi*91.17+t*3.5+h*math.Abs(math.Cos(fi*1.9)), h)
		size := 1.5 + math.Abs(math.Sin(fi*3.3))*2
		r.canvas.FillCircle(px, py, size, particleCol)
	}
}

func (r *Renderer) drawEnergy(level, cx, cy float64) {
	if level <= 0.01 {
		return
	}
	glow := ringCol
	glow.A = uint8(30 + level*60)
	r.canvas.FillCircle(cx, cy, 190+level*80, glow)

	for i := 0; i < 3; i++ {
		ring := ringCol
		ring.A = uint8(float64(90-i*25) * level)
		r.canvas.StrokeCircle(cx, cy, 210+float64(i)*34+level*60, 3, ring)
	}
}

func (r *Renderer) drawCharacter(st anim.State, cx, cy float64) {
	c := r.canvas
	c.Save()
	defer c.Restore()

	// idle motion: bob shifts, tilt rotates, breath swells
	c.Translate(cx+st.Bob*6, cy+st.Breath*4)
	c.Rotate(st.Tilt * 0.035)
	s := 1 + st.Breath*0.012
	c.Scale(s, s)

	// body, ears behind the head, head, then the hair cap on top
	c.FillRoundedRect(-120, 40, 240, 180, 60, bodyCol)
	c.FillEllipse(-126, -40, 22, 30, earCol)
	c.FillEllipse(126, -40, 22, 30, earCol)
	c.FillEllipse(0, -40, 130, 120, headCol)
	c.FillEllipse(0, -142, 118, 36, hairCol)

	r.drawEyes(st)

	// brows, nose, cheeks are static relative to the head
	c.FillRoundedRect(-78, -112, 52, 12, 6, browCol)
	c.FillRoundedRect(26, -112, 52, 12, 6, browCol)
	c.FillEllipse(0, -28, 12, 16, noseCol)
	c.FillEllipse(-88, -8, 22, 14, cheekCol)
	c.FillEllipse(88, -8, 22, 14, cheekCol)

	r.drawMouth(st.Level)
}

func (r *Renderer) drawEyes(st anim.State) {
	c := r.canvas
	openness := 1 - st.Blink

	for _, ex := range []float64{-52, 52} {
		// whites collapse vertically as the lid closes
		ry := 26 * openness
		if ry < 1 {
			// lid line when fully closed
			c.FillRoundedRect(ex-24, -74, 48, 4, 2, browCol)
			continue
		}
		c.FillEllipse(ex, -72, 24, ry, eyeWhite)

		// iris tracks gaze; skipped while the eye is effectively closed
		if openness > 0.25 {
			ix := ex + st.GazeX*10
			iy := -72 + st.GazeY*6
			c.FillCircle(ix, iy, 9*math.Min(1, openness+0.3), irisCol)
		}
	}
}

func (r *Renderer) drawMouth(open float64) {
	c := r.canvas
	height := mouthBaseHeight + open*mouthRange
	top := 52 - height/2

	c.FillRoundedRect(-mouthWidth/2, top, mouthWidth, height, math.Min(14, height/2), mouthCol)

	// additive layers front to back inside the cavity
	if open > tongueOpen {
		tongueH := (open - tongueOpen) * 40
		c.FillEllipse(0, top+height-4, mouthWidth*0.3, tongueH, tongueCol)
	}
	if open > upperTeethOpen {
		c.FillRoundedRect(-mouthWidth/2+10, top, mouthWidth-20, 8, 3, teethCol)
	}
	if open > lowerTeethOpen {
		c.FillRoundedRect(-mouthWidth/2+14, top+height-8, mouthWidth-28, 7, 3, teethCol)
	}
}

// drawWaveform paints the reactive bar strip along the bottom. Each bar
// blends the live level with an index-seeded jitter so the strip shimmers
// instead of moving as a block.
func (r *Renderer) drawWaveform(level, t, w, h float64) {
	gap := w / float64(waveformBars)
	baseY := h - 26
	for i := 0; i < waveformBars; i++ {
		fi := float64(i)
		jitter := (math.Sin(t*5+fi*0.9) + math.Sin(t*3.1+fi*1.7)*0.5) / 1.5
		amp := level*0.75 + math.Abs(jitter)*0.25*(0.3+level)
		barH := 3 + amp*56
		x := gap*fi + gap*0.25
		r.canvas.FillRoundedRect(x, baseY-barH, gap*0.5, barH, gap*0.2, barCol)
	}
}

func (r *Renderer) drawStatusChip(speaking bool) {
	col := chipIdle
	label := "LISTENING"
	if speaking {
		col = chipLive
		label = "SPEAKING"
	}
	r.canvas.FillRoundedRect(20, 20, 110, 30, 15, col)
	r.canvas.Text(44, 39, label, chipText)
	r.canvas.FillCircle(32, 35, 5, chipText)
}

func lerpByte(a, b uint8, f float64) uint8 {
	return uint8(float64(a) + (float64(b)-float64(a))*f)
}
