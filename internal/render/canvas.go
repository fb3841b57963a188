package render

import (
	"image"
	"image/color"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// affine maps user space to device space:
//
//	xd = a*x + c*y + e
//	yd = b*x + d*y + f
type affine struct {
	a, b, c, d, e, f float64
}

func identity() affine {
	return affine{a: 1, d: 1}
}

func (m affine) mul(n affine) affine {
	return affine{
		a: m.a*n.a + m.c*n.b,
		b: m.b*n.a + m.d*n.b,
		c: m.a*n.c + m.c*n.d,
		d: m.b*n.c + m.d*n.d,
		e: m.a*n.e + m.c*n.f + m.e,
		f: m.b*n.e + m.d*n.f + m.f,
	}
}

func (m affine) apply(x, y float64) (float64, float64) {
	return m.a*x + m.c*y + m.e, m.b*x + m.d*y + m.f
}

func (m affine) invert() affine {
	det := m.a*m.d - m.b*m.c
	if det == 0 {
		return identity()
	}
	inv := 1 / det
	return affine{
		a: m.d * inv,
		b: -m.b * inv,
		c: -m.c * inv,
		d: m.a * inv,
		e: (m.c*m.f - m.d*m.e) * inv,
		f: (m.b*m.e - m.a*m.f) * inv,
	}
}

// Canvas is a minimal 2D painter over an RGBA image: a save/restore affine
// stack and filled primitives rasterized by point containment in user space.
type Canvas struct {
	img   *image.RGBA
	cur   affine
	stack []affine
}

// NewCanvas wraps an RGBA image with an identity transform
func NewCanvas(img *image.RGBA) *Canvas {
	return &Canvas{img: img, cur: identity()}
}

// Image returns the backing image
func (c *Canvas) Image() *image.RGBA {
	return c.img
}

// Save pushes the current transform
func (c *Canvas) Save() {
	c.stack = append(c.stack, c.cur)
}

// Restore pops the most recent Save. Unbalanced Restores are ignored.
func (c *Canvas) Restore() {
	if len(c.stack) == 0 {
		return
	}
	c.cur = c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]
}

// Translate moves the origin
func (c *Canvas) Translate(dx, dy float64) {
	c.cur = c.cur.mul(affine{a: 1, d: 1, e: dx, f: dy})
}

// Rotate rotates user space by rad around the current origin
func (c *Canvas) Rotate(rad float64) {
	sin, cos := math.Sincos(rad)
	c.cur = c.cur.mul(affine{a: cos, b: sin, c: -sin, d: cos})
}

// Scale scales user space
func (c *Canvas) Scale(sx, sy float64) {
	c.cur = c.cur.mul(affine{a: sx, d: sy})
}

// Clear fills the whole image with a flat color
func (c *Canvas) Clear(col color.RGBA) {
	xdraw.Draw(c.img, c.img.Bounds(), &image.Uniform{C: col}, image.Point{}, xdraw.Src)
}

// fill rasterizes a user-space shape: the user-space bounding box is pushed
// through the transform, then every device pixel inside it is inverse-mapped
// and containment-tested. Slow and simple, but exact and portable.
func (c *Canvas) fill(x0, y0, x1, y1 float64, inside func(x, y float64) bool, col color.RGBA) {
	corners := [4][2]float64{{x0, y0}, {x1, y0}, {x0, y1}, {x1, y1}}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range corners {
		dx, dy := c.cur.apply(p[0], p[1])
		minX = math.Min(minX, dx)
		minY = math.Min(minY, dy)
		maxX = math.Max(maxX, dx)
		maxY = math.Max(maxY, dy)
	}

	b := c.img.Bounds()
	ix0 := clampInt(int(math.Floor(minX)), b.Min.X, b.Max.X)
	iy0 := clampInt(int(math.Floor(minY)), b.Min.Y, b.Max.Y)
	ix1 := clampInt(int(math.Ceil(maxX))+1, b.Min.X, b.Max.X)
	iy1 := clampInt(int(math.Ceil(maxY))+1, b.Min.Y, b.Max.Y)

	inv := c.cur.invert()
	for py := iy0; py < iy1; py++ {
		for px := ix0; px < ix1; px++ {
			ux, uy := inv.apply(float64(px)+0.5, float64(py)+0.5)
			if inside(ux, uy) {
				c.blend(px, py, col)
			}
		}
	}
}

// FillRect fills an axis-aligned rectangle in user space
func (c *Canvas) FillRect(x, y, w, h float64, col color.RGBA) {
	c.fill(x, y, x+w, y+h, func(ux, uy float64) bool {
		return ux >= x && ux < x+w && uy >= y && uy < y+h
	}, col)
}

// FillEllipse fills an ellipse centered at (cx, cy)
func (c *Canvas) FillEllipse(cx, cy, rx, ry float64, col color.RGBA) {
	if rx <= 0 || ry <= 0 {
		return
	}
	c.fill(cx-rx, cy-ry, cx+rx, cy+ry, func(ux, uy float64) bool {
		dx := (ux - cx) / rx
		dy := (uy - cy) / ry
		return dx*dx+dy*dy <= 1
	}, col)
}

// FillCircle fills a circle centered at (cx, cy)
func (c *Canvas) FillCircle(cx, cy, r float64, col color.RGBA) {
	c.FillEllipse(cx, cy, r, r, col)
}

// FillRoundedRect fills a rectangle with circular corners of radius r. The
// radius is clamped so the corners never cross.
func (c *Canvas) FillRoundedRect(x, y, w, h, r float64, col color.RGBA) {
	if w <= 0 || h <= 0 {
		return
	}
	r = math.Min(r, math.Min(w, h)/2)
	c.fill(x, y, x+w, y+h, func(ux, uy float64) bool {
		if ux < x || ux >= x+w || uy < y || uy >= y+h {
			return false
		}
		dx := math.Max(math.Max(x+r-ux, ux-(x+w-r)), 0)
		dy := math.Max(math.Max(y+r-uy, uy-(y+h-r)), 0)
		return dx*dx+dy*dy <= r*r
	}, col)
}

// StrokeCircle draws a circle outline of the given thickness
func (c *Canvas) StrokeCircle(cx, cy, r, thickness float64, col color.RGBA) {
	inner := r - thickness/2
	outer := r + thickness/2
	c.fill(cx-outer, cy-outer, cx+outer, cy+outer, func(ux, uy float64) bool {
		d := math.Hypot(ux-cx, uy-cy)
		return d >= inner && d <= outer
	}, col)
}

// Text draws a device-space string with the built-in bitmap face, ignoring
// the transform stack. Good enough for status chips.
func (c *Canvas) Text(x, y int, s string, col color.RGBA) {
	d := font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(col),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// blend composites col over the pixel with source-over alpha
func (c *Canvas) blend(x, y int, col color.RGBA) {
	if col.A == 0xff {
		c.img.SetRGBA(x, y, col)
		return
	}
	dst := c.img.RGBAAt(x, y)
	a := uint32(col.A)
	na := 255 - a
	c.img.SetRGBA(x, y, color.RGBA{
		R: uint8((uint32(col.R)*a + uint32(dst.R)*na) / 255),
		G: uint8((uint32(col.G)*a + uint32(dst.G)*na) / 255),
		B: uint8((uint32(col.B)*a + uint32(dst.B)*na) / 255),
		A: 0xff,
	})
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
