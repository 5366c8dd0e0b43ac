// Package renderer turns a product name and price into the PNG bitmap shown
// on a shelf label.
package renderer

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"sync"
	"unicode/utf8"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// ErrRenderFailed wraps every font-loading, drawing or encoding failure
var ErrRenderFailed = errors.New("label render failed")

// Display colours. Labels are tri-colour e-paper panels, so the composed
// canvas is quantized to exactly this palette before encoding.
var (
	White   = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	Black   = color.RGBA{A: 0xff}
	Red     = color.RGBA{R: 0xff, A: 0xff}
	Palette = color.Palette{White, Black, Red}
)

// Layout fixes the label geometry. Text origins are baselines, sizes are in
// points at 72 DPI (one point per pixel).
type Layout struct {
	Width  int
	Height int

	HeaderHeight    int
	HeaderCaption   string
	CaptionBaseline int
	CaptionSize     float64

	NameOrigin    image.Point
	NameSize      float64
	NameSmallSize float64
	// Names longer than NameThreshold runes use NameSmallSize. This is a
	// length heuristic only; glyph widths are never measured, so a long name
	// of wide glyphs can still run off the right edge and be clipped.
	NameThreshold int

	PriceBox    image.Rectangle
	PriceOrigin image.Point
	PriceSize   float64
	PricePrefix string
}

// DefaultLayout is the 160x128 reference label
func DefaultLayout() Layout {
	return Layout{
		Width:  160,
		Height: 128,

		HeaderHeight:    25,
		HeaderCaption:   "SMART STORE",
		CaptionBaseline: 18,
		CaptionSize:     12,

		NameOrigin:    image.Pt(10, 55),
		NameSize:      18,
		NameSmallSize: 14,
		NameThreshold: 15,

		PriceBox:    image.Rect(10, 70, 150, 115),
		PriceOrigin: image.Pt(20, 105),
		PriceSize:   28,
		PricePrefix: "Rs ",
	}
}

// Renderer draws labels. It is safe for concurrent use: the parsed font is
// the only shared state and faces are created per call.
type Renderer struct {
	layout Layout
	font   func() (*opentype.Font, error)
}

// New returns a renderer for layout. An empty fontPath selects the embedded
// Go Bold face. The font is parsed once, on the first Render.
func New(layout Layout, fontPath string) *Renderer {
	return &Renderer{
		layout: layout,
		font: sync.OnceValues(func() (*opentype.Font, error) {
			return loadFont(fontPath)
		}),
	}
}

// Layout returns the geometry this renderer draws with
func (r *Renderer) Layout() Layout {
	return r.layout
}

// Render composes the label for name and price and returns it PNG-encoded.
// The output is a pure function of its inputs and the loaded font.
func (r *Renderer) Render(name, price string) ([]byte, error) {
	f, err := r.font()
	if err != nil {
		return nil, fmt.Errorf("%w: load font: %v", ErrRenderFailed, err)
	}

	l := r.layout
	canvas := image.NewRGBA(image.Rect(0, 0, l.Width, l.Height))

	fill(canvas, canvas.Bounds(), White)
	fill(canvas, image.Rect(0, 0, l.Width, l.HeaderHeight), Black)

	if err := drawCentered(canvas, f, l.HeaderCaption, l.CaptionSize, l.CaptionBaseline, White); err != nil {
		return nil, err
	}

	if err := drawText(canvas, f, name, l.nameSize(name), l.NameOrigin, Black); err != nil {
		return nil, err
	}

	fill(canvas, l.PriceBox, Red)
	if err := drawText(canvas, f, l.PricePrefix+price, l.PriceSize, l.PriceOrigin, White); err != nil {
		return nil, err
	}

	return encode(canvas)
}

func (l Layout) nameSize(name string) float64 {
	if utf8.RuneCountInString(name) > l.NameThreshold {
		return l.NameSmallSize
	}
	return l.NameSize
}

func loadFont(path string) (*opentype.Font, error) {
	data := gobold.TTF
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		data = raw
	}
	return opentype.Parse(data)
}

func newFace(f *opentype.Font, size float64) (font.Face, error) {
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: face %.0fpt: %v", ErrRenderFailed, size, err)
	}
	return face, nil
}

func fill(dst draw.Image, r image.Rectangle, c color.Color) {
	draw.Draw(dst, r, image.NewUniform(c), image.Point{}, draw.Src)
}

func drawText(dst draw.Image, f *opentype.Font, text string, size float64, origin image.Point, c color.Color) error {
	if text == "" {
		return nil
	}
	face, err := newFace(f, size)
	if err != nil {
		return err
	}
	defer face.Close()

	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(origin.X, origin.Y),
	}
	d.DrawString(text)
	return nil
}

func drawCentered(dst draw.Image, f *opentype.Font, text string, size float64, baseline int, c color.Color) error {
	if text == "" {
		return nil
	}
	face, err := newFace(f, size)
	if err != nil {
		return err
	}
	defer face.Close()

	width := font.MeasureString(face, text)
	x := (fixed.I(dst.Bounds().Dx()) - width) / 2
	if x < 0 {
		x = 0
	}

	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.Point26_6{X: x, Y: fixed.I(baseline)},
	}
	d.DrawString(text)
	return nil
}

// encode snaps anti-aliased edges to the nearest palette colour without
// dithering and writes a paletted PNG.
func encode(canvas *image.RGBA) ([]byte, error) {
	bitmap := image.NewPaletted(canvas.Bounds(), Palette)
	draw.Draw(bitmap, bitmap.Bounds(), canvas, image.Point{}, draw.Src)

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, bitmap); err != nil {
		return nil, fmt.Errorf("%w: encode png: %v", ErrRenderFailed, err)
	}
	return buf.Bytes(), nil
}
