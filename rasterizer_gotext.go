package termdraw

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"math"

	"github.com/go-text/typesetting/font"
	ot "github.com/go-text/typesetting/font/opentype"
	"golang.org/x/image/vector"
)

// GoTextRasterizer rasterizes glyphs from go-text/typesetting faces.
// FontFace handles passed to it must be *font.Face values, e.g. from
// LoadFont. Outline glyphs are filled with x/image/vector into a
// grayscale coverage mask; embedded PNG bitmaps (color emoji) are
// decoded and scaled to the cell, drawn as passthrough color.
//
// The rasterizer produces grayscale coverage only; ClearType subpixel
// output is left to platform-specific rasterizers implementing the
// same interface.
//
// GoTextRasterizer is not safe for concurrent use. The atlas calls it
// from the render goroutine only.
type GoTextRasterizer struct {
	rast vector.Rasterizer

	// boxGlyphs caches, per face, the glyph IDs mapped from the
	// box-drawing block.
	boxGlyphs map[*font.Face]map[GlyphIndex]struct{}
}

// NewGoTextRasterizer creates a rasterizer for typesetting faces.
func NewGoTextRasterizer() *GoTextRasterizer {
	return &GoTextRasterizer{
		boxGlyphs: make(map[*font.Face]map[GlyphIndex]struct{}),
	}
}

// LoadFont parses TTF/OTF data into a FontFace usable with
// GoTextRasterizer. The returned handle is identity-comparable; load
// each font once and reuse the handle.
func LoadFont(data []byte) (FontFace, error) {
	f, err := font.ParseTTF(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("termdraw: parse font: %w", err)
	}
	return f, nil
}

// GlyphIndex maps a rune to its glyph index in the face.
func (g *GoTextRasterizer) GlyphIndex(face FontFace, r rune) (GlyphIndex, bool) {
	f, ok := face.(*font.Face)
	if !ok {
		return 0, false
	}
	gid, ok := f.NominalGlyph(r)
	if !ok || gid > math.MaxUint16 {
		return 0, false
	}
	return GlyphIndex(gid), ok
}

// IsBoxDrawing reports whether the glyph maps a rune in U+2500..U+259F.
func (g *GoTextRasterizer) IsBoxDrawing(face FontFace, glyph GlyphIndex) bool {
	f, ok := face.(*font.Face)
	if !ok {
		return false
	}
	set, ok := g.boxGlyphs[f]
	if !ok {
		set = make(map[GlyphIndex]struct{})
		for r := rune(0x2500); r <= 0x259f; r++ {
			if gid, ok := f.NominalGlyph(r); ok && gid <= math.MaxUint16 {
				set[GlyphIndex(gid)] = struct{}{}
			}
		}
		g.boxGlyphs[f] = set
	}
	_, ok = set[glyph]
	return ok
}

// Rasterize renders one glyph into a cell-relative bitmap.
func (g *GoTextRasterizer) Rasterize(face FontFace, glyph GlyphIndex, rendition LineRendition, metrics *FontMetrics) (*GlyphBitmap, error) {
	f, ok := face.(*font.Face)
	if !ok {
		return nil, fmt.Errorf("termdraw: face %T is not a go-text face", face)
	}

	sx := float32(rendition.HorizontalScale())
	sy := float32(1)
	if rendition.IsDoubleHeight() {
		sy = 2
	}

	switch data := f.GlyphData(font.GID(glyph)).(type) {
	case font.GlyphOutline:
		return g.fillOutline(f, data, sx, sy, metrics)
	case font.GlyphBitmap:
		return g.scaleBitmap(data, sx, sy, metrics)
	default:
		return nil, ErrGlyphNotFound
	}
}

// fillOutline converts the outline from font units (y-up, baseline
// origin) to cell-relative pixels (y-down) and fills it.
func (g *GoTextRasterizer) fillOutline(f *font.Face, outline font.GlyphOutline, sx, sy float32, metrics *FontMetrics) (*GlyphBitmap, error) {
	if len(outline.Segments) == 0 {
		// Whitespace maps to an outline with no contours.
		return nil, ErrGlyphNotFound
	}

	scaleX := sx * metrics.FontSizePx / float32(f.Upem())
	scaleY := sy * metrics.FontSizePx / float32(f.Upem())
	baseline := float32(metrics.Baseline) * sy

	minX, minY := float32(math.Inf(1)), float32(math.Inf(1))
	maxX, maxY := float32(math.Inf(-1)), float32(math.Inf(-1))
	grow := func(p ot.SegmentPoint) {
		x := p.X * scaleX
		y := baseline - p.Y*scaleY
		minX, maxX = min(minX, x), max(maxX, x)
		minY, maxY = min(minY, y), max(maxY, y)
	}
	for _, seg := range outline.Segments {
		for _, p := range seg.Args[:segmentPointCount(seg.Op)] {
			grow(p)
		}
	}

	x0 := int(math.Floor(float64(minX)))
	y0 := int(math.Floor(float64(minY)))
	w := int(math.Ceil(float64(maxX))) - x0
	h := int(math.Ceil(float64(maxY))) - y0
	if w <= 0 || h <= 0 {
		return nil, ErrGlyphNotFound
	}

	g.rast.Reset(w, h)
	g.rast.DrawOp = draw.Src
	tx := func(p ot.SegmentPoint) (float32, float32) {
		return p.X*scaleX - float32(x0), baseline - p.Y*scaleY - float32(y0)
	}
	for _, seg := range outline.Segments {
		switch seg.Op {
		case ot.SegmentOpMoveTo:
			x, y := tx(seg.Args[0])
			g.rast.MoveTo(x, y)
		case ot.SegmentOpLineTo:
			x, y := tx(seg.Args[0])
			g.rast.LineTo(x, y)
		case ot.SegmentOpQuadTo:
			cx, cy := tx(seg.Args[0])
			x, y := tx(seg.Args[1])
			g.rast.QuadTo(cx, cy, x, y)
		case ot.SegmentOpCubeTo:
			c1x, c1y := tx(seg.Args[0])
			c2x, c2y := tx(seg.Args[1])
			x, y := tx(seg.Args[2])
			g.rast.CubeTo(c1x, c1y, c2x, c2y, x, y)
		}
	}
	g.rast.ClosePath()

	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	g.rast.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})

	pixels := make([]byte, w*h*4)
	for i, a := range mask.Pix {
		pixels[i*4+0] = a
		pixels[i*4+1] = a
		pixels[i*4+2] = a
		pixels[i*4+3] = a
	}
	return &GlyphBitmap{
		Pixels: pixels,
		Width:  w,
		Height: h,
		Offset: [2]int{x0, y0},
		Format: FormatGrayscale,
	}, nil
}

// segmentPointCount returns how many leading points of Args the
// segment op uses.
func segmentPointCount(op ot.SegmentOp) int {
	switch op {
	case ot.SegmentOpQuadTo:
		return 2
	case ot.SegmentOpCubeTo:
		return 3
	default:
		return 1
	}
}

// scaleBitmap decodes an embedded bitmap glyph and resamples it to the
// cell footprint with nearest-neighbor sampling. Color bitmaps draw as
// passthrough; monochrome strikes draw as grayscale coverage.
func (g *GoTextRasterizer) scaleBitmap(data font.GlyphBitmap, sx, sy float32, metrics *FontMetrics) (*GlyphBitmap, error) {
	dstW := int(float32(metrics.CellSize[0]) * sx)
	dstH := int(float32(metrics.CellSize[1]) * sy)
	if dstW <= 0 || dstH <= 0 {
		return nil, ErrGlyphNotFound
	}

	switch data.Format {
	case font.PNG:
		src, err := png.Decode(bytes.NewReader(data.Data))
		if err != nil {
			return nil, fmt.Errorf("termdraw: decode bitmap glyph: %w", err)
		}
		pixels := make([]byte, dstW*dstH*4)
		b := src.Bounds()
		for y := 0; y < dstH; y++ {
			srcY := b.Min.Y + y*b.Dy()/dstH
			for x := 0; x < dstW; x++ {
				srcX := b.Min.X + x*b.Dx()/dstW
				r, gr, bl, a := src.At(srcX, srcY).RGBA()
				i := (y*dstW + x) * 4
				pixels[i+0] = byte(r >> 8)
				pixels[i+1] = byte(gr >> 8)
				pixels[i+2] = byte(bl >> 8)
				pixels[i+3] = byte(a >> 8)
			}
		}
		return &GlyphBitmap{
			Pixels: pixels,
			Width:  dstW,
			Height: dstH,
			Format: FormatColor,
		}, nil

	case font.BlackAndWhite:
		// 1 bit per pixel, rows padded to whole bytes.
		stride := (data.Width + 7) / 8
		pixels := make([]byte, dstW*dstH*4)
		for y := 0; y < dstH; y++ {
			srcY := y * data.Height / dstH
			for x := 0; x < dstW; x++ {
				srcX := x * data.Width / dstW
				bit := data.Data[srcY*stride+srcX/8] >> (7 - srcX%8) & 1
				if bit == 0 {
					continue
				}
				i := (y*dstW + x) * 4
				pixels[i+0] = 0xff
				pixels[i+1] = 0xff
				pixels[i+2] = 0xff
				pixels[i+3] = 0xff
			}
		}
		return &GlyphBitmap{
			Pixels: pixels,
			Width:  dstW,
			Height: dstH,
			Format: FormatGrayscale,
		}, nil

	default:
		return nil, ErrGlyphNotFound
	}
}
