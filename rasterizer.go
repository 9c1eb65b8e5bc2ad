package termdraw

import "errors"

// Rasterization errors.
var (
	// ErrGlyphNotFound is returned by Rasterize when the face has no
	// outline or bitmap for the glyph. The atlas falls back to the
	// replacement glyph; the error never reaches Resolve callers.
	ErrGlyphNotFound = errors.New("termdraw: glyph not found in face")
)

// PixelFormat classifies a rasterized glyph's pixel content. The
// atlas derives the quad's shading type from it.
type PixelFormat uint8

// Pixel formats.
const (
	// FormatGrayscale is a monochrome coverage mask; composited with
	// grayscale antialiasing (ShadingTextGrayscale).
	FormatGrayscale PixelFormat = iota + 1

	// FormatClearType carries per-channel subpixel coverage;
	// composited with ClearType blending (ShadingTextClearType).
	FormatClearType

	// FormatColor is a pre-colored bitmap (emoji, soft font cells);
	// copied through unmodified (ShadingTextPassthrough).
	FormatColor
)

// ShadingType returns the text shading type for the format.
func (f PixelFormat) ShadingType() ShadingType {
	switch f {
	case FormatClearType:
		return ShadingTextClearType
	case FormatColor:
		return ShadingTextPassthrough
	default:
		return ShadingTextGrayscale
	}
}

// GlyphBitmap is the result of rasterizing one glyph.
type GlyphBitmap struct {
	// Pixels is tightly packed RGBA8, Width*Height*4 bytes. Grayscale
	// glyphs store coverage in all four channels so the atlas holds a
	// single texture format.
	Pixels []byte
	Width  int
	Height int

	// Offset positions the bitmap's top-left corner relative to the
	// owning cell's top-left corner. May be negative (overhang).
	Offset [2]int

	Format PixelFormat
}

// Rasterizer produces glyph bitmaps for the atlas. Implementations are
// called from a single goroutine, synchronously, between frames'
// emission only.
//
// The atlas keys its cache on FontFace handle identity (§FontFace);
// implementations must hand out stable handles.
type Rasterizer interface {
	// GlyphIndex maps a rune to its glyph index in the face.
	GlyphIndex(face FontFace, r rune) (GlyphIndex, bool)

	// Rasterize renders one glyph at the metrics' cell scale, adjusted
	// for the line rendition: double-width doubles the horizontal
	// scale, double-height renditions rasterize the full glyph at
	// double vertical scale (the atlas splits it into halves).
	// Returns ErrGlyphNotFound if the face has no such glyph.
	Rasterize(face FontFace, glyph GlyphIndex, rendition LineRendition, metrics *FontMetrics) (*GlyphBitmap, error)

	// IsBoxDrawing reports whether the glyph renders a box-drawing
	// codepoint (U+2500..U+259F). Box glyphs are snapped to exact cell
	// bounds so runs join seamlessly.
	IsBoxDrawing(face FontFace, glyph GlyphIndex) bool
}

// SoftFont holds user-defined bitmap glyphs (DRCS) that replace the
// rasterizer entirely for a designated codepoint range. A failed match
// falls through to normal rasterization.
type SoftFont struct {
	// FirstCodepoint is the first rune of the mapped range.
	FirstCodepoint rune

	// GlyphSize is the size of every soft glyph bitmap in pixels.
	GlyphSize [2]int

	// Bitmaps holds one coverage bitmap per codepoint, row-major,
	// one byte per pixel.
	Bitmaps [][]byte
}

// Lookup returns the bitmap for r, or nil if r is outside the range.
func (f *SoftFont) Lookup(r rune) []byte {
	if f == nil {
		return nil
	}
	i := int(r - f.FirstCodepoint)
	if i < 0 || i >= len(f.Bitmaps) {
		return nil
	}
	return f.Bitmaps[i]
}

// rasterizeSoftGlyph scales the 1-byte-per-pixel soft glyph bitmap to
// the cell size with nearest-neighbor sampling and expands it to RGBA
// coverage. Soft glyphs tint with the cell foreground like any other
// text, so they carry grayscale coverage rather than baked color.
func (f *SoftFont) rasterizeSoftGlyph(bitmap []byte, cellW, cellH int) *GlyphBitmap {
	srcW, srcH := f.GlyphSize[0], f.GlyphSize[1]
	pixels := make([]byte, cellW*cellH*4)
	for y := 0; y < cellH; y++ {
		sy := y * srcH / cellH
		for x := 0; x < cellW; x++ {
			sx := x * srcW / cellW
			c := bitmap[sy*srcW+sx]
			if c == 0 {
				continue
			}
			i := (y*cellW + x) * 4
			pixels[i+0] = c
			pixels[i+1] = c
			pixels[i+2] = c
			pixels[i+3] = c
		}
	}
	return &GlyphBitmap{
		Pixels: pixels,
		Width:  cellW,
		Height: cellH,
		Format: FormatGrayscale,
	}
}
