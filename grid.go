package termdraw

import "github.com/rivo/uniseg"

// CellStyle is the styling applied by the grid builder to a run of
// text.
type CellStyle struct {
	Foreground uint32
	Background uint32
	Lines      GridlineFlags
}

// CellGrid builds the payload's cell slice from strings. It stands in
// for the terminal buffer that feeds a real integration: text is
// segmented into grapheme clusters, wide clusters occupy two cells
// (glyph cell plus spacer), and runes without a glyph in the face fall
// back to the replacement glyph.
type CellGrid struct {
	Cols, Rows int
	Cells      []Cell

	rasterizer Rasterizer
	softFont   *SoftFont
}

// NewCellGrid creates an empty cols×rows grid resolving glyph indices
// through ras.
func NewCellGrid(cols, rows int, ras Rasterizer) *CellGrid {
	return &CellGrid{
		Cols:       cols,
		Rows:       rows,
		Cells:      make([]Cell, cols*rows),
		rasterizer: ras,
	}
}

// Fill sets every cell to an empty glyph with the given style.
func (g *CellGrid) Fill(face FontFace, style CellStyle) {
	glyph, _ := g.rasterizer.GlyphIndex(face, ' ')
	for i := range g.Cells {
		g.Cells[i] = Cell{
			Glyph:      glyph,
			Face:       face,
			Foreground: style.Foreground,
			Background: style.Background,
			Lines:      style.Lines,
		}
	}
}

// SetLine writes text into row y starting at column x, returning the
// column after the last cell written. Text past the right edge is
// dropped. Grapheme clusters wider than one column emit a glyph cell
// followed by spacer cells.
func (g *CellGrid) SetLine(x, y int, text string, face FontFace, style CellStyle) int {
	if y < 0 || y >= g.Rows {
		return x
	}

	graphemes := uniseg.NewGraphemes(text)
	for graphemes.Next() {
		if x >= g.Cols {
			break
		}
		width := graphemes.Width()
		if width <= 0 {
			// Zero-width clusters (combining marks on their own,
			// control runes) occupy no cell.
			continue
		}

		runes := graphemes.Runes()
		cellFace := face
		var glyph GlyphIndex
		if g.softFont.Lookup(runes[0]) != nil {
			// Soft font glyphs bypass the rasterizer; the atlas
			// renders them from the user-defined bitmaps.
			cellFace = g.softFont
			glyph = GlyphIndex(runes[0] - g.softFont.FirstCodepoint)
		} else {
			glyph = g.resolveGlyph(face, runes[0])
		}

		cell := &g.Cells[y*g.Cols+x]
		*cell = Cell{
			Glyph:      glyph,
			Face:       cellFace,
			Foreground: style.Foreground,
			Background: style.Background,
			Lines:      style.Lines,
		}
		x++

		for s := 1; s < width && x < g.Cols; s++ {
			g.Cells[y*g.Cols+x] = Cell{
				Face:       face,
				Foreground: style.Foreground,
				Background: style.Background,
				Lines:      style.Lines,
				Flags:      CellWideSpacer,
			}
			x++
		}
	}
	return x
}

// SetSoftFont routes the soft font's codepoint range to its bitmaps
// for subsequent SetLine calls. Runes the soft font does not cover
// fall through to normal glyph resolution.
func (g *CellGrid) SetSoftFont(f *SoftFont) {
	g.softFont = f
}

// resolveGlyph maps a rune to its glyph index, falling back to the
// replacement character and finally to .notdef.
func (g *CellGrid) resolveGlyph(face FontFace, r rune) GlyphIndex {
	if glyph, ok := g.rasterizer.GlyphIndex(face, r); ok {
		return glyph
	}
	if glyph, ok := g.rasterizer.GlyphIndex(face, '�'); ok {
		return glyph
	}
	return 0
}

// Payload wraps the grid into a RenderPayload with the given metrics.
// The caller fills in cursor, selection, and generation state.
func (g *CellGrid) Payload(metrics FontMetrics, background uint32) *RenderPayload {
	return &RenderPayload{
		TargetSize:      [2]int{g.Cols * metrics.CellSize[0], g.Rows * metrics.CellSize[1]},
		Metrics:         metrics,
		Cols:            g.Cols,
		Rows:            g.Rows,
		Cells:           g.Cells,
		BackgroundColor: background,
	}
}
