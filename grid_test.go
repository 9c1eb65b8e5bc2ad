package termdraw

import "testing"

// TestGridSetLine verifies basic text placement and the return column.
func TestGridSetLine(t *testing.T) {
	rast := &fakeRasterizer{size: [2]int{8, 16}}
	g := NewCellGrid(10, 2, rast)
	face := &fakeFace{"mono"}

	end := g.SetLine(2, 1, "hi", face, CellStyle{Foreground: 0xffffffff})
	if end != 4 {
		t.Errorf("SetLine() = %d, want 4", end)
	}
	c := g.Cells[1*10+2]
	if c.Face != face || c.Glyph != GlyphIndex('h') {
		t.Errorf("cell (2,1) = %+v, want glyph 'h'", c)
	}
	if g.Cells[1*10+3].Glyph != GlyphIndex('i') {
		t.Errorf("cell (3,1) glyph = %d, want 'i'", g.Cells[1*10+3].Glyph)
	}
	if g.Cells[0].Face != nil {
		t.Error("untouched cell gained a face")
	}
}

// TestGridWideCluster verifies wide grapheme clusters emit a glyph
// cell followed by a spacer.
func TestGridWideCluster(t *testing.T) {
	rast := &fakeRasterizer{size: [2]int{8, 16}}
	g := NewCellGrid(4, 1, rast)
	face := &fakeFace{"mono"}

	end := g.SetLine(0, 0, "木x", face, CellStyle{})
	if end != 3 {
		t.Errorf("SetLine() = %d, want 3 (wide cluster plus one)", end)
	}
	if g.Cells[0].Flags&CellWideSpacer != 0 {
		t.Error("leading half marked as spacer")
	}
	if g.Cells[1].Flags&CellWideSpacer == 0 {
		t.Error("trailing half not marked as spacer")
	}
	if g.Cells[2].Glyph != GlyphIndex('x') {
		t.Errorf("cell 2 glyph = %d, want 'x'", g.Cells[2].Glyph)
	}
}

// TestGridZeroWidthSkipped verifies zero-width clusters occupy no cell.
func TestGridZeroWidthSkipped(t *testing.T) {
	rast := &fakeRasterizer{size: [2]int{8, 16}}
	g := NewCellGrid(4, 1, rast)

	// A standalone combining acute accent has zero display width.
	end := g.SetLine(0, 0, "áb", &fakeFace{"mono"}, CellStyle{})
	// "á" is one cluster of width 1, then "b".
	if end != 2 {
		t.Errorf("SetLine() = %d, want 2", end)
	}
}

// TestGridClipsAtEdge verifies text past the right edge is dropped.
func TestGridClipsAtEdge(t *testing.T) {
	rast := &fakeRasterizer{size: [2]int{8, 16}}
	g := NewCellGrid(3, 1, rast)

	end := g.SetLine(0, 0, "abcdef", &fakeFace{"mono"}, CellStyle{})
	if end != 3 {
		t.Errorf("SetLine() = %d, want clipped at 3", end)
	}
	if g.Cells[2].Glyph != GlyphIndex('c') {
		t.Errorf("last cell glyph = %d, want 'c'", g.Cells[2].Glyph)
	}
}

// TestGridSoftFontRouting verifies runes in the soft font range route
// to the soft font face, and others keep the normal path.
func TestGridSoftFontRouting(t *testing.T) {
	rast := &fakeRasterizer{size: [2]int{8, 16}}
	g := NewCellGrid(4, 1, rast)
	face := &fakeFace{"mono"}
	sf := &SoftFont{
		FirstCodepoint: 0x2400,
		GlyphSize:      [2]int{4, 8},
		Bitmaps:        [][]byte{make([]byte, 32), make([]byte, 32)},
	}
	g.SetSoftFont(sf)

	g.SetLine(0, 0, "␁a", face, CellStyle{})
	if g.Cells[0].Face != FontFace(sf) {
		t.Errorf("soft rune face = %v, want the soft font", g.Cells[0].Face)
	}
	if g.Cells[0].Glyph != 1 {
		t.Errorf("soft rune glyph = %d, want index 1 into the soft font", g.Cells[0].Glyph)
	}
	if g.Cells[1].Face != FontFace(face) {
		t.Errorf("plain rune face = %v, want the normal face", g.Cells[1].Face)
	}
}

// TestGridPayload verifies the wrapped payload mirrors the grid.
func TestGridPayload(t *testing.T) {
	rast := &fakeRasterizer{size: [2]int{8, 16}}
	g := NewCellGrid(5, 3, rast)
	p := g.Payload(testMetrics(), 0xff101010)

	if p.Cols != 5 || p.Rows != 3 {
		t.Errorf("payload grid = %dx%d, want 5x3", p.Cols, p.Rows)
	}
	if p.TargetSize != ([2]int{40, 48}) {
		t.Errorf("TargetSize = %v, want {40 48}", p.TargetSize)
	}
	if p.BackgroundColor != 0xff101010 {
		t.Errorf("BackgroundColor = %#x, want 0xff101010", p.BackgroundColor)
	}
}
