package termdraw

import (
	"encoding/binary"
	"math"
	"testing"
)

// TestQuadInstanceEncode verifies the exact wire layout the vertex
// stage reads: {u32, i16x2, u16x2, u16x2, u32}, little-endian.
func TestQuadInstanceEncode(t *testing.T) {
	q := QuadInstance{
		ShadingType: ShadingTextGrayscale,
		Position:    [2]int16{-3, 17},
		Size:        [2]uint16{9, 20},
		Texcoord:    [2]uint16{120, 48},
		Color:       0xff336699,
	}
	dst := make([]byte, QuadInstanceSize)
	q.encode(dst)

	if got := binary.LittleEndian.Uint32(dst[0:]); got != uint32(ShadingTextGrayscale) {
		t.Errorf("shading = %d, want %d", got, ShadingTextGrayscale)
	}
	if got := int16(binary.LittleEndian.Uint16(dst[4:])); got != -3 {
		t.Errorf("position.x = %d, want -3", got)
	}
	if got := int16(binary.LittleEndian.Uint16(dst[6:])); got != 17 {
		t.Errorf("position.y = %d, want 17", got)
	}
	if got := binary.LittleEndian.Uint16(dst[8:]); got != 9 {
		t.Errorf("size.x = %d, want 9", got)
	}
	if got := binary.LittleEndian.Uint16(dst[10:]); got != 20 {
		t.Errorf("size.y = %d, want 20", got)
	}
	if got := binary.LittleEndian.Uint16(dst[12:]); got != 120 {
		t.Errorf("texcoord.x = %d, want 120", got)
	}
	if got := binary.LittleEndian.Uint16(dst[14:]); got != 48 {
		t.Errorf("texcoord.y = %d, want 48", got)
	}
	if got := binary.LittleEndian.Uint32(dst[16:]); got != 0xff336699 {
		t.Errorf("color = %#x, want 0xff336699", got)
	}
}

// TestShadingTypeRanges tests IsTextDrawing and IsFlatColor membership
// across all shading types.
func TestShadingTypeRanges(t *testing.T) {
	tests := []struct {
		shading     ShadingType
		textDrawing bool
		flatColor   bool
	}{
		{ShadingBackground, false, false},
		{ShadingTextGrayscale, true, false},
		{ShadingTextClearType, true, false},
		{ShadingTextPassthrough, true, false},
		{ShadingDottedLine, true, false},
		{ShadingDottedLineWide, true, false},
		{ShadingSolidLine, true, true},
		{ShadingCursor, false, true},
		{ShadingSelection, false, true},
	}
	for _, tt := range tests {
		if got := tt.shading.IsTextDrawing(); got != tt.textDrawing {
			t.Errorf("ShadingType(%d).IsTextDrawing() = %v, want %v", tt.shading, got, tt.textDrawing)
		}
		if got := tt.shading.IsFlatColor(); got != tt.flatColor {
			t.Errorf("ShadingType(%d).IsFlatColor() = %v, want %v", tt.shading, got, tt.flatColor)
		}
	}
}

// TestConstantBlockSizes verifies every encoded constant block is a
// multiple of 16 bytes, as required for uniform buffer uploads.
func TestConstantBlockSizes(t *testing.T) {
	vs := VSConstants{PositionScale: [2]float32{0.5, -0.25}}
	if got := len(vs.Encode()); got != VSConstantsSize {
		t.Errorf("len(VSConstants.Encode()) = %d, want %d", got, VSConstantsSize)
	}
	ps := PSConstants{}
	if got := len(ps.Encode()); got != PSConstantsSize {
		t.Errorf("len(PSConstants.Encode()) = %d, want %d", got, PSConstantsSize)
	}
	cs := CustomConstants{}
	if got := len(cs.Encode()); got != CustomConstantsSize {
		t.Errorf("len(CustomConstants.Encode()) = %d, want %d", got, CustomConstantsSize)
	}
	for _, n := range []int{VSConstantsSize, PSConstantsSize, CustomConstantsSize} {
		if n%16 != 0 {
			t.Errorf("constant block size %d is not 16-byte aligned", n)
		}
	}
}

// TestPSConstantsEncodeLayout spot-checks field offsets in the encoded
// fragment stage block.
func TestPSConstantsEncodeLayout(t *testing.T) {
	c := PSConstants{
		BackgroundColor:     [4]float32{1, 0.5, 0.25, 1},
		BackgroundCellSize:  [2]float32{9, 20},
		BackgroundCellCount: [2]float32{80, 24},
		GammaRatios:         [4]float32{0.1, 0.2, 0.3, 0.4},
		EnhancedContrast:    1.5,
		UnderlineWidth:      2,
	}
	dst := c.Encode()

	readF32 := func(off int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(dst[off:]))
	}
	if got := readF32(4); got != 0.5 {
		t.Errorf("background_color.g = %v, want 0.5", got)
	}
	if got := readF32(16); got != 9 {
		t.Errorf("background_cell_size.x = %v, want 9", got)
	}
	if got := readF32(28); got != 24 {
		t.Errorf("background_cell_count.y = %v, want 24", got)
	}
	if got := readF32(48); got != 1.5 {
		t.Errorf("enhanced_contrast = %v, want 1.5", got)
	}
	if got := readF32(52); got != 2 {
		t.Errorf("underline_width = %v, want 2", got)
	}
}
