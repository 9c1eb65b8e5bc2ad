package termdraw

import (
	"encoding/binary"
	"math"
)

// ShadingType selects the compositing formula the fragment shader
// applies to a quad instance. The numeric values are part of the GPU
// contract and must match the switch in shaders/cell.wgsl.
type ShadingType uint32

const (
	// ShadingDefault draws the full-viewport background quad, sampling
	// the background color bitmap by cell position.
	ShadingDefault    ShadingType = 0
	ShadingBackground ShadingType = 0

	// This block forms the TextDrawingFirst..TextDrawingLast range and
	// must stay contiguous. Membership is used to quickly check whether
	// an instance is a text drawing primitive.
	ShadingTextGrayscale   ShadingType = 1
	ShadingTextClearType   ShadingType = 2
	ShadingTextPassthrough ShadingType = 3
	ShadingDottedLine      ShadingType = 4
	ShadingDottedLineWide  ShadingType = 5
	// Everything from ShadingSolidLine onward is composited as a flat
	// RGBA color; the atlas is not sampled.
	ShadingSolidLine ShadingType = 6

	ShadingCursor    ShadingType = 7
	ShadingSelection ShadingType = 8

	ShadingTextDrawingFirst = ShadingTextGrayscale
	ShadingTextDrawingLast  = ShadingSolidLine
)

// IsTextDrawing reports whether s belongs to the contiguous range of
// text drawing primitives.
func (s ShadingType) IsTextDrawing() bool {
	return s >= ShadingTextDrawingFirst && s <= ShadingTextDrawingLast
}

// IsFlatColor reports whether the shader composites s as a flat RGBA
// color instead of sampling the glyph atlas.
func (s ShadingType) IsFlatColor() bool {
	return s >= ShadingSolidLine
}

// QuadInstance is one fixed-size record in the instance buffer,
// describing a single GPU-drawn quad.
//
// Position may clip outside the viewport bounds (overlap-split glyphs,
// partially scrolled-in rows) and so is signed. 16-bit coordinates keep
// the instance at 20 bytes, which measurably matters for upload
// bandwidth; displays beyond 32k pixels would need f32 here.
//
// Instances are immutable once appended and consumed in emission
// order: order determines compositing order within a frame.
type QuadInstance struct {
	ShadingType ShadingType
	Position    [2]int16  // cell-space pixels, viewport origin
	Size        [2]uint16 // pixels
	Texcoord    [2]uint16 // atlas-space pixels
	Color       uint32    // premultiplied RGBA, red in the low byte
}

// QuadInstanceSize is the byte stride of one encoded QuadInstance.
// Every field is 32-bit aligned; the total must match the instance
// vertex layout declared by the GPU backend.
const QuadInstanceSize = 20

// encode writes the instance into dst in the exact wire layout the
// vertex stage reads: {u32, i16x2, u16x2, u16x2, u32}, little-endian.
func (q *QuadInstance) encode(dst []byte) {
	_ = dst[QuadInstanceSize-1]
	binary.LittleEndian.PutUint32(dst[0:], uint32(q.ShadingType))
	binary.LittleEndian.PutUint16(dst[4:], uint16(q.Position[0]))
	binary.LittleEndian.PutUint16(dst[6:], uint16(q.Position[1]))
	binary.LittleEndian.PutUint16(dst[8:], q.Size[0])
	binary.LittleEndian.PutUint16(dst[10:], q.Size[1])
	binary.LittleEndian.PutUint16(dst[12:], q.Texcoord[0])
	binary.LittleEndian.PutUint16(dst[14:], q.Texcoord[1])
	binary.LittleEndian.PutUint32(dst[16:], q.Color)
}

// Constant blocks below are uploaded verbatim to the GPU. Their sizes
// must be multiples of 16 bytes and no scalar may straddle a 16-byte
// boundary; violating this produces garbled output with no error
// signal from the GPU.

// VSConstants are the vertex stage's per-frame parameters.
type VSConstants struct {
	// PositionScale maps cell-space pixels to normalized device
	// coordinates: {2/viewportWidth, -2/viewportHeight}.
	PositionScale [2]float32
	_             [2]float32
}

// VSConstantsSize is the encoded size of VSConstants.
const VSConstantsSize = 16

// Encode serializes the block little-endian, padding included.
func (c *VSConstants) Encode() []byte {
	dst := make([]byte, VSConstantsSize)
	putF32(dst[0:], c.PositionScale[0])
	putF32(dst[4:], c.PositionScale[1])
	return dst
}

// PSConstants are the fragment stage's per-frame parameters.
type PSConstants struct {
	BackgroundColor     [4]float32
	BackgroundCellSize  [2]float32
	BackgroundCellCount [2]float32
	GammaRatios         [4]float32
	EnhancedContrast    float32
	UnderlineWidth      float32
	_                   [2]float32
}

// PSConstantsSize is the encoded size of PSConstants.
const PSConstantsSize = 64

// Encode serializes the block little-endian, padding included.
func (c *PSConstants) Encode() []byte {
	dst := make([]byte, PSConstantsSize)
	off := 0
	for _, v := range c.BackgroundColor {
		putF32(dst[off:], v)
		off += 4
	}
	putF32(dst[off+0:], c.BackgroundCellSize[0])
	putF32(dst[off+4:], c.BackgroundCellSize[1])
	putF32(dst[off+8:], c.BackgroundCellCount[0])
	putF32(dst[off+12:], c.BackgroundCellCount[1])
	off += 16
	for _, v := range c.GammaRatios {
		putF32(dst[off:], v)
		off += 4
	}
	putF32(dst[off+0:], c.EnhancedContrast)
	putF32(dst[off+4:], c.UnderlineWidth)
	return dst
}

// CustomConstants feed an optional post-process shader pass. The pass
// itself is a collaborator (gpu.PostProcessor); termdraw only supplies
// the parameter block.
type CustomConstants struct {
	Time       float32
	Scale      float32
	Resolution [2]float32
	Background [4]float32
}

// CustomConstantsSize is the encoded size of CustomConstants.
const CustomConstantsSize = 32

// Encode serializes the block little-endian.
func (c *CustomConstants) Encode() []byte {
	dst := make([]byte, CustomConstantsSize)
	putF32(dst[0:], c.Time)
	putF32(dst[4:], c.Scale)
	putF32(dst[8:], c.Resolution[0])
	putF32(dst[12:], c.Resolution[1])
	for i, v := range c.Background {
		putF32(dst[16+i*4:], v)
	}
	return dst
}

func putF32(dst []byte, v float32) {
	binary.LittleEndian.PutUint32(dst, math.Float32bits(v))
}
