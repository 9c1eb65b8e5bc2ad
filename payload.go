package termdraw

// FontFace is an opaque handle to a shaped font face variant, as
// produced by the Rasterizer collaborator. Values must be comparable;
// two handles are the same face iff they compare equal.
//
// The atlas keys its cache on handle identity, not on face contents.
// This requires the rasterizer to return the *same* handle for
// repeated requests of the same face+variant while a reference is
// held. If a rasterizer ever returns distinct handles for logically
// identical faces, duplicate cache entries accumulate silently; see
// the GoTextRasterizer documentation for how it upholds the contract.
type FontFace any

// GlyphIndex is a glyph's index within its font face.
type GlyphIndex uint16

// LineRendition is a row's scaling mode.
type LineRendition uint8

// Line renditions.
const (
	// RenditionSingleWidth is the normal 1:1 rendition.
	RenditionSingleWidth LineRendition = iota

	// RenditionDoubleWidth doubles each cell horizontally (DECDWL).
	RenditionDoubleWidth

	// RenditionDoubleHeightTop is the upper half of a double-height,
	// double-width row (DECDHL).
	RenditionDoubleHeightTop

	// RenditionDoubleHeightBottom is the lower half.
	RenditionDoubleHeightBottom
)

// IsDoubleHeight reports whether the rendition is either half of a
// double-height row.
func (lr LineRendition) IsDoubleHeight() bool {
	return lr == RenditionDoubleHeightTop || lr == RenditionDoubleHeightBottom
}

// HorizontalScale returns the horizontal cell multiplier (1 or 2).
func (lr LineRendition) HorizontalScale() int {
	if lr == RenditionSingleWidth {
		return 1
	}
	return 2
}

// GridlineFlags mark the line decorations active on a cell.
type GridlineFlags uint16

// Gridline flags.
const (
	GridlineUnderline GridlineFlags = 1 << iota
	GridlineDoubleUnderline
	GridlineDottedUnderline
	GridlineDashedUnderline
	GridlineCurlyUnderline
	GridlineStrikethrough
	GridlineOverline
)

// CellFlags carry per-cell bookkeeping that is not styling.
type CellFlags uint8

// Cell flags.
const (
	// CellWideSpacer marks the trailing half of a wide glyph. Spacer
	// cells carry colors (for background and selection) but no glyph.
	CellWideSpacer CellFlags = 1 << iota
)

// Cell is one grid position of the frame payload.
type Cell struct {
	Glyph      GlyphIndex
	Face       FontFace
	Foreground uint32 // RGBA, straight alpha
	Background uint32 // RGBA, straight alpha
	Lines      GridlineFlags
	Flags      CellFlags
}

// CursorShape selects the cursor's geometry.
type CursorShape uint8

// Cursor shapes.
const (
	CursorBlock CursorShape = iota
	CursorUnderscore
	CursorDoubleUnderscore
	CursorBar
	CursorEmptyBox
)

// CursorColorInvert, used as a cursor color, composites the cursor by
// inverting whatever it covers instead of filling a fixed color.
const CursorColorInvert uint32 = 0xffffffff

// CursorState describes the cursor for one frame.
type CursorState struct {
	X, Y int
	// Span is the cursor width in cells: 2 over a wide glyph, else 1.
	Span    int
	Shape   CursorShape
	Visible bool
	// Color fills the cursor; CursorColorInvert inverts instead.
	Color uint32
}

// RowSpan is a half-open column range [Begin, End) within one row.
// Begin == End means no span.
type RowSpan struct {
	Begin, End int
}

// FontMetrics are the resolved font measurements the emitters position
// quads with. Settings-change detection and metric recomputation are
// external; the payload just carries the result.
type FontMetrics struct {
	CellSize [2]int

	// FontSizePx is the em size in device pixels the cell metrics were
	// derived from. Rasterizers scale outlines by FontSizePx/upem.
	FontSizePx float32

	// Baseline is the distance from the cell top to the text baseline.
	Baseline int

	UnderlinePos       int
	UnderlineWidth     int
	StrikethroughPos   int
	StrikethroughWidth int
	// DoubleUnderlinePos are the top edges of the two lines of a
	// double underline, relative to the cell top.
	DoubleUnderlinePos [2]int
	// ThinLineWidth is the stroke width for cursor outlines and
	// vertical bars.
	ThinLineWidth int

	GammaRatios      [4]float32
	EnhancedContrast float32
}

// Generations signal change on the subsystems feeding the compositor.
// Each is a monotonically increasing version number; an unchanged
// counter means the corresponding subsystem performed no rebuild and
// the renderer may skip its own.
type Generations struct {
	Settings   uint32
	Font       uint32
	Misc       uint32
	Cursor     uint32
	Background uint32
}

// RenderPayload is everything the compositor consumes for one frame.
// It is owned by the caller and only read during Render.
type RenderPayload struct {
	// TargetSize is the viewport size in device pixels.
	TargetSize [2]int

	Metrics FontMetrics

	// Cols and Rows give the viewport cell count; Cells is row-major
	// with stride Cols.
	Cols, Rows int
	Cells      []Cell

	// RowRenditions has one entry per row; nil means all single-width.
	RowRenditions []LineRendition

	// Selection has one span per row; nil means no selection.
	Selection      []RowSpan
	SelectionColor uint32

	Cursor CursorState

	BackgroundColor uint32

	Generations Generations
}

// CellAt returns the cell at column x, row y. The caller guarantees
// bounds.
func (p *RenderPayload) CellAt(x, y int) *Cell {
	return &p.Cells[y*p.Cols+x]
}

// RowRendition returns the rendition of row y.
func (p *RenderPayload) RowRendition(y int) LineRendition {
	if p.RowRenditions == nil {
		return RenditionSingleWidth
	}
	return p.RowRenditions[y]
}

// rowSelection returns the selection span of row y.
func (p *RenderPayload) rowSelection(y int) RowSpan {
	if p.Selection == nil || y >= len(p.Selection) {
		return RowSpan{}
	}
	return p.Selection[y]
}
