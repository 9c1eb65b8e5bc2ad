package termdraw

import (
	"errors"
	"fmt"

	"github.com/gogpu/termdraw/gpu"
	"github.com/gogpu/termdraw/internal/rectpack"
)

// Atlas errors.
var (
	// ErrAtlasFull reports that the packer has no room for a new glyph
	// at the current atlas extent. The text emitter resets the atlas
	// and retries the frame's emission exactly once.
	ErrAtlasFull = errors.New("termdraw: glyph atlas full")

	// ErrAtlasTooSmall reports that a glyph failed to pack even into a
	// freshly reset atlas. The frame is abandoned; the renderer
	// recreates the atlas with a larger height limit.
	ErrAtlasTooSmall = errors.New("termdraw: glyph atlas too small")
)

// FontFaceKey identifies one glyph namespace in the atlas: a font face
// handle combined with a line rendition. Keys compare by face handle
// identity, not by face content (see the FontFace doc).
type FontFaceKey struct {
	Face      FontFace
	Rendition LineRendition
}

// GlyphEntry is one cached glyph placement. Entries stay valid until
// the next atlas Reset; callers must not hold them across frames.
type GlyphEntry struct {
	Glyph   GlyphIndex
	Shading ShadingType

	// OverlapSplit marks glyphs whose bitmap overhangs the owning cell
	// beyond the ligature thresholds; the text emitter splits such
	// quads at cell boundaries instead of batching them into runs.
	OverlapSplit bool

	// Offset positions the glyph's top-left corner relative to the
	// owning cell's top-left corner.
	Offset [2]int16
	// Size is the glyph rectangle extent in pixels. A zero size marks
	// a glyph with no visible pixels (whitespace); emitters skip it.
	Size [2]uint16
	// Texcoord is the rectangle's top-left corner in the atlas.
	Texcoord [2]uint16

	occupied bool
}

// fontFaceEntry holds one face+rendition's glyph table. It lives
// behind a pointer so references into it stay valid while the outer
// face map grows, which happens when a double-height split inserts the
// sibling half mid-resolve.
type fontFaceEntry struct {
	// glyphs is an open-addressed table with linear probing; its
	// length is a power of two and the occupied flag marks live slots.
	glyphs []GlyphEntry
	live   int

	// boxGlyphs records glyph indices of box-drawing characters, which
	// are snapped to exact cell bounds so runs join seamlessly. Tracked
	// apart from the main table because box glyphs arrive in bursts
	// (frames full of line art), so the set grows more aggressively.
	boxGlyphs   []GlyphIndex
	boxOccupied []bool
	boxLive     int
}

const (
	glyphTableMinSize = 8
	boxSetMinSize     = 4
)

func clamp(val, minVal, maxVal int) int {
	return min(max(val, minVal), maxVal)
}

func hashGlyph(g GlyphIndex) uint32 {
	return uint32(g) * 0x9e3779b9
}

func (e *fontFaceEntry) lookup(g GlyphIndex) *GlyphEntry {
	if len(e.glyphs) == 0 {
		return nil
	}
	mask := uint32(len(e.glyphs) - 1)
	for i := hashGlyph(g) & mask; ; i = (i + 1) & mask {
		s := &e.glyphs[i]
		if !s.occupied {
			return nil
		}
		if s.Glyph == g {
			return s
		}
	}
}

// insert places entry into the table and returns its stable-for-now
// slot pointer. The pointer is invalidated by the next insert.
func (e *fontFaceEntry) insert(entry GlyphEntry) *GlyphEntry {
	entry.occupied = true
	if 4*(e.live+1) > 3*len(e.glyphs) {
		e.grow(max(glyphTableMinSize, 2*len(e.glyphs)))
	}
	e.live++
	return e.place(entry)
}

func (e *fontFaceEntry) place(entry GlyphEntry) *GlyphEntry {
	mask := uint32(len(e.glyphs) - 1)
	i := hashGlyph(entry.Glyph) & mask
	for e.glyphs[i].occupied {
		i = (i + 1) & mask
	}
	e.glyphs[i] = entry
	return &e.glyphs[i]
}

func (e *fontFaceEntry) grow(size int) {
	old := e.glyphs
	e.glyphs = make([]GlyphEntry, size)
	for i := range old {
		if old[i].occupied {
			e.place(old[i])
		}
	}
}

func (e *fontFaceEntry) isBoxGlyph(g GlyphIndex) bool {
	if len(e.boxGlyphs) == 0 {
		return false
	}
	mask := uint32(len(e.boxGlyphs) - 1)
	for i := hashGlyph(g) & mask; ; i = (i + 1) & mask {
		if !e.boxOccupied[i] {
			return false
		}
		if e.boxGlyphs[i] == g {
			return true
		}
	}
}

func (e *fontFaceEntry) addBoxGlyph(g GlyphIndex) {
	if 4*(e.boxLive+1) > 3*len(e.boxGlyphs) {
		oldG, oldO := e.boxGlyphs, e.boxOccupied
		size := max(boxSetMinSize, 4*len(e.boxGlyphs))
		e.boxGlyphs = make([]GlyphIndex, size)
		e.boxOccupied = make([]bool, size)
		for i := range oldG {
			if oldO[i] {
				e.placeBoxGlyph(oldG[i])
			}
		}
	}
	e.placeBoxGlyph(g)
	e.boxLive++
}

func (e *fontFaceEntry) placeBoxGlyph(g GlyphIndex) {
	mask := uint32(len(e.boxGlyphs) - 1)
	i := hashGlyph(g) & mask
	for e.boxOccupied[i] {
		if e.boxGlyphs[i] == g {
			return
		}
		i = (i + 1) & mask
	}
	e.boxGlyphs[i] = g
	e.boxOccupied[i] = true
}

// AtlasConfig sizes the glyph atlas texture.
type AtlasConfig struct {
	// Width is the fixed atlas width. The packer never grows along it.
	Width int
	// Height is the initial packable height.
	Height int
	// MaxHeight bounds packer growth. The GPU texture is allocated at
	// Width x MaxHeight up front so growth never copies texels.
	MaxHeight int
}

// DefaultAtlasConfig returns the atlas sizing used by NewRenderer.
func DefaultAtlasConfig() AtlasConfig {
	return AtlasConfig{Width: 1024, Height: 256, MaxHeight: 4096}
}

// GlyphAtlas caches rasterized glyph placements in one GPU texture.
// Resolve is idempotent between resets: repeated calls return the same
// placement without touching the rasterizer or the texture.
//
// The atlas is single-writer: all mutation happens on the render
// goroutine between flush boundaries, and entries are returned only
// after their pixels have been uploaded.
type GlyphAtlas struct {
	surface    gpu.Surface
	rasterizer Rasterizer
	softFont   *SoftFont

	texture gpu.TextureID
	packer  *rectpack.Packer
	faces   map[FontFaceKey]*fontFaceEntry

	width, height, maxHeight int
	generation               uint32
}

// NewGlyphAtlas allocates the atlas texture and packer.
func NewGlyphAtlas(surface gpu.Surface, rasterizer Rasterizer, cfg AtlasConfig) (*GlyphAtlas, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.MaxHeight < cfg.Height {
		return nil, fmt.Errorf("termdraw: invalid atlas config %dx%d (max %d)", cfg.Width, cfg.Height, cfg.MaxHeight)
	}
	tex, err := surface.CreateTexture(cfg.Width, cfg.MaxHeight, gpu.TextureFormatRGBA8)
	if err != nil {
		return nil, fmt.Errorf("termdraw: create atlas texture: %w", err)
	}
	return &GlyphAtlas{
		surface:    surface,
		rasterizer: rasterizer,
		texture:    tex,
		packer:     rectpack.New(cfg.Width, cfg.Height),
		faces:      make(map[FontFaceKey]*fontFaceEntry),
		width:      cfg.Width,
		height:     cfg.Height,
		maxHeight:  cfg.MaxHeight,
	}, nil
}

// Texture returns the atlas texture bound by the draw calls.
func (a *GlyphAtlas) Texture() gpu.TextureID { return a.texture }

// Generation increments on every Reset. Callers holding per-frame
// state derived from entries compare it to detect invalidation.
func (a *GlyphAtlas) Generation() uint32 { return a.generation }

// SetSoftFont installs (or clears, with nil) the user-defined bitmap
// glyph range. Changing the soft font resets the atlas since cached
// soft glyph pixels may be stale.
func (a *GlyphAtlas) SetSoftFont(f *SoftFont) {
	a.softFont = f
	a.Reset()
}

// SoftFontRange reports the codepoint range covered by the installed
// soft font. ok is false when no soft font is set.
func (a *GlyphAtlas) SoftFontRange() (first rune, count int, ok bool) {
	if a.softFont == nil {
		return 0, 0, false
	}
	return a.softFont.FirstCodepoint, len(a.softFont.Bitmaps), true
}

// Release destroys the atlas texture.
func (a *GlyphAtlas) Release() {
	if a.texture != gpu.InvalidID {
		a.surface.DestroyTexture(a.texture)
		a.texture = gpu.InvalidID
	}
}

// Reset invalidates every cached entry atomically and clears the
// packer. Stale texels stay in the texture; nothing references them.
func (a *GlyphAtlas) Reset() {
	a.faces = make(map[FontFaceKey]*fontFaceEntry)
	a.packer.Reset()
	a.height = a.packer.Height()
	a.generation++
	Logger().Info("glyph atlas reset", "generation", a.generation)
}

func (a *GlyphAtlas) ensureFace(key FontFaceKey) *fontFaceEntry {
	fe, ok := a.faces[key]
	if !ok {
		fe = &fontFaceEntry{}
		a.faces[key] = fe
		Logger().Debug("new font face entry", "rendition", key.Rendition, "faces", len(a.faces))
	}
	return fe
}

// Resolve returns the placement for one glyph, rasterizing and packing
// it on first sight. The returned entry is valid until the next insert
// into the same face entry or the next Reset; emitters consume it
// immediately. Failure to pack returns ErrAtlasFull without retrying.
func (a *GlyphAtlas) Resolve(metrics *FontMetrics, key FontFaceKey, glyph GlyphIndex) (*GlyphEntry, error) {
	fe := a.ensureFace(key)
	if e := fe.lookup(glyph); e != nil {
		return e, nil
	}
	if key.Rendition.IsDoubleHeight() {
		return a.resolveDoubleHeight(metrics, key, glyph, fe)
	}
	return a.resolveSingle(metrics, key, glyph, fe)
}

func (a *GlyphAtlas) resolveSingle(metrics *FontMetrics, key FontFaceKey, glyph GlyphIndex, fe *fontFaceEntry) (*GlyphEntry, error) {
	bmp, err := a.rasterizeGlyph(metrics, key, glyph)
	if err != nil {
		if errors.Is(err, ErrGlyphNotFound) {
			// Whitespace and unmapped glyphs cache as empty entries so
			// the rasterizer is not consulted again.
			return fe.insert(GlyphEntry{Glyph: glyph}), nil
		}
		return nil, err
	}

	cellW := metrics.CellSize[0] * key.Rendition.HorizontalScale()
	cellH := metrics.CellSize[1]
	if a.rasterizer != nil && a.rasterizer.IsBoxDrawing(key.Face, glyph) {
		fe.addBoxGlyph(glyph)
		cropGlyph(bmp, 0, 0, cellW, cellH)
	} else {
		// A glyph may overhang into at most one neighbor cell per
		// side; anything wider is clamped.
		cropGlyph(bmp, -cellW, 0, 2*cellW, cellH)
	}
	if bmp.Width <= 0 || bmp.Height <= 0 {
		return fe.insert(GlyphEntry{Glyph: glyph}), nil
	}

	pos, err := a.pack(bmp)
	if err != nil {
		return nil, err
	}
	return fe.insert(GlyphEntry{
		Glyph:        glyph,
		Shading:      bmp.Format.ShadingType(),
		OverlapSplit: overhangsCell(bmp, metrics, key.Rendition),
		Offset:       [2]int16{int16(bmp.Offset[0]), int16(bmp.Offset[1])},
		Size:         [2]uint16{uint16(bmp.Width), uint16(bmp.Height)},
		Texcoord:     pos,
	}), nil
}

// resolveDoubleHeight rasterizes the glyph once at full double height
// and splits it into a top and a bottom entry sharing one packed
// rectangle. The sibling half lands in the sibling rendition's face
// entry; inserting there may allocate that entry's table, which is why
// face entries are individually boxed.
func (a *GlyphAtlas) resolveDoubleHeight(metrics *FontMetrics, key FontFaceKey, glyph GlyphIndex, fe *fontFaceEntry) (*GlyphEntry, error) {
	bmp, err := a.rasterizeGlyph(metrics, key, glyph)
	if err != nil {
		if errors.Is(err, ErrGlyphNotFound) {
			return fe.insert(GlyphEntry{Glyph: glyph}), nil
		}
		return nil, err
	}

	cellW := metrics.CellSize[0] * key.Rendition.HorizontalScale()
	cellH := metrics.CellSize[1]
	cropGlyph(bmp, -cellW, 0, 2*cellW, 2*cellH)
	if bmp.Width <= 0 || bmp.Height <= 0 {
		return fe.insert(GlyphEntry{Glyph: glyph}), nil
	}

	pos, err := a.pack(bmp)
	if err != nil {
		return nil, err
	}

	// Split at the boundary between the two cell rows. Rows above it
	// belong to the top entry, the rest to the bottom entry; together
	// they reconstruct the full glyph with no gap and no overlap.
	boundary := clamp(cellH-bmp.Offset[1], 0, bmp.Height)
	overlap := overhangsCell(bmp, metrics, key.Rendition)

	top := GlyphEntry{
		Glyph:        glyph,
		Shading:      bmp.Format.ShadingType(),
		OverlapSplit: overlap,
		Offset:       [2]int16{int16(bmp.Offset[0]), int16(bmp.Offset[1])},
		Size:         [2]uint16{uint16(bmp.Width), uint16(boundary)},
		Texcoord:     pos,
	}
	bottom := GlyphEntry{
		Glyph:        glyph,
		Shading:      bmp.Format.ShadingType(),
		OverlapSplit: overlap,
		Offset:       [2]int16{int16(bmp.Offset[0]), 0},
		Size:         [2]uint16{uint16(bmp.Width), uint16(bmp.Height - boundary)},
		Texcoord:     [2]uint16{pos[0], pos[1] + uint16(boundary)},
	}

	topKey := FontFaceKey{Face: key.Face, Rendition: RenditionDoubleHeightTop}
	bottomKey := FontFaceKey{Face: key.Face, Rendition: RenditionDoubleHeightBottom}
	if key.Rendition == RenditionDoubleHeightTop {
		a.ensureFace(bottomKey).insert(bottom)
		return fe.insert(top), nil
	}
	a.ensureFace(topKey).insert(top)
	return fe.insert(bottom), nil
}

// rasterizeGlyph runs the soft font path when the face is a soft font,
// the external rasterizer otherwise.
func (a *GlyphAtlas) rasterizeGlyph(metrics *FontMetrics, key FontFaceKey, glyph GlyphIndex) (*GlyphBitmap, error) {
	if sf, ok := key.Face.(*SoftFont); ok {
		b := sf.Lookup(sf.FirstCodepoint + rune(glyph))
		if b == nil {
			return nil, ErrGlyphNotFound
		}
		w := metrics.CellSize[0] * key.Rendition.HorizontalScale()
		h := metrics.CellSize[1]
		if key.Rendition.IsDoubleHeight() {
			h *= 2
		}
		return sf.rasterizeSoftGlyph(b, w, h), nil
	}
	if a.rasterizer == nil {
		return nil, ErrGlyphNotFound
	}
	return a.rasterizer.Rasterize(key.Face, glyph, key.Rendition, metrics)
}

// pack places the bitmap, growing the packable height as needed, and
// uploads the pixels. Entries only come into existence after their
// texels are on the GPU, so the GPU never samples a torn atlas.
func (a *GlyphAtlas) pack(bmp *GlyphBitmap) ([2]uint16, error) {
	pos, ok := a.packer.TryPack(bmp.Width, bmp.Height)
	for !ok {
		if a.height >= a.maxHeight {
			return [2]uint16{}, ErrAtlasFull
		}
		a.height = min(2*a.height, a.maxHeight)
		a.packer.Grow(a.height)
		Logger().Debug("glyph atlas grown", "height", a.height)
		pos, ok = a.packer.TryPack(bmp.Width, bmp.Height)
	}
	err := a.surface.WriteTexture(a.texture, gpu.Region{
		X: pos.X, Y: pos.Y, Width: bmp.Width, Height: bmp.Height,
	}, bmp.Pixels)
	if err != nil {
		return [2]uint16{}, fmt.Errorf("termdraw: upload glyph: %w", err)
	}
	return [2]uint16{uint16(pos.X), uint16(pos.Y)}, nil
}

// overhangsCell reports whether the bitmap sticks out of its owning
// cell horizontally past the ligature thresholds. Such glyphs are
// emitted split at cell boundaries rather than batched into runs.
func overhangsCell(bmp *GlyphBitmap, metrics *FontMetrics, rendition LineRendition) bool {
	cellW := metrics.CellSize[0] * rendition.HorizontalScale()
	trigger := cellW / 4
	left := -bmp.Offset[0]
	right := bmp.Offset[0] + bmp.Width - cellW
	return left > trigger || right > trigger
}

// cropGlyph clips the bitmap to the cell-relative rectangle
// [x0,y0)..(x1,y1), adjusting pixels, size and offset in place.
func cropGlyph(bmp *GlyphBitmap, x0, y0, x1, y1 int) {
	left := max(0, x0-bmp.Offset[0])
	top := max(0, y0-bmp.Offset[1])
	right := min(bmp.Width, x1-bmp.Offset[0])
	bottom := min(bmp.Height, y1-bmp.Offset[1])
	if left == 0 && top == 0 && right == bmp.Width && bottom == bmp.Height {
		return
	}
	w := max(0, right-left)
	h := max(0, bottom-top)
	pixels := make([]byte, w*h*4)
	for y := 0; y < h; y++ {
		srcRow := ((top+y)*bmp.Width + left) * 4
		copy(pixels[y*w*4:(y+1)*w*4], bmp.Pixels[srcRow:srcRow+w*4])
	}
	bmp.Pixels = pixels
	bmp.Offset[0] += left
	bmp.Offset[1] += top
	bmp.Width = w
	bmp.Height = h
}
