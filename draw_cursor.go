package termdraw

// maxCursorRects bounds the cursor rectangle set. The worst case is a
// wide empty-box cursor split over two differently colored halves:
// three rects per half.
const maxCursorRects = 6

// cursorRect is one axis-aligned piece of the cursor, in device
// pixels.
type cursorRect struct {
	x, y, w, h int
	color      uint32
}

// invertColor flips the RGB channels and keeps alpha.
func invertColor(rgba uint32) uint32 {
	return rgba ^ 0x00ffffff
}

// updateCursorRects recomputes the cursor rectangle set when the
// cursor or background generation moved. The set is cached between
// frames because cursor blinking toggles visibility far more often
// than the shape or position changes. Background changes invalidate
// too: an inverting cursor derives its color from cell backgrounds.
func (r *Renderer) updateCursorRects(p *RenderPayload) {
	if r.cursorUpToDate && p.Generations.Cursor == r.gens.Cursor &&
		p.Generations.Background == r.gens.Background {
		return
	}
	r.cursorRects = r.cursorRects[:0]
	r.cursorUpToDate = true
	if !p.Cursor.Visible {
		return
	}

	c := p.Cursor
	if c.Y < 0 || c.Y >= p.Rows || c.X < 0 || c.X >= p.Cols {
		return
	}
	rendition := p.RowRendition(c.Y)
	cellW := p.Metrics.CellSize[0] * rendition.HorizontalScale()
	cellH := p.Metrics.CellSize[1]
	span := max(1, c.Span)

	// An inverting cursor over a wide glyph whose halves sit on
	// different background colors needs per-half colors; otherwise one
	// region covers the whole span.
	type region struct {
		x, w  int
		color uint32
	}
	regions := make([]region, 0, 2)
	colorFor := func(x int) uint32 {
		if c.Color != CursorColorInvert {
			return c.Color
		}
		return invertColor(p.CellAt(x, c.Y).Background)
	}
	if span == 2 && c.Color == CursorColorInvert && c.X+1 < p.Cols &&
		p.CellAt(c.X, c.Y).Background != p.CellAt(c.X+1, c.Y).Background {
		regions = append(regions,
			region{x: c.X * cellW, w: cellW, color: colorFor(c.X)},
			region{x: (c.X + 1) * cellW, w: cellW, color: colorFor(c.X + 1)},
		)
	} else {
		regions = append(regions, region{x: c.X * cellW, w: span * cellW, color: colorFor(c.X)})
	}

	top := c.Y * cellH
	line := max(1, p.Metrics.ThinLineWidth)
	add := func(x, y, w, h int, color uint32) {
		r.cursorRects = append(r.cursorRects, cursorRect{x: x, y: y, w: w, h: h, color: color})
	}
	for i, reg := range regions {
		first := i == 0
		last := i == len(regions)-1
		switch c.Shape {
		case CursorBlock:
			add(reg.x, top, reg.w, cellH, reg.color)
		case CursorUnderscore:
			add(reg.x, top+p.Metrics.UnderlinePos, reg.w, max(1, p.Metrics.UnderlineWidth), reg.color)
		case CursorDoubleUnderscore:
			for _, pos := range p.Metrics.DoubleUnderlinePos {
				add(reg.x, top+pos, reg.w, line, reg.color)
			}
		case CursorBar:
			if first {
				add(reg.x, top, line, cellH, reg.color)
			}
		case CursorEmptyBox:
			// Side edges only on the outer halves so a split box has
			// no seam in the middle.
			add(reg.x, top, reg.w, line, reg.color)
			add(reg.x, top+cellH-line, reg.w, line, reg.color)
			if first {
				add(reg.x, top+line, line, cellH-2*line, reg.color)
			}
			if last {
				add(reg.x+reg.w-line, top+line, line, cellH-2*line, reg.color)
			}
		}
	}
}

// CursorRectCount reports the current cursor rectangle count. Always
// at most maxCursorRects.
func (r *Renderer) CursorRectCount() int { return len(r.cursorRects) }

// cursorBounds returns the union of the cursor rectangles.
func (r *Renderer) cursorBounds() (x0, y0, x1, y1 int) {
	for i, cr := range r.cursorRects {
		if i == 0 {
			x0, y0, x1, y1 = cr.x, cr.y, cr.x+cr.w, cr.y+cr.h
			continue
		}
		x0 = min(x0, cr.x)
		y0 = min(y0, cr.y)
		x1 = max(x1, cr.x+cr.w)
		y1 = max(y1, cr.y+cr.h)
	}
	return
}

// drawCursorBackground emits the filled block cursor before the text
// pass so the covered glyph stays legible on top of the fill. Hollow
// and line shapes draw in the foreground pass instead.
func (r *Renderer) drawCursorBackground(p *RenderPayload) {
	r.updateCursorRects(p)
	if p.Cursor.Shape != CursorBlock {
		return
	}
	r.emitCursorRects()
}

// drawCursorForeground emits the shapes that must stay visible above
// text and selection: every non-block shape, and for a block cursor
// overlapped by the selection, a thin outline so the cursor does not
// vanish into the selection tint.
func (r *Renderer) drawCursorForeground(p *RenderPayload) {
	if len(r.cursorRects) == 0 {
		return
	}
	if p.Cursor.Shape != CursorBlock {
		r.emitCursorRects()
		return
	}
	if !r.selectionOverlapsCursor(p) {
		return
	}
	x0, y0, x1, y1 := r.cursorBounds()
	line := max(1, p.Metrics.ThinLineWidth)
	color := r.cursorRects[0].color
	for _, e := range [4]cursorRect{
		{x: x0, y: y0, w: x1 - x0, h: line},
		{x: x0, y: y1 - line, w: x1 - x0, h: line},
		{x: x0, y: y0 + line, w: line, h: y1 - y0 - 2*line},
		{x: x1 - line, y: y0 + line, w: line, h: y1 - y0 - 2*line},
	} {
		q := r.quads.Append()
		q.ShadingType = ShadingCursor
		q.Position = [2]int16{int16(e.x), int16(e.y)}
		q.Size = [2]uint16{uint16(e.w), uint16(e.h)}
		q.Color = PremultiplyColor(color)
	}
}

func (r *Renderer) emitCursorRects() {
	for _, cr := range r.cursorRects {
		q := r.quads.Append()
		q.ShadingType = ShadingCursor
		q.Position = [2]int16{int16(cr.x), int16(cr.y)}
		q.Size = [2]uint16{uint16(cr.w), uint16(cr.h)}
		q.Color = PremultiplyColor(cr.color)
	}
}

func (r *Renderer) selectionOverlapsCursor(p *RenderPayload) bool {
	if p.Selection == nil || !p.Cursor.Visible {
		return false
	}
	span := p.rowSelection(p.Cursor.Y)
	end := p.Cursor.X + max(1, p.Cursor.Span)
	return span.End > span.Begin && p.Cursor.X < span.End && end > span.Begin
}
