package termdraw

// drawSelection emits one quad per row's selected span, merging rows
// with identical spans into one taller quad. Selection draws after
// text so it tints what is underneath; the cursor's foreground pass
// runs later still, keeping the cursor visible inside a selection.
func (r *Renderer) drawSelection(p *RenderPayload) {
	if p.Selection == nil {
		return
	}
	cellH := p.Metrics.CellSize[1]
	color := PremultiplyColor(p.SelectionColor)

	for y := 0; y < p.Rows; y++ {
		span := p.rowSelection(y)
		if span.End <= span.Begin {
			continue
		}
		// Spans are in row-local columns; double-width rows stretch
		// each column to the rendition-scaled cell width.
		cellW := p.Metrics.CellSize[0] * p.RowRendition(y).HorizontalScale()
		x := span.Begin * cellW
		w := (span.End - span.Begin) * cellW
		top := y * cellH
		if last := r.quads.Last(); last != nil &&
			last.ShadingType == ShadingSelection &&
			last.Color == color &&
			int(last.Position[0]) == x &&
			int(last.Size[0]) == w &&
			int(last.Position[1])+int(last.Size[1]) == top {
			last.Size[1] += uint16(cellH)
			continue
		}
		q := r.quads.Append()
		q.ShadingType = ShadingSelection
		q.Position = [2]int16{int16(x), int16(top)}
		q.Size = [2]uint16{uint16(w), uint16(cellH)}
		q.Color = color
	}
}
