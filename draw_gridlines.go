package termdraw

// gridlineRun is a horizontal run of cells sharing decoration flags
// and foreground color within one row.
type gridlineRun struct {
	begin, end int // columns
	lines      GridlineFlags
	color      uint32
}

// drawGridlinesRow emits the line decorations for one row. Cells are
// grouped into runs first, then each run emits one quad per active
// decoration, so consecutive underlined cells cost one quad, not one
// per cell.
func (r *Renderer) drawGridlinesRow(p *RenderPayload, y int) {
	rendition := p.RowRendition(y)
	cellW := p.Metrics.CellSize[0] * rendition.HorizontalScale()
	cols := p.Cols / rendition.HorizontalScale()

	var run gridlineRun
	flush := func() {
		if run.end > run.begin && run.lines != 0 {
			r.drawGridlineRun(p, y, rendition, run, cellW)
		}
	}
	for x := 0; x < cols; x++ {
		cell := p.CellAt(x, y)
		if cell.Lines == run.lines && cell.Foreground == run.color && x == run.end {
			run.end++
			continue
		}
		flush()
		run = gridlineRun{begin: x, end: x + 1, lines: cell.Lines, color: cell.Foreground}
	}
	flush()
}

func (r *Renderer) drawGridlineRun(p *RenderPayload, y int, rendition LineRendition, run gridlineRun, cellW int) {
	m := &p.Metrics
	top := y * m.CellSize[1]
	left := run.begin * cellW
	width := (run.end - run.begin) * cellW
	color := PremultiplyColor(run.color)

	// Dotted patterns stretch with the cell on double-width rows so
	// the dot pitch follows the glyphs.
	dotted := ShadingDottedLine
	if rendition != RenditionSingleWidth {
		dotted = ShadingDottedLineWide
	}

	switch {
	case run.lines&GridlineDoubleUnderline != 0:
		for _, pos := range m.DoubleUnderlinePos {
			r.appendFlatRect(ShadingSolidLine, left, top+pos, width, m.ThinLineWidth, color)
		}
	case run.lines&GridlineDottedUnderline != 0:
		r.appendFlatRect(dotted, left, top+m.UnderlinePos, width, m.UnderlineWidth, color)
	case run.lines&GridlineDashedUnderline != 0:
		r.appendFlatRect(dotted, left, top+m.UnderlinePos, width, m.UnderlineWidth, color)
	case run.lines&GridlineCurlyUnderline != 0:
		r.appendFlatRect(ShadingDottedLineWide, left, top+m.UnderlinePos, width, m.UnderlineWidth, color)
	case run.lines&GridlineUnderline != 0:
		r.appendFlatRect(ShadingSolidLine, left, top+m.UnderlinePos, width, m.UnderlineWidth, color)
	}
	if run.lines&GridlineStrikethrough != 0 {
		r.appendFlatRect(ShadingSolidLine, left, top+m.StrikethroughPos, width, m.StrikethroughWidth, color)
	}
	if run.lines&GridlineOverline != 0 {
		r.appendFlatRect(ShadingSolidLine, left, top, width, m.UnderlineWidth, color)
	}
}
