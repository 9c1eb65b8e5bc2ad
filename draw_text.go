package termdraw

// drawTextRow emits the glyph quads for one row, resolving every cell
// through the atlas. Gridlines for the row are emitted right after by
// the caller so decorations composite over their row's text but under
// the next row's (relevant for overhanging glyphs).
func (r *Renderer) drawTextRow(p *RenderPayload, y int) error {
	rendition := p.RowRendition(y)
	cellW := p.Metrics.CellSize[0] * rendition.HorizontalScale()
	cellH := p.Metrics.CellSize[1]
	posY := y * cellH

	// Double-width renditions show only the leading half of the row.
	cols := p.Cols / rendition.HorizontalScale()
	for x := 0; x < cols; x++ {
		cell := p.CellAt(x, y)
		if cell.Face == nil || cell.Flags&CellWideSpacer != 0 {
			continue
		}
		key := FontFaceKey{Face: cell.Face, Rendition: rendition}
		entry, err := r.atlas.Resolve(&p.Metrics, key, cell.Glyph)
		if err != nil {
			return err
		}
		if entry.Size[0] == 0 || entry.Size[1] == 0 {
			continue
		}
		color := PremultiplyColor(cell.Foreground)
		posX := x * cellW
		if entry.OverlapSplit {
			r.drawGlyphSplit(entry, posX, posY, cellW, color)
			continue
		}
		q := r.quads.Append()
		q.ShadingType = entry.Shading
		q.Position = [2]int16{int16(posX + int(entry.Offset[0])), int16(posY + int(entry.Offset[1]))}
		q.Size = entry.Size
		q.Texcoord = entry.Texcoord
		q.Color = color
	}
	return nil
}

// drawGlyphSplit emits an overhanging glyph as up to three quads cut
// at the owning cell's vertical boundaries, so each slice interleaves
// correctly with its own column's later passes. The atlas already
// clamps overhang to one cell per side.
func (r *Renderer) drawGlyphSplit(entry *GlyphEntry, posX, posY, cellW int, color uint32) {
	left := int(entry.Offset[0])
	width := int(entry.Size[0])
	// Cut positions in glyph-local x: the owning cell's edges.
	cuts := [2]int{-left, cellW - left}

	begin := 0
	for _, cut := range cuts {
		if cut > begin && cut < width {
			r.appendGlyphSlice(entry, posX, posY, begin, cut, color)
			begin = cut
		}
	}
	r.appendGlyphSlice(entry, posX, posY, begin, width, color)
}

func (r *Renderer) appendGlyphSlice(entry *GlyphEntry, posX, posY, begin, end int, color uint32) {
	if end <= begin {
		return
	}
	q := r.quads.Append()
	q.ShadingType = entry.Shading
	q.Position = [2]int16{
		int16(posX + int(entry.Offset[0]) + begin),
		int16(posY + int(entry.Offset[1])),
	}
	q.Size = [2]uint16{uint16(end - begin), entry.Size[1]}
	q.Texcoord = [2]uint16{entry.Texcoord[0] + uint16(begin), entry.Texcoord[1]}
	q.Color = color
}

// appendFlatRect emits a flat-color or patterned rectangle, merging it
// into the previous quad when the two form one contiguous horizontal
// run with identical shading and color. Flat and dotted shadings
// derive their pixels from screen position, so a merged quad renders
// identically to two adjacent ones; atlas-sampled quads never merge.
func (r *Renderer) appendFlatRect(shading ShadingType, x, y, w, h int, color uint32) {
	if w <= 0 || h <= 0 {
		return
	}
	if last := r.quads.Last(); last != nil &&
		last.ShadingType == shading &&
		last.Color == color &&
		int(last.Position[1]) == y &&
		int(last.Size[1]) == h &&
		int(last.Position[0])+int(last.Size[0]) == x {
		last.Size[0] += uint16(w)
		return
	}
	q := r.quads.Append()
	q.ShadingType = shading
	q.Position = [2]int16{int16(x), int16(y)}
	q.Size = [2]uint16{uint16(w), uint16(h)}
	q.Color = color
}
