// Package rectpack implements skyline rectangle packing for glyph
// atlas textures.
//
// The packer maintains a "skyline": a left-to-right sequence of
// horizontal segments describing the top edge of everything placed so
// far. A new rectangle is placed at the position with the lowest
// resulting top edge (bottom-left heuristic). Placements are never
// moved once issued; the atlas is write-once per cell.
package rectpack

// Point is the top-left corner of an issued placement.
type Point struct {
	X, Y int
}

// segment is one horizontal run of the skyline. x is the left edge,
// width its extent, y the height of the skyline over that run.
type segment struct {
	x, y, width int
}

// Packer packs axis-aligned rectangles into a fixed-width,
// growable-height area. The zero value is not usable; call New.
type Packer struct {
	width  int
	height int

	skyline []segment
}

// New creates a packer for a width×height area.
func New(width, height int) *Packer {
	p := &Packer{
		width:  width,
		height: height,
		// One segment per pixel column is the worst case.
		skyline: make([]segment, 1, 32),
	}
	p.skyline[0] = segment{x: 0, y: 0, width: width}
	return p
}

// Width returns the fixed packing width.
func (p *Packer) Width() int { return p.width }

// Height returns the current packing height.
func (p *Packer) Height() int { return p.height }

// TryPack finds space for a w×h rectangle. It returns the placement
// and true on success, or a zero Point and false if no contiguous free
// region of the requested size exists in the current extent. The
// caller decides whether to grow the area or reset it.
func (p *Packer) TryPack(w, h int) (Point, bool) {
	if w <= 0 || h <= 0 || w > p.width {
		return Point{}, false
	}

	bestIdx := -1
	bestX := 0
	bestY := p.height + 1

	for i := range p.skyline {
		y, ok := p.fitAt(i, w)
		if !ok {
			continue
		}
		if y+h > p.height {
			continue
		}
		// Lowest top edge wins; ties resolve to the leftmost position,
		// which the left-to-right scan gives us for free.
		if y < bestY {
			bestIdx = i
			bestX = p.skyline[i].x
			bestY = y
		}
	}

	if bestIdx < 0 {
		return Point{}, false
	}

	p.place(bestIdx, bestX, bestY, w, h)
	return Point{X: bestX, Y: bestY}, true
}

// fitAt computes the skyline height of a w-wide rectangle whose left
// edge starts at segment i. Returns false if the rectangle would
// extend past the right edge.
func (p *Packer) fitAt(i, w int) (int, bool) {
	x := p.skyline[i].x
	if x+w > p.width {
		return 0, false
	}

	y := p.skyline[i].y
	remaining := w
	for j := i; remaining > 0; j++ {
		s := p.skyline[j]
		if s.y > y {
			y = s.y
		}
		remaining -= s.width
	}
	return y, true
}

// place updates the skyline for a rectangle placed at (x, y).
func (p *Packer) place(i, x, y, w, h int) {
	placed := segment{x: x, y: y + h, width: w}

	// Consume segments covered by the new rectangle, keeping the
	// protruding remainder of the last one.
	end := x + w
	j := i
	for j < len(p.skyline) && p.skyline[j].x < end {
		j++
	}
	last := p.skyline[j-1]
	tail := p.skyline[j:]

	merged := append(p.skyline[:i:i], placed)
	if over := last.x + last.width - end; over > 0 {
		merged = append(merged, segment{x: end, y: last.y, width: over})
	}
	merged = append(merged, tail...)
	p.skyline = merged

	p.mergeAdjacent()
}

// mergeAdjacent coalesces neighboring segments of equal height so the
// skyline stays at most one segment per distinct height run.
func (p *Packer) mergeAdjacent() {
	out := p.skyline[:1]
	for _, s := range p.skyline[1:] {
		top := &out[len(out)-1]
		if top.y == s.y {
			top.width += s.width
		} else {
			out = append(out, s)
		}
	}
	p.skyline = out
}

// Grow raises the packing height to newHeight. Growth along the height
// axis preserves the skyline and therefore every placement already
// issued. Width growth is deliberately unsupported: it would shift the
// coordinate space under issued placements, so callers reset instead.
func (p *Packer) Grow(newHeight int) {
	if newHeight > p.height {
		p.height = newHeight
	}
}

// Reset discards all placements and restores the full area.
func (p *Packer) Reset() {
	p.skyline = p.skyline[:1]
	p.skyline[0] = segment{x: 0, y: 0, width: p.width}
}
