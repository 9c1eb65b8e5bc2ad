package termdraw

import (
	"fmt"

	"github.com/gogpu/termdraw/gpu"
)

// drawBackground refreshes the background color bitmap when the
// payload's background generation moved, then emits the one
// full-viewport quad the shader fills by sampling that bitmap per
// cell. Emitted first; everything else composites over it.
func (r *Renderer) drawBackground(p *RenderPayload) error {
	if err := r.updateBackgroundBitmap(p); err != nil {
		return err
	}
	q := r.quads.Append()
	q.ShadingType = ShadingBackground
	q.Position = [2]int16{0, 0}
	q.Size = [2]uint16{uint16(p.TargetSize[0]), uint16(p.TargetSize[1])}
	q.Color = PremultiplyColor(p.BackgroundColor)
	return nil
}

func (r *Renderer) updateBackgroundBitmap(p *RenderPayload) error {
	resized := r.backgroundSize != [2]int{p.Cols, p.Rows}
	if resized {
		if r.backgroundTexture != gpu.InvalidID {
			r.surface.DestroyTexture(r.backgroundTexture)
			r.backgroundTexture = gpu.InvalidID
		}
		tex, err := r.surface.CreateTexture(p.Cols, p.Rows, gpu.TextureFormatRGBA8)
		if err != nil {
			return fmt.Errorf("termdraw: create background texture: %w", err)
		}
		r.backgroundTexture = tex
		r.backgroundSize = [2]int{p.Cols, p.Rows}
		r.backgroundBitmap = make([]byte, p.Cols*p.Rows*4)
	}
	if !resized && r.backgroundUpToDate && p.Generations.Background == r.gens.Background {
		return nil
	}

	// One premultiplied RGBA texel per cell, row-major.
	for y := 0; y < p.Rows; y++ {
		for x := 0; x < p.Cols; x++ {
			c := PremultiplyColor(p.CellAt(x, y).Background)
			i := (y*p.Cols + x) * 4
			r.backgroundBitmap[i+0] = byte(c)
			r.backgroundBitmap[i+1] = byte(c >> 8)
			r.backgroundBitmap[i+2] = byte(c >> 16)
			r.backgroundBitmap[i+3] = byte(c >> 24)
		}
	}
	err := r.surface.WriteTexture(r.backgroundTexture, gpu.Region{
		X: 0, Y: 0, Width: p.Cols, Height: p.Rows,
	}, r.backgroundBitmap)
	if err != nil {
		return fmt.Errorf("termdraw: upload background bitmap: %w", err)
	}
	r.backgroundUpToDate = true
	return nil
}
