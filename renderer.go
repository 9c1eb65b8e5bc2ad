package termdraw

import (
	"errors"
	"fmt"
	"time"

	"github.com/gogpu/termdraw/gpu"
)

// RendererConfig configures a Renderer.
type RendererConfig struct {
	Atlas AtlasConfig

	// PostProcess, when non-nil, runs after the frame's final flush
	// with an encoded CustomConstants block.
	PostProcess gpu.PostProcessor
}

// DefaultRendererConfig returns the configuration NewRenderer uses
// for zero values.
func DefaultRendererConfig() RendererConfig {
	return RendererConfig{Atlas: DefaultAtlasConfig()}
}

// Renderer turns RenderPayloads into GPU draw calls. It owns the glyph
// atlas, the instance buffer and the background bitmap; their
// lifetimes follow the renderer's, and all of them are recreated after
// device loss.
//
// One Renderer serves one render target. All methods must be called
// from a single goroutine.
type Renderer struct {
	surface    gpu.Surface
	rasterizer Rasterizer
	cfg        RendererConfig

	atlas *GlyphAtlas
	quads *QuadBuffer

	instanceBuffer gpu.BufferID
	instanceCap    int
	encodeScratch  []byte

	backgroundTexture  gpu.TextureID
	backgroundBitmap   []byte
	backgroundSize     [2]int
	backgroundUpToDate bool

	cursorRects    []cursorRect
	cursorUpToDate bool

	gens       Generations
	haveGens   bool
	lastTarget [2]int

	softFont   *SoftFont
	deviceLost bool
	start      time.Time
}

// NewRenderer creates a renderer drawing to surface, resolving glyphs
// through rasterizer.
func NewRenderer(surface gpu.Surface, rasterizer Rasterizer, cfg RendererConfig) (*Renderer, error) {
	if cfg.Atlas == (AtlasConfig{}) {
		cfg.Atlas = DefaultAtlasConfig()
	}
	atlas, err := NewGlyphAtlas(surface, rasterizer, cfg.Atlas)
	if err != nil {
		return nil, err
	}
	return &Renderer{
		surface:           surface,
		rasterizer:        rasterizer,
		cfg:               cfg,
		atlas:             atlas,
		quads:             NewQuadBuffer(),
		instanceBuffer:    gpu.InvalidID,
		backgroundTexture: gpu.InvalidID,
		start:             time.Now(),
	}, nil
}

// SetSoftFont installs the user-defined glyph range; see SoftFont.
func (r *Renderer) SetSoftFont(f *SoftFont) {
	r.softFont = f
	r.atlas.SetSoftFont(f)
}

// SoftFont returns the installed soft font, or nil.
func (r *Renderer) SoftFont() *SoftFont { return r.softFont }

// Release destroys all GPU resources owned by the renderer.
func (r *Renderer) Release() {
	r.atlas.Release()
	if r.instanceBuffer != gpu.InvalidID {
		r.surface.DestroyBuffer(r.instanceBuffer)
		r.instanceBuffer = gpu.InvalidID
	}
	if r.backgroundTexture != gpu.InvalidID {
		r.surface.DestroyTexture(r.backgroundTexture)
		r.backgroundTexture = gpu.InvalidID
	}
}

// Render emits and submits one frame. On ErrAtlasTooSmall the frame
// was abandoned and the atlas has been recreated larger; the caller
// should render again. On gpu.ErrDeviceLost the frame was abandoned
// and the next Render recreates all resources, assuming the caller has
// restored the underlying device.
func (r *Renderer) Render(p *RenderPayload) error {
	if r.deviceLost {
		if err := r.recreate(); err != nil {
			return err
		}
	}

	first := !r.haveGens
	fontChanged := first || p.Generations.Font != r.gens.Font
	settingsChanged := first || p.Generations.Settings != r.gens.Settings ||
		p.TargetSize != r.lastTarget

	if fontChanged {
		// Cached placements were rasterized with the old metrics.
		r.atlas.Reset()
		r.cursorUpToDate = false
	}
	if settingsChanged {
		if err := r.updateConstants(p); err != nil {
			return r.fail(err)
		}
		r.cursorUpToDate = false
		r.backgroundUpToDate = false
		r.lastTarget = p.TargetSize
	}

	r.quads.Reset()
	err := r.emitFrame(p)
	if errors.Is(err, ErrAtlasFull) {
		// Flush what was emitted so far: those quads reference texels
		// that the reset's repacking will overwrite. Then replay the
		// whole frame once against the empty atlas.
		if ferr := r.flush(); ferr != nil {
			return r.fail(ferr)
		}
		r.atlas.Reset()
		err = r.emitFrame(p)
		if errors.Is(err, ErrAtlasFull) {
			return r.growAtlas()
		}
	}
	if err != nil {
		return r.fail(err)
	}

	if err := r.flush(); err != nil {
		return r.fail(err)
	}
	if r.cfg.PostProcess != nil {
		cc := CustomConstants{
			Time:       float32(time.Since(r.start).Seconds()),
			Scale:      1,
			Resolution: [2]float32{float32(p.TargetSize[0]), float32(p.TargetSize[1])},
			Background: ColorComponents(p.BackgroundColor),
		}
		if err := r.cfg.PostProcess.Apply(cc.Encode()); err != nil {
			return r.fail(err)
		}
	}
	if err := r.surface.Present(); err != nil {
		return r.fail(err)
	}

	r.gens = p.Generations
	r.haveGens = true
	return nil
}

// emitFrame runs the passes in compositing order.
func (r *Renderer) emitFrame(p *RenderPayload) error {
	if err := r.drawBackground(p); err != nil {
		return err
	}
	r.drawCursorBackground(p)
	for y := 0; y < p.Rows; y++ {
		if err := r.drawTextRow(p, y); err != nil {
			return err
		}
		r.drawGridlinesRow(p, y)
	}
	r.drawSelection(p)
	r.drawCursorForeground(p)
	return nil
}

// flush uploads the emitted instances and issues one instanced draw
// call over them, then rewinds the quad buffer. Called once per frame,
// plus once more before a mid-frame atlas reset.
func (r *Renderer) flush() error {
	n := r.quads.Len()
	if n == 0 {
		return nil
	}
	need := n * QuadInstanceSize
	if cap(r.encodeScratch) < need {
		r.encodeScratch = make([]byte, need)
	}
	r.encodeScratch = r.encodeScratch[:need]
	r.quads.Encode(r.encodeScratch)

	if n > r.instanceCap {
		if r.instanceBuffer != gpu.InvalidID {
			r.surface.DestroyBuffer(r.instanceBuffer)
			r.instanceBuffer = gpu.InvalidID
		}
		newCap := max(r.instanceCap, quadBufferMinCap)
		for newCap < n {
			newCap *= 2
		}
		buf, err := r.surface.CreateBuffer(newCap*QuadInstanceSize, gpu.BufferUsageVertex|gpu.BufferUsageCopyDst)
		if err != nil {
			return fmt.Errorf("termdraw: create instance buffer: %w", err)
		}
		r.instanceBuffer = buf
		r.instanceCap = newCap
	}
	if err := r.surface.WriteBuffer(r.instanceBuffer, 0, r.encodeScratch); err != nil {
		return fmt.Errorf("termdraw: upload instances: %w", err)
	}
	if err := r.surface.DrawInstanced(r.instanceBuffer, n, r.atlas.Texture(), r.backgroundTexture); err != nil {
		return fmt.Errorf("termdraw: draw: %w", err)
	}
	r.quads.Reset()
	return nil
}

func (r *Renderer) updateConstants(p *RenderPayload) error {
	vs := VSConstants{PositionScale: [2]float32{
		2 / float32(max(1, p.TargetSize[0])),
		-2 / float32(max(1, p.TargetSize[1])),
	}}
	ps := PSConstants{
		BackgroundColor:     ColorComponents(p.BackgroundColor),
		BackgroundCellSize:  [2]float32{float32(p.Metrics.CellSize[0]), float32(p.Metrics.CellSize[1])},
		BackgroundCellCount: [2]float32{float32(p.Cols), float32(p.Rows)},
		GammaRatios:         p.Metrics.GammaRatios,
		EnhancedContrast:    p.Metrics.EnhancedContrast,
		UnderlineWidth:      float32(p.Metrics.UnderlineWidth),
	}
	return r.surface.UpdateConstants(vs.Encode(), ps.Encode())
}

// growAtlas handles a glyph that failed to pack even into a freshly
// reset atlas: the frame is lost, and the atlas is recreated with
// twice the height limit so the next frame can succeed.
func (r *Renderer) growAtlas() error {
	r.cfg.Atlas.MaxHeight *= 2
	Logger().Warn("glyph atlas too small, recreating",
		"width", r.cfg.Atlas.Width, "maxHeight", r.cfg.Atlas.MaxHeight)
	r.atlas.Release()
	atlas, err := NewGlyphAtlas(r.surface, r.rasterizer, r.cfg.Atlas)
	if err != nil {
		return r.fail(err)
	}
	atlas.softFont = r.softFont
	r.atlas = atlas
	return ErrAtlasTooSmall
}

// fail records device loss so the next Render starts from scratch.
func (r *Renderer) fail(err error) error {
	if errors.Is(err, gpu.ErrDeviceLost) {
		r.deviceLost = true
		Logger().Error("device lost, deferring resource recreation")
	}
	return err
}

// recreate rebuilds every GPU resource after device loss. The old IDs
// died with the device and are dropped, not destroyed.
func (r *Renderer) recreate() error {
	Logger().Info("recreating renderer resources after device loss")
	r.instanceBuffer = gpu.InvalidID
	r.instanceCap = 0
	r.backgroundTexture = gpu.InvalidID
	r.backgroundSize = [2]int{}
	r.backgroundUpToDate = false
	r.cursorUpToDate = false
	r.haveGens = false

	atlas, err := NewGlyphAtlas(r.surface, r.rasterizer, r.cfg.Atlas)
	if err != nil {
		return err
	}
	atlas.softFont = r.softFont
	r.atlas = atlas
	r.deviceLost = false
	return nil
}
