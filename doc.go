// Package termdraw implements the text-compositing core of a
// GPU-accelerated terminal renderer.
//
// A terminal frame is described by a RenderPayload: a grid of styled
// character cells plus cursor and selection state. The Renderer turns
// that grid into a minimal set of GPU draw work by maintaining a
// persistent glyph atlas texture and an instanced-quad command stream:
//
//   - GlyphAtlas caches rasterized glyphs in a single large texture,
//     placed by a skyline rectangle packer. Entries survive across
//     frames; a font change resets the atlas wholesale.
//   - QuadBuffer accumulates fixed-size QuadInstance records, one per
//     drawn quad, and is flushed to the GPU once per frame (or
//     mid-frame when it overflows or the atlas is reset).
//   - Pass emitters (background, gridlines, text, cursor, selection)
//     append quads tagged with a ShadingType that selects the
//     compositing formula applied by the fragment shader.
//
// The GPU itself is reached through the gpu.Surface interface; the
// backend/wgpu package provides an implementation over gogpu/wgpu.
// Glyph rasterization is likewise a collaborator: the Rasterizer
// interface is implemented by GoTextRasterizer on top of
// go-text/typesetting, but any source of glyph bitmaps will do.
//
// termdraw produces no log output by default. Call SetLogger to enable
// structured logging of cold paths (atlas resets, device recreation).
package termdraw
