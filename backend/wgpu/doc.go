// Package wgpu implements the termdraw gpu.Surface on top of the
// gogpu WebGPU hardware abstraction layer.
//
// The package owns the cell compositing pipeline: one instanced render
// pipeline whose fragment stage dispatches on the per-instance shading
// type, the glyph atlas and background bitmap bindings, and the two
// per-frame constant blocks. Swapchain and adapter lifecycle stay with
// the host application; it hands a target texture view to the surface
// each time the window (re)configures.
package wgpu
