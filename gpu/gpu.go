// Package gpu defines the surface abstraction the termdraw compositor
// renders through.
//
// The interface is deliberately narrow: the compositor needs buffers
// it can fill with instance data, textures it can patch region-wise
// (the glyph atlas and the background color bitmap), two small
// constant blocks, and a single instanced draw per flush. Swapchain
// and adapter lifecycle stay entirely on the implementation's side.
//
// Resource lifecycle:
//   - Resources are created via Create* methods
//   - Resources must be explicitly destroyed via Destroy* methods
//   - IDs become invalid after destruction and must not be reused
package gpu

import "errors"

// BufferID is an opaque handle to a GPU buffer.
type BufferID uint64

// TextureID is an opaque handle to a GPU texture.
type TextureID uint64

// InvalidID is the zero value, representing an invalid/null resource.
const InvalidID = 0

// ErrDeviceLost is returned (possibly wrapped) by any Surface method
// when the underlying device was removed or reset. All resources
// created on the surface are invalid once this is observed; the caller
// must recreate everything from scratch.
var ErrDeviceLost = errors.New("gpu: device lost")

// BufferUsage is a bitmask specifying how a buffer will be used.
type BufferUsage uint32

// Buffer usage flags.
const (
	// BufferUsageCopyDst indicates the buffer can be written from the CPU.
	BufferUsageCopyDst BufferUsage = 1 << 0

	// BufferUsageVertex indicates the buffer feeds the vertex stage.
	// Instance buffers use this.
	BufferUsageVertex BufferUsage = 1 << 1

	// BufferUsageUniform indicates the buffer holds a constant block.
	BufferUsageUniform BufferUsage = 1 << 2
)

// TextureFormat specifies the format of texture data.
type TextureFormat uint32

// Texture formats.
const (
	// TextureFormatRGBA8 is 8-bit RGBA, normalized unsigned integer.
	// The glyph atlas and the background bitmap both use it.
	TextureFormatRGBA8 TextureFormat = iota + 1
)

// BytesPerPixel returns the pixel stride of the format.
func (f TextureFormat) BytesPerPixel() int {
	return 4
}

// Region is a rectangular texture area for partial uploads.
type Region struct {
	X, Y          int
	Width, Height int
}

// Surface is a render target plus the resources needed to draw one
// terminal frame onto it. Implementations are not required to be
// safe for concurrent use: the compositor drives a surface from a
// single goroutine, in program order.
type Surface interface {
	// CreateBuffer creates a GPU buffer of size bytes.
	CreateBuffer(size int, usage BufferUsage) (BufferID, error)

	// DestroyBuffer releases a GPU buffer.
	DestroyBuffer(id BufferID)

	// WriteBuffer writes data into a buffer at the given byte offset.
	WriteBuffer(id BufferID, offset int, data []byte) error

	// CreateTexture creates a width×height GPU texture.
	CreateTexture(width, height int, format TextureFormat) (TextureID, error)

	// DestroyTexture releases a GPU texture.
	DestroyTexture(id TextureID)

	// WriteTexture writes pixel data into a sub-region of a texture.
	// len(data) must be region.Width*region.Height*BytesPerPixel.
	WriteTexture(id TextureID, region Region, data []byte) error

	// UpdateConstants uploads the vertex and fragment constant blocks.
	// Both slices follow the 16-byte alignment contract; the surface
	// uploads them verbatim.
	UpdateConstants(vs, ps []byte) error

	// DrawInstanced issues one instanced draw covering instanceCount
	// instances from the instance buffer, sampling the glyph atlas and
	// the background bitmap. Instances are QuadInstanceSize bytes each.
	DrawInstanced(instances BufferID, instanceCount int, atlas, background TextureID) error

	// Present finishes the frame and presents the color target.
	Present() error
}

// PostProcessor is an optional collaborator applying a custom shader
// pass over the finished frame. Surfaces that support it return one
// from their own API; the compositor only supplies the constants.
type PostProcessor interface {
	// Apply runs the post-process pass. constants is an encoded
	// CustomConstants block.
	Apply(constants []byte) error
}
