package termdraw

// Colors throughout the instance stream are 32-bit RGBA with the red
// channel in the least significant byte, matching the layout the cell
// shader decodes on the GPU.

// ColorFromRGBA packs four 8-bit channels into a u32 color.
func ColorFromRGBA(r, g, b, a uint8) uint32 {
	return uint32(r) | uint32(g)<<8 | uint32(b)<<16 | uint32(a)<<24
}

// ColorComponents unpacks a u32 color into normalized float channels.
// Used when filling constant blocks (the GPU expects f32x4 there).
func ColorComponents(rgba uint32) [4]float32 {
	return [4]float32{
		float32(rgba&0xff) / 255.0,
		float32((rgba>>8)&0xff) / 255.0,
		float32((rgba>>16)&0xff) / 255.0,
		float32((rgba>>24)&0xff) / 255.0,
	}
}

// PremultiplyColor multiplies the color channels of rgba by its alpha
// channel. The blend state expects premultiplied colors; doing it once
// on the CPU keeps the fragment shader branch-free.
func PremultiplyColor(rgba uint32) uint32 {
	rb := rgba & 0x00ff00ff
	g := rgba & 0x0000ff00
	a := rgba & 0xff000000

	m := rgba >> 24
	rb = (rb * m / 0xff) & 0x00ff00ff
	g = (g * m / 0xff) & 0x0000ff00

	return rb | g | a
}
