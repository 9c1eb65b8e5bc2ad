package termdraw

import (
	"fmt"

	"github.com/gogpu/termdraw/gpu"
)

// fakeSurface records every gpu.Surface call so tests can assert on
// uploads and draws without a device.
type fakeSurface struct {
	nextID uint64

	buffers    map[gpu.BufferID]int
	bufferData map[gpu.BufferID][]byte
	textures   map[gpu.TextureID][2]int

	textureWrites []fakeTextureWrite
	draws         []fakeDraw
	presents      int
	constantSets  int

	failCreateTexture error
	failWriteTexture  error
	failWriteBuffer   error
	failDraw          error
	failPresent       error
}

type fakeTextureWrite struct {
	id     gpu.TextureID
	region gpu.Region
	bytes  int
}

type fakeDraw struct {
	buffer            gpu.BufferID
	count             int
	atlas, background gpu.TextureID
	// instances snapshots the buffer contents at draw time.
	instances []byte
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{
		buffers:    make(map[gpu.BufferID]int),
		bufferData: make(map[gpu.BufferID][]byte),
		textures:   make(map[gpu.TextureID][2]int),
	}
}

func (s *fakeSurface) CreateBuffer(size int, usage gpu.BufferUsage) (gpu.BufferID, error) {
	s.nextID++
	id := gpu.BufferID(s.nextID)
	s.buffers[id] = size
	s.bufferData[id] = make([]byte, size)
	return id, nil
}

func (s *fakeSurface) DestroyBuffer(id gpu.BufferID) {
	delete(s.buffers, id)
	delete(s.bufferData, id)
}

func (s *fakeSurface) WriteBuffer(id gpu.BufferID, offset int, data []byte) error {
	if s.failWriteBuffer != nil {
		return s.failWriteBuffer
	}
	buf, ok := s.bufferData[id]
	if !ok {
		return fmt.Errorf("write to unknown buffer %d", id)
	}
	if offset+len(data) > len(buf) {
		return fmt.Errorf("write past end of buffer %d", id)
	}
	copy(buf[offset:], data)
	return nil
}

func (s *fakeSurface) CreateTexture(width, height int, format gpu.TextureFormat) (gpu.TextureID, error) {
	if s.failCreateTexture != nil {
		return gpu.InvalidID, s.failCreateTexture
	}
	s.nextID++
	id := gpu.TextureID(s.nextID)
	s.textures[id] = [2]int{width, height}
	return id, nil
}

func (s *fakeSurface) DestroyTexture(id gpu.TextureID) {
	delete(s.textures, id)
}

func (s *fakeSurface) WriteTexture(id gpu.TextureID, region gpu.Region, data []byte) error {
	if s.failWriteTexture != nil {
		return s.failWriteTexture
	}
	size, ok := s.textures[id]
	if !ok {
		return fmt.Errorf("write to unknown texture %d", id)
	}
	if region.X < 0 || region.Y < 0 ||
		region.X+region.Width > size[0] || region.Y+region.Height > size[1] {
		return fmt.Errorf("region %+v outside %dx%d texture", region, size[0], size[1])
	}
	if len(data) != region.Width*region.Height*4 {
		return fmt.Errorf("region %+v got %d bytes", region, len(data))
	}
	s.textureWrites = append(s.textureWrites, fakeTextureWrite{id: id, region: region, bytes: len(data)})
	return nil
}

func (s *fakeSurface) UpdateConstants(vs, ps []byte) error {
	if len(vs) != VSConstantsSize || len(ps) != PSConstantsSize {
		return fmt.Errorf("constant block sizes %d/%d", len(vs), len(ps))
	}
	s.constantSets++
	return nil
}

func (s *fakeSurface) DrawInstanced(instances gpu.BufferID, instanceCount int, atlas, background gpu.TextureID) error {
	if s.failDraw != nil {
		return s.failDraw
	}
	data := s.bufferData[instances]
	snap := make([]byte, instanceCount*QuadInstanceSize)
	copy(snap, data)
	s.draws = append(s.draws, fakeDraw{
		buffer: instances, count: instanceCount,
		atlas: atlas, background: background,
		instances: snap,
	})
	return nil
}

func (s *fakeSurface) Present() error {
	if s.failPresent != nil {
		return s.failPresent
	}
	s.presents++
	return nil
}

// writesTo returns the recorded upload regions for one texture.
func (s *fakeSurface) writesTo(id gpu.TextureID) []fakeTextureWrite {
	var out []fakeTextureWrite
	for _, w := range s.textureWrites {
		if w.id == id {
			out = append(out, w)
		}
	}
	return out
}

// decodeInstances parses a recorded instance stream back into structs.
func decodeInstances(data []byte) []QuadInstance {
	n := len(data) / QuadInstanceSize
	out := make([]QuadInstance, n)
	for i := 0; i < n; i++ {
		b := data[i*QuadInstanceSize:]
		out[i] = QuadInstance{
			ShadingType: ShadingType(uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24),
			Position: [2]int16{
				int16(uint16(b[4]) | uint16(b[5])<<8),
				int16(uint16(b[6]) | uint16(b[7])<<8),
			},
			Size: [2]uint16{
				uint16(b[8]) | uint16(b[9])<<8,
				uint16(b[10]) | uint16(b[11])<<8,
			},
			Texcoord: [2]uint16{
				uint16(b[12]) | uint16(b[13])<<8,
				uint16(b[14]) | uint16(b[15])<<8,
			},
			Color: uint32(b[16]) | uint32(b[17])<<8 | uint32(b[18])<<16 | uint32(b[19])<<24,
		}
	}
	return out
}

// fakeFace is a comparable FontFace handle for tests.
type fakeFace struct{ name string }

// fakeRasterizer produces solid coverage bitmaps of a fixed size.
type fakeRasterizer struct {
	// size and offset describe the bitmap of every glyph, before any
	// per-glyph override. Double-height renditions double the height.
	size   [2]int
	offset [2]int
	format PixelFormat

	missing map[GlyphIndex]bool
	box     map[GlyphIndex]bool

	calls int
}

func (f *fakeRasterizer) GlyphIndex(face FontFace, r rune) (GlyphIndex, bool) {
	return GlyphIndex(r), true
}

func (f *fakeRasterizer) IsBoxDrawing(face FontFace, glyph GlyphIndex) bool {
	return f.box[glyph]
}

func (f *fakeRasterizer) Rasterize(face FontFace, glyph GlyphIndex, rendition LineRendition, metrics *FontMetrics) (*GlyphBitmap, error) {
	f.calls++
	if f.missing[glyph] {
		return nil, ErrGlyphNotFound
	}
	w, h := f.size[0], f.size[1]
	if rendition.IsDoubleHeight() {
		h *= 2
	}
	format := f.format
	if format == 0 {
		format = FormatGrayscale
	}
	pixels := make([]byte, w*h*4)
	for i := range pixels {
		pixels[i] = 0xff
	}
	return &GlyphBitmap{
		Pixels: pixels,
		Width:  w,
		Height: h,
		Offset: f.offset,
		Format: format,
	}, nil
}
