package termdraw

// quadBufferMinCap is the smallest instance capacity ever allocated.
const quadBufferMinCap = 32

// QuadBuffer is the append-only per-frame instance list. Capacity is
// retained across frames; Reset only rewinds the logical count.
type QuadBuffer struct {
	instances []QuadInstance
}

// NewQuadBuffer returns a buffer with the minimum starting capacity.
func NewQuadBuffer() *QuadBuffer {
	return &QuadBuffer{instances: make([]QuadInstance, 0, quadBufferMinCap)}
}

// Len returns the number of appended instances.
func (b *QuadBuffer) Len() int { return len(b.instances) }

// Reset rewinds the buffer to zero instances, keeping the storage.
func (b *QuadBuffer) Reset() { b.instances = b.instances[:0] }

// Append reserves the next instance slot and returns it for the caller
// to fill. The pointer is valid until the next Append; growth doubles
// capacity and preserves every written instance in order.
func (b *QuadBuffer) Append() *QuadInstance {
	if len(b.instances) == cap(b.instances) {
		grown := make([]QuadInstance, len(b.instances), max(quadBufferMinCap, 2*cap(b.instances)))
		copy(grown, b.instances)
		b.instances = grown
	}
	b.instances = b.instances[:len(b.instances)+1]
	q := &b.instances[len(b.instances)-1]
	*q = QuadInstance{}
	return q
}

// Last returns the most recently appended instance for in-place
// amendment, such as widening a text run by one cell. It returns nil
// on an empty buffer.
func (b *QuadBuffer) Last() *QuadInstance {
	if len(b.instances) == 0 {
		return nil
	}
	return &b.instances[len(b.instances)-1]
}

// Instances returns the appended instances in emission order. The
// slice aliases the buffer; it is invalidated by Append and Reset.
func (b *QuadBuffer) Instances() []QuadInstance {
	return b.instances
}

// Encode serializes all instances into dst in emission order using the
// wire layout consumed by the vertex stage. dst must hold at least
// Len()*QuadInstanceSize bytes; Encode returns the bytes written.
func (b *QuadBuffer) Encode(dst []byte) int {
	off := 0
	for i := range b.instances {
		b.instances[i].encode(dst[off : off+QuadInstanceSize])
		off += QuadInstanceSize
	}
	return off
}
