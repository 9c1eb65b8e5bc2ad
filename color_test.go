package termdraw

import "testing"

// TestColorFromRGBA verifies the red channel lands in the low byte.
func TestColorFromRGBA(t *testing.T) {
	if got := ColorFromRGBA(0x11, 0x22, 0x33, 0x44); got != 0x44332211 {
		t.Errorf("ColorFromRGBA(0x11, 0x22, 0x33, 0x44) = %#x, want 0x44332211", got)
	}
}

// TestColorComponents verifies unpacking into normalized floats.
func TestColorComponents(t *testing.T) {
	got := ColorComponents(0xff0080ff)
	want := [4]float32{1, 128.0 / 255.0, 0, 1}
	if got != want {
		t.Errorf("ColorComponents(0xff0080ff) = %v, want %v", got, want)
	}
}

// TestPremultiplyColor tests the packed premultiply against exact
// per-channel results.
func TestPremultiplyColor(t *testing.T) {
	tests := []struct {
		name string
		rgba uint32
		want uint32
	}{
		{"opaque is identity", 0xff336699, 0xff336699},
		{"transparent clears channels", 0x00ffffff, 0x00000000},
		{"half alpha red green", 0x8000ffff, 0x80008080},
		{"half alpha blue", 0x80ff0000, 0x80800000},
		{"zero color stays zero", 0x7f000000, 0x7f000000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PremultiplyColor(tt.rgba); got != tt.want {
				t.Errorf("PremultiplyColor(%#x) = %#x, want %#x", tt.rgba, got, tt.want)
			}
		})
	}
}
