package rectpack

import "testing"

type placed struct {
	pos  Point
	w, h int
}

func overlaps(a, b placed) bool {
	return a.pos.X < b.pos.X+b.w && b.pos.X < a.pos.X+a.w &&
		a.pos.Y < b.pos.Y+b.h && b.pos.Y < a.pos.Y+a.h
}

// TestTryPackInBounds packs a mix of sizes and verifies every
// placement stays inside the packer extent.
func TestTryPackInBounds(t *testing.T) {
	p := New(128, 64)
	sizes := [][2]int{{10, 12}, {30, 8}, {7, 7}, {64, 20}, {1, 1}, {128, 10}}

	for _, s := range sizes {
		pos, ok := p.TryPack(s[0], s[1])
		if !ok {
			t.Fatalf("TryPack(%d, %d) failed unexpectedly", s[0], s[1])
		}
		if pos.X < 0 || pos.Y < 0 || pos.X+s[0] > 128 || pos.Y+s[1] > 64 {
			t.Errorf("TryPack(%d, %d) = %+v, out of 128x64 bounds", s[0], s[1], pos)
		}
	}
}

// TestTryPackNoOverlap verifies placements are pairwise disjoint.
func TestTryPackNoOverlap(t *testing.T) {
	p := New(100, 100)
	var rects []placed
	for i := 0; i < 40; i++ {
		w := 3 + i%13
		h := 2 + i%7
		pos, ok := p.TryPack(w, h)
		if !ok {
			break
		}
		rects = append(rects, placed{pos: pos, w: w, h: h})
	}
	if len(rects) < 10 {
		t.Fatalf("packed only %d rects, expected more", len(rects))
	}
	for i := range rects {
		for j := i + 1; j < len(rects); j++ {
			if overlaps(rects[i], rects[j]) {
				t.Errorf("rect %d %+v overlaps rect %d %+v", i, rects[i], j, rects[j])
			}
		}
	}
}

// TestTryPackFailure verifies failure on oversized requests and that
// failure leaves the packer usable.
func TestTryPackFailure(t *testing.T) {
	p := New(32, 32)
	if _, ok := p.TryPack(33, 1); ok {
		t.Error("TryPack(33, 1) succeeded, want failure (wider than atlas)")
	}
	if _, ok := p.TryPack(1, 33); ok {
		t.Error("TryPack(1, 33) succeeded, want failure (taller than atlas)")
	}
	if _, ok := p.TryPack(32, 32); !ok {
		t.Error("TryPack(32, 32) failed after rejected requests")
	}
	if _, ok := p.TryPack(1, 1); ok {
		t.Error("TryPack(1, 1) succeeded on a full atlas")
	}
}

// TestGrowPreservesPlacements verifies that height growth keeps
// earlier placements valid and opens new space below.
func TestGrowPreservesPlacements(t *testing.T) {
	p := New(64, 16)
	first, ok := p.TryPack(64, 16)
	if !ok {
		t.Fatal("TryPack(64, 16) failed on empty packer")
	}
	if _, ok := p.TryPack(1, 1); ok {
		t.Fatal("TryPack(1, 1) succeeded on full packer")
	}

	p.Grow(32)
	if got := p.Height(); got != 32 {
		t.Fatalf("Height() after Grow(32) = %d, want 32", got)
	}
	second, ok := p.TryPack(64, 16)
	if !ok {
		t.Fatal("TryPack(64, 16) failed after Grow")
	}
	if overlaps(placed{first, 64, 16}, placed{second, 64, 16}) {
		t.Errorf("post-grow placement %+v overlaps pre-grow placement %+v", second, first)
	}
}

// TestGrowNeverShrinks verifies Grow ignores smaller heights.
func TestGrowNeverShrinks(t *testing.T) {
	p := New(64, 32)
	p.Grow(16)
	if got := p.Height(); got != 32 {
		t.Errorf("Height() after Grow(16) = %d, want 32", got)
	}
}

// TestReset verifies the full area is reusable after Reset.
func TestReset(t *testing.T) {
	p := New(48, 48)
	if _, ok := p.TryPack(48, 48); !ok {
		t.Fatal("TryPack(48, 48) failed on empty packer")
	}
	p.Reset()
	pos, ok := p.TryPack(48, 48)
	if !ok {
		t.Fatal("TryPack(48, 48) failed after Reset")
	}
	if pos != (Point{}) {
		t.Errorf("TryPack after Reset = %+v, want origin", pos)
	}
}
