package collections

import "testing"

func TestBitset_SetAndTest(t *testing.T) {
	b := NewBitset(8)
	if b.Test(3) {
		t.Fatal("bit 3 should start unset")
	}
	b.Set(3)
	if !b.Test(3) {
		t.Fatal("bit 3 should be set")
	}
	if b.Test(4) {
		t.Fatal("bit 4 should remain unset")
	}
}

func TestBitset_GrowsBeyondInitialSize(t *testing.T) {
	b := NewBitset(8)
	b.Set(500)
	if !b.Test(500) {
		t.Fatal("bit 500 should be set after growing")
	}
	if b.Test(499) {
		t.Fatal("bit 499 should remain unset")
	}
}
