package memcore

import "testing"

func TestScanOptionsAligned(t *testing.T) {
	unaligned := ScanOptions{}
	if !unaligned.Aligned(0x1001) {
		t.Fatal("zero alignment should accept any address")
	}

	aligned := ScanOptions{Alignment: 4}
	if !aligned.Aligned(0x1000) {
		t.Fatal("0x1000 should satisfy 4-byte alignment")
	}
	if aligned.Aligned(0x1001) {
		t.Fatal("0x1001 should not satisfy 4-byte alignment")
	}
}
