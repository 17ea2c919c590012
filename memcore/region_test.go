package memcore

import "testing"

func TestRegionContains(t *testing.T) {
	r := Region{Base: 0x1000, Length: 0x100}

	if !r.Contains(0x1000, 0x100) {
		t.Fatal("expected region to contain its own exact span")
	}
	if !r.Contains(0x1050, 0x10) {
		t.Fatal("expected region to contain a sub-range")
	}
	if r.Contains(0x0ff0, 0x10) {
		t.Fatal("did not expect region to contain a range starting before its base")
	}
	if r.Contains(0x1090, 0x80) {
		t.Fatal("did not expect region to contain a range extending past its end")
	}
}

func TestTriStateMatches(t *testing.T) {
	if !Any.Matches(true) || !Any.Matches(false) {
		t.Fatal("Any should match both true and false")
	}
	if !Yes.Matches(true) || Yes.Matches(false) {
		t.Fatal("Yes should match only true")
	}
	if No.Matches(true) || !No.Matches(false) {
		t.Fatal("No should match only false")
	}
}

func TestModuleContains(t *testing.T) {
	m := Module{Name: "libfoo.so", Base: 0x7f0000000000, Size: 0x2000}
	if !m.Contains(0x7f0000000000) {
		t.Fatal("expected module to contain its own base")
	}
	if !m.Contains(0x7f0000001fff) {
		t.Fatal("expected module to contain its last byte")
	}
	if m.Contains(0x7f0000002000) {
		t.Fatal("did not expect module to contain its end address")
	}
}

func TestFormatAddress(t *testing.T) {
	modules := []Module{
		{Name: "libfoo.so", Base: 0x1000, Size: 0x1000},
		{Name: "libbar.so", Base: 0x2000, Size: 0x1000},
	}

	if got := FormatAddress(0x1010, modules); got != "libfoo.so+0x10" {
		t.Fatalf("unexpected label: %q", got)
	}
	if got := FormatAddress(0x5000, modules); got != "" {
		t.Fatalf("expected empty label for unmapped address - got %q", got)
	}
}
