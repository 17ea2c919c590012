package scanner

import (
	"testing"
	"unsafe"

	"memengine/introspect"
	"memengine/memaccess"
	"memengine/memcore"
)

func TestFindMatchesExact(t *testing.T) {
	data := []byte{0x11, 0x22, 0x33, 0x11, 0x22, 0x99}
	pattern := memcore.NewPattern([]byte{0x11, 0x22})

	offsets := findMatches(data, pattern)
	if len(offsets) != 2 || offsets[0] != 0 || offsets[1] != 3 {
		t.Fatalf("expected matches at offsets [0 3], got %v", offsets)
	}
}

func TestFindMatchesWildcard(t *testing.T) {
	data := []byte{0x48, 0x8b, 0xff, 0x05}
	pattern, err := memcore.ParsePattern("48 ?? ff 05")
	if err != nil {
		t.Fatal(err)
	}
	offsets := findMatches(data, pattern)
	if len(offsets) != 1 || offsets[0] != 0 {
		t.Fatalf("expected a single match at offset 0, got %v", offsets)
	}
}

func TestFindMatchesTooShort(t *testing.T) {
	if got := findMatches([]byte{0x11}, memcore.NewPattern([]byte{0x11, 0x22})); got != nil {
		t.Fatalf("expected no matches for data shorter than the pattern, got %v", got)
	}
}

func TestDecodePointer(t *testing.T) {
	if got := decodePointer([]byte{0x01, 0x00, 0x00, 0x00}, 4); got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}
	if got := decodePointer([]byte{0x02, 0, 0, 0, 0, 0, 0, 0}, 8); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}
}

func TestReadPointerChainSingleHopDereferencesAtBase(t *testing.T) {
	cache := introspect.NewCache(introspect.NewSource())
	acc := memaccess.New(cache)
	s := New(cache, acc)

	// base holds a pointer to base+16 in its first 8 bytes; following a
	// single zero offset should dereference at base and land on base+16,
	// not skip the dereference and return base unchanged.
	base := make([]byte, 24)
	baseAddr := memcore.Address(uintptr(unsafe.Pointer(&base[0])))
	putLE64(base[0:8], uint64(baseAddr)+16)

	got, err := s.ReadPointerChain(baseAddr, []int64{0}, 8)
	if err != nil {
		t.Fatalf("pointer chain follow failed: %s", err)
	}
	if uint64(got) != uint64(baseAddr)+16 {
		t.Fatalf("expected chain to resolve to 0x%x, got 0x%x", uint64(baseAddr)+16, uint64(got))
	}
}

func TestReadPointerChainMultiHop(t *testing.T) {
	cache := introspect.NewCache(introspect.NewSource())
	acc := memaccess.New(cache)
	s := New(cache, acc)

	// target: a plain byte we want the final address to point at.
	target := make([]byte, 8)
	targetAddr := uint64(uintptr(unsafe.Pointer(&target[0])))

	// intermediate[0:8] points back at intermediate itself (hop 1: dereference
	// at intermediate, add 8, arrive at intermediate+8). intermediate[8:16]
	// holds (target-0x20) (hop 2: dereference at intermediate+8, add 0x20,
	// arrive at target).
	intermediate := make([]byte, 16)
	intermediateAddr := memcore.Address(uintptr(unsafe.Pointer(&intermediate[0])))
	putLE64(intermediate[0:8], uint64(intermediateAddr))
	putLE64(intermediate[8:16], targetAddr-0x20)

	got, err := s.ReadPointerChain(intermediateAddr, []int64{8, 0x20}, 8)
	if err != nil {
		t.Fatalf("pointer chain follow failed: %s", err)
	}
	if uint64(got) != targetAddr {
		t.Fatalf("expected chain to resolve to 0x%x, got 0x%x", targetAddr, uint64(got))
	}
}

func putLE64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

func TestFirstScanAndNextScan(t *testing.T) {
	cache := introspect.NewCache(introspect.NewSource())
	acc := memaccess.New(cache)
	s := New(cache, acc)

	buf := make([]byte, 4)
	addr := uint64(uintptr(unsafe.Pointer(&buf[0])))
	putLE32(buf, 777)

	literal, err := memcore.ParseValue("777", memcore.TagInt32)
	if err != nil {
		t.Fatal(err)
	}

	opts := memcore.ScanOptions{}
	result, err := s.FirstScan(memcore.TagInt32, literal, opts)
	if err != nil {
		t.Fatalf("first scan failed: %s", err)
	}

	found := false
	for _, m := range result.Matches {
		if uint64(m.Address) == addr {
			found = true
		}
	}
	if !found {
		t.Fatal("expected first scan to find the literal 777 at the buffer's address")
	}

	putLE32(buf, 900)
	next, err := s.NextScan(result, memcore.ScanIncreased, memcore.TypedValue{})
	if err != nil {
		t.Fatalf("next scan failed: %s", err)
	}

	stillThere := false
	for _, m := range next.Matches {
		if uint64(m.Address) == addr {
			stillThere = true
		}
	}
	if !stillThere {
		t.Fatal("expected the address to survive an 'increased' next-scan after raising its value")
	}
}

func putLE32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}
