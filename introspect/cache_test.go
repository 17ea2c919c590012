package introspect

import (
	"errors"
	"testing"

	"memengine/memcore"
)

type countingSource struct {
	calls   int
	regions []memcore.Region
	err     error
}

func (s *countingSource) Regions() ([]memcore.Region, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.regions, nil
}

func TestCacheServesFromCacheUntilInvalidated(t *testing.T) {
	src := &countingSource{regions: []memcore.Region{{Base: 0x1000, Length: 0x1000}}}
	c := NewCache(src)

	if _, err := c.Regions(); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Regions(); err != nil {
		t.Fatal(err)
	}
	if src.calls != 1 {
		t.Fatalf("expected a single underlying fetch before TTL expiry, got %d", src.calls)
	}

	c.Invalidate()
	if _, err := c.Regions(); err != nil {
		t.Fatal(err)
	}
	if src.calls != 2 {
		t.Fatalf("expected Invalidate to force a re-fetch, got %d calls", src.calls)
	}
}

func TestCacheLookupUsesDerivedRegions(t *testing.T) {
	src := &countingSource{regions: []memcore.Region{{Base: 0x2000, Length: 0x1000}}}
	c := NewCache(src)

	r, err := c.Lookup(0x2500)
	if err != nil {
		t.Fatal(err)
	}
	if r == nil || r.Base != 0x2000 {
		t.Fatalf("expected lookup to resolve to the 0x2000 region, got %+v", r)
	}

	if r, err := c.Lookup(0x9000); err != nil || r != nil {
		t.Fatalf("expected no region for an unmapped address, got %+v, err=%v", r, err)
	}
}

func TestCachePropagatesSourceError(t *testing.T) {
	src := &countingSource{err: errors.New("boom")}
	c := NewCache(src)

	if _, err := c.Regions(); err == nil {
		t.Fatal("expected the cache to propagate a source error")
	}
}

func TestCacheModulesDerivedFromRegions(t *testing.T) {
	src := &countingSource{regions: []memcore.Region{
		{Base: 0x1000, Length: 0x1000, Module: "libx.so"},
	}}
	c := NewCache(src)

	modules, err := c.Modules()
	if err != nil {
		t.Fatal(err)
	}
	if len(modules) != 1 || modules[0].Name != "libx.so" {
		t.Fatalf("expected one derived module libx.so, got %+v", modules)
	}
}
