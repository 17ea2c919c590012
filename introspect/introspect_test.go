package introspect

import (
	"testing"

	"memengine/memcore"
)

func sampleRegions() []memcore.Region {
	regions := []memcore.Region{
		{Base: 0x3000, Length: 0x1000, Module: "libb.so", Protection: memcore.Protection{Readable: true, Executable: true}},
		{Base: 0x1000, Length: 0x1000, Module: "liba.so", Protection: memcore.Protection{Readable: true, Writable: true}},
		{Base: 0x2000, Length: 0x1000, Module: "liba.so", Protection: memcore.Protection{Readable: true}},
	}
	sortRegions(regions)
	return regions
}

func TestSortRegionsAscending(t *testing.T) {
	regions := sampleRegions()
	for i := 1; i < len(regions); i++ {
		if regions[i-1].Base > regions[i].Base {
			t.Fatalf("regions not sorted ascending at index %d", i)
		}
	}
}

func TestLookup(t *testing.T) {
	regions := sampleRegions()

	r := Lookup(0x1500, regions)
	if r == nil || r.Module != "liba.so" {
		t.Fatalf("expected to find liba.so region at 0x1500, got %+v", r)
	}

	r = Lookup(0x2fff, regions)
	if r == nil || r.Base != 0x2000 {
		t.Fatalf("expected last byte of a region to resolve to that region, got %+v", r)
	}

	if got := Lookup(0x5000, regions); got != nil {
		t.Fatalf("expected nil for an unmapped address, got %+v", got)
	}
}

func TestDeriveModules(t *testing.T) {
	regions := sampleRegions()
	modules := DeriveModules(regions)

	if len(modules) != 2 {
		t.Fatalf("expected 2 distinct modules, got %d", len(modules))
	}

	var liba *memcore.Module
	for i := range modules {
		if modules[i].Name == "liba.so" {
			liba = &modules[i]
		}
	}
	if liba == nil {
		t.Fatal("expected liba.so in derived modules")
	}
	if liba.Base != 0x1000 {
		t.Fatalf("expected liba.so span to start at its lowest region base 0x1000, got %s", liba.Base)
	}
	if liba.Size != 0x2000 {
		t.Fatalf("expected liba.so span to cover both its regions (0x2000 bytes), got %s", liba.Size)
	}
}

func TestExecutableAndWritableFilters(t *testing.T) {
	regions := sampleRegions()

	exec := Executable(regions)
	if len(exec) != 1 || exec[0].Base != 0x3000 {
		t.Fatalf("expected exactly the 0x3000 region to be executable, got %+v", exec)
	}

	writable := Writable(regions)
	if len(writable) != 1 || writable[0].Base != 0x1000 {
		t.Fatalf("expected exactly the 0x1000 region to be writable, got %+v", writable)
	}
}
