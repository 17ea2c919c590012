package introspect

import (
	"sync"
	"time"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"

	"memengine/memcore"
)

// TTL is how long a cached region snapshot is trusted before a refresh,
// matching spec §4.2's region-cache requirement.
const TTL = 5 * time.Second

// Cache serves region and module lookups from a periodically refreshed
// snapshot, avoiding a full re-walk of the address space on every call.
type Cache struct {
	mu       sync.Mutex
	source   Source
	log      *logger.Logger
	regions  []memcore.Region
	modules  []memcore.Module
	fetchedAt time.Time
}

// NewCache builds a region cache around source (typically NewSource()).
func NewCache(source Source) *Cache {
	return &Cache{
		source: source,
		log:    logger.NewLogger(coloransi.Color(coloransi.Cyan, coloransi.ColorOrange, "region-cache")),
	}
}

// Regions returns the current region snapshot, refreshing it first if
// the cached one has aged past TTL.
func (c *Cache) Regions() ([]memcore.Region, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if time.Since(c.fetchedAt) > TTL || c.regions == nil {
		if err := c.refreshLocked(); err != nil {
			return nil, err
		}
	}

	out := make([]memcore.Region, len(c.regions))
	copy(out, c.regions)
	return out, nil
}

// Modules returns the modules derived from the current region snapshot.
func (c *Cache) Modules() ([]memcore.Module, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if time.Since(c.fetchedAt) > TTL || c.regions == nil {
		if err := c.refreshLocked(); err != nil {
			return nil, err
		}
	}

	out := make([]memcore.Module, len(c.modules))
	copy(out, c.modules)
	return out, nil
}

// Invalidate forces the next Regions/Modules call to re-walk the address
// space, regardless of TTL. Callers that just mapped or unmapped memory
// (memory.allocate and memory.free, for instance) should call this.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetchedAt = time.Time{}
}

func (c *Cache) refreshLocked() error {
	regions, err := c.source.Regions()
	if err != nil {
		c.log.Warn("region refresh failed: ", err)
		return err
	}
	c.regions = regions
	c.modules = DeriveModules(regions)
	c.fetchedAt = time.Now()
	c.log.Debugln("region cache refreshed, ", len(regions), " regions, ", len(c.modules), " modules")
	return nil
}

// Lookup finds the region containing addr in the current (possibly stale
// by up to TTL) snapshot, refreshing first if necessary.
func (c *Cache) Lookup(addr memcore.Address) (*memcore.Region, error) {
	regions, err := c.Regions()
	if err != nil {
		return nil, err
	}
	return Lookup(addr, regions), nil
}
