// Package scanner implements memory scanning: first-scan and next-scan
// over a typed value, AOB/pattern scanning with wildcard masks, pointer
// chain following, and finding pointers to a target address. Grounded on
// gomem's process_linux/process_scan.go, generalized from cross-process
// region reads to the in-process region cache and accessor.
package scanner

import (
	"encoding/binary"
	"fmt"
	"runtime"
	"sync"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"

	"memengine/introspect"
	"memengine/memaccess"
	"memengine/memcore"
)

var log = logger.NewLogger(coloransi.Color(coloransi.Blue, coloransi.ColorOrange, "scanner"))

// Scanner runs scans against the host process's own address space.
type Scanner struct {
	cache *introspect.Cache
	acc   *memaccess.Accessor
}

// New builds a Scanner around the given region cache and accessor.
func New(cache *introspect.Cache, acc *memaccess.Accessor) *Scanner {
	return &Scanner{cache: cache, acc: acc}
}

func (s *Scanner) candidateRegions(opts memcore.ScanOptions) ([]memcore.Region, error) {
	regions, err := s.cache.Regions()
	if err != nil {
		return nil, err
	}

	var out []memcore.Region
	for _, r := range regions {
		if !r.Protection.Readable {
			continue
		}
		if !opts.Writable.Matches(r.Protection.Writable) {
			continue
		}
		if !opts.Executable.Matches(r.Protection.Executable) {
			continue
		}
		if opts.Module != "" && r.Module != opts.Module {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// FirstScan scans every candidate region for literal's bytes (under tag),
// honoring opts' region filters and alignment.
func (s *Scanner) FirstScan(tag memcore.TypeTag, literal memcore.TypedValue, opts memcore.ScanOptions) (memcore.ScanResult, error) {
	regions, err := s.candidateRegions(opts)
	if err != nil {
		return memcore.ScanResult{}, fmt.Errorf("first scan: %w", err)
	}

	pattern := memcore.NewPattern(literal.Bytes)
	var matches []memcore.ScanMatch

	for _, r := range regions {
		data, err := s.acc.Read(r.Base, r.Length)
		if err != nil {
			log.Debugln("skipping unreadable region at ", r.Base.String())
			continue
		}
		for _, offset := range findMatches(data, pattern) {
			addr := r.Base + memcore.Address(offset)
			if !opts.Aligned(addr) {
				continue
			}
			value := append([]byte(nil), data[offset:offset+len(pattern.Bytes)]...)
			matches = append(matches, memcore.ScanMatch{Address: addr, Value: value})
		}
	}

	log.Infoln("first scan complete, ", len(matches), " matches")
	return memcore.ScanResult{Tag: tag, Matches: matches}, nil
}

// NextScan re-reads every surviving candidate from prev and keeps only
// those whose current value still satisfies scanType.
func (s *Scanner) NextScan(prev memcore.ScanResult, scanType memcore.ScanType, literal memcore.TypedValue) (memcore.ScanResult, error) {
	var matches []memcore.ScanMatch

	for _, m := range prev.Matches {
		current, err := s.acc.Read(m.Address, memcore.Size(len(m.Value)))
		if err != nil {
			continue // unmapped since the prior scan; drop silently, as the teacher's scan loop does for failed reads
		}

		ok, err := memcore.MatchesScan(prev.Tag, scanType, current, m.Value, literal.Bytes)
		if err != nil {
			return memcore.ScanResult{}, fmt.Errorf("next scan: %w", err)
		}
		if ok {
			matches = append(matches, memcore.ScanMatch{Address: m.Address, Value: current})
		}
	}

	log.Infoln("next scan (", scanType, ") complete, ", len(matches), " of ", len(prev.Matches), " survive")
	return memcore.ScanResult{Tag: prev.Tag, Matches: matches}, nil
}

// PatternScanAll finds every occurrence of pattern across all readable
// regions matched by opts, run with up to maxdop concurrent region readers.
func (s *Scanner) PatternScanAll(pattern memcore.Pattern, opts memcore.ScanOptions, maxdop int) ([]memcore.Address, error) {
	regions, err := s.candidateRegions(opts)
	if err != nil {
		return nil, fmt.Errorf("pattern scan: %w", err)
	}

	if maxdop <= 1 {
		var results []memcore.Address
		for _, r := range regions {
			results = append(results, s.scanRegionForPattern(r, pattern)...)
		}
		return results, nil
	}

	if numCPU := runtime.NumCPU(); maxdop > numCPU {
		maxdop = numCPU
	}

	sem := make(chan struct{}, maxdop)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var results []memcore.Address

	for _, r := range regions {
		wg.Add(1)
		sem <- struct{}{}
		go func(region memcore.Region) {
			defer func() {
				<-sem
				wg.Done()
			}()
			found := s.scanRegionForPattern(region, pattern)
			if len(found) == 0 {
				return
			}
			mu.Lock()
			results = append(results, found...)
			mu.Unlock()
		}(r)
	}
	wg.Wait()

	return results, nil
}

func (s *Scanner) scanRegionForPattern(r memcore.Region, pattern memcore.Pattern) []memcore.Address {
	data, err := s.acc.Read(r.Base, r.Length)
	if err != nil {
		return nil
	}
	var out []memcore.Address
	for _, offset := range findMatches(data, pattern) {
		out = append(out, r.Base+memcore.Address(offset))
	}
	return out
}

// PatternScanFirst returns the first match of pattern, or false if none found.
func (s *Scanner) PatternScanFirst(pattern memcore.Pattern, opts memcore.ScanOptions) (memcore.Address, bool, error) {
	regions, err := s.candidateRegions(opts)
	if err != nil {
		return 0, false, fmt.Errorf("pattern scan: %w", err)
	}
	for _, r := range regions {
		found := s.scanRegionForPattern(r, pattern)
		if len(found) > 0 {
			return found[0], true, nil
		}
	}
	return 0, false, nil
}

// findMatches returns the byte offsets within data where pattern matches.
func findMatches(data []byte, pattern memcore.Pattern) []int {
	n := len(pattern.Bytes)
	if n == 0 || len(data) < n {
		return nil
	}
	var offsets []int
	for i := 0; i <= len(data)-n; i++ {
		if pattern.Matches(data[i : i+n]) {
			offsets = append(offsets, i)
		}
	}
	return offsets
}

// FindPointersTo scans all candidate regions for the little-endian encoding
// of target, i.e. every location that looks like a pointer to it.
func (s *Scanner) FindPointersTo(target memcore.Address, pointerWidth memcore.Size, opts memcore.ScanOptions) ([]memcore.Address, error) {
	buf := make([]byte, pointerWidth)
	switch pointerWidth {
	case 4:
		binary.LittleEndian.PutUint32(buf, uint32(target))
	case 8:
		binary.LittleEndian.PutUint64(buf, uint64(target))
	default:
		return nil, fmt.Errorf("find pointers to %s: unsupported pointer width %d", target, pointerWidth)
	}
	opts.Alignment = pointerWidth
	all, err := s.PatternScanAll(memcore.NewPattern(buf), opts, 1)
	if err != nil {
		return nil, err
	}
	var aligned []memcore.Address
	for _, addr := range all {
		if opts.Aligned(addr) {
			aligned = append(aligned, addr)
		}
	}
	return aligned, nil
}

// ReadPointerChain follows base through every offset in turn: at each hop
// it dereferences the pointer at the current address, then advances current
// to the dereferenced value plus that hop's offset. The loop's last
// iteration produces the answer directly, so the result is never itself
// dereferenced. Grounded on MemoryEngine.cpp's ResolvePointerChain, which
// walks the same way (SafeRead at current, then current = value + offset).
func (s *Scanner) ReadPointerChain(base memcore.Address, offsets []int64, pointerWidth memcore.Size) (memcore.Address, error) {
	current := base
	for i, offset := range offsets {
		raw, err := s.acc.Read(current, pointerWidth)
		if err != nil {
			return 0, fmt.Errorf("pointer chain hop %d at %s: %w", i, current, err)
		}
		current = memcore.Address(int64(decodePointer(raw, pointerWidth)) + offset)
	}

	return current, nil
}

func decodePointer(raw []byte, width memcore.Size) uint64 {
	switch width {
	case 4:
		return uint64(binary.LittleEndian.Uint32(raw))
	default:
		return binary.LittleEndian.Uint64(raw)
	}
}
