package command

import (
	"fmt"

	"memengine/disasm"
	"memengine/memcore"
)

// methodTable is the fixed command set from spec §4.8. It is a package-level
// literal, not a runtime-registerable map: the only way to extend it is to
// add a case here and recompile.
var methodTable = map[string]Handler{
	"memory.read":          handleMemoryRead,
	"memory.write":         handleMemoryWrite,
	"memory.read_value":    handleMemoryReadValue,
	"memory.scan":          handleMemoryScan,
	"memory.regions":       handleMemoryRegions,
	"memory.validate":      handleMemoryValidate,
	"memory.allocate":      handleMemoryAllocate,
	"memory.free":          handleMemoryFree,
	"memory.patch":         handleMemoryPatch,
	"memory.nop":           handleMemoryNop,
	"memory.disassemble":   handleMemoryDisassemble,
	"pattern.scan":         handlePatternScan,
	"pattern.scanall":      handlePatternScanAll,
	"pointer.chain":        handlePointerChain,
	"pointer.find":         handlePointerFind,
	"module.list":          handleModuleList,
	"module.info":          handleModuleInfo,
	"module.from_address":  handleModuleFromAddress,
	"process.info":         handleProcessInfo,
	"hook.install":         handleHookInstall,
	"hook.remove":          handleHookRemove,
	"hook.list":            handleHookList,
	"hook.toggle":          handleHookToggle,
}

func handleMemoryRead(e *Engine, p Params) (Result, error) {
	addr, err := parseAddress(p, "address")
	if err != nil {
		return nil, err
	}
	size, err := parseSize(p, "size")
	if err != nil {
		return nil, err
	}
	data, err := e.acc.Read(addr, size)
	if err != nil {
		return nil, err
	}
	return Result{"bytes": data}, nil
}

func handleMemoryWrite(e *Engine, p Params) (Result, error) {
	addr, err := parseAddress(p, "address")
	if err != nil {
		return nil, err
	}
	literal, err := requireParam(p, "value")
	if err != nil {
		return nil, err
	}
	tag, err := parseTag(p, "type")
	if err != nil {
		return nil, err
	}
	v, err := memcore.ParseValue(literal, tag)
	if err != nil {
		return nil, err
	}
	if err := e.acc.WriteTyped(addr, v); err != nil {
		return nil, err
	}
	return Result{"written": len(v.Bytes)}, nil
}

func handleMemoryReadValue(e *Engine, p Params) (Result, error) {
	addr, err := parseAddress(p, "address")
	if err != nil {
		return nil, err
	}
	tag, err := parseTag(p, "type")
	if err != nil {
		return nil, err
	}
	hint, err := parseSizeDefault(p, "size", 0)
	if err != nil {
		return nil, err
	}
	v, err := e.acc.ReadTyped(addr, tag, hint)
	if err != nil {
		return nil, err
	}
	return Result{"value": v.Format()}, nil
}

func handleMemoryScan(e *Engine, p Params) (Result, error) {
	session := p["session"]
	tag, err := parseTag(p, "type")
	if err != nil {
		return nil, err
	}
	literalStr, err := requireParam(p, "value")
	if err != nil {
		return nil, err
	}
	literal, err := memcore.ParseValue(literalStr, tag)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	prev, isNext := e.scans[session]
	e.mu.Unlock()

	var result memcore.ScanResult
	if parseBool(p, "next", false) && isNext {
		scanType, err := parseScanType(p, "scan_type")
		if err != nil {
			return nil, err
		}
		result, err = e.scan.NextScan(prev, scanType, literal)
		if err != nil {
			return nil, err
		}
	} else {
		result, err = e.scan.FirstScan(tag, literal, parseScanOptions(p))
		if err != nil {
			return nil, err
		}
	}

	e.mu.Lock()
	e.scans[session] = result
	e.mu.Unlock()

	addrs := make([]string, len(result.Matches))
	for i, m := range result.Matches {
		addrs[i] = m.Address.String()
	}
	return Result{"matches": addrs, "count": len(addrs)}, nil
}

func handleMemoryRegions(e *Engine, p Params) (Result, error) {
	regions, err := e.cache.Regions()
	if err != nil {
		return nil, err
	}
	opts := parseScanOptions(p)
	out := make([]Result, 0, len(regions))
	for _, r := range regions {
		if !opts.Writable.Matches(r.Protection.Writable) {
			continue
		}
		if !opts.Executable.Matches(r.Protection.Executable) {
			continue
		}
		if opts.Module != "" && r.Module != opts.Module {
			continue
		}
		out = append(out, Result{
			"base":       r.Base.String(),
			"length":     uint64(r.Length),
			"readable":   r.Protection.Readable,
			"writable":   r.Protection.Writable,
			"executable": r.Protection.Executable,
			"module":     r.Module,
		})
	}
	return Result{"regions": out}, nil
}

func handleMemoryValidate(e *Engine, p Params) (Result, error) {
	addr, err := parseAddress(p, "address")
	if err != nil {
		return nil, err
	}
	region, err := e.cache.Lookup(addr)
	if err != nil {
		return nil, err
	}
	if region == nil {
		return Result{"valid": false}, nil
	}
	return Result{
		"valid":      true,
		"readable":   region.Protection.Readable,
		"writable":   region.Protection.Writable,
		"executable": region.Protection.Executable,
	}, nil
}

func handleMemoryAllocate(e *Engine, p Params) (Result, error) {
	size, err := parseSize(p, "size")
	if err != nil {
		return nil, err
	}
	b, err := allocRegion(size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", memcore.ErrResourceExhausted, err)
	}
	addr := memcore.Address(sliceAddr(b))

	e.mu.Lock()
	e.allocs[addr] = b
	e.mu.Unlock()

	e.cache.Invalidate()
	return Result{"address": addr.String()}, nil
}

func handleMemoryFree(e *Engine, p Params) (Result, error) {
	addr, err := parseAddress(p, "address")
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	b, ok := e.allocs[addr]
	if ok {
		delete(e.allocs, addr)
	}
	e.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("free %s: not an engine-owned allocation", addr)
	}
	if err := freeRegion(b); err != nil {
		return nil, err
	}
	e.cache.Invalidate()
	return Result{"freed": true}, nil
}

func handleMemoryPatch(e *Engine, p Params) (Result, error) {
	addr, err := parseAddress(p, "address")
	if err != nil {
		return nil, err
	}
	expectedLit, hasExpected := p["expected"]
	literal, err := requireParam(p, "value")
	if err != nil {
		return nil, err
	}
	tag, err := parseTag(p, "type")
	if err != nil {
		return nil, err
	}
	v, err := memcore.ParseValue(literal, tag)
	if err != nil {
		return nil, err
	}

	if hasExpected {
		expected, err := memcore.ParseValue(expectedLit, tag)
		if err != nil {
			return nil, err
		}
		current, err := e.acc.Read(addr, memcore.Size(len(expected.Bytes)))
		if err != nil {
			return nil, err
		}
		if !bytesEqual(current, expected.Bytes) {
			return nil, fmt.Errorf("patch %s: current value does not match expected", addr)
		}
	}

	if err := e.acc.WriteTyped(addr, v); err != nil {
		return nil, err
	}
	return Result{"patched": true}, nil
}

func handleMemoryNop(e *Engine, p Params) (Result, error) {
	addr, err := parseAddress(p, "address")
	if err != nil {
		return nil, err
	}
	size, err := parseSize(p, "size")
	if err != nil {
		return nil, err
	}
	nops := make([]byte, size)
	for i := range nops {
		nops[i] = 0x90
	}
	if err := e.acc.Write(addr, nops); err != nil {
		return nil, err
	}
	return Result{"patched": int(size)}, nil
}

func handleMemoryDisassemble(e *Engine, p Params) (Result, error) {
	addr, err := parseAddress(p, "address")
	if err != nil {
		return nil, err
	}
	size, err := parseSizeDefault(p, "size", 256)
	if err != nil {
		return nil, err
	}
	count := parseIntDefault(p, "count", 0)

	data, err := e.acc.Read(addr, size)
	if err != nil {
		return nil, err
	}
	insts := disasm.Disassemble(data, uint64(addr), e.bits, count)

	out := make([]Result, len(insts))
	for i, inst := range insts {
		item := Result{
			"address":  memcore.Address(inst.Address).String(),
			"mnemonic": inst.Mnemonic,
			"operands": inst.Operands,
			"length":   inst.Len,
			"is_jump":  inst.IsJump,
			"is_call":  inst.IsCall,
			"is_ret":   inst.IsRet,
		}
		if inst.HasTarget {
			item["target"] = memcore.Address(inst.Target).String()
		}
		out[i] = item
	}
	return Result{"instructions": out}, nil
}

func handlePatternScan(e *Engine, p Params) (Result, error) {
	pattern, err := parsePattern(p, "pattern")
	if err != nil {
		return nil, err
	}
	addr, found, err := e.scan.PatternScanFirst(pattern, parseScanOptions(p))
	if err != nil {
		return nil, err
	}
	if !found {
		return Result{"found": false}, nil
	}
	return Result{"found": true, "address": addr.String()}, nil
}

func handlePatternScanAll(e *Engine, p Params) (Result, error) {
	pattern, err := parsePattern(p, "pattern")
	if err != nil {
		return nil, err
	}
	maxdop := parseIntDefault(p, "maxdop", 1)
	addrs, err := e.scan.PatternScanAll(pattern, parseScanOptions(p), maxdop)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = a.String()
	}
	return Result{"matches": out, "count": len(out)}, nil
}

func handlePointerChain(e *Engine, p Params) (Result, error) {
	base, err := parseAddress(p, "base")
	if err != nil {
		return nil, err
	}
	offsets, err := parseOffsets(p, "offsets")
	if err != nil {
		return nil, err
	}
	width, err := parseSizeDefault(p, "pointer_width", 8)
	if err != nil {
		return nil, err
	}
	addr, err := e.scan.ReadPointerChain(base, offsets, width)
	if err != nil {
		return nil, err
	}
	return Result{"address": addr.String()}, nil
}

func handlePointerFind(e *Engine, p Params) (Result, error) {
	target, err := parseAddress(p, "target")
	if err != nil {
		return nil, err
	}
	width, err := parseSizeDefault(p, "pointer_width", 8)
	if err != nil {
		return nil, err
	}
	addrs, err := e.scan.FindPointersTo(target, width, parseScanOptions(p))
	if err != nil {
		return nil, err
	}
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = a.String()
	}
	return Result{"matches": out, "count": len(out)}, nil
}

func handleModuleList(e *Engine, p Params) (Result, error) {
	modules, err := e.cache.Modules()
	if err != nil {
		return nil, err
	}
	out := make([]Result, len(modules))
	for i, m := range modules {
		out[i] = Result{"name": m.Name, "base": m.Base.String(), "size": uint64(m.Size)}
	}
	return Result{"modules": out}, nil
}

func handleModuleInfo(e *Engine, p Params) (Result, error) {
	name, err := requireParam(p, "name")
	if err != nil {
		return nil, err
	}
	modules, err := e.cache.Modules()
	if err != nil {
		return nil, err
	}
	for _, m := range modules {
		if m.Name == name {
			return Result{"name": m.Name, "base": m.Base.String(), "size": uint64(m.Size)}, nil
		}
	}
	return nil, fmt.Errorf("module %q not found", name)
}

func handleModuleFromAddress(e *Engine, p Params) (Result, error) {
	addr, err := parseAddress(p, "address")
	if err != nil {
		return nil, err
	}
	modules, err := e.cache.Modules()
	if err != nil {
		return nil, err
	}
	label := memcore.FormatAddress(addr, modules)
	if label == "" {
		return Result{"found": false}, nil
	}
	return Result{"found": true, "label": label}, nil
}

func handleProcessInfo(e *Engine, p Params) (Result, error) {
	regions, err := e.cache.Regions()
	if err != nil {
		return nil, err
	}
	modules, err := e.cache.Modules()
	if err != nil {
		return nil, err
	}
	return Result{
		"bits":          e.bits,
		"region_count":  len(regions),
		"module_count":  len(modules),
	}, nil
}

func handleHookInstall(e *Engine, p Params) (Result, error) {
	name, err := requireParam(p, "name")
	if err != nil {
		return nil, err
	}
	detourAddr, err := parseAddress(p, "detour")
	if err != nil {
		return nil, err
	}
	hookType := parseHookType(p, "hook_type")
	bits := parseIntDefault(p, "bits", e.bits)

	if pattern, ok := p["pattern"]; ok && pattern != "" {
		pat, err := memcore.ParsePattern(pattern)
		if err != nil {
			return nil, err
		}
		info, err := e.registry.InstallByPattern(name, e.scan, pat, detourAddr, hookType, bits, parseScanOptions(p))
		if err != nil {
			return nil, err
		}
		return hookInfoResult(info), nil
	}

	target, err := parseAddress(p, "target")
	if err != nil {
		return nil, err
	}
	info, err := e.registry.Install(name, target, detourAddr, hookType, bits)
	if err != nil {
		return nil, err
	}
	return hookInfoResult(info), nil
}

func handleHookRemove(e *Engine, p Params) (Result, error) {
	name, err := requireParam(p, "name")
	if err != nil {
		return nil, err
	}
	if err := e.registry.Remove(name); err != nil {
		return nil, err
	}
	return Result{"removed": true}, nil
}

func handleHookList(e *Engine, p Params) (Result, error) {
	list := e.registry.List()
	out := make([]Result, len(list))
	for i, info := range list {
		out[i] = hookInfoResult(info)
	}
	return Result{"hooks": out}, nil
}

func handleHookToggle(e *Engine, p Params) (Result, error) {
	name, err := requireParam(p, "name")
	if err != nil {
		return nil, err
	}
	if err := e.registry.Toggle(name); err != nil {
		return nil, err
	}
	info, err := e.registry.Get(name)
	if err != nil {
		return nil, err
	}
	return hookInfoResult(info), nil
}

func hookInfoResult(info memcore.HookInfo) Result {
	return Result{
		"name":        info.Name,
		"target":      info.TargetAddress.String(),
		"detour":      info.DetourAddress.String(),
		"trampoline":  info.TrampolineAddress.String(),
		"type":        string(info.Type),
		"active":      info.Active,
		"prologue_len": info.PrologueLength,
	}
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
