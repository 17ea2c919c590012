package command

import (
	"fmt"
	"strconv"
	"strings"

	"memengine/memcore"
)

func requireParam(p Params, key string) (string, error) {
	v, ok := p[key]
	if !ok || v == "" {
		return "", fmt.Errorf("missing required parameter %q", key)
	}
	return v, nil
}

// parseAddress accepts "0x..." or bare hex, per §6's address convention.
func parseAddress(p Params, key string) (memcore.Address, error) {
	v, err := requireParam(p, key)
	if err != nil {
		return 0, err
	}
	v = strings.TrimPrefix(strings.TrimPrefix(v, "0x"), "0X")
	n, err := strconv.ParseUint(v, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("parameter %q is not a valid address: %w", key, err)
	}
	return memcore.Address(n), nil
}

// parseSize accepts a decimal size/count string, per §6.
func parseSize(p Params, key string) (memcore.Size, error) {
	v, err := requireParam(p, key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parameter %q is not a valid size: %w", key, err)
	}
	return memcore.Size(n), nil
}

func parseSizeDefault(p Params, key string, def memcore.Size) (memcore.Size, error) {
	if _, ok := p[key]; !ok {
		return def, nil
	}
	return parseSize(p, key)
}

func parseTag(p Params, key string) (memcore.TypeTag, error) {
	v, err := requireParam(p, key)
	if err != nil {
		return "", err
	}
	switch memcore.TypeTag(v) {
	case memcore.TagInt32, memcore.TagInt64, memcore.TagFloat, memcore.TagDouble,
		memcore.TagByte, memcore.TagString, memcore.TagBytes:
		return memcore.TypeTag(v), nil
	default:
		return "", fmt.Errorf("parameter %q is not a known type tag: %q", key, v)
	}
}

func parseScanType(p Params, key string) (memcore.ScanType, error) {
	v, err := requireParam(p, key)
	if err != nil {
		return "", err
	}
	switch memcore.ScanType(v) {
	case memcore.ScanExact, memcore.ScanChanged, memcore.ScanUnchanged,
		memcore.ScanIncreased, memcore.ScanDecreased:
		return memcore.ScanType(v), nil
	default:
		return "", fmt.Errorf("parameter %q is not a known scan type: %q", key, v)
	}
}

// parseOffsets parses a bracketed, comma-separated list of hex offsets,
// e.g. "[0x10,-0x8,0x4]", per §6's pointer-chain convention.
func parseOffsets(p Params, key string) ([]int64, error) {
	v, err := requireParam(p, key)
	if err != nil {
		return nil, err
	}
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "[")
	v = strings.TrimSuffix(v, "]")
	if v == "" {
		return nil, nil
	}

	fields := strings.Split(v, ",")
	out := make([]int64, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		neg := false
		if strings.HasPrefix(f, "-") {
			neg = true
			f = f[1:]
		}
		f = strings.TrimPrefix(strings.TrimPrefix(f, "0x"), "0X")
		n, err := strconv.ParseInt(f, 16, 64)
		if err != nil {
			return nil, fmt.Errorf("parameter %q has invalid offset %q: %w", key, f, err)
		}
		if neg {
			n = -n
		}
		out = append(out, n)
	}
	return out, nil
}

func parsePattern(p Params, key string) (memcore.Pattern, error) {
	v, err := requireParam(p, key)
	if err != nil {
		return memcore.Pattern{}, err
	}
	return memcore.ParsePattern(v)
}

func parseScanOptions(p Params) memcore.ScanOptions {
	opts := memcore.ScanOptions{}
	opts.Writable = parseTriState(p["writable"])
	opts.Executable = parseTriState(p["executable"])
	opts.Module = p["module"]
	if a, ok := p["alignment"]; ok {
		if n, err := strconv.ParseUint(a, 10, 64); err == nil {
			opts.Alignment = memcore.Size(n)
		}
	}
	return opts
}

func parseTriState(v string) memcore.TriState {
	switch v {
	case "true", "yes", "1":
		return memcore.Yes
	case "false", "no", "0":
		return memcore.No
	default:
		return memcore.Any
	}
}

func parseBool(p Params, key string, def bool) bool {
	v, ok := p[key]
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func parseIntDefault(p Params, key string, def int) int {
	v, ok := p[key]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func parseHookType(p Params, key string) memcore.HookType {
	v, ok := p[key]
	if !ok || v == "" {
		return memcore.HookAuto
	}
	return memcore.HookType(v)
}
