package memcore

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// BytesToHexString renders b as lowercase, space-separated hex octets,
// matching the wire form pattern scanning and "bytes"-tagged values use.
func BytesToHexString(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	parts := make([]string, len(b))
	for i, v := range b {
		parts[i] = hex.EncodeToString([]byte{v})
	}
	return strings.Join(parts, " ")
}

// HexStringToBytes parses a space- (or hyphen-) separated hex octet string
// such as "48 8b 05" or "48-8B-05" into its raw bytes.
func HexStringToBytes(s string) ([]byte, error) {
	fields := splitHexFields(s)
	out := make([]byte, 0, len(fields))
	for _, f := range fields {
		if len(f) != 2 {
			return nil, fmt.Errorf("hex octet %q must be exactly 2 digits", f)
		}
		b, err := hex.DecodeString(f)
		if err != nil {
			return nil, fmt.Errorf("invalid hex octet %q: %w", f, err)
		}
		out = append(out, b[0])
	}
	return out, nil
}

func splitHexFields(s string) []string {
	s = strings.ReplaceAll(s, "-", " ")
	return strings.Fields(s)
}

// Pattern is a byte-array-of-bytes scan pattern: a wildcard byte is
// permitted wherever Mask is zero, regardless of the corresponding Bytes value.
type Pattern struct {
	Bytes []byte
	Mask  []byte // 0xff = must match Bytes[i], 0x00 = wildcard
}

// NewPattern builds a fully-exact pattern (no wildcards) from raw bytes.
func NewPattern(b []byte) Pattern {
	mask := make([]byte, len(b))
	for i := range mask {
		mask[i] = 0xff
	}
	return Pattern{Bytes: append([]byte(nil), b...), Mask: mask}
}

// Matches reports whether data (same length as the pattern) satisfies it.
func (p Pattern) Matches(data []byte) bool {
	if len(data) != len(p.Bytes) {
		return false
	}
	for i := range p.Bytes {
		if p.Mask[i] != 0 && data[i] != p.Bytes[i] {
			return false
		}
	}
	return true
}

// ParsePattern parses an AOB string such as "48 8B ?? 05 ? ? E8" into a
// Pattern, where "?" and "??" both mean wildcard-byte.
func ParsePattern(s string) (Pattern, error) {
	fields := splitHexFields(s)
	if len(fields) == 0 {
		return Pattern{}, fmt.Errorf("empty pattern")
	}
	b := make([]byte, len(fields))
	mask := make([]byte, len(fields))
	for i, f := range fields {
		if f == "?" || f == "??" {
			mask[i] = 0x00
			continue
		}
		if len(f) != 2 {
			return Pattern{}, fmt.Errorf("pattern octet %q must be exactly 2 hex digits or a wildcard", f)
		}
		raw, err := hex.DecodeString(f)
		if err != nil {
			return Pattern{}, fmt.Errorf("invalid pattern octet %q: %w", f, err)
		}
		b[i] = raw[0]
		mask[i] = 0xff
	}
	return Pattern{Bytes: b, Mask: mask}, nil
}

func (p Pattern) String() string {
	parts := make([]string, len(p.Bytes))
	for i := range p.Bytes {
		if p.Mask[i] == 0 {
			parts[i] = "??"
		} else {
			parts[i] = hex.EncodeToString(p.Bytes[i : i+1])
		}
	}
	return strings.Join(parts, " ")
}
