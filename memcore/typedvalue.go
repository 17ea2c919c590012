package memcore

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
)

// TypeTag names one of the wire-level value encodings from spec §3.
type TypeTag string

const (
	TagInt32  TypeTag = "int32"
	TagInt64  TypeTag = "int64"
	TagFloat  TypeTag = "float"
	TagDouble TypeTag = "double"
	TagByte   TypeTag = "byte"
	TagString TypeTag = "string"
	TagBytes  TypeTag = "bytes"
)

// MaxStringLength bounds a string-tagged read, per spec §3.
const MaxStringLength = 256

// TypedValue pairs a byte payload with the tag that encoded it.
type TypedValue struct {
	Tag   TypeTag
	Bytes []byte
}

// FixedWidth returns the byte width for fixed-size tags, and false for the
// variable-width tags (string, bytes).
func (t TypeTag) FixedWidth() (Size, bool) {
	switch t {
	case TagInt32, TagFloat:
		return 4, true
	case TagInt64, TagDouble:
		return 8, true
	case TagByte:
		return 1, true
	default:
		return 0, false
	}
}

// ParseValue parses a literal string into its byte encoding for tag.
func ParseValue(literal string, tag TypeTag) (TypedValue, error) {
	switch tag {
	case TagInt32:
		v, err := strconv.ParseInt(literal, 10, 32)
		if err != nil {
			return TypedValue{}, fmt.Errorf("parse int32 value %q: %w", literal, err)
		}
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, uint32(int32(v)))
		return TypedValue{Tag: tag, Bytes: buf}, nil

	case TagInt64:
		v, err := strconv.ParseInt(literal, 10, 64)
		if err != nil {
			return TypedValue{}, fmt.Errorf("parse int64 value %q: %w", literal, err)
		}
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, uint64(v))
		return TypedValue{Tag: tag, Bytes: buf}, nil

	case TagFloat:
		v, err := strconv.ParseFloat(literal, 32)
		if err != nil {
			return TypedValue{}, fmt.Errorf("parse float value %q: %w", literal, err)
		}
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(v)))
		return TypedValue{Tag: tag, Bytes: buf}, nil

	case TagDouble:
		v, err := strconv.ParseFloat(literal, 64)
		if err != nil {
			return TypedValue{}, fmt.Errorf("parse double value %q: %w", literal, err)
		}
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
		return TypedValue{Tag: tag, Bytes: buf}, nil

	case TagByte:
		v, err := strconv.ParseUint(literal, 10, 8)
		if err != nil {
			return TypedValue{}, fmt.Errorf("parse byte value %q: %w", literal, err)
		}
		return TypedValue{Tag: tag, Bytes: []byte{byte(v)}}, nil

	case TagString:
		b := []byte(literal)
		if len(b) > MaxStringLength {
			b = b[:MaxStringLength]
		}
		return TypedValue{Tag: tag, Bytes: b}, nil

	case TagBytes:
		b, err := HexStringToBytes(literal)
		if err != nil {
			return TypedValue{}, fmt.Errorf("parse bytes value %q: %w", literal, err)
		}
		return TypedValue{Tag: tag, Bytes: b}, nil

	default:
		return TypedValue{}, fmt.Errorf("unknown type tag %q", tag)
	}
}

// Format renders a typed value's bytes back into the literal form ParseValue accepts.
func (v TypedValue) Format() string {
	switch v.Tag {
	case TagInt32:
		if len(v.Bytes) < 4 {
			return ""
		}
		return strconv.FormatInt(int64(int32(binary.LittleEndian.Uint32(v.Bytes))), 10)
	case TagInt64:
		if len(v.Bytes) < 8 {
			return ""
		}
		return strconv.FormatInt(int64(binary.LittleEndian.Uint64(v.Bytes)), 10)
	case TagFloat:
		if len(v.Bytes) < 4 {
			return ""
		}
		f := math.Float32frombits(binary.LittleEndian.Uint32(v.Bytes))
		return strconv.FormatFloat(float64(f), 'g', -1, 32)
	case TagDouble:
		if len(v.Bytes) < 8 {
			return ""
		}
		f := math.Float64frombits(binary.LittleEndian.Uint64(v.Bytes))
		return strconv.FormatFloat(f, 'g', -1, 64)
	case TagByte:
		if len(v.Bytes) < 1 {
			return ""
		}
		return strconv.FormatUint(uint64(v.Bytes[0]), 10)
	case TagString:
		s := v.Bytes
		if i := bytes.IndexByte(s, 0); i >= 0 {
			s = s[:i]
		}
		return string(s)
	case TagBytes:
		return BytesToHexString(v.Bytes)
	default:
		return ""
	}
}

// ScanType names a next-scan comparison predicate.
type ScanType string

const (
	ScanExact     ScanType = "exact"
	ScanUnchanged ScanType = "unchanged"
	ScanChanged   ScanType = "changed"
	ScanIncreased ScanType = "increased"
	ScanDecreased ScanType = "decreased"
)

// numeric reports whether tag supports ordered (increased/decreased) comparison.
func (t TypeTag) numeric() bool {
	switch t {
	case TagInt32, TagInt64, TagFloat, TagDouble, TagByte:
		return true
	default:
		return false
	}
}

// CompareNumeric returns >0 if a>b, <0 if a<b, 0 if equal, per tag's
// numeric interpretation. NaN operands return 0 (neither greater nor less),
// matching spec §4.3 and §9.
func CompareNumeric(tag TypeTag, a, b []byte) int {
	switch tag {
	case TagInt32:
		if len(a) < 4 || len(b) < 4 {
			return 0
		}
		av := int32(binary.LittleEndian.Uint32(a))
		bv := int32(binary.LittleEndian.Uint32(b))
		switch {
		case av > bv:
			return 1
		case av < bv:
			return -1
		default:
			return 0
		}
	case TagInt64:
		if len(a) < 8 || len(b) < 8 {
			return 0
		}
		av := int64(binary.LittleEndian.Uint64(a))
		bv := int64(binary.LittleEndian.Uint64(b))
		switch {
		case av > bv:
			return 1
		case av < bv:
			return -1
		default:
			return 0
		}
	case TagByte:
		if len(a) < 1 || len(b) < 1 {
			return 0
		}
		switch {
		case a[0] > b[0]:
			return 1
		case a[0] < b[0]:
			return -1
		default:
			return 0
		}
	case TagFloat:
		if len(a) < 4 || len(b) < 4 {
			return 0
		}
		av := math.Float32frombits(binary.LittleEndian.Uint32(a))
		bv := math.Float32frombits(binary.LittleEndian.Uint32(b))
		if math.IsNaN(float64(av)) || math.IsNaN(float64(bv)) {
			return 0
		}
		switch {
		case av > bv:
			return 1
		case av < bv:
			return -1
		default:
			return 0
		}
	case TagDouble:
		if len(a) < 8 || len(b) < 8 {
			return 0
		}
		av := math.Float64frombits(binary.LittleEndian.Uint64(a))
		bv := math.Float64frombits(binary.LittleEndian.Uint64(b))
		if math.IsNaN(av) || math.IsNaN(bv) {
			return 0
		}
		switch {
		case av > bv:
			return 1
		case av < bv:
			return -1
		default:
			return 0
		}
	default:
		return 0
	}
}

// MatchesScan reports whether current satisfies scanType against previous
// (and, for exact, against the parsed literal value).
func MatchesScan(tag TypeTag, scanType ScanType, current, previous, literal []byte) (bool, error) {
	switch scanType {
	case ScanExact:
		return bytes.Equal(current, literal), nil
	case ScanUnchanged:
		return bytes.Equal(current, previous), nil
	case ScanChanged:
		return !bytes.Equal(current, previous), nil
	case ScanIncreased:
		if !tag.numeric() {
			return false, fmt.Errorf("scan type %q not supported for tag %q", scanType, tag)
		}
		return CompareNumeric(tag, current, previous) > 0, nil
	case ScanDecreased:
		if !tag.numeric() {
			return false, fmt.Errorf("scan type %q not supported for tag %q", scanType, tag)
		}
		return CompareNumeric(tag, current, previous) < 0, nil
	default:
		return false, fmt.Errorf("unknown scan type %q", scanType)
	}
}
