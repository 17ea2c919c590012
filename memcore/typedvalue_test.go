package memcore

import (
	"bytes"
	"testing"
)

func TestParseValueAndFormatRoundTrip(t *testing.T) {
	cases := []struct {
		tag     TypeTag
		literal string
	}{
		{TagInt32, "-42"},
		{TagInt64, "9223372036854775807"},
		{TagFloat, "3.5"},
		{TagDouble, "-2.25"},
		{TagByte, "200"},
		{TagString, "hello"},
		{TagBytes, "de ad be ef"},
	}

	for _, c := range cases {
		v, err := ParseValue(c.literal, c.tag)
		if err != nil {
			t.Fatalf("tag %s: parse %q: %s", c.tag, c.literal, err)
		}
		got := v.Format()
		if got != c.literal {
			t.Fatalf("tag %s: round trip %q - got %q", c.tag, c.literal, got)
		}
	}
}

func TestParseValueInvalidTag(t *testing.T) {
	if _, err := ParseValue("1", "nonsense"); err == nil {
		t.Fatal("expected error for unknown type tag")
	}
}

func TestParseValueStringTruncation(t *testing.T) {
	long := bytes.Repeat([]byte("a"), MaxStringLength+50)
	v, err := ParseValue(string(long), TagString)
	if err != nil {
		t.Fatal(err)
	}
	if len(v.Bytes) != MaxStringLength {
		t.Fatalf("expected truncation to %d bytes - got %d", MaxStringLength, len(v.Bytes))
	}
}

func TestCompareNumericNaN(t *testing.T) {
	nan, _ := ParseValue("NaN", TagDouble)
	one, _ := ParseValue("1", TagDouble)

	if c := CompareNumeric(TagDouble, nan.Bytes, one.Bytes); c != 0 {
		t.Fatalf("expected NaN comparison to be neutral (0) - got %d", c)
	}
	if c := CompareNumeric(TagDouble, one.Bytes, nan.Bytes); c != 0 {
		t.Fatalf("expected NaN comparison to be neutral (0) - got %d", c)
	}
}

func TestMatchesScan(t *testing.T) {
	ten, _ := ParseValue("10", TagInt32)
	twenty, _ := ParseValue("20", TagInt32)

	matched, err := MatchesScan(TagInt32, ScanIncreased, twenty.Bytes, ten.Bytes, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !matched {
		t.Fatal("expected 20 to match 'increased' against previous value 10")
	}

	matched, err = MatchesScan(TagInt32, ScanDecreased, twenty.Bytes, ten.Bytes, nil)
	if err != nil {
		t.Fatal(err)
	}
	if matched {
		t.Fatal("did not expect 20 to match 'decreased' against previous value 10")
	}

	matched, err = MatchesScan(TagInt32, ScanExact, ten.Bytes, nil, ten.Bytes)
	if err != nil {
		t.Fatal(err)
	}
	if !matched {
		t.Fatal("expected exact match against literal")
	}
}

func TestMatchesScanOrderedRejectsNonNumeric(t *testing.T) {
	a, _ := ParseValue("abc", TagString)
	b, _ := ParseValue("abd", TagString)
	if _, err := MatchesScan(TagString, ScanIncreased, b.Bytes, a.Bytes, nil); err == nil {
		t.Fatal("expected error for ordered scan on non-numeric tag")
	}
}
