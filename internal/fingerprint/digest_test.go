package fingerprint

import (
	"testing"
	"time"
)

func TestDigestDeterministic(t *testing.T) {
	ts := time.Date(2024, 1, 15, 9, 23, 45, 123456789, time.UTC)
	a := Digest(ts, "Suspicious process detected")
	b := Digest(ts, "Suspicious process detected")
	if a != b {
		t.Errorf("same input produced different digests: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}
	for _, c := range a {
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			t.Fatalf("digest contains non-hex char %q", c)
		}
	}
}

func TestDigestBindsContent(t *testing.T) {
	ts := time.Date(2024, 1, 15, 9, 23, 45, 0, time.UTC)
	a := Digest(ts, "malware at 192.168.1.55")
	b := Digest(ts, "malware at 192.168.1.56")
	if a == b {
		t.Error("changing content did not change digest")
	}
}

func TestDigestBindsTimestamp(t *testing.T) {
	ts := time.Date(2024, 1, 15, 9, 23, 45, 0, time.UTC)
	a := Digest(ts, "observation")
	b := Digest(ts.Add(time.Nanosecond), "observation")
	if a == b {
		t.Error("changing timestamp did not change digest")
	}
}

func TestCanonicalTimeZoneIndependent(t *testing.T) {
	utc := time.Date(2024, 6, 1, 12, 0, 0, 500000000, time.UTC)
	offset := utc.In(time.FixedZone("UTC+5", 5*3600))
	if CanonicalTime(utc) != CanonicalTime(offset) {
		t.Errorf("same instant rendered differently: %s vs %s",
			CanonicalTime(utc), CanonicalTime(offset))
	}
}

func TestCanonicalTimeRoundTrip(t *testing.T) {
	// A parsed canonical string must re-render identically, otherwise stored
	// digests could not be recomputed from stored timestamps.
	orig := time.Date(2024, 6, 1, 12, 0, 0, 123450000, time.UTC)
	s := CanonicalTime(orig)
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t.Fatalf("failed to parse canonical time %q: %v", s, err)
	}
	if CanonicalTime(parsed) != s {
		t.Errorf("round trip changed canonical form: %q vs %q", CanonicalTime(parsed), s)
	}
	if Digest(orig, "x") != Digest(parsed, "x") {
		t.Error("round-tripped timestamp produced a different digest")
	}
}
