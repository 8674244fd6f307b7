package fingerprint

import (
	"context"
	"errors"
	"testing"
	"time"
)

// A binary name that cannot exist on PATH; forces the unavailable path
// without depending on gpg being installed.
const missingBin = "trace-console-no-such-gpg-binary"

func TestSignUnavailableDegrades(t *testing.T) {
	s := NewSigner(missingBin, time.Second, nil)
	sig, err := s.Sign(context.Background(), "deadbeef", "")
	if err == nil {
		t.Fatal("expected error from missing binary")
	}
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
	if sig != "" {
		t.Errorf("expected empty signature, got %q", sig)
	}
}

func TestAvailableFalseForMissingBinary(t *testing.T) {
	s := NewSigner(missingBin, time.Second, nil)
	if s.Available(context.Background()) {
		t.Error("missing binary reported as available")
	}
}

func TestVerifyUnsignedInput(t *testing.T) {
	// Plain text short-circuits before any subprocess runs.
	s := NewSigner(missingBin, time.Second, nil)
	status, info := s.Verify(context.Background(), "just a note body")
	if status != StatusUnsigned {
		t.Errorf("expected unsigned, got %v", status)
	}
	if info != "" {
		t.Errorf("expected empty signer info, got %q", info)
	}
}

func TestListSecretKeysUnavailable(t *testing.T) {
	s := NewSigner(missingBin, time.Second, nil)
	if _, err := s.ListSecretKeys(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestParseSecretKeys(t *testing.T) {
	out := "sec:u:4096:1:AB12CD34EF56AB90:1577836800:::u:::scESC:::+:::23::0:\n" +
		"fpr:::::::::1234567890ABCDEF1234567890ABCDEF12345678:\n" +
		"uid:u::::1577836800::HASH1::Alice Examiner <alice@lab.example>::::::::::0:\n" +
		"uid:u::::1577836801::HASH2::Alice (work)::::::::::0:\n" +
		"ssb:u:4096:1:1122334455667788:1577836800::::::e:\n" +
		"sec:u:255:22:99AA88BB77CC66DD:1600000000:::u:::scESC:\n" +
		"uid:u::::1600000000::HASH3::Bob Analyst::::::::::0:\n"

	keys := parseSecretKeys(out)
	if len(keys) != 3 {
		t.Fatalf("expected 3 keys, got %d: %+v", len(keys), keys)
	}
	if keys[0].ID != "AB12CD34EF56AB90" || keys[0].UserID != "Alice Examiner <alice@lab.example>" {
		t.Errorf("unexpected first key: %+v", keys[0])
	}
	if keys[1].ID != "AB12CD34EF56AB90" || keys[1].UserID != "Alice (work)" {
		t.Errorf("expected second uid on same key, got %+v", keys[1])
	}
	if keys[2].ID != "99AA88BB77CC66DD" || keys[2].UserID != "Bob Analyst" {
		t.Errorf("unexpected third key: %+v", keys[2])
	}
}

func TestParseSecretKeysIgnoresOrphanUID(t *testing.T) {
	out := "uid:u::::1577836800::HASH::Ghost <ghost@nowhere.example>:\n"
	if keys := parseSecretKeys(out); len(keys) != 0 {
		t.Errorf("uid before any sec record should be skipped, got %+v", keys)
	}
}

func TestParseSigner(t *testing.T) {
	stderr := "gpg: Signature made Mon 15 Jan 2024 09:23:45 UTC\n" +
		"gpg:                using RSA key AB12CD34EF56AB90\n" +
		"gpg: Good signature from \"Alice Examiner <alice@lab.example>\" [ultimate]\n"
	if got := parseSigner(stderr); got != "Alice Examiner <alice@lab.example>" {
		t.Errorf("unexpected signer: %q", got)
	}
	if got := parseSigner("gpg: no usable output"); got != "unknown signer" {
		t.Errorf("expected fallback signer, got %q", got)
	}
}

func TestParseVerifyFailure(t *testing.T) {
	cases := []struct {
		stderr string
		want   string
	}{
		{"gpg: BAD signature from \"Mallory\"", "BAD signature"},
		// Missing key wins over the generic can't-check reason.
		{"gpg: Can't check signature: No public key", "public key not in keyring"},
		{"gpg: Can't check signature: unknown algorithm", "cannot check signature"},
		{"gpg: something else entirely", "verification failed"},
	}

	for _, tc := range cases {
		if got := parseVerifyFailure(tc.stderr); got != tc.want {
			t.Errorf("parseVerifyFailure(%q) = %q, want %q", tc.stderr, got, tc.want)
		}
	}
}

func TestVerifyStatusString(t *testing.T) {
	if StatusValid.String() != "valid" || StatusInvalid.String() != "invalid" || StatusUnsigned.String() != "unsigned" {
		t.Error("unexpected status strings")
	}
}
