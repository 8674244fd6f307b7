package fingerprint

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"strings"
	"time"
)

// ErrUnavailable reports that the external signing tool could not produce a
// signature: binary missing, timeout, non-zero exit, or no usable key.
// Callers persist the note unsigned and continue.
var ErrUnavailable = errors.New("signing unavailable")

const clearsignHeader = "-----BEGIN PGP SIGNED MESSAGE-----"

// VerifyStatus classifies the outcome of a signature check.
type VerifyStatus int

const (
	StatusUnsigned VerifyStatus = iota
	StatusValid
	StatusInvalid
)

func (s VerifyStatus) String() string {
	switch s {
	case StatusValid:
		return "valid"
	case StatusInvalid:
		return "invalid"
	default:
		return "unsigned"
	}
}

// Key identifies one secret key in the local keyring.
type Key struct {
	ID     string
	UserID string
}

// Signer shells out to an external gpg binary. Every call is bounded by the
// configured timeout and the subprocess is killed when it elapses, so a hung
// agent can never block a note from being committed.
type Signer struct {
	bin     string
	timeout time.Duration
	logger  *log.Logger
}

// NewSigner returns a Signer using the given binary (default "gpg") and
// per-call timeout (default 10s).
func NewSigner(bin string, timeout time.Duration, logger *log.Logger) *Signer {
	if bin == "" {
		bin = "gpg"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Signer{bin: bin, timeout: timeout, logger: logger}
}

// Available reports whether the gpg binary responds within the timeout.
func (s *Signer) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return exec.CommandContext(ctx, s.bin, "--version").Run() == nil
}

// Sign clearsigns payload, with --local-user when keyID is non-empty.
// All failures come back wrapped in ErrUnavailable.
func (s *Signer) Sign(ctx context.Context, payload, keyID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	args := []string{"--clearsign", "--output", "-"}
	if keyID != "" {
		args = append(args, "--local-user", keyID)
	}
	cmd := exec.CommandContext(ctx, s.bin, args...)
	cmd.Stdin = strings.NewReader(payload)
	var out, errOut bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errOut
	if err := cmd.Run(); err != nil {
		s.logger.Printf("gpg clearsign failed: %v (%s)", err, strings.TrimSpace(errOut.String()))
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return out.String(), nil
}

// Verify checks a clearsigned message and reports who signed it. Tampered or
// unverifiable input is a normal status, never an error. Output language is
// pinned to C.UTF-8 so the stderr parsing is locale-independent.
func (s *Signer) Verify(ctx context.Context, signed string) (VerifyStatus, string) {
	if !strings.Contains(signed, clearsignHeader) {
		return StatusUnsigned, ""
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, s.bin, "--verify")
	cmd.Stdin = strings.NewReader(signed)
	cmd.Env = append(os.Environ(), "LC_ALL=C.UTF-8", "LANG=C.UTF-8")
	var errOut bytes.Buffer
	cmd.Stderr = &errOut // gpg writes verification results to stderr
	if err := cmd.Run(); err != nil {
		return StatusInvalid, parseVerifyFailure(errOut.String())
	}
	return StatusValid, parseSigner(errOut.String())
}

// ListSecretKeys returns the secret keys gpg reports, one entry per user ID.
func (s *Signer) ListSecretKeys(ctx context.Context) ([]Key, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, s.bin, "--list-secret-keys", "--with-colons")
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return parseSecretKeys(out.String()), nil
}

// parseSigner extracts the quoted identity from a "Good signature from" line.
func parseSigner(stderr string) string {
	for _, line := range strings.Split(stderr, "\n") {
		if strings.Contains(line, "Good signature from") {
			if parts := strings.Split(line, `"`); len(parts) >= 2 {
				return parts[1]
			}
		}
	}
	return "unknown signer"
}

func parseVerifyFailure(stderr string) string {
	lower := strings.ToLower(stderr)
	switch {
	case strings.Contains(lower, "bad signature"):
		return "BAD signature"
	case strings.Contains(lower, "no public key"):
		return "public key not in keyring"
	case strings.Contains(lower, "can't check signature"):
		return "cannot check signature"
	}
	return "verification failed"
}

// parseSecretKeys walks --with-colons output: a "sec" record carries the key
// ID in its fifth field, following "uid" records carry user IDs in the tenth.
// A key with several user IDs yields several entries.
func parseSecretKeys(out string) []Key {
	var keys []Key
	var current string
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Split(line, ":")
		if len(fields) < 2 {
			continue
		}
		switch fields[0] {
		case "sec":
			current = ""
			if len(fields) > 4 {
				current = fields[4]
			}
		case "uid":
			if current == "" {
				continue
			}
			user := "unknown"
			if len(fields) > 9 && fields[9] != "" {
				user = fields[9]
			}
			keys = append(keys, Key{ID: current, UserID: user})
		}
	}
	return keys
}
