package casefile

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/casetrace/trace-console/internal/fingerprint"
	"github.com/casetrace/trace-console/internal/store"
)

// NoteVerification is the integrity report for one stored note.
type NoteVerification struct {
	Ref       store.NoteRef
	HashOK    bool
	SigStatus fingerprint.VerifyStatus
	SigDetail string
}

// VerifyNotes re-checks every stored note: the fingerprint is recomputed
// from the stored timestamp and content, and any signature is run through
// gpg. A valid signature must also cover the stored fingerprint; a signature
// that verifies but signs some other digest is reported invalid.
func (s *Service) VerifyNotes(ctx context.Context) ([]NoteVerification, error) {
	tree, err := s.store.Load()
	if err != nil {
		return nil, err
	}

	var out []NoteVerification
	for _, ref := range tree.ScopedNotes(nil, nil) {
		v := NoteVerification{Ref: ref}
		v.HashOK = fingerprint.Digest(ref.Note.Timestamp, ref.Note.Content) == ref.Note.Hash

		if ref.Note.Signature == "" {
			v.SigStatus = fingerprint.StatusUnsigned
		} else {
			v.SigStatus, v.SigDetail = s.signer.Verify(ctx, ref.Note.Signature)
			if v.SigStatus == fingerprint.StatusValid && !strings.Contains(ref.Note.Signature, ref.Note.Hash) {
				v.SigStatus = fingerprint.StatusInvalid
				v.SigDetail = "signature does not cover the stored fingerprint"
			}
		}
		out = append(out, v)
	}
	return out, nil
}

// VerifyExport runs gpg verification over a clearsigned export file.
func (s *Service) VerifyExport(ctx context.Context, path string) (fingerprint.VerifyStatus, string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fingerprint.StatusUnsigned, "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	status, detail := s.signer.Verify(ctx, string(raw))
	return status, detail, nil
}
