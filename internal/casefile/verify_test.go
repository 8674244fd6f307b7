package casefile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casetrace/trace-console/internal/fingerprint"
	"github.com/casetrace/trace-console/internal/store"
)

func TestVerifyNotesDetectsTampering(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, st.SaveSettings(store.Settings{}.WithSigning(false)))

	c, err := svc.CreateCase(ctx, "IR-1", "", "")
	require.NoError(t, err)
	good, err := svc.AddNote(ctx, "untouched observation", c.ID, "")
	require.NoError(t, err)
	bad, err := svc.AddNote(ctx, "soon to be altered", c.ID, "")
	require.NoError(t, err)

	// Tamper with one note's content behind the service's back.
	require.NoError(t, st.Mutate(func(tree *store.Tree) error {
		ref, ok := tree.FindNote(bad.Note.ID)
		require.True(t, ok)
		ref.Note.Content = "history rewritten"
		return nil
	}))

	results, err := svc.VerifyNotes(ctx)
	require.NoError(t, err)
	require.Len(t, results, 2)

	byID := map[string]NoteVerification{}
	for _, r := range results {
		byID[r.Ref.Note.ID] = r
	}

	assert.True(t, byID[good.Note.ID].HashOK)
	assert.Equal(t, fingerprint.StatusUnsigned, byID[good.Note.ID].SigStatus)

	assert.False(t, byID[bad.Note.ID].HashOK, "recomputed fingerprint must expose the edit")
}

func TestVerifyNotesSignatureWithoutGpg(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	// A clearsign block forces a gpg invocation; with the binary missing the
	// signature cannot be checked and is reported invalid, not skipped.
	sigBlock := "-----BEGIN PGP SIGNED MESSAGE-----\nHash: SHA256\n\ndeadbeef\n-----BEGIN PGP SIGNATURE-----\nxyz\n-----END PGP SIGNATURE-----\n"
	require.NoError(t, st.Mutate(func(tree *store.Tree) error {
		c := store.NewCase("IR-2", "", "")
		n := store.NewNote(c.CreatedAt, "signed once upon a time")
		n.Signature = sigBlock
		c.Notes = append(c.Notes, n)
		tree.Cases = append(tree.Cases, c)
		return nil
	}))

	results, err := svc.VerifyNotes(ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].HashOK)
	assert.Equal(t, fingerprint.StatusInvalid, results[0].SigStatus)
	assert.NotEmpty(t, results[0].SigDetail)
}

func TestVerifyExportPlainFileIsUnsigned(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, st.SaveSettings(store.Settings{}.WithSigning(false)))

	_, err := svc.CreateCase(ctx, "IR-1", "", "")
	require.NoError(t, err)
	res, err := svc.ExportMarkdown(ctx, "")
	require.NoError(t, err)

	status, _, err := svc.VerifyExport(ctx, res.Path)
	require.NoError(t, err)
	assert.Equal(t, fingerprint.StatusUnsigned, status)
}

func TestVerifyExportMissingFile(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, _, err := svc.VerifyExport(context.Background(), "/no/such/export.md")
	require.Error(t, err)
}
