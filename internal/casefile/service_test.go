package casefile

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casetrace/trace-console/internal/audit"
	"github.com/casetrace/trace-console/internal/bus"
	"github.com/casetrace/trace-console/internal/fingerprint"
	"github.com/casetrace/trace-console/internal/store"
)

// newTestService builds a service on a throwaway store. The signer points at
// a binary that cannot exist, so signing always takes the degrade path and
// tests never depend on gpg being installed.
func newTestService(t *testing.T) (*Service, *store.Store, *audit.Log) {
	t.Helper()
	st, err := store.NewStore(t.TempDir(), nil)
	require.NoError(t, err)
	auditLog, err := audit.Open(st.AuditPath())
	require.NoError(t, err)
	t.Cleanup(func() { auditLog.Close() })
	signer := fingerprint.NewSigner(filepath.Join(st.Dir(), "no-such-gpg"), time.Second, nil)
	return New(st, signer, auditLog, bus.NewNullBus(nil), nil), st, auditLog
}

func TestCreateCaseRecordsAudit(t *testing.T) {
	svc, st, auditLog := newTestService(t)
	ctx := context.Background()

	c, err := svc.CreateCase(ctx, "IR-2025-042", "workstation compromise", "alice")
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)

	tree, err := st.Load()
	require.NoError(t, err)
	require.Len(t, tree.Cases, 1)
	assert.Equal(t, "IR-2025-042", tree.Cases[0].Number)

	entries, err := auditLog.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, audit.ActionCaseCreated, entries[0].Action)
	assert.Equal(t, c.ID, entries[0].CaseID)
	assert.NotEmpty(t, entries[0].Actor)
}

func TestAddNoteSigningDegradesToUnsigned(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	c, err := svc.CreateCase(ctx, "IR-1", "", "")
	require.NoError(t, err)
	_, err = svc.SetActive(ctx, c.ID, "")
	require.NoError(t, err)

	// Default settings leave signing on; the signer binary does not exist.
	res, err := svc.AddNote(ctx, "beacon from 10.0.0.8 #malware", "", "")
	require.NoError(t, err)
	assert.Empty(t, res.Note.Signature)
	assert.Len(t, res.Note.Hash, 64)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "without signature")

	tree, err := st.Load()
	require.NoError(t, err)
	require.Len(t, tree.Cases[0].Notes, 1)
	assert.Equal(t, []string{"malware"}, tree.Cases[0].Notes[0].Tags)
}

func TestAddNoteSigningDisabledIsSilent(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	c, err := svc.CreateCase(ctx, "IR-1", "", "")
	require.NoError(t, err)
	_, err = svc.SetActive(ctx, c.ID, "")
	require.NoError(t, err)
	require.NoError(t, st.SaveSettings(store.Settings{}.WithSigning(false)))

	res, err := svc.AddNote(ctx, "nothing to sign here", "", "")
	require.NoError(t, err)
	assert.Empty(t, res.Note.Signature)
	assert.Empty(t, res.Warnings)
}

func TestAddNoteExplicitOverrideLeavesContextAlone(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	a, err := svc.CreateCase(ctx, "IR-A", "", "")
	require.NoError(t, err)
	b, err := svc.CreateCase(ctx, "IR-B", "", "")
	require.NoError(t, err)
	_, err = svc.SetActive(ctx, a.ID, "")
	require.NoError(t, err)

	res, err := svc.AddNote(ctx, "goes to the other case", "IR-B", "")
	require.NoError(t, err)
	assert.Equal(t, "IR-B", res.CaseNumber)

	tree, err := st.Load()
	require.NoError(t, err)
	assert.Empty(t, tree.FindCase(a.ID).Notes)
	require.Len(t, tree.FindCase(b.ID).Notes, 1)

	assert.Equal(t, a.ID, st.ActiveContext().CaseID)
}

func TestAddNoteStaleEvidenceFallsBackToCase(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	c, err := svc.CreateCase(ctx, "IR-1", "", "")
	require.NoError(t, err)
	ev, err := svc.AddEvidence(ctx, c.ID, "laptop image", "")
	require.NoError(t, err)
	_, err = svc.SetActive(ctx, c.ID, ev.Evidence.ID)
	require.NoError(t, err)

	_, _, err = svc.DeleteEvidence(ctx, ev.Evidence.ID)
	require.NoError(t, err)

	res, err := svc.AddNote(ctx, "note after evidence removal", "", "")
	require.NoError(t, err)
	assert.Equal(t, "IR-1", res.CaseNumber)
	assert.Empty(t, res.EvidenceName)
	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, res.Warnings[0], "no longer exists")

	// The persisted context was cleaned to case level.
	active := st.ActiveContext()
	assert.Equal(t, c.ID, active.CaseID)
	assert.Empty(t, active.EvidenceID)

	tree, err := st.Load()
	require.NoError(t, err)
	require.Len(t, tree.FindCase(c.ID).Notes, 1)
}

func TestAddNoteWithoutAnyCase(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddNote(ctx, "orphan note", "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no active case")
}

func TestAddNoteStaleCaseClearsContextAndFails(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	c, err := svc.CreateCase(ctx, "IR-1", "", "")
	require.NoError(t, err)
	_, err = svc.SetActive(ctx, c.ID, "")
	require.NoError(t, err)
	_, err = svc.DeleteCase(ctx, c.ID)
	require.NoError(t, err)

	res, err := svc.AddNote(ctx, "note into the void", "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no active case")
	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, res.Warnings[0], "no longer exists")
	assert.True(t, st.ActiveContext().IsZero())
}

func TestAmbiguousCaseReference(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateCase(ctx, "IR-1", "first", "")
	require.NoError(t, err)
	_, err = svc.CreateCase(ctx, "IR-1", "second", "")
	require.NoError(t, err)

	_, err = svc.AddNote(ctx, "which one?", "IR-1", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ambiguous")
}

func TestEvidenceMetaSetOnReloadedTree(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	c, err := svc.CreateCase(ctx, "IR-1", "", "")
	require.NoError(t, err)
	ev, err := svc.AddEvidence(ctx, c.ID, "disk image", "")
	require.NoError(t, err)

	// Metadata maps load as nil when empty; SetEvidenceMeta must cope.
	res, err := svc.SetEvidenceMeta(ctx, ev.Evidence.ID, "source_hash", "deadbeef")
	require.NoError(t, err)
	assert.Equal(t, ev.Evidence.ID, res.EvidenceID)

	tree, err := st.Load()
	require.NoError(t, err)
	ref, ok := tree.FindEvidence(ev.Evidence.ID)
	require.True(t, ok)
	assert.Equal(t, "deadbeef", ref.Evidence.Metadata["source_hash"])
}

func TestEveryMutationAppendsOneAuditEntry(t *testing.T) {
	svc, _, auditLog := newTestService(t)
	ctx := context.Background()

	c, err := svc.CreateCase(ctx, "IR-1", "", "")
	require.NoError(t, err)
	ev, err := svc.AddEvidence(ctx, c.ID, "disk", "")
	require.NoError(t, err)
	noteRes, err := svc.AddNote(ctx, "a note", c.ID, "")
	require.NoError(t, err)
	_, err = svc.SetEvidenceMeta(ctx, ev.Evidence.ID, "k", "v")
	require.NoError(t, err)
	_, err = svc.SetActive(ctx, c.ID, "")
	require.NoError(t, err)
	require.NoError(t, svc.ClearActive(ctx))
	_, _, err = svc.DeleteNote(ctx, noteRes.Note.ID)
	require.NoError(t, err)
	_, _, err = svc.DeleteEvidence(ctx, ev.Evidence.ID)
	require.NoError(t, err)
	_, err = svc.DeleteCase(ctx, c.ID)
	require.NoError(t, err)
	require.NoError(t, svc.Seed(ctx, false))
	require.NoError(t, svc.StartFresh(ctx))

	entries, err := auditLog.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 11)

	actions := make(map[string]int)
	for _, e := range entries {
		actions[e.Action]++
	}
	assert.Equal(t, 1, actions[audit.ActionNoteAdded])
	assert.Equal(t, 1, actions[audit.ActionStoreSeeded])
	assert.Equal(t, 2, actions[audit.ActionContextChanged])
}
