package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchCaseResolution(t *testing.T) {
	tree := &Tree{}
	a := NewCase("CASE-7", "alpha", "i")
	b := NewCase("CASE-8", "beta", "i")
	tree.Cases = append(tree.Cases, a, b)

	// Exact ID wins outright
	got := tree.MatchCase(a.ID)
	require.Len(t, got, 1)
	assert.Equal(t, a.ID, got[0].ID)

	// Case number
	got = tree.MatchCase("CASE-8")
	require.Len(t, got, 1)
	assert.Equal(t, b.ID, got[0].ID)

	// ID prefix
	got = tree.MatchCase(a.ID[:8])
	require.Len(t, got, 1)
	assert.Equal(t, a.ID, got[0].ID)

	// Too-short prefixes and empty queries match nothing
	assert.Empty(t, tree.MatchCase(a.ID[:3]))
	assert.Empty(t, tree.MatchCase(""))

	// Duplicate case numbers are reported as ambiguous, not resolved
	dup := NewCase("CASE-7", "gamma", "i")
	tree.Cases = append(tree.Cases, dup)
	assert.Len(t, tree.MatchCase("CASE-7"), 2)
}

func TestMatchEvidenceResolution(t *testing.T) {
	tree := &Tree{}
	c := NewCase("C-1", "case", "i")
	ev := NewEvidence("drive", "")
	c.Evidence = append(c.Evidence, ev)
	tree.Cases = append(tree.Cases, c)

	got := tree.MatchEvidence(ev.ID)
	require.Len(t, got, 1)
	assert.Equal(t, ev.ID, got[0].Evidence.ID)
	assert.Equal(t, c.ID, got[0].Case.ID)

	got = tree.MatchEvidence(ev.ID[:8])
	require.Len(t, got, 1)
	assert.Equal(t, ev.ID, got[0].Evidence.ID)

	assert.Empty(t, tree.MatchEvidence("unknown-evidence"))
}

func TestCascadingDeletes(t *testing.T) {
	tree := &Tree{}
	c := NewCase("C-1", "case", "i")
	ev := NewEvidence("drive", "")
	ev.Notes = append(ev.Notes, NewNote(time.Now(), "evidence note"))
	c.Evidence = append(c.Evidence, ev)
	c.Notes = append(c.Notes, NewNote(time.Now(), "case note"))
	tree.Cases = append(tree.Cases, c)

	assert.Equal(t, 2, tree.Cases[0].NoteCount())

	// Note delete reports the owning case
	noteID := tree.Cases[0].Evidence[0].Notes[0].ID
	caseID, ok := tree.DeleteNote(noteID)
	require.True(t, ok)
	assert.Equal(t, c.ID, caseID)
	assert.Empty(t, tree.Cases[0].Evidence[0].Notes)

	// Evidence delete takes its notes with it
	evID := tree.Cases[0].Evidence[0].ID
	caseID, ok = tree.DeleteEvidence(evID)
	require.True(t, ok)
	assert.Equal(t, c.ID, caseID)
	assert.Empty(t, tree.Cases[0].Evidence)

	// Case delete removes the rest
	require.True(t, tree.DeleteCase(c.ID))
	assert.Empty(t, tree.Cases)

	// Unknown IDs report absence
	_, ok = tree.DeleteNote("nope")
	assert.False(t, ok)
	assert.False(t, tree.DeleteCase("nope"))
}

func TestNewNoteComputesEverythingOnce(t *testing.T) {
	ts := time.Now().UTC()
	n := NewNote(ts, "c2 at 10.0.0.8 #triage")

	assert.NotEmpty(t, n.ID)
	assert.Len(t, n.Hash, 64)
	assert.Equal(t, []string{"triage"}, n.Tags)
	require.Len(t, n.IOCs, 1)
	assert.Equal(t, "10.0.0.8", n.IOCs[0].Value)

	// Same inputs, same fingerprint; the ID differs.
	again := NewNote(ts, "c2 at 10.0.0.8 #triage")
	assert.Equal(t, n.Hash, again.Hash)
	assert.NotEqual(t, n.ID, again.ID)

	// Notes without tags or IOCs still carry empty, non-nil lists so the
	// persisted document shape stays stable.
	plain := NewNote(ts, "nothing to extract here")
	assert.NotNil(t, plain.Tags)
	assert.NotNil(t, plain.IOCs)
	assert.Empty(t, plain.Tags)
	assert.Empty(t, plain.IOCs)
}
