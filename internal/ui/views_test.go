package ui

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderCasesShowsCountsAndActiveMarker(t *testing.T) {
	ui, svc := newTestUI(t)
	ctx := context.Background()

	a, err := svc.CreateCase(ctx, "IR-1", "phishing", "alice")
	require.NoError(t, err)
	_, err = svc.AddNote(ctx, "initial triage", a.ID, "")
	require.NoError(t, err)
	b, err := svc.CreateCase(ctx, "IR-2", "ransomware", "bob")
	require.NoError(t, err)
	_, err = svc.SetActive(ctx, b.ID, "")
	require.NoError(t, err)

	loadState(t, ui)

	require.Equal(t, 2, ui.caseList.GetItemCount())
	assert.Equal(t, b.ID, ui.selectedCaseID, "selection prefers the active context")
	assert.Equal(t, 1, ui.caseList.GetCurrentItem())

	main, secondary := ui.caseList.GetItemText(0)
	assert.Contains(t, main, "IR-1")
	assert.Contains(t, secondary, "1 notes")

	activeMain, _ := ui.caseList.GetItemText(1)
	assert.Contains(t, activeMain, "●")
}

func TestRenderNotesScopesToEvidence(t *testing.T) {
	ui, svc := newTestUI(t)
	ctx := context.Background()

	c, err := svc.CreateCase(ctx, "IR-1", "intrusion", "")
	require.NoError(t, err)
	ev, err := svc.AddEvidence(ctx, c.ID, "laptop", "seized device")
	require.NoError(t, err)
	_, err = svc.AddNote(ctx, "case-level summary", c.ID, "")
	require.NoError(t, err)
	_, err = svc.AddNote(ctx, "beacon from 10.0.0.8", c.ID, ev.Evidence.ID)
	require.NoError(t, err)

	loadState(t, ui)
	require.Len(t, ui.visible, 2, "whole-case scope sees both notes")

	ui.selectedEvidenceID = ev.Evidence.ID
	ui.renderNotes()
	require.Len(t, ui.visible, 1)
	assert.Equal(t, "beacon from 10.0.0.8", ui.visible[0].Note.Content)
	assert.Equal(t, "laptop", ui.whereText(ui.visible[0]))
}

func TestDrillTagFiltersNotes(t *testing.T) {
	ui, svc := newTestUI(t)
	ctx := context.Background()

	c, err := svc.CreateCase(ctx, "IR-1", "", "")
	require.NoError(t, err)
	for _, content := range []string{
		"first sighting #phish",
		"second sighting #phish #spam",
		"unrelated entry",
	} {
		_, err = svc.AddNote(ctx, content, c.ID, "")
		require.NoError(t, err)
	}

	loadState(t, ui)
	require.NotEmpty(t, ui.tagRows)
	assert.Equal(t, "phish", ui.tagRows[0].Value, "most frequent tag first")

	ui.drillTag(1)
	assert.Equal(t, "tag", ui.filter.kind)
	assert.Equal(t, "phish", ui.filter.value)
	assert.Len(t, ui.visible, 2)

	// Out-of-range rows are ignored.
	ui.drillTag(99)
	assert.Equal(t, "phish", ui.filter.value)
}

func TestDrillIOCFiltersNotes(t *testing.T) {
	ui, svc := newTestUI(t)
	ctx := context.Background()

	c, err := svc.CreateCase(ctx, "IR-1", "", "")
	require.NoError(t, err)
	_, err = svc.AddNote(ctx, "callback to 203.0.113.7 observed", c.ID, "")
	require.NoError(t, err)
	_, err = svc.AddNote(ctx, "same host 203.0.113.7 again", c.ID, "")
	require.NoError(t, err)
	_, err = svc.AddNote(ctx, "clean machine", c.ID, "")
	require.NoError(t, err)

	loadState(t, ui)
	require.NotEmpty(t, ui.iocRows)
	assert.Equal(t, "203.0.113.7", ui.iocRows[0].Value)

	ui.drillIOC(1)
	assert.Equal(t, "ioc", ui.filter.kind)
	assert.Len(t, ui.visible, 2)
}

func TestSelectAllNotesSpansCases(t *testing.T) {
	ui, svc := newTestUI(t)
	ctx := context.Background()

	a, err := svc.CreateCase(ctx, "IR-1", "", "")
	require.NoError(t, err)
	_, err = svc.AddNote(ctx, "note in first case", a.ID, "")
	require.NoError(t, err)
	b, err := svc.CreateCase(ctx, "IR-2", "", "")
	require.NoError(t, err)
	_, err = svc.AddNote(ctx, "note in second case", b.ID, "")
	require.NoError(t, err)

	loadState(t, ui)
	require.Len(t, ui.visible, 1, "single-case scope first")

	ui.selectAllNotes()
	assert.True(t, ui.scopeAll)
	assert.Len(t, ui.visible, 2)
	assert.Equal(t, 0, ui.evidenceList.GetItemCount())

	wheres := []string{ui.whereText(ui.visible[0]), ui.whereText(ui.visible[1])}
	assert.Contains(t, wheres, "IR-1")
	assert.Contains(t, wheres, "IR-2")
}

func TestEnsureSelectionFallsBackWhenCaseDeleted(t *testing.T) {
	ui, svc := newTestUI(t)
	ctx := context.Background()

	a, err := svc.CreateCase(ctx, "IR-1", "", "")
	require.NoError(t, err)
	b, err := svc.CreateCase(ctx, "IR-2", "", "")
	require.NoError(t, err)

	loadState(t, ui)
	ui.selectedCaseID = b.ID
	_, err = svc.DeleteCase(ctx, b.ID)
	require.NoError(t, err)

	loadState(t, ui)
	assert.Equal(t, a.ID, ui.selectedCaseID)
}

func TestValidateActiveContextRepairsStaleEvidence(t *testing.T) {
	ui, svc := newTestUI(t)
	ctx := context.Background()

	c, err := svc.CreateCase(ctx, "IR-1", "", "")
	require.NoError(t, err)
	// Write a context pointing at evidence that never existed, bypassing
	// service validation.
	require.NoError(t, svc.Store().SetActive(c.ID, "gone"))

	ui.validateActiveContext()

	active := svc.Store().ActiveContext()
	assert.Equal(t, c.ID, active.CaseID)
	assert.Empty(t, active.EvidenceID)
}

func TestValidateActiveContextClearsDeadCase(t *testing.T) {
	ui, svc := newTestUI(t)

	require.NoError(t, svc.Store().SetActive("no-such-case", ""))

	ui.validateActiveContext()

	assert.True(t, svc.Store().ActiveContext().IsZero())
}

func TestRenderNoteViewShowsMetadata(t *testing.T) {
	ui, svc := newTestUI(t)
	ctx := context.Background()

	c, err := svc.CreateCase(ctx, "IR-1", "workstation compromise", "")
	require.NoError(t, err)
	_, err = svc.AddNote(ctx, "beacon from 10.0.0.8 #malware", c.ID, "")
	require.NoError(t, err)

	loadState(t, ui)
	require.Len(t, ui.visible, 1)

	text := ui.noteView.GetText(true)
	assert.Contains(t, text, "IR-1")
	assert.Contains(t, text, "SHA-256")
	assert.Contains(t, text, "Signature")
	assert.Contains(t, text, "none")
	assert.Contains(t, text, "10.0.0.8")
	assert.Contains(t, text, "#malware")
}

func TestRenderOverviewSummarizesStore(t *testing.T) {
	ui, svc := newTestUI(t)
	ctx := context.Background()

	c, err := svc.CreateCase(ctx, "IR-1", "", "")
	require.NoError(t, err)
	_, err = svc.AddEvidence(ctx, c.ID, "disk image", "")
	require.NoError(t, err)
	_, err = svc.AddNote(ctx, "hash 44d88612fea8a8f36de82e1278abb02f seen #ioc", c.ID, "")
	require.NoError(t, err)

	loadState(t, ui)

	text := ui.overview.GetText(true)
	assert.Contains(t, text, "Cases")
	assert.Contains(t, text, "no active context")
}

func TestTruncateAndExcerpt(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijk", 10))
	assert.Equal(t, "ab", truncate("abcdef", 2))

	assert.Equal(t, "first line", excerpt("first line\nsecond line", 60))
	assert.Equal(t, "padded", excerpt("  padded  \nrest", 60))
}
