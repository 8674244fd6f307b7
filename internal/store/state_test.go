package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActiveContextRoundTrip(t *testing.T) {
	s := newTestStore(t)
	assert.True(t, s.ActiveContext().IsZero())

	require.NoError(t, s.SetActive("case-1", "ev-1"))
	ctx := s.ActiveContext()
	assert.Equal(t, "case-1", ctx.CaseID)
	assert.Equal(t, "ev-1", ctx.EvidenceID)

	require.NoError(t, s.ClearActive())
	assert.True(t, s.ActiveContext().IsZero())
}

func TestSettingsFirstRunDetection(t *testing.T) {
	s := newTestStore(t)

	st := s.Settings()
	assert.False(t, st.Configured(), "missing settings file means the wizard has not run")
	assert.True(t, st.SigningOn(), "signing defaults to on")
	assert.Empty(t, st.SigningKey)

	require.NoError(t, s.SaveSettings(st.WithSigning(false)))
	st = s.Settings()
	assert.True(t, st.Configured())
	assert.False(t, st.SigningOn())

	st = st.WithSigning(true)
	st.SigningKey = "ABCD1234"
	require.NoError(t, s.SaveSettings(st))
	st = s.Settings()
	assert.True(t, st.SigningOn())
	assert.Equal(t, "ABCD1234", st.SigningKey)
}

func TestResolveStaleRules(t *testing.T) {
	tree := &Tree{}
	c := NewCase("CASE-1", "case", "inv")
	e := NewEvidence("drive", "")
	c.Evidence = append(c.Evidence, e)
	tree.Cases = append(tree.Cases, c)

	// Valid case plus evidence resolves fully.
	res, cleaned, err := Resolve(tree, Context{CaseID: c.ID, EvidenceID: e.ID})
	require.NoError(t, err)
	require.NotNil(t, res.Case)
	require.NotNil(t, res.Evidence)
	assert.Equal(t, Context{CaseID: c.ID, EvidenceID: e.ID}, cleaned)

	// Empty context is "no target", not stale.
	res, _, err = Resolve(tree, Context{})
	require.NoError(t, err)
	assert.Nil(t, res.Case)

	// Missing case clears everything.
	_, cleaned, err = Resolve(tree, Context{CaseID: "gone", EvidenceID: e.ID})
	assert.ErrorIs(t, err, ErrStaleContext)
	assert.True(t, cleaned.IsZero())

	// Missing evidence with a live case clears to case level and still hands
	// back the case so the caller can continue there.
	res, cleaned, err = Resolve(tree, Context{CaseID: c.ID, EvidenceID: "gone"})
	assert.ErrorIs(t, err, ErrStaleContext)
	assert.Equal(t, Context{CaseID: c.ID}, cleaned)
	require.NotNil(t, res.Case)
	assert.Nil(t, res.Evidence)

	// Evidence without a case is invalid and clears everything.
	_, cleaned, err = Resolve(tree, Context{EvidenceID: e.ID})
	assert.ErrorIs(t, err, ErrStaleContext)
	assert.True(t, cleaned.IsZero())
}

func TestDeletingActiveCaseLeavesDetectableStaleContext(t *testing.T) {
	s := newTestStore(t)

	c := NewCase("CASE-1", "doomed", "i")
	require.NoError(t, s.Mutate(func(tree *Tree) error {
		tree.Cases = append(tree.Cases, c)
		return nil
	}))
	require.NoError(t, s.SetActive(c.ID, ""))

	// Delete never touches the context pointer.
	require.NoError(t, s.Mutate(func(tree *Tree) error {
		tree.DeleteCase(c.ID)
		return nil
	}))
	assert.Equal(t, c.ID, s.ActiveContext().CaseID)

	// The dangling pointer surfaces on the next resolution.
	tree, err := s.Load()
	require.NoError(t, err)
	_, cleaned, err := Resolve(tree, s.ActiveContext())
	assert.ErrorIs(t, err, ErrStaleContext)
	assert.True(t, cleaned.IsZero())
}
