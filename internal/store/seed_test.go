package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casetrace/trace-console/internal/extract"
)

func TestSeedInstallsDemoCase(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Seed(false))

	tree, err := s.Load()
	require.NoError(t, err)
	require.Len(t, tree.Cases, 1)

	demo := tree.Cases[0]
	assert.Equal(t, "DEMO-2024-001", demo.Number)
	assert.Equal(t, "Sample Investigation", demo.Name)
	assert.Equal(t, "Demo User", demo.Investigator)
	assert.Len(t, demo.Notes, 2)
	require.Len(t, demo.Evidence, 3)

	laptop := demo.Evidence[0]
	assert.Equal(t, "Employee Laptop HDD", laptop.Name)
	assert.Len(t, laptop.Notes, 4)
	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		laptop.Metadata["source_hash"])
	assert.Equal(t, "Firewall Logs", demo.Evidence[1].Name)
	assert.Equal(t, "Phishing Email", demo.Evidence[2].Name)

	// Every note went through the fingerprint pipeline.
	for _, ref := range tree.ScopedNotes(nil, nil) {
		assert.Len(t, ref.Note.Hash, 64)
		assert.Empty(t, ref.Note.Signature, "demo notes are installed unsigned")
	}

	// The demo content exercises every indicator type.
	seen := map[extract.Type]bool{}
	for _, ref := range tree.ScopedNotes(nil, nil) {
		for _, ioc := range ref.Note.IOCs {
			seen[ioc.Type] = true
		}
	}
	for _, want := range []extract.Type{
		extract.TypeURL, extract.TypeEmail,
		extract.TypeSHA256, extract.TypeSHA1, extract.TypeMD5,
		extract.TypeIPv6, extract.TypeIPv4, extract.TypeDomain,
	} {
		assert.True(t, seen[want], "demo data missing indicator type %s", want)
	}
}

func TestSeedRefusesExistingData(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Mutate(func(tree *Tree) error {
		tree.Cases = append(tree.Cases, NewCase("C-1", "real work", "i"))
		return nil
	}))

	err := s.Seed(false)
	require.Error(t, err)

	// Force appends rather than replacing.
	require.NoError(t, s.Seed(true))
	tree, err := s.Load()
	require.NoError(t, err)
	require.Len(t, tree.Cases, 2)
	assert.Equal(t, "C-1", tree.Cases[0].Number)
	assert.Equal(t, "DEMO-2024-001", tree.Cases[1].Number)
}
