package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casetrace/trace-console/internal/extract"
)

func TestTagAndIOCCountsScoping(t *testing.T) {
	now := time.Now().UTC()

	c1 := NewCase("C-100", "beacon hunt", "alice")
	c1.Notes = append(c1.Notes,
		NewNote(now, "#malware beacon to 10.0.0.8"),
		NewNote(now.Add(time.Minute), "#malware second beacon to 10.0.0.8"),
	)
	pcap := NewEvidence("Gateway PCAP", "capture from the edge router")
	pcap.Notes = append(pcap.Notes, NewNote(now.Add(2*time.Minute), "#malware confirmed in capture, same host 10.0.0.8"))
	c1.Evidence = append(c1.Evidence, pcap)

	c2 := NewCase("C-200", "phish triage", "bob")
	c2.Notes = append(c2.Notes, NewNote(now.Add(3*time.Minute), "#phishing mail from sender@evil-mail.com"))

	tree := &Tree{Cases: []Case{c1, c2}}
	tc1 := &tree.Cases[0]
	tc2 := &tree.Cases[1]

	all := tree.TagCounts(nil, nil)
	require.Len(t, all, 2)
	assert.Equal(t, extract.ValueCount{Value: "malware", Count: 3}, all[0])
	assert.Equal(t, extract.ValueCount{Value: "phishing", Count: 1}, all[1])

	scoped := tree.TagCounts(tc2, nil)
	require.Len(t, scoped, 1)
	assert.Equal(t, "phishing", scoped[0].Value)

	evScoped := tree.TagCounts(tc1, &tc1.Evidence[0])
	require.Len(t, evScoped, 1)
	assert.Equal(t, extract.ValueCount{Value: "malware", Count: 1}, evScoped[0])

	iocs := tree.IOCCounts(nil, nil)
	require.Len(t, iocs, 2)
	assert.Equal(t, extract.ValueCount{Value: "10.0.0.8", Count: 3, Typ: extract.TypeIPv4}, iocs[0])
	assert.Equal(t, extract.ValueCount{Value: "sender@evil-mail.com", Count: 1, Typ: extract.TypeEmail}, iocs[1])
}

func TestNoteLookupByTagAndIOC(t *testing.T) {
	now := time.Now().UTC()

	c1 := NewCase("C-100", "beacon hunt", "alice")
	c1.Notes = append(c1.Notes,
		NewNote(now, "#malware beacon to 10.0.0.8"),
		NewNote(now.Add(time.Minute), "routine check, nothing found"),
	)
	c2 := NewCase("C-200", "phish triage", "bob")
	c2.Notes = append(c2.Notes, NewNote(now.Add(2*time.Minute), "#phishing callback to 10.0.0.8 as well"))

	tree := &Tree{Cases: []Case{c1, c2}}

	byIOC := tree.NotesByIOC(nil, nil, "10.0.0.8")
	require.Len(t, byIOC, 2)
	assert.Equal(t, "C-100", byIOC[0].Case.Number)
	assert.Equal(t, "C-200", byIOC[1].Case.Number)

	byTag := tree.NotesByTag(nil, nil, "phishing")
	require.Len(t, byTag, 1)
	assert.Equal(t, "C-200", byTag[0].Case.Number)
	assert.Contains(t, byTag[0].Note.Content, "callback")

	scoped := tree.NotesByIOC(&tree.Cases[0], nil, "10.0.0.8")
	require.Len(t, scoped, 1)
	assert.Equal(t, "C-100", scoped[0].Case.Number)
}
