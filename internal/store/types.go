package store

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/casetrace/trace-console/internal/extract"
	"github.com/casetrace/trace-console/internal/fingerprint"
)

// Note is one immutable observation. Hash, tags, and IOCs are computed once
// at creation from the (timestamp, content) pair and stored; nothing
// recomputes them on read.
type Note struct {
	ID        string              `json:"note_id"`
	Content   string              `json:"content"`
	Timestamp time.Time           `json:"timestamp"`
	Hash      string              `json:"content_hash"`
	Signature string              `json:"signature,omitempty"`
	Tags      []string            `json:"tags"`
	IOCs      []extract.Indicator `json:"iocs"`
}

// Evidence is an exhibit owned by exactly one case. Metadata records
// acquisition facts such as a source_hash for chain of custody.
type Evidence struct {
	ID          string            `json:"evidence_id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	Notes       []Note            `json:"notes"`
}

// Case is the top-level container. Number is user-facing metadata and not
// guaranteed unique; ID is.
type Case struct {
	ID           string     `json:"case_id"`
	Number       string     `json:"case_number"`
	Name         string     `json:"name"`
	Investigator string     `json:"investigator"`
	CreatedAt    time.Time  `json:"created_at"`
	Evidence     []Evidence `json:"evidence"`
	Notes        []Note     `json:"notes"`
}

// Tree is the whole persisted document.
type Tree struct {
	Cases []Case `json:"cases"`
}

// NewCase creates an empty case shell.
func NewCase(number, name, investigator string) Case {
	return Case{
		ID:           uuid.NewString(),
		Number:       number,
		Name:         name,
		Investigator: investigator,
		CreatedAt:    time.Now().UTC(),
		Evidence:     []Evidence{},
		Notes:        []Note{},
	}
}

// NewEvidence creates an empty evidence shell.
func NewEvidence(name, description string) Evidence {
	return Evidence{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		Metadata:    map[string]string{},
		CreatedAt:   time.Now().UTC(),
		Notes:       []Note{},
	}
}

// NewNote assembles an immutable note: ID, timestamp, fingerprint, extracted
// tags and IOCs. A signature, when wanted, is attached by the signing layer
// before the note is stored.
func NewNote(ts time.Time, content string) Note {
	return Note{
		ID:        uuid.NewString(),
		Content:   content,
		Timestamp: ts,
		Hash:      fingerprint.Digest(ts, content),
		Tags:      append([]string{}, extract.Tags(content)...),
		IOCs:      append([]extract.Indicator{}, extract.Indicators(content)...),
	}
}

// NoteRef names a note together with its owners; Evidence is nil for
// case-level notes.
type NoteRef struct {
	Note     *Note
	Case     *Case
	Evidence *Evidence
}

// EvidenceRef names evidence together with its owning case.
type EvidenceRef struct {
	Case     *Case
	Evidence *Evidence
}

// FindCase returns a pointer into the tree, or nil.
func (t *Tree) FindCase(id string) *Case {
	for i := range t.Cases {
		if t.Cases[i].ID == id {
			return &t.Cases[i]
		}
	}
	return nil
}

// MatchCase resolves a user-supplied case reference: exact ID first, then
// exact case number, then an ID prefix of at least four characters. Number
// and prefix matches can be ambiguous, so all hits are returned.
func (t *Tree) MatchCase(q string) []*Case {
	if q == "" {
		return nil
	}
	for i := range t.Cases {
		if t.Cases[i].ID == q {
			return []*Case{&t.Cases[i]}
		}
	}
	var matches []*Case
	for i := range t.Cases {
		if t.Cases[i].Number == q {
			matches = append(matches, &t.Cases[i])
		}
	}
	if len(matches) > 0 {
		return matches
	}
	if len(q) >= 4 {
		for i := range t.Cases {
			if strings.HasPrefix(t.Cases[i].ID, q) {
				matches = append(matches, &t.Cases[i])
			}
		}
	}
	return matches
}

// FindEvidence locates evidence by exact ID anywhere in the tree.
func (t *Tree) FindEvidence(id string) (ref EvidenceRef, ok bool) {
	for ci := range t.Cases {
		c := &t.Cases[ci]
		for ei := range c.Evidence {
			if c.Evidence[ei].ID == id {
				return EvidenceRef{Case: c, Evidence: &c.Evidence[ei]}, true
			}
		}
	}
	return EvidenceRef{}, false
}

// MatchEvidence resolves an evidence reference: exact ID, then an ID prefix
// of at least four characters.
func (t *Tree) MatchEvidence(q string) []EvidenceRef {
	if q == "" {
		return nil
	}
	if ref, ok := t.FindEvidence(q); ok {
		return []EvidenceRef{ref}
	}
	var matches []EvidenceRef
	if len(q) >= 4 {
		for ci := range t.Cases {
			c := &t.Cases[ci]
			for ei := range c.Evidence {
				if strings.HasPrefix(c.Evidence[ei].ID, q) {
					matches = append(matches, EvidenceRef{Case: c, Evidence: &c.Evidence[ei]})
				}
			}
		}
	}
	return matches
}

// FindNote locates a note by exact ID anywhere in the tree.
func (t *Tree) FindNote(id string) (ref NoteRef, ok bool) {
	for ci := range t.Cases {
		c := &t.Cases[ci]
		for ni := range c.Notes {
			if c.Notes[ni].ID == id {
				return NoteRef{Note: &c.Notes[ni], Case: c}, true
			}
		}
		for ei := range c.Evidence {
			e := &c.Evidence[ei]
			for ni := range e.Notes {
				if e.Notes[ni].ID == id {
					return NoteRef{Note: &e.Notes[ni], Case: c, Evidence: e}, true
				}
			}
		}
	}
	return NoteRef{}, false
}

// DeleteCase removes the case and, with it, all its evidence and notes.
func (t *Tree) DeleteCase(id string) bool {
	for i := range t.Cases {
		if t.Cases[i].ID == id {
			t.Cases = append(t.Cases[:i], t.Cases[i+1:]...)
			return true
		}
	}
	return false
}

// DeleteEvidence removes the evidence and its notes, reporting the owning
// case ID.
func (t *Tree) DeleteEvidence(id string) (string, bool) {
	for ci := range t.Cases {
		c := &t.Cases[ci]
		for ei := range c.Evidence {
			if c.Evidence[ei].ID == id {
				c.Evidence = append(c.Evidence[:ei], c.Evidence[ei+1:]...)
				return c.ID, true
			}
		}
	}
	return "", false
}

// DeleteNote removes a note wherever it lives, reporting the owning case ID.
func (t *Tree) DeleteNote(id string) (string, bool) {
	for ci := range t.Cases {
		c := &t.Cases[ci]
		for ni := range c.Notes {
			if c.Notes[ni].ID == id {
				c.Notes = append(c.Notes[:ni], c.Notes[ni+1:]...)
				return c.ID, true
			}
		}
		for ei := range c.Evidence {
			e := &c.Evidence[ei]
			for ni := range e.Notes {
				if e.Notes[ni].ID == id {
					e.Notes = append(e.Notes[:ni], e.Notes[ni+1:]...)
					return c.ID, true
				}
			}
		}
	}
	return "", false
}

// FindEvidence returns the case's evidence with the given ID, or nil.
func (c *Case) FindEvidence(id string) *Evidence {
	for i := range c.Evidence {
		if c.Evidence[i].ID == id {
			return &c.Evidence[i]
		}
	}
	return nil
}

// NoteCount counts the case's own notes plus all evidence notes.
func (c *Case) NoteCount() int {
	n := len(c.Notes)
	for i := range c.Evidence {
		n += len(c.Evidence[i].Notes)
	}
	return n
}
