package store

import (
	"github.com/casetrace/trace-console/internal/extract"
)

// ScopedNotes gathers note refs for one evidence, one case, or the whole
// tree, in storage order. Pass nils to widen the scope.
func (t *Tree) ScopedNotes(c *Case, e *Evidence) []NoteRef {
	var refs []NoteRef
	if e != nil {
		for ni := range e.Notes {
			refs = append(refs, NoteRef{Note: &e.Notes[ni], Case: c, Evidence: e})
		}
		return refs
	}
	collect := func(c *Case) {
		for ni := range c.Notes {
			refs = append(refs, NoteRef{Note: &c.Notes[ni], Case: c})
		}
		for ei := range c.Evidence {
			ev := &c.Evidence[ei]
			for ni := range ev.Notes {
				refs = append(refs, NoteRef{Note: &ev.Notes[ni], Case: c, Evidence: ev})
			}
		}
	}
	if c != nil {
		collect(c)
		return refs
	}
	for ci := range t.Cases {
		collect(&t.Cases[ci])
	}
	return refs
}

// TagCounts aggregates stored tags over the scope, count descending.
func (t *Tree) TagCounts(c *Case, e *Evidence) []extract.ValueCount {
	refs := t.ScopedNotes(c, e)
	lists := make([][]string, 0, len(refs))
	for _, ref := range refs {
		lists = append(lists, ref.Note.Tags)
	}
	return extract.CountTags(lists...)
}

// IOCCounts aggregates stored indicators over the scope, count descending.
func (t *Tree) IOCCounts(c *Case, e *Evidence) []extract.ValueCount {
	refs := t.ScopedNotes(c, e)
	lists := make([][]extract.Indicator, 0, len(refs))
	for _, ref := range refs {
		lists = append(lists, ref.Note.IOCs)
	}
	return extract.CountIndicators(lists...)
}

// NotesByTag returns every note in the scope carrying the tag. Stored tags
// are already lower case; the query value is matched as given.
func (t *Tree) NotesByTag(c *Case, e *Evidence, tag string) []NoteRef {
	var out []NoteRef
	for _, ref := range t.ScopedNotes(c, e) {
		for _, have := range ref.Note.Tags {
			if have == tag {
				out = append(out, ref)
				break
			}
		}
	}
	return out
}

// NotesByIOC returns every note in the scope whose stored indicators include
// the value, any type.
func (t *Tree) NotesByIOC(c *Case, e *Evidence, value string) []NoteRef {
	var out []NoteRef
	for _, ref := range t.ScopedNotes(c, e) {
		for _, ioc := range ref.Note.IOCs {
			if ioc.Value == value {
				out = append(out, ref)
				break
			}
		}
	}
	return out
}
