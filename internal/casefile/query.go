package casefile

import (
	"github.com/casetrace/trace-console/internal/extract"
	"github.com/casetrace/trace-console/internal/store"
)

// Scope selects which notes a query covers. All wins over the references;
// with nothing set the active context decides, degrading to the whole tree
// when no context is live.
type Scope struct {
	All         bool
	CaseRef     string
	EvidenceRef string
}

// Aggregate is a set of counted values plus the scope they were counted
// over. A nil Case means the whole tree.
type Aggregate struct {
	Counts   []extract.ValueCount
	Case     *store.Case
	Evidence *store.Evidence
}

// Snapshot loads the current tree for read-only callers.
func (s *Service) Snapshot() (*store.Tree, error) {
	return s.store.Load()
}

// ActiveContext exposes the persisted context pointer.
func (s *Service) ActiveContext() store.Context {
	return s.store.ActiveContext()
}

// TagCounts aggregates stored tags over the scope.
func (s *Service) TagCounts(sc Scope) (Aggregate, error) {
	tree, err := s.store.Load()
	if err != nil {
		return Aggregate{}, err
	}
	c, e, err := s.resolveScope(tree, sc)
	if err != nil {
		return Aggregate{}, err
	}
	return Aggregate{Counts: tree.TagCounts(c, e), Case: c, Evidence: e}, nil
}

// IndicatorCounts aggregates stored IOCs over the scope.
func (s *Service) IndicatorCounts(sc Scope) (Aggregate, error) {
	tree, err := s.store.Load()
	if err != nil {
		return Aggregate{}, err
	}
	c, e, err := s.resolveScope(tree, sc)
	if err != nil {
		return Aggregate{}, err
	}
	return Aggregate{Counts: tree.IOCCounts(c, e), Case: c, Evidence: e}, nil
}

// ListByTag returns the notes in scope carrying the tag.
func (s *Service) ListByTag(sc Scope, tag string) ([]store.NoteRef, error) {
	tree, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	c, e, err := s.resolveScope(tree, sc)
	if err != nil {
		return nil, err
	}
	return tree.NotesByTag(c, e, tag), nil
}

// ListByIOC returns the notes in scope whose stored indicators include the
// value.
func (s *Service) ListByIOC(sc Scope, value string) ([]store.NoteRef, error) {
	tree, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	c, e, err := s.resolveScope(tree, sc)
	if err != nil {
		return nil, err
	}
	return tree.NotesByIOC(c, e, value), nil
}

// resolveScope maps a Scope onto (case, evidence) pointers in the tree. Read
// paths never clean a stale context; they just fall back to whatever level
// still resolves.
func (s *Service) resolveScope(tree *store.Tree, sc Scope) (*store.Case, *store.Evidence, error) {
	if sc.All {
		return nil, nil, nil
	}
	if sc.EvidenceRef != "" {
		ref, err := resolveEvidence(tree, sc.EvidenceRef)
		if err != nil {
			return nil, nil, err
		}
		return ref.Case, ref.Evidence, nil
	}
	if sc.CaseRef != "" {
		c, err := resolveCase(tree, sc.CaseRef)
		if err != nil {
			return nil, nil, err
		}
		return c, nil, nil
	}
	resolved, _, _ := store.Resolve(tree, s.store.ActiveContext())
	return resolved.Case, resolved.Evidence, nil
}
