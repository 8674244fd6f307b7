package store

import (
	"encoding/json"
	"fmt"
	"os"
)

// Context points at the case (and optionally evidence) that quick-added
// notes attach to. Evidence implies its owning case.
type Context struct {
	CaseID     string `json:"case_id,omitempty"`
	EvidenceID string `json:"evidence_id,omitempty"`
}

// IsZero reports an empty context.
func (c Context) IsZero() bool { return c.CaseID == "" && c.EvidenceID == "" }

// Settings controls signing behavior. SigningEnabled is a pointer because
// the key being absent from settings.json is what marks a first run.
type Settings struct {
	SigningEnabled *bool  `json:"signing_enabled,omitempty"`
	SigningKey     string `json:"signing_key,omitempty"`
}

// Configured reports whether the first-run wizard has completed.
func (st Settings) Configured() bool { return st.SigningEnabled != nil }

// SigningOn reports whether notes should be signed; the default is on.
func (st Settings) SigningOn() bool {
	return st.SigningEnabled == nil || *st.SigningEnabled
}

// WithSigning returns a copy with the enabled flag set explicitly.
func (st Settings) WithSigning(enabled bool) Settings {
	st.SigningEnabled = &enabled
	return st
}

// ActiveContext reads context.json. Missing or unreadable files degrade to
// an empty context, never an error.
func (s *Store) ActiveContext() Context {
	var ctx Context
	raw, err := os.ReadFile(s.contextPath())
	if err != nil {
		return ctx
	}
	if err := json.Unmarshal(raw, &ctx); err != nil {
		s.logger.Printf("unreadable context file, treating as empty: %v", err)
		return Context{}
	}
	return ctx
}

// SetActive persists the context pointer atomically.
func (s *Store) SetActive(caseID, evidenceID string) error {
	ctx := Context{CaseID: caseID, EvidenceID: evidenceID}
	if err := atomicWriteJSON(s.contextPath(), ctx); err != nil {
		return fmt.Errorf("failed to write context: %w", err)
	}
	return nil
}

// ClearActive empties the context pointer.
func (s *Store) ClearActive() error {
	return s.SetActive("", "")
}

// Settings reads settings.json, degrading to defaults (signing on, no key,
// not yet configured) when the file is missing or unreadable.
func (s *Store) Settings() Settings {
	var st Settings
	raw, err := os.ReadFile(s.settingsPath())
	if err != nil {
		return st
	}
	if err := json.Unmarshal(raw, &st); err != nil {
		s.logger.Printf("unreadable settings file, using defaults: %v", err)
		return Settings{}
	}
	return st
}

// SaveSettings persists the settings document atomically.
func (s *Store) SaveSettings(st Settings) error {
	if err := atomicWriteJSON(s.settingsPath(), st); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}

// Resolved is the target a new note attaches to; Evidence nil means the
// case's own notes.
type Resolved struct {
	Case     *Case
	Evidence *Evidence
}

// Resolve validates ctx against the tree. An empty context resolves to an
// empty target without error. A context referencing a deleted entity returns
// ErrStaleContext along with the cleaned context the caller should persist:
// missing case clears everything, missing evidence with a live case clears
// to case level, evidence without a case is invalid and clears everything.
func Resolve(tree *Tree, ctx Context) (Resolved, Context, error) {
	if ctx.IsZero() {
		return Resolved{}, ctx, nil
	}
	if ctx.CaseID == "" {
		return Resolved{}, Context{}, fmt.Errorf("%w: evidence %s set without a case", ErrStaleContext, ctx.EvidenceID)
	}

	c := tree.FindCase(ctx.CaseID)
	if c == nil {
		return Resolved{}, Context{}, fmt.Errorf("%w: active case %s no longer exists", ErrStaleContext, ctx.CaseID)
	}
	if ctx.EvidenceID == "" {
		return Resolved{Case: c}, ctx, nil
	}

	e := c.FindEvidence(ctx.EvidenceID)
	if e == nil {
		return Resolved{Case: c}, Context{CaseID: ctx.CaseID},
			fmt.Errorf("%w: active evidence %s no longer exists", ErrStaleContext, ctx.EvidenceID)
	}
	return Resolved{Case: c, Evidence: e}, ctx, nil
}
