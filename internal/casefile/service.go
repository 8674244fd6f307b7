// Package casefile is the operation layer behind both the CLI and the TUI.
// Every mutation goes through it, so each one gets the same treatment: the
// lock-bracketed store commit, a chain-of-custody audit entry, and an
// activity event. Audit and bus writes are best-effort and never fail the
// primary operation.
package casefile

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/casetrace/trace-console/internal/audit"
	"github.com/casetrace/trace-console/internal/bus"
	"github.com/casetrace/trace-console/internal/fingerprint"
	"github.com/casetrace/trace-console/internal/store"
)

// Service ties the store, signer, audit log, and activity bus together.
type Service struct {
	store  *store.Store
	signer *fingerprint.Signer
	audit  *audit.Log
	bus    bus.Bus
	logger *log.Logger
}

// New assembles a service. auditLog may be nil (auditing skipped); a nil bus
// or signer is replaced with the no-op bus and a default gpg signer.
func New(st *store.Store, signer *fingerprint.Signer, auditLog *audit.Log, activityBus bus.Bus, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if signer == nil {
		signer = fingerprint.NewSigner("", 0, logger)
	}
	if activityBus == nil {
		activityBus = bus.NewNullBus(logger)
	}
	return &Service{
		store:  st,
		signer: signer,
		audit:  auditLog,
		bus:    activityBus,
		logger: logger,
	}
}

// Store exposes the underlying store for callers that watch or read directly.
func (s *Service) Store() *store.Store { return s.store }

// Signer exposes the signing backend, used by the setup wizard.
func (s *Service) Signer() *fingerprint.Signer { return s.signer }

// record appends an audit entry and mirrors an activity event. Both are
// best-effort: failures are logged and the committed operation stands.
func (s *Service) record(ctx context.Context, entry audit.Entry, ev bus.Event) {
	if s.audit != nil {
		if err := s.audit.Append(ctx, entry); err != nil {
			s.logger.Printf("audit append failed: %v", err)
		}
	}
	if ev.Type != "" {
		if ev.Actor == "" {
			ev.Actor = audit.CurrentActor()
		}
		if err := s.bus.Publish(ctx, ev); err != nil {
			s.logger.Printf("activity publish failed: %v", err)
		}
	}
}

// CreateCase adds a new empty case.
func (s *Service) CreateCase(ctx context.Context, number, name, investigator string) (store.Case, error) {
	if strings.TrimSpace(number) == "" {
		return store.Case{}, fmt.Errorf("case number is required")
	}
	c := store.NewCase(number, name, investigator)
	err := s.store.Mutate(func(tree *store.Tree) error {
		tree.Cases = append(tree.Cases, c)
		return nil
	})
	if err != nil {
		return store.Case{}, err
	}

	s.record(ctx, audit.Entry{
		Action:     audit.ActionCaseCreated,
		EntityType: "case",
		EntityID:   c.ID,
		CaseID:     c.ID,
		Details:    map[string]interface{}{"case_number": c.Number, "name": c.Name},
	}, bus.Event{
		Type:     bus.EventCaseCreated,
		CaseID:   c.ID,
		EntityID: c.ID,
		Summary:  c.Number,
	})
	return c, nil
}

// AddEvidenceResult reports where new evidence landed.
type AddEvidenceResult struct {
	Evidence   store.Evidence
	CaseID     string
	CaseNumber string
	Warnings   []string
}

// AddEvidence attaches a new evidence item to the referenced case, or to the
// active case when no reference is given.
func (s *Service) AddEvidence(ctx context.Context, caseRef, name, description string) (AddEvidenceResult, error) {
	var res AddEvidenceResult
	if strings.TrimSpace(name) == "" {
		return res, fmt.Errorf("evidence name is required")
	}
	e := store.NewEvidence(name, description)
	err := s.store.Mutate(func(tree *store.Tree) error {
		c, warnings, err := s.resolveCaseOrActive(tree, caseRef)
		if err != nil {
			return err
		}
		res.Warnings = warnings
		res.CaseID = c.ID
		res.CaseNumber = c.Number
		c.Evidence = append(c.Evidence, e)
		return nil
	})
	if err != nil {
		return res, err
	}
	res.Evidence = e

	s.record(ctx, audit.Entry{
		Action:     audit.ActionEvidenceAdded,
		EntityType: "evidence",
		EntityID:   e.ID,
		CaseID:     res.CaseID,
		Details:    map[string]interface{}{"name": e.Name},
	}, bus.Event{
		Type:     bus.EventEvidenceAdded,
		CaseID:   res.CaseID,
		EntityID: e.ID,
		Summary:  e.Name,
	})
	return res, nil
}

// EvidenceMetaResult identifies the evidence whose metadata changed.
type EvidenceMetaResult struct {
	EvidenceID   string
	EvidenceName string
	CaseID       string
}

// SetEvidenceMeta sets one metadata key on an evidence item. This is the one
// sanctioned mutation of an existing entity.
func (s *Service) SetEvidenceMeta(ctx context.Context, evidenceRef, key, value string) (EvidenceMetaResult, error) {
	var res EvidenceMetaResult
	if strings.TrimSpace(key) == "" {
		return res, fmt.Errorf("metadata key is required")
	}
	err := s.store.Mutate(func(tree *store.Tree) error {
		ref, err := resolveEvidence(tree, evidenceRef)
		if err != nil {
			return err
		}
		if ref.Evidence.Metadata == nil {
			ref.Evidence.Metadata = map[string]string{}
		}
		ref.Evidence.Metadata[key] = value
		res = EvidenceMetaResult{
			EvidenceID:   ref.Evidence.ID,
			EvidenceName: ref.Evidence.Name,
			CaseID:       ref.Case.ID,
		}
		return nil
	})
	if err != nil {
		return res, err
	}

	s.record(ctx, audit.Entry{
		Action:     audit.ActionEvidenceMetaSet,
		EntityType: "evidence",
		EntityID:   res.EvidenceID,
		CaseID:     res.CaseID,
		Details:    map[string]interface{}{"key": key},
	}, bus.Event{})
	return res, nil
}

// AddNoteResult reports where a note landed and any conditions the caller
// should surface: a stale context that was cleaned, or a skipped signature.
type AddNoteResult struct {
	Note         store.Note
	CaseNumber   string
	EvidenceName string
	Warnings     []string
}

// AddNote creates, fingerprints, optionally signs, and commits one note.
// Explicit references override the active context and leave it untouched.
// The signature covers the fingerprint; signing failure never blocks the
// commit, the note is stored unsigned and the skip becomes a warning.
func (s *Service) AddNote(ctx context.Context, content, caseRef, evidenceRef string) (AddNoteResult, error) {
	var res AddNoteResult
	if strings.TrimSpace(content) == "" {
		return res, fmt.Errorf("note content is empty")
	}

	tree, err := s.store.Load()
	if err != nil {
		return res, err
	}
	tgt, warnings, err := s.resolveTarget(tree, caseRef, evidenceRef)
	res.Warnings = warnings
	if err != nil {
		return res, err
	}
	res.CaseNumber = tgt.caseNumber
	res.EvidenceName = tgt.evidenceName

	note := store.NewNote(time.Now().UTC(), content)

	// Signing happens before the store lock is taken; a slow gpg call must
	// not stall other writers.
	settings := s.store.Settings()
	if settings.SigningOn() {
		sig, signErr := s.signer.Sign(ctx, note.Hash, settings.SigningKey)
		if signErr != nil {
			res.Warnings = append(res.Warnings, "signing unavailable, note saved without signature")
			s.logger.Printf("note %s saved unsigned: %v", note.ID, signErr)
		} else {
			note.Signature = sig
		}
	}

	err = s.store.Mutate(func(tree *store.Tree) error {
		c := tree.FindCase(tgt.caseID)
		if c == nil {
			return fmt.Errorf("%w: case %s", store.ErrNotFound, shortID(tgt.caseID))
		}
		if tgt.evidenceID != "" {
			e := c.FindEvidence(tgt.evidenceID)
			if e == nil {
				return fmt.Errorf("%w: evidence %s", store.ErrNotFound, shortID(tgt.evidenceID))
			}
			e.Notes = append(e.Notes, note)
			return nil
		}
		c.Notes = append(c.Notes, note)
		return nil
	})
	if err != nil {
		return res, err
	}
	res.Note = note

	s.record(ctx, audit.Entry{
		Action:     audit.ActionNoteAdded,
		EntityType: "note",
		EntityID:   note.ID,
		CaseID:     tgt.caseID,
		Details: map[string]interface{}{
			"evidence_id": tgt.evidenceID,
			"tags":        note.Tags,
			"ioc_count":   len(note.IOCs),
			"signed":      note.Signature != "",
		},
	}, bus.Event{
		Type:     bus.EventNoteAdded,
		CaseID:   tgt.caseID,
		EntityID: note.ID,
		Summary:  firstLine(note.Content),
	})
	return res, nil
}

// DeleteCase removes a case with everything under it.
func (s *Service) DeleteCase(ctx context.Context, caseRef string) (store.Case, error) {
	var deleted store.Case
	err := s.store.Mutate(func(tree *store.Tree) error {
		c, err := resolveCase(tree, caseRef)
		if err != nil {
			return err
		}
		deleted = *c
		tree.DeleteCase(c.ID)
		return nil
	})
	if err != nil {
		return store.Case{}, err
	}

	s.record(ctx, audit.Entry{
		Action:     audit.ActionCaseDeleted,
		EntityType: "case",
		EntityID:   deleted.ID,
		CaseID:     deleted.ID,
		Details:    map[string]interface{}{"case_number": deleted.Number, "notes_removed": deleted.NoteCount()},
	}, bus.Event{
		Type:     bus.EventCaseDeleted,
		CaseID:   deleted.ID,
		EntityID: deleted.ID,
		Summary:  deleted.Number,
	})
	return deleted, nil
}

// DeleteEvidence removes an evidence item and its notes, reporting the
// owning case ID.
func (s *Service) DeleteEvidence(ctx context.Context, evidenceRef string) (store.Evidence, string, error) {
	var deleted store.Evidence
	var caseID string
	err := s.store.Mutate(func(tree *store.Tree) error {
		ref, err := resolveEvidence(tree, evidenceRef)
		if err != nil {
			return err
		}
		deleted = *ref.Evidence
		caseID, _ = tree.DeleteEvidence(ref.Evidence.ID)
		return nil
	})
	if err != nil {
		return store.Evidence{}, "", err
	}

	s.record(ctx, audit.Entry{
		Action:     audit.ActionEvidenceDeleted,
		EntityType: "evidence",
		EntityID:   deleted.ID,
		CaseID:     caseID,
		Details:    map[string]interface{}{"name": deleted.Name, "notes_removed": len(deleted.Notes)},
	}, bus.Event{
		Type:     bus.EventEvidenceDeleted,
		CaseID:   caseID,
		EntityID: deleted.ID,
		Summary:  deleted.Name,
	})
	return deleted, caseID, nil
}

// DeleteNote removes one note by exact ID, reporting the owning case ID.
func (s *Service) DeleteNote(ctx context.Context, noteID string) (store.Note, string, error) {
	var deleted store.Note
	var caseID string
	err := s.store.Mutate(func(tree *store.Tree) error {
		ref, ok := tree.FindNote(noteID)
		if !ok {
			return fmt.Errorf("%w: note %s", store.ErrNotFound, shortID(noteID))
		}
		deleted = *ref.Note
		caseID, _ = tree.DeleteNote(deleted.ID)
		return nil
	})
	if err != nil {
		return store.Note{}, "", err
	}

	s.record(ctx, audit.Entry{
		Action:     audit.ActionNoteDeleted,
		EntityType: "note",
		EntityID:   deleted.ID,
		CaseID:     caseID,
	}, bus.Event{})
	return deleted, caseID, nil
}

// ActiveResult names the context that was just set.
type ActiveResult struct {
	Context      store.Context
	CaseNumber   string
	EvidenceName string
}

// SetActive points the persisted context at a case, optionally narrowed to
// one of its evidence items.
func (s *Service) SetActive(ctx context.Context, caseRef, evidenceRef string) (ActiveResult, error) {
	var res ActiveResult
	tree, err := s.store.Load()
	if err != nil {
		return res, err
	}
	c, err := resolveCase(tree, caseRef)
	if err != nil {
		return res, err
	}
	res.CaseNumber = c.Number

	evidenceID := ""
	if evidenceRef != "" {
		e, err := resolveEvidenceIn(c, evidenceRef)
		if err != nil {
			return res, err
		}
		evidenceID = e.ID
		res.EvidenceName = e.Name
	}

	if err := s.store.SetActive(c.ID, evidenceID); err != nil {
		return res, err
	}
	res.Context = store.Context{CaseID: c.ID, EvidenceID: evidenceID}

	s.record(ctx, audit.Entry{
		Action:     audit.ActionContextChanged,
		EntityType: "context",
		CaseID:     c.ID,
		Details:    map[string]interface{}{"case_id": c.ID, "evidence_id": evidenceID},
	}, bus.Event{
		Type:     bus.EventContextChanged,
		CaseID:   c.ID,
		EntityID: evidenceID,
		Summary:  c.Number,
	})
	return res, nil
}

// ClearActive empties the persisted context.
func (s *Service) ClearActive(ctx context.Context) error {
	if err := s.store.ClearActive(); err != nil {
		return err
	}
	s.record(ctx, audit.Entry{
		Action:     audit.ActionContextChanged,
		EntityType: "context",
		Details:    map[string]interface{}{"cleared": true},
	}, bus.Event{
		Type:    bus.EventContextChanged,
		Summary: "cleared",
	})
	return nil
}

// UpdateSettings persists the signing settings and records the change.
func (s *Service) UpdateSettings(ctx context.Context, st store.Settings) error {
	if err := s.store.SaveSettings(st); err != nil {
		return err
	}
	s.record(ctx, audit.Entry{
		Action:     audit.ActionSettingsChanged,
		EntityType: "settings",
		Details: map[string]interface{}{
			"signing_enabled": st.SigningOn(),
			"signing_key":     st.SigningKey,
		},
	}, bus.Event{})
	return nil
}

// Seed installs the demo case.
func (s *Service) Seed(ctx context.Context, force bool) error {
	if err := s.store.Seed(force); err != nil {
		return err
	}
	s.record(ctx, audit.Entry{
		Action:     audit.ActionStoreSeeded,
		EntityType: "store",
		Details:    map[string]interface{}{"force": force},
	}, bus.Event{})
	return nil
}

// StartFresh replaces the store with an empty tree, the recovery path after
// corruption. Confirmation is owned by the caller.
func (s *Service) StartFresh(ctx context.Context) error {
	if err := s.store.StartFresh(); err != nil {
		return err
	}
	s.record(ctx, audit.Entry{
		Action:     audit.ActionStoreReset,
		EntityType: "store",
		Details:    map[string]interface{}{"mode": "start_fresh"},
	}, bus.Event{})
	return nil
}

// noteTarget is the resolved attachment point for a new note.
type noteTarget struct {
	caseID       string
	caseNumber   string
	evidenceID   string
	evidenceName string
}

// resolveTarget picks where a new note attaches. Explicit references win and
// never touch the persisted context; otherwise the active context is
// consulted and a stale pointer is cleaned to the nearest valid level, with
// the cleanup reported as a warning.
func (s *Service) resolveTarget(tree *store.Tree, caseRef, evidenceRef string) (noteTarget, []string, error) {
	if evidenceRef != "" {
		ref, err := resolveEvidence(tree, evidenceRef)
		if err != nil {
			return noteTarget{}, nil, err
		}
		if caseRef != "" {
			c, err := resolveCase(tree, caseRef)
			if err != nil {
				return noteTarget{}, nil, err
			}
			if c.ID != ref.Case.ID {
				return noteTarget{}, nil, fmt.Errorf("evidence %q belongs to case %s, not %s", evidenceRef, ref.Case.Number, c.Number)
			}
		}
		return noteTarget{
			caseID:       ref.Case.ID,
			caseNumber:   ref.Case.Number,
			evidenceID:   ref.Evidence.ID,
			evidenceName: ref.Evidence.Name,
		}, nil, nil
	}

	if caseRef != "" {
		c, err := resolveCase(tree, caseRef)
		if err != nil {
			return noteTarget{}, nil, err
		}
		return noteTarget{caseID: c.ID, caseNumber: c.Number}, nil, nil
	}

	var warnings []string
	resolved, cleaned, err := store.Resolve(tree, s.store.ActiveContext())
	if err != nil {
		warnings = append(warnings, err.Error())
		if setErr := s.store.SetActive(cleaned.CaseID, cleaned.EvidenceID); setErr != nil {
			s.logger.Printf("failed to persist cleaned context: %v", setErr)
		}
	}
	if resolved.Case == nil {
		return noteTarget{}, warnings, fmt.Errorf("no active case: select one with 'use' or in the TUI")
	}
	tgt := noteTarget{caseID: resolved.Case.ID, caseNumber: resolved.Case.Number}
	if resolved.Evidence != nil {
		tgt.evidenceID = resolved.Evidence.ID
		tgt.evidenceName = resolved.Evidence.Name
	}
	return tgt, warnings, nil
}

// resolveCaseOrActive resolves an explicit case reference, or falls back to
// the active context with the same stale-cleanup behavior as resolveTarget.
func (s *Service) resolveCaseOrActive(tree *store.Tree, caseRef string) (*store.Case, []string, error) {
	if caseRef != "" {
		c, err := resolveCase(tree, caseRef)
		return c, nil, err
	}
	var warnings []string
	resolved, cleaned, err := store.Resolve(tree, s.store.ActiveContext())
	if err != nil {
		warnings = append(warnings, err.Error())
		if setErr := s.store.SetActive(cleaned.CaseID, cleaned.EvidenceID); setErr != nil {
			s.logger.Printf("failed to persist cleaned context: %v", setErr)
		}
	}
	if resolved.Case == nil {
		return nil, warnings, fmt.Errorf("no active case: select one with 'use' or in the TUI")
	}
	return resolved.Case, warnings, nil
}

// resolveCase matches a user-supplied case reference, demanding exactly one
// hit.
func resolveCase(tree *store.Tree, ref string) (*store.Case, error) {
	matches := tree.MatchCase(ref)
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return nil, fmt.Errorf("%w: case %q", store.ErrNotFound, ref)
	default:
		ids := make([]string, 0, len(matches))
		for _, m := range matches {
			ids = append(ids, shortID(m.ID))
		}
		return nil, fmt.Errorf("case reference %q is ambiguous, matches %s", ref, strings.Join(ids, ", "))
	}
}

// resolveEvidence matches a user-supplied evidence reference anywhere in the
// tree, demanding exactly one hit.
func resolveEvidence(tree *store.Tree, ref string) (store.EvidenceRef, error) {
	matches := tree.MatchEvidence(ref)
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return store.EvidenceRef{}, fmt.Errorf("%w: evidence %q", store.ErrNotFound, ref)
	default:
		ids := make([]string, 0, len(matches))
		for _, m := range matches {
			ids = append(ids, shortID(m.Evidence.ID))
		}
		return store.EvidenceRef{}, fmt.Errorf("evidence reference %q is ambiguous, matches %s", ref, strings.Join(ids, ", "))
	}
}

// resolveEvidenceIn matches an evidence reference within one case: exact ID,
// then an ID prefix of at least four characters.
func resolveEvidenceIn(c *store.Case, ref string) (*store.Evidence, error) {
	if e := c.FindEvidence(ref); e != nil {
		return e, nil
	}
	var matches []*store.Evidence
	if len(ref) >= 4 {
		for i := range c.Evidence {
			if strings.HasPrefix(c.Evidence[i].ID, ref) {
				matches = append(matches, &c.Evidence[i])
			}
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return nil, fmt.Errorf("%w: evidence %q in case %s", store.ErrNotFound, ref, c.Number)
	default:
		ids := make([]string, 0, len(matches))
		for _, m := range matches {
			ids = append(ids, shortID(m.ID))
		}
		return nil, fmt.Errorf("evidence reference %q is ambiguous, matches %s", ref, strings.Join(ids, ", "))
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 80 {
		s = s[:80]
	}
	return s
}
