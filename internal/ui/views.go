package ui

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/casetrace/trace-console/internal/casefile"
	"github.com/casetrace/trace-console/internal/store"
)

// reload takes a fresh snapshot and applies it on the UI goroutine. Safe to
// call from any goroutine; concurrent calls collapse into one.
func (ui *UI) reload() error {
	if !atomic.CompareAndSwapInt32(&ui.reloading, 0, 1) {
		return nil
	}
	defer atomic.StoreInt32(&ui.reloading, 0)

	tree, err := ui.svc.Snapshot()
	if err != nil {
		ui.logger.Printf("snapshot failed: %v", err)
		ui.setStatus("[%s]Load failed: %v[-:-:-]", ui.theme.TagError, err)
		return err
	}
	active := ui.svc.ActiveContext()

	ui.app.QueueUpdateDraw(func() {
		ui.tree = tree
		ui.active = active
		ui.renderAll()
	})
	return nil
}

// renderAll redraws every pane from the current tree. UI goroutine only.
func (ui *UI) renderAll() {
	if ui.tree == nil {
		return
	}
	ui.ensureSelection()
	ui.renderOverview()
	ui.renderCases()
	ui.renderScope()
}

// ensureSelection drops selections that no longer exist after a reload and
// picks a sensible default, preferring the active context.
func (ui *UI) ensureSelection() {
	if ui.selectedCaseID != "" && ui.tree.FindCase(ui.selectedCaseID) == nil {
		ui.selectedCaseID = ""
		ui.selectedEvidenceID = ""
		ui.filter = noteFilter{}
	}
	if ui.selectedCaseID == "" {
		if c := ui.tree.FindCase(ui.active.CaseID); c != nil {
			ui.selectedCaseID = c.ID
			ui.selectedEvidenceID = ui.active.EvidenceID
		} else if len(ui.tree.Cases) > 0 {
			ui.selectedCaseID = ui.tree.Cases[0].ID
		}
	}
	if c := ui.selectedCase(); c != nil && ui.selectedEvidenceID != "" {
		if c.FindEvidence(ui.selectedEvidenceID) == nil {
			ui.selectedEvidenceID = ""
		}
	}
}

func (ui *UI) renderOverview() {
	t := ui.tree
	evidence, notes := 0, 0
	for i := range t.Cases {
		c := &t.Cases[i]
		evidence += len(c.Evidence)
		notes += c.NoteCount()
	}
	tags := len(t.TagCounts(nil, nil))
	iocs := len(t.IOCCounts(nil, nil))

	mut := ui.theme.TagMuted
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]Cases[-]    %d\n", mut, len(t.Cases))
	fmt.Fprintf(&b, "[%s]Evidence[-] %d   [%s]Notes[-] %d\n", mut, evidence, mut, notes)
	fmt.Fprintf(&b, "[%s]Tags[-]     %d   [%s]IOCs[-]  %d\n", mut, tags, mut, iocs)
	b.WriteString(ui.contextLine())
	ui.overview.SetText(b.String())
}

// contextLine describes the persisted active context for the overview pane.
func (ui *UI) contextLine() string {
	res, _, err := store.Resolve(ui.tree, ui.active)
	if err != nil || res.Case == nil {
		return fmt.Sprintf("[%s]no active context[-]", ui.theme.TagMuted)
	}
	loc := res.Case.Number
	if res.Evidence != nil {
		loc += " / " + res.Evidence.Name
	}
	return fmt.Sprintf("[%s]ctx[-] [%s]%s[-]",
		ui.theme.TagMuted, ui.theme.TagSuccess, tview.Escape(truncate(loc, 30)))
}

func (ui *UI) renderCases() {
	ui.rebuilding = true
	ui.caseList.Clear()

	sel := 0
	for i := range ui.tree.Cases {
		c := &ui.tree.Cases[i]
		if c.ID == ui.selectedCaseID {
			sel = i
		}
		main := fmt.Sprintf("[%s]%s[-] %s",
			ui.theme.TagTextPrimary, tview.Escape(c.Number), tview.Escape(truncate(c.Name, 24)))
		if c.ID == ui.active.CaseID {
			main += fmt.Sprintf(" [%s]●[-]", ui.theme.TagSuccess)
		}
		secondary := fmt.Sprintf("  %d notes | %d evidence | %d tags",
			c.NoteCount(), len(c.Evidence), len(ui.tree.TagCounts(c, nil)))
		ui.caseList.AddItem(main, secondary, 0, nil)
	}
	if ui.caseList.GetItemCount() > 0 {
		ui.caseList.SetCurrentItem(sel)
	}
	ui.caseList.SetTitle(fmt.Sprintf(" Cases (%d) ", len(ui.tree.Cases)))
	ui.rebuilding = false
}

// renderScope redraws everything below the case selection.
func (ui *UI) renderScope() {
	ui.renderEvidence()
	ui.renderNotes()
	ui.renderPanels()
}

func (ui *UI) renderEvidence() {
	ui.rebuilding = true
	ui.evidenceList.Clear()

	c := ui.selectedCase()
	if c == nil || ui.scopeAll {
		ui.evidenceList.SetTitle(" Evidence ")
		ui.rebuilding = false
		return
	}

	ui.evidenceList.AddItem(fmt.Sprintf("Whole case (%d notes)", c.NoteCount()), "", 0, nil)
	sel := 0
	for i := range c.Evidence {
		e := &c.Evidence[i]
		if e.ID == ui.selectedEvidenceID {
			sel = i + 1
		}
		item := fmt.Sprintf("%s (%d)", tview.Escape(truncate(e.Name, 26)), len(e.Notes))
		if c.ID == ui.active.CaseID && e.ID == ui.active.EvidenceID {
			item += fmt.Sprintf(" [%s]●[-]", ui.theme.TagSuccess)
		}
		ui.evidenceList.AddItem(item, "", 0, nil)
	}
	ui.evidenceList.SetCurrentItem(sel)
	ui.evidenceList.SetTitle(fmt.Sprintf(" Evidence (%d) ", len(c.Evidence)))
	ui.rebuilding = false
}

func (ui *UI) renderNotes() {
	ui.rebuilding = true
	ui.notesTable.Clear()

	c, e := ui.scope()
	switch ui.filter.kind {
	case "tag":
		ui.visible = ui.tree.NotesByTag(c, e, ui.filter.value)
	case "ioc":
		ui.visible = ui.tree.NotesByIOC(c, e, ui.filter.value)
	default:
		ui.visible = ui.tree.ScopedNotes(c, e)
	}
	sort.SliceStable(ui.visible, func(i, j int) bool {
		return ui.visible[i].Note.Timestamp.After(ui.visible[j].Note.Timestamp)
	})

	th := ui.theme
	headers := []string{"Time", "Where", "Sig", "Note"}
	for col, h := range headers {
		cell := tview.NewTableCell(" " + h + " ").
			SetTextColor(th.TableHeader).
			SetBackgroundColor(th.TableHeaderBg).
			SetAttributes(tcell.AttrBold).
			SetSelectable(false)
		ui.notesTable.SetCell(0, col, cell)
	}

	for i, ref := range ui.visible {
		row := i + 1
		bg := th.TableZebra1
		if i%2 == 1 {
			bg = th.TableZebra2
		}
		sig := ""
		sigColor := th.TableRowMuted
		if ref.Note.Signature != "" {
			sig = "✓"
			sigColor = th.Success
		}
		cells := []struct {
			text  string
			color tcell.Color
		}{
			{ref.Note.Timestamp.Local().Format("01-02 15:04"), th.TableRowMuted},
			{tview.Escape(ui.whereText(ref)), th.Accent},
			{sig, sigColor},
			{tview.Escape(excerpt(ref.Note.Content, 60)), th.TableRow},
		}
		for col, cl := range cells {
			cell := tview.NewTableCell(" " + cl.text + " ").
				SetTextColor(cl.color).
				SetBackgroundColor(bg)
			if col == len(cells)-1 {
				cell.SetExpansion(1)
			}
			ui.notesTable.SetCell(row, col, cell)
		}
	}

	ui.notesTable.SetTitle(ui.notesTitle())
	ui.rebuilding = false

	if len(ui.visible) == 0 {
		ui.noteView.SetText("")
		return
	}
	row, _ := ui.notesTable.GetSelection()
	if row < 1 {
		row = 1
	}
	if row > len(ui.visible) {
		row = len(ui.visible)
	}
	ui.notesTable.Select(row, 0)
	ui.renderNoteView(row - 1)
}

func (ui *UI) notesTitle() string {
	label := " Notes (%d) "
	switch ui.filter.kind {
	case "tag":
		return fmt.Sprintf(" Notes (%d) #%s ", len(ui.visible), tview.Escape(ui.filter.value))
	case "ioc":
		return fmt.Sprintf(" Notes (%d) %s ", len(ui.visible), tview.Escape(truncate(ui.filter.value, 28)))
	}
	return fmt.Sprintf(label, len(ui.visible))
}

func (ui *UI) whereText(ref store.NoteRef) string {
	if ui.scopeAll && ref.Case != nil {
		if ref.Evidence != nil {
			return truncate(ref.Case.Number+"/"+ref.Evidence.Name, 18)
		}
		return truncate(ref.Case.Number, 18)
	}
	if ref.Evidence != nil {
		return truncate(ref.Evidence.Name, 18)
	}
	return "case"
}

// renderNoteView shows the note at idx in ui.visible, with indicator and
// hashtag spans colorized.
func (ui *UI) renderNoteView(idx int) {
	if idx < 0 || idx >= len(ui.visible) {
		ui.noteView.SetText("")
		return
	}
	ref := ui.visible[idx]
	th := ui.theme
	mut := th.TagMuted

	var b strings.Builder
	if ref.Case != nil {
		fmt.Fprintf(&b, "[%s]Case[-]      %s %s\n", mut,
			tview.Escape(ref.Case.Number), tview.Escape(ref.Case.Name))
	}
	if ref.Evidence != nil {
		fmt.Fprintf(&b, "[%s]Evidence[-]  %s\n", mut, tview.Escape(ref.Evidence.Name))
	}
	fmt.Fprintf(&b, "[%s]Time[-]      %s\n", mut,
		ref.Note.Timestamp.Local().Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "[%s]SHA-256[-]   [%s]%s[-]\n", mut, mut, ref.Note.Hash)
	if ref.Note.Signature != "" {
		fmt.Fprintf(&b, "[%s]Signature[-] [%s]clearsigned[-]\n", mut, th.TagSuccess)
	} else {
		fmt.Fprintf(&b, "[%s]Signature[-] none\n", mut)
	}

	b.WriteString("\n")
	b.WriteString(highlightContent(ref.Note.Content, th))
	b.WriteString("\n")

	if len(ref.Note.Tags) > 0 {
		fmt.Fprintf(&b, "\n[%s]Tags[-] ", mut)
		for i, tag := range ref.Note.Tags {
			if i > 0 {
				b.WriteString(" ")
			}
			fmt.Fprintf(&b, "[%s]#%s[-]", th.TagSuccess, tview.Escape(tag))
		}
		b.WriteString("\n")
	}
	if len(ref.Note.IOCs) > 0 {
		fmt.Fprintf(&b, "\n[%s]IOCs[-]\n", mut)
		for _, ioc := range ref.Note.IOCs {
			fmt.Fprintf(&b, "  [%s]%-7s %s[-]\n",
				typeTag(th, ioc.Type), ioc.Type, tview.Escape(ioc.Value))
		}
	}

	ui.noteView.SetText(b.String())
	ui.noteView.ScrollToBeginning()
}

func (ui *UI) renderPanels() {
	c, e := ui.scope()
	ui.tagRows = ui.tree.TagCounts(c, e)
	ui.iocRows = ui.tree.IOCCounts(c, e)
	th := ui.theme

	ui.rebuilding = true
	ui.tagsTable.Clear()
	ui.tagsTable.SetCell(0, 0, tview.NewTableCell(" # ").
		SetTextColor(th.TableHeader).SetBackgroundColor(th.TableHeaderBg).
		SetAttributes(tcell.AttrBold).SetSelectable(false).SetAlign(tview.AlignRight))
	ui.tagsTable.SetCell(0, 1, tview.NewTableCell(" Tag ").
		SetTextColor(th.TableHeader).SetBackgroundColor(th.TableHeaderBg).
		SetAttributes(tcell.AttrBold).SetSelectable(false).SetExpansion(1))
	for i, vc := range ui.tagRows {
		row := i + 1
		bg := th.TableZebra1
		if i%2 == 1 {
			bg = th.TableZebra2
		}
		ui.tagsTable.SetCell(row, 0, tview.NewTableCell(fmt.Sprintf(" %d ", vc.Count)).
			SetTextColor(th.TableRowMuted).SetBackgroundColor(bg).SetAlign(tview.AlignRight))
		ui.tagsTable.SetCell(row, 1, tview.NewTableCell(" #"+tview.Escape(vc.Value)+" ").
			SetTextColor(th.Success).SetBackgroundColor(bg).SetExpansion(1))
	}
	ui.tagsTable.SetTitle(fmt.Sprintf(" Tags (%d) ", len(ui.tagRows)))

	ui.iocsTable.Clear()
	for col, h := range []string{" # ", " Type ", " Value "} {
		cell := tview.NewTableCell(h).
			SetTextColor(th.TableHeader).SetBackgroundColor(th.TableHeaderBg).
			SetAttributes(tcell.AttrBold).SetSelectable(false)
		if col == 0 {
			cell.SetAlign(tview.AlignRight)
		}
		if col == 2 {
			cell.SetExpansion(1)
		}
		ui.iocsTable.SetCell(0, col, cell)
	}
	for i, vc := range ui.iocRows {
		row := i + 1
		bg := th.TableZebra1
		if i%2 == 1 {
			bg = th.TableZebra2
		}
		ui.iocsTable.SetCell(row, 0, tview.NewTableCell(fmt.Sprintf(" %d ", vc.Count)).
			SetTextColor(th.TableRowMuted).SetBackgroundColor(bg).SetAlign(tview.AlignRight))
		ui.iocsTable.SetCell(row, 1, tview.NewTableCell(" "+string(vc.Typ)+" ").
			SetTextColor(hex(typeTag(th, vc.Typ))).SetBackgroundColor(bg))
		ui.iocsTable.SetCell(row, 2, tview.NewTableCell(" "+tview.Escape(truncate(vc.Value, 32))+" ").
			SetTextColor(th.TableRow).SetBackgroundColor(bg).SetExpansion(1))
	}
	ui.iocsTable.SetTitle(fmt.Sprintf(" IOCs (%d) ", len(ui.iocRows)))
	ui.rebuilding = false
}

// scope resolves the current selection to tree pointers. All-notes mode and
// an unloaded tree both widen to the whole store.
func (ui *UI) scope() (*store.Case, *store.Evidence) {
	if ui.scopeAll || ui.tree == nil {
		return nil, nil
	}
	c := ui.tree.FindCase(ui.selectedCaseID)
	if c == nil {
		return nil, nil
	}
	if ui.selectedEvidenceID == "" {
		return c, nil
	}
	e := c.FindEvidence(ui.selectedEvidenceID)
	if e == nil {
		return c, nil
	}
	return c, e
}

func (ui *UI) selectedCase() *store.Case {
	if ui.tree == nil {
		return nil
	}
	return ui.tree.FindCase(ui.selectedCaseID)
}

// scopeArg translates the UI scope into a service scope for exports.
func (ui *UI) scopeArg() casefile.Scope {
	c, e := ui.scope()
	if c == nil {
		return casefile.Scope{All: true}
	}
	sc := casefile.Scope{CaseRef: c.ID}
	if e != nil {
		sc.EvidenceRef = e.ID
	}
	return sc
}

func (ui *UI) drillTag(row int) {
	idx := row - 1
	if idx < 0 || idx >= len(ui.tagRows) {
		return
	}
	ui.filter = noteFilter{kind: "tag", value: ui.tagRows[idx].Value}
	ui.renderNotes()
	ui.app.SetFocus(ui.notesTable)
	ui.highlightFocus(ui.notesTable)
	ui.setStatusDirect("[%s]Notes tagged #%s (Esc clears)[-:-:-]",
		ui.theme.TagAccent, tview.Escape(ui.filter.value))
}

func (ui *UI) drillIOC(row int) {
	idx := row - 1
	if idx < 0 || idx >= len(ui.iocRows) {
		return
	}
	ui.filter = noteFilter{kind: "ioc", value: ui.iocRows[idx].Value}
	ui.renderNotes()
	ui.app.SetFocus(ui.notesTable)
	ui.highlightFocus(ui.notesTable)
	ui.setStatusDirect("[%s]Notes mentioning %s (Esc clears)[-:-:-]",
		ui.theme.TagAccent, tview.Escape(truncate(ui.filter.value, 40)))
}

func (ui *UI) clearFilter() {
	ui.filter = noteFilter{}
	ui.renderNotes()
	ui.setStatusDirect("[%s]Filter cleared[-:-:-]", ui.theme.TagAccent)
}

// selectAllNotes widens the notes table to every note in the store.
func (ui *UI) selectAllNotes() {
	if ui.tree == nil {
		return
	}
	ui.scopeAll = true
	ui.filter = noteFilter{}
	ui.renderEvidence()
	ui.renderNotes()
	ui.renderPanels()
	ui.app.SetFocus(ui.notesTable)
	ui.highlightFocus(ui.notesTable)
	ui.setStatusDirect("[%s]All notes[-:-:-]", ui.theme.TagAccent)
}

// validateActiveContext repairs a persisted context that points at deleted
// entities, matching the startup behavior of the command layer.
func (ui *UI) validateActiveContext() {
	tree, err := ui.svc.Snapshot()
	if err != nil {
		return
	}
	active := ui.svc.ActiveContext()
	_, cleaned, err := store.Resolve(tree, active)
	if !errors.Is(err, store.ErrStaleContext) {
		return
	}
	if cleaned.IsZero() {
		if err := ui.svc.ClearActive(ui.ctx); err == nil {
			ui.setStatus("[%s]Active context pointed at a deleted case; cleared[-:-:-]",
				ui.theme.TagWarning)
		}
	} else {
		if _, err := ui.svc.SetActive(ui.ctx, cleaned.CaseID, ""); err == nil {
			ui.setStatus("[%s]Active evidence was deleted; context narrowed to its case[-:-:-]",
				ui.theme.TagWarning)
		}
	}
}

// truncate shortens s to max runes, appending an ellipsis marker.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}

// excerpt flattens a note to its first line for table display.
func excerpt(s string, max int) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return truncate(strings.TrimSpace(s), max)
}
