package ui

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/casetrace/trace-console/internal/fingerprint"
	"github.com/casetrace/trace-console/internal/store"
)

// focusQuickAdd moves focus to the one-line note input. Quick-add always
// targets the active context, so it refuses when none is set.
func (ui *UI) focusQuickAdd() {
	if ui.tree == nil {
		ui.setStatusDirect("[%s]Still loading...[-:-:-]", ui.theme.TagWarning)
		return
	}
	res, _, err := store.Resolve(ui.tree, ui.active)
	if err != nil || res.Case == nil {
		ui.setStatusDirect("[%s]No active context. Select a case and press u first.[-:-:-]",
			ui.theme.TagWarning)
		return
	}
	loc := res.Case.Number
	if res.Evidence != nil {
		loc += " / " + res.Evidence.Name
	}
	ui.app.SetFocus(ui.quickInput)
	ui.setStatusDirect("[%s]Quick note to %s (Enter saves, Esc cancels)[-:-:-]",
		ui.theme.TagAccent, tview.Escape(truncate(loc, 40)))
}

func (ui *UI) submitQuickNote(text string) {
	content := strings.TrimSpace(text)
	ui.quickInput.SetText("")
	ui.app.SetFocus(ui.notesTable)
	ui.highlightFocus(ui.notesTable)
	if content == "" {
		ui.setStatusDirect("[%s]Ready[-:-:-]", ui.theme.TagAccent)
		return
	}
	ui.setStatusDirect("[%s]Saving note...[-:-:-]", ui.theme.TagAccent)

	go func() {
		res, err := ui.svc.AddNote(ui.ctx, content, "", "")
		if err != nil {
			ui.setStatus("[%s]%s[-:-:-]", ui.theme.TagError, tview.Escape(err.Error()))
			return
		}
		ui.reload()
		target := "case " + res.CaseNumber
		if res.EvidenceName != "" {
			target = res.CaseNumber + " / " + res.EvidenceName
		}
		msg := "Note saved to " + target
		if len(res.Warnings) > 0 {
			msg += "; " + res.Warnings[0]
		}
		ui.setStatus("[%s]%s[-:-:-]", ui.theme.TagSuccess, tview.Escape(msg))
	}()
}

// showCaseForm opens the new-case dialog. The case number is mandatory; it
// doubles as the human reference everywhere else in the console.
func (ui *UI) showCaseForm() {
	form := tview.NewForm()
	form.SetTitle(" New Case ")
	form.SetBorder(true)
	ui.styleForm(form)

	var number, name, investigator string
	form.AddInputField("Number", "", 30, nil, func(text string) { number = text })
	form.AddInputField("Name", "", 50, nil, func(text string) { name = text })
	form.AddInputField("Investigator", "", 30, nil, func(text string) { investigator = text })

	form.AddButton("Create", func() {
		if strings.TrimSpace(number) == "" {
			ui.setStatusDirect("[%s]Case number is required[-:-:-]", ui.theme.TagError)
			return
		}
		ui.restoreMainLayout()
		go func() {
			c, err := ui.svc.CreateCase(ui.ctx, number, name, investigator)
			if err != nil {
				ui.setStatus("[%s]%s[-:-:-]", ui.theme.TagError, tview.Escape(err.Error()))
				return
			}
			ui.app.QueueUpdateDraw(func() {
				ui.scopeAll = false
				ui.selectedCaseID = c.ID
				ui.selectedEvidenceID = ""
				ui.filter = noteFilter{}
			})
			ui.reload()
			ui.setStatus("[%s]Case %s created[-:-:-]", ui.theme.TagSuccess, tview.Escape(c.Number))
		}()
	})
	form.AddButton("Cancel", func() {
		ui.restoreMainLayout()
	})

	form.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEsc {
			ui.restoreMainLayout()
			return nil
		}
		return event
	})

	ui.presentModal(form)
}

// showEvidenceForm opens the new-evidence dialog for the selected case.
func (ui *UI) showEvidenceForm() {
	c := ui.selectedCase()
	if c == nil {
		ui.setStatusDirect("[%s]Select a case first[-:-:-]", ui.theme.TagWarning)
		return
	}

	form := tview.NewForm()
	form.SetTitle(fmt.Sprintf(" New Evidence in %s ", tview.Escape(c.Number)))
	form.SetBorder(true)
	ui.styleForm(form)

	var name, description string
	form.AddInputField("Name", "", 40, nil, func(text string) { name = text })
	form.AddTextArea("Description", "", 50, 3, 0, func(text string) { description = text })
	form.AddTextView("", "Enter inserts a newline; Tab and Shift+Tab move between fields.", 50, 1, true, false)
	ui.textAreaTabNav(form, 1)

	caseID := c.ID
	caseNumber := c.Number
	form.AddButton("Add", func() {
		if strings.TrimSpace(name) == "" {
			ui.setStatusDirect("[%s]Evidence name is required[-:-:-]", ui.theme.TagError)
			return
		}
		ui.restoreMainLayout()
		go func() {
			res, err := ui.svc.AddEvidence(ui.ctx, caseID, name, description)
			if err != nil {
				ui.setStatus("[%s]%s[-:-:-]", ui.theme.TagError, tview.Escape(err.Error()))
				return
			}
			ui.reload()
			msg := fmt.Sprintf("Evidence '%s' added to %s", res.Evidence.Name, caseNumber)
			if len(res.Warnings) > 0 {
				msg += "; " + res.Warnings[0]
			}
			ui.setStatus("[%s]%s[-:-:-]", ui.theme.TagSuccess, tview.Escape(msg))
		}()
	})
	form.AddButton("Cancel", func() {
		ui.restoreMainLayout()
	})

	form.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEsc {
			ui.restoreMainLayout()
			return nil
		}
		return event
	})

	ui.presentModal(form)
}

// showNoteForm opens the multi-line note dialog targeting the current scope.
func (ui *UI) showNoteForm() {
	c, e := ui.scope()
	if c == nil {
		ui.setStatusDirect("[%s]Select a case first[-:-:-]", ui.theme.TagWarning)
		return
	}
	target := c.Number
	evidenceRef := ""
	if e != nil {
		target += " / " + e.Name
		evidenceRef = e.ID
	}

	form := tview.NewForm()
	form.SetTitle(fmt.Sprintf(" New Note in %s ", tview.Escape(truncate(target, 36))))
	form.SetBorder(true)
	ui.styleForm(form)

	var content string
	form.AddTextArea("Content", "", 60, 6, 0, func(text string) { content = text })
	form.AddTextView("", "Enter inserts a newline; Tab and Shift+Tab move between fields.", 60, 1, true, false)
	ui.textAreaTabNav(form, 0)

	caseRef := c.ID
	form.AddButton("Save", func() {
		if strings.TrimSpace(content) == "" {
			ui.setStatusDirect("[%s]Note content is required[-:-:-]", ui.theme.TagError)
			return
		}
		ui.restoreMainLayout()
		go func() {
			res, err := ui.svc.AddNote(ui.ctx, content, caseRef, evidenceRef)
			if err != nil {
				ui.setStatus("[%s]%s[-:-:-]", ui.theme.TagError, tview.Escape(err.Error()))
				return
			}
			ui.reload()
			loc := res.CaseNumber
			if res.EvidenceName != "" {
				loc += " / " + res.EvidenceName
			}
			msg := "Note saved to " + loc
			if len(res.Warnings) > 0 {
				msg += "; " + res.Warnings[0]
			}
			ui.setStatus("[%s]%s[-:-:-]", ui.theme.TagSuccess, tview.Escape(msg))
		}()
	})
	form.AddButton("Cancel", func() {
		ui.restoreMainLayout()
	})

	form.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEsc {
			ui.restoreMainLayout()
			return nil
		}
		return event
	})

	ui.presentModal(form)
}

// textAreaTabNav lets Tab and Shift+Tab leave a TextArea inside a form.
// Enter keeps inserting newlines. Hint rows added with AddTextView are
// skipped when jumping.
func (ui *UI) textAreaTabNav(form *tview.Form, idx int) {
	ta, ok := form.GetFormItem(idx).(*tview.TextArea)
	if !ok {
		return
	}
	interactive := func(i int) bool {
		_, hint := form.GetFormItem(i).(*tview.TextView)
		return !hint
	}
	ta.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		switch ev.Key() {
		case tcell.KeyTab:
			for next := idx + 1; next < form.GetFormItemCount(); next++ {
				if interactive(next) {
					ui.app.SetFocus(form.GetFormItem(next))
					return nil
				}
			}
			if form.GetButtonCount() > 0 {
				ui.app.SetFocus(form.GetButton(0))
			}
			return nil
		case tcell.KeyBacktab:
			for prev := idx - 1; prev >= 0; prev-- {
				if interactive(prev) {
					ui.app.SetFocus(form.GetFormItem(prev))
					return nil
				}
			}
			return nil
		}
		return ev
	})
}

// deleteSelection deletes whatever the focused pane has selected, behind a
// confirmation modal.
func (ui *UI) deleteSelection() {
	switch ui.app.GetFocus() {
	case ui.caseList:
		if c := ui.selectedCase(); c != nil {
			ui.confirmDeleteCase(c)
			return
		}
	case ui.evidenceList:
		c := ui.selectedCase()
		idx := ui.evidenceList.GetCurrentItem()
		if c != nil && idx > 0 && idx-1 < len(c.Evidence) {
			ui.confirmDeleteEvidence(c, &c.Evidence[idx-1])
			return
		}
		ui.setStatusDirect("[%s]Select an evidence item to delete[-:-:-]", ui.theme.TagWarning)
		return
	case ui.notesTable:
		row, _ := ui.notesTable.GetSelection()
		if row >= 1 && row-1 < len(ui.visible) {
			ui.confirmDeleteNote(ui.visible[row-1])
			return
		}
	}
	ui.setStatusDirect("[%s]Nothing selected to delete[-:-:-]", ui.theme.TagWarning)
}

func (ui *UI) confirmDeleteCase(c *store.Case) {
	modal := tview.NewModal().
		SetText(fmt.Sprintf("Delete case %s (%s)?\n\n%d notes and %d evidence items will be removed.\n\nThis action cannot be undone.",
			tview.Escape(c.Number), tview.Escape(c.Name), c.NoteCount(), len(c.Evidence))).
		AddButtons([]string{"Delete", "Cancel"})
	modal.SetTitle(" Delete Case ")
	ui.styleModal(modal)

	caseID := c.ID
	modal.SetDoneFunc(func(buttonIndex int, buttonLabel string) {
		ui.restoreMainLayout()
		if buttonLabel != "Delete" {
			return
		}
		go func() {
			deleted, err := ui.svc.DeleteCase(ui.ctx, caseID)
			if err != nil {
				ui.setStatus("[%s]%s[-:-:-]", ui.theme.TagError, tview.Escape(err.Error()))
				return
			}
			ui.app.QueueUpdateDraw(func() {
				if ui.selectedCaseID == caseID {
					ui.selectedCaseID = ""
					ui.selectedEvidenceID = ""
					ui.filter = noteFilter{}
				}
			})
			ui.reload()
			ui.setStatus("[%s]Case %s deleted[-:-:-]", ui.theme.TagSuccess, tview.Escape(deleted.Number))
		}()
	})
	modal.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEsc {
			ui.restoreMainLayout()
			return nil
		}
		return event
	})

	ui.presentModal(modal)
}

func (ui *UI) confirmDeleteEvidence(c *store.Case, e *store.Evidence) {
	modal := tview.NewModal().
		SetText(fmt.Sprintf("Delete evidence '%s' from %s?\n\n%d notes will be removed.\n\nThis action cannot be undone.",
			tview.Escape(e.Name), tview.Escape(c.Number), len(e.Notes))).
		AddButtons([]string{"Delete", "Cancel"})
	modal.SetTitle(" Delete Evidence ")
	ui.styleModal(modal)

	evidenceID := e.ID
	name := e.Name
	modal.SetDoneFunc(func(buttonIndex int, buttonLabel string) {
		ui.restoreMainLayout()
		if buttonLabel != "Delete" {
			return
		}
		go func() {
			_, _, err := ui.svc.DeleteEvidence(ui.ctx, evidenceID)
			if err != nil {
				ui.setStatus("[%s]%s[-:-:-]", ui.theme.TagError, tview.Escape(err.Error()))
				return
			}
			ui.app.QueueUpdateDraw(func() {
				if ui.selectedEvidenceID == evidenceID {
					ui.selectedEvidenceID = ""
				}
			})
			ui.reload()
			ui.setStatus("[%s]Evidence '%s' deleted[-:-:-]", ui.theme.TagSuccess, tview.Escape(name))
		}()
	})
	modal.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEsc {
			ui.restoreMainLayout()
			return nil
		}
		return event
	})

	ui.presentModal(modal)
}

func (ui *UI) confirmDeleteNote(ref store.NoteRef) {
	modal := tview.NewModal().
		SetText(fmt.Sprintf("Delete note?\n\n\"%s\"\n\nThis action cannot be undone.",
			tview.Escape(excerpt(ref.Note.Content, 50)))).
		AddButtons([]string{"Delete", "Cancel"})
	modal.SetTitle(" Delete Note ")
	ui.styleModal(modal)

	noteID := ref.Note.ID
	modal.SetDoneFunc(func(buttonIndex int, buttonLabel string) {
		ui.restoreMainLayout()
		if buttonLabel != "Delete" {
			return
		}
		go func() {
			_, _, err := ui.svc.DeleteNote(ui.ctx, noteID)
			if err != nil {
				ui.setStatus("[%s]%s[-:-:-]", ui.theme.TagError, tview.Escape(err.Error()))
				return
			}
			ui.reload()
			ui.setStatus("[%s]Note deleted[-:-:-]", ui.theme.TagSuccess)
		}()
	})
	modal.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEsc {
			ui.restoreMainLayout()
			return nil
		}
		return event
	})

	ui.presentModal(modal)
}

// useSelection points the persisted active context at the current selection.
func (ui *UI) useSelection() {
	c, e := ui.scope()
	if c == nil {
		ui.setStatusDirect("[%s]Select a case to activate[-:-:-]", ui.theme.TagWarning)
		return
	}
	evidenceRef := ""
	if e != nil {
		evidenceRef = e.ID
	}
	caseRef := c.ID

	go func() {
		res, err := ui.svc.SetActive(ui.ctx, caseRef, evidenceRef)
		if err != nil {
			ui.setStatus("[%s]%s[-:-:-]", ui.theme.TagError, tview.Escape(err.Error()))
			return
		}
		ui.reload()
		loc := res.CaseNumber
		if res.EvidenceName != "" {
			loc += " / " + res.EvidenceName
		}
		ui.setStatus("[%s]Active context: %s[-:-:-]", ui.theme.TagSuccess, tview.Escape(loc))
	}()
}

func (ui *UI) clearActiveContext() {
	go func() {
		if err := ui.svc.ClearActive(ui.ctx); err != nil {
			ui.setStatus("[%s]%s[-:-:-]", ui.theme.TagError, tview.Escape(err.Error()))
			return
		}
		ui.reload()
		ui.setStatus("[%s]Active context cleared[-:-:-]", ui.theme.TagSuccess)
	}()
}

// openSettingsForm probes gpg off the UI goroutine, then shows the dialog.
func (ui *UI) openSettingsForm() {
	ui.setStatusDirect("[%s]Checking signing keys...[-:-:-]", ui.theme.TagAccent)
	go func() {
		available := ui.svc.Signer().Available(ui.ctx)
		var keys []fingerprint.Key
		if available {
			keys, _ = ui.svc.Signer().ListSecretKeys(ui.ctx)
		}
		settings := ui.svc.Store().Settings()
		ui.app.QueueUpdateDraw(func() {
			ui.showSettingsForm(settings, available, keys)
		})
	}()
}

func (ui *UI) showSettingsForm(settings store.Settings, available bool, keys []fingerprint.Key) {
	form := tview.NewForm()
	form.SetTitle(" Signing Settings ")
	form.SetBorder(true)
	ui.styleForm(form)

	enabled := settings.SigningOn()
	form.AddCheckbox("Sign new notes", enabled, func(checked bool) { enabled = checked })

	options := []string{"(gpg default key)"}
	ids := []string{""}
	initial := 0
	for _, k := range keys {
		if k.ID == settings.SigningKey {
			initial = len(options)
		}
		label := k.ID
		if k.UserID != "" {
			label = fmt.Sprintf("%s (%s)", k.ID, truncate(k.UserID, 30))
		}
		options = append(options, label)
		ids = append(ids, k.ID)
	}
	keyID := settings.SigningKey
	form.AddDropDown("Signing key", options, initial, func(option string, idx int) {
		if idx >= 0 && idx < len(ids) {
			keyID = ids[idx]
		}
	})

	if !available {
		form.AddTextView("", "gpg is not available; new notes will be saved unsigned.", 50, 2, true, false)
	}

	form.AddButton("Save", func() {
		ui.restoreMainLayout()
		next := settings.WithSigning(enabled)
		next.SigningKey = keyID
		go func() {
			if err := ui.svc.UpdateSettings(ui.ctx, next); err != nil {
				ui.setStatus("[%s]%s[-:-:-]", ui.theme.TagError, tview.Escape(err.Error()))
				return
			}
			state := "off"
			if next.SigningOn() {
				state = "on"
			}
			ui.setStatus("[%s]Settings saved: signing %s[-:-:-]", ui.theme.TagSuccess, state)
		}()
	})
	form.AddButton("Cancel", func() {
		ui.restoreMainLayout()
	})

	form.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEsc {
			ui.restoreMainLayout()
			return nil
		}
		return event
	})

	ui.presentModal(form)
}

// showExportForm asks for an output path and writes the Markdown report.
func (ui *UI) showExportForm() {
	form := tview.NewForm()
	form.SetTitle(" Export Markdown Report ")
	form.SetBorder(true)
	ui.styleForm(form)

	var outPath string
	form.AddInputField("Output path", "", 50, nil, func(text string) { outPath = text })
	form.AddTextView("", "Leave empty to write under the exports directory.", 50, 1, true, false)

	form.AddButton("Export", func() {
		ui.restoreMainLayout()
		ui.setStatusDirect("[%s]Exporting...[-:-:-]", ui.theme.TagAccent)
		go func() {
			res, err := ui.svc.ExportMarkdown(ui.ctx, strings.TrimSpace(outPath))
			if err != nil {
				ui.setStatus("[%s]%s[-:-:-]", ui.theme.TagError, tview.Escape(err.Error()))
				return
			}
			msg := fmt.Sprintf("Exported %d cases to %s", res.Cases, res.Path)
			if res.Signed {
				msg += " (signed)"
			}
			if len(res.Warnings) > 0 {
				msg += "; " + res.Warnings[0]
			}
			ui.setStatus("[%s]%s[-:-:-]", ui.theme.TagSuccess, tview.Escape(msg))
		}()
	})
	form.AddButton("Cancel", func() {
		ui.restoreMainLayout()
	})

	form.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEsc {
			ui.restoreMainLayout()
			return nil
		}
		return event
	})

	ui.presentModal(form)
}

// exportIOCs writes the indicator list for the current scope straight to the
// exports directory.
func (ui *UI) exportIOCs() {
	sc := ui.scopeArg()
	ui.setStatusDirect("[%s]Exporting indicators...[-:-:-]", ui.theme.TagAccent)
	go func() {
		path, n, err := ui.svc.ExportIOCs(ui.ctx, sc, "")
		if err != nil {
			ui.setStatus("[%s]%s[-:-:-]", ui.theme.TagError, tview.Escape(err.Error()))
			return
		}
		ui.setStatus("[%s]Wrote %d indicators to %s[-:-:-]",
			ui.theme.TagSuccess, n, tview.Escape(path))
	}()
}

func (ui *UI) styleForm(form *tview.Form) {
	form.SetBackgroundColor(ui.theme.Surface)
	form.SetFieldBackgroundColor(ui.theme.SelectionBg)
	form.SetFieldTextColor(ui.theme.TextPrimary)
	form.SetLabelColor(ui.theme.TextPrimary)
	form.SetButtonBackgroundColor(ui.theme.SelectionBg)
	form.SetButtonTextColor(ui.theme.SelectionFg)
	form.SetBorderColor(ui.theme.FocusBorder)
	form.SetTitleColor(ui.theme.Header)
}

func (ui *UI) styleModal(modal *tview.Modal) {
	modal.SetBackgroundColor(ui.theme.Surface)
	modal.SetTextColor(ui.theme.TextPrimary)
	modal.SetBorderColor(ui.theme.FocusBorder)
	modal.SetButtonBackgroundColor(ui.theme.SelectionBg)
	modal.SetButtonTextColor(ui.theme.SelectionFg)
}
