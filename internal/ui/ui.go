package ui

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/casetrace/trace-console/internal/casefile"
	"github.com/casetrace/trace-console/internal/extract"
	"github.com/casetrace/trace-console/internal/store"
)

// Theme defines the color tokens used across widgets and text markup.
type Theme struct {
	// Widget colors
	Bg          tcell.Color
	Surface     tcell.Color
	Border      tcell.Color
	FocusBorder tcell.Color
	SelectionBg tcell.Color
	SelectionFg tcell.Color
	TextPrimary tcell.Color
	TextMuted   tcell.Color
	Accent      tcell.Color
	Success     tcell.Color
	Warning     tcell.Color
	Error       tcell.Color
	Header      tcell.Color

	// Table colors
	TableHeader   tcell.Color
	TableHeaderBg tcell.Color
	TableRow      tcell.Color
	TableRowMuted tcell.Color
	TableZebra1   tcell.Color
	TableZebra2   tcell.Color

	// Text tag colors (for tview dynamic color markup)
	TagTextPrimary string
	TagMuted       string
	TagAccent      string
	TagSuccess     string
	TagWarning     string
	TagError       string
}

func hex(s string) tcell.Color { return tcell.GetColor(s) }

func themeDark() Theme {
	return Theme{
		Bg:          hex("#0e1116"),
		Surface:     hex("#12161e"),
		Border:      hex("#2b3240"),
		FocusBorder: hex("#4aa8ff"),
		SelectionBg: hex("#2b3240"),
		SelectionFg: hex("#cfd8e3"),
		TextPrimary: hex("#e6edf3"),
		TextMuted:   hex("#8a939f"),
		Accent:      hex("#2dd4bf"),
		Success:     hex("#22c55e"),
		Warning:     hex("#f59e0b"),
		Error:       hex("#ef4444"),
		Header:      hex("#eab308"),

		TableHeader:   hex("#eab308"),
		TableHeaderBg: hex("#1a2332"),
		TableRow:      hex("#e6edf3"),
		TableRowMuted: hex("#94a3b8"),
		TableZebra1:   hex("#161c27"),
		TableZebra2:   hex("#121823"),

		TagTextPrimary: "#e6edf3",
		TagMuted:       "#8a939f",
		TagAccent:      "#2dd4bf",
		TagSuccess:     "#22c55e",
		TagWarning:     "#f59e0b",
		TagError:       "#ef4444",
	}
}

func themeLight() Theme {
	return Theme{
		Bg:          hex("#f6f8fa"),
		Surface:     hex("#ffffff"),
		Border:      hex("#d0d7de"),
		FocusBorder: hex("#1f6feb"),
		SelectionBg: hex("#e2e8f0"),
		SelectionFg: hex("#111827"),
		TextPrimary: hex("#111827"),
		TextMuted:   hex("#6b7280"),
		Accent:      hex("#2563eb"),
		Success:     hex("#15803d"),
		Warning:     hex("#b45309"),
		Error:       hex("#b91c1c"),
		Header:      hex("#1f2937"),

		TableHeader:   hex("#1f2937"),
		TableHeaderBg: hex("#e5e7eb"),
		TableRow:      hex("#111827"),
		TableRowMuted: hex("#6b7280"),
		TableZebra1:   hex("#ffffff"),
		TableZebra2:   hex("#f8fafc"),

		TagTextPrimary: "#111827",
		TagMuted:       "#6b7280",
		TagAccent:      "#2563eb",
		TagSuccess:     "#15803d",
		TagWarning:     "#b45309",
		TagError:       "#b91c1c",
	}
}

func themeHighContrast() Theme {
	return Theme{
		Bg:          hex("#000000"),
		Surface:     hex("#000000"),
		Border:      hex("#ffffff"),
		FocusBorder: hex("#ffff00"),
		SelectionBg: hex("#ffffff"),
		SelectionFg: hex("#000000"),
		TextPrimary: hex("#ffffff"),
		TextMuted:   hex("#cccccc"),
		Accent:      hex("#00ffff"),
		Success:     hex("#00ff00"),
		Warning:     hex("#ffff00"),
		Error:       hex("#ff0000"),
		Header:      hex("#ffffff"),

		TableHeader:   hex("#ffffff"),
		TableHeaderBg: hex("#000000"),
		TableRow:      hex("#ffffff"),
		TableRowMuted: hex("#cccccc"),
		TableZebra1:   hex("#000000"),
		TableZebra2:   hex("#111111"),

		TagTextPrimary: "#ffffff",
		TagMuted:       "#cccccc",
		TagAccent:      "#00ffff",
		TagSuccess:     "#00ff00",
		TagWarning:     "#ffff00",
		TagError:       "#ff0000",
	}
}

func themeColorblindSafe() Theme {
	// ColorBrewer-inspired palette with hue-separated accents
	return Theme{
		Bg:          hex("#0e1116"),
		Surface:     hex("#12161e"),
		Border:      hex("#2b3240"),
		FocusBorder: hex("#4aa8ff"),
		SelectionBg: hex("#2b3240"),
		SelectionFg: hex("#e6edf3"),
		TextPrimary: hex("#e6edf3"),
		TextMuted:   hex("#8a939f"),
		Accent:      hex("#80b1d3"),
		Success:     hex("#5ab4ac"),
		Warning:     hex("#fdb863"),
		Error:       hex("#d7191c"),
		Header:      hex("#fee08b"),

		TableHeader:   hex("#fee08b"),
		TableHeaderBg: hex("#232a38"),
		TableRow:      hex("#e6edf3"),
		TableRowMuted: hex("#94a3b8"),
		TableZebra1:   hex("#151a22"),
		TableZebra2:   hex("#10141b"),

		TagTextPrimary: "#e6edf3",
		TagMuted:       "#8a939f",
		TagAccent:      "#80b1d3",
		TagSuccess:     "#5ab4ac",
		TagWarning:     "#fdb863",
		TagError:       "#d7191c",
	}
}

// themeByName resolves a configured palette name, falling back to dark.
func themeByName(name string) (string, Theme) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "light":
		return "light", themeLight()
	case "high-contrast":
		return "high-contrast", themeHighContrast()
	case "cb-safe", "colorblind", "colorblind-safe":
		return "cb-safe", themeColorblindSafe()
	default:
		return "dark", themeDark()
	}
}

func detectTrueColor() bool {
	// Best-effort detection without initializing a screen
	ct := strings.ToLower(os.Getenv("COLORTERM"))
	if strings.Contains(ct, "truecolor") || strings.Contains(ct, "24bit") {
		return true
	}
	term := strings.ToLower(os.Getenv("TERM"))
	if strings.Contains(term, "truecolor") || strings.Contains(term, "24bit") || strings.Contains(term, "256color") {
		return true
	}
	return false
}

// UI is the interactive console. One instance owns the tview application,
// the layout primitives, and the last loaded tree snapshot.
type UI struct {
	app    *tview.Application
	svc    *casefile.Service
	logger *log.Logger

	// Layout components
	root         *tview.Flex
	appTitle     *tview.TextView
	overview     *tview.TextView
	caseList     *tview.List
	evidenceList *tview.List
	notesTable   *tview.Table
	noteView     *tview.TextView
	tagsTable    *tview.Table
	iocsTable    *tview.Table
	quickInput   *tview.InputField
	statusBar    *tview.TextView

	// Data state. tree is swapped wholesale on reload and only read on the
	// UI goroutine afterwards.
	tree               *store.Tree
	active             store.Context
	scopeAll           bool
	selectedCaseID     string
	selectedEvidenceID string
	visible            []store.NoteRef
	tagRows            []extract.ValueCount
	iocRows            []extract.ValueCount
	filter             noteFilter
	rebuilding         bool
	reloading          int32

	// Theme state
	theme         Theme
	themeName     string
	hasTrueColor  bool
	themeApplying int32

	// Runtime
	running    bool
	helpActive bool
	lastStatus string
	lastFocus  tview.Primitive

	// Global input capture; restored after modals and forms
	globalInputCapture func(*tcell.EventKey) *tcell.EventKey

	ctx    context.Context
	cancel context.CancelFunc
}

// noteFilter narrows the notes table to one tag or indicator value after a
// drill-down from the side panels. An empty kind means no filter.
type noteFilter struct {
	kind  string // "tag" or "ioc"
	value string
}

// NewUI builds the console over a service. theme names the starting palette;
// unknown names fall back to dark.
func NewUI(svc *casefile.Service, theme string, logger *log.Logger) *UI {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	// Start and form actions re-derive cancellation from the caller later;
	// this keeps ui.ctx usable before Start runs.
	ctx, cancel := context.WithCancel(context.Background())

	ui := &UI{
		app:          tview.NewApplication(),
		svc:          svc,
		logger:       logger,
		ctx:          ctx,
		cancel:       cancel,
		hasTrueColor: detectTrueColor(),
	}
	ui.themeName, ui.theme = themeByName(theme)

	ui.setupLayout()
	ui.setupHandlers()
	ui.setupKeybindings()
	ui.applyTheme()

	return ui
}

// Start runs the event loop until quit or ctx cancellation. The first
// snapshot loads in the background so the screen comes up immediately, and a
// store watcher reloads whenever another process writes the data file.
func (ui *UI) Start(ctx context.Context) error {
	ui.ctx, ui.cancel = context.WithCancel(ctx)
	defer ui.cancel()
	ui.logger.Printf("starting console (theme=%s truecolor=%v)", ui.themeName, ui.hasTrueColor)

	go func() {
		ui.validateActiveContext()
		ui.reload()
	}()

	if err := ui.svc.Store().Watch(ui.ctx, func() {
		ui.logger.Println("store changed on disk, reloading")
		ui.reload()
	}); err != nil {
		ui.logger.Printf("store watch unavailable: %v", err)
	}

	go func() {
		<-ui.ctx.Done()
		ui.app.Stop()
	}()

	ui.startRedrawHeartbeat()

	ui.running = true
	err := ui.app.Run()
	ui.running = false
	ui.logger.Printf("console exited: %v", err)
	return err
}

// Stop ends the event loop.
func (ui *UI) Stop() {
	ui.running = false
	ui.cancel()
	ui.app.Stop()
}

// setupLayout assembles the main screen: cases and evidence on the left,
// notes table over the tag/IOC panels in the middle, note viewer on the
// right, quick-add input and status bar along the bottom.
func (ui *UI) setupLayout() {
	ui.appTitle = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	ui.appTitle.SetBorder(false)

	ui.overview = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	ui.overview.SetTitle(" Store ")
	ui.overview.SetBorder(true)
	ui.overview.SetTitleAlign(tview.AlignLeft)

	ui.caseList = tview.NewList().ShowSecondaryText(true)
	ui.caseList.SetTitle(" Cases ")
	ui.caseList.SetBorder(true)
	ui.caseList.SetTitleAlign(tview.AlignLeft)

	ui.evidenceList = tview.NewList().ShowSecondaryText(false)
	ui.evidenceList.SetTitle(" Evidence ")
	ui.evidenceList.SetBorder(true)
	ui.evidenceList.SetTitleAlign(tview.AlignLeft)

	ui.notesTable = tview.NewTable()
	ui.notesTable.SetTitle(" Notes ")
	ui.notesTable.SetBorder(true)
	ui.notesTable.SetTitleAlign(tview.AlignLeft)
	ui.notesTable.SetSelectable(true, false)
	// Pin the header row so it stays visible while scrolling.
	ui.notesTable.SetFixed(1, 0)

	ui.noteView = tview.NewTextView()
	ui.noteView.SetTitle(" Note ")
	ui.noteView.SetBorder(true)
	ui.noteView.SetTitleAlign(tview.AlignLeft)
	ui.noteView.SetDynamicColors(true)
	ui.noteView.SetWordWrap(true)
	ui.noteView.SetScrollable(true)

	ui.tagsTable = tview.NewTable()
	ui.tagsTable.SetTitle(" Tags ")
	ui.tagsTable.SetBorder(true)
	ui.tagsTable.SetTitleAlign(tview.AlignLeft)
	ui.tagsTable.SetSelectable(true, false)
	ui.tagsTable.SetFixed(1, 0)

	ui.iocsTable = tview.NewTable()
	ui.iocsTable.SetTitle(" IOCs ")
	ui.iocsTable.SetBorder(true)
	ui.iocsTable.SetTitleAlign(tview.AlignLeft)
	ui.iocsTable.SetSelectable(true, false)
	ui.iocsTable.SetFixed(1, 0)

	ui.quickInput = tview.NewInputField().
		SetLabel(" > ").
		SetFieldWidth(0)

	ui.statusBar = tview.NewTextView()
	ui.statusBar.SetDynamicColors(true)

	leftCol := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(ui.appTitle, 1, 0, false).
		AddItem(ui.overview, 5, 0, false).
		AddItem(ui.caseList, 0, 2, true).
		AddItem(ui.evidenceList, 0, 1, false)

	panels := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(ui.tagsTable, 0, 1, false).
		AddItem(ui.iocsTable, 0, 1, false)

	centerCol := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(ui.notesTable, 0, 2, false).
		AddItem(panels, 0, 1, false)

	columns := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(leftCol, 38, 0, true).
		AddItem(centerCol, 0, 3, false).
		AddItem(ui.noteView, 0, 2, false)

	ui.root = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(columns, 0, 1, true).
		AddItem(ui.quickInput, 1, 0, false).
		AddItem(ui.statusBar, 1, 0, false)

	ui.app.SetRoot(ui.root, true)
	ui.app.SetFocus(ui.caseList)
}

// setupHandlers wires selection callbacks. List highlight changes drive the
// scope directly; Enter moves focus toward the notes.
func (ui *UI) setupHandlers() {
	ui.caseList.SetChangedFunc(func(index int, mainText, secondaryText string, shortcut rune) {
		if ui.rebuilding || ui.tree == nil {
			return
		}
		if index < 0 || index >= len(ui.tree.Cases) {
			return
		}
		ui.scopeAll = false
		ui.selectedCaseID = ui.tree.Cases[index].ID
		ui.selectedEvidenceID = ""
		ui.filter = noteFilter{}
		ui.renderScope()
	})
	ui.caseList.SetSelectedFunc(func(index int, mainText, secondaryText string, shortcut rune) {
		ui.app.SetFocus(ui.notesTable)
		ui.highlightFocus(ui.notesTable)
		ui.updateHints()
	})

	ui.evidenceList.SetChangedFunc(func(index int, mainText, secondaryText string, shortcut rune) {
		if ui.rebuilding {
			return
		}
		c := ui.selectedCase()
		if c == nil {
			return
		}
		if index <= 0 {
			ui.selectedEvidenceID = ""
		} else if index-1 < len(c.Evidence) {
			ui.selectedEvidenceID = c.Evidence[index-1].ID
		}
		ui.filter = noteFilter{}
		ui.renderNotes()
		ui.renderPanels()
	})
	ui.evidenceList.SetSelectedFunc(func(index int, mainText, secondaryText string, shortcut rune) {
		ui.app.SetFocus(ui.notesTable)
		ui.highlightFocus(ui.notesTable)
		ui.updateHints()
	})

	ui.notesTable.SetSelectionChangedFunc(func(row, column int) {
		if ui.rebuilding {
			return
		}
		ui.renderNoteView(row - 1)
	})

	ui.tagsTable.SetSelectedFunc(func(row, column int) {
		ui.drillTag(row)
	})
	ui.iocsTable.SetSelectedFunc(func(row, column int) {
		ui.drillIOC(row)
	})

	ui.quickInput.SetDoneFunc(func(key tcell.Key) {
		switch key {
		case tcell.KeyEnter:
			ui.submitQuickNote(ui.quickInput.GetText())
		case tcell.KeyEsc:
			ui.quickInput.SetText("")
			ui.app.SetFocus(ui.notesTable)
			ui.setStatusDirect("[%s]Ready[-:-:-]", ui.theme.TagAccent)
		}
	})
}

// setupKeybindings installs the global key handler.
func (ui *UI) setupKeybindings() {
	handler := func(event *tcell.EventKey) *tcell.EventKey {
		// A form, modal, or the quick-add input owns every key while it has
		// focus.
		if ui.isDialogActive() {
			return event
		}

		switch event.Key() {
		case tcell.KeyCtrlC:
			ui.Stop()
			return nil
		case tcell.KeyEsc:
			if ui.filter.kind != "" {
				ui.clearFilter()
				return nil
			}
			ui.setStatusDirect("[%s]Ready[-:-:-]", ui.theme.TagAccent)
			return nil
		case tcell.KeyTab:
			ui.cycleFocus(1)
			return nil
		case tcell.KeyBacktab:
			ui.cycleFocus(-1)
			return nil
		case tcell.KeyRune:
			switch event.Rune() {
			case 'q', 'Q':
				ui.Stop()
				return nil
			case 'r', 'R':
				ui.setStatusDirect("[%s]Refreshing...[-:-:-]", ui.theme.TagAccent)
				go func() {
					if ui.reload() == nil {
						ui.setStatus("[%s]Store reloaded[-:-:-]", ui.theme.TagSuccess)
					}
				}()
				return nil
			case 'h', 'H', '?':
				ui.showHelp()
				return nil
			case 'l':
				ui.focusRight()
				return nil
			case 'j':
				ui.moveSelection(1)
				return nil
			case 'k':
				ui.moveSelection(-1)
				return nil
			case 'g':
				ui.moveToBoundary(true)
				return nil
			case 'G':
				ui.moveToBoundary(false)
				return nil
			case 'A':
				ui.selectAllNotes()
				return nil
			case 'a':
				ui.focusQuickAdd()
				return nil
			case 'n':
				ui.showNoteForm()
				return nil
			case 'c':
				ui.showCaseForm()
				return nil
			case 'v':
				ui.showEvidenceForm()
				return nil
			case 'd':
				ui.deleteSelection()
				return nil
			case 'u':
				ui.useSelection()
				return nil
			case 'U':
				ui.clearActiveContext()
				return nil
			case 's':
				ui.openSettingsForm()
				return nil
			case 'e':
				ui.showExportForm()
				return nil
			case 'x':
				ui.exportIOCs()
				return nil
			case 't':
				ui.cycleTheme()
				return nil
			case 'T':
				next := "dark"
				if ui.themeName != "high-contrast" {
					next = "high-contrast"
				}
				ui.setTheme(next)
				return nil
			case 'C':
				next := "dark"
				if ui.themeName != "cb-safe" {
					next = "cb-safe"
				}
				ui.setTheme(next)
				return nil
			}
		}
		return event
	}
	ui.globalInputCapture = handler
	ui.app.SetInputCapture(handler)
}

// focusables returns the cycle order for Tab.
func (ui *UI) focusables() []tview.Primitive {
	return []tview.Primitive{
		ui.caseList,
		ui.evidenceList,
		ui.notesTable,
		ui.tagsTable,
		ui.iocsTable,
		ui.noteView,
	}
}

func (ui *UI) cycleFocus(dir int) {
	order := ui.focusables()
	cur := ui.app.GetFocus()
	next := order[0]
	for i, p := range order {
		if p == cur {
			next = order[(i+dir+len(order))%len(order)]
			break
		}
	}
	ui.app.SetFocus(next)
	ui.highlightFocus(next)
	ui.updateHints()
}

// focusRight jumps toward the note viewer: lists land on the notes table,
// the tables land on the viewer, the viewer wraps back to the cases.
func (ui *UI) focusRight() {
	var next tview.Primitive
	switch ui.app.GetFocus() {
	case ui.caseList, ui.evidenceList:
		next = ui.notesTable
	case ui.notesTable, ui.tagsTable, ui.iocsTable:
		next = ui.noteView
	default:
		next = ui.caseList
	}
	ui.app.SetFocus(next)
	ui.highlightFocus(next)
	ui.updateHints()
}

// moveSelection moves the highlighted row of the focused primitive.
func (ui *UI) moveSelection(delta int) {
	switch p := ui.app.GetFocus().(type) {
	case *tview.List:
		count := p.GetItemCount()
		if count == 0 {
			return
		}
		idx := p.GetCurrentItem() + delta
		if idx < 0 {
			idx = 0
		}
		if idx >= count {
			idx = count - 1
		}
		p.SetCurrentItem(idx)
	case *tview.Table:
		count := p.GetRowCount()
		if count <= 1 {
			return
		}
		row, _ := p.GetSelection()
		row += delta
		if row < 1 {
			row = 1
		}
		if row >= count {
			row = count - 1
		}
		p.Select(row, 0)
	case *tview.TextView:
		row, col := p.GetScrollOffset()
		if row+delta >= 0 {
			p.ScrollTo(row+delta, col)
		}
	}
}

func (ui *UI) moveToBoundary(top bool) {
	switch p := ui.app.GetFocus().(type) {
	case *tview.List:
		count := p.GetItemCount()
		if count == 0 {
			return
		}
		if top {
			p.SetCurrentItem(0)
		} else {
			p.SetCurrentItem(count - 1)
		}
	case *tview.Table:
		count := p.GetRowCount()
		if count <= 1 {
			return
		}
		if top {
			p.Select(1, 0)
		} else {
			p.Select(count-1, 0)
		}
	case *tview.TextView:
		if top {
			p.ScrollToBeginning()
		} else {
			p.ScrollToEnd()
		}
	}
}

// highlightFocus draws the focus ring on the focused pane.
func (ui *UI) highlightFocus(focused tview.Primitive) {
	boxes := map[tview.Primitive]*tview.Box{
		ui.caseList:     ui.caseList.Box,
		ui.evidenceList: ui.evidenceList.Box,
		ui.notesTable:   ui.notesTable.Box,
		ui.tagsTable:    ui.tagsTable.Box,
		ui.iocsTable:    ui.iocsTable.Box,
		ui.noteView:     ui.noteView.Box,
	}
	for p, b := range boxes {
		if p == focused {
			b.SetBorderColor(ui.theme.FocusBorder)
		} else {
			b.SetBorderColor(ui.theme.Border)
		}
	}
}

// startRedrawHeartbeat periodically requests a redraw for terminals that
// occasionally miss repaints.
func (ui *UI) startRedrawHeartbeat() {
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ui.ctx.Done():
				return
			case <-ticker.C:
				if ui.running {
					ui.app.QueueUpdate(func() {})
				}
			}
		}
	}()
}

// isDialogActive reports whether a form, modal, or input field owns the
// keyboard, which bypasses the global shortcuts.
func (ui *UI) isDialogActive() bool {
	if ui.helpActive {
		return true
	}
	if ui.app == nil {
		return false
	}
	focused := ui.app.GetFocus()
	if focused == nil {
		return false
	}
	switch focused.(type) {
	case *tview.Form,
		*tview.Modal,
		*tview.InputField,
		*tview.TextArea,
		*tview.DropDown,
		*tview.Button,
		*tview.Checkbox:
		return true
	default:
		return false
	}
}

// setStatus updates the status bar from a background goroutine.
func (ui *UI) setStatus(format string, args ...interface{}) {
	if ui.running {
		ui.app.QueueUpdateDraw(func() {
			ui.setStatusDirect(format, args...)
		})
		return
	}
	ui.setStatusDirect(format, args...)
}

// setStatusDirect updates the status bar; UI goroutine only.
func (ui *UI) setStatusDirect(format string, args ...interface{}) {
	ui.lastStatus = fmt.Sprintf(format, args...)
	ui.statusBar.SetText(ui.statusLine(ui.lastStatus))
}

// updateHints re-renders the status line so the key legend follows focus.
func (ui *UI) updateHints() {
	msg := ui.lastStatus
	if msg == "" {
		msg = fmt.Sprintf("[%s]Ready[-:-:-]", ui.theme.TagAccent)
	}
	ui.statusBar.SetText(ui.statusLine(msg))
}

func (ui *UI) statusLine(msg string) string {
	mut := ui.theme.TagMuted
	return fmt.Sprintf(" [%s]%s[-] [%s]|[-] %s [%s]|[-] %s",
		mut, time.Now().Format("15:04:05"), mut, msg, mut, ui.hints())
}

// hints builds the contextual key legend for the focused pane.
func (ui *UI) hints() string {
	acc := ui.theme.TagAccent
	key := func(k, what string) string {
		return fmt.Sprintf("[%s]%s[-]:%s", acc, k, what)
	}
	var parts []string
	switch ui.app.GetFocus() {
	case ui.caseList:
		parts = append(parts, key("c", "new"), key("v", "evidence"), key("u", "use"), key("d", "delete"))
	case ui.evidenceList:
		parts = append(parts, key("v", "new"), key("u", "use"), key("d", "delete"))
	case ui.notesTable:
		parts = append(parts, key("a", "quick-add"), key("n", "note"), key("d", "delete"), key("e", "export"))
	case ui.tagsTable, ui.iocsTable:
		parts = append(parts, key("Enter", "filter"), key("Esc", "clear"), key("x", "export"))
	case ui.noteView:
		parts = append(parts, key("j/k", "scroll"))
	}
	parts = append(parts, key("Tab", "move"), key("?", "help"), key("q", "quit"))
	return strings.Join(parts, " ")
}

// applyTheme pushes the palette into every widget and re-renders markup.
func (ui *UI) applyTheme() {
	th := ui.theme

	ui.appTitle.SetBackgroundColor(th.Bg)
	ui.appTitle.SetText(fmt.Sprintf(" [%s::b]Trace-Console[-:-:-]", th.TagAccent))

	ui.overview.SetBackgroundColor(th.Surface)
	ui.overview.SetTextColor(th.TextPrimary)
	ui.overview.SetBorderColor(th.Border)
	ui.overview.SetTitleColor(th.Header)

	for _, l := range []*tview.List{ui.caseList, ui.evidenceList} {
		l.SetBackgroundColor(th.Surface)
		l.SetMainTextColor(th.TextPrimary)
		l.SetSecondaryTextColor(th.TextMuted)
		l.SetSelectedTextColor(th.SelectionFg)
		l.SetSelectedBackgroundColor(th.SelectionBg)
		l.SetBorderColor(th.Border)
		l.SetTitleColor(th.Header)
	}

	for _, t := range []*tview.Table{ui.notesTable, ui.tagsTable, ui.iocsTable} {
		t.SetBackgroundColor(th.Surface)
		t.SetBorderColor(th.Border)
		t.SetTitleColor(th.Header)
		t.SetSelectedStyle(tcell.StyleDefault.
			Background(th.SelectionBg).
			Foreground(th.SelectionFg))
	}

	ui.noteView.SetBackgroundColor(th.Surface)
	ui.noteView.SetTextColor(th.TextPrimary)
	ui.noteView.SetBorderColor(th.Border)
	ui.noteView.SetTitleColor(th.Header)

	ui.quickInput.SetLabelColor(th.Accent)
	ui.quickInput.SetFieldBackgroundColor(th.SelectionBg)
	ui.quickInput.SetFieldTextColor(th.TextPrimary)
	ui.quickInput.SetBackgroundColor(th.Bg)

	ui.statusBar.SetBackgroundColor(th.Bg)
	ui.statusBar.SetTextColor(th.TextMuted)

	ui.root.SetBackgroundColor(th.Bg)

	ui.highlightFocus(ui.app.GetFocus())

	// Markup colors live inside rendered text, so re-render everything.
	if ui.tree != nil {
		ui.renderAll()
	}
	ui.updateHints()
}

func (ui *UI) cycleTheme() {
	next := map[string]string{
		"dark":          "light",
		"light":         "high-contrast",
		"high-contrast": "cb-safe",
		"cb-safe":       "dark",
	}[ui.themeName]
	if next == "" {
		next = "dark"
	}
	ui.setTheme(next)
}

// setTheme swaps palettes; the guard drops re-entrant calls while a swap is
// still rendering.
func (ui *UI) setTheme(name string) {
	if !atomic.CompareAndSwapInt32(&ui.themeApplying, 0, 1) {
		return
	}
	defer atomic.StoreInt32(&ui.themeApplying, 0)

	ui.themeName, ui.theme = themeByName(name)
	ui.applyTheme()
	ui.logger.Printf("theme set to %s", ui.themeName)
	ui.setStatusDirect("[%s]Theme: %s[-:-:-]", ui.theme.TagAccent, ui.themeName)
}

// presentModal swaps the root to a dialog, remembering where focus was.
func (ui *UI) presentModal(p tview.Primitive) {
	ui.lastFocus = ui.app.GetFocus()
	ui.app.SetRoot(p, true)
	ui.app.SetFocus(p)
}

// restoreMainLayout returns to the main screen after a form or modal.
func (ui *UI) restoreMainLayout() {
	ui.helpActive = false
	ui.app.SetRoot(ui.root, true)
	ui.app.SetInputCapture(ui.globalInputCapture)
	if ui.lastFocus != nil {
		ui.app.SetFocus(ui.lastFocus)
	} else {
		ui.app.SetFocus(ui.caseList)
	}
	ui.highlightFocus(ui.app.GetFocus())
}

// showHelp renders the key reference as a scrollable table.
func (ui *UI) showHelp() {
	ui.helpActive = true

	header := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	header.SetBackgroundColor(ui.theme.Surface)
	header.SetText(fmt.Sprintf(" [%s]Trace-Console Help[-] ", ui.theme.TagAccent))

	footer := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	footer.SetBackgroundColor(ui.theme.Surface)
	footer.SetText(fmt.Sprintf("[%s]Close: q, Enter, or Esc[-]", ui.theme.TagMuted))

	table := tview.NewTable().SetBorders(false)
	table.SetBackgroundColor(ui.theme.Surface)
	table.SetSelectable(true, false)
	table.SetSelectedStyle(tcell.StyleDefault.
		Background(ui.theme.Surface).
		Foreground(ui.theme.TextPrimary))

	row := 0
	addSection := func(title string) {
		left := tview.NewTableCell(strings.Repeat(" ", 12)).
			SetBackgroundColor(ui.theme.TableHeaderBg)
		right := tview.NewTableCell(" " + title + " ").
			SetTextColor(ui.theme.TableHeader).
			SetBackgroundColor(ui.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold)
		table.SetCell(row, 0, left)
		table.SetCell(row, 1, right)
		row++
	}
	addKV := func(k, v string) {
		table.SetCell(row, 0, tview.NewTableCell(fmt.Sprintf("%-12s", k)).
			SetTextColor(ui.theme.Accent).
			SetAttributes(tcell.AttrBold))
		table.SetCell(row, 1, tview.NewTableCell(v).
			SetTextColor(ui.theme.TextPrimary).
			SetExpansion(1))
		row++
	}

	addSection("NAVIGATION")
	addKV("Tab / S-Tab", "Cycle panes")
	addKV("l", "Jump toward the note viewer")
	addKV("j / k", "Move selection down/up")
	addKV("g / G", "Jump to first/last")
	addKV("Enter", "Open selection (case, evidence, tag, IOC)")
	addKV("Esc", "Clear drill-down filter / status")

	addSection("NOTES")
	addKV("a", "Quick-add a note to the active context")
	addKV("n", "New note for the selected case or evidence")
	addKV("d", "Delete the selected note (notes pane)")

	addSection("CASES & EVIDENCE")
	addKV("c", "New case")
	addKV("v", "New evidence for the selected case")
	addKV("u", "Set active context to the selection")
	addKV("U", "Clear the active context")
	addKV("A", "Show every note in the store")
	addKV("d", "Delete the selected case or evidence")

	addSection("DATA")
	addKV("r", "Reload the store from disk")
	addKV("e", "Export a Markdown report")
	addKV("x", "Export indicators for the current scope")
	addKV("s", "Signing settings")

	addSection("APPEARANCE")
	addKV("t", "Cycle themes")
	addKV("T", "Toggle high-contrast")
	addKV("C", "Toggle colorblind-safe")

	layout := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(header, 1, 0, false).
		AddItem(table, 0, 1, true).
		AddItem(footer, 1, 0, false)
	layout.SetBorder(true)
	layout.SetTitle(" Help ")
	layout.SetBorderColor(ui.theme.FocusBorder)
	layout.SetBackgroundColor(ui.theme.Surface)

	layout.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyEsc, tcell.KeyEnter:
			ui.restoreMainLayout()
			return nil
		case tcell.KeyRune:
			if event.Rune() == 'q' {
				ui.restoreMainLayout()
				return nil
			}
		}
		return event
	})

	ui.presentModal(layout)
}
