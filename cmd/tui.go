package cmd

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"

	"github.com/casetrace/trace-console/internal/store"
	"github.com/casetrace/trace-console/internal/ui"
)

var (
	noTUI    bool
	forceTUI bool
	uiTheme  string
)

// tuiCmd is the explicit form of the default no-argument invocation.
var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive console",
	Long: `Open the full-screen console: case list, evidence and note views, tag
and IOC panels, quick-add, and settings. Running trace-console without
arguments does the same thing.

On first run a short wizard detects GPG and configures note signing.

Examples:
  # Open the console
  trace-console tui

  # Force TUI mode in terminals that fail detection
  trace-console tui --force-tui

  # Print a text overview instead of opening the TUI
  trace-console tui --no-tui`,
	RunE: runConsole,
}

func init() {
	rootCmd.AddCommand(tuiCmd)

	tuiCmd.Flags().BoolVar(&noTUI, "no-tui", false, "Print a text overview instead of opening the TUI")
	tuiCmd.Flags().BoolVar(&forceTUI, "force-tui", false, "Force TUI mode even in unsupported terminals")
	tuiCmd.Flags().StringVar(&uiTheme, "theme", "", "Theme override (dark, light, high-contrast, cb-safe)")

	rootCmd.Flags().BoolVar(&noTUI, "no-tui", false, "Print a text overview instead of opening the TUI")
	rootCmd.Flags().BoolVar(&forceTUI, "force-tui", false, "Force TUI mode even in unsupported terminals")
	rootCmd.Flags().StringVar(&uiTheme, "theme", "", "Theme override (dark, light, high-contrast, cb-safe)")
}

func runConsole(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	// A corrupted data file is surfaced before any view. Load has already
	// backed the damaged file up; starting fresh is the user's call.
	if _, err := app.Service.Snapshot(); err != nil {
		if !errors.Is(err, store.ErrCorrupted) {
			return err
		}
		fmt.Fprintf(os.Stderr, "%v\n", err)
		fmt.Print("Start fresh with an empty store? (y/N): ")
		var response string
		fmt.Scanln(&response)
		if strings.ToLower(response) != "y" && strings.ToLower(response) != "yes" {
			return err
		}
		if err := app.Service.StartFresh(ctx); err != nil {
			return err
		}
		fmt.Println("✓ Store reset to empty; the backup file is kept for recovery.")
	}

	// First-run wizard before any console view.
	if !app.Store.Settings().Configured() {
		if err := runSetupWizard(ctx, app); err != nil {
			return err
		}
		fmt.Println()
	}

	if noTUI {
		return runList(cmd, args)
	}

	// Test if the TUI can be initialized (unless forced)
	if !forceTUI && !canInitializeTUI() {
		// Check if we can fix this with a pseudo-TTY
		if needsPseudoTTY() {
			return runWithPseudoTTY(cmd, args)
		}
		fmt.Fprintln(os.Stderr, "The interactive console cannot start in this terminal environment.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "For the full console, use:")
		fmt.Fprintln(os.Stderr, "  1. Native terminal (gnome-terminal, iTerm2, etc.)")
		fmt.Fprintln(os.Stderr, "  2. SSH with proper TERM settings")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Headless alternatives:")
		fmt.Fprintln(os.Stderr, "  trace-console list")
		fmt.Fprintln(os.Stderr, "  trace-console add \"note text\"")
		return fmt.Errorf("terminal does not support the TUI (%s)", getTerminalInfo())
	}

	// Route diagnostics to a file while the alternate screen is up; only
	// error lines still reach stderr.
	if logFile := openLogFile(app.Store.Dir(), "trace-console.log"); logFile != nil {
		app.Logger.SetOutput(io.MultiWriter(logFile, &errorFilterWriter{os.Stderr}))
		defer logFile.Close()
	} else {
		app.Logger.SetOutput(io.Discard)
	}
	app.Logger.Printf("Starting TUI, terminal info: %s", getTerminalInfo())

	uiLogger, closeUILog := setupUILogger(app.Store.Dir())
	defer closeUILog()

	theme := app.Config.UI.Theme
	if uiTheme != "" {
		theme = uiTheme
	}

	console := ui.NewUI(app.Service, theme, uiLogger)
	if err := console.Start(ctx); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// canInitializeTUI tests if tcell can actually be initialized
func canInitializeTUI() bool {
	screen, err := tcell.NewScreen()
	if err != nil {
		return false
	}

	err = screen.Init()
	if err != nil {
		return false
	}

	// Clean up immediately
	screen.Fini()
	return true
}

// needsPseudoTTY checks if we need to use script command for pseudo-TTY
func needsPseudoTTY() bool {
	// Try to actually open /dev/tty (not just check if it exists)
	if file, err := os.OpenFile("/dev/tty", os.O_RDWR, 0); err == nil {
		file.Close()
		return false
	}
	return true
}

// runWithPseudoTTY re-executes the command using script for pseudo-TTY
func runWithPseudoTTY(cmd *cobra.Command, args []string) error {
	// Get the current executable path
	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	// Build the command arguments
	cmdArgs := []string{"tui"}
	cmdArgs = append(cmdArgs, args...)

	// Add force-tui flag if not already present
	hasForceTUI := false
	for _, arg := range args {
		if arg == "--force-tui" {
			hasForceTUI = true
			break
		}
	}
	if !hasForceTUI {
		cmdArgs = append(cmdArgs, "--force-tui")
	}

	// Build the full command string with proper quoting
	quotedExecutable := fmt.Sprintf(`"%s"`, executable)
	quotedArgs := make([]string, len(cmdArgs))
	for i, arg := range cmdArgs {
		quotedArgs[i] = fmt.Sprintf(`"%s"`, arg)
	}

	fullCmd := fmt.Sprintf("TERM=%s %s %s",
		os.Getenv("TERM"),
		quotedExecutable,
		strings.Join(quotedArgs, " "))

	// Use script command to create pseudo-TTY
	scriptCmd := exec.Command("script", "-qec", fullCmd, "/dev/null")
	scriptCmd.Stdin = os.Stdin
	scriptCmd.Stdout = os.Stdout
	scriptCmd.Stderr = os.Stderr

	// Set environment variables
	scriptCmd.Env = os.Environ()

	return scriptCmd.Run()
}

// openLogFile opens an append-mode log file under <dataDir>/logs, returning
// nil when the directory or file cannot be created.
func openLogFile(dataDir, name string) *os.File {
	logDir := filepath.Join(dataDir, "logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil
	}

	logFile, err := os.OpenFile(filepath.Join(logDir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil
	}
	return logFile
}

// setupUILogger builds the file-backed logger the TUI writes to, so UI
// diagnostics never land on the alternate screen.
func setupUILogger(dataDir string) (*log.Logger, func()) {
	logFile := openLogFile(dataDir, "trace-console-ui.log")
	if logFile == nil {
		return log.New(io.Discard, "[UI] ", log.LstdFlags), func() {}
	}

	uiLogger := log.New(logFile, "[UI] ", log.LstdFlags)
	// Emit an initial marker to the UI log so it's easy to find and verify.
	uiLogger.Printf("UI logger initialized (path=%s)", logFile.Name())
	_ = logFile.Sync()
	return uiLogger, func() { logFile.Close() }
}

// getTerminalInfo returns detailed terminal information
func getTerminalInfo() string {
	var info []string

	term := os.Getenv("TERM")
	if term == "" {
		info = append(info, "TERM=<not set>")
	} else {
		info = append(info, fmt.Sprintf("TERM=%s", term))
	}

	termProgram := os.Getenv("TERM_PROGRAM")
	if termProgram != "" {
		info = append(info, fmt.Sprintf("TERM_PROGRAM=%s", termProgram))
	}

	if width, height := getTerminalSize(); width > 0 && height > 0 {
		info = append(info, fmt.Sprintf("Size=%dx%d", width, height))
	}

	if isTerminal() {
		info = append(info, "TTY=yes")
	} else {
		info = append(info, "TTY=no")
	}

	if supportsColors() {
		info = append(info, "Colors=yes")
	} else {
		info = append(info, "Colors=no")
	}

	return strings.Join(info, ", ")
}

// isTerminal checks if stdout is a terminal
func isTerminal() bool {
	if fileInfo, err := os.Stdout.Stat(); err == nil {
		return (fileInfo.Mode() & os.ModeCharDevice) != 0
	}
	return false
}

// supportsColors checks if terminal supports colors
func supportsColors() bool {
	term := strings.ToLower(os.Getenv("TERM"))

	// Check for color support indicators
	colorTerms := []string{"color", "256", "truecolor", "24bit"}
	for _, colorTerm := range colorTerms {
		if strings.Contains(term, colorTerm) {
			return true
		}
	}

	// Check COLORTERM environment variable
	if colorTerm := os.Getenv("COLORTERM"); colorTerm != "" {
		return true
	}

	// Known color-supporting terminals
	supportedTerms := []string{"xterm", "screen", "tmux", "linux", "ansi"}
	for _, supported := range supportedTerms {
		if strings.Contains(term, supported) {
			return true
		}
	}

	return false
}

// errorFilterWriter only writes error messages to the underlying writer
type errorFilterWriter struct {
	writer io.Writer
}

func (w *errorFilterWriter) Write(p []byte) (n int, err error) {
	// Only write if the log message contains error indicators
	lc := strings.ToLower(string(p))

	if strings.Contains(lc, "error") ||
		strings.Contains(lc, "failed") ||
		strings.Contains(lc, "panic") {
		return w.writer.Write(p)
	}
	// Suppress non-error logs in TUI mode
	return len(p), nil
}
