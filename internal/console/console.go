package console

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/handiism/sra-downloader/internal/download"
)

// Printer renders download progress events for a command line.
//
// On an interactive terminal level prefixes are coloured and each phase
// shows a progress bar on the last line. Otherwise output is plain text
// with one "phase: done/total" line per completed job.
//
// Example:
//
//	p := console.New(os.Stderr, verbose)
//	manager := download.NewManager(settings, p.Handle)
//	...
//	p.Finish()
type Printer struct {
	mu      sync.Mutex
	out     io.Writer
	verbose bool
	color   bool

	styles   styles
	bar      progress.Model
	barShown bool
	current  download.ProgressEvent
	lastDone int
}

type styles struct {
	info, warning, err, success, verbose, phase lipgloss.Style
}

// New creates a Printer writing to f, with colours when f is a terminal.
func New(f *os.File, verbose bool) *Printer {
	color := isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	return newPrinter(f, verbose, color)
}

// NewPlain creates a Printer that never uses colours or a progress bar.
func NewPlain(w io.Writer, verbose bool) *Printer {
	return newPrinter(w, verbose, false)
}

func newPrinter(w io.Writer, verbose, color bool) *Printer {
	r := lipgloss.NewRenderer(w)
	return &Printer{
		out:     w,
		verbose: verbose,
		color:   color,
		styles: styles{
			info:    r.NewStyle().Foreground(lipgloss.Color("#A8DADC")),
			warning: r.NewStyle().Foreground(lipgloss.Color("#FFE66D")).Bold(true),
			err:     r.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true),
			success: r.NewStyle().Foreground(lipgloss.Color("#95E1A3")).Bold(true),
			verbose: r.NewStyle().Foreground(lipgloss.Color("#6C757D")),
			phase:   r.NewStyle().Foreground(lipgloss.Color("#4ECDC4")),
		},
		bar:      progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		lastDone: -1,
	}
}

// Handle prints one event. It is safe for concurrent use and can be passed
// directly to download.NewManager.
func (p *Printer) Handle(event download.ProgressEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch event.Level {
	case download.LevelProgress:
		p.printProgress(event)
	case download.LevelVerbose:
		if p.verbose {
			p.printLine(p.styles.verbose, "", event.Message)
		}
	case download.LevelWarning:
		p.printLine(p.styles.warning, "WARNING", event.Message)
	case download.LevelError:
		p.printLine(p.styles.err, "ERROR", event.Message)
	case download.LevelSuccess:
		p.printLine(p.styles.success, "OK", event.Message)
	default:
		p.printLine(p.styles.info, "INFO", event.Message)
	}
}

// Infof prints an informational line.
func (p *Printer) Infof(format string, args ...any) {
	p.Handle(download.ProgressEvent{Message: fmt.Sprintf(format, args...), Level: download.LevelInfo})
}

// Warnf prints a warning line.
func (p *Printer) Warnf(format string, args ...any) {
	p.Handle(download.ProgressEvent{Message: fmt.Sprintf(format, args...), Level: download.LevelWarning})
}

// Errorf prints an error line.
func (p *Printer) Errorf(format string, args ...any) {
	p.Handle(download.ProgressEvent{Message: fmt.Sprintf(format, args...), Level: download.LevelError})
}

// Successf prints a success line.
func (p *Printer) Successf(format string, args ...any) {
	p.Handle(download.ProgressEvent{Message: fmt.Sprintf(format, args...), Level: download.LevelSuccess})
}

// Finish ends a pending progress bar line.
func (p *Printer) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clearBar(true)
}

func (p *Printer) printLine(style lipgloss.Style, prefix, msg string) {
	p.clearBar(false)

	line := msg
	switch {
	case prefix == "":
		line = "  " + msg
	case p.color:
		line = style.Render(prefix) + " " + msg
	default:
		line = prefix + ": " + msg
	}
	fmt.Fprintln(p.out, line)

	if p.barShown {
		p.drawBar()
	}
}

func (p *Printer) printProgress(event download.ProgressEvent) {
	if event.Phase != p.current.Phase {
		p.clearBar(true)
		p.lastDone = -1
	}
	p.current = event

	if !p.color {
		if event.Done == p.lastDone {
			return
		}
		p.lastDone = event.Done
		fmt.Fprintf(p.out, "%s: %d/%d\n", event.Phase, event.Done, event.Total)
		return
	}

	p.barShown = true
	p.drawBar()
}

func (p *Printer) drawBar() {
	var percent float64
	if p.current.Total > 0 {
		percent = float64(p.current.Done) / float64(p.current.Total)
	}
	fmt.Fprintf(p.out, "\r%s %s %d/%d",
		p.styles.phase.Render(string(p.current.Phase)), p.bar.ViewAs(percent), p.current.Done, p.current.Total)
}

// clearBar erases the progress bar line. With keep the bar stays visible
// and the cursor moves to a new line instead.
func (p *Printer) clearBar(keep bool) {
	if !p.color || !p.barShown {
		return
	}
	if keep {
		fmt.Fprintln(p.out)
		p.barShown = false
		return
	}
	fmt.Fprint(p.out, "\r\033[K")
}
