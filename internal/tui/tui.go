// Package tui provides a Bubble Tea terminal user interface for sra-downloader.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/handiism/sra-downloader/internal/config"
	"github.com/handiism/sra-downloader/internal/download"
	"github.com/handiism/sra-downloader/internal/runinfo"
)

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#4ECDC4")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8DADC"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4ECDC4")).
			Padding(1, 2)

	sampleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F8B500"))
)

const (
	maxLogs    = 10
	maxSamples = 8
)

// State represents the current UI state.
type State int

const (
	StateInput State = iota
	StateInitializing
	StateDownloading
	StateComplete
	StateNoData
	StateError
)

// LogEntry represents a log message in the UI.
type LogEntry struct {
	Message string
	Level   download.ProgressLevel
}

// Model is the Bubble Tea model for the TUI.
type Model struct {
	state     State
	textInput textinput.Model
	spinner   spinner.Model
	progress  progress.Model
	settings  *config.Settings
	logs      []LogEntry
	samples   []string
	err       error

	// Download context
	ctx    context.Context
	cancel context.CancelFunc

	manager *download.Manager
	events  chan download.ProgressEvent

	// Phase progress
	phase download.Phase
	done  int
	total int

	// Options
	merge        bool
	skipExisting bool
	verbose      bool

	width  int
	height int
}

// NewModel creates a new TUI model using settings as the base configuration.
func NewModel(settings *config.Settings) Model {
	ti := textinput.New()
	ti.Placeholder = "PRJNA123456"
	ti.Focus()
	ti.CharLimit = 64
	ti.Width = 40

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#4ECDC4"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 50

	ctx, cancel := context.WithCancel(context.Background())

	return Model{
		state:        StateInput,
		textInput:    ti,
		spinner:      sp,
		progress:     prog,
		settings:     settings,
		ctx:          ctx,
		cancel:       cancel,
		events:       make(chan download.ProgressEvent, 256),
		merge:        settings.Merge,
		skipExisting: settings.SkipExisting,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Message types
type (
	// ProgressMsg is sent when the manager reports an event.
	ProgressMsg struct {
		Event download.ProgressEvent
	}

	// InitDoneMsg is sent when the manifest has been acquired.
	InitDoneMsg struct {
		Samples []string
		Manager *download.Manager
		Err     error
	}

	// DownloadDoneMsg is sent when both phases have finished.
	DownloadDoneMsg struct {
		Err error
	}

	// TickMsg is for periodic progress updates.
	TickMsg struct{}
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = min(max(msg.Width-20, 20), 80)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.cancel()
			return m, tea.Quit

		case "esc":
			if m.state == StateInput {
				return m, tea.Quit
			}
			if m.state == StateDownloading || m.state == StateInitializing {
				m.cancel()
			}

		case "enter":
			if m.state == StateInput && strings.TrimSpace(m.textInput.Value()) != "" {
				m.state = StateInitializing
				return m, tea.Batch(m.initializeDownload(), m.waitForEvent(), m.spinner.Tick)
			}

		case "alt+m":
			if m.state == StateInput {
				m.merge = !m.merge
				return m, nil
			}

		case "alt+s":
			if m.state == StateInput {
				m.skipExisting = !m.skipExisting
				return m, nil
			}

		case "alt+v":
			if m.state == StateInput {
				m.verbose = !m.verbose
				return m, nil
			}

		case "q":
			if m.isFinished() {
				return m, tea.Quit
			}

		case "r":
			if m.isFinished() {
				m.reset()
				return m, textinput.Blink
			}
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case ProgressMsg:
		cmds = append(cmds, m.waitForEvent())
		switch {
		case msg.Event.Level == download.LevelProgress:
		case msg.Event.Level == download.LevelVerbose && !m.verbose:
		default:
			m.logs = append(m.logs, LogEntry{Message: msg.Event.Message, Level: msg.Event.Level})
			if len(m.logs) > maxLogs {
				m.logs = m.logs[len(m.logs)-maxLogs:]
			}
		}

	case InitDoneMsg:
		switch {
		case errors.Is(msg.Err, runinfo.ErrProjectNotFound):
			m.state = StateNoData
			m.err = msg.Err
		case msg.Err != nil:
			m.state = StateError
			m.err = msg.Err
		default:
			m.samples = msg.Samples
			m.manager = msg.Manager
			m.state = StateDownloading
			cmds = append(cmds, m.startDownload(), m.tickProgress())
		}
		if m.isFinished() {
			m.cancel()
		}

	case DownloadDoneMsg:
		switch {
		case m.ctx.Err() != nil:
			m.state = StateError
			m.err = fmt.Errorf("cancelled by user")
		case msg.Err != nil:
			m.state = StateError
			m.err = msg.Err
		default:
			m.state = StateComplete
		}
		// Releases the pending waitForEvent once the backlog is drained.
		m.cancel()

	case TickMsg:
		if m.manager != nil && m.state == StateDownloading {
			m.phase, m.done, m.total = m.manager.GetProgress()

			var percent float64
			if m.total > 0 {
				percent = float64(m.done) / float64(m.total)
			}
			cmds = append(cmds, m.progress.SetPercent(percent), m.tickProgress())
		}

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	// Update text input
	if m.state == StateInput {
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) isFinished() bool {
	return m.state == StateComplete || m.state == StateError || m.state == StateNoData
}

func (m *Model) reset() {
	m.cancel()
	m.state = StateInput
	m.logs = nil
	m.samples = nil
	m.err = nil
	m.phase, m.done, m.total = "", 0, 0
	m.manager = nil
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.events = make(chan download.ProgressEvent, 256)
	m.textInput.SetValue("")
	m.textInput.Focus()
}

// tickProgress returns a command to tick progress updates.
func (m Model) tickProgress() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// waitForEvent delivers the next manager event as a ProgressMsg. Once the
// download context is done it delivers what is still buffered and then
// returns nil.
func (m Model) waitForEvent() tea.Cmd {
	events := m.events
	ctx := m.ctx
	return func() tea.Msg {
		select {
		case event := <-events:
			return ProgressMsg{Event: event}
		case <-ctx.Done():
		}
		select {
		case event := <-events:
			return ProgressMsg{Event: event}
		default:
			return nil
		}
	}
}

// View renders the UI.
func (m Model) View() string {
	var b strings.Builder

	// Header
	b.WriteString(titleStyle.Render("SRA Downloader"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Download the raw reads of a BioProject"))
	b.WriteString("\n\n")

	switch m.state {
	case StateInput:
		b.WriteString(m.viewInput())
	case StateInitializing:
		b.WriteString(m.viewInitializing())
	case StateDownloading:
		b.WriteString(m.viewDownloading())
	case StateComplete:
		b.WriteString(m.viewComplete())
	case StateNoData:
		b.WriteString(infoStyle.Render(fmt.Sprintf("No runs found: %v", m.err)))
		b.WriteString("\n")
	case StateError:
		b.WriteString(m.viewError())
	}

	// Footer
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.getHelpText()))

	return b.String()
}

func checkbox(on bool) string {
	if on {
		return "[x]"
	}
	return "[ ]"
}

func (m Model) viewInput() string {
	var b strings.Builder

	b.WriteString(subtitleStyle.Render("Enter BioProject accession:"))
	b.WriteString("\n\n")
	b.WriteString(m.textInput.View())
	b.WriteString("\n\n")

	b.WriteString(infoStyle.Render("Options:"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  %s Merge runs of the same sample (alt+m)\n", checkbox(m.merge)))
	b.WriteString(fmt.Sprintf("  %s Skip existing files (alt+s)\n", checkbox(m.skipExisting)))
	b.WriteString(fmt.Sprintf("  %s Verbose output (alt+v)\n", checkbox(m.verbose)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("Target directory: %s | Parallel jobs: %d", m.settings.TargetDir, m.settings.Parallelism)))
	b.WriteString("\n")

	return b.String()
}

func (m Model) viewInitializing() string {
	var b strings.Builder

	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(subtitleStyle.Render("Fetching run manifest..."))
	b.WriteString("\n\n")
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewDownloading() string {
	var b strings.Builder

	if len(m.samples) > 0 {
		b.WriteString(successStyle.Render(fmt.Sprintf("Found %d sample(s):", len(m.samples))))
		b.WriteString("\n")
		for i, sample := range m.samples {
			if i == maxSamples {
				b.WriteString(dimStyle.Render(fmt.Sprintf("  ... and %d more", len(m.samples)-maxSamples)))
				b.WriteString("\n")
				break
			}
			b.WriteString(sampleStyle.Render("  " + sample))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	var percent float64
	if m.total > 0 {
		percent = float64(m.done) / float64(m.total)
	}
	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(m.progress.ViewAs(percent))
	b.WriteString("\n")

	phase := string(m.phase)
	if phase == "" {
		phase = "starting"
	}
	b.WriteString(infoStyle.Render(fmt.Sprintf("Phase: %s | Jobs: %d/%d", phase, m.done, m.total)))
	b.WriteString("\n\n")
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewComplete() string {
	return boxStyle.Render(fmt.Sprintf(
		"Download Complete!\n\n"+
			"Samples: %d\n"+
			"Directory: %s",
		len(m.samples),
		m.settings.TargetDir,
	))
}

func (m Model) viewError() string {
	var b strings.Builder

	b.WriteString(errorStyle.Render("Error occurred:"))
	b.WriteString("\n\n")
	if m.err != nil {
		b.WriteString(fmt.Sprintf("  %s", m.err.Error()))
		var phaseErr *download.PhaseError
		if errors.As(m.err, &phaseErr) {
			for _, line := range phaseErr.Failures {
				b.WriteString("\n  ")
				b.WriteString(dimStyle.Render(line))
			}
		}
	}
	b.WriteString("\n")

	return b.String()
}

func (m Model) renderLogs() string {
	var b strings.Builder

	for _, log := range m.logs {
		var style lipgloss.Style
		prefix := "-"
		switch log.Level {
		case download.LevelError:
			style = errorStyle
			prefix = "x"
		case download.LevelWarning:
			style = warningStyle
			prefix = "!"
		case download.LevelSuccess:
			style = successStyle
			prefix = "+"
		case download.LevelInfo:
			style = infoStyle
			prefix = ">"
		default:
			style = dimStyle
		}
		b.WriteString(style.Render(prefix + " " + log.Message))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) getHelpText() string {
	switch m.state {
	case StateInput:
		return "enter: start | alt+m: merge | alt+s: skip existing | alt+v: verbose | esc: quit"
	case StateInitializing, StateDownloading:
		return "esc: cancel"
	default:
		return "r: new download | q: quit"
	}
}

// initializeDownload acquires the manifest and creates the manager.
func (m Model) initializeDownload() tea.Cmd {
	project := strings.TrimSpace(m.textInput.Value())
	settings := *m.settings
	settings.Merge = m.merge
	settings.SkipExisting = m.skipExisting
	ctx := m.ctx
	events := m.events

	return func() tea.Msg {
		manager := download.NewManager(&settings, func(event download.ProgressEvent) {
			// Counters are polled on TickMsg.
			if event.Level == download.LevelProgress {
				return
			}
			select {
			case events <- event:
			case <-ctx.Done():
			}
		})

		if err := manager.Initialize(ctx, project, ""); err != nil {
			return InitDoneMsg{Err: err}
		}

		var samples []string
		for _, s := range manager.Samples() {
			samples = append(samples, fmt.Sprintf("%s (%d run(s))", s.Name, len(s.Runs)))
		}
		return InitDoneMsg{Samples: samples, Manager: manager}
	}
}

// startDownload runs both phases in the background.
func (m Model) startDownload() tea.Cmd {
	manager := m.manager
	ctx := m.ctx
	return func() tea.Msg {
		if manager == nil {
			return DownloadDoneMsg{Err: download.ErrNotInitialized}
		}
		return DownloadDoneMsg{Err: manager.Run(ctx)}
	}
}

// Run starts the TUI application.
func Run(settings *config.Settings) error {
	p := tea.NewProgram(NewModel(settings), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
