package download

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/handiism/sra-downloader/internal/config"
	sradlhttp "github.com/handiism/sra-downloader/internal/http"
	ioutils "github.com/handiism/sra-downloader/internal/io"
	"github.com/handiism/sra-downloader/internal/model"
	"github.com/handiism/sra-downloader/internal/runinfo"
	"github.com/handiism/sra-downloader/internal/samplesheet"
	"github.com/handiism/sra-downloader/internal/sra"
)

// ProgressLevel indicates the severity/type of a progress message.
type ProgressLevel int

const (
	LevelInfo ProgressLevel = iota
	LevelVerbose
	LevelWarning
	LevelError
	LevelSuccess
	// LevelProgress events carry no message worth printing; they update the
	// phase counters in Phase, Done and Total.
	LevelProgress
)

// Phase names one of the two scheduling passes.
type Phase string

const (
	PhaseFetch  Phase = "fetch"
	PhaseRename Phase = "rename"
)

// ProgressEvent represents a download progress update.
type ProgressEvent struct {
	Message string
	Level   ProgressLevel

	// Set on LevelProgress events.
	Phase      Phase
	Dispatched int
	Done       int
	Total      int
}

// Manager coordinates the download of every run in a project.
type Manager struct {
	settings   *config.Settings
	layout     *model.Layout
	acquirer   *runinfo.Acquirer
	fetcher    sra.Fetcher
	converter  sra.Converter
	compressor sra.Compressor
	logWriter  io.Writer

	manifest *runinfo.Manifest
	project  string
	log      *Log

	phase      atomic.Value // Phase
	total      atomic.Int32
	dispatched atomic.Int32
	done       atomic.Int32

	onProgress func(ProgressEvent)
	mu         sync.Mutex
}

// Option customizes a Manager.
type Option func(*Manager)

// WithFetcher replaces the archive fetcher chosen from the settings.
func WithFetcher(f sra.Fetcher) Option {
	return func(m *Manager) { m.fetcher = f }
}

// WithConverter replaces the fasterq-dump converter.
func WithConverter(c sra.Converter) Option {
	return func(m *Manager) { m.converter = c }
}

// WithCompressor replaces the gzip compressor.
func WithCompressor(c sra.Compressor) Option {
	return func(m *Manager) { m.compressor = c }
}

// WithAcquirer replaces the manifest acquirer.
func WithAcquirer(a *runinfo.Acquirer) Option {
	return func(m *Manager) { m.acquirer = a }
}

// WithLogWriter sends the shared log to w instead of <target>/log.
func WithLogWriter(w io.Writer) Option {
	return func(m *Manager) { m.logWriter = w }
}

// NewManager creates a new download Manager.
func NewManager(settings *config.Settings, onProgress func(ProgressEvent), opts ...Option) *Manager {
	client := sradlhttp.NewClient(settings.UserAgent)

	var fetcher sra.Fetcher
	switch settings.Fetcher {
	case config.FetcherHTTP:
		fetcher = sra.NewHTTPFetcher(client)
	default:
		fetcher = &sra.PrefetchFetcher{Path: settings.PrefetchPath}
	}

	m := &Manager{
		settings:   settings,
		layout:     settings.ToLayout(),
		acquirer:   runinfo.NewAcquirer(client, settings.RunInfoEndpoint),
		fetcher:    fetcher,
		converter:  &sra.FasterqDump{Path: settings.FasterqDumpPath, Threads: settings.ConvertThreads},
		compressor: &sra.GzipCompressor{Level: settings.CompressionLevel},
		onProgress: onProgress,
	}
	m.phase.Store(Phase(""))
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Initialize acquires and sanitizes the manifest.
//
// When manifestPath is empty the manifest is queried for project. When
// project is empty the project of the manifest's first row is used. Rows of
// other projects are dropped with a single warning naming them.
//
// Returns an error wrapping runinfo.ErrProjectNotFound when no run is left,
// and one wrapping ErrSampleDirCollision when distinct sample names map to
// the same sample directory, merge mode or not.
func (m *Manager) Initialize(ctx context.Context, project, manifestPath string) error {
	m.progress(ProgressEvent{Message: "Fetching run manifest", Level: LevelVerbose})

	manifest, err := m.acquirer.Acquire(ctx, project, manifestPath)
	if err != nil {
		return err
	}

	if project == "" {
		project = manifest.Runs[0].Project
		m.progress(ProgressEvent{Message: fmt.Sprintf("Using project %s from the manifest", project), Level: LevelInfo})
	}

	if foreign := manifest.Sanitize(project); len(foreign) > 0 {
		m.progress(ProgressEvent{
			Message: fmt.Sprintf("Removed runs of other projects from the manifest: %s", strings.Join(foreign, ", ")),
			Level:   LevelWarning,
		})
	}
	if manifest.Len() == 0 {
		return fmt.Errorf("%s: %w", project, runinfo.ErrProjectNotFound)
	}
	if collisions := model.DirCollisions(manifest.Samples()); len(collisions) > 0 {
		return dirCollisionError(collisions)
	}

	m.manifest = manifest
	m.project = project

	m.progress(ProgressEvent{
		Message: fmt.Sprintf("Found %d runs in %d samples for %s", manifest.Len(), len(manifest.Samples()), project),
		Level:   LevelInfo,
	})
	return nil
}

// Project returns the project being downloaded.
func (m *Manager) Project() string {
	return m.project
}

// Manifest returns the sanitized manifest, or nil before Initialize.
func (m *Manager) Manifest() *runinfo.Manifest {
	return m.manifest
}

// Samples returns the manifest's runs grouped by sample.
func (m *Manager) Samples() []*model.Sample {
	if m.manifest == nil {
		return nil
	}
	return m.manifest.Samples()
}

// Run fetches every run, then renames and merges every sample.
//
// After each phase the shared log is checked; any warning or error line
// stops the run with a *PhaseError and leaves the log in place. A clean run
// removes the log. Samples with several runs are rejected with
// ErrMultiRunSample before anything is written unless merge mode is set.
func (m *Manager) Run(ctx context.Context) error {
	if m.manifest == nil {
		return ErrNotInitialized
	}
	if err := m.checkMerge(); err != nil {
		return err
	}

	if err := ioutils.EnsureDir(m.layout.Root); err != nil {
		if errors.Is(err, ioutils.ErrNotDir) {
			return fmt.Errorf("%s: %w", m.layout.Root, config.ErrTargetNotDir)
		}
		return err
	}

	if err := m.openLog(); err != nil {
		return err
	}
	defer m.log.Close()

	if m.settings.SaveManifest {
		if err := m.saveManifest(ctx); err != nil {
			m.progress(ProgressEvent{Message: fmt.Sprintf("Error saving manifest: %v", err), Level: LevelWarning})
		}
	}

	if _, err := m.FetchRuns(ctx); err != nil {
		return err
	}
	if err := m.gate(PhaseFetch); err != nil {
		return err
	}

	results, err := m.RenameSamples(ctx)
	if err != nil {
		return err
	}
	if err := m.gate(PhaseRename); err != nil {
		return err
	}

	if m.settings.SampleSheet != "" {
		if err := m.writeSampleSheet(ctx, results); err != nil {
			return fmt.Errorf("write sample sheet: %w", err)
		}
	}

	if err := m.log.Remove(); err != nil {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Error removing log: %v", err), Level: LevelWarning})
	}
	m.progress(ProgressEvent{Message: fmt.Sprintf("Successfully downloaded %s", m.project), Level: LevelSuccess})
	return nil
}

// GetProgress returns the current phase and its job counters.
func (m *Manager) GetProgress() (phase Phase, done, total int) {
	return m.phase.Load().(Phase), int(m.done.Load()), int(m.total.Load())
}

// LogPath returns the path of the shared log, or "" before Run.
func (m *Manager) LogPath() string {
	if m.log == nil {
		return ""
	}
	return m.log.Path()
}

func (m *Manager) checkMerge() error {
	if m.settings.Merge {
		return nil
	}
	var merged []string
	for _, s := range m.manifest.Samples() {
		if s.IsMerged() {
			merged = append(merged, s.Name)
		}
	}
	if len(merged) > 0 {
		return multiRunError(merged)
	}
	return nil
}

func (m *Manager) openLog() error {
	if m.logWriter != nil {
		m.log = NewLog(m.logWriter)
		return nil
	}
	if err := ioutils.EnsureDir(m.layout.Root); err != nil {
		return err
	}
	log, err := OpenLog(filepath.Join(m.layout.Root, LogFileName))
	if err != nil {
		return err
	}
	m.log = log
	return nil
}

func (m *Manager) gate(phase Phase) error {
	if !m.log.Failed() {
		return nil
	}
	return &PhaseError{Phase: phase, Failures: m.log.Failures(), LogPath: m.log.Path()}
}

func (m *Manager) saveManifest(ctx context.Context) error {
	var buf bytes.Buffer
	if err := m.manifest.WriteCSV(&buf); err != nil {
		return err
	}
	path := filepath.Join(m.layout.Root, model.SampleDirName(m.project)+"_runinfo.csv")
	return ioutils.WriteFile(ctx, path, buf.Bytes())
}

func (m *Manager) writeSampleSheet(ctx context.Context, results []RenameResult) error {
	format, err := samplesheet.ParseFormat(m.settings.SampleSheet)
	if err != nil {
		return err
	}

	var entries []samplesheet.Entry
	for _, res := range results {
		if res.Err != nil || len(res.Outputs) == 0 {
			continue
		}
		entry := samplesheet.Entry{Sample: res.Sample.Name}
		for _, out := range res.Outputs {
			if strings.HasPrefix(filepath.Base(out), model.SampleDirName(res.Sample.Name)+model.ReadEnd2.Suffix()) {
				entry.Read2 = out
			} else {
				entry.Read1 = out
			}
		}
		entries = append(entries, entry)
	}

	creator := samplesheet.NewCreator(format, m.layout.Root)
	content, err := creator.Create(entries)
	if err != nil {
		return err
	}
	if err := ioutils.WriteFile(ctx, creator.Path(), []byte(content)); err != nil {
		return err
	}
	m.progress(ProgressEvent{Message: "Created sample sheet " + creator.Path(), Level: LevelSuccess})
	return nil
}

// startPhase resets the job counters for a new phase.
func (m *Manager) startPhase(phase Phase, total int) {
	m.phase.Store(phase)
	m.total.Store(int32(total))
	m.dispatched.Store(0)
	m.done.Store(0)
}

func (m *Manager) reportProgress() {
	m.progress(ProgressEvent{
		Level:      LevelProgress,
		Phase:      m.phase.Load().(Phase),
		Dispatched: int(m.dispatched.Load()),
		Done:       int(m.done.Load()),
		Total:      int(m.total.Load()),
	})
}

func (m *Manager) waitForRetry(ctx context.Context, tries int) {
	cooldown := m.settings.DownloadRetryCooldown * math.Pow(m.settings.DownloadRetryExponent, float64(tries))
	select {
	case <-ctx.Done():
	case <-time.After(time.Duration(cooldown * float64(time.Second))):
	}
}

// progress delivers an event to the callback. Calls are serialized so the
// callback never runs concurrently with itself.
func (m *Manager) progress(event ProgressEvent) {
	if m.onProgress == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onProgress(event)
}

// removeRunFiles deletes every file a run owns in its sample directory.
func (m *Manager) removeRunFiles(run *model.Run) {
	removed, err := ioutils.RemoveMatching(m.layout.SampleDir(run.Sample), func(name string) bool {
		return m.layout.OwnedByRun(run.Sample, run.Accession, name)
	})
	for _, path := range removed {
		m.progress(ProgressEvent{Message: "Removed " + path, Level: LevelVerbose})
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Error cleaning up %s: %v", run.Accession, err), Level: LevelWarning})
	}
}
