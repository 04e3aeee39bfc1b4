package download

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/handiism/sra-downloader/internal/config"
	"github.com/handiism/sra-downloader/internal/model"
	"github.com/handiism/sra-downloader/internal/runinfo"
	"github.com/handiism/sra-downloader/internal/sra"
)

// fakeFetcher writes the run accession into the archive.
type fakeFetcher struct {
	mu        sync.Mutex
	calls     map[string]int
	active    int
	maxActive int

	// failures is the number of leading attempts that fail per run; a
	// negative count fails every attempt.
	failures map[string]int
	delay    time.Duration

	// started, when set, receives the accession once the archive is written;
	// the fetch then blocks until ctx is done.
	started chan string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{calls: make(map[string]int), failures: make(map[string]int)}
}

func (f *fakeFetcher) Fetch(ctx context.Context, run *model.Run, archive string) error {
	f.mu.Lock()
	f.calls[run.Accession]++
	attempt := f.calls[run.Accession]
	f.active++
	if f.active > f.maxActive {
		f.maxActive = f.active
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.active--
		f.mu.Unlock()
	}()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if n := f.failures[run.Accession]; n < 0 || attempt <= n {
		return errors.New("connection reset by peer")
	}

	if err := os.WriteFile(archive, []byte(run.Accession), 0644); err != nil {
		return err
	}

	if f.started != nil {
		f.started <- run.Accession
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (f *fakeFetcher) callCount(accession string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[accession]
}

func (f *fakeFetcher) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

// fakeConverter writes fasterq-dump style read files next to the archive.
type fakeConverter struct {
	single map[string]bool
	fail   map[string]bool
}

func (c *fakeConverter) Convert(ctx context.Context, archive, outDir string) error {
	run := strings.TrimSuffix(filepath.Base(archive), model.ArchiveExtension)
	if c.fail[run] {
		return errors.New("fasterq-dump: corrupt archive")
	}
	if c.single[run] {
		return os.WriteFile(filepath.Join(outDir, run+".fastq"), []byte("@"+run+"\n"), 0644)
	}
	for _, end := range []string{"1", "2"} {
		data := []byte("@" + run + "/" + end + "\n")
		if err := os.WriteFile(filepath.Join(outDir, run+"_"+end+".fastq"), data, 0644); err != nil {
			return err
		}
	}
	return nil
}

type testEnv struct {
	manager   *Manager
	settings  *config.Settings
	fetcher   *fakeFetcher
	converter *fakeConverter
	root      string

	mu     sync.Mutex
	events []ProgressEvent
}

func (e *testEnv) eventsAt(level ProgressLevel) []ProgressEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []ProgressEvent
	for _, ev := range e.events {
		if ev.Level == level {
			out = append(out, ev)
		}
	}
	return out
}

// newTestEnv builds a Manager over fake tools with a manifest written to a
// temporary file.
func newTestEnv(t *testing.T, modify func(*config.Settings), opts ...Option) *testEnv {
	t.Helper()

	settings := config.DefaultSettings()
	settings.TargetDir = filepath.Join(t.TempDir(), "out")
	settings.Parallelism = 2
	settings.DownloadRetryCooldown = 0
	settings.SaveManifest = false
	if modify != nil {
		modify(settings)
	}

	env := &testEnv{
		settings:  settings,
		fetcher:   newFakeFetcher(),
		converter: &fakeConverter{single: map[string]bool{}, fail: map[string]bool{}},
		root:      settings.TargetDir,
	}
	opts = append([]Option{
		WithFetcher(env.fetcher),
		WithConverter(env.converter),
		WithCompressor(&sra.GzipCompressor{}),
	}, opts...)

	env.manager = NewManager(settings, func(ev ProgressEvent) {
		env.mu.Lock()
		env.events = append(env.events, ev)
		env.mu.Unlock()
	}, opts...)
	return env
}

func (e *testEnv) initialize(t *testing.T, project, manifest string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "runinfo.csv")
	if err := os.WriteFile(path, []byte(manifest), 0644); err != nil {
		t.Fatal(err)
	}
	if err := e.manager.Initialize(context.Background(), project, path); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
}

func readGzip(t *testing.T, path string) string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	zr, err := gzip.NewReader(f)
	if err != nil {
		t.Fatal(err)
	}
	data, err := io.ReadAll(zr)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func dirNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return names
}

func TestInitialize_DropsForeignProjectRows(t *testing.T) {
	env := newTestEnv(t, nil)
	env.initialize(t, "PRJNA1", "Run,SampleName,BioProject\n"+
		"SRR1,SampleA,PRJNA1\n"+
		"SRR2,SampleB,PRJNA2\n"+
		"SRR3,SampleC,PRJNA2\n")

	if got := env.manager.Manifest().Len(); got != 1 {
		t.Fatalf("Len() = %d, want 1", got)
	}

	warnings := env.eventsAt(LevelWarning)
	if len(warnings) != 1 {
		t.Fatalf("got %d warnings, want 1: %+v", len(warnings), warnings)
	}
	if strings.Count(warnings[0].Message, "PRJNA2") != 1 {
		t.Errorf("warning %q should name PRJNA2 once", warnings[0].Message)
	}

	if err := env.manager.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if env.fetcher.callCount("SRR2") != 0 || env.fetcher.callCount("SRR3") != 0 {
		t.Error("runs of other projects must not be fetched")
	}
	if env.fetcher.callCount("SRR1") != 1 {
		t.Errorf("SRR1 fetched %d times, want 1", env.fetcher.callCount("SRR1"))
	}
}

func TestInitialize_ProjectFromManifest(t *testing.T) {
	env := newTestEnv(t, nil)
	env.initialize(t, "", "Run,SampleName,BioProject\nSRR1,SampleA,PRJNA7\nSRR2,SampleB,PRJNA8\n")

	if env.manager.Project() != "PRJNA7" {
		t.Errorf("Project() = %q, want PRJNA7", env.manager.Project())
	}
	if env.manager.Manifest().Len() != 1 {
		t.Errorf("Len() = %d, want 1", env.manager.Manifest().Len())
	}
}

func TestInitialize_ProjectNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("acc") != "PRJNA404" {
			t.Errorf("acc = %q", r.URL.Query().Get("acc"))
		}
		w.Write([]byte("\n\n"))
	}))
	defer server.Close()

	env := newTestEnv(t, func(s *config.Settings) { s.RunInfoEndpoint = server.URL })
	err := env.manager.Initialize(context.Background(), "PRJNA404", "")
	if !errors.Is(err, runinfo.ErrProjectNotFound) {
		t.Fatalf("Initialize() error = %v, want ErrProjectNotFound", err)
	}
	if _, err := os.Stat(env.root); !os.IsNotExist(err) {
		t.Error("no directory should be created for a missing project")
	}
	if !errors.Is(env.manager.Run(context.Background()), ErrNotInitialized) {
		t.Error("Run after a failed Initialize should report ErrNotInitialized")
	}
}

func TestInitialize_RejectsSampleDirCollision(t *testing.T) {
	for _, merge := range []bool{false, true} {
		t.Run(fmt.Sprintf("merge=%v", merge), func(t *testing.T) {
			env := newTestEnv(t, func(s *config.Settings) { s.Merge = merge })
			path := filepath.Join(t.TempDir(), "runinfo.csv")
			manifest := "Run,SampleName,BioProject\nSRR1,A:B,PRJNA1\nSRR2,A/B,PRJNA1\nSRR3,C,PRJNA1\n"
			if err := os.WriteFile(path, []byte(manifest), 0644); err != nil {
				t.Fatal(err)
			}

			err := env.manager.Initialize(context.Background(), "PRJNA1", path)
			if !errors.Is(err, ErrSampleDirCollision) {
				t.Fatalf("Initialize() error = %v, want ErrSampleDirCollision", err)
			}
			if !strings.Contains(err.Error(), "A_B (A/B, A:B)") {
				t.Errorf("error %q should name the directory and both samples", err)
			}

			if !errors.Is(env.manager.Run(context.Background()), ErrNotInitialized) {
				t.Error("Run after a rejected manifest should report ErrNotInitialized")
			}
			if env.fetcher.totalCalls() != 0 {
				t.Error("nothing should be fetched")
			}
			if _, err := os.Stat(env.root); !os.IsNotExist(err) {
				t.Error("target directory should not be created")
			}
		})
	}
}

func TestRun_MultiRunSampleRequiresMerge(t *testing.T) {
	env := newTestEnv(t, nil)
	env.initialize(t, "PRJNA1", "Run,SampleName,BioProject\nSRR1,SampleA,PRJNA1\nSRR2,SampleA,PRJNA1\n")

	err := env.manager.Run(context.Background())
	if !errors.Is(err, ErrMultiRunSample) {
		t.Fatalf("Run() error = %v, want ErrMultiRunSample", err)
	}
	if !strings.Contains(err.Error(), "SampleA") {
		t.Errorf("error %q should name the sample", err)
	}
	if env.fetcher.totalCalls() != 0 {
		t.Error("nothing should be fetched")
	}
	if _, err := os.Stat(env.root); !os.IsNotExist(err) {
		t.Error("target directory should not be created")
	}
}

func TestRun_MergesRunsOfOneSample(t *testing.T) {
	env := newTestEnv(t, func(s *config.Settings) {
		s.Merge = true
		s.SaveManifest = true
		s.SampleSheet = "csv"
	})
	env.initialize(t, "PRJNA1", "Run,SampleName,BioProject\nSRR1,SampleA,PRJNA1\nSRR2,SampleA,PRJNA1\n")

	if err := env.manager.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	sampleDir := filepath.Join(env.root, "SampleA")
	got := dirNames(t, sampleDir)
	want := []string{"SampleA_R1.fastq.gz", "SampleA_R2.fastq.gz"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("SampleA holds %v, want %v", got, want)
	}

	if r1 := readGzip(t, filepath.Join(sampleDir, want[0])); r1 != "@SRR1/1\n@SRR2/1\n" {
		t.Errorf("R1 = %q", r1)
	}
	if r2 := readGzip(t, filepath.Join(sampleDir, want[1])); r2 != "@SRR1/2\n@SRR2/2\n" {
		t.Errorf("R2 = %q", r2)
	}

	if _, err := os.Stat(filepath.Join(env.root, LogFileName)); !os.IsNotExist(err) {
		t.Error("log should be removed after a clean run")
	}
	if _, err := os.Stat(filepath.Join(env.root, "PRJNA1_runinfo.csv")); err != nil {
		t.Errorf("sanitized manifest not saved: %v", err)
	}

	sheet, err := os.ReadFile(filepath.Join(env.root, "samplesheet.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(sheet), "SampleA,SampleA/SampleA_R1.fastq.gz,SampleA/SampleA_R2.fastq.gz") {
		t.Errorf("sample sheet = %q", sheet)
	}

	phase, done, total := env.manager.GetProgress()
	if phase != PhaseRename || done != 1 || total != 1 {
		t.Errorf("GetProgress() = %v %d/%d", phase, done, total)
	}
}

func TestRun_FetchFailureFailsRun(t *testing.T) {
	env := newTestEnv(t, nil)
	env.fetcher.failures["SRR2"] = -1
	env.initialize(t, "PRJNA1", "Run,SampleName,BioProject\nSRR1,SampleA,PRJNA1\nSRR2,SampleB,PRJNA1\n")

	err := env.manager.Run(context.Background())
	var phaseErr *PhaseError
	if !errors.As(err, &phaseErr) {
		t.Fatalf("Run() error = %v, want *PhaseError", err)
	}
	if phaseErr.Phase != PhaseFetch {
		t.Errorf("Phase = %q, want %q", phaseErr.Phase, PhaseFetch)
	}
	if !errors.Is(err, ErrPhaseFailed) {
		t.Error("PhaseError should wrap ErrPhaseFailed")
	}

	if n := env.fetcher.callCount("SRR2"); n != 2 {
		t.Errorf("SRR2 attempted %d times, want 2", n)
	}

	dirB := filepath.Join(env.root, "SampleB")
	if names := dirNames(t, dirB); len(names) != 0 {
		t.Errorf("SampleB should hold no files, got %v", names)
	}

	logData, err := os.ReadFile(filepath.Join(env.root, LogFileName))
	if err != nil {
		t.Fatalf("log should be kept: %v", err)
	}
	if !strings.Contains(string(logData), ErrorMarker+"SRR2") {
		t.Errorf("log does not name SRR2:\n%s", logData)
	}
	if phaseErr.LogPath != filepath.Join(env.root, LogFileName) {
		t.Errorf("LogPath = %q", phaseErr.LogPath)
	}

	// The rename phase never ran.
	if _, err := os.Stat(filepath.Join(env.root, "SampleA", "SRR1_1.fastq")); err != nil {
		t.Errorf("SampleA should be left unrenamed: %v", err)
	}
}

func TestRun_LogWriter(t *testing.T) {
	var buf bytes.Buffer
	env := newTestEnv(t, nil, WithLogWriter(&buf))
	env.initialize(t, "PRJNA1", "Run,SampleName,BioProject\nSRR1,SampleA,PRJNA1\n")

	if err := env.manager.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if lines[0] != "SampleA" {
		t.Errorf("first log line = %q, want the sample marker", lines[0])
	}
	if env.manager.LogPath() != "" {
		t.Errorf("LogPath() = %q, want empty", env.manager.LogPath())
	}
}
