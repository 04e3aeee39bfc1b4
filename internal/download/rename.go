package download

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	ioutils "github.com/handiism/sra-downloader/internal/io"
	"github.com/handiism/sra-downloader/internal/model"
	"golang.org/x/sync/errgroup"
)

// RenameResult is the outcome of one rename job.
type RenameResult struct {
	Sample *model.Sample

	// Outputs holds the final compressed read files, read 1 first.
	Outputs []string

	// Skipped is set when the sample already had its final outputs and no
	// run-level read files were left to consolidate.
	Skipped bool
	Err     error
}

// RenameSamples consolidates the run-level read files of every sample into
// canonical per-sample files and compresses them.
//
// Samples are dispatched in sorted order under the same parallelism limit
// as FetchRuns. Returns ErrMultiRunSample, before any job runs, if a sample
// has several runs and merge mode is off.
func (m *Manager) RenameSamples(ctx context.Context) ([]RenameResult, error) {
	if m.manifest == nil {
		return nil, ErrNotInitialized
	}
	if err := m.checkMerge(); err != nil {
		return nil, err
	}
	if m.log == nil {
		if err := m.openLog(); err != nil {
			return nil, err
		}
	}

	samples := m.manifest.Samples()
	results := make([]RenameResult, len(samples))
	m.startPhase(PhaseRename, len(samples))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.settings.Parallelism)

	for i, sample := range samples {
		i, sample := i, sample
		if ctx.Err() != nil {
			break
		}
		results[i].Sample = sample

		g.Go(func() error {
			results[i] = m.renameSample(gctx, sample)
			m.finishJob()
			return nil
		})
		m.dispatched.Add(1)
		m.reportProgress()
	}

	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

// renameSample builds <sample>_R1 and, for paired data, <sample>_R2 from
// the run-level read files in the sample directory.
//
// A single file per end is renamed; several are concatenated in directory
// listing order and removed. Unpaired files count as read 1. Each result is
// then compressed.
func (m *Manager) renameSample(ctx context.Context, sample *model.Sample) RenameResult {
	res := RenameResult{Sample: sample}
	dir := m.layout.SampleDir(sample.Name)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return m.renameFailed(res, err)
	}

	files := make(map[model.ReadEnd][]string)
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		end, _, ok := m.layout.Classify(sample.Name, e.Name())
		if !ok {
			continue
		}
		files[end] = append(files[end], filepath.Join(dir, e.Name()))
	}

	if len(files) == 0 {
		existing := m.existingOutputs(sample)
		if len(existing) == 0 {
			m.log.Warnf("%s: %v", sample.Name, ErrNoReads)
			m.progress(ProgressEvent{Message: fmt.Sprintf("No read files for %s", sample.Name), Level: LevelWarning})
			res.Err = fmt.Errorf("%s: %w", sample.Name, ErrNoReads)
			return res
		}
		m.log.Printf("%s: already renamed", sample.Name)
		res.Skipped = true
		res.Outputs = existing
		return res
	}

	for _, end := range []model.ReadEnd{model.ReadEnd1, model.ReadEnd2} {
		srcs := files[end]
		if len(srcs) == 0 {
			continue
		}

		canonical := m.layout.CanonicalPath(sample.Name, end)
		if err := m.consolidate(ctx, canonical, srcs); err != nil {
			return m.renameFailed(res, err)
		}

		out, err := m.compressor.Compress(ctx, canonical)
		if err != nil {
			return m.renameFailed(res, fmt.Errorf("compress %s: %w", filepath.Base(canonical), err))
		}
		res.Outputs = append(res.Outputs, out)
	}

	m.log.Printf("%s: renamed %d file(s)", sample.Name, len(res.Outputs))
	m.progress(ProgressEvent{Message: fmt.Sprintf("Renamed: %s", sample.Name), Level: LevelVerbose})
	return res
}

// consolidate moves or concatenates srcs into dst and removes the sources.
func (m *Manager) consolidate(ctx context.Context, dst string, srcs []string) error {
	if len(srcs) == 1 {
		return ioutils.MoveFile(srcs[0], dst)
	}

	if err := ioutils.ConcatFiles(ctx, dst, srcs...); err != nil {
		return fmt.Errorf("merge into %s: %w", filepath.Base(dst), err)
	}
	for _, src := range srcs {
		if filepath.Clean(src) == filepath.Clean(dst) {
			continue
		}
		if err := os.Remove(src); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) existingOutputs(sample *model.Sample) []string {
	entries, err := os.ReadDir(m.layout.SampleDir(sample.Name))
	if err != nil {
		return nil
	}
	var outputs []string
	for _, e := range entries {
		if m.layout.IsSampleOutput(sample.Name, e.Name()) {
			outputs = append(outputs, filepath.Join(m.layout.SampleDir(sample.Name), e.Name()))
		}
	}
	sort.Strings(outputs)
	return outputs
}

func (m *Manager) renameFailed(res RenameResult, err error) RenameResult {
	res.Err = err
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return res
	}
	m.log.Errorf("%s: %v", res.Sample.Name, err)
	m.progress(ProgressEvent{Message: fmt.Sprintf("Error renaming %s: %v", res.Sample.Name, err), Level: LevelError})
	return res
}
