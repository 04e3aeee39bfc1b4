package download

import (
	"context"
	"errors"
	"fmt"
	"os"

	ioutils "github.com/handiism/sra-downloader/internal/io"
	"github.com/handiism/sra-downloader/internal/model"
	"golang.org/x/sync/errgroup"
)

var errArchiveMissing = errors.New("archive missing after download")

// FetchResult is the outcome of one fetch job.
type FetchResult struct {
	Run      *model.Run
	Skipped  bool
	Attempts int
	Err      error
}

// FetchRuns downloads and converts every run in the manifest.
//
// Rows are handled in manifest order: the sample directory is created, the
// sample name is logged, and a job is dispatched once fewer than
// Settings.Parallelism jobs are running. With SkipExisting, a row whose run
// files or sample outputs already exist is skipped without a job.
//
// A failing job never stops its siblings; its failure is recorded in the
// log and in its FetchResult. FetchRuns waits for every dispatched job and
// returns ctx.Err() if it was cancelled.
func (m *Manager) FetchRuns(ctx context.Context) ([]FetchResult, error) {
	if m.manifest == nil {
		return nil, ErrNotInitialized
	}
	if m.log == nil {
		if err := m.openLog(); err != nil {
			return nil, err
		}
	}

	runs := m.manifest.Runs
	results := make([]FetchResult, len(runs))
	m.startPhase(PhaseFetch, len(runs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.settings.Parallelism)

	for i, run := range runs {
		i, run := i, run
		if ctx.Err() != nil {
			break
		}
		results[i].Run = run

		dir := m.layout.SampleDir(run.Sample)
		if err := ioutils.EnsureDir(dir); err != nil {
			m.log.Errorf("%s: create %s: %v", run.Accession, dir, err)
			m.progress(ProgressEvent{Message: fmt.Sprintf("Error creating directory: %v", err), Level: LevelError})
			results[i].Err = err
			m.finishJob()
			continue
		}
		m.log.Sample(run.Sample)

		if m.settings.SkipExisting && m.hasOutput(run) {
			m.log.Printf("%s: output exists, skipping", run.Accession)
			m.progress(ProgressEvent{Message: fmt.Sprintf("Skipping existing: %s", run.Accession), Level: LevelVerbose})
			results[i].Skipped = true
			m.finishJob()
			continue
		}

		g.Go(func() error {
			results[i] = m.fetchRun(gctx, run)
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

// fetchRun downloads one archive, retrying up to Settings.DownloadMaxAttempts
// times, converts it into read files and deletes it.
//
// On cancellation every file the run owns is removed.
func (m *Manager) fetchRun(ctx context.Context, run *model.Run) (res FetchResult) {
	res.Run = run
	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}
	archive := m.layout.ArchivePath(run.Sample, run.Accession)
	maxAttempts := m.settings.DownloadMaxAttempts

	defer func() {
		if ctx.Err() != nil {
			m.removeRunFiles(run)
			res.Err = ctx.Err()
		}
	}()

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		res.Attempts = attempt
		err = m.fetcher.Fetch(ctx, run, archive)
		if err == nil && !ioutils.FileExists(archive) {
			err = errArchiveMissing
		}
		if err == nil || ctx.Err() != nil {
			break
		}
		if attempt < maxAttempts {
			m.log.Printf("%s: download attempt %d/%d failed: %v", run.Accession, attempt, maxAttempts, err)
			m.progress(ProgressEvent{Message: fmt.Sprintf("Retry %d/%d for %s", attempt, maxAttempts, run.Accession), Level: LevelWarning})
			m.waitForRetry(ctx, attempt-1)
		}
	}
	if ctx.Err() != nil {
		return res
	}
	if err != nil {
		m.log.Errorf("%s: download failed after %d attempts: %v", run.Accession, maxAttempts, err)
		m.progress(ProgressEvent{Message: fmt.Sprintf("Error downloading %s: %v", run.Accession, err), Level: LevelError})
		m.removeRunFiles(run)
		res.Err = fmt.Errorf("download %s: %w", run.Accession, err)
		return res
	}

	if err := m.converter.Convert(ctx, archive, m.layout.SampleDir(run.Sample)); err != nil {
		if ctx.Err() != nil {
			return res
		}
		m.log.Errorf("%s: conversion failed: %v", run.Accession, err)
		m.progress(ProgressEvent{Message: fmt.Sprintf("Error converting %s: %v", run.Accession, err), Level: LevelError})
		m.removeRunFiles(run)
		res.Err = fmt.Errorf("convert %s: %w", run.Accession, err)
		return res
	}

	if err := os.Remove(archive); err != nil && !errors.Is(err, os.ErrNotExist) {
		m.log.Warnf("%s: remove archive: %v", run.Accession, err)
		m.progress(ProgressEvent{Message: fmt.Sprintf("Error removing archive of %s: %v", run.Accession, err), Level: LevelWarning})
	}

	m.log.Printf("%s: done", run.Accession)
	m.progress(ProgressEvent{Message: fmt.Sprintf("Fetched: %s (%s)", run.Accession, run.Sample), Level: LevelVerbose})
	return res
}

// hasOutput reports whether a run's files or its sample's final outputs
// already exist.
func (m *Manager) hasOutput(run *model.Run) bool {
	found, err := ioutils.AnyMatch(m.layout.SampleDir(run.Sample), func(name string) bool {
		return m.layout.OwnedByRun(run.Sample, run.Accession, name) || m.layout.IsSampleOutput(run.Sample, name)
	})
	return err == nil && found
}

func (m *Manager) finishJob() {
	m.done.Add(1)
	m.reportProgress()
}
