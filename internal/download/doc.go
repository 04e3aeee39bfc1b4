// Package download orchestrates fetching every run of a BioProject and
// turning the results into per-sample read files.
//
// # Manager
//
// The Manager coordinates the entire process:
//
//  1. Acquire the runinfo manifest (remote query or file)
//  2. Drop rows that belong to other projects
//  3. Fetch and convert every run concurrently
//  4. Check the shared log for warnings and errors
//  5. Rename and merge run files into <sample>_R1/_R2 concurrently
//  6. Check the log again, then compress outputs and remove the log
//
// # Basic Usage
//
//	manager := download.NewManager(settings, func(event download.ProgressEvent) {
//	    fmt.Println(event.Message)
//	})
//
//	err := manager.Initialize(ctx, "PRJNA123456", "")
//	if errors.Is(err, runinfo.ErrProjectNotFound) {
//	    return // nothing to do
//	}
//
//	err = manager.Run(ctx)
//	var phaseErr *download.PhaseError
//	if errors.As(err, &phaseErr) {
//	    log.Fatalf("see %s", phaseErr.LogPath)
//	}
//
// # Concurrency
//
// Both phases admit at most settings.Parallelism jobs at a time. A failed
// job never cancels its siblings; failures are collected in FetchResult and
// RenameResult values and in the shared log.
//
// # Progress Tracking
//
// Progress is reported via a callback function that receives ProgressEvent.
// Events with LevelProgress carry the phase counters instead of a message.
//
// # Retry Logic
//
// Failed archive downloads are retried with exponential backoff,
// configurable via settings.DownloadMaxAttempts, DownloadRetryCooldown and
// DownloadRetryExponent. Conversion failures are reported, not retried.
package download
