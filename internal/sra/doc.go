// Package sra wraps the external tools that fetch, convert and compress
// sequencing run data.
//
// # Tools
//
// Three small interfaces describe what the download manager needs:
//
//	type Fetcher interface    { Fetch(ctx, run, archive) error }
//	type Converter interface  { Convert(ctx, archive, outDir) error }
//	type Compressor interface { Compress(ctx, path) (string, error) }
//
// The default implementations are:
//   - PrefetchFetcher: SRA Toolkit prefetch
//   - HTTPFetcher: direct download from download_path or the SRA open data bucket
//   - FasterqDump: SRA Toolkit fasterq-dump with --split-3
//   - GzipCompressor: in-process gzip
//
// External tools are run with exec.CommandContext, so cancelling the
// context terminates them.
package sra
