package sra

import (
	"context"

	"github.com/handiism/sra-downloader/internal/model"
)

// Fetcher downloads the archive of a single run.
//
// Fetch must leave archive in place if and only if the download succeeded.
type Fetcher interface {
	Fetch(ctx context.Context, run *model.Run, archive string) error
}

// Converter unpacks a run archive into per-end read files in outDir.
//
// Output files are named after the archive: "<run>_1<ext>" and "<run>_2<ext>"
// for paired data, "<run><ext>" for unpaired reads.
type Converter interface {
	Convert(ctx context.Context, archive, outDir string) error
}

// Compressor compresses a file in place and returns the new path.
// The uncompressed file is removed on success.
type Compressor interface {
	Compress(ctx context.Context, path string) (string, error)
}
