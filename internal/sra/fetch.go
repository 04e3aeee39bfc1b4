package sra

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	sradlhttp "github.com/handiism/sra-downloader/internal/http"
	"github.com/handiism/sra-downloader/internal/model"
)

// DefaultArchiveBaseURL is the public SRA open data bucket. The archive of
// run R lives at <base>/R/R.
const DefaultArchiveBaseURL = "https://sra-pub-run-odp.s3.amazonaws.com/sra"

// PrefetchFetcher downloads archives with the SRA Toolkit's prefetch.
//
// Example:
//
//	f := &PrefetchFetcher{Path: "prefetch"}
//	err := f.Fetch(ctx, run, "/data/SampleA/SRR1.sra")
type PrefetchFetcher struct {
	// Path is the prefetch executable.
	Path string
}

// Fetch runs "prefetch --max-size u --output-file <archive> <run>".
func (f *PrefetchFetcher) Fetch(ctx context.Context, run *model.Run, archive string) error {
	err := runTool(ctx, f.Path,
		"--max-size", "u",
		"--output-file", archive,
		run.Accession,
	)
	if err != nil {
		return err
	}
	if _, err := os.Stat(archive); err != nil {
		return fmt.Errorf("prefetch reported success but %s is missing", filepath.Base(archive))
	}
	return nil
}

// HTTPFetcher downloads archives directly over HTTP(S).
//
// The run's download_path is used when the manifest provides one; otherwise
// the archive is requested from BaseURL.
type HTTPFetcher struct {
	Client  *sradlhttp.Client
	BaseURL string
}

// NewHTTPFetcher creates an HTTPFetcher that falls back to DefaultArchiveBaseURL.
func NewHTTPFetcher(client *sradlhttp.Client) *HTTPFetcher {
	return &HTTPFetcher{Client: client, BaseURL: DefaultArchiveBaseURL}
}

// Fetch downloads the run archive to archive.
func (f *HTTPFetcher) Fetch(ctx context.Context, run *model.Run, archive string) error {
	return f.Client.DownloadFile(ctx, f.archiveURL(run), archive)
}

func (f *HTTPFetcher) archiveURL(run *model.Run) string {
	if run.URL != "" {
		return run.URL
	}
	return fmt.Sprintf("%s/%s/%s", f.BaseURL, run.Accession, run.Accession)
}
