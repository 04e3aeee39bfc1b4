package runinfo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"

	sradlhttp "github.com/handiism/sra-downloader/internal/http"
)

// ErrProjectNotFound is returned when the metadata service has no runs for a
// project. Callers treat it as "no data" rather than as a failure.
var ErrProjectNotFound = errors.New("project not found")

// Acquirer obtains runinfo manifests, either from the metadata service or
// from a previously saved file.
//
// Example usage:
//
//	acq := NewAcquirer(sradlhttp.NewClient("sra-downloader"), endpoint)
//
//	m, err := acq.Acquire(ctx, "PRJNA1", "")
//	if errors.Is(err, runinfo.ErrProjectNotFound) {
//	    // nothing to download
//	}
type Acquirer struct {
	client   *sradlhttp.Client
	endpoint string
	stdin    io.Reader
}

// NewAcquirer creates an Acquirer that queries endpoint with "?acc=<project>".
func NewAcquirer(client *sradlhttp.Client, endpoint string) *Acquirer {
	return &Acquirer{
		client:   client,
		endpoint: endpoint,
		stdin:    os.Stdin,
	}
}

// Acquire returns the manifest for project. If manifestPath is non-empty
// the manifest is read from it instead of the metadata service.
func (a *Acquirer) Acquire(ctx context.Context, project, manifestPath string) (*Manifest, error) {
	if manifestPath != "" {
		return a.FromFile(ctx, manifestPath)
	}
	if project == "" {
		return nil, errors.New("a project identifier or a manifest file is required")
	}
	return a.FromProject(ctx, project)
}

// FromFile reads a manifest from a local path, from standard input when
// path is "-", or from a bucket URL such as gs://bucket/PRJNA1.csv.
//
// Returns a *FormatError if the file holds no non-blank line, if its first
// non-blank line does not name the sample name column, or if it has no data rows.
func (a *Acquirer) FromFile(ctx context.Context, path string) (*Manifest, error) {
	var data []byte
	var err error
	switch {
	case path == "-":
		data, err = io.ReadAll(a.stdin)
	case isBlobURL(path):
		data, err = readBlob(ctx, path)
	default:
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}

	text := blankOutLines(string(data))
	header, line := firstLine(text)
	if line == 0 {
		return nil, &FormatError{Msg: fmt.Sprintf("%s: %v", path, ErrEmptyManifest)}
	}
	if !HasSampleColumn(header) {
		return nil, &FormatError{Line: line, Msg: fmt.Sprintf("%s: no %s column in header", path, ColumnSampleName)}
	}

	m, err := Parse(text)
	if err != nil {
		return nil, err
	}
	if m.Len() == 0 {
		return nil, &FormatError{Msg: fmt.Sprintf("%s: no data rows", path)}
	}
	return m, nil
}

// FromProject queries the metadata service for the project's manifest.
//
// An empty response or a 404 yields ErrProjectNotFound.
func (a *Acquirer) FromProject(ctx context.Context, project string) (*Manifest, error) {
	body, err := a.client.GetString(ctx, a.endpoint, url.Values{"acc": {project}})
	if err != nil {
		if errors.Is(err, sradlhttp.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", project, ErrProjectNotFound)
		}
		return nil, fmt.Errorf("query runinfo for %s: %w", project, err)
	}

	text := blankOutLines(body)
	header, line := firstLine(text)
	if line == 0 {
		return nil, fmt.Errorf("%s: %w", project, ErrProjectNotFound)
	}
	if !HasSampleColumn(header) {
		return nil, &FormatError{Line: line, Msg: fmt.Sprintf("runinfo for %s has no %s column", project, ColumnSampleName)}
	}

	m, err := Parse(text)
	if err != nil {
		return nil, err
	}
	if m.Len() == 0 {
		return nil, fmt.Errorf("%s: %w", project, ErrProjectNotFound)
	}
	return m, nil
}
