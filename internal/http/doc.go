// Package http provides the HTTP client used for metadata queries and
// direct archive downloads.
//
// The Client in this package handles:
//   - User-Agent headers
//   - Mapping 404 responses to ErrNotFound
//   - Atomic file downloads (via a ".part" file)
//   - Timeout handling
//
// # Basic Usage
//
//	client := http.NewClient("sra-downloader")
//
//	// Fetch a runinfo manifest
//	csv, err := client.GetString(ctx, endpoint, url.Values{"acc": {"PRJNA1"}})
//
//	// Download an archive
//	err = client.DownloadFile(ctx, archiveURL, "/data/SampleA/SRR1.sra")
package http
