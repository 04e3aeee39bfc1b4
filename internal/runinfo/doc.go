// Package runinfo acquires and interprets runinfo manifests.
//
// A runinfo manifest is the comma-separated table the SRA metadata service
// returns for a BioProject: one header line, then one row per sequencing
// run. The columns this package needs are SampleName, Run and BioProject
// (matched case-insensitively); download_path is used when present.
//
// # Acquiring
//
//	acq := runinfo.NewAcquirer(client, settings.RunInfoEndpoint)
//	m, err := acq.Acquire(ctx, "PRJNA1", manifestPath)
//
// manifestPath may be a local file, "-" for standard input, or a bucket URL
// (file://, gs://).
//
// # Sanitizing
//
// Exports sometimes include runs of sibling projects. Sanitize removes them
// and reports which project accessions were dropped:
//
//	if foreign := m.Sanitize("PRJNA1"); len(foreign) > 0 {
//	    log.Printf("removed runs of %v", foreign)
//	}
package runinfo
