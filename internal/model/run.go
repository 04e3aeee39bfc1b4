package model

import "sort"

// Run represents one sequencing run listed in a project's runinfo manifest.
//
// Run is created once when the manifest is parsed and never modified
// afterwards. Each Run is consumed by exactly one fetch job.
//
// Example:
//
//	run := &Run{Accession: "SRR1", Sample: "SampleA", Project: "PRJNA1"}
//	dir := layout.SampleDir(run.Sample)
type Run struct {
	// Accession is the run accession (for example "SRR1234567").
	Accession string

	// Sample is the submitter-supplied sample name. Several runs may share it.
	Sample string

	// Project is the BioProject accession the run was submitted under.
	Project string

	// URL is the archive download location from the manifest's download_path
	// column. Empty when the manifest has no such column.
	URL string
}

// Sample groups every run that shares a sample name.
type Sample struct {
	// Name is the sample name as it appears in the manifest.
	Name string

	// Runs lists the runs of this sample in manifest order.
	Runs []*Run
}

// IsMerged reports whether more than one run maps to this sample.
func (s *Sample) IsMerged() bool {
	return len(s.Runs) > 1
}

// GroupBySample groups runs by sample name.
//
// Samples are returned sorted by name; the runs within a sample keep their
// manifest order.
func GroupBySample(runs []*Run) []*Sample {
	index := make(map[string]*Sample)
	var samples []*Sample
	for _, run := range runs {
		s, ok := index[run.Sample]
		if !ok {
			s = &Sample{Name: run.Sample}
			index[run.Sample] = s
			samples = append(samples, s)
		}
		s.Runs = append(s.Runs, run)
	}

	sortSamples(samples)
	return samples
}

// DirCollisions returns the sample directories claimed by more than one
// sample name, keyed by directory name. The names of each directory are
// sorted.
//
// Example:
//
//	DirCollisions(samples) // map[A_B:[A/B A:B]] for samples "A:B" and "A/B"
func DirCollisions(samples []*Sample) map[string][]string {
	byDir := make(map[string][]string)
	for _, s := range samples {
		dir := SampleDirName(s.Name)
		byDir[dir] = append(byDir[dir], s.Name)
	}

	collisions := make(map[string][]string)
	for dir, names := range byDir {
		if len(names) > 1 {
			sort.Strings(names)
			collisions[dir] = names
		}
	}
	return collisions
}
