package model

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// ReadEnd identifies which end of a sequenced fragment a read file holds.
type ReadEnd int

const (
	// ReadEnd1 is the forward read, or the only read of single-end data.
	ReadEnd1 ReadEnd = iota + 1

	// ReadEnd2 is the reverse read of paired-end data.
	ReadEnd2
)

// Suffix returns the canonical file name suffix for the read end.
//
// Returns:
//   - "_R1" for ReadEnd1
//   - "_R2" for ReadEnd2
func (e ReadEnd) Suffix() string {
	switch e {
	case ReadEnd2:
		return "_R2"
	default:
		return "_R1"
	}
}

// ArchiveExtension is the extension of a downloaded run archive.
const ArchiveExtension = ".sra"

// Layout computes where run archives and read files live on disk.
//
// The root directory holds one subdirectory per sample. Run-scoped files
// (archives and per-run read files) and the final sample-scoped read files
// all live in that subdirectory:
//
//	<root>/SampleA/SRR1.sra
//	<root>/SampleA/SRR1_1.fastq
//	<root>/SampleA/SampleA_R1.fastq.gz
//
// Example:
//
//	layout := &Layout{Root: "/data/PRJNA1", ReadExtension: ".fastq"}
//	layout.CanonicalPath("SampleA", ReadEnd1) // "/data/PRJNA1/SampleA/SampleA_R1.fastq"
type Layout struct {
	// Root is the target directory.
	Root string

	// ReadExtension is the extension of uncompressed read files, including the dot.
	ReadExtension string
}

// SampleDir returns the directory holding every file for a sample.
//
// Invalid filename characters in the sample name are replaced with underscores.
func (l *Layout) SampleDir(sample string) string {
	return filepath.Join(l.Root, SampleDirName(sample))
}

// ArchivePath returns where the archive for a run is downloaded to.
func (l *Layout) ArchivePath(sample, accession string) string {
	return filepath.Join(l.SampleDir(sample), accession+ArchiveExtension)
}

// CanonicalName returns the uncompressed sample-scoped file name for a read end.
func (l *Layout) CanonicalName(sample string, end ReadEnd) string {
	return SampleDirName(sample) + end.Suffix() + l.ReadExtension
}

// CanonicalPath returns the uncompressed sample-scoped file path for a read end.
func (l *Layout) CanonicalPath(sample string, end ReadEnd) string {
	return filepath.Join(l.SampleDir(sample), l.CanonicalName(sample, end))
}

// OwnedByRun reports whether a file name in a sample directory belongs to
// the given run. Only "<run>.*" and "<run>_*" match, so "SRR1" does not
// claim files of "SRR10". The sample's own outputs never belong to a run,
// even when the sample is named after it.
func (l *Layout) OwnedByRun(sample, accession, name string) bool {
	if l.IsSampleOutput(sample, name) {
		return false
	}
	return strings.HasPrefix(name, accession+".") || strings.HasPrefix(name, accession+"_")
}

// IsSampleOutput reports whether a file name is a sample-scoped output
// ("<sample>_R1*" or "<sample>_R2*"), compressed or not.
func (l *Layout) IsSampleOutput(sample, name string) bool {
	prefix := SampleDirName(sample)
	return strings.HasPrefix(name, prefix+ReadEnd1.Suffix()) || strings.HasPrefix(name, prefix+ReadEnd2.Suffix())
}

// Classify reports which read end a run-scoped read file in a sample
// directory belongs to. ok is false when name is not a read file at all.
// unpaired is true for single-end output that carries no end marker.
func (l *Layout) Classify(sample, name string) (end ReadEnd, unpaired, ok bool) {
	if !strings.HasSuffix(name, l.ReadExtension) {
		return 0, false, false
	}
	switch name {
	case l.CanonicalName(sample, ReadEnd1):
		return ReadEnd1, false, true
	case l.CanonicalName(sample, ReadEnd2):
		return ReadEnd2, false, true
	}

	stem := strings.TrimSuffix(name, l.ReadExtension)
	switch {
	case strings.HasSuffix(stem, "_1"):
		return ReadEnd1, false, true
	case strings.HasSuffix(stem, "_2"):
		return ReadEnd2, false, true
	default:
		return ReadEnd1, true, true
	}
}

// SampleDirName returns the file system safe form of a sample name.
func SampleDirName(sample string) string {
	name := sanitizeFileName(sample)
	if name == "" {
		return "unnamed"
	}
	return name
}

func sortSamples(samples []*Sample) {
	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].Name < samples[j].Name
	})
}

// sanitizeFileName removes or replaces characters that are invalid in file/folder names.
//
// The following transformations are applied:
//   - Invalid characters (<>:"/\|?* and control chars) are replaced with underscore
//   - Trailing dots are removed (Windows limitation)
//   - Multiple whitespace is collapsed to single space
//   - Trailing whitespace is removed
//
// Example:
//
//	sanitizeFileName("Liver: day 1/2") // Returns "Liver_ day 1_2"
func sanitizeFileName(name string) string {
	// Replace invalid path/file characters
	invalidChars := regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	name = invalidChars.ReplaceAllString(name, "_")

	// Remove trailing dots
	name = regexp.MustCompile(`\.+$`).ReplaceAllString(name, "")

	// Replace multiple whitespace with single space
	name = regexp.MustCompile(`\s+`).ReplaceAllString(name, " ")

	// Remove trailing whitespace
	name = strings.TrimRight(name, " ")

	return name
}
