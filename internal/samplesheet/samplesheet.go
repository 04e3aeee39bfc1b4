package samplesheet

import (
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"
)

// Format represents supported sample sheet formats.
type Format int

const (
	// FormatCSV creates comma-separated sheets with a
	// "sample,fastq_1,fastq_2" header, the layout most pipelines accept.
	FormatCSV Format = iota

	// FormatTSV creates tab-separated sheets with the same columns.
	FormatTSV
)

// ParseFormat maps a format name ("csv" or "tsv") to a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "csv":
		return FormatCSV, nil
	case "tsv":
		return FormatTSV, nil
	default:
		return 0, fmt.Errorf("unknown sample sheet format %q", name)
	}
}

// Extension returns the file extension for the format, including the dot.
func (f Format) Extension() string {
	if f == FormatTSV {
		return ".tsv"
	}
	return ".csv"
}

// Entry is one sample and its final read files. Read2 is empty for
// single-end samples.
type Entry struct {
	Sample string
	Read1  string
	Read2  string
}

// Creator generates sample sheets listing every completed sample.
//
// Example:
//
//	creator := NewCreator(FormatCSV, "/data/PRJNA1")
//	content, err := creator.Create(entries)
//	os.WriteFile(creator.Path(), []byte(content), 0644)
//
//	// Result:
//	// sample,fastq_1,fastq_2
//	// SampleA,SampleA/SampleA_R1.fastq.gz,SampleA/SampleA_R2.fastq.gz
type Creator struct {
	format Format
	root   string
}

// NewCreator creates a Creator whose paths are written relative to root.
func NewCreator(format Format, root string) *Creator {
	return &Creator{format: format, root: root}
}

// Path returns where the sample sheet is written.
func (c *Creator) Path() string {
	return filepath.Join(c.root, "samplesheet"+c.format.Extension())
}

// Create renders the sample sheet.
//
// Read file paths inside root are written relative to it, using forward
// slashes on every platform.
func (c *Creator) Create(entries []Entry) (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	if c.format == FormatTSV {
		w.Comma = '\t'
	}

	if err := w.Write([]string{"sample", "fastq_1", "fastq_2"}); err != nil {
		return "", err
	}
	for _, e := range entries {
		if err := w.Write([]string{e.Sample, c.relative(e.Read1), c.relative(e.Read2)}); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}

	return sb.String(), nil
}

func (c *Creator) relative(path string) string {
	if path == "" {
		return ""
	}
	rel, err := filepath.Rel(c.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}
