package sra

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	ioutils "github.com/handiism/sra-downloader/internal/io"
)

// FasterqDump converts archives with the SRA Toolkit's fasterq-dump.
//
// Reads are split by end ("--split-3"): paired runs yield "<run>_1.fastq"
// and "<run>_2.fastq", unpaired reads go to "<run>.fastq".
type FasterqDump struct {
	// Path is the fasterq-dump executable.
	Path string

	// Threads is passed as --threads when positive.
	Threads int
}

// Convert unpacks archive into outDir.
//
// A tool that exits successfully without writing any read file is reported
// as an error.
func (c *FasterqDump) Convert(ctx context.Context, archive, outDir string) error {
	args := []string{"--split-3", "--outdir", outDir, "--temp", outDir}
	if c.Threads > 0 {
		args = append(args, "--threads", strconv.Itoa(c.Threads))
	}
	args = append(args, archive)

	if err := runTool(ctx, c.Path, args...); err != nil {
		return err
	}

	stem := strings.TrimSuffix(filepath.Base(archive), filepath.Ext(archive))
	archiveName := filepath.Base(archive)
	found, err := ioutils.AnyMatch(outDir, func(name string) bool {
		return name != archiveName && (strings.HasPrefix(name, stem+".") || strings.HasPrefix(name, stem+"_"))
	})
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%s produced no read files for %s", filepath.Base(c.Path), stem)
	}
	return nil
}
