// Package ioutils provides file system utilities used while fetching and
// merging read files.
//
// # File Operations
//
//	// Merge two runs into one canonical read file
//	err := ioutils.ConcatFiles(ctx, "SampleA_R1.fastq", "SRR1_1.fastq", "SRR2_1.fastq")
//
//	// Ensure directory exists (fails if the path is a regular file)
//	err := ioutils.EnsureDir("/data/PRJNA1/SampleA")
//
// # Run-scoped cleanup
//
// RemoveMatching deletes the intermediate files a cancelled fetch left behind:
//
//	removed, err := ioutils.RemoveMatching(dir, func(name string) bool {
//	    return layout.OwnedByRun("SampleA", "SRR1", name)
//	})
package ioutils
