// Package model defines the core data structures used throughout
// the sra-downloader application.
//
// # Run
//
// Run is one row of a project's runinfo manifest:
//
//	run := &model.Run{Accession: "SRR1", Sample: "SampleA", Project: "PRJNA1"}
//
// # Sample
//
// Sample groups the runs that share a sample name. A sample with more than
// one run is merged into a single set of read files:
//
//	for _, s := range model.GroupBySample(runs) {
//	    fmt.Println(s.Name, len(s.Runs), s.IsMerged())
//	}
//
// # Layout
//
// Layout computes archive and read file paths below the target directory:
//
//	layout := &model.Layout{Root: "/data", ReadExtension: ".fastq"}
//	fmt.Println(layout.ArchivePath("SampleA", "SRR1"))      // /data/SampleA/SRR1.sra
//	fmt.Println(layout.CanonicalPath("SampleA", model.ReadEnd2)) // /data/SampleA/SampleA_R2.fastq
package model
