// Package samplesheet writes a sample sheet describing the downloaded
// read files, ready to feed into a downstream pipeline.
//
// # Usage
//
//	creator := samplesheet.NewCreator(samplesheet.FormatCSV, root)
//	content, err := creator.Create([]samplesheet.Entry{
//	    {Sample: "SampleA", Read1: r1, Read2: r2},
//	})
//	os.WriteFile(creator.Path(), []byte(content), 0644)
//
// Supported formats:
//   - CSV (sample,fastq_1,fastq_2)
//   - TSV (same columns, tab-separated)
package samplesheet
