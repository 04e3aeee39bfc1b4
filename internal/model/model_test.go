package model

import (
	"fmt"
	"path/filepath"
	"testing"
)

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"SampleA", "SampleA"},
		{"liver:day1", "liver_day1"},
		{"tumor<1>", "tumor_1_"},
		{"a/b\\c", "a_b_c"},
		{"x|y", "x_y"},
		{"what?*", "what__"},
		{`"quoted"`, "_quoted_"},
		{"trailing dots...", "trailing dots"},
		{"multiple   spaces", "multiple spaces"},
		{"trailing spaces   ", "trailing spaces"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := sanitizeFileName(tt.input)
			if got != tt.want {
				t.Errorf("sanitizeFileName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSampleDirName_Empty(t *testing.T) {
	if got := SampleDirName("..."); got != "unnamed" {
		t.Errorf("SampleDirName(%q) = %q, want %q", "...", got, "unnamed")
	}
}

func TestLayout_Paths(t *testing.T) {
	layout := &Layout{Root: "/data", ReadExtension: ".fastq"}

	if got, want := layout.SampleDir("Sample A"), filepath.Join("/data", "Sample A"); got != want {
		t.Errorf("SampleDir = %q, want %q", got, want)
	}
	if got, want := layout.ArchivePath("SampleA", "SRR1"), filepath.Join("/data", "SampleA", "SRR1.sra"); got != want {
		t.Errorf("ArchivePath = %q, want %q", got, want)
	}
	if got, want := layout.CanonicalPath("SampleA", ReadEnd1), filepath.Join("/data", "SampleA", "SampleA_R1.fastq"); got != want {
		t.Errorf("CanonicalPath(R1) = %q, want %q", got, want)
	}
	if got, want := layout.CanonicalPath("a/b", ReadEnd2), filepath.Join("/data", "a_b", "a_b_R2.fastq"); got != want {
		t.Errorf("CanonicalPath(R2) = %q, want %q", got, want)
	}
}

func TestLayout_Classify(t *testing.T) {
	layout := &Layout{Root: "/data", ReadExtension: ".fastq"}

	tests := []struct {
		name         string
		wantEnd      ReadEnd
		wantUnpaired bool
		wantOK       bool
	}{
		{"SRR1_1.fastq", ReadEnd1, false, true},
		{"SRR1_2.fastq", ReadEnd2, false, true},
		{"SRR1.fastq", ReadEnd1, true, true},
		{"SampleA_R1.fastq", ReadEnd1, false, true},
		{"SampleA_R2.fastq", ReadEnd2, false, true},
		{"SampleA_R1.fastq.gz", 0, false, false},
		{"SRR1.sra", 0, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			end, unpaired, ok := layout.Classify("SampleA", tt.name)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if end != tt.wantEnd || unpaired != tt.wantUnpaired {
				t.Errorf("Classify(%q) = (%v, %v), want (%v, %v)", tt.name, end, unpaired, tt.wantEnd, tt.wantUnpaired)
			}
		})
	}
}

func TestLayout_Ownership(t *testing.T) {
	layout := &Layout{Root: "/data", ReadExtension: ".fastq"}

	tests := []struct {
		sample string
		name   string
		want   bool
	}{
		{"SampleA", "SRR1.sra", true},
		{"SampleA", "SRR1_1.fastq", true},
		{"SampleA", "SRR1.fastq", true},
		{"SampleA", "SRR10_1.fastq", false},
		{"SampleA", "SRR10.sra", false},
		{"SampleA", "SampleA_R1.fastq.gz", false},
		// Sample named after its run: final outputs stay with the sample.
		{"SRR1", "SRR1_R1.fastq.gz", false},
		{"SRR1", "SRR1_R2.fastq", false},
		{"SRR1", "SRR1_1.fastq", true},
		{"SRR1", "SRR1.sra", true},
	}

	for _, tt := range tests {
		t.Run(tt.sample+"/"+tt.name, func(t *testing.T) {
			if got := layout.OwnedByRun(tt.sample, "SRR1", tt.name); got != tt.want {
				t.Errorf("OwnedByRun(%q, %q) = %v, want %v", tt.sample, tt.name, got, tt.want)
			}
		})
	}

	if !layout.IsSampleOutput("SampleA", "SampleA_R1.fastq.gz") {
		t.Error("IsSampleOutput should match the compressed canonical output")
	}
	if layout.IsSampleOutput("SampleA", "SampleAB_R1.fastq.gz") {
		t.Error("IsSampleOutput should not match another sample")
	}
}

func TestGroupBySample(t *testing.T) {
	runs := []*Run{
		{Accession: "SRR3", Sample: "B"},
		{Accession: "SRR1", Sample: "A"},
		{Accession: "SRR2", Sample: "A"},
	}

	samples := GroupBySample(runs)
	if len(samples) != 2 {
		t.Fatalf("got %d samples, want 2", len(samples))
	}
	if samples[0].Name != "A" || samples[1].Name != "B" {
		t.Errorf("samples not sorted: %q, %q", samples[0].Name, samples[1].Name)
	}
	if !samples[0].IsMerged() || samples[1].IsMerged() {
		t.Error("IsMerged mismatch")
	}
	if samples[0].Runs[0].Accession != "SRR1" || samples[0].Runs[1].Accession != "SRR2" {
		t.Error("runs within a sample should keep manifest order")
	}
}

func TestReadEnd_Suffix(t *testing.T) {
	tests := []struct {
		end  ReadEnd
		want string
	}{
		{ReadEnd1, "_R1"},
		{ReadEnd2, "_R2"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.end.Suffix(); got != tt.want {
				t.Errorf("Suffix() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDirCollisions(t *testing.T) {
	samples := GroupBySample([]*Run{
		{Accession: "SRR1", Sample: "A:B"},
		{Accession: "SRR2", Sample: "A/B"},
		{Accession: "SRR3", Sample: "A:B"},
		{Accession: "SRR4", Sample: "C"},
		{Accession: "SRR5", Sample: "D."},
		{Accession: "SRR6", Sample: "D"},
	})

	got := DirCollisions(samples)
	want := map[string][]string{
		"A_B": {"A/B", "A:B"},
		"D":   {"D", "D."},
	}
	if len(got) != len(want) {
		t.Fatalf("DirCollisions() = %v, want %v", got, want)
	}
	for dir, names := range want {
		if fmt.Sprint(got[dir]) != fmt.Sprint(names) {
			t.Errorf("DirCollisions()[%q] = %v, want %v", dir, got[dir], names)
		}
	}

	if got := DirCollisions(GroupBySample([]*Run{{Accession: "SRR1", Sample: "A"}, {Accession: "SRR2", Sample: "A"}})); len(got) != 0 {
		t.Errorf("runs of one sample are not a collision, got %v", got)
	}
}
