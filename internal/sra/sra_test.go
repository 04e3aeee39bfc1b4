package sra

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"

	sradlhttp "github.com/handiism/sra-downloader/internal/http"
	"github.com/handiism/sra-downloader/internal/model"
)

func TestGzipCompressor(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "SampleA_R1.fastq")
	content := strings.Repeat("@r\nACGT\n+\nIIII\n", 100)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	c := &GzipCompressor{Level: 6}
	dst, err := c.Compress(context.Background(), path)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if dst != path+".gz" {
		t.Errorf("dst = %q", dst)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("uncompressed file should be removed")
	}

	f, err := os.Open(dst)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	zr, err := gzip.NewReader(f)
	if err != nil {
		t.Fatal(err)
	}
	got, err := io.ReadAll(zr)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != content {
		t.Error("decompressed content differs")
	}
	if zr.Name != "SampleA_R1.fastq" {
		t.Errorf("gzip header name = %q", zr.Name)
	}
}

func TestGzipCompressor_Cancelled(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.fastq")
	if err := os.WriteFile(path, []byte("data"), 0644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := (&GzipCompressor{}).Compress(ctx, path); err == nil {
		t.Fatal("expected error")
	}
	if _, err := os.Stat(path + ".gz"); !os.IsNotExist(err) {
		t.Error("no compressed file should be left behind")
	}
	if _, err := os.Stat(path); err != nil {
		t.Error("source should be kept when compression fails")
	}
}

func TestHTTPFetcher(t *testing.T) {
	var requested []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = append(requested, r.URL.Path)
		w.Write([]byte("sra"))
	}))
	defer server.Close()

	f := NewHTTPFetcher(sradlhttp.NewClient("test"))
	f.BaseURL = server.URL + "/sra"
	dir := t.TempDir()

	if err := f.Fetch(context.Background(), &model.Run{Accession: "SRR1"}, filepath.Join(dir, "SRR1.sra")); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	run := &model.Run{Accession: "SRR2", URL: server.URL + "/direct/SRR2"}
	if err := f.Fetch(context.Background(), run, filepath.Join(dir, "SRR2.sra")); err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	want := []string{"/sra/SRR1/SRR1", "/direct/SRR2"}
	if strings.Join(requested, ",") != strings.Join(want, ",") {
		t.Errorf("requested %v, want %v", requested, want)
	}
}

func TestRunTool_ErrorCarriesOutput(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}
	err := runTool(context.Background(), "sh", "-c", "echo first; echo boom >&2; exit 3")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("error %q should carry tool output", err)
	}
}

func TestFasterqDump(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}
	dir := t.TempDir()
	script := filepath.Join(dir, "fake-fasterq-dump")
	writeScript(t, script, `#!/bin/sh
out=""
while [ $# -gt 1 ]; do
  case "$1" in
    --outdir) out="$2"; shift ;;
  esac
  shift
done
: > "$out/SRR1_1.fastq"
: > "$out/SRR1_2.fastq"
`)

	archive := filepath.Join(dir, "SRR1.sra")
	if err := os.WriteFile(archive, []byte("sra"), 0644); err != nil {
		t.Fatal(err)
	}

	c := &FasterqDump{Path: script, Threads: 2}
	if err := c.Convert(context.Background(), archive, dir); err != nil {
		t.Fatalf("Convert: %v", err)
	}
	for _, name := range []string{"SRR1_1.fastq", "SRR1_2.fastq"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s missing: %v", name, err)
		}
	}
}

func TestFasterqDump_NoOutput(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}
	dir := t.TempDir()
	script := filepath.Join(dir, "silent")
	writeScript(t, script, "#!/bin/sh\nexit 0\n")

	archive := filepath.Join(dir, "SRR1.sra")
	if err := os.WriteFile(archive, []byte("sra"), 0644); err != nil {
		t.Fatal(err)
	}

	c := &FasterqDump{Path: script}
	if err := c.Convert(context.Background(), archive, dir); err == nil {
		t.Error("expected error when no read files are produced")
	}
}

func TestPrefetchFetcher_MissingArchive(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}
	dir := t.TempDir()
	script := filepath.Join(dir, "fake-prefetch")
	writeScript(t, script, "#!/bin/sh\nexit 0\n")

	f := &PrefetchFetcher{Path: script}
	err := f.Fetch(context.Background(), &model.Run{Accession: "SRR1"}, filepath.Join(dir, "SRR1.sra"))
	if err == nil {
		t.Error("expected error when the archive is missing")
	}
}

func writeScript(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0755); err != nil {
		t.Fatal(err)
	}
}
