package runinfo

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/handiism/sra-downloader/internal/model"
)

// Header tokens of the runinfo columns the downloader needs. Matching is
// case-insensitive but otherwise exact.
const (
	ColumnSampleName   = "SampleName"
	ColumnRun          = "Run"
	ColumnBioProject   = "BioProject"
	ColumnDownloadPath = "download_path"
)

// ErrEmptyManifest is returned when a manifest holds no non-blank lines.
var ErrEmptyManifest = errors.New("manifest is empty")

// FormatError reports a manifest that cannot be interpreted.
type FormatError struct {
	Line int // 1-based line of the offending record, 0 when not line-specific
	Msg  string
}

func (e *FormatError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("malformed manifest (line %d): %s", e.Line, e.Msg)
	}
	return "malformed manifest: " + e.Msg
}

// Columns holds the resolved indices of the columns the downloader reads.
// DownloadPath is -1 when the manifest has no download_path column.
type Columns struct {
	SampleName   int
	Run          int
	BioProject   int
	DownloadPath int
}

// width returns the number of fields a row needs to hold every required column.
func (c Columns) width() int {
	return max(c.SampleName, c.Run, c.BioProject) + 1
}

// Manifest is a parsed runinfo table.
//
// Rows and Runs are parallel: Runs[i] is the typed view of Rows[i]. Columns
// other than the resolved ones are kept in Rows so the manifest can be
// written back out unchanged.
type Manifest struct {
	Header  []string
	Rows    [][]string
	Runs    []*model.Run
	Columns Columns
}

// Parse reads a comma-separated runinfo manifest.
//
// Parse performs the following steps:
//  1. Skips blank lines
//  2. Resolves the sample name, run and project columns from the header
//  3. Drops repeated header rows (runinfo exports concatenate batches)
//  4. Builds one model.Run per data row
//
// Quoted fields may contain commas. Returns ErrEmptyManifest if data holds
// no non-blank line and a *FormatError if a required column is missing or
// a row is too short to hold it. FormatError.Line counts every line of
// data, blank ones included.
func Parse(data string) (*Manifest, error) {
	text := blankOutLines(data)
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyManifest
	}

	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			return nil, &FormatError{Line: perr.Line, Msg: perr.Err.Error()}
		}
		return nil, &FormatError{Msg: err.Error()}
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	headerLine, _ := r.FieldPos(0)
	cols, err := resolveColumns(header, headerLine)
	if err != nil {
		return nil, err
	}

	m := &Manifest{Header: header, Columns: cols}
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				return nil, &FormatError{Line: perr.Line, Msg: perr.Err.Error()}
			}
			return nil, &FormatError{Msg: err.Error()}
		}
		if isHeader(record, header) {
			continue
		}
		if len(record) < cols.width() {
			line, _ := r.FieldPos(0)
			return nil, &FormatError{Line: line, Msg: fmt.Sprintf("expected at least %d fields, got %d", cols.width(), len(record))}
		}

		m.Rows = append(m.Rows, record)
		m.Runs = append(m.Runs, cols.run(record))
	}

	return m, nil
}

// HasSampleColumn reports whether a header line names the sample name column.
func HasSampleColumn(headerLine string) bool {
	r := csv.NewReader(strings.NewReader(headerLine))
	r.LazyQuotes = true
	fields, err := r.Read()
	if err != nil {
		return false
	}
	return indexOf(fields, ColumnSampleName) >= 0
}

// Len returns the number of data rows.
func (m *Manifest) Len() int {
	return len(m.Rows)
}

// Samples groups the manifest's runs by sample name.
func (m *Manifest) Samples() []*model.Sample {
	return model.GroupBySample(m.Runs)
}

// WriteCSV writes the header and every remaining row as CSV.
func (m *Manifest) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(m.Header); err != nil {
		return err
	}
	if err := cw.WriteAll(m.Rows); err != nil {
		return err
	}
	return cw.Error()
}

func resolveColumns(header []string, line int) (Columns, error) {
	cols := Columns{
		SampleName:   indexOf(header, ColumnSampleName),
		Run:          indexOf(header, ColumnRun),
		BioProject:   indexOf(header, ColumnBioProject),
		DownloadPath: indexOf(header, ColumnDownloadPath),
	}

	var missing []string
	if cols.SampleName < 0 {
		missing = append(missing, ColumnSampleName)
	}
	if cols.Run < 0 {
		missing = append(missing, ColumnRun)
	}
	if cols.BioProject < 0 {
		missing = append(missing, ColumnBioProject)
	}
	if len(missing) > 0 {
		return cols, &FormatError{Line: line, Msg: "header lacks required column(s): " + strings.Join(missing, ", ")}
	}
	return cols, nil
}

func (c Columns) run(record []string) *model.Run {
	run := &model.Run{
		Accession: strings.TrimSpace(record[c.Run]),
		Sample:    strings.TrimSpace(record[c.SampleName]),
		Project:   strings.TrimSpace(record[c.BioProject]),
	}
	if c.DownloadPath >= 0 && c.DownloadPath < len(record) {
		run.URL = strings.TrimSpace(record[c.DownloadPath])
	}
	if run.Sample == "" {
		run.Sample = run.Accession
	}
	return run
}

func indexOf(fields []string, name string) int {
	for i, f := range fields {
		if strings.EqualFold(strings.TrimSpace(f), name) {
			return i
		}
	}
	return -1
}

func isHeader(record, header []string) bool {
	if len(record) != len(header) {
		return false
	}
	for i := range record {
		if strings.TrimSpace(record[i]) != header[i] {
			return false
		}
	}
	return true
}

// blankOutLines empties lines holding only whitespace and normalizes line
// endings. The number of lines is unchanged; encoding/csv skips empty ones.
func blankOutLines(data string) string {
	lines := strings.Split(strings.ReplaceAll(data, "\r\n", "\n"), "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			lines[i] = ""
		}
	}
	return strings.Join(lines, "\n")
}

// firstLine returns the first non-blank line of text and its 1-based number,
// or "" and 0 when there is none.
func firstLine(text string) (string, int) {
	for i, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			return line, i + 1
		}
	}
	return "", 0
}
