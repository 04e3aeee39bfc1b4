package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/handiism/sra-downloader/internal/model"
	"github.com/handiism/sra-downloader/internal/samplesheet"
	"gopkg.in/yaml.v3"
)

// ErrTargetNotDir is returned when the target directory path names an existing file.
var ErrTargetNotDir = errors.New("target path exists and is not a directory")

// Fetcher names accepted by Settings.Fetcher.
const (
	FetcherPrefetch = "prefetch"
	FetcherHTTP     = "http"
)

// Settings holds all configuration options.
type Settings struct {
	// Download settings
	TargetDir             string  `yaml:"target_dir"`
	Parallelism           int     `yaml:"parallelism"`
	DownloadMaxAttempts   int     `yaml:"download_max_attempts"`
	DownloadRetryCooldown float64 `yaml:"download_retry_cooldown"`
	DownloadRetryExponent float64 `yaml:"download_retry_exponent"`
	SkipExisting          bool    `yaml:"skip_existing"`
	Merge                 bool    `yaml:"merge"`

	// Metadata service
	RunInfoEndpoint string `yaml:"runinfo_endpoint"`
	UserAgent       string `yaml:"user_agent"`

	// External tools
	Fetcher         string `yaml:"fetcher"` // prefetch, http
	PrefetchPath    string `yaml:"prefetch_path"`
	FasterqDumpPath string `yaml:"fasterq_dump_path"`
	ConvertThreads  int    `yaml:"convert_threads"`

	// Output files
	ReadExtension    string `yaml:"read_extension"`
	CompressionLevel int    `yaml:"compression_level"`
	SaveManifest     bool   `yaml:"save_manifest"`
	SampleSheet      string `yaml:"sample_sheet"` // "", csv, tsv
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	return &Settings{
		TargetDir:             ".",
		Parallelism:           10,
		DownloadMaxAttempts:   2,
		DownloadRetryCooldown: 5,
		DownloadRetryExponent: 2.0,

		RunInfoEndpoint: "https://trace.ncbi.nlm.nih.gov/Traces/sra-db-be/runinfo",
		UserAgent:       "sra-downloader",

		Fetcher:         FetcherPrefetch,
		PrefetchPath:    "prefetch",
		FasterqDumpPath: "fasterq-dump",
		ConvertThreads:  2,

		ReadExtension:    ".fastq",
		CompressionLevel: 6,
		SaveManifest:     true,
	}
}

// Load reads settings from a YAML file.
//
// Fields missing from the file keep their default values. A missing file
// yields the defaults.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	settings := DefaultSettings()
	if err := yaml.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	return settings, nil
}

// Save writes settings to a YAML file.
func (s *Settings) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate checks the settings for values the downloader cannot work with.
//
// Returns an error wrapping ErrTargetNotDir if TargetDir names an existing
// non-directory.
func (s *Settings) Validate() error {
	if s.Parallelism < 1 {
		return fmt.Errorf("parallelism must be at least 1, got %d", s.Parallelism)
	}
	if s.DownloadMaxAttempts < 1 {
		return fmt.Errorf("download_max_attempts must be at least 1, got %d", s.DownloadMaxAttempts)
	}
	if s.DownloadRetryCooldown < 0 || s.DownloadRetryExponent < 1 {
		return fmt.Errorf("invalid retry cooldown %v with exponent %v", s.DownloadRetryCooldown, s.DownloadRetryExponent)
	}
	if !strings.HasPrefix(s.ReadExtension, ".") || len(s.ReadExtension) < 2 {
		return fmt.Errorf("read_extension must start with a dot, got %q", s.ReadExtension)
	}
	if s.CompressionLevel < -1 || s.CompressionLevel > 9 {
		return fmt.Errorf("compression_level must be between -1 and 9, got %d", s.CompressionLevel)
	}
	if s.SampleSheet != "" {
		if _, err := samplesheet.ParseFormat(s.SampleSheet); err != nil {
			return err
		}
	}
	switch s.Fetcher {
	case FetcherPrefetch, FetcherHTTP:
	default:
		return fmt.Errorf("unknown fetcher %q (want %s or %s)", s.Fetcher, FetcherPrefetch, FetcherHTTP)
	}

	if s.TargetDir == "" {
		return fmt.Errorf("target directory must not be empty")
	}
	if info, err := os.Stat(s.TargetDir); err == nil && !info.IsDir() {
		return fmt.Errorf("%s: %w", s.TargetDir, ErrTargetNotDir)
	}

	return nil
}

// ToLayout converts settings to a model.Layout.
func (s *Settings) ToLayout() *model.Layout {
	return &model.Layout{
		Root:          s.TargetDir,
		ReadExtension: s.ReadExtension,
	}
}
