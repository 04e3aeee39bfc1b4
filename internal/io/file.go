// Package ioutils provides file system utilities for the sra-downloader.
//
// This package contains functions for:
//   - Concatenating and moving read files
//   - File writing
//   - Directory creation
//   - Removing run-scoped files
//
// All functions that accept a context.Context respect cancellation
// between files, though a single file operation is not interruptible.
package ioutils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrNotDir is returned by EnsureDir when the path exists but is not a directory.
var ErrNotDir = errors.New("path exists and is not a directory")

// ConcatFiles writes the contents of srcs, in order, to dst.
//
// dst is written through a temporary file in the same directory and renamed
// into place once every source has been copied, so dst may also appear in srcs.
// The sources are not removed.
//
// Example:
//
//	err := ConcatFiles(ctx, "SampleA_R1.fastq", "SRR1_1.fastq", "SRR2_1.fastq")
func ConcatFiles(ctx context.Context, dst string, srcs ...string) error {
	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	for _, src := range srcs {
		if err := ctx.Err(); err != nil {
			tmp.Close()
			return err
		}
		if err := appendFile(tmp, src); err != nil {
			tmp.Close()
			return err
		}
	}

	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

func appendFile(w io.Writer, src string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return nil
}

// MoveFile renames src to dst. It is a no-op when both name the same file.
func MoveFile(src, dst string) error {
	if filepath.Clean(src) == filepath.Clean(dst) {
		return nil
	}
	return os.Rename(src, dst)
}

// WriteFile writes data to a file, creating it if necessary.
//
// The file is created with mode 0644. If the file already exists,
// it is truncated before writing.
//
// Example:
//
//	err := WriteFile(ctx, "/data/PRJNA1_runinfo.csv", manifest)
func WriteFile(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// FileExists reports whether path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// EnsureDir creates a directory and all parent directories if they don't exist.
//
// Directories are created with mode 0755 (rwxr-xr-x). If the path already
// exists as a directory, no error is returned. If it exists as anything
// else, an error wrapping ErrNotDir is returned.
//
// Example:
//
//	err := EnsureDir("/data/PRJNA1/SampleA")
func EnsureDir(path string) error {
	info, err := os.Stat(path)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("%s: %w", path, ErrNotDir)
		}
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return os.MkdirAll(path, 0755)
}

// AnyMatch reports whether dir holds an entry whose name satisfies match.
// A missing directory holds nothing.
func AnyMatch(dir string, match func(name string) bool) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	for _, e := range entries {
		if match(e.Name()) {
			return true, nil
		}
	}
	return false, nil
}

// RemoveMatching recursively removes every entry of dir whose name satisfies
// match and returns the removed paths. Removal is best-effort: the first
// error is returned after every entry has been attempted.
func RemoveMatching(dir string, match func(name string) bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var removed []string
	var firstErr error
	for _, e := range entries {
		if !match(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if err := os.RemoveAll(path); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		removed = append(removed, path)
	}
	return removed, firstErr
}
