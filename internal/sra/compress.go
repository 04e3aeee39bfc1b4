package sra

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
)

// GzipExtension is appended to compressed read files.
const GzipExtension = ".gz"

// GzipCompressor compresses read files with gzip.
type GzipCompressor struct {
	// Level is a compress/flate level; 0 selects gzip.DefaultCompression.
	Level int
}

// Compress writes path+".gz" and removes path.
//
// The compressed stream is written to a temporary file first, so an
// interrupted run never leaves a truncated ".gz" behind.
func (c *GzipCompressor) Compress(ctx context.Context, path string) (string, error) {
	dst := path + GzipExtension

	src, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer src.Close()

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(dst)+".*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	level := c.Level
	if level == 0 {
		level = gzip.DefaultCompression
	}
	zw, err := gzip.NewWriterLevel(tmp, level)
	if err != nil {
		tmp.Close()
		return "", err
	}
	zw.Name = filepath.Base(path)

	if _, err := io.Copy(zw, &ctxReader{ctx: ctx, r: src}); err != nil {
		zw.Close()
		tmp.Close()
		return "", err
	}
	if err := zw.Close(); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", err
	}
	src.Close()
	if err := os.Remove(path); err != nil {
		return "", err
	}
	return dst, nil
}

// ctxReader stops a copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}
