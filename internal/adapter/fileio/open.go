// Package fileio opens pipeline input files, decompressing gzip on the fly.
package fileio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// gzipMagic is the two-byte gzip member header.
var gzipMagic = []byte{0x1f, 0x8b}

// Open opens path for reading. Files ending in ".gz", or starting with the
// gzip magic bytes, are decompressed transparently. Closing the returned
// reader closes the underlying file.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	br := bufio.NewReader(f)
	magic, err := br.Peek(len(gzipMagic))
	isGzip := err == nil && magic[0] == gzipMagic[0] && magic[1] == gzipMagic[1]
	if !isGzip && strings.HasSuffix(path, ".gz") {
		_ = f.Close()
		return nil, fmt.Errorf("open %s: not gzip compressed", path)
	}
	if !isGzip {
		return &readCloser{Reader: br, closers: []io.Closer{f}}, nil
	}

	zr, err := gzip.NewReader(br)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &readCloser{Reader: zr, closers: []io.Closer{zr, f}}, nil
}

type readCloser struct {
	io.Reader
	closers []io.Closer
}

func (r *readCloser) Close() error {
	var errs []error
	for _, c := range r.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
