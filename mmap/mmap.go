// Package mmap maps files read-only into memory and syncs appended data to
// disk. Platforms without mmap fall back to reading the file.
package mmap

import (
	"fmt"
	"os"
)

// MaxSize is the largest file Map accepts.
const MaxSize = 1 << 30

// Map maps the whole of f for reading. An empty file maps to nil. The slice
// must be released with Unmap and must not be retained after that.
func Map(f *os.File) ([]byte, error) {
	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := fi.Size()
	if size == 0 {
		return nil, nil
	}
	if size > MaxSize {
		return nil, fmt.Errorf("mmap: %s is too large (%d bytes)", f.Name(), size)
	}
	return mapFile(f, int(size))
}

// Unmap releases a slice returned by Map.
func Unmap(b []byte) error {
	if b == nil {
		return nil
	}
	return unmapFile(b)
}

// Fdatasync makes the data written to f durable, skipping metadata updates
// where the OS allows it.
//
// Errors are not recoverable: the kernel may have already dropped the dirty
// pages, so callers must treat the file as suspect.
func Fdatasync(f *os.File) error {
	return fdatasync(f)
}
