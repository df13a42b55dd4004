//go:build unix

package mmap

import (
	"fmt"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

func mapFile(f *os.File, size int) ([]byte, error) {
	b, err := unix.Mmap(int(f.Fd()), 0, size, syscall.PROT_READ, syscall.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap: %w", err)
	}
	// ENOSYS still leaves a working mapping.
	if err := unix.Madvise(b, syscall.MADV_SEQUENTIAL); err != nil && err != syscall.ENOSYS {
		unix.Munmap(b)
		return nil, fmt.Errorf("madvise(MADV_SEQUENTIAL): %w", err)
	}
	return b, nil
}

func unmapFile(b []byte) error {
	return unix.Munmap(b)
}
