//go:build linux || darwin || freebsd

package jit

import (
	"errors"
	"fmt"
	"syscall"
)

var errEmptyCodeSegment = errors.New("BUG: empty code segment")

// mmapCodeSegment places code in a fresh anonymous mapping and returns the mapping.
// The pages are filled while read-write and flipped to read-exec afterwards, so they are never writable and
// executable at once.
func mmapCodeSegment(code []byte) ([]byte, error) {
	if len(code) == 0 {
		panic(errEmptyCodeSegment)
	}
	seg, err := syscall.Mmap(-1, 0, len(code), syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_ANON|syscall.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("mmap %d bytes: %w", len(code), err)
	}
	copy(seg, code)
	if err = syscall.Mprotect(seg, syscall.PROT_READ|syscall.PROT_EXEC); err != nil {
		_ = syscall.Munmap(seg)
		return nil, fmt.Errorf("mprotect code segment: %w", err)
	}
	return seg, nil
}

// munmapCodeSegment releases a mapping returned by mmapCodeSegment.
func munmapCodeSegment(seg []byte) error {
	if len(seg) == 0 {
		panic(errEmptyCodeSegment)
	}
	return syscall.Munmap(seg)
}
