//go:build unix

package mmfile

import (
	"errors"
	"fmt"
	"math"
	"os"

	"golang.org/x/sys/unix"
)

// Open maps the page file at path read-only. The mapping outlives the file
// descriptor and keeps the old contents visible when the path is replaced
// by an atomic rename.
func Open(path string) (*Region, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mmfile: open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("mmfile: stat %s: %w", path, err)
	}
	size := info.Size()
	if size == 0 {
		return &Region{data: []byte{}}, nil
	}
	if size > math.MaxInt {
		return nil, fmt.Errorf("mmfile: %s too large to map (%d bytes)", path, size)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmfile: mmap %s: %w", path, err)
	}
	// Records are read at index-chosen offsets, not front to back.
	_ = unix.Madvise(data, unix.MADV_RANDOM)

	return &Region{data: data, release: func() error {
		if err := unix.Munmap(data); err != nil && !errors.Is(err, unix.EINVAL) {
			return fmt.Errorf("mmfile: munmap %s: %w", path, err)
		}
		return nil
	}}, nil
}
