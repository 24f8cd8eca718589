//go:build !unix

package mmfile

import (
	"fmt"
	"os"
)

// Open reads the page file at path into memory.
func Open(path string) (*Region, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("mmfile: read %s: %w", path, err)
	}
	return &Region{data: data}, nil
}
