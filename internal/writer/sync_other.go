//go:build !linux && !freebsd

package writer

import "os"

func datasync(f *os.File) error {
	return f.Sync()
}
