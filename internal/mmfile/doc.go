// Package mmfile opens page files as read-only byte regions. On unix the
// region is a shared memory mapping advised for random access; elsewhere
// the file is read into memory.
package mmfile
