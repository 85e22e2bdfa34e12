package engine

import "os"

// Allocate creates (or truncates) path and sets its length to size without
// writing data, so positioned writes can land anywhere. Calling it again
// with the same size leaves the file at exactly that size.
func Allocate(path string, size int64) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return &AllocationError{Path: path, Size: size, Err: err}
	}
	if err := f.Truncate(size); err != nil {
		f.Close()
		return &AllocationError{Path: path, Size: size, Err: err}
	}
	if err := f.Close(); err != nil {
		return &AllocationError{Path: path, Size: size, Err: err}
	}
	return nil
}
