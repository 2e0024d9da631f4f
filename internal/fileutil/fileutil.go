// Package fileutil provides the filesystem primitives the conversion
// pipeline relies on: copy, atomic-ish replace, and temp cleanup.
package fileutil

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"syscall"
)

// CopyFile streams src to dst, creating or truncating dst with mode 0o644.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

// Rename moves src to dst, falling back to copy+remove when the paths live
// on different filesystems (EXDEV).
func Rename(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) || !errors.Is(linkErr.Err, syscall.EXDEV) {
		return err
	}
	if err := CopyFile(src, dst); err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("cross-device copy: %w", err)
	}
	return os.Remove(src)
}

// RemoveIfExists deletes path, treating a missing file as success.
func RemoveIfExists(path string) error {
	err := os.Remove(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Exists reports whether path exists and is a regular file.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// SizeOf returns the file size, or 0 when the file cannot be stat'd.
func SizeOf(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
