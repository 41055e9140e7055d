package util

import "os"

// EnsureDir creates a directory and its parents if missing.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// RemoveAllQuiet removes a path recursively, ignoring missing paths.
func RemoveAllQuiet(path string) error {
	err := os.RemoveAll(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
