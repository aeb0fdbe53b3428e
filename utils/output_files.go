package utils

import (
	"fmt"
	"os"
)

const partialSuffix = ".part"

// OutputFiles stages the files of one stored product. Each file is
// written under a temporary name and renamed in place by Commit, so a
// product that fails leaves none of its files behind.
type OutputFiles struct {
	final []string
}

// Add registers a final path and returns the temporary path to write.
func (o *OutputFiles) Add(path string) string {
	o.final = append(o.final, path)
	return path + partialSuffix
}

// Discard removes every temporary file.
func (o *OutputFiles) Discard() {
	for _, path := range o.final {
		os.Remove(path + partialSuffix)
	}
}

// Commit renames every temporary file to its final path. When a rename
// fails the files already renamed are removed along with the remaining
// temporary files.
func (o *OutputFiles) Commit() error {
	for i, path := range o.final {
		if err := os.Rename(path+partialSuffix, path); err != nil {
			for _, done := range o.final[:i] {
				os.Remove(done)
			}
			o.Discard()
			return fmt.Errorf("Error committing %s: %v", path, err)
		}
	}
	return nil
}
