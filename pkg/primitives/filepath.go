package primitives

import (
	"os"
	"path/filepath"
)

// Filepath is a type-safe wrapper around file paths used for flash image
// files and log outputs.
//
// Example usage:
//
//	dataDir := primitives.Filepath("/data")
//	image := dataDir.Join("eeprom.img")
//	if !image.Exists() {
//	    // a fresh image will be created
//	}
type Filepath string

// Dir returns the directory portion of the file path.
func (f Filepath) Dir() string {
	return filepath.Dir(string(f))
}

func (f Filepath) String() string {
	return string(f)
}

// Join concatenates path elements to this path and returns a new Filepath.
//
// Example:
//
//	dataDir := primitives.Filepath("/data")
//	imagePath := dataDir.Join("images", "board.img")
//	// Returns Filepath("/data/images/board.img")
func (f Filepath) Join(elem ...string) Filepath {
	parts := append([]string{string(f)}, elem...)
	return Filepath(filepath.Join(parts...))
}

// Base returns the last element of the path (the filename).
func (f Filepath) Base() string {
	return filepath.Base(string(f))
}

// Exists checks whether the file exists on the filesystem.
func (f Filepath) Exists() bool {
	_, err := os.Stat(string(f))
	return err == nil
}

// Remove deletes the file from the filesystem.
// This operation is idempotent - it succeeds if the file doesn't exist.
func (f Filepath) Remove() error {
	if !f.Exists() {
		return nil
	}
	return os.Remove(string(f))
}

// IsEmpty checks whether the filepath is an empty string.
func (f Filepath) IsEmpty() bool {
	return string(f) == ""
}

// MkdirAll creates the parent directory and any necessary parents.
func (f Filepath) MkdirAll(perm os.FileMode) error {
	return os.MkdirAll(f.Dir(), perm)
}
