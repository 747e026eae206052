package config

import (
	"os"
	"path/filepath"

	"github.com/will-rowe/skim/src/store"
)

// Default configuration values
const (
	// Sketching defaults
	DefaultKmerSize    = 21
	DefaultSketchSize  = 1000
	DefaultMaxReads    = 0 // all of them
	DefaultHasher      = "xxhash"
	DefaultCompression = "none"

	// Runtime defaults
	DefaultProcessors = 1
	DefaultLogFile    = "./skim.log"

	// File names used by the update workflow
	SketchFileName = store.FileName
	ConfigFileName = "skim"
)

// DefaultConfigDir returns the directory searched for a config file after the working directory
func DefaultConfigDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "skim")
	}
	return filepath.Join(".", ".skim")
}
