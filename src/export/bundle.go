package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mholt/archiver"

	"github.com/will-rowe/skim/src/misc"
)

// BundleExt is the required extension of a bundle
const BundleExt = ".tar.gz"

// Bundle packs the given files into a tar.gz archive. An existing archive is replaced.
func Bundle(files []string, dest string) error {
	if !strings.HasSuffix(dest, BundleExt) {
		return fmt.Errorf("bundle name must end in %v: %v", BundleExt, dest)
	}
	if len(files) == 0 {
		return fmt.Errorf("nothing to bundle")
	}
	for _, file := range files {
		if err := misc.CheckFile(file); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}

	// archive next to the destination then move it into place
	tmp := filepath.Join(filepath.Dir(dest), ".tmp-"+filepath.Base(dest))
	_ = os.Remove(tmp)
	if err := archiver.Archive(files, tmp); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("could not bundle matrices: %w", err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// Unbundle unpacks a bundle into a directory
func Unbundle(src, dir string) error {
	if err := misc.CheckFile(src); err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	if err := archiver.Unarchive(src, dir); err != nil {
		return &misc.FormatError{Path: src, Reason: "could not unpack bundle", Err: err}
	}
	return nil
}
