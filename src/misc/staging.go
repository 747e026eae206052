package misc

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	stagingPrefix = ".staging-"
	commitMarker  = "COMMIT"
)

// Staging collects new versions of files for a directory. Nothing in the target directory
// changes until Commit, and a commit that is cut short is finished by RecoverStaging.
type Staging struct {
	target string
	dir    string
	closed bool
}

// NewStaging creates a staging directory inside target, so that staged files can be renamed
// into place
func NewStaging(target string) (*Staging, error) {
	if err := os.MkdirAll(target, 0755); err != nil {
		return nil, err
	}
	dir, err := os.MkdirTemp(target, stagingPrefix+"*")
	if err != nil {
		return nil, err
	}
	return &Staging{target: target, dir: dir}, nil
}

// Dir is where files are staged
func (s *Staging) Dir() string {
	return s.dir
}

// Commit moves every staged file over its counterpart in the target directory. Once the
// commit marker is written the commit will complete, here or in RecoverStaging.
func (s *Staging) Commit() error {
	if s.closed {
		return fmt.Errorf("staging directory %v is already closed", s.dir)
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return err
	}
	var names []string
	for _, entry := range entries {
		if entry.Type().IsRegular() && entry.Name() != commitMarker {
			names = append(names, entry.Name())
		}
	}
	if len(names) == 0 {
		return fmt.Errorf("nothing staged in %v", s.dir)
	}
	if err := WriteFileAtomic(filepath.Join(s.dir, commitMarker), func(w io.Writer) error {
		_, err := io.WriteString(w, strings.Join(names, "\n")+"\n")
		return err
	}); err != nil {
		return fmt.Errorf("could not mark %v as committed: %w", s.dir, err)
	}
	s.closed = true
	return finishCommit(s.target, s.dir)
}

// Abort drops everything staged. It does nothing after Commit.
func (s *Staging) Abort() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return os.RemoveAll(s.dir)
}

// finishCommit renames the files listed in the commit marker into target, skipping any
// already moved by an earlier attempt
func finishCommit(target, dir string) error {
	data, err := os.ReadFile(filepath.Join(dir, commitMarker))
	if err != nil {
		return err
	}
	for _, name := range strings.Split(string(data), "\n") {
		if name == "" {
			continue
		}
		if err := os.Rename(filepath.Join(dir, name), filepath.Join(target, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("could not move %v into place: %w", name, err)
		}
	}
	if d, err := os.Open(target); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return os.RemoveAll(dir)
}

// RecoverStaging tidies up after an interrupted run. Committed staging directories in target
// are finished and the rest are dropped. It returns how many commits were finished.
func RecoverStaging(target string) (int, error) {
	dirs, err := filepath.Glob(filepath.Join(target, stagingPrefix+"*"))
	if err != nil {
		return 0, err
	}
	finished := 0
	for _, dir := range dirs {
		if _, err := os.Stat(filepath.Join(dir, commitMarker)); err != nil {
			if err := os.RemoveAll(dir); err != nil {
				return finished, err
			}
			continue
		}
		if err := finishCommit(target, dir); err != nil {
			return finished, err
		}
		finished++
	}
	return finished, nil
}
