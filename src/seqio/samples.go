package seqio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/will-rowe/skim/src/misc"
)

// Sample is one read set, made up of one or more sequence files
type Sample struct {
	Name  string
	Files []string
}

// ParseInputList reads a sample list. Each line names one sample:
//
//	name: file1,file2;file3
//
// where ';' separates read pairs and ',' separates files of one pair (all files of a
// sample are read in the order given). A line without a name uses the first file's
// base name. Blank lines and lines starting with '#' are ignored.
func ParseInputList(r io.Reader) ([]Sample, error) {
	samples := []Sample{}
	seen := make(map[string]int)
	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name, fileList, found := strings.Cut(line, ":")
		if !found {
			name, fileList = "", line
		}
		name = strings.TrimSpace(name)
		files := []string{}
		for _, pair := range strings.Split(fileList, ";") {
			for _, file := range strings.Split(pair, ",") {
				if file = strings.TrimSpace(file); file != "" {
					files = append(files, file)
				}
			}
		}
		if len(files) == 0 {
			return nil, fmt.Errorf("line %d of sample list has no files", lineNum)
		}
		if name == "" {
			name = SampleName(files[0])
		}
		if prev, ok := seen[name]; ok {
			return nil, fmt.Errorf("sample name %q on line %d was already used on line %d", name, lineNum, prev)
		}
		seen[name] = lineNum
		samples = append(samples, Sample{Name: name, Files: files})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return samples, nil
}

// LoadInputList opens and parses a sample list file, checking every listed file exists and
// looks like a sequence file
func LoadInputList(path string) ([]Sample, error) {
	fh, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &misc.MissingInputError{Path: path, Err: err}
		}
		return nil, err
	}
	defer fh.Close()
	samples, err := ParseInputList(fh)
	if err != nil {
		return nil, fmt.Errorf("bad sample list %v: %w", path, err)
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("no samples found in %v", path)
	}
	for _, sample := range samples {
		for _, file := range sample.Files {
			if err := misc.CheckFile(file); err != nil {
				return nil, err
			}
			if err := misc.CheckExt(file, Extensions); err != nil {
				return nil, fmt.Errorf("sample %v: %w", sample.Name, err)
			}
		}
	}
	return samples, nil
}

// SampleName derives a sample name from a file path by dropping the directory and any
// sequence/compression extensions
func SampleName(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, ".gz")
	for _, ext := range Extensions {
		name = strings.TrimSuffix(name, "."+ext)
	}
	return name
}
