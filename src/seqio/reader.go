package seqio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/biogo/biogo/alphabet"
	bioseqio "github.com/biogo/biogo/io/seqio"
	"github.com/biogo/biogo/io/seqio/fasta"
	"github.com/biogo/biogo/io/seqio/fastq"
	"github.com/biogo/biogo/seq/linear"
	"github.com/klauspost/compress/gzip"

	"github.com/will-rowe/skim/src/misc"
)

// multiReadCloser closes multiple io.Closers when Close() is called
type multiReadCloser struct {
	io.Reader
	closers []io.Closer
}

func (m *multiReadCloser) Close() error {
	var err error
	for _, c := range m.closers {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// Open opens a sequence file, transparently decompressing gzip input (detected by
// magic number or a .gz suffix)
func Open(path string) (io.ReadCloser, error) {
	fh, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &misc.MissingInputError{Path: path, Err: err}
		}
		return nil, err
	}
	var sig [2]byte
	n, _ := io.ReadFull(fh, sig[:])
	if _, err := fh.Seek(0, io.SeekStart); err != nil {
		_ = fh.Close()
		return nil, err
	}
	if (n == 2 && sig[0] == 0x1f && sig[1] == 0x8b) || strings.HasSuffix(path, ".gz") {
		gr, err := gzip.NewReader(fh)
		if err != nil {
			_ = fh.Close()
			return nil, fmt.Errorf("could not decompress %v: %w", path, err)
		}
		return &multiReadCloser{Reader: gr, closers: []io.Closer{gr, fh}}, nil
	}
	return fh, nil
}

// Reader iterates over the records of a FASTA or FASTQ stream. The format is taken from
// the first non-blank byte ('>' or '@').
type Reader struct {
	scanner *bioseqio.Scanner
	current Sequence
	err     error
}

// NewReader is the constructor
func NewReader(r io.Reader) (*Reader, error) {
	br := bufio.NewReader(r)
	var first byte
	for {
		b, err := br.Peek(1)
		if err == io.EOF {
			// an empty stream has no records
			return &Reader{}, nil
		}
		if err != nil {
			return nil, err
		}
		if b[0] == ' ' || b[0] == '\n' || b[0] == '\r' || b[0] == '\t' {
			_, _ = br.ReadByte()
			continue
		}
		first = b[0]
		break
	}
	var src bioseqio.Reader
	switch first {
	case '>':
		src = fasta.NewReader(br, linear.NewSeq("", nil, alphabet.DNA))
	case '@':
		src = fastq.NewReader(br, linear.NewQSeq("", nil, alphabet.DNA, alphabet.Sanger))
	default:
		return nil, fmt.Errorf("input is not FASTA or FASTQ (starts with %q)", first)
	}
	return &Reader{scanner: bioseqio.NewScanner(src)}, nil
}

// Next advances to the next record, returning false at the end of the input or on error
func (r *Reader) Next() bool {
	if r.scanner == nil || r.err != nil {
		return false
	}
	if !r.scanner.Next() {
		r.err = r.scanner.Error()
		return false
	}
	switch s := r.scanner.Seq().(type) {
	case *linear.Seq:
		r.current = Sequence{ID: s.ID, Seq: make([]byte, len(s.Seq))}
		for i, l := range s.Seq {
			r.current.Seq[i] = byte(l)
		}
	case *linear.QSeq:
		r.current = Sequence{ID: s.ID, Seq: make([]byte, len(s.Seq))}
		for i, ql := range s.Seq {
			r.current.Seq[i] = byte(ql.L)
		}
	default:
		r.err = fmt.Errorf("unexpected sequence type %T", s)
		return false
	}
	r.current.BaseCheck()
	return true
}

// Sequence returns the current record. The returned value is not reused by later calls to Next.
func (r *Reader) Sequence() Sequence {
	return r.current
}

// Err returns the first error met while reading
func (r *Reader) Err() error {
	return r.err
}
