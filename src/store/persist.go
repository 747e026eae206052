package store

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"gopkg.in/vmihailenco/msgpack.v2"

	"github.com/will-rowe/skim/src/minhash"
	"github.com/will-rowe/skim/src/misc"
)

// Compression defines the codec used for the store payload
type Compression uint8

const (
	// CompressionNone stores the payload as plain msgpack
	CompressionNone Compression = 0
	// CompressionLZ4 uses LZ4 frames (fast)
	CompressionLZ4 Compression = 1
	// CompressionZSTD uses zstd frames (smaller)
	CompressionZSTD Compression = 2
)

// ParseCompression reads a codec name
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "", "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZSTD, nil
	}
	return CompressionNone, fmt.Errorf("unknown compression: %q (expected none, lz4 or zstd)", name)
}

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	}
	return fmt.Sprintf("unknown(%d)", uint8(c))
}

// file layout: magic, format version, compression, then the (compressed) msgpack payload
var magic = []byte("SKIM")

const formatVersion byte = 1

// FileName is the name of the sketch file kept alongside its matrices
const FileName = "sketch.bin"

// sampleRecord is the persisted form of one sketch
type sampleRecord struct {
	Name       string         `msgpack:"name"`
	Config     minhash.Config `msgpack:"config"`
	Count      int            `msgpack:"count"`
	Hashes     []uint64       `msgpack:"hashes"`
	Abundances []uint32       `msgpack:"abundances"`
}

type payload struct {
	Config  minhash.Config `msgpack:"config"`
	Samples []sampleRecord `msgpack:"samples"`
}

// Write serialises the store
func (s *Store) Write(w io.Writer, compression Compression) error {
	p := payload{Config: s.Config, Samples: make([]sampleRecord, len(s.sketches))}
	for i, sketch := range s.sketches {
		p.Samples[i] = sampleRecord{
			Name:       sketch.Name,
			Config:     sketch.Config,
			Count:      sketch.Len(),
			Hashes:     sketch.Hashes,
			Abundances: sketch.Abundances,
		}
	}
	header := append(append([]byte(nil), magic...), formatVersion, byte(compression))
	if _, err := w.Write(header); err != nil {
		return err
	}
	switch compression {
	case CompressionNone:
		return msgpack.NewEncoder(w).Encode(&p)
	case CompressionLZ4:
		lw := lz4.NewWriter(w)
		if err := msgpack.NewEncoder(lw).Encode(&p); err != nil {
			return err
		}
		return lw.Close()
	case CompressionZSTD:
		zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault), zstd.WithEncoderConcurrency(1))
		if err != nil {
			return err
		}
		if err := msgpack.NewEncoder(zw).Encode(&p); err != nil {
			_ = zw.Close()
			return err
		}
		return zw.Close()
	}
	return fmt.Errorf("unknown compression: %d", compression)
}

// Read deserialises a store, validating every sketch
func Read(r io.Reader) (*Store, error) {
	br := bufio.NewReader(r)
	header := make([]byte, len(magic)+2)
	if _, err := io.ReadFull(br, header); err != nil {
		return nil, &misc.FormatError{Reason: "truncated header", Err: err}
	}
	if !bytes.Equal(header[:len(magic)], magic) {
		return nil, &misc.FormatError{Reason: "not a sketch store (bad magic)"}
	}
	if v := header[len(magic)]; v != formatVersion {
		return nil, &misc.FormatError{Reason: fmt.Sprintf("unsupported format version %d", v)}
	}
	var src io.Reader
	switch Compression(header[len(magic)+1]) {
	case CompressionNone:
		src = br
	case CompressionLZ4:
		src = lz4.NewReader(br)
	case CompressionZSTD:
		zr, err := zstd.NewReader(br, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		src = zr
	default:
		return nil, &misc.FormatError{Reason: fmt.Sprintf("unknown compression %d", header[len(magic)+1])}
	}
	var p payload
	if err := msgpack.NewDecoder(src).Decode(&p); err != nil {
		return nil, &misc.FormatError{Reason: "could not decode payload", Err: err}
	}
	s, err := New(p.Config)
	if err != nil {
		return nil, &misc.FormatError{Reason: "bad store config", Err: err}
	}
	s.codec = Compression(header[len(magic)+1])
	for _, rec := range p.Samples {
		if rec.Count != len(rec.Hashes) {
			return nil, &misc.FormatError{Reason: fmt.Sprintf("sample %q records %d hashes but holds %d", rec.Name, rec.Count, len(rec.Hashes))}
		}
		sketch := &minhash.Sketch{Name: rec.Name, Config: rec.Config, Hashes: rec.Hashes, Abundances: rec.Abundances}
		if err := sketch.Validate(); err != nil {
			return nil, err
		}
		if err := s.Add(sketch); err != nil {
			return nil, &misc.FormatError{Reason: "inconsistent store", Err: err}
		}
	}
	return s, nil
}

// Save writes the store to a file, replacing any existing file only once the new one is complete
func (s *Store) Save(path string, compression Compression) error {
	return misc.WriteFileAtomic(path, func(w io.Writer) error {
		return s.Write(w, compression)
	})
}

// Load reads a store file
func Load(path string) (*Store, error) {
	fh, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &misc.MissingInputError{Path: path, Err: err}
		}
		return nil, err
	}
	defer fh.Close()
	s, err := Read(fh)
	if err != nil {
		var formatErr *misc.FormatError
		if errors.As(err, &formatErr) && formatErr.Path == "" {
			formatErr.Path = path
		}
		return nil, err
	}
	return s, nil
}
