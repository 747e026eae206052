package store

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/will-rowe/skim/src/minhash"
	"github.com/will-rowe/skim/src/misc"
)

var testConfig = minhash.Config{KmerSize: 21, Capacity: 5, Filter: minhash.NoFilter(), Hasher: minhash.XXHASH}

func newSketch(name string, hashes []uint64, abundances []uint32) *minhash.Sketch {
	return &minhash.Sketch{Name: name, Config: testConfig, Hashes: hashes, Abundances: abundances}
}

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(testConfig)
	require.NoError(t, err)
	require.NoError(t, s.Add(newSketch("A", []uint64{1, 4, 9}, []uint32{2, 1, 1})))
	require.NoError(t, s.Add(newSketch("B", []uint64{2, 4, 8, 16, 32}, []uint32{1, 3, 1, 1, 5})))
	return s
}

func TestStoreAdd(t *testing.T) {
	s := testStore(t)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []string{"A", "B"}, s.Names())
	b, ok := s.Get("B")
	require.True(t, ok)
	assert.Equal(t, b, s.Sketch(1))
	_, ok = s.Get("C")
	assert.False(t, ok)

	// duplicate name
	assert.Error(t, s.Add(newSketch("A", []uint64{1}, []uint32{1})))

	// empty sketch
	var noReads *misc.NoReadsError
	assert.True(t, errors.As(s.Add(newSketch("E", nil, nil)), &noReads))

	// wrong k
	other := newSketch("K", []uint64{1}, []uint32{1})
	other.Config.KmerSize = 31
	var mismatch *misc.ConfigurationMismatchError
	assert.True(t, errors.As(s.Add(other), &mismatch))

	// wrong capacity
	other.Config = testConfig
	other.Config.Capacity = 100
	assert.True(t, errors.As(s.Add(other), &mismatch))
	assert.Equal(t, 2, s.Len())
}

func TestStoreAppend(t *testing.T) {
	s := testStore(t)
	other, err := New(testConfig)
	require.NoError(t, err)
	require.NoError(t, other.Add(newSketch("C", []uint64{3}, []uint32{7})))
	require.NoError(t, other.Add(newSketch("A", []uint64{2, 4, 5}, []uint32{1, 1, 1})))

	appended, err := s.Append(other)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, appended.Names())

	a, _ := appended.Get("A")
	assert.Equal(t, []uint64{1, 2, 4, 5, 9}, a.Hashes)
	assert.Equal(t, []uint32{2, 1, 2, 1, 1}, a.Abundances)

	// the original store is untouched
	assert.Equal(t, []string{"A", "B"}, s.Names())
	origA, _ := s.Get("A")
	assert.Equal(t, []uint64{1, 4, 9}, origA.Hashes)

	mismatched, err := New(minhash.Config{KmerSize: 31, Capacity: 5, Hasher: minhash.XXHASH})
	require.NoError(t, err)
	_, err = s.Append(mismatched)
	var mismatch *misc.ConfigurationMismatchError
	assert.True(t, errors.As(err, &mismatch))
}

func TestStoreExtend(t *testing.T) {
	s := testStore(t)
	extended, err := s.Extend(newSketch("C", []uint64{3}, []uint32{1}))
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, extended.Names())
	assert.Equal(t, 2, s.Len())

	_, err = s.Extend(newSketch("B", []uint64{3}, []uint32{1}))
	assert.Error(t, err)
}

func TestPersistRoundTrip(t *testing.T) {
	s := testStore(t)
	for _, codec := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {
		var buf bytes.Buffer
		require.NoError(t, s.Write(&buf, codec))
		loaded, err := Read(bytes.NewReader(buf.Bytes()))
		require.NoError(t, err, "codec %s", codec)
		assert.Equal(t, codec, loaded.Codec())
		assert.Equal(t, s.Config, loaded.Config)
		assert.Equal(t, s.Names(), loaded.Names())
		for i := 0; i < s.Len(); i++ {
			assert.Equal(t, s.Sketch(i), loaded.Sketch(i))
		}

		// writing again gives the same bytes
		var again bytes.Buffer
		require.NoError(t, loaded.Write(&again, codec))
		assert.Equal(t, buf.Bytes(), again.Bytes(), "codec %s", codec)
	}
}

func TestReadBadInput(t *testing.T) {
	var formatErr *misc.FormatError

	_, err := Read(bytes.NewReader([]byte("SK")))
	assert.True(t, errors.As(err, &formatErr))

	_, err = Read(bytes.NewReader([]byte("NOPE\x01\x00")))
	assert.True(t, errors.As(err, &formatErr))

	_, err = Read(bytes.NewReader([]byte("SKIM\x09\x00")))
	assert.True(t, errors.As(err, &formatErr))

	_, err = Read(bytes.NewReader([]byte("SKIM\x01\x07")))
	assert.True(t, errors.As(err, &formatErr))

	var buf bytes.Buffer
	require.NoError(t, testStore(t).Write(&buf, CompressionNone))
	_, err = Read(bytes.NewReader(buf.Bytes()[:buf.Len()-4]))
	assert.True(t, errors.As(err, &formatErr))
}

func TestSaveLoad(t *testing.T) {
	dir := t.TempDir()
	fp := filepath.Join(dir, "sketch.bin")
	s := testStore(t)
	require.NoError(t, s.Save(fp, CompressionZSTD))

	loaded, err := Load(fp)
	require.NoError(t, err)
	assert.Equal(t, s.Names(), loaded.Names())
	assert.Equal(t, CompressionZSTD, loaded.Codec())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	_, err = Load(filepath.Join(dir, "missing.bin"))
	var missing *misc.MissingInputError
	assert.True(t, errors.As(err, &missing))

	require.NoError(t, os.WriteFile(fp, []byte("garbage"), 0644))
	_, err = Load(fp)
	var formatErr *misc.FormatError
	require.True(t, errors.As(err, &formatErr))
	assert.Equal(t, fp, formatErr.Path)
}

func TestParseCompression(t *testing.T) {
	for _, codec := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {
		parsed, err := ParseCompression(codec.String())
		require.NoError(t, err)
		assert.Equal(t, codec, parsed)
	}
	_, err := ParseCompression("brotli")
	assert.Error(t, err)
}
