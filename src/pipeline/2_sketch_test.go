package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/will-rowe/skim/src/minhash"
	"github.com/will-rowe/skim/src/misc"
	"github.com/will-rowe/skim/src/seqio"
)

var testConfig = minhash.Config{
	KmerSize: 21,
	Capacity: 200,
	Filter:   minhash.NoFilter(),
	Hasher:   minhash.XXHASH,
}

// simulateReads samples reads from a random genome
func simulateReads(seed int64, genomeLen, numReads, readLen int) [][]byte {
	rng := rand.New(rand.NewSource(seed))
	genome := make([]byte, genomeLen)
	for i := range genome {
		genome[i] = "ACGT"[rng.Intn(4)]
	}
	reads := make([][]byte, numReads)
	for i := range reads {
		start := rng.Intn(genomeLen - readLen)
		reads[i] = append([]byte(nil), genome[start:start+readLen]...)
	}
	return reads
}

func fastqBytes(reads [][]byte) []byte {
	var buf bytes.Buffer
	for i, read := range reads {
		fmt.Fprintf(&buf, "@read%d\n%s\n+\n%s\n", i, read, bytes.Repeat([]byte("I"), len(read)))
	}
	return buf.Bytes()
}

func writeFastq(t *testing.T, dir, name string, reads [][]byte) string {
	t.Helper()
	fp := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(fp, fastqBytes(reads), 0644))
	return fp
}

func writeFastqGz(t *testing.T, dir, name string, reads [][]byte) string {
	t.Helper()
	fp := filepath.Join(dir, name)
	fh, err := os.Create(fp)
	require.NoError(t, err)
	gw := gzip.NewWriter(fh)
	_, err = gw.Write(fastqBytes(reads))
	require.NoError(t, err)
	require.NoError(t, gw.Close())
	require.NoError(t, fh.Close())
	return fp
}

func testInfo(numProc, maxReads int, config minhash.Config) *Info {
	return &Info{NumProc: numProc, MaxReads: maxReads, Config: config}
}

func TestSketchSampleWorkers(t *testing.T) {
	dir := t.TempDir()
	reads := simulateReads(1, 5000, 2000, 100)
	sample := seqio.Sample{Name: "S1", Files: []string{writeFastq(t, dir, "s1.fq", reads)}}

	filtered := testConfig
	filtered.Filter = minhash.MinimumAbundance(2)
	for _, config := range []minhash.Config{testConfig, filtered} {
		single, err := SketchSample(context.Background(), testInfo(1, 0, config), sample)
		require.NoError(t, err)
		assert.Equal(t, "S1", single.Name)
		assert.Equal(t, int(config.Capacity), single.Len())
		require.NoError(t, single.Validate())

		for _, numProc := range []int{0, 3, 8} {
			multi, err := SketchSample(context.Background(), testInfo(numProc, 0, config), sample)
			require.NoError(t, err)
			assert.Equal(t, single, multi, "workers %d with filter %s", numProc, config.Filter)
		}
	}
}

func TestSketchSampleFiles(t *testing.T) {
	dir := t.TempDir()
	reads := simulateReads(2, 3000, 900, 80)
	whole := seqio.Sample{Name: "S", Files: []string{writeFastq(t, dir, "all.fq", reads)}}
	split := seqio.Sample{Name: "S", Files: []string{
		writeFastq(t, dir, "part1.fq", reads[:400]),
		writeFastqGz(t, dir, "part2.fq.gz", reads[400:]),
	}}
	a, err := SketchSample(context.Background(), testInfo(2, 0, testConfig), whole)
	require.NoError(t, err)
	b, err := SketchSample(context.Background(), testInfo(2, 0, testConfig), split)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSketchSampleMaxReads(t *testing.T) {
	dir := t.TempDir()
	reads := simulateReads(3, 3000, 1000, 80)
	capped := seqio.Sample{Name: "S", Files: []string{
		writeFastq(t, dir, "part1.fq", reads[:300]),
		writeFastq(t, dir, "part2.fq", reads[300:]),
	}}
	first := seqio.Sample{Name: "S", Files: []string{writeFastq(t, dir, "first.fq", reads[:500])}}

	a, err := SketchSample(context.Background(), testInfo(4, 500, testConfig), capped)
	require.NoError(t, err)
	b, err := SketchSample(context.Background(), testInfo(4, 0, testConfig), first)
	require.NoError(t, err)
	assert.Equal(t, b, a)

	// a cap beyond the number of reads changes nothing
	c, err := SketchSample(context.Background(), testInfo(4, 1000000, testConfig), first)
	require.NoError(t, err)
	assert.Equal(t, b, c)
}

func TestSketchSampleNoReads(t *testing.T) {
	dir := t.TempDir()
	var noReads *misc.NoReadsError

	empty := filepath.Join(dir, "empty.fq")
	require.NoError(t, os.WriteFile(empty, nil, 0644))
	_, err := SketchSample(context.Background(), testInfo(1, 0, testConfig), seqio.Sample{Name: "E", Files: []string{empty}})
	require.True(t, errors.As(err, &noReads))
	assert.Equal(t, "E", noReads.Sample)

	// reads shorter than k give no k-mers
	short := writeFastq(t, dir, "short.fq", [][]byte{[]byte("ACGTACGT"), []byte("TTGCA")})
	_, err = SketchSample(context.Background(), testInfo(1, 0, testConfig), seqio.Sample{Name: "T", Files: []string{short}})
	assert.True(t, errors.As(err, &noReads))

	// all filtered out
	unique := writeFastq(t, dir, "unique.fq", [][]byte{[]byte("ACGTTGCATGCATGCAAGCTAGCTAGGATCGATTTAC")})
	filtered := testConfig
	filtered.Filter = minhash.MinimumAbundance(2)
	_, err = SketchSample(context.Background(), testInfo(1, 0, filtered), seqio.Sample{Name: "U", Files: []string{unique}})
	assert.True(t, errors.As(err, &noReads))
}

func TestSketchSampleBadInput(t *testing.T) {
	dir := t.TempDir()
	_, err := SketchSample(context.Background(), testInfo(1, 0, testConfig), seqio.Sample{Name: "M", Files: []string{filepath.Join(dir, "missing.fq")}})
	var missing *misc.MissingInputError
	assert.True(t, errors.As(err, &missing))

	bad := filepath.Join(dir, "bad.fq")
	require.NoError(t, os.WriteFile(bad, []byte("not a sequence file\n"), 0644))
	_, err = SketchSample(context.Background(), testInfo(1, 0, testConfig), seqio.Sample{Name: "B", Files: []string{bad}})
	assert.Error(t, err)

	badConfig := testConfig
	badConfig.KmerSize = 40
	_, err = SketchSample(context.Background(), testInfo(1, 0, badConfig), seqio.Sample{Name: "S", Files: []string{bad}})
	assert.Error(t, err)
}

func TestSketchSamples(t *testing.T) {
	dir := t.TempDir()
	samples := []seqio.Sample{
		{Name: "A", Files: []string{writeFastq(t, dir, "a.fq", simulateReads(4, 2000, 300, 100))}},
		{Name: "B", Files: []string{writeFastq(t, dir, "b.fq", simulateReads(5, 2000, 300, 100))}},
	}
	sketches, err := SketchSamples(context.Background(), testInfo(0, 0, testConfig), samples)
	require.NoError(t, err)
	require.Len(t, sketches, 2)
	assert.Equal(t, "A", sketches[0].Name)
	assert.Equal(t, "B", sketches[1].Name)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = SketchSamples(ctx, testInfo(0, 0, testConfig), samples)
	assert.Error(t, err)
}
