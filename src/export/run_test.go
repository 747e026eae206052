package export

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/will-rowe/skim/src/distance"
	"github.com/will-rowe/skim/src/minhash"
	"github.com/will-rowe/skim/src/pipeline"
	"github.com/will-rowe/skim/src/seqio"
	"github.com/will-rowe/skim/src/store"
)

// simulateSamples writes one FASTQ file per sample. Samples share a genome, with an
// increasing number of point mutations each, so that their distances differ.
func simulateSamples(t *testing.T, dir string, numSamples int) []seqio.Sample {
	t.Helper()
	rng := rand.New(rand.NewSource(42))
	genome := make([]byte, 2000)
	for i := range genome {
		genome[i] = "ACGT"[rng.Intn(4)]
	}
	samples := make([]seqio.Sample, numSamples)
	for s := range samples {
		variant := append([]byte(nil), genome...)
		for m := 0; m < s*20; m++ {
			variant[rng.Intn(len(variant))] = "ACGT"[rng.Intn(4)]
		}
		var buf bytes.Buffer
		for r := 0; r < 400; r++ {
			start := rng.Intn(len(variant) - 100)
			fmt.Fprintf(&buf, "@s%d_r%d\n%s\n+\n%s\n", s, r, variant[start:start+100], bytes.Repeat([]byte("I"), 100))
		}
		name := fmt.Sprintf("sample-%d", s)
		fp := filepath.Join(dir, name+".fq")
		require.NoError(t, os.WriteFile(fp, buf.Bytes(), 0644))
		samples[s] = seqio.Sample{Name: name, Files: []string{fp}}
	}
	return samples
}

func sketchStore(t *testing.T, config minhash.Config, maxReads, workers int, samples []seqio.Sample) *store.Store {
	t.Helper()
	info := &pipeline.Info{NumProc: workers, MaxReads: maxReads, Config: config}
	sketches, err := pipeline.SketchSamples(context.Background(), info, samples)
	require.NoError(t, err)
	s, err := store.New(config)
	require.NoError(t, err)
	for _, sketch := range sketches {
		require.NoError(t, s.Add(sketch))
	}
	return s
}

// exportedText maps each exported file name to its decompressed content
func exportedText(t *testing.T, paths []string) map[string]string {
	t.Helper()
	texts := make(map[string]string, len(paths))
	for _, path := range paths {
		texts[filepath.Base(path)] = readText(t, path)
	}
	return texts
}

func TestExportGrid(t *testing.T) {
	samples := simulateSamples(t, t.TempDir(), 5)
	ctx := context.Background()
	for _, k := range []uint{21, 31} {
		for _, filter := range []bool{false, true} {
			for _, maxReads := range []int{0, 100} {
				for _, n := range []uint{100, 1000} {
					config := minhash.Config{KmerSize: k, Capacity: n, Filter: minhash.NoFilter(), Hasher: minhash.XXHASH}
					if filter {
						config.Filter = minhash.MinimumAbundance(minhash.DefaultMinAbundance)
					}
					t.Run(fmt.Sprintf("k%d_filter-%t_reads%d_n%d", k, filter, maxReads, n), func(t *testing.T) {
						var outputs []map[string]string
						for _, workers := range []int{1, 0} {
							s := sketchStore(t, config, maxReads, workers, samples)
							family, err := distance.NewEngine(workers).Compute(ctx, s, distance.Metrics)
							require.NoError(t, err)
							paths, err := Family(ctx, family, t.TempDir(), Options{Workers: workers})
							require.NoError(t, err)
							require.Len(t, paths, len(distance.Metrics))
							outputs = append(outputs, exportedText(t, paths))
						}
						assert.Equal(t, outputs[0], outputs[1])
					})
				}
			}
		}
	}
}

func TestUpdateFromCSV(t *testing.T) {
	ctx := context.Background()
	samples := simulateSamples(t, t.TempDir(), 5)
	config := minhash.Config{KmerSize: 21, Capacity: 1000, Filter: minhash.MinimumAbundance(2), Hasher: minhash.XXHASH}
	all := sketchStore(t, config, 0, 0, samples)

	// everything in one go
	full, err := distance.NewEngine(0).Compute(ctx, all, distance.Metrics)
	require.NoError(t, err)
	fullPaths, err := Family(ctx, full, t.TempDir(), Options{Gzip: true})
	require.NoError(t, err)

	// the first two samples, exported as gzipped text only
	dir := t.TempDir()
	first, err := store.New(config)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		require.NoError(t, first.Add(all.Sketch(i)))
	}
	require.NoError(t, first.Save(filepath.Join(dir, store.FileName), store.CompressionZSTD))
	partial, err := distance.NewEngine(0).Compute(ctx, first, distance.Metrics)
	require.NoError(t, err)
	_, err = Family(ctx, partial, dir, Options{Gzip: true})
	require.NoError(t, err)

	// then the rest one sample at a time
	updater := distance.NewUpdater(distance.NewEngine(0))
	for i := 2; i < all.Len(); i++ {
		run, err := OpenRun(dir)
		require.NoError(t, err)
		require.Equal(t, i, run.Store.Len())
		updated, err := run.Update(ctx, updater, []*minhash.Sketch{all.Sketch(i)}, Options{})
		require.NoError(t, err)
		assert.Equal(t, i+1, updated.Store.Len())
	}

	run, err := OpenRun(dir)
	require.NoError(t, err)
	assert.Equal(t, all.Names(), run.Store.Names())
	assert.Equal(t, store.CompressionZSTD, run.Store.Codec())
	plain, err := filepath.Glob(filepath.Join(dir, "mat_*"+CSVExt))
	require.NoError(t, err)
	assert.Empty(t, plain)
	for name, text := range exportedText(t, fullPaths) {
		assert.Equal(t, text, readText(t, filepath.Join(dir, name)), name)
	}
}

// snapshot reads every file of a directory
func snapshot(t *testing.T, dir string) map[string][]byte {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	files := make(map[string][]byte, len(entries))
	for _, entry := range entries {
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		require.NoError(t, err)
		files[entry.Name()] = data
	}
	return files
}

func TestRunUpdateFailure(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	family := testFamily(t)
	s, err := store.New(testConfig)
	require.NoError(t, err)
	for _, sketch := range testSketches() {
		require.NoError(t, s.Add(sketch))
	}
	require.NoError(t, s.Save(filepath.Join(dir, store.FileName), store.CompressionNone))
	require.NoError(t, family.Save(dir))
	_, err = Family(ctx, family, dir, Options{})
	require.NoError(t, err)
	before := snapshot(t, dir)

	// the new sample can be sketched and compared but not exported, so the update fails
	// after the sketch file and raw matrices have been written
	run, err := OpenRun(dir)
	require.NoError(t, err)
	incoming := &minhash.Sketch{Name: "D;1", Config: testConfig, Hashes: []uint64{2, 3, 4}, Abundances: []uint32{1, 1, 1}}
	_, err = run.Update(ctx, distance.NewUpdater(distance.NewEngine(0)), []*minhash.Sketch{incoming}, Options{})
	require.Error(t, err)
	assert.Equal(t, before, snapshot(t, dir))

	// the run still loads and can be updated
	run, err = OpenRun(dir)
	require.NoError(t, err)
	incoming.Name = "D"
	updated, err := run.Update(ctx, distance.NewUpdater(distance.NewEngine(0)), []*minhash.Sketch{incoming}, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C", "D"}, updated.Store.Names())
	reloaded, err := OpenRun(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C", "D"}, reloaded.Family.Rows)
}
