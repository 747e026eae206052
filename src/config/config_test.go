package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/will-rowe/skim/src/distance"
	"github.com/will-rowe/skim/src/minhash"
	"github.com/will-rowe/skim/src/store"
)

func testFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.UintP("kmer-size", "k", DefaultKmerSize, "")
	flags.UintP("nb-kmers", "n", DefaultSketchSize, "")
	flags.Bool("filter", false, "")
	flags.Uint32("min-abundance", 0, "")
	flags.StringSlice("metrics", nil, "")
	return flags
}

func TestLoadDefaults(t *testing.T) {
	run, err := Load("", nil)
	require.NoError(t, err)
	defaults := DefaultRun()
	assert.Equal(t, defaults.KmerSize, run.KmerSize)
	assert.Equal(t, defaults.SketchSize, run.SketchSize)
	assert.Equal(t, defaults.Hasher, run.Hasher)
	assert.Equal(t, defaults.Compression, run.Compression)
	assert.Equal(t, defaults.LogFile, run.LogFile)
	assert.Equal(t, 0, run.MaxReads)
	require.NoError(t, run.Validate())

	config, err := run.SketchConfig()
	require.NoError(t, err)
	assert.Equal(t, minhash.Config{KmerSize: 21, Capacity: 1000, Filter: minhash.NoFilter(), Hasher: minhash.XXHASH}, config)
	metrics, err := run.MetricSet()
	require.NoError(t, err)
	assert.Len(t, metrics, len(distance.Metrics))
}

func TestLoadWithConfigFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "skim.yaml")
	configContent := `
kmer_size: 25
sketch_size: 5000
min_abundance: 3
hasher: nthash
compression: zstd
metrics:
  - abundance_braycurtis
  - presenceAbsence_jaccard
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0644))

	run, err := Load(configPath, nil)
	require.NoError(t, err)
	require.NoError(t, run.Validate())
	config, err := run.SketchConfig()
	require.NoError(t, err)
	assert.Equal(t, minhash.Config{KmerSize: 25, Capacity: 5000, Filter: minhash.MinimumAbundance(3), Hasher: minhash.NTHASH}, config)
	codec, err := run.Codec()
	require.NoError(t, err)
	assert.Equal(t, store.CompressionZSTD, codec)
	metrics, err := run.MetricSet()
	require.NoError(t, err)
	require.Len(t, metrics, 2)
	assert.Equal(t, "presenceAbsence_jaccard", metrics[0].ID())

	// flags set on the command line win
	flags := testFlags()
	require.NoError(t, flags.Parse([]string{"-k", "31", "--metrics", "abundance_chord"}))
	run, err = Load(configPath, flags)
	require.NoError(t, err)
	assert.Equal(t, uint(31), run.KmerSize)
	assert.Equal(t, uint(5000), run.SketchSize)
	metrics, err = run.MetricSet()
	require.NoError(t, err)
	require.Len(t, metrics, 1)
	assert.Equal(t, "abundance_chord", metrics[0].ID())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	t.Setenv("SKIM_SKETCH_SIZE", "500")
	t.Setenv("SKIM_FILTER", "true")
	t.Setenv("SKIM_PROCESSORS", "0")
	run, err := Load("", testFlags())
	require.NoError(t, err)
	assert.Equal(t, uint(500), run.SketchSize)
	assert.Equal(t, 0, run.Processors)
	assert.Equal(t, minhash.MinimumAbundance(2), run.FilterPolicy())
}

func TestFilterPolicy(t *testing.T) {
	run := DefaultRun()
	assert.Equal(t, minhash.NoFilter(), run.FilterPolicy())
	run.Filter = true
	assert.Equal(t, minhash.MinimumAbundance(minhash.DefaultMinAbundance), run.FilterPolicy())
	run.MinAbundance = 5
	assert.Equal(t, minhash.MinimumAbundance(5), run.FilterPolicy())
	run.Filter = false
	run.MinAbundance = 1
	assert.Equal(t, minhash.NoFilter(), run.FilterPolicy())
}

func TestValidate(t *testing.T) {
	for name, mutate := range map[string]func(r *Run){
		"k too big":        func(r *Run) { r.KmerSize = 33 },
		"k zero":           func(r *Run) { r.KmerSize = 0 },
		"no sketch":        func(r *Run) { r.SketchSize = 0 },
		"bad hasher":       func(r *Run) { r.Hasher = "md5" },
		"bad codec":        func(r *Run) { r.Compression = "brotli" },
		"bad metric":       func(r *Run) { r.Metrics = []string{"abundance_nope"} },
		"negative reads":   func(r *Run) { r.MaxReads = -1 },
		"negative workers": func(r *Run) { r.Processors = -2 },
	} {
		run := DefaultRun()
		mutate(run)
		assert.Error(t, run.Validate(), name)
	}
	assert.NoError(t, DefaultRun().Validate())
}
