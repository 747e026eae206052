package reporting

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/will-rowe/skim/src/minhash"
	"github.com/will-rowe/skim/src/store"
)

func TestSummary(t *testing.T) {
	config := minhash.Config{KmerSize: 21, Capacity: 5, Filter: minhash.MinimumAbundance(2), Hasher: minhash.XXHASH}
	s, err := store.New(config)
	require.NoError(t, err)
	require.NoError(t, s.Add(&minhash.Sketch{Name: "gut-01", Config: config, Hashes: []uint64{3, 7}, Abundances: []uint32{2, 5}}))
	require.NoError(t, s.Add(&minhash.Sketch{Name: "soil-17", Config: config, Hashes: []uint64{1}, Abundances: []uint32{40}}))

	var buf bytes.Buffer
	require.NoError(t, Summary(&buf, s))
	out := buf.String()
	for _, want := range []string{"min-abundance:2", "xxhash", "gut-01", "soil-17", "0000000000000007", "40"} {
		assert.Contains(t, out, want)
	}
}
