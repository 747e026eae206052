package minhash

// Merge returns the sketch of the union of the k-mer multisets behind a and b: hashes
// from both are combined, abundances of shared hashes are summed and the smallest
// capacity hashes are kept. A capacity of 0 keeps a's capacity. The result takes a's name.
//
// Merging is commutative and associative, and with no filter merging per-chunk sketches
// gives the same sketch as sketching all the chunks at once.
func Merge(a, b *Sketch, capacity uint) (*Sketch, error) {
	if err := a.Config.CheckCompatible(b.Config, false); err != nil {
		return nil, err
	}
	config := a.Config
	if capacity != 0 {
		config.Capacity = capacity
	}
	size := min(uint(len(a.Hashes)+len(b.Hashes)), config.Capacity)
	merged := &Sketch{
		Name:       a.Name,
		Config:     config,
		Hashes:     make([]uint64, 0, size),
		Abundances: make([]uint32, 0, size),
	}
	i, j := 0, 0
	for uint(len(merged.Hashes)) < config.Capacity && (i < len(a.Hashes) || j < len(b.Hashes)) {
		switch {
		case j == len(b.Hashes) || (i < len(a.Hashes) && a.Hashes[i] < b.Hashes[j]):
			merged.Hashes = append(merged.Hashes, a.Hashes[i])
			merged.Abundances = append(merged.Abundances, a.Abundances[i])
			i++
		case i == len(a.Hashes) || b.Hashes[j] < a.Hashes[i]:
			merged.Hashes = append(merged.Hashes, b.Hashes[j])
			merged.Abundances = append(merged.Abundances, b.Abundances[j])
			j++
		default:
			merged.Hashes = append(merged.Hashes, a.Hashes[i])
			merged.Abundances = append(merged.Abundances, saturate(uint64(a.Abundances[i])+uint64(b.Abundances[j])))
			i++
			j++
		}
	}
	return merged, nil
}
