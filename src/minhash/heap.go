package minhash

// hashHeap is a max-heap of hash values (satisfying the heap interface: https://golang.org/pkg/container/heap/)
type hashHeap []uint64

// the less method is returning the larger value, so that it is at index position 0 in the heap
func (h hashHeap) Less(i, j int) bool { return h[i] > h[j] }
func (h hashHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h hashHeap) Len() int           { return len(h) }

// Push is a method to add an element to the heap
func (h *hashHeap) Push(x interface{}) {
	// dereference the pointer to modify the slice's length, not just its contents
	*h = append(*h, x.(uint64))
}

// Pop is a method to remove an element from the heap
func (h *hashHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[0 : n-1]
	return x
}

// top returns the largest hash in the heap
func (h hashHeap) top() uint64 { return h[0] }
