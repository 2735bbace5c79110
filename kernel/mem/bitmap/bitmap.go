// Package bitmap implements a packed array of fixed-width entries, used by
// the buddy allocator to store one node-state per tree node without the
// overhead of a full byte per node.
//
// Rust can parameterize BitMap<const N, const G> at compile time; Go has no
// const generic parameters, so N (entry count) and G (entries packed per
// byte) are taken as constructor arguments instead and the backing []byte
// is sized at construction time.
package bitmap

import "kfs/kernel/errors"

// Bitmap is an array of ceil(N/G) bytes, each packing G entries of 8/G bits.
type Bitmap struct {
	n            int
	granularity  int
	bitsPerEntry uint
	mask         byte
	data         []byte
}

// New returns a Bitmap able to hold n entries, granularity entries packed
// per byte. granularity must evenly divide 8 (1, 2, 4 or 8).
func New(n, granularity int) (*Bitmap, error) {
	if n <= 0 {
		return nil, errors.ErrInvalidParamValue
	}
	if granularity <= 0 || granularity > 8 || 8%granularity != 0 {
		return nil, errors.ErrInvalidParamValue
	}

	byteCount := (n + granularity - 1) / granularity
	bitsPerEntry := uint(8 / granularity)

	return &Bitmap{
		n:            n,
		granularity:  granularity,
		bitsPerEntry: bitsPerEntry,
		mask:         byte(1<<bitsPerEntry - 1),
		data:         make([]byte, byteCount),
	}, nil
}

// Len returns the number of entries this bitmap holds.
func (b *Bitmap) Len() int {
	return b.n
}

// Get returns the value stored at index i, truncated to 8/granularity bits.
// i must be in [0, Len()).
func (b *Bitmap) Get(i int) byte {
	byteIndex := i / b.granularity
	shift := uint(i%b.granularity) * b.bitsPerEntry
	return (b.data[byteIndex] >> shift) & b.mask
}

// Set stores v (truncated to 8/granularity bits) at index i.
// i must be in [0, Len()).
func (b *Bitmap) Set(i int, v byte) {
	byteIndex := i / b.granularity
	shift := uint(i%b.granularity) * b.bitsPerEntry
	v &= b.mask
	b.data[byteIndex] = (b.data[byteIndex] &^ (b.mask << shift)) | (v << shift)
}

// Clear sets the entry at index i to zero.
func (b *Bitmap) Clear(i int) {
	b.Set(i, 0)
}

// Visitor is invoked by Iterate for each entry in index order. Returning
// false aborts the scan early.
type Visitor func(i int, v byte) bool

// Iterate invokes visitor once per entry, in index order.
func (b *Bitmap) Iterate(visitor Visitor) {
	for i := 0; i < b.n; i++ {
		if !visitor(i, b.Get(i)) {
			return
		}
	}
}
