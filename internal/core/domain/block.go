package domain

import "fmt"

// Block is a block fetched with its full transaction list.
type Block struct {
	Number       uint64
	Hash         string
	Timestamp    uint64
	Transactions []*Transaction
}

// BlockRange is the half-open interval [Start, End) of heights scanned by one pass.
type BlockRange struct {
	Start uint64
	End   uint64
}

// Len returns the number of heights in the range.
func (r BlockRange) Len() uint64 {
	if r.End <= r.Start {
		return 0
	}
	return r.End - r.Start
}

// Heights lists every height in the range in ascending order.
func (r BlockRange) Heights() []uint64 {
	heights := make([]uint64, 0, r.Len())
	for h := r.Start; h < r.End; h++ {
		heights = append(heights, h)
	}
	return heights
}

func (r BlockRange) String() string {
	return fmt.Sprintf("[%d, %d)", r.Start, r.End)
}
