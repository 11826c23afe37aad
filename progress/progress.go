package progress

import (
	"math/bits"

	"github.com/syncwatch/syncwatch/types"
)

// SyncPercentage returns how much of the block range [start, head] a source
// has processed, given its latest block. The result is floor-divided so it
// never overstates completion, and clamped to [0, 100].
//
// It is not applicable when no progress was observed (latest == 0) or when
// the range is empty (head <= start).
func SyncPercentage(start, latest, head uint64) types.Percentage {
	if latest == 0 || head <= start {
		return types.NotApplicable
	}
	if latest <= start {
		return types.PercentOf(0)
	}

	total := head - start
	processed := latest - start
	if processed >= total {
		return types.PercentOf(100)
	}

	// processed < total, so processed*100/total < 100 and the 128-bit
	// quotient fits in 64 bits.
	hi, lo := bits.Mul64(processed, 100)
	pct, _ := bits.Div64(hi, lo, total)
	return types.PercentOf(uint8(pct))
}

// ForChain computes the percentage from a source's reported chain progress.
func ForChain(start uint64, chain *types.ChainProgress) types.Percentage {
	if chain == nil {
		return types.NotApplicable
	}
	return SyncPercentage(start, chain.Latest(), chain.Head())
}
