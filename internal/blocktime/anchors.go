package blocktime

import (
	"fmt"
)

const (
	MergeBlock     uint64 = 15_537_394
	MergeTimestamp int64  = 1663224179 // 2022-09-15 06:42:59 UTC

	// SlotSeconds is the fixed post-merge slot time.
	SlotSeconds int64 = 12

	// PreMergeAvgBlockTime is used when two anchors share a block number.
	PreMergeAvgBlockTime = 13.5
)

// Anchor is a trusted (block, timestamp) checkpoint.
type Anchor struct {
	Name      string `json:"name"`
	Block     uint64 `json:"block"`
	Timestamp int64  `json:"timestamp"`
}

// MainnetAnchors ends at the merge: from there on blocks follow the 12s slot
// clock, so later fork blocks would disagree with the slot formula because of
// missed slots.
var MainnetAnchors = []Anchor{
	{Name: "genesis", Block: 0, Timestamp: 1438269973},
	{Name: "homestead", Block: 1_150_000, Timestamp: 1457981393},
	{Name: "dao-fork", Block: 1_920_000, Timestamp: 1469020840},
	{Name: "byzantium", Block: 4_370_000, Timestamp: 1508131331},
	{Name: "constantinople", Block: 7_280_000, Timestamp: 1551383524},
	{Name: "istanbul", Block: 9_069_000, Timestamp: 1575764709},
	{Name: "berlin", Block: 12_244_000, Timestamp: 1618481223},
	{Name: "london", Block: 12_965_000, Timestamp: 1628166822},
	{Name: "merge", Block: MergeBlock, Timestamp: MergeTimestamp},
}

func validateAnchors(anchors []Anchor) error {
	if len(anchors) < 2 {
		return fmt.Errorf("need at least 2 anchors, got %d", len(anchors))
	}
	for i := 1; i < len(anchors); i++ {
		prev, cur := anchors[i-1], anchors[i]
		if cur.Block <= prev.Block || cur.Timestamp <= prev.Timestamp {
			return fmt.Errorf("anchor %q is not strictly after %q", cur.Name, prev.Name)
		}
	}
	last := anchors[len(anchors)-1]
	if last.Block != MergeBlock || last.Timestamp != MergeTimestamp {
		return fmt.Errorf("last anchor must be the merge (%d, %d), got (%d, %d)",
			MergeBlock, MergeTimestamp, last.Block, last.Timestamp)
	}
	return nil
}

// bracketByTime returns the pair of anchors around ts. ts is expected to be
// before the merge timestamp.
func bracketByTime(anchors []Anchor, ts int64) (Anchor, Anchor) {
	if ts < anchors[0].Timestamp {
		return anchors[0], anchors[1]
	}
	for i := len(anchors) - 2; i >= 0; i-- {
		if anchors[i].Timestamp <= ts {
			return anchors[i], anchors[i+1]
		}
	}
	return anchors[0], anchors[1]
}

func bracketByBlock(anchors []Anchor, block uint64) (Anchor, Anchor) {
	if block < anchors[0].Block {
		return anchors[0], anchors[1]
	}
	for i := len(anchors) - 2; i >= 0; i-- {
		if anchors[i].Block <= block {
			return anchors[i], anchors[i+1]
		}
	}
	return anchors[0], anchors[1]
}

// floorDiv rounds towards negative infinity, unlike Go's / operator.
func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
