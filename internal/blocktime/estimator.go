// Package blocktime converts between block numbers and unix timestamps
// without asking a node for history. Post-merge conversions are exact on the
// 12 second slot clock; pre-merge values are interpolated between anchors.
package blocktime

import (
	"math"
	"slices"
)

type Estimator struct {
	anchors []Anchor
}

var mainnet = MustNewEstimator(MainnetAnchors)

func NewEstimator(anchors []Anchor) (*Estimator, error) {
	if err := validateAnchors(anchors); err != nil {
		return nil, err
	}
	return &Estimator{anchors: slices.Clone(anchors)}, nil
}

func MustNewEstimator(anchors []Anchor) *Estimator {
	e, err := NewEstimator(anchors)
	if err != nil {
		panic(err)
	}
	return e
}

// Default returns the estimator built from MainnetAnchors.
func Default() *Estimator { return mainnet }

func (e *Estimator) Anchors() []Anchor {
	return slices.Clone(e.anchors)
}

// TimestampToBlock estimates the block that was head at ts. It never fails;
// timestamps before genesis clamp to block 0.
func (e *Estimator) TimestampToBlock(ts int64) uint64 {
	if ts >= MergeTimestamp {
		return MergeBlock + uint64((ts-MergeTimestamp)/SlotSeconds)
	}

	first := e.anchors[0]
	if ts < first.Timestamp {
		return e.extrapolateBack(ts)
	}

	lower, upper := bracketByTime(e.anchors, ts)
	elapsed := ts - lower.Timestamp

	var offset int64
	blockSpan := int64(upper.Block - lower.Block)
	if blockSpan > 0 {
		offset = floorDiv(elapsed*blockSpan, upper.Timestamp-lower.Timestamp)
	} else {
		offset = int64(math.Floor(float64(elapsed) / PreMergeAvgBlockTime))
	}

	est := int64(lower.Block) + offset
	if est < 0 {
		return 0
	}
	return uint64(est)
}

// extrapolateBack handles timestamps before the first anchor using the block
// time of the first anchor pair. Float math keeps far-past inputs from
// overflowing.
func (e *Estimator) extrapolateBack(ts int64) uint64 {
	first, second := e.anchors[0], e.anchors[1]
	blockTime := float64(second.Timestamp-first.Timestamp) / float64(second.Block-first.Block)
	est := float64(first.Block) + math.Floor((float64(ts)-float64(first.Timestamp))/blockTime)
	if est <= 0 {
		return 0
	}
	return uint64(est)
}

// BlockToTimestamp is the inverse of TimestampToBlock.
func (e *Estimator) BlockToTimestamp(block uint64) int64 {
	if block >= MergeBlock {
		slots := block - MergeBlock
		if slots > uint64((math.MaxInt64-MergeTimestamp)/SlotSeconds) {
			return math.MaxInt64
		}
		return MergeTimestamp + int64(slots)*SlotSeconds
	}

	lower, upper := bracketByBlock(e.anchors, block)
	blocks := int64(block) - int64(lower.Block)

	blockSpan := int64(upper.Block - lower.Block)
	if blockSpan > 0 {
		return lower.Timestamp + floorDiv(blocks*(upper.Timestamp-lower.Timestamp), blockSpan)
	}
	return lower.Timestamp + int64(math.Floor(float64(blocks)*PreMergeAvgBlockTime))
}

func TimestampToBlock(ts int64) uint64 { return mainnet.TimestampToBlock(ts) }

func BlockToTimestamp(block uint64) int64 { return mainnet.BlockToTimestamp(block) }

// IsExact reports whether conversions at ts follow the slot clock.
func IsExact(ts int64) bool { return ts >= MergeTimestamp }
