// Package schedule implements the piecewise-constant mint-rate schedule
// (spec §4.1): a sorted sequence of (end_block, mint_per_block) segments
// and the integral of the step function they define over a block range.
package schedule

import (
	"fmt"
	"sort"

	"github.com/emitlabs/reward-engine/internal/types"
)

// Segment is one piece of the step function: rate(b) == MintPerBlock for
// every block up to and including EndBlock.
type Segment struct {
	EndBlock     uint64      `json:"end_block"`
	MintPerBlock types.U128  `json:"mint_per_block"`
}

// Schedule is a disjoint, EndBlock-ascending, duplicate-free sequence of
// segments. The zero value is a valid empty schedule (rate is 0 everywhere).
type Schedule struct {
	segments []Segment
}

// New builds a Schedule from segments, sorting them and rejecting
// duplicate end blocks so the invariant in spec §3 always holds.
func New(segments []Segment) (*Schedule, error) {
	s := &Schedule{segments: append([]Segment(nil), segments...)}
	if err := s.sort(); err != nil {
		return nil, err
	}
	return s, nil
}

// Set replaces the schedule's segments in place. Master.SetSchedule builds
// a fresh Schedule with New instead.
func (s *Schedule) Set(segments []Segment) error {
	s.segments = append([]Segment(nil), segments...)
	return s.sort()
}

// sort is idempotent and stable on equal keys; it also enforces the
// no-duplicate-end_block invariant the data model requires.
func (s *Schedule) sort() error {
	sort.SliceStable(s.segments, func(i, j int) bool {
		return s.segments[i].EndBlock < s.segments[j].EndBlock
	})
	for i := 1; i < len(s.segments); i++ {
		if s.segments[i].EndBlock == s.segments[i-1].EndBlock {
			return fmt.Errorf("duplicate end_block %d in schedule", s.segments[i].EndBlock)
		}
	}
	return nil
}

// Segments returns a defensive copy of the sorted segments.
func (s *Schedule) Segments() []Segment {
	return append([]Segment(nil), s.segments...)
}

// Integrate returns the total mint between fromBlock (exclusive) and
// toBlock (inclusive). A block equal to a segment's end_block belongs to
// that segment. If fromBlock >= toBlock the result is zero.
func (s *Schedule) Integrate(fromBlock, toBlock uint64) (types.U128, error) {
	if fromBlock >= toBlock {
		return types.ZeroU128(), nil
	}

	total := types.ZeroU128()
	prevEnd := fromBlock
	for _, seg := range s.segments {
		if fromBlock >= seg.EndBlock {
			continue
		}
		spanEnd := seg.EndBlock
		if toBlock < spanEnd {
			spanEnd = toBlock
		}
		if spanEnd <= prevEnd {
			if toBlock <= seg.EndBlock {
				break
			}
			continue
		}
		blocks := spanEnd - prevEnd
		amount, err := types.NewU128(blocks).Mul(seg.MintPerBlock)
		if err != nil {
			return types.ZeroU128(), err
		}
		total, err = total.Add(amount)
		if err != nil {
			return types.ZeroU128(), err
		}
		prevEnd = spanEnd
		if toBlock <= seg.EndBlock {
			break
		}
	}
	return total, nil
}
