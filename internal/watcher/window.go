package watcher

import "fmt"

// BlockRange represents an inclusive block range.
type BlockRange struct {
	From uint64
	To   uint64
}

// NextWindow returns the window starting at start: [start, min(tip, start+step)].
// start must not exceed tip.
func NextWindow(start, tip, step uint64) BlockRange {
	end := tip
	if tip-start > step {
		end = start + step
	}
	return BlockRange{From: start, To: end}
}

// SplitRange splits [from, to] into consecutive windows built by NextWindow.
// Each window ends where the next one starts minus one, so every block is
// visited exactly once in increasing order.
func SplitRange(from, to, step uint64) ([]BlockRange, error) {
	if step == 0 {
		return nil, fmt.Errorf("step must be greater than zero")
	}
	if to < from {
		return nil, fmt.Errorf("to block must be >= from block")
	}

	ranges := make([]BlockRange, 0)
	start := from
	for {
		window := NextWindow(start, to, step)
		ranges = append(ranges, window)
		if window.To == to {
			break
		}
		start = window.To + 1
	}

	return ranges, nil
}
