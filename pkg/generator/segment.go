package generator

import "math/bits"

// Segment is one contiguous window of the overall range. Segments are
// disjoint, cover the range exactly, and are each sieved by exactly one
// worker.
type Segment struct {
	Low  uint64
	High uint64
}

// Width returns the number of integers in the segment.
func (s Segment) Width() uint64 {
	return s.High - s.Low + 1
}

// Plan partitions [low, high] into windows of the requested size; the final
// window may be shorter. size must be at least 1.
func Plan(low, high, size uint64) []Segment {
	if size == 0 {
		size = 1
	}
	segments := make([]Segment, 0, estimateSegments(low, high, size))
	for start := low; ; {
		end, carry := bits.Add64(start, size-1, 0)
		if carry != 0 || end > high {
			end = high
		}
		segments = append(segments, Segment{Low: start, High: end})
		if end >= high {
			return segments
		}
		start = end + 1
	}
}

func estimateSegments(low, high, size uint64) int {
	width := high - low + 1
	if width == 0 {
		// The full 64-bit range; the +1 above wrapped.
		width = ^uint64(0)
	}
	n := width / size
	if width%size != 0 {
		n++
	}
	if n > 1<<20 {
		n = 1 << 20
	}
	return int(n)
}
