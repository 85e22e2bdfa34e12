package engine

import "fmt"

// Segment is an inclusive byte range [Start, End] owned by one part
// download. End is always explicit, including for the last segment, so
// the Range header and the expected length never depend on how a server
// treats open-ended ranges.
type Segment struct {
	Index int
	Start int64
	End   int64
}

func (s Segment) Len() int64 {
	return s.End - s.Start + 1
}

func (s Segment) RangeHeader() string {
	return fmt.Sprintf("bytes=%d-%d", s.Start, s.End)
}

// PlanSegments partitions [0, totalSize) into k contiguous segments of
// totalSize/k bytes, the last one absorbing the remainder. A resource
// smaller than k bytes gets one segment per byte, and an empty resource
// gets no segments.
func PlanSegments(totalSize int64, k int) ([]Segment, error) {
	if k <= 0 || totalSize < 0 {
		return nil, fmt.Errorf("%w: size=%d workers=%d", ErrInvalidPlan, totalSize, k)
	}
	if totalSize == 0 {
		return nil, nil
	}
	if totalSize < int64(k) {
		k = int(totalSize)
	}
	partSize := totalSize / int64(k)
	segments := make([]Segment, 0, k)
	for i := range k {
		start := int64(i) * partSize
		end := start + partSize - 1
		if i == k-1 {
			end = totalSize - 1
		}
		segments = append(segments, Segment{Index: i, Start: start, End: end})
	}
	return segments, nil
}
