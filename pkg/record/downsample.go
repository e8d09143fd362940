package record

import "github.com/itohio/peltiator/pkg/peltier"

// Downsample decimates records to at most maxPoints for display. It reuses
// dst when it has enough capacity. The first and last records are always
// kept; a non-positive maxPoints keeps everything.
func Downsample(dst []peltier.Status, records []peltier.Status, maxPoints int) []peltier.Status {
	if len(records) <= maxPoints || maxPoints < 2 {
		n := len(records)
		if maxPoints == 1 && n > 1 {
			records, n = records[n-1:], 1
		}
		if cap(dst) >= n {
			dst = dst[:n]
		} else {
			dst = make([]peltier.Status, n)
		}
		copy(dst, records)
		return dst
	}

	if cap(dst) >= maxPoints {
		dst = dst[:0]
	} else {
		dst = make([]peltier.Status, 0, maxPoints)
	}

	step := float64(len(records)-1) / float64(maxPoints-1)
	for i := range maxPoints {
		dst = append(dst, records[int(float64(i)*step+0.5)])
	}
	return dst
}
