// Package correspondence matches binding sites found independently for
// different mobile species to shared structural locations.
package correspondence

import "fmt"

// Similarity scores the overlap of two sorted residue sets in [0, 1].
type Similarity func(a, b []int) float64

func intersection(a, b []int) int {
	n, i, j := 0, 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			n++
			i++
			j++
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return n
}

// IoU is |A∩B| / |A∪B|.
func IoU(a, b []int) float64 {
	inter := intersection(a, b)
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// Dice is 2|A∩B| / (|A|+|B|).
func Dice(a, b []int) float64 {
	if len(a)+len(b) == 0 {
		return 0
	}
	return 2 * float64(intersection(a, b)) / float64(len(a)+len(b))
}

// OverlapCoefficient is |A∩B| / min(|A|,|B|).
func OverlapCoefficient(a, b []int) float64 {
	m := len(a)
	if len(b) < m {
		m = len(b)
	}
	if m == 0 {
		return 0
	}
	return float64(intersection(a, b)) / float64(m)
}

// PolicyByName resolves "iou", "dice" or "overlap".
func PolicyByName(name string) (Similarity, error) {
	switch name {
	case "", "iou":
		return IoU, nil
	case "dice":
		return Dice, nil
	case "overlap":
		return OverlapCoefficient, nil
	default:
		return nil, fmt.Errorf("unknown overlap policy %q", name)
	}
}
