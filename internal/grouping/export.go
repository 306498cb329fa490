package grouping

// SelectExport picks the sampled positions of a group to persist. With all
// set every position is kept. Otherwise it greedily keeps positions at least
// step apart, starting with the first and always ending with the last.
// This spaces frames out but does not guarantee any particular overlap.
func SelectExport(positions []int, step int, all bool) []int {
	if len(positions) == 0 {
		return nil
	}
	if all {
		return append([]int(nil), positions...)
	}
	step = max(step, 1)

	kept := []int{positions[0]}
	for _, p := range positions[1:] {
		if p-kept[len(kept)-1] >= step {
			kept = append(kept, p)
		}
	}
	if last := positions[len(positions)-1]; kept[len(kept)-1] != last {
		kept = append(kept, last)
	}
	return kept
}

// OverlapEstimate approximates the horizontal overlap between consecutive
// exported frames as 1 - |u|*gap/width, where u is the mean per-pair
// displacement and gap the mean position spacing. It is informational.
func OverlapEstimate(selected []int, meanAbsU float64, width int) float64 {
	if len(selected) < 2 || width <= 0 {
		return 1
	}
	span := float64(selected[len(selected)-1]-selected[0]) / float64(len(selected)-1)
	overlap := 1 - meanAbsU*span/float64(width)
	return max(overlap, 0)
}
