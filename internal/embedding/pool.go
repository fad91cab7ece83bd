package embedding

// meanPool averages the rows of a [tokens x dims] hidden-state matrix whose
// attention mask is set.
func meanPool(hidden []float32, mask []int64, dims int) []float32 {
	out := make([]float32, dims)
	var n float32
	for tok, m := range mask {
		if m == 0 {
			continue
		}
		start := tok * dims
		if start+dims > len(hidden) {
			break
		}
		for j, v := range hidden[start : start+dims] {
			out[j] += v
		}
		n++
	}
	if n > 0 {
		for j := range out {
			out[j] /= n
		}
	}
	return out
}
