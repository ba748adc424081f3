package embeddings

import "math"

// MaxMarginalRelevance picks up to k candidates that are relevant to query
// while being dissimilar to each other. lambda=1 is pure relevance, lambda=0
// pure diversity. It returns indexes into candidates in selection order.
// Candidates whose similarity cannot be computed are never selected.
func MaxMarginalRelevance(query []float32, candidates [][]float32, k int, lambda float64) []int {
	if k <= 0 || len(candidates) == 0 {
		return nil
	}
	lambda = max(0, min(1, lambda))

	relevance := make([]float64, len(candidates))
	usable := make([]bool, len(candidates))
	for i, c := range candidates {
		sim, err := CosineSimilarity(query, c)
		if err != nil {
			continue
		}
		relevance[i] = float64(sim)
		usable[i] = true
	}

	var selected []int
	taken := make([]bool, len(candidates))
	for len(selected) < k {
		best := -1
		bestScore := math.Inf(-1)

		for i := range candidates {
			if taken[i] || !usable[i] {
				continue
			}

			redundancy := math.Inf(-1)
			for _, j := range selected {
				sim, err := CosineSimilarity(candidates[i], candidates[j])
				if err != nil {
					continue
				}
				redundancy = max(redundancy, float64(sim))
			}
			if len(selected) == 0 || math.IsInf(redundancy, -1) {
				redundancy = 0
			}

			score := lambda*relevance[i] - (1-lambda)*redundancy
			if score > bestScore {
				best, bestScore = i, score
			}
		}

		if best < 0 {
			break
		}
		taken[best] = true
		selected = append(selected, best)
	}

	return selected
}
