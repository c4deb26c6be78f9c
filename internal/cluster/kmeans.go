package cluster

import "math"

// euclidean returns the distance between two vectors, or +Inf on a
// dimensionality mismatch so a stale center can never win a nearest
// lookup.
func euclidean(a, b []float64) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// kmeans groups points around k centers by iterative refinement: assign
// every point to its nearest center, move each center to the mean of its
// members, repeat until assignments stop changing or maxIter passes.
// Seeding is deterministic, spread evenly across the input order. k is
// clamped to the point count; an empty input yields no centers.
func kmeans(points [][]float64, k, maxIter int) (centers [][]float64, assign []int) {
	if len(points) == 0 || k <= 0 {
		return nil, nil
	}
	if k > len(points) {
		k = len(points)
	}

	centers = make([][]float64, k)
	stride := len(points) / k
	for i := 0; i < k; i++ {
		centers[i] = append([]float64(nil), points[i*stride]...)
	}

	assign = make([]int, len(points))
	for i := range assign {
		assign[i] = -1
	}

	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for i, p := range points {
			best, bestDist := 0, math.Inf(1)
			for c, center := range centers {
				if d := euclidean(p, center); d < bestDist {
					best, bestDist = c, d
				}
			}
			if assign[i] != best {
				assign[i] = best
				changed = true
			}
		}
		if !changed {
			break
		}

		sums := make([][]float64, k)
		counts := make([]int, k)
		for i := range sums {
			sums[i] = make([]float64, len(points[0]))
		}
		for i, p := range points {
			c := assign[i]
			counts[c]++
			for d := range p {
				sums[c][d] += p[d]
			}
		}
		for c := range centers {
			if counts[c] == 0 {
				continue // keep the old center for an orphaned cluster
			}
			for d := range sums[c] {
				sums[c][d] /= float64(counts[c])
			}
			centers[c] = sums[c]
		}
	}

	return centers, assign
}
