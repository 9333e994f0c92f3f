package taste

import (
	"errors"
	"math"
	"math/rand"
)

var errNonFinite = errors.New("non-finite component in input")

// KMeansConfig tunes the clustering run.
type KMeansConfig struct {
	Seed     int64
	Restarts int
	MaxIter  int
	// Tol is relative to the mean per-dimension variance of the input.
	Tol float64
}

// DefaultKMeansConfig returns the defaults used for taste profiles.
func DefaultKMeansConfig() KMeansConfig {
	return KMeansConfig{Seed: 42, Restarts: 10, MaxIter: 300, Tol: 1e-4}
}

// kmeans clusters points into k groups with k-means++ seeding and Lloyd
// iterations, keeping the restart with the lowest inertia. Identical input
// and config always produce identical centroids. Requires 1 <= k <= len(points).
func kmeans(points [][]float32, k int, cfg KMeansConfig) ([][]float32, error) {
	n := len(points)
	if n == 0 || k < 1 || k > n {
		return nil, errors.New("invalid cluster count")
	}
	dim := len(points[0])

	data := make([][]float64, n)
	for i, p := range points {
		row := make([]float64, dim)
		for j, v := range p {
			f := float64(v)
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return nil, errNonFinite
			}
			row[j] = f
		}
		data[i] = row
	}

	restarts := max(cfg.Restarts, 1)
	maxIter := max(cfg.MaxIter, 1)
	tol := cfg.Tol * meanVariance(data)
	rng := rand.New(rand.NewSource(cfg.Seed))

	var best [][]float64
	bestInertia := math.Inf(1)
	for r := 0; r < restarts; r++ {
		centers := seedPlusPlus(data, k, rng)
		centers, inertia := lloyd(data, centers, maxIter, tol)
		if inertia < bestInertia {
			best, bestInertia = centers, inertia
		}
	}
	if best == nil || math.IsNaN(bestInertia) || math.IsInf(bestInertia, 0) {
		return nil, errNonFinite
	}

	out := make([][]float32, k)
	for c, center := range best {
		v := make([]float32, dim)
		for j, x := range center {
			v[j] = float32(x)
			if math.IsNaN(float64(v[j])) || math.IsInf(float64(v[j]), 0) {
				return nil, errNonFinite
			}
		}
		out[c] = v
	}
	return out, nil
}

// seedPlusPlus picks k initial centers, each next one with probability
// proportional to its squared distance from the nearest chosen center.
func seedPlusPlus(data [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(data)
	centers := make([][]float64, 0, k)
	centers = append(centers, clone(data[rng.Intn(n)]))

	d2 := make([]float64, n)
	for i := range data {
		d2[i] = sqDist(data[i], centers[0])
	}

	for len(centers) < k {
		var total float64
		for _, d := range d2 {
			total += d
		}

		next := 0
		if total > 0 {
			target := rng.Float64() * total
			var acc float64
			next = n - 1
			for i, d := range d2 {
				acc += d
				if acc > target {
					next = i
					break
				}
			}
		} else {
			next = rng.Intn(n)
		}

		c := clone(data[next])
		centers = append(centers, c)
		for i := range data {
			if d := sqDist(data[i], c); d < d2[i] {
				d2[i] = d
			}
		}
	}
	return centers
}

// lloyd refines centers until the total squared shift drops to tol or maxIter
// is reached. It returns the final centers and their inertia.
func lloyd(data, centers [][]float64, maxIter int, tol float64) ([][]float64, float64) {
	n, k, dim := len(data), len(centers), len(data[0])
	labels := make([]int, n)
	dists := make([]float64, n)

	for it := 0; it < maxIter; it++ {
		assign(data, centers, labels, dists)

		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, dim)
		}
		for i, p := range data {
			c := labels[i]
			counts[c]++
			for j, x := range p {
				sums[c][j] += x
			}
		}

		reseeded := make(map[int]bool)
		for c := range sums {
			if counts[c] > 0 {
				for j := range sums[c] {
					sums[c][j] /= float64(counts[c])
				}
				continue
			}
			// Empty cluster: move it onto the point worst served by its center.
			far := -1
			for i := range data {
				if reseeded[i] {
					continue
				}
				if far < 0 || dists[i] > dists[far] {
					far = i
				}
			}
			if far < 0 {
				far = 0
			}
			reseeded[far] = true
			sums[c] = clone(data[far])
			dists[far] = 0
		}

		var shift float64
		for c := range centers {
			shift += sqDist(centers[c], sums[c])
		}
		centers = sums
		if shift <= tol {
			break
		}
	}

	assign(data, centers, labels, dists)
	var inertia float64
	for _, d := range dists {
		inertia += d
	}
	return centers, inertia
}

// assign labels every point with its nearest center, lowest index on ties.
func assign(data, centers [][]float64, labels []int, dists []float64) {
	for i, p := range data {
		best, bestD := 0, math.Inf(1)
		for c, center := range centers {
			if d := sqDist(p, center); d < bestD {
				best, bestD = c, d
			}
		}
		labels[i], dists[i] = best, bestD
	}
}

func meanVariance(data [][]float64) float64 {
	n, dim := float64(len(data)), len(data[0])
	if dim == 0 {
		return 0
	}
	var total float64
	for j := 0; j < dim; j++ {
		var sum, sq float64
		for _, p := range data {
			sum += p[j]
			sq += p[j] * p[j]
		}
		mean := sum / n
		total += sq/n - mean*mean
	}
	return math.Max(total/float64(dim), 0)
}

func sqDist(a, b []float64) float64 {
	var s float64
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}

func clone(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
