// Package cluster implements density-based clustering of episode embeddings
// for the consolidation pipeline.
//
// DBSCAN is used deliberately: the number of natural patterns in a project is
// unknown up front, and episodes that fit no pattern must stay unclustered
// rather than being forced into the nearest group.
package cluster

import (
	"gonum.org/v1/gonum/floats"
)

// Noise marks points that belong to no cluster.
const Noise = -1

const normEpsilon = 1e-10

// Normalize scales v to unit length in place. Near-zero vectors are guarded
// so degenerate embeddings cannot produce NaNs downstream.
func Normalize(v []float64) {
	norm := floats.Norm(v, 2) + normEpsilon
	floats.Scale(1/norm, v)
}

// NormalizeAll normalizes every vector in place and returns the slice for
// chaining.
func NormalizeAll(vecs [][]float64) [][]float64 {
	for _, v := range vecs {
		Normalize(v)
	}
	return vecs
}

// CosineDistance returns 1 - cosine similarity, in [0, 2] for real vectors.
// Inputs are assumed normalized; zero-norm vectors yield the maximum
// distance so they never cluster with anything.
func CosineDistance(a, b []float64) float64 {
	na := floats.Norm(a, 2)
	nb := floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - floats.Dot(a, b)/(na*nb)
}

// DBSCAN assigns a cluster label to every point, or Noise. eps is the
// cosine distance neighborhood radius and minSamples the density threshold
// for a core point (the point itself counts).
//
// Points are visited in input order and neighborhoods are scanned in input
// order, so the labeling is deterministic for a given input.
func DBSCAN(points [][]float64, eps float64, minSamples int) []int {
	labels := make([]int, len(points))
	for i := range labels {
		labels[i] = Noise
	}

	visited := make([]bool, len(points))
	clusterID := 0

	for i := range points {
		if visited[i] {
			continue
		}
		visited[i] = true

		neighbors := regionQuery(points, i, eps)
		if len(neighbors) < minSamples {
			continue
		}

		// i is a core point: grow a new cluster from it
		labels[i] = clusterID
		expandCluster(points, labels, visited, neighbors, clusterID, eps, minSamples)
		clusterID++
	}

	return labels
}

// expandCluster performs the breadth-first growth of a cluster seeded by a
// core point's neighborhood.
func expandCluster(points [][]float64, labels []int, visited []bool, seeds []int, clusterID int, eps float64, minSamples int) {
	for k := 0; k < len(seeds); k++ {
		j := seeds[k]

		if !visited[j] {
			visited[j] = true
			neighbors := regionQuery(points, j, eps)
			if len(neighbors) >= minSamples {
				// j is also a core point: its neighborhood joins the frontier
				seeds = append(seeds, neighbors...)
			}
		}

		if labels[j] == Noise {
			labels[j] = clusterID
		}
	}
}

// regionQuery returns the indices of all points within eps of points[i],
// including i itself.
func regionQuery(points [][]float64, i int, eps float64) []int {
	var neighbors []int
	for j := range points {
		if CosineDistance(points[i], points[j]) <= eps {
			neighbors = append(neighbors, j)
		}
	}
	return neighbors
}

// Groups converts DBSCAN labels into per-cluster index lists, dropping noise.
// Clusters are returned in label order; indices inside a cluster keep input
// order.
func Groups(labels []int) [][]int {
	max := -1
	for _, l := range labels {
		if l > max {
			max = l
		}
	}
	if max < 0 {
		return nil
	}

	groups := make([][]int, max+1)
	for i, l := range labels {
		if l == Noise {
			continue
		}
		groups[l] = append(groups[l], i)
	}
	return groups
}
