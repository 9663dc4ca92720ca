// Package segmentation partitions a micrograph into ice-thickness segments.
// The image is divided into a coarse patch grid, the mean density of each
// patch is computed, and the patch means are clustered into a small number
// of groups. The result is a full-resolution segment image where every
// pixel carries the normalized group value of its patch, or NaN where the
// patch density is undefined.
package segmentation

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// maxIterations caps the k-means refinement loop. Patch means are one
// dimensional so convergence is fast; the cap only guards pathological input.
const maxIterations = 50

// IceGroups segments a grayscale micrograph into ice-thickness groups.
//
// The image is split into xPatches by yPatches rectangles. Each patch is
// reduced to its mean density; a NaN pixel poisons its patch, and patches
// with no pixels (more patches than pixels along an axis) are undefined.
// Finite patch means are clustered into at most the requested number of
// segments with deterministic one-dimensional k-means, and each patch is
// assigned its cluster centroid divided by the largest centroid, so values
// fall in [0, 1] for nonnegative images.
//
// The returned grid has the same dimensions as the input; undefined patches
// yield NaN cells. An image with no finite patch mean yields an all-NaN
// segment image rather than an error, matching the "no result" contract the
// labeling pipeline expects from segmentation.
func IceGroups(img [][]float64, xPatches, yPatches, segments int) [][]float64 {
	height := len(img)
	if height == 0 {
		return nil
	}
	width := len(img[0])
	if xPatches < 1 {
		xPatches = 1
	}
	if yPatches < 1 {
		yPatches = 1
	}
	if segments < 1 {
		segments = 1
	}

	// Gather pixels per patch. Pixel (x, y) belongs to the patch at
	// (x*xPatches/width, y*yPatches/height).
	patches := make([][]float64, xPatches*yPatches)
	for y := 0; y < height; y++ {
		py := y * yPatches / height
		for x := 0; x < len(img[y]) && x < width; x++ {
			px := x * xPatches / width
			idx := py*xPatches + px
			patches[idx] = append(patches[idx], img[y][x])
		}
	}

	means := make([]float64, len(patches))
	for i, pixels := range patches {
		if len(pixels) == 0 {
			means[i] = math.NaN()
			continue
		}
		means[i] = stat.Mean(pixels, nil)
	}

	values := patchValues(means, segments)

	seg := make([][]float64, height)
	for y := 0; y < height; y++ {
		seg[y] = make([]float64, width)
		py := y * yPatches / height
		for x := 0; x < width; x++ {
			px := x * xPatches / width
			seg[y][x] = values[py*xPatches+px]
		}
	}
	return seg
}

// patchValues clusters the finite patch means and maps every patch to its
// normalized centroid. Undefined patches stay NaN.
func patchValues(means []float64, segments int) []float64 {
	var finite []float64
	var finiteIdx []int
	for i, m := range means {
		if !math.IsNaN(m) && !math.IsInf(m, 0) {
			finite = append(finite, m)
			finiteIdx = append(finiteIdx, i)
		}
	}

	values := make([]float64, len(means))
	for i := range values {
		values[i] = math.NaN()
	}
	if len(finite) == 0 {
		return values
	}

	assign, centroids := kmeans1D(finite, segments)
	norm := floats.Max(centroids)
	for j, idx := range finiteIdx {
		c := centroids[assign[j]]
		if norm > 0 {
			values[idx] = c / norm
		} else {
			values[idx] = 0
		}
	}
	return values
}

// kmeans1D clusters values into at most k groups. Initial centroids are
// spaced evenly across the value range, making the result deterministic for
// a given input order.
func kmeans1D(values []float64, k int) ([]int, []float64) {
	if k > len(values) {
		k = len(values)
	}
	lo := floats.Min(values)
	hi := floats.Max(values)

	centroids := make([]float64, k)
	for i := range centroids {
		centroids[i] = lo + (hi-lo)*(float64(i)+0.5)/float64(k)
	}

	assign := make([]int, len(values))
	for iter := 0; iter < maxIterations; iter++ {
		changed := false
		for i, v := range values {
			best := 0
			bestDist := math.Abs(v - centroids[0])
			for j := 1; j < k; j++ {
				if d := math.Abs(v - centroids[j]); d < bestDist {
					best = j
					bestDist = d
				}
			}
			if assign[i] != best {
				assign[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		sums := make([]float64, k)
		counts := make([]int, k)
		for i, v := range values {
			sums[assign[i]] += v
			counts[assign[i]]++
		}
		for j := range centroids {
			if counts[j] > 0 {
				centroids[j] = sums[j] / float64(counts[j])
			}
		}
	}
	return assign, centroids
}
