package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
)

// WriteGrayPNG renders a float grid to a 16-bit grayscale PNG, stretching
// the finite value range to full contrast. NaN cells render black. Used to
// dump segment images for visual inspection of a labeling run.
func WriteGrayPNG(path string, grid [][]float64) error {
	height := len(grid)
	if height == 0 {
		return fmt.Errorf("cannot render empty image")
	}
	width := len(grid[0])

	lo := math.Inf(1)
	hi := math.Inf(-1)
	for y := range grid {
		for _, v := range grid[y] {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
	}
	scale := 0.0
	if hi > lo {
		scale = 65535.0 / (hi - lo)
	}

	img := image.NewGray16(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < len(grid[y]) && x < width; x++ {
			v := grid[y][x]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			img.Set(x, y, color.Gray16{Y: uint16((v - lo) * scale)})
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	if err := png.Encode(file, img); err != nil {
		return fmt.Errorf("failed to encode %s: %v", path, err)
	}
	return nil
}
