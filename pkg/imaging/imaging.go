// Package imaging loads micrograph images into grayscale float grids.
// Micrographs come out of motion correction as MRC stacks, but exported
// pipelines also ship them as TIFF or compressed PNG/JPEG previews, so all
// four are accepted and keyed by file extension.
package imaging

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/tiff"
)

// Load reads the image at path and returns it as a [y][x] float64 grid.
// PNG, JPEG and TIFF pixels are converted to grayscale in the 0-1 range;
// MRC densities are returned as stored, including any NaN cells.
func Load(path string) ([][]float64, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mrc", ".mrcs":
		return ReadMRC(path)
	case ".tif", ".tiff", ".png", ".jpg", ".jpeg":
		return loadStandard(path)
	default:
		return nil, fmt.Errorf("unsupported micrograph format: %s", filepath.Ext(path))
	}
}

func loadStandard(path string) ([][]float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %v", path, err)
	}
	return imageToGrid(img), nil
}

// imageToGrid converts an image to a grayscale float grid using the red
// channel of the 16-bit representation, scaled to the 0-1 range.
func imageToGrid(img image.Image) [][]float64 {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	grid := make([][]float64, height)
	for y := 0; y < height; y++ {
		grid[y] = make([]float64, width)
		for x := 0; x < width; x++ {
			r, _, _, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			grid[y][x] = float64(r) / 65535.0
		}
	}
	return grid
}
