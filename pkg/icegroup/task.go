package icegroup

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"icegrouper/internal/models"
	"icegrouper/pkg/imaging"
	"icegrouper/pkg/segmentation"
)

// buildTasks partitions particle rows by micrograph name. Tasks are ordered
// by sorted micrograph name and particles within a task keep table order, so
// the task list is identical run-to-run for the same input. Every row index
// lands in exactly one task.
func buildTasks(names []string, xs, ys []float64) []models.MicrographTask {
	byName := make(map[string][]models.Particle)
	for i, name := range names {
		byName[name] = append(byName[name], models.Particle{Index: i, X: xs[i], Y: ys[i]})
	}

	sorted := make([]string, 0, len(byName))
	for name := range byName {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)

	tasks := make([]models.MicrographTask, len(sorted))
	for i, name := range sorted {
		tasks[i] = models.MicrographTask{
			Position:  i,
			Name:      name,
			Particles: byName[name],
		}
	}
	return tasks
}

// labelMicrograph segments one micrograph and samples the segment image at
// every bound particle's floored pixel coordinate. Particles whose pixel
// falls outside the image or on a non-finite segment cell are omitted from
// the result, leaving their sentinel label in place.
//
// A missing image file is reported via the missing flag and yields an empty
// result; any other load failure is a genuine error and aborts the batch.
func (l *Labeler) labelMicrograph(task models.MicrographTask) (map[int]int, bool, error) {
	path := task.Name
	if l.params.MicrographDir != "" {
		path = filepath.Join(l.params.MicrographDir, filepath.Base(task.Name))
	}

	img, err := imaging.Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, true, nil
		}
		return nil, false, fmt.Errorf("micrograph %s: %w", task.Name, err)
	}

	seg := segmentation.IceGroups(img, l.params.XPatches, l.params.YPatches, l.params.Segments)

	if l.params.SegmentDir != "" {
		segPath := filepath.Join(l.params.SegmentDir, segmentImageName(task.Name))
		if err := imaging.WriteGrayPNG(segPath, seg); err != nil {
			fmt.Printf("Warning: failed to save segment image for %s: %v\n", task.Name, err)
		}
	}

	labels := make(map[int]int)
	for _, p := range task.Particles {
		x := int(math.Floor(p.X))
		y := int(math.Floor(p.Y))
		if y < 0 || y >= len(seg) || x < 0 || x >= len(seg[y]) {
			continue
		}
		v := seg[y][x]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		labels[p.Index] = int(math.Floor(v * labelScale))
	}
	return labels, false, nil
}

// segmentImageName derives the dump file name for a micrograph's segment
// image from the stored micrograph path.
func segmentImageName(micrograph string) string {
	base := filepath.Base(micrograph)
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + "_icegroups.png"
}
