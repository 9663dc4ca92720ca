// Package icegroup assigns ice-thickness group labels to extracted
// cryo-EM particles. It reads a RELION particle STAR file, segments the
// ice of every referenced micrograph in parallel, samples the segment
// value at each particle's coordinate, and writes the table back out with
// an ibIceGroup column filled in.
package icegroup

import (
	"fmt"
	"os"
	"strconv"

	"icegrouper/internal/models"
	"icegrouper/pkg/star"
)

// IceGroupColumn is the particle-table column the labels are written to.
const IceGroupColumn = "ibIceGroup"

// micrographColumn is the required source-micrograph identifier column.
const micrographColumn = "rlnMicrographName"

// labelScale converts a normalized segment value in [0, 1] to an integer
// ice-group label.
const labelScale = 10000

// Params holds the labeling run configuration.
type Params struct {
	// InputFile is the path to the particle STAR file to label.
	InputFile string

	// OutputFile is the path the augmented STAR file is written to.
	OutputFile string

	// Workers is the size of the worker pool segmenting micrographs.
	Workers int

	// XPatches and YPatches are the segmentation grid patch counts.
	XPatches int
	YPatches int

	// Segments is the number of ice-thickness groups per micrograph.
	Segments int

	// MicrographDir, when set, overrides the directory micrograph images
	// are loaded from. The base name of each stored micrograph path is
	// resolved against it, which covers relocated image trees.
	MicrographDir string

	// SegmentDir, when set, receives one rendered segment image per
	// micrograph for visual inspection of the grouping.
	SegmentDir string

	// Verbose enables staged progress output.
	Verbose bool
}

// Labeler runs the ice-group labeling pipeline in four stages:
// 1. Loading the particle table and validating required columns
// 2. Grouping particle rows by source micrograph
// 3. Segmenting micrographs across the worker pool
// 4. Merging labels into the table and writing the output file
type Labeler struct {
	params *Params

	// doc is the full parsed STAR document; blocks other than the
	// particle table pass through to the output untouched.
	doc       *star.Document
	particles *star.Block

	// tasks holds one unit of work per distinct micrograph, sorted by
	// micrograph name so distribution over workers is reproducible.
	tasks []models.MicrographTask

	stats models.RunStats
}

// NewLabeler creates a labeler for the given parameters.
func NewLabeler(params *Params) *Labeler {
	return &Labeler{params: params}
}

// GetStats returns the run summary. Only meaningful after Process.
func (l *Labeler) GetStats() models.RunStats {
	return l.stats
}

// Process runs the complete labeling pipeline.
func (l *Labeler) Process() error {
	l.logf("Step 1: Loading particle metadata from %s...\n", l.params.InputFile)
	if err := l.load(); err != nil {
		return fmt.Errorf("failed to load particle metadata: %w", err)
	}
	l.logf("Loaded %d particles\n", l.stats.Particles)

	l.logf("Step 2: Grouping particles by micrograph...\n")
	if err := l.group(); err != nil {
		return fmt.Errorf("failed to group particles: %w", err)
	}
	l.logf("Found %d distinct micrographs\n", l.stats.Micrographs)

	l.logf("Step 3: Segmenting micrographs with %d workers...\n", l.params.Workers)
	if l.params.SegmentDir != "" {
		if err := os.MkdirAll(l.params.SegmentDir, 0755); err != nil {
			return fmt.Errorf("failed to create segment image directory: %w", err)
		}
	}
	results, err := l.runTasks()
	if err != nil {
		return fmt.Errorf("failed to segment micrographs: %w", err)
	}

	l.logf("Step 4: Writing labeled particles to %s...\n", l.params.OutputFile)
	if err := l.apply(results); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// load parses the input STAR file, validates the columns the pipeline
// depends on and resets the ice-group column to the sentinel.
func (l *Labeler) load() error {
	doc, err := star.Read(l.params.InputFile)
	if err != nil {
		return err
	}
	particles, err := doc.ParticlesBlock()
	if err != nil {
		return err
	}
	if !particles.HasColumn(micrographColumn) {
		return fmt.Errorf("no micrograph name present: %s: %w", micrographColumn, star.ErrColumnMissing)
	}

	particles.AddColumn(IceGroupColumn, strconv.Itoa(models.SentinelIceGroup))

	l.doc = doc
	l.particles = particles
	l.stats.Particles = len(particles.Rows)
	return nil
}

// group partitions the particle rows into per-micrograph tasks.
func (l *Labeler) group() error {
	names, err := l.particles.StringColumn(micrographColumn)
	if err != nil {
		return err
	}
	xs, err := l.particles.FloatColumn("rlnCoordinateX")
	if err != nil {
		return err
	}
	ys, err := l.particles.FloatColumn("rlnCoordinateY")
	if err != nil {
		return err
	}

	l.tasks = buildTasks(names, xs, ys)
	l.stats.Micrographs = len(l.tasks)
	return nil
}

// apply merges the per-micrograph label maps into the particle table and
// serializes the document. Results arrive ordered by micrograph position;
// each row index appears in at most one map, so application order does not
// affect the output.
func (l *Labeler) apply(results []map[int]int) error {
	for _, labels := range results {
		for idx, group := range labels {
			if err := l.particles.SetCell(idx, IceGroupColumn, strconv.Itoa(group)); err != nil {
				return err
			}
			l.stats.Labeled++
		}
	}
	return star.Write(l.doc, l.params.OutputFile)
}

func (l *Labeler) logf(format string, args ...interface{}) {
	if l.params.Verbose {
		fmt.Printf(format, args...)
	}
}
