package models

// SentinelIceGroup marks a particle that received no ice-group label,
// either because its micrograph image was unavailable or because its
// coordinate fell on an undefined segment cell.
const SentinelIceGroup = -1

// Particle is one row of the particle table reduced to the fields the
// labeling pipeline needs. Index is the stable position of the row in the
// input table.
type Particle struct {
	// Index is the zero-based row index in the particle table.
	Index int

	// X and Y are the particle's pixel coordinates on its micrograph,
	// as stored (fractional values are floored when sampling).
	X float64
	Y float64
}

// MicrographTask is one unit of work for the parallel dispatcher: a single
// micrograph plus every particle extracted from it. All data a worker needs
// travels inside the task; workers share nothing mutable.
type MicrographTask struct {
	// Position is the micrograph's index in the sorted micrograph list,
	// used to slot the result back in deterministic order.
	Position int

	// Name is the micrograph identifier from the particle table, usually
	// a path relative to the processing project directory.
	Name string

	// Particles are the rows bound to this micrograph, in table order.
	Particles []Particle
}

// RunStats summarizes a labeling run.
type RunStats struct {
	// Particles is the total number of rows in the particle table.
	Particles int

	// Micrographs is the number of distinct micrographs referenced.
	Micrographs int

	// MissingImages counts micrographs whose image could not be found.
	MissingImages int

	// Labeled counts particles that received a non-sentinel ice group.
	Labeled int
}
