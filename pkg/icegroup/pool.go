package icegroup

import (
	"fmt"

	"icegrouper/internal/models"
)

// taskResult carries one micrograph's outcome back from a worker.
type taskResult struct {
	position int
	name     string
	labels   map[int]int
	missing  bool
	err      error
}

// runTasks fans the per-micrograph tasks out over a fixed pool of workers
// and collects one label map per micrograph, ordered by micrograph
// position. The call blocks until every task has finished; the first task
// error aborts the run before any output is written.
func (l *Labeler) runTasks() ([]map[int]int, error) {
	tasks := l.tasks
	workers := l.params.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(tasks) {
		workers = len(tasks)
	}

	// The job channel is preloaded and closed up front so workers drain
	// it and exit on their own, with no feeder goroutine left behind on
	// the error path.
	jobs := make(chan models.MicrographTask, len(tasks))
	for _, task := range tasks {
		jobs <- task
	}
	close(jobs)

	resChan := make(chan taskResult, len(tasks))
	for w := 0; w < workers; w++ {
		go func() {
			for task := range jobs {
				labels, missing, err := l.labelMicrograph(task)
				resChan <- taskResult{
					position: task.Position,
					name:     task.Name,
					labels:   labels,
					missing:  missing,
					err:      err,
				}
			}
		}()
	}

	results := make([]map[int]int, len(tasks))
	for completed := 0; completed < len(tasks); completed++ {
		res := <-resChan
		if res.err != nil {
			return nil, res.err
		}
		if res.missing {
			l.stats.MissingImages++
			l.logf("Warning: micrograph image not found, keeping sentinel labels: %s\n", res.name)
		}
		results[res.position] = res.labels
	}
	return results, nil
}

// Summary renders a short human-readable line for a finished run.
func Summary(stats models.RunStats) string {
	return fmt.Sprintf("%d particles on %d micrographs: %d labeled, %d left at sentinel (%d missing images)",
		stats.Particles, stats.Micrographs, stats.Labeled,
		stats.Particles-stats.Labeled, stats.MissingImages)
}
