package generator

import (
	"fmt"
	"time"
)

// progressState tracks how much of the range has been processed and derives
// an ETA from the elapsed wall time. It is owned by the single consumer
// goroutine of a run.
type progressState struct {
	processed uint64
	total     uint64
	started   time.Time
}

func newProgressState(total uint64) *progressState {
	return &progressState{total: total, started: time.Now()}
}

func (p *progressState) add(units uint64) {
	p.processed += units
	if p.processed > p.total {
		p.processed = p.total
	}
}

// eta estimates the remaining run time as elapsed * (1/progress - 1),
// formatted the way the progress display expects.
func (p *progressState) eta() string {
	if p.processed == 0 || p.total == 0 {
		return "Calculating..."
	}
	progress := float64(p.processed) / float64(p.total)
	elapsed := time.Since(p.started).Seconds()
	remaining := uint64(elapsed*(1/progress-1) + 0.5)
	return fmt.Sprintf("%d hour %d min %d sec", remaining/3600, (remaining%3600)/60, remaining%60)
}
