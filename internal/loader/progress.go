package loader

import (
	"github.com/rs/zerolog"
)

// DefaultProgressInterval is how often, in rows, a run logs progress.
const DefaultProgressInterval int64 = 10000

// ProgressReporter tracks and reports load progress.
type ProgressReporter struct {
	log              zerolog.Logger
	currentRow       int64
	progressInterval int64
}

// NewProgressReporter creates a new progress reporter. A non-positive
// interval disables progress events.
func NewProgressReporter(log zerolog.Logger, interval int64) *ProgressReporter {
	return &ProgressReporter{
		log:              log,
		progressInterval: interval,
	}
}

// Update records processed rows and logs if an interval boundary was crossed.
func (p *ProgressReporter) Update(rows int64, report *InsertReport) {
	oldRow := p.currentRow
	p.currentRow += rows

	if p.progressInterval <= 0 {
		return
	}

	// Check if we crossed a progress interval
	if p.currentRow/p.progressInterval > oldRow/p.progressInterval {
		p.log.Info().
			Int64("rows", p.currentRow).
			Int("inserted", report.Inserted).
			Int("skipped", report.Skipped).
			Int("failed", report.Failed).
			Msg("Loading data")
	}
}

// Rows returns the number of rows processed so far.
func (p *ProgressReporter) Rows() int64 {
	return p.currentRow
}
