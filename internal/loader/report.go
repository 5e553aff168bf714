//-------------------------------------------------------------------------
//
// pgEdge E-commerce Loader
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package loader

import (
	"fmt"
	"time"
)

// Failure kinds recorded in an InsertReport.
const (
	FailureSkip   = "skip"
	FailureInsert = "insert"
	FailureRead   = "read"
)

// Failure describes one row that did not reach the table.
type Failure struct {
	// Row is the 1-based data row index in file order.
	Row int `json:"row" yaml:"row"`

	// Line is the source line, when known.
	Line int `json:"line,omitempty" yaml:"line,omitempty"`

	Kind   string `json:"kind" yaml:"kind"`
	Column string `json:"column,omitempty" yaml:"column,omitempty"`
	Reason string `json:"reason" yaml:"reason"`
}

// InsertReport summarizes one load run. Inserted + Skipped + Failed always
// equals Attempted.
type InsertReport struct {
	RunID      string    `json:"run_id" yaml:"run_id"`
	Table      string    `json:"table" yaml:"table"`
	Source     string    `json:"source" yaml:"source"`
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`

	Attempted int `json:"attempted" yaml:"attempted"`
	Inserted  int `json:"inserted" yaml:"inserted"`
	Skipped   int `json:"skipped" yaml:"skipped"`
	Failed    int `json:"failed" yaml:"failed"`

	Failures []Failure `json:"failures,omitempty" yaml:"failures,omitempty"`
}

func (r *InsertReport) inserted() {
	r.Attempted++
	r.Inserted++
}

func (r *InsertReport) skipped(s *TransformSkip) {
	r.Attempted++
	r.Skipped++
	r.Failures = append(r.Failures, Failure{
		Row:    s.Row,
		Line:   s.Line,
		Kind:   FailureSkip,
		Column: s.Column,
		Reason: s.Error(),
	})
}

func (r *InsertReport) failed(row, line int, kind string, err error) {
	r.Attempted++
	r.Failed++
	r.Failures = append(r.Failures, Failure{
		Row:    row,
		Line:   line,
		Kind:   kind,
		Reason: err.Error(),
	})
}

// Duration returns how long the run took.
func (r *InsertReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Succeeded reports whether every attempted row was inserted.
func (r *InsertReport) Succeeded() bool {
	return r.Inserted == r.Attempted
}

// Summary returns a one-line description of the run.
func (r *InsertReport) Summary() string {
	return fmt.Sprintf("%s: %d attempted, %d inserted, %d skipped, %d failed in %s",
		r.Table, r.Attempted, r.Inserted, r.Skipped, r.Failed, r.Duration().Round(time.Millisecond))
}
