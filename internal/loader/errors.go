package loader

import (
	"errors"
	"fmt"
)

// ErrForeignKeyNotFound is returned by a Resolver when the natural key has
// no match in the dependency table.
var ErrForeignKeyNotFound = errors.New("foreign key not found")

// ErrConstraintViolation marks insert errors caused by a store-side
// constraint (uniqueness, foreign key, not-null, check). Stores wrap native
// errors with it so the loader can classify failures without knowing the
// driver.
var ErrConstraintViolation = errors.New("constraint violation")

// SourceReadError reports a source file that is missing, unreadable, or whose
// header does not match the contract. It is fatal to the run.
type SourceReadError struct {
	Path string
	Err  error
}

func (e *SourceReadError) Error() string {
	return fmt.Sprintf("failed to read source %s: %v", e.Path, e.Err)
}

func (e *SourceReadError) Unwrap() error { return e.Err }

// ConnectionError reports a store that is unreachable or rejects
// credentials. It is fatal to the run.
type ConnectionError struct {
	Driver string
	Target string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to %s database %s: %v", e.Driver, e.Target, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// TransformSkip reports a row dropped by the Row Transform. The run logs it
// and continues with the next row.
type TransformSkip struct {
	Row    int
	Line   int
	Column string
	Reason string
	Err    error
}

func (e *TransformSkip) Error() string {
	msg := fmt.Sprintf("row %d skipped", e.Row)
	if e.Column != "" {
		msg += fmt.Sprintf(" (column %s)", e.Column)
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TransformSkip) Unwrap() error { return e.Err }

// InsertRowError reports a row the store rejected. The run logs it and
// continues with the next row.
type InsertRowError struct {
	Row int
	Err error
}

func (e *InsertRowError) Error() string {
	return fmt.Sprintf("row %d insert failed: %v", e.Row, e.Err)
}

func (e *InsertRowError) Unwrap() error { return e.Err }

// Constraint reports whether the store rejected the row for a constraint.
func (e *InsertRowError) Constraint() bool {
	return errors.Is(e.Err, ErrConstraintViolation)
}

func skip(raw RawRecord, column, reason string, err error) *TransformSkip {
	return &TransformSkip{
		Row:    raw.Row,
		Line:   raw.Line,
		Column: column,
		Reason: reason,
		Err:    err,
	}
}
