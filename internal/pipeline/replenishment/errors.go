package replenishment

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingColumn is returned when an input table lacks a required column.
	ErrMissingColumn = errors.New("missing required column")

	// ErrInvalidConfig is returned by Config.Validate.
	ErrInvalidConfig = errors.New("invalid engine config")

	// ErrNoSales is returned when no sales row survives normalization.
	ErrNoSales = errors.New("no usable sales rows")

	// ErrDivisionByZero is raised inside the allocator and never escapes it.
	ErrDivisionByZero = errors.New("division by zero")
)

// MissingColumnError names the table and the column that could not be found.
type MissingColumnError struct {
	Table   string
	Column  string
	Aliases []string
}

func (e *MissingColumnError) Error() string {
	if len(e.Aliases) > 0 {
		return fmt.Sprintf("%s: table %q has no %s column (looked for %v)", ErrMissingColumn, e.Table, e.Column, e.Aliases)
	}
	return fmt.Sprintf("%s: table %q has no %s column", ErrMissingColumn, e.Table, e.Column)
}

func (e *MissingColumnError) Unwrap() error {
	return ErrMissingColumn
}
