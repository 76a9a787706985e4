package skills

import (
	"fmt"
	"math"
)

// Signal is a recorded multivariate time series. Rows[i] holds the values
// of every column at Time[i]; Time is non-decreasing.
type Signal struct {
	Columns []string
	Time    []float64
	Rows    [][]float64
}

// Len returns the number of samples
func (s Signal) Len() int {
	return len(s.Time)
}

// Validate checks shape and time ordering
func (s Signal) Validate() error {
	if len(s.Rows) != len(s.Time) {
		return fmt.Errorf("%w: %d timestamps but %d rows", ErrBadSignal, len(s.Time), len(s.Rows))
	}
	for i, row := range s.Rows {
		if len(row) != len(s.Columns) {
			return fmt.Errorf("%w: row %d has %d values, want %d", ErrBadSignal, i, len(row), len(s.Columns))
		}
		if math.IsNaN(s.Time[i]) {
			return fmt.Errorf("%w: row %d has a NaN timestamp", ErrBadSignal, i)
		}
		if i > 0 && s.Time[i] < s.Time[i-1] {
			return fmt.Errorf("%w: time goes backwards at row %d", ErrBadSignal, i)
		}
	}
	return nil
}

// ColumnIndex returns the position of a named column
func (s Signal) ColumnIndex(name string) (int, bool) {
	for i, c := range s.Columns {
		if c == name {
			return i, true
		}
	}
	return -1, false
}

// Column returns a copy of one column's values
func (s Signal) Column(name string) ([]float64, error) {
	idx, ok := s.ColumnIndex(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
	}
	out := make([]float64, len(s.Rows))
	for i, row := range s.Rows {
		out[i] = row[idx]
	}
	return out, nil
}

// Window is the slice of a signal covered by one skill instance
type Window struct {
	Instance SkillInstance
	Signal   Signal
}

// Window returns the samples with start <= t < end. A zero-length
// interval selects the samples stamped exactly at start. Rows are shared
// with s, not copied.
func (s Signal) Window(start, end float64) Signal {
	w := Signal{Columns: s.Columns}
	for i, t := range s.Time {
		inside := t >= start && t < end
		if start == end {
			inside = t == start
		}
		if inside {
			w.Time = append(w.Time, t)
			w.Rows = append(w.Rows, s.Rows[i])
		}
	}
	return w
}

// MaxAbs returns the largest absolute value across the named columns, and
// false when no column is named or the signal is empty
func (s Signal) MaxAbs(columns []string) (float64, bool, error) {
	if len(columns) == 0 || s.Len() == 0 {
		return 0, false, nil
	}
	best := 0.0
	for _, name := range columns {
		idx, ok := s.ColumnIndex(name)
		if !ok {
			return 0, false, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
		}
		for _, row := range s.Rows {
			best = math.Max(best, math.Abs(row[idx]))
		}
	}
	return best, true, nil
}
