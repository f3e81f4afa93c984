// Package types holds the data shapes shared across the cluster: matrices
// exchanged between master and worker, and the worker status record.
package types

import (
	"fmt"
	"time"
)

// Matrix is a dense 2-D array of 64-bit signed integers.
type Matrix struct {
	Rows [][]int64 `json:"matrix"`
}

// Rectangular reports whether every row has the same length as the first.
func (m Matrix) Rectangular() bool {
	if len(m.Rows) == 0 {
		return false
	}
	width := len(m.Rows[0])
	for _, row := range m.Rows {
		if len(row) != width {
			return false
		}
	}
	return true
}

func (m Matrix) RowCount() int { return len(m.Rows) }

func (m Matrix) ColCount() int {
	if len(m.Rows) == 0 {
		return 0
	}
	return len(m.Rows[0])
}

// MatrixMultInput is the body of a GET /matrixmult request: two operands
// to be multiplied A x B.
type MatrixMultInput struct {
	MatrixA Matrix `json:"matrix_a"`
	MatrixB Matrix `json:"matrix_b"`
}

// ErrRaggedMatrix is returned when a matrix's rows are not all equal length.
type ErrRaggedMatrix struct{ Which string }

func (e ErrRaggedMatrix) Error() string { return "Mal-formed matrix!" }

// ErrDimensionMismatch is returned when cols(A) != rows(B).
type ErrDimensionMismatch struct {
	ColsA, RowsB int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("Matrices cannot be multiplied: columns of A (%d) must equal rows of B (%d)", e.ColsA, e.RowsB)
}

// Validate checks both operands are rectangular and compatible for
// multiplication, matching the invariants in spec §4.1/§4.5.
func (in MatrixMultInput) Validate() error {
	if !in.MatrixA.Rectangular() {
		return ErrRaggedMatrix{Which: "matrix_a"}
	}
	if !in.MatrixB.Rectangular() {
		return ErrRaggedMatrix{Which: "matrix_b"}
	}
	if in.MatrixA.ColCount() != in.MatrixB.RowCount() {
		return ErrDimensionMismatch{ColsA: in.MatrixA.ColCount(), RowsB: in.MatrixB.RowCount()}
	}
	return nil
}

// MatrixCell is one partial result of a matrix-multiply job: the value at
// (Row, Column) in the output matrix.
type MatrixCell struct {
	Row    int   `json:"row"`
	Column int   `json:"column"`
	Value  int64 `json:"value"`
}

// Thread describes one worker-side goroutine handling requests, keyed by
// its numeric id in the Status record's Threads map.
type Thread struct {
	PID     int    `json:"pid"`
	Busy    bool   `json:"busy"`
	Command string `json:"command"`
}

// Status is a snapshot of a node: uptime, request count, and the busy/idle
// state of each serving goroutine. Exposed as JSON by GET /status.
type Status struct {
	StartTime       time.Time       `json:"start_time"`
	PID             int             `json:"pid"`
	RequestsHandled uint64          `json:"requests_handled"`
	Threads         map[int]*Thread `json:"threads"`
	RunTime         string          `json:"run_time"`
}

// FormatUptime renders a duration as "Nw Nd Nh Nm Ns", omitting any
// zero-valued week, day, hour or minute unit; seconds are always shown
// (a zero duration renders as "0s").
func FormatUptime(d time.Duration) string {
	total := int64(d.Seconds())
	weeks := total / (7 * 24 * 3600)
	total %= 7 * 24 * 3600
	days := total / (24 * 3600)
	total %= 24 * 3600
	hours := total / 3600
	total %= 3600
	minutes := total / 60
	seconds := total % 60

	out := ""
	if weeks > 0 {
		out += fmt.Sprintf("%dw ", weeks)
	}
	if days > 0 {
		out += fmt.Sprintf("%dd ", days)
	}
	if hours > 0 {
		out += fmt.Sprintf("%dh ", hours)
	}
	if minutes > 0 {
		out += fmt.Sprintf("%dm ", minutes)
	}
	out += fmt.Sprintf("%ds", seconds)
	return out
}
