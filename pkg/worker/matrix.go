package worker

import "github.com/outpost-systems/hivemind/pkg/types"

// matrixCellValue computes the dot product of row `row` of A with column
// `column` of B, using 64-bit signed integer arithmetic with wrapping
// overflow (spec §4.8).
func matrixCellValue(in types.MatrixMultInput, row, column int) int64 {
	a := in.MatrixA.Rows
	b := in.MatrixB.Rows
	var sum int64
	for k := 0; k < len(a[0]); k++ {
		sum += a[row][k] * b[k][column]
	}
	return sum
}

// assembleMatrix places each partial cell at [row][col] in a dense result
// matrix of the given dimensions (spec §4.8, "aggregation placement").
func assembleMatrix(rows, cols int, cells []types.MatrixCell) types.Matrix {
	out := make([][]int64, rows)
	for i := range out {
		out[i] = make([]int64, cols)
	}
	for _, c := range cells {
		if c.Row >= 0 && c.Row < rows && c.Column >= 0 && c.Column < cols {
			out[c.Row][c.Column] = c.Value
		}
	}
	return types.Matrix{Rows: out}
}
