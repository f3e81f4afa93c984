package worker

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/outpost-systems/hivemind/pkg/types"
)

func TestMatrixCellValueAndAssembly(t *testing.T) {
	in := types.MatrixMultInput{
		MatrixA: types.Matrix{Rows: [][]int64{{1, 2}, {3, 4}}},
		MatrixB: types.Matrix{Rows: [][]int64{{5, 6}, {7, 8}}},
	}
	require.NoError(t, in.Validate())

	r, c := in.MatrixA.RowCount(), in.MatrixB.ColCount()
	var cells []types.MatrixCell
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			cells = append(cells, types.MatrixCell{Row: i, Column: j, Value: matrixCellValue(in, i, j)})
		}
	}

	result := assembleMatrix(r, c, cells)
	want := [][]int64{{19, 22}, {43, 50}}
	require.Equal(t, want, result.Rows)
}
