package pose

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/mat"
)

//solidFrame creates a w x h 3 channel frame filled with the given channel values
func solidFrame(t *testing.T, w, h int, c0, c1, c2 float64) gocv.Mat {
	t.Helper()
	m := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(c0, c1, c2, 0), h, w, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { m.Close() })
	return m
}

//pixel returns the three channel values at (x, y)
func pixel(m gocv.Mat, x, y int) [3]uint8 {
	return [3]uint8{
		m.GetUCharAt(y, x*3),
		m.GetUCharAt(y, x*3+1),
		m.GetUCharAt(y, x*3+2),
	}
}

//drawn returns the channel values gocv writes for c
func drawn(c color.RGBA) [3]uint8 {
	return [3]uint8{c.B, c.G, c.R}
}

//rawRow builds one inference row with every keypoint at (kx, ky) and confidence kconf
func rawRow(x1, y1, x2, y2, score, label, kx, ky, kconf float64) []float64 {
	row := []float64{x1, y1, x2, y2, score, label}
	for i := 0; i < NumKeypoints; i++ {
		row = append(row, kx, ky, kconf)
	}
	return row
}

func rawOutput(t *testing.T, rows ...[]float64) *mat.Dense {
	t.Helper()
	require.NotEmpty(t, rows)
	data := make([]float64, 0, len(rows)*len(rows[0]))
	for _, r := range rows {
		require.Len(t, r, len(rows[0]))
		data = append(data, r...)
	}
	return mat.NewDense(len(rows), len(rows[0]), data)
}
