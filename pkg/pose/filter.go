package pose

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

//rowPrefix is the number of columns ahead of the first keypoint: x1, y1, x2, y2, objectness, class
const rowPrefix = 6

const (
	colObjectness = 4
	colLabel      = 5
)

//RowWidth returns the number of columns of one inference row carrying numKeypoints keypoints
func RowWidth(numKeypoints int) int {
	return rowPrefix + 3*numKeypoints
}

//FilterDetections keeps the rows of raw whose objectness is strictly above threshold and converts their boxes
//from corner form (x1, y1, x2, y2) to (x1, y1, width, height). Keypoints are copied untouched, in model frame.
//A nil raw matrix stands for an output without rows. No surviving row is not an error: the result is an empty slice.
func FilterDetections(raw *mat.Dense, threshold float64, numKeypoints int) ([]Detection, error) {
	dets := make([]Detection, 0)
	if raw == nil {
		return dets, nil
	}

	rows, cols := raw.Dims()
	if cols != RowWidth(numKeypoints) {
		return nil, fmt.Errorf("FilterDetections: got %d columns, want %d for %d keypoints: %w", cols, RowWidth(numKeypoints), numKeypoints, ErrMalformedOutput)
	}

	for i := 0; i < rows; i++ {
		row := raw.RawRowView(i)
		if !(row[colObjectness] > threshold) { //NaN scores never pass
			continue
		}

		det := Detection{
			Box: BoxXYWH{
				X: row[0],
				Y: row[1],
				W: row[2] - row[0],
				H: row[3] - row[1],
			},
			Score:     row[colObjectness],
			Label:     int(row[colLabel]),
			Keypoints: make([]Keypoint, numKeypoints),
		}
		for k := 0; k < numKeypoints; k++ {
			off := rowPrefix + 3*k
			det.Keypoints[k] = Keypoint{X: row[off], Y: row[off+1], Conf: row[off+2]}
		}
		dets = append(dets, det)
	}

	return dets, nil
}
