package pose

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

//Normalization is applied to every pixel as (pixel - Mean) * Scale before the channels are split into planes
type Normalization struct {
	Mean  float64
	Scale float64
}

var (
	//NormalizeUnit maps 0..255 to 0..1
	NormalizeUnit = Normalization{Mean: 0, Scale: 1.0 / 255}
	//NormalizeSymmetric maps 0..255 to -1..1
	NormalizeSymmetric = Normalization{Mean: 127.5, Scale: 1.0 / 127.5}
)

//NormalizationByName resolves the configuration name of a normalization preset
func NormalizationByName(name string) (Normalization, error) {
	switch name {
	case "unit":
		return NormalizeUnit, nil
	case "symmetric":
		return NormalizeSymmetric, nil
	default:
		return Normalization{}, fmt.Errorf("NormalizationByName: unknown normalization '%s', want 'unit' or 'symmetric'", name)
	}
}

//Blob turns a letterboxed image into a 1x3xHxW float32 tensor, channel order is kept as is
func Blob(img gocv.Mat, n Normalization) gocv.Mat {
	mean := gocv.NewScalar(n.Mean, n.Mean, n.Mean, 0)
	return gocv.BlobFromImage(img, n.Scale, image.Pt(img.Cols(), img.Rows()), mean, false, false)
}
