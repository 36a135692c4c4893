package pose

import (
	"image"
	"math"
)

//BoxXYWH is a box given by its top-left corner and its size
type BoxXYWH struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

//Box is a box given by its top-left and bottom-right corners
type Box struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

func (b Box) Width() float64  { return b.X2 - b.X1 }
func (b Box) Height() float64 { return b.Y2 - b.Y1 }

//Rect returns the box rounded to whole pixels
func (b Box) Rect() image.Rectangle {
	return image.Rect(int(math.Round(b.X1)), int(math.Round(b.Y1)), int(math.Round(b.X2)), int(math.Round(b.Y2)))
}

//Detection is one inference row that survived the objectness filter, still in model frame coordinates
type Detection struct {
	Box       BoxXYWH
	Score     float64
	Label     int
	Keypoints []Keypoint
}

//Subject is a detection mapped back to the original image and clipped to it
type Subject struct {
	Box       Box        `json:"box"`
	Score     float64    `json:"score"`
	Label     int        `json:"label"`
	Keypoints []Keypoint `json:"keypoints"`
}

//LetterboxTransform records how an image was fit into the model input
type LetterboxTransform struct {
	Ratio       float64
	PadX        float64
	PadY        float64
	ModelWidth  int
	ModelHeight int
}

//Forward maps a point of the original image into model frame coordinates
func (t LetterboxTransform) Forward(x, y float64) (float64, float64) {
	return x*t.Ratio + t.PadX, y*t.Ratio + t.PadY
}

//Inverse maps a point of the model frame back into original image coordinates
func (t LetterboxTransform) Inverse(x, y float64) (float64, float64) {
	return (x - t.PadX) / t.Ratio, (y - t.PadY) / t.Ratio
}
