package pose

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

const (
	//MarkerRadius is the radius of the filled circle drawn on every confident keypoint
	MarkerRadius = 3
	//LimbThickness is the stroke width of skeleton limbs
	LimbThickness = 2
	//DefaultKeypointThreshold is the confidence a keypoint needs to be drawn
	DefaultKeypointThreshold = 0.5
)

var boxCaptionColor = color.RGBA{255, 255, 255, 0}

//DrawSkeleton draws the keypoints of one subject onto img, then the limbs joining them.
//A keypoint is drawn when its confidence is above threshold, a limb when both of its ends are.
//Coordinates are not checked against img bounds, OpenCV clips whatever falls outside.
func DrawSkeleton(img *gocv.Mat, kpts []Keypoint, topo Topology, threshold float64) {
	for i, kp := range kpts {
		if i >= len(topo.KeypointColors) {
			break
		}
		if kp.Conf > threshold {
			gocv.Circle(img, kp.Pixel(), MarkerRadius, topo.KeypointColors[i], -1) //thickness -1 == filled circle
		}
	}

	for j, limb := range topo.Limbs {
		if limb.From < 0 || limb.To < 0 || int(limb.From) >= len(kpts) || int(limb.To) >= len(kpts) {
			continue
		}
		from, to := kpts[limb.From], kpts[limb.To]
		if from.Conf > threshold && to.Conf > threshold {
			gocv.Line(img, from.Pixel(), to.Pixel(), topo.LimbColors[j], LimbThickness)
		}
	}
}

//DrawSubjectBox plots the clipped bounding box of a subject and writes its label and score above it
func DrawSubjectBox(img *gocv.Mat, s Subject, plotColor color.RGBA) {
	rect := s.Box.Rect()
	if rect.Empty() { //fully clipped away, nothing left to mark
		return
	}

	gocv.Rectangle(img, rect, plotColor, 2)

	caption := fmt.Sprintf("%s %.2f", labelName(s.Label), s.Score)
	textOrigin := image.Pt(rect.Min.X, rect.Min.Y-5)
	textSize := gocv.GetTextSize(caption, gocv.FontHersheyPlain, 1, 1)
	background := image.Rect(textOrigin.X, textOrigin.Y-textSize.Y-4, textOrigin.X+textSize.X+4, rect.Min.Y)

	gocv.Rectangle(img, background, plotColor, -1) //thickness -1 == filled rectangle
	gocv.PutText(img, caption, textOrigin, gocv.FontHersheyPlain, 1, boxCaptionColor, 1)
}

func labelName(label int) string {
	if label == 0 {
		return "person"
	}
	return fmt.Sprintf("class %d", label)
}
