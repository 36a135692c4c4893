package pose

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
)

//KeypointID names a keypoint by its position in the COCO keypoint layout
type KeypointID int

const (
	Nose KeypointID = iota
	LeftEye
	RightEye
	LeftEar
	RightEar
	LeftShoulder
	RightShoulder
	LeftElbow
	RightElbow
	LeftWrist
	RightWrist
	LeftHip
	RightHip
	LeftKnee
	RightKnee
	LeftAnkle
	RightAnkle
)

//NumKeypoints is the number of keypoints each detection row carries (COCO layout)
const NumKeypoints = 17

var keypointNames = [NumKeypoints]string{
	"Nose", "LeftEye", "RightEye", "LeftEar", "RightEar",
	"LeftShoulder", "RightShoulder", "LeftElbow", "RightElbow", "LeftWrist", "RightWrist",
	"LeftHip", "RightHip", "LeftKnee", "RightKnee", "LeftAnkle", "RightAnkle",
}

func (id KeypointID) String() string {
	if id < 0 || int(id) >= NumKeypoints {
		return fmt.Sprintf("KeypointID(%d)", int(id))
	}
	return keypointNames[id]
}

//Keypoint is a single (x, y, confidence) triple
type Keypoint struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Conf float64 `json:"conf"`
}

//Pixel returns the keypoint position rounded to the nearest pixel
func (k Keypoint) Pixel() image.Point {
	return image.Pt(int(math.Round(k.X)), int(math.Round(k.Y)))
}

//Limb connects two keypoints of a skeleton
type Limb struct {
	From KeypointID
	To   KeypointID
}

//Topology is a skeleton definition: which keypoints are joined and what color every keypoint and limb is drawn with.
//KeypointColors is indexed by keypoint position, LimbColors by limb position.
type Topology struct {
	Limbs          []Limb
	KeypointColors []color.RGBA
	LimbColors     []color.RGBA
}

//Validate makes sure every limb references a keypoint that has a color and every limb has a color of its own
func (t Topology) Validate() error {
	if len(t.LimbColors) != len(t.Limbs) {
		return fmt.Errorf("Topology: %d limbs but %d limb colors", len(t.Limbs), len(t.LimbColors))
	}
	if len(t.KeypointColors) == 0 {
		return errors.New("Topology: no keypoint colors")
	}
	for i, l := range t.Limbs {
		if l.From < 0 || l.To < 0 || int(l.From) >= len(t.KeypointColors) || int(l.To) >= len(t.KeypointColors) {
			return fmt.Errorf("Topology: limb %d (%v-%v) is out of range for %d keypoints", i, l.From, l.To, len(t.KeypointColors))
		}
	}
	return nil
}

//channels builds a drawing color from raw channel values written in the Mat's own channel order.
//gocv writes B,G,R of a color.RGBA into channels 0,1,2.
func channels(c0, c1, c2 uint8) color.RGBA {
	return color.RGBA{B: c0, G: c1, R: c2}
}

//palette is shared by every skeleton drawn, entries are referenced by position
var palette = [...]color.RGBA{
	channels(255, 128, 0), channels(255, 153, 51), channels(255, 178, 102),
	channels(230, 230, 0), channels(255, 153, 255), channels(153, 204, 255),
	channels(255, 102, 255), channels(255, 51, 255), channels(102, 178, 255),
	channels(51, 153, 255), channels(255, 153, 153), channels(255, 102, 102),
	channels(255, 51, 51), channels(153, 255, 153), channels(102, 255, 102),
	channels(51, 255, 51), channels(0, 255, 0), channels(0, 0, 255), channels(255, 0, 0),
	channels(255, 255, 255),
}

var cocoLimbs = [...]Limb{
	{LeftAnkle, LeftKnee},
	{LeftKnee, LeftHip},
	{RightAnkle, RightKnee},
	{RightKnee, RightHip},
	{LeftHip, RightHip},
	{LeftShoulder, LeftHip},
	{RightShoulder, RightHip},
	{LeftShoulder, RightShoulder},
	{LeftShoulder, LeftElbow},
	{RightShoulder, RightElbow},
	{LeftElbow, LeftWrist},
	{RightElbow, RightWrist},
	{LeftEye, RightEye},
	{Nose, LeftEye},
	{Nose, RightEye},
	{LeftEye, LeftEar},
	{RightEye, RightEar},
	{LeftEar, LeftShoulder},
	{RightEar, RightShoulder},
}

var cocoLimbPalette = [len(cocoLimbs)]int{9, 9, 9, 9, 7, 7, 7, 0, 0, 0, 0, 0, 16, 16, 16, 16, 16, 16, 16}

var cocoKeypointPalette = [NumKeypoints]int{16, 16, 16, 16, 16, 0, 0, 0, 0, 0, 0, 9, 9, 9, 9, 9, 9}

var cocoTopology = buildCOCOTopology()

func buildCOCOTopology() Topology {
	t := Topology{
		Limbs:          make([]Limb, len(cocoLimbs)),
		KeypointColors: make([]color.RGBA, NumKeypoints),
		LimbColors:     make([]color.RGBA, len(cocoLimbs)),
	}
	copy(t.Limbs, cocoLimbs[:])
	for i, p := range cocoKeypointPalette {
		t.KeypointColors[i] = palette[p]
	}
	for i, p := range cocoLimbPalette {
		t.LimbColors[i] = palette[p]
	}
	return t
}

//COCOTopology returns the 17 keypoint / 19 limb COCO skeleton.
//The returned value is a copy, callers may modify it freely.
func COCOTopology() Topology {
	t := Topology{
		Limbs:          make([]Limb, len(cocoTopology.Limbs)),
		KeypointColors: make([]color.RGBA, len(cocoTopology.KeypointColors)),
		LimbColors:     make([]color.RGBA, len(cocoTopology.LimbColors)),
	}
	copy(t.Limbs, cocoTopology.Limbs)
	copy(t.KeypointColors, cocoTopology.KeypointColors)
	copy(t.LimbColors, cocoTopology.LimbColors)
	return t
}
