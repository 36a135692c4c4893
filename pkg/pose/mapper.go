package pose

import (
	"fmt"
	"image"
	"math"
)

//InverseTransform recomputes the letterbox geometry from the padded (model input) size and the original image size alone.
//It does not need the transform Letterbox returned, so it still holds when the padded image was produced elsewhere,
//but it only matches Letterbox's transform when upscaling was allowed or the image was not smaller than the target.
func InverseTransform(padded, orig image.Point) (LetterboxTransform, error) {
	if padded.X <= 0 || padded.Y <= 0 || orig.X <= 0 || orig.Y <= 0 {
		return LetterboxTransform{}, fmt.Errorf("InverseTransform: padded %dx%d, original %dx%d: %w", padded.X, padded.Y, orig.X, orig.Y, ErrInvalidImage)
	}

	gain := math.Min(float64(padded.Y)/float64(orig.Y), float64(padded.X)/float64(orig.X))

	return LetterboxTransform{
		Ratio:       gain,
		PadX:        (float64(padded.X) - float64(orig.X)*gain) / 2,
		PadY:        (float64(padded.Y) - float64(orig.Y)*gain) / 2,
		ModelWidth:  padded.X,
		ModelHeight: padded.Y,
	}, nil
}

//MapDetections projects boxes and keypoints from model frame back into the original image using t,
//then clips every box to the original image bounds. Keypoints are not clipped and confidences pass through.
func MapDetections(dets []Detection, t LetterboxTransform, orig image.Point) ([]Subject, error) {
	if !(t.Ratio > 0) || math.IsInf(t.Ratio, 0) {
		return nil, fmt.Errorf("MapDetections: gain %v: %w", t.Ratio, ErrInvalidImage)
	}
	if orig.X <= 0 || orig.Y <= 0 {
		return nil, fmt.Errorf("MapDetections: original %dx%d: %w", orig.X, orig.Y, ErrInvalidImage)
	}

	subjects := make([]Subject, 0, len(dets))
	for _, d := range dets {
		box := BoxXYWH{
			X: (d.Box.X - t.PadX) / t.Ratio,
			Y: (d.Box.Y - t.PadY) / t.Ratio,
			W: d.Box.W / t.Ratio,
			H: d.Box.H / t.Ratio,
		}

		kpts := make([]Keypoint, len(d.Keypoints))
		for i, k := range d.Keypoints {
			x, y := t.Inverse(k.X, k.Y)
			kpts[i] = Keypoint{X: x, Y: y, Conf: k.Conf}
		}

		subjects = append(subjects, Subject{
			Box:       ClipBox(box, orig),
			Score:     d.Score,
			Label:     d.Label,
			Keypoints: kpts,
		})
	}

	return subjects, nil
}

//ScaleDetections maps model frame detections back into an original image of size orig, recomputing the
//letterbox geometry from the padded size with InverseTransform
func ScaleDetections(dets []Detection, padded, orig image.Point) ([]Subject, error) {
	t, err := InverseTransform(padded, orig)
	if err != nil {
		return nil, err
	}
	return MapDetections(dets, t, orig)
}

//ClipBox clamps a box to [0, bounds.X] x [0, bounds.Y] and returns it in corner form.
//A box lying entirely outside the image collapses onto the nearest edge, never to a negative size.
func ClipBox(b BoxXYWH, bounds image.Point) Box {
	w, h := float64(bounds.X), float64(bounds.Y)

	out := Box{
		X1: clamp(b.X, 0, w),
		Y1: clamp(b.Y, 0, h),
		X2: clamp(b.X+b.W, 0, w),
		Y2: clamp(b.Y+b.H, 0, h),
	}
	if out.X2 < out.X1 {
		out.X2 = out.X1
	}
	if out.Y2 < out.Y1 {
		out.Y2 = out.Y1
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	} else if v > hi {
		return hi
	}
	return v
}
