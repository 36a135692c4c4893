package pose

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"
)

//padBias splits an odd padding so the extra pixel goes to the bottom/right edge.
//It is part of the output geometry and must stay 0.1.
const padBias = 0.1

//DefaultModelSize is the input size of the pose model
const DefaultModelSize = 640

//LetterboxFill is the gray used for the padding bars
var LetterboxFill = color.RGBA{114, 114, 114, 0}

//LetterboxOptions controls how an image is fit into the model input
type LetterboxOptions struct {
	Width   int
	Height  int
	ScaleUp bool //when false images smaller than the target are padded, never enlarged
	Fill    color.RGBA
}

//DefaultLetterboxOptions returns a 640x640 target that allows upscaling
func DefaultLetterboxOptions() LetterboxOptions {
	return LetterboxOptions{Width: DefaultModelSize, Height: DefaultModelSize, ScaleUp: true, Fill: LetterboxFill}
}

//roundHalfEven rounds the way the reference preprocessing does, ties go to the even neighbour
func roundHalfEven(v float64) int {
	return int(math.RoundToEven(v))
}

//Letterbox scales src uniformly to fit opts.Width x opts.Height, centers it and fills the remaining border with opts.Fill.
//src must be a 3 channel image. The returned Mat is always exactly opts.Width x opts.Height and is owned by the caller,
//even when an error is returned; src is not modified.
//The transform holds the unsplit padding, before the padBias split.
func Letterbox(src gocv.Mat, opts LetterboxOptions) (gocv.Mat, LetterboxTransform, error) {
	w0, h0 := src.Cols(), src.Rows()
	if src.Empty() || w0 <= 0 || h0 <= 0 {
		return gocv.NewMat(), LetterboxTransform{}, fmt.Errorf("Letterbox: source is %dx%d: %w", w0, h0, ErrInvalidImage)
	}
	if c := src.Channels(); c != 3 {
		return gocv.NewMat(), LetterboxTransform{}, fmt.Errorf("Letterbox: source has %d channels, want 3: %w", c, ErrInvalidImage)
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return gocv.NewMat(), LetterboxTransform{}, fmt.Errorf("Letterbox: target is %dx%d: %w", opts.Width, opts.Height, ErrInvalidImage)
	}

	ratio := math.Min(float64(opts.Width)/float64(w0), float64(opts.Height)/float64(h0))
	if !opts.ScaleUp {
		ratio = math.Min(ratio, 1.0)
	}

	scaledW, scaledH := roundHalfEven(float64(w0)*ratio), roundHalfEven(float64(h0)*ratio)
	padW := float64(opts.Width-scaledW) / 2
	padH := float64(opts.Height-scaledH) / 2

	scaled := src
	if scaledW != w0 || scaledH != h0 {
		scaled = gocv.NewMat()
		defer scaled.Close()
		gocv.Resize(src, &scaled, image.Pt(scaledW, scaledH), 0, 0, gocv.InterpolationLinear)
	}

	top, bottom := roundHalfEven(padH-padBias), roundHalfEven(padH+padBias)
	left, right := roundHalfEven(padW-padBias), roundHalfEven(padW+padBias)

	dst := gocv.NewMat()
	gocv.CopyMakeBorder(scaled, &dst, top, bottom, left, right, gocv.BorderConstant, opts.Fill)

	return dst, LetterboxTransform{
		Ratio:       ratio,
		PadX:        padW,
		PadY:        padH,
		ModelWidth:  opts.Width,
		ModelHeight: opts.Height,
	}, nil
}
