package pose

import (
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"
)

// Bone connects two joints of the drawn skeleton.
type Bone struct {
	From, To Joint
}

// Skeleton lists the bones drawn between detected landmarks.
var Skeleton = []Bone{
	{ShoulderLeft, ShoulderRight},
	{ShoulderLeft, ElbowLeft},
	{ElbowLeft, WristLeft},
	{ShoulderRight, ElbowRight},
	{ElbowRight, WristRight},
	{ShoulderLeft, HipLeft},
	{ShoulderRight, HipRight},
	{HipLeft, HipRight},
	{HipLeft, KneeLeft},
	{KneeLeft, AnkleLeft},
	{AnkleLeft, FootIndexLeft},
	{HipRight, KneeRight},
	{KneeRight, AnkleRight},
	{AnkleRight, FootIndexRight},
}

var (
	boneColor  = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	jointColor = color.RGBA{R: 255, G: 0, B: 0, A: 0}
)

const (
	boneThickness = 2
	jointRadius   = 3
)

// Annotate draws the skeleton of lm onto img. Landmark coordinates are
// normalized to the image size; mid_hip is never drawn.
func Annotate(img *gocv.Mat, lm Landmarks) error {
	w, h := float64(img.Cols()), float64(img.Rows())
	point := func(l Landmark) image.Point {
		return image.Pt(int(math.Round(l.X*w)), int(math.Round(l.Y*h)))
	}

	for _, b := range Skeleton {
		from, okFrom := lm[b.From]
		to, okTo := lm[b.To]
		if !okFrom || !okTo {
			continue
		}
		if err := gocv.Line(img, point(from), point(to), boneColor, boneThickness); err != nil {
			return err
		}
	}
	for j, l := range lm {
		if j == MidHip {
			continue
		}
		if err := gocv.Circle(img, point(l), jointRadius, jointColor, -1); err != nil {
			return err
		}
	}
	return nil
}
