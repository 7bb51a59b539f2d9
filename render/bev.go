package render

import (
	"fmt"
	"image"
	"image/color"

	"github.com/swdee/go-mono3d/postprocess"
	"gocv.io/x/gocv"
)

// BEVStyle defines the parameters used for rendering the bird's eye view
type BEVStyle struct {
	// Width and Height of the canvas in pixels
	Width  int
	Height int
	// Range is the distance in metres in front of the camera shown at the top
	// of the canvas.  The lateral range follows from the canvas aspect.
	Range float32
	// GridStep is the spacing of the distance grid in metres, zero disables
	// the grid
	GridStep      float32
	GridColor     color.RGBA
	LineThickness int
	// CircleRadius is the size of the dot marking each box centre
	CircleRadius int
	Background   color.RGBA
}

// DefaultBEVStyle returns default bird's eye view style settings
func DefaultBEVStyle() BEVStyle {
	return BEVStyle{
		Width:         480,
		Height:        640,
		Range:         8,
		GridStep:      1,
		GridColor:     Gray,
		LineThickness: 2,
		CircleRadius:  3,
		Background:    Black,
	}
}

// pixelsPerMetre returns the canvas scale
func (s BEVStyle) pixelsPerMetre() float32 {
	return float32(s.Height) / s.Range
}

// Point maps a ground plane position (x to the right, z forward) to the
// canvas, with the camera at the bottom centre
func (s BEVStyle) Point(x, z float32) image.Point {
	ppm := s.pixelsPerMetre()

	return image.Pt(
		int(float32(s.Width)/2+x*ppm),
		int(float32(s.Height)-z*ppm),
	)
}

// BirdsEyeView renders the ground plane footprint of each box onto a new
// canvas, with a line from the centre to the front face showing its heading.
// The caller must Close the returned Mat.
func BirdsEyeView(boxes []postprocess.Box3D, classNames []string,
	font Font, style BEVStyle) gocv.Mat {

	img := gocv.NewMatWithSize(style.Height, style.Width, gocv.MatTypeCV8UC3)
	img.SetTo(gocv.NewScalar(float64(style.Background.B),
		float64(style.Background.G), float64(style.Background.R), 255))

	if style.GridStep > 0 {
		for z := style.GridStep; z < style.Range; z += style.GridStep {
			y := style.Point(0, z).Y
			gocv.Line(&img, image.Pt(0, y), image.Pt(style.Width, y),
				style.GridColor, 1)
			gocv.PutTextWithParams(&img, fmt.Sprintf("%.0fm", z),
				image.Pt(2, y-2), font.Face, font.Scaled(0.8).Scale, style.GridColor,
				1, font.LineType, false)
		}
	}

	// camera position
	gocv.Circle(&img, style.Point(0, 0), style.CircleRadius*2, White, -1)

	boxLabels := make([]boxLabel, 0, len(boxes))

	for i := range boxes {
		box := &boxes[i]
		useClr := classColor(box.ClassLabel)
		fp := box.BEVFootprint()

		for j := range fp {
			next := fp[(j+1)%len(fp)]
			gocv.Line(&img, style.Point(fp[j][0], fp[j][1]),
				style.Point(next[0], next[1]), useClr, style.LineThickness)
		}

		// footprint corners 0 and 1 are on the front face
		centre := style.Point(box.X, box.Z)
		front := style.Point((fp[0][0]+fp[1][0])/2, (fp[0][1]+fp[1][1])/2)

		gocv.Line(&img, centre, front, useClr, style.LineThickness)
		gocv.Circle(&img, centre, style.CircleRadius, useClr, -1)

		boxLabels = append(boxLabels, makeLabel(
			className(classNames, box.ClassLabel), centre.X, centre.Y-4,
			useClr, font, style.LineThickness))
	}

	drawLabels(&img, boxLabels, font)

	return img
}
