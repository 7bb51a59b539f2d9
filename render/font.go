package render

import (
	"image/color"

	"gocv.io/x/gocv"
)

type Alignment int

const (
	Left   Alignment = 1
	Center Alignment = 2
	Right  Alignment = 3
)

// Font defines the parameters for rendering text on an image using GoCV
type Font struct {
	Face      gocv.HersheyFont
	Scale     float64
	Color     color.RGBA
	Thickness int
	LineType  gocv.LineType
	// Padding to place around text
	LeftPad   int
	RightPad  int
	TopPad    int
	BottomPad int
	// Alignment of the text label to the box's top left corner
	Alignment Alignment
}

// DefaultFont returns default font settings sized for labels on a 1920x1080
// camera image
func DefaultFont() Font {
	return Font{
		Face:      gocv.FontHersheySimplex,
		Scale:     0.7,
		Color:     White,
		Thickness: 2,
		LineType:  gocv.LineAA,
		LeftPad:   4,
		RightPad:  4,
		TopPad:    4,
		BottomPad: 6,
		Alignment: Left,
	}
}

// Scaled returns a copy of the font with its scale and padding multiplied
// by s
func (f Font) Scaled(s float64) Font {
	f.Scale *= s
	f.LeftPad = int(float64(f.LeftPad) * s)
	f.RightPad = int(float64(f.RightPad) * s)
	f.TopPad = int(float64(f.TopPad) * s)
	f.BottomPad = int(float64(f.BottomPad) * s)

	if f.Thickness > 1 {
		f.Thickness = max(1, int(float64(f.Thickness)*s))
	}

	return f
}
