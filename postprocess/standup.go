package postprocess

import (
	"fmt"
)

// Box2D is an axis aligned rectangle enclosing a Box3D's projected corners,
// used as a proxy for image plane NMS
type Box2D struct {
	X1, Y1, X2, Y2 float32
	Score          float32
	Class          int
	// Index is the position of the Box3D this rectangle was derived from
	Index int
}

// Width returns the width of the box
func (b Box2D) Width() float32 {
	return b.X2 - b.X1
}

// Height returns the height of the box
func (b Box2D) Height() float32 {
	return b.Y2 - b.Y1
}

// Area returns the area of the box, zero for degenerate boxes
func (b Box2D) Area() float32 {
	if b.X2 <= b.X1 || b.Y2 <= b.Y1 {
		return 0
	}

	return b.Width() * b.Height()
}

func (b Box2D) String() string {
	return fmt.Sprintf("( x1: %.2f y1: %.2f x2: %.2f y2: %.2f score: %.3f )",
		b.X1, b.Y1, b.X2, b.Y2, b.Score)
}

// ConvertCornerToStandupBox returns for each box the rectangle spanning the
// min and max of its projected corners.  When upscaled is true the
// rectangles are taken from Corners2DUpscale.
func ConvertCornerToStandupBox(boxes []Box3D, upscaled bool) []Box2D {

	out := make([]Box2D, len(boxes))

	for i := range boxes {
		corners := &boxes[i].Corners2D

		if upscaled {
			corners = &boxes[i].Corners2DUpscale
		}

		sb := Box2D{
			X1:    corners[0][0],
			Y1:    corners[0][1],
			X2:    corners[0][0],
			Y2:    corners[0][1],
			Score: boxes[i].Score,
			Class: boxes[i].ClassLabel,
			Index: i,
		}

		for _, pt := range corners[1:] {
			sb.X1 = min(sb.X1, pt[0])
			sb.Y1 = min(sb.Y1, pt[1])
			sb.X2 = max(sb.X2, pt[0])
			sb.Y2 = max(sb.Y2, pt[1])
		}

		out[i] = sb
	}

	return out
}
