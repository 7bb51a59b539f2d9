package postprocess

import (
	"fmt"

	"github.com/chewxy/math32"
)

// NumCorners is the number of corners of a 3D box
const NumCorners = 8

// Corners3D are the camera space (x, y, z) corners of a box.  Indexes 0-3
// are the bottom face and 4-7 the top face, with corner i+4 directly above
// corner i.
type Corners3D [NumCorners][3]float32

// Corners2D are the image plane (x, y) projections of Corners3D in the same
// order
type Corners2D [NumCorners][2]float32

// BoxEdges lists the corner index pairs joined by the 12 edges of a box
var BoxEdges = [12][2]int{
	{0, 1}, {1, 2}, {2, 3}, {3, 0}, // bottom
	{4, 5}, {5, 6}, {6, 7}, {7, 4}, // top
	{0, 4}, {1, 5}, {2, 6}, {3, 7}, // pillars
}

// Box3D is a single decoded object
type Box3D struct {
	// ID is a unique ID assigned to the detection result
	ID int64
	// GridIdx, GridX and GridY locate the heat map cell the box was decoded
	// from, GridIdx = GridY * width + GridX
	GridIdx int
	GridX   int
	GridY   int
	// X, Y, Z is the box centre in camera space, metres
	X, Y, Z float32
	// W, L, H are the box width, length and height, metres
	W, L, H float32
	// D is the decoded depth
	D float32
	// R is the yaw about the camera's vertical axis in (-Pi, Pi]
	R float32
	// Corners3D are the box corners in camera space
	Corners3D Corners3D
	// Corners2D are the corners projected into the Model input resolution
	Corners2D Corners2D
	// Corners2DUpscale are the corners projected into the original camera
	// image resolution
	Corners2DUpscale Corners2D
	// Score is the probability of the heat map peak
	Score float32
	// ClassLabel is the heat map channel the object was found in
	ClassLabel int
}

// String returns the box's attributes formatted as a string
func (b Box3D) String() string {
	return fmt.Sprintf("class=%d score=%.3f xyz=(%.3f, %.3f, %.3f) "+
		"wlh=(%.3f, %.3f, %.3f) r=%.3f", b.ClassLabel, b.Score, b.X, b.Y, b.Z,
		b.W, b.L, b.H, b.R)
}

// BEVFootprint returns the ground plane quadrilateral of the box as (x, z)
// points taken from the bottom face corners
func (b *Box3D) BEVFootprint() [4][2]float32 {
	var fp [4][2]float32

	for i := 0; i < 4; i++ {
		fp[i][0] = b.Corners3D[i][0]
		fp[i][1] = b.Corners3D[i][2]
	}

	return fp
}

// Get3DBboxCorners computes the corners of a box with the given dimensions
// centred at (x, y, z) and rotated by yaw r about the vertical (y) axis.
// Camera y points down so the bottom face sits at y + h/2.
func Get3DBboxCorners(x, y, z, w, l, h, r float32) Corners3D {

	xs := [4]float32{l / 2, l / 2, -l / 2, -l / 2}
	zs := [4]float32{w / 2, -w / 2, -w / 2, w / 2}

	c := math32.Cos(r)
	s := math32.Sin(r)

	var corners Corners3D

	for i := 0; i < 4; i++ {
		rx := c*xs[i] + s*zs[i] + x
		rz := -s*xs[i] + c*zs[i] + z

		corners[i] = [3]float32{rx, y + h/2, rz}
		corners[i+4] = [3]float32{rx, y - h/2, rz}
	}

	return corners
}
