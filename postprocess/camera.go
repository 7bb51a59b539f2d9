package postprocess

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Camera projects between camera space and the image plane.  The
// calibration is given in original camera image pixels and re-expressed in
// the Model input frame ("native" resolution), which is related to the
// original image by
//
//	x_orig = x * scale
//	y_orig = (y + shift) * scale
type Camera struct {
	// native is the 3x4 projection into Model input pixels
	native *mat.Dense
	// invK is the inverse of the native intrinsic block
	invK *mat.Dense
	// trans is the native translation column
	trans *mat.VecDense
	scale float32
	shift float32
}

// NewCamera returns a Camera for the calibration, where scale is the ratio
// of original image width to Model input width and shift the rows cropped
// from the top of the resized image
func NewCamera(calib Calibration, scale, shift float32) (*Camera, error) {

	if scale <= 0 {
		return nil, errors.Wrapf(ErrConfig, "camera output scale %v must be positive",
			scale)
	}

	p := mat.NewDense(3, 4, nil)

	for i := range calib {
		for j := range calib[i] {
			p.Set(i, j, calib[i][j])
		}
	}

	// maps original image pixels into Model input pixels
	toNative := mat.NewDense(3, 3, []float64{
		1 / float64(scale), 0, 0,
		0, 1 / float64(scale), -float64(shift),
		0, 0, 1,
	})

	native := mat.NewDense(3, 4, nil)
	native.Mul(toNative, p)

	invK := mat.NewDense(3, 3, nil)

	if err := invK.Inverse(native.Slice(0, 3, 0, 3)); err != nil {
		return nil, errors.Wrapf(ErrConfig, "calibration intrinsics not invertible: %v",
			err)
	}

	return &Camera{
		native: native,
		invK:   invK,
		trans:  mat.VecDenseCopyOf(native.ColView(3)),
		scale:  scale,
		shift:  shift,
	}, nil
}

// ProjLocTo3D inverse projects the Model input pixel (cx, cy) observed at
// the given depth into camera space.  The result is the point on the ray
// through (cx, cy) whose projective depth equals depth.
func (c *Camera) ProjLocTo3D(cx, cy, depth float32) [3]float32 {

	d := float64(depth)
	b := mat.NewVecDense(3, []float64{float64(cx) * d, float64(cy) * d, d})
	b.SubVec(b, c.trans)

	var loc mat.VecDense
	loc.MulVec(c.invK, b)

	return [3]float32{float32(loc.AtVec(0)), float32(loc.AtVec(1)),
		float32(loc.AtVec(2))}
}

// Project returns the Model input pixel a camera space point projects to
func (c *Camera) Project(pt [3]float32) [2]float32 {

	hom := mat.NewVecDense(4, []float64{float64(pt[0]), float64(pt[1]),
		float64(pt[2]), 1})

	var img mat.VecDense
	img.MulVec(c.native, hom)

	w := img.AtVec(2)

	return [2]float32{float32(img.AtVec(0) / w), float32(img.AtVec(1) / w)}
}

// Upscale maps a Model input pixel into the original camera image
func (c *Camera) Upscale(pt [2]float32) [2]float32 {
	return [2]float32{pt[0] * c.scale, (pt[1] + c.shift) * c.scale}
}

// ProjectToImage fills the box's Corners2D and Corners2DUpscale from its
// Corners3D.  It is a pure function of the corners and calibration so
// repeated calls give identical results.
func (c *Camera) ProjectToImage(box *Box3D) {
	for i, pt := range box.Corners3D {
		box.Corners2D[i] = c.Project(pt)
		box.Corners2DUpscale[i] = c.Upscale(box.Corners2D[i])
	}
}
