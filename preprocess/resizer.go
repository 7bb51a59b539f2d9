package preprocess

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Resizer defines the struct used for scaling a camera image to the Model
// input.  The image is scaled to the input width keeping its aspect, then
// yShift rows are cropped from the top and the result cut (or padded) to the
// input height.
type Resizer struct {
	// srcWidth is the width of the source image
	srcWidth int
	// srcHeight is the height of the source image
	srcHeight int
	// destWidth is the width to scale to
	destWidth int
	// destHeight is the height of the Model input
	destHeight int
	// yShift is the number of scaled rows dropped from the top
	yShift int
	// tempMat is a Mat used during the resize process
	tempMat gocv.Mat
	scale   float32
	// resize dimensions
	resizeW int
	resizeH int
	// rows taken from the resized image and padding added below them
	cropH int
	yPad  int
}

// NewResizer returns a resizer used for scaling an image to the needed
// dimensions for input tensor size
func NewResizer(srcWidth, srcHeight, destWidth, destHeight, yShift int) *Resizer {
	r := &Resizer{
		srcWidth:   srcWidth,
		srcHeight:  srcHeight,
		destWidth:  destWidth,
		destHeight: destHeight,
		yShift:     yShift,
		tempMat:    gocv.NewMat(),
	}

	// precalculate scaling dimensions
	r.preCalc()

	return r
}

// Close frees memory allocated during resize process
func (r *Resizer) Close() error {
	return r.tempMat.Close()
}

// preCalc the scaling factors for source and destination Mats
func (r *Resizer) preCalc() {

	r.scale = float32(r.destWidth) / float32(r.srcWidth)
	r.resizeW = r.destWidth
	r.resizeH = int(float32(r.srcHeight)*r.scale + 0.5)

	r.yShift = max(0, min(r.yShift, r.resizeH-1))
	r.cropH = min(r.destHeight, r.resizeH-r.yShift)
	r.yPad = r.destHeight - r.cropH
}

// CropResize scales src to the Model input width, drops the top yShift
// rows and writes destHeight rows into dest.  Color fills any rows missing
// below the image.
func (r *Resizer) CropResize(src gocv.Mat, dest *gocv.Mat, color color.RGBA) {

	gocv.Resize(src, &r.tempMat, image.Pt(r.resizeW, r.resizeH),
		0, 0, gocv.InterpolationArea)

	roi := r.tempMat.Region(image.Rect(0, r.yShift, r.resizeW,
		r.yShift+r.cropH))
	defer roi.Close()

	if r.yPad == 0 {
		roi.CopyTo(dest)
		return
	}

	gocv.CopyMakeBorder(roi, dest, 0, r.yPad, 0, 0, gocv.BorderConstant, color)
}

// ScaleFactor returns the scale factor applied to the source image
func (r *Resizer) ScaleFactor() float32 {
	return r.scale
}

// OutputScale returns the number of source image pixels per Model input
// pixel, the inverse of ScaleFactor
func (r *Resizer) OutputScale() float32 {
	return float32(r.srcWidth) / float32(r.destWidth)
}

// YShift returns the number of scaled rows cropped from the top
func (r *Resizer) YShift() int {
	return r.yShift
}

// YPad returns the number of rows padded below the image
func (r *Resizer) YPad() int {
	return r.yPad
}

// SrcWidth returns the width of the source image
func (r *Resizer) SrcWidth() int {
	return r.srcWidth
}

// SrcHeight returns the height of the source image
func (r *Resizer) SrcHeight() int {
	return r.srcHeight
}
