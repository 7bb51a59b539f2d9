package render

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/swdee/go-mono3d/postprocess"
	"gocv.io/x/gocv"
)

func testBox() postprocess.Box3D {
	box := postprocess.Box3D{X: 0, Y: 0.3, Z: 3, W: 0.6, L: 1, H: 0.6,
		Score: 0.9, ClassLabel: 1}
	box.Corners3D = postprocess.Get3DBboxCorners(box.X, box.Y, box.Z, box.W,
		box.L, box.H, box.R)

	cam, err := postprocess.NewCamera(
		postprocess.CenterNet3DIndoorParams().Calibration, 2, 24)

	if err != nil {
		panic(err)
	}

	cam.ProjectToImage(&box)

	return box
}

func TestBEVStylePoint(t *testing.T) {

	style := DefaultBEVStyle()

	assert.Equal(t, image.Pt(240, 640), style.Point(0, 0))
	assert.Equal(t, image.Pt(240, 560), style.Point(0, 1))
	assert.Equal(t, image.Pt(320, 480), style.Point(1, 2))
	assert.Equal(t, image.Pt(160, 0), style.Point(-1, 8))
}

func TestFontScaled(t *testing.T) {

	f := DefaultFont().Scaled(0.5)

	assert.InDelta(t, 0.35, f.Scale, 1e-9)
	assert.Equal(t, 2, f.LeftPad)
	assert.Equal(t, 3, f.BottomPad)
	assert.Equal(t, 1, f.Thickness)
}

func TestBoxes3D(t *testing.T) {

	img := gocv.NewMatWithSize(1080, 1920, gocv.MatTypeCV8UC3)
	defer img.Close()

	box := testBox()
	Boxes3D(&img, []postprocess.Box3D{box}, []string{"a", "b"}, DefaultFont(), 2)

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)

	assert.Greater(t, gocv.CountNonZero(gray), 0)

	// a wireframe leaves the box centre empty
	centre := box.Corners2DUpscale[0]

	for _, pt := range box.Corners2DUpscale[1:] {
		centre[0] += pt[0]
		centre[1] += pt[1]
	}

	assert.Equal(t, uint8(0), gray.GetUCharAt(int(centre[1]/8), int(centre[0]/8)))
}

func TestBirdsEyeView(t *testing.T) {

	style := DefaultBEVStyle()
	bev := BirdsEyeView([]postprocess.Box3D{testBox()}, nil, DefaultFont(), style)
	defer bev.Close()

	assert.Equal(t, style.Width, bev.Cols())
	assert.Equal(t, style.Height, bev.Rows())

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(bev, &gray, gocv.ColorBGRToGray)

	assert.Greater(t, gocv.CountNonZero(gray), 0)
}
