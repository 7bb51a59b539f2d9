package preprocess

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"gocv.io/x/gocv"
)

var (
	black = color.RGBA{R: 0, G: 0, B: 0, A: 255}
)

func TestCropResize(t *testing.T) {

	tests := []struct {
		srcWidth      int
		srcHeight     int
		resizeWidth   int
		resizeHeight  int
		shift         int
		expectedShift int
		expectedYPad  int
		expectedScale float32
	}{
		{1920, 1080, 960, 512, 24, 24, 0, 0.5},
		{1280, 720, 960, 512, 24, 24, 0, 0.75},
		{1920, 800, 960, 512, 24, 24, 136, 0.5},
		{1920, 1080, 960, 512, 2000, 539, 511, 0.5},
	}

	for _, tc := range tests {
		img := gocv.NewMatWithSize(tc.srcHeight, tc.srcWidth, gocv.MatTypeCV8UC1)
		resizedImg := gocv.NewMat()

		resizer := NewResizer(tc.srcWidth, tc.srcHeight, tc.resizeWidth,
			tc.resizeHeight, tc.shift)

		resizer.CropResize(img, &resizedImg, black)

		assert.Equal(t, tc.expectedShift, resizer.YShift())
		assert.Equal(t, tc.expectedYPad, resizer.YPad())
		assert.Equal(t, tc.expectedScale, resizer.ScaleFactor())
		assert.Equal(t, tc.resizeWidth, resizedImg.Cols())
		assert.Equal(t, tc.resizeHeight, resizedImg.Rows())

		img.Close()
		resizedImg.Close()
		resizer.Close()
	}
}

func TestCropResizeRowMapping(t *testing.T) {

	img := gocv.NewMatWithSize(1080, 1920, gocv.MatTypeCV8UC1)
	defer img.Close()

	// source rows 68 and 69 become Model input row (68/2 - 24) = 10
	for x := 0; x < 1920; x++ {
		img.SetUCharAt(68, x, 255)
		img.SetUCharAt(69, x, 255)
	}

	resizedImg := gocv.NewMat()
	defer resizedImg.Close()

	resizer := NewResizer(1920, 1080, 960, 512, 24)
	defer resizer.Close()

	resizer.CropResize(img, &resizedImg, black)

	assert.Equal(t, uint8(255), resizedImg.GetUCharAt(10, 480))
	assert.Equal(t, uint8(0), resizedImg.GetUCharAt(9, 480))
	assert.Equal(t, uint8(0), resizedImg.GetUCharAt(11, 480))
	assert.Equal(t, float32(2), resizer.OutputScale())
}
