package postprocess

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/swdee/go-mono3d"
)

func TestCenterNet3DParamsValidate(t *testing.T) {

	assert.NoError(t, CenterNet3DIndoorParams().Validate())

	tests := []struct {
		name   string
		modify func(p *CenterNet3DParams)
	}{
		{"score threshold zero", func(p *CenterNet3DParams) { p.ScoreThreshold = 0 }},
		{"score threshold one", func(p *CenterNet3DParams) { p.ScoreThreshold = 1 }},
		{"class threshold", func(p *CenterNet3DParams) { p.ClassScoreThresholds = []float32{0.4, 1.2} }},
		{"iou threshold", func(p *CenterNet3DParams) { p.IoUThreshold = 0 }},
		{"bev iou threshold", func(p *CenterNet3DParams) { p.BEVIoUThreshold = 1.5 }},
		{"max objects", func(p *CenterNet3DParams) { p.MaxObjectNumber = 0 }},
		{"rotation bins", func(p *CenterNet3DParams) {
			p.Rotation = RotationMultiBin
			p.RotationBins = 0
		}},
		{"rotation mode", func(p *CenterNet3DParams) { p.Rotation = RotationMode(9) }},
		{"model input", func(p *CenterNet3DParams) { p.ModelInputWidth = 0 }},
		{"image size", func(p *CenterNet3DParams) { p.ImageHeight = -1 }},
		{"focal length", func(p *CenterNet3DParams) { p.ModelFocalLength = 0 }},
		{"even kernel", func(p *CenterNet3DParams) { p.PoolKernel = 4 }},
		{"head index", func(p *CenterNet3DParams) { p.Heads.Offset = -1 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := CenterNet3DIndoorParams()
			tc.modify(&p)
			assert.Equal(t, ErrConfig, errors.Cause(p.Validate()))
		})
	}
}

func TestCenterNet3DParamsOptionalSizeHead(t *testing.T) {

	p := CenterNet3DIndoorParams()
	p.Heads = HeadIndex{Heatmap: 0, Depth: 1, Rotation: 2, Dimension: 3,
		Size: -1, Offset: 4}

	assert.NoError(t, p.Validate())
	assert.Equal(t, 4, p.Heads.max())

	full := newFrame(2)
	addObject(full, object{gx: 10, gy: 20, class: 0, score: 0.9, z: 2.0,
		h: 0.5, w: 0.4, l: 0.6, cos: 1})

	// drop the size head
	frame := []*mono3d.Tensor{full[0], full[1], full[2], full[3], full[5]}

	c, _ := quietParser(p)

	var res CenterNet3DResult
	assert.NoError(t, c.PostProcess(frame, &res))
	assert.Len(t, res.Boxes, 1)
}

func TestScoreThreshold(t *testing.T) {

	p := CenterNet3DIndoorParams()
	p.ClassScoreThresholds = []float32{0.3, 0}

	assert.Equal(t, float32(0.3), p.scoreThreshold(0))
	assert.Equal(t, float32(0.5), p.scoreThreshold(1))
	assert.Equal(t, float32(0.5), p.scoreThreshold(2))
}

func TestClassName(t *testing.T) {

	p := CenterNet3DIndoorParams()

	assert.Equal(t, "charging_base", p.ClassName(0))
	assert.Equal(t, "slipper", p.ClassName(2))
	assert.Equal(t, "class_3", p.ClassName(3))
	assert.Equal(t, "class_-1", p.ClassName(-1))
}
