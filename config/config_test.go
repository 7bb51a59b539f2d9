package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swdee/go-mono3d"
	"github.com/swdee/go-mono3d/postprocess"
)

func TestDefaultMatchesIndoorParams(t *testing.T) {

	p, err := Default().Params()
	require.NoError(t, err)
	assert.Equal(t, postprocess.CenterNet3DIndoorParams(), p)
}

func TestParseEmptyKeepsDefaults(t *testing.T) {

	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParseOverrides(t *testing.T) {

	doc := `
score_threshold: 0.4
class_score_thresholds: [0.6, 0, 0.45]
bev_iou_threshold: 0.3
nms_size: 50
use_multibin: true
rotation_bins: 2
image_shift: 12
suppress_2d: false
standup_upscaled: true
calibration:
  - [700, 0, 960]
  - [0, 700, 540]
  - [0, 0, 1]
class_names: [box]
heads:
  size: -1
  offset: 4
`

	cfg, err := Parse([]byte(doc))
	require.NoError(t, err)

	p, err := cfg.Params()
	require.NoError(t, err)

	assert.Equal(t, float32(0.4), p.ScoreThreshold)
	assert.Equal(t, []float32{0.6, 0, 0.45}, p.ClassScoreThresholds)
	assert.Equal(t, float32(0.3), p.BEVIoUThreshold)
	assert.Equal(t, float32(0.5), p.IoUThreshold, "omitted field keeps default")
	assert.Equal(t, 50, p.MaxObjectNumber)
	assert.Equal(t, postprocess.RotationMultiBin, p.Rotation)
	assert.Equal(t, float32(12), p.ImageShift)
	assert.False(t, p.Suppress2D)
	assert.True(t, p.SuppressBEV)
	assert.True(t, p.StandupUpscaled)
	assert.Equal(t, postprocess.Calibration{
		{700, 0, 960, 0},
		{0, 700, 540, 0},
		{0, 0, 1, 0},
	}, p.Calibration)
	assert.Equal(t, []string{"box"}, p.ClassNames)
	assert.Equal(t, postprocess.HeadIndex{Heatmap: 0, Depth: 1, Rotation: 2,
		Dimension: 3, Size: -1, Offset: 4}, p.Heads)
}

func TestParseErrors(t *testing.T) {

	tests := []struct {
		name   string
		doc    string
		config bool
	}{
		{"unknown key", "score_treshold: 0.4\n", false},
		{"bad type", "nms_size: many\n", false},
		{"threshold range", "score_threshold: 1.5\n", true},
		{"calibration rows", "calibration: [[1, 0, 0, 0]]\n", true},
		{"calibration columns", "calibration: [[1, 0], [0, 1], [0, 0]]\n", true},
		{"even kernel", "pool_kernel: 2\n", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.doc))
			require.Error(t, err)

			if tc.config {
				assert.Equal(t, postprocess.ErrConfig, errors.Cause(err))
			}
		})
	}
}

func TestOutputTensorAttr(t *testing.T) {

	tests := []struct {
		name string
		out  Output
		want mono3d.TensorAttr
		err  bool
	}{
		{
			name: "shift quantized",
			out: Output{Name: "hm", Dims: [4]uint32{1, 32, 60, 3},
				AlignedDims: [4]uint32{1, 32, 64, 4}, Type: "int8",
				Shifts: []uint8{4, 4, 5}},
			want: mono3d.TensorAttr{Index: 1, Name: "hm",
				Dims: [4]uint32{1, 32, 60, 3}, AlignedDims: [4]uint32{1, 32, 64, 4},
				Fmt: mono3d.TensorNHWC, Type: mono3d.TensorInt8,
				QntType: mono3d.TensorQntShift, Shifts: []uint8{4, 4, 5}},
		},
		{
			name: "affine quantized",
			out: Output{Name: "dep", Dims: [4]uint32{1, 32, 60, 1},
				Format: "NCHW", Type: "int16", ZP: 3, Scale: 0.01},
			want: mono3d.TensorAttr{Index: 1, Name: "dep",
				Dims: [4]uint32{1, 32, 60, 1}, Fmt: mono3d.TensorNCHW,
				Type: mono3d.TensorInt16, QntType: mono3d.TensorQntAffine,
				ZP: 3, Scale: 0.01},
		},
		{
			name: "float",
			out:  Output{Name: "rot", Dims: [4]uint32{1, 32, 60, 2}, Type: "fp16"},
			want: mono3d.TensorAttr{Index: 1, Name: "rot",
				Dims: [4]uint32{1, 32, 60, 2}, Fmt: mono3d.TensorNHWC,
				Type: mono3d.TensorFloat16, QntType: mono3d.TensorQntNone},
		},
		{
			name: "unknown type",
			out:  Output{Name: "x", Dims: [4]uint32{1, 1, 1, 1}, Type: "int4"},
			err:  true,
		},
		{
			name: "unknown format",
			out:  Output{Name: "x", Dims: [4]uint32{1, 1, 1, 1}, Format: "nc"},
			err:  true,
		},
		{
			name: "zero dims",
			out:  Output{Name: "x"},
			err:  true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			attr, err := tc.out.TensorAttr(1)

			if tc.err {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, attr)
		})
	}
}

func TestLoadAndReadTensors(t *testing.T) {

	dir := t.TempDir()

	doc := `
nms_size: 10
outputs:
  - name: hm
    file: hm.bin
    dims: [1, 2, 2, 1]
    type: int8
    shifts: [2]
  - name: dep
    file: dumps/dep.bin
    dims: [1, 2, 2, 1]
    type: int8
    zp: 1
    scale: 0.5
`

	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(doc), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hm.bin"), []byte{4, 8, 0, 0xfc}, 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "dumps"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dumps", "dep.bin"), []byte{1, 3, 5, 7}, 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.NmsSize)
	require.Len(t, cfg.Outputs, 2)

	tensors, err := cfg.ReadTensors(dir)
	require.NoError(t, err)
	require.Len(t, tensors, 2)

	assert.Equal(t, float32(2), tensors[0].Value(0, 1, 0))
	assert.Equal(t, float32(-1), tensors[0].Value(1, 1, 0))
	assert.Equal(t, float32(3), tensors[1].Value(1, 1, 0))

	_, err = Load(filepath.Join(dir, "missing"))
	assert.Error(t, err)

	_, err = Default().ReadTensors(dir)
	assert.Equal(t, postprocess.ErrConfig, errors.Cause(err))
}

func TestLoadClassNamesFile(t *testing.T) {

	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName),
		[]byte("class_names_file: labels.txt\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "labels.txt"),
		[]byte("# indoor classes\ncharger\n\n  bin \nshoe\n"), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"charger", "bin", "shoe"}, cfg.ClassNames)

	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName),
		[]byte("class_names_file: missing.txt\n"), 0o644))

	_, err = Load(dir)
	assert.Error(t, err)
}
