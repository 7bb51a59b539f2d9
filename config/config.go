// Package config loads the CenterNet 3D post processing configuration and the
// description of the Model's output tensor dumps from a config directory.
package config

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/swdee/go-mono3d"
	"github.com/swdee/go-mono3d/postprocess"
	"gopkg.in/yaml.v3"
)

// FileName is the configuration file read from a config directory
const FileName = "centernet.yaml"

// Heads is the position of each output head in the Model's tensor list.
// Size may be -1 for Models without a 2D size head.
type Heads struct {
	Heatmap   int `yaml:"heatmap"`
	Depth     int `yaml:"depth"`
	Rotation  int `yaml:"rotation"`
	Dimension int `yaml:"dimension"`
	Size      int `yaml:"size"`
	Offset    int `yaml:"offset"`
}

// Output describes a raw dump of one Model output tensor
type Output struct {
	Name string `yaml:"name"`
	// File is the dump path, relative paths are resolved against the
	// directory the dumps are read from
	File string `yaml:"file"`
	// Dims are the valid NHWC dimensions
	Dims [4]uint32 `yaml:"dims"`
	// AlignedDims are the padded NHWC dimensions, omit when not padded
	AlignedDims [4]uint32 `yaml:"aligned_dims"`
	// Format is nhwc or nchw
	Format string `yaml:"format"`
	// Type is float32, float16, int8, int16 or int32
	Type string `yaml:"type"`
	// Shifts are the per channel fixed point shifts of a shift quantized
	// tensor
	Shifts []uint8 `yaml:"shifts"`
	// ZP and Scale describe an affine quantized tensor
	ZP    int32   `yaml:"zp"`
	Scale float32 `yaml:"scale"`
}

// Config is the content of centernet.yaml.  Omitted fields keep the values
// of Default.
type Config struct {
	ScoreThreshold       float32     `yaml:"score_threshold"`
	ClassScoreThresholds []float32   `yaml:"class_score_thresholds"`
	IoUThreshold         float32     `yaml:"iou_threshold"`
	BEVIoUThreshold      float32     `yaml:"bev_iou_threshold"`
	NmsSize              int         `yaml:"nms_size"`
	UseMultibin          bool        `yaml:"use_multibin"`
	RotationBins         int         `yaml:"rotation_bins"`
	ModelInputWidth      int         `yaml:"model_input_width"`
	ModelInputHeight     int         `yaml:"model_input_height"`
	ModelFocalLength     float32     `yaml:"model_focal_length"`
	CameraFocalLength    float32     `yaml:"camera_focal_length"`
	ImageWidth           int         `yaml:"image_width"`
	ImageHeight          int         `yaml:"image_height"`
	ImageShift           float32     `yaml:"image_shift"`
	Calibration          [][]float64 `yaml:"calibration"`
	PoolKernel           int         `yaml:"pool_kernel"`
	ClassNames           []string    `yaml:"class_names"`
	// ClassNamesFile replaces ClassNames with the labels read from the file,
	// relative paths are resolved against the config directory
	ClassNamesFile  string   `yaml:"class_names_file"`
	Suppress2D      bool     `yaml:"suppress_2d"`
	SuppressBEV     bool     `yaml:"suppress_bev"`
	StandupUpscaled bool     `yaml:"standup_upscaled"`
	Heads           Heads    `yaml:"heads"`
	Outputs         []Output `yaml:"outputs"`
}

// Default returns the configuration of the indoor robot Model
func Default() Config {

	p := postprocess.CenterNet3DIndoorParams()

	calib := make([][]float64, len(p.Calibration))

	for i := range p.Calibration {
		calib[i] = append([]float64(nil), p.Calibration[i][:]...)
	}

	return Config{
		ScoreThreshold:    p.ScoreThreshold,
		IoUThreshold:      p.IoUThreshold,
		BEVIoUThreshold:   p.BEVIoUThreshold,
		NmsSize:           p.MaxObjectNumber,
		UseMultibin:       p.Rotation == postprocess.RotationMultiBin,
		RotationBins:      p.RotationBins,
		ModelInputWidth:   p.ModelInputWidth,
		ModelInputHeight:  p.ModelInputHeight,
		ModelFocalLength:  p.ModelFocalLength,
		CameraFocalLength: p.CameraFocalLength,
		ImageWidth:        p.ImageWidth,
		ImageHeight:       p.ImageHeight,
		ImageShift:        p.ImageShift,
		Calibration:       calib,
		PoolKernel:        p.PoolKernel,
		ClassNames:        append([]string(nil), p.ClassNames...),
		Suppress2D:        p.Suppress2D,
		SuppressBEV:       p.SuppressBEV,
		StandupUpscaled:   p.StandupUpscaled,
		Heads: Heads{
			Heatmap:   p.Heads.Heatmap,
			Depth:     p.Heads.Depth,
			Rotation:  p.Heads.Rotation,
			Dimension: p.Heads.Dimension,
			Size:      p.Heads.Size,
			Offset:    p.Heads.Offset,
		},
	}
}

// Load reads FileName from the config directory
func Load(dir string) (Config, error) {

	file := filepath.Join(dir, FileName)
	data, err := os.ReadFile(file)

	if err != nil {
		return Config{}, errors.Wrapf(err, "error reading config %s", file)
	}

	cfg, err := Parse(data)

	if err != nil {
		return Config{}, errors.Wrapf(err, "error in config %s", file)
	}

	if cfg.ClassNamesFile != "" {
		labels := cfg.ClassNamesFile

		if !filepath.IsAbs(labels) {
			labels = filepath.Join(dir, labels)
		}

		cfg.ClassNames, err = LoadLabels(labels)

		if err != nil {
			return Config{}, errors.Wrapf(err, "error in config %s", file)
		}
	}

	return cfg, nil
}

// Parse decodes a YAML document over the Default configuration.  Unknown
// keys are rejected.
func Parse(data []byte) (Config, error) {

	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	// an empty document leaves the defaults in place
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, errors.Wrap(err, "error decoding yaml")
	}

	if _, err := cfg.Params(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Params converts the configuration into validated post processing
// parameters
func (c Config) Params() (postprocess.CenterNet3DParams, error) {

	p := postprocess.CenterNet3DParams{
		ScoreThreshold:       c.ScoreThreshold,
		ClassScoreThresholds: c.ClassScoreThresholds,
		IoUThreshold:         c.IoUThreshold,
		BEVIoUThreshold:      c.BEVIoUThreshold,
		MaxObjectNumber:      c.NmsSize,
		Rotation:             postprocess.RotationSimple,
		RotationBins:         c.RotationBins,
		ModelInputWidth:      c.ModelInputWidth,
		ModelInputHeight:     c.ModelInputHeight,
		ModelFocalLength:     c.ModelFocalLength,
		CameraFocalLength:    c.CameraFocalLength,
		ImageWidth:           c.ImageWidth,
		ImageHeight:          c.ImageHeight,
		ImageShift:           c.ImageShift,
		PoolKernel:           c.PoolKernel,
		Suppress2D:           c.Suppress2D,
		SuppressBEV:          c.SuppressBEV,
		StandupUpscaled:      c.StandupUpscaled,
		Heads: postprocess.HeadIndex{
			Heatmap:   c.Heads.Heatmap,
			Depth:     c.Heads.Depth,
			Rotation:  c.Heads.Rotation,
			Dimension: c.Heads.Dimension,
			Size:      c.Heads.Size,
			Offset:    c.Heads.Offset,
		},
		ClassNames: c.ClassNames,
	}

	if c.UseMultibin {
		p.Rotation = postprocess.RotationMultiBin
	}

	// a 3x3 intrinsic matrix is accepted with a zero translation column
	if len(c.Calibration) != 3 {
		return p, errors.Wrapf(postprocess.ErrConfig,
			"calibration has %d rows, need 3", len(c.Calibration))
	}

	for i, row := range c.Calibration {
		if len(row) != 3 && len(row) != 4 {
			return p, errors.Wrapf(postprocess.ErrConfig,
				"calibration row %d has %d columns, need 3 or 4", i, len(row))
		}

		copy(p.Calibration[i][:], row)
	}

	if err := p.Validate(); err != nil {
		return p, err
	}

	return p, nil
}

// TensorAttrs returns the attributes of each configured output dump in
// order
func (c Config) TensorAttrs() ([]mono3d.TensorAttr, error) {

	attrs := make([]mono3d.TensorAttr, len(c.Outputs))

	for i, o := range c.Outputs {
		attr, err := o.TensorAttr(uint32(i))

		if err != nil {
			return nil, err
		}

		attrs[i] = attr
	}

	return attrs, nil
}

// ReadTensors loads every configured output dump, resolving relative file
// paths against dir
func (c Config) ReadTensors(dir string) ([]*mono3d.Tensor, error) {

	if len(c.Outputs) == 0 {
		return nil, errors.Wrap(postprocess.ErrConfig, "no outputs configured")
	}

	attrs, err := c.TensorAttrs()

	if err != nil {
		return nil, err
	}

	tensors := make([]*mono3d.Tensor, len(attrs))

	for i, attr := range attrs {
		file := c.Outputs[i].File

		if !filepath.IsAbs(file) {
			file = filepath.Join(dir, file)
		}

		tensors[i], err = mono3d.ReadTensor(attr, file)

		if err != nil {
			return nil, err
		}
	}

	return tensors, nil
}

// TensorAttr converts the output description into tensor attributes
func (o Output) TensorAttr(index uint32) (mono3d.TensorAttr, error) {

	attr := mono3d.TensorAttr{
		Index:       index,
		Name:        o.Name,
		Dims:        o.Dims,
		AlignedDims: o.AlignedDims,
		Shifts:      o.Shifts,
		ZP:          o.ZP,
		Scale:       o.Scale,
	}

	switch strings.ToLower(o.Format) {
	case "", "nhwc":
		attr.Fmt = mono3d.TensorNHWC
	case "nchw":
		attr.Fmt = mono3d.TensorNCHW
	default:
		return attr, errors.Wrapf(postprocess.ErrConfig,
			"output %q has unknown format %q", o.Name, o.Format)
	}

	switch strings.ToLower(o.Type) {
	case "", "float32", "fp32":
		attr.Type = mono3d.TensorFloat32
	case "float16", "fp16":
		attr.Type = mono3d.TensorFloat16
	case "int8":
		attr.Type = mono3d.TensorInt8
	case "int16":
		attr.Type = mono3d.TensorInt16
	case "int32":
		attr.Type = mono3d.TensorInt32
	default:
		return attr, errors.Wrapf(postprocess.ErrConfig,
			"output %q has unknown type %q", o.Name, o.Type)
	}

	switch {
	case len(o.Shifts) > 0:
		attr.QntType = mono3d.TensorQntShift
	case o.Scale != 0:
		attr.QntType = mono3d.TensorQntAffine
	default:
		attr.QntType = mono3d.TensorQntNone
	}

	if err := attr.Validate(); err != nil {
		return attr, errors.Wrapf(err, "output %q", o.Name)
	}

	return attr, nil
}
