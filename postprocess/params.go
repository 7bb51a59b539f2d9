package postprocess

import (
	"strconv"

	"github.com/pkg/errors"
)

// ErrConfig is returned when the CenterNet3DParams are unusable, such as a
// singular calibration matrix or a threshold outside (0, 1)
var ErrConfig = errors.New("invalid centernet 3d configuration")

// RotationMode selects how the rotation head is decoded into an
// observation angle
type RotationMode int

const (
	// RotationSimple heads hold (sin, cos) of the observation angle
	RotationSimple RotationMode = iota
	// RotationMultiBin heads hold per bin (logit out, logit in, sin, cos)
	// residuals relative to the bin centre
	RotationMultiBin
)

// String returns a readable description of the RotationMode
func (m RotationMode) String() string {
	switch m {
	case RotationSimple:
		return "simple"
	case RotationMultiBin:
		return "multibin"
	default:
		return "unknown"
	}
}

// HeadIndex maps each output head of the model to its position in the
// tensor list passed to PostProcess.  Size is the 2D box size head which the
// 3D decoding does not use, set it to -1 if the model does not output it.
type HeadIndex struct {
	Heatmap   int
	Depth     int
	Rotation  int
	Dimension int
	Size      int
	Offset    int
}

// max returns the highest tensor index referenced
func (h HeadIndex) max() int {
	m := h.Heatmap

	for _, v := range []int{h.Depth, h.Rotation, h.Dimension, h.Size, h.Offset} {
		if v > m {
			m = v
		}
	}

	return m
}

// Calibration is a 3x4 camera projection matrix expressed in the pixel
// coordinates of the original camera image
type Calibration [3][4]float64

// CenterNet3DParams defines the struct containing the CenterNet 3D parameters
// to use for post processing operations
type CenterNet3DParams struct {
	// ScoreThreshold is the minimum probability score required for a heat map
	// peak to be considered an object
	ScoreThreshold float32
	// ClassScoreThresholds optionally overrides ScoreThreshold per class, a
	// value of zero falls back to ScoreThreshold
	ClassScoreThresholds []float32
	// IoUThreshold is the maximum Intersection over Union allowed between two
	// standup boxes in the image plane for both to be kept
	IoUThreshold float32
	// BEVIoUThreshold is the maximum Intersection over Union allowed between
	// two ground plane footprints for both to be kept
	BEVIoUThreshold float32
	// MaxObjectNumber is the maximum number of heat map peaks decoded into
	// 3D boxes per frame
	MaxObjectNumber int
	// Rotation selects the rotation decoding scheme
	Rotation RotationMode
	// RotationBins is the number of bins used by RotationMultiBin
	RotationBins int
	// ModelInputWidth and ModelInputHeight are the pixel dimensions of the
	// image tensor the Model was run on
	ModelInputWidth  int
	ModelInputHeight int
	// ModelFocalLength is the focal length the Model's depth was trained at
	ModelFocalLength float32
	// CameraFocalLength is the focal length of the camera in use, depth is
	// scaled by CameraFocalLength / ModelFocalLength
	CameraFocalLength float32
	// ImageWidth and ImageHeight are the dimensions of the original camera
	// image the calibration is expressed in
	ImageWidth  int
	ImageHeight int
	// ImageShift is the number of rows cropped from the top of the resized
	// camera image to form the Model input
	ImageShift float32
	// Calibration is the camera projection matrix
	Calibration Calibration
	// PoolKernel is the max pooling window size used to find heat map peaks
	PoolKernel int
	// Suppress2D and SuppressBEV enable the image plane and ground plane
	// NMS passes.  When false the pass lets every box through
	Suppress2D  bool
	SuppressBEV bool
	// StandupUpscaled computes image plane NMS on corners projected into the
	// original image resolution rather than the Model input resolution
	StandupUpscaled bool
	// Heads is the position of each output head in the tensor list
	Heads HeadIndex
	// ClassNames are the labels of each heat map channel
	ClassNames []string
}

// CenterNet3DIndoorParams returns an instance of CenterNet3DParams configured
// with default values for the indoor robot Model featuring:
// - Object Classes: 3 (charging base, trash can, slipper)
// - Model input: 960x512 cropped from a 1920x1080 camera image
// - Score Threshold: 0.5
// - IoU and BEV IoU Threshold: 0.5
// - Maximum Object Number: 100
// - Simple (sin, cos) rotation decoding
func CenterNet3DIndoorParams() CenterNet3DParams {
	return CenterNet3DParams{
		ScoreThreshold:    0.5,
		IoUThreshold:      0.5,
		BEVIoUThreshold:   0.5,
		MaxObjectNumber:   100,
		Rotation:          RotationSimple,
		RotationBins:      2,
		ModelInputWidth:   960,
		ModelInputHeight:  512,
		ModelFocalLength:  740.38,
		CameraFocalLength: 740.38,
		ImageWidth:        1920,
		ImageHeight:       1080,
		ImageShift:        24,
		Calibration: Calibration{
			{746.2463540682126, 0.0, 971.6589299894808, 0.0},
			{0.0, 750.2202098997767, 514.5994408429885, 0.0},
			{0.0, 0.0, 1.0, 0.0},
		},
		PoolKernel:  3,
		Suppress2D:  true,
		SuppressBEV: true,
		Heads: HeadIndex{
			Heatmap:   0,
			Depth:     1,
			Rotation:  2,
			Dimension: 3,
			Size:      4,
			Offset:    5,
		},
		ClassNames: []string{"charging_base", "trash_can", "slipper"},
	}
}

// ClassName returns the label of the given class, or its number when no name
// has been configured
func (p CenterNet3DParams) ClassName(class int) string {
	if class >= 0 && class < len(p.ClassNames) {
		return p.ClassNames[class]
	}

	return "class_" + strconv.Itoa(class)
}

// scoreThreshold returns the probability threshold of the given class
func (p CenterNet3DParams) scoreThreshold(class int) float32 {
	if class < len(p.ClassScoreThresholds) && p.ClassScoreThresholds[class] > 0 {
		return p.ClassScoreThresholds[class]
	}

	return p.ScoreThreshold
}

// Validate checks the configuration values independent of any tensor shapes
func (p CenterNet3DParams) Validate() error {

	if p.ScoreThreshold <= 0 || p.ScoreThreshold >= 1 {
		return errors.Wrapf(ErrConfig, "score threshold %v must be in (0, 1)",
			p.ScoreThreshold)
	}

	for i, th := range p.ClassScoreThresholds {
		if th < 0 || th >= 1 {
			return errors.Wrapf(ErrConfig,
				"class %d score threshold %v must be in [0, 1)", i, th)
		}
	}

	if p.IoUThreshold <= 0 || p.IoUThreshold > 1 {
		return errors.Wrapf(ErrConfig, "iou threshold %v must be in (0, 1]",
			p.IoUThreshold)
	}

	if p.BEVIoUThreshold <= 0 || p.BEVIoUThreshold > 1 {
		return errors.Wrapf(ErrConfig, "bev iou threshold %v must be in (0, 1]",
			p.BEVIoUThreshold)
	}

	if p.MaxObjectNumber <= 0 {
		return errors.Wrapf(ErrConfig, "max object number %d must be positive",
			p.MaxObjectNumber)
	}

	if p.Rotation == RotationMultiBin && p.RotationBins < 1 {
		return errors.Wrapf(ErrConfig, "multibin rotation needs at least one bin")
	}

	if p.Rotation != RotationSimple && p.Rotation != RotationMultiBin {
		return errors.Wrapf(ErrConfig, "unknown rotation mode %d", p.Rotation)
	}

	if p.ModelInputWidth <= 0 || p.ModelInputHeight <= 0 {
		return errors.Wrapf(ErrConfig, "model input size %dx%d must be positive",
			p.ModelInputWidth, p.ModelInputHeight)
	}

	if p.ImageWidth <= 0 || p.ImageHeight <= 0 {
		return errors.Wrapf(ErrConfig, "image size %dx%d must be positive",
			p.ImageWidth, p.ImageHeight)
	}

	if p.ModelFocalLength <= 0 || p.CameraFocalLength <= 0 {
		return errors.Wrapf(ErrConfig, "focal lengths must be positive")
	}

	if p.PoolKernel < 1 || p.PoolKernel%2 == 0 {
		return errors.Wrapf(ErrConfig, "pool kernel %d must be odd and positive",
			p.PoolKernel)
	}

	if p.Heads.Heatmap < 0 || p.Heads.Depth < 0 || p.Heads.Rotation < 0 ||
		p.Heads.Dimension < 0 || p.Heads.Offset < 0 {
		return errors.Wrapf(ErrConfig, "head indexes %+v must not be negative",
			p.Heads)
	}

	return nil
}
