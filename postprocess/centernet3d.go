package postprocess

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/swdee/go-mono3d"
	"github.com/swdee/go-mono3d/postprocess/result"
)

// CenterNet3D defines the struct for CenterNet 3D model inference post
// processing.  It starts unconfigured and is configured from the first
// frame's tensors, after which every frame is handed to the resulting
// Decoder.  A failed configuration is retried on the next frame.
type CenterNet3D struct {
	// Params are the Model configuration parameters
	Params CenterNet3DParams
	log    logrus.FieldLogger
	// idGen provides the ID of each detection result
	idGen *result.IDGenerator

	mu      sync.Mutex
	decoder *Decoder
	// lastErr is the last configuration error reported, used to report
	// each distinct failure once
	lastErr string
}

// NewCenterNet3D returns an instance of the CenterNet 3D post processor
func NewCenterNet3D(p CenterNet3DParams) *CenterNet3D {
	return &CenterNet3D{
		Params: p,
		log:    logrus.StandardLogger(),
		idGen:  result.NewIDGenerator(),
	}
}

// SetLogger sets the logger configuration failures are reported to
func (c *CenterNet3D) SetLogger(log logrus.FieldLogger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.log = log
}

// Configure derives the Decoder from the given tensors if that has not
// already happened and returns it
func (c *CenterNet3D) Configure(tensors []*mono3d.Tensor) (*Decoder, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.decoder != nil {
		return c.decoder, nil
	}

	d, err := NewDecoder(c.Params, tensors, c.idGen)

	if err != nil {
		c.reportConfigError(err)
		return nil, err
	}

	c.log.WithFields(logrus.Fields{
		"grid_width":   d.outputWidth,
		"grid_height":  d.outputHeight,
		"classes":      d.numClasses,
		"down_ratio":   d.downRatio,
		"focal_scale":  d.focalLengthScale,
		"output_scale": d.outputScale,
		"rotation":     d.rotation.Mode,
	}).Debug("centernet 3d parameters initialised")

	c.decoder = d
	c.lastErr = ""

	return d, nil
}

// reportConfigError logs a configuration failure once per distinct error
func (c *CenterNet3D) reportConfigError(err error) {

	if err.Error() == c.lastErr {
		return
	}

	c.lastErr = err.Error()

	if errors.Cause(err) == ErrConfig {
		c.log.WithError(err).Warn("centernet 3d configuration rejected")
		return
	}

	c.log.WithError(err).Debug("centernet 3d parameter initialisation failed")
}

// Decoder returns the configured Decoder, or nil if no frame has configured
// one yet
func (c *CenterNet3D) Decoder() *Decoder {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.decoder
}

// PostProcess takes the Model's output tensors for one frame and writes the
// detected 3D boxes into res.  A non nil error means the tensors were
// structurally unusable and res is empty.  Frames with no detections
// return nil and an empty res.
func (c *CenterNet3D) PostProcess(tensors []*mono3d.Tensor,
	res *CenterNet3DResult) error {

	d, err := c.Configure(tensors)

	if err != nil {
		res.Reset()
		return err
	}

	if err := d.PostProcess(tensors, res); err != nil {
		c.mu.Lock()
		log := c.log
		c.mu.Unlock()

		log.WithError(err).Debug("dropping frame")
		return err
	}

	return nil
}
