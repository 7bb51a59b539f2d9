package postprocess

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/swdee/go-mono3d"
	"github.com/swdee/go-mono3d/postprocess/result"
)

var (
	// ErrNoTensors is returned when PostProcess is given no tensors
	ErrNoTensors = errors.New("no output tensors")
	// ErrTensorCount is returned when fewer tensors are given than the
	// configured heads reference
	ErrTensorCount = errors.New("unexpected number of output tensors")
)

const (
	// depthEps guards the inverse sigmoid depth decoding
	depthEps = 1e-6
	// number of channels of the fixed size heads
	dimChannels    = 3
	offsetChannels = 2
	sizeChannels   = 2
)

// Decoder holds every constant derived from the Model's output tensor shapes
// and the CenterNet3DParams.  It is created once per Model and never
// modified afterwards, so a single Decoder may serve concurrent callers.
type Decoder struct {
	params CenterNet3DParams
	// outputHeight and outputWidth are the heat map grid dimensions
	outputHeight int
	outputWidth  int
	numClasses   int
	// downRatio is Model input pixels per grid cell
	downRatio float32
	// focalLengthScale rescales decoded depth to the camera in use
	focalLengthScale float32
	// outputScale is original image pixels per Model input pixel
	outputScale float32
	// logScoreThres are the per class thresholds in log-odds space
	logScoreThres []float32
	rotation      RotationDecoder
	camera        *Camera
	// attrs are the tensor attributes seen at configuration, each frame
	// must match them
	attrs   []mono3d.TensorAttr
	idGen   *result.IDGenerator
	scratch sync.Pool
}

// frameScratch holds the working buffers of a single PostProcess call
type frameScratch struct {
	peaks []GridPeak
	boxes []Box3D
	rot   []float32
}

// frameHeads are the regression tensors a box is decoded from
type frameHeads struct {
	depth  *mono3d.Tensor
	rot    *mono3d.Tensor
	dim    *mono3d.Tensor
	offset *mono3d.Tensor
}

// NewDecoder validates the tensors against the expected Model topology and
// derives the per Model constants.  A nil idGen gives the Decoder its own ID
// sequence.
func NewDecoder(p CenterNet3DParams, tensors []*mono3d.Tensor,
	idGen *result.IDGenerator) (*Decoder, error) {

	if err := p.Validate(); err != nil {
		return nil, err
	}

	rot, err := NewRotationDecoder(p.Rotation, p.RotationBins)

	if err != nil {
		return nil, err
	}

	if err := checkTopology(p, rot, tensors); err != nil {
		return nil, err
	}

	hm := tensors[p.Heads.Heatmap]

	d := &Decoder{
		params:           p,
		outputHeight:     hm.Attr.Height(),
		outputWidth:      hm.Attr.Width(),
		numClasses:       hm.Attr.Channels(),
		downRatio:        float32(p.ModelInputHeight) / float32(hm.Attr.Height()),
		focalLengthScale: p.CameraFocalLength / p.ModelFocalLength,
		outputScale:      float32(p.ImageWidth) / float32(p.ModelInputWidth),
		rotation:         rot,
		attrs:            make([]mono3d.TensorAttr, len(tensors)),
		idGen:            idGen,
	}

	if len(p.ClassScoreThresholds) > d.numClasses {
		return nil, errors.Wrapf(ErrConfig,
			"%d class score thresholds given for %d heat map classes",
			len(p.ClassScoreThresholds), d.numClasses)
	}

	d.camera, err = NewCamera(p.Calibration, d.outputScale, p.ImageShift)

	if err != nil {
		return nil, err
	}

	d.logScoreThres = make([]float32, d.numClasses)

	for c := range d.logScoreThres {
		d.logScoreThres[c] = unsigmoid(p.scoreThreshold(c))
	}

	for i, t := range tensors {
		if t != nil {
			d.attrs[i] = t.Attr
		}
	}

	if d.idGen == nil {
		d.idGen = result.NewIDGenerator()
	}

	d.scratch.New = func() any {
		return &frameScratch{
			peaks: make([]GridPeak, 0, p.MaxObjectNumber),
			boxes: make([]Box3D, 0, p.MaxObjectNumber),
			rot:   make([]float32, rot.Channels()),
		}
	}

	return d, nil
}

// checkTopology verifies the tensor list holds every configured head with
// the channel counts the decoding needs and a common grid size
func checkTopology(p CenterNet3DParams, rot RotationDecoder,
	tensors []*mono3d.Tensor) error {

	if len(tensors) == 0 {
		return ErrNoTensors
	}

	if len(tensors) <= p.Heads.max() {
		return errors.Wrapf(ErrTensorCount, "got %d tensors, heads need %d",
			len(tensors), p.Heads.max()+1)
	}

	heads := []struct {
		name     string
		idx      int
		channels int
	}{
		{"heatmap", p.Heads.Heatmap, 1},
		{"depth", p.Heads.Depth, 1},
		{"rotation", p.Heads.Rotation, rot.Channels()},
		{"dimension", p.Heads.Dimension, dimChannels},
		{"size", p.Heads.Size, sizeChannels},
		{"offset", p.Heads.Offset, offsetChannels},
	}

	hm := tensors[p.Heads.Heatmap]

	for _, h := range heads {
		if h.idx < 0 {
			// optional head not output by this Model
			continue
		}

		t := tensors[h.idx]

		if t == nil {
			return errors.Wrapf(ErrTensorCount, "%s tensor %d is missing",
				h.name, h.idx)
		}

		if err := t.Validate(); err != nil {
			return errors.Wrapf(err, "%s head", h.name)
		}

		if t.Attr.Channels() < h.channels {
			return errors.Wrapf(mono3d.ErrTensorShape,
				"%s head has %d channels, need %d", h.name, t.Attr.Channels(),
				h.channels)
		}

		if h.name == "rotation" && t.Attr.Channels() != h.channels {
			return errors.Wrapf(mono3d.ErrTensorShape,
				"rotation head has %d channels, %s decoding needs %d",
				t.Attr.Channels(), rot.Mode, h.channels)
		}

		if t.Attr.Height() != hm.Attr.Height() || t.Attr.Width() != hm.Attr.Width() {
			return errors.Wrapf(mono3d.ErrTensorShape,
				"%s head grid %dx%d differs from heat map %dx%d", h.name,
				t.Attr.Width(), t.Attr.Height(), hm.Attr.Width(), hm.Attr.Height())
		}
	}

	return nil
}

// checkFrame verifies a frame's tensors have the shapes seen at
// configuration
func (d *Decoder) checkFrame(tensors []*mono3d.Tensor) error {

	if len(tensors) == 0 {
		return ErrNoTensors
	}

	if len(tensors) != len(d.attrs) {
		return errors.Wrapf(ErrTensorCount, "got %d tensors, configured with %d",
			len(tensors), len(d.attrs))
	}

	for _, idx := range []int{d.params.Heads.Heatmap, d.params.Heads.Depth,
		d.params.Heads.Rotation, d.params.Heads.Dimension, d.params.Heads.Offset} {

		t := tensors[idx]

		if t == nil {
			return errors.Wrapf(ErrTensorCount, "tensor %d is missing", idx)
		}

		want := d.attrs[idx]

		if t.Attr.Dims != want.Dims || t.Attr.AlignedDims != want.AlignedDims ||
			t.Attr.Type != want.Type || t.Attr.Fmt != want.Fmt {
			return errors.Wrapf(mono3d.ErrTensorShape,
				"tensor %d changed shape since configuration: %s", idx, t.Attr)
		}

		if err := t.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// OutputSize returns the heat map grid width and height
func (d *Decoder) OutputSize() (width, height int) {
	return d.outputWidth, d.outputHeight
}

// DownRatio returns the number of Model input pixels per grid cell
func (d *Decoder) DownRatio() float32 {
	return d.downRatio
}

// FocalLengthScale returns the camera to Model focal length ratio
func (d *Decoder) FocalLengthScale() float32 {
	return d.focalLengthScale
}

// LogScoreThreshold returns the log-odds score threshold of a class
func (d *Decoder) LogScoreThreshold(class int) float32 {
	return d.logScoreThres[class]
}

// Camera returns the camera used for projection
func (d *Decoder) Camera() *Camera {
	return d.camera
}

// Params returns the parameters the Decoder was configured with
func (d *Decoder) Params() CenterNet3DParams {
	return d.params
}

// PostProcess decodes one frame's tensors into res.  res is reset first and
// left empty when an error is returned.
func (d *Decoder) PostProcess(tensors []*mono3d.Tensor,
	res *CenterNet3DResult) error {

	res.Reset()

	if err := d.checkFrame(tensors); err != nil {
		return err
	}

	s := d.scratch.Get().(*frameScratch)
	defer d.scratch.Put(s)

	s.peaks = s.peaks[:0]
	s.boxes = s.boxes[:0]

	hm := tensors[d.params.Heads.Heatmap]

	for c := 0; c < d.numClasses; c++ {
		s.peaks = MaxPoolingRefine(s.peaks, hm, c, d.params.PoolKernel,
			d.logScoreThres[c])
	}

	if len(s.peaks) == 0 {
		return nil
	}

	sortPeaks(s.peaks)

	if len(s.peaks) > d.params.MaxObjectNumber {
		s.peaks = s.peaks[:d.params.MaxObjectNumber]
	}

	heads := frameHeads{
		depth:  tensors[d.params.Heads.Depth],
		rot:    tensors[d.params.Heads.Rotation],
		dim:    tensors[d.params.Heads.Dimension],
		offset: tensors[d.params.Heads.Offset],
	}

	for _, peak := range s.peaks {
		box, ok := d.create3DBBox(heads, peak, s.rot)

		if !ok {
			continue
		}

		d.camera.ProjectToImage(&box)
		s.boxes = append(s.boxes, box)
	}

	boxes := s.boxes

	if d.params.Suppress2D {
		standups := ConvertCornerToStandupBox(boxes, d.params.StandupUpscaled)
		boxes = Nms2D(boxes, standups, d.params.IoUThreshold)
	}

	if d.params.SuppressBEV {
		boxes = NmsBev(boxes, d.params.BEVIoUThreshold)
	}

	// copy out so no box refers to the scratch buffers
	for _, box := range boxes {
		box.ID = d.idGen.GetNext()
		res.Boxes = append(res.Boxes, box)
	}

	return nil
}

// create3DBBox decodes the regression heads at a peak's grid cell into a 3D
// box in camera space.  It returns false when the geometry is invalid, such
// as a non positive depth, which is an expected outcome for noisy cells.
// rot is scratch space sized for the rotation head.
func (d *Decoder) create3DBBox(h frameHeads, peak GridPeak,
	rot []float32) (Box3D, bool) {

	gx, gy := peak.GridX, peak.GridY

	// centre in Model input pixels
	cx := (float32(gx) + h.offset.Value(gy, gx, 0)) * d.downRatio
	cy := (float32(gy) + h.offset.Value(gy, gx, 1)) * d.downRatio

	depth := d.decodeDepth(h.depth.Value(gy, gx, 0))

	if !isFinite(depth) || depth <= 0 {
		return Box3D{}, false
	}

	dimH := h.dim.Value(gy, gx, 0)
	dimW := h.dim.Value(gy, gx, 1)
	dimL := h.dim.Value(gy, gx, 2)

	if !(dimH > 0 && dimW > 0 && dimL > 0) ||
		!isFinite(dimH) || !isFinite(dimW) || !isFinite(dimL) {
		return Box3D{}, false
	}

	loc := d.camera.ProjLocTo3D(cx, cy, depth)

	if !isFinite(loc[0]) || !isFinite(loc[1]) || !isFinite(loc[2]) ||
		loc[2] <= 0 {
		return Box3D{}, false
	}

	for c := range rot {
		rot[c] = h.rot.Value(gy, gx, c)
	}

	yaw := GlobalYaw(d.rotation.Alpha(rot), loc[0], loc[2])

	if !isFinite(yaw) {
		return Box3D{}, false
	}

	box := Box3D{
		GridIdx:    peak.Index,
		GridX:      gx,
		GridY:      gy,
		X:          loc[0],
		Y:          loc[1],
		Z:          loc[2],
		W:          dimW,
		L:          dimL,
		H:          dimH,
		D:          depth,
		R:          yaw,
		Score:      peak.Score,
		ClassLabel: peak.ClassLabel,
	}

	box.Corners3D = Get3DBboxCorners(box.X, box.Y, box.Z, box.W, box.L,
		box.H, box.R)

	return box, true
}

// decodeDepth inverts the training time depth encoding
// depth = 1/sigmoid(x) - 1 and rescales it to the camera's focal length
func (d *Decoder) decodeDepth(raw float32) float32 {
	return (1/(sigmoid(raw)+depthEps) - 1) * d.focalLengthScale
}
