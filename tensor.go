package mono3d

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
)

// TensorFormat is the memory layout of a model output tensor
type TensorFormat int

const (
	TensorNHWC TensorFormat = iota
	TensorNCHW
	TensorUndefined
)

// TensorType is the element type held in a tensor buffer
type TensorType int

const (
	TensorFloat32 TensorType = iota
	TensorFloat16
	TensorInt8
	TensorInt16
	TensorInt32
)

// TensorQntType is the quantization scheme applied to tensor values
type TensorQntType int

const (
	// TensorQntNone values are stored as floats and used as is
	TensorQntNone TensorQntType = iota
	// TensorQntShift values are fixed point, value = raw / 2^shift with a
	// shift per channel
	TensorQntShift
	// TensorQntAffine values are asymmetric affine, value = (raw - zp) * scale
	TensorQntAffine
)

// ErrTensorShape is returned when a tensor's buffer or attributes are
// inconsistent with each other
var ErrTensorShape = errors.New("tensor shape mismatch")

// maxShift is the exclusive upper bound of a fixed point shift
const maxShift = 32

// TensorAttr describes the shape and quantization of a single output tensor.
// Dims and AlignedDims are always given in NHWC order regardless of Fmt.
type TensorAttr struct {
	Index uint32
	Name  string
	// Dims are the valid (logical) dimensions [N, H, W, C]
	Dims [4]uint32
	// AlignedDims are the padded dimensions the buffer is laid out with. A
	// zero value means the buffer is not padded
	AlignedDims [4]uint32
	Fmt         TensorFormat
	Type        TensorType
	QntType     TensorQntType
	// Shifts holds one shift per channel for TensorQntShift, or a single
	// shift applied to every channel
	Shifts []uint8
	ZP     int32
	Scale  float32
}

// Height returns the valid height of the tensor
func (a TensorAttr) Height() int {
	return int(a.Dims[1])
}

// Width returns the valid width of the tensor
func (a TensorAttr) Width() int {
	return int(a.Dims[2])
}

// Channels returns the valid channel count of the tensor
func (a TensorAttr) Channels() int {
	return int(a.Dims[3])
}

// aligned returns the buffer dimensions, falling back to the valid
// dimensions when no alignment was given
func (a TensorAttr) aligned() [4]uint32 {
	if a.AlignedDims == [4]uint32{} {
		return a.Dims
	}

	return a.AlignedDims
}

// AlignedHeight returns the padded height stride of the buffer
func (a TensorAttr) AlignedHeight() int {
	return int(a.aligned()[1])
}

// AlignedWidth returns the padded width stride of the buffer
func (a TensorAttr) AlignedWidth() int {
	return int(a.aligned()[2])
}

// AlignedChannels returns the padded channel stride of the buffer
func (a TensorAttr) AlignedChannels() int {
	return int(a.aligned()[3])
}

// NElems returns the number of elements the buffer must hold
func (a TensorAttr) NElems() int {
	al := a.aligned()
	return int(al[0] * al[1] * al[2] * al[3])
}

// ElemSize returns the byte size of a single element
func (a TensorAttr) ElemSize() int {
	switch a.Type {
	case TensorInt8:
		return 1
	case TensorFloat16, TensorInt16:
		return 2
	default:
		return 4
	}
}

// Shift returns the dequantization shift of the given channel
func (a TensorAttr) Shift(channel int) uint8 {
	if len(a.Shifts) == 0 {
		return 0
	}

	if len(a.Shifts) == 1 {
		return a.Shifts[0]
	}

	return a.Shifts[channel]
}

// Validate checks the attributes are self consistent
func (a TensorAttr) Validate() error {

	for i := 0; i < 4; i++ {
		if a.Dims[i] == 0 {
			return errors.Wrapf(ErrTensorShape, "tensor %q has zero dimension %d",
				a.Name, i)
		}

		if a.aligned()[i] < a.Dims[i] {
			return errors.Wrapf(ErrTensorShape,
				"tensor %q aligned dimension %d (%d) smaller than valid (%d)",
				a.Name, i, a.aligned()[i], a.Dims[i])
		}
	}

	if a.Fmt != TensorNHWC && a.Fmt != TensorNCHW {
		return errors.Wrapf(ErrTensorShape, "tensor %q has unsupported format %s",
			a.Name, a.Fmt)
	}

	switch a.QntType {
	case TensorQntShift:
		if len(a.Shifts) != 1 && len(a.Shifts) != a.Channels() {
			return errors.Wrapf(ErrTensorShape,
				"tensor %q has %d shifts for %d channels", a.Name,
				len(a.Shifts), a.Channels())
		}

		for c, shift := range a.Shifts {
			if shift >= maxShift {
				return errors.Wrapf(ErrTensorShape,
					"tensor %q shift %d of channel %d out of range", a.Name,
					shift, c)
			}
		}

	case TensorQntAffine:
		// scale must be positive and finite
		if !(a.Scale > 0) || math.IsInf(float64(a.Scale), 0) {
			return errors.Wrapf(ErrTensorShape,
				"tensor %q has invalid affine scale %f", a.Name, a.Scale)
		}
	}

	return nil
}

// String returns the TensorAttr's attributes formatted as a string
func (a TensorAttr) String() string {
	return fmt.Sprintf("index=%d, name=%s, dims=[%d, %d, %d, %d], "+
		"aligned=[%d, %d, %d, %d], fmt=%s, type=%s, qnt_type=%s, "+
		"shifts=%v, zp=%d, scale=%f",
		a.Index, a.Name, a.Dims[0], a.Dims[1], a.Dims[2], a.Dims[3],
		a.aligned()[0], a.aligned()[1], a.aligned()[2], a.aligned()[3],
		a.Fmt, a.Type, a.QntType, a.Shifts, a.ZP, a.Scale,
	)
}

// String returns a readable description of the TensorType
func (t TensorType) String() string {
	switch t {
	case TensorFloat32:
		return "FP32"
	case TensorFloat16:
		return "FP16"
	case TensorInt8:
		return "INT8"
	case TensorInt16:
		return "INT16"
	case TensorInt32:
		return "INT32"
	default:
		return "UNKNOW"
	}
}

// String returns a readable description of the TensorQntType
func (t TensorQntType) String() string {
	switch t {
	case TensorQntNone:
		return "NONE"
	case TensorQntShift:
		return "SHIFT"
	case TensorQntAffine:
		return "AFFINE"
	default:
		return "UNKNOW"
	}
}

// String returns a readable description of the TensorFormat
func (t TensorFormat) String() string {
	switch t {
	case TensorNCHW:
		return "NCHW"
	case TensorNHWC:
		return "NHWC"
	case TensorUndefined:
		return "UNDEFINED"
	default:
		return "UNKNOW"
	}
}

// Tensor is a read only view over one raw model output tensor. Only the
// buffer matching Attr.Type is populated.
type Tensor struct {
	Attr TensorAttr

	BufFloat   []float32
	BufFloat16 []uint16
	BufInt8    []int8
	BufInt16   []int16
	BufInt32   []int32
}

// Offset returns the buffer index of the element at row h, column w and
// channel c, honouring the aligned strides of the buffer
func (t *Tensor) Offset(h, w, c int) int {

	if t.Attr.Fmt == TensorNCHW {
		return (c*t.Attr.AlignedHeight()+h)*t.Attr.AlignedWidth() + w
	}

	return (h*t.Attr.AlignedWidth()+w)*t.Attr.AlignedChannels() + c
}

// Raw returns the still quantized value at the given buffer index
func (t *Tensor) Raw(idx int) float32 {
	switch t.Attr.Type {
	case TensorInt8:
		return float32(t.BufInt8[idx])
	case TensorInt16:
		return float32(t.BufInt16[idx])
	case TensorInt32:
		return float32(t.BufInt32[idx])
	case TensorFloat16:
		return f16LookupTable[t.BufFloat16[idx]]
	default:
		return t.BufFloat[idx]
	}
}

// RawAt returns the still quantized value at row h, column w and channel c
func (t *Tensor) RawAt(h, w, c int) float32 {
	return t.Raw(t.Offset(h, w, c))
}

// Dequantize converts a raw value read from channel c to its real value
func (t *Tensor) Dequantize(raw float32, c int) float32 {
	switch t.Attr.QntType {
	case TensorQntShift:
		return raw / float32(uint32(1)<<t.Attr.Shift(c))
	case TensorQntAffine:
		return (raw - float32(t.Attr.ZP)) * t.Attr.Scale
	default:
		return raw
	}
}

// Quantize converts a real value into the raw domain of channel c. It is
// used to compare thresholds against raw values without dequantizing every
// element.
func (t *Tensor) Quantize(val float32, c int) float32 {
	switch t.Attr.QntType {
	case TensorQntShift:
		return val * float32(uint32(1)<<t.Attr.Shift(c))
	case TensorQntAffine:
		return val/t.Attr.Scale + float32(t.Attr.ZP)
	default:
		return val
	}
}

// Value returns the dequantized value at row h, column w and channel c
func (t *Tensor) Value(h, w, c int) float32 {
	return t.Dequantize(t.RawAt(h, w, c), c)
}

// bufLen returns the length of the populated buffer
func (t *Tensor) bufLen() int {
	switch t.Attr.Type {
	case TensorInt8:
		return len(t.BufInt8)
	case TensorInt16:
		return len(t.BufInt16)
	case TensorInt32:
		return len(t.BufInt32)
	case TensorFloat16:
		return len(t.BufFloat16)
	default:
		return len(t.BufFloat)
	}
}

// Validate checks the tensor attributes and that the buffer is large enough
// to address every aligned element
func (t *Tensor) Validate() error {

	if err := t.Attr.Validate(); err != nil {
		return err
	}

	if n := t.bufLen(); n < t.Attr.NElems() {
		return errors.Wrapf(ErrTensorShape,
			"tensor %q buffer holds %d elements, expected %d", t.Attr.Name,
			n, t.Attr.NElems())
	}

	return nil
}
