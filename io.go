package mono3d

import (
	"encoding/binary"
	"math"
	"os"

	"github.com/pkg/errors"
)

// NewTensor decodes a little endian raw buffer, as dumped from the inference
// runtime, into a Tensor described by attr
func NewTensor(attr TensorAttr, buf []byte) (*Tensor, error) {

	if err := attr.Validate(); err != nil {
		return nil, err
	}

	n := attr.NElems()
	size := attr.ElemSize()

	if len(buf) < n*size {
		return nil, errors.Wrapf(ErrTensorShape,
			"tensor %q buffer is %d bytes, expected %d", attr.Name, len(buf),
			n*size)
	}

	t := &Tensor{Attr: attr}

	switch attr.Type {
	case TensorInt8:
		t.BufInt8 = make([]int8, n)
		for i := range t.BufInt8 {
			t.BufInt8[i] = int8(buf[i])
		}

	case TensorInt16:
		t.BufInt16 = make([]int16, n)
		for i := range t.BufInt16 {
			t.BufInt16[i] = int16(binary.LittleEndian.Uint16(buf[i*2:]))
		}

	case TensorInt32:
		t.BufInt32 = make([]int32, n)
		for i := range t.BufInt32 {
			t.BufInt32[i] = int32(binary.LittleEndian.Uint32(buf[i*4:]))
		}

	case TensorFloat16:
		t.BufFloat16 = make([]uint16, n)
		for i := range t.BufFloat16 {
			t.BufFloat16[i] = binary.LittleEndian.Uint16(buf[i*2:])
		}

	case TensorFloat32:
		t.BufFloat = make([]float32, n)
		for i := range t.BufFloat {
			t.BufFloat[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
		}

	default:
		return nil, errors.Wrapf(ErrTensorShape, "tensor %q has unknown type %d",
			attr.Name, attr.Type)
	}

	return t, nil
}

// ReadTensor loads a raw tensor dump from file
func ReadTensor(attr TensorAttr, file string) (*Tensor, error) {

	buf, err := os.ReadFile(file)

	if err != nil {
		return nil, errors.Wrapf(err, "error reading tensor %q", attr.Name)
	}

	return NewTensor(attr, buf)
}
