package mono3d

import "github.com/x448/float16"

var f16LookupTable [65536]float32

func init() {
	// precompute float16 lookup table for faster conversion to float32
	for i := range f16LookupTable {
		f16 := float16.Frombits(uint16(i))
		f16LookupTable[i] = f16.Float32()
	}
}

// Float16ToFloat32 converts the raw bits of a half precision float
func Float16ToFloat32(bits uint16) float32 {
	return f16LookupTable[bits]
}

// Float32ToFloat16 returns the raw bits of the half precision float nearest
// to f
func Float32ToFloat16(f float32) uint16 {
	return float16.Fromfloat32(f).Bits()
}
