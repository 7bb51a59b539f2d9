package postprocess

import (
	"github.com/chewxy/math32"
	"github.com/pkg/errors"
)

const (
	// simpleRotationDim is the channel count of a (sin, cos) rotation head
	simpleRotationDim = 2
	// multiBinBinDim is the channel count of each bin of a multibin head
	multiBinBinDim = 4
	// yawEps guards the azimuth division for objects on the image plane
	yawEps = 1e-6
)

// RotationDecoder converts the rotation head values of one grid cell into an
// observation angle.  The variant is fixed when the Decoder is configured.
type RotationDecoder struct {
	Mode RotationMode
	// Bins is the number of bins for RotationMultiBin
	Bins int
}

// NewRotationDecoder returns the decoder for the given mode
func NewRotationDecoder(mode RotationMode, bins int) (RotationDecoder, error) {

	switch mode {
	case RotationSimple:
		return RotationDecoder{Mode: mode}, nil

	case RotationMultiBin:
		if bins < 1 {
			return RotationDecoder{}, errors.Wrapf(ErrConfig,
				"multibin rotation needs at least one bin, got %d", bins)
		}

		return RotationDecoder{Mode: mode, Bins: bins}, nil
	}

	return RotationDecoder{}, errors.Wrapf(ErrConfig, "unknown rotation mode %d",
		mode)
}

// Channels returns the number of channels the rotation head must have
func (r RotationDecoder) Channels() int {
	if r.Mode == RotationMultiBin {
		return r.Bins * multiBinBinDim
	}

	return simpleRotationDim
}

// Alpha decodes the observation angle from the dequantized rotation values
// of a single grid cell
func (r RotationDecoder) Alpha(rot []float32) float32 {
	if r.Mode == RotationMultiBin {
		return multiBinAlpha(rot, r.Bins)
	}

	return simpleAlpha(rot)
}

// simpleAlpha reads the angle directly from (sin, cos)
func simpleAlpha(rot []float32) float32 {
	return math32.Atan2(rot[0], rot[1])
}

// multiBinAlpha selects the bin with the highest in-bin logit and adds its
// residual angle to the bin centre
func multiBinAlpha(rot []float32, bins int) float32 {

	best := 0
	bestScore := rot[1]

	for b := 1; b < bins; b++ {
		if s := rot[b*multiBinBinDim+1]; s > bestScore {
			best = b
			bestScore = s
		}
	}

	res := rot[best*multiBinBinDim:]

	return binCenter(best, bins) + math32.Atan2(res[2], res[3])
}

// binCenter returns the centre angle of bin k when the circle is split into
// the given number of bins starting at -Pi.  Two bins are centred at -Pi/2
// and Pi/2.
func binCenter(k, bins int) float32 {
	return -math32.Pi + (2*float32(k)+1)*math32.Pi/float32(bins)
}

// GlobalYaw converts an observation angle to the heading of an object at
// camera position (x, z), normalised to (-Pi, Pi]
func GlobalYaw(alpha, x, z float32) float32 {
	return normalizeAngle(alpha + math32.Atan(x/(z+yawEps)))
}
