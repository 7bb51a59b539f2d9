package postprocess

import (
	"sort"

	"github.com/swdee/go-mono3d"
)

// GridPeak is a heat map cell that is a local maximum above the class score
// threshold
type GridPeak struct {
	GridX      int
	GridY      int
	Channel    int
	ClassLabel int
	// Score is the probability of the cell
	Score float32
	// Index is the cell's position in scan order, GridY * width + GridX
	Index int
}

// MaxPoolingRefine appends to peaks every cell of the heat map channel that
// is the maximum of its kernel x kernel window (stride 1, windows clipped at
// the edges) and exceeds logThres, a log-odds threshold.  When equal values
// share a window the first one in scan order wins.  Comparisons are done on
// raw quantized values.
func MaxPoolingRefine(peaks []GridPeak, hm *mono3d.Tensor, channel int,
	kernel int, logThres float32) []GridPeak {

	height := hm.Attr.Height()
	width := hm.Attr.Width()
	pad := (kernel - 1) / 2

	// threshold in the raw domain of this channel
	rawThres := hm.Quantize(logThres, channel)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {

			val := hm.RawAt(y, x, channel)

			if val <= rawThres || !isWindowMax(hm, channel, x, y, pad, val) {
				continue
			}

			peaks = append(peaks, GridPeak{
				GridX:      x,
				GridY:      y,
				Channel:    channel,
				ClassLabel: channel,
				Score:      sigmoid(hm.Dequantize(val, channel)),
				Index:      y*width + x,
			})
		}
	}

	return peaks
}

// isWindowMax reports whether val at (x, y) beats every earlier cell of its
// window and is not exceeded by any later one
func isWindowMax(hm *mono3d.Tensor, channel, x, y, pad int, val float32) bool {

	y0, y1 := max(y-pad, 0), min(y+pad, hm.Attr.Height()-1)
	x0, x1 := max(x-pad, 0), min(x+pad, hm.Attr.Width()-1)

	for wy := y0; wy <= y1; wy++ {
		for wx := x0; wx <= x1; wx++ {

			if wx == x && wy == y {
				continue
			}

			other := hm.RawAt(wy, wx, channel)

			// cells before (x, y) in scan order win ties
			before := wy < y || (wy == y && wx < x)

			if other > val || (before && other == val) {
				return false
			}
		}
	}

	return true
}

// sortPeaks orders peaks by score, highest first, breaking ties by scan order
// and then channel
func sortPeaks(peaks []GridPeak) {
	sort.SliceStable(peaks, func(i, j int) bool {
		if peaks[i].Score != peaks[j].Score {
			return peaks[i].Score > peaks[j].Score
		}

		if peaks[i].Index != peaks[j].Index {
			return peaks[i].Index < peaks[j].Index
		}

		return peaks[i].Channel < peaks[j].Channel
	})
}
