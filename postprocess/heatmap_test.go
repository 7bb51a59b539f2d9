package postprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swdee/go-mono3d"
)

func heatmap(h, w int, fill float32) *mono3d.Tensor {
	t := newFloatTensor("hm", h, w, 1)

	for i := range t.BufFloat {
		t.BufFloat[i] = fill
	}

	return t
}

func TestMaxPoolingRefine(t *testing.T) {

	tests := []struct {
		name  string
		cells map[[2]int]float32
		want  [][2]int
	}{
		{
			name:  "single peak",
			cells: map[[2]int]float32{{3, 4}: 2},
			want:  [][2]int{{3, 4}},
		},
		{
			name:  "neighbour suppressed",
			cells: map[[2]int]float32{{3, 4}: 2, {4, 4}: 1.5},
			want:  [][2]int{{3, 4}},
		},
		{
			name:  "tie keeps first in scan order",
			cells: map[[2]int]float32{{3, 4}: 2, {4, 4}: 2},
			want:  [][2]int{{3, 4}},
		},
		{
			name:  "tie on next row keeps upper",
			cells: map[[2]int]float32{{5, 2}: 1, {4, 3}: 1},
			want:  [][2]int{{5, 2}},
		},
		{
			name:  "separated peaks",
			cells: map[[2]int]float32{{1, 1}: 1, {3, 1}: 2},
			want:  [][2]int{{1, 1}, {3, 1}},
		},
		{
			name:  "corner peak with clipped window",
			cells: map[[2]int]float32{{0, 0}: 3, {7, 5}: 1},
			want:  [][2]int{{0, 0}, {7, 5}},
		},
		{
			name:  "value equal to threshold rejected",
			cells: map[[2]int]float32{{2, 2}: 0},
			want:  nil,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {

			hm := heatmap(6, 8, background)

			for xy, v := range tc.cells {
				set(hm, xy[1], xy[0], 0, v)
			}

			peaks := MaxPoolingRefine(nil, hm, 0, 3, unsigmoid(0.5))
			require.Len(t, peaks, len(tc.want))

			for i, p := range peaks {
				assert.Equal(t, tc.want[i][0], p.GridX)
				assert.Equal(t, tc.want[i][1], p.GridY)
				assert.Equal(t, p.GridY*8+p.GridX, p.Index)
				assert.Greater(t, p.Score, float32(0.5))
			}
		})
	}
}

func TestMaxPoolingRefineKernel(t *testing.T) {

	hm := heatmap(6, 8, background)
	set(hm, 2, 2, 0, 2)
	set(hm, 2, 4, 0, 1)

	// a 3x3 window sees both peaks
	assert.Len(t, MaxPoolingRefine(nil, hm, 0, 3, 0), 2)

	// a 5x5 window covers both so only the larger survives
	peaks := MaxPoolingRefine(nil, hm, 0, 5, 0)
	require.Len(t, peaks, 1)
	assert.Equal(t, 2, peaks[0].GridX)

	// a 1x1 window keeps every cell above threshold
	assert.Len(t, MaxPoolingRefine(nil, hm, 0, 1, 0), 2)
}

func TestMaxPoolingRefineQuantized(t *testing.T) {

	// two channels with different fixed point shifts
	hm := &mono3d.Tensor{
		Attr: mono3d.TensorAttr{
			Name:    "hm",
			Dims:    [4]uint32{1, 4, 4, 2},
			Fmt:     mono3d.TensorNHWC,
			Type:    mono3d.TensorInt8,
			QntType: mono3d.TensorQntShift,
			Shifts:  []uint8{4, 2},
		},
		BufInt8: make([]int8, 4*4*2),
	}

	for i := range hm.BufInt8 {
		hm.BufInt8[i] = -100
	}

	// channel 0 value 2.0, channel 1 value 0.25
	hm.BufInt8[hm.Offset(1, 1, 0)] = 32
	hm.BufInt8[hm.Offset(2, 3, 1)] = 1

	peaks := MaxPoolingRefine(nil, hm, 0, 3, unsigmoid(0.5))
	require.Len(t, peaks, 1)
	assert.InDelta(t, sigmoid(2), peaks[0].Score, 1e-6)

	peaks = MaxPoolingRefine(peaks, hm, 1, 3, unsigmoid(0.5))
	require.Len(t, peaks, 2)
	assert.Equal(t, 1, peaks[1].ClassLabel)
	assert.InDelta(t, sigmoid(0.25), peaks[1].Score, 1e-6)

	// a higher threshold rejects the weaker channel 1 peak
	assert.Empty(t, MaxPoolingRefine(nil, hm, 1, 3, unsigmoid(0.6)))
}

func TestSortPeaks(t *testing.T) {

	peaks := []GridPeak{
		{Score: 0.6, Index: 5, Channel: 0},
		{Score: 0.9, Index: 9, Channel: 2},
		{Score: 0.9, Index: 3, Channel: 1},
		{Score: 0.9, Index: 3, Channel: 0},
	}

	sortPeaks(peaks)

	assert.Equal(t, []GridPeak{
		{Score: 0.9, Index: 3, Channel: 0},
		{Score: 0.9, Index: 3, Channel: 1},
		{Score: 0.9, Index: 9, Channel: 2},
		{Score: 0.6, Index: 5, Channel: 0},
	}, peaks)
}
