package postprocess

// DetectionResult is implemented by post processing results that can be
// reduced to 2D detections
type DetectionResult interface {
	GetDetectResults() []DetectResult
}

// BoxRect are the dimensions of the bounding box of a detect object
type BoxRect struct {
	Left   int
	Right  int
	Top    int
	Bottom int
}

// DetectResult defines the attributes of a single object detected
type DetectResult struct {
	// Class is the heat map channel the object was detected in
	Class int
	// Box are the bounding box dimensions of the object location
	Box BoxRect
	// Probability is the confidence score of the object detected
	Probability float32
	// ID is a unique ID assigned to the detection result
	ID int64
}

// CenterNet3DResult is the caller owned container PostProcess writes the
// surviving boxes into
type CenterNet3DResult struct {
	// Boxes are the detected objects in suppression order
	Boxes []Box3D
}

// Reset clears the result.  The backing array is reused by the next
// PostProcess call, copy Boxes to keep them beyond that.
func (r *CenterNet3DResult) Reset() {
	r.Boxes = r.Boxes[:0]
}

// GetDetectResults returns the standup boxes of each 3D box in original
// image coordinates
func (r *CenterNet3DResult) GetDetectResults() []DetectResult {
	return r.detectResults(0, 0)
}

// DetectResultsInImage returns the standup boxes of each 3D box clamped to
// an image of the given size
func (r *CenterNet3DResult) DetectResultsInImage(width, height int) []DetectResult {
	return r.detectResults(width, height)
}

func (r *CenterNet3DResult) detectResults(width, height int) []DetectResult {

	standups := ConvertCornerToStandupBox(r.Boxes, true)
	group := make([]DetectResult, 0, len(standups))

	for _, sb := range standups {

		x1, y1, x2, y2 := sb.X1, sb.Y1, sb.X2, sb.Y2

		if width > 0 && height > 0 {
			x1 = clamp(x1, 0, float32(width))
			x2 = clamp(x2, 0, float32(width))
			y1 = clamp(y1, 0, float32(height))
			y2 = clamp(y2, 0, float32(height))
		}

		group = append(group, DetectResult{
			Class: sb.Class,
			Box: BoxRect{
				Left:   int(x1),
				Top:    int(y1),
				Right:  int(x2),
				Bottom: int(y2),
			},
			Probability: sb.Score,
			ID:          r.Boxes[sb.Index].ID,
		})
	}

	return group
}
