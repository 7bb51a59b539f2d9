package render

import (
	"fmt"
	"image"
	"image/color"

	"github.com/swdee/go-mono3d/postprocess"
	"gocv.io/x/gocv"
)

// boxLabel defines where the detection object label should be rendered on
// the image
type boxLabel struct {
	rect    image.Rectangle
	clr     color.RGBA
	text    string
	textPos image.Point
}

// classColor returns the color used for objects of the given class
func classColor(class int) color.RGBA {
	if class < 0 {
		class = -class
	}

	return classColors[class%len(classColors)]
}

// className returns the label text of a class
func className(classNames []string, class int) string {
	if class >= 0 && class < len(classNames) {
		return classNames[class]
	}

	return fmt.Sprintf("class_%d", class)
}

// Boxes3D renders the wireframe of each 3D box using its corners projected
// into the original image, with the class label and score above the top
// face.  The front face, at +L/2 along the box heading, is drawn thicker.
func Boxes3D(img *gocv.Mat, boxes []postprocess.Box3D, classNames []string,
	font Font, lineThickness int) {

	boxLabels := make([]boxLabel, 0, len(boxes))

	for _, box := range boxes {

		useClr := classColor(box.ClassLabel)
		pts := box.Corners2DUpscale

		for _, edge := range postprocess.BoxEdges {
			thickness := lineThickness

			// corners 0, 1, 4 and 5 form the front face
			if isFrontCorner(edge[0]) && isFrontCorner(edge[1]) {
				thickness = lineThickness * 2
			}

			gocv.Line(img, point(pts[edge[0]]), point(pts[edge[1]]), useClr,
				thickness)
		}

		// label anchored at the top left of the top face
		left, top := int(pts[4][0]), int(pts[4][1])

		for _, pt := range pts[4:] {
			left = min(left, int(pt[0]))
			top = min(top, int(pt[1]))
		}

		text := fmt.Sprintf("%s %.2f %.1fm", className(classNames, box.ClassLabel),
			box.Score, box.Z)

		boxLabels = append(boxLabels, makeLabel(text, left, top, useClr, font,
			lineThickness))
	}

	drawLabels(img, boxLabels, font)
}

// isFrontCorner reports whether the corner index lies on the +L/2 face
func isFrontCorner(idx int) bool {
	return idx%4 == 0 || idx%4 == 1
}

// point converts a projected corner to an image point
func point(pt [2]float32) image.Point {
	return image.Pt(int(pt[0]), int(pt[1]))
}

// DetectionBoxes renders the standup bounding boxes of the objects detected
func DetectionBoxes(img *gocv.Mat, detectResults []postprocess.DetectResult,
	classNames []string, font Font, lineThickness int) {

	// keep a record of all box labels for later rendering
	boxLabels := make([]boxLabel, 0, len(detectResults))

	for _, detResult := range detectResults {

		useClr := classColor(detResult.Class)

		// draw rectangle around detected object
		rect := image.Rect(detResult.Box.Left, detResult.Box.Top, detResult.Box.Right,
			detResult.Box.Bottom)
		gocv.Rectangle(img, rect, useClr, lineThickness)

		text := fmt.Sprintf("%s %.2f", className(classNames, detResult.Class),
			detResult.Probability)

		boxLabels = append(boxLabels, makeLabel(text, detResult.Box.Left,
			detResult.Box.Top, useClr, font, lineThickness))
	}

	drawLabels(img, boxLabels, font)
}

// makeLabel calculates the placement of a label whose box sits on top of
// the point (left, top)
func makeLabel(text string, left, top int, clr color.RGBA, font Font,
	lineThickness int) boxLabel {

	textSize := gocv.GetTextSize(text, font.Face, font.Scale, font.Thickness)

	// Calculate the alignment of text label
	var centerX int

	switch font.Alignment {
	case Center:
		centerX = left + textSize.X/2

	case Right:
		centerX = left - (textSize.X / 2) - font.RightPad + (lineThickness / 2)

	case Left:
		fallthrough
	default:
		centerX = left + (textSize.X / 2) + font.LeftPad - (lineThickness / 2)
	}

	return boxLabel{
		rect: image.Rect(centerX-textSize.X/2-font.LeftPad,
			top-textSize.Y-font.TopPad-font.BottomPad,
			centerX+textSize.X/2+font.RightPad, top),
		clr:     clr,
		text:    text,
		textPos: image.Pt(centerX-textSize.X/2, top-font.BottomPad),
	}
}

// drawLabels renders all precalculated box labels so they are the top most
// layer on the image and don't get overlapped with box lines
func drawLabels(img *gocv.Mat, boxLabels []boxLabel, font Font) {
	for _, box := range boxLabels {
		// draw box text gets written on
		gocv.Rectangle(img, box.rect, box.clr, -1)

		// Draw the label over box
		gocv.PutTextWithParams(img, box.text, box.textPos,
			font.Face, font.Scale, font.Color, font.Thickness,
			font.LineType, false)
	}
}
