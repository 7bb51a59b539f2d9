package postprocess

import (
	"math"
	"sort"

	clipper "github.com/ctessum/go.clipper"
)

// bevScale converts metres to the integer grid polygon clipping runs on,
// giving a resolution of 0.1mm
const bevScale = 10000.0

// greedyNMS returns the indexes of the kept candidates in suppression order.
// Candidates are visited by score, highest first with ties broken by index,
// and kept only if their overlap with every previously kept candidate is
// below threshold.  A rejected candidate is never reconsidered.
func greedyNMS(scores []float32, overlap func(i, j int) float32,
	threshold float32) []int {

	order := make([]int, len(scores))

	for i := range order {
		order[i] = i
	}

	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	keep := make([]int, 0, len(order))

	for _, i := range order {
		suppressed := false

		for _, k := range keep {
			if overlap(k, i) >= threshold {
				suppressed = true
				break
			}
		}

		if !suppressed {
			keep = append(keep, i)
		}
	}

	return keep
}

// Nms2D suppresses boxes whose standup rectangles overlap a higher scoring
// box by threshold or more.  standups must be the ConvertCornerToStandupBox
// output for boxes.  Comparisons ignore the class label.
func Nms2D(boxes []Box3D, standups []Box2D, threshold float32) []Box3D {

	scores := make([]float32, len(standups))

	for i, sb := range standups {
		scores[i] = sb.Score
	}

	keep := greedyNMS(scores, func(i, j int) float32 {
		return calculateOverlap(standups[i], standups[j])
	}, threshold)

	out := make([]Box3D, 0, len(keep))

	for _, k := range keep {
		out = append(out, boxes[standups[k].Index])
	}

	return out
}

// NmsBev suppresses boxes whose ground plane footprints overlap a higher
// scoring box by threshold or more.  Comparisons ignore the class label.
func NmsBev(boxes []Box3D, threshold float32) []Box3D {

	scores := make([]float32, len(boxes))
	paths := make([]clipper.Path, len(boxes))
	areas := make([]float64, len(boxes))

	for i := range boxes {
		scores[i] = boxes[i].Score
		paths[i] = footprintPath(boxes[i].BEVFootprint())
		areas[i] = pathArea(paths[i])
	}

	keep := greedyNMS(scores, func(i, j int) float32 {
		return bevOverlap(paths[i], paths[j], areas[i], areas[j])
	}, threshold)

	out := make([]Box3D, 0, len(keep))

	for _, k := range keep {
		out = append(out, boxes[k])
	}

	return out
}

// calculateOverlap works out the Intersection over Union (IoU) of two axis
// aligned boxes.  Degenerate boxes have an IoU of zero.
func calculateOverlap(a, b Box2D) float32 {

	w := min(a.X2, b.X2) - max(a.X1, b.X1)
	h := min(a.Y2, b.Y2) - max(a.Y1, b.Y1)

	if w <= 0 || h <= 0 {
		return 0
	}

	intersection := w * h
	union := a.Area() + b.Area() - intersection

	if union <= 0 {
		return 0
	}

	return intersection / union
}

// BEVOverlap calculates the Intersection over Union of two boxes' ground
// plane footprints
func BEVOverlap(a, b *Box3D) float32 {
	pa := footprintPath(a.BEVFootprint())
	pb := footprintPath(b.BEVFootprint())

	return bevOverlap(pa, pb, pathArea(pa), pathArea(pb))
}

// bevOverlap clips footprint a against b and returns the IoU of the two
func bevOverlap(a, b clipper.Path, areaA, areaB float64) float32 {

	if areaA <= 0 || areaB <= 0 {
		return 0
	}

	c := clipper.NewClipper(0)
	c.AddPath(a, clipper.PtSubject, true)
	c.AddPath(b, clipper.PtClip, true)

	solution, ok := c.Execute1(clipper.CtIntersection, clipper.PftNonZero,
		clipper.PftNonZero)

	if !ok {
		return 0
	}

	intersection := 0.0

	for _, p := range solution {
		intersection += pathArea(p)
	}

	union := areaA + areaB - intersection

	if union <= 0 {
		return 0
	}

	return float32(intersection / union)
}

// footprintPath converts a footprint in metres to a clipper path
func footprintPath(fp [4][2]float32) clipper.Path {

	path := make(clipper.Path, 0, len(fp))

	for _, pt := range fp {
		path = append(path, &clipper.IntPoint{
			X: clipper.CInt(math.Round(float64(pt[0]) * bevScale)),
			Y: clipper.CInt(math.Round(float64(pt[1]) * bevScale)),
		})
	}

	return path
}

// pathArea returns the unsigned area of a closed path using the shoelace
// formula
func pathArea(path clipper.Path) float64 {

	n := len(path)

	if n < 3 {
		return 0
	}

	area := 0.0

	for i := 0; i < n; i++ {
		p := path[i]
		q := path[(i+1)%n]
		area += float64(p.X)*float64(q.Y) - float64(q.X)*float64(p.Y)
	}

	return math.Abs(area) / 2
}
