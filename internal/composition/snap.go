package composition

// SnapThresholdFrames is the maximum distance at which a proposed frame
// attaches to a snap point.
const SnapThresholdFrames = 3

// SnapPoints returns the snap candidates for a timeline in their contractual
// order: timeline start, timeline end, playhead, then each element's start
// and end in element-list order. Callers must not reorder the result, since
// Snap breaks distance ties by position.
func (s *Schema) SnapPoints(playhead int) []int {
	points := make([]int, 0, 3+2*len(s.Elements))
	points = append(points, 0, s.TotalDurationFrames, playhead)
	for i := range s.Elements {
		points = append(points, s.Elements[i].StartFrame, s.Elements[i].EndFrame())
	}
	return points
}

// Snap returns the candidate within threshold of proposed with the smallest
// absolute distance, or proposed itself when no candidate qualifies. Ties are
// broken by candidate order: the first closest wins.
func Snap(proposed int, candidates []int, threshold int) int {
	best := proposed
	bestDist := threshold + 1
	for _, c := range candidates {
		d := c - proposed
		if d < 0 {
			d = -d
		}
		if d < bestDist {
			bestDist = d
			best = c
		}
	}
	return best
}
