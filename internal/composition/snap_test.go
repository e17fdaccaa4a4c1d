package composition

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnap(t *testing.T) {
	candidates := []int{0, 100, 58, 60}

	t.Run("equidistant candidates resolve to the first listed", func(t *testing.T) {
		// 58 and 60 are both distance 1 from 59; 58 appears first.
		assert.Equal(t, 58, Snap(59, candidates, SnapThresholdFrames))
	})

	t.Run("closest candidate wins", func(t *testing.T) {
		assert.Equal(t, 60, Snap(61, candidates, SnapThresholdFrames))
		assert.Equal(t, 0, Snap(2, candidates, SnapThresholdFrames))
	})

	t.Run("exact hit snaps to itself", func(t *testing.T) {
		assert.Equal(t, 100, Snap(100, candidates, SnapThresholdFrames))
	})

	t.Run("outside threshold returns the proposal", func(t *testing.T) {
		assert.Equal(t, 95, Snap(95, candidates, SnapThresholdFrames))
		assert.Equal(t, 30, Snap(30, candidates, SnapThresholdFrames))
	})

	t.Run("no candidates", func(t *testing.T) {
		assert.Equal(t, 42, Snap(42, nil, SnapThresholdFrames))
	})
}

func TestSchemaSnapPoints(t *testing.T) {
	s := Schema{
		CanvasWidth:         1080,
		CanvasHeight:        1920,
		FPS:                 30,
		TotalDurationFrames: 300,
		Elements: []Element{
			{ID: "a", Kind: ElementText, Text: "hi", StartFrame: 10, DurationFrames: 40},
			{ID: "b", Kind: ElementImage, Content: "asset:img1", StartFrame: 50, DurationFrames: 25},
		},
	}

	got := s.SnapPoints(120)
	// Contractual order: start, end, playhead, then element starts/ends.
	assert.Equal(t, []int{0, 300, 120, 10, 50, 50, 75}, got)
}
