package composition

import (
	"math"
	"strings"
)

// Timing constants for text-driven sequences. These are exact contract
// values: changing any of them changes the duration of every generated video.
const (
	// WordsPerSecond is the assumed narration pace.
	WordsPerSecond = 2.8
	// TimingFPS is the frame rate the duration math is defined against.
	TimingFPS = 30
	// MinSequenceSeconds floors very short texts before frame conversion.
	MinSequenceSeconds = 1.2
	// MinSequenceFrames / MaxSequenceFrames clamp a single sequence.
	MinSequenceFrames = 30
	MaxSequenceFrames = 270
	// TailFrames is the fixed outro appended after the last sequence.
	TailFrames = 60
)

// SequenceDuration computes the duration in frames of one text-driven
// sequence:
//
//	clamp(round(max(words/WordsPerSecond, MinSequenceSeconds) * TimingFPS),
//	      MinSequenceFrames, MaxSequenceFrames)
//
// Deterministic and pure; word count is whitespace-delimited fields.
func SequenceDuration(text string) int {
	words := len(strings.Fields(text))
	seconds := math.Max(float64(words)/WordsPerSecond, MinSequenceSeconds)
	frames := int(math.Round(seconds * TimingFPS))
	if frames < MinSequenceFrames {
		frames = MinSequenceFrames
	}
	if frames > MaxSequenceFrames {
		frames = MaxSequenceFrames
	}
	return frames
}

// TotalDuration sums the sequence durations and appends the fixed tail.
func TotalDuration(texts []string) int {
	total := 0
	for _, t := range texts {
		total += SequenceDuration(t)
	}
	return total + TailFrames
}
