package composition

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func words(n int) string {
	return strings.TrimSpace(strings.Repeat("word ", n))
}

func TestSequenceDuration(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		// max(2/2.8, 1.2) = 1.2s -> 36 frames
		{"two words floors at min seconds", "Hello world", 36},
		{"empty text floors at min seconds", "", 36},
		{"whitespace only", "   \t  ", 36},
		// 5/2.8 = 1.7857s -> 53.57 -> 54
		{"five words", words(5), 54},
		// 12/2.8 = 4.2857s -> 128.57 -> 129
		{"twelve words", words(12), 129},
		// 19/2.8 = 6.7857s -> 203.57 -> 204
		{"nineteen words", words(19), 204},
		// 25/2.8 = 8.9286s -> 267.86 -> 268, just under the cap
		{"twenty-five words", words(25), 268},
		// 30/2.8 = 10.714s -> 321 -> clamped to 270
		{"thirty words clamps at max", words(30), 270},
		{"very long text clamps at max", words(500), 270},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SequenceDuration(tt.text))
		})
	}
}

func TestSequenceDurationDeterministic(t *testing.T) {
	text := words(19)
	first := SequenceDuration(text)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, SequenceDuration(text))
	}
}

func TestTotalDuration(t *testing.T) {
	t.Run("sums sequences plus tail", func(t *testing.T) {
		// 36 + 129 + 60
		got := TotalDuration([]string{"Short text", words(12)})
		assert.Equal(t, 225, got)
	})

	t.Run("empty input is just the tail", func(t *testing.T) {
		assert.Equal(t, TailFrames, TotalDuration(nil))
	})

	t.Run("single sequence", func(t *testing.T) {
		assert.Equal(t, SequenceDuration(words(19))+TailFrames, TotalDuration([]string{words(19)}))
	})
}
