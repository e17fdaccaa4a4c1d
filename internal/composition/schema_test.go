package composition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSchema() Schema {
	return Schema{
		CanvasWidth:         1080,
		CanvasHeight:        1920,
		FPS:                 30,
		TotalDurationFrames: 300,
		Elements: []Element{
			{ID: "bg", Kind: ElementVideo, Content: "asset:vid1", StartFrame: 0, DurationFrames: 300},
			{ID: "title", Kind: ElementText, Text: "Hello", StartFrame: 15, DurationFrames: 90, FadeInFrames: 10},
			{ID: "music", Kind: ElementAudio, Content: "asset:aud1", StartFrame: 0, DurationFrames: 300, MediaStartOffsetFrames: 60},
		},
	}
}

func TestSchemaValidate(t *testing.T) {
	t.Run("valid schema", func(t *testing.T) {
		s := validSchema()
		require.NoError(t, s.Validate())
	})

	t.Run("rejects bad canvas", func(t *testing.T) {
		s := validSchema()
		s.CanvasWidth = 0
		assert.Error(t, s.Validate())
	})

	t.Run("rejects zero fps", func(t *testing.T) {
		s := validSchema()
		s.FPS = 0
		assert.Error(t, s.Validate())
	})

	t.Run("rejects duplicate element ids", func(t *testing.T) {
		s := validSchema()
		s.Elements[1].ID = "bg"
		assert.Error(t, s.Validate())
	})
}

func TestElementValidate(t *testing.T) {
	tests := []struct {
		name    string
		el      Element
		wantErr bool
	}{
		{"video requires content", Element{ID: "v", Kind: ElementVideo, StartFrame: 0, DurationFrames: 10}, true},
		{"image requires content", Element{ID: "i", Kind: ElementImage, StartFrame: 0, DurationFrames: 10}, true},
		{"audio requires content", Element{ID: "a", Kind: ElementAudio, StartFrame: 0, DurationFrames: 10}, true},
		{"text requires text", Element{ID: "t", Kind: ElementText, StartFrame: 0, DurationFrames: 10}, true},
		{"unknown kind", Element{ID: "x", Kind: "sticker", Content: "c", StartFrame: 0, DurationFrames: 10}, true},
		{"negative start", Element{ID: "t", Kind: ElementText, Text: "x", StartFrame: -1, DurationFrames: 10}, true},
		{"zero duration", Element{ID: "t", Kind: ElementText, Text: "x", StartFrame: 0, DurationFrames: 0}, true},
		{"media offset on text", Element{ID: "t", Kind: ElementText, Text: "x", StartFrame: 0, DurationFrames: 10, MediaStartOffsetFrames: 5}, true},
		{"media offset on video ok", Element{ID: "v", Kind: ElementVideo, Content: "u", StartFrame: 0, DurationFrames: 10, MediaStartOffsetFrames: 5}, false},
		{"valid text", Element{ID: "t", Kind: ElementText, Text: "x", StartFrame: 0, DurationFrames: 10}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.el.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSchemaBoundsWarnings(t *testing.T) {
	s := validSchema()
	require.Empty(t, s.BoundsWarnings())

	// Overrunning the timeline is a warning at edit time, not an error:
	// elements may legitimately extend and clip at render time.
	s.Elements[1].DurationFrames = 500
	require.NoError(t, s.Validate())
	warnings := s.BoundsWarnings()
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "title")
}

func TestSchemaAssetRefs(t *testing.T) {
	s := validSchema()
	assert.Equal(t, []string{"vid1", "aud1"}, s.AssetRefs())

	t.Run("urls are not asset refs", func(t *testing.T) {
		s := validSchema()
		s.Elements[0].Content = "https://cdn.example.com/clip.mp4"
		assert.Equal(t, []string{"aud1"}, s.AssetRefs())
	})

	t.Run("duplicates collapse", func(t *testing.T) {
		s := validSchema()
		s.Elements = append(s.Elements, Element{
			ID: "bg2", Kind: ElementVideo, Content: "asset:vid1", StartFrame: 0, DurationFrames: 10,
		})
		assert.Equal(t, []string{"vid1", "aud1"}, s.AssetRefs())
	})
}
