package feedback

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFallbackFeedbackIsSchemaValid(t *testing.T) {
	fallback := FallbackFeedback()
	require.NoError(t, fallback.Validate())

	// Round trips through the same parser that gates real model output.
	raw, err := json.Marshal(fallback)
	require.NoError(t, err)
	parsed, err := ParseFeedback(string(raw))
	require.NoError(t, err)
	assert.Equal(t, *fallback.OverallScore, *parsed.OverallScore)
}

func TestFallbackFeedbackContents(t *testing.T) {
	fallback := FallbackFeedback()

	assert.True(t, strings.Contains(fallback.Summary, FallbackMarker))
	assert.Len(t, fallback.WhatsWorking, 1)
	assert.Len(t, fallback.Consider, 1)
	assert.Empty(t, fallback.QuickFixes)
	require.NotNil(t, fallback.OccasionMatch.Score)
	assert.Equal(t, *fallback.OverallScore, *fallback.OccasionMatch.Score)
	assert.Empty(t, fallback.StyleDNA.DominantColors)
	assert.Empty(t, fallback.StyleDNA.StyleArchetypes)
	assert.Empty(t, fallback.StyleDNA.Garments)
	require.NotNil(t, fallback.StyleDNA.FormalityLevel)
	assert.Equal(t, 3, *fallback.StyleDNA.FormalityLevel)
}

func TestComposePromptFixedOrder(t *testing.T) {
	setting := "office"
	vibe := "confident"
	note := "Your scores have been running 0.5 points higher than peer consensus."
	prompt := ComposePrompt(PromptInput{
		Occasions:       []string{"work", "meeting"},
		Setting:         &setting,
		Vibe:            &vibe,
		Insights:        []string{"Analogous color schemes score highest for this user (avg 8.0/10)"},
		CalibrationNote: &note,
	})

	occasionIdx := strings.Index(prompt, "Occasion: work, meeting")
	settingIdx := strings.Index(prompt, "Setting: office")
	vibeIdx := strings.Index(prompt, "Desired vibe: confident")
	insightIdx := strings.Index(prompt, "Analogous color schemes")
	calibrationIdx := strings.Index(prompt, "Scoring calibration:")
	closingIdx := strings.Index(prompt, "Respond with a single JSON object")

	require.True(t, occasionIdx >= 0)
	assert.True(t, occasionIdx < settingIdx)
	assert.True(t, settingIdx < vibeIdx)
	assert.True(t, vibeIdx < insightIdx)
	assert.True(t, insightIdx < calibrationIdx)
	assert.True(t, calibrationIdx < closingIdx)

	// Absent fields leave no trace.
	assert.NotContains(t, prompt, "Weather:")
	assert.NotContains(t, prompt, "About the user:")
}

func TestComposePromptIsDeterministic(t *testing.T) {
	in := PromptInput{Occasions: []string{"date night"}}
	assert.Equal(t, ComposePrompt(in), ComposePrompt(in))
}
