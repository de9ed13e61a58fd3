// Package feedback holds the outfit feedback pipeline: prompt composition,
// personalization insights, score calibration, the model retry loop and the
// fallback payload. Everything here is storage-and-transport free except the
// two aggregators, which read recent history through gorm.
package feedback

import (
	"encoding/json"
	"fmt"
	"strings"
)

type FeedbackPoint struct {
	Point  string `json:"point"`
	Detail string `json:"detail"`
}

type QuickFix struct {
	Suggestion string `json:"suggestion"`
	Impact     string `json:"impact"`
}

type OccasionMatch struct {
	Score *float64 `json:"score"`
	Notes string   `json:"notes"`
}

// StyleDNA is the machine-derived attribute set for one outfit. Optional
// fields stay pointers so "model did not say" survives a JSON round trip.
type StyleDNA struct {
	DominantColors  []string `json:"dominantColors"`
	ColorHarmony    *string  `json:"colorHarmony"`
	ColorCount      *int     `json:"colorCount"`
	FormalityLevel  *int     `json:"formalityLevel"`
	StyleArchetypes []string `json:"styleArchetypes"`
	SilhouetteType  *string  `json:"silhouetteType"`
	Garments        []string `json:"garments"`
	Patterns        []string `json:"patterns"`
	Textures        []string `json:"textures"`
	ColorScore      *float64 `json:"colorScore"`
	ProportionScore *float64 `json:"proportionScore"`
	FitScore        *float64 `json:"fitScore"`
	CoherenceScore  *float64 `json:"coherenceScore"`
}

type OutfitFeedback struct {
	OverallScore  *float64        `json:"overallScore"`
	Summary       string          `json:"summary"`
	WhatsWorking  []FeedbackPoint `json:"whatsWorking"`
	Consider      []FeedbackPoint `json:"consider"`
	QuickFixes    []QuickFix      `json:"quickFixes"`
	OccasionMatch OccasionMatch   `json:"occasionMatch"`
	StyleDNA      StyleDNA        `json:"styleDNA"`
}

// StripCodeFence removes a surrounding markdown fence if the model wrapped
// its JSON in one despite instructions.
func StripCodeFence(raw string) string {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

// ParseFeedback parses raw model output and applies the minimal shape check.
// It never repairs the payload, a malformed response is rejected so the
// caller can spend a retry on it.
func ParseFeedback(raw string) (*OutfitFeedback, error) {
	text := StripCodeFence(raw)
	var parsed OutfitFeedback
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, fmt.Errorf("feedback is not valid json: %v", err)
	}
	if err := parsed.Validate(); err != nil {
		return nil, err
	}
	return &parsed, nil
}

func (f *OutfitFeedback) Validate() error {
	if f.OverallScore == nil {
		return fmt.Errorf("feedback is missing a numeric overallScore")
	}
	if strings.TrimSpace(f.Summary) == "" {
		return fmt.Errorf("feedback summary is empty")
	}
	if f.WhatsWorking == nil {
		return fmt.Errorf("feedback whatsWorking is not a list")
	}
	return nil
}
