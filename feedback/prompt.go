package feedback

import (
	"fmt"
	"strings"

	"fitcheckapi/models"
)

// PromptInput carries everything the composer may mention. The composer is
// pure: no storage or network access, so the exact prompt for a given input
// is reproducible in tests.
type PromptInput struct {
	Occasions        []string
	Setting          *string
	Weather          *string
	Vibe             *string
	SpecificConcerns *string
	Profile          *models.StyleProfile
	Insights         []string
	CalibrationNote  *string
}

// ComposePrompt serializes the submission context, the user's style profile,
// the personalization insights and the calibration note in that fixed order,
// skipping anything absent, and closes with the JSON shape instruction.
func ComposePrompt(in PromptInput) string {
	var b strings.Builder

	b.WriteString("Review the outfit in the attached photo.\n\n")
	b.WriteString(fmt.Sprintf("Occasion: %s\n", strings.Join(in.Occasions, ", ")))
	if in.Setting != nil && *in.Setting != "" {
		b.WriteString(fmt.Sprintf("Setting: %s\n", *in.Setting))
	}
	if in.Weather != nil && *in.Weather != "" {
		b.WriteString(fmt.Sprintf("Weather: %s\n", *in.Weather))
	}
	if in.Vibe != nil && *in.Vibe != "" {
		b.WriteString(fmt.Sprintf("Desired vibe: %s\n", *in.Vibe))
	}
	if in.SpecificConcerns != nil && *in.SpecificConcerns != "" {
		b.WriteString(fmt.Sprintf("The user specifically asked about: %s\n", *in.SpecificConcerns))
	}

	if in.Profile != nil {
		var profileLines []string
		if in.Profile.HeightCm != nil {
			profileLines = append(profileLines, fmt.Sprintf("Height: %d cm", *in.Profile.HeightCm))
		}
		if in.Profile.BodyType != nil && *in.Profile.BodyType != "" {
			profileLines = append(profileLines, fmt.Sprintf("Body type: %s", *in.Profile.BodyType))
		}
		if in.Profile.SkinTone != nil && *in.Profile.SkinTone != "" {
			profileLines = append(profileLines, fmt.Sprintf("Skin tone: %s", *in.Profile.SkinTone))
		}
		if in.Profile.StylePreferences != nil && *in.Profile.StylePreferences != "" {
			profileLines = append(profileLines, fmt.Sprintf("Style preferences: %s", *in.Profile.StylePreferences))
		}
		if in.Profile.Lifestyle != nil && *in.Profile.Lifestyle != "" {
			profileLines = append(profileLines, fmt.Sprintf("Lifestyle: %s", *in.Profile.Lifestyle))
		}
		if in.Profile.Goals != nil && *in.Profile.Goals != "" {
			profileLines = append(profileLines, fmt.Sprintf("Style goals: %s", *in.Profile.Goals))
		}
		if in.Profile.Budget != nil && *in.Profile.Budget != "" {
			profileLines = append(profileLines, fmt.Sprintf("Budget: %s", *in.Profile.Budget))
		}
		if len(profileLines) > 0 {
			b.WriteString("\nAbout the user:\n")
			for _, line := range profileLines {
				b.WriteString("- " + line + "\n")
			}
		}
	}

	if len(in.Insights) > 0 {
		b.WriteString("\nWhat we know about this user's style history:\n")
		for _, insight := range in.Insights {
			b.WriteString("- " + insight + "\n")
		}
	}

	if in.CalibrationNote != nil && *in.CalibrationNote != "" {
		b.WriteString("\nScoring calibration: " + *in.CalibrationNote + "\n")
	}

	b.WriteString("\nRespond with a single JSON object with keys overallScore, summary, whatsWorking, consider, quickFixes, occasionMatch and styleDNA, exactly as specified. Give 2-3 whatsWorking items and 2-3 consider items. No markdown, no extra keys.")
	return b.String()
}

// ComposeFollowUpPrompt grounds a follow-up question in the already delivered
// feedback so the model answers in the same voice.
func ComposeFollowUpPrompt(summary string, score *float64, question string) string {
	var b strings.Builder
	b.WriteString("You previously reviewed this user's outfit.\n")
	if score != nil {
		b.WriteString(fmt.Sprintf("Your score was %.1f/10.\n", *score))
	}
	if summary != "" {
		b.WriteString(fmt.Sprintf("Your summary was: %q\n", summary))
	}
	b.WriteString("\nThe user now asks: " + question + "\n")
	return b.String()
}
