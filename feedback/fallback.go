package feedback

// FallbackMarker is the phrase the app looks for in a summary to offer a
// manual retry. Keep it stable, the mobile client matches on it.
const FallbackMarker = "trouble analyzing"

const fallbackScore = 7.0

// FallbackFeedback returns the fixed payload persisted when every model
// attempt fails. It is schema valid by construction so consumers never need
// to special-case a degraded analysis.
func FallbackFeedback() *OutfitFeedback {
	score := fallbackScore
	occasionScore := fallbackScore
	formality := 3
	return &OutfitFeedback{
		OverallScore: &score,
		Summary:      "We had trouble analyzing this outfit in detail, but it looks put together overall.",
		WhatsWorking: []FeedbackPoint{
			{
				Point:  "Overall impression",
				Detail: "The outfit reads as intentional and well assembled at a glance.",
			},
		},
		Consider: []FeedbackPoint{
			{
				Point:  "Try again",
				Detail: "Our stylist could not finish a detailed review this time. Retry the analysis for a full breakdown.",
			},
		},
		QuickFixes: []QuickFix{},
		OccasionMatch: OccasionMatch{
			Score: &occasionScore,
			Notes: "We could not fully assess the occasion match this time.",
		},
		StyleDNA: StyleDNA{
			DominantColors:  []string{},
			StyleArchetypes: []string{},
			Garments:        []string{},
			Patterns:        []string{},
			Textures:        []string{},
			FormalityLevel:  &formality,
		},
	}
}
