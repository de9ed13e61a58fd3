package models

import (
	"time"

	"github.com/lib/pq"
)

type OutfitAnalysis struct {
	JsonModel
	Owner   UserAccount `json:"-"`
	OwnerID uint        `json:"-"`

	// submission context
	Occasions        pq.StringArray `gorm:"type:text[];not null" json:"occasions"`
	Setting          *string        `json:"setting"`
	Weather          *string        `json:"weather"`
	Vibe             *string        `json:"vibe"`
	SpecificConcerns *string        `gorm:"type:text" json:"specific_concerns"`

	// exactly one of these is set: a storage key the client uploaded to,
	// or an inline base64 payload for small images
	ImageKey    *string `json:"image_key"`
	InlineImage *string `gorm:"type:text" json:"-"`

	Status string `json:"status"` // pending, processing, completed

	// produced feedback, replaced wholesale on reanalysis
	AIFeedback  *string    `gorm:"type:text" json:"ai_feedback"`
	AIScore     *float64   `json:"ai_score"`
	ProcessedAt *time.Time `json:"processed_at"`

	// denormalized peer consensus, maintained on rating submit
	PeerScoreSum  float64 `json:"-"`
	PeerVoteCount int     `json:"peer_vote_count"`

	AlertWhenProcessed     bool    `json:"alert_when_processed"`
	RetryTimes             int     `json:"-"`
	ProcessingErrorMessage *string `json:"processing_error_message"`

	InputTokenCount            *int32  `json:"prompt_token_count"`
	ThoughtsTokenCount         *int32  `json:"thoughts_token_count"`
	OutputTokenCount           *int32  `json:"output_token_count"`
	TotalTokenCount            *int32  `json:"total_token_count"`
	Thoughts                   *string `gorm:"type:text" json:"-"`
	LLMModel                   *string `json:"llm_model"`
	FailedToProcessLLMResponse string  `gorm:"type:text" json:"-"`
}

// PeerAverage returns the mean community score, or 0 when unrated.
func (a *OutfitAnalysis) PeerAverage() float64 {
	if a.PeerVoteCount == 0 {
		return 0
	}
	return a.PeerScoreSum / float64(a.PeerVoteCount)
}

// StyleFingerprint is the append-only per-outfit attribute history row used
// for personalization aggregates. At most one exists per analysis; reanalysis
// replaces the row in place rather than appending a duplicate.
type StyleFingerprint struct {
	JsonModel
	UserAccountID    uint           `gorm:"index" json:"-"`
	UserAccount      UserAccount    `json:"-"`
	OutfitAnalysisID uint           `gorm:"uniqueIndex" json:"-"`
	OutfitAnalysis   OutfitAnalysis `json:"-"`

	// overall automated score at capture time
	Score float64 `json:"score"`

	DominantColors  pq.StringArray `gorm:"type:text[]" json:"dominant_colors"`
	ColorHarmony    *string        `json:"color_harmony"` // complementary, analogous, monochromatic, triadic, neutral
	ColorCount      *int           `json:"color_count"`
	FormalityLevel  *int           `json:"formality_level"` // 1-5
	StyleArchetypes pq.StringArray `gorm:"type:text[]" json:"style_archetypes"`
	SilhouetteType  *string        `json:"silhouette_type"`
	Garments        pq.StringArray `gorm:"type:text[]" json:"garments"`
	Patterns        pq.StringArray `gorm:"type:text[]" json:"patterns"`
	Textures        pq.StringArray `gorm:"type:text[]" json:"textures"`

	ColorScore      *float64 `json:"color_score"`
	ProportionScore *float64 `json:"proportion_score"`
	FitScore        *float64 `json:"fit_score"`
	CoherenceScore  *float64 `json:"coherence_score"`
}

// FollowUpExchange is one question/answer turn anchored to an analysis.
// Rows are immutable once written.
type FollowUpExchange struct {
	JsonModel
	OutfitAnalysisID uint           `gorm:"index" json:"-"`
	OutfitAnalysis   OutfitAnalysis `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	UserQuestion     string         `gorm:"type:text;not null" json:"userQuestion"`
	AIResponse       string         `gorm:"type:text;not null" json:"aiResponse"`
}

type PeerRating struct {
	JsonModel
	OutfitAnalysisID uint           `gorm:"uniqueIndex:idx_rating_analysis_rater" json:"-"`
	OutfitAnalysis   OutfitAnalysis `json:"-"`
	RaterID          uint           `gorm:"uniqueIndex:idx_rating_analysis_rater" json:"-"`
	Score            float64        `json:"score"`
}
