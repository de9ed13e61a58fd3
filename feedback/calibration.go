package feedback

import (
	"fmt"
	"math"

	"fitcheckapi/models"

	"gorm.io/gorm"
)

const calibrationWindow = 100
const minCalibrationSamples = 10
const minPeerVotes = 3
const calibrationThreshold = 0.3

// CalibrationNote compares recent automated scores against peer consensus
// and returns a directional note when they drift apart by more than the
// threshold. The note is advisory prompt context only, persisted scores are
// never adjusted.
func CalibrationNote(db *gorm.DB) (*string, error) {
	var analyses []models.OutfitAnalysis
	result := db.Where("ai_score is not null and peer_vote_count >= ?", minPeerVotes).
		Order("created_at desc").
		Limit(calibrationWindow).
		Find(&analyses)
	if result.Error != nil {
		return nil, result.Error
	}
	if len(analyses) < minCalibrationSamples {
		return nil, nil
	}

	var deltaSum float64
	for _, analysis := range analyses {
		deltaSum += *analysis.AIScore - analysis.PeerAverage()
	}
	meanDelta := deltaSum / float64(len(analyses))
	if math.Abs(meanDelta) <= calibrationThreshold {
		return nil, nil
	}

	direction := "higher"
	if meanDelta < 0 {
		direction = "lower"
	}
	note := fmt.Sprintf(
		"Your scores have been running %.1f points %s than peer consensus across recent outfits. Adjust your scoring toward how the crowd perceives outfits.",
		math.Abs(meanDelta), direction,
	)
	return &note, nil
}
