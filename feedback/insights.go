package feedback

import (
	"fmt"
	"sort"
	"strings"

	"fitcheckapi/models"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
)

const fingerprintWindow = 20
const minFingerprints = 3

// cases.Caser is stateful, build one per call site instead of sharing
func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

// StyleInsights derives up to four short personalization lines from the
// user's recent fingerprint history. Every rule is independent and silently
// skipped when its group does not qualify, a short history just means fewer
// lines, never an error.
func StyleInsights(db *gorm.DB, userID uint) ([]string, error) {
	var fingerprints []models.StyleFingerprint
	result := db.Where("user_account_id = ?", userID).
		Order("created_at desc").
		Limit(fingerprintWindow).
		Find(&fingerprints)
	if result.Error != nil {
		return nil, result.Error
	}
	if len(fingerprints) < minFingerprints {
		return []string{}, nil
	}

	insights := []string{}
	if line := bestHarmonyInsight(fingerprints); line != "" {
		insights = append(insights, line)
	}
	insights = append(insights, dimensionInsights(fingerprints)...)
	if line := dominantArchetypeInsight(fingerprints); line != "" {
		insights = append(insights, line)
	}
	if line := bestColorsInsight(fingerprints); line != "" {
		insights = append(insights, line)
	}
	return insights, nil
}

func bestHarmonyInsight(fingerprints []models.StyleFingerprint) string {
	sums := map[string]float64{}
	counts := map[string]int{}
	for _, fp := range fingerprints {
		if fp.ColorHarmony == nil || *fp.ColorHarmony == "" {
			continue
		}
		sums[*fp.ColorHarmony] += fp.Score
		counts[*fp.ColorHarmony]++
	}

	bestLabel := ""
	bestMean := 0.0
	for label, count := range counts {
		if count < 2 {
			continue
		}
		mean := sums[label] / float64(count)
		if bestLabel == "" || mean > bestMean {
			bestLabel = label
			bestMean = mean
		}
	}
	if bestLabel == "" {
		return ""
	}
	return fmt.Sprintf("%s color schemes score highest for this user (avg %.1f/10)", titleCase(bestLabel), bestMean)
}

var scoreDimensions = []string{"color", "proportion", "fit", "coherence"}

func dimensionInsights(fingerprints []models.StyleFingerprint) []string {
	sums := map[string]float64{}
	complete := 0
	for _, fp := range fingerprints {
		if fp.ColorScore == nil || fp.ProportionScore == nil || fp.FitScore == nil || fp.CoherenceScore == nil {
			continue
		}
		complete++
		sums["color"] += *fp.ColorScore
		sums["proportion"] += *fp.ProportionScore
		sums["fit"] += *fp.FitScore
		sums["coherence"] += *fp.CoherenceScore
	}
	if complete < minFingerprints {
		return nil
	}

	ranked := make([]string, len(scoreDimensions))
	copy(ranked, scoreDimensions)
	sort.SliceStable(ranked, func(i, j int) bool {
		return sums[ranked[i]] > sums[ranked[j]]
	})

	strongest := ranked[0]
	weakest := ranked[len(ranked)-1]
	return []string{
		fmt.Sprintf("Their strongest area is %s (avg %.1f/10)", strongest, sums[strongest]/float64(complete)),
		fmt.Sprintf("Their growth area is %s (avg %.1f/10)", weakest, sums[weakest]/float64(complete)),
	}
}

func dominantArchetypeInsight(fingerprints []models.StyleFingerprint) string {
	counts := map[string]int{}
	for _, fp := range fingerprints {
		seen := map[string]bool{}
		for _, tag := range fp.StyleArchetypes {
			tag = strings.ToLower(strings.TrimSpace(tag))
			if tag == "" || seen[tag] {
				continue
			}
			seen[tag] = true
			counts[tag]++
		}
	}

	topTag := ""
	topCount := 0
	for tag, count := range counts {
		if count > topCount {
			topTag = tag
			topCount = count
		}
	}
	if topCount < 3 {
		return ""
	}
	return fmt.Sprintf("Their dominant style is %s (%d of their last %d outfits)", titleCase(topTag), topCount, len(fingerprints))
}

func bestColorsInsight(fingerprints []models.StyleFingerprint) string {
	sums := map[string]float64{}
	counts := map[string]int{}
	for _, fp := range fingerprints {
		for _, color := range fp.DominantColors {
			color = strings.ToLower(strings.TrimSpace(color))
			if color == "" {
				continue
			}
			sums[color] += fp.Score
			counts[color]++
		}
	}

	type colorMean struct {
		color string
		mean  float64
	}
	qualifying := []colorMean{}
	for color, count := range counts {
		if count < 2 {
			continue
		}
		qualifying = append(qualifying, colorMean{color: color, mean: sums[color] / float64(count)})
	}
	if len(qualifying) == 0 {
		return ""
	}
	sort.SliceStable(qualifying, func(i, j int) bool {
		if qualifying[i].mean != qualifying[j].mean {
			return qualifying[i].mean > qualifying[j].mean
		}
		return qualifying[i].color < qualifying[j].color
	})
	if len(qualifying) > 3 {
		qualifying = qualifying[:3]
	}

	names := make([]string, 0, len(qualifying))
	for _, cm := range qualifying {
		names = append(names, titleCase(cm.color))
	}
	return fmt.Sprintf("Their best performing colors are %s", strings.Join(names, ", "))
}
