package normalize

import "github.com/personaforge/personaforge-backend/internal/domain"

// Category weights for the richness score. Taste-defining categories (music,
// brands, social media) say more about a persona than long-tail ones
// (podcasts, video games).
var categoryWeights = map[string]float64{
	"music":      1.5,
	"brands":     1.4,
	"socialMedia": 1.3,
	"movies":     1.2,
	"tvShows":    1.1,
	"books":      1.0,
	"fashion":    1.0,
	"food":       0.9,
	"travel":     0.9,
	"podcasts":   0.7,
	"videoGames": 0.6,
}

const (
	diversityHighCount  = 8
	diversityHighBonus  = 1.2
	diversityMidCount   = 5
	diversityMidBonus   = 1.1
	richnessHighScore   = 60.0
	richnessHighCats    = 7
	richnessMediumScore = 25.0
	richnessMediumCats  = 4
)

// richnessScore sums itemCount x categoryWeight over populated categories,
// then applies a diversity bonus: a persona with a few deep categories is
// narrower than one with broad coverage at the same item count.
func richnessScore(cultural map[string][]string) (score float64, populated int) {
	for cat, items := range cultural {
		if len(items) == 0 {
			continue
		}
		populated++
		w, ok := categoryWeights[cat]
		if !ok {
			w = 0.5
		}
		score += float64(len(items)) * w
	}
	switch {
	case populated >= diversityHighCount:
		score *= diversityHighBonus
	case populated >= diversityMidCount:
		score *= diversityMidBonus
	}
	return score, populated
}

// CulturalRichness classifies how much cultural data a persona carries.
// Adding items to any category never lowers the bucket.
func CulturalRichness(cultural map[string][]string) string {
	score, populated := richnessScore(cultural)
	switch {
	case score > richnessHighScore && populated >= richnessHighCats:
		return domain.RichnessHigh
	case score > richnessMediumScore && populated >= richnessMediumCats:
		return domain.RichnessMedium
	default:
		return domain.RichnessLow
	}
}

// QualityLevel is a straight threshold ladder over the 0-100 quality score.
func QualityLevel(score float64) string {
	switch {
	case score >= 90:
		return domain.QualityExcellent
	case score >= 75:
		return domain.QualityGood
	case score >= 60:
		return domain.QualityFair
	default:
		return domain.QualityPoor
	}
}
