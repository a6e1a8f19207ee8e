// Package advisor ranks a canonical persona against its peer corpus and
// derives migration recommendations from concrete better-performing peers.
// Everything here is a request-time view; nothing is persisted.
package advisor

import (
	"fmt"
	"math"
	"sort"

	"github.com/personaforge/personaforge-backend/internal/domain"
)

type RecommendationType string

const (
	RecommendRegenerate     RecommendationType = "regenerate"
	RecommendValidate       RecommendationType = "validate"
	RecommendEnrich         RecommendationType = "enrich"
	RecommendTemplateUpdate RecommendationType = "template-update"
)

// Recommendation is a typed migration action. It always cites the peer
// evidence it was derived from: no recommendation is invented without a
// supporting peer data point.
type Recommendation struct {
	Type                RecommendationType `json:"type"`
	Priority            int                `json:"priority"`
	Title               string             `json:"title"`
	Description         string             `json:"description"`
	ExpectedImprovement float64            `json:"expectedImprovement"`
	ComparisonBasis     string             `json:"comparisonBasis"`
}

// RelatedPersona is one peer with its relevance score against the target.
type RelatedPersona struct {
	Persona *domain.Persona `json:"persona"`
	Score   float64         `json:"score"`
}

type PeerAverages struct {
	QualityScore    float64 `json:"qualityScore"`
	ValidationScore float64 `json:"validationScore"`
	RichnessRank    float64 `json:"richnessRank"`
}

// Comparison is the full advisory view of one persona against its corpus.
type Comparison struct {
	TotalPersonas   int              `json:"totalPersonas"`
	QualityRank     int              `json:"qualityRank"`
	ValidationRank  int              `json:"validationRank"`
	RichnessRank    int              `json:"richnessRank"`
	PeerAverages    PeerAverages     `json:"peerAverages"`
	Related         []RelatedPersona `json:"related"`
	Suggestions     []string         `json:"suggestions"`
	Recommendations []Recommendation `json:"recommendations"`
}

// Relevance signal weights. The legacy/modern mismatch bonus is deliberate:
// contrastive pairs make the most useful before/after comparisons.
const (
	weightSameSource       = 10.0
	weightBothSourced      = 7.0
	weightSameTemplate     = 8.0
	weightSameRichness     = 5.0
	weightValidationClose  = 5.0
	weightAgeClose         = 5.0
	weightSameLocation     = 6.0
	weightSameOccupation   = 6.0
	weightLegacyMismatch   = 4.0
	validationCloseScale   = 20.0
	ageCloseScale          = 10.0
	qualityBonusDivisor    = 20.0
	suggestionGapThreshold = 10.0
)

// Compare computes the advisory view of target against its same-owner
// peers. An empty corpus yields the neutral baseline rather than an error.
func Compare(target *domain.Persona, peers []*domain.Persona, topN int) *Comparison {
	cmp := &Comparison{
		TotalPersonas:   len(peers) + 1,
		QualityRank:     1,
		ValidationRank:  1,
		RichnessRank:    1,
		Related:         []RelatedPersona{},
		Suggestions:     []string{},
		Recommendations: []Recommendation{},
	}
	if len(peers) == 0 {
		return cmp
	}

	var qualitySum, validationSum, richnessSum float64
	for _, peer := range peers {
		if peer.QualityScore > target.QualityScore {
			cmp.QualityRank++
		}
		if peer.ValidationScore() > target.ValidationScore() {
			cmp.ValidationRank++
		}
		if domain.RichnessRank(peer.CulturalRichness) > domain.RichnessRank(target.CulturalRichness) {
			cmp.RichnessRank++
		}
		qualitySum += peer.QualityScore
		validationSum += peer.ValidationScore()
		richnessSum += float64(domain.RichnessRank(peer.CulturalRichness))
	}
	n := float64(len(peers))
	cmp.PeerAverages = PeerAverages{
		QualityScore:    qualitySum / n,
		ValidationScore: validationSum / n,
		RichnessRank:    richnessSum / n,
	}

	cmp.Related = rankRelated(target, peers, topN)
	cmp.Suggestions = buildSuggestions(target, peers, cmp.PeerAverages)
	cmp.Recommendations = buildRecommendations(target, peers)
	return cmp
}

func relevance(target, peer *domain.Persona) float64 {
	score := 0.0

	tGen, pGen := target.Generation(), peer.Generation()
	switch {
	case tGen != nil && pGen != nil && tGen.Source == pGen.Source:
		score += weightSameSource
	case tGen != nil && pGen != nil:
		// Any comparable provenance beats none at all.
		score += weightBothSourced
	}

	tVal, pVal := target.Validation(), peer.Validation()
	if tVal != nil && pVal != nil && tVal.TemplateID == pVal.TemplateID && tVal.TemplateID != "" {
		score += weightSameTemplate
	}

	if target.CulturalRichness == peer.CulturalRichness {
		score += weightSameRichness
	}

	if tVal != nil && pVal != nil {
		diff := math.Abs(tVal.Score - pVal.Score)
		if bonus := weightValidationClose - diff/validationCloseScale; bonus > 0 {
			score += bonus
		}
	}

	tAge := target.Demographics.Data().Age
	pAge := peer.Demographics.Data().Age
	if tAge > 0 && pAge > 0 {
		diff := math.Abs(float64(tAge - pAge))
		if bonus := weightAgeClose - diff/ageCloseScale; bonus > 0 {
			score += bonus
		}
	}

	tDemo, pDemo := target.Demographics.Data(), peer.Demographics.Data()
	if tDemo.Location != "" && tDemo.Location == pDemo.Location {
		score += weightSameLocation
	}
	if tDemo.Occupation != "" && tDemo.Occupation == pDemo.Occupation {
		score += weightSameOccupation
	}

	score += peer.QualityScore / qualityBonusDivisor

	if target.IsLegacy != peer.IsLegacy {
		score += weightLegacyMismatch
	}
	return score
}

func rankRelated(target *domain.Persona, peers []*domain.Persona, topN int) []RelatedPersona {
	if topN <= 0 {
		topN = 5
	}
	ranked := make([]RelatedPersona, 0, len(peers))
	for _, peer := range peers {
		ranked = append(ranked, RelatedPersona{Persona: peer, Score: relevance(target, peer)})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	if len(ranked) > topN {
		ranked = ranked[:topN]
	}
	return ranked
}

func buildSuggestions(target *domain.Persona, peers []*domain.Persona, avg PeerAverages) []string {
	out := []string{}
	if avg.QualityScore-target.QualityScore > suggestionGapThreshold {
		out = append(out, fmt.Sprintf("quality score %.0f is more than %.0f points below the peer average %.0f; consider regenerating weak sections",
			target.QualityScore, suggestionGapThreshold, avg.QualityScore))
	}
	if target.Validation() == nil {
		out = append(out, "persona has never been validated; run validation to get a quality baseline")
	} else if avg.ValidationScore-target.ValidationScore() > suggestionGapThreshold {
		out = append(out, fmt.Sprintf("validation score %.0f trails the peer average %.0f; review the failed rules",
			target.ValidationScore(), avg.ValidationScore))
	}
	if float64(domain.RichnessRank(target.CulturalRichness)) < avg.RichnessRank {
		out = append(out, fmt.Sprintf("cultural richness is %s while peers average higher; run cultural enrichment", target.CulturalRichness))
	}
	if target.IsLegacy {
		for _, peer := range peers {
			if !peer.IsLegacy {
				out = append(out, "persona was generated by the legacy pipeline while modern peers exist; regenerate through the enhanced pipeline")
				break
			}
		}
	}
	if target.Generation() == nil {
		out = append(out, "persona has no generation metadata; migrate it to record provenance")
	}
	return out
}

// buildRecommendations derives typed actions from the best concrete peer for
// each gap. Peer citation is mandatory; with no supporting peer a
// recommendation is simply not emitted.
func buildRecommendations(target *domain.Persona, peers []*domain.Persona) []Recommendation {
	recs := []Recommendation{}

	if target.IsLegacy {
		if best := bestBy(peers, func(p *domain.Persona) (float64, bool) {
			if p.IsLegacy {
				return 0, false
			}
			return p.QualityScore, p.QualityScore > target.QualityScore
		}); best != nil {
			recs = append(recs, Recommendation{
				Type:                RecommendRegenerate,
				Priority:            1,
				Title:               "Regenerate through the enhanced pipeline",
				Description:         "This persona came from the legacy pipeline; regenerating it adds provenance, enrichment, and validation metadata.",
				ExpectedImprovement: best.QualityScore - target.QualityScore,
				ComparisonBasis:     fmt.Sprintf("modern peer %q scores %.0f quality vs this persona's %.0f", best.Name, best.QualityScore, target.QualityScore),
			})
		}
	}

	if target.Validation() == nil {
		if best := bestBy(peers, func(p *domain.Persona) (float64, bool) {
			v := p.Validation()
			if v == nil {
				return 0, false
			}
			return v.Score, true
		}); best != nil {
			recs = append(recs, Recommendation{
				Type:                RecommendValidate,
				Priority:            2,
				Title:               "Run template validation",
				Description:         "Validated peers expose rule-level quality data this persona is missing.",
				ExpectedImprovement: best.Validation().Score,
				ComparisonBasis:     fmt.Sprintf("peer %q carries a %.0f validation score from template %s", best.Name, best.Validation().Score, best.Validation().TemplateID),
			})
		}
	}

	targetRichness := domain.RichnessRank(target.CulturalRichness)
	if best := bestBy(peers, func(p *domain.Persona) (float64, bool) {
		rank := domain.RichnessRank(p.CulturalRichness)
		return float64(rank), rank > targetRichness
	}); best != nil {
		recs = append(recs, Recommendation{
			Type:                RecommendEnrich,
			Priority:            3,
			Title:               "Run cultural enrichment",
			Description:         "Richer cultural data makes segmentation and campaign targeting sharper.",
			ExpectedImprovement: float64(domain.RichnessRank(best.CulturalRichness)-targetRichness) * 10,
			ComparisonBasis:     fmt.Sprintf("peer %q sits in the %s richness bucket vs this persona's %s", best.Name, best.CulturalRichness, target.CulturalRichness),
		})
	}

	if tVal := target.Validation(); tVal != nil {
		if best := bestBy(peers, func(p *domain.Persona) (float64, bool) {
			v := p.Validation()
			if v == nil || v.TemplateID != tVal.TemplateID {
				return 0, false
			}
			return v.Score, v.TemplateVersion > tVal.TemplateVersion && v.Score > tVal.Score
		}); best != nil {
			recs = append(recs, Recommendation{
				Type:                RecommendTemplateUpdate,
				Priority:            4,
				Title:               "Re-validate against the newer template version",
				Description:         "Peers validated with a newer template version score higher; the current metadata is stale.",
				ExpectedImprovement: best.Validation().Score - tVal.Score,
				ComparisonBasis: fmt.Sprintf("peer %q validated with %s@%s scores %.0f vs this persona's %.0f on @%s",
					best.Name, best.Validation().TemplateID, best.Validation().TemplateVersion, best.Validation().Score, tVal.Score, tVal.TemplateVersion),
			})
		}
	}

	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Priority < recs[j].Priority })
	return recs
}

// bestBy returns the eligible peer with the highest metric, or nil when none
// qualifies.
func bestBy(peers []*domain.Persona, metric func(*domain.Persona) (float64, bool)) *domain.Persona {
	var best *domain.Persona
	bestScore := math.Inf(-1)
	for _, peer := range peers {
		score, ok := metric(peer)
		if !ok {
			continue
		}
		if score > bestScore {
			bestScore = score
			best = peer
		}
	}
	return best
}
