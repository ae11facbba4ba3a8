// Package classifier routes natural-language analytics questions to a fixed
// set of query intents using weighted keyword scoring, with an optional
// model fallback for low-confidence inputs.
package classifier

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/cohortiq-inc/cohortiq-engine/pkg/models"
)

// groupedTieBreakBoost nudges kpi_grouped ahead of kpi_single when a query
// carries both a grouping word and a grouped-stats word. Without it the two
// types tie on shared vocabulary and kpi_single wins on declaration order.
const groupedTieBreakBoost = 0.5

// ClassifyByKeywords scores the input against the static keyword tables and
// returns the winning type with a tiered confidence. Pure function; safe for
// concurrent use.
func ClassifyByKeywords(input, industry string) models.QueryTypeClassification {
	lower := strings.ToLower(input)

	bestType := models.QueryTypeUnknown
	bestScore := 0.0
	var bestMatched []string

	for _, qt := range queryTypeOrder {
		entry := keywordTable[qt]
		score := 0.0
		primaryHits := 0
		secondaryHits := 0
		var matched []string

		for _, kw := range entry.Primary {
			if strings.Contains(lower, strings.ToLower(kw)) {
				score += 2
				primaryHits++
				matched = append(matched, kw)
			}
		}
		for _, kw := range entry.Secondary {
			if strings.Contains(lower, strings.ToLower(kw)) {
				score++
				secondaryHits++
				matched = append(matched, kw)
			}
		}

		if qt == models.QueryTypeKPIGrouped && primaryHits > 0 && secondaryHits > 0 {
			score += groupedTieBreakBoost
		}

		// Strictly greater keeps the earliest type on ties.
		if score > bestScore {
			bestScore = score
			bestType = qt
			bestMatched = matched
		}
	}

	if bestScore == 0 {
		return models.QueryTypeClassification{
			QueryType:  models.QueryTypeUnknown,
			Confidence: 0,
			Method:     models.MethodKeyword,
		}
	}

	domainHit := hasDomainTerm(lower, industry)
	confidence := scoreConfidence(bestScore, domainHit)

	result := models.QueryTypeClassification{
		QueryType:       bestType,
		Confidence:      confidence,
		MatchedKeywords: bestMatched,
		Method:          models.MethodKeyword,
	}
	if bestType == models.QueryTypeTopN {
		result.TopN = extractTopN(lower)
	}
	return result
}

// scoreConfidence maps a raw keyword score to a confidence tier.
func scoreConfidence(score float64, domainHit bool) float64 {
	switch {
	case score >= 4:
		if domainHit {
			return 1.0
		}
		return 0.9
	case score >= 2 && domainHit:
		return 1.0
	case score >= 2:
		return 0.75
	default:
		return 0.6
	}
}

// hasDomainTerm searches industry terms plus the general list. An empty
// industry searches every industry's terms.
func hasDomainTerm(lower, industry string) bool {
	if industry != "" {
		for _, term := range domainTerms[industry] {
			if strings.Contains(lower, strings.ToLower(term)) {
				return true
			}
		}
	} else {
		for _, terms := range domainTerms {
			for _, term := range terms {
				if strings.Contains(lower, strings.ToLower(term)) {
					return true
				}
			}
		}
	}
	for _, term := range generalDomainTerms {
		if strings.Contains(lower, strings.ToLower(term)) {
			return true
		}
	}
	return false
}

var (
	digitTopEN = regexp.MustCompile(`top\s*(\d+)`)
	digitTopZH = regexp.MustCompile(`前\s*(\d+)`)
)

// extractTopN pulls a literal count out of a top-N query. Digit forms take
// priority over the numeral-word table; returns 0 when nothing matches.
func extractTopN(lower string) int {
	for _, re := range []*regexp.Regexp{digitTopEN, digitTopZH} {
		if m := re.FindStringSubmatch(lower); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
				return n
			}
		}
	}
	for _, num := range chineseNumerals {
		if strings.Contains(lower, num.Word) {
			return num.Value
		}
	}
	return 0
}
