// Package scoring implements the weighted two-level rollup that turns
// per-criterion scores into category subtotals and a theme-level total.
package scoring

import (
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/tpeters15/theme-score-nexus/internal/model"
)

// Scale bounds for the canonical scoring scale.
const (
	ScaleMin = 0
	ScaleMax = 100
)

// CategoryResult is the rollup for a single category.
type CategoryResult struct {
	CategoryID string  `json:"category_id"`
	Name       string  `json:"name"`
	Weight     float64 `json:"weight"`
	Score      float64 `json:"score"`
	Scored     int     `json:"scored_criteria"`
	Criteria   int     `json:"total_criteria"`
	Analyzed   bool    `json:"analyzed"`
}

// Result is the theme-level rollup. Analyzed is false when no criterion has a
// recorded score; Total is meaningless in that case and callers must render
// the theme as "not yet analyzed" rather than as a zero score.
type Result struct {
	Total          float64          `json:"total"`
	Analyzed       bool             `json:"analyzed"`
	Confidence     model.Confidence `json:"confidence,omitempty"`
	HasConfidence  bool             `json:"has_confidence"`
	Categories     []CategoryResult `json:"categories"`
	ScoredCriteria int              `json:"scored_criteria"`
	TotalCriteria  int              `json:"total_criteria"`
}

// ValidateFramework rejects malformed weight data before any computation.
// Negative or non-finite weights are configuration errors, not scores of zero.
func ValidateFramework(categories []model.Category) error {
	var errs []string
	for _, c := range categories {
		if c.Weight < 0 || math.IsNaN(c.Weight) || math.IsInf(c.Weight, 0) {
			errs = append(errs, fmt.Sprintf("category %s: invalid weight %v", c.ID, c.Weight))
		}
		for _, cr := range c.Criteria {
			if cr.Weight < 0 || math.IsNaN(cr.Weight) || math.IsInf(cr.Weight, 0) {
				errs = append(errs, fmt.Sprintf("criterion %s: invalid weight %v", cr.ID, cr.Weight))
			}
		}
	}
	if len(errs) > 0 {
		return eris.Errorf("scoring: framework validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// ValidateValue checks a score against the canonical scale bounds.
func ValidateValue(v float64) error {
	if math.IsNaN(v) || v < ScaleMin || v > ScaleMax {
		return eris.Errorf("scoring: value %v outside [%d, %d]", v, ScaleMin, ScaleMax)
	}
	return nil
}

// Aggregate computes the weighted rollup for one theme. scores is keyed by
// criterion ID and may be sparse; criteria without a recorded score are
// excluded from both the numerator and denominator of their category, and
// categories with zero scored criteria are excluded from the theme total.
//
// Aggregate is pure: it never mutates its inputs and is deterministic for a
// given score set.
func Aggregate(categories []model.Category, scores map[string]model.DetailedScore) (*Result, error) {
	if err := ValidateFramework(categories); err != nil {
		return nil, err
	}

	res := &Result{Categories: make([]CategoryResult, 0, len(categories))}

	var themeNum, themeDen float64
	for _, cat := range categories {
		cr := CategoryResult{
			CategoryID: cat.ID,
			Name:       cat.Name,
			Weight:     cat.Weight,
			Criteria:   len(cat.Criteria),
		}

		var num, den float64
		for _, criterion := range cat.Criteria {
			s, ok := scores[criterion.ID]
			if !ok {
				continue
			}
			if err := ValidateValue(s.Value); err != nil {
				return nil, eris.Wrapf(err, "scoring: criterion %s", criterion.ID)
			}
			num += s.Value * criterion.Weight
			den += criterion.Weight
			cr.Scored++
		}

		// The scored subset's weights act as if they summed to 100 within
		// the category. A category whose only scored criteria carry weight 0
		// contributes nothing and stays unanalyzed.
		if cr.Scored > 0 && den > 0 {
			cr.Score = num / den
			cr.Analyzed = true
			themeNum += cr.Score * cat.Weight
			themeDen += cat.Weight
		}

		res.ScoredCriteria += cr.Scored
		res.TotalCriteria += cr.Criteria
		res.Categories = append(res.Categories, cr)
	}

	if themeDen > 0 {
		res.Total = themeNum / themeDen
		res.Analyzed = true
	}

	res.Confidence, res.HasConfidence = RollupConfidence(scores)

	return res, nil
}
