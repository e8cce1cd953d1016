package scoring

import "github.com/tpeters15/theme-score-nexus/internal/model"

// RollupConfidence returns the mode of the confidence labels recorded across
// a score set. Ties break toward the more pessimistic label, so two High and
// two Low report Low. The second return is false when no score carries a
// label; callers must report confidence as absent, not default it.
func RollupConfidence(scores map[string]model.DetailedScore) (model.Confidence, bool) {
	counts := map[model.Confidence]int{}
	for _, s := range scores {
		if s.Confidence.Valid() {
			counts[s.Confidence]++
		}
	}
	if len(counts) == 0 {
		return "", false
	}

	var best model.Confidence
	bestCount := -1
	for _, label := range []model.Confidence{model.ConfidenceLow, model.ConfidenceMedium, model.ConfidenceHigh} {
		if n := counts[label]; n > bestCount {
			best = label
			bestCount = n
		}
	}
	return best, true
}
