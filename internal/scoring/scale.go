package scoring

import (
	"math"

	"github.com/rotisserie/eris"
)

// FromFivePoint converts a legacy five-point (1-5) score to the canonical
// 0-100 scale. The two scales coexisted historically; all persistence is on
// the canonical scale and conversion happens only at ingestion boundaries.
func FromFivePoint(v float64) (float64, error) {
	if math.IsNaN(v) || v < 1 || v > 5 {
		return 0, eris.Errorf("scoring: five-point value %v outside [1, 5]", v)
	}
	return (v - 1) * 25, nil
}
