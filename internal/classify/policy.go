package classify

// Confidence buckets reported alongside a theme mapping. Raw model confidence
// is adjusted for evidence quality before bucketing, so a mapping that failed
// search verification can never land in the same bucket as one that passed
// with the same raw score.
const (
	BucketHigh   = "high"
	BucketMedium = "medium"
	BucketLow    = "low"

	bucketHighMin   = 0.85
	bucketMediumMin = 0.70
)

// Policy holds the confidence adjustment knobs.
type Policy struct {
	// VerificationPenalty multiplies confidence when search verification
	// contradicts the initial classification.
	VerificationPenalty float64
	// NoWebsitePenalty multiplies confidence when no website evidence was
	// available (missing URL or failed scrape).
	NoWebsitePenalty float64
}

// Adjust applies evidence-quality penalties to a raw model confidence and
// clamps the result to [0, 1].
func (p Policy) Adjust(raw float64, verificationPassed, websiteAvailable bool) float64 {
	adjusted := raw
	if !verificationPassed {
		adjusted *= p.VerificationPenalty
	}
	if !websiteAvailable {
		adjusted *= p.NoWebsitePenalty
	}
	if adjusted < 0 {
		return 0
	}
	if adjusted > 1 {
		return 1
	}
	return adjusted
}

// Bucket maps an adjusted confidence to its reporting bucket.
func Bucket(adjusted float64) string {
	switch {
	case adjusted >= bucketHighMin:
		return BucketHigh
	case adjusted >= bucketMediumMin:
		return BucketMedium
	default:
		return BucketLow
	}
}
