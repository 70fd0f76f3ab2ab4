package evaluation

import "propstack/server/internal/models"

// confidenceTier maps a band of valid evaluation counts to a score and
// advisory text. The text is presentation-only.
type confidenceTier struct {
	minValid       int
	level          int
	message        string
	recommendation string
}

var confidenceTiers = []confidenceTier{
	{9, 95, "Very high confidence", "The corridor is backed by a broad set of comparisons and is ready to present."},
	{6, 80, "High confidence", "The corridor is well supported; a few more comparisons would make it airtight."},
	{3, 60, "Moderate confidence", "Evaluate a few more competitors to firm up the corridor."},
	{1, 25, "Low confidence", "Only a couple of comparisons so far; treat the corridor as a rough sketch."},
	{0, 0, "No confidence", "Evaluate competitors against the subject property to build a corridor."},
}

// Confidence scores how well the current corridor is backed: a step
// function of the number of valid (non-excluded) evaluations. More valid
// evaluations never lower the level.
func (s *Session) Confidence() models.Confidence {
	s.mu.Lock()
	defer s.mu.Unlock()

	valid := 0
	for _, kind := range s.evaluations {
		if !kind.Excluded() {
			valid++
		}
	}

	for _, tier := range confidenceTiers {
		if valid >= tier.minValid {
			return models.Confidence{
				Level:          tier.level,
				Message:        tier.message,
				Recommendation: tier.recommendation,
			}
		}
	}
	return models.Confidence{}
}
