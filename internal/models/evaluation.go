package models

// EvaluationKind is a user judgment comparing a catalog object against the
// subject property of an analysis session.
type EvaluationKind string

const (
	EvalBetter        EvaluationKind = "better"
	EvalWorse         EvaluationKind = "worse"
	EvalEqual         EvaluationKind = "equal"
	EvalFake          EvaluationKind = "fake"
	EvalNotCompetitor EvaluationKind = "not-competitor"
	EvalNotSold       EvaluationKind = "not-sold"
)

// Valid reports whether the kind is one of the supported judgments.
func (k EvaluationKind) Valid() bool {
	switch k {
	case EvalBetter, EvalWorse, EvalEqual, EvalFake, EvalNotCompetitor, EvalNotSold:
		return true
	}
	return false
}

// Excluded reports whether the kind is ignored by corridor and confidence
// computation.
func (k EvaluationKind) Excluded() bool {
	return k == EvalFake || k == EvalNotCompetitor || k == EvalNotSold
}

// EvaluationEntry is the persisted form of one evaluation. Sessions
// serialize their evaluation map as an ordered list of these pairs, keeping
// the object id in its native string form.
type EvaluationEntry struct {
	ObjectID   string         `json:"object_id"`
	Evaluation EvaluationKind `json:"evaluation"`
}

// PriceCorridor is a {min,max} price range for one market-status bucket.
// A nil bound means "unbounded on that side" or "undetermined". A corridor
// is never reported inverted: when a calculation would produce min > max the
// bucket collapses to {nil, nil} instead.
type PriceCorridor struct {
	Min *float64 `json:"min"`
	Max *float64 `json:"max"`
}

// Defined reports whether at least one bound is set.
func (c PriceCorridor) Defined() bool {
	return c.Min != nil || c.Max != nil
}

// Corridors groups the three corridor buckets a session derives.
type Corridors struct {
	Active  PriceCorridor `json:"active"`
	Archive PriceCorridor `json:"archive"`
	Optimal PriceCorridor `json:"optimal"`
}

// Confidence is the coarse score backing the current corridor, with
// advisory text for presentation.
type Confidence struct {
	Level          int    `json:"level"`
	Message        string `json:"message"`
	Recommendation string `json:"recommendation"`
}
