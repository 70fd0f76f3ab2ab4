// Package evaluation derives a defensible price corridor for a subject
// property from user judgments against catalog objects.
package evaluation

import (
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"propstack/server/internal/models"
)

// Session owns the evaluation map and derived corridors for one subject
// property. A session is never shared between two concurrent analyses; its
// own lock only guards against the debounced recomputer.
type Session struct {
	mu          sync.Mutex
	objects     map[string]*models.RealEstateObject
	evaluations map[string]models.EvaluationKind
	order       []string
	logger      *logrus.Logger
}

// NewSession starts an empty analysis session over the given object
// snapshot.
func NewSession(objects []*models.RealEstateObject, logger *logrus.Logger) *Session {
	byID := make(map[string]*models.RealEstateObject, len(objects))
	for _, object := range objects {
		byID[object.ID] = object
	}
	return &Session{
		objects:     byID,
		evaluations: make(map[string]models.EvaluationKind),
		logger:      logger,
	}
}

// Evaluate records a judgment for a catalog object. Unsupported kinds and
// unknown objects are rejected without touching session state.
func (s *Session) Evaluate(objectID string, kind models.EvaluationKind) error {
	if !kind.Valid() {
		return models.InvalidArgumentError("unsupported evaluation kind %q", kind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.objects[objectID]; !ok {
		return models.NotFoundError("objects", objectID)
	}
	if _, seen := s.evaluations[objectID]; !seen {
		s.order = append(s.order, objectID)
	}
	s.evaluations[objectID] = kind
	return nil
}

// Remove clears a single evaluation.
func (s *Session) Remove(objectID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, seen := s.evaluations[objectID]; !seen {
		return
	}
	delete(s.evaluations, objectID)
	for i, id := range s.order {
		if id == objectID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Clear drops every evaluation in the session.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evaluations = make(map[string]models.EvaluationKind)
	s.order = nil
}

// Entries returns the evaluations as an ordered list of {object_id,
// evaluation} pairs, the form the session persists and restores verbatim.
func (s *Session) Entries() []models.EvaluationEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]models.EvaluationEntry, 0, len(s.order))
	for _, id := range s.order {
		entries = append(entries, models.EvaluationEntry{ObjectID: id, Evaluation: s.evaluations[id]})
	}
	return entries
}

// Restore replaces the session's evaluations with previously persisted
// entries. Entries for unknown objects are kept; the corridor math skips
// them until the object snapshot catches up.
func (s *Session) Restore(entries []models.EvaluationEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evaluations = make(map[string]models.EvaluationKind, len(entries))
	s.order = make([]string, 0, len(entries))
	for _, entry := range entries {
		if _, seen := s.evaluations[entry.ObjectID]; !seen {
			s.order = append(s.order, entry.ObjectID)
		}
		s.evaluations[entry.ObjectID] = entry.Evaluation
	}
}

// CorridorBounds computes the {min,max} bounds one status bucket places on
// the subject's price. A competitor judged better caps the ceiling at its
// price; one judged worse raises the floor. Equal is informational and
// excluded kinds are skipped entirely. The result is never inverted: an
// impossible bucket collapses to {nil, nil}.
func (s *Session) CorridorBounds(status models.ObjectStatus) models.PriceCorridor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.corridorBoundsLocked(status)
}

func (s *Session) corridorBoundsLocked(status models.ObjectStatus) models.PriceCorridor {
	var corridor models.PriceCorridor

	for id, kind := range s.evaluations {
		if kind.Excluded() {
			continue
		}
		object, ok := s.objects[id]
		if !ok || object.Status != status || object.CurrentPrice <= 0 {
			continue
		}

		price := object.CurrentPrice
		switch kind {
		case models.EvalBetter:
			if corridor.Max == nil || price < *corridor.Max {
				corridor.Max = &price
			}
		case models.EvalWorse:
			if corridor.Min == nil || price > *corridor.Min {
				corridor.Min = &price
			}
		}
	}

	if corridor.Min != nil && corridor.Max != nil && *corridor.Min > *corridor.Max {
		return models.PriceCorridor{}
	}
	return corridor
}

// Corridors computes the active and archive bounds plus their optimal
// intersection.
func (s *Session) Corridors() models.Corridors {
	s.mu.Lock()
	defer s.mu.Unlock()

	active := s.corridorBoundsLocked(models.ObjectActive)
	archive := s.corridorBoundsLocked(models.ObjectArchive)
	return models.Corridors{
		Active:  active,
		Archive: archive,
		Optimal: optimalRange(active, archive),
	}
}

// optimalRange intersects the active and archive corridors. A missing bound
// contributes no constraint from its side; a non-intersecting pair
// collapses to {nil, nil} rather than reporting an inverted interval.
func optimalRange(active, archive models.PriceCorridor) models.PriceCorridor {
	var optimal models.PriceCorridor

	optimal.Min = tighterBound(active.Min, archive.Min, func(a, b float64) bool { return a > b })
	optimal.Max = tighterBound(active.Max, archive.Max, func(a, b float64) bool { return a < b })

	if optimal.Min != nil && optimal.Max != nil && *optimal.Min > *optimal.Max {
		return models.PriceCorridor{}
	}
	return optimal
}

func tighterBound(a, b *float64, wins func(a, b float64) bool) *float64 {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case wins(*a, *b):
		return a
	default:
		return b
	}
}

// AutoDetectOverpriced reclassifies contradictory "worse" evaluations to
// "not-sold". A competitor marked worse should not be priced above a
// competitor marked better while the better one was still on the market;
// when it is, the worse listing was overpriced, not inferior. The window
// check is one-directional on purpose. Reports whether anything changed so
// the caller can surface a one-time notice; re-running is a no-op.
func (s *Session) AutoDetectOverpriced() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	type reference struct {
		object *models.RealEstateObject
	}
	var betters []reference
	for id, kind := range s.evaluations {
		if kind != models.EvalBetter {
			continue
		}
		object, ok := s.objects[id]
		if !ok || object.CurrentPrice <= 0 {
			continue
		}
		betters = append(betters, reference{object: object})
	}
	if len(betters) == 0 {
		return false
	}
	// Deterministic scan order for reproducible logs.
	sort.Slice(betters, func(i, j int) bool { return betters[i].object.ID < betters[j].object.ID })

	changed := false
	for id, kind := range s.evaluations {
		if kind != models.EvalWorse {
			continue
		}
		object, ok := s.objects[id]
		if !ok || object.CurrentPrice <= 0 || object.UpdatedAt.IsZero() {
			continue
		}

		for _, better := range betters {
			b := better.object
			overlaps := !object.UpdatedAt.Before(b.CreatedAt) && !object.UpdatedAt.After(b.UpdatedAt)
			if object.CurrentPrice > b.CurrentPrice && overlaps {
				s.evaluations[id] = models.EvalNotSold
				changed = true
				s.logger.WithFields(logrus.Fields{
					"object_id":    id,
					"price":        object.CurrentPrice,
					"reference_id": b.ID,
				}).Info("Reclassified overpriced competitor to not-sold")
				break
			}
		}
	}
	return changed
}
