package geometry

import (
	"fmt"
	"sync"

	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"
)

// Extractor pulls a coordinate out of an indexed item. Returning false
// excludes the item from the index; missing coordinates are not an error
// for the batch.
type Extractor func(item interface{}) (orb.Point, bool)

type indexEntry struct {
	point orb.Point
	item  interface{}
}

// IndexManager holds named spatial indexes over item sets for repeated
// polygon queries. Build replaces a named index wholesale, so a query never
// observes a half-built index; staleness after an extraction-rule change is
// the caller's to fix by rebuilding.
type IndexManager struct {
	mu      sync.RWMutex
	indexes map[string][]indexEntry
	logger  *logrus.Logger
}

// NewIndexManager creates an empty index manager.
func NewIndexManager(logger *logrus.Logger) *IndexManager {
	return &IndexManager{
		indexes: make(map[string][]indexEntry),
		logger:  logger,
	}
}

// Build indexes items by coordinate under the given name, replacing any
// previous index with that name. Items without a usable coordinate are
// skipped.
func (m *IndexManager) Build(name string, items []interface{}, extract Extractor) {
	entries := make([]indexEntry, 0, len(items))
	skipped := 0
	for _, item := range items {
		point, ok := extract(item)
		if !ok {
			skipped++
			continue
		}
		entries = append(entries, indexEntry{point: point, item: item})
	}

	m.mu.Lock()
	m.indexes[name] = entries
	m.mu.Unlock()

	if skipped > 0 {
		m.logger.WithFields(logrus.Fields{
			"index":   name,
			"indexed": len(entries),
			"skipped": skipped,
		}).Debug("Built spatial index with items missing coordinates")
	}
}

// FindInArea returns every indexed item whose point lies inside the polygon.
func (m *IndexManager) FindInArea(name string, polygon orb.Ring) ([]interface{}, error) {
	m.mu.RLock()
	entries, ok := m.indexes[name]
	m.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("spatial index %q has not been built", name)
	}

	var matches []interface{}
	for _, entry := range entries {
		if PointInPolygon(entry.point, polygon) {
			matches = append(matches, entry.item)
		}
	}
	return matches, nil
}

// Size returns the number of indexed items, or -1 when the index does not
// exist.
func (m *IndexManager) Size(name string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries, ok := m.indexes[name]
	if !ok {
		return -1
	}
	return len(entries)
}
