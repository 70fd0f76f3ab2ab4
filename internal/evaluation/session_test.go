package evaluation

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"propstack/server/internal/models"
)

func date(month, d int) time.Time {
	return time.Date(2025, time.Month(month), d, 0, 0, 0, 0, time.UTC)
}

func catalogObject(id string, status models.ObjectStatus, price float64) *models.RealEstateObject {
	return &models.RealEstateObject{
		ID:           id,
		Status:       status,
		CurrentPrice: price,
		CreatedAt:    date(1, 1),
		UpdatedAt:    date(1, 1),
	}
}

func newTestSession(objects ...*models.RealEstateObject) *Session {
	return NewSession(objects, logrus.New())
}

func TestEvaluate_Validation(t *testing.T) {
	session := newTestSession(catalogObject("o1", models.ObjectActive, 5000000))

	assert.ErrorIs(t, session.Evaluate("o1", "amazing"), models.ErrInvalidArgument)
	assert.ErrorIs(t, session.Evaluate("ghost", models.EvalBetter), models.ErrNotFound)
	assert.NoError(t, session.Evaluate("o1", models.EvalBetter))
}

func TestCorridorBounds(t *testing.T) {
	session := newTestSession(
		catalogObject("better", models.ObjectActive, 6000000),
		catalogObject("worse", models.ObjectActive, 4000000),
		catalogObject("equal", models.ObjectActive, 5000000),
		catalogObject("fake", models.ObjectActive, 1000000),
	)
	require.NoError(t, session.Evaluate("better", models.EvalBetter))
	require.NoError(t, session.Evaluate("worse", models.EvalWorse))
	require.NoError(t, session.Evaluate("equal", models.EvalEqual))
	require.NoError(t, session.Evaluate("fake", models.EvalFake))

	corridor := session.CorridorBounds(models.ObjectActive)
	require.NotNil(t, corridor.Min)
	require.NotNil(t, corridor.Max)
	// The worse competitor raises the floor, the better one caps the
	// ceiling; equal and excluded kinds move nothing.
	assert.Equal(t, 4000000.0, *corridor.Min)
	assert.Equal(t, 6000000.0, *corridor.Max)
}

func TestCorridorBounds_NeverInverted(t *testing.T) {
	session := newTestSession(
		catalogObject("better", models.ObjectActive, 4000000),
		catalogObject("worse", models.ObjectActive, 6000000),
	)
	require.NoError(t, session.Evaluate("better", models.EvalBetter))
	require.NoError(t, session.Evaluate("worse", models.EvalWorse))

	// min(6M) > max(4M): the bucket collapses instead of inverting.
	corridor := session.CorridorBounds(models.ObjectActive)
	assert.Nil(t, corridor.Min)
	assert.Nil(t, corridor.Max)
}

func TestCorridorBounds_SkipsNonPositivePrices(t *testing.T) {
	session := newTestSession(catalogObject("free", models.ObjectActive, 0))
	require.NoError(t, session.Evaluate("free", models.EvalBetter))

	corridor := session.CorridorBounds(models.ObjectActive)
	assert.False(t, corridor.Defined())
}

func TestOptimalRange_Intersection(t *testing.T) {
	session := newTestSession(
		catalogObject("active-worse", models.ObjectActive, 4000000),
		catalogObject("active-better", models.ObjectActive, 6000000),
		catalogObject("archive-worse", models.ObjectArchive, 4500000),
		catalogObject("archive-better", models.ObjectArchive, 5500000),
	)
	require.NoError(t, session.Evaluate("active-worse", models.EvalWorse))
	require.NoError(t, session.Evaluate("active-better", models.EvalBetter))
	require.NoError(t, session.Evaluate("archive-worse", models.EvalWorse))
	require.NoError(t, session.Evaluate("archive-better", models.EvalBetter))

	corridors := session.Corridors()
	require.NotNil(t, corridors.Optimal.Min)
	require.NotNil(t, corridors.Optimal.Max)
	assert.Equal(t, 4500000.0, *corridors.Optimal.Min)
	assert.Equal(t, 5500000.0, *corridors.Optimal.Max)
}

func TestOptimalRange_OneSidedBuckets(t *testing.T) {
	session := newTestSession(
		catalogObject("active-worse", models.ObjectActive, 4000000),
		catalogObject("archive-better", models.ObjectArchive, 5500000),
	)
	require.NoError(t, session.Evaluate("active-worse", models.EvalWorse))
	require.NoError(t, session.Evaluate("archive-better", models.EvalBetter))

	// A missing bound contributes no constraint from its side.
	corridors := session.Corridors()
	require.NotNil(t, corridors.Optimal.Min)
	require.NotNil(t, corridors.Optimal.Max)
	assert.Equal(t, 4000000.0, *corridors.Optimal.Min)
	assert.Equal(t, 5500000.0, *corridors.Optimal.Max)
}

func TestOptimalRange_NonIntersecting(t *testing.T) {
	session := newTestSession(
		catalogObject("active-worse", models.ObjectActive, 6000000),
		catalogObject("archive-better", models.ObjectArchive, 4000000),
	)
	require.NoError(t, session.Evaluate("active-worse", models.EvalWorse))
	require.NoError(t, session.Evaluate("archive-better", models.EvalBetter))

	corridors := session.Corridors()
	assert.Nil(t, corridors.Optimal.Min)
	assert.Nil(t, corridors.Optimal.Max)
}

func TestConfidence_Steps(t *testing.T) {
	objects := make([]*models.RealEstateObject, 0, 12)
	for i := 0; i < 12; i++ {
		objects = append(objects, catalogObject(string(rune('a'+i)), models.ObjectActive, 5000000))
	}
	session := newTestSession(objects...)

	assert.Equal(t, 0, session.Confidence().Level)

	expected := []int{25, 25, 60, 60, 60, 80, 80, 80, 95, 95}
	for i, want := range expected {
		require.NoError(t, session.Evaluate(string(rune('a'+i)), models.EvalEqual))
		assert.Equal(t, want, session.Confidence().Level, "after %d evaluations", i+1)
	}
}

func TestConfidence_ExcludedKindsDoNotCount(t *testing.T) {
	session := newTestSession(
		catalogObject("a", models.ObjectActive, 5000000),
		catalogObject("b", models.ObjectActive, 5000000),
		catalogObject("c", models.ObjectActive, 5000000),
	)
	require.NoError(t, session.Evaluate("a", models.EvalFake))
	require.NoError(t, session.Evaluate("b", models.EvalNotCompetitor))
	require.NoError(t, session.Evaluate("c", models.EvalNotSold))

	assert.Equal(t, 0, session.Confidence().Level)
}

func TestConfidence_Monotonic(t *testing.T) {
	objects := make([]*models.RealEstateObject, 0, 12)
	for i := 0; i < 12; i++ {
		objects = append(objects, catalogObject(string(rune('a'+i)), models.ObjectActive, 5000000))
	}
	session := newTestSession(objects...)

	previous := session.Confidence().Level
	for i := 0; i < 12; i++ {
		require.NoError(t, session.Evaluate(string(rune('a'+i)), models.EvalEqual))
		level := session.Confidence().Level
		assert.GreaterOrEqual(t, level, previous)
		previous = level
	}
}

func TestAutoDetectOverpriced(t *testing.T) {
	better := catalogObject("obj1", models.ObjectActive, 5000000)
	better.CreatedAt = date(1, 1)
	better.UpdatedAt = date(1, 10)
	worse := catalogObject("obj2", models.ObjectActive, 5500000)
	worse.UpdatedAt = date(1, 5)

	session := newTestSession(better, worse)
	require.NoError(t, session.Evaluate("obj1", models.EvalBetter))
	require.NoError(t, session.Evaluate("obj2", models.EvalWorse))

	// obj2 is priced above the better competitor inside its market
	// window: the worse judgment is a contradiction.
	assert.True(t, session.AutoDetectOverpriced())

	entries := session.Entries()
	byID := make(map[string]models.EvaluationKind)
	for _, entry := range entries {
		byID[entry.ObjectID] = entry.Evaluation
	}
	assert.Equal(t, models.EvalNotSold, byID["obj2"])
	assert.Equal(t, models.EvalBetter, byID["obj1"])

	// Re-running against reclassified data changes nothing.
	assert.False(t, session.AutoDetectOverpriced())
}

func TestAutoDetectOverpriced_OutsideWindow(t *testing.T) {
	better := catalogObject("obj1", models.ObjectActive, 5000000)
	better.CreatedAt = date(1, 1)
	better.UpdatedAt = date(1, 10)
	worse := catalogObject("obj2", models.ObjectActive, 5500000)
	worse.UpdatedAt = date(2, 5)

	session := newTestSession(better, worse)
	require.NoError(t, session.Evaluate("obj1", models.EvalBetter))
	require.NoError(t, session.Evaluate("obj2", models.EvalWorse))

	assert.False(t, session.AutoDetectOverpriced())
}

func TestAutoDetectOverpriced_CheaperWorseKept(t *testing.T) {
	better := catalogObject("obj1", models.ObjectActive, 5000000)
	better.CreatedAt = date(1, 1)
	better.UpdatedAt = date(1, 10)
	worse := catalogObject("obj2", models.ObjectActive, 4500000)
	worse.UpdatedAt = date(1, 5)

	session := newTestSession(better, worse)
	require.NoError(t, session.Evaluate("obj1", models.EvalBetter))
	require.NoError(t, session.Evaluate("obj2", models.EvalWorse))

	assert.False(t, session.AutoDetectOverpriced())
}

func TestEntriesAndRestore_PreserveOrder(t *testing.T) {
	session := newTestSession(
		catalogObject("a", models.ObjectActive, 5000000),
		catalogObject("b", models.ObjectActive, 5100000),
		catalogObject("c", models.ObjectActive, 5200000),
	)
	require.NoError(t, session.Evaluate("b", models.EvalBetter))
	require.NoError(t, session.Evaluate("a", models.EvalWorse))
	require.NoError(t, session.Evaluate("c", models.EvalEqual))

	entries := session.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "b", entries[0].ObjectID)
	assert.Equal(t, "a", entries[1].ObjectID)
	assert.Equal(t, "c", entries[2].ObjectID)

	restored := newTestSession(catalogObject("a", models.ObjectActive, 5000000))
	restored.Restore(entries)
	assert.Equal(t, entries, restored.Entries())
}

func TestClearAndRemove(t *testing.T) {
	session := newTestSession(
		catalogObject("a", models.ObjectActive, 5000000),
		catalogObject("b", models.ObjectActive, 5100000),
	)
	require.NoError(t, session.Evaluate("a", models.EvalBetter))
	require.NoError(t, session.Evaluate("b", models.EvalWorse))

	session.Remove("a")
	assert.Len(t, session.Entries(), 1)

	session.Clear()
	assert.Empty(t, session.Entries())
	assert.Equal(t, 0, session.Confidence().Level)
}
