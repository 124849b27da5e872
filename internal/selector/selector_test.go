package selector_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"service-dispatch/internal/domain"
	"service-dispatch/internal/selector"
)

var pickup = domain.Location{Lat: 55.7558, Lon: 37.6173}

// atKm places a courier roughly the given number of kilometres north of pickup.
func atKm(km float64) domain.Location {
	return domain.Location{Lat: pickup.Lat + km/111.0, Lon: pickup.Lon}
}

func courier(id int64, loc domain.Location, rate float64) domain.Courier {
	return domain.Courier{
		ID:             id,
		Availability:   domain.CourierOnline,
		Verified:       true,
		Active:         true,
		Location:       loc,
		MaxActive:      3,
		AcceptanceRate: rate,
	}
}

func defaultWeights() selector.Weights {
	return selector.Weights{
		Distance:          1.0,
		Acceptance:        5.0,
		MaxRadiusKm:       10,
		UrgentRadiusBoost: 2.0,
	}
}

func TestRank_OrdersByScore(t *testing.T) {
	t.Parallel()

	// A: 2 km away, 90% acceptance. B: 1 km away, 60% acceptance.
	// C is offline and must never appear.
	a := courier(1, atKm(2), 0.9)
	b := courier(2, atKm(1), 0.6)
	c := courier(3, atKm(1), 0.99)
	c.Availability = domain.CourierOffline

	got := selector.Rank(pickup, []domain.Courier{a, b, c}, nil, domain.PriorityMedium, defaultWeights(), 0)

	require.Len(t, got, 2)
	// score(A) = 2 + 5*0.1 = 2.5; score(B) = 1 + 5*0.4 = 3.0
	require.Equal(t, int64(1), got[0].CourierID)
	require.Equal(t, int64(2), got[1].CourierID)
}

func TestRank_SpecOrderingScenario(t *testing.T) {
	t.Parallel()

	// With distance dominating the score, B (closer) beats A despite the
	// lower acceptance rate, and offline C is filtered.
	w := selector.Weights{Distance: 1.0, Acceptance: 0.5, MaxRadiusKm: 10}

	a := courier(1, atKm(2), 0.9)
	b := courier(2, atKm(1), 0.6)
	c := courier(3, atKm(1), 0.9)
	c.Availability = domain.CourierOffline

	got := selector.Rank(pickup, []domain.Courier{a, b, c}, nil, domain.PriorityMedium, w, 0)

	require.Equal(t, []int64{2, 1}, selector.IDs(got))
}

func TestRank_FiltersIneligible(t *testing.T) {
	t.Parallel()

	unverified := courier(1, atKm(1), 0.9)
	unverified.Verified = false

	inactive := courier(2, atKm(1), 0.9)
	inactive.Active = false

	loaded := courier(3, atKm(1), 0.9)
	loaded.ActiveCount = loaded.MaxActive

	busy := courier(4, atKm(1), 0.9)
	busy.Availability = domain.CourierBusy

	ok := courier(5, atKm(1), 0.9)

	got := selector.Rank(pickup,
		[]domain.Courier{unverified, inactive, loaded, busy, ok},
		nil, domain.PriorityMedium, defaultWeights(), 0)

	require.Equal(t, []int64{5}, selector.IDs(got))
}

func TestRank_Excluded(t *testing.T) {
	t.Parallel()

	a := courier(1, atKm(1), 0.9)
	b := courier(2, atKm(2), 0.9)

	got := selector.Rank(pickup, []domain.Courier{a, b},
		map[int64]struct{}{1: {}}, domain.PriorityMedium, defaultWeights(), 0)

	require.Equal(t, []int64{2}, selector.IDs(got))
}

func TestRank_DeterministicTieBreak(t *testing.T) {
	t.Parallel()

	// Identical distance and rate: ids decide, ascending.
	a := courier(9, atKm(1), 0.8)
	b := courier(3, atKm(1), 0.8)

	got := selector.Rank(pickup, []domain.Courier{a, b}, nil, domain.PriorityMedium, defaultWeights(), 0)
	require.Equal(t, []int64{3, 9}, selector.IDs(got))

	// Same score via weights, different rates: higher rate first.
	w := selector.Weights{Distance: 0, Acceptance: 0, MaxRadiusKm: 10}
	c := courier(1, atKm(1), 0.5)
	d := courier(2, atKm(2), 0.9)
	got = selector.Rank(pickup, []domain.Courier{c, d}, nil, domain.PriorityMedium, w, 0)
	require.Equal(t, []int64{2, 1}, selector.IDs(got))
}

func TestRank_RadiusAndUrgentBoost(t *testing.T) {
	t.Parallel()

	far := courier(1, atKm(15), 0.9)

	got := selector.Rank(pickup, []domain.Courier{far}, nil, domain.PriorityMedium, defaultWeights(), 0)
	require.Empty(t, got)

	// Urgent doubles the radius to 20 km, so the same courier qualifies.
	got = selector.Rank(pickup, []domain.Courier{far}, nil, domain.PriorityUrgent, defaultWeights(), 0)
	require.Equal(t, []int64{1}, selector.IDs(got))
}

func TestRank_Limit(t *testing.T) {
	t.Parallel()

	couriers := []domain.Courier{
		courier(1, atKm(1), 0.9),
		courier(2, atKm(2), 0.9),
		courier(3, atKm(3), 0.9),
	}

	got := selector.Rank(pickup, couriers, nil, domain.PriorityMedium, defaultWeights(), 2)
	require.Equal(t, []int64{1, 2}, selector.IDs(got))
}

func TestRank_EmptyDirectory(t *testing.T) {
	t.Parallel()

	got := selector.Rank(pickup, nil, nil, domain.PriorityMedium, defaultWeights(), 0)
	require.Empty(t, got)
}

func TestRank_RelativeOrderingHoldsUnderWeightScaling(t *testing.T) {
	t.Parallel()

	// Property: scaling both weights by the same factor never changes the
	// relative order, only the absolute scores.
	a := courier(1, atKm(2), 0.9)
	b := courier(2, atKm(1), 0.6)

	base := selector.Weights{Distance: 1, Acceptance: 5, MaxRadiusKm: 50}
	scaled := selector.Weights{Distance: 10, Acceptance: 50, MaxRadiusKm: 50}

	first := selector.IDs(selector.Rank(pickup, []domain.Courier{a, b}, nil, domain.PriorityMedium, base, 0))
	second := selector.IDs(selector.Rank(pickup, []domain.Courier{a, b}, nil, domain.PriorityMedium, scaled, 0))
	require.Equal(t, first, second)
}
