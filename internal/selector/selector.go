// Package selector ranks couriers for an assignment. It is a pure query over
// a snapshot of the courier directory: no side effects, an empty result means
// no candidate is available right now.
package selector

import (
	"sort"

	"service-dispatch/internal/domain"
)

// Weights tunes the candidate score. Lower scores rank first.
type Weights struct {
	Distance          float64 // penalty per km to pickup
	Acceptance        float64 // penalty for (1 - historical acceptance rate)
	MaxRadiusKm       float64 // couriers farther than this are not candidates; 0 disables
	UrgentRadiusBoost float64 // radius multiplier for urgent assignments; <1 treated as 1
}

// Candidate is one ranked courier.
type Candidate struct {
	CourierID  int64
	DistanceKm float64
	Score      float64
}

// Rank filters the directory snapshot down to eligible couriers and orders
// them best-first. Excluded couriers (already tried this attempt cycle) are
// skipped. Ties break by acceptance rate, then by courier id so results are
// deterministic.
func Rank(
	pickup domain.Location,
	couriers []domain.Courier,
	excluded map[int64]struct{},
	priority domain.Priority,
	w Weights,
	limit int,
) []Candidate {
	radius := w.MaxRadiusKm
	if radius > 0 && priority == domain.PriorityUrgent {
		boost := w.UrgentRadiusBoost
		if boost < 1 {
			boost = 1
		}
		radius *= boost
	}

	rates := make(map[int64]float64, len(couriers))
	out := make([]Candidate, 0, len(couriers))
	for _, c := range couriers {
		if _, skip := excluded[c.ID]; skip {
			continue
		}
		if !c.Eligible() || !c.Location.Valid() {
			continue
		}

		dist := c.Location.DistanceKm(pickup)
		if radius > 0 && dist > radius {
			continue
		}

		rates[c.ID] = c.AcceptanceRate
		out = append(out, Candidate{
			CourierID:  c.ID,
			DistanceKm: dist,
			Score:      w.Distance*dist + w.Acceptance*(1-c.AcceptanceRate),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Score != b.Score {
			return a.Score < b.Score
		}
		if rates[a.CourierID] != rates[b.CourierID] {
			return rates[a.CourierID] > rates[b.CourierID]
		}
		return a.CourierID < b.CourierID
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// IDs projects a ranked candidate list to courier ids, preserving order.
func IDs(candidates []Candidate) []int64 {
	out := make([]int64, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.CourierID)
	}
	return out
}
