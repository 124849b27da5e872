package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"service-dispatch/internal/domain"
)

func TestAssignment_Expired(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	deadline := now.Add(30 * time.Second)

	a := domain.Assignment{Status: domain.StatusAssigned, TimeoutAt: &deadline}
	require.False(t, a.Expired(now))
	require.False(t, a.Expired(deadline.Add(-time.Millisecond)))
	require.True(t, a.Expired(deadline))
	require.True(t, a.Expired(deadline.Add(time.Second)))

	pending := domain.Assignment{Status: domain.StatusPending}
	require.False(t, pending.Expired(now))
}

func TestAssignment_DerivedTimes(t *testing.T) {
	t.Parallel()

	assigned := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	accepted := assigned.Add(12 * time.Second)
	delivered := accepted.Add(25 * time.Minute)

	a := domain.Assignment{}
	_, ok := a.ResponseTime()
	require.False(t, ok)
	_, ok = a.DeliveryTime()
	require.False(t, ok)

	a.AssignedAt = &assigned
	a.AcceptedAt = &accepted
	a.DeliveredAt = &delivered

	rt, ok := a.ResponseTime()
	require.True(t, ok)
	require.Equal(t, 12*time.Second, rt)

	dt, ok := a.DeliveryTime()
	require.True(t, ok)
	require.Equal(t, 25*time.Minute, dt)
}

func TestCourier_Eligible(t *testing.T) {
	t.Parallel()

	base := domain.Courier{
		Availability: domain.CourierOnline,
		Verified:     true,
		Active:       true,
		MaxActive:    2,
		ActiveCount:  1,
	}
	require.True(t, base.Eligible())

	offline := base
	offline.Availability = domain.CourierOffline
	require.False(t, offline.Eligible())

	unverified := base
	unverified.Verified = false
	require.False(t, unverified.Eligible())

	full := base
	full.ActiveCount = 2
	require.False(t, full.Eligible())
}
