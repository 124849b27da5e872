package domain

// CourierAvailability represents the availability status of a courier.
type CourierAvailability string

// List of possible courier availability statuses
const (
	CourierOffline CourierAvailability = "offline"
	CourierOnline  CourierAvailability = "online"
	CourierBusy    CourierAvailability = "busy"
)

var allowedAvailabilities = [...]CourierAvailability{
	CourierOffline, CourierOnline, CourierBusy,
}

// Valid checks if the CourierAvailability is valid
func (a CourierAvailability) Valid() bool {
	for _, v := range allowedAvailabilities {
		if a == v {
			return true
		}
	}
	return false
}

// Courier is a read-mostly view of the courier directory. The dispatch engine
// consumes availability, location and performance signals; it does not own
// onboarding or verification.
type Courier struct {
	ID           int64
	Name         string
	Availability CourierAvailability
	Verified     bool
	Active       bool
	Location     Location
	MaxActive    int   // concurrency limit
	ActiveCount  int   // derived: non-terminal assignments currently held
	Completed    int64 // completed deliveries counter
	Cancelled    int64 // cancelled deliveries counter
	// AcceptanceRate in [0, 1], a ranking signal maintained by the directory.
	AcceptanceRate float64
}

// Eligible reports whether the courier may be offered new work at all.
// The load check here is advisory; the true enforcement point is the
// conditional transition into assigned.
func (c Courier) Eligible() bool {
	return c.Availability == CourierOnline &&
		c.Verified &&
		c.Active &&
		c.ActiveCount < c.MaxActive
}
