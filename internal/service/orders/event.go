package orders

import (
	"time"

	"service-dispatch/internal/domain"
)

// Order event statuses this engine reacts to. Everything else on the topic is
// ignored.
const (
	StatusCreated  = "created"
	StatusCanceled = "canceled"
)

// Event is a single order event from the orders topic.
type Event struct {
	OrderID            string          `json:"order_id"`
	Status             string          `json:"status"`
	Priority           domain.Priority `json:"priority,omitempty"`
	RestaurantLocation domain.Location `json:"restaurant_location"`
	CustomerLocation   domain.Location `json:"customer_location"`
	OrderSummary       string          `json:"order_summary,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
}
