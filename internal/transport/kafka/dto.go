package kafka

import (
	"strings"
	"time"

	"service-dispatch/internal/domain"
	"service-dispatch/internal/service/orders"
)

// EventDTO is a data transfer object for orders.Event
type EventDTO struct {
	OrderID            string          `json:"order_id"`
	Status             string          `json:"status"`
	Priority           string          `json:"priority"`
	RestaurantLocation domain.Location `json:"restaurant_location"`
	CustomerLocation   domain.Location `json:"customer_location"`
	OrderSummary       string          `json:"order_summary"`
	CreatedAt          time.Time       `json:"created_at"`
}

// ToDomain converts EventDTO to orders.Event
func ToDomain(dto EventDTO) orders.Event {
	return orders.Event{
		OrderID:            strings.TrimSpace(dto.OrderID),
		Status:             strings.TrimSpace(dto.Status),
		Priority:           domain.Priority(strings.TrimSpace(dto.Priority)),
		RestaurantLocation: dto.RestaurantLocation,
		CustomerLocation:   dto.CustomerLocation,
		OrderSummary:       strings.TrimSpace(dto.OrderSummary),
		CreatedAt:          dto.CreatedAt,
	}
}
