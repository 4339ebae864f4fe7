package enums

import "fmt"

// OrderStatus tracks an order from checkout to delivery.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCompleted,
	OrderStatusCancelled,
}

var orderStatusLabels = map[OrderStatus]string{
	OrderStatusPending:    "قيد الانتظار",
	OrderStatusProcessing: "قيد التجهيز",
	OrderStatusShipped:    "تم الشحن",
	OrderStatusDelivered:  "تم التوصيل",
	OrderStatusCompleted:  "مكتمل",
	OrderStatusCancelled:  "ملغي",
}

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderStatus.
func (o OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// Label returns the Arabic display label, or the raw value when unknown.
func (o OrderStatus) Label() string {
	if label, ok := orderStatusLabels[o]; ok {
		return label
	}
	return string(o)
}

// Step maps the status onto the four-stage tracking stepper. Cancelled orders
// are off the track and return -1.
func (o OrderStatus) Step() int {
	switch o {
	case OrderStatusPending:
		return 0
	case OrderStatusProcessing:
		return 1
	case OrderStatusShipped:
		return 2
	case OrderStatusDelivered, OrderStatusCompleted:
		return 3
	case OrderStatusCancelled:
		return -1
	}
	return 0
}

// CountsAsRevenue reports whether the order contributes to realised revenue.
func (o OrderStatus) CountsAsRevenue() bool {
	return o == OrderStatusCompleted || o == OrderStatusDelivered
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
