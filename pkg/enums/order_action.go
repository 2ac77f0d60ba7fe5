package enums

import "fmt"

// OrderAction is a lifecycle command applied to an order.
type OrderAction string

const (
	OrderActionProcess  OrderAction = "process"
	OrderActionComplete OrderAction = "complete"
	OrderActionCancel   OrderAction = "cancel"
)

var validOrderActions = []OrderAction{
	OrderActionProcess,
	OrderActionComplete,
	OrderActionCancel,
}

// String implements fmt.Stringer.
func (a OrderAction) String() string {
	return string(a)
}

// IsValid reports whether the value is a known OrderAction.
func (a OrderAction) IsValid() bool {
	for _, candidate := range validOrderActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOrderAction converts raw input into an OrderAction.
func ParseOrderAction(value string) (OrderAction, error) {
	for _, candidate := range validOrderActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order action %q", value)
}

// OrderActionForStatus maps a requested target status onto the action that reaches it.
func OrderActionForStatus(status OrderStatus) (OrderAction, error) {
	switch status {
	case OrderStatusProcessing:
		return OrderActionProcess, nil
	case OrderStatusCompleted:
		return OrderActionComplete, nil
	case OrderStatusCancelled:
		return OrderActionCancel, nil
	}
	return "", fmt.Errorf("no action transitions to status %q", status)
}
