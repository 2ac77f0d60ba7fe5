package orders

import (
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
)

type transition struct {
	from []enums.OrderStatus
	to   enums.OrderStatus
}

var transitions = map[enums.OrderAction]transition{
	enums.OrderActionProcess: {
		from: []enums.OrderStatus{enums.OrderStatusPending},
		to:   enums.OrderStatusProcessing,
	},
	enums.OrderActionComplete: {
		from: []enums.OrderStatus{enums.OrderStatusProcessing},
		to:   enums.OrderStatusCompleted,
	},
	enums.OrderActionCancel: {
		from: []enums.OrderStatus{enums.OrderStatusPending, enums.OrderStatusProcessing},
		to:   enums.OrderStatusCancelled,
	},
}

// NextStatus returns the status action leads to from current, or STATE_CONFLICT.
func NextStatus(current enums.OrderStatus, action enums.OrderAction) (enums.OrderStatus, error) {
	t, ok := transitions[action]
	if !ok {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "action must be one of process, complete, cancel").
			WithDetails(map[string]any{"action": string(action)})
	}
	for _, from := range t.from {
		if from == current {
			return t.to, nil
		}
	}
	return "", pkgerrors.New(pkgerrors.CodeStateConflict, "order cannot "+string(action)+" from "+string(current)).
		WithDetails(map[string]any{"status": string(current), "action": string(action)})
}

func sourceStatuses(action enums.OrderAction) []enums.OrderStatus {
	return transitions[action].from
}
