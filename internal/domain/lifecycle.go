package domain

// statusPaths defines the linear forward path each fulfilment channel moves through.
// Cancellation is reachable from any non-terminal status and is not part of the path.
var statusPaths = map[OrderType][]OrderStatus{
	OrderTypeDine: {
		OrderStatusDraft,
		OrderStatusPreparing,
		OrderStatusReady,
		OrderStatusFinished,
	},
	OrderTypeTakeaway: {
		OrderStatusDraft,
		OrderStatusPreparing,
		OrderStatusReady,
		OrderStatusPickedUp,
		OrderStatusFinished,
	},
	OrderTypeDelivery: {
		OrderStatusDraft,
		OrderStatusPreparing,
		OrderStatusReady,
		OrderStatusOutForDelivery,
		OrderStatusDelivered,
		OrderStatusFinished,
	},
}

// completedStatuses are the states counted as revenue in reporting.
var completedStatuses = map[OrderStatus]struct{}{
	OrderStatusFinished:  {},
	OrderStatusDelivered: {},
	OrderStatusPickedUp:  {},
}

// StatusPath returns the ordered forward path for the given channel. The returned
// slice must not be mutated.
func StatusPath(orderType OrderType) ([]OrderStatus, bool) {
	path, ok := statusPaths[orderType]
	return path, ok
}

// StatusIndex returns the position of status on the channel's path, or -1 when the
// status does not belong to it.
func StatusIndex(orderType OrderType, status OrderStatus) int {
	path, ok := statusPaths[orderType]
	if !ok {
		return -1
	}
	for i, s := range path {
		if s == status {
			return i
		}
	}
	return -1
}

// IsTerminal reports whether an order in the given state can never move again.
func IsTerminal(orderType OrderType, status OrderStatus) bool {
	if status == OrderStatusCancelled {
		return true
	}
	path, ok := statusPaths[orderType]
	if !ok {
		return false
	}
	return len(path) > 0 && path[len(path)-1] == status
}

// IsCompleted reports whether the status counts as a completed sale.
func IsCompleted(status OrderStatus) bool {
	_, ok := completedStatuses[status]
	return ok
}

// StatusKnown reports whether the status is one of the recognised order states,
// including the off-path cancelled state.
func StatusKnown(status OrderStatus) bool {
	switch status {
	case OrderStatusDraft, OrderStatusPreparing, OrderStatusReady,
		OrderStatusOutForDelivery, OrderStatusDelivered, OrderStatusPickedUp,
		OrderStatusFinished, OrderStatusCancelled:
		return true
	}
	return false
}

// ValidOrderType reports whether the supplied channel is known.
func ValidOrderType(orderType OrderType) bool {
	_, ok := statusPaths[orderType]
	return ok
}

// ValidPaymentMethod reports whether the supplied method is known.
func ValidPaymentMethod(method PaymentMethod) bool {
	switch method {
	case PaymentMethodCash, PaymentMethodOnline:
		return true
	}
	return false
}

// ValidPaymentStatus reports whether the supplied settlement state is known.
func ValidPaymentStatus(status PaymentStatus) bool {
	switch status {
	case PaymentStatusPaid, PaymentStatusUnpaid:
		return true
	}
	return false
}
