package services

import (
	"fmt"
	"strings"

	domain "github.com/amber-cafe/api/internal/domain"
)

// TransitionDecision is the outcome of evaluating a requested status change
// against the order's channel path and the caller's role.
type TransitionDecision struct {
	Allowed    bool
	IsOverride bool
	Event      domain.AuditAction
	Reason     string
}

// DecideTransition evaluates a single status-change request. It is a pure
// function over the channel's status path: forward moves advance exactly one
// step and are open to every role, cancellation is reachable from any
// non-terminal status, and the one-step backward move is reserved for
// managers and flagged as an override so the caller records a reopen event.
func DecideTransition(orderType domain.OrderType, current, requested domain.OrderStatus, isManager bool) TransitionDecision {
	path, ok := domain.StatusPath(orderType)
	if !ok {
		return rejected(fmt.Sprintf("unknown order type %q", orderType))
	}

	if requested == current {
		return rejected(fmt.Sprintf("order is already %s; requesting the current status is not a transition", current))
	}

	if requested == domain.OrderStatusCancelled {
		if current == domain.OrderStatusFinished {
			return rejected("a finished order cannot be cancelled; reopen it first")
		}
		if current == domain.OrderStatusCancelled {
			return rejected("order is already cancelled")
		}
		return TransitionDecision{Allowed: true, Event: domain.AuditActionOrderCancelled}
	}

	if current == domain.OrderStatusCancelled {
		return rejected("a cancelled order cannot change status")
	}

	currentIdx := domain.StatusIndex(orderType, current)
	requestedIdx := domain.StatusIndex(orderType, requested)
	if currentIdx < 0 {
		return rejected(fmt.Sprintf("status %s is not part of the %s path (%s)", current, orderType, joinStatuses(path)))
	}
	if requestedIdx < 0 {
		return rejected(fmt.Sprintf("status %s is not part of the %s path (%s)", requested, orderType, joinStatuses(path)))
	}

	switch requestedIdx {
	case currentIdx + 1:
		return TransitionDecision{Allowed: true, Event: domain.AuditActionOrderStatusChanged}
	case currentIdx - 1:
		if !isManager {
			return rejected(fmt.Sprintf("moving back from %s to %s requires the manager role", current, requested))
		}
		return TransitionDecision{Allowed: true, IsOverride: true, Event: domain.AuditActionOrderReopened}
	}

	return rejected(transitionHint(path, currentIdx, requested))
}

// transitionHint names the statuses actually reachable from the current
// position so a rejected caller knows what would have been accepted.
func transitionHint(path []domain.OrderStatus, currentIdx int, requested domain.OrderStatus) string {
	var allowed []string
	if currentIdx+1 < len(path) {
		allowed = append(allowed, fmt.Sprintf("%s (next)", path[currentIdx+1]))
	}
	if currentIdx > 0 {
		allowed = append(allowed, fmt.Sprintf("%s (manager reopen)", path[currentIdx-1]))
	}
	if path[currentIdx] != domain.OrderStatusFinished {
		allowed = append(allowed, string(domain.OrderStatusCancelled))
	}
	if len(allowed) == 0 {
		return fmt.Sprintf("no transition is allowed from %s", path[currentIdx])
	}
	return fmt.Sprintf("cannot move from %s to %s; allowed: %s", path[currentIdx], requested, strings.Join(allowed, ", "))
}

func joinStatuses(path []domain.OrderStatus) string {
	parts := make([]string, 0, len(path))
	for _, s := range path {
		parts = append(parts, string(s))
	}
	return strings.Join(parts, " -> ")
}

func rejected(reason string) TransitionDecision {
	return TransitionDecision{Reason: reason}
}
