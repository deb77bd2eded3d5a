package services

import (
	"fmt"
	"sort"
	"strings"

	domain "github.com/amber-cafe/api/internal/domain"
)

// Editable field names as exposed on the update surface.
const (
	editFieldPaymentStatus   = "paymentStatus"
	editFieldPaymentMethod   = "paymentMethod"
	editFieldCustomerName    = "customerName"
	editFieldCustomerPhone   = "customerPhone"
	editFieldDeliveryAddress = "deliveryAddress"
	editFieldDiscount        = "discount"
	editFieldDeliveryCharges = "deliveryCharges"
	editFieldNote            = "note"
	editFieldLines           = "lines"
)

// EditDecision is the outcome of checking a proposed partial update against
// the order's current status and the caller's role.
type EditDecision struct {
	Allowed bool
	Reason  string
}

// DecideEdit gates field-level order updates. A request touching only the
// payment status passes in any status. Everything else is a draft-only edit:
// managers holding a preparing order are pointed at the reopen flow instead
// of editing in place, and non-draft orders reject edits for every role.
func DecideEdit(status domain.OrderStatus, touched []string, isManager bool) EditDecision {
	if len(touched) == 0 {
		return EditDecision{Reason: "no fields supplied; nothing to update"}
	}

	paymentOnly := true
	for _, field := range touched {
		if field != editFieldPaymentStatus {
			paymentOnly = false
			break
		}
	}
	if paymentOnly {
		return EditDecision{Allowed: true}
	}

	switch {
	case status == domain.OrderStatusDraft:
		return EditDecision{Allowed: true}
	case status == domain.OrderStatusPreparing && isManager:
		return EditDecision{Reason: fmt.Sprintf("order is preparing; reopen it to draft first, then edit (%s)", describeTouched(touched))}
	default:
		return EditDecision{Reason: fmt.Sprintf("order is %s; only the payment status can change now (%s)", status, describeTouched(touched))}
	}
}

func describeTouched(touched []string) string {
	fields := make([]string, 0, len(touched))
	seen := make(map[string]bool, len(touched))
	for _, f := range touched {
		if seen[f] {
			continue
		}
		seen[f] = true
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return "requested fields: " + strings.Join(fields, ", ")
}
