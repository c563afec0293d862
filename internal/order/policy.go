package order

import (
	"fmt"
	"slices"

	"github.com/safar/retail-store/internal/models"
)

// TransitionPolicy decides which direct status overwrites UpdateOrderStatus
// and UpdatePaymentStatus accept. The dedicated lifecycle operations (ship,
// deliver, cancel, ...) carry their own preconditions and ignore it.
type TransitionPolicy interface {
	AllowStatus(from, to models.OrderStatus) bool
	AllowPayment(from, to models.PaymentStatus) bool
}

type permissive struct{}

func (permissive) AllowStatus(_, _ models.OrderStatus) bool     { return true }
func (permissive) AllowPayment(_, _ models.PaymentStatus) bool { return true }

// Permissive lets any status be overwritten with any other.
var Permissive TransitionPolicy = permissive{}

// TransitionTable allows a change when the target is listed under the
// current value. Writing the current value again is always allowed.
type TransitionTable struct {
	Status  map[models.OrderStatus][]models.OrderStatus
	Payment map[models.PaymentStatus][]models.PaymentStatus
}

func (t TransitionTable) AllowStatus(from, to models.OrderStatus) bool {
	return from == to || slices.Contains(t.Status[from], to)
}

func (t TransitionTable) AllowPayment(from, to models.PaymentStatus) bool {
	return from == to || slices.Contains(t.Payment[from], to)
}

// Strict follows the forward lifecycle only.
var Strict = TransitionTable{
	Status: map[models.OrderStatus][]models.OrderStatus{
		models.OrderStatusPending:    {models.OrderStatusProcessing, models.OrderStatusCancelled},
		models.OrderStatusProcessing: {models.OrderStatusShipped, models.OrderStatusCancelled},
		models.OrderStatusShipped:    {models.OrderStatusDelivered},
		models.OrderStatusDelivered:  {models.OrderStatusRefunded},
	},
	Payment: map[models.PaymentStatus][]models.PaymentStatus{
		models.PaymentStatusPending: {models.PaymentStatusPaid, models.PaymentStatusFailed},
		models.PaymentStatusFailed:  {models.PaymentStatusPaid},
		models.PaymentStatusPaid:    {models.PaymentStatusRefunded},
	},
}

func ParseTransitionPolicy(name string) (TransitionPolicy, error) {
	switch name {
	case "", "permissive":
		return Permissive, nil
	case "strict":
		return Strict, nil
	}
	return nil, fmt.Errorf("unknown transition policy %q", name)
}
