package service

import (
	"context"
	"fmt"
	"time"

	"delegate-portal/internal/models"
	"delegate-portal/internal/repository"

	"github.com/google/uuid"
)

// Trigger is the kind of caller asking for a status change.
type Trigger string

const (
	TriggerGateway Trigger = "gateway"
	TriggerWallet  Trigger = "wallet"
	TriggerAdmin   Trigger = "admin"
)

var transitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderStatusPending: {
		models.OrderStatusConfirmed,
		models.OrderStatusPaymentPending,
		models.OrderStatusPaid,
		models.OrderStatusPaymentFailed,
		models.OrderStatusPaymentCancelled,
		models.OrderStatusChargedBack,
		models.OrderStatusFailed,
		models.OrderStatusPaidWithCredit,
		models.OrderStatusCancelled,
	},
	models.OrderStatusConfirmed: {
		models.OrderStatusPaymentPending,
		models.OrderStatusPaid,
		models.OrderStatusPaymentFailed,
		models.OrderStatusPaymentCancelled,
		models.OrderStatusFailed,
		models.OrderStatusPaidWithCredit,
		models.OrderStatusCancelled,
	},
	models.OrderStatusPaymentPending: {
		models.OrderStatusPaid,
		models.OrderStatusPaymentFailed,
		models.OrderStatusPaymentCancelled,
		models.OrderStatusFailed,
		models.OrderStatusPaidWithCredit,
		models.OrderStatusCancelled,
	},
	models.OrderStatusPaid: {
		models.OrderStatusChargedBack,
		models.OrderStatusProcessing,
		models.OrderStatusShipped,
		models.OrderStatusDelivered,
		models.OrderStatusCancelled,
	},
	models.OrderStatusPaidWithCredit: {
		models.OrderStatusProcessing,
		models.OrderStatusShipped,
		models.OrderStatusDelivered,
		models.OrderStatusCancelled,
	},
	models.OrderStatusProcessing: {
		models.OrderStatusShipped,
		models.OrderStatusDelivered,
		models.OrderStatusCancelled,
	},
	models.OrderStatusShipped: {
		models.OrderStatusDelivered,
	},
}

// statuses only one kind of caller may set
var exclusiveTrigger = map[models.OrderStatus]Trigger{
	models.OrderStatusPaidWithCredit: TriggerWallet,
	models.OrderStatusProcessing:     TriggerAdmin,
	models.OrderStatusShipped:        TriggerAdmin,
	models.OrderStatusDelivered:      TriggerAdmin,
	models.OrderStatusCancelled:      TriggerAdmin,
}

// CanTransition checks a move against the order state graph. Re-applying the
// current status is always allowed.
func CanTransition(from, to models.OrderStatus, trig Trigger) error {
	if !to.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, to)
	}
	if from == to {
		return nil
	}
	if need, ok := exclusiveTrigger[to]; ok && need != trig {
		return fmt.Errorf("%w: %s -> %s is reserved for %s", ErrInvalidTransition, from, to, need)
	}
	for _, next := range transitions[from] {
		if next == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// IsTerminal reports whether no further transition leaves s.
func IsTerminal(s models.OrderStatus) bool {
	return len(transitions[s]) == 0
}

const maxStatusAttempts = 3

// applyStatus moves ord to `to` with a compare-and-set on its current status,
// reloading and re-checking when a concurrent writer wins. ord is updated in
// place. It returns the status the order left and whether a write happened.
func applyStatus(ctx context.Context, orders repository.OrderRepo, ord *models.Order, to models.OrderStatus, trig Trigger, actor string, at time.Time, force bool) (models.OrderStatus, bool, error) {
	for attempt := 0; attempt < maxStatusAttempts; attempt++ {
		from := ord.Status
		if force {
			if !to.Valid() {
				return from, false, fmt.Errorf("%w: %q", ErrInvalidStatus, to)
			}
		} else if err := CanTransition(from, to, trig); err != nil {
			return from, false, err
		}
		if from == to {
			return from, false, nil
		}

		ok, err := orders.CompareAndSetStatus(ctx, ord.ID, from, to, actor, at)
		if err != nil {
			return from, false, err
		}
		if ok {
			ord.Status = to
			ord.UpdatedBy = actor
			ord.LastStatusChange = at
			return from, true, nil
		}

		fresh, err := orders.GetByID(ctx, ord.ID)
		if err != nil {
			return from, false, err
		}
		if fresh == nil {
			return from, false, ErrOrderNotFound
		}
		*ord = *fresh
	}
	return ord.Status, false, ErrConcurrentUpdate
}

func actorID(id uuid.UUID) string { return id.String() }
