package domain

import "time"

type Action string

const (
	ActionCancel   Action = "cancel"
	ActionComplete Action = "complete"
	ActionEdit     Action = "edit"
)

type DenyReason string

const (
	DenyAlreadyFinal       DenyReason = "already_final"
	DenyTooLateToCancel    DenyReason = "too_late_to_cancel"
	DenyTooEarlyToComplete DenyReason = "too_early_to_complete"
	DenyUnsupportedAction  DenyReason = "unsupported_action"
)

type Decision struct {
	Allowed bool
	Reason  DenyReason
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason DenyReason) Decision {
	return Decision{Reason: reason}
}

// CanTransition decides whether a lifecycle action on a lesson is legal at
// the given instant. It is a pure decision function: applying the status
// change is the caller's job.
//
// Cancel and Edit require at least notice lead time before the lesson starts;
// a gap exactly equal to notice is still cancellable. Complete requires the
// lesson to have started, with start == now counting as started. Completed
// and cancelled lessons are terminal and deny everything.
func CanTransition(l Lesson, action Action, now time.Time, notice time.Duration) Decision {
	if l.Status.IsFinal() {
		return deny(DenyAlreadyFinal)
	}

	start := l.StartsAt()

	switch action {
	case ActionCancel, ActionEdit:
		if start.Sub(now) < notice {
			return deny(DenyTooLateToCancel)
		}
		return allow()
	case ActionComplete:
		if start.After(now) {
			return deny(DenyTooEarlyToComplete)
		}
		return allow()
	default:
		return deny(DenyUnsupportedAction)
	}
}
