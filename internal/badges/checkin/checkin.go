// Package checkin holds the presence rules for a badge. A badge's state is
// never stored; it is derived from its check-in log.
package checkin

import (
	"fmt"

	"ms-badging/internal/models"
)

type State int

const (
	NeverCheckedIn State = iota
	CheckedIn
	CheckedOut
)

func (s State) String() string {
	switch s {
	case NeverCheckedIn:
		return "NEVER_CHECKED_IN"
	case CheckedIn:
		return "CHECKED_IN"
	case CheckedOut:
		return "CHECKED_OUT"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

const (
	MsgNotFound         = "Badge not found. Please verify the badge ID and try again."
	MsgDeactivated      = "This badge has been deactivated. Please contact support."
	MsgAlreadyCheckedIn = "Already checked in. Please check out first before checking in again."
	MsgNotCheckedIn     = "Not currently checked in. Please check in first."
	MsgInvalidType      = "Unknown scan type. Please choose check in or check out."
	MsgFailure          = "Check-in processing failed. Please try again or contact support."
)

// DeriveState reads the state off the last event of a sequence-ordered log.
func DeriveState(history []models.CheckInEvent) State {
	if len(history) == 0 {
		return NeverCheckedIn
	}
	return Next(history[len(history)-1].CheckInType)
}

// Next is the state after an accepted scan of type t.
func Next(t models.CheckInType) State {
	if t == models.CheckIn {
		return CheckedIn
	}
	return CheckedOut
}

type Decision struct {
	Allowed        bool
	Reason         models.RejectReason
	Message        string
	IsFirstCheckIn bool
}

// Evaluate applies the transition table. name is only used in the greeting.
func Evaluate(state State, t models.CheckInType, name string) Decision {
	switch t {
	case models.CheckIn:
		switch state {
		case NeverCheckedIn:
			return Decision{Allowed: true, IsFirstCheckIn: true, Message: fmt.Sprintf("Welcome to your first visit, %s!", name)}
		case CheckedOut:
			return Decision{Allowed: true, Message: fmt.Sprintf("Welcome back, %s!", name)}
		default:
			return Decision{Reason: models.ReasonAlreadyCheckedIn, Message: MsgAlreadyCheckedIn}
		}
	case models.CheckOut:
		if state == CheckedIn {
			return Decision{Allowed: true, Message: fmt.Sprintf("Goodbye, %s! Thanks for attending.", name)}
		}
		return Decision{Reason: models.ReasonNotCheckedIn, Message: MsgNotCheckedIn}
	default:
		return Decision{Reason: models.ReasonInvalidType, Message: MsgInvalidType}
	}
}

// Reject builds the caller-facing result for a refused scan.
func Reject(t models.CheckInType, reason models.RejectReason, message string) models.CheckInResult {
	return models.CheckInResult{
		Success:     false,
		CheckInType: t,
		Message:     message,
		Reason:      reason,
	}
}
