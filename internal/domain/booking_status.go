package domain

import (
	"fmt"
	"slices"
	"time"
)

// bookingTransitions lists, per source status, the reachable statuses and
// the roles allowed to trigger each move.
var bookingTransitions = map[BookingStatus]map[BookingStatus][]Role{
	BookingPending: {
		BookingAccepted:  {RoleTechnician},
		BookingDeclined:  {RoleTechnician},
		BookingCancelled: {RoleClient, RoleAdmin},
	},
	BookingAccepted: {
		BookingOnTheWay:  {RoleTechnician},
		BookingCancelled: {RoleClient, RoleTechnician, RoleAdmin},
	},
	BookingOnTheWay: {
		BookingInProgress: {RoleTechnician},
		BookingCancelled:  {RoleAdmin},
	},
	BookingInProgress: {
		BookingAwaitingPayment: {RoleTechnician},
		BookingCancelled:       {RoleAdmin},
	},
	BookingAwaitingPayment: {
		BookingCompleted: {RoleClient, RoleTechnician},
	},
}

// Valid reports whether s is a known booking status.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingAccepted, BookingOnTheWay, BookingInProgress,
		BookingAwaitingPayment, BookingCompleted, BookingCancelled, BookingDeclined:
		return true
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s BookingStatus) IsTerminal() bool {
	return len(bookingTransitions[s]) == 0
}

// CanTransition reports whether the machine has an edge from s to to.
func (s BookingStatus) CanTransition(to BookingStatus) bool {
	_, ok := bookingTransitions[s][to]
	return ok
}

// AllowedBy reports whether role may move a booking from s to to.
func (s BookingStatus) AllowedBy(to BookingStatus, role Role) bool {
	roles, ok := bookingTransitions[s][to]
	return ok && slices.Contains(roles, role)
}

// CheckTransition validates a status change requested by role. An impossible
// edge is a conflict; a possible edge the role may not take is forbidden.
func CheckTransition(from, to BookingStatus, role Role) error {
	if !from.CanTransition(to) {
		return Conflict(fmt.Sprintf("booking cannot move from %s to %s", from, to))
	}
	if !from.AllowedBy(to, role) {
		return Forbidden(fmt.Sprintf("%s cannot move booking to %s", role, to))
	}
	return nil
}

// TransitionFields returns the timestamp columns stamped when a booking
// enters status to.
func TransitionFields(to BookingStatus, now time.Time) map[string]any {
	fields := map[string]any{}
	switch to {
	case BookingAccepted:
		fields["accepted_at"] = now
	case BookingInProgress:
		fields["started_at"] = now
	case BookingAwaitingPayment:
		fields["finished_at"] = now
	case BookingCompleted:
		fields["completed_at"] = now
	case BookingCancelled, BookingDeclined:
		fields["cancelled_at"] = now
	}
	return fields
}
