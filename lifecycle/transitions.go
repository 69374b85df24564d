// Package lifecycle owns report statuses: the one transition table that
// decides which status changes are legal, and the Machine that applies them
// through the report store with optimistic concurrency.
package lifecycle

import "github.com/linesmerrill/grievance-api/models"

// Action is something an actor does to a report
type Action string

// Actions that move a report between statuses
const (
	ActionAssign  Action = "assign"
	ActionStart   Action = "start"
	ActionResolve Action = "resolve"
	ActionReopen  Action = "reopen"
)

// Actions that do not change the status
const (
	ActionCreate  Action = "create"
	ActionUrgency Action = "urgency"
	ActionDelete  Action = "delete"
)

type edge struct {
	action Action
	from   models.Status
	to     models.Status
}

// table is the only place status legality is decided
var table = []edge{
	{ActionAssign, models.StatusPending, models.StatusAssigned},
	{ActionAssign, models.StatusAssigned, models.StatusAssigned},
	{ActionAssign, models.StatusInProgress, models.StatusAssigned},
	{ActionStart, models.StatusAssigned, models.StatusInProgress},
	{ActionResolve, models.StatusInProgress, models.StatusResolved},
	{ActionReopen, models.StatusResolved, models.StatusPending},
}

// Target returns the status action leads to from the given status
func Target(action Action, from models.Status) (models.Status, bool) {
	for _, e := range table {
		if e.action == action && e.from == from {
			return e.to, true
		}
	}
	return "", false
}

// Allowed reports whether any action moves a report from one status to another
func Allowed(from, to models.Status) bool {
	for _, e := range table {
		if e.from == from && e.to == to {
			return true
		}
	}
	return false
}

// Next lists the actions available from a status, in table order
func Next(from models.Status) []Action {
	var out []Action
	for _, e := range table {
		if e.from == from {
			out = append(out, e.action)
		}
	}
	return out
}

// intendedTarget is the status an action aims for regardless of where the
// report is now, used to describe a rejected transition.
func intendedTarget(action Action) models.Status {
	for _, e := range table {
		if e.action == action {
			return e.to
		}
	}
	return ""
}
