package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/linesmerrill/grievance-api/models"
)

func TestTarget(t *testing.T) {
	tests := []struct {
		action Action
		from   models.Status
		want   models.Status
		ok     bool
	}{
		{ActionAssign, models.StatusPending, models.StatusAssigned, true},
		{ActionAssign, models.StatusAssigned, models.StatusAssigned, true},
		{ActionAssign, models.StatusInProgress, models.StatusAssigned, true},
		{ActionAssign, models.StatusResolved, "", false},
		{ActionStart, models.StatusAssigned, models.StatusInProgress, true},
		{ActionStart, models.StatusPending, "", false},
		{ActionStart, models.StatusInProgress, "", false},
		{ActionResolve, models.StatusInProgress, models.StatusResolved, true},
		{ActionResolve, models.StatusPending, "", false},
		{ActionResolve, models.StatusAssigned, "", false},
		{ActionReopen, models.StatusResolved, models.StatusPending, true},
		{ActionReopen, models.StatusInProgress, "", false},
		{ActionUrgency, models.StatusPending, "", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.action)+"/"+string(tt.from), func(t *testing.T) {
			got, ok := Target(tt.action, tt.from)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAllowed(t *testing.T) {
	legal := map[[2]models.Status]bool{
		{models.StatusPending, models.StatusAssigned}:    true,
		{models.StatusAssigned, models.StatusAssigned}:   true,
		{models.StatusAssigned, models.StatusInProgress}: true,
		{models.StatusInProgress, models.StatusAssigned}: true,
		{models.StatusInProgress, models.StatusResolved}: true,
		{models.StatusResolved, models.StatusPending}:    true,
	}
	for _, from := range models.Statuses {
		for _, to := range models.Statuses {
			assert.Equal(t, legal[[2]models.Status{from, to}], Allowed(from, to), "%s -> %s", from, to)
		}
	}
}

func TestNext(t *testing.T) {
	assert.Equal(t, []Action{ActionAssign}, Next(models.StatusPending))
	assert.Equal(t, []Action{ActionAssign, ActionStart}, Next(models.StatusAssigned))
	assert.Equal(t, []Action{ActionAssign, ActionResolve}, Next(models.StatusInProgress))
	assert.Equal(t, []Action{ActionReopen}, Next(models.StatusResolved))
}

func TestIntendedTarget(t *testing.T) {
	assert.Equal(t, models.StatusResolved, intendedTarget(ActionResolve))
	assert.Equal(t, models.Status(""), intendedTarget(ActionDelete))
}
