// Package workload derives per-officer load from the report set. Nothing here
// is stored; every figure is recomputed from the reports passed in.
package workload

import (
	"sort"

	"github.com/linesmerrill/grievance-api/models"
)

// Of counts the open reports assigned to officer
func Of(officer string, reports []models.Report) int {
	n := 0
	for _, r := range reports {
		if r.Assignee == officer && r.Status.Open() {
			n++
		}
	}
	return n
}

// Index counts open reports for every assignee in one pass
func Index(reports []models.Report) map[string]int {
	idx := map[string]int{}
	for _, r := range reports {
		if r.Assignee != "" && r.Status.Open() {
			idx[r.Assignee]++
		}
	}
	return idx
}

// LeastLoaded returns the officer with the fewest open reports. Ties go to the
// earliest registered officer, then the lowest id.
func LeastLoaded(officers []models.User, reports []models.Report) (models.User, bool) {
	if len(officers) == 0 {
		return models.User{}, false
	}
	idx := Index(reports)
	best := officers[0]
	for _, o := range officers[1:] {
		if lighter(o, best, idx) {
			best = o
		}
	}
	return best, true
}

func lighter(a, b models.User, idx map[string]int) bool {
	if idx[a.ID] != idx[b.ID] {
		return idx[a.ID] < idx[b.ID]
	}
	if !a.Details.CreatedAt.Equal(b.Details.CreatedAt) {
		return a.Details.CreatedAt.Before(b.Details.CreatedAt)
	}
	return a.ID < b.ID
}

// Snapshot lists every officer's workload, busiest first
func Snapshot(officers []models.User, reports []models.Report) []models.OfficerWorkload {
	idx := Index(reports)
	out := make([]models.OfficerWorkload, 0, len(officers))
	for _, o := range officers {
		out = append(out, models.OfficerWorkload{
			Officer:     o.ID,
			Name:        o.Details.Name,
			Email:       o.Details.Email,
			OpenReports: idx[o.ID],
			Since:       o.Details.CreatedAt,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].OpenReports != out[j].OpenReports {
			return out[i].OpenReports > out[j].OpenReports
		}
		if !out[i].Since.Equal(out[j].Since) {
			return out[i].Since.Before(out[j].Since)
		}
		return out[i].Officer < out[j].Officer
	})
	return out
}
