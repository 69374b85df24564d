// Package reconciler keeps a client's local copy of reports in step with
// lifecycle events. It is a plain reducer: the same inputs always give the
// same view, and the aggregate stats are rebuilt from the full local set on
// every change.
package reconciler

import (
	"fmt"
	"sort"

	"github.com/linesmerrill/grievance-api/models"
)

// Scope decides which reports belong in a view
type Scope struct {
	Identity string
	Role     models.Role
}

// Includes reports whether r is visible in this scope. Citizens see what they
// filed, officers what is assigned to them, administrators everything.
func (s Scope) Includes(r models.Report) bool {
	switch s.Role {
	case models.RoleAdministrator:
		return true
	case models.RoleOfficer:
		return r.Assignee == s.Identity
	default:
		return r.Owner == s.Identity
	}
}

// Filter narrows a store query to this scope
func (s Scope) Filter() models.ReportFilter {
	switch s.Role {
	case models.RoleAdministrator:
		return models.ReportFilter{}
	case models.RoleOfficer:
		return models.ReportFilter{Assignee: s.Identity}
	default:
		return models.ReportFilter{Owner: s.Identity}
	}
}

// Stats are the dashboard counters of a view
type Stats struct {
	Total    int                   `json:"total"`
	Open     int                   `json:"open"`
	Resolved int                   `json:"resolved"`
	Urgent   int                   `json:"urgent"`
	ByStatus map[models.Status]int `json:"byStatus"`
}

// Summarize computes Stats over reports
func Summarize(reports []models.Report) Stats {
	s := Stats{ByStatus: map[models.Status]int{}}
	for _, st := range models.Statuses {
		s.ByStatus[st] = 0
	}
	for _, r := range reports {
		s.Total++
		s.ByStatus[r.Status]++
		if r.Status.Open() {
			s.Open++
		} else {
			s.Resolved++
		}
		if r.Urgent {
			s.Urgent++
		}
	}
	return s
}

// View is one client's local report set
type View struct {
	scope   Scope
	reports map[string]models.Report
	// originals holds the authoritative copy of reports with a local change in flight
	originals map[string]models.Report
	// seen is the highest version observed per report, including removed ones
	seen  map[string]int64
	stats Stats
}

// NewView seeds a view from an initial load
func NewView(scope Scope, reports []models.Report) *View {
	v := &View{scope: scope}
	v.Reset(reports)
	return v
}

// Reset replaces the whole view, dropping any in-flight local changes
func (v *View) Reset(reports []models.Report) {
	v.reports = map[string]models.Report{}
	v.originals = map[string]models.Report{}
	v.seen = map[string]int64{}
	for _, r := range reports {
		if v.scope.Includes(r) {
			v.reports[r.ID] = r
		}
		v.seen[r.ID] = r.Version
	}
	v.recompute()
}

// Apply folds an authoritative event into the view. It returns false when the
// event was older than what the view already holds or carried nothing usable.
func (v *View) Apply(e models.LifecycleEvent) bool {
	if last, ok := v.seen[e.ReportID]; ok && e.Version <= last {
		return false
	}
	if e.Kind != models.EventDeleted && e.Report == nil {
		return false
	}
	v.seen[e.ReportID] = e.Version
	delete(v.originals, e.ReportID)

	switch {
	case e.Kind == models.EventDeleted:
		delete(v.reports, e.ReportID)
	case !v.scope.Includes(*e.Report):
		delete(v.reports, e.ReportID)
	default:
		v.reports[e.ReportID] = *e.Report
	}
	v.recompute()
	return true
}

// Propose applies a local change ahead of the server's answer. The next
// authoritative event for the report replaces it; Reject rolls it back.
func (v *View) Propose(id string, mutate func(r *models.Report)) error {
	r, ok := v.reports[id]
	if !ok {
		return fmt.Errorf("report %s: %w", id, models.ErrNotFound)
	}
	if _, pending := v.originals[id]; !pending {
		v.originals[id] = r
	}
	mutate(&r)
	r.ID = id
	v.reports[id] = r
	v.recompute()
	return nil
}

// Reject restores the authoritative copy of a report after the server turned
// a proposed change down
func (v *View) Reject(id string) {
	orig, ok := v.originals[id]
	if !ok {
		return
	}
	delete(v.originals, id)
	v.reports[id] = orig
	v.recompute()
}

// Pending reports whether id has an unconfirmed local change
func (v *View) Pending(id string) bool {
	_, ok := v.originals[id]
	return ok
}

// Get returns the report held for id
func (v *View) Get(id string) (models.Report, bool) {
	r, ok := v.reports[id]
	return r, ok
}

// Reports returns the view in display order, urgent first then newest first
func (v *View) Reports() []models.Report {
	out := make([]models.Report, 0, len(v.reports))
	for _, r := range v.reports {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return models.DisplayLess(out[i], out[j]) })
	return out
}

// Stats returns the counters for the current view
func (v *View) Stats() Stats {
	s := v.stats
	s.ByStatus = make(map[models.Status]int, len(v.stats.ByStatus))
	for k, n := range v.stats.ByStatus {
		s.ByStatus[k] = n
	}
	return s
}

func (v *View) recompute() {
	all := make([]models.Report, 0, len(v.reports))
	for _, r := range v.reports {
		all = append(all, r)
	}
	v.stats = Summarize(all)
}
