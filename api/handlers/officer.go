package handlers

import (
	"context"
	"net/http"

	"github.com/linesmerrill/grievance-api/api"
	"github.com/linesmerrill/grievance-api/lifecycle"
	"github.com/linesmerrill/grievance-api/models"
	"github.com/linesmerrill/grievance-api/workload"
)

// OfficerSource lists officers and resolves roles
type OfficerSource interface {
	RoleSource
	Officers(ctx context.Context) ([]models.User, error)
}

// Officer handles officer related requests
type Officer struct {
	Directory OfficerSource
	Store     lifecycle.Store
}

// WorkloadHandler returns every officer's open report count, busiest first
func (o Officer) WorkloadHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if _, err := requireAdmin(ctx, o.Directory, "view officer workload"); err != nil {
		engineError("failed to get workload", w, err)
		return
	}
	officers, err := o.Directory.Officers(ctx)
	if err != nil {
		engineError("failed to list officers", w, err)
		return
	}
	open, err := o.Store.List(ctx, models.ReportFilter{OpenOnly: true})
	if err != nil {
		engineError("failed to list open reports", w, err)
		return
	}
	writeJSON(w, http.StatusOK, workload.Snapshot(officers, open))
}
