package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/linesmerrill/grievance-api/api"
	"github.com/linesmerrill/grievance-api/assignment"
	"github.com/linesmerrill/grievance-api/config"
	"github.com/linesmerrill/grievance-api/lifecycle"
	"github.com/linesmerrill/grievance-api/models"
	"github.com/linesmerrill/grievance-api/reconciler"
)

// Assigner hands reports to officers. assignment.Resolver implements it.
type Assigner interface {
	Assign(ctx context.Context, actor, reportID, officer string, expectedVersion int64) (*models.Report, error)
}

// HistorySource reads a report's audit trail
type HistorySource interface {
	FindByReport(ctx context.Context, reportID string) ([]models.StatusChange, error)
}

// Report handles report-related requests
type Report struct {
	Machine  *lifecycle.Machine
	Assigner Assigner
	Roles    RoleSource
	History  HistorySource
}

type assignRequest struct {
	Officer string `json:"officer"`
	Version *int64 `json:"version"`
}

type resolveRequest struct {
	Note    string `json:"note"`
	Image   string `json:"image"`
	Version *int64 `json:"version"`
}

type urgencyRequest struct {
	Urgent  *bool  `json:"urgent"`
	Version *int64 `json:"version"`
}

type versionRequest struct {
	Version *int64 `json:"version"`
}

// CreateReportHandler files a new report for the calling citizen
func (re Report) CreateReportHandler(w http.ResponseWriter, r *http.Request) {
	var in models.NewReport
	if err := decodeBody(r, &in); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	actor, _ := api.ActorFrom(r.Context())

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	report, err := re.Machine.Create(ctx, actor, in)
	if err != nil {
		engineError("failed to create report", w, err)
		return
	}
	writeJSON(w, http.StatusCreated, report)
}

// ReportsHandler lists the reports visible to the caller
func (re Report) ReportsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	scope, err := scopeOf(ctx, re.Roles)
	if err != nil {
		engineError("failed to list reports", w, err)
		return
	}
	filter, err := reportFilter(scope, r)
	if err != nil {
		config.ErrorStatus("invalid query", http.StatusBadRequest, w, err)
		return
	}

	reports, err := re.Machine.Store().List(ctx, filter)
	if err != nil {
		engineError("failed to list reports", w, err)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

// reportFilter narrows the caller's scope with the status, category, q, open,
// limit and page query parameters
func reportFilter(scope reconciler.Scope, r *http.Request) (models.ReportFilter, error) {
	q := r.URL.Query()
	f := scope.Filter()
	f.Category = strings.TrimSpace(q.Get("category"))
	f.Search = strings.TrimSpace(q.Get("q"))

	if s := q.Get("status"); s != "" {
		for _, part := range strings.Split(s, ",") {
			st, err := models.ParseStatus(part)
			if err != nil {
				return f, err
			}
			f.Statuses = append(f.Statuses, st)
		}
	}
	if s := q.Get("open"); s != "" {
		open, err := strconv.ParseBool(s)
		if err != nil {
			return f, fmt.Errorf("open must be true or false")
		}
		f.OpenOnly = open
	}
	if s := q.Get("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil || limit < 0 {
			return f, fmt.Errorf("limit must be a positive number")
		}
		f.Limit = limit
	}
	if s := q.Get("page"); s != "" {
		page, err := strconv.Atoi(s)
		if err != nil || page < 0 {
			return f, fmt.Errorf("page must be a positive number")
		}
		f.Page = page
	}
	return f, nil
}

// ReportByIDHandler returns one report if the caller may see it
func (re Report) ReportByIDHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	report, err := re.visible(ctx, mux.Vars(r)["report_id"])
	if err != nil {
		engineError("failed to get report", w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// visible loads a report and checks it is inside the caller's scope
func (re Report) visible(ctx context.Context, id string) (*models.Report, error) {
	scope, err := scopeOf(ctx, re.Roles)
	if err != nil {
		return nil, err
	}
	report, err := re.Machine.Store().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !scope.Includes(*report) {
		return nil, &models.UnauthorizedError{Actor: scope.Identity, Role: scope.Role, Action: "view report " + id}
	}
	return report, nil
}

// DeleteReportHandler removes a report. An optional ?version= makes the
// delete fail with 409 if the report changed since the caller read it.
func (re Report) DeleteReportHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["report_id"]
	actor, _ := api.ActorFrom(r.Context())

	version := lifecycle.AnyVersion
	if s := r.URL.Query().Get("version"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil || v < 0 {
			config.ErrorStatus("version must be a positive number", http.StatusBadRequest, w, fmt.Errorf("bad version %q", s))
			return
		}
		version = v
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	if err := re.Machine.Delete(ctx, actor, id, version); err != nil {
		engineError("failed to delete report", w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Report deleted successfully"})
}

// AssignReportHandler assigns or reassigns a report. officer may be "auto".
func (re Report) AssignReportHandler(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := decodeBody(r, &req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	id := mux.Vars(r)["report_id"]
	actor, _ := api.ActorFrom(r.Context())

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	report, err := re.Assigner.Assign(ctx, actor, id, req.Officer, expectedVersion(req.Version))
	if err != nil {
		engineError("failed to assign report", w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// StartReportHandler marks an assigned report as in progress
func (re Report) StartReportHandler(w http.ResponseWriter, r *http.Request) {
	var req versionRequest
	if err := decodeBody(r, &req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	id := mux.Vars(r)["report_id"]
	actor, _ := api.ActorFrom(r.Context())

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	report, err := re.Machine.Start(ctx, actor, id, expectedVersion(req.Version))
	if err != nil {
		engineError("failed to start report", w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// ResolveReportHandler resolves a report with a note and a proof image
func (re Report) ResolveReportHandler(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := decodeBody(r, &req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	id := mux.Vars(r)["report_id"]
	actor, _ := api.ActorFrom(r.Context())

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	report, err := re.Machine.Resolve(ctx, actor, id, expectedVersion(req.Version), req.Note, req.Image)
	if err != nil {
		engineError("failed to resolve report", w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// ReopenReportHandler sends a resolved report back to Pending
func (re Report) ReopenReportHandler(w http.ResponseWriter, r *http.Request) {
	var req versionRequest
	if err := decodeBody(r, &req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	id := mux.Vars(r)["report_id"]
	actor, _ := api.ActorFrom(r.Context())

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	report, err := re.Machine.Reopen(ctx, actor, id, expectedVersion(req.Version))
	if err != nil {
		engineError("failed to reopen report", w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// UrgencyHandler sets or clears the urgent flag
func (re Report) UrgencyHandler(w http.ResponseWriter, r *http.Request) {
	var req urgencyRequest
	if err := decodeBody(r, &req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if req.Urgent == nil {
		config.ErrorStatus("urgent is required", http.StatusBadRequest, w, fmt.Errorf("missing urgent"))
		return
	}
	id := mux.Vars(r)["report_id"]
	actor, _ := api.ActorFrom(r.Context())

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	report, err := re.Machine.SetUrgency(ctx, actor, id, expectedVersion(req.Version), *req.Urgent)
	if err != nil {
		engineError("failed to update urgency", w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// ReportHistoryHandler returns the status changes of a report, oldest first
func (re Report) ReportHistoryHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["report_id"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	if _, err := re.visible(ctx, id); err != nil {
		engineError("failed to get report history", w, err)
		return
	}
	changes, err := re.History.FindByReport(ctx, id)
	if err != nil {
		engineError("failed to get report history", w, err)
		return
	}
	writeJSON(w, http.StatusOK, changes)
}

// StatsHandler returns dashboard counters over the caller's reports
func (re Report) StatsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	scope, err := scopeOf(ctx, re.Roles)
	if err != nil {
		engineError("failed to get stats", w, err)
		return
	}
	reports, err := re.Machine.Store().List(ctx, scope.Filter())
	if err != nil {
		engineError("failed to get stats", w, err)
		return
	}
	zap.S().Debugw("stats computed", "identity", scope.Identity, "role", scope.Role, "reports", len(reports))
	writeJSON(w, http.StatusOK, reconciler.Summarize(reports))
}

var _ Assigner = (*assignment.Resolver)(nil)
