package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linesmerrill/grievance-api/api/handlers"
	"github.com/linesmerrill/grievance-api/models"
	"github.com/linesmerrill/grievance-api/reconciler"
)

func TestReport_CreateReportHandler(t *testing.T) {
	f := newFixture(t, people())

	rr := call(f.report.CreateReportHandler, http.MethodPost, "/api/v1/reports", "c1", nil, models.NewReport{
		Category: "roads",
		Title:    "URGENT: pothole on main street",
		Location: "Lat: 17.38, Long: 78.48",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	got := decode[models.Report](t, rr)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "c1", got.Owner)
	assert.Equal(t, "Roads", got.Category)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.True(t, got.Urgent)
	assert.Equal(t, int64(0), got.Version)
	require.NotNil(t, got.Location)
	assert.NotEmpty(t, got.Location.MapURL())
}

func TestReport_CreateReportHandlerRejects(t *testing.T) {
	f := newFixture(t, people())

	tests := []struct {
		name  string
		actor string
		body  interface{}
		want  int
	}{
		{"officer cannot file", "o1", models.NewReport{Category: "Roads", Title: "x"}, http.StatusForbidden},
		{"unknown caller", "ghost", models.NewReport{Category: "Roads", Title: "x"}, http.StatusForbidden},
		{"missing title", "c1", models.NewReport{Category: "Roads"}, http.StatusUnprocessableEntity},
		{"unknown category", "c1", models.NewReport{Category: "Parks", Title: "x"}, http.StatusUnprocessableEntity},
		{"bad body", "c1", "not an object", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := call(f.report.CreateReportHandler, http.MethodPost, "/api/v1/reports", tt.actor, nil, tt.body)
			assert.Equal(t, tt.want, rr.Code, rr.Body.String())
		})
	}
}

func TestReport_Lifecycle(t *testing.T) {
	f := newFixture(t, people())
	r := f.file(t, "c1", "Broken streetlight")

	rr := call(f.report.AssignReportHandler, http.MethodPost, "/", "a1", id(r), map[string]string{"officer": "auto"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	got := decode[models.Report](t, rr)
	assert.Equal(t, models.StatusAssigned, got.Status)
	assert.Equal(t, "o1", got.Assignee)

	rr = call(f.report.StartReportHandler, http.MethodPost, "/", "o1", id(r), nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, models.StatusInProgress, decode[models.Report](t, rr).Status)

	rr = call(f.report.ResolveReportHandler, http.MethodPost, "/", "o1", id(r), map[string]string{"note": "replaced bulb"})
	assert.Equal(t, http.StatusConflict, rr.Code)
	body := decode[models.ErrorMessageResponse](t, rr)
	assert.Contains(t, body.Response.Error, "proof image")
	assert.False(t, body.Response.Retryable)

	rr = call(f.report.ResolveReportHandler, http.MethodPost, "/", "o1", id(r), map[string]string{
		"note":  "replaced bulb",
		"image": "https://res.cloudinary.com/demo/proof.jpg",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	got = decode[models.Report](t, rr)
	assert.Equal(t, models.StatusResolved, got.Status)
	assert.Equal(t, int64(3), got.Version)

	rr = call(f.report.ReopenReportHandler, http.MethodPost, "/", "c1", id(r), nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	got = decode[models.Report](t, rr)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Empty(t, got.Assignee)
	assert.Equal(t, "o1", got.LastAssignee)
	assert.Empty(t, got.ResolutionImage)

	rr = call(f.report.ReportHistoryHandler, http.MethodGet, "/", "c1", id(r), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	history := decode[[]models.StatusChange](t, rr)
	require.Len(t, history, 5)
	assert.Equal(t, models.StatusPending, history[4].ToStatus)
}

func TestReport_StaleVersionIsRetryable(t *testing.T) {
	f := newFixture(t, people())
	r := f.file(t, "c1", "Overflowing bin")

	rr := call(f.report.AssignReportHandler, http.MethodPost, "/", "a1", id(r), map[string]interface{}{"officer": "o2", "version": 7})
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.True(t, decode[models.ErrorMessageResponse](t, rr).Response.Retryable)

	rr = call(f.report.AssignReportHandler, http.MethodPost, "/", "a1", id(r), map[string]interface{}{"officer": "o2", "version": 0})
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestReport_AssignReportHandlerErrors(t *testing.T) {
	f := newFixture(t, people())
	r := f.file(t, "c1", "Water leak")

	tests := []struct {
		name    string
		actor   string
		officer string
		want    int
	}{
		{"officer cannot assign", "o1", "o2", http.StatusForbidden},
		{"citizen cannot assign", "c1", "auto", http.StatusForbidden},
		{"blank officer", "a1", " ", http.StatusUnprocessableEntity},
		{"not an officer", "a1", "c2", http.StatusUnprocessableEntity},
		{"unknown officer", "a1", "o9", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := call(f.report.AssignReportHandler, http.MethodPost, "/", tt.actor, id(r), map[string]string{"officer": tt.officer})
			assert.Equal(t, tt.want, rr.Code, rr.Body.String())
		})
	}

	rr := call(f.report.AssignReportHandler, http.MethodPost, "/", "a1", map[string]string{"report_id": "missing"}, map[string]string{"officer": "o1"})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestReport_AutoAssignWithoutOfficers(t *testing.T) {
	dir := people()
	delete(dir, "o1")
	delete(dir, "o2")
	f := newFixture(t, dir)
	r := f.file(t, "c1", "Traffic light out")

	rr := call(f.report.AssignReportHandler, http.MethodPost, "/", "a1", id(r), map[string]string{"officer": "AUTO"})
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestReport_AutoAssignPicksLeastLoaded(t *testing.T) {
	f := newFixture(t, people())
	for _, title := range []string{"a", "b"} {
		r := f.file(t, "c1", title)
		rr := call(f.report.AssignReportHandler, http.MethodPost, "/", "a1", id(r), map[string]string{"officer": "o1"})
		require.Equal(t, http.StatusOK, rr.Code)
	}
	r := f.file(t, "c2", "c")

	rr := call(f.report.AssignReportHandler, http.MethodPost, "/", "a1", id(r), map[string]string{"officer": "auto"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "o2", decode[models.Report](t, rr).Assignee)
}

func TestReport_ReportsHandlerIsScoped(t *testing.T) {
	f := newFixture(t, people())
	mine := f.file(t, "c1", "Pothole")
	f.file(t, "c1", "Garbage pile")
	theirs := f.file(t, "c2", "Streetlight")
	rr := call(f.report.AssignReportHandler, http.MethodPost, "/", "a1", id(theirs), map[string]string{"officer": "o1"})
	require.Equal(t, http.StatusOK, rr.Code)

	count := func(actor, target string) int {
		rr := call(f.report.ReportsHandler, http.MethodGet, target, actor, nil, nil)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		return len(decode[[]models.Report](t, rr))
	}
	assert.Equal(t, 2, count("c1", "/api/v1/reports"))
	assert.Equal(t, 1, count("c2", "/api/v1/reports"))
	assert.Equal(t, 1, count("o1", "/api/v1/reports"))
	assert.Equal(t, 0, count("o2", "/api/v1/reports"))
	assert.Equal(t, 3, count("a1", "/api/v1/reports"))
	assert.Equal(t, 2, count("a1", "/api/v1/reports?status=pending"))
	assert.Equal(t, 1, count("a1", "/api/v1/reports?status=Assigned,InProgress"))
	assert.Equal(t, 1, count("a1", "/api/v1/reports?q=pothole"))
	assert.Equal(t, 3, count("a1", "/api/v1/reports?open=true"))
	assert.Equal(t, 1, count("a1", "/api/v1/reports?limit=1&page=1"))
	assert.Equal(t, 0, count("a1", "/api/v1/reports?limit=200&page=92233720368547758"))

	rr = call(f.report.ReportsHandler, http.MethodGet, "/api/v1/reports?status=closed", "a1", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = call(f.report.ReportsHandler, http.MethodGet, "/api/v1/reports", "", nil, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = call(f.report.ReportByIDHandler, http.MethodGet, "/", "c1", id(mine), nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	rr = call(f.report.ReportByIDHandler, http.MethodGet, "/", "c2", id(mine), nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	rr = call(f.report.ReportHistoryHandler, http.MethodGet, "/", "o2", id(theirs), nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	rr = call(f.report.ReportByIDHandler, http.MethodGet, "/", "a1", map[string]string{"report_id": "missing"}, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestReport_StatsHandler(t *testing.T) {
	f := newFixture(t, people())
	f.file(t, "c1", "URGENT: gas smell")
	f.file(t, "c1", "Graffiti")
	f.file(t, "c2", "Noise")

	rr := call(f.report.StatsHandler, http.MethodGet, "/api/v1/stats", "c1", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	stats := decode[reconciler.Stats](t, rr)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 2, stats.Open)
	assert.Equal(t, 1, stats.Urgent)
	assert.Equal(t, 2, stats.ByStatus[models.StatusPending])

	rr = call(f.report.StatsHandler, http.MethodGet, "/api/v1/stats", "a1", nil, nil)
	assert.Equal(t, 3, decode[reconciler.Stats](t, rr).Total)
}

func TestReport_UrgencyAndDelete(t *testing.T) {
	f := newFixture(t, people())
	r := f.file(t, "c1", "Fallen tree")

	rr := call(f.report.UrgencyHandler, http.MethodPut, "/", "a1", id(r), map[string]int{"version": 0})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = call(f.report.UrgencyHandler, http.MethodPut, "/", "c1", id(r), map[string]bool{"urgent": true})
	assert.Equal(t, http.StatusForbidden, rr.Code)
	rr = call(f.report.UrgencyHandler, http.MethodPut, "/", "a1", id(r), map[string]bool{"urgent": true})
	require.Equal(t, http.StatusOK, rr.Code)
	got := decode[models.Report](t, rr)
	assert.True(t, got.Urgent)
	assert.Equal(t, models.StatusPending, got.Status)

	rr = call(f.report.DeleteReportHandler, http.MethodDelete, "/", "c1", id(r), nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	rr = call(f.report.DeleteReportHandler, http.MethodDelete, "/?version=abc", "a1", id(r), nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = call(f.report.DeleteReportHandler, http.MethodDelete, "/?version=0", "a1", id(r), nil)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.True(t, decode[models.ErrorMessageResponse](t, rr).Response.Retryable)
	rr = call(f.report.DeleteReportHandler, http.MethodDelete, "/?version=1", "a1", id(r), nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	rr = call(f.report.ReportByIDHandler, http.MethodGet, "/", "a1", id(r), nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	rr = call(f.report.DeleteReportHandler, http.MethodDelete, "/", "a1", id(r), nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestOfficer_WorkloadHandler(t *testing.T) {
	f := newFixture(t, people())
	r := f.file(t, "c1", "Pothole")
	rr := call(f.report.AssignReportHandler, http.MethodPost, "/", "a1", id(r), map[string]string{"officer": "o2"})
	require.Equal(t, http.StatusOK, rr.Code)

	o := handlers.Officer{Directory: f.dir, Store: f.store}
	rr = call(o.WorkloadHandler, http.MethodGet, "/api/v1/officers/workload", "o1", nil, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = call(o.WorkloadHandler, http.MethodGet, "/api/v1/officers/workload", "a1", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	loads := decode[[]models.OfficerWorkload](t, rr)
	require.Len(t, loads, 2)
	assert.Equal(t, "o2", loads[0].Officer)
	assert.Equal(t, 1, loads[0].OpenReports)
	assert.Equal(t, 0, loads[1].OpenReports)
}
