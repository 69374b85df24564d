// Package docs Civic Grievance API.
//
// Documentation of the Civic Grievance API. Citizens file reports, administrators
// assign them to officers and officers resolve them with proof. Every accepted
// change is pushed to connected clients over /api/v1/realtime.
//
//     Schemes: https
//     BasePath: /
//     Version: 1.0.0
//
//     Consumes:
//     - application/json
//
//     Produces:
//     - application/json
//
//     Security:
//     - basic
//     - bearer
//
//    SecurityDefinitions:
//    basic:
//      type: basic
//    bearer:
//      type: apiKey
//      name: Authorization
//      in: header
//
// swagger:meta
package docs

import (
	"github.com/linesmerrill/grievance-api/broadcaster"
	"github.com/linesmerrill/grievance-api/models"
	"github.com/linesmerrill/grievance-api/reconciler"
)

// swagger:route GET /health health healthEndpointID
// Lists the healthchex of the web service api.
// responses:
//   200: healthResponse

// Shows the current health of the api. true means it is alive, false means it is not.
// swagger:response healthResponse
type healthResponseWrapper struct {
	// in:body
	Body models.HealthCheckResponse
}

// swagger:route POST /api/v1/reports reports createReport
// Files a new report. Citizens only.
// responses:
//   201: reportResponse
//   403: errorResponse
//   422: errorResponse

// swagger:parameters createReport
type createReportParamsWrapper struct {
	// in:body
	Body models.NewReport
}

// swagger:route GET /api/v1/reports/{report_id} reports reportByID
// Gets a single report. Citizens see their own, officers what is assigned to them.
// responses:
//   200: reportResponse
//   403: errorResponse
//   404: errorResponse

// swagger:route POST /api/v1/reports/{report_id}/assign reports assignReport
// Assigns or reassigns a report. Send "auto" as the officer to pick the least loaded one.
// responses:
//   200: reportResponse
//   409: errorResponse
//   422: errorResponse
//   503: errorResponse

// swagger:route POST /api/v1/reports/{report_id}/resolve reports resolveReport
// Resolves a report. A note and a proof image url are required.
// responses:
//   200: reportResponse
//   409: errorResponse

// A single report
// swagger:response reportResponse
type reportResponseWrapper struct {
	// in:body
	Body models.Report
}

// swagger:route GET /api/v1/reports/{report_id}/history reports reportHistory
// Lists the status changes of a report, oldest first.
// responses:
//   200: historyResponse

// The audit trail of a report
// swagger:response historyResponse
type historyResponseWrapper struct {
	// in:body
	Body []models.StatusChange
}

// swagger:route GET /api/v1/stats reports stats
// Dashboard counters over the reports visible to the caller.
// responses:
//   200: statsResponse

// Dashboard counters
// swagger:response statsResponse
type statsResponseWrapper struct {
	// in:body
	Body reconciler.Stats
}

// swagger:route GET /api/v1/officers/workload officers officerWorkload
// Open report count per officer, busiest first. Administrators only.
// responses:
//   200: workloadResponse

// Officer workload
// swagger:response workloadResponse
type workloadResponseWrapper struct {
	// in:body
	Body []models.OfficerWorkload
}

// swagger:route GET /api/v1/realtime realtime realtimeFeed
// Upgrades to a websocket streaming envelopes. Pass ?ticket= from /api/v1/realtime/ticket.
// responses:
//   101: envelopeResponse
//   401: errorResponse

// One message on the realtime feed
// swagger:response envelopeResponse
type envelopeResponseWrapper struct {
	// in:body
	Body models.Envelope
}

// swagger:route GET /api/v1/metrics metrics metricsDashboard
// Request metrics and realtime counters. Administrators only.
// responses:
//   200: countersResponse

// Realtime session counters
// swagger:response countersResponse
type countersResponseWrapper struct {
	// in:body
	Body broadcaster.Counters
}

// An error. retryable is set when refetching and retrying may succeed.
// swagger:response errorResponse
type errorResponseWrapper struct {
	// in:body
	Body models.ErrorMessageResponse
}
