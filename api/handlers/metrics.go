package handlers

import (
	"net/http"
	"strconv"

	"github.com/linesmerrill/grievance-api/api"
	"github.com/linesmerrill/grievance-api/broadcaster"
)

// formatRouteMetrics converts duration fields to milliseconds for JSON serialization
func formatRouteMetrics(routes []api.RouteMetrics) []map[string]interface{} {
	result := make([]map[string]interface{}, len(routes))
	for i, route := range routes {
		result[i] = map[string]interface{}{
			"method":      route.Method,
			"path":        route.Path,
			"count":       route.Count,
			"errorCount":  route.ErrorCount,
			"avgTime":     route.AvgTime.Milliseconds(),
			"minTime":     route.MinTime.Milliseconds(),
			"maxTime":     route.MaxTime.Milliseconds(),
			"lastRequest": route.LastRequest,
		}
	}
	return result
}

// SessionCounters reports realtime activity
type SessionCounters interface {
	Counters() broadcaster.Counters
}

// MetricsHandler handles metrics dashboard requests
type MetricsHandler struct {
	Collector *api.MetricsCollector
	Hub       SessionCounters
	Roles     RoleSource
}

// GetMetricsDashboard returns request metrics and realtime session counters
func (m MetricsHandler) GetMetricsDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	if _, err := requireAdmin(ctx, m.Roles, "view metrics"); err != nil {
		engineError("failed to get metrics", w, err)
		return
	}

	limit := 20 // Default: 20 routes
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	collector := m.Collector
	if collector == nil {
		collector = api.GetMetrics()
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"summary":  collector.GetSummary(),
		"slowest":  formatRouteMetrics(collector.GetSlowestRoutes(limit)),
		"realtime": m.Hub.Counters(),
	})
}
