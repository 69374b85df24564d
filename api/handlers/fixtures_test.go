package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/linesmerrill/grievance-api/api"
	"github.com/linesmerrill/grievance-api/api/handlers"
	"github.com/linesmerrill/grievance-api/assignment"
	"github.com/linesmerrill/grievance-api/broadcaster"
	"github.com/linesmerrill/grievance-api/config"
	"github.com/linesmerrill/grievance-api/databases"
	"github.com/linesmerrill/grievance-api/lifecycle"
	"github.com/linesmerrill/grievance-api/models"
)

type directory map[string]models.User

func (d directory) User(ctx context.Context, id string) (*models.User, error) {
	u, ok := d[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, models.ErrNotFound)
	}
	return &u, nil
}

func (d directory) RoleOf(ctx context.Context, id string) (models.Role, error) {
	u, err := d.User(ctx, id)
	if err != nil {
		return "", err
	}
	return u.Details.Role, nil
}

func (d directory) Officers(ctx context.Context) ([]models.User, error) {
	out := []models.User{}
	for _, u := range d {
		if u.Details.Role == models.RoleOfficer {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Details.CreatedAt.Before(out[j].Details.CreatedAt) })
	return out, nil
}

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func person(id string, role models.Role, registered int) models.User {
	return models.User{ID: id, Details: models.UserDetails{
		Email:     id + "@city.example",
		Name:      id,
		Role:      role,
		CreatedAt: epoch.Add(time.Duration(registered) * time.Hour),
	}}
}

func people() directory {
	return directory{
		"c1": person("c1", models.RoleCitizen, 0),
		"c2": person("c2", models.RoleCitizen, 1),
		"o1": person("o1", models.RoleOfficer, 2),
		"o2": person("o2", models.RoleOfficer, 3),
		"a1": person("a1", models.RoleAdministrator, 4),
	}
}

type historyLog struct {
	mu   sync.Mutex
	rows []models.StatusChange
}

func (h *historyLog) Record(ctx context.Context, change models.StatusChange) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rows = append(h.rows, change)
	return nil
}

func (h *historyLog) FindByReport(ctx context.Context, reportID string) ([]models.StatusChange, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := []models.StatusChange{}
	for _, r := range h.rows {
		if r.ReportID == reportID {
			out = append(out, r)
		}
	}
	return out, nil
}

type fixture struct {
	dir     directory
	store   *databases.MemoryReportStore
	hub     *broadcaster.Broadcaster
	history *historyLog
	machine *lifecycle.Machine
	report  handlers.Report
}

func newFixture(t *testing.T, dir directory) *fixture {
	t.Helper()
	f := &fixture{
		dir:     dir,
		store:   databases.NewMemoryReportStore(),
		hub:     broadcaster.New(16),
		history: &historyLog{},
	}
	f.machine = lifecycle.NewMachine(f.store, dir, f.hub,
		lifecycle.WithHistory(f.history),
		lifecycle.WithCategories(config.NewCategories(config.DefaultCategories...)),
	)
	f.report = handlers.Report{
		Machine:  f.machine,
		Assigner: assignment.NewResolver(f.machine, dir),
		Roles:    dir,
		History:  f.history,
	}
	t.Cleanup(f.hub.Close)
	return f
}

// file creates a report through the machine and returns it
func (f *fixture) file(t *testing.T, owner, title string) models.Report {
	t.Helper()
	r, err := f.machine.Create(context.Background(), owner, models.NewReport{Category: "Roads", Title: title})
	require.NoError(t, err)
	return *r
}

// call runs h as actor. vars are the mux route variables.
func call(h http.HandlerFunc, method, target, actor string, vars map[string]string, body interface{}) *httptest.ResponseRecorder {
	var rdr io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, rdr)
	if actor != "" {
		req = req.WithContext(api.WithActor(req.Context(), actor))
	}
	if vars != nil {
		req = mux.SetURLVars(req, vars)
	}
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func id(r models.Report) map[string]string {
	return map[string]string{"report_id": r.ID}
}
