package databases

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/linesmerrill/grievance-api/models"
)

// MemoryReportStore is an in-process ReportDatabase used for local runs and
// tests. Every method works on copies so callers can never mutate stored state.
type MemoryReportStore struct {
	mu      sync.Mutex
	reports map[string]models.Report
}

// NewMemoryReportStore returns an empty in-memory report store
func NewMemoryReportStore() *MemoryReportStore {
	return &MemoryReportStore{reports: map[string]models.Report{}}
}

// Get returns the report with the given id
func (m *MemoryReportStore) Get(ctx context.Context, id string) (*models.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return nil, fmt.Errorf("report %s: %w", id, models.ErrNotFound)
	}
	return &r, nil
}

// Create stores a new report at version 0
func (m *MemoryReportStore) Create(ctx context.Context, report models.Report) (*models.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if report.ID == "" {
		report.ID = primitive.NewObjectID().Hex()
	}
	if _, ok := m.reports[report.ID]; ok {
		return nil, fmt.Errorf("report %s already exists", report.ID)
	}
	report.Version = 0
	m.reports[report.ID] = report
	return &report, nil
}

// Update applies mutate if the stored version still equals expectedVersion
func (m *MemoryReportStore) Update(ctx context.Context, id string, expectedVersion int64, mutate models.Mutation) (*models.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.reports[id]
	if !ok {
		return nil, fmt.Errorf("report %s: %w", id, models.ErrNotFound)
	}
	if current.Version != expectedVersion {
		return nil, &models.StaleWriteError{ReportID: id, Expected: expectedVersion, Actual: current.Version}
	}
	next := current
	if err := mutate(&next); err != nil {
		return nil, err
	}
	next.ID = current.ID
	next.Version = expectedVersion + 1
	m.reports[id] = next
	return &next, nil
}

// Delete hard-removes a report if the stored version still equals expectedVersion
func (m *MemoryReportStore) Delete(ctx context.Context, id string, expectedVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.reports[id]
	if !ok {
		return fmt.Errorf("report %s: %w", id, models.ErrNotFound)
	}
	if current.Version != expectedVersion {
		return &models.StaleWriteError{ReportID: id, Expected: expectedVersion, Actual: current.Version}
	}
	delete(m.reports, id)
	return nil
}

// List returns the matching reports in display order
func (m *MemoryReportStore) List(ctx context.Context, filter models.ReportFilter) ([]models.Report, error) {
	m.mu.Lock()
	out := []models.Report{}
	for _, r := range m.reports {
		if filter.Matches(r) {
			out = append(out, r)
		}
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return models.DisplayLess(out[i], out[j]) })
	if filter.Limit > 0 {
		start, end := newMongoPaginate(filter.Limit, filter.Page).window(len(out))
		out = out[start:end]
	}
	return out, nil
}
