package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/linesmerrill/grievance-api/models"
)

// AnyVersion makes the machine write against whatever version is current and
// retry stale writes itself, as long as no competing status or assignee change
// landed in between. Pass a real version when the caller's view must not be
// overwritten.
const AnyVersion int64 = -1

// Store is the report store contract the machine needs. Update and Delete
// must be compare-and-swap on the version.
type Store interface {
	Get(ctx context.Context, id string) (*models.Report, error)
	Create(ctx context.Context, report models.Report) (*models.Report, error)
	Update(ctx context.Context, id string, expectedVersion int64, mutate models.Mutation) (*models.Report, error)
	Delete(ctx context.Context, id string, expectedVersion int64) error
	List(ctx context.Context, filter models.ReportFilter) ([]models.Report, error)
}

// RoleProvider resolves the role of an identity
type RoleProvider interface {
	RoleOf(ctx context.Context, id string) (models.Role, error)
}

// Publisher receives one event per accepted write. A returned error means some
// sessions missed the event; the write stands regardless.
type Publisher interface {
	Publish(event models.LifecycleEvent) error
}

// HistoryRecorder appends audit rows
type HistoryRecorder interface {
	Record(ctx context.Context, change models.StatusChange) error
}

// CategorySet validates report categories
type CategorySet interface {
	Canonical(name string) (string, bool)
}

// Machine applies lifecycle actions to reports
type Machine struct {
	store      Store
	roles      RoleProvider
	events     Publisher
	history    HistoryRecorder
	categories CategorySet
	retries    int
	now        func() time.Time
}

// Option configures a Machine
type Option func(*Machine)

// WithHistory records an audit row for every accepted write
func WithHistory(h HistoryRecorder) Option {
	return func(m *Machine) { m.history = h }
}

// WithCategories restricts new reports to a category set
func WithCategories(c CategorySet) Option {
	return func(m *Machine) { m.categories = c }
}

// WithRetries bounds automatic stale write retries for AnyVersion calls
func WithRetries(n int) Option {
	return func(m *Machine) {
		if n >= 0 {
			m.retries = n
		}
	}
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

// NewMachine builds a Machine. events may be nil.
func NewMachine(store Store, roles RoleProvider, events Publisher, opts ...Option) *Machine {
	m := &Machine{
		store:   store,
		roles:   roles,
		events:  events,
		retries: 3,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Store returns the report store the machine writes to
func (m *Machine) Store() Store {
	return m.store
}

// Create files a new Pending report owned by a citizen
func (m *Machine) Create(ctx context.Context, actor string, in models.NewReport) (*models.Report, error) {
	if err := m.requireRole(ctx, actor, models.RoleCitizen, "file reports"); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", models.ErrInvalidReport)
	}
	category := strings.TrimSpace(in.Category)
	if m.categories != nil {
		canonical, ok := m.categories.Canonical(category)
		if !ok {
			return nil, fmt.Errorf("%w: unknown category %q", models.ErrInvalidReport, in.Category)
		}
		category = canonical
	} else if category == "" {
		return nil, fmt.Errorf("%w: category is required", models.ErrInvalidReport)
	}

	now := m.now()
	created, err := m.store.Create(ctx, models.Report{
		Owner:         actor,
		Category:      category,
		Title:         title,
		Description:   strings.TrimSpace(in.Description),
		Urgent:        in.Urgent || models.DeriveUrgency(title),
		Location:      models.ParseLocation(in.Location),
		EvidenceImage: strings.TrimSpace(in.EvidenceImage),
		Status:        models.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		return nil, err
	}
	m.committed(ctx, actor, ActionCreate, models.EventCreated, models.Report{}, *created)
	return created, nil
}

// Assign moves a report to Assigned with officer as assignee. It is also the
// reassignment path. The officer's role must already have been checked by the
// caller, see assignment.Resolver.
func (m *Machine) Assign(ctx context.Context, actor, id string, expectedVersion int64, officer string) (*models.Report, error) {
	if err := m.requireRole(ctx, actor, models.RoleAdministrator, "assign reports"); err != nil {
		return nil, err
	}
	if officer == "" {
		return nil, fmt.Errorf("%w: officer is required", models.ErrInvalidAssignee)
	}
	return m.apply(ctx, actor, id, expectedVersion, ActionAssign, models.EventTransition, func(r *models.Report) error {
		to, err := target(ActionAssign, r.Status)
		if err != nil {
			return err
		}
		r.Status = to
		r.Assignee = officer
		r.LastAssignee = officer
		return nil
	})
}

// Start is the assigned officer acknowledging the report
func (m *Machine) Start(ctx context.Context, actor, id string, expectedVersion int64) (*models.Report, error) {
	return m.apply(ctx, actor, id, expectedVersion, ActionStart, models.EventTransition, func(r *models.Report) error {
		to, err := target(ActionStart, r.Status)
		if err != nil {
			return err
		}
		if actor != r.Assignee {
			return &models.UnauthorizedError{Actor: actor, Role: models.RoleOfficer, Action: "start work on a report assigned to someone else"}
		}
		r.Status = to
		return nil
	})
}

// Resolve closes a report. The note and the proof image are written in the
// same conditional write as the status.
func (m *Machine) Resolve(ctx context.Context, actor, id string, expectedVersion int64, note, image string) (*models.Report, error) {
	note, image = strings.TrimSpace(note), strings.TrimSpace(image)
	return m.apply(ctx, actor, id, expectedVersion, ActionResolve, models.EventTransition, func(r *models.Report) error {
		to, err := target(ActionResolve, r.Status)
		if err != nil {
			return err
		}
		if actor != r.Assignee {
			return &models.UnauthorizedError{Actor: actor, Role: models.RoleOfficer, Action: "resolve a report assigned to someone else"}
		}
		if note == "" || image == "" {
			return &models.TransitionError{From: r.Status, To: to, Reason: "resolution requires a note and a proof image"}
		}
		r.Status = to
		r.ResolutionNote = note
		r.ResolutionImage = image
		r.ResolvedAt = m.now()
		return nil
	})
}

// Reopen sends a resolved report back to Pending. Only the owner may do it.
// The assignee is cleared and kept in LastAssignee; the resolution is dropped
// so the next cycle needs fresh proof.
func (m *Machine) Reopen(ctx context.Context, actor, id string, expectedVersion int64) (*models.Report, error) {
	return m.apply(ctx, actor, id, expectedVersion, ActionReopen, models.EventTransition, func(r *models.Report) error {
		to, err := target(ActionReopen, r.Status)
		if err != nil {
			return err
		}
		if actor != r.Owner {
			return &models.UnauthorizedError{Actor: actor, Action: "reopen a report filed by someone else"}
		}
		r.Status = to
		if r.Assignee != "" {
			r.LastAssignee = r.Assignee
		}
		r.Assignee = ""
		r.ResolutionNote = ""
		r.ResolutionImage = ""
		r.ResolvedAt = time.Time{}
		return nil
	})
}

// SetUrgency changes the priority flag. It never affects transitions.
func (m *Machine) SetUrgency(ctx context.Context, actor, id string, expectedVersion int64, urgent bool) (*models.Report, error) {
	if err := m.requireRole(ctx, actor, models.RoleAdministrator, "change report priority"); err != nil {
		return nil, err
	}
	return m.apply(ctx, actor, id, expectedVersion, ActionUrgency, models.EventUpdated, func(r *models.Report) error {
		r.Urgent = urgent
		return nil
	})
}

// Delete hard-removes a report. The removal is conditional on the version so
// the deleted event always follows the last published write of the report.
func (m *Machine) Delete(ctx context.Context, actor, id string, expectedVersion int64) error {
	if err := m.requireRole(ctx, actor, models.RoleAdministrator, "delete reports"); err != nil {
		return err
	}
	attempts := 1
	if expectedVersion == AnyVersion {
		attempts += m.retries
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		current, err := m.store.Get(ctx, id)
		if err != nil {
			return err
		}
		if expectedVersion != AnyVersion && current.Version != expectedVersion {
			return &models.StaleWriteError{ReportID: id, Expected: expectedVersion, Actual: current.Version}
		}
		err = m.store.Delete(ctx, id, current.Version)
		if errors.Is(err, models.ErrStaleWrite) {
			lastErr = err
			zap.S().Debugw("stale delete", "report", id, "attempt", attempt+1, "error", err)
			continue
		}
		if err != nil {
			return err
		}

		gone := *current
		gone.Version++
		gone.UpdatedAt = m.now()
		m.committed(ctx, actor, ActionDelete, models.EventDeleted, *current, gone)
		return nil
	}
	return lastErr
}

// apply runs mutate through the store's conditional update. With AnyVersion it
// reads the current version first and retries stale writes up to m.retries
// times, but only while the status and assignee are still what the first read
// saw. A competing lifecycle change is returned as the stale write.
func (m *Machine) apply(ctx context.Context, actor, id string, expected int64, action Action, kind models.EventKind, mutate models.Mutation) (*models.Report, error) {
	attempts := 1
	if expected == AnyVersion {
		attempts += m.retries
	}

	var (
		lastErr error
		seen    *models.Report
	)
	for attempt := 0; attempt < attempts; attempt++ {
		version := expected
		if expected == AnyVersion {
			current, err := m.store.Get(ctx, id)
			if err != nil {
				return nil, err
			}
			if seen == nil {
				seen = current
			} else if current.Status != seen.Status || current.Assignee != seen.Assignee {
				return nil, lastErr
			}
			version = current.Version
		}

		var before models.Report
		next, err := m.store.Update(ctx, id, version, func(r *models.Report) error {
			before = *r
			if err := mutate(r); err != nil {
				return err
			}
			if !r.Consistent() {
				return fmt.Errorf("report %s: status %s with assignee %q breaks the assignee invariant", r.ID, r.Status, r.Assignee)
			}
			r.UpdatedAt = m.now()
			return nil
		})
		if errors.Is(err, models.ErrStaleWrite) {
			lastErr = err
			zap.S().Debugw("stale write",
				"report", id,
				"action", action,
				"attempt", attempt+1,
				"error", err)
			continue
		}
		if err != nil {
			return nil, err
		}

		m.committed(ctx, actor, action, kind, before, *next)
		return next, nil
	}
	return nil, lastErr
}

// committed runs the side effects of a durable write: audit row and event.
// Neither can fail the write.
func (m *Machine) committed(ctx context.Context, actor string, action Action, kind models.EventKind, before, after models.Report) {
	zap.S().Infow("report updated",
		"report", after.ID,
		"action", action,
		"from", before.Status,
		"to", after.Status,
		"assignee", after.Assignee,
		"version", after.Version,
		"actor", actor)

	if m.history != nil {
		change := models.StatusChange{
			ReportID:   after.ID,
			Action:     string(action),
			FromStatus: before.Status,
			ToStatus:   after.Status,
			Assignee:   after.Assignee,
			Actor:      actor,
			Version:    after.Version,
			CreatedAt:  after.UpdatedAt,
		}
		if err := m.history.Record(ctx, change); err != nil {
			zap.S().Errorw("failed to record report history", "report", after.ID, "error", err)
		}
	}

	if m.events == nil {
		return
	}
	event := models.LifecycleEvent{
		ID:             uuid.NewString(),
		Kind:           kind,
		ReportID:       after.ID,
		PreviousStatus: before.Status,
		NewStatus:      after.Status,
		Assignee:       after.Assignee,
		Owner:          after.Owner,
		Actor:          actor,
		Version:        after.Version,
		Timestamp:      after.UpdatedAt,
	}
	if kind != models.EventDeleted {
		snapshot := after
		event.Report = &snapshot
	}
	if before.Assignee != after.Assignee || kind == models.EventDeleted {
		event.PreviousAssignee = before.Assignee
	}
	if err := m.events.Publish(event); err != nil {
		zap.S().Warnw("lifecycle event not delivered to every session",
			"report", after.ID,
			"version", after.Version,
			"error", err)
	}
}

func (m *Machine) requireRole(ctx context.Context, actor string, want models.Role, action string) error {
	role, err := m.roles.RoleOf(ctx, actor)
	if errors.Is(err, models.ErrNotFound) {
		return &models.UnauthorizedError{Actor: actor, Action: action}
	}
	if err != nil {
		return err
	}
	if role != want {
		return &models.UnauthorizedError{Actor: actor, Role: role, Action: action}
	}
	return nil
}

func target(action Action, from models.Status) (models.Status, error) {
	to, ok := Target(action, from)
	if !ok {
		return "", &models.TransitionError{From: from, To: intendedTarget(action)}
	}
	return to, nil
}
