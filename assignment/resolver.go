// Package assignment decides who a report goes to and hands the write to the
// lifecycle machine.
package assignment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/linesmerrill/grievance-api/lifecycle"
	"github.com/linesmerrill/grievance-api/models"
	"github.com/linesmerrill/grievance-api/workload"
)

// Auto asks the resolver to pick the least loaded officer
const Auto = "auto"

// Directory looks up identities. databases.Directory implements it.
type Directory interface {
	User(ctx context.Context, id string) (*models.User, error)
	RoleOf(ctx context.Context, id string) (models.Role, error)
	Officers(ctx context.Context) ([]models.User, error)
}

// Resolver validates assignment requests
type Resolver struct {
	machine *lifecycle.Machine
	dir     Directory
}

// NewResolver builds a Resolver
func NewResolver(machine *lifecycle.Machine, dir Directory) *Resolver {
	return &Resolver{machine: machine, dir: dir}
}

// Assign gives reportID to officer, or to the least loaded officer when
// officer is Auto. It is also how a report is reassigned.
func (rs *Resolver) Assign(ctx context.Context, actor, reportID, officer string, expectedVersion int64) (*models.Report, error) {
	role, err := rs.dir.RoleOf(ctx, actor)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}
	if role != models.RoleAdministrator {
		return nil, &models.UnauthorizedError{Actor: actor, Role: role, Action: "assign reports"}
	}

	officer = strings.TrimSpace(officer)
	switch {
	case officer == "":
		return nil, fmt.Errorf("%w: officer is required", models.ErrInvalidAssignee)
	case strings.EqualFold(officer, Auto):
		officer, err = rs.pick(ctx)
	default:
		err = rs.check(ctx, officer)
	}
	if err != nil {
		return nil, err
	}
	return rs.machine.Assign(ctx, actor, reportID, expectedVersion, officer)
}

func (rs *Resolver) check(ctx context.Context, officer string) error {
	u, err := rs.dir.User(ctx, officer)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("officer %s: %w", officer, models.ErrNotFound)
		}
		return err
	}
	if u.Details.Role != models.RoleOfficer {
		return fmt.Errorf("%w: %s is a %s", models.ErrInvalidAssignee, officer, u.Details.Role)
	}
	return nil
}

// pick works on a snapshot that may be slightly stale. The write still goes
// through the versioned update, only the choice can be off by a report.
func (rs *Resolver) pick(ctx context.Context) (string, error) {
	officers, err := rs.dir.Officers(ctx)
	if err != nil {
		return "", err
	}
	open, err := rs.machine.Store().List(ctx, models.ReportFilter{OpenOnly: true})
	if err != nil {
		return "", err
	}
	best, ok := workload.LeastLoaded(officers, open)
	if !ok {
		return "", models.ErrNoOfficerAvailable
	}
	zap.S().Debugw("auto assignment picked officer",
		"officer", best.ID,
		"openReports", workload.Of(best.ID, open),
		"candidates", len(officers))
	return best.ID, nil
}
