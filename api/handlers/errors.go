package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/linesmerrill/grievance-api/api"
	"github.com/linesmerrill/grievance-api/config"
	"github.com/linesmerrill/grievance-api/lifecycle"
	"github.com/linesmerrill/grievance-api/models"
	"github.com/linesmerrill/grievance-api/reconciler"
)

// engineError maps an engine error onto an http status and writes it
func engineError(message string, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		config.ErrorStatus(message, http.StatusNotFound, w, err)
	case errors.Is(err, models.ErrUnauthorized):
		config.ErrorStatus(message, http.StatusForbidden, w, err)
	case errors.Is(err, models.ErrStaleWrite):
		config.RetryableErrorStatus(message, http.StatusConflict, w, err)
	case errors.Is(err, models.ErrInvalidTransition):
		config.ErrorStatus(message, http.StatusConflict, w, err)
	case errors.Is(err, models.ErrInvalidReport), errors.Is(err, models.ErrInvalidAssignee):
		config.ErrorStatus(message, http.StatusUnprocessableEntity, w, err)
	case errors.Is(err, models.ErrNoOfficerAvailable):
		config.ErrorStatus(message, http.StatusServiceUnavailable, w, err)
	case errors.Is(err, context.DeadlineExceeded):
		config.RetryableErrorStatus(message, http.StatusServiceUnavailable, w, err)
	default:
		config.ErrorStatus(message, http.StatusInternalServerError, w, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

// decodeBody decodes an optional json body. An empty body leaves v untouched.
func decodeBody(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// expectedVersion turns an optional version from a request body into the
// value the lifecycle machine expects
func expectedVersion(v *int64) int64 {
	if v == nil {
		return lifecycle.AnyVersion
	}
	return *v
}

// RoleSource resolves the role of an authenticated caller
type RoleSource interface {
	RoleOf(ctx context.Context, id string) (models.Role, error)
}

// scopeOf returns the caller's identity and role
func scopeOf(ctx context.Context, roles RoleSource) (reconciler.Scope, error) {
	id, ok := api.ActorFrom(ctx)
	if !ok {
		return reconciler.Scope{}, &models.UnauthorizedError{Action: "call this endpoint"}
	}
	role, err := roles.RoleOf(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return reconciler.Scope{}, &models.UnauthorizedError{Actor: id, Action: "call this endpoint"}
	}
	if err != nil {
		return reconciler.Scope{}, fmt.Errorf("failed to look up caller: %w", err)
	}
	return reconciler.Scope{Identity: id, Role: role}, nil
}

// requireAdmin returns the caller's scope or an UnauthorizedError
func requireAdmin(ctx context.Context, roles RoleSource, action string) (reconciler.Scope, error) {
	scope, err := scopeOf(ctx, roles)
	if err != nil {
		return scope, err
	}
	if scope.Role != models.RoleAdministrator {
		return scope, &models.UnauthorizedError{Actor: scope.Identity, Role: scope.Role, Action: action}
	}
	return scope, nil
}
