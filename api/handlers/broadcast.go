package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/linesmerrill/grievance-api/api"
	"github.com/linesmerrill/grievance-api/config"
	"github.com/linesmerrill/grievance-api/databases"
	"github.com/linesmerrill/grievance-api/models"
)

const maxBroadcastLength = 1000

// BroadcastSink pushes an administrator message to connected sessions
type BroadcastSink interface {
	Broadcast(msg models.Broadcast) error
}

// Broadcast handles administrator broadcast messages
type Broadcast struct {
	DB    databases.BroadcastDatabase
	Hub   BroadcastSink
	Roles RoleSource
}

type broadcastRequest struct {
	Message string `json:"message"`
}

// CreateBroadcastHandler stores a message and pushes it to every session
func (b Broadcast) CreateBroadcastHandler(w http.ResponseWriter, r *http.Request) {
	var req broadcastRequest
	if err := decodeBody(r, &req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	message := strings.TrimSpace(req.Message)
	if message == "" || len(message) > maxBroadcastLength {
		config.ErrorStatus("message is required", http.StatusBadRequest, w, fmt.Errorf("message must be 1 to %d characters", maxBroadcastLength))
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	scope, err := requireAdmin(ctx, b.Roles, "send broadcasts")
	if err != nil {
		engineError("failed to create broadcast", w, err)
		return
	}

	msg := models.Broadcast{
		ID:        uuid.New().String(),
		Author:    scope.Identity,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
	if err := b.DB.InsertOne(ctx, msg); err != nil {
		engineError("failed to save broadcast", w, err)
		return
	}
	if err := b.Hub.Broadcast(msg); err != nil {
		zap.S().Warnw("broadcast not delivered to every session", "id", msg.ID, "error", err)
	}
	writeJSON(w, http.StatusCreated, msg)
}

// BroadcastsHandler returns the most recent broadcasts, newest first
func (b Broadcast) BroadcastsHandler(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	if _, err := scopeOf(ctx, b.Roles); err != nil {
		engineError("failed to list broadcasts", w, err)
		return
	}
	msgs, err := b.DB.Recent(ctx, limit)
	if err != nil {
		engineError("failed to list broadcasts", w, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}
