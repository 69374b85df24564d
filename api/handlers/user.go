package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/linesmerrill/grievance-api/api"
	"github.com/linesmerrill/grievance-api/config"
	"github.com/linesmerrill/grievance-api/databases"
	"github.com/linesmerrill/grievance-api/models"
)

// User struct for handling user operations
type User struct {
	DB    databases.UserDatabase
	Roles RoleSource
	// Cost is the bcrypt cost, bcrypt.DefaultCost when zero
	Cost int
}

type createUserRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// UserCreateHandler registers a user. Anyone may register as a citizen,
// officers and administrators can only be created by an administrator.
func (u User) UserCreateHandler(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeBody(r, &req); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}
	email := api.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		config.ErrorStatus("email and password are required", http.StatusBadRequest, w, fmt.Errorf("missing credentials"))
		return
	}
	role, err := models.ParseRole(req.Role)
	if err != nil {
		config.ErrorStatus("invalid role", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if role != models.RoleCitizen {
		if _, err := requireAdmin(ctx, u.Roles, "create "+string(role)+" accounts"); err != nil {
			engineError("failed to create user", w, err)
			return
		}
	}

	// check if the user already exists
	existingUser, err := u.DB.FindOne(ctx, bson.M{"user.email": email})
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		engineError("failed to check email", w, err)
		return
	}
	if existingUser != nil {
		config.ErrorStatus("email already exists", http.StatusConflict, w, fmt.Errorf("duplicate email"))
		return
	}

	cost := u.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), cost)
	if err != nil {
		config.ErrorStatus("failed to hash password", http.StatusInternalServerError, w, err)
		return
	}

	user := models.User{
		ID: primitive.NewObjectID().Hex(),
		Details: models.UserDetails{
			Email:     email,
			Name:      strings.TrimSpace(req.Name),
			Password:  string(hashedPassword),
			Role:      role,
			CreatedAt: time.Now().UTC(),
		},
	}
	if err := u.DB.InsertOne(ctx, user); err != nil {
		config.ErrorStatus("failed to insert user", http.StatusInternalServerError, w, err)
		return
	}
	zap.S().Infow("user created", "id", user.ID, "role", role)

	user.Details.Password = ""
	writeJSON(w, http.StatusCreated, user)
}

// CurrentUserHandler returns the authenticated caller
func (u User) CurrentUserHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := api.ActorFrom(r.Context())
	if !ok {
		engineError("failed to get user", w, &models.UnauthorizedError{Action: "view profile"})
		return
	}
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	user, err := u.DB.FindOne(ctx, bson.M{"_id": id})
	if err != nil {
		engineError("failed to get user", w, err)
		return
	}
	user.Details.Password = ""
	writeJSON(w, http.StatusOK, user)
}
