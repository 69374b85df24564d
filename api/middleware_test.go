package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/crypto/bcrypt"

	"github.com/linesmerrill/grievance-api/api"
	"github.com/linesmerrill/grievance-api/databases/mocks"
	"github.com/linesmerrill/grievance-api/models"
)

func officer(t *testing.T) models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)
	return models.User{ID: "o1", Details: models.UserDetails{
		Email:    "officer@city.example",
		Password: string(hash),
		Role:     models.RoleOfficer,
	}}
}

func TestValidateUser(t *testing.T) {
	db := &mocks.UserDatabase{}
	db.On("Find", mock.Anything, bson.M{"user.email": "officer@city.example"}).Return([]models.User{officer(t)}, nil)
	db.On("Find", mock.Anything, bson.M{"user.email": "nobody@city.example"}).Return([]models.User{}, nil)
	m := api.MiddlewareDB{DB: db}
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	info, err := m.ValidateUser(context.Background(), req, "officer@city.example", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "o1", info.ID())

	info, err = m.ValidateUser(context.Background(), req, " Officer@City.Example", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "o1", info.ID())
	assert.Equal(t, "officer@city.example", info.UserName())

	_, err = m.ValidateUser(context.Background(), req, "officer@city.example", "wrong")
	assert.Error(t, err)

	_, err = m.ValidateUser(context.Background(), req, "nobody@city.example", "hunter2")
	assert.Error(t, err)
}

func TestMiddleware_StoresActorAndIssuesTokens(t *testing.T) {
	db := &mocks.UserDatabase{}
	db.On("Find", mock.Anything, bson.M{"user.email": "officer@city.example"}).Return([]models.User{officer(t)}, nil)
	m := api.MiddlewareDB{DB: db}
	m.SetupGoGuardian()

	var actor string
	protected := api.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, _ = api.ActorFrom(r.Context())
	}))

	rr := httptest.NewRecorder()
	protected.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/reports", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/token", nil)
	req.SetBasicAuth("Officer@City.example", "hunter2")
	rr = httptest.NewRecorder()
	api.Middleware(http.HandlerFunc(m.CreateToken)).ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "o1", body["_id"])
	assert.Equal(t, "officer", body["role"])
	require.NotEmpty(t, body["token"])

	req = httptest.NewRequest(http.MethodGet, "/api/v1/reports", nil)
	req.Header.Set("Authorization", "Bearer "+body["token"])
	rr = httptest.NewRecorder()
	protected.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "o1", actor)
}

func TestOptionalMiddleware(t *testing.T) {
	db := &mocks.UserDatabase{}
	db.On("Find", mock.Anything, bson.M{"user.email": "officer@city.example"}).Return([]models.User{officer(t)}, nil)
	db.On("Find", mock.Anything, bson.M{"user.email": "ghost@city.example"}).Return([]models.User{}, nil)
	api.MiddlewareDB{DB: db}.SetupGoGuardian()

	var actor string
	var seen bool
	h := api.OptionalMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, seen = api.ActorFrom(r.Context())
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/users", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, seen)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users", nil)
	req.SetBasicAuth("officer@city.example", "hunter2")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "o1", actor)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/users", nil)
	req.SetBasicAuth("ghost@city.example", "hunter2")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRevokeToken_RequiresBearer(t *testing.T) {
	rr := httptest.NewRecorder()
	api.RevokeToken(rr, httptest.NewRequest(http.MethodDelete, "/api/v1/auth/logout", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
