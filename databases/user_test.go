package databases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/linesmerrill/grievance-api/databases"
	"github.com/linesmerrill/grievance-api/databases/mocks"
	"github.com/linesmerrill/grievance-api/models"
)

func TestUserDatabase_FindOne(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}
	srHelperErr := &mocks.SingleResultHelper{}
	srHelperMissing := &mocks.SingleResultHelper{}
	srHelperCorrect := &mocks.SingleResultHelper{}

	srHelperErr.On("Decode", mock.Anything).Return(errors.New("mocked-error"))
	srHelperMissing.On("Decode", mock.Anything).Return(mongo.ErrNoDocuments)
	srHelperCorrect.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(*models.User)
		arg.ID = "mocked-user"
	})

	collectionHelper.On("FindOne", context.Background(), bson.M{"error": true}).Return(srHelperErr)
	collectionHelper.On("FindOne", context.Background(), bson.M{"missing": true}).Return(srHelperMissing)
	collectionHelper.On("FindOne", context.Background(), bson.M{"error": false}).Return(srHelperCorrect)
	dbHelper.On("Collection", "users").Return(collectionHelper)

	userDba := databases.NewUserDatabase(dbHelper)

	user, err := userDba.FindOne(context.Background(), bson.M{"error": true})
	assert.Empty(t, user)
	assert.EqualError(t, err, "mocked-error")

	user, err = userDba.FindOne(context.Background(), bson.M{"missing": true})
	assert.Nil(t, user)
	assert.ErrorIs(t, err, models.ErrNotFound)

	user, err = userDba.FindOne(context.Background(), bson.M{"error": false})
	require.NoError(t, err)
	assert.Equal(t, &models.User{ID: "mocked-user"}, user)
}

func TestUserDatabase_Find(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}
	cursorHelper := &mocks.CursorHelper{}

	cursorHelper.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(*[]models.User)
		*arg = []models.User{{ID: "o1"}, {ID: "o2"}}
	})
	collectionHelper.On("Find", context.Background(), bson.M{"error": false}).Return(cursorHelper, nil)
	collectionHelper.On("Find", context.Background(), bson.M{"error": true}).Return(nil, errors.New("mocked-error"))
	dbHelper.On("Collection", "users").Return(collectionHelper)

	userDba := databases.NewUserDatabase(dbHelper)

	users, err := userDba.Find(context.Background(), bson.M{"error": true})
	assert.Empty(t, users)
	assert.EqualError(t, err, "mocked-error")

	users, err = userDba.Find(context.Background(), bson.M{"error": false})
	require.NoError(t, err)
	assert.Equal(t, []models.User{{ID: "o1"}, {ID: "o2"}}, users)
}

func TestUserDatabase_InsertOne(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}
	taken := &mocks.SingleResultHelper{}
	free := &mocks.SingleResultHelper{}

	taken.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(*models.User)
		arg.ID = "c1"
	})
	free.On("Decode", mock.Anything).Return(mongo.ErrNoDocuments)

	collectionHelper.On("FindOne", mock.Anything, bson.M{"user.email": "c1@city.example"}).Return(taken)
	collectionHelper.On("FindOne", mock.Anything, bson.M{"user.email": "new@city.example"}).Return(free)
	collectionHelper.On("InsertOne", mock.Anything, mock.AnythingOfType("models.User")).Return(&mocks.InsertOneResultHelper{}, nil)
	dbHelper.On("Collection", "users").Return(collectionHelper)

	userDba := databases.NewUserDatabase(dbHelper)

	err := userDba.InsertOne(context.Background(), models.User{ID: "x", Details: models.UserDetails{Email: "c1@city.example"}})
	assert.EqualError(t, err, "user with email c1@city.example already exists")

	err = userDba.InsertOne(context.Background(), models.User{ID: "n1", Details: models.UserDetails{Email: "new@city.example"}})
	assert.NoError(t, err)
	collectionHelper.AssertNumberOfCalls(t, "InsertOne", 1)
}
