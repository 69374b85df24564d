package databases

import (
	"context"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/linesmerrill/grievance-api/models"
)

// Directory is the identity and role provider backed by the users collection
type Directory struct {
	DB UserDatabase
}

// NewDirectory wraps a UserDatabase
func NewDirectory(db UserDatabase) *Directory {
	return &Directory{DB: db}
}

// User returns the user with the given id
func (d *Directory) User(ctx context.Context, id string) (*models.User, error) {
	return d.DB.FindOne(ctx, bson.M{"_id": id})
}

// RoleOf returns the role of an identity
func (d *Directory) RoleOf(ctx context.Context, id string) (models.Role, error) {
	u, err := d.User(ctx, id)
	if err != nil {
		return "", err
	}
	return u.Details.Role, nil
}

// Officers lists every officer in registration order, oldest first
func (d *Directory) Officers(ctx context.Context) ([]models.User, error) {
	return d.withRole(ctx, models.RoleOfficer)
}

// Administrators lists every administrator in registration order
func (d *Directory) Administrators(ctx context.Context) ([]models.User, error) {
	return d.withRole(ctx, models.RoleAdministrator)
}

func (d *Directory) withRole(ctx context.Context, role models.Role) ([]models.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "user.createdAt", Value: 1}, {Key: "_id", Value: 1}})
	users, err := d.DB.Find(ctx, bson.M{"user.role": role}, opts)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(users, func(i, j int) bool {
		a, b := users[i].Details.CreatedAt, users[j].Details.CreatedAt
		if !a.Equal(b) {
			return a.Before(b)
		}
		return users[i].ID < users[j].ID
	})
	return users, nil
}
