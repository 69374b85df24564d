package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/linesmerrill/grievance-api/config"
	"github.com/linesmerrill/grievance-api/databases"
	"github.com/linesmerrill/grievance-api/models"
)

// Creates the first administrator, who can then create officers through the api.
// Usage: go run scripts/seed_admin.go --email admin@city.example --password <password>
// With --hash-only it just prints a bcrypt hash for fixing a password by hand.
func main() {
	email := pflag.String("email", "", "administrator email")
	name := pflag.String("name", "Administrator", "display name")
	password := pflag.String("password", "", "administrator password")
	hashOnly := pflag.Bool("hash-only", false, "print the bcrypt hash and exit")
	pflag.Parse()

	if *password == "" || (!*hashOnly && *email == "") {
		fmt.Println("Usage: go run scripts/seed_admin.go --email <email> --password <password>")
		fmt.Println("       go run scripts/seed_admin.go --hash-only --password <password>")
		os.Exit(1)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		fmt.Printf("Error generating hash: %v\n", err)
		os.Exit(1)
	}
	if *hashOnly {
		fmt.Printf("Bcrypt Hash: %s\n", string(hashedPassword))
		fmt.Printf("\nTo update in MongoDB, run:\n")
		fmt.Printf("db.users.updateOne(\n")
		fmt.Printf("  {\"user.email\": \"<email>\"},\n")
		fmt.Printf("  {$set: {\"user.password\": \"%s\"}}\n", string(hashedPassword))
		fmt.Printf(")\n")
		return
	}

	conf := config.New()
	client, err := databases.NewClient(conf)
	if err != nil {
		fmt.Printf("Error creating client: %v\n", err)
		os.Exit(1)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := client.Connect(ctx); err != nil {
		fmt.Printf("Error connecting to database: %v\n", err)
		os.Exit(1)
	}
	defer client.Disconnect(context.Background())

	admin := models.User{
		ID: primitive.NewObjectID().Hex(),
		Details: models.UserDetails{
			Email:     strings.ToLower(strings.TrimSpace(*email)),
			Name:      *name,
			Password:  string(hashedPassword),
			Role:      models.RoleAdministrator,
			CreatedAt: time.Now().UTC(),
		},
	}
	users := databases.NewUserDatabase(databases.NewDatabase(conf, client))
	if err := users.InsertOne(ctx, admin); err != nil {
		fmt.Printf("Error creating administrator: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Created administrator %s with id %s\n", admin.Details.Email, admin.ID)
}
