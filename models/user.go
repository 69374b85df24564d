package models

import (
	"fmt"
	"strings"
	"time"
)

// Role determines which operations an identity may invoke
type Role string

// Known roles
const (
	RoleCitizen       Role = "citizen"
	RoleOfficer       Role = "officer"
	RoleAdministrator Role = "admin"
)

// ParseRole converts user input into a Role. "employee" is the field worker
// name used by the citizen portal.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "citizen", "":
		return RoleCitizen, nil
	case "officer", "employee":
		return RoleOfficer, nil
	case "admin", "administrator":
		return RoleAdministrator, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// User holds the structure for the user collection in mongo
type User struct {
	ID      string      `json:"_id" bson:"_id"`
	Details UserDetails `json:"user" bson:"user"`
}

// UserDetails holds the inner user structure as stored in mongo
type UserDetails struct {
	Email     string    `json:"email" bson:"email"`
	Name      string    `json:"name" bson:"name"`
	Password  string    `json:"password,omitempty" bson:"password"`
	Role      Role      `json:"role" bson:"role"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// OfficerWorkload is the number of open reports currently assigned to an officer
type OfficerWorkload struct {
	Officer     string    `json:"officer"`
	Name        string    `json:"name,omitempty"`
	Email       string    `json:"email,omitempty"`
	OpenReports int       `json:"openReports"`
	Since       time.Time `json:"registeredAt"`
}
