package models

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Status is the lifecycle status of a report
type Status string

// The statuses a report can be in. Resolved is terminal but can be reopened.
const (
	StatusPending    Status = "Pending"
	StatusAssigned   Status = "Assigned"
	StatusInProgress Status = "InProgress"
	StatusResolved   Status = "Resolved"
)

// Statuses lists every status in lifecycle order
var Statuses = []Status{StatusPending, StatusAssigned, StatusInProgress, StatusResolved}

// ParseStatus converts user input into a Status. "In Progress" is accepted
// because older dashboards send it.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", "")) {
	case "pending":
		return StatusPending, nil
	case "assigned":
		return StatusAssigned, nil
	case "inprogress":
		return StatusInProgress, nil
	case "resolved":
		return StatusResolved, nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// Valid reports whether s is one of the known statuses
func (s Status) Valid() bool {
	for _, st := range Statuses {
		if s == st {
			return true
		}
	}
	return false
}

// Open reports whether a report in this status still counts against an officer
func (s Status) Open() bool {
	return s != StatusResolved
}

// Staffed reports whether a report in this status must carry an assignee
func (s Status) Staffed() bool {
	return s == StatusAssigned || s == StatusInProgress || s == StatusResolved
}

// Report is a single citizen-filed grievance
type Report struct {
	ID              string    `bson:"_id" json:"id"`
	Owner           string    `bson:"owner" json:"owner"`
	Category        string    `bson:"category" json:"category"`
	Title           string    `bson:"title" json:"title"`
	Description     string    `bson:"description" json:"description"`
	Urgent          bool      `bson:"urgent" json:"urgent"`
	Location        *Location `bson:"location,omitempty" json:"location,omitempty"`
	EvidenceImage   string    `bson:"evidenceImage,omitempty" json:"evidenceImage,omitempty"`
	Status          Status    `bson:"status" json:"status"`
	Assignee        string    `bson:"assignee" json:"assignee"`
	LastAssignee    string    `bson:"lastAssignee,omitempty" json:"lastAssignee,omitempty"`
	ResolutionNote  string    `bson:"resolutionNote,omitempty" json:"resolutionNote,omitempty"`
	ResolutionImage string    `bson:"resolutionImage,omitempty" json:"resolutionImage,omitempty"`
	Version         int64     `bson:"version" json:"version"`
	CreatedAt       time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time `bson:"updatedAt" json:"updatedAt"`
	ResolvedAt      time.Time `bson:"resolvedAt,omitempty" json:"resolvedAt,omitempty"`
}

// Consistent checks the assignee/status invariant: a report carries an
// assignee exactly when its status requires one.
func (r Report) Consistent() bool {
	return r.Status.Staffed() == (r.Assignee != "")
}

// Mutation changes a report in place. Returning an error aborts the write.
type Mutation func(r *Report) error

// NewReport holds the citizen supplied fields for a new report
type NewReport struct {
	Category      string `json:"category"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	Urgent        bool   `json:"urgent"`
	Location      string `json:"location"`
	EvidenceImage string `json:"evidenceImage"`
}

var urgencyMarkers = []string{"urgent", "🚨"}

// DeriveUrgency reports whether a title carries an urgency marker such as
// "URGENT:" or "[urgent]".
func DeriveUrgency(title string) bool {
	lower := strings.ToLower(title)
	for _, m := range urgencyMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// Location is where the issue was observed. Coordinates are preferred, the
// raw text is kept for anything that could not be parsed.
type Location struct {
	Latitude  *float64 `bson:"latitude,omitempty" json:"latitude,omitempty"`
	Longitude *float64 `bson:"longitude,omitempty" json:"longitude,omitempty"`
	Text      string   `bson:"text,omitempty" json:"text,omitempty"`
}

var coordPattern = regexp.MustCompile(`(?i)^\s*(?:lat(?:itude)?\s*:\s*)?(-?\d+(?:\.\d+)?)\s*,\s*(?:lo?ng(?:itude)?\s*:\s*)?(-?\d+(?:\.\d+)?)\s*$`)

// ParseLocation accepts "Lat: 17.38, Long: 78.48", "17.38,78.48" or any free
// text. An empty string yields nil.
func ParseLocation(s string) *Location {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	loc := &Location{Text: s}
	m := coordPattern.FindStringSubmatch(s)
	if m == nil {
		return loc
	}
	lat, errLat := strconv.ParseFloat(m[1], 64)
	lng, errLng := strconv.ParseFloat(m[2], 64)
	if errLat != nil || errLng != nil || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return loc
	}
	loc.Latitude, loc.Longitude = &lat, &lng
	return loc
}

// MapURL links to the location on a map, or returns "" without coordinates
func (l *Location) MapURL() string {
	if l == nil || l.Latitude == nil || l.Longitude == nil {
		return ""
	}
	q := strconv.FormatFloat(*l.Latitude, 'f', -1, 64) + "," + strconv.FormatFloat(*l.Longitude, 'f', -1, 64)
	return "https://www.google.com/maps?q=" + url.QueryEscape(q)
}

// ReportFilter narrows a report listing. Zero values mean "any".
type ReportFilter struct {
	Owner    string
	Assignee string
	Statuses []Status
	OpenOnly bool
	Category string
	Search   string
	Limit    int
	Page     int
}

// Matches reports whether r passes the filter. Limit and Page are ignored.
func (f ReportFilter) Matches(r Report) bool {
	if f.Owner != "" && r.Owner != f.Owner {
		return false
	}
	if f.Assignee != "" && r.Assignee != f.Assignee {
		return false
	}
	if f.OpenOnly && !r.Status.Open() {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if r.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Category != "" && !strings.EqualFold(r.Category, f.Category) {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(r.Title), q) && !strings.Contains(strings.ToLower(r.Category), q) {
			return false
		}
	}
	return true
}

// DisplayLess orders urgent reports first, then newest first, then by id
func DisplayLess(a, b Report) bool {
	if a.Urgent != b.Urgent {
		return a.Urgent
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID < b.ID
}
