package databases

// go generate: mockery --name ReportDatabase

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/linesmerrill/grievance-api/models"
)

const reportName = "reports"

// ReportDatabase contains the methods to use with the report database. Update
// and Delete are compare-and-swap on the report version.
type ReportDatabase interface {
	Get(ctx context.Context, id string) (*models.Report, error)
	Create(ctx context.Context, report models.Report) (*models.Report, error)
	Update(ctx context.Context, id string, expectedVersion int64, mutate models.Mutation) (*models.Report, error)
	Delete(ctx context.Context, id string, expectedVersion int64) error
	List(ctx context.Context, filter models.ReportFilter) ([]models.Report, error)
}

type reportDatabase struct {
	db DatabaseHelper
}

// NewReportDatabase initializes a new instance of report database with the provided db connection
func NewReportDatabase(db DatabaseHelper) ReportDatabase {
	return &reportDatabase{
		db: db,
	}
}

func (c *reportDatabase) Get(ctx context.Context, id string) (*models.Report, error) {
	report := &models.Report{}
	err := c.db.Collection(reportName).FindOne(ctx, bson.M{"_id": id}).Decode(report)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("report %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return report, nil
}

func (c *reportDatabase) Create(ctx context.Context, report models.Report) (*models.Report, error) {
	if report.ID == "" {
		report.ID = primitive.NewObjectID().Hex()
	}
	report.Version = 0
	if _, err := c.db.Collection(reportName).InsertOne(ctx, report); err != nil {
		return nil, err
	}
	return &report, nil
}

func (c *reportDatabase) Update(ctx context.Context, id string, expectedVersion int64, mutate models.Mutation) (*models.Report, error) {
	current, err := c.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Version != expectedVersion {
		return nil, &models.StaleWriteError{ReportID: id, Expected: expectedVersion, Actual: current.Version}
	}

	next := *current
	if err := mutate(&next); err != nil {
		return nil, err
	}
	next.ID = current.ID
	next.Version = expectedVersion + 1

	res, err := c.db.Collection(reportName).ReplaceOne(ctx, bson.M{"_id": id, "version": expectedVersion}, next)
	if err != nil {
		return nil, err
	}
	if res.MatchedCount == 0 {
		// someone else won between the read and the conditional replace
		latest, err := c.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, &models.StaleWriteError{ReportID: id, Expected: expectedVersion, Actual: latest.Version}
	}
	return &next, nil
}

func (c *reportDatabase) Delete(ctx context.Context, id string, expectedVersion int64) error {
	res, err := c.db.Collection(reportName).DeleteOne(ctx, bson.M{"_id": id, "version": expectedVersion})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		// missing, or written since the caller read it
		latest, err := c.Get(ctx, id)
		if err != nil {
			return err
		}
		return &models.StaleWriteError{ReportID: id, Expected: expectedVersion, Actual: latest.Version}
	}
	return nil
}

func (c *reportDatabase) List(ctx context.Context, filter models.ReportFilter) ([]models.Report, error) {
	opts := options.Find().SetSort(bson.D{{Key: "urgent", Value: -1}, {Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}})
	if filter.Limit > 0 {
		p := newMongoPaginate(filter.Limit, filter.Page).getPaginatedOpts()
		opts.SetLimit(*p.Limit).SetSkip(*p.Skip)
	}
	cursor, err := c.db.Collection(reportName).Find(ctx, reportQuery(filter), opts)
	if err != nil {
		return nil, err
	}
	reports := []models.Report{}
	if err := cursor.Decode(&reports); err != nil {
		return nil, err
	}
	return reports, nil
}

// reportQuery translates a ReportFilter into a mongo filter document
func reportQuery(f models.ReportFilter) bson.M {
	q := bson.M{}
	if f.Owner != "" {
		q["owner"] = f.Owner
	}
	if f.Assignee != "" {
		q["assignee"] = f.Assignee
	}
	statuses := f.Statuses
	if f.OpenOnly {
		open := []models.Status{}
		for _, s := range models.Statuses {
			if s.Open() && (len(statuses) == 0 || containsStatus(statuses, s)) {
				open = append(open, s)
			}
		}
		statuses = open
		if len(statuses) == 0 {
			// only closed statuses were requested, nothing can match
			statuses = []models.Status{""}
		}
	}
	if len(statuses) > 0 {
		q["status"] = bson.M{"$in": statuses}
	}
	if f.Category != "" {
		q["category"] = primitive.Regex{Pattern: "^" + regexp.QuoteMeta(f.Category) + "$", Options: "i"}
	}
	if f.Search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
		q["$or"] = bson.A{bson.M{"title": pattern}, bson.M{"category": pattern}}
	}
	return q
}

func containsStatus(list []models.Status, s models.Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
