package scheduler

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/linesmerrill/grievance-api/databases"
	"github.com/linesmerrill/grievance-api/models"
	"github.com/linesmerrill/grievance-api/workload"
)

const digestLock = "workload_digest_job"

// Directory lists the people a digest is about and who receives it
type Directory interface {
	Officers(ctx context.Context) ([]models.User, error)
	Administrators(ctx context.Context) ([]models.User, error)
}

// Reports lists reports
type Reports interface {
	List(ctx context.Context, filter models.ReportFilter) ([]models.Report, error)
}

// Sessions pushes a digest to connected administrator dashboards
type Sessions interface {
	SendDigest(loads []models.OfficerWorkload) error
}

// Mailer emails a digest to administrators
type Mailer interface {
	SendDigest(admins []models.User, loads []models.OfficerWorkload) error
}

// Scheduler handles periodic background jobs
type Scheduler struct {
	cron       *cron.Cron
	schedule   string
	Reports    Reports
	Directory  Directory
	Sessions   Sessions
	Mailer     Mailer
	LockDB     databases.SchedulerLockDatabase
	instanceID string
}

// NewScheduler creates a new scheduler instance. mailer may be nil.
func NewScheduler(
	schedule string,
	reports Reports,
	dir Directory,
	sessions Sessions,
	mailer Mailer,
	lockDB databases.SchedulerLockDatabase,
) *Scheduler {
	// Heroku sets DYNO to "web.1", "web.2", etc.
	instanceID := os.Getenv("DYNO")
	if instanceID == "" {
		instanceID = fmt.Sprintf("instance-%d", time.Now().UnixNano())
	}

	return &Scheduler{
		cron:       cron.New(cron.WithLocation(time.UTC)),
		schedule:   schedule,
		Reports:    reports,
		Directory:  dir,
		Sessions:   sessions,
		Mailer:     mailer,
		LockDB:     lockDB,
		instanceID: instanceID,
	}
}

// Start registers the jobs and starts the cron loop
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.workloadDigest); err != nil {
		zap.S().Errorw("failed to register workload digest job", "schedule", s.schedule, "error", err)
		return err
	}
	s.cron.Start()
	zap.S().Infow("scheduler started", "digest", s.schedule, "instance", s.instanceID)
	return nil
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	zap.S().Info("scheduler stopped")
}

func (s *Scheduler) workloadDigest() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	if _, err := s.RunDigest(ctx); err != nil {
		zap.S().Errorw("workload digest failed", "error", err)
	}
}

// RunDigest computes the officer workload snapshot and pushes it to
// administrators. It returns false without doing anything when another
// instance holds the job lock.
func (s *Scheduler) RunDigest(ctx context.Context) (bool, error) {
	acquired, err := s.LockDB.TryAcquireLock(ctx, digestLock, s.instanceID, 10*time.Minute)
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock for workload digest: %w", err)
	}
	if !acquired {
		zap.S().Debug("workload digest already running on another instance, skipping")
		return false, nil
	}
	defer func() {
		if err := s.LockDB.ReleaseLock(ctx, digestLock, s.instanceID); err != nil {
			zap.S().Warnw("failed to release workload digest lock", "error", err)
		}
	}()

	officers, err := s.Directory.Officers(ctx)
	if err != nil {
		return true, fmt.Errorf("failed to list officers: %w", err)
	}
	open, err := s.Reports.List(ctx, models.ReportFilter{OpenOnly: true})
	if err != nil {
		return true, fmt.Errorf("failed to list open reports: %w", err)
	}
	loads := workload.Snapshot(officers, open)

	if err := s.Sessions.SendDigest(loads); err != nil {
		zap.S().Warnw("workload digest not delivered to every session", "error", err)
	}

	if s.Mailer != nil {
		admins, err := s.Directory.Administrators(ctx)
		if err != nil {
			return true, fmt.Errorf("failed to list administrators: %w", err)
		}
		if err := s.Mailer.SendDigest(admins, loads); err != nil {
			return true, err
		}
	}

	zap.S().Infow("workload digest sent", "officers", len(loads), "openReports", len(open), "instance", s.instanceID)
	return true, nil
}
