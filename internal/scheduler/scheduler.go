package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/rubberworks/queuegate/internal/domain/models"
)

const runTimeout = 2 * time.Minute

// DailyReporter is the reporting surface the scheduler drives.
type DailyReporter interface {
	Today() string
	RunDaily(ctx context.Context, token, date string) (models.DailyQueueReport, error)
}

// TokenSource supplies the upstream token a scheduled run acts with.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron     *cron.Cron
	reporter DailyReporter
	tokens   TokenSource
	schedule string
	logger   *zap.Logger
}

// NewScheduler creates a scheduler that runs the daily report on the cron schedule in loc.
// A nil token source runs the report without an upstream token.
func NewScheduler(schedule string, loc *time.Location, reporter DailyReporter, tokens TokenSource, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}

	// Standard 5 field parser: min, hour, dom, month, dow.
	c := cron.New(cron.WithLocation(loc))

	return &Scheduler{
		cron:     c,
		reporter: reporter,
		tokens:   tokens,
		schedule: schedule,
		logger:   logger,
	}
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler", zap.String("daily_report", s.schedule))

	if _, err := s.cron.AddFunc(s.schedule, s.runDailyReport); err != nil {
		return fmt.Errorf("schedule daily report %q: %w", s.schedule, err)
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runDailyReport() {
	date := s.reporter.Today()
	s.logger.Info("generating daily report", zap.String("date", date))

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	var token string
	if s.tokens != nil {
		tok, err := s.tokens.Token(ctx)
		if err != nil {
			s.logger.Error("daily report login failed", zap.String("date", date), zap.Error(err))
			return
		}
		token = tok
	}

	if _, err := s.reporter.RunDaily(ctx, token, date); err != nil {
		s.logger.Error("daily report failed", zap.String("date", date), zap.Error(err))
		return
	}
	s.logger.Info("daily report sent successfully", zap.String("date", date))
}
