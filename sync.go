package hermes

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// SyncJob is one extraction the sync service repeats.
type SyncJob struct {
	Name string
	Run  func(ctx context.Context) error
}

// SyncService runs its jobs once at start and then every interval, never
// overlapping a run that is still in progress.
type SyncService struct {
	app      *Extractor
	interval time.Duration
	jobs     []SyncJob
}

func (app *Extractor) NewSyncService(jobs ...SyncJob) *SyncService {
	if len(jobs) == 0 {
		jobs = app.DefaultSyncJobs()
	}
	return &SyncService{
		app:      app,
		interval: time.Duration(app.Config.GetInt("SYNC_INTERVAL_MINUTES", 10)) * time.Minute,
		jobs:     jobs,
	}
}

// DefaultSyncJobs extracts and publishes the beneficiaries of ENTITY_CODES
// and the IGR table.
func (app *Extractor) DefaultSyncJobs() []SyncJob {
	return []SyncJob{
		{
			Name: "vidas",
			Run: func(ctx context.Context) error {
				out, err := app.VidasOperadora(ctx, app.EntityCodes())
				if err != nil {
					return err
				}
				return app.Publish(ctx, app.VidasPublication(out))
			},
		},
		{
			Name: "igr",
			Run: func(ctx context.Context) error {
				started := time.Now()
				pbi, err := app.PBI()
				if err != nil {
					return err
				}
				table := pbi.IGR(ctx, DefaultIGRQuery())
				if table == nil {
					return fmt.Errorf("igr: no rows collected")
				}
				return app.Publish(ctx, app.IGRPublication(table, started))
			},
		},
	}
}

// EntityCodes returns the configured entity codes.
func (app *Extractor) EntityCodes() []string {
	return app.Config.GetStringSlice("ENTITY_CODES", "368253")
}

func (s *SyncService) schedule() string {
	minutes := int(s.interval / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("@every %dm", minutes)
}

// Run blocks until ctx is done, then waits for a running sync to finish.
func (s *SyncService) Run(ctx context.Context) error {
	logger := cronLogger{logger: s.app.Logger}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := c.AddFunc(s.schedule(), func() { s.runAll(ctx) }); err != nil {
		return fmt.Errorf("schedule sync: %w", err)
	}

	s.app.Logger.Info("%s", strings.Repeat("=", 80))
	s.app.Logger.Info("Scheduled sync started, every %v", s.interval)
	s.app.Logger.Info("%s", strings.Repeat("=", 80))

	s.runAll(ctx)
	c.Start()
	<-ctx.Done()
	s.app.Logger.Info("Sync interrupted, waiting for the running job")
	<-c.Stop().Done()
	return nil
}

func (s *SyncService) runAll(ctx context.Context) {
	for _, job := range s.jobs {
		if ctx.Err() != nil {
			return
		}
		started := time.Now()
		s.app.Logger.Info("Sync %s started", job.Name)
		if err := job.Run(ctx); err != nil {
			s.app.Logger.Error("Sync %s failed: %v", job.Name, err)
			continue
		}
		s.app.Logger.Info("Sync %s finished in %v", job.Name, time.Since(started))
	}
}

// cronLogger routes cron's key/value logs to a Logger.
type cronLogger struct {
	logger Logger
}

func (l cronLogger) formatParams(keysAndValues []interface{}) string {
	params := make([]string, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		params = append(params, fmt.Sprintf("%v: %v", keysAndValues[i], keysAndValues[i+1]))
	}
	return strings.Join(params, ", ")
}

// Info keeps only skipped runs; cron reports every wake-up otherwise.
func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	if msg != "skip" {
		return
	}
	l.logger.Warn("cron: %s %s", msg, l.formatParams(keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: %s: %v %s", msg, err, l.formatParams(keysAndValues))
}
