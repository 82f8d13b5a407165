package worker

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/dlabonte15/investment-emailer/engine"
	"github.com/dlabonte15/investment-emailer/models"
)

// JobStatus describes one registered schedule.
type JobStatus struct {
	WorkstreamID   uint       `json:"workstream_id"`
	WorkstreamName string     `json:"workstream_name"`
	CronExpression string     `json:"cron_expression"`
	NextRun        *time.Time `json:"next_run"`
}

// Scheduler owns the cron runner and the registry of scheduled
// workstreams. Callbacks capture only the workstream id and re-fetch
// configuration at fire time, so edits take effect without re-arming.
type Scheduler struct {
	DB       *gorm.DB
	Engine   *engine.Engine
	Workflow *engine.Workflow
	Logger   *log.Logger

	cron    *cron.Cron
	mu      sync.Mutex
	entries map[uint]cron.EntryID
	names   map[uint]string
}

func NewScheduler(db *gorm.DB, eng *engine.Engine, workflow *engine.Workflow, logger *log.Logger) *Scheduler {
	return &Scheduler{
		DB:       db,
		Engine:   eng,
		Workflow: workflow,
		Logger:   logger,
		cron:     cron.New(),
		entries:  make(map[uint]cron.EntryID),
		names:    make(map[uint]string),
	}
}

// Start registers every enabled workstream with a non-manual cadence
// and a schedule expression, then starts the cron runner. Invalid
// expressions are skipped with a warning here, never at fire time.
func (s *Scheduler) Start() error {
	var workstreams []models.Workstream
	if err := s.DB.Where("enabled = ? AND cadence <> ? AND cron_expression <> ''",
		true, "manual").Find(&workstreams).Error; err != nil {
		return err
	}

	for _, ws := range workstreams {
		s.register(ws)
	}
	s.cron.Start()

	s.Logger.Printf("scheduled %d workstream(s)", len(s.entries))
	return nil
}

func (s *Scheduler) register(ws models.Workstream) {
	if _, err := cron.ParseStandard(ws.CronExpression); err != nil {
		s.Logger.Printf("invalid cron for workstream %d (%s): %q", ws.ID, ws.Name, ws.CronExpression)
		return
	}

	id := ws.ID // the closure must not capture the loaded struct
	entryID, err := s.cron.AddFunc(ws.CronExpression, func() {
		s.runWorkstream(id)
	})
	if err != nil {
		s.Logger.Printf("failed to schedule workstream %d: %v", ws.ID, err)
		return
	}

	s.mu.Lock()
	s.entries[ws.ID] = entryID
	s.names[ws.ID] = ws.Name
	s.mu.Unlock()

	s.updateNextRun(ws.ID, entryID)
}

// runWorkstream is the timer callback. A failing run is logged and
// captured but never stops other workstreams or crashes the process.
func (s *Scheduler) runWorkstream(id uint) {
	defer func() {
		if r := recover(); r != nil {
			s.Logger.Printf("workstream %d: panic during scheduled run: %v", id, r)
		}
	}()

	var ws models.Workstream
	if err := s.DB.First(&ws, id).Error; err != nil {
		s.Logger.Printf("workstream %d: skipping scheduled run: %v", id, err)
		return
	}
	if !ws.Enabled {
		return
	}

	result, err := s.Engine.Run(id, "scheduler", models.TriggerScheduled)
	if err != nil {
		s.Logger.Printf("workstream %d (%s): scheduled run failed: %v", id, ws.Name, err)
		sentry.CaptureException(err)
	} else {
		s.Logger.Printf("workstream %d (%s): %d emails generated, %d deduped",
			id, ws.Name, result.TotalEmails, result.SkippedDedupe)

		if ws.AutoApprove && result.BatchID != 0 {
			if _, err := s.Workflow.Approve(context.Background(), result.BatchID, nil, nil, "scheduler"); err != nil {
				s.Logger.Printf("workstream %d: auto-approve failed for batch %d: %v", id, result.BatchID, err)
				sentry.CaptureException(err)
			}
		}
	}

	// lastRunAt/nextRunAt are stamped regardless of run outcome.
	s.mu.Lock()
	entryID, ok := s.entries[id]
	s.mu.Unlock()
	updates := map[string]any{"last_run_at": time.Now()}
	if ok {
		if next := s.cron.Entry(entryID).Next; !next.IsZero() {
			updates["next_run_at"] = next
		}
	}
	if err := s.DB.Model(&models.Workstream{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		s.Logger.Printf("workstream %d: failed to update run timestamps: %v", id, err)
	}
}

func (s *Scheduler) updateNextRun(id uint, entryID cron.EntryID) {
	next := s.cron.Entry(entryID).Next
	if next.IsZero() {
		// The runner has not started yet; compute from the schedule.
		if sched, err := cron.ParseStandard(s.cronExpressionFor(id)); err == nil {
			next = sched.Next(time.Now())
		}
	}
	if next.IsZero() {
		return
	}
	if err := s.DB.Model(&models.Workstream{}).Where("id = ?", id).
		Update("next_run_at", next).Error; err != nil {
		s.Logger.Printf("workstream %d: failed to update next run: %v", id, err)
	}
}

func (s *Scheduler) cronExpressionFor(id uint) string {
	var ws models.Workstream
	if err := s.DB.Select("cron_expression").First(&ws, id).Error; err != nil {
		return ""
	}
	return ws.CronExpression
}

// Refresh drops every registered schedule and re-reads workstreams
// from the database. Called after workstream create/update/delete.
func (s *Scheduler) Refresh() error {
	s.mu.Lock()
	for _, entryID := range s.entries {
		s.cron.Remove(entryID)
	}
	s.entries = make(map[uint]cron.EntryID)
	s.names = make(map[uint]string)
	s.mu.Unlock()

	var workstreams []models.Workstream
	if err := s.DB.Where("enabled = ? AND cadence <> ? AND cron_expression <> ''",
		true, "manual").Find(&workstreams).Error; err != nil {
		return err
	}
	for _, ws := range workstreams {
		s.register(ws)
	}

	s.Logger.Printf("scheduler refreshed: %d workstream(s)", len(s.entries))
	return nil
}

// Stop halts the cron runner. Registered entries are kept so Status
// still reports them.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.Logger.Println("scheduler stopped")
}

// Status reports the registered schedules and their next fire times.
func (s *Scheduler) Status() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := make([]JobStatus, 0, len(s.entries))
	for id, entryID := range s.entries {
		job := JobStatus{
			WorkstreamID:   id,
			WorkstreamName: s.names[id],
			CronExpression: s.cronExpressionFor(id),
		}
		if next := s.cron.Entry(entryID).Next; !next.IsZero() {
			job.NextRun = &next
		}
		jobs = append(jobs, job)
	}
	return jobs
}
