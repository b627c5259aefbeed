package services

import (
	"sync/atomic"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler runs a sync job on a cron schedule, skipping a tick while the
// previous run is still going.
type Scheduler struct {
	schedule string
	job      func()
	log      *zap.Logger
	cron     *cron.Cron
	entryID  cron.EntryID
	running  atomic.Bool
}

func NewScheduler(schedule string, job func(), log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		schedule: schedule,
		job:      job,
		log:      log,
		cron:     cron.New(),
	}
}

func (s *Scheduler) Start() error {
	s.log.Info("Starting scheduler", zap.String("schedule", s.schedule))

	id, err := s.cron.AddFunc(s.schedule, s.triggerSync)
	if err != nil {
		s.log.Error("Failed to schedule job", zap.Error(err))
		return err
	}

	s.entryID = id
	s.cron.Start()
	return nil
}

// Stop halts the schedule and waits for a running job to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("Stopped scheduler")
}

func (s *Scheduler) triggerSync() {
	if !s.running.CompareAndSwap(false, true) {
		s.log.Info("Sync already running, skipping scheduled run")
		return
	}
	defer s.running.Store(false)

	s.log.Debug("Triggering scheduled sync")
	s.job()
}
