// Package scheduler declaratively runs recurring scenes/fades/waves against
// registered Agents, on a robfig/cron/v3 schedule sourced from config.
package scheduler

import (
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/lumenbus/lcs-gateway/internal/config"
	"github.com/lumenbus/lcs-gateway/internal/lcs/manager"
)

// Scheduler owns one cron.Cron instance for the process. Schedules are
// config-declared only — there is no CRUD API, keeping this an enrichment
// rather than a persisted-command feature.
type Scheduler struct {
	cron   *cron.Cron
	mgr    *manager.Manager
	logger *zap.Logger
}

func New(mgr *manager.Manager, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cron:   cron.New(cron.WithSeconds()),
		mgr:    mgr,
		logger: logger,
	}
}

// LoadAll registers every ScheduleConfig entry as a cron job. A malformed
// cron expression is logged and skipped, never fatal; an entry with an
// unknown action is still registered and logs a warning each time it fires.
func (s *Scheduler) LoadAll(schedules []config.ScheduleConfig) {
	for _, sc := range schedules {
		sc := sc
		_, err := s.cron.AddFunc(sc.CronExpr, func() { s.run(sc) })
		if err != nil {
			s.logger.Warn("invalid schedule, skipping", zap.String("id", sc.ID), zap.String("cron", sc.CronExpr), zap.Error(err))
			continue
		}
		s.logger.Info("registered schedule", zap.String("id", sc.ID), zap.String("cron", sc.CronExpr), zap.String("action", sc.Action))
	}
}

func (s *Scheduler) run(sc config.ScheduleConfig) {
	master := byte(sc.Master)
	cu := byte(sc.CU)

	var err error
	switch sc.Action {
	case "scene":
		_, err = s.mgr.ExecuteScene(sc.AgentID, master, cu, sc.Params["sceneNo"], sc.Params["fadeTime"])
	case "fade":
		duration := float64(sc.Params["durationSec"])
		if duration == 0 {
			duration = 1
		}
		err = s.mgr.StartFade(sc.AgentID, master, cu, sc.Params["lampNo"], sc.Params["start"], sc.Params["end"], duration, nil)
	case "wave":
		lamps := decodeLampList(sc.Params)
		interval := time.Duration(sc.Params["intervalMs"]) * time.Millisecond
		err = s.mgr.StartWave(sc.AgentID, master, cu, lamps, sc.Params["brightness"], interval, nil)
	default:
		s.logger.Warn("unknown schedule action", zap.String("id", sc.ID), zap.String("action", sc.Action))
		return
	}
	if err != nil {
		s.logger.Warn("schedule execution failed", zap.String("id", sc.ID), zap.Error(err))
	}
}

// decodeLampList reads lamp1..lampN keys out of a flat int map, since
// ScheduleConfig.Params is a map[string]int rather than a nested structure.
func decodeLampList(params map[string]int) []int {
	n := params["lampCount"]
	lamps := make([]int, 0, n)
	for i := 1; i <= n; i++ {
		if v, ok := params["lamp"+strconv.Itoa(i)]; ok {
			lamps = append(lamps, v)
		}
	}
	return lamps
}

// Start begins running scheduled jobs.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts the scheduler and waits for any running job to complete.
func (s *Scheduler) Stop() { <-s.cron.Stop().Done() }
