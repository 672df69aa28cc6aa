package maintenance

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/robfig/cron/v3"

	"github.com/mikecalendo/gh-serv/pkg/audit"
	"github.com/mikecalendo/gh-serv/pkg/config"
	"github.com/mikecalendo/gh-serv/pkg/telemetry/metrics"
)

// Sweeper removes orphaned shard directories: leftovers of provisioning
// attempts that failed partway and never became repositories. Only
// directories older than the configured minimum age are touched, so an
// in-flight provisioning run is never swept.
type Sweeper struct {
	cfg     *config.Config
	metrics *metrics.Collector
	store   *audit.Store
	logger  *slog.Logger
	cron    *cron.Cron
}

// New creates a sweeper. store may be nil to disable audit records.
func New(cfg *config.Config, collector *metrics.Collector, store *audit.Store) *Sweeper {
	return &Sweeper{
		cfg:     cfg,
		metrics: collector,
		store:   store,
		logger:  slog.Default().With("component", "maintenance"),
		cron:    cron.New(),
	}
}

// Start schedules periodic sweeps per the configured cron expression.
func (s *Sweeper) Start() error {
	if !s.cfg.Maintenance.Enabled {
		return nil
	}
	if _, err := s.cron.AddFunc(s.cfg.Maintenance.Schedule, func() {
		if _, err := s.Sweep(); err != nil {
			s.logger.Error("sweep failed", "error", err)
		}
	}); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("sweeper started", "schedule", s.cfg.Maintenance.Schedule)
	return nil
}

// Stop halts scheduled sweeps. A sweep already running completes.
func (s *Sweeper) Stop() {
	s.cron.Stop()
}

// Sweep walks the shard tree once and removes stale orphans. It returns
// the number of directories removed.
func (s *Sweeper) Sweep() (int, error) {
	cutoff := time.Now().Add(-s.cfg.Maintenance.MinAge)
	removed := 0

	for _, dir := range s.candidates() {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if _, err := gogit.PlainOpen(dir); err == nil {
			continue
		}

		if err := os.RemoveAll(dir); err != nil {
			s.logger.Warn("failed to remove orphan", "path", dir, "error", err)
			continue
		}
		removed++
		s.logger.Info("removed orphaned directory", "path", dir)
		if s.store != nil {
			id := filepath.Base(dir)
			if err := s.store.Record(context.Background(), id, audit.KindSweepRemoved, dir); err != nil {
				s.logger.Warn("failed to audit sweep", "error", err)
			}
		}
	}

	s.metrics.RecordSweepRemoved(removed)
	return removed, nil
}

// candidates lists every directory at shard depth: root/xx/yy/rest.
func (s *Sweeper) candidates() []string {
	var dirs []string
	root := s.cfg.Git.Root

	level1, err := os.ReadDir(root)
	if err != nil {
		return nil
	}
	for _, l1 := range level1 {
		if !l1.IsDir() {
			continue
		}
		level2, err := os.ReadDir(filepath.Join(root, l1.Name()))
		if err != nil {
			continue
		}
		for _, l2 := range level2 {
			if !l2.IsDir() {
				continue
			}
			level3, err := os.ReadDir(filepath.Join(root, l1.Name(), l2.Name()))
			if err != nil {
				continue
			}
			for _, l3 := range level3 {
				if l3.IsDir() {
					dirs = append(dirs, filepath.Join(root, l1.Name(), l2.Name(), l3.Name()))
				}
			}
		}
	}
	return dirs
}
