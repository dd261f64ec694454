package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"anthemengine/internal/domain"
)

// ─────────────────────────────────────────────────────────────
// Schedule Service: cron and file-watch triggered generation
// ─────────────────────────────────────────────────────────────

// Generator produces an anthem for an opportunity. *AnthemService implements it.
type Generator interface {
	Generate(ctx context.Context, opportunityID string) (*domain.AnthemRun, error)
}

// Schedule regenerates one opportunity on a cron expression.
type Schedule struct {
	OpportunityID string `yaml:"opportunityId" json:"opportunityId"`
	Cron          string `yaml:"cron" json:"cron"`
}

// Watch regenerates opportunities when a file changes. With no ids, every
// scheduled opportunity is regenerated.
type Watch struct {
	Path           string   `yaml:"path" json:"path"`
	OpportunityIDs []string `yaml:"opportunityIds,omitempty" json:"opportunityIds,omitempty"`
}

// WatchDebounce is how long a watched file must be quiet before regenerating.
const WatchDebounce = 500 * time.Millisecond

// ScheduleService runs generations from cron schedules and file watches.
type ScheduleService struct {
	gen    Generator
	logger logrus.FieldLogger

	mu          sync.Mutex
	watchCancel context.CancelFunc
	watcher     *fsnotify.Watcher
	cronSched   *cron.Cron
	inflight    sync.WaitGroup
}

// NewScheduleService creates a ScheduleService.
func NewScheduleService(gen Generator, logger logrus.FieldLogger) *ScheduleService {
	return &ScheduleService{gen: gen, logger: logger.WithField("component", "scheduler")}
}

// Start replaces any running schedules and watches. Invalid cron
// expressions and unwatchable paths fail the whole call.
func (s *ScheduleService) Start(ctx context.Context, schedules []Schedule, watches []Watch) error {
	s.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	var c *cron.Cron
	if len(schedules) > 0 {
		c = cron.New(
			cron.WithLogger(cron.PrintfLogger(s.logger)),
			cron.WithChain(cron.Recover(cron.PrintfLogger(s.logger))),
		)
		for _, sc := range schedules {
			id := sc.OpportunityID
			if _, err := c.AddFunc(sc.Cron, func() { s.run(ctx, "cron", id) }); err != nil {
				return fmt.Errorf("invalid cron expression %q for %s: %w", sc.Cron, id, err)
			}
		}
	}

	var watcher *fsnotify.Watcher
	pathToIDs := make(map[string][]string)
	if len(watches) > 0 {
		scheduled := make([]string, 0, len(schedules))
		for _, sc := range schedules {
			scheduled = append(scheduled, sc.OpportunityID)
		}

		var err error
		watcher, err = fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("create watcher: %w", err)
		}
		watchedDirs := make(map[string]bool)
		for _, w := range watches {
			absPath, err := filepath.Abs(w.Path)
			if err != nil {
				watcher.Close()
				return fmt.Errorf("bad watch path %q: %w", w.Path, err)
			}
			ids := w.OpportunityIDs
			if len(ids) == 0 {
				ids = scheduled
			}
			pathToIDs[absPath] = append(pathToIDs[absPath], ids...)

			// Watch the directory so editors that replace the file are seen.
			dir := filepath.Dir(absPath)
			if !watchedDirs[dir] {
				if err := watcher.Add(dir); err != nil {
					watcher.Close()
					return fmt.Errorf("watch dir %q: %w", dir, err)
				}
				watchedDirs[dir] = true
			}
		}
	}

	if c != nil {
		c.Start()
		s.cronSched = c
		s.logger.Infof("scheduled %d generation(s)", len(schedules))
	}
	if watcher != nil {
		watchCtx, cancel := context.WithCancel(ctx)
		s.watcher = watcher
		s.watchCancel = cancel
		go s.watchLoop(watchCtx, ctx, watcher, pathToIDs)
		s.logger.Infof("watching %d file(s)", len(pathToIDs))
	}
	return nil
}

func (s *ScheduleService) watchLoop(watchCtx, runCtx context.Context, watcher *fsnotify.Watcher, pathToIDs map[string][]string) {
	timers := make(map[string]*time.Timer)
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()
	for {
		select {
		case <-watchCtx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			absPath, _ := filepath.Abs(event.Name)
			ids, ok := pathToIDs[absPath]
			if !ok {
				continue
			}
			if t, exists := timers[absPath]; exists {
				t.Stop()
			}
			timers[absPath] = time.AfterFunc(WatchDebounce, func() {
				s.logger.Infof("file changed %q, regenerating %d anthem(s)", absPath, len(ids))
				for _, id := range ids {
					s.run(runCtx, "watch", id)
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warnf("watcher error: %v", err)
		}
	}
}

func (s *ScheduleService) run(ctx context.Context, trigger, id string) {
	s.inflight.Add(1)
	defer s.inflight.Done()

	log := s.logger.WithFields(logrus.Fields{"trigger": trigger, "opportunityId": id})
	if _, err := s.gen.Generate(ctx, id); err != nil {
		if errors.Is(err, ErrAlreadyRunning) {
			log.Info("skipped: previous generation still running")
			return
		}
		log.WithError(err).Warn("scheduled generation failed")
	}
}

// WaitRunning blocks until triggered generations finish or ctx is cancelled.
// Used for graceful shutdown.
func (s *ScheduleService) WaitRunning(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

// Stop tears down all watchers and schedulers. Safe to call repeatedly.
func (s *ScheduleService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watchCancel != nil {
		s.watchCancel()
		s.watchCancel = nil
	}
	if s.watcher != nil {
		s.watcher.Close()
		s.watcher = nil
	}
	if s.cronSched != nil {
		s.cronSched.Stop()
		s.cronSched = nil
	}
}
