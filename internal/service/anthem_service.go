package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"anthemengine/internal/anthem"
	"anthemengine/internal/domain"
	"anthemengine/internal/records"
	"anthemengine/internal/storage"
)

// ─────────────────────────────────────────────────────────────
// Anthem Service: retrieval, composition and persistence
// ─────────────────────────────────────────────────────────────

var (
	// ErrMissingID is returned when no opportunity id was supplied.
	ErrMissingID = errors.New("service: opportunity id is required")

	// ErrAlreadyRunning is returned when the same opportunity is being generated.
	ErrAlreadyRunning = errors.New("service: generation already running")

	// ErrNoHistory is returned by history lookups when persistence is disabled.
	ErrNoHistory = errors.New("service: anthem history is not enabled")
)

// AnthemOptions configures an AnthemService.
type AnthemOptions struct {
	Mode              domain.GenerationMode
	PlaceholderLength int
	// SourceType is recorded on every run.
	SourceType string
}

// AnthemService turns an opportunity id into a persisted anthem.
type AnthemService struct {
	retriever *records.Retriever
	composer  *anthem.Composer
	runs      *storage.AnthemStore
	emitter   EventEmitter
	logger    logrus.FieldLogger
	opts      AnthemOptions
	guard     runningGuard

	rndMu sync.Mutex
	rnd   *rand.Rand
}

// NewAnthemService creates an AnthemService. runs may be nil to disable history.
func NewAnthemService(
	retriever *records.Retriever,
	composer *anthem.Composer,
	runs *storage.AnthemStore,
	emitter EventEmitter,
	logger logrus.FieldLogger,
	opts AnthemOptions,
) *AnthemService {
	if opts.Mode == "" {
		opts.Mode = domain.ModePipeline
	}
	if opts.PlaceholderLength <= 0 {
		opts.PlaceholderLength = anthem.DefaultSampleBudget
	}
	return &AnthemService{
		retriever: retriever,
		composer:  composer,
		runs:      runs,
		emitter:   emitter,
		logger:    logger.WithField("component", "anthem"),
		opts:      opts,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Mode reports how samples are produced.
func (s *AnthemService) Mode() domain.GenerationMode { return s.opts.Mode }

// Generate produces, persists and announces the anthem for opportunityID.
// Concurrent calls for the same id fail with ErrAlreadyRunning.
func (s *AnthemService) Generate(ctx context.Context, opportunityID string) (*domain.AnthemRun, error) {
	id := strings.TrimSpace(opportunityID)
	if id == "" {
		return nil, ErrMissingID
	}
	if !s.guard.TryLock(id) {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyRunning, id)
	}
	defer s.guard.Unlock(id)

	log := s.logger.WithField("opportunityId", id)
	log.Infof("generating anthem (%s)", s.opts.Mode)

	start := time.Now()
	a, warnings, err := s.produce(ctx, id)
	if err != nil {
		log.WithError(err).Error("anthem generation failed")
		s.emitter.Emit(ctx, EventAnthemFailed, map[string]string{"opportunityId": id, "error": err.Error()})
		return nil, err
	}

	peak, trough := anthem.Extrema(a.Channels)
	run := &domain.AnthemRun{
		OpportunityID: id,
		Mode:          s.opts.Mode,
		SourceType:    s.opts.SourceType,
		ChannelCount:  len(a.Channels),
		Max:           peak,
		Min:           trough,
		Warnings:      warnings,
		Channels:      make([][]float64, len(a.Channels)),
		DurationMs:    int(time.Since(start).Milliseconds()),
		CreatedAt:     time.Now().UTC(),
	}
	for i, ch := range a.Channels {
		run.Channels[i] = ch
		run.SamplesPerChannel = max(run.SamplesPerChannel, len(ch))
	}
	log.WithFields(logrus.Fields{"max": peak, "min": trough, "warnings": len(warnings)}).
		Infof("anthem generated: %d channels x %d samples", run.ChannelCount, run.SamplesPerChannel)

	if s.runs != nil {
		if err := s.runs.Save(ctx, run); err != nil {
			// The anthem is still returned; only its history entry is lost.
			log.WithError(err).Error("failed to save anthem run")
		}
	}

	s.emitter.Emit(ctx, EventAnthemGenerated, map[string]any{
		"id":            run.ID,
		"opportunityId": id,
		"max":           peak,
		"min":           trough,
	})
	return run, nil
}

func (s *AnthemService) produce(ctx context.Context, id string) (*anthem.Anthem, []string, error) {
	if s.opts.Mode == domain.ModePlaceholder {
		s.rndMu.Lock()
		defer s.rndMu.Unlock()
		return anthem.Placeholder(id, s.opts.PlaceholderLength, s.rnd), nil, nil
	}

	bundle, err := s.retriever.Fetch(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	objs := s.retriever.Objects()
	res, err := s.composer.Compose(id, anthem.Inputs{
		Primary:   anthem.Input{Fields: bundle.Primary, Schema: objs.Primary.Fields},
		Secondary: anthem.Input{Fields: bundle.Secondary, Schema: objs.Secondary.Fields},
		Related:   anthem.Input{Fields: bundle.Related, Schema: objs.Related.Fields},
	})
	if err != nil {
		return nil, nil, err
	}
	warnings := make([]string, len(res.Diagnostics.Warnings))
	for i, w := range res.Diagnostics.Warnings {
		warnings[i] = w.String()
	}
	return res.Anthem, warnings, nil
}

// ── History ────────────────────────────────────────────────

func (s *AnthemService) Get(ctx context.Context, runID string) (*domain.AnthemRun, error) {
	if s.runs == nil {
		return nil, ErrNoHistory
	}
	return s.runs.Get(ctx, runID)
}

func (s *AnthemService) Latest(ctx context.Context, opportunityID string) (*domain.AnthemRun, error) {
	if s.runs == nil {
		return nil, ErrNoHistory
	}
	return s.runs.Latest(ctx, opportunityID)
}

func (s *AnthemService) List(ctx context.Context, limit int) ([]domain.AnthemRun, error) {
	if s.runs == nil {
		return nil, ErrNoHistory
	}
	return s.runs.List(ctx, limit)
}

// Running lists the opportunity ids currently being generated.
func (s *AnthemService) Running() []string { return s.guard.Running() }

// WaitRunning blocks until in-flight generations finish or ctx is cancelled.
func (s *AnthemService) WaitRunning(ctx context.Context) { s.guard.WaitAll(ctx) }
