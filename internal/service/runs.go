package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/octobees/exhibitor-leads/internal/entity"
	"github.com/octobees/exhibitor-leads/internal/fetch"
	"github.com/octobees/exhibitor-leads/internal/pipeline"
	"github.com/octobees/exhibitor-leads/internal/repository"
)

// DefaultRunTimeout bounds one batch run.
const DefaultRunTimeout = 30 * time.Minute

// Runner executes a batch over sources.
type Runner interface {
	Run(ctx context.Context, sources []pipeline.Source) pipeline.Result
}

// RunService starts batch runs in the background and serves their results.
type RunService struct {
	repo       repository.RunsRepository
	runner     Runner
	strategies fetch.Strategies
	timeout    time.Duration
	logger     *zap.Logger
	wg         sync.WaitGroup
}

// RunOption configures a RunService.
type RunOption func(*RunService)

// WithRunTimeout overrides DefaultRunTimeout.
func WithRunTimeout(d time.Duration) RunOption {
	return func(s *RunService) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithStrategies restricts sources to the registered fetch strategies.
func WithStrategies(strategies fetch.Strategies) RunOption {
	return func(s *RunService) { s.strategies = strategies }
}

// WithRunLogger sets the logger used for background runs.
func WithRunLogger(l *zap.Logger) RunOption {
	return func(s *RunService) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewRunService constructs a RunService.
func NewRunService(repo repository.RunsRepository, runner Runner, opts ...RunOption) *RunService {
	s := &RunService{
		repo:    repo,
		runner:  runner,
		timeout: DefaultRunTimeout,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start validates the sources, records a queued run and executes it in the
// background. The run outlives the caller's context.
func (s *RunService) Start(ctx context.Context, sources []pipeline.Source, requestedBy string) (*entity.Run, error) {
	sources, err := NormalizeSources(sources, s.strategies)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(sources)
	if err != nil {
		return nil, fmt.Errorf("encode sources: %w", err)
	}

	var by *string
	if requestedBy != "" {
		by = &requestedBy
	}
	run, err := s.repo.Create(ctx, raw, by)
	if err != nil {
		return nil, err
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.execute(context.WithoutCancel(ctx), run.ID, sources)
	}()
	return run, nil
}

// Wait blocks until every background run has finished.
func (s *RunService) Wait() {
	s.wg.Wait()
}

func (s *RunService) execute(ctx context.Context, id uuid.UUID, sources []pipeline.Source) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	logger := s.logger.With(zap.String("run_id", id.String()), zap.Int("sources", len(sources)))
	logger.Info("run started")
	started := time.Now()

	if err := s.repo.MarkRunning(ctx, id); err != nil {
		s.fail(ctx, logger, id, fmt.Errorf("mark running: %w", err))
		return
	}

	res := s.runner.Run(ctx, sources)
	if err := s.repo.SaveResults(ctx, id, res.Exhibitors, res.Contacts); err != nil {
		s.fail(ctx, logger, id, fmt.Errorf("save results: %w", err))
		return
	}

	report, err := json.Marshal(res.Report)
	if err != nil {
		s.fail(ctx, logger, id, fmt.Errorf("encode report: %w", err))
		return
	}
	if err := s.repo.Complete(ctx, id, entity.RunStatusCompleted, report, nil); err != nil {
		logger.Error("complete run", zap.Error(err))
		return
	}

	logger.Info("run completed",
		zap.Int("documents_processed", res.Report.DocumentsProcessed),
		zap.Int("documents_failed", res.Report.DocumentsFailed),
		zap.Int("exhibitors", len(res.Exhibitors)),
		zap.Int("contacts", len(res.Contacts)),
		zap.Duration("elapsed", time.Since(started)),
	)
}

func (s *RunService) fail(ctx context.Context, logger *zap.Logger, id uuid.UUID, runErr error) {
	logger.Error("run failed", zap.Error(runErr))
	msg := runErr.Error()
	if err := s.repo.Complete(context.WithoutCancel(ctx), id, entity.RunStatusFailed, nil, &msg); err != nil {
		logger.Error("record run failure", zap.Error(err))
	}
}

// Get returns a run and its report.
func (s *RunService) Get(ctx context.Context, id uuid.UUID) (*entity.Run, error) {
	return s.repo.Get(ctx, id)
}

// Exhibitors returns the exhibitor table of a run.
func (s *RunService) Exhibitors(ctx context.Context, id uuid.UUID) ([]entity.Exhibitor, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListExhibitors(ctx, id)
}

// Contacts returns the contact table of a run.
func (s *RunService) Contacts(ctx context.Context, id uuid.UUID) ([]entity.Contact, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListContacts(ctx, id)
}
