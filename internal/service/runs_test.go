package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/octobees/exhibitor-leads/internal/entity"
	"github.com/octobees/exhibitor-leads/internal/fetch"
	"github.com/octobees/exhibitor-leads/internal/pipeline"
	"github.com/octobees/exhibitor-leads/internal/repository"
)

type mockRunsRepository struct {
	mu         sync.Mutex
	runs       map[uuid.UUID]*entity.Run
	exhibitors map[uuid.UUID][]entity.Exhibitor
	contacts   map[uuid.UUID][]entity.Contact
	saveErr    error
	markErr    error
}

func newMockRunsRepository() *mockRunsRepository {
	return &mockRunsRepository{
		runs:       make(map[uuid.UUID]*entity.Run),
		exhibitors: make(map[uuid.UUID][]entity.Exhibitor),
		contacts:   make(map[uuid.UUID][]entity.Contact),
	}
}

func (m *mockRunsRepository) Create(ctx context.Context, sources json.RawMessage, requestedBy *string) (*entity.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run := &entity.Run{ID: uuid.New(), Status: entity.RunStatusQueued, Sources: sources, RequestedBy: requestedBy}
	m.runs[run.ID] = run
	copied := *run
	return &copied, nil
}

func (m *mockRunsRepository) MarkRunning(ctx context.Context, id uuid.UUID) error {
	if m.markErr != nil {
		return m.markErr
	}
	return m.setStatus(id, entity.RunStatusRunning, nil, nil)
}

func (m *mockRunsRepository) Complete(ctx context.Context, id uuid.UUID, status string, report json.RawMessage, runErr *string) error {
	return m.setStatus(id, status, report, runErr)
}

func (m *mockRunsRepository) setStatus(id uuid.UUID, status string, report json.RawMessage, runErr *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return repository.ErrRunNotFound
	}
	run.Status = status
	if report != nil {
		run.Report = report
	}
	run.Error = runErr
	return nil
}

func (m *mockRunsRepository) Get(ctx context.Context, id uuid.UUID) (*entity.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return nil, repository.ErrRunNotFound
	}
	copied := *run
	return &copied, nil
}

func (m *mockRunsRepository) SaveResults(ctx context.Context, id uuid.UUID, exhibitors []entity.Exhibitor, contacts []entity.Contact) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exhibitors[id] = exhibitors
	m.contacts[id] = contacts
	return nil
}

func (m *mockRunsRepository) ListExhibitors(ctx context.Context, id uuid.UUID) ([]entity.Exhibitor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.exhibitors[id], nil
}

func (m *mockRunsRepository) ListContacts(ctx context.Context, id uuid.UUID) ([]entity.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.contacts[id], nil
}

type stubRunner struct {
	got []pipeline.Source
	res pipeline.Result
}

func (s *stubRunner) Run(ctx context.Context, sources []pipeline.Source) pipeline.Result {
	s.got = sources
	return s.res
}

type nopFetcher struct{}

func (nopFetcher) Fetch(ctx context.Context, rawURL string) (*fetch.Page, error) {
	return nil, errors.New("not used")
}

func TestRunService_StartCompletes(t *testing.T) {
	repo := newMockRunsRepository()
	runner := &stubRunner{res: pipeline.Result{
		Exhibitors: []entity.Exhibitor{{Name: "Acme GmbH", Country: "Germany"}},
		Contacts:   []entity.Contact{{CompanyName: "Acme GmbH", FullName: "Erika Mustermann", Position: "CEO", Source: "LinkedIn"}},
		Report:     pipeline.Report{DocumentsProcessed: 1, ExhibitorsFound: 1, ContactsFound: 1},
	}}
	svc := NewRunService(repo, runner, WithStrategies(fetch.Strategies{fetch.StrategyHTTP: nopFetcher{}}))

	run, err := svc.Start(context.Background(), []pipeline.Source{{URL: " fair.example/aussteller#top "}}, "ops@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.Status != entity.RunStatusQueued || entity.StringValue(run.RequestedBy) != "ops@example.com" {
		t.Fatalf("unexpected run: %+v", run)
	}
	svc.Wait()

	if len(runner.got) != 1 || runner.got[0].URL != "https://fair.example/aussteller" || runner.got[0].Fetch != fetch.StrategyHTTP {
		t.Fatalf("expected normalized source, got %+v", runner.got)
	}

	stored, err := svc.Get(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if stored.Status != entity.RunStatusCompleted {
		t.Fatalf("expected completed run, got %s", stored.Status)
	}
	var report pipeline.Report
	if err := json.Unmarshal(stored.Report, &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.ExhibitorsFound != 1 || report.ContactsFound != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}

	exhibitors, err := svc.Exhibitors(context.Background(), run.ID)
	if err != nil || len(exhibitors) != 1 {
		t.Fatalf("unexpected exhibitors %+v (%v)", exhibitors, err)
	}
	contacts, err := svc.Contacts(context.Background(), run.ID)
	if err != nil || len(contacts) != 1 {
		t.Fatalf("unexpected contacts %+v (%v)", contacts, err)
	}
}

func TestRunService_StartOutlivesRequestContext(t *testing.T) {
	repo := newMockRunsRepository()
	svc := NewRunService(repo, &stubRunner{})

	ctx, cancel := context.WithCancel(context.Background())
	run, err := svc.Start(ctx, []pipeline.Source{{URL: "https://fair.example/"}}, "")
	cancel()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	svc.Wait()

	stored, _ := svc.Get(context.Background(), run.ID)
	if stored.Status != entity.RunStatusCompleted {
		t.Fatalf("expected completed run, got %s", stored.Status)
	}
	if stored.RequestedBy != nil {
		t.Fatalf("expected no requester")
	}
}

func TestRunService_SaveFailureMarksRunFailed(t *testing.T) {
	repo := newMockRunsRepository()
	repo.saveErr = errors.New("disk full")
	svc := NewRunService(repo, &stubRunner{})

	run, err := svc.Start(context.Background(), []pipeline.Source{{URL: "https://fair.example/"}}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	svc.Wait()

	stored, _ := svc.Get(context.Background(), run.ID)
	if stored.Status != entity.RunStatusFailed || entity.StringValue(stored.Error) != "save results: disk full" {
		t.Fatalf("unexpected run: %+v", stored)
	}
}

func TestRunService_MarkRunningFailureMarksRunFailed(t *testing.T) {
	repo := newMockRunsRepository()
	repo.markErr = errors.New("connection reset")
	runner := &stubRunner{}
	svc := NewRunService(repo, runner)

	run, err := svc.Start(context.Background(), []pipeline.Source{{URL: "https://fair.example/"}}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	svc.Wait()

	stored, _ := svc.Get(context.Background(), run.ID)
	if stored.Status != entity.RunStatusFailed || entity.StringValue(stored.Error) != "mark running: connection reset" {
		t.Fatalf("unexpected run: %+v", stored)
	}
	if runner.got != nil {
		t.Fatalf("expected runner not to be called, got %+v", runner.got)
	}
}

func TestRunService_StartRejectsInvalidSources(t *testing.T) {
	svc := NewRunService(newMockRunsRepository(), &stubRunner{}, WithStrategies(fetch.Strategies{fetch.StrategyHTTP: nopFetcher{}}))

	_, err := svc.Start(context.Background(), []pipeline.Source{{URL: "https://fair.example/", Fetch: "render"}}, "")
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "sources[0].fetch" {
		t.Fatalf("expected fetch validation error, got %v", err)
	}
}

func TestRunService_UnknownRun(t *testing.T) {
	svc := NewRunService(newMockRunsRepository(), &stubRunner{})
	if _, err := svc.Exhibitors(context.Background(), uuid.New()); !errors.Is(err, repository.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
	if _, err := svc.Contacts(context.Background(), uuid.New()); !errors.Is(err, repository.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}
