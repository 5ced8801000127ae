package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/cloo-solutions/resumeqa/internal/domain"
	"github.com/cloo-solutions/resumeqa/internal/service"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// MockJobProcessor is a mock implementation of JobProcessor
type MockJobProcessor struct {
	mock.Mock
}

func (m *MockJobProcessor) ProcessJobs(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockIngestionRunner is a mock implementation of IngestionRunner
type MockIngestionRunner struct {
	mock.Mock
}

func (m *MockIngestionRunner) Run(ctx context.Context) (*service.IngestReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.IngestReport), args.Error(1)
}

// TestWorker_StartStop tests the worker start and stop functionality
func TestWorker_StartStop(t *testing.T) {
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(nil)

	worker := NewWorker(mockProcessor, 100*time.Millisecond, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	time.Sleep(250 * time.Millisecond)

	worker.Stop()
	wg.Wait()

	mockProcessor.AssertCalled(t, "ProcessJobs", mock.Anything)
}

// TestWorker_ContextCancellation tests worker stops on context cancellation
func TestWorker_ContextCancellation(t *testing.T) {
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(nil)

	worker := NewWorker(mockProcessor, 100*time.Millisecond, testLogger())

	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	time.Sleep(150 * time.Millisecond)

	cancel()
	wg.Wait()

	mockProcessor.AssertCalled(t, "ProcessJobs", mock.Anything)
}

// TestWorker_ContinuesAfterError tests a failing tick does not stop the worker
func TestWorker_ContinuesAfterError(t *testing.T) {
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(errors.New("boom"))

	worker := NewWorker(mockProcessor, 50*time.Millisecond, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	time.Sleep(220 * time.Millisecond)
	worker.Stop()
	wg.Wait()

	assert.GreaterOrEqual(t, len(mockProcessor.Calls), 2)
}

func TestIngestionJob_ProcessJobs_Success(t *testing.T) {
	runner := new(MockIngestionRunner)
	report := &service.IngestReport{
		Total:   2,
		Pending: 2,
		Outcomes: []service.DocumentOutcome{
			{SourceID: "a.pdf", State: domain.DocumentStateIndexed, Fragments: 3},
			{SourceID: "b.pdf", State: domain.DocumentStateFailedSkipped},
		},
		FragmentsIndexed: 3,
	}
	runner.On("Run", mock.Anything).Return(report, nil)

	job := NewIngestionJob(runner, testLogger())
	err := job.ProcessJobs(context.Background())

	assert.NoError(t, err)
	runner.AssertExpectations(t)
}

func TestIngestionJob_ProcessJobs_RateLimitHaltIsNotAnError(t *testing.T) {
	runner := new(MockIngestionRunner)
	report := &service.IngestReport{Pending: 3, Halted: true, HaltedOn: "b.pdf"}
	haltErr := domain.NewDomainErrorWithCause(domain.ErrCodeRateLimited, domain.ErrIngestionHalted.Message,
		domain.NewRateLimitedError("embed", errors.New("429")))
	runner.On("Run", mock.Anything).Return(report, haltErr)

	job := NewIngestionJob(runner, testLogger())
	err := job.ProcessJobs(context.Background())

	assert.NoError(t, err)
}

func TestIngestionJob_ProcessJobs_AlreadyRunning(t *testing.T) {
	runner := new(MockIngestionRunner)
	runner.On("Run", mock.Anything).Return(nil, domain.ErrIngestionInProgress)

	job := NewIngestionJob(runner, testLogger())
	err := job.ProcessJobs(context.Background())

	assert.NoError(t, err)
}

func TestIngestionJob_ProcessJobs_Failure(t *testing.T) {
	runner := new(MockIngestionRunner)
	runner.On("Run", mock.Anything).Return(nil, domain.ErrCorpusNotFound)

	job := NewIngestionJob(runner, testLogger())
	err := job.ProcessJobs(context.Background())

	assert.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCorpusNotFound)
}

// blockingRunner runs until its context is cancelled or a long deadline passes.
type blockingRunner struct {
	started chan struct{}
	once    sync.Once
}

func (r *blockingRunner) Run(ctx context.Context) (*service.IngestReport, error) {
	r.once.Do(func() { close(r.started) })
	select {
	case <-ctx.Done():
		return &service.IngestReport{}, ctx.Err()
	case <-time.After(5 * time.Second):
		return &service.IngestReport{}, nil
	}
}

// TestWorker_StopCancelsRunningIngestion tests Stop does not wait out a long run
func TestWorker_StopCancelsRunningIngestion(t *testing.T) {
	runner := &blockingRunner{started: make(chan struct{})}
	worker := NewWorker(NewIngestionJob(runner, testLogger()), 10*time.Millisecond, testLogger())

	go worker.Start(context.Background())

	select {
	case <-runner.started:
	case <-time.After(time.Second):
		t.Fatal("ingestion never started")
	}

	start := time.Now()
	worker.Stop()

	assert.Less(t, time.Since(start), time.Second)
}

// TestWorker_ParentCancelInterruptsIngestion tests cancelling Start's context
// reaches the running job
func TestWorker_ParentCancelInterruptsIngestion(t *testing.T) {
	runner := &blockingRunner{started: make(chan struct{})}
	worker := NewWorker(NewIngestionJob(runner, testLogger()), 10*time.Millisecond, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		worker.Start(ctx)
		close(done)
	}()

	<-runner.started
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker kept running after cancel")
	}
}

func TestIngestionJob_ProcessJobs_CancelledIsNotAnError(t *testing.T) {
	runner := new(MockIngestionRunner)
	runner.On("Run", mock.Anything).Return(&service.IngestReport{Pending: 2}, context.Canceled)

	job := NewIngestionJob(runner, testLogger())

	assert.NoError(t, job.ProcessJobs(context.Background()))
}
