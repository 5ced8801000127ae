package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/resumeqa/internal/domain"
)

// MockEmbeddingClient mocks the OpenAI client
type MockEmbeddingClient struct {
	mock.Mock
}

func (m *MockEmbeddingClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

type MockDocumentExtractor struct {
	mock.Mock
}

func (m *MockDocumentExtractor) Extract(ctx context.Context, path string) ([]string, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type MockVectorIndex struct {
	mock.Mock
}

func (m *MockVectorIndex) Append(ctx context.Context, entries []domain.IndexEntry) error {
	args := m.Called(ctx, entries)
	return args.Error(0)
}

func (m *MockVectorIndex) Query(ctx context.Context, embedding []float32, k int) ([]domain.ScoredEntry, error) {
	args := m.Called(ctx, embedding, k)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ScoredEntry), args.Error(1)
}

func (m *MockVectorIndex) CountBySource(ctx context.Context, sourceID string) (int, error) {
	args := m.Called(ctx, sourceID)
	return args.Int(0), args.Error(1)
}

type MockCheckpointStore struct {
	mock.Mock
}

func (m *MockCheckpointStore) Completed(ctx context.Context) (map[string]struct{}, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]struct{}), args.Error(1)
}

func (m *MockCheckpointStore) MarkCompleted(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockThrottle struct {
	mock.Mock
}

func (m *MockThrottle) Wait(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockFragmentRetriever struct {
	mock.Mock
}

func (m *MockFragmentRetriever) Retrieve(ctx context.Context, query string, k int) ([]string, error) {
	args := m.Called(ctx, query, k)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type MockAnswerGenerator struct {
	mock.Mock
}

func (m *MockAnswerGenerator) Generate(ctx context.Context, prompt string, temperature float32) (string, error) {
	args := m.Called(ctx, prompt, temperature)
	return args.String(0), args.Error(1)
}

// MockUUIDGenerator returns sequential ids.
type MockUUIDGenerator struct {
	mu sync.Mutex
	n  int
}

func (g *MockUUIDGenerator) NewString() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("entry-%04d", g.n)
}

// vocabulary gives keywordEmbedder its dimensions.
var vocabulary = []string{"python", "aws", "go", "kubernetes", "java", "react", "sql", "rust"}

// keywordEmbedder embeds text as keyword counts plus a constant bias dimension.
// Texts listed in failures return the mapped error instead.
type keywordEmbedder struct {
	mu       sync.Mutex
	calls    []string
	failures map[string]error
}

func newKeywordEmbedder() *keywordEmbedder {
	return &keywordEmbedder{failures: map[string]error{}}
}

func (e *keywordEmbedder) failOn(marker string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failures[marker] = err
}

func (e *keywordEmbedder) GenerateEmbedding(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls = append(e.calls, text)
	for marker, err := range e.failures {
		if strings.Contains(text, marker) {
			e.mu.Unlock()
			return nil, err
		}
	}
	e.mu.Unlock()

	vec := make([]float32, len(vocabulary)+1)
	lower := strings.ToLower(text)
	for i, w := range vocabulary {
		vec[i] = float32(strings.Count(lower, w))
	}
	vec[len(vocabulary)] = 0.1
	return vec, nil
}

func (e *keywordEmbedder) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

// memoryIndex is an in-memory VectorIndex using cosine similarity.
type memoryIndex struct {
	mu        sync.Mutex
	entries   []domain.IndexEntry
	appends   int
	appendErr error
}

func (m *memoryIndex) Append(_ context.Context, entries []domain.IndexEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	m.appends++
	m.entries = append(m.entries, entries...)
	return nil
}

func (m *memoryIndex) Query(_ context.Context, embedding []float32, k int) ([]domain.ScoredEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	scored := make([]domain.ScoredEntry, 0, len(m.entries))
	for _, e := range m.entries {
		scored = append(scored, domain.ScoredEntry{IndexEntry: e, Score: cosine(embedding, e.Embedding)})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if k < len(scored) {
		scored = scored[:k]
	}
	return scored, nil
}

func (m *memoryIndex) CountBySource(_ context.Context, sourceID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.entries {
		if e.SourceID == sourceID {
			n++
		}
	}
	return n, nil
}

func cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

// mapExtractor serves page texts keyed by file name.
type mapExtractor struct {
	mu    sync.Mutex
	pages map[string][]string
	calls []string
}

func (x *mapExtractor) Extract(_ context.Context, path string) ([]string, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	name := filepath.Base(path)
	x.calls = append(x.calls, name)
	pages, ok := x.pages[name]
	if !ok {
		return nil, errors.New("unreadable document")
	}
	return pages, nil
}

// countingThrottle never blocks and counts waits.
type countingThrottle struct {
	mu    sync.Mutex
	waits int
}

func (t *countingThrottle) Wait(ctx context.Context) error {
	t.mu.Lock()
	t.waits++
	t.mu.Unlock()
	return ctx.Err()
}

func (t *countingThrottle) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.waits
}

// makeCorpus creates empty files named names in a fresh directory.
func makeCorpus(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	return dir
}
