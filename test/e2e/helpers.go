//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cloo-solutions/resumeqa/internal/api/handlers"
	"github.com/cloo-solutions/resumeqa/internal/checkpoint"
	"github.com/cloo-solutions/resumeqa/internal/domain"
	"github.com/cloo-solutions/resumeqa/internal/extract"
	"github.com/cloo-solutions/resumeqa/internal/logging"
	"github.com/cloo-solutions/resumeqa/internal/ratelimit"
	"github.com/cloo-solutions/resumeqa/internal/server"
	"github.com/cloo-solutions/resumeqa/internal/service"
	"github.com/cloo-solutions/resumeqa/internal/vectorstore/sqlite"
)

const apiToken = "e2e-token"

var keywords = []string{"python", "aws", "go", "kubernetes", "java", "react", "sql", "terraform"}

// fakeEmbedder embeds text as keyword counts. While rateLimited is set, any
// text containing the marker is rejected as a quota error.
type fakeEmbedder struct {
	mu          sync.Mutex
	marker      string
	rateLimited bool
	calls       int
}

func (e *fakeEmbedder) GenerateEmbedding(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.rateLimited && e.marker != "" && strings.Contains(text, e.marker) {
		return nil, domain.NewRateLimitedError("embed", errors.New("429 resource exhausted"))
	}

	lower := strings.ToLower(text)
	vec := make([]float32, len(keywords)+1)
	for i, w := range keywords {
		vec[i] = float32(strings.Count(lower, w))
	}
	vec[len(keywords)] = 0.1
	return vec, nil
}

func (e *fakeEmbedder) setRateLimited(v bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rateLimited = v
}

// fakeGenerator records prompts and answers with the first resume line of
// the context block.
type fakeGenerator struct {
	mu      sync.Mutex
	prompts []string
	temps   []float32
}

func (g *fakeGenerator) Generate(_ context.Context, prompt string, temperature float32) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	g.temps = append(g.temps, temperature)

	block := prompt
	if i := strings.Index(block, "RESUMES:\n"); i >= 0 {
		block = block[i+len("RESUMES:\n"):]
	}
	first, _, _ := strings.Cut(block, "\n")
	return "Best match: " + first, nil
}

func (g *fakeGenerator) lastPrompt() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.prompts) == 0 {
		return ""
	}
	return g.prompts[len(g.prompts)-1]
}

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T          *testing.T
	Ctx        context.Context
	CorpusDir  string
	IndexDir   string
	Checkpoint string
	Embedder   *fakeEmbedder
	Generator  *fakeGenerator

	Store     *sqlite.Store
	Ingestion *service.IngestionService
	Server    *httptest.Server

	HTTPClient *http.Client
}

// SetupE2EEnv writes resumes into a fresh corpus and wires the full stack
// over the sqlite index.
func SetupE2EEnv(t *testing.T, resumes map[string]string) *E2ETestEnv {
	root := t.TempDir()
	corpus := filepath.Join(root, "resumes")
	if err := os.MkdirAll(corpus, 0o755); err != nil {
		t.Fatalf("failed to create corpus: %v", err)
	}
	for name, body := range resumes {
		if err := os.WriteFile(filepath.Join(corpus, name), []byte(body), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}

	env := &E2ETestEnv{
		T:          t,
		Ctx:        context.Background(),
		CorpusDir:  corpus,
		IndexDir:   filepath.Join(root, "vector_index"),
		Checkpoint: filepath.Join(root, "processed_files.txt"),
		Embedder:   &fakeEmbedder{},
		Generator:  &fakeGenerator{},
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
	env.Start()
	return env
}

// Start opens the index and serves the API, as a fresh daemon process would.
func (e *E2ETestEnv) Start() {
	store, err := sqlite.Open(e.IndexDir)
	if err != nil {
		e.T.Fatalf("failed to open index: %v", err)
	}
	e.Store = store

	logger := logging.Discard()
	e.Ingestion = service.NewIngestionService(
		service.IngestionConfig{CorpusDir: e.CorpusDir, Extensions: []string{".txt"}},
		extract.New(logger),
		service.NewChunker(service.DefaultChunkConfig()),
		e.Embedder,
		store,
		checkpoint.NewFileStore(e.Checkpoint),
		ratelimit.NewThrottle(time.Millisecond),
		logger,
	)

	answerCfg := service.DefaultAnswerConfig()
	answerCfg.TopK = 2
	answerSvc := service.NewAnswerService(answerCfg, service.NewRetriever(e.Embedder, store), e.Generator, logger)

	router := server.NewRouter(server.RouterConfig{
		Logger:        logger,
		APIToken:      apiToken,
		AnswerHandler: handlers.NewAnswerHandler(answerSvc),
		IngestHandler: handlers.NewIngestHandler(e.Ingestion),
	})
	e.Server = httptest.NewServer(router)
}

// Restart stops the server and reopens the index from disk.
func (e *E2ETestEnv) Restart() {
	e.Stop()
	e.Start()
}

// Stop closes the server and the index.
func (e *E2ETestEnv) Stop() {
	if e.Server != nil {
		e.Server.Close()
		e.Server = nil
	}
	if e.Store != nil {
		_ = e.Store.Close()
		e.Store = nil
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	e.Stop()
}

// CheckpointLines returns the non-empty lines of the checkpoint file.
func (e *E2ETestEnv) CheckpointLines() []string {
	data, err := os.ReadFile(e.Checkpoint)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		e.T.Fatalf("failed to read checkpoint: %v", err)
	}
	var lines []string
	for _, l := range strings.Split(string(data), "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// Do sends a request with the test token unless token is "-".
func (e *E2ETestEnv) Do(method, path string, body interface{}, token string) (int, []byte) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			e.T.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, e.Server.URL+path, reader)
	if err != nil {
		e.T.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token == "" {
		token = apiToken
	}
	if token != "-" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		e.T.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		e.T.Fatalf("failed to read body: %v", err)
	}
	return resp.StatusCode, data
}

// Ask posts a question and returns the status code and answer text.
func (e *E2ETestEnv) Ask(question string) (int, string) {
	status, body := e.Do(http.MethodPost, "/answer", map[string]string{"question": question}, "")
	var resp struct {
		Answer string `json:"answer"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		e.T.Fatalf("failed to parse answer response %q: %v", body, err)
	}
	if resp.Error != "" {
		return status, resp.Error
	}
	return status, resp.Answer
}

// Status returns the ingestion status reported by the server.
func (e *E2ETestEnv) Status() handlers.IngestStatusResponse {
	status, body := e.Do(http.MethodGet, "/ingest/status", nil, "")
	if status != http.StatusOK {
		e.T.Fatalf("status returned %d: %s", status, body)
	}
	var resp struct {
		Data handlers.IngestStatusResponse `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		e.T.Fatalf("failed to parse status: %v", err)
	}
	return resp.Data
}

func (e *E2ETestEnv) String() string {
	return fmt.Sprintf("corpus=%s index=%s", e.CorpusDir, e.IndexDir)
}
