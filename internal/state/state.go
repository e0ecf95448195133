package state

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"quality-dashboard/internal/analysis"
	"quality-dashboard/internal/dataset"
	"quality-dashboard/internal/llm"
	"quality-dashboard/internal/sentiment"
)

// TimestampLayout is the HH:MM:SS format of chat timestamps.
const TimestampLayout = "15:04:05"

var ErrEmptyPrompt = errors.New("prompt is empty")

// Assistant is the part of the LLM adapter a session calls.
type Assistant interface {
	TestModel(ctx context.Context, label string) (bool, string)
	Query(ctx context.Context, prompt, label string, analysisContext any) string
}

// ChatEntry is one question and answer.
type ChatEntry struct {
	UserText   string `json:"user_text"`
	AIText     string `json:"ai_text"`
	Timestamp  string `json:"timestamp"`
	ModelLabel string `json:"model_label"`
}

// ModelTest is the last probe outcome for a model.
type ModelTest struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Deps are shared by every session.
type Deps struct {
	Analyzer  *analysis.Analyzer
	Labeler   dataset.Labeler
	Assistant Assistant
	Clock     func() time.Time
	Logger    *zap.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Labeler == nil {
		d.Labeler = sentiment.Default()
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Analyzer == nil {
		d.Analyzer = analysis.NewAnalyzer(d.Labeler, d.Logger)
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	return d
}

// Session holds one user's dataset, last analysis, chat history and model
// tests. Actions are serialized by mu, so a slow chat call blocks the next
// action of the same session and nothing else.
type Session struct {
	ID string

	deps     Deps
	lastSeen atomic.Int64

	mu sync.Mutex
	// raw is the table as loaded and is what gets analyzed; data is raw
	// with derived Sentiment labels, served to readers.
	raw    *dataset.Table
	data   *dataset.Table
	result *analysis.Result
	chat   []ChatEntry
	tested map[string]ModelTest
}

// NewSession creates an empty session.
func NewSession(id string, deps Deps) *Session {
	s := &Session{
		ID:     id,
		deps:   deps.withDefaults(),
		tested: make(map[string]ModelTest),
	}
	s.touch()
	return s
}

func (s *Session) touch() {
	s.lastSeen.Store(s.deps.Clock().UnixNano())
}

// LastSeen is the time of the last action or lookup.
func (s *Session) LastSeen() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}

// Upload replaces the dataset with the parsed file and re-runs the analysis.
// On a parse error the session is left unchanged.
func (s *Session) Upload(filename string, r io.Reader) (analysis.Result, error) {
	table, err := dataset.Load(filename, r)
	if err != nil {
		return analysis.Result{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	s.deps.Logger.Info("dataset uploaded",
		zap.String("session_id", s.ID),
		zap.String("file", filename),
		zap.Int("rows", table.Len()),
		zap.Int("columns", len(table.Columns)),
	)
	return s.replaceLocked(table), nil
}

// GenerateSample replaces the dataset with the deterministic sample.
func (s *Session) GenerateSample() analysis.Result {
	table := dataset.GenerateSample(s.deps.Labeler)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	s.deps.Logger.Info("sample dataset generated", zap.String("session_id", s.ID), zap.Int("rows", table.Len()))
	return s.replaceLocked(table)
}

func (s *Session) replaceLocked(table *dataset.Table) analysis.Result {
	s.raw = table
	s.data = s.deps.Analyzer.Annotate(table)
	res := s.deps.Analyzer.Analyze(table)
	s.result = &res
	return res
}

// Clear drops the dataset, analysis, chat history and model tests.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	s.raw = nil
	s.data = nil
	s.result = nil
	s.chat = nil
	s.tested = make(map[string]ModelTest)
}

// RunAnalysis recomputes the analysis of the current dataset. Without data
// the result is the empty shell.
func (s *Session) RunAnalysis() analysis.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	return s.replaceLocked(s.raw)
}

// TestModel probes a model and records the outcome.
func (s *Session) TestModel(ctx context.Context, label string) ModelTest {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	ok, msg := s.deps.Assistant.TestModel(ctx, label)
	outcome := ModelTest{OK: ok, Message: msg}
	s.tested[label] = outcome
	return outcome
}

// SubmitChat asks the model about the current analysis and appends the
// exchange to the history.
func (s *Session) SubmitChat(ctx context.Context, prompt, label string) (ChatEntry, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return ChatEntry{}, ErrEmptyPrompt
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	var analysisContext any
	if s.result != nil {
		analysisContext = llm.BuildContext(*s.result)
	}

	answer := s.deps.Assistant.Query(ctx, prompt, label, analysisContext)
	entry := ChatEntry{
		UserText:   prompt,
		AIText:     answer,
		Timestamp:  s.deps.Clock().Format(TimestampLayout),
		ModelLabel: label,
	}
	s.chat = append(s.chat, entry)
	return entry, nil
}

// Snapshot is a read-only copy of the session for the view.
type Snapshot struct {
	ID           string               `json:"session_id"`
	HasData      bool                 `json:"has_data"`
	Source       string               `json:"source,omitempty"`
	Rows         int                  `json:"rows"`
	Columns      []string             `json:"columns"`
	Analysis     *analysis.Result     `json:"analysis"`
	ChatHistory  []ChatEntry          `json:"chat_history"`
	ModelsTested map[string]ModelTest `json:"models_tested"`
}

// Snapshot copies the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:           s.ID,
		HasData:      s.data != nil,
		Rows:         s.data.Len(),
		Columns:      s.data.ColumnNames(),
		ChatHistory:  append([]ChatEntry{}, s.chat...),
		ModelsTested: make(map[string]ModelTest, len(s.tested)),
	}
	if s.data != nil {
		snap.Source = s.data.Source
	}
	if s.result != nil {
		res := *s.result
		snap.Analysis = &res
	}
	for k, v := range s.tested {
		snap.ModelsTested[k] = v
	}
	return snap
}

// Data returns a copy of the current table, or nil.
func (s *Session) Data() *dataset.Table {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Clone()
}
