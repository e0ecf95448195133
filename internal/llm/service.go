package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"quality-dashboard/internal/reference"
)

const (
	completionsPath = "/chat/completions"

	probePrompt      = "List the three most important patient safety indicators a hospital should monitor and explain briefly why each matters."
	probeMaxTokens   = 200
	probeTemperature = 0.3
	probeMinChars    = 50

	queryMaxTokens   = 1500
	queryTemperature = 0.7

	errorPreviewChars = 50
)

// Display strings returned instead of errors
const (
	MsgModelNotFound    = "❌ Model not found"
	MsgEmptyResponse    = "❌ Empty response"
	MsgResponseTooShort = "❌ Response too short"
)

// Config holds the chat-completion endpoint settings.
type Config struct {
	BaseURL   string
	UserAgent string
}

// ModelInfo is the public view of a catalogue entry. It never carries the key.
type ModelInfo struct {
	Label       string `json:"label"`
	Description string `json:"description"`
	Configured  bool   `json:"configured"`
}

// Service sends prompts to a chat-completion endpoint. One resty client is
// reused for every call; there are no retries and no caching.
type Service struct {
	client       *resty.Client
	models       map[string]reference.ModelDescriptor
	order        []string
	sources      []reference.Source
	logger       *zap.Logger
	probeTimeout time.Duration
	queryTimeout time.Duration
}

// NewService builds the adapter over a model catalogue and source table.
func NewService(cfg Config, models []reference.ModelDescriptor, sources []reference.Source, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "quality-dashboard/1.0"
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", cfg.UserAgent).
		SetLogger(logger.Sugar())

	s := &Service{
		client:       client,
		models:       make(map[string]reference.ModelDescriptor, len(models)),
		order:        make([]string, 0, len(models)),
		sources:      sources,
		logger:       logger,
		probeTimeout: 25 * time.Second,
		queryTimeout: 35 * time.Second,
	}
	for _, m := range models {
		if _, dup := s.models[m.Label]; !dup {
			s.order = append(s.order, m.Label)
		}
		s.models[m.Label] = m
	}
	return s
}

// Models lists the catalogue in order.
func (s *Service) Models() []ModelInfo {
	out := make([]ModelInfo, 0, len(s.order))
	for _, label := range s.order {
		m := s.models[label]
		out = append(out, ModelInfo{
			Label:       m.Label,
			Description: m.Description,
			Configured:  m.APIKey != "",
		})
	}
	return out
}

// HasModel reports whether label is in the catalogue.
func (s *Service) HasModel(label string) bool {
	_, ok := s.models[label]
	return ok
}

// Sources returns the healthcare source table used in the system prompt.
func (s *Service) Sources() []reference.Source {
	return s.sources
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionsRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatCompletionsResponse struct {
	Choices []struct {
		Message struct {
			Content json.RawMessage `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type responseContentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// TestModel sends a short probe and reports whether the model answered with
// more than 50 characters.
func (s *Service) TestModel(ctx context.Context, label string) (bool, string) {
	model, ok := s.models[label]
	if !ok {
		return false, MsgModelNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, s.probeTimeout)
	defer cancel()

	status, content, err := s.complete(ctx, model, chatCompletionsRequest{
		Messages:    []chatMessage{{Role: "user", Content: probePrompt}},
		MaxTokens:   probeMaxTokens,
		Temperature: probeTemperature,
	})
	switch {
	case err != nil:
		return false, errorMessage(err)
	case status != 200:
		return false, fmt.Sprintf("❌ HTTP %d", status)
	}

	content = strings.TrimSpace(content)
	n := utf8.RuneCountInString(content)
	switch {
	case n == 0:
		return false, MsgEmptyResponse
	case n <= probeMinChars:
		return false, MsgResponseTooShort
	}
	return true, fmt.Sprintf("✅ Model responding (%d chars)", n)
}

// Query asks the model a question grounded in the analysis context. It never
// fails; errors come back as display strings.
func (s *Service) Query(ctx context.Context, prompt, label string, analysisContext any) string {
	model, ok := s.models[label]
	if !ok {
		return MsgModelNotFound
	}

	system, err := s.systemPrompt(analysisContext)
	if err != nil {
		return errorMessage(err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	status, content, err := s.complete(ctx, model, chatCompletionsRequest{
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   queryMaxTokens,
		Temperature: queryTemperature,
	})
	switch {
	case err != nil:
		return errorMessage(err)
	case status != 200:
		return fmt.Sprintf("⚠️ API Error %d", status)
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return MsgEmptyResponse
	}
	return content
}

// complete performs exactly one POST. A non-200 status is returned without
// decoding the body.
func (s *Service) complete(ctx context.Context, model reference.ModelDescriptor, req chatCompletionsRequest) (int, string, error) {
	req.Model = model.BackendID

	start := time.Now()
	resp, err := s.client.R().
		SetContext(ctx).
		SetAuthToken(model.APIKey).
		SetBody(req).
		Post(completionsPath)

	fields := []zap.Field{
		zap.String("model", model.Label),
		zap.String("backend_id", model.BackendID),
		zap.Duration("latency", time.Since(start)),
	}
	if err != nil {
		s.logger.Warn("chat completion failed", append(fields, zap.Error(err))...)
		return 0, "", transportCause(err)
	}
	fields = append(fields, zap.Int("status", resp.StatusCode()))
	if resp.StatusCode() != 200 {
		s.logger.Warn("chat completion returned error status", fields...)
		return resp.StatusCode(), "", nil
	}
	s.logger.Info("chat completion", fields...)

	var parsed chatCompletionsResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return resp.StatusCode(), "", fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return resp.StatusCode(), "", nil
	}
	content, err := parseMessageContent(parsed.Choices[0].Message.Content)
	if err != nil {
		return resp.StatusCode(), "", err
	}
	return resp.StatusCode(), content, nil
}

// parseMessageContent accepts plain string content or a list of text parts.
func parseMessageContent(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString, nil
	}

	var asParts []responseContentPart
	if err := json.Unmarshal(raw, &asParts); err == nil {
		var builder strings.Builder
		for _, part := range asParts {
			if part.Type == "text" {
				builder.WriteString(part.Text)
			}
		}
		return builder.String(), nil
	}

	return "", fmt.Errorf("unsupported message content format: %s", string(raw))
}

// transportCause drops the method and URL that net/http puts in front of
// transport errors, leaving the cause for the short error preview.
func transportCause(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		return urlErr.Err
	}
	return err
}

func errorMessage(err error) string {
	msg := err.Error()
	if utf8.RuneCountInString(msg) > errorPreviewChars {
		msg = string([]rune(msg)[:errorPreviewChars])
	}
	return "❌ Error: " + msg
}
