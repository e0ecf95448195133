package models

import (
	"quality-dashboard/internal/analysis"
	"quality-dashboard/internal/dataset"
	"quality-dashboard/internal/llm"
	"quality-dashboard/internal/reference"
	"quality-dashboard/internal/state"
)

// SessionResponse is returned when a session is created
type SessionResponse struct {
	SessionID string `json:"session_id"`
}

// UploadResponse is returned after an upload or sample generation
type UploadResponse struct {
	Message     string          `json:"message"`
	Source      string          `json:"source"`
	Rows        int             `json:"rows"`
	Columns     int             `json:"columns"`
	ColumnNames []string        `json:"column_names"`
	Analysis    analysis.Result `json:"analysis"`
}

// DataResponse is a page of the current table
type DataResponse struct {
	Source      string           `json:"source"`
	TotalRows   int              `json:"total_rows"`
	ColumnNames []string         `json:"column_names"`
	Records     []map[string]any `json:"records"`
}

// ProfileResponse feeds the data-quality panel
type ProfileResponse struct {
	Rows           int                     `json:"rows"`
	Columns        []dataset.ColumnProfile `json:"columns"`
	MissingColumns []string                `json:"missing_columns"`
}

// CorrelationsResponse relates the target metric to the other metrics
type CorrelationsResponse struct {
	Target       string                 `json:"target"`
	Correlations []analysis.Correlation `json:"correlations"`
}

// ModelsResponse lists the catalogue and the last probe per model
type ModelsResponse struct {
	Models       []llm.ModelInfo            `json:"models"`
	ModelsTested map[string]state.ModelTest `json:"models_tested"`
}

// ModelTestResponse is one probe outcome
type ModelTestResponse struct {
	Label string `json:"label"`
	state.ModelTest
}

// ChatResponse carries the new entry and the full history
type ChatResponse struct {
	Entry   state.ChatEntry   `json:"entry"`
	History []state.ChatEntry `json:"history"`
}

// SourcesResponse is the static source table
type SourcesResponse struct {
	Sources []reference.Source `json:"sources"`
}

// MessageResponse is a plain acknowledgement
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the body of every 4xx/5xx reply
type ErrorResponse struct {
	Error string `json:"error"`
}
