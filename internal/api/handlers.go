package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"quality-dashboard/internal/analysis"
	"quality-dashboard/internal/dataset"
	"quality-dashboard/internal/llm"
	"quality-dashboard/internal/models"
	"quality-dashboard/internal/reference"
	"quality-dashboard/internal/state"
)

const (
	// SessionHeader selects the session a request acts on.
	SessionHeader = "X-Session-ID"

	defaultMaxUpload = 20 << 20
	defaultPageSize  = 100
	xlsxContentType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Options tune request limits.
type Options struct {
	MaxUploadBytes int64
	RatePerSec     float64
	RateBurst      int
}

type Handler struct {
	Store   *state.Store
	LLM     *llm.Service
	Sources []reference.Source

	logger    *zap.Logger
	maxUpload int64
	limiter   *sessionLimiter
}

func NewHandler(store *state.Store, llmSvc *llm.Service, sources []reference.Source, logger *zap.Logger, opts Options) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUpload
	}
	if opts.RatePerSec <= 0 {
		opts.RatePerSec = 1
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = 3
	}
	h := &Handler{
		Store:     store,
		LLM:       llmSvc,
		Sources:   sources,
		logger:    logger,
		maxUpload: opts.MaxUploadBytes,
		limiter:   newSessionLimiter(opts.RatePerSec, opts.RateBurst),
	}
	store.OnEvict(h.limiter.Forget)
	return h
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.HealthCheck)

	r.Post("/api/session", h.CreateSession)
	r.Get("/api/sources", h.GetSources)

	r.Group(func(r chi.Router) {
		r.Use(h.requireSession)

		r.Get("/api/session", h.GetSession)
		r.Delete("/api/session", h.DeleteSession)

		// Dataset
		r.Post("/api/data/upload", h.Upload)
		r.Post("/api/data/sample", h.GenerateSample)
		r.Delete("/api/data", h.ClearData)
		r.Get("/api/data", h.GetData)
		r.Get("/api/data/profile", h.GetProfile)
		r.Get("/api/data/export", h.ExportData)

		// Analysis
		r.Post("/api/analysis", h.RunAnalysis)
		r.Get("/api/analysis", h.GetAnalysis)
		r.Get("/api/analysis/correlations", h.GetCorrelations)

		// Assistant
		r.Get("/api/models", h.GetModels)
		r.Get("/api/chat", h.GetChat)
		r.With(h.limiter.Middleware).Post("/api/models/{label}/test", h.TestModel)
		r.With(h.limiter.Middleware).Post("/api/chat", h.SubmitChat)
	})
}

// ============================================================================
// Health & sessions
// ============================================================================

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("OK"))
}

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	s := h.Store.Create()
	w.Header().Set(SessionHeader, s.ID)
	writeJSON(w, http.StatusCreated, models.SessionResponse{SessionID: s.ID})
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionFrom(r).Snapshot())
}

func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r)
	h.Store.Delete(s.ID)
	h.limiter.Forget(s.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetSources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.SourcesResponse{Sources: h.Sources})
}

// ============================================================================
// Dataset
// ============================================================================

func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		writeError(w, http.StatusBadRequest, "File too large or malformed form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	s := sessionFrom(r)
	res, err := s.Upload(header.Filename, file)
	if err != nil {
		h.logger.Info("upload rejected", zap.String("session_id", s.ID), zap.String("file", header.Filename), zap.Error(err))
		status := http.StatusBadRequest
		if errors.Is(err, dataset.ErrUnsupportedFormat) {
			status = http.StatusUnsupportedMediaType
		}
		writeError(w, status, fmt.Sprintf("Failed to read file: %v", err))
		return
	}

	snap := s.Snapshot()
	writeJSON(w, http.StatusOK, models.UploadResponse{
		Message:     fmt.Sprintf("File '%s' uploaded successfully", header.Filename),
		Source:      snap.Source,
		Rows:        snap.Rows,
		Columns:     len(snap.Columns),
		ColumnNames: snap.Columns,
		Analysis:    res,
	})
}

func (h *Handler) GenerateSample(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r)
	res := s.GenerateSample()
	snap := s.Snapshot()

	writeJSON(w, http.StatusOK, models.UploadResponse{
		Message:     fmt.Sprintf("Generated %d sample encounters", snap.Rows),
		Source:      snap.Source,
		Rows:        snap.Rows,
		Columns:     len(snap.Columns),
		ColumnNames: snap.Columns,
		Analysis:    res,
	})
}

func (h *Handler) ClearData(w http.ResponseWriter, r *http.Request) {
	sessionFrom(r).Clear()
	writeJSON(w, http.StatusOK, models.MessageResponse{Message: "Session cleared"})
}

func (h *Handler) GetData(w http.ResponseWriter, r *http.Request) {
	table := sessionFrom(r).Data()
	if table == nil {
		writeError(w, http.StatusNotFound, "No dataset loaded")
		return
	}

	limit := getIntParam(r, "limit", defaultPageSize)
	writeJSON(w, http.StatusOK, models.DataResponse{
		Source:      table.Source,
		TotalRows:   table.Len(),
		ColumnNames: table.ColumnNames(),
		Records:     table.Records(limit),
	})
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	table := sessionFrom(r).Data()
	if table == nil {
		writeError(w, http.StatusNotFound, "No dataset loaded")
		return
	}

	profiles, missing := dataset.Profile(table)
	writeJSON(w, http.StatusOK, models.ProfileResponse{
		Rows:           table.Len(),
		Columns:        profiles,
		MissingColumns: missing,
	})
}

func (h *Handler) ExportData(w http.ResponseWriter, r *http.Request) {
	table := sessionFrom(r).Data()
	if table == nil {
		writeError(w, http.StatusNotFound, "No dataset loaded")
		return
	}

	data, err := dataset.WriteXLSX(table)
	if err != nil {
		h.logger.Error("export failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to export dataset")
		return
	}

	filename := fmt.Sprintf("encounters_%s.xlsx", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// ============================================================================
// Analysis
// ============================================================================

func (h *Handler) RunAnalysis(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionFrom(r).RunAnalysis())
}

func (h *Handler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	snap := sessionFrom(r).Snapshot()
	if snap.Analysis == nil {
		writeError(w, http.StatusNotFound, "No analysis available")
		return
	}
	writeJSON(w, http.StatusOK, snap.Analysis)
}

func (h *Handler) GetCorrelations(w http.ResponseWriter, r *http.Request) {
	table := sessionFrom(r).Data()
	if table == nil {
		writeError(w, http.StatusNotFound, "No dataset loaded")
		return
	}

	target := analysis.DefaultCorrelationTarget
	if name := r.URL.Query().Get("target"); name != "" {
		col, ok := dataset.ParseColumn(name)
		if !ok {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown column %q", name))
			return
		}
		target = col
	}

	correlations, err := analysis.Correlations(table, target)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, models.CorrelationsResponse{Target: string(target), Correlations: correlations})
}

// ============================================================================
// Assistant
// ============================================================================

func (h *Handler) GetModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.ModelsResponse{
		Models:       h.LLM.Models(),
		ModelsTested: sessionFrom(r).Snapshot().ModelsTested,
	})
}

func (h *Handler) TestModel(w http.ResponseWriter, r *http.Request) {
	label := chi.URLParam(r, "label")
	if !h.LLM.HasModel(label) {
		writeError(w, http.StatusNotFound, llm.MsgModelNotFound)
		return
	}

	outcome := sessionFrom(r).TestModel(r.Context(), label)
	writeJSON(w, http.StatusOK, models.ModelTestResponse{Label: label, ModelTest: outcome})
}

func (h *Handler) SubmitChat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if err := req.Validate(h.LLM.HasModel); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s := sessionFrom(r)
	entry, err := s.SubmitChat(r.Context(), req.Prompt, req.Model)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, models.ChatResponse{
		Entry:   entry,
		History: s.Snapshot().ChatHistory,
	})
}

func (h *Handler) GetChat(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionFrom(r).Snapshot().ChatHistory)
}

// ============================================================================
// Helpers
// ============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, models.ErrorResponse{Error: msg})
}

func getIntParam(r *http.Request, name string, defaultVal int) int {
	valStr := r.URL.Query().Get(name)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		return defaultVal
	}
	return val
}
