package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quality-dashboard/internal/analysis"
	"quality-dashboard/internal/dataset"
	"quality-dashboard/internal/llm"
	"quality-dashboard/internal/models"
	"quality-dashboard/internal/reference"
	"quality-dashboard/internal/state"
)

const modelAnswer = "Prioritise hand hygiene audits and medication reconciliation at discharge, per WHO patient safety goals."

type testServer struct {
	router   http.Handler
	handler  *Handler
	llmCalls int
}

func newTestServer(t *testing.T, opts Options) *testServer {
	t.Helper()
	ts := &testServer{}

	stub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts.llmCalls++
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": modelAnswer}}},
		})
	}))
	t.Cleanup(stub.Close)

	catalogue, err := reference.Load()
	require.NoError(t, err)

	svc := llm.NewService(llm.Config{BaseURL: stub.URL},
		[]reference.ModelDescriptor{{Label: "Stub", BackendID: "stub/model", APIKey: "k", Description: "test"}},
		catalogue.Sources, nil)
	store := state.NewStore(state.Deps{Assistant: svc}, 0)

	ts.handler = NewHandler(store, svc, catalogue.Sources, nil, opts)
	r := chi.NewRouter()
	ts.handler.RegisterRoutes(r)
	ts.router = r
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, session string, body []byte, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if session != "" {
		req.Header.Set(SessionHeader, session)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) session(t *testing.T) string {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/session", "", nil, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp models.SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.SessionID)
	assert.Equal(t, resp.SessionID, rec.Header().Get(SessionHeader))
	return resp.SessionID
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func multipartFile(t *testing.T, filename, content string) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return buf.Bytes(), mw.FormDataContentType()
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t, Options{})
	rec := ts.do(t, http.MethodGet, "/health", "", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestSessionRequired(t *testing.T) {
	ts := newTestServer(t, Options{})

	rec := ts.do(t, http.MethodGet, "/api/data", "", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/data", "no-such-session", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Unknown or expired session", decode[models.ErrorResponse](t, rec).Error)
}

func TestDeleteSession(t *testing.T) {
	ts := newTestServer(t, Options{})
	id := ts.session(t)

	assert.Equal(t, http.StatusNoContent, ts.do(t, http.MethodDelete, "/api/session", id, nil, "").Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/session", id, nil, "").Code)
}

func TestSampleDataFlow(t *testing.T) {
	ts := newTestServer(t, Options{})
	id := ts.session(t)

	rec := ts.do(t, http.MethodPost, "/api/data/sample", id, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	up := decode[models.UploadResponse](t, rec)
	assert.Equal(t, dataset.SampleSize, up.Rows)
	assert.Equal(t, "sample", up.Source)
	assert.Equal(t, dataset.SampleSize, up.Analysis.Summary.TotalPatients)
	assert.Len(t, up.Analysis.ComprehensiveCompliance, len(analysis.Standards))

	rec = ts.do(t, http.MethodGet, "/api/data?limit=5", id, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	data := decode[models.DataResponse](t, rec)
	assert.Equal(t, dataset.SampleSize, data.TotalRows)
	require.Len(t, data.Records, 5)
	assert.Equal(t, "P0001", data.Records[0]["Patient_ID"])

	rec = ts.do(t, http.MethodGet, "/api/data/profile", id, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	profile := decode[models.ProfileResponse](t, rec)
	assert.Len(t, profile.Columns, len(up.ColumnNames))
	assert.Empty(t, profile.MissingColumns)

	rec = ts.do(t, http.MethodGet, "/api/data/export", id, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".xlsx")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")), "xlsx is a zip archive")

	rec = ts.do(t, http.MethodGet, "/api/analysis", id, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, up.Analysis.Summary, decode[analysis.Result](t, rec).Summary)
}

func TestCorrelations(t *testing.T) {
	ts := newTestServer(t, Options{})
	id := ts.session(t)

	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/analysis/correlations", id, nil, "").Code)

	ts.do(t, http.MethodPost, "/api/data/sample", id, nil, "")

	rec := ts.do(t, http.MethodGet, "/api/analysis/correlations", id, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[models.CorrelationsResponse](t, rec)
	assert.Equal(t, "HCAHPS_Overall", resp.Target)
	assert.NotEmpty(t, resp.Correlations)

	rec = ts.do(t, http.MethodGet, "/api/analysis/correlations?target=safety%20score", id, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Safety_Score", decode[models.CorrelationsResponse](t, rec).Target)

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/api/analysis/correlations?target=Blood_Type", id, nil, "").Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/api/analysis/correlations?target=Department", id, nil, "").Code)
}

func TestUploadCSV(t *testing.T) {
	ts := newTestServer(t, Options{})
	id := ts.session(t)
	body, ct := multipartFile(t, "ward.csv", "Patient_ID,Age,Patient_Feedback\nP1,40,Excellent and friendly\nP2,60,Rude and slow\n")

	rec := ts.do(t, http.MethodPost, "/api/data/upload", id, body, ct)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	up := decode[models.UploadResponse](t, rec)
	assert.Equal(t, 2, up.Rows)
	assert.Equal(t, "ward.csv", up.Source)
	assert.Equal(t, []string{"Patient_ID", "Age", "Patient_Feedback", "Sentiment"}, up.ColumnNames)
	assert.Equal(t, 50.0, up.Analysis.Summary.AvgAge)
	assert.Equal(t, analysis.Defaults(), up.Analysis.ComprehensiveCompliance)
	assert.Equal(t, 50.0, up.Analysis.SentimentAnalysis["positive"])

	data := decode[models.DataResponse](t, ts.do(t, http.MethodGet, "/api/data", id, nil, ""))
	require.Len(t, data.Records, 2)
	assert.Equal(t, "Positive", data.Records[0]["Sentiment"])
	assert.Equal(t, "Negative", data.Records[1]["Sentiment"])
}

func TestUploadRejections(t *testing.T) {
	ts := newTestServer(t, Options{MaxUploadBytes: 1 << 10})
	id := ts.session(t)

	body, ct := multipartFile(t, "report.pdf", "%PDF-1.4")
	rec := ts.do(t, http.MethodPost, "/api/data/upload", id, body, ct)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	body, ct = multipartFile(t, "big.csv", "Age\n"+strings.Repeat("40\n", 2000))
	rec = ts.do(t, http.MethodPost, "/api/data/upload", id, body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/data/upload", id, []byte("x"), "text/plain")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.False(t, decode[state.Snapshot](t, ts.do(t, http.MethodGet, "/api/session", id, nil, "")).HasData)
}

func TestClearAndEmptyAnalysis(t *testing.T) {
	ts := newTestServer(t, Options{})
	id := ts.session(t)
	ts.do(t, http.MethodPost, "/api/data/sample", id, nil, "")

	rec := ts.do(t, http.MethodDelete, "/api/data", id, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/data", id, nil, "").Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/data/export", id, nil, "").Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/analysis", id, nil, "").Code)

	rec = ts.do(t, http.MethodPost, "/api/analysis", id, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[analysis.Result](t, rec)
	assert.Zero(t, res.Summary.TotalPatients)
	assert.Empty(t, res.ComprehensiveCompliance)
	assert.Empty(t, res.Insights)
}

func TestModelsAndProbe(t *testing.T) {
	ts := newTestServer(t, Options{})
	id := ts.session(t)

	rec := ts.do(t, http.MethodPost, "/api/models/Stub/test", id, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	probe := decode[models.ModelTestResponse](t, rec)
	assert.True(t, probe.OK)
	assert.Equal(t, "Stub", probe.Label)
	assert.Contains(t, probe.Message, "Model responding")

	rec = ts.do(t, http.MethodPost, "/api/models/Other/test", id, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/models", id, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[models.ModelsResponse](t, rec)
	assert.Equal(t, []llm.ModelInfo{{Label: "Stub", Description: "test", Configured: true}}, list.Models)
	assert.True(t, list.ModelsTested["Stub"].OK)
	assert.NotContains(t, rec.Body.String(), `"k"`)
}

func TestChat(t *testing.T) {
	ts := newTestServer(t, Options{RatePerSec: 100, RateBurst: 100})
	id := ts.session(t)
	ts.do(t, http.MethodPost, "/api/data/sample", id, nil, "")

	cases := map[string]string{
		"bad json":      `{"prompt":`,
		"blank prompt":  `{"prompt":"   ","model":"Stub"}`,
		"missing model": `{"prompt":"hello"}`,
		"unknown model": `{"prompt":"hello","model":"Nope"}`,
	}
	for name, body := range cases {
		rec := ts.do(t, http.MethodPost, "/api/chat", id, []byte(body), "application/json")
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
	}
	assert.Zero(t, ts.llmCalls)

	rec := ts.do(t, http.MethodPost, "/api/chat", id, []byte(`{"prompt":"How can we cut readmissions?","model":"Stub"}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	chat := decode[models.ChatResponse](t, rec)
	assert.Equal(t, modelAnswer, chat.Entry.AIText)
	assert.Equal(t, "Stub", chat.Entry.ModelLabel)
	assert.Len(t, chat.Entry.Timestamp, len("15:04:05"))
	assert.Len(t, chat.History, 1)
	assert.Equal(t, 1, ts.llmCalls)

	rec = ts.do(t, http.MethodGet, "/api/chat", id, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]state.ChatEntry](t, rec), 1)
}

func TestChatIsRateLimitedPerSession(t *testing.T) {
	ts := newTestServer(t, Options{RatePerSec: 0.001, RateBurst: 1})
	a, b := ts.session(t), ts.session(t)
	body := []byte(`{"prompt":"hello","model":"Stub"}`)

	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/api/chat", a, body, "application/json").Code)
	assert.Equal(t, http.StatusTooManyRequests, ts.do(t, http.MethodPost, "/api/chat", a, body, "application/json").Code)
	assert.Equal(t, http.StatusTooManyRequests, ts.do(t, http.MethodPost, "/api/models/Stub/test", a, nil, "").Code)
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/api/chat", b, body, "application/json").Code)
	assert.Equal(t, 2, ts.llmCalls)
}

func TestSources(t *testing.T) {
	ts := newTestServer(t, Options{})

	rec := ts.do(t, http.MethodGet, "/api/sources", "", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[models.SourcesResponse](t, rec)
	require.Len(t, resp.Sources, 10)
	assert.Equal(t, "WHO", resp.Sources[0].Key)
	assert.Equal(t, "PK3D Jakarta", resp.Sources[9].Key)
}
