package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/JustJay7/court-data-service/internal/cache"
	"github.com/JustJay7/court-data-service/internal/config"
	"github.com/JustJay7/court-data-service/internal/courts"
	"github.com/JustJay7/court-data-service/internal/database"
	"github.com/JustJay7/court-data-service/internal/provider"
	"github.com/JustJay7/court-data-service/internal/service"
	"github.com/JustJay7/court-data-service/internal/storage"
	"github.com/JustJay7/court-data-service/internal/store"
	"github.com/JustJay7/court-data-service/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupRouter(t *testing.T, limiter cache.Limiter) (*gin.Engine, *Handlers) {
	t.Helper()

	dir := t.TempDir()
	db, err := database.Initialize(&config.Config{
		DatabaseDriver: config.DriverSQLite,
		DatabasePath:   filepath.Join(dir, "api.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	log := logger.NewNop()
	files, err := storage.NewFileStore(filepath.Join(dir, "downloads"), log)
	require.NoError(t, err)
	directory, err := courts.Default()
	require.NoError(t, err)

	svc := service.NewQueryService(
		store.NewQueryStore(db, log),
		store.NewJudgmentStore(db, log),
		provider.NewMock(),
		files,
		directory,
		log,
	)

	h := NewHandlers(svc, db, limiter, log)
	h.now = func() time.Time { return time.Date(2024, 10, 2, 9, 0, 0, 0, time.UTC) }

	router := gin.New()
	router.Use(RequestID())
	SetupRoutes(router, h)
	return router, h
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

type caseResponse struct {
	Status  string                `json:"status"`
	QueryID uint                  `json:"query_id"`
	Code    string                `json:"code"`
	Message string                `json:"message"`
	Field   string                `json:"field"`
	Data    *provider.CaseDetails `json:"data"`
}

func fetchCase(t *testing.T, router http.Handler, body gin.H) (*httptest.ResponseRecorder, caseResponse) {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/api/fetch-case", body)
	var resp caseResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w, resp
}

func history(t *testing.T, router http.Handler) []historyItem {
	t.Helper()
	w := doJSON(t, router, http.MethodGet, "/api/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var items []historyItem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
	return items
}

func TestFetchCaseSuccess(t *testing.T) {
	router, h := setupRouter(t, nil)

	w, resp := fetchCase(t, router, gin.H{
		"case_type":   "CS",
		"case_number": "12345",
		"year":        "2023",
		"court_type":  "high_court",
		"court_name":  "Delhi",
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "success", resp.Status)
	require.NotZero(t, resp.QueryID)
	require.NotNil(t, resp.Data)
	assert.NotEmpty(t, resp.Data.Petitioner)
	assert.NotEmpty(t, resp.Data.Respondent)
	assert.NotEmpty(t, resp.Data.CaseStatus)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	q, err := h.svc.GetQuery(context.Background(), resp.QueryID)
	require.NoError(t, err)
	assert.Equal(t, database.StatusSuccess, q.Status)

	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal(q.ParsedData, &parsed))
	assert.NotEmpty(t, parsed["petitioner"])
	assert.NotEmpty(t, parsed["case_status"])
}

func TestFetchCaseDistinctCases(t *testing.T) {
	router, _ := setupRouter(t, nil)

	_, first := fetchCase(t, router, gin.H{"case_type": "CS", "case_number": "12345", "year": "2023"})
	_, second := fetchCase(t, router, gin.H{"case_type": "WP", "case_number": "67890", "year": 2024})

	require.Equal(t, "success", first.Status)
	require.Equal(t, "success", second.Status)
	assert.NotEqual(t, first.QueryID, second.QueryID)
	assert.NotEqual(t, *first.Data, *second.Data)
	assert.Equal(t, "WP", second.Data.CaseType)
	assert.Equal(t, "2024", second.Data.Year)
}

func TestFetchCaseValidationCreatesNoRow(t *testing.T) {
	router, _ := setupRouter(t, nil)

	w, resp := fetchCase(t, router, gin.H{
		"case_type":   "",
		"case_number": "1",
		"year":        "2024",
		"court_type":  "high_court",
		"court_name":  "Delhi",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "VALIDATION", resp.Code)
	assert.Equal(t, "case_type", resp.Field)
	assert.Empty(t, history(t, router))
}

func TestFetchCaseBadInput(t *testing.T) {
	router, _ := setupRouter(t, nil)

	tests := []struct {
		name  string
		body  gin.H
		field string
	}{
		{"bad year", gin.H{"case_type": "CS", "case_number": "1", "year": "20x4"}, "year"},
		{"unknown court", gin.H{"case_type": "CS", "case_number": "1", "year": "2024", "court_name": "Atlantis"}, "court_name"},
		{"bad court type", gin.H{"case_type": "CS", "case_number": "1", "year": "2024", "court_type": "supreme"}, "court_type"},
		{"wrong type", gin.H{"case_type": "CS", "case_number": true, "year": "2024"}, "body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := fetchCase(t, router, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.field, resp.Field)
		})
	}
	assert.Empty(t, history(t, router))
}

func TestFetchCaseProviderFailure(t *testing.T) {
	router, h := setupRouter(t, nil)

	w, resp := fetchCase(t, router, gin.H{"case_type": "CS", "case_number": "000", "year": "2023"})

	require.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "FETCH", resp.Code)
	require.NotZero(t, resp.QueryID)
	assert.Contains(t, resp.Message, "Error fetching case details")

	q, err := h.svc.GetQuery(context.Background(), resp.QueryID)
	require.NoError(t, err)
	assert.Equal(t, database.StatusFailed, q.Status)
	require.NotNil(t, q.RawResponse)
	assert.Contains(t, *q.RawResponse, "No records found")
}

func TestFetchCauseList(t *testing.T) {
	router, h := setupRouter(t, nil)

	w := doJSON(t, router, http.MethodPost, "/api/fetch-causelist", gin.H{
		"court_type": "high_court",
		"court_name": "Delhi",
		"date":       "2024-10-02",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Status  string                    `json:"status"`
		QueryID uint                      `json:"query_id"`
		Date    string                    `json:"date"`
		Court   string                    `json:"court"`
		Entries []provider.CauseListEntry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, "2024-10-02", resp.Date)
	assert.Equal(t, "Delhi", resp.Court)
	assert.NotNil(t, resp.Entries)

	q, err := h.svc.GetQuery(context.Background(), resp.QueryID)
	require.NoError(t, err)
	assert.Equal(t, database.StatusSuccess, q.Status)
	assert.Equal(t, database.KindCauseList, q.Kind)
}

func TestFetchCauseListDefaults(t *testing.T) {
	router, _ := setupRouter(t, nil)

	w := doJSON(t, router, http.MethodPost, "/api/fetch-causelist", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "2024-10-02", resp["date"])
	assert.Equal(t, DefaultCourtName, resp["court"])
	assert.IsType(t, []interface{}{}, resp["entries"])
}

func TestFetchCauseListBadDate(t *testing.T) {
	router, _ := setupRouter(t, nil)

	w := doJSON(t, router, http.MethodPost, "/api/fetch-causelist", gin.H{"date": "02/10/2024"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, history(t, router))
}

func TestDownloadJudgmentFlow(t *testing.T) {
	router, _ := setupRouter(t, nil)

	_, caseResp := fetchCase(t, router, gin.H{"case_type": "CS", "case_number": "12345", "year": "2023"})
	require.NotEmpty(t, caseResp.Data.Judgments)
	link := caseResp.Data.Judgments[0].URL

	w := doJSON(t, router, http.MethodPost, "/api/download-judgment", gin.H{
		"judgment_url": link,
		"query_id":     caseResp.QueryID,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var dl struct {
		Status     string `json:"status"`
		JudgmentID uint   `json:"judgment_id"`
		QueryID    uint   `json:"query_id"`
		Filename   string `json:"filename"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &dl))
	assert.Equal(t, "success", dl.Status)
	assert.Equal(t, caseResp.QueryID, dl.QueryID)
	assert.NotEmpty(t, dl.Filename)

	w = doJSON(t, router, http.MethodGet, "/api/queries/"+itoa(caseResp.QueryID)+"/judgments", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var judgments []judgmentItem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &judgments))
	require.Len(t, judgments, 1)
	assert.Equal(t, dl.JudgmentID, judgments[0].ID)
	assert.Equal(t, link, judgments[0].SourceURL)

	w = doJSON(t, router, http.MethodGet, "/api/judgments/"+itoa(dl.JudgmentID)+"/file", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), dl.Filename)
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")))
}

func TestDownloadJudgmentErrors(t *testing.T) {
	router, _ := setupRouter(t, nil)

	tests := []struct {
		name   string
		body   gin.H
		status int
		code   string
	}{
		{"missing url", gin.H{"query_id": 1}, http.StatusBadRequest, "VALIDATION"},
		{"missing query", gin.H{"judgment_url": "https://mock.ecourts.local/x.pdf"}, http.StatusBadRequest, "VALIDATION"},
		{"unknown query", gin.H{"judgment_url": "https://mock.ecourts.local/x.pdf", "query_id": 999}, http.StatusNotFound, "NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, router, http.MethodPost, "/api/download-judgment", tt.body)
			assert.Equal(t, tt.status, w.Code)
			var resp map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, "error", resp["status"])
			assert.Equal(t, tt.code, resp["code"])
		})
	}

	_, caseResp := fetchCase(t, router, gin.H{"case_type": "CS", "case_number": "12345", "year": "2023"})
	w := doJSON(t, router, http.MethodPost, "/api/download-judgment", gin.H{
		"judgment_url": "ftp://example.com/order.pdf",
		"query_id":     caseResp.QueryID,
	})
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestHistoryOrderAndPaging(t *testing.T) {
	router, _ := setupRouter(t, nil)

	for _, number := range []string{"1", "2", "3"} {
		w, _ := fetchCase(t, router, gin.H{"case_type": "CS", "case_number": number, "year": "2023"})
		require.Equal(t, http.StatusOK, w.Code)
	}

	items := history(t, router)
	require.Len(t, items, 3)
	for i := 1; i < len(items); i++ {
		assert.False(t, items[i].QueryTime.After(items[i-1].QueryTime))
	}
	assert.Equal(t, "3", items[0].CaseNumber)
	assert.Equal(t, items, history(t, router))

	w := doJSON(t, router, http.MethodGet, "/api/history?limit=1&offset=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page []historyItem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page, 1)
	assert.Equal(t, items[1].ID, page[0].ID)

	w = doJSON(t, router, http.MethodGet, "/api/history?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHistoryEmptyIsArray(t *testing.T) {
	router, _ := setupRouter(t, nil)

	w := doJSON(t, router, http.MethodGet, "/api/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestGetQuery(t *testing.T) {
	router, _ := setupRouter(t, nil)

	_, caseResp := fetchCase(t, router, gin.H{"case_type": "CS", "case_number": "12345", "year": "2023"})

	w := doJSON(t, router, http.MethodGet, "/api/queries/"+itoa(caseResp.QueryID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var q database.Query
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &q))
	assert.Equal(t, caseResp.QueryID, q.ID)
	require.NotNil(t, q.RawResponse)
	assert.Contains(t, *q.RawResponse, "12345")

	w = doJSON(t, router, http.MethodGet, "/api/queries/999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = doJSON(t, router, http.MethodGet, "/api/queries/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = doJSON(t, router, http.MethodGet, "/api/queries/999/judgments", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCourtsAndCaseTypes(t *testing.T) {
	router, _ := setupRouter(t, nil)

	w := doJSON(t, router, http.MethodGet, "/api/courts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string][]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp["high_courts"], "Delhi")
	assert.Equal(t, []string{"Delhi", "Mumbai", "Bangalore", "Chennai", "Kolkata"}, resp["district_courts"])

	w = doJSON(t, router, http.MethodGet, "/api/case-types", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var types []courts.CaseType
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &types))
	assert.NotEmpty(t, types)
}

func TestHealthCheck(t *testing.T) {
	router, _ := setupRouter(t, cache.NewWindowCounter(10, time.Minute))

	w := doJSON(t, router, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
	assert.Equal(t, true, resp["database"])
	assert.Equal(t, "mock", resp["provider"])
	assert.Contains(t, resp, "rate_limit")
}

func TestRateLimitOnFetchEndpoints(t *testing.T) {
	router, _ := setupRouter(t, cache.NewWindowCounter(2, time.Hour))

	body := gin.H{"case_type": "CS", "case_number": "12345", "year": "2023"}
	for i := 0; i < 2; i++ {
		w := doJSON(t, router, http.MethodPost, "/api/fetch-case", body)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	}

	w := doJSON(t, router, http.MethodPost, "/api/fetch-case", body)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Len(t, history(t, router), 2, "rejected requests are not recorded")

	w = doJSON(t, router, http.MethodGet, "/api/courts", nil)
	assert.Equal(t, http.StatusOK, w.Code, "reads are not limited")
}

func TestConcurrentFetchCase(t *testing.T) {
	router, _ := setupRouter(t, nil)

	ids := make([]uint, 8)
	var g errgroup.Group
	for i := range ids {
		i := i
		g.Go(func() error {
			w := doJSON(t, router, http.MethodPost, "/api/fetch-case", gin.H{
				"case_type": "CS", "case_number": itoa(uint(100 + i)), "year": "2023",
			})
			var resp caseResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				return err
			}
			ids[i] = resp.QueryID
			return nil
		})
	}
	require.NoError(t, g.Wait())

	seen := make(map[uint]bool)
	for _, id := range ids {
		require.NotZero(t, id)
		assert.False(t, seen[id], "query id %d reused", id)
		seen[id] = true
	}
	items := history(t, router)
	require.Len(t, items, len(ids))
	for _, item := range items {
		assert.Equal(t, database.StatusSuccess, item.Status)
	}
}

func TestRequestIDPropagates(t *testing.T) {
	router, _ := setupRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/courts", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestFlexString(t *testing.T) {
	var req fetchCaseRequest
	require.NoError(t, json.Unmarshal([]byte(`{"case_number": 42, "year": "2023"}`), &req))
	assert.Equal(t, flexString("42"), req.CaseNumber)
	assert.Equal(t, flexString("2023"), req.Year)

	assert.Error(t, json.Unmarshal([]byte(`{"year": [2023]}`), &req))
}

func itoa(n uint) string {
	return strconv.FormatUint(uint64(n), 10)
}
