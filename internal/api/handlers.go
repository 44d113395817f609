package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/JustJay7/court-data-service/internal/apperr"
	"github.com/JustJay7/court-data-service/internal/cache"
	"github.com/JustJay7/court-data-service/internal/courts"
	"github.com/JustJay7/court-data-service/internal/database"
	"github.com/JustJay7/court-data-service/internal/provider"
	"github.com/JustJay7/court-data-service/internal/service"
	"github.com/JustJay7/court-data-service/pkg/logger"
)

// Defaults applied when a request leaves the court unspecified.
const (
	DefaultCourtType = string(courts.HighCourt)
	DefaultCourtName = "Delhi"
)

// Handlers holds all HTTP handlers
type Handlers struct {
	svc     *service.QueryService
	db      *gorm.DB
	limiter cache.Limiter
	logger  *logger.Logger
	now     func() time.Time
}

// NewHandlers creates a new handlers instance. limiter may be nil.
func NewHandlers(svc *service.QueryService, db *gorm.DB, limiter cache.Limiter, logger *logger.Logger) *Handlers {
	return &Handlers{
		svc:     svc,
		db:      db,
		limiter: limiter,
		logger:  logger.With("component", "api"),
		now:     time.Now,
	}
}

// flexString accepts a JSON string or number, so {"year": 2023} and
// {"year": "2023"} bind the same way.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		*s = flexString(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected a string or a number, got %s", b)
	}
	*s = flexString(n.String())
	return nil
}

type fetchCaseRequest struct {
	CaseType   string     `json:"case_type"`
	CaseNumber flexString `json:"case_number"`
	Year       flexString `json:"year"`
	CourtType  string     `json:"court_type"`
	CourtName  string     `json:"court_name"`
}

type fetchCauseListRequest struct {
	CourtType string `json:"court_type"`
	CourtName string `json:"court_name"`
	Date      string `json:"date"`
}

type downloadJudgmentRequest struct {
	JudgmentURL string `json:"judgment_url"`
	QueryID     uint   `json:"query_id"`
}

// historyItem is the summary of a query returned by the history endpoint.
type historyItem struct {
	ID            uint                 `json:"id"`
	Kind          database.QueryKind   `json:"kind"`
	CaseType      string               `json:"case_type"`
	CaseNumber    string               `json:"case_number"`
	Year          string               `json:"year"`
	CourtType     string               `json:"court_type"`
	CourtName     string               `json:"court_name"`
	CauseListDate string               `json:"cause_list_date,omitempty"`
	QueryTime     time.Time            `json:"query_time"`
	Status        database.QueryStatus `json:"status"`
	ErrorMessage  string               `json:"error_message,omitempty"`
}

type judgmentItem struct {
	ID           uint      `json:"id"`
	QueryID      uint      `json:"query_id"`
	Filename     string    `json:"filename"`
	FileSize     int64     `json:"file_size"`
	SourceURL    string    `json:"source_url"`
	DownloadTime time.Time `json:"download_time"`
}

func withDefault(value, def string) string {
	if value == "" {
		return def
	}
	return value
}

// bindJSON decodes the request body into dst, treating an empty body as {}.
func bindJSON(c *gin.Context, dst interface{}) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		return badRequest("body", "invalid JSON body: "+err.Error())
	}
	return nil
}

// FetchCase looks up a case through the configured provider.
func (h *Handlers) FetchCase(c *gin.Context) {
	var req fetchCaseRequest
	if err := bindJSON(c, &req); err != nil {
		h.respondError(c, err)
		return
	}

	res, err := h.svc.FetchCase(c.Request.Context(), service.CaseInput{
		CaseType:   req.CaseType,
		CaseNumber: string(req.CaseNumber),
		Year:       string(req.Year),
		CourtType:  withDefault(req.CourtType, DefaultCourtType),
		CourtName:  withDefault(req.CourtName, DefaultCourtName),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	if res.Status != database.StatusSuccess {
		c.JSON(http.StatusBadGateway, gin.H{
			"status":   statusError,
			"code":     apperr.CodeFetch,
			"query_id": res.QueryID,
			"message":  res.Message,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   statusSuccess,
		"query_id": res.QueryID,
		"data":     res.Details,
	})
}

// FetchCauseList returns a court's cause list for a date, today by default.
func (h *Handlers) FetchCauseList(c *gin.Context) {
	var req fetchCauseListRequest
	if err := bindJSON(c, &req); err != nil {
		h.respondError(c, err)
		return
	}

	res, err := h.svc.FetchCauseList(c.Request.Context(), service.CauseListInput{
		CourtType: withDefault(req.CourtType, DefaultCourtType),
		CourtName: withDefault(req.CourtName, DefaultCourtName),
		Date:      withDefault(req.Date, h.now().Format(provider.DateLayout)),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	if res.Status != database.StatusSuccess {
		c.JSON(http.StatusBadGateway, gin.H{
			"status":   statusError,
			"code":     apperr.CodeFetch,
			"query_id": res.QueryID,
			"date":     res.Date,
			"court":    res.Court,
			"message":  res.Message,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   statusSuccess,
		"query_id": res.QueryID,
		"date":     res.Date,
		"court":    res.Court,
		"entries":  res.Entries,
	})
}

// DownloadJudgment stores a judgment document against a recorded query.
func (h *Handlers) DownloadJudgment(c *gin.Context) {
	var req downloadJudgmentRequest
	if err := bindJSON(c, &req); err != nil {
		h.respondError(c, err)
		return
	}

	rec, err := h.svc.DownloadJudgment(c.Request.Context(), req.QueryID, req.JudgmentURL)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      statusSuccess,
		"judgment_id": rec.ID,
		"query_id":    rec.QueryID,
		"filename":    rec.Filename,
		"size":        rec.Size,
	})
}

// History lists recorded queries, most recent first.
func (h *Handlers) History(c *gin.Context) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		h.respondError(c, err)
		return
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		h.respondError(c, err)
		return
	}

	queries, err := h.svc.ListHistory(c.Request.Context(), limit, offset)
	if err != nil {
		h.respondError(c, err)
		return
	}

	items := make([]historyItem, 0, len(queries))
	for _, q := range queries {
		items = append(items, historyItem{
			ID:            q.ID,
			Kind:          q.Kind,
			CaseType:      q.CaseType,
			CaseNumber:    q.CaseNumber,
			Year:          q.Year,
			CourtType:     q.CourtType,
			CourtName:     q.CourtName,
			CauseListDate: q.CauseListDate,
			QueryTime:     q.QueryTime,
			Status:        q.Status,
			ErrorMessage:  q.ErrorMessage,
		})
	}
	c.JSON(http.StatusOK, items)
}

// GetQuery returns one recorded query including its raw response.
func (h *Handlers) GetQuery(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	q, err := h.svc.GetQuery(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

// ListJudgments returns the judgments downloaded for a query.
func (h *Handlers) ListJudgments(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	judgments, err := h.svc.ListJudgments(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	items := make([]judgmentItem, 0, len(judgments))
	for _, j := range judgments {
		items = append(items, judgmentItem{
			ID:           j.ID,
			QueryID:      j.QueryID,
			Filename:     j.Filename,
			FileSize:     j.FileSize,
			SourceURL:    j.SourceURL,
			DownloadTime: j.DownloadTime,
		})
	}
	c.JSON(http.StatusOK, items)
}

// JudgmentFile streams a stored judgment document.
func (h *Handlers) JudgmentFile(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	j, f, err := h.svc.OpenJudgment(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		h.respondError(c, apperr.Persistence("stat judgment file", err))
		return
	}

	c.DataFromReader(http.StatusOK, info.Size(), "application/pdf", f, map[string]string{
		"Content-Disposition": fmt.Sprintf(`attachment; filename="%s"`, j.Filename),
	})
}

// Courts lists the courts accepted per court type.
func (h *Handlers) Courts(c *gin.Context) {
	dir := h.svc.Courts()
	c.JSON(http.StatusOK, gin.H{
		"high_courts":     dir.Names(courts.HighCourt),
		"district_courts": dir.Names(courts.DistrictCourt),
	})
}

// CaseTypes lists the known case-type codes.
func (h *Handlers) CaseTypes(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Courts().CaseTypes())
}

// HealthCheck returns the health status
func (h *Handlers) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	dbErr := database.Ping(ctx, h.db)
	status, code := "healthy", http.StatusOK
	if dbErr != nil {
		status, code = "degraded", http.StatusServiceUnavailable
		h.logger.Warn("Database ping failed", "error", dbErr)
	}

	body := gin.H{
		"status":   status,
		"database": dbErr == nil,
		"provider": h.svc.ProviderName(),
		"time":     h.now().Unix(),
	}
	if h.limiter != nil {
		body["rate_limit"] = h.limiter.Stats()
	}
	c.JSON(code, body)
}

func queryInt(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, badRequest(name, name+" must be a non-negative integer")
	}
	return n, nil
}

func pathID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, badRequest("id", "invalid id")
	}
	return uint(id), nil
}
