// Package service orchestrates case and cause-list queries: it validates
// input, calls the configured provider and records every attempt.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/JustJay7/court-data-service/internal/apperr"
	"github.com/JustJay7/court-data-service/internal/courts"
	"github.com/JustJay7/court-data-service/internal/database"
	"github.com/JustJay7/court-data-service/internal/provider"
	"github.com/JustJay7/court-data-service/internal/storage"
	"github.com/JustJay7/court-data-service/internal/store"
	"github.com/JustJay7/court-data-service/pkg/logger"
)

// StaleReason is recorded on pending queries failed by the startup sweep.
const StaleReason = "Query abandoned: no result was recorded before the service restarted"

// FileStore persists downloaded judgment documents.
type FileStore interface {
	Save(queryID uint, data []byte) (*storage.StoredFile, error)
	Open(path string) (*os.File, error)
	Remove(path string) error
}

type CaseInput struct {
	CaseType   string
	CaseNumber string
	Year       string
	CourtType  string
	CourtName  string
}

type CaseResult struct {
	QueryID uint
	Status  database.QueryStatus
	Details *provider.CaseDetails
	Message string
}

type CauseListInput struct {
	CourtType string
	CourtName string
	Date      string
}

type CauseListResult struct {
	QueryID uint
	Status  database.QueryStatus
	Court   string
	Date    string
	Entries []provider.CauseListEntry
	Message string
}

type JudgmentRecord struct {
	ID        uint
	QueryID   uint
	Filename  string
	Path      string
	Size      int64
	SourceURL string
}

type QueryService struct {
	queries      store.QueryStore
	judgments    store.JudgmentStore
	provider     provider.CourtDataProvider
	files        FileStore
	courts       *courts.Directory
	log          *logger.Logger
	historyLimit int
	now          func() time.Time
}

func NewQueryService(
	queries store.QueryStore,
	judgments store.JudgmentStore,
	p provider.CourtDataProvider,
	files FileStore,
	directory *courts.Directory,
	baseLog *logger.Logger,
) *QueryService {
	return &QueryService{
		queries:      queries,
		judgments:    judgments,
		provider:     p,
		files:        files,
		courts:       directory,
		log:          baseLog.With("component", "QueryService"),
		historyLimit: store.DefaultHistoryLimit,
		now:          time.Now,
	}
}

// WithHistoryLimit sets the page size used when ListHistory gets no limit.
func (s *QueryService) WithHistoryLimit(limit int) *QueryService {
	if limit > 0 {
		s.historyLimit = limit
	}
	return s
}

func (s *QueryService) Courts() *courts.Directory { return s.courts }

func (s *QueryService) ProviderName() string { return s.provider.Name() }

// FetchCase validates in, records a pending query, asks the provider and
// completes the query with the outcome. Provider failures are recorded and
// reported through the result, not returned as errors.
func (s *QueryService) FetchCase(ctx context.Context, in CaseInput) (*CaseResult, error) {
	req, err := s.validateCase(in)
	if err != nil {
		return nil, err
	}

	id, err := s.queries.CreatePending(ctx, store.PendingQuery{
		Kind:       database.KindCase,
		CaseType:   req.CaseType,
		CaseNumber: req.CaseNumber,
		Year:       req.Year,
		CourtType:  req.CourtType,
		CourtName:  req.CourtName,
	})
	if err != nil {
		return nil, err
	}
	log := s.log.With("query_id", id, "case_type", req.CaseType, "case_number", req.CaseNumber, "year", req.Year)

	resp, fetchErr := s.provider.FetchCase(ctx, req)

	// The attempt is recorded even if the caller has gone away.
	writeCtx := context.WithoutCancel(ctx)

	var parsed []byte
	if fetchErr == nil {
		parsed, fetchErr = json.Marshal(resp.Details)
	}
	if fetchErr != nil {
		msg, err := s.complete(writeCtx, id, store.Completion{
			RawResponse:  provider.RawPayload(fetchErr),
			Status:       database.StatusFailed,
			ErrorMessage: "Error fetching case details: " + fetchErr.Error(),
		})
		if err != nil {
			return nil, err
		}
		log.Warn("Case fetch failed", "error", fetchErr)
		return &CaseResult{QueryID: id, Status: database.StatusFailed, Message: msg}, nil
	}

	msg, err := s.complete(writeCtx, id, store.Completion{
		RawResponse: resp.RawResponse,
		ParsedData:  parsed,
		Status:      database.StatusSuccess,
	})
	if err != nil {
		return nil, err
	}
	if msg != "" {
		return &CaseResult{QueryID: id, Status: database.StatusFailed, Message: msg}, nil
	}

	log.Info("Case fetched", "provider", s.provider.Name())
	details := resp.Details
	return &CaseResult{QueryID: id, Status: database.StatusSuccess, Details: &details}, nil
}

// FetchCauseList is FetchCase for a court's daily cause list.
func (s *QueryService) FetchCauseList(ctx context.Context, in CauseListInput) (*CauseListResult, error) {
	req, err := s.validateCauseList(in)
	if err != nil {
		return nil, err
	}

	id, err := s.queries.CreatePending(ctx, store.PendingQuery{
		Kind:          database.KindCauseList,
		CourtType:     req.CourtType,
		CourtName:     req.CourtName,
		CauseListDate: req.Date,
	})
	if err != nil {
		return nil, err
	}
	log := s.log.With("query_id", id, "court", req.CourtName, "date", req.Date)

	result := &CauseListResult{QueryID: id, Court: req.CourtName, Date: req.Date}

	resp, fetchErr := s.provider.FetchCauseList(ctx, req)
	writeCtx := context.WithoutCancel(ctx)

	var parsed []byte
	if fetchErr == nil {
		parsed, fetchErr = json.Marshal(map[string]interface{}{
			"date":    req.Date,
			"court":   req.CourtName,
			"entries": resp.Entries,
		})
	}
	if fetchErr != nil {
		msg, err := s.complete(writeCtx, id, store.Completion{
			RawResponse:  provider.RawPayload(fetchErr),
			Status:       database.StatusFailed,
			ErrorMessage: "Cause list fetch error: " + fetchErr.Error(),
		})
		if err != nil {
			return nil, err
		}
		log.Warn("Cause list fetch failed", "error", fetchErr)
		result.Status = database.StatusFailed
		result.Message = msg
		return result, nil
	}

	msg, err := s.complete(writeCtx, id, store.Completion{
		RawResponse: resp.RawResponse,
		ParsedData:  parsed,
		Status:      database.StatusSuccess,
	})
	if err != nil {
		return nil, err
	}
	if msg != "" {
		result.Status = database.StatusFailed
		result.Message = msg
		return result, nil
	}

	log.Info("Cause list fetched", "entries", len(resp.Entries))
	result.Status = database.StatusSuccess
	result.Entries = resp.Entries
	if result.Entries == nil {
		result.Entries = []provider.CauseListEntry{}
	}
	return result, nil
}

// complete records c on query id and returns the failure message to report,
// empty when c was a success and was recorded. A query that was already
// failed, for instance by a stale-pending sweep, yields its stored reason
// instead of a conflict error.
func (s *QueryService) complete(ctx context.Context, id uint, c store.Completion) (string, error) {
	err := s.queries.Complete(ctx, id, c)
	if err == nil {
		return c.ErrorMessage, nil
	}
	if !apperr.Is(err, apperr.CodeConflict) {
		return "", err
	}

	q, getErr := s.queries.Get(ctx, id)
	if getErr != nil {
		return "", getErr
	}
	s.log.Warn("Query was completed before its fetch finished", "query_id", id, "status", q.Status, "dropped_status", c.Status)
	if q.ErrorMessage != "" {
		return q.ErrorMessage, nil
	}
	return "Query already completed as " + string(q.Status), nil
}

// DownloadJudgment fetches the document at judgmentURL, stores it and
// records it against queryID.
func (s *QueryService) DownloadJudgment(ctx context.Context, queryID uint, judgmentURL string) (*JudgmentRecord, error) {
	judgmentURL = strings.TrimSpace(judgmentURL)
	if judgmentURL == "" {
		return nil, apperr.Validation("judgment_url", "judgment url is required")
	}
	if queryID == 0 {
		return nil, apperr.Validation("query_id", "query id is required")
	}

	if _, err := s.queries.Get(ctx, queryID); err != nil {
		return nil, err
	}

	data, err := s.provider.FetchDocument(ctx, judgmentURL)
	if err != nil {
		s.log.Warn("Judgment download failed", "query_id", queryID, "url", judgmentURL, "error", err)
		return nil, apperr.Fetch("failed to download judgment", err)
	}

	stored, err := s.files.Save(queryID, data)
	if err != nil {
		return nil, apperr.Persistence("save judgment file", err)
	}

	id, err := s.judgments.Record(ctx, queryID, store.JudgmentFile{
		Filename:    stored.Filename,
		StoragePath: stored.Path,
		Size:        stored.Size,
		SourceURL:   judgmentURL,
	})
	if err != nil {
		if rmErr := s.files.Remove(stored.Path); rmErr != nil {
			s.log.Error("Failed to remove unrecorded judgment file", "path", stored.Path, "error", rmErr)
		}
		return nil, err
	}

	return &JudgmentRecord{
		ID:        id,
		QueryID:   queryID,
		Filename:  stored.Filename,
		Path:      stored.Path,
		Size:      stored.Size,
		SourceURL: judgmentURL,
	}, nil
}

// ListHistory returns recorded queries, most recent first.
func (s *QueryService) ListHistory(ctx context.Context, limit, offset int) ([]database.Query, error) {
	if limit <= 0 {
		limit = s.historyLimit
	}
	return s.queries.ListHistory(ctx, limit, offset)
}

func (s *QueryService) GetQuery(ctx context.Context, id uint) (*database.Query, error) {
	return s.queries.Get(ctx, id)
}

// ListJudgments returns the judgments downloaded for a query.
func (s *QueryService) ListJudgments(ctx context.Context, queryID uint) ([]database.Judgment, error) {
	if _, err := s.queries.Get(ctx, queryID); err != nil {
		return nil, err
	}
	return s.judgments.ListByQuery(ctx, queryID)
}

// OpenJudgment returns a judgment and its stored file. The caller closes
// the file.
func (s *QueryService) OpenJudgment(ctx context.Context, id uint) (*database.Judgment, *os.File, error) {
	j, err := s.judgments.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	f, err := s.files.Open(j.FilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, apperr.NotFound("judgment file", id)
		}
		return nil, nil, apperr.Persistence("open judgment file", err)
	}
	return j, f, nil
}

// ReconcileStalePending fails queries left pending for longer than
// olderThan. A non-positive olderThan does nothing.
func (s *QueryService) ReconcileStalePending(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, nil
	}
	return s.queries.FailStalePending(ctx, s.now().Add(-olderThan), StaleReason)
}
