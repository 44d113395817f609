package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JustJay7/court-data-service/internal/apperr"
	"github.com/JustJay7/court-data-service/internal/courts"
	"github.com/JustJay7/court-data-service/internal/database"
	"github.com/JustJay7/court-data-service/pkg/logger"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
)

// PendingQuery holds the inputs recorded when a query starts.
type PendingQuery struct {
	Kind          database.QueryKind
	CaseType      string
	CaseNumber    string
	Year          string
	CourtType     courts.CourtType
	CourtName     string
	CauseListDate string
}

// Completion is the outcome written when a pending query finishes.
type Completion struct {
	RawResponse  string
	ParsedData   []byte
	Status       database.QueryStatus
	ErrorMessage string
}

type QueryStore interface {
	CreatePending(ctx context.Context, in PendingQuery) (uint, error)
	Complete(ctx context.Context, id uint, c Completion) error
	Get(ctx context.Context, id uint) (*database.Query, error)
	ListHistory(ctx context.Context, limit, offset int) ([]database.Query, error)
	FailStalePending(ctx context.Context, olderThan time.Time, reason string) (int64, error)
}

type queryStore struct {
	db  *gorm.DB
	log *logger.Logger
	now func() time.Time
}

func NewQueryStore(db *gorm.DB, baseLog *logger.Logger) QueryStore {
	return &queryStore{
		db:  db,
		log: baseLog.With("store", "QueryStore"),
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (s *queryStore) CreatePending(ctx context.Context, in PendingQuery) (uint, error) {
	if in.Kind != database.KindCase && in.Kind != database.KindCauseList {
		return 0, apperr.Persistence("create pending query", fmt.Errorf("invalid query kind %q", in.Kind))
	}
	if !in.CourtType.Valid() {
		return 0, apperr.Persistence("create pending query", fmt.Errorf("invalid court type %q", in.CourtType))
	}

	q := &database.Query{
		Kind:          in.Kind,
		CaseType:      in.CaseType,
		CaseNumber:    in.CaseNumber,
		Year:          in.Year,
		CourtType:     string(in.CourtType),
		CourtName:     in.CourtName,
		CauseListDate: in.CauseListDate,
		QueryTime:     s.now(),
		Status:        database.StatusPending,
	}
	if err := s.db.WithContext(ctx).Create(q).Error; err != nil {
		return 0, apperr.Persistence("create pending query", err)
	}

	s.log.Debug("Query recorded", "query_id", q.ID, "kind", q.Kind)
	return q.ID, nil
}

// Complete moves a pending query to its terminal state in one UPDATE.
// Repeating a completion with the same status is a no-op; completing an
// already completed query with a different status is a conflict.
func (s *queryStore) Complete(ctx context.Context, id uint, c Completion) error {
	if !c.Status.Terminal() {
		return apperr.Persistence("complete query", fmt.Errorf("status %q is not terminal", c.Status))
	}

	var parsed datatypes.JSON
	if len(c.ParsedData) > 0 {
		parsed = datatypes.JSON(c.ParsedData)
	}

	res := s.db.WithContext(ctx).
		Model(&database.Query{}).
		Where("id = ? AND status = ?", id, database.StatusPending).
		Updates(map[string]interface{}{
			"raw_response":  c.RawResponse,
			"parsed_data":   parsed,
			"status":        c.Status,
			"error_message": c.ErrorMessage,
			"completed_at":  s.now(),
		})
	if res.Error != nil {
		return apperr.Persistence("complete query", res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	existing, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if existing.Status == c.Status {
		return nil
	}
	return apperr.Conflict(fmt.Sprintf("query %d is already %s", id, existing.Status))
}

func (s *queryStore) Get(ctx context.Context, id uint) (*database.Query, error) {
	var q database.Query
	if err := s.db.WithContext(ctx).First(&q, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("query", id)
		}
		return nil, apperr.Persistence("get query", err)
	}
	return &q, nil
}

// ListHistory returns queries most recent first. A non-positive limit
// selects DefaultHistoryLimit.
func (s *queryStore) ListHistory(ctx context.Context, limit, offset int) ([]database.Query, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}

	results := []database.Query{}
	if err := s.db.WithContext(ctx).
		Order("query_time DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&results).Error; err != nil {
		return nil, apperr.Persistence("list history", err)
	}
	return results, nil
}

// FailStalePending marks pending queries created before olderThan as failed.
func (s *queryStore) FailStalePending(ctx context.Context, olderThan time.Time, reason string) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&database.Query{}).
		Where("status = ? AND query_time < ?", database.StatusPending, olderThan.UTC()).
		Updates(map[string]interface{}{
			"status":        database.StatusFailed,
			"error_message": reason,
			"completed_at":  s.now(),
		})
	if res.Error != nil {
		return 0, apperr.Persistence("fail stale pending queries", res.Error)
	}
	if res.RowsAffected > 0 {
		s.log.Warn("Stale pending queries marked failed", "count", res.RowsAffected, "older_than", olderThan)
	}
	return res.RowsAffected, nil
}
