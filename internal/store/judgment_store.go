package store

import (
	"context"
	"errors"
	"time"

	"github.com/JustJay7/court-data-service/internal/apperr"
	"github.com/JustJay7/court-data-service/internal/database"
	"github.com/JustJay7/court-data-service/pkg/logger"
	"gorm.io/gorm"
)

// JudgmentFile describes a judgment document already written to storage.
type JudgmentFile struct {
	Filename    string
	StoragePath string
	Size        int64
	SourceURL   string
}

type JudgmentStore interface {
	Record(ctx context.Context, queryID uint, f JudgmentFile) (uint, error)
	ListByQuery(ctx context.Context, queryID uint) ([]database.Judgment, error)
	Get(ctx context.Context, id uint) (*database.Judgment, error)
}

type judgmentStore struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJudgmentStore(db *gorm.DB, baseLog *logger.Logger) JudgmentStore {
	return &judgmentStore{db: db, log: baseLog.With("store", "JudgmentStore")}
}

// Record inserts judgment metadata. The referenced query is checked inside
// the same transaction as the insert.
func (s *judgmentStore) Record(ctx context.Context, queryID uint, f JudgmentFile) (uint, error) {
	j := &database.Judgment{
		QueryID:      queryID,
		Filename:     f.Filename,
		FilePath:     f.StoragePath,
		FileSize:     f.Size,
		SourceURL:    f.SourceURL,
		DownloadTime: time.Now().UTC(),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&database.Query{}).Where("id = ?", queryID).Count(&count).Error; err != nil {
			return apperr.Persistence("check query", err)
		}
		if count == 0 {
			return apperr.ForeignKey(queryID)
		}
		if err := tx.Create(j).Error; err != nil {
			return apperr.Persistence("record judgment", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.log.Info("Judgment recorded", "judgment_id", j.ID, "query_id", queryID, "filename", f.Filename)
	return j.ID, nil
}

// ListByQuery returns the judgments of a query in insertion order.
func (s *judgmentStore) ListByQuery(ctx context.Context, queryID uint) ([]database.Judgment, error) {
	results := []database.Judgment{}
	if err := s.db.WithContext(ctx).
		Where("query_id = ?", queryID).
		Order("id ASC").
		Find(&results).Error; err != nil {
		return nil, apperr.Persistence("list judgments", err)
	}
	return results, nil
}

func (s *judgmentStore) Get(ctx context.Context, id uint) (*database.Judgment, error) {
	var j database.Judgment
	if err := s.db.WithContext(ctx).First(&j, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("judgment", id)
		}
		return nil, apperr.Persistence("get judgment", err)
	}
	return &j, nil
}
