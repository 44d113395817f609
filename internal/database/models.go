package database

import (
	"time"

	"gorm.io/datatypes"
)

// QueryStatus is the lifecycle state of a recorded query attempt.
type QueryStatus string

const (
	StatusPending QueryStatus = "pending"
	StatusSuccess QueryStatus = "success"
	StatusFailed  QueryStatus = "failed"
)

// Terminal reports whether s is a completed state.
func (s QueryStatus) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// QueryKind distinguishes case lookups from cause-list lookups.
type QueryKind string

const (
	KindCase      QueryKind = "case"
	KindCauseList QueryKind = "causelist"
)

// Query is one recorded query attempt. Rows are append-only: they are
// created pending and completed exactly once.
type Query struct {
	ID            uint           `json:"id" gorm:"primaryKey"`
	Kind          QueryKind      `json:"kind" gorm:"column:query_kind;size:16;not null;check:query_kind IN ('case','causelist')"`
	CaseType      string         `json:"case_type" gorm:"size:32"`
	CaseNumber    string         `json:"case_number" gorm:"size:32"`
	Year          string         `json:"year" gorm:"size:4"`
	CourtType     string         `json:"court_type" gorm:"size:32;not null;check:court_type IN ('high_court','district_court')"`
	CourtName     string         `json:"court_name" gorm:"size:128;not null"`
	CauseListDate string         `json:"cause_list_date,omitempty" gorm:"size:10"`
	QueryTime     time.Time      `json:"query_time" gorm:"not null"`
	RawResponse   *string        `json:"raw_response,omitempty" gorm:"type:text"`
	ParsedData    datatypes.JSON `json:"parsed_data,omitempty"`
	Status        QueryStatus    `json:"status" gorm:"size:16;not null;index;check:status IN ('pending','success','failed')"`
	ErrorMessage  string         `json:"error_message,omitempty" gorm:"type:text"`
	CompletedAt   *time.Time     `json:"completed_at,omitempty"`
}

// Judgment records a downloaded judgment document.
type Judgment struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	QueryID      uint      `json:"query_id" gorm:"not null"`
	Query        *Query    `json:"-" gorm:"foreignKey:QueryID;constraint:OnUpdate:RESTRICT,OnDelete:RESTRICT"`
	Filename     string    `json:"filename" gorm:"size:255;not null"`
	FilePath     string    `json:"file_path" gorm:"not null"`
	FileSize     int64     `json:"file_size"`
	SourceURL    string    `json:"source_url" gorm:"type:text"`
	DownloadTime time.Time `json:"download_time" gorm:"not null"`
}

func (Query) TableName() string {
	return "queries"
}

func (Judgment) TableName() string {
	return "judgments"
}
