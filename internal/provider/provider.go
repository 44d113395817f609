// Package provider defines the collaborator that obtains case and cause-list
// data, and a deterministic mock implementation of it.
package provider

import (
	"context"
	"errors"

	"github.com/JustJay7/court-data-service/internal/courts"
)

// CourtDataProvider fetches case details, cause lists and documents from a
// court data source. Implementations are selected by configuration.
type CourtDataProvider interface {
	FetchCase(ctx context.Context, req CaseRequest) (*CaseResponse, error)
	FetchCauseList(ctx context.Context, req CauseListRequest) (*CauseListResponse, error)
	FetchDocument(ctx context.Context, url string) ([]byte, error)
	Name() string
}

// CaseRequest identifies a case at a court.
type CaseRequest struct {
	CaseType   string
	CaseNumber string
	Year       string
	CourtType  courts.CourtType
	CourtName  string
}

// CauseListRequest identifies a court's cause list for a day. Date is
// formatted YYYY-MM-DD.
type CauseListRequest struct {
	CourtType courts.CourtType
	CourtName string
	Date      string
}

// Party is a litigant named in a case.
type Party struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Advocate string `json:"advocate,omitempty"`
}

// JudgmentLink points at a downloadable order or judgment.
type JudgmentLink struct {
	Text string `json:"text"`
	URL  string `json:"url"`
	Date string `json:"date,omitempty"`
}

// CaseDetails is the parsed form of a case status page.
type CaseDetails struct {
	CaseType    string         `json:"case_type"`
	CaseNumber  string         `json:"case_number"`
	Year        string         `json:"year"`
	Title       string         `json:"title,omitempty"`
	Petitioner  string         `json:"petitioner"`
	Respondent  string         `json:"respondent"`
	Parties     []Party        `json:"parties"`
	FilingDate  string         `json:"filing_date"`
	NextHearing string         `json:"next_hearing"`
	CaseStatus  string         `json:"case_status"`
	Judge       string         `json:"judge,omitempty"`
	Judgments   []JudgmentLink `json:"judgments"`
}

// CauseListEntry is one listed matter.
type CauseListEntry struct {
	SerialNo   int    `json:"serial_no"`
	CaseNumber string `json:"case_number"`
	Parties    string `json:"parties"`
	CourtRoom  string `json:"court_room"`
	Time       string `json:"time"`
}

type CaseResponse struct {
	RawResponse string
	Details     CaseDetails
}

type CauseListResponse struct {
	RawResponse string
	Entries     []CauseListEntry
}

// FetchError reports a failed fetch. Raw holds whatever payload was
// received before the failure and may be empty.
type FetchError struct {
	Op  string
	Raw string
	Err error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return e.Op + " failed"
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *FetchError) Unwrap() error { return e.Err }

// NewFetchError builds a FetchError for op.
func NewFetchError(op, raw string, err error) *FetchError {
	return &FetchError{Op: op, Raw: raw, Err: err}
}

// RawPayload returns the partial payload carried by err, if any.
func RawPayload(err error) string {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Raw
	}
	return ""
}
