package service

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/JustJay7/court-data-service/internal/apperr"
	"github.com/JustJay7/court-data-service/internal/courts"
	"github.com/JustJay7/court-data-service/internal/provider"
)

// MinYear is the earliest filing year accepted.
const MinYear = 1950

var (
	caseTypePattern   = regexp.MustCompile(`^[A-Z][A-Z0-9().\-]{0,15}$`)
	caseNumberPattern = regexp.MustCompile(`^[A-Za-z0-9/-]{1,20}$`)
	yearPattern       = regexp.MustCompile(`^\d{4}$`)
)

func (s *QueryService) validateCase(in CaseInput) (provider.CaseRequest, error) {
	caseType := strings.ToUpper(strings.TrimSpace(in.CaseType))
	if caseType == "" {
		return provider.CaseRequest{}, apperr.Validation("case_type", "case type is required")
	}
	if !caseTypePattern.MatchString(caseType) {
		return provider.CaseRequest{}, apperr.Validation("case_type", "invalid case type format")
	}

	caseNumber := strings.TrimSpace(in.CaseNumber)
	if caseNumber == "" {
		return provider.CaseRequest{}, apperr.Validation("case_number", "case number is required")
	}
	if !caseNumberPattern.MatchString(caseNumber) {
		return provider.CaseRequest{}, apperr.Validation("case_number", "invalid case number format")
	}

	year := strings.TrimSpace(in.Year)
	if !yearPattern.MatchString(year) {
		return provider.CaseRequest{}, apperr.Validation("year", "year must have four digits")
	}
	y, _ := strconv.Atoi(year)
	if maxYear := s.now().Year() + 1; y < MinYear || y > maxYear {
		return provider.CaseRequest{}, apperr.Validation("year", fmt.Sprintf("year must be between %d and %d", MinYear, maxYear))
	}

	courtType, courtName, err := s.validateCourt(in.CourtType, in.CourtName)
	if err != nil {
		return provider.CaseRequest{}, err
	}

	return provider.CaseRequest{
		CaseType:   caseType,
		CaseNumber: caseNumber,
		Year:       year,
		CourtType:  courtType,
		CourtName:  courtName,
	}, nil
}

func (s *QueryService) validateCauseList(in CauseListInput) (provider.CauseListRequest, error) {
	courtType, courtName, err := s.validateCourt(in.CourtType, in.CourtName)
	if err != nil {
		return provider.CauseListRequest{}, err
	}

	date := strings.TrimSpace(in.Date)
	if _, err := time.Parse(provider.DateLayout, date); err != nil {
		return provider.CauseListRequest{}, apperr.Validation("date", "date must be formatted YYYY-MM-DD")
	}

	return provider.CauseListRequest{
		CourtType: courtType,
		CourtName: courtName,
		Date:      date,
	}, nil
}

func (s *QueryService) validateCourt(rawType, rawName string) (courts.CourtType, string, error) {
	courtType, ok := courts.ParseCourtType(rawType)
	if !ok {
		return "", "", apperr.Validation("court_type", "court type must be high_court or district_court")
	}
	name, ok := s.courts.Canonical(courtType, rawName)
	if !ok {
		return "", "", apperr.Validation("court_name", "unknown court for "+string(courtType)+": "+strings.TrimSpace(rawName))
	}
	return courtType, name, nil
}
