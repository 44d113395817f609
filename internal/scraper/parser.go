package scraper

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/JustJay7/court-data-service/internal/provider"
	"github.com/JustJay7/court-data-service/pkg/logger"
	"github.com/PuerkitoBio/goquery"
)

// Label keywords used to map table rows onto case fields, checked in order.
var fieldKeywords = []struct {
	field    string
	keywords []string
}{
	{"petitioner", []string{"petitioner", "plaintiff", "appellant", "applicant"}},
	{"respondent", []string{"respondent", "defendant", "opponent"}},
	{"filing_date", []string{"filing date", "date of filing", "filed on", "registration date", "reg. date"}},
	{"next_hearing", []string{"next hearing", "next date", "listed on"}},
	{"case_status", []string{"case status", "status", "stage"}},
	{"judge", []string{"judge", "justice", "bench", "coram"}},
}

var (
	whitespace     = regexp.MustCompile(`\s+`)
	dayNames       = regexp.MustCompile(`(?i)(Monday|Tuesday|Wednesday|Thursday|Friday|Saturday|Sunday),?\s*`)
	judgmentWords  = []string{"judgment", "judgement", "order", "download"}
	captchaMarkers = "img#captcha_image, img[id*='captcha'], img[src*='captcha'], input[name='captcha'], input[id*='captcha'], #captcha-code"
	errorSelectors = []string{".error-message", ".alert-danger", "#errorMsg", "#errormsg", "div.error", "span.error"}
	errorPhrases   = []string{
		"No records found",
		"No Record Found",
		"Invalid case number",
		"Case not found",
		"Wrong Captcha",
		"Invalid Captcha",
	}
)

// Date formats used by Indian court portals.
var dateFormats = []string{
	"02-01-2006",
	"02/01/2006",
	"02.01.2006",
	"02-Jan-2006",
	"02-January-2006",
	"02 Jan 2006",
	"02 January 2006",
	"2006-01-02",
	"Jan 02, 2006",
	"January 02, 2006",
}

// Parser extracts case data from portal HTML.
type Parser struct {
	logger *logger.Logger
}

func NewParser(logger *logger.Logger) *Parser {
	return &Parser{logger: logger}
}

// ParseCaseDetails extracts case fields from a case status page. Relative
// judgment links are resolved against baseURL.
func (p *Parser) ParseCaseDetails(html, baseURL string) (*provider.CaseDetails, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	d := &provider.CaseDetails{
		Parties:   []provider.Party{},
		Judgments: []provider.JudgmentLink{},
	}
	found := 0

	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td, th")
		if cells.Length() < 2 {
			return
		}
		label := strings.ToLower(cleanText(cells.Eq(0).Text()))
		value := cleanText(cells.Eq(1).Text())
		if value == "" {
			return
		}

		switch matchField(label) {
		case "petitioner":
			d.Petitioner = value
		case "respondent":
			d.Respondent = value
		case "filing_date":
			d.FilingDate = p.normalizeDate(value)
		case "next_hearing":
			d.NextHearing = p.normalizeDate(value)
		case "case_status":
			d.CaseStatus = value
		case "judge":
			d.Judge = value
		default:
			return
		}
		found++
	})

	if found == 0 {
		return nil, fmt.Errorf("no case details found in page")
	}

	if d.Petitioner != "" {
		d.Parties = append(d.Parties, provider.Party{Name: d.Petitioner, Type: "petitioner"})
	}
	if d.Respondent != "" {
		d.Parties = append(d.Parties, provider.Party{Name: d.Respondent, Type: "respondent"})
	}
	if d.Petitioner != "" && d.Respondent != "" {
		d.Title = d.Petitioner + " vs " + d.Respondent
	}

	d.Judgments = p.parseJudgmentLinks(doc, baseURL)
	return d, nil
}

func (p *Parser) parseJudgmentLinks(doc *goquery.Document, baseURL string) []provider.JudgmentLink {
	links := []provider.JudgmentLink{}
	seen := map[string]bool{}

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		text := cleanText(a.Text())
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if !containsAny(strings.ToLower(text), judgmentWords) {
			return
		}
		lowerHref := strings.ToLower(href)
		if !strings.Contains(lowerHref, "pdf") && !strings.Contains(lowerHref, "download") {
			return
		}

		abs := resolveURL(baseURL, href)
		if seen[abs] {
			return
		}
		seen[abs] = true

		link := provider.JudgmentLink{Text: text, URL: abs}
		// Order tables put the date in the first cell of the row.
		if row := a.Closest("tr, li"); row.Length() > 0 {
			first := row.Find("td").First()
			if first.Length() == 0 {
				first = row
			}
			link.Date = p.findDate(first.Text())
		}
		links = append(links, link)
	})

	return links
}

// ParseCauseList extracts rows from causelist tables, skipping the header
// row of each table.
func (p *Parser) ParseCauseList(html string) ([]provider.CauseListEntry, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	entries := []provider.CauseListEntry{}
	doc.Find("table.causelist-table").Each(func(_ int, table *goquery.Selection) {
		table.Find("tr").Each(func(i int, row *goquery.Selection) {
			if i == 0 {
				return
			}
			cells := row.Find("td")
			if cells.Length() < 4 {
				return
			}
			entries = append(entries, provider.CauseListEntry{
				SerialNo:   len(entries) + 1,
				CaseNumber: cleanText(cells.Eq(0).Text()),
				Parties:    cleanText(cells.Eq(1).Text()),
				CourtRoom:  cleanText(cells.Eq(2).Text()),
				Time:       cleanText(cells.Eq(3).Text()),
			})
		})
	})

	return entries, nil
}

// DetectCaptcha reports whether the page asks for a CAPTCHA.
func (p *Parser) DetectCaptcha(html string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false
	}
	return doc.Find(captchaMarkers).Length() > 0
}

// ParseError returns the error message shown on the page, if any.
func (p *Parser) ParseError(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	for _, selector := range errorSelectors {
		if text := cleanText(doc.Find(selector).First().Text()); text != "" {
			return text
		}
	}

	// Table cells carry notices such as an empty orders table; only text
	// outside tables counts as a page-level error.
	doc.Find("table").Remove()
	bodyLower := strings.ToLower(doc.Find("body").Text())
	for _, phrase := range errorPhrases {
		if strings.Contains(bodyLower, strings.ToLower(phrase)) {
			return phrase
		}
	}
	return ""
}

// normalizeDate returns value as YYYY-MM-DD when it parses, else unchanged.
func (p *Parser) normalizeDate(value string) string {
	date, err := parseDate(value)
	if err != nil {
		p.logger.Debug("Unrecognised date format", "value", value)
		return value
	}
	return date.Format(provider.DateLayout)
}

var datePattern = regexp.MustCompile(`\d{1,2}[-/.]\d{1,2}[-/.]\d{4}|\d{4}-\d{2}-\d{2}`)

func (p *Parser) findDate(text string) string {
	if m := datePattern.FindString(text); m != "" {
		return p.normalizeDate(m)
	}
	return ""
}

func parseDate(value string) (time.Time, error) {
	value = cleanText(value)
	for _, format := range dateFormats {
		if date, err := time.Parse(format, value); err == nil {
			return date, nil
		}
	}

	value = dayNames.ReplaceAllString(value, "")
	for _, format := range dateFormats {
		if date, err := time.Parse(format, value); err == nil {
			return date, nil
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse date: %s", value)
}

func matchField(label string) string {
	for _, fk := range fieldKeywords {
		if containsAny(label, fk.keywords) {
			return fk.field
		}
	}
	return ""
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func cleanText(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

func resolveURL(baseURL, href string) string {
	ref, err := url.Parse(href)
	if err != nil || ref.IsAbs() || baseURL == "" {
		return href
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
