package provider

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"html"
	"math/rand"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// MockDocumentHost is the host used for generated judgment links.
const MockDocumentHost = "https://mock.ecourts.local"

// ErrNoRecords is returned when the requested case does not exist.
var ErrNoRecords = errors.New("no records found for the given case details")

var (
	firstNames = []string{"Rajesh", "Priya", "Amit", "Sunita", "Vikram", "Anjali", "Suresh", "Kavita", "Manoj", "Neha", "Arjun", "Meera"}
	lastNames  = []string{"Kumar", "Sharma", "Gupta", "Singh", "Verma", "Mehta", "Iyer", "Reddy", "Banerjee", "Patel", "Nair", "Chopra"}
	entities   = []string{
		"State of NCT of Delhi",
		"Union of India",
		"Municipal Corporation of Delhi",
		"Delhi Development Authority",
		"Reserve Bank of India",
		"National Highways Authority of India",
	}
	statuses = []string{"Pending", "Disposed", "Admitted", "Listed for Hearing", "Reserved for Orders"}
	judges   = []string{"Hon'ble Mr. Justice A. Mehta", "Hon'ble Ms. Justice R. Iyer", "Hon'ble Mr. Justice S. Banerjee", "Hon'ble Ms. Justice P. Nair"}
	listings = []string{"CS", "WP", "CRL.A", "FAO", "RFA", "ARB.P", "MAT.APP"}
	slots    = []string{"10:30 AM", "11:00 AM", "11:30 AM", "12:00 PM", "02:15 PM", "03:00 PM"}
)

// Mock generates case data from a seed hashed from the request. Identical
// requests always produce identical responses; nothing depends on the wall
// clock or on global random state.
type Mock struct{}

var _ CourtDataProvider = (*Mock)(nil)

func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) Name() string { return "mock" }

func (m *Mock) FetchCase(ctx context.Context, req CaseRequest) (*CaseResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewFetchError("fetch case", "", err)
	}

	if strings.Trim(req.CaseNumber, "0") == "" {
		raw := fmt.Sprintf("<html><body><div id=\"errormsg\">No records found for %s</div></body></html>",
			html.EscapeString(caseLabel(req.CaseType, req.CaseNumber, req.Year)))
		return nil, NewFetchError("fetch case", raw, ErrNoRecords)
	}

	r := seeded(req.CaseType, req.CaseNumber, req.Year)

	petitioner := personName(r)
	var respondent string
	if r.Intn(3) == 0 {
		respondent = personName(r)
	} else {
		respondent = pick(r, entities)
	}

	year, err := strconv.Atoi(req.Year)
	if err != nil {
		year = 2000 + r.Intn(24)
	}
	filed := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, r.Intn(365))
	next := filed.AddDate(0, 0, 30+r.Intn(400))
	status := pick(r, statuses)

	d := CaseDetails{
		CaseType:   req.CaseType,
		CaseNumber: req.CaseNumber,
		Year:       req.Year,
		Title:      petitioner + " vs " + respondent,
		Petitioner: petitioner,
		Respondent: respondent,
		Parties: []Party{
			{Name: petitioner, Type: "petitioner", Advocate: "Adv. " + personName(r)},
			{Name: respondent, Type: "respondent", Advocate: "Adv. " + personName(r)},
		},
		FilingDate:  filed.Format(DateLayout),
		NextHearing: next.Format(DateLayout),
		CaseStatus:  status,
		Judge:       pick(r, judges),
		Judgments:   []JudgmentLink{},
	}
	if status == "Disposed" {
		d.NextHearing = ""
	}

	orders := 1 + r.Intn(3)
	for i := 1; i <= orders; i++ {
		d.Judgments = append(d.Judgments, JudgmentLink{
			Text: fmt.Sprintf("Order %d", i),
			URL:  fmt.Sprintf("%s/judgments/%s/%s/%s/order_%d.pdf", MockDocumentHost, url.PathEscape(req.CaseType), url.PathEscape(req.CaseNumber), req.Year, i),
			Date: filed.AddDate(0, 0, i*(15+r.Intn(60))).Format(DateLayout),
		})
	}

	return &CaseResponse{RawResponse: renderCase(d), Details: d}, nil
}

func (m *Mock) FetchCauseList(ctx context.Context, req CauseListRequest) (*CauseListResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewFetchError("fetch cause list", "", err)
	}

	day, err := time.Parse(DateLayout, req.Date)
	if err != nil {
		return nil, NewFetchError("fetch cause list", "", fmt.Errorf("invalid date %q: %w", req.Date, err))
	}

	entries := []CauseListEntry{}
	if day.Weekday() != time.Sunday {
		r := seeded(string(req.CourtType), strings.ToLower(req.CourtName), req.Date)
		n := 3 + r.Intn(8)
		for i := 1; i <= n; i++ {
			entries = append(entries, CauseListEntry{
				SerialNo:   i,
				CaseNumber: fmt.Sprintf("%s/%d/%d", pick(r, listings), 100+r.Intn(9900), day.Year()-r.Intn(5)),
				Parties:    personName(r) + " vs " + pick(r, entities),
				CourtRoom:  fmt.Sprintf("Court No. %d", 1+r.Intn(40)),
				Time:       pick(r, slots),
			})
		}
	}

	return &CauseListResponse{RawResponse: renderCauseList(req, entries), Entries: entries}, nil
}

// FetchDocument returns a small PDF derived from the URL.
func (m *Mock) FetchDocument(ctx context.Context, rawURL string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewFetchError("fetch document", "", err)
	}

	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, NewFetchError("fetch document", "", fmt.Errorf("unsupported document url %q", rawURL))
	}

	text := fmt.Sprintf("Judgment document %s (ref %08x)", u.Path, seed(rawURL)&0xffffffff)
	stream := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", strings.NewReplacer("(", "", ")", "", "\\", "").Replace(text))

	var b strings.Builder
	b.WriteString("%PDF-1.4\n")
	b.WriteString("1 0 obj <</Type /Catalog /Pages 2 0 R>> endobj\n")
	b.WriteString("2 0 obj <</Type /Pages /Kids [3 0 R] /Count 1>> endobj\n")
	b.WriteString("3 0 obj <</Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R>> endobj\n")
	fmt.Fprintf(&b, "4 0 obj <</Length %d>> stream\n%s\nendstream endobj\n", len(stream), stream)
	b.WriteString("trailer <</Root 1 0 R>>\n%EOF\n")
	return []byte(b.String()), nil
}

// DateLayout is the date format used in requests and parsed fields.
const DateLayout = "2006-01-02"

func seed(parts ...string) int64 {
	h := fnv.New64a()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{'|'})
		}
		h.Write([]byte(p))
	}
	return int64(h.Sum64())
}

func seeded(parts ...string) *rand.Rand {
	return rand.New(rand.NewSource(seed(parts...)))
}

func pick(r *rand.Rand, from []string) string {
	return from[r.Intn(len(from))]
}

func personName(r *rand.Rand) string {
	return pick(r, firstNames) + " " + pick(r, lastNames)
}

func caseLabel(caseType, caseNumber, year string) string {
	return caseType + " " + caseNumber + "/" + year
}

func renderCase(d CaseDetails) string {
	var b strings.Builder
	b.WriteString("<html><body><h2>Case Status</h2><table class=\"case-details\">\n")
	row := func(label, value string) {
		fmt.Fprintf(&b, "<tr><td>%s</td><td>%s</td></tr>\n", html.EscapeString(label), html.EscapeString(value))
	}
	row("Case Number", caseLabel(d.CaseType, d.CaseNumber, d.Year))
	row("Petitioner", d.Petitioner)
	row("Respondent", d.Respondent)
	row("Filing Date", d.FilingDate)
	row("Next Hearing Date", d.NextHearing)
	row("Case Status", d.CaseStatus)
	row("Coram", d.Judge)
	b.WriteString("</table>\n<ul class=\"orders\">\n")
	for _, j := range d.Judgments {
		fmt.Fprintf(&b, "<li>%s <a href=\"%s\">%s</a></li>\n", html.EscapeString(j.Date), html.EscapeString(j.URL), html.EscapeString(j.Text))
	}
	b.WriteString("</ul></body></html>")
	return b.String()
}

func renderCauseList(req CauseListRequest, entries []CauseListEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<html><body><h2>Cause List %s %s</h2>\n", html.EscapeString(req.CourtName), html.EscapeString(req.Date))
	b.WriteString("<table class=\"causelist-table\">\n<tr><th>Case No.</th><th>Parties</th><th>Court Room</th><th>Time</th></tr>\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>\n",
			html.EscapeString(e.CaseNumber), html.EscapeString(e.Parties), html.EscapeString(e.CourtRoom), html.EscapeString(e.Time))
	}
	b.WriteString("</table></body></html>")
	return b.String()
}
