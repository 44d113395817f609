package scraper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/JustJay7/court-data-service/internal/config"
	"github.com/JustJay7/court-data-service/internal/courts"
	"github.com/JustJay7/court-data-service/internal/provider"
	"github.com/JustJay7/court-data-service/pkg/logger"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

var (
	// ErrCaptchaRequired is returned when the portal shows a CAPTCHA.
	ErrCaptchaRequired = errors.New("portal requires a captcha")
	// ErrPortal wraps an error message displayed by the portal.
	ErrPortal = errors.New("portal reported an error")
)

// settle is how long the DOM must stay unchanged after an action.
const settle = 500 * time.Millisecond

// caseForm locates the case search form of a portal.
type caseForm struct {
	entryLink  string
	caseType   string
	selectType bool
	caseNumber string
	year       string
	submit     string
}

var caseForms = map[courts.CourtType]caseForm{
	courts.HighCourt: {
		entryLink:  "Case Number",
		caseType:   "#caseType",
		selectType: true,
		caseNumber: "#caseNumber",
		year:       "#caseYear",
		submit:     "#searchBtn",
	},
	courts.DistrictCourt: {
		entryLink:  "Case Status",
		caseType:   "[name='case_type']",
		caseNumber: "[name='case_no']",
		year:       "[name='case_year']",
		submit:     "[name='submit']",
	},
}

var causeListForm = struct {
	entryLink string
	date      string
	court     string
	submit    string
}{
	entryLink: "Daily Cause List",
	date:      "#causeListDate",
	court:     "#courtComplex",
	submit:    "#searchCauseList",
}

// Scraper is the portal-backed CourtDataProvider. It drives the search
// forms with a headless browser and parses the resulting pages. The
// browser is started on first use.
type Scraper struct {
	cfg     *config.Config
	logger  *logger.Logger
	parser  *Parser
	docs    *DocumentClient
	mu      sync.Mutex
	browser *rod.Browser
}

var _ provider.CourtDataProvider = (*Scraper)(nil)

// NewScraper creates a new scraper instance
func NewScraper(cfg *config.Config, logger *logger.Logger) *Scraper {
	log := logger.With("component", "Scraper")
	return &Scraper{
		cfg:    cfg,
		logger: log,
		parser: NewParser(log),
		docs:   NewDocumentClient(cfg.CourtBaseURL, cfg.UserAgent, cfg.ScraperTimeout, cfg.MaxDocumentBytes, log),
	}
}

func (s *Scraper) Name() string { return "portal" }

// Close closes the browser if it was started.
func (s *Scraper) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browser == nil {
		return nil
	}
	err := s.browser.Close()
	s.browser = nil
	return err
}

func (s *Scraper) FetchCase(ctx context.Context, req provider.CaseRequest) (*provider.CaseResponse, error) {
	form, ok := caseForms[req.CourtType]
	if !ok {
		return nil, provider.NewFetchError("fetch case", "", fmt.Errorf("unsupported court type %q", req.CourtType))
	}
	base := s.baseURL(req.CourtType)

	html, err := s.run(ctx, base, func(page *rod.Page) error {
		return s.fillCaseForm(page, form, req)
	})
	if err != nil {
		return nil, provider.NewFetchError("fetch case", html, err)
	}
	if err := s.checkResult(html); err != nil {
		return nil, provider.NewFetchError("fetch case", html, err)
	}

	details, err := s.parser.ParseCaseDetails(html, base)
	if err != nil {
		return nil, provider.NewFetchError("fetch case", html, err)
	}
	details.CaseType = req.CaseType
	details.CaseNumber = req.CaseNumber
	details.Year = req.Year

	return &provider.CaseResponse{RawResponse: html, Details: *details}, nil
}

func (s *Scraper) FetchCauseList(ctx context.Context, req provider.CauseListRequest) (*provider.CauseListResponse, error) {
	html, err := s.run(ctx, s.baseURL(req.CourtType), func(page *rod.Page) error {
		return s.fillCauseListForm(page, req)
	})
	if err != nil {
		return nil, provider.NewFetchError("fetch cause list", html, err)
	}
	if err := s.checkResult(html); err != nil {
		return nil, provider.NewFetchError("fetch cause list", html, err)
	}

	entries, err := s.parser.ParseCauseList(html)
	if err != nil {
		return nil, provider.NewFetchError("fetch cause list", html, err)
	}
	return &provider.CauseListResponse{RawResponse: html, Entries: entries}, nil
}

func (s *Scraper) FetchDocument(ctx context.Context, url string) ([]byte, error) {
	data, err := s.docs.Download(ctx, url)
	if err != nil {
		return nil, provider.NewFetchError("fetch document", "", err)
	}
	return data, nil
}

func (s *Scraper) baseURL(courtType courts.CourtType) string {
	if courtType == courts.DistrictCourt {
		return s.cfg.DistrictCourtBaseURL
	}
	return s.cfg.CourtBaseURL
}

// checkResult rejects pages that show a CAPTCHA challenge or an error.
func (s *Scraper) checkResult(html string) error {
	if msg := s.parser.ParseError(html); msg != "" {
		return fmt.Errorf("%w: %s", ErrPortal, msg)
	}
	if s.parser.DetectCaptcha(html) {
		return ErrCaptchaRequired
	}
	return nil
}

// run opens url in a fresh page, applies steps and returns the final HTML.
// On failure the HTML captured so far is returned with the error.
func (s *Scraper) run(ctx context.Context, url string, steps func(*rod.Page) error) (string, error) {
	browser, err := s.ensureBrowser()
	if err != nil {
		return "", err
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return "", fmt.Errorf("failed to create page: %w", err)
	}
	defer page.Close()

	runCtx, cancel := context.WithTimeout(ctx, s.cfg.ScraperTimeout)
	defer cancel()
	p := page.Context(runCtx)

	s.logger.Info("Navigating to court website", "url", url)
	if err := p.Navigate(url); err != nil {
		return "", fmt.Errorf("failed to navigate: %w", err)
	}
	if err := p.WaitLoad(); err != nil {
		return "", fmt.Errorf("page load failed: %w", err)
	}

	if err := steps(p); err != nil {
		html, _ := p.HTML()
		return html, err
	}

	html, err := p.HTML()
	if err != nil {
		return "", fmt.Errorf("failed to read page: %w", err)
	}
	return html, nil
}

func (s *Scraper) fillCaseForm(page *rod.Page, form caseForm, req provider.CaseRequest) error {
	if err := clickLink(page, form.entryLink); err != nil {
		return err
	}
	if err := s.refuseCaptcha(page); err != nil {
		return err
	}

	caseType, err := page.Element(form.caseType)
	if err != nil {
		return fmt.Errorf("case type field not found: %w", err)
	}
	if form.selectType {
		err = caseType.Select([]string{req.CaseType}, true, rod.SelectorTypeText)
	} else {
		err = caseType.Input(req.CaseType)
	}
	if err != nil {
		return fmt.Errorf("failed to set case type: %w", err)
	}
	s.logger.Debug("Selected case type", "type", req.CaseType)

	if err := fill(page, form.caseNumber, req.CaseNumber); err != nil {
		return fmt.Errorf("case number: %w", err)
	}
	if err := fill(page, form.year, req.Year); err != nil {
		return fmt.Errorf("year: %w", err)
	}

	return submit(page, form.submit)
}

func (s *Scraper) fillCauseListForm(page *rod.Page, req provider.CauseListRequest) error {
	if err := clickLink(page, causeListForm.entryLink); err != nil {
		return err
	}
	if err := s.refuseCaptcha(page); err != nil {
		return err
	}

	if err := fill(page, causeListForm.date, req.Date); err != nil {
		return fmt.Errorf("cause list date: %w", err)
	}

	if has, court, _ := page.Has(causeListForm.court); has {
		if err := court.Select([]string{req.CourtName}, true, rod.SelectorTypeText); err != nil {
			s.logger.Warn("Court not listed on cause list form", "court", req.CourtName, "error", err)
		}
	}

	return submit(page, causeListForm.submit)
}

// refuseCaptcha fails when the form carries a CAPTCHA. Solving it is not
// supported.
func (s *Scraper) refuseCaptcha(page *rod.Page) error {
	html, err := page.HTML()
	if err != nil {
		return fmt.Errorf("failed to read form: %w", err)
	}
	if s.parser.DetectCaptcha(html) {
		s.logger.Warn("CAPTCHA found on search form")
		return ErrCaptchaRequired
	}
	return nil
}

func (s *Scraper) ensureBrowser() (*rod.Browser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browser != nil {
		return s.browser, nil
	}

	l := launcher.New().
		Headless(s.cfg.HeadlessMode).
		Set("user-agent", s.cfg.UserAgent)
	if s.cfg.BrowserPath != "" {
		l = l.Bin(s.cfg.BrowserPath)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	s.browser = browser
	return browser, nil
}

func clickLink(page *rod.Page, text string) error {
	link, err := page.ElementR("a", text)
	if err != nil {
		return fmt.Errorf("link %q not found: %w", text, err)
	}
	if err := link.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("failed to open %q: %w", text, err)
	}
	return page.WaitStable(settle)
}

func fill(page *rod.Page, selector, value string) error {
	el, err := page.Element(selector)
	if err != nil {
		return fmt.Errorf("field %s not found: %w", selector, err)
	}
	if err := el.SelectAllText(); err != nil {
		return err
	}
	return el.Input(value)
}

func submit(page *rod.Page, selector string) error {
	btn, err := page.Element(selector)
	if err != nil {
		return fmt.Errorf("submit button not found: %w", err)
	}
	if err := btn.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("failed to submit: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return err
	}
	return page.WaitStable(settle)
}
