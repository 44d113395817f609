package scraper

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JustJay7/court-data-service/internal/config"
	"github.com/JustJay7/court-data-service/internal/courts"
	"github.com/JustJay7/court-data-service/internal/provider"
	"github.com/JustJay7/court-data-service/pkg/logger"
)

// TestPortalIntegration drives the live portal. It needs a Chrome binary and
// network access, so it only runs with PORTAL_INTEGRATION=true.
func TestPortalIntegration(t *testing.T) {
	if os.Getenv("PORTAL_INTEGRATION") != "true" || testing.Short() {
		t.Skip("set PORTAL_INTEGRATION=true to run against the live portal")
	}

	cfg := &config.Config{
		CourtBaseURL:         "https://services.ecourts.gov.in/ecourtindia_v6/",
		DistrictCourtBaseURL: "https://districts.ecourts.gov.in/india-dco-beta/",
		HeadlessMode:         os.Getenv("HEADLESS_MODE") != "false",
		ScraperTimeout:       60 * time.Second,
		UserAgent:            "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
		BrowserPath:          os.Getenv("ROD_BROWSER_PATH"),
		MaxDocumentBytes:     50 << 20,
	}

	log, err := logger.NewLogger("debug", "console")
	require.NoError(t, err)

	s := NewScraper(cfg, log)
	defer s.Close()

	tests := []struct {
		name string
		req  provider.CaseRequest
	}{
		{"district court case", provider.CaseRequest{CaseType: "CS", CaseNumber: "100", Year: "2023", CourtType: courts.DistrictCourt, CourtName: "Delhi"}},
		{"high court case", provider.CaseRequest{CaseType: "WP", CaseNumber: "67890", Year: "2024", CourtType: courts.HighCourt, CourtName: "Delhi"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.ScraperTimeout)
			defer cancel()

			resp, err := s.FetchCase(ctx, tt.req)
			if errors.Is(err, ErrCaptchaRequired) {
				t.Skip("portal demanded a CAPTCHA")
			}
			if err != nil {
				t.Logf("raw payload length: %d", len(provider.RawPayload(err)))
				t.Fatalf("fetch failed: %v", err)
			}

			require.NotEmpty(t, resp.RawResponse)
			t.Logf("case %s: %d parties, %d judgments", resp.Details.CaseNumber, len(resp.Details.Parties), len(resp.Details.Judgments))
		})
	}
}
