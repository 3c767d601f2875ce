package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/silverstate/nvsos-api/internal/config"
	"github.com/silverstate/nvsos-api/internal/models"
	"github.com/sirupsen/logrus"
)

// Selectors on the Nevada entity search pages.
const (
	searchInputSelector  = `input#BusinessSearch_Index_txtEntityNumber`
	searchButtonSelector = `input#btnSearch`
	detailLinkSelector   = `a[onclick*="GetBusinessSearchResultById"]`
	detailPanelSelector  = `div.panel-body`
	captchaFrameSelector = `iframe#main-iframe`
	captchaSelector      = `div.h-captcha`
	siteKeyAttribute     = "data-sitekey"
)

// captchaInjectScript writes the solution token into both response fields
// the protected page reads and invokes the completion callback if the page
// defines one.
const captchaInjectScript = `
	document.querySelector("[name=h-captcha-response]").innerHTML = %q;
	document.querySelector("[name=g-recaptcha-response]").innerHTML = %q;
	if (typeof onCaptchaFinished === 'function') {
		onCaptchaFinished(%q);
	}`

// EntityService acquires Nevada entity records through the browser pool.
// One acquisition is a single logical thread of control: browser actions,
// captcha solving and extraction run sequentially.
type EntityService struct {
	config         config.ScraperConfig
	cache          CacheServiceInterface
	browser        BrowserServiceInterface
	solver         CaptchaSolverInterface
	extractor      ExtractorInterface
	logger         *logrus.Logger
	requestCounter int64
	mu             sync.RWMutex
}

// NewEntityService creates a new EntityService
func NewEntityService(cfg config.ScraperConfig, cache CacheServiceInterface, browser BrowserServiceInterface, solver CaptchaSolverInterface, extractor ExtractorInterface, logger *logrus.Logger) (EntityServiceInterface, error) {
	service := &EntityService{
		config:    cfg,
		cache:     cache,
		browser:   browser,
		solver:    solver,
		extractor: extractor,
		logger:    logger,
	}

	return service, nil
}

// GetEntity retrieves one entity record. It never propagates an error:
// every fatal condition is folded into a failed record so the caller always
// has a terminal record to report.
func (s *EntityService) GetEntity(ctx context.Context, fileNumber, requestID string) *models.EntityRecord {
	start := time.Now()

	s.mu.Lock()
	s.requestCounter++
	s.mu.Unlock()

	logger := s.logger.WithFields(logrus.Fields{
		"file_number": fileNumber,
		"request_id":  requestID,
	})

	logger.Info("Starting Nevada entity search")

	// Check cache first
	cacheKey := fmt.Sprintf("entity:%s", fileNumber)
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey); err == nil {
			var record models.EntityRecord
			if err := json.Unmarshal([]byte(cached), &record); err != nil {
				logger.WithError(err).Warn("Failed to unmarshal cached entity record")
			} else {
				record.Metadata.Cache = true
				record.Metadata.RequestID = requestID
				logger.WithField("duration", time.Since(start)).Info("Entity found in cache")
				return &record
			}
		}
	}

	record, err := s.acquire(ctx, fileNumber, logger)
	if err != nil {
		logger.WithError(err).Error("Entity acquisition failed")
		return models.NewFailedRecord(fileNumber, requestID, err)
	}

	record.Metadata.FileNumberSearched = fileNumber
	record.Metadata.RequestID = requestID

	// Cache only successful records
	if s.cache != nil && record.Metadata.Success {
		if recordJSON, err := json.Marshal(record); err == nil {
			if err := s.cache.Set(ctx, cacheKey, string(recordJSON)); err != nil {
				logger.WithError(err).Warn("Failed to cache entity record")
			}
		}
	}

	logger.WithFields(logrus.Fields{
		"duration": time.Since(start),
		"officers": len(record.Officers),
	}).Info("Entity search completed")
	return record
}

// acquire drives one attempt through the state machine: navigate, detect
// form or captcha, solve and inject when needed, search, extract. Captcha
// failures are degraded-path conditions handled inside; any error returned
// here is fatal to the attempt.
func (s *EntityService) acquire(ctx context.Context, fileNumber string, logger *logrus.Entry) (*models.EntityRecord, error) {
	session, err := s.browser.GetSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire browser session: %w", err)
	}
	defer s.browser.ReleaseSession(session)

	attemptCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	logger.Debug("Navigating to Nevada entity search")
	if err := session.Navigate(attemptCtx, s.config.SearchURL, s.config.Locale, s.config.Timezone); err != nil {
		return nil, fmt.Errorf("failed to navigate to search page: %w", err)
	}

	// Probe for the direct search input. If it is present the interstitial
	// was skipped and no captcha handling is needed.
	if err := session.WaitForElement(attemptCtx, searchInputSelector, s.config.ProbeTimeout); err != nil {
		logger.Debug("Search input not present, checking for captcha interstitial")
		s.handleCaptcha(attemptCtx, session, logger)
	} else {
		logger.Debug("Search input present, no captcha needed")
	}

	return s.search(attemptCtx, session, fileNumber, logger)
}

// handleCaptcha detects the captcha interstitial, solves it and injects the
// token. Every failure here is logged and swallowed: the interstitial is
// sometimes absent and the search may still succeed, so captcha handling is
// best-effort and never aborts the attempt.
func (s *EntityService) handleCaptcha(ctx context.Context, session BrowserSession, logger *logrus.Entry) {
	if err := session.WaitForElement(ctx, captchaFrameSelector, s.config.IframeTimeout); err != nil {
		logger.WithError(err).Info("No captcha iframe found, proceeding without solving")
		return
	}

	if err := session.SwitchToFrame(ctx, captchaFrameSelector); err != nil {
		logger.WithError(err).Warn("Failed to switch into captcha iframe, proceeding without solving")
		return
	}
	defer session.SwitchToDefaultContent()

	siteKey, err := session.GetAttribute(ctx, captchaSelector, siteKeyAttribute)
	if err != nil || siteKey == "" {
		logger.WithError(err).Warn("No captcha sitekey found in iframe, proceeding without solving")
		return
	}

	logger.WithField("sitekey", siteKey).Info("Captcha detected, requesting solution")

	solution, err := s.solver.Solve(ctx, NewHCaptchaChallenge(siteKey, s.config.SearchURL))
	if err != nil {
		logger.WithError(err).Warn("Captcha solving failed, proceeding without token")
		return
	}

	if solution.UserAgent != "" {
		if err := session.SetUserAgent(ctx, solution.UserAgent); err != nil {
			logger.WithError(err).Warn("Failed to override user agent")
		}
	}

	script := fmt.Sprintf(captchaInjectScript, solution.Token, solution.Token, solution.Token)
	if err := session.ExecuteScript(ctx, script); err != nil {
		logger.WithError(err).Warn("Failed to inject captcha token")
		return
	}

	logger.Info("Captcha token injected")
}

// search fills and submits the entity-number form, opens the detail view
// and extracts the record. This is the first point where a timeout is fatal
// to the attempt.
func (s *EntityService) search(ctx context.Context, session BrowserSession, fileNumber string, logger *logrus.Entry) (*models.EntityRecord, error) {
	logger.Debug("Submitting entity number search")

	if err := session.Click(ctx, searchInputSelector); err != nil {
		return nil, fmt.Errorf("failed to focus search input: %w", err)
	}
	if err := session.Type(ctx, searchInputSelector, fileNumber); err != nil {
		return nil, fmt.Errorf("failed to enter file number: %w", err)
	}
	if err := session.Click(ctx, searchButtonSelector); err != nil {
		return nil, fmt.Errorf("failed to submit search: %w", err)
	}
	if err := session.Click(ctx, detailLinkSelector); err != nil {
		return nil, fmt.Errorf("failed to open search result: %w", err)
	}
	if err := session.WaitForElement(ctx, detailPanelSelector, s.config.ResultTimeout); err != nil {
		return nil, fmt.Errorf("detail panel did not render: %w", err)
	}

	html, err := session.GetPageSource(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to capture page source: %w", err)
	}

	record, err := s.extractor.Extract(html)
	if err != nil {
		return nil, fmt.Errorf("failed to parse entity detail page: %w", err)
	}

	return record, nil
}

// Health returns service health status
func (s *EntityService) Health() map[string]interface{} {
	s.mu.RLock()
	requestCount := s.requestCounter
	s.mu.RUnlock()

	return map[string]interface{}{
		"status":          "healthy",
		"request_count":   requestCount,
		"cache_enabled":   s.cache != nil,
		"browser_enabled": s.browser != nil,
	}
}

// Close closes the service and releases resources
func (s *EntityService) Close() error {
	s.logger.Info("Entity service closed")
	return nil
}
