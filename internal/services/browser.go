package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"github.com/silverstate/nvsos-api/internal/config"
	"github.com/sirupsen/logrus"
)

// BrowserService manages a pool of browser sessions
type BrowserService struct {
	config   config.BrowserConfig
	logger   *logrus.Logger
	pool     chan *ChromeSession
	sessions []*ChromeSession
	mu       sync.RWMutex
	closed   bool
}

// ChromeSession implements BrowserSession over chromedp
type ChromeSession struct {
	id       string
	cancel   context.CancelFunc
	chromedp context.Context
	frame    *cdp.Node
	healthy  bool
	mu       sync.RWMutex
}

// NewBrowserService creates a new browser service
func NewBrowserService(config config.BrowserConfig, logger *logrus.Logger) (BrowserServiceInterface, error) {
	service := &BrowserService{
		config:   config,
		logger:   logger,
		pool:     make(chan *ChromeSession, config.MaxBrowsers),
		sessions: make([]*ChromeSession, 0, config.MaxBrowsers),
	}

	// Initialize minimum sessions
	for i := 0; i < config.MinBrowsers; i++ {
		session, err := service.createSession()
		if err != nil {
			logger.WithError(err).Error("Failed to create initial browser session")
			continue
		}
		service.sessions = append(service.sessions, session)
		service.pool <- session
	}

	logger.WithField("sessions", len(service.sessions)).Info("Browser service initialized")
	return service, nil
}

// GetSession gets an available browser session
func (s *BrowserService) GetSession(ctx context.Context) (BrowserSession, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, fmt.Errorf("browser service is closed")
	}
	s.mu.RUnlock()

	select {
	case session := <-s.pool:
		if session.IsHealthy() {
			return session, nil
		}
		// Session is unhealthy, create a new one
		s.logger.WithField("session_id", session.GetID()).Warn("Unhealthy browser session detected, creating new one")
		session.Close()

		newSession, err := s.createSession()
		if err != nil {
			s.replaceSession(session, nil)
			return nil, fmt.Errorf("failed to create new browser session: %w", err)
		}
		s.replaceSession(session, newSession)
		return newSession, nil

	case <-time.After(10 * time.Second):
		// No session available, try to create a new one if under limit
		s.mu.Lock()
		if len(s.sessions) < s.config.MaxBrowsers {
			session, err := s.createSession()
			if err != nil {
				s.mu.Unlock()
				return nil, fmt.Errorf("failed to create browser session: %w", err)
			}
			s.sessions = append(s.sessions, session)
			s.mu.Unlock()
			return session, nil
		}
		s.mu.Unlock()
		return nil, fmt.Errorf("no browser session available and pool is at maximum capacity")

	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ReleaseSession releases a browser session back to the pool
func (s *BrowserService) ReleaseSession(session BrowserSession) error {
	chromeSession, ok := session.(*ChromeSession)
	if !ok {
		return fmt.Errorf("invalid browser session type")
	}

	chromeSession.SwitchToDefaultContent()

	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		chromeSession.Close()
		return nil
	}
	s.mu.RUnlock()

	select {
	case s.pool <- chromeSession:
		return nil
	default:
		// Pool is full, close the session
		chromeSession.Close()
		return nil
	}
}

// replaceSession drops old from the tracked session list and, when non-nil,
// tracks replacement in its place.
func (s *BrowserService) replaceSession(old, replacement *ChromeSession) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, session := range s.sessions {
		if session == old {
			s.sessions = append(s.sessions[:i], s.sessions[i+1:]...)
			break
		}
	}
	if replacement != nil {
		s.sessions = append(s.sessions, replacement)
	}
}

// createSession creates a new browser session
func (s *BrowserService) createSession() (*ChromeSession, error) {
	// Chrome options for headless operation
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-background-timer-throttling", true),
		chromedp.Flag("disable-backgrounding-occluded-windows", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-ipc-flooding-protection", true),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/139.0.0.0 Safari/537.36"),
	}

	if s.config.Headless {
		opts = append(opts, chromedp.Headless)
	}

	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	ctx, ctxCancel := chromedp.NewContext(allocCtx)

	session := &ChromeSession{
		id:       fmt.Sprintf("session-%d", time.Now().UnixNano()),
		cancel:   func() { ctxCancel(); cancel() },
		chromedp: ctx,
		healthy:  true,
	}

	// Test session health with a simple navigation
	testCtx, testCancel := context.WithTimeout(ctx, 15*time.Second)
	defer testCancel()

	if err := chromedp.Run(testCtx, chromedp.Navigate("about:blank")); err != nil {
		session.Close()
		return nil, fmt.Errorf("browser health check failed: %w", err)
	}

	s.logger.WithField("session_id", session.id).Debug("Browser session created")
	return session, nil
}

// GetStats returns browser pool statistics
func (s *BrowserService) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	healthy := 0
	for _, session := range s.sessions {
		if session.IsHealthy() {
			healthy++
		}
	}

	return map[string]interface{}{
		"total_sessions":   len(s.sessions),
		"healthy_sessions": healthy,
		"available":        len(s.pool),
		"max_browsers":     s.config.MaxBrowsers,
		"min_browsers":     s.config.MinBrowsers,
	}
}

// Health returns browser service health status
func (s *BrowserService) Health() map[string]interface{} {
	stats := s.GetStats()

	status := "healthy"
	if stats["healthy_sessions"].(int) == 0 {
		status = "unhealthy"
	} else if stats["healthy_sessions"].(int) < s.config.MinBrowsers {
		status = "degraded"
	}

	return map[string]interface{}{
		"status": status,
		"stats":  stats,
	}
}

// Restart restarts the browser pool
func (s *BrowserService) Restart() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, session := range s.sessions {
		session.Close()
	}

	// The pool can hold replacement sessions created after a drained one
	// went unhealthy; close whatever is in it, not just the tracked list.
	for len(s.pool) > 0 {
		session := <-s.pool
		session.Close()
	}

	s.sessions = s.sessions[:0]

	for i := 0; i < s.config.MinBrowsers; i++ {
		session, err := s.createSession()
		if err != nil {
			s.logger.WithError(err).Error("Failed to create browser session during restart")
			continue
		}
		s.sessions = append(s.sessions, session)
		s.pool <- session
	}

	s.logger.Info("Browser pool restarted")
	return nil
}

// Close closes all sessions and releases resources
func (s *BrowserService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true

	for _, session := range s.sessions {
		session.Close()
	}

	for len(s.pool) > 0 {
		session := <-s.pool
		session.Close()
	}

	close(s.pool)
	s.logger.Info("Browser service closed")
	return nil
}

// ChromeSession methods

// run executes actions on the session's browser context while honoring the
// caller's cancellation and deadline.
func (c *ChromeSession) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(c.chromedp)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		defer cancelDeadline()
	}

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

// Navigate opens the URL with locale and timezone emulation applied first,
// so the page renders under the fixed context the registry expects.
func (c *ChromeSession) Navigate(ctx context.Context, url, locale, timezone string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.healthy {
		return fmt.Errorf("browser session is not healthy")
	}

	return c.run(ctx,
		emulation.SetLocaleOverride().WithLocale(locale),
		emulation.SetTimezoneOverride(timezone),
		chromedp.Navigate(url),
	)
}

// WaitForElement waits up to timeout for the element to be present in the
// DOM. A deadline hit maps to *ElementTimeoutError.
func (c *ChromeSession) WaitForElement(ctx context.Context, selector string, timeout time.Duration) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.healthy {
		return fmt.Errorf("browser session is not healthy")
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := c.run(waitCtx, chromedp.WaitReady(selector, chromedp.ByQuery))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return &ElementTimeoutError{Selector: selector, Timeout: timeout}
		}
		return err
	}
	return nil
}

// Click clicks on an element
func (c *ChromeSession) Click(ctx context.Context, selector string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.healthy {
		return fmt.Errorf("browser session is not healthy")
	}

	return c.run(ctx, chromedp.Click(selector, c.queryOpts()...))
}

// Type types text into an element
func (c *ChromeSession) Type(ctx context.Context, selector, text string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.healthy {
		return fmt.Errorf("browser session is not healthy")
	}

	return c.run(ctx, chromedp.SendKeys(selector, text, c.queryOpts()...))
}

// GetAttribute reads an attribute from an element within the current frame
// context.
func (c *ChromeSession) GetAttribute(ctx context.Context, selector, attribute string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.healthy {
		return "", fmt.Errorf("browser session is not healthy")
	}

	var value string
	var ok bool
	err := c.run(ctx, chromedp.AttributeValue(selector, attribute, &value, &ok, c.queryOpts()...))
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("attribute %q not found on %q", attribute, selector)
	}
	return value, nil
}

// SwitchToFrame scopes subsequent element lookups to the iframe matched by
// selector.
func (c *ChromeSession) SwitchToFrame(ctx context.Context, selector string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.healthy {
		return fmt.Errorf("browser session is not healthy")
	}

	var nodes []*cdp.Node
	if err := c.run(ctx, chromedp.Nodes(selector, &nodes, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("failed to locate frame %q: %w", selector, err)
	}
	if len(nodes) == 0 {
		return fmt.Errorf("frame %q not found", selector)
	}

	c.frame = nodes[0]
	return nil
}

// SwitchToDefaultContent returns element lookups to the top-level document
func (c *ChromeSession) SwitchToDefaultContent() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frame = nil
}

// ExecuteScript executes JavaScript in the page
func (c *ChromeSession) ExecuteScript(ctx context.Context, script string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.healthy {
		return fmt.Errorf("browser session is not healthy")
	}

	return c.run(ctx, chromedp.Evaluate(script, nil))
}

// SetUserAgent overrides the reported browser identity string
func (c *ChromeSession) SetUserAgent(ctx context.Context, userAgent string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.healthy {
		return fmt.Errorf("browser session is not healthy")
	}

	return c.run(ctx, emulation.SetUserAgentOverride(userAgent))
}

// GetPageSource returns the rendered page HTML
func (c *ChromeSession) GetPageSource(ctx context.Context) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.healthy {
		return "", fmt.Errorf("browser session is not healthy")
	}

	var html string
	err := c.run(ctx, chromedp.OuterHTML("html", &html))
	return html, err
}

// queryOpts returns the chromedp query options for the current frame
// context. Callers must hold at least a read lock.
func (c *ChromeSession) queryOpts() []chromedp.QueryOption {
	opts := []chromedp.QueryOption{chromedp.ByQuery}
	if c.frame != nil {
		opts = append(opts, chromedp.FromNode(c.frame))
	}
	return opts
}

// Close closes the browser session
func (c *ChromeSession) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.healthy = false
	if c.cancel != nil {
		c.cancel()
	}
	return nil
}

// IsHealthy checks if the browser session is healthy
func (c *ChromeSession) IsHealthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.healthy
}

// GetID returns the browser session ID
func (c *ChromeSession) GetID() string {
	return c.id
}
