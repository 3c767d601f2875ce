package services

import (
	"context"
	"time"

	"github.com/silverstate/nvsos-api/internal/models"
)

// EntityServiceInterface defines the interface for entity acquisition
type EntityServiceInterface interface {
	// GetEntity retrieves one entity record by file number. It always
	// returns a record: on any fatal error the record carries empty
	// sections, success=false and the error's description.
	GetEntity(ctx context.Context, fileNumber, requestID string) *models.EntityRecord

	// Health returns service health status
	Health() map[string]interface{}

	// Close closes the service and releases resources
	Close() error
}

// CaptchaSolverInterface defines the interface for captcha solving
type CaptchaSolverInterface interface {
	// Solve submits a challenge to the solving service and polls until a
	// solution token is available or the budget is exhausted.
	Solve(ctx context.Context, challenge CaptchaChallenge) (*CaptchaSolution, error)
}

// ExtractorInterface defines the interface for page extraction
type ExtractorInterface interface {
	// Extract parses a rendered detail page into an entity record. A
	// non-nil error means the document could not be processed at all.
	Extract(html string) (*models.EntityRecord, error)
}

// CacheServiceInterface defines the interface for cache service
type CacheServiceInterface interface {
	// Get retrieves a value from cache
	Get(ctx context.Context, key string) (string, error)

	// Set stores a value in cache with TTL
	Set(ctx context.Context, key string, value string) error

	// Delete removes a value from cache
	Delete(ctx context.Context, key string) error

	// Clear clears all cache entries
	Clear(ctx context.Context) error

	// GetStats returns cache statistics
	GetStats(ctx context.Context) (map[string]interface{}, error)

	// Health returns cache service health status
	Health() map[string]interface{}
}

// BrowserServiceInterface defines the interface for the browser pool
type BrowserServiceInterface interface {
	// GetSession gets an available browser session
	GetSession(ctx context.Context) (BrowserSession, error)

	// ReleaseSession releases a browser session back to the pool
	ReleaseSession(session BrowserSession) error

	// GetStats returns browser pool statistics
	GetStats() map[string]interface{}

	// Health returns browser service health status
	Health() map[string]interface{}

	// Restart restarts the browser pool
	Restart() error

	// Close closes all browsers and releases resources
	Close() error
}

// BrowserSession is the narrow automation surface the orchestrator consumes.
// Implementations drive a real browser; tests substitute recorded fixtures.
type BrowserSession interface {
	// Navigate opens a URL with the given locale and timezone emulated.
	Navigate(ctx context.Context, url, locale, timezone string) error

	// WaitForElement waits up to timeout for an element to be present.
	// Returns *ElementTimeoutError if it never appears.
	WaitForElement(ctx context.Context, selector string, timeout time.Duration) error

	// Click clicks on an element
	Click(ctx context.Context, selector string) error

	// Type types text into an element
	Type(ctx context.Context, selector, text string) error

	// GetAttribute reads an attribute from an element, scoped to the
	// current frame context.
	GetAttribute(ctx context.Context, selector, attribute string) (string, error)

	// SwitchToFrame scopes subsequent element lookups to an iframe
	SwitchToFrame(ctx context.Context, selector string) error

	// SwitchToDefaultContent returns lookups to the top-level document
	SwitchToDefaultContent()

	// ExecuteScript executes JavaScript in the page
	ExecuteScript(ctx context.Context, script string) error

	// SetUserAgent overrides the reported browser identity string
	SetUserAgent(ctx context.Context, userAgent string) error

	// GetPageSource returns the rendered page HTML
	GetPageSource(ctx context.Context) (string, error)

	// Close closes the browser session
	Close() error

	// IsHealthy checks if the session is healthy
	IsHealthy() bool

	// GetID returns the session ID
	GetID() string
}
