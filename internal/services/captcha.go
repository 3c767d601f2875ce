package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	solveCaptchaSubmitURL = "https://api.solvecaptcha.com/in.php"
	solveCaptchaResultURL = "https://api.solvecaptcha.com/res.php"

	// Polling budget: 120 attempts at 1s is ~2 minutes wall clock.
	defaultPollInterval    = 1 * time.Second
	defaultMaxPollAttempts = 120

	// Per-request timeouts, independent of the overall budget.
	submitTimeout = 30 * time.Second
	pollTimeout   = 10 * time.Second

	statusOK = 1

	methodHCaptcha = "hcaptcha"
)

// CaptchaChallenge identifies one captcha instance to be solved.
type CaptchaChallenge struct {
	Method  string
	SiteKey string
	PageURL string
}

// NewHCaptchaChallenge builds a challenge for the hCaptcha widget guarding
// the search page.
func NewHCaptchaChallenge(siteKey, pageURL string) CaptchaChallenge {
	return CaptchaChallenge{Method: methodHCaptcha, SiteKey: siteKey, PageURL: pageURL}
}

// CaptchaSolution is the solving service's proof that the puzzle was solved.
// UserAgent and ResponseKey are optional side-channel hints.
type CaptchaSolution struct {
	Token       string
	UserAgent   string
	ResponseKey string
}

// captchaSubmitResponse is the intake endpoint's body. Status carries the
// real outcome; the HTTP status alone is not a success indicator.
type captchaSubmitResponse struct {
	Status  int    `json:"status"`
	Request string `json:"request"`
	Error   string `json:"error"`
}

type captchaResultResponse struct {
	Status    int    `json:"status"`
	Request   string `json:"request"`
	UserAgent string `json:"useragent"`
	RespKey   string `json:"respKey"`
	Error     string `json:"error"`
}

// CaptchaSolver solves captchas through the SolveCaptcha HTTP API.
type CaptchaSolver struct {
	apiKey          string
	submitURL       string
	resultURL       string
	pollInterval    time.Duration
	maxPollAttempts int
	client          *http.Client
	logger          *logrus.Logger
}

// NewCaptchaSolver creates a new CaptchaSolver
func NewCaptchaSolver(apiKey string, logger *logrus.Logger) *CaptchaSolver {
	if apiKey == "" {
		logger.Warn("Captcha API key is not configured")
	}

	return &CaptchaSolver{
		apiKey:          apiKey,
		submitURL:       solveCaptchaSubmitURL,
		resultURL:       solveCaptchaResultURL,
		pollInterval:    defaultPollInterval,
		maxPollAttempts: defaultMaxPollAttempts,
		client: &http.Client{
			Timeout: submitTimeout,
			Transport: &http.Transport{
				MaxIdleConns:       10,
				IdleConnTimeout:    30 * time.Second,
				DisableCompression: true,
			},
		},
		logger: logger,
	}
}

// Solve submits the challenge and polls for the solution token. Submission
// rejection is fatal to the solve; there is no resubmission. A single
// malformed poll response does not abort the loop.
func (c *CaptchaSolver) Solve(ctx context.Context, challenge CaptchaChallenge) (*CaptchaSolution, error) {
	if err := c.validateChallenge(challenge); err != nil {
		return nil, err
	}

	c.logger.WithFields(logrus.Fields{
		"sitekey": challenge.SiteKey,
		"url":     challenge.PageURL,
	}).Info("Submitting captcha to solving service")

	taskID, err := c.submit(ctx, challenge)
	if err != nil {
		return nil, err
	}

	c.logger.WithField("task_id", taskID).Info("Captcha submitted, polling for solution")
	return c.pollResult(ctx, taskID)
}

func (c *CaptchaSolver) validateChallenge(challenge CaptchaChallenge) error {
	if c.apiKey == "" {
		return fmt.Errorf("captcha API key is not configured")
	}
	if challenge.SiteKey == "" {
		return fmt.Errorf("sitekey must not be empty")
	}
	if challenge.PageURL == "" {
		return fmt.Errorf("page URL must not be empty")
	}
	return nil
}

// submit sends the challenge to the intake endpoint and returns the job ID.
func (c *CaptchaSolver) submit(ctx context.Context, challenge CaptchaChallenge) (string, error) {
	payload := &bytes.Buffer{}
	writer := multipart.NewWriter(payload)

	fields := map[string]string{
		"key":     c.apiKey,
		"method":  challenge.Method,
		"sitekey": challenge.SiteKey,
		"pageurl": challenge.PageURL,
		"json":    "1",
	}

	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return "", fmt.Errorf("failed to write form field %s: %w", key, err)
		}
	}

	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize form payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.submitURL, payload)
	if err != nil {
		return "", fmt.Errorf("failed to create submit request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &TransportError{Op: "submit", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{Op: "submit", Err: err}
	}

	var submitResp captchaSubmitResponse
	if err := json.Unmarshal(body, &submitResp); err != nil {
		return "", &SubmissionError{Response: string(body)}
	}

	if submitResp.Status != statusOK {
		c.logger.WithField("response", string(body)).Error("Captcha submission rejected")
		if submitResp.Error != "" {
			return "", &SubmissionError{Response: submitResp.Error}
		}
		return "", &SubmissionError{Response: string(body)}
	}

	return submitResp.Request, nil
}

// pollResult polls the result endpoint at a fixed interval until the
// solution is ready or the attempt budget runs out.
func (c *CaptchaSolver) pollResult(ctx context.Context, taskID string) (*CaptchaSolution, error) {
	if taskID == "" {
		return nil, fmt.Errorf("task ID must not be empty")
	}

	timer := time.NewTimer(c.pollInterval)
	defer timer.Stop()

	for attempt := 1; attempt <= c.maxPollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}

		solution, ready, err := c.checkResult(ctx, taskID)
		if err != nil {
			return nil, err
		}
		if ready {
			c.logger.WithField("attempt", attempt).Info("Captcha solved")
			return solution, nil
		}

		c.logger.WithFields(logrus.Fields{
			"task_id": taskID,
			"attempt": attempt,
			"max":     c.maxPollAttempts,
		}).Debug("Waiting for captcha solution")

		timer.Reset(c.pollInterval)
	}

	return nil, ErrSolveTimeout
}

// checkResult performs one poll round trip. Malformed or unexpected bodies
// classify as pending rather than aborting the loop.
func (c *CaptchaSolver) checkResult(ctx context.Context, taskID string) (*CaptchaSolution, bool, error) {
	query := url.Values{
		"key":    {c.apiKey},
		"action": {"get"},
		"id":     {taskID},
		"json":   {"1"},
	}

	reqCtx, cancel := context.WithTimeout(ctx, pollTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.resultURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create poll request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, false, &TransportError{Op: "poll", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, &TransportError{Op: "poll", Err: err}
	}

	var result captchaResultResponse
	if err := json.Unmarshal(body, &result); err != nil {
		c.logger.WithField("body", string(body)).Debug("Unparseable poll response, treating as pending")
		return nil, false, nil
	}

	if result.Status != statusOK || result.Request == "" {
		return nil, false, nil
	}

	return &CaptchaSolution{
		Token:       result.Request,
		UserAgent:   result.UserAgent,
		ResponseKey: result.RespKey,
	}, true, nil
}
