package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestSolver(submitURL, resultURL string) *CaptchaSolver {
	return &CaptchaSolver{
		apiKey:          "test-key",
		submitURL:       submitURL,
		resultURL:       resultURL,
		pollInterval:    time.Millisecond,
		maxPollAttempts: 5,
		client:          &http.Client{Timeout: time.Second},
		logger:          testLogger(),
	}
}

func TestSolveReadyAfterPendingPolls(t *testing.T) {
	var polls atomic.Int64

	submit := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "test-key", r.FormValue("key"))
		assert.Equal(t, "hcaptcha", r.FormValue("method"))
		assert.Equal(t, "site-key-123", r.FormValue("sitekey"))
		assert.Equal(t, "https://esos.nv.gov/EntitySearch/OnlineEntitySearch", r.FormValue("pageurl"))
		assert.Equal(t, "1", r.FormValue("json"))

		fmt.Fprint(w, `{"status":1,"request":"task-42"}`)
	}))
	defer submit.Close()

	result := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "get", r.URL.Query().Get("action"))
		assert.Equal(t, "task-42", r.URL.Query().Get("id"))

		if polls.Add(1) < 3 {
			fmt.Fprint(w, `{"status":0,"request":"CAPCHA_NOT_READY"}`)
			return
		}
		fmt.Fprint(w, `{"status":1,"request":"solution-token","useragent":"Mozilla/5.0 Test","respKey":"rk-1"}`)
	}))
	defer result.Close()

	solver := newTestSolver(submit.URL, result.URL)

	solution, err := solver.Solve(context.Background(),
		NewHCaptchaChallenge("site-key-123", "https://esos.nv.gov/EntitySearch/OnlineEntitySearch"))
	require.NoError(t, err)
	assert.Equal(t, "solution-token", solution.Token)
	assert.Equal(t, "Mozilla/5.0 Test", solution.UserAgent)
	assert.Equal(t, "rk-1", solution.ResponseKey)
	assert.Equal(t, int64(3), polls.Load())
}

func TestSolveExhaustsPollBudget(t *testing.T) {
	var polls atomic.Int64

	submit := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":1,"request":"task-42"}`)
	}))
	defer submit.Close()

	result := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		polls.Add(1)
		fmt.Fprint(w, `{"status":0,"request":"CAPCHA_NOT_READY"}`)
	}))
	defer result.Close()

	solver := newTestSolver(submit.URL, result.URL)

	solution, err := solver.Solve(context.Background(), NewHCaptchaChallenge("sk", "https://example.com"))
	assert.Nil(t, solution)
	assert.ErrorIs(t, err, ErrSolveTimeout)
	assert.Equal(t, int64(5), polls.Load())
}

func TestSolveSubmissionRejectedWithoutPolling(t *testing.T) {
	var polls atomic.Int64

	submit := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":0,"request":"ERROR_WRONG_USER_KEY"}`)
	}))
	defer submit.Close()

	result := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		polls.Add(1)
	}))
	defer result.Close()

	solver := newTestSolver(submit.URL, result.URL)

	_, err := solver.Solve(context.Background(), NewHCaptchaChallenge("sk", "https://example.com"))

	var submissionErr *SubmissionError
	require.ErrorAs(t, err, &submissionErr)
	assert.Contains(t, submissionErr.Response, "ERROR_WRONG_USER_KEY")
	assert.Equal(t, int64(0), polls.Load(), "rejected submission must not be polled")
}

func TestSolveSubmitUnparseableBody(t *testing.T) {
	submit := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ERROR_WRONG_USER_KEY")
	}))
	defer submit.Close()

	solver := newTestSolver(submit.URL, submit.URL)

	_, err := solver.Solve(context.Background(), NewHCaptchaChallenge("sk", "https://example.com"))

	var submissionErr *SubmissionError
	require.ErrorAs(t, err, &submissionErr)
	assert.Equal(t, "ERROR_WRONG_USER_KEY", submissionErr.Response)
}

func TestSolveSubmitTransportError(t *testing.T) {
	submit := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	submit.Close() // refuse connections

	solver := newTestSolver(submit.URL, submit.URL)

	_, err := solver.Solve(context.Background(), NewHCaptchaChallenge("sk", "https://example.com"))

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, "submit", transportErr.Op)
}

func TestSolveMalformedPollBodyTreatedAsPending(t *testing.T) {
	var polls atomic.Int64

	submit := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":1,"request":"task-42"}`)
	}))
	defer submit.Close()

	result := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if polls.Add(1) == 1 {
			fmt.Fprint(w, "<html>gateway error</html>")
			return
		}
		fmt.Fprint(w, `{"status":1,"request":"solution-token"}`)
	}))
	defer result.Close()

	solver := newTestSolver(submit.URL, result.URL)

	solution, err := solver.Solve(context.Background(), NewHCaptchaChallenge("sk", "https://example.com"))
	require.NoError(t, err)
	assert.Equal(t, "solution-token", solution.Token)
	assert.Equal(t, int64(2), polls.Load())
}

func TestSolveContextCancelledDuringPolling(t *testing.T) {
	submit := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":1,"request":"task-42"}`)
	}))
	defer submit.Close()

	result := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":0,"request":"CAPCHA_NOT_READY"}`)
	}))
	defer result.Close()

	solver := newTestSolver(submit.URL, result.URL)
	solver.pollInterval = 50 * time.Millisecond
	solver.maxPollAttempts = 1000

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := solver.Solve(ctx, NewHCaptchaChallenge("sk", "https://example.com"))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestSolveValidation(t *testing.T) {
	solver := newTestSolver("http://unused", "http://unused")

	_, err := solver.Solve(context.Background(), NewHCaptchaChallenge("", "https://example.com"))
	assert.Error(t, err)

	_, err = solver.Solve(context.Background(), NewHCaptchaChallenge("sk", ""))
	assert.Error(t, err)

	solver.apiKey = ""
	_, err = solver.Solve(context.Background(), NewHCaptchaChallenge("sk", "https://example.com"))
	assert.Error(t, err)
}
