package adgen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/marktr/adsbot/core/logger"
)

// ErrJobFailed is returned when the generation service reports a
// terminal failure for a job.
var ErrJobFailed = errors.New("ad generation job failed")

// Request describes one generation job. The bot fills ClientSlug from
// the workspace cache; Brief is free text from the operator.
type Request struct {
	ClientSlug string `json:"client_slug"`
	Brief      string `json:"brief,omitempty"`
}

// Result is the outcome of a finished job.
type Result struct {
	JobID    string `json:"job_id"`
	ImageURL string `json:"image_url"`
}

// Runner triggers an external generation job and waits for it. The
// generation itself is entirely opaque to this process.
type Runner interface {
	Run(ctx context.Context, req Request) (Result, error)
}

// Options configures the HTTP runner.
type Options struct {
	BaseURL string
	Token   string
	// PollInterval defaults to 2s.
	PollInterval time.Duration
	HTTPClient   *http.Client
	// NewJobID is injectable for tests; defaults to uuid.NewString.
	NewJobID func() string
}

// HTTPRunner submits jobs to the generation service and polls until
// they finish. Waiting is bounded by the caller's context.
type HTTPRunner struct {
	baseURL      string
	token        string
	pollInterval time.Duration
	client       *http.Client
	newJobID     func() string
}

func NewHTTPRunner(opts Options) *HTTPRunner {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.NewJobID == nil {
		opts.NewJobID = uuid.NewString
	}
	return &HTTPRunner{
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		token:        opts.Token,
		pollInterval: opts.PollInterval,
		client:       opts.HTTPClient,
		newJobID:     opts.NewJobID,
	}
}

type submitPayload struct {
	JobID      string `json:"job_id"`
	ClientSlug string `json:"client_slug"`
	Brief      string `json:"brief,omitempty"`
}

type jobStatus struct {
	Status   string `json:"status"`
	ImageURL string `json:"image_url"`
	Error    string `json:"error"`
}

// Run submits the job and blocks until it completes, fails, or ctx
// expires.
func (r *HTTPRunner) Run(ctx context.Context, req Request) (Result, error) {
	jobID := r.newJobID()
	start := time.Now()

	if err := r.submit(ctx, jobID, req); err != nil {
		return Result{}, err
	}
	logger.GEN.Info("generation job submitted",
		slog.String("event", "adgen.submit"),
		slog.String("job_id", jobID),
		slog.String("client", req.ClientSlug))

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return Result{}, fmt.Errorf("adgen: waiting for job %s: %w", jobID, ctx.Err())
		case <-ticker.C:
		}

		status, err := r.poll(ctx, jobID)
		if err != nil {
			return Result{}, err
		}
		switch status.Status {
		case "done":
			logger.GEN.Info("generation job finished",
				slog.String("event", "adgen.done"),
				slog.String("job_id", jobID),
				slog.Duration("duration", logger.RoundMS(time.Since(start))))
			return Result{JobID: jobID, ImageURL: status.ImageURL}, nil
		case "failed":
			logger.GEN.Warn("generation job failed",
				slog.String("event", "adgen.failed"),
				slog.String("job_id", jobID),
				slog.String("err", status.Error))
			return Result{}, fmt.Errorf("%w: %s", ErrJobFailed, status.Error)
		}
		// pending/running, keep polling
	}
}

func (r *HTTPRunner) submit(ctx context.Context, jobID string, req Request) error {
	body, err := json.Marshal(submitPayload{JobID: jobID, ClientSlug: req.ClientSlug, Brief: req.Brief})
	if err != nil {
		return err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/jobs", bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Authorization", "Bearer "+r.token)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("adgen: submitting job: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("adgen: submit returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return nil
}

func (r *HTTPRunner) poll(ctx context.Context, jobID string) (*jobStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/jobs/"+jobID, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+r.token)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("adgen: polling job %s: %w", jobID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("adgen: poll returned %d", resp.StatusCode)
	}

	var status jobStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("adgen: decoding job status: %w", err)
	}
	return &status, nil
}
