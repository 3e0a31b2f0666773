package adgen

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRunner(t *testing.T, handler http.HandlerFunc) *HTTPRunner {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPRunner(Options{
		BaseURL:      srv.URL,
		Token:        "secret",
		PollInterval: time.Millisecond,
		HTTPClient:   srv.Client(),
		NewJobID:     func() string { return "job-1" },
	})
}

func TestRunSubmitsAndAwaitsCompletion(t *testing.T) {
	polls := 0
	runner := newTestRunner(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/jobs":
			assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
			var payload map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			assert.Equal(t, "job-1", payload["job_id"])
			assert.Equal(t, "glow-aesthetics", payload["client_slug"])
			w.WriteHeader(http.StatusAccepted)
		case r.Method == http.MethodGet && r.URL.Path == "/jobs/job-1":
			polls++
			if polls < 3 {
				fmt.Fprint(w, `{"status":"running"}`)
				return
			}
			fmt.Fprint(w, `{"status":"done","image_url":"https://cdn.example/ad.png"}`)
		default:
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	})

	res, err := runner.Run(context.Background(), Request{ClientSlug: "glow-aesthetics", Brief: "summer promo"})
	require.NoError(t, err)
	assert.Equal(t, "job-1", res.JobID)
	assert.Equal(t, "https://cdn.example/ad.png", res.ImageURL)
	assert.Equal(t, 3, polls)
}

func TestRunSurfacesJobFailure(t *testing.T) {
	runner := newTestRunner(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusAccepted)
			return
		}
		fmt.Fprint(w, `{"status":"failed","error":"no brand kit"}`)
	})

	_, err := runner.Run(context.Background(), Request{ClientSlug: "glow"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrJobFailed)
	assert.Contains(t, err.Error(), "no brand kit")
}

func TestRunStopsWhenContextExpires(t *testing.T) {
	runner := newTestRunner(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusAccepted)
			return
		}
		fmt.Fprint(w, `{"status":"running"}`)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := runner.Run(ctx, Request{ClientSlug: "glow"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRunRejectsFailedSubmit(t *testing.T) {
	runner := newTestRunner(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"message":"bad token"}`)
	})

	_, err := runner.Run(context.Background(), Request{ClientSlug: "glow"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}
