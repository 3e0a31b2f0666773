package fbads

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"github.com/marktr/adsbot/core/logger"
)

const (
	defaultAPIVersion  = "v23.0"
	defaultBaseURL     = "https://graph.facebook.com"
	defaultPageSize    = 25
	defaultMaxRetries  = 5
	defaultBackoffBase = 1 * time.Second
	defaultBackoffCap  = 30 * time.Second
)

// Options configures the Graph API client.
type Options struct {
	BaseURL     string
	APIVersion  string
	AccessToken string
	PageSize    int
	Timeout     time.Duration
	MaxRetries  int
	BackoffBase time.Duration
	BackoffCap  time.Duration
	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

// Client is a typed wrapper over the Facebook Marketing Graph API.
// Read calls retry on rate limiting with exponential backoff; the
// single write (status mutation) never auto-retries.
type Client struct {
	http        *http.Client
	baseURL     string
	version     string
	token       string
	pageSize    int
	maxRetries  int
	backoffBase time.Duration
	backoffCap  time.Duration

	// sleep is stubbed in tests to avoid real backoff waits.
	sleep func(ctx context.Context, d time.Duration) error
}

// New builds a Client, filling zeroed options with defaults.
func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.APIVersion == "" {
		opts.APIVersion = defaultAPIVersion
	}
	if opts.PageSize <= 0 {
		opts.PageSize = defaultPageSize
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = defaultBackoffBase
	}
	if opts.BackoffCap <= 0 {
		opts.BackoffCap = defaultBackoffCap
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		http:        httpClient,
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		version:     opts.APIVersion,
		token:       opts.AccessToken,
		pageSize:    opts.PageSize,
		maxRetries:  opts.MaxRetries,
		backoffBase: opts.BackoffBase,
		backoffCap:  opts.BackoffCap,
		sleep: func(ctx context.Context, d time.Duration) error {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
				return nil
			}
		},
	}
}

type listEnvelope struct {
	Data   []json.RawMessage `json:"data"`
	Paging struct {
		Cursors struct {
			Before string `json:"before"`
			After  string `json:"after"`
		} `json:"cursors"`
		Next     string `json:"next"`
		Previous string `json:"previous"`
	} `json:"paging"`
	Error *graphError `json:"error"`
}

// ListAccounts returns all ad accounts visible to the configured token.
func (c *Client) ListAccounts(ctx context.Context) ([]AdAccount, error) {
	var out []AdAccount
	cursor := ""
	for {
		q := url.Values{}
		q.Set("fields", "name,currency,account_status")
		q.Set("limit", strconv.Itoa(c.pageSize))
		if cursor != "" {
			q.Set("after", cursor)
		}
		env, err := c.getList(ctx, "me/adaccounts", q, "accounts.list")
		if err != nil {
			return nil, err
		}
		for _, raw := range env.Data {
			var acc AdAccount
			if err := json.Unmarshal(raw, &acc); err != nil {
				return nil, fmt.Errorf("fbads: decode account: %w", err)
			}
			out = append(out, acc)
		}
		if env.Paging.Next == "" || env.Paging.Cursors.After == "" {
			break
		}
		cursor = env.Paging.Cursors.After
	}
	return out, nil
}

// ListChildren returns one page of children under parentID. parentLevel
// is the level of the parent; the children are one level deeper. The
// cursor is the opaque `after` value from a previous page, or empty.
func (c *Client) ListChildren(ctx context.Context, parentID string, parentLevel Level, cursor string) (Page, error) {
	edge := parentLevel.ChildEdge()
	if edge == "" {
		return Page{}, fmt.Errorf("fbads: level %s has no children", parentLevel)
	}
	if parentLevel == LevelAccount {
		parentID = accountPath(parentID)
	}

	q := url.Values{}
	q.Set("fields", "name,status,effective_status")
	q.Set("limit", strconv.Itoa(c.pageSize))
	if cursor != "" {
		q.Set("after", cursor)
	}
	env, err := c.getList(ctx, parentID+"/"+edge, q, edge+".list")
	if err != nil {
		return Page{}, err
	}

	childLevel := parentLevel + 1
	page := Page{}
	for _, raw := range env.Data {
		var ent Entity
		if err := json.Unmarshal(raw, &ent); err != nil {
			return Page{}, fmt.Errorf("fbads: decode entity: %w", err)
		}
		ent.Level = childLevel
		page.Entities = append(page.Entities, ent)
	}
	if env.Paging.Next != "" {
		page.NextCursor = env.Paging.Cursors.After
	}
	if env.Paging.Previous != "" {
		page.PrevCursor = env.Paging.Cursors.Before
	}
	return page, nil
}

var detailFields = map[Level]string{
	LevelCampaign: "name,status,effective_status,objective,daily_budget,lifetime_budget,created_time,updated_time",
	LevelAdSet:    "name,status,effective_status,optimization_goal,daily_budget,lifetime_budget,created_time,updated_time",
	LevelAd:       "name,status,effective_status,created_time,updated_time",
}

// GetDetail fetches the detail fields for a single entity.
func (c *Client) GetDetail(ctx context.Context, id string, level Level) (EntityDetail, error) {
	fields, ok := detailFields[level]
	if !ok {
		return EntityDetail{}, fmt.Errorf("fbads: no detail view for level %s", level)
	}
	q := url.Values{}
	q.Set("fields", fields)

	body, err := c.getRaw(ctx, id, q, "detail.get")
	if err != nil {
		return EntityDetail{}, err
	}

	var raw struct {
		EntityDetail
		Objective        string `json:"objective"`
		OptimizationGoal string `json:"optimization_goal"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return EntityDetail{}, fmt.Errorf("fbads: decode detail: %w", err)
	}
	detail := raw.EntityDetail
	detail.Level = level
	detail.ObjectiveOrOpt = raw.Objective
	if detail.ObjectiveOrOpt == "" {
		detail.ObjectiveOrOpt = raw.OptimizationGoal
	}
	return detail, nil
}

// MutateStatus sets the entity status. This is the only write the client
// performs and it is never retried; re-applying the current status is a
// no-op success upstream.
func (c *Client) MutateStatus(ctx context.Context, id string, status Status) error {
	if !status.Valid() {
		return fmt.Errorf("fbads: invalid status %q", status)
	}

	form := url.Values{}
	form.Set("status", string(status))
	form.Set("access_token", c.token)

	endpoint := fmt.Sprintf("%s/%s/%s", c.baseURL, c.version, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("fbads: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		logger.FB.Warn("status mutation transport failure",
			slog.String("event", "fb.mutate"),
			slog.String("entity_id", id),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("fbads: %w: %v", ErrPlatformUnavailable, err)
	}
	defer resp.Body.Close()
	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return fmt.Errorf("fbads: %w: %v", ErrPlatformUnavailable, readErr)
	}
	if apiErr := decodeError(body, resp.StatusCode); apiErr != nil {
		logger.FB.Warn("status mutation rejected",
			slog.String("event", "fb.mutate"),
			slog.String("entity_id", id),
			slog.String("status", "fail"),
			slog.String("err", apiErr.Error()),
			slog.String("err_code", apiErr.Kind()),
		)
		return apiErr
	}

	logger.FB.Info("status mutated",
		slog.String("event", "fb.mutate"),
		slog.String("entity_id", id),
		slog.String("op", string(status)),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return nil
}

// resultActionTypes are the Graph action types counted as results.
var resultActionTypes = map[string]struct{}{
	"lead":                             {},
	"onsite_conversion.lead_grouped":   {},
	"offsite_conversion.fb_pixel_lead": {},
	"onsite_conversion.messaging_conversation_started_7d": {},
}

type insightRowRaw struct {
	DateStart   string `json:"date_start"`
	DateStop    string `json:"date_stop"`
	Spend       string `json:"spend"`
	Impressions string `json:"impressions"`
	Clicks      string `json:"clicks"`
	Actions     []struct {
		ActionType string `json:"action_type"`
		Value      string `json:"value"`
	} `json:"actions"`
}

// GetInsights fetches per-day insight rows for an account over the range.
func (c *Client) GetInsights(ctx context.Context, accountID string, r DateRange) ([]InsightRow, error) {
	q := url.Values{}
	q.Set("fields", "spend,impressions,clicks,actions,date_start,date_stop")
	q.Set("time_increment", "1")
	q.Set("time_range", fmt.Sprintf(`{"since":"%s","until":"%s"}`,
		r.Since.Format(time.DateOnly), r.Until.Format(time.DateOnly)))
	q.Set("limit", strconv.Itoa(c.pageSize))

	env, err := c.getList(ctx, accountPath(accountID)+"/insights", q, "insights.get")
	if err != nil {
		return nil, err
	}

	rows := make([]InsightRow, 0, len(env.Data))
	for _, rawRow := range env.Data {
		var in insightRowRaw
		if err := json.Unmarshal(rawRow, &in); err != nil {
			return nil, fmt.Errorf("fbads: decode insight row: %w", err)
		}
		row := InsightRow{DateStart: in.DateStart, DateStop: in.DateStop}
		if in.Spend == "" {
			row.Partial = true
		} else if v, err := strconv.ParseFloat(in.Spend, 64); err == nil {
			row.Spend = v
		} else {
			row.Partial = true
		}
		row.Impressions, row.Partial = parseCount(in.Impressions, row.Partial)
		row.Clicks, row.Partial = parseCount(in.Clicks, row.Partial)
		for _, a := range in.Actions {
			if _, ok := resultActionTypes[a.ActionType]; !ok {
				continue
			}
			if v, err := strconv.ParseInt(a.Value, 10, 64); err == nil {
				row.Results += v
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseCount(s string, partial bool) (int64, bool) {
	if s == "" {
		return 0, true
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, true
	}
	return v, partial
}

func accountPath(accountID string) string {
	if strings.HasPrefix(accountID, "act_") {
		return accountID
	}
	return "act_" + accountID
}

func (c *Client) getList(ctx context.Context, path string, q url.Values, op string) (*listEnvelope, error) {
	body, err := c.getRaw(ctx, path, q, op)
	if err != nil {
		return nil, err
	}
	var env listEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("fbads: decode response: %w", err)
	}
	return &env, nil
}

// getRaw performs a read with rate-limit retries. After the retry budget
// is exhausted the failure is reported as platform unavailability.
func (c *Client) getRaw(ctx context.Context, path string, q url.Values, op string) ([]byte, error) {
	q.Set("access_token", c.token)
	endpoint := fmt.Sprintf("%s/%s/%s?%s", c.baseURL, c.version, path, q.Encode())

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("fbads: %w: %v", ErrPlatformUnavailable, err)
		}

		body, err := c.doGet(ctx, endpoint, op)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !Retryable(err) {
			return nil, err
		}

		if attempt == c.maxRetries {
			break
		}
		delay := c.backoffBase << (attempt - 1)
		if delay > c.backoffCap {
			delay = c.backoffCap
		}
		logger.FB.Debug("rate limited, backing off",
			slog.String("event", "fb.retry"),
			slog.String("op", op),
			slog.Int("attempts", attempt),
			slog.Duration("backoff", delay),
		)
		if err := c.sleep(ctx, delay); err != nil {
			return nil, fmt.Errorf("fbads: %w: %v", ErrPlatformUnavailable, err)
		}
	}

	logger.FB.Warn("retry budget exhausted",
		slog.String("event", "fb.retry"),
		slog.String("op", op),
		slog.Int("attempts", c.maxRetries),
		slog.Bool("rate_limited", true),
	)
	return nil, fmt.Errorf("fbads: %w: %v", ErrPlatformUnavailable, lastErr)
}

func (c *Client) doGet(ctx context.Context, endpoint, op string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("fbads: build request: %w", err)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fbads: %w: %v", ErrPlatformUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fbads: %w: %v", ErrPlatformUnavailable, err)
	}
	if apiErr := decodeError(body, resp.StatusCode); apiErr != nil {
		return nil, apiErr
	}

	if logger.ShouldSampleDebug() {
		logger.FB.Debug("graph read",
			slog.String("event", "fb.request"),
			slog.String("op", op),
			slog.Int("http_code", resp.StatusCode),
			slog.Duration("duration", logger.RoundMS(time.Since(start))),
		)
	}
	return body, nil
}

// decodeError extracts a Graph error envelope if the response carries one.
func decodeError(body []byte, httpStatus int) *APIError {
	var probe struct {
		Error *graphError `json:"error"`
	}
	if err := json.Unmarshal(body, &probe); err == nil && probe.Error != nil {
		return classify(*probe.Error, httpStatus)
	}
	if httpStatus >= 400 {
		return classify(graphError{Message: http.StatusText(httpStatus)}, httpStatus)
	}
	return nil
}
