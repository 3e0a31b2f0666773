package workspace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/marktr/adsbot/core/logger"
)

// Source fetches the current client roster from the workspace tool.
type Source interface {
	FetchClients(ctx context.Context) ([]ClientRecord, error)
}

// Cache is the slice of Store the syncer needs.
type Cache interface {
	ListAll(ctx context.Context) ([]ClientRecord, error)
	ReplaceAll(ctx context.Context, records []ClientRecord) error
}

// PlanResult describes what a sync changed, keyed by slug.
type PlanResult struct {
	Added   []string
	Updated []string
	Removed []string
	Total   int
}

func (p PlanResult) Dirty() bool {
	return len(p.Added)+len(p.Updated)+len(p.Removed) > 0
}

func (p PlanResult) String() string {
	return fmt.Sprintf("%d clients (+%d ~%d -%d)",
		p.Total, len(p.Added), len(p.Updated), len(p.Removed))
}

// Plan diffs the cached roster against the fetched one. Pure.
func Plan(current, fetched []ClientRecord) PlanResult {
	have := make(map[string]ClientRecord, len(current))
	for _, rec := range current {
		have[rec.Slug] = rec
	}

	plan := PlanResult{Total: len(fetched)}
	seen := make(map[string]bool, len(fetched))
	for _, rec := range fetched {
		seen[rec.Slug] = true
		prev, ok := have[rec.Slug]
		switch {
		case !ok:
			plan.Added = append(plan.Added, rec.Slug)
		case prev.Name != rec.Name || prev.Stage != rec.Stage || prev.PageID != rec.PageID:
			plan.Updated = append(plan.Updated, rec.Slug)
		}
	}
	for slug := range have {
		if !seen[slug] {
			plan.Removed = append(plan.Removed, slug)
		}
	}
	sort.Strings(plan.Added)
	sort.Strings(plan.Updated)
	sort.Strings(plan.Removed)
	return plan
}

// Slugify lowercases a client name into a stable slug: runs of
// non-alphanumerics collapse to single hyphens.
func Slugify(name string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
		default:
			pendingDash = true
		}
	}
	return b.String()
}

// Syncer reconciles the Postgres cache with the workspace tool.
type Syncer struct {
	source Source
	cache  Cache
	now    func() time.Time
}

func NewSyncer(source Source, cache Cache) *Syncer {
	return &Syncer{source: source, cache: cache, now: time.Now}
}

// Sync fetches the roster, diffs it against the cache and applies the
// result. The cache is only written when something actually changed.
func (s *Syncer) Sync(ctx context.Context) (PlanResult, error) {
	start := time.Now()

	fetched, err := s.source.FetchClients(ctx)
	if err != nil {
		return PlanResult{}, fmt.Errorf("workspace: fetching roster: %w", err)
	}
	current, err := s.cache.ListAll(ctx)
	if err != nil {
		return PlanResult{}, err
	}

	plan := Plan(current, fetched)
	if plan.Dirty() {
		now := s.now()
		for i := range fetched {
			fetched[i].UpdatedAt = now
		}
		if err := s.cache.ReplaceAll(ctx, fetched); err != nil {
			return PlanResult{}, err
		}
	}

	logger.CACHE.Info("workspace sync finished",
		slog.String("event", "workspace.sync"),
		slog.Int("total", plan.Total),
		slog.Int("added", len(plan.Added)),
		slog.Int("updated", len(plan.Updated)),
		slog.Int("removed", len(plan.Removed)),
		slog.Bool("dirty", plan.Dirty()),
		slog.Duration("duration", logger.RoundMS(time.Since(start))))
	return plan, nil
}

// HTTPSource reads the roster from a Notion-style database query API.
type HTTPSource struct {
	baseURL      string
	token        string
	databaseID   string
	activeStages map[string]bool
	client       *http.Client
}

// SourceOptions configures an HTTPSource. ActiveStages defaults to
// {"Active"}; pages in other stages are dropped during fetch.
type SourceOptions struct {
	BaseURL      string
	Token        string
	DatabaseID   string
	ActiveStages []string
	Timeout      time.Duration
	HTTPClient   *http.Client
}

func NewHTTPSource(opts SourceOptions) *HTTPSource {
	if len(opts.ActiveStages) == 0 {
		opts.ActiveStages = []string{"Active"}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	stages := make(map[string]bool, len(opts.ActiveStages))
	for _, s := range opts.ActiveStages {
		stages[s] = true
	}
	return &HTTPSource{
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		token:        opts.Token,
		databaseID:   opts.DatabaseID,
		activeStages: stages,
		client:       client,
	}
}

type queryRequest struct {
	StartCursor string `json:"start_cursor,omitempty"`
	PageSize    int    `json:"page_size"`
}

type queryResponse struct {
	Results []struct {
		ID         string `json:"id"`
		Properties struct {
			Name struct {
				Title []struct {
					PlainText string `json:"plain_text"`
				} `json:"title"`
			} `json:"Name"`
			Stage struct {
				Select struct {
					Name string `json:"name"`
				} `json:"select"`
			} `json:"Stage"`
		} `json:"properties"`
	} `json:"results"`
	HasMore    bool   `json:"has_more"`
	NextCursor string `json:"next_cursor"`
}

// FetchClients pages through the database query endpoint and returns
// the active-stage clients with slugified names.
func (h *HTTPSource) FetchClients(ctx context.Context) ([]ClientRecord, error) {
	var out []ClientRecord
	cursor := ""
	for {
		resp, err := h.queryPage(ctx, cursor)
		if err != nil {
			return nil, err
		}
		for _, page := range resp.Results {
			name := ""
			if len(page.Properties.Name.Title) > 0 {
				name = page.Properties.Name.Title[0].PlainText
			}
			stage := page.Properties.Stage.Select.Name
			if name == "" || !h.activeStages[stage] {
				continue
			}
			out = append(out, ClientRecord{
				Slug:   Slugify(name),
				Name:   name,
				Stage:  stage,
				PageID: page.ID,
			})
		}
		if !resp.HasMore || resp.NextCursor == "" {
			break
		}
		cursor = resp.NextCursor
	}
	return out, nil
}

func (h *HTTPSource) queryPage(ctx context.Context, cursor string) (*queryResponse, error) {
	body, err := json.Marshal(queryRequest{StartCursor: cursor, PageSize: 100})
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/v1/databases/%s/query", h.baseURL, h.databaseID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+h.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Notion-Version", "2022-06-28")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("workspace: query request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("workspace: query returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var parsed queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("workspace: decoding query response: %w", err)
	}
	return &parsed, nil
}
